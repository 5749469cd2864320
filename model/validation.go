package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RunIdentifier names one validation run. Runs are keyed by time first so
// store listings and docs indexes sort chronologically.
type RunIdentifier struct {
	Name string    `json:"run_name" yaml:"run_name"`
	Time time.Time `json:"run_time" yaml:"run_time"`
}

// NewRunIdentifier builds an identifier for a run happening now. An empty
// name gets a generated UUID so two unnamed runs never collide.
func NewRunIdentifier(name string) RunIdentifier {
	if name == "" {
		name = uuid.NewString()
	}
	return RunIdentifier{Name: name, Time: time.Now().UTC()}
}

// String renders the identifier in its store-key form: a sortable compact
// UTC timestamp followed by the run name.
func (r RunIdentifier) String() string {
	return r.Time.UTC().Format("20060102T150405Z") + "-" + r.Name
}

// ParseRunIdentifier inverts String. Run names may themselves contain
// dashes, so only the first dash splits.
func ParseRunIdentifier(s string) (RunIdentifier, error) {
	stamp, name, found := strings.Cut(s, "-")
	if !found || name == "" {
		return RunIdentifier{}, fmt.Errorf("malformed run identifier %q", s)
	}
	t, err := time.Parse("20060102T150405Z", stamp)
	if err != nil {
		return RunIdentifier{}, fmt.Errorf("malformed run identifier %q: %w", s, err)
	}
	return RunIdentifier{Name: name, Time: t}, nil
}

// ExpectationResult is the outcome of evaluating one expectation.
type ExpectationResult struct {
	Expectation Expectation            `json:"expectation_config" yaml:"expectation_config"`
	Success     bool                   `json:"success" yaml:"success"`
	Observed    interface{}            `json:"observed_value,omitempty" yaml:"observed_value,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty" yaml:"details,omitempty"`
}

// Statistics summarizes a validation run.
type Statistics struct {
	Evaluated      int     `json:"evaluated_expectations" yaml:"evaluated_expectations"`
	Successful     int     `json:"successful_expectations" yaml:"successful_expectations"`
	Unsuccessful   int     `json:"unsuccessful_expectations" yaml:"unsuccessful_expectations"`
	SuccessPercent float64 `json:"success_percent" yaml:"success_percent"`
}

// ValidationResult is the artifact the validation engine emits for one suite
// run. Results arrive as stored JSON documents; nothing here executes
// expectations.
type ValidationResult struct {
	SuiteName  string                 `json:"suite_name" yaml:"suite_name"`
	RunID      RunIdentifier          `json:"run_id" yaml:"run_id"`
	Success    bool                   `json:"success" yaml:"success"`
	Results    []ExpectationResult    `json:"results" yaml:"results"`
	Statistics Statistics             `json:"statistics" yaml:"statistics"`
	Meta       map[string]interface{} `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// ParseValidationResult decodes a result document and derives statistics if
// the producer left them out.
func ParseValidationResult(data []byte) (*ValidationResult, error) {
	var v ValidationResult
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse validation result: %w", err)
	}
	if v.SuiteName == "" {
		return nil, fmt.Errorf("validation result names no suite")
	}
	v.FillStatistics()
	return &v, nil
}

// MarshalIndent renders the result as its stored JSON document form.
func (v *ValidationResult) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// FillStatistics derives the summary counts from the individual results when
// they are zero-valued. Results already carrying statistics are left alone.
func (v *ValidationResult) FillStatistics() {
	if v.Statistics.Evaluated != 0 || len(v.Results) == 0 {
		return
	}
	stats := Statistics{Evaluated: len(v.Results)}
	for _, r := range v.Results {
		if r.Success {
			stats.Successful++
		} else {
			stats.Unsuccessful++
		}
	}
	stats.SuccessPercent = 100 * float64(stats.Successful) / float64(stats.Evaluated)
	v.Statistics = stats
	v.Success = stats.Unsuccessful == 0
}
