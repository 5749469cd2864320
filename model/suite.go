// Package model defines the artifacts exchanged with the validation engine:
// expectation suites and the validation results produced from them. Both are
// stored and shipped as JSON documents.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
)

// ColumnKwarg is the kwargs key that scopes an expectation to a column.
const ColumnKwarg = "column"

// Expectation is a single declarative check, identified by its type and
// parameterized by free-form kwargs.
type Expectation struct {
	Type   string                 `json:"expectation_type" yaml:"expectation_type"` // e.g. expect_column_values_to_not_be_null
	Kwargs map[string]interface{} `json:"kwargs" yaml:"kwargs"`                     // parameters, including the optional column scope
	Meta   map[string]interface{} `json:"meta,omitempty" yaml:"meta,omitempty"`     // authoring metadata (profiler notes, comments)
}

// Column returns the column the expectation is scoped to, if any.
func (e Expectation) Column() (string, bool) {
	v, ok := e.Kwargs[ColumnKwarg]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// ExpectationSuite is a named collection of expectations plus authoring
// metadata. Suites are the unit of exchange with the validation engine and
// the input to both the docs renderer and the suite-edit notebook renderer.
type ExpectationSuite struct {
	Name         string                 `json:"suite_name" yaml:"suite_name"`
	Expectations []Expectation          `json:"expectations" yaml:"expectations"`
	Meta         map[string]interface{} `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// ErrSuiteUnnamed is returned when a suite without a name is parsed or
// persisted. Names become store keys, so they cannot be empty.
var ErrSuiteUnnamed = errors.New("expectation suite has no name")

// ParseSuite decodes a suite from its JSON document form.
func ParseSuite(data []byte) (*ExpectationSuite, error) {
	var s ExpectationSuite
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse suite: %w", err)
	}
	if s.Name == "" {
		return nil, ErrSuiteUnnamed
	}
	return &s, nil
}

// MarshalIndent renders the suite as the indented JSON document written to
// stores and edited by the generated notebook.
func (s *ExpectationSuite) MarshalIndent() ([]byte, error) {
	if s.Name == "" {
		return nil, ErrSuiteUnnamed
	}
	return json.MarshalIndent(s, "", "  ")
}

// ColumnGroup is the set of expectations scoped to one column, in suite
// order.
type ColumnGroup struct {
	Column       string
	Expectations []Expectation
}

// GroupedExpectations partitions a suite into table-level expectations and
// per-column groups. The partition is exhaustive: every expectation lands in
// exactly one bucket.
type GroupedExpectations struct {
	Table   []Expectation
	Columns []ColumnGroup // first-seen column order
}

// GroupByColumn splits the suite's expectations into table-level and
// per-column groups. Column groups keep the order columns first appear in
// the suite, which keeps rendered docs and notebooks stable across builds.
func (s *ExpectationSuite) GroupByColumn() GroupedExpectations {
	grouped := GroupedExpectations{Table: []Expectation{}}
	index := map[string]int{}
	for _, exp := range s.Expectations {
		col, ok := exp.Column()
		if !ok {
			grouped.Table = append(grouped.Table, exp)
			continue
		}
		i, seen := index[col]
		if !seen {
			index[col] = len(grouped.Columns)
			grouped.Columns = append(grouped.Columns, ColumnGroup{Column: col})
			i = len(grouped.Columns) - 1
		}
		grouped.Columns[i].Expectations = append(grouped.Columns[i].Expectations, exp)
	}
	return grouped
}

// Citation records what data a suite was authored against.
type Citation struct {
	Comment string  `json:"comment,omitempty"`
	Dataset DataRef `json:"dataset,omitempty"`
}

// DataRef loosely identifies a batch of data, e.g. {"path": "data/orders.csv"}.
// The shape is owned by the validation engine; only the path key is
// interpreted here.
type DataRef map[string]interface{}

// Path returns the data file path carried by the ref, if any.
func (d DataRef) Path() (string, bool) {
	v, ok := d["path"]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

// Citations extracts the citation list from the suite meta. Entries that are
// not citation-shaped are skipped rather than failing the whole suite.
func (s *ExpectationSuite) Citations() []Citation {
	raw, ok := s.Meta["citations"]
	if !ok {
		return nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	var citations []Citation
	for _, item := range list {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		var c Citation
		if comment, ok := entry["comment"].(string); ok {
			c.Comment = comment
		}
		if ds, ok := entry["dataset"].(map[string]interface{}); ok {
			c.Dataset = DataRef(ds)
		}
		citations = append(citations, c)
	}
	return citations
}

// LatestDataRef returns the data reference from the most recent citation
// that carries one. The override, when non-nil, wins without consulting
// citations at all.
func (s *ExpectationSuite) LatestDataRef(override DataRef) (DataRef, bool) {
	if override != nil {
		return override, true
	}
	citations := s.Citations()
	for i := len(citations) - 1; i >= 0; i-- {
		if citations[i].Dataset != nil {
			return citations[i].Dataset, true
		}
	}
	return nil, false
}

// RebaseDataPath rewrites a relative data path against rel, leaving absolute
// paths untouched. Generated notebooks live below the project root, so a
// path recorded relative to the root must be stepped back out of the
// notebook directory to stay resolvable.
func RebaseDataPath(ref DataRef, rel string) DataRef {
	p, ok := ref.Path()
	if !ok || path.IsAbs(p) {
		return ref
	}
	out := make(DataRef, len(ref))
	for k, v := range ref {
		out[k] = v
	}
	out["path"] = path.Join(rel, p)
	return out
}

// SortedKwargKeys returns kwargs keys with the column scope hoisted first
// and the rest sorted, the order kwargs are rendered in docs and notebooks.
func SortedKwargKeys(kwargs map[string]interface{}) []string {
	keys := make([]string, 0, len(kwargs))
	for k := range kwargs {
		if k == ColumnKwarg {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if _, ok := kwargs[ColumnKwarg]; ok {
		keys = append([]string{ColumnKwarg}, keys...)
	}
	return keys
}
