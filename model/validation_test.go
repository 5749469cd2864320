package model

import (
	"strings"
	"testing"
	"time"
)

func TestRunIdentifierString(t *testing.T) {
	run := RunIdentifier{
		Name: "nightly-load",
		Time: time.Date(2023, 8, 14, 6, 30, 0, 0, time.UTC),
	}
	if run.String() != "20230814T063000Z-nightly-load" {
		t.Errorf("unexpected run identifier %q", run.String())
	}

	parsed, err := ParseRunIdentifier(run.String())
	if err != nil {
		t.Fatal(err)
	}
	if parsed.Name != run.Name || !parsed.Time.Equal(run.Time) {
		t.Errorf("round trip mismatch: %+v vs %+v", parsed, run)
	}
}

func TestParseRunIdentifierErrors(t *testing.T) {
	for _, s := range []string{"", "nodash", "20230814T063000Z-", "badstamp-name"} {
		if _, err := ParseRunIdentifier(s); err == nil {
			t.Errorf("expected error for %q", s)
		}
	}
}

func TestNewRunIdentifier(t *testing.T) {
	named := NewRunIdentifier("nightly")
	if named.Name != "nightly" {
		t.Errorf("expected name kept, got %q", named.Name)
	}
	if named.Time.Location() != time.UTC {
		t.Error("expected UTC run time")
	}

	// Unnamed runs get generated names and never collide.
	a := NewRunIdentifier("")
	b := NewRunIdentifier("")
	if a.Name == "" || a.Name == b.Name {
		t.Errorf("expected distinct generated names, got %q and %q", a.Name, b.Name)
	}
}

func TestParseValidationResult(t *testing.T) {
	doc := `{
	  "suite_name": "orders.warning",
	  "run_id": {"run_name": "nightly", "run_time": "2023-08-14T06:30:00Z"},
	  "results": [
	    {"expectation_config": {"expectation_type": "a", "kwargs": {}}, "success": true},
	    {"expectation_config": {"expectation_type": "b", "kwargs": {}}, "success": true},
	    {"expectation_config": {"expectation_type": "c", "kwargs": {}}, "success": false}
	  ]
	}`
	result, err := ParseValidationResult([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}

	// Statistics are derived when the producer leaves them out.
	stats := result.Statistics
	if stats.Evaluated != 3 || stats.Successful != 2 || stats.Unsuccessful != 1 {
		t.Errorf("unexpected statistics %+v", stats)
	}
	if stats.SuccessPercent < 66.6 || stats.SuccessPercent > 66.7 {
		t.Errorf("unexpected success percent %f", stats.SuccessPercent)
	}
	if result.Success {
		t.Error("expected overall failure with one unsuccessful expectation")
	}
}

func TestParseValidationResultKeepsStatistics(t *testing.T) {
	doc := `{
	  "suite_name": "orders.warning",
	  "run_id": {"run_name": "nightly", "run_time": "2023-08-14T06:30:00Z"},
	  "success": true,
	  "results": [{"expectation_config": {"expectation_type": "a", "kwargs": {}}, "success": false}],
	  "statistics": {"evaluated_expectations": 5, "successful_expectations": 5, "unsuccessful_expectations": 0, "success_percent": 100}
	}`
	result, err := ParseValidationResult([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if result.Statistics.Evaluated != 5 {
		t.Errorf("producer statistics overwritten: %+v", result.Statistics)
	}
}

func TestParseValidationResultErrors(t *testing.T) {
	if _, err := ParseValidationResult([]byte("{}")); err == nil {
		t.Error("expected error for a result naming no suite")
	}
	if _, err := ParseValidationResult([]byte("not json")); err == nil {
		t.Error("expected error for malformed document")
	}
}

func TestValidationResultRoundTrip(t *testing.T) {
	result := &ValidationResult{
		SuiteName: "orders.warning",
		RunID:     RunIdentifier{Name: "nightly", Time: time.Date(2023, 8, 14, 6, 30, 0, 0, time.UTC)},
		Results: []ExpectationResult{
			{Expectation: Expectation{Type: "a", Kwargs: map[string]interface{}{}}, Success: true},
		},
	}
	result.FillStatistics()
	if !result.Success {
		t.Error("expected success with all results successful")
	}

	data, err := result.MarshalIndent()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"suite_name": "orders.warning"`) {
		t.Errorf("unexpected document: %s", data)
	}
	again, err := ParseValidationResult(data)
	if err != nil {
		t.Fatal(err)
	}
	if again.RunID.String() != result.RunID.String() {
		t.Errorf("run id changed across round trip: %q vs %q", again.RunID, result.RunID)
	}
}
