package model

import (
	"encoding/json"
	"reflect"
	"testing"
)

const suiteJSON = `{
  "suite_name": "orders.warning",
  "expectations": [
    {"expectation_type": "expect_table_row_count_to_be_between", "kwargs": {"min_value": 1}},
    {"expectation_type": "expect_column_values_to_not_be_null", "kwargs": {"column": "order_id"}},
    {"expectation_type": "expect_column_values_to_be_unique", "kwargs": {"column": "order_id"}},
    {"expectation_type": "expect_column_values_to_not_be_null", "kwargs": {"column": "amount"}}
  ],
  "meta": {
    "citations": [
      {"comment": "profiled", "dataset": {"path": "data/orders.csv", "reader": "csv"}},
      {"comment": "no dataset here"}
    ]
  }
}`

func TestParseSuite(t *testing.T) {
	suite, err := ParseSuite([]byte(suiteJSON))
	if err != nil {
		t.Fatal(err)
	}
	if suite.Name != "orders.warning" {
		t.Errorf("expected suite name %q, got %q", "orders.warning", suite.Name)
	}
	if len(suite.Expectations) != 4 {
		t.Errorf("expected 4 expectations, got %d", len(suite.Expectations))
	}

	// A suite without a name cannot become a store key.
	_, err = ParseSuite([]byte(`{"expectations": []}`))
	if err != ErrSuiteUnnamed {
		t.Errorf("expected ErrSuiteUnnamed, got %v", err)
	}

	_, err = ParseSuite([]byte("not json"))
	if err == nil {
		t.Error("expected error for malformed document")
	}
}

func TestGroupByColumn(t *testing.T) {
	suite, err := ParseSuite([]byte(suiteJSON))
	if err != nil {
		t.Fatal(err)
	}
	grouped := suite.GroupByColumn()

	if len(grouped.Table) != 1 {
		t.Fatalf("expected 1 table expectation, got %d", len(grouped.Table))
	}
	if grouped.Table[0].Type != "expect_table_row_count_to_be_between" {
		t.Errorf("unexpected table expectation %q", grouped.Table[0].Type)
	}

	// Column groups keep first-seen order.
	if len(grouped.Columns) != 2 {
		t.Fatalf("expected 2 column groups, got %d", len(grouped.Columns))
	}
	if grouped.Columns[0].Column != "order_id" || grouped.Columns[1].Column != "amount" {
		t.Errorf("unexpected column order: %q, %q", grouped.Columns[0].Column, grouped.Columns[1].Column)
	}
	if len(grouped.Columns[0].Expectations) != 2 {
		t.Errorf("expected 2 expectations for order_id, got %d", len(grouped.Columns[0].Expectations))
	}

	// The partition must be exhaustive.
	total := len(grouped.Table)
	for _, g := range grouped.Columns {
		total += len(g.Expectations)
	}
	if total != len(suite.Expectations) {
		t.Errorf("grouping lost expectations: %d of %d", total, len(suite.Expectations))
	}
}

func TestGroupByColumnEmptySuite(t *testing.T) {
	suite := &ExpectationSuite{Name: "empty"}
	grouped := suite.GroupByColumn()
	if len(grouped.Table) != 0 || len(grouped.Columns) != 0 {
		t.Errorf("expected empty groups, got %+v", grouped)
	}
}

func TestCitationsAndLatestDataRef(t *testing.T) {
	suite, err := ParseSuite([]byte(suiteJSON))
	if err != nil {
		t.Fatal(err)
	}

	citations := suite.Citations()
	if len(citations) != 2 {
		t.Fatalf("expected 2 citations, got %d", len(citations))
	}
	if citations[0].Comment != "profiled" {
		t.Errorf("unexpected comment %q", citations[0].Comment)
	}

	// The last citation has no dataset, so the earlier one wins.
	ref, ok := suite.LatestDataRef(nil)
	if !ok {
		t.Fatal("expected a data ref")
	}
	if p, _ := ref.Path(); p != "data/orders.csv" {
		t.Errorf("expected path %q, got %q", "data/orders.csv", p)
	}

	// An override always wins.
	override := DataRef{"path": "data/other.csv"}
	ref, ok = suite.LatestDataRef(override)
	if !ok {
		t.Fatal("expected a data ref")
	}
	if p, _ := ref.Path(); p != "data/other.csv" {
		t.Errorf("expected override path, got %q", p)
	}

	// No citations, no override: nothing to report.
	bare := &ExpectationSuite{Name: "bare"}
	if _, ok := bare.LatestDataRef(nil); ok {
		t.Error("expected no data ref for a suite without citations")
	}
}

func TestRebaseDataPath(t *testing.T) {
	testCases := []struct {
		name     string
		ref      DataRef
		expected string
	}{
		{name: "relative path is rebased", ref: DataRef{"path": "data/orders.csv"}, expected: "../../data/orders.csv"},
		{name: "absolute path kept", ref: DataRef{"path": "/srv/data/orders.csv"}, expected: "/srv/data/orders.csv"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out := RebaseDataPath(tc.ref, "../..")
			p, _ := out.Path()
			if p != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, p)
			}
		})
	}

	// The input ref must not be mutated.
	ref := DataRef{"path": "data/orders.csv"}
	RebaseDataPath(ref, "../..")
	if p, _ := ref.Path(); p != "data/orders.csv" {
		t.Errorf("input ref mutated: %q", p)
	}

	// A ref without a path passes through untouched.
	noPath := DataRef{"reader": "csv"}
	out := RebaseDataPath(noPath, "../..")
	if !reflect.DeepEqual(out, noPath) {
		t.Errorf("expected passthrough, got %v", out)
	}
}

func TestSortedKwargKeys(t *testing.T) {
	kwargs := map[string]interface{}{
		"min_value": 1,
		"column":    "order_id",
		"max_value": 10,
	}
	keys := SortedKwargKeys(kwargs)
	expected := []string{"column", "max_value", "min_value"}
	if !reflect.DeepEqual(keys, expected) {
		t.Errorf("expected %v, got %v", expected, keys)
	}

	keys = SortedKwargKeys(map[string]interface{}{"b": 1, "a": 2})
	if !reflect.DeepEqual(keys, []string{"a", "b"}) {
		t.Errorf("expected sorted keys without column, got %v", keys)
	}
}

func TestSuiteRoundTrip(t *testing.T) {
	suite, err := ParseSuite([]byte(suiteJSON))
	if err != nil {
		t.Fatal(err)
	}
	data, err := suite.MarshalIndent()
	if err != nil {
		t.Fatal(err)
	}
	again, err := ParseSuite(data)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(suite, again) {
		t.Error("suite changed across a marshal round trip")
	}

	var unnamed ExpectationSuite
	if _, err := unnamed.MarshalIndent(); err != ErrSuiteUnnamed {
		t.Errorf("expected ErrSuiteUnnamed, got %v", err)
	}
}

func TestExpectationColumn(t *testing.T) {
	var exp Expectation
	if err := json.Unmarshal([]byte(`{"expectation_type": "t", "kwargs": {"column": 42}}`), &exp); err != nil {
		t.Fatal(err)
	}
	// Non-string column values fall back to table level.
	if _, ok := exp.Column(); ok {
		t.Error("expected no column for a non-string column kwarg")
	}
}
