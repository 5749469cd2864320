package notebook

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sardine-ai/go-data-docs/model"
)

func TestPyLiteral(t *testing.T) {
	testCases := []struct {
		name string
		in   interface{}
		want string
	}{
		{name: "nil", in: nil, want: "None"},
		{name: "true", in: true, want: "True"},
		{name: "false", in: false, want: "False"},
		{name: "string", in: "orders", want: "'orders'"},
		{name: "string with quote", in: "it's", want: `'it\'s'`},
		{name: "int", in: 42, want: "42"},
		{name: "whole float", in: float64(2000), want: "2000"},
		{name: "fraction", in: 0.95, want: "0.95"},
		{name: "list", in: []interface{}{"a", 1, nil}, want: "['a', 1, None]"},
		{name: "dict sorted", in: map[string]interface{}{"b": 2, "a": 1}, want: "{'a': 1, 'b': 2}"},
		{name: "data ref", in: model.DataRef{"path": "data.csv"}, want: "{'path': 'data.csv'}"},
		{
			name: "nested",
			in:   map[string]interface{}{"values": []interface{}{true, 1.5}},
			want: "{'values': [True, 1.5]}",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, pyLiteral(tc.in))
		})
	}
}

func TestCallArgs(t *testing.T) {
	testCases := []struct {
		name string
		exp  model.Expectation
		want string
	}{
		{
			name: "column hoisted first",
			exp: model.Expectation{
				Type:   "expect_column_values_to_be_between",
				Kwargs: map[string]interface{}{"min_value": 0, "column": "amount", "mostly": 0.95},
			},
			want: "'amount', min_value=0, mostly=0.95",
		},
		{
			name: "table level",
			exp: model.Expectation{
				Type:   "expect_table_row_count_to_be_between",
				Kwargs: map[string]interface{}{"min_value": 1, "max_value": 9},
			},
			want: "max_value=9, min_value=1",
		},
		{
			name: "no kwargs",
			exp:  model.Expectation{Type: "expect_table_columns_to_match_ordered_list"},
			want: "",
		},
		{
			name: "meta kept after filtering",
			exp: model.Expectation{
				Kwargs: map[string]interface{}{"column": "id"},
				Meta: map[string]interface{}{
					"BasicSuiteBuilderProfiler": map[string]interface{}{"confidence": "low"},
					"notes":                     "keep",
				},
			},
			want: "'id', meta={'notes': 'keep'}",
		},
		{
			name: "profiler-only meta dropped",
			exp: model.Expectation{
				Kwargs: map[string]interface{}{"column": "id"},
				Meta:   map[string]interface{}{"BasicSuiteBuilderProfiler": map[string]interface{}{}},
			},
			want: "'id'",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, callArgs(tc.exp))
		})
	}
}

func TestTidyCode(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want string
	}{
		{name: "trailing spaces stripped", in: "a = 1  \nb = 2\t\n", want: "a = 1\nb = 2\n"},
		{name: "blank runs collapsed", in: "a = 1\n\n\n\nb = 2\n", want: "a = 1\n\nb = 2\n"},
		{name: "leading blanks dropped", in: "\n\na = 1\n", want: "a = 1\n"},
		{name: "single trailing newline", in: "a = 1\n\n\n", want: "a = 1\n"},
		{name: "no trailing newline gains one", in: "a = 1", want: "a = 1\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tidyCode(tc.in))
		})
	}
}

func TestSourceLines(t *testing.T) {
	assert.Equal(t, []string{}, sourceLines(""))
	assert.Equal(t, []string{"one line"}, sourceLines("one line"))
	assert.Equal(t, []string{"a\n", "b\n"}, sourceLines("a\nb\n"))
	assert.Equal(t, []string{"a\n", "\n", "b"}, sourceLines("a\n\nb"))
}
