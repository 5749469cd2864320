package notebook

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sardine-ai/go-data-docs/model"
)

// profilerMetaKeys are bookkeeping entries written by suite profilers. They
// carry no authoring intent, so rendered meta arguments drop them.
var profilerMetaKeys = []string{"BasicSuiteBuilderProfiler"}

// callArgs renders the argument list for one expectation call: the column
// scope as a leading positional argument, the remaining kwargs as keyword
// arguments in sorted order, then a meta keyword when authoring metadata
// survives filtering.
func callArgs(exp model.Expectation) string {
	var parts []string
	for _, k := range model.SortedKwargKeys(exp.Kwargs) {
		v := exp.Kwargs[k]
		if k == model.ColumnKwarg {
			parts = append(parts, pyLiteral(v))
			continue
		}
		parts = append(parts, k+"="+pyLiteral(v))
	}
	if meta := filteredMeta(exp.Meta); len(meta) > 0 {
		parts = append(parts, "meta="+pyLiteral(meta))
	}
	return strings.Join(parts, ", ")
}

// filteredMeta copies meta without profiler bookkeeping keys, returning nil
// when nothing of interest remains.
func filteredMeta(meta map[string]interface{}) map[string]interface{} {
	if len(meta) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	for _, k := range profilerMetaKeys {
		delete(out, k)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// pyLiteral renders a decoded JSON value as a Python literal. Map keys are
// sorted so generated code is stable across runs.
func pyLiteral(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "None"
	case bool:
		if t {
			return "True"
		}
		return "False"
	case string:
		return pyString(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'g', -1, 64)
	case []interface{}:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = pyLiteral(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case model.DataRef:
		return pyDict(t)
	case map[string]interface{}:
		return pyDict(t)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func pyDict(m map[string]interface{}) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = pyString(k) + ": " + pyLiteral(m[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func pyString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}
