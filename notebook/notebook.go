// Package notebook renders suite-edit notebooks: Jupyter documents that
// recreate an expectation suite as runnable code, so a suite that only
// exists as stored JSON can be edited interactively and saved back. The
// notebook format is nbformat 4.
package notebook

import (
	"encoding/json"
	"strings"
)

// Notebook is a Jupyter notebook document.
type Notebook struct {
	Cells         []Cell                 `json:"cells"`
	Metadata      map[string]interface{} `json:"metadata"`
	NBFormat      int                    `json:"nbformat"`
	NBFormatMinor int                    `json:"nbformat_minor"`
}

// New returns an empty nbformat 4 notebook.
func New() *Notebook {
	return &Notebook{
		Cells:         []Cell{},
		Metadata:      map[string]interface{}{},
		NBFormat:      4,
		NBFormatMinor: 4,
	}
}

// MarshalIndent renders the notebook as the .ipynb JSON document form.
func (n *Notebook) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(n, "", " ")
}

// Parse decodes a notebook document.
func Parse(data []byte) (*Notebook, error) {
	var n Notebook
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// Cell is one notebook cell. Markdown and code cells serialize with
// different required fields, handled in MarshalJSON.
type Cell struct {
	Type     string                 `json:"cell_type"`
	Source   []string               `json:"source"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Text returns the cell source as one string.
func (c Cell) Text() string {
	return strings.Join(c.Source, "")
}

// MarshalJSON writes the fields nbformat requires per cell type: code cells
// must carry execution_count and outputs even when empty, markdown cells
// must not.
func (c Cell) MarshalJSON() ([]byte, error) {
	metadata := c.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	source := c.Source
	if source == nil {
		source = []string{}
	}
	if c.Type == "code" {
		return json.Marshal(struct {
			Type           string                 `json:"cell_type"`
			ExecutionCount interface{}            `json:"execution_count"`
			Metadata       map[string]interface{} `json:"metadata"`
			Outputs        []interface{}          `json:"outputs"`
			Source         []string               `json:"source"`
		}{Type: c.Type, Metadata: metadata, Outputs: []interface{}{}, Source: source})
	}
	return json.Marshal(struct {
		Type     string                 `json:"cell_type"`
		Metadata map[string]interface{} `json:"metadata"`
		Source   []string               `json:"source"`
	}{Type: c.Type, Metadata: metadata, Source: source})
}

// NewMarkdownCell returns a markdown cell holding the given text.
func NewMarkdownCell(text string) Cell {
	return Cell{Type: "markdown", Source: sourceLines(text), Metadata: map[string]interface{}{}}
}

// NewCodeCell returns a code cell holding the given code, tidied.
func NewCodeCell(code string) Cell {
	return Cell{Type: "code", Source: sourceLines(tidyCode(code)), Metadata: map[string]interface{}{}}
}

// sourceLines splits text into the nbformat source form: one entry per
// line, each keeping its trailing newline.
func sourceLines(text string) []string {
	if text == "" {
		return []string{}
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// tidyCode normalizes generated code: trailing whitespace stripped from
// every line, runs of blank lines collapsed to one, and exactly one
// trailing newline.
func tidyCode(code string) string {
	lines := strings.Split(code, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			blank = true
			continue
		}
		if blank && len(out) > 0 {
			out = append(out, "")
		}
		blank = false
		out = append(out, line)
	}
	return strings.Join(out, "\n") + "\n"
}
