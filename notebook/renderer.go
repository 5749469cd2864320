package notebook

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"text/template"

	"github.com/sardine-ai/go-data-docs/model"
	"github.com/sardine-ai/go-data-docs/store"
)

//go:embed templates
var defaultTemplates embed.FS

// ErrTemplateDirNotFound is returned when a renderer is pointed at a custom
// template directory that does not exist. A typo here would otherwise
// silently fall back to the defaults.
var ErrTemplateDirNotFound = errors.New("notebook template directory not found")

// datasetRelBase steps a data path recorded relative to the project root
// back out of the uncommitted/ directory edit notebooks are written to.
const datasetRelBase = "../.."

// SuiteEditRenderer turns an expectation suite into a Jupyter notebook that
// recreates the suite cell by cell. Templates resolve against TemplateDir
// first when set, then the embedded defaults, so single templates can be
// overridden by name.
type SuiteEditRenderer struct {
	TemplateDir string
}

// Render assembles the notebook. The override, when non-nil, picks the data
// batch the notebook loads; otherwise the most recent suite citation with a
// dataset is used.
func (r *SuiteEditRenderer) Render(suite *model.ExpectationSuite, override model.DataRef) (*Notebook, error) {
	if suite == nil {
		return nil, errors.New("render notebook: nil suite")
	}
	if suite.Name == "" {
		return nil, model.ErrSuiteUnnamed
	}
	if err := r.checkTemplateDir(); err != nil {
		return nil, err
	}

	nb := New()
	if err := r.addHeader(nb, suite, override); err != nil {
		return nil, err
	}
	if err := r.addMarkdown(nb, "AUTHORING_INTRO.md", nil); err != nil {
		return nil, err
	}
	grouped := suite.GroupByColumn()
	if err := r.addTableExpectations(nb, grouped.Table); err != nil {
		return nil, err
	}
	if err := r.addColumnExpectations(nb, grouped.Columns); err != nil {
		return nil, err
	}
	if err := r.addFooter(nb, suite); err != nil {
		return nil, err
	}
	return nb, nil
}

// RenderToFile writes the rendered notebook to an .ipynb file, creating
// parent directories as needed.
func (r *SuiteEditRenderer) RenderToFile(suite *model.ExpectationSuite, override model.DataRef, filename string) error {
	data, err := r.renderBytes(suite, override)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("write notebook: %w", err)
		}
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("write notebook: %w", err)
	}
	return nil
}

// RenderToStore writes the rendered notebook to a storage backend.
func (r *SuiteEditRenderer) RenderToStore(ctx context.Context, suite *model.ExpectationSuite, override model.DataRef, backend store.Backend, key store.Key) error {
	data, err := r.renderBytes(suite, override)
	if err != nil {
		return err
	}
	return backend.Put(ctx, key, data)
}

func (r *SuiteEditRenderer) renderBytes(suite *model.ExpectationSuite, override model.DataRef) ([]byte, error) {
	nb, err := r.Render(suite, override)
	if err != nil {
		return nil, err
	}
	return nb.MarshalIndent()
}

func (r *SuiteEditRenderer) addHeader(nb *Notebook, suite *model.ExpectationSuite, override model.DataRef) error {
	if err := r.addMarkdown(nb, "HEADER.md", map[string]interface{}{"SuiteName": suite.Name}); err != nil {
		return err
	}
	kwargs := "{}"
	if ref, ok := suite.LatestDataRef(override); ok {
		kwargs = pyLiteral(model.RebaseDataPath(ref, datasetRelBase))
	}
	return r.addCode(nb, "header.py", map[string]interface{}{
		"SuiteName":   suite.Name,
		"BatchKwargs": kwargs,
	})
}

func (r *SuiteEditRenderer) addTableExpectations(nb *Notebook, exps []model.Expectation) error {
	if err := r.addMarkdown(nb, "TABLE_EXPECTATIONS_HEADER.md", nil); err != nil {
		return err
	}
	if len(exps) == 0 {
		return r.addMarkdown(nb, "TABLE_EXPECTATIONS_NOT_FOUND.md", nil)
	}
	for _, exp := range exps {
		err := r.addCode(nb, "table_expectation.py", map[string]interface{}{
			"Type": exp.Type,
			"Args": callArgs(exp),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *SuiteEditRenderer) addColumnExpectations(nb *Notebook, columns []model.ColumnGroup) error {
	if err := r.addMarkdown(nb, "COLUMN_EXPECTATIONS_HEADER.md", nil); err != nil {
		return err
	}
	if len(columns) == 0 {
		return r.addMarkdown(nb, "COLUMN_EXPECTATIONS_NOT_FOUND.md", nil)
	}
	for _, group := range columns {
		if err := r.addMarkdown(nb, "COLUMN_EXPECTATIONS.md", map[string]interface{}{"Column": group.Column}); err != nil {
			return err
		}
		for _, exp := range group.Expectations {
			err := r.addCode(nb, "column_expectation.py", map[string]interface{}{
				"Type": exp.Type,
				"Args": callArgs(exp),
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *SuiteEditRenderer) addFooter(nb *Notebook, suite *model.ExpectationSuite) error {
	if err := r.addMarkdown(nb, "FOOTER.md", map[string]interface{}{"SuiteName": suite.Name}); err != nil {
		return err
	}
	return r.addCode(nb, "footer.py", map[string]interface{}{"SuiteName": suite.Name})
}

func (r *SuiteEditRenderer) addMarkdown(nb *Notebook, name string, data interface{}) error {
	text, err := r.renderTemplate(name, data)
	if err != nil {
		return err
	}
	nb.Cells = append(nb.Cells, NewMarkdownCell(text))
	return nil
}

func (r *SuiteEditRenderer) addCode(nb *Notebook, name string, data interface{}) error {
	text, err := r.renderTemplate(name, data)
	if err != nil {
		return err
	}
	nb.Cells = append(nb.Cells, NewCodeCell(text))
	return nil
}

func (r *SuiteEditRenderer) checkTemplateDir() error {
	if r.TemplateDir == "" {
		return nil
	}
	info, err := os.Stat(r.TemplateDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrTemplateDirNotFound, r.TemplateDir)
		}
		return fmt.Errorf("notebook template directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrTemplateDirNotFound, r.TemplateDir)
	}
	return nil
}

// renderTemplate executes a named template, preferring TemplateDir when a
// file of that name exists there.
func (r *SuiteEditRenderer) renderTemplate(name string, data interface{}) (string, error) {
	text, err := r.templateText(name)
	if err != nil {
		return "", err
	}
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse notebook template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render notebook template %s: %w", name, err)
	}
	return buf.String(), nil
}

func (r *SuiteEditRenderer) templateText(name string) (string, error) {
	if r.TemplateDir != "" {
		data, err := os.ReadFile(filepath.Join(r.TemplateDir, name))
		if err == nil {
			return string(data), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("read notebook template %s: %w", name, err)
		}
	}
	data, err := defaultTemplates.ReadFile(path.Join("templates", name))
	if err != nil {
		return "", fmt.Errorf("unknown notebook template %s: %w", name, err)
	}
	return string(data), nil
}
