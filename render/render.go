// Package render turns suites and validation results into the static HTML
// pages that make up a Data Docs site. Pages are standalone: all links are
// relative and the stylesheet ships alongside them, so a rendered site works
// from a local directory, an S3 bucket, or any other store unchanged.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/sardine-ai/go-data-docs/model"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed assets/style.css
var styleCSS []byte

// Page locations inside a site, shared by hrefs in rendered pages and the
// store keys the builder writes to.
const (
	IndexPath = "index.html"
	StylePath = "static/style.css"
)

// SuitePath returns the site-relative location of a suite page.
func SuitePath(suiteName string) string {
	return "expectations/" + suiteName + ".html"
}

// ValidationPath returns the site-relative location of a validation page.
// Run identifiers sort chronologically, so store listings double as run
// history.
func ValidationPath(suiteName, runID string) string {
	return "validations/" + suiteName + "/" + runID + ".html"
}

var funcs = template.FuncMap{
	"stamp": func(t time.Time) string {
		return t.UTC().Format("2006-01-02 15:04:05 UTC")
	},
	"percent": func(v float64) string {
		return fmt.Sprintf("%.1f%%", v)
	},
	"kwargs": kwargsString,
	"observed": func(v interface{}) string {
		if v == nil {
			return ""
		}
		return fmt.Sprintf("%v", v)
	},
}

// layout carries the shared document shell; each page set clones it and adds
// its own content block. Parsing happens at init so a broken template fails
// the build, not a request.
var layout = template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/layout.html"))

func mustPage(file string) *template.Template {
	clone := template.Must(layout.Clone())
	return template.Must(clone.ParseFS(templateFS, "templates/"+file))
}

var (
	indexTemplate      = mustPage("index.html")
	suiteTemplate      = mustPage("suite.html")
	validationTemplate = mustPage("validation.html")
)

// kwargsString renders expectation kwargs for display, column first and the
// rest in sorted order, so pages are stable across builds.
func kwargsString(kwargs map[string]interface{}) string {
	var buf bytes.Buffer
	for i, k := range model.SortedKwargKeys(kwargs) {
		if i > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(&buf, "%s=%v", k, kwargs[k])
	}
	return buf.String()
}

// page carries the fields every template expects from its data.
type page struct {
	Title     string    // page heading and document title
	SiteTitle string    // site heading shown in the navigation
	Root      string    // relative path from this page back to the site root
	BuiltAt   time.Time // build timestamp shown in the footer
	ShowHowTo bool      // render edit hints
}

// IndexSuite is one suite row on the index page.
type IndexSuite struct {
	Name         string
	Expectations int
	Href         string
}

// IndexRun is one validation row on the index page.
type IndexRun struct {
	Suite   string
	RunName string
	RunTime time.Time
	Success bool
	Percent float64
	Href    string
}

type indexData struct {
	page
	Suites []IndexSuite
	Runs   []IndexRun
}

type suiteData struct {
	page
	Suite   *model.ExpectationSuite
	Grouped model.GroupedExpectations
}

type validationData struct {
	page
	Result *model.ValidationResult
}

// Renderer renders the pages of one site.
type Renderer struct {
	SiteTitle string    // site heading; "Data Docs" when empty
	BuiltAt   time.Time // stamped into every page of a build
	ShowHowTo bool      // render hints for editing suites
}

func (r *Renderer) page(title, root string) page {
	siteTitle := r.SiteTitle
	if siteTitle == "" {
		siteTitle = "Data Docs"
	}
	builtAt := r.BuiltAt
	if builtAt.IsZero() {
		builtAt = time.Now().UTC()
	}
	return page{Title: title, SiteTitle: siteTitle, Root: root, BuiltAt: builtAt, ShowHowTo: r.ShowHowTo}
}

func execute(t *template.Template, data interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return buf.Bytes(), nil
}

// IndexPage renders the site index linking every suite and validation page.
func (r *Renderer) IndexPage(suites []IndexSuite, runs []IndexRun) ([]byte, error) {
	data := indexData{page: r.page("Overview", "."), Suites: suites, Runs: runs}
	return execute(indexTemplate, data)
}

// SuitePage renders one expectation suite: table-level expectations first,
// then one section per column in first-seen order.
func (r *Renderer) SuitePage(suite *model.ExpectationSuite) ([]byte, error) {
	data := suiteData{
		page:    r.page(suite.Name, ".."),
		Suite:   suite,
		Grouped: suite.GroupByColumn(),
	}
	return execute(suiteTemplate, data)
}

// ValidationPage renders one validation result with its statistics summary
// and per-expectation outcomes.
func (r *Renderer) ValidationPage(result *model.ValidationResult) ([]byte, error) {
	data := validationData{
		page:   r.page(result.SuiteName+" - "+result.RunID.String(), "../.."),
		Result: result,
	}
	return execute(validationTemplate, data)
}

// StyleSheet returns the shared stylesheet published with every site.
func StyleSheet() []byte {
	return styleCSS
}
