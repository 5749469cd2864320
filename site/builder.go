// Package site builds Data Docs sites: it reads suites and validation
// results out of their stores, renders them to static HTML, and writes the
// pages through each site's own store backend. The same build works against
// a local directory, S3, GCS, or any other backend the configuration
// selects.
package site

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/sardine-ai/go-data-docs/model"
	"github.com/sardine-ai/go-data-docs/render"
	"github.com/sardine-ai/go-data-docs/store"
)

// ManifestPath is where each build records what it wrote.
const ManifestPath = "manifest.json"

// buildConcurrency bounds the page-render fan-out per site.
const buildConcurrency = 8

// Site is one configured Data Docs site and its publish target.
type Site struct {
	Name      string        // site name from configuration
	Title     string        // heading on rendered pages; the name when empty
	ShowHowTo bool          // render edit hints on pages
	Store     store.Backend // publish target
}

// IndexURL returns the externally reachable URL of the site's index page,
// e.g. a file:// path locally or the public object URL on cloud stores.
func (s Site) IndexURL() *url.URL {
	return s.Store.GetURL(store.Key{render.IndexPath})
}

// Manifest records one build: which pages it wrote and under which build ID.
// It is stored in the site itself so operators can see what a deployed site
// contains.
type Manifest struct {
	Site    string    `json:"site"`
	BuildID string    `json:"build_id"`
	BuiltAt time.Time `json:"built_at"`
	Pages   []string  `json:"pages"`
}

// Builder renders all configured sites from the expectations and validations
// stores.
type Builder struct {
	Expectations store.Backend // suites are read from here
	Validations  store.Backend // validation results are read from here
	Sites        []Site        // sites to build, in configuration order
}

// Site returns the named site.
func (b *Builder) Site(name string) (Site, error) {
	for _, site := range b.Sites {
		if site.Name == name {
			return site, nil
		}
	}
	return Site{}, fmt.Errorf("no site named %q", name)
}

// artifacts is one consistent read of both stores, shared by every site in a
// build.
type artifacts struct {
	suites  []*model.ExpectationSuite
	results []*model.ValidationResult
}

// load reads every suite and validation result. An unreadable artifact fails
// the whole load: publishing a site that silently dropped a suite is worse
// than failing the build.
func (b *Builder) load(ctx context.Context) (*artifacts, error) {
	arts := &artifacts{}

	keys, err := b.Expectations.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list expectations store: %w", err)
	}
	for _, key := range keys {
		if !strings.HasSuffix(key.String(), ".json") {
			continue
		}
		data, err := b.Expectations.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("read suite %s: %w", key, err)
		}
		suite, err := model.ParseSuite(data)
		if err != nil {
			return nil, fmt.Errorf("read suite %s: %w", key, err)
		}
		arts.suites = append(arts.suites, suite)
	}
	sort.Slice(arts.suites, func(i, j int) bool { return arts.suites[i].Name < arts.suites[j].Name })

	keys, err = b.Validations.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list validations store: %w", err)
	}
	for _, key := range keys {
		if !strings.HasSuffix(key.String(), ".json") {
			continue
		}
		data, err := b.Validations.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("read validation result %s: %w", key, err)
		}
		result, err := model.ParseValidationResult(data)
		if err != nil {
			return nil, fmt.Errorf("read validation result %s: %w", key, err)
		}
		arts.results = append(arts.results, result)
	}
	// Newest runs first, the order the index presents them in.
	sort.Slice(arts.results, func(i, j int) bool {
		return arts.results[i].RunID.String() > arts.results[j].RunID.String()
	})

	return arts, nil
}

// Build renders and publishes every configured site.
func (b *Builder) Build(ctx context.Context) ([]*Manifest, error) {
	arts, err := b.load(ctx)
	if err != nil {
		return nil, err
	}
	manifests := make([]*Manifest, 0, len(b.Sites))
	for _, site := range b.Sites {
		manifest, err := b.buildSite(ctx, site, arts)
		if err != nil {
			return nil, fmt.Errorf("build site %q: %w", site.Name, err)
		}
		manifests = append(manifests, manifest)
	}
	return manifests, nil
}

// BuildSite renders and publishes one site.
func (b *Builder) BuildSite(ctx context.Context, name string) (*Manifest, error) {
	site, err := b.Site(name)
	if err != nil {
		return nil, err
	}
	arts, err := b.load(ctx)
	if err != nil {
		return nil, err
	}
	manifest, err := b.buildSite(ctx, site, arts)
	if err != nil {
		return nil, fmt.Errorf("build site %q: %w", name, err)
	}
	return manifest, nil
}

// page is one render job: where the page goes and how to produce it.
type page struct {
	path   string
	render func() ([]byte, error)
}

func (b *Builder) buildSite(ctx context.Context, site Site, arts *artifacts) (*Manifest, error) {
	title := site.Title
	if title == "" {
		title = site.Name
	}
	renderer := &render.Renderer{
		SiteTitle: title,
		BuiltAt:   time.Now().UTC(),
		ShowHowTo: site.ShowHowTo,
	}

	var indexSuites []render.IndexSuite
	var indexRuns []render.IndexRun
	pages := make([]page, 0, len(arts.suites)+len(arts.results)+2)

	for _, suite := range arts.suites {
		suite := suite
		pages = append(pages, page{
			path:   render.SuitePath(suite.Name),
			render: func() ([]byte, error) { return renderer.SuitePage(suite) },
		})
		indexSuites = append(indexSuites, render.IndexSuite{
			Name:         suite.Name,
			Expectations: len(suite.Expectations),
			Href:         render.SuitePath(suite.Name),
		})
	}
	for _, result := range arts.results {
		result := result
		pages = append(pages, page{
			path:   render.ValidationPath(result.SuiteName, result.RunID.String()),
			render: func() ([]byte, error) { return renderer.ValidationPage(result) },
		})
		indexRuns = append(indexRuns, render.IndexRun{
			Suite:   result.SuiteName,
			RunName: result.RunID.Name,
			RunTime: result.RunID.Time,
			Success: result.Success,
			Percent: result.Statistics.SuccessPercent,
			Href:    render.ValidationPath(result.SuiteName, result.RunID.String()),
		})
	}
	pages = append(pages,
		page{
			path:   render.IndexPath,
			render: func() ([]byte, error) { return renderer.IndexPage(indexSuites, indexRuns) },
		},
		page{
			path:   render.StylePath,
			render: func() ([]byte, error) { return render.StyleSheet(), nil },
		},
	)

	// Pages are written individually, never via clean-then-write: a failed
	// build leaves the previously published site readable.
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(buildConcurrency)
	for _, p := range pages {
		p := p
		key, err := store.ParseKey(p.path)
		if err != nil {
			return nil, fmt.Errorf("page %s: %w", p.path, err)
		}
		group.Go(func() error {
			data, err := p.render()
			if err != nil {
				return fmt.Errorf("page %s: %w", p.path, err)
			}
			if err := site.Store.Put(groupCtx, key, data); err != nil {
				return fmt.Errorf("write page %s: %w", p.path, err)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	manifest := &Manifest{
		Site:    site.Name,
		BuildID: uuid.NewString(),
		BuiltAt: renderer.BuiltAt,
		Pages:   make([]string, 0, len(pages)),
	}
	for _, p := range pages {
		manifest.Pages = append(manifest.Pages, p.path)
	}
	sort.Strings(manifest.Pages)

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := site.Store.Put(ctx, store.Key{ManifestPath}, data); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"site":  site.Name,
		"pages": len(manifest.Pages),
		"build": manifest.BuildID,
	}).Info("site built")
	return manifest, nil
}

// Clean removes everything the named site's store contains. Only that
// store is touched; suites and validation results stay where they are.
func (b *Builder) Clean(ctx context.Context, name string) error {
	site, err := b.Site(name)
	if err != nil {
		return err
	}
	keys, err := site.Store.List(ctx, nil)
	if err != nil {
		return fmt.Errorf("list site %q: %w", name, err)
	}
	for _, key := range keys {
		if err := site.Store.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	logrus.WithFields(logrus.Fields{"site": name, "objects": len(keys)}).Info("site cleaned")
	return nil
}
