package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/sardine-ai/go-data-docs/store"
)

// ErrUnknownStoreType is returned when a store's type names no backend
// implementation.
var ErrUnknownStoreType = errors.New("unknown store type")

// storeTypes lists the recognized type values, in the order error messages
// report them.
var storeTypes = []string{"filesystem", "s3", "gcs", "database", "memory", "git", "http"}

// NewBackend builds the store backend a configuration block selects. This is
// the switch the project file drives: changing a store's type re-homes its
// artifacts without touching any calling code. Relative paths resolve
// against baseDir.
func NewBackend(name string, cfg StoreConfig, baseDir string) (store.Backend, error) {
	switch cfg.Type {
	case "filesystem", "":
		dir := cfg.BaseDir
		if dir == "" {
			return nil, fmt.Errorf("store %q: filesystem store needs base_dir", name)
		}
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(baseDir, dir)
		}
		return store.NewFilesystemBackend(name, dir)
	case "s3":
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("store %q: s3 store needs bucket", name)
		}
		return &store.S3Backend{
			Name:      name,
			Bucket:    cfg.Bucket,
			Prefix:    cfg.Prefix,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			PathStyle: cfg.PathStyle,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
		}, nil
	case "gcs":
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("store %q: gcs store needs bucket", name)
		}
		return &store.GCSBackend{
			Name:      name,
			Bucket:    cfg.Bucket,
			Prefix:    cfg.Prefix,
			Anonymous: cfg.Anonymous,
		}, nil
	case "database":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("store %q: database store needs dsn", name)
		}
		return &store.DatabaseBackend{Name: name, DSN: cfg.DSN}, nil
	case "memory":
		return store.NewMemoryBackend(name), nil
	case "git":
		if cfg.URL == "" {
			return nil, fmt.Errorf("store %q: git store needs url", name)
		}
		return store.NewGitBackend(name, cfg.URL, cfg.Branch, cfg.Path)
	case "http":
		if cfg.URL == "" {
			return nil, fmt.Errorf("store %q: http store needs url", name)
		}
		return store.NewHTTPBackend(name, cfg.URL, cfg.APIKey)
	default:
		return nil, fmt.Errorf("store %q: %w %q (known types: %v)", name, ErrUnknownStoreType, cfg.Type, storeTypes)
	}
}

// namedBackend resolves a store by its name in the stores block.
func (c *Config) namedBackend(name string) (store.Backend, error) {
	cfg, ok := c.Stores[name]
	if !ok {
		return nil, fmt.Errorf("no store named %q in configuration", name)
	}
	return NewBackend(name, cfg, c.baseDir)
}

// ExpectationsBackend returns the store holding expectation suites. Without
// an expectations_store entry the project falls back to an expectations/
// directory next to the configuration file.
func (c *Config) ExpectationsBackend() (store.Backend, error) {
	if c.ExpectationsStore != "" {
		return c.namedBackend(c.ExpectationsStore)
	}
	return store.NewFilesystemBackend("expectations", filepath.Join(c.baseDir, "expectations"))
}

// ValidationsBackend returns the store holding validation results, falling
// back to a validations/ directory next to the configuration file.
func (c *Config) ValidationsBackend() (store.Backend, error) {
	if c.ValidationsStore != "" {
		return c.namedBackend(c.ValidationsStore)
	}
	return store.NewFilesystemBackend("validations", filepath.Join(c.baseDir, "validations"))
}

// SiteBackend returns the publish target for the named site. A site without
// a store block publishes to data_docs/<site> next to the configuration
// file, so a fresh project renders locally with no configuration at all.
func (c *Config) SiteBackend(name string) (store.Backend, error) {
	site, err := c.Site(name)
	if err != nil {
		return nil, err
	}
	if site.Store == nil {
		return store.NewFilesystemBackend(name, filepath.Join(c.baseDir, "data_docs", name))
	}
	return NewBackend(name, *site.Store, c.baseDir)
}
