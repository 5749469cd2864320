// Package config loads the project configuration that wires stores and Data
// Docs sites together. The file is YAML; decoding is strict, so a typoed key
// fails the load instead of silently configuring nothing. ${VAR} references
// are substituted from the environment before decoding, which keeps
// credentials out of the file itself.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for the project configuration when no
// -config flag is given.
const DefaultPath = "datadocs.yaml"

// StoreConfig selects and parameterizes one store backend. Type picks the
// implementation; the remaining fields apply per type and are checked by
// Check.
type StoreConfig struct {
	Type      string `yaml:"type"`                 // filesystem, s3, gcs, database, memory, git or http
	BaseDir   string `yaml:"base_dir,omitempty"`   // filesystem: directory keys resolve under
	Bucket    string `yaml:"bucket,omitempty"`     // s3, gcs: bucket name
	Prefix    string `yaml:"prefix,omitempty"`     // s3, gcs: key prefix inside the bucket
	Region    string `yaml:"region,omitempty"`     // s3: AWS region
	Endpoint  string `yaml:"endpoint,omitempty"`   // s3: custom endpoint for S3-compatible services
	PathStyle bool   `yaml:"path_style,omitempty"` // s3: force path-style addressing
	AccessKey string `yaml:"access_key,omitempty"` // s3: static credential pair, usually ${VAR} references;
	SecretKey string `yaml:"secret_key,omitempty"` // the default AWS chain is used when empty
	Anonymous bool   `yaml:"anonymous,omitempty"`  // gcs: skip authentication (public buckets, emulators)
	DSN       string `yaml:"dsn,omitempty"`        // database: source name, e.g. a sqlite file path
	URL       string `yaml:"url,omitempty"`        // git, http: location objects are fetched from
	Branch    string `yaml:"branch,omitempty"`     // git: branch to track; the remote default when empty
	Path      string `yaml:"path,omitempty"`       // git: directory inside the repository
	APIKey    string `yaml:"api_key,omitempty"`    // http: sent as the X-API-Key header
}

// SiteConfig describes one Data Docs site: where it is published and how it
// presents itself.
type SiteConfig struct {
	Name             string       `yaml:"-"`                             // map key in the sites block
	Title            string       `yaml:"title,omitempty"`               // heading shown on the site index
	ShowHowToButtons *bool        `yaml:"show_how_to_buttons,omitempty"` // render edit hints on pages; defaults to true
	Store            *StoreConfig `yaml:"store,omitempty"`               // publish target; local filesystem when omitted
}

// HowToButtons reports whether pages should carry edit hints.
func (s *SiteConfig) HowToButtons() bool {
	return s.ShowHowToButtons == nil || *s.ShowHowToButtons
}

// ServerConfig carries the docs server settings. Every field can be
// overridden through the environment, which is how deployments inject the
// listen address and auth key without editing the project file.
type ServerConfig struct {
	Addr            string        `yaml:"addr,omitempty" env:"DATADOCS_ADDR"`                         // listen address
	AuthKey         string        `yaml:"auth_key,omitempty" env:"DATADOCS_AUTH_KEY"`                 // X-API-KEY required on site pages when set
	RefreshInterval time.Duration `yaml:"refresh_interval,omitempty" env:"DATADOCS_REFRESH_INTERVAL"` // rebuild period
	Watch           bool          `yaml:"watch,omitempty" env:"DATADOCS_WATCH"`                       // rebuild on local store changes
}

// Config is the decoded project configuration.
type Config struct {
	Stores            map[string]StoreConfig `yaml:"stores,omitempty"`             // named stores shared across the project
	ExpectationsStore string                 `yaml:"expectations_store,omitempty"` // name of the store holding suites
	ValidationsStore  string                 `yaml:"validations_store,omitempty"`  // name of the store holding validation results
	Sites             map[string]*SiteConfig `yaml:"sites,omitempty"`              // Data Docs sites to build
	Server            ServerConfig           `yaml:"server,omitempty"`             // docs server settings

	baseDir string // directory relative paths resolve against
}

// envPattern matches ${NAME} references. Bare $NAME is left alone so YAML
// values containing dollar signs survive.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv substitutes ${NAME} references from the environment. Unresolved
// references are collected and reported together so a misconfigured
// deployment fails with the full list instead of one variable at a time.
func expandEnv(data []byte) ([]byte, error) {
	var missing []string
	out := envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := string(envPattern.FindSubmatch(match)[1])
		value, ok := os.LookupEnv(name)
		if !ok {
			missing = append(missing, name)
			return match
		}
		return []byte(value)
	})
	if len(missing) > 0 {
		return nil, fmt.Errorf("unresolved environment variables: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

// Load decodes a configuration document. Unknown keys are errors: the file
// drives which backend implementation handles every artifact, so a silently
// ignored key would publish docs somewhere unintended.
func Load(data []byte) (*Config, error) {
	expanded, err := expandEnv(data)
	if err != nil {
		return nil, err
	}

	cfg := &Config{baseDir: "."}
	decoder := yaml.NewDecoder(bytes.NewReader(expanded))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	for name, site := range cfg.Sites {
		if site == nil {
			site = &SiteConfig{}
			cfg.Sites[name] = site
		}
		site.Name = name
	}
	if len(cfg.Sites) == 0 {
		// A project without a sites block still gets docs, rendered into
		// data_docs/local_site next to the configuration.
		cfg.Sites = map[string]*SiteConfig{"local_site": {Name: "local_site"}}
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.RefreshInterval == 0 {
		cfg.Server.RefreshInterval = 5 * time.Minute
	}
	if err := env.Parse(&cfg.Server); err != nil {
		return nil, fmt.Errorf("parse env overrides: %w", err)
	}
	return cfg, nil
}

// LoadFile reads and decodes the configuration at path. Relative store paths
// in the file resolve against the file's directory, so a project can be
// built from anywhere.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	cfg.baseDir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// BaseDir returns the directory relative paths resolve against: the config
// file's directory, or "." for configs loaded from bytes.
func (c *Config) BaseDir() string {
	return c.baseDir
}

// SiteNames returns the configured site names, sorted for stable listings.
func (c *Config) SiteNames() []string {
	names := make([]string, 0, len(c.Sites))
	for name := range c.Sites {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Site returns the named site configuration.
func (c *Config) Site(name string) (*SiteConfig, error) {
	site, ok := c.Sites[name]
	if !ok {
		return nil, fmt.Errorf("no site named %q in configuration", name)
	}
	return site, nil
}
