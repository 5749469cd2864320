package config

import (
	"errors"
	"fmt"
)

// validateStore checks the structural requirements of one store block
// without constructing the backend, so checking a config never creates
// directories or opens network clients.
func validateStore(name string, cfg StoreConfig) error {
	switch cfg.Type {
	case "filesystem", "":
		if cfg.BaseDir == "" {
			return fmt.Errorf("store %q: filesystem store needs base_dir", name)
		}
	case "s3", "gcs":
		if cfg.Bucket == "" {
			return fmt.Errorf("store %q: %s store needs bucket", name, cfg.Type)
		}
	case "database":
		if cfg.DSN == "" {
			return fmt.Errorf("store %q: database store needs dsn", name)
		}
	case "memory":
	case "git", "http":
		if cfg.URL == "" {
			return fmt.Errorf("store %q: %s store needs url", name, cfg.Type)
		}
	default:
		return fmt.Errorf("store %q: %w %q (known types: %v)", name, ErrUnknownStoreType, cfg.Type, storeTypes)
	}
	return nil
}

// Check validates the whole configuration structurally: every store block
// carries its required fields, every store reference resolves, and every
// site is buildable. All problems are reported together so one check run
// fixes a config instead of one field per run.
func (c *Config) Check() error {
	var problems []error

	for name, cfg := range c.Stores {
		if name == "" {
			problems = append(problems, errors.New("stores block contains an unnamed store"))
			continue
		}
		if err := validateStore(name, cfg); err != nil {
			problems = append(problems, err)
		}
	}

	for _, ref := range []struct{ field, name string }{
		{"expectations_store", c.ExpectationsStore},
		{"validations_store", c.ValidationsStore},
	} {
		if ref.name == "" {
			continue
		}
		if _, ok := c.Stores[ref.name]; !ok {
			problems = append(problems, fmt.Errorf("%s references unknown store %q", ref.field, ref.name))
		}
	}

	for name, site := range c.Sites {
		if name == "" {
			problems = append(problems, errors.New("sites block contains an unnamed site"))
			continue
		}
		if site.Store == nil {
			continue
		}
		if err := validateStore(name, *site.Store); err != nil {
			problems = append(problems, fmt.Errorf("site %q: %w", name, err))
			continue
		}
		switch site.Store.Type {
		case "git", "http":
			problems = append(problems, fmt.Errorf("site %q: %s stores are read-only and cannot be publish targets", name, site.Store.Type))
		}
	}

	if c.Server.RefreshInterval < 0 {
		problems = append(problems, fmt.Errorf("server refresh_interval %s is negative", c.Server.RefreshInterval))
	}

	return errors.Join(problems...)
}
