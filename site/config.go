package site

import (
	"fmt"

	"github.com/sardine-ai/go-data-docs/config"
)

// FromConfig wires a Builder from the project configuration: the
// expectations and validations stores plus one publish target per
// configured site.
func FromConfig(cfg *config.Config) (*Builder, error) {
	expectations, err := cfg.ExpectationsBackend()
	if err != nil {
		return nil, fmt.Errorf("expectations store: %w", err)
	}
	validations, err := cfg.ValidationsBackend()
	if err != nil {
		return nil, fmt.Errorf("validations store: %w", err)
	}

	builder := &Builder{Expectations: expectations, Validations: validations}
	for _, name := range cfg.SiteNames() {
		siteCfg, err := cfg.Site(name)
		if err != nil {
			return nil, err
		}
		backend, err := cfg.SiteBackend(name)
		if err != nil {
			return nil, fmt.Errorf("site %q store: %w", name, err)
		}
		builder.Sites = append(builder.Sites, Site{
			Name:      name,
			Title:     siteCfg.Title,
			ShowHowTo: siteCfg.HowToButtons(),
			Store:     backend,
		})
	}
	return builder, nil
}
