package providers

import (
	"github.com/anomshot/anomshot/internal/config"
	"github.com/anomshot/anomshot/pkg/generation"
)

// NewRegistry returns a registry with every built-in provider type.
func NewRegistry() *generation.Registry {
	r := generation.NewRegistry()
	r.RegisterFactory(config.TypeFlux, func(cfg config.Provider) (generation.Client, error) {
		return NewFluxClient(cfg)
	})
	r.RegisterFactory(config.TypeDashScope, func(cfg config.Provider) (generation.Client, error) {
		return NewDashScopeClient(cfg)
	})
	r.RegisterFactory(config.TypeLocal, func(cfg config.Provider) (generation.Client, error) {
		return NewLocalClient(cfg)
	})
	return r
}
