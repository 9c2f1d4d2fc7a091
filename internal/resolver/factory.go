package resolver

import (
	"fmt"

	"planproof/internal/config"
	"planproof/internal/port"
)

// ProviderFactory is a function that creates a FieldResolver from a provider config.
type ProviderFactory func(cfg *config.ResolverProviderConfig) (port.FieldResolver, error)

// registry of resolver provider factories, populated explicitly via RegisterProvider.
var providers = map[string]ProviderFactory{}

// RegisterProvider registers a resolver provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// NewResolver creates a FieldResolver from a provider config using the registered factory.
func NewResolver(cfg *config.ResolverProviderConfig) (port.FieldResolver, error) {
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown resolver provider: %s", cfg.Provider)
	}
	return factory(cfg)
}
