package llm

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/framegate/framegate/internal/domain/service"
)

// ProviderConfig holds the upstream connection settings.
type ProviderConfig struct {
	Type    string // "openai" (default) | "scripted"
	BaseURL string // PROVIDER_BASE_URL
	APIKey  string // PROVIDER_API_KEY
	Model   string // MODEL_ID
}

// --- Provider Factory Registry ---
// Providers register themselves via init() in their own package.
// Adding a new provider type = implement service.Provider +
// RegisterFactory("type", New).

// ProviderFactory creates a provider from config.
type ProviderFactory func(cfg ProviderConfig, logger *zap.Logger) service.Provider

var (
	factoryMu sync.RWMutex
	factories = map[string]ProviderFactory{}
)

// RegisterFactory registers a provider factory for the given type name.
func RegisterFactory(typeName string, factory ProviderFactory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	factories[typeName] = factory
}

// CreateProvider creates a provider using the registered factory for
// cfg.Type. An empty Type defaults to "openai".
func CreateProvider(cfg ProviderConfig, logger *zap.Logger) (service.Provider, error) {
	t := cfg.Type
	if t == "" {
		t = "openai"
	}

	factoryMu.RLock()
	factory, ok := factories[t]
	factoryMu.RUnlock()

	if !ok {
		factoryMu.RLock()
		available := make([]string, 0, len(factories))
		for k := range factories {
			available = append(available, k)
		}
		factoryMu.RUnlock()
		return nil, fmt.Errorf("unknown provider type %q (available: %v)", t, available)
	}

	return factory(cfg, logger), nil
}
