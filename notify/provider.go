package notify

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kbukum/serviceclient/logger"
)

// Target identifies the registry and the service a subscription is for.
type Target struct {
	Host        string
	Port        int
	ServiceName string
	// CompanyCode is sent to registries that scope events per tenant.
	CompanyCode string
}

// ProviderFactory creates a Subscriber for a Target.
type ProviderFactory func(cfg Config, target Target, log *logger.Logger) (Subscriber, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]ProviderFactory{
		ProviderNone: func(Config, Target, *logger.Logger) (Subscriber, error) {
			return NewManual(), nil
		},
	}
)

// RegisterProviderFactory registers a backend under name. Backend packages
// call this from init.
func RegisterProviderFactory(name string, f ProviderFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// Providers returns the registered provider names.
func Providers() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// New creates the Subscriber selected by cfg.Provider.
func New(cfg Config, target Target, log *logger.Logger) (Subscriber, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	factoriesMu.RLock()
	f, ok := factories[cfg.Provider]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("notify: provider %q not registered (missing import?)", cfg.Provider)
	}
	if log == nil {
		log = logger.Nop()
	}
	return f(cfg, target, log.WithComponent("notify."+cfg.Provider))
}
