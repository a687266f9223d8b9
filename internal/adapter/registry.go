package adapter

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/leapstack-labs/leapsim/internal/registry"
)

// Factory creates an unconnected adapter.
type Factory func(*slog.Logger) Adapter

var factories = registry.New[string, Factory]()

// Register adds an adapter factory under name, replacing any previous one.
// Adapters register themselves from init.
func Register(name string, factory Factory) {
	factories.Put(name, factory)
}

// Get retrieves an adapter factory by name.
func Get(name string) (Factory, bool) {
	return factories.Get(name)
}

// NewAdapter creates a new adapter instance based on config type.
// A nil logger uses the discard logger.
func NewAdapter(cfg Config, logger *slog.Logger) (Adapter, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("adapter type not specified")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{
			Type:      cfg.Type,
			Available: ListAdapters(),
		}
	}
	return factory(logger), nil
}

// ListAdapters returns the registered adapter names, sorted.
func ListAdapters() []string {
	names := factories.Keys()
	slices.Sort(names)
	return names
}

// IsRegistered reports whether an adapter named name exists.
func IsRegistered(name string) bool {
	return factories.Has(name)
}

// UnknownAdapterError is returned when an unknown adapter type is requested.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown adapter type %q (available: %v)", e.Type, e.Available)
}
