// Package engine runs leapsim scenarios.
// It wires a loaded scenario to a simulation session: configured sources and
// injectables are registered, scripts are executed, models are run per year
// with run history recorded, and the configured tables are exported.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/leapstack-labs/leapsim/internal/adapter"
	"github.com/leapstack-labs/leapsim/internal/config"
	"github.com/leapstack-labs/leapsim/internal/script"
	"github.com/leapstack-labs/leapsim/internal/sim"
	"github.com/leapstack-labs/leapsim/internal/state"
)

// Engine orchestrates one scenario.
type Engine struct {
	scenario *config.Scenario
	logger   *slog.Logger

	sess   *sim.Session
	loader *script.Loader
	store  state.Store
	loaded bool

	// Source adapters (lazy initialized, keyed by connection)
	adapters   map[string]adapter.Adapter
	adaptersMu sync.Mutex
}

// Config holds engine configuration.
type Config struct {
	// Scenario is the loaded scenario to run
	Scenario *config.Scenario
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
	// Store overrides the run history store. When nil, a SQLite store is
	// opened at Scenario.StatePath.
	Store state.Store
	// NoHistory disables run history entirely.
	NoHistory bool
}

// New creates an engine. Sources connect lazily on first read.
func New(cfg Config) (*Engine, error) {
	if cfg.Scenario == nil {
		return nil, errors.New("engine: scenario is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	logger.Debug("initializing engine", "scenario", cfg.Scenario.Name, "scripts_dir", cfg.Scenario.ScriptsDir)

	store := cfg.Store
	if store == nil && !cfg.NoHistory {
		var err error
		if store, err = openStore(cfg.Scenario.StatePath, logger); err != nil {
			return nil, err
		}
	}

	opts := []sim.Option{sim.WithLogger(logger)}
	if store != nil {
		opts = append(opts, sim.WithRecorder(state.NewRecorder(store)))
	}
	sess := sim.NewSession(opts...)

	return &Engine{
		scenario: cfg.Scenario,
		logger:   logger,
		sess:     sess,
		loader:   script.NewLoader(sess, logger),
		store:    store,
		adapters: make(map[string]adapter.Adapter),
	}, nil
}

func openStore(path string, logger *slog.Logger) (state.Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store := state.NewSQLiteStore(logger)
	if err := store.Open(path); err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate state store: %w", err)
	}
	return store, nil
}

// Load registers the scenario's injectables and sources, then executes the
// scripts directory. Scripts run last so they can replace configured values.
// Calling Load again is a no-op.
func (e *Engine) Load(ctx context.Context) error {
	if e.loaded {
		return nil
	}

	for _, name := range slices.Sorted(maps.Keys(e.scenario.Injectables)) {
		if err := e.sess.AddInjectable(name, e.scenario.Injectables[name], false); err != nil {
			return fmt.Errorf("injectable %s: %w", name, err)
		}
	}

	for _, src := range e.scenario.Sources {
		if err := e.registerSource(ctx, src); err != nil {
			return err
		}
	}

	if err := e.loadScripts(); err != nil {
		return err
	}

	e.loaded = true
	e.logger.Debug("scenario loaded",
		"tables", len(e.sess.ListTables()),
		"models", len(e.sess.ListModels()),
		"scripts", len(e.loader.Files()))
	return nil
}

func (e *Engine) loadScripts() error {
	dir := e.scenario.ScriptsDir
	if dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			e.logger.Warn("scripts directory not found", "scripts_dir", dir)
			return nil
		}
		return fmt.Errorf("failed to stat scripts directory: %w", err)
	}
	return e.loader.LoadDir(dir)
}

// Close releases all resources.
func (e *Engine) Close() error {
	e.logger.Debug("closing engine")

	var errs []error
	e.adaptersMu.Lock()
	for key, a := range e.adapters {
		if err := a.Close(); err != nil {
			errs = append(errs, fmt.Errorf("adapter %s: %w", key, err))
		}
	}
	e.adapters = map[string]adapter.Adapter{}
	e.adaptersMu.Unlock()

	if err := e.sess.Close(); err != nil {
		errs = append(errs, err)
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// --- Getters (public accessors) ---

// Session returns the simulation session.
func (e *Engine) Session() *sim.Session {
	return e.sess
}

// Scenario returns the scenario the engine was created with.
func (e *Engine) Scenario() *config.Scenario {
	return e.scenario
}

// Store returns the run history store, or nil when history is disabled.
func (e *Engine) Store() state.Store {
	return e.store
}

// Scripts returns the script files executed by Load.
func (e *Engine) Scripts() []string {
	return e.loader.Files()
}
