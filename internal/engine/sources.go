package engine

// sources.go - SQL and file backed tables

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapsim/internal/adapter"
	"github.com/leapstack-labs/leapsim/internal/config"
	"github.com/leapstack-labs/leapsim/internal/sim"
	"github.com/leapstack-labs/leapsim/pkg/frame"
)

// registerSource registers a configured source. Cached sources are read
// once on first use; uncached sources query on every read.
func (e *Engine) registerSource(ctx context.Context, src config.SourceConfig) error {
	// sources are read long after Load returns
	ctx = context.WithoutCancel(ctx)

	fn := sim.TableFunc(func(sim.Deps) (*frame.Frame, error) {
		a, err := e.adapterFor(ctx, src)
		if err != nil {
			return nil, err
		}
		e.logger.Debug("querying source", "table", src.Table, "adapter", src.Adapter)
		f, err := adapter.QueryFrame(ctx, a, src.Query, src.Index)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.Table, err)
		}
		return f, nil
	})

	var err error
	if src.Cached() {
		err = e.sess.AddTableSource(src.Table, fn)
	} else {
		err = e.sess.AddTable(src.Table, fn)
	}
	if err != nil {
		return fmt.Errorf("source %s: %w", src.Table, err)
	}
	return nil
}

// adapterFor returns a connected adapter for src, sharing one connection
// between sources with the same adapter, DSN and options.
func (e *Engine) adapterFor(ctx context.Context, src config.SourceConfig) (adapter.Adapter, error) {
	key := connectionKey(src)

	e.adaptersMu.Lock()
	defer e.adaptersMu.Unlock()

	if a, ok := e.adapters[key]; ok {
		return a, nil
	}

	cfg := adapter.Config{Type: src.Adapter, DSN: src.DSN, Options: src.Options}
	a, err := adapter.NewAdapter(cfg, e.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create adapter: %w", err)
	}
	if err := a.Connect(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to connect %s: %w", src.Adapter, err)
	}

	e.adapters[key] = a
	e.logger.Debug("adapter connected", "adapter", src.Adapter)
	return a, nil
}

func connectionKey(src config.SourceConfig) string {
	var b strings.Builder
	b.WriteString(src.Adapter)
	b.WriteString("|")
	b.WriteString(src.DSN)

	keys := make([]string, 0, len(src.Options))
	for k := range src.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "|%s=%s", k, src.Options[k])
	}
	return b.String()
}
