package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapsim/internal/adapter"
)

// Validate checks the scenario for settings that cannot run.
func (s *Scenario) Validate() error {
	if _, err := ParseLogLevel(s.LogLevel); err != nil {
		return err
	}
	switch s.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q (want text or json)", s.LogFormat)
	}
	switch s.Output {
	case "auto", "text", "markdown", "json":
	default:
		return fmt.Errorf("unknown output %q (want auto, text, markdown or json)", s.Output)
	}

	seen := make(map[string]bool, len(s.Sources))
	for i, src := range s.Sources {
		if err := src.validate(); err != nil {
			return fmt.Errorf("sources[%d]: %w", i, err)
		}
		if seen[src.Table] {
			return fmt.Errorf("sources[%d]: duplicate source for table %s", i, src.Table)
		}
		seen[src.Table] = true
	}

	for i, exp := range s.Exports {
		if err := exp.validate(); err != nil {
			return fmt.Errorf("exports[%d]: %w", i, err)
		}
	}
	return nil
}

func (s SourceConfig) validate() error {
	if s.Table == "" {
		return fmt.Errorf("table is required")
	}
	if s.Adapter == "" {
		return fmt.Errorf("adapter is required for table %s", s.Table)
	}
	if !adapter.IsRegistered(s.Adapter) {
		return fmt.Errorf("unknown adapter %q for table %s (available: %s)",
			s.Adapter, s.Table, strings.Join(adapter.ListAdapters(), ", "))
	}
	if s.File != "" && s.Adapter != "duckdb" {
		return fmt.Errorf("file source for table %s requires the duckdb adapter", s.Table)
	}
	if s.Query == "" {
		return fmt.Errorf("query or file is required for table %s", s.Table)
	}
	return nil
}

func (e ExportConfig) validate() error {
	if e.Table == "" {
		return fmt.Errorf("table is required")
	}
	if e.Path == "" {
		return fmt.Errorf("path is required for table %s", e.Table)
	}
	switch e.Format {
	case FormatCSV, FormatParquet, FormatYAML:
		return nil
	case "":
		return fmt.Errorf("cannot infer export format for %s", e.Path)
	}
	return fmt.Errorf("unknown export format %q for %s", e.Format, e.Path)
}
