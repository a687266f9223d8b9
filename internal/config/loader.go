package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/leapstack-labs/leapsim/internal/adapter"
	"github.com/spf13/pflag"
)

// flagKeys maps CLI flag names to scenario keys where they differ.
var flagKeys = map[string]string{
	"state":   "state_path",
	"scripts": "scripts_dir",
}

// FindFile returns the scenario file to load.
// Priority: explicit path > leapsim.yaml > leapsim.yml in dir.
func FindFile(explicit, dir string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{FileName, FileNameAlt} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty, absolute or ":memory:".
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// Load reads a scenario. When cfgFile is empty, the current directory is
// searched for leapsim.yaml. Flags that were explicitly set override every
// other layer; flag paths are taken relative to the working directory.
func Load(cfgFile string, flags *pflag.FlagSet) (*Scenario, error) {
	k := koanf.New(".")

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Scenario file
	path := FindFile(cfgFile, cwd)
	baseDir := cwd
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading scenario file %s: %w", path, err)
		}
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		baseDir = filepath.Dir(path)
	}

	// 3. Environment: LEAPSIM_LOG_LEVEL -> log_level
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	flagPaths := map[string]bool{}
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if mapped, ok := flagKeys[key]; ok {
				key = mapped
			}
			flagPaths[key] = true
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var sc Scenario
	if err := k.Unmarshal("", &sc); err != nil {
		return nil, fmt.Errorf("unable to decode scenario: %w", err)
	}
	sc.File = path
	sc.BaseDir = baseDir

	baseFor := func(key string) string {
		if flagPaths[key] {
			return cwd
		}
		return baseDir
	}
	sc.ScriptsDir = resolvePathRelativeTo(sc.ScriptsDir, baseFor("scripts_dir"))
	sc.StatePath = resolvePathRelativeTo(sc.StatePath, baseFor("state_path"))

	if err := sc.normalize(); err != nil {
		return nil, err
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &sc, nil
}

// normalize resolves source and export paths against BaseDir, turns file
// sources into DuckDB queries and infers export formats.
func (s *Scenario) normalize() error {
	for i := range s.Sources {
		src := &s.Sources[i]
		src.Adapter = strings.ToLower(src.Adapter)
		if src.File != "" {
			if src.Adapter == "" {
				src.Adapter = "duckdb"
			}
			src.File = resolvePathRelativeTo(src.File, s.BaseDir)
			if src.Query == "" && src.Adapter == "duckdb" {
				q, err := adapter.FileQuery(src.File)
				if err != nil {
					return fmt.Errorf("source %s: %w", src.Table, err)
				}
				src.Query = q
			}
		}
		if src.Adapter == "duckdb" || src.Adapter == "sqlite" {
			src.DSN = resolvePathRelativeTo(src.DSN, s.BaseDir)
		}
	}

	for i := range s.Exports {
		exp := &s.Exports[i]
		exp.Path = resolvePathRelativeTo(exp.Path, s.BaseDir)
		exp.Format = strings.ToLower(exp.Format)
		if exp.Format == "" {
			exp.Format = FormatForPath(exp.Path)
		}
	}
	return nil
}
