package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

// Default configuration values.
const (
	DefaultScriptsDir = "scripts"
	DefaultStatePath  = ".leapsim/state.db"
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"
	DefaultOutput     = "auto"
)

// FileName and FileNameAlt are the scenario file names searched for when
// no explicit path is given.
const (
	FileName    = "leapsim.yaml"
	FileNameAlt = "leapsim.yml"
)

// EnvPrefix prefixes environment variables read into the scenario.
const EnvPrefix = "LEAPSIM_"

// Export formats.
const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
	FormatYAML    = "yaml"
)

func defaults() map[string]any {
	return map[string]any{
		"scripts_dir": DefaultScriptsDir,
		"state_path":  DefaultStatePath,
		"log_level":   DefaultLogLevel,
		"log_format":  DefaultLogFormat,
		"output":      DefaultOutput,
	}
}

// FormatForPath infers an export format from a file extension.
func FormatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".parquet", ".pq":
		return FormatParquet
	case ".yaml", ".yml":
		return FormatYAML
	}
	return ""
}

// ParseLogLevel converts a level name to a slog.Level.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
}
