// Package config loads leapsim scenario files.
//
// A scenario names the scripts to load, the years and models to run, the
// SQL or file sources backing tables, and the tables to export afterwards.
// Values are layered defaults < scenario file < LEAPSIM_ environment < flags.
package config

// Scenario holds a fully loaded scenario configuration.
type Scenario struct {
	Name        string         `koanf:"name"`
	ScriptsDir  string         `koanf:"scripts_dir"`
	StatePath   string         `koanf:"state_path"`
	LogLevel    string         `koanf:"log_level"`
	LogFormat   string         `koanf:"log_format"`
	Output      string         `koanf:"output"`
	Years       []int          `koanf:"years"`
	Models      []string       `koanf:"models"`
	Injectables map[string]any `koanf:"injectables"`
	Sources     []SourceConfig `koanf:"sources"`
	Exports     []ExportConfig `koanf:"exports"`

	// BaseDir is the directory relative paths were resolved against.
	BaseDir string `koanf:"-"`
	// File is the scenario file that was loaded, if any.
	File string `koanf:"-"`
}

// SourceConfig binds a table to an adapter query or a data file.
type SourceConfig struct {
	Table   string            `koanf:"table"`
	Adapter string            `koanf:"adapter"`
	DSN     string            `koanf:"dsn"`
	Query   string            `koanf:"query"`
	File    string            `koanf:"file"`
	Index   string            `koanf:"index"`
	Cache   *bool             `koanf:"cache"`
	Options map[string]string `koanf:"options"`
}

// Cached reports whether the source is evaluated once and kept.
func (s SourceConfig) Cached() bool {
	return s.Cache == nil || *s.Cache
}

// ExportConfig writes a table, or a merge of tables, after a run.
type ExportConfig struct {
	Table   string   `koanf:"table"`
	Merge   []string `koanf:"merge"`
	Columns []string `koanf:"columns"`
	Path    string   `koanf:"path"`
	Format  string   `koanf:"format"`
}
