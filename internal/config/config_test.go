package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioYAML = `
name: baseline
scripts_dir: models
state_path: state/runs.db
years: [2020, 2021]
models: [households_transition, persons_transition]
injectables:
  growth_rate: 0.02
  region: bay_area
sources:
  - table: households
    adapter: sqlite
    dsn: data/base.db
    query: SELECT * FROM households
    index: household_id
  - table: zones
    file: data/zones.csv
    index: zone_id
    cache: false
exports:
  - table: households
    columns: [income, zone_id]
    path: out/households.parquet
  - table: persons
    merge: [households]
    path: out/persons.yaml
`

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("scripts", "", "")
	flags.String("state", "", "")
	flags.String("log-level", "", "")
	flags.String("output", "", "")
	flags.IntSlice("years", nil, "")
	flags.StringSlice("models", nil, "")
	return flags
}

func TestLoad_ScenarioFile(t *testing.T) {
	path := writeScenario(t, scenarioYAML)
	dir := filepath.Dir(path)

	sc, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "baseline", sc.Name)
	assert.Equal(t, path, sc.File)
	assert.Equal(t, dir, sc.BaseDir)
	assert.Equal(t, filepath.Join(dir, "models"), sc.ScriptsDir)
	assert.Equal(t, filepath.Join(dir, "state", "runs.db"), sc.StatePath)
	assert.Equal(t, []int{2020, 2021}, sc.Years)
	assert.Equal(t, []string{"households_transition", "persons_transition"}, sc.Models)
	assert.Equal(t, 0.02, sc.Injectables["growth_rate"])
	assert.Equal(t, "bay_area", sc.Injectables["region"])

	// defaults survive
	assert.Equal(t, DefaultLogLevel, sc.LogLevel)
	assert.Equal(t, DefaultLogFormat, sc.LogFormat)
	assert.Equal(t, DefaultOutput, sc.Output)

	require.Len(t, sc.Sources, 2)
	households := sc.Sources[0]
	assert.Equal(t, filepath.Join(dir, "data", "base.db"), households.DSN)
	assert.True(t, households.Cached())

	zones := sc.Sources[1]
	assert.Equal(t, "duckdb", zones.Adapter)
	assert.Equal(t, filepath.Join(dir, "data", "zones.csv"), zones.File)
	assert.Contains(t, zones.Query, "read_csv_auto")
	assert.False(t, zones.Cached())

	require.Len(t, sc.Exports, 2)
	assert.Equal(t, FormatParquet, sc.Exports[0].Format)
	assert.Equal(t, filepath.Join(dir, "out", "households.parquet"), sc.Exports[0].Path)
	assert.Equal(t, FormatYAML, sc.Exports[1].Format)
	assert.Equal(t, []string{"households"}, sc.Exports[1].Merge)
}

func TestLoad_Precedence(t *testing.T) {
	path := writeScenario(t, "log_level: warn\noutput: text\nyears: [2020]\n")

	t.Run("file over defaults", func(t *testing.T) {
		sc, err := Load(path, nil)
		require.NoError(t, err)
		assert.Equal(t, "warn", sc.LogLevel)
		assert.Equal(t, "text", sc.Output)
	})

	t.Run("env over file", func(t *testing.T) {
		t.Setenv("LEAPSIM_LOG_LEVEL", "debug")
		t.Setenv("LEAPSIM_OUTPUT", "json")
		sc, err := Load(path, nil)
		require.NoError(t, err)
		assert.Equal(t, "debug", sc.LogLevel)
		assert.Equal(t, "json", sc.Output)
		assert.Equal(t, []int{2020}, sc.Years)
	})

	t.Run("flags over env", func(t *testing.T) {
		t.Setenv("LEAPSIM_LOG_LEVEL", "debug")
		flags := newFlags()
		require.NoError(t, flags.Parse([]string{"--log-level", "error", "--years", "2040", "--models", "a,b"}))

		sc, err := Load(path, flags)
		require.NoError(t, err)
		assert.Equal(t, "error", sc.LogLevel)
		assert.Equal(t, []int{2040}, sc.Years)
		assert.Equal(t, []string{"a", "b"}, sc.Models)
		// unchanged flags do not override the file
		assert.Equal(t, "text", sc.Output)
	})
}

func TestLoad_FlagPathsRelativeToWorkingDir(t *testing.T) {
	path := writeScenario(t, "name: paths\n")
	cwd := t.TempDir()
	t.Chdir(cwd)

	flags := newFlags()
	require.NoError(t, flags.Parse([]string{"--state", "custom.db", "--scripts", "star"}))

	sc, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, "custom.db"), sc.StatePath)
	assert.Equal(t, filepath.Join(cwd, "star"), sc.ScriptsDir)
}

func TestLoad_SearchesWorkingDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileNameAlt), []byte("name: found\n"), 0o600))
	t.Chdir(dir)

	sc, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "found", sc.Name)
	assert.Equal(t, filepath.Join(dir, FileNameAlt), sc.File)
}

func TestLoad_NoFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	sc, err := Load("", nil)
	require.NoError(t, err)
	assert.Empty(t, sc.File)
	assert.Equal(t, filepath.Join(dir, DefaultScriptsDir), sc.ScriptsDir)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Scenario {
		return Scenario{LogLevel: "info", LogFormat: "text", Output: "auto"}
	}

	tests := []struct {
		name      string
		mutate    func(s *Scenario)
		errSubstr string
	}{
		{name: "valid", mutate: func(*Scenario) {}},
		{name: "bad log level", mutate: func(s *Scenario) { s.LogLevel = "loud" }, errSubstr: "unknown log level"},
		{name: "bad log format", mutate: func(s *Scenario) { s.LogFormat = "xml" }, errSubstr: "unknown log format"},
		{name: "bad output", mutate: func(s *Scenario) { s.Output = "html" }, errSubstr: "unknown output"},
		{
			name: "unknown adapter",
			mutate: func(s *Scenario) {
				s.Sources = []SourceConfig{{Table: "zones", Adapter: "oracle", Query: "SELECT 1"}}
			},
			errSubstr: "unknown adapter",
		},
		{
			name: "missing query",
			mutate: func(s *Scenario) {
				s.Sources = []SourceConfig{{Table: "zones", Adapter: "sqlite"}}
			},
			errSubstr: "query or file is required",
		},
		{
			name: "file needs duckdb",
			mutate: func(s *Scenario) {
				s.Sources = []SourceConfig{{Table: "zones", Adapter: "sqlite", File: "zones.csv", Query: "SELECT 1"}}
			},
			errSubstr: "requires the duckdb adapter",
		},
		{
			name: "duplicate source",
			mutate: func(s *Scenario) {
				src := SourceConfig{Table: "zones", Adapter: "sqlite", Query: "SELECT 1"}
				s.Sources = []SourceConfig{src, src}
			},
			errSubstr: "duplicate source",
		},
		{
			name: "export without path",
			mutate: func(s *Scenario) {
				s.Exports = []ExportConfig{{Table: "zones", Format: FormatCSV}}
			},
			errSubstr: "path is required",
		},
		{
			name: "export unknown format",
			mutate: func(s *Scenario) {
				s.Exports = []ExportConfig{{Table: "zones", Path: "zones.xlsx", Format: "xlsx"}}
			},
			errSubstr: "unknown export format",
		},
		{
			name: "export format not inferred",
			mutate: func(s *Scenario) {
				s.Exports = []ExportConfig{{Table: "zones", Path: "zones.out"}}
			},
			errSubstr: "cannot infer export format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := valid()
			tt.mutate(&sc)
			err := sc.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestFormatForPath(t *testing.T) {
	assert.Equal(t, FormatCSV, FormatForPath("out/a.CSV"))
	assert.Equal(t, FormatParquet, FormatForPath("a.pq"))
	assert.Equal(t, FormatYAML, FormatForPath("a.yml"))
	assert.Empty(t, FormatForPath("a.txt"))
}

func TestParseLogLevel(t *testing.T) {
	lvl, err := ParseLogLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, lvl)

	lvl, err = ParseLogLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)

	_, err = ParseLogLevel("verbose")
	assert.Error(t, err)
}
