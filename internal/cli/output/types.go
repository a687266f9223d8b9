package output

// JSON document types emitted with --output json.

// RunOutput is the result of the run command.
type RunOutput struct {
	Scenario  string         `json:"scenario"`
	RunID     string         `json:"run_id,omitempty"`
	Status    string         `json:"status"`
	Models    []string       `json:"models"`
	Years     []int          `json:"years"`
	ElapsedMS int64          `json:"elapsed_ms"`
	Exported  []string       `json:"exported"`
	ModelRuns []ModelRunInfo `json:"model_runs,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// ModelRunInfo is one model invocation.
type ModelRunInfo struct {
	Model      string `json:"model"`
	Year       *int   `json:"year,omitempty"`
	Status     string `json:"status"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// RunInfo is a run history entry.
type RunInfo struct {
	ID          string   `json:"id"`
	Status      string   `json:"status"`
	Models      []string `json:"models"`
	Years       []int    `json:"years"`
	StartedAt   string   `json:"started_at"`
	CompletedAt string   `json:"completed_at,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// RunsOutput is the result of the runs command.
type RunsOutput struct {
	Runs      []RunInfo      `json:"runs"`
	ModelRuns []ModelRunInfo `json:"model_runs,omitempty"`
}

// TableInfo describes a registered table.
type TableInfo struct {
	Name    string   `json:"name"`
	Kind    string   `json:"kind"`
	Columns []string `json:"columns"`
	Deps    []string `json:"deps,omitempty"`
}

// ColumnInfo describes a registered computed or series column.
type ColumnInfo struct {
	Table string   `json:"table"`
	Name  string   `json:"name"`
	Deps  []string `json:"deps,omitempty"`
}

// InjectableInfo describes a registered injectable.
type InjectableInfo struct {
	Name     string   `json:"name"`
	Autocall bool     `json:"autocall"`
	Value    any      `json:"value,omitempty"`
	Deps     []string `json:"deps,omitempty"`
}

// ModelInfo describes a registered model.
type ModelInfo struct {
	Name string   `json:"name"`
	Deps []string `json:"deps"`
}

// BroadcastInfo describes a registered broadcast.
type BroadcastInfo struct {
	Cast      string `json:"cast"`
	Onto      string `json:"onto"`
	CastOn    string `json:"cast_on,omitempty"`
	OntoOn    string `json:"onto_on,omitempty"`
	CastIndex bool   `json:"cast_index"`
	OntoIndex bool   `json:"onto_index"`
}

// ListOutput is the result of the list command.
type ListOutput struct {
	Scripts     []string         `json:"scripts"`
	Tables      []TableInfo      `json:"tables"`
	Columns     []ColumnInfo     `json:"columns"`
	Injectables []InjectableInfo `json:"injectables"`
	Models      []ModelInfo      `json:"models"`
	Broadcasts  []BroadcastInfo  `json:"broadcasts"`
}

// FrameOutput is a frame rendered as rows.
type FrameOutput struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}
