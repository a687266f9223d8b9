package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapsim/internal/cli/output"
	"github.com/leapstack-labs/leapsim/internal/cli/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCmd_Metadata(t *testing.T) {
	cmd := NewRootCmd()

	assert.Equal(t, "leapsim", cmd.Use)
	for _, flag := range []string{"scenario", "scripts", "state", "log-level", "log-format", "output", "years", "models"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"run", "list", "merge", "runs", "version", "completion"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCmd_VersionWithoutScenario(t *testing.T) {
	t.Chdir(t.TempDir())

	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "LeapSim v"+Version)
}

func TestRootCmd_MissingScenarioFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, _, err := execute(t, "list", "--scenario", "nope.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.yaml")
}

func TestRootCmd_InvalidOutputFlag(t *testing.T) {
	t.Chdir(testutil.SetupTestProject(t))

	_, _, err := execute(t, "list", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid scenario")
}

func TestRootCmd_RunListMergeRuns(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	t.Chdir(dir)

	// run
	out, _, err := execute(t, "run", "-o", "json")
	require.NoError(t, err)

	var run output.RunOutput
	require.NoError(t, json.Unmarshal([]byte(out), &run))
	assert.Equal(t, "test", run.Scenario)
	assert.Equal(t, "completed", run.Status)
	assert.Equal(t, []int{2020, 2021}, run.Years)
	assert.NotEmpty(t, run.RunID)
	require.Len(t, run.ModelRuns, 2)
	assert.Equal(t, "grow", run.ModelRuns[0].Model)
	require.Len(t, run.Exported, 1)

	csvOut, err := os.ReadFile(run.Exported[0])
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(csvOut)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "__index__,income,zone_id,income_k", lines[0])
	assert.Equal(t, "1,400,z1,0.4", lines[1])

	// list
	out, _, err = execute(t, "list", "-o", "json")
	require.NoError(t, err)

	var list output.ListOutput
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list.Tables, 2)
	assert.Equal(t, "zones", list.Tables[0].Name)
	assert.Equal(t, "source", list.Tables[0].Kind)
	assert.Equal(t, "households", list.Tables[1].Name)
	require.Len(t, list.Models, 1)
	assert.Equal(t, []string{"households", "growth_rate"}, list.Models[0].Deps)
	require.Len(t, list.Broadcasts, 1)
	assert.Equal(t, []string{filepath.Join(dir, "scripts", "households.star")}, list.Scripts)

	// list a single kind in markdown
	out, _, err = execute(t, "list", "models", "-o", "markdown")
	require.NoError(t, err)
	testutil.AssertNoANSI(t, out)
	assert.Contains(t, out, "## Models (1)")
	assert.NotContains(t, out, "## Tables")

	// merge
	out, _, err = execute(t, "merge", "households", "zones", "-o", "json")
	require.NoError(t, err)

	var merged output.FrameOutput
	require.NoError(t, json.Unmarshal([]byte(out), &merged))
	assert.Contains(t, merged.Columns, "area")
	require.Len(t, merged.Rows, 3)
	assert.Equal(t, 4.0, merged.Rows[1]["area"])

	// merge to a file
	outPath := filepath.Join(dir, "merged.yaml")
	_, _, err = execute(t, "merge", "households", "zones", "--columns", "area", "--out", outPath)
	require.NoError(t, err)
	_, err = os.Stat(outPath)
	require.NoError(t, err)

	// runs
	out, _, err = execute(t, "runs", "-o", "json")
	require.NoError(t, err)

	var runs output.RunsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs.Runs, 1)
	assert.Equal(t, run.RunID, runs.Runs[0].ID)
	assert.Equal(t, "completed", runs.Runs[0].Status)

	out, _, err = execute(t, "runs", run.RunID, "-o", "json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	assert.Len(t, runs.ModelRuns, 2)
}

func TestRootCmd_RunFlagsOverrideScenario(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	t.Chdir(dir)

	out, _, err := execute(t, "run", "--years", "2030", "--no-export", "--no-history", "-o", "markdown")
	require.NoError(t, err)

	testutil.AssertValidMarkdown(t, out)
	assert.Contains(t, out, "# Run test")
	assert.Contains(t, out, "- **Years:** 2030")
	assert.Contains(t, out, "Completed in")

	_, err = os.Stat(filepath.Join(dir, "out"))
	assert.True(t, os.IsNotExist(err), "exports skipped")
	_, err = os.Stat(filepath.Join(dir, ".leapsim", "state.db"))
	assert.True(t, os.IsNotExist(err), "history skipped")

	out, _, err = execute(t, "runs")
	require.NoError(t, err)
	assert.Contains(t, out, "No run history")
}

func TestRootCmd_RunFailure(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	t.Chdir(dir)

	failing := `
def explode(year):
    sim_error("nothing left to simulate in %d" % year)

model("explode", explode)
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scripts", "explode.star"), []byte(failing), 0o600))

	out, _, err := execute(t, "run", "--models", "grow,explode", "-o", "json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing left to simulate in 2020")

	var run output.RunOutput
	require.NoError(t, json.Unmarshal([]byte(out), &run))
	assert.Equal(t, "failed", run.Status)
	assert.Contains(t, run.Error, "nothing left to simulate")
}

func TestCompletionCommand(t *testing.T) {
	out, _, err := execute(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "leapsim")
}
