package output

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func newTestRenderer(mode OutputMode, isTTY bool) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return NewRendererWithTTY(out, errOut, isTTY, mode), out, errOut
}

func TestMode(t *testing.T) {
	tests := []struct {
		in   string
		want OutputMode
	}{
		{"", ModeAuto},
		{"auto", ModeAuto},
		{"text", ModeText},
		{"MARKDOWN", ModeMarkdown},
		{"md", ModeMarkdown},
		{" json ", ModeJSON},
		{"yaml", ModeAuto},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Mode(tt.in))
		})
	}
}

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		name  string
		mode  OutputMode
		isTTY bool
		want  OutputMode
	}{
		{"auto on terminal", ModeAuto, true, ModeText},
		{"auto when piped", ModeAuto, false, ModeMarkdown},
		{"explicit text when piped", ModeText, false, ModeText},
		{"explicit json on terminal", ModeJSON, true, ModeJSON},
		{"empty mode", "", false, ModeMarkdown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, _ := newTestRenderer(tt.mode, tt.isTTY)
			assert.Equal(t, tt.want, r.EffectiveMode())
		})
	}
}

func TestNewRenderer_BufferIsNotTerminal(t *testing.T) {
	r := NewRenderer(&bytes.Buffer{}, &bytes.Buffer{}, ModeAuto)
	assert.Equal(t, ModeMarkdown, r.EffectiveMode())
}

func TestRenderer_Markdown(t *testing.T) {
	r, out, errOut := newTestRenderer(ModeMarkdown, false)

	r.Header(1, "Run baseline")
	r.KeyValue("Years", "2020, 2021")
	r.StatusLine("grow (2020)", "success", "12ms")
	r.Success("Completed in 1s")
	r.Muted("2 rows")
	r.Error("boom")

	got := out.String()
	assert.Contains(t, got, "# Run baseline\n")
	assert.Contains(t, got, "- **Years:** 2020, 2021\n")
	assert.Contains(t, got, "- grow (2020): success (12ms)\n")
	assert.Contains(t, got, "**Completed in 1s**")
	assert.Contains(t, got, "_2 rows_")
	assert.Contains(t, errOut.String(), "boom")
	assert.False(t, ansi.MatchString(got+errOut.String()))
}

func TestRenderer_TextWithoutColorOnBuffers(t *testing.T) {
	r, out, _ := newTestRenderer(ModeText, true)

	r.Header(2, "Models")
	r.StatusLine("grow", "failed", "no housing")
	r.StatusLine("relocate", "success", "")

	got := out.String()
	assert.Contains(t, got, "Models")
	assert.Contains(t, got, "✗ grow")
	assert.Contains(t, got, "no housing")
	assert.Contains(t, got, "✓ relocate")
	assert.False(t, ansi.MatchString(got), "buffers get no color")
}

func TestRenderer_Table(t *testing.T) {
	rows := [][]any{
		{"households", []string{"income", "zone_id"}, nil},
		{"zones", []string{}, 3 * time.Millisecond},
	}

	t.Run("markdown", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeMarkdown, false)
		r.Table([]string{"Name", "Columns", "Extra"}, rows)

		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		require.Len(t, lines, 4)
		for _, line := range lines {
			assert.True(t, strings.HasPrefix(line, "|"), "line %q", line)
		}
		assert.Contains(t, lines[2], "households")
		assert.Contains(t, lines[2], "income, zone_id")
		assert.Contains(t, lines[2], "NULL")
		assert.Contains(t, lines[3], "3ms")
	})

	t.Run("text", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeText, true)
		r.Table([]string{"Name", "Columns", "Extra"}, rows)

		got := out.String()
		assert.Contains(t, got, "┌")
		assert.Contains(t, got, "households")
		assert.Contains(t, got, "zones")
	})
}

func TestRenderer_JSON(t *testing.T) {
	r, out, _ := newTestRenderer(ModeJSON, false)
	require.NoError(t, r.JSON(RunOutput{Scenario: "baseline", Status: "completed", Years: []int{2020}}))

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "baseline", got["scenario"])
	assert.Equal(t, "completed", got["status"])
	assert.NotContains(t, got, "error")
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "# Title", FormatHeader(0, "Title"))
	assert.Equal(t, "### Title", FormatHeader(3, "Title"))
	assert.Equal(t, "- **Key:** value", FormatKeyValue("Key", "value"))

	assert.Equal(t, "NULL", FormatValue(nil))
	assert.Equal(t, "a, b", FormatValue([]string{"a", "b"}))
	assert.Equal(t, "1.5s", FormatValue(1500*time.Millisecond))
	assert.Equal(t, "42", FormatValue(int64(42)))

	assert.Equal(t, "-", FormatList(nil))
	assert.Equal(t, "x, y", FormatList([]string{"x", "y"}))
}

func TestStatusIcon(t *testing.T) {
	r, _, _ := newTestRenderer(ModeText, true)
	s := r.Styles()

	assert.Equal(t, "✓", s.StatusIcon("completed"))
	assert.Equal(t, "✗", s.StatusIcon("failed"))
	assert.Equal(t, "…", s.StatusIcon("running"))
	assert.Equal(t, "-", s.StatusIcon("unknown"))
}
