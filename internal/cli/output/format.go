package output

import (
	"fmt"
	"strings"
	"time"
)

// FormatHeader renders a Markdown header.
func FormatHeader(level int, text string) string {
	if level < 1 {
		level = 1
	}
	return strings.Repeat("#", level) + " " + text
}

// FormatKeyValue renders a Markdown list item with a bold key.
func FormatKeyValue(key, value string) string {
	return fmt.Sprintf("- **%s:** %s", key, value)
}

// FormatValue renders a table cell.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return x
	case []string:
		return strings.Join(x, ", ")
	case time.Duration:
		return x.Round(time.Millisecond).String()
	case time.Time:
		return x.Local().Format(time.DateTime)
	}
	return fmt.Sprint(v)
}

// FormatList joins names for display, rendering an empty list as "-".
func FormatList(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}
