package frame

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// YAMLSafe converts the series into a label->value map that survives a YAML
// round trip. Labels are rendered as strings.
func (s *Series) YAMLSafe() map[string]any {
	out := make(map[string]any, len(s.values))
	for i, label := range s.index {
		out[fmt.Sprint(label)] = s.values[i]
	}
	return out
}

// YAMLSafe converts the frame into column -> (label -> value) maps.
func (f *Frame) YAMLSafe() map[string]map[string]any {
	out := make(map[string]map[string]any, len(f.names))
	for _, name := range f.names {
		col, _ := f.Column(name)
		out[name] = col.YAMLSafe()
	}
	return out
}

// MarshalYAML renders the frame as its YAML-safe mapping.
func (f *Frame) MarshalYAML() (any, error) {
	return f.YAMLSafe(), nil
}

// WriteYAML writes the frame as column -> (label -> value) mappings with the
// columns in frame order.
func (f *Frame) WriteYAML(w io.Writer) error {
	safe := f.YAMLSafe()
	cfg := make(map[string]any, len(safe))
	for name, col := range safe {
		cfg[name] = col
	}
	out, err := OrderedYAML(cfg, f.names)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// OrderedYAML renders cfg as YAML with the keys in order first and any
// remaining keys after them, sorted.
func OrderedYAML(cfg map[string]any, order []string) (string, error) {
	var parts []string
	emit := func(key string) error {
		b, err := yaml.Marshal(map[string]any{key: cfg[key]})
		if err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		parts = append(parts, string(b))
		return nil
	}

	for _, key := range order {
		if _, ok := cfg[key]; !ok {
			continue
		}
		if err := emit(key); err != nil {
			return "", err
		}
	}

	rest := make([]string, 0, len(cfg))
	for key := range cfg {
		if !slices.Contains(order, key) {
			rest = append(rest, key)
		}
	}
	slices.Sort(rest)
	for _, key := range rest {
		if err := emit(key); err != nil {
			return "", err
		}
	}

	return strings.Join(parts, "\n"), nil
}
