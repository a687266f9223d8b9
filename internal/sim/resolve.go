package sim

import (
	"fmt"
	"slices"
)

// Resolve looks up every name and returns the resolved values.
//
// Tables resolve to their handles; a source table is evaluated first and
// its materialized table is returned. Injectables resolve to their value,
// invoking autocall functions with their own dependencies. When a name is
// both a table and an injectable the table wins. If any names are unknown,
// all of them are reported in one *MissingDependencyError and nothing is
// evaluated.
func (s *Session) Resolve(names []string) (Deps, error) {
	var missing []string
	for _, name := range names {
		if !s.tables.Has(name) && !s.injectables.Has(name) && !slices.Contains(missing, name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return nil, &MissingDependencyError{Names: missing}
	}

	deps := make(Deps, len(names))
	for _, name := range names {
		if _, done := deps[name]; done {
			continue
		}
		v, err := s.resolveOne(name)
		if err != nil {
			return nil, err
		}
		deps[name] = v
	}
	return deps, nil
}

func (s *Session) resolveOne(name string) (any, error) {
	if t, ok := s.tables.Get(name); ok {
		if src, ok := t.(*SourceTable); ok {
			ft, err := src.Evaluate()
			if err != nil {
				return nil, fmt.Errorf("resolve %q: %w", name, err)
			}
			return ft, nil
		}
		return t, nil
	}
	inj, ok := s.injectables.Get(name)
	if !ok {
		return nil, &MissingDependencyError{Names: []string{name}}
	}
	return s.injectableValue(inj)
}
