package sim

import (
	"fmt"
	"slices"
)

// InjectableFunc computes an injectable value from its resolved dependencies.
type InjectableFunc func(Deps) (any, error)

// Injectable is a named value available to every dependency list. The
// variants are *ValueInjectable and *FuncInjectable.
type Injectable interface {
	Name() string
	injectable()
}

// ValueInjectable holds a literal value.
type ValueInjectable struct {
	name  string
	value any
}

func (i *ValueInjectable) Name() string { return i.name }
func (i *ValueInjectable) injectable()  {}

// Value returns the stored value.
func (i *ValueInjectable) Value() any { return i.value }

// FuncInjectable is re-invoked each time it is injected. Results are not
// cached.
type FuncInjectable struct {
	name string
	fn   InjectableFunc
	deps []string
}

func (i *FuncInjectable) Name() string { return i.name }
func (i *FuncInjectable) injectable()  {}

// Deps returns the declared dependency names.
func (i *FuncInjectable) Deps() []string { return slices.Clone(i.deps) }

// ModelFunc is the body of a model. Models act through side effects on the
// session, such as registering or updating columns.
type ModelFunc func(Deps) error

// Model is a named step of a run.
type Model struct {
	name string
	fn   ModelFunc
	deps []string
}

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// Deps returns the declared dependency names.
func (m *Model) Deps() []string { return slices.Clone(m.deps) }

func (s *Session) injectableValue(inj Injectable) (any, error) {
	switch inj := inj.(type) {
	case *ValueInjectable:
		return inj.value, nil
	case *FuncInjectable:
		release, err := s.enter("injectable:" + inj.name)
		if err != nil {
			return nil, err
		}
		defer release()

		resolved, err := s.Resolve(inj.deps)
		if err != nil {
			return nil, fmt.Errorf("injectable %q: %w", inj.name, err)
		}
		v, err := inj.fn(resolved)
		if err != nil {
			return nil, fmt.Errorf("injectable %q: %w", inj.name, err)
		}
		return v, nil
	}
	return nil, &TypeMismatchError{Kind: "injectable", Name: inj.Name(), Value: inj}
}
