package sim

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Typed errors below unwrap to one of these so callers can
// match with errors.Is and still reach the details with errors.As.
var (
	ErrNotFound          = errors.New("not found")
	ErrMissingDependency = errors.New("missing dependency")
	ErrTypeMismatch      = errors.New("type mismatch")
	ErrUnlinkedTables    = errors.New("unlinked tables")
	ErrSimulation        = errors.New("simulation error")
	ErrBroadcastCycle    = errors.New("broadcast cycle")
	ErrDependencyCycle   = errors.New("dependency cycle")
	ErrInvalidBroadcast  = errors.New("invalid broadcast")
	ErrClosed            = errors.New("session closed")
)

// NotFoundError reports an unknown table, column, model or injectable.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// MissingDependencyError lists every dependency name that resolved to
// neither a table nor an injectable.
type MissingDependencyError struct {
	Names []string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("missing dependencies: %s", strings.Join(e.Names, ", "))
}

func (e *MissingDependencyError) Unwrap() error { return ErrMissingDependency }

// TypeMismatchError reports a value of an unsupported type.
type TypeMismatchError struct {
	Kind  string
	Name  string
	Value any
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s %q: unsupported value of type %T", e.Kind, e.Name, e.Value)
}

func (e *TypeMismatchError) Unwrap() error { return ErrTypeMismatch }

// UnlinkedTablesError names the merge participants that have no broadcast
// path to the target.
type UnlinkedTablesError struct {
	Target string
	Tables []string
}

func (e *UnlinkedTablesError) Error() string {
	return fmt.Sprintf("tables not linked to %q by broadcasts: %s", e.Target, strings.Join(e.Tables, ", "))
}

func (e *UnlinkedTablesError) Unwrap() error { return ErrUnlinkedTables }

// MissingColumnsError lists requested merge columns found in no participant.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("columns not found in any merged table: %s", strings.Join(e.Columns, ", "))
}

func (e *MissingColumnsError) Unwrap() error { return ErrNotFound }

// BroadcastCycleError reports a cycle among the broadcasts of a merge.
type BroadcastCycleError struct {
	Path []string
}

func (e *BroadcastCycleError) Error() string {
	return fmt.Sprintf("broadcast cycle: %s", strings.Join(e.Path, " -> "))
}

func (e *BroadcastCycleError) Unwrap() error { return ErrBroadcastCycle }

// DependencyCycleError reports an entity whose evaluation re-entered itself.
// Path entries look like "injectable:x", "table:t" or "column:t.c".
type DependencyCycleError struct {
	Path []string
}

func (e *DependencyCycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Path, " -> "))
}

func (e *DependencyCycleError) Unwrap() error { return ErrDependencyCycle }

// SimulationError is the domain failure raised by model code.
type SimulationError struct {
	Msg string
	Err error
}

// NewSimulationError formats a SimulationError.
func NewSimulationError(format string, args ...any) *SimulationError {
	return &SimulationError{Msg: fmt.Sprintf(format, args...)}
}

func (e *SimulationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *SimulationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrSimulation, e.Err}
	}
	return []error{ErrSimulation}
}
