// Package sim is the lazy orchestration core: a session holding named
// tables, computed columns, injectables, models and broadcasts, wired
// together by explicitly declared dependency names.
//
// A Session is meant for one logical simulation at a time. Registry access
// is locked, but evaluation (Resolve, ToFrame, MergeTables, Run) must not be
// driven from several goroutines at once. Separate sessions share nothing.
package sim

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/leapstack-labs/leapsim/internal/registry"
	"github.com/leapstack-labs/leapsim/pkg/frame"
)

// ColumnKey identifies a registered column.
type ColumnKey struct {
	Table string
	Name  string
}

func (k ColumnKey) String() string { return k.Table + "." + k.Name }

// Session owns every registry of one simulation.
type Session struct {
	logger   *slog.Logger
	recorder Recorder

	tables      *registry.Store[string, Table]
	columns     *registry.Store[ColumnKey, Column]
	injectables *registry.Store[string, Injectable]
	models      *registry.Store[string, *Model]
	broadcasts  *registry.Store[BroadcastKey, Broadcast]

	// evaluating is the stack of entities currently being computed
	evalMu     sync.Mutex
	evaluating []string

	closed bool
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder attaches a run history recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

// NewSession creates an empty session.
func NewSession(opts ...Option) *Session {
	s := &Session{
		logger:      slog.New(slog.DiscardHandler),
		tables:      registry.New[string, Table](),
		columns:     registry.New[ColumnKey, Column](),
		injectables: registry.New[string, Injectable](),
		models:      registry.New[string, *Model](),
		broadcasts:  registry.New[BroadcastKey, Broadcast](),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Logger returns the session logger.
func (s *Session) Logger() *slog.Logger { return s.logger }

// AddTable registers a table. value is either a *frame.Frame, whose storage
// the table takes over, or a TableFunc that is re-invoked on every read.
// deps are only used by functions.
func (s *Session) AddTable(name string, value any, deps ...string) error {
	if s.closed {
		return ErrClosed
	}
	var t Table
	switch v := value.(type) {
	case *frame.Frame:
		if v == nil {
			return &TypeMismatchError{Kind: "table", Name: name, Value: value}
		}
		t = &FrameTable{tableBase: tableBase{name: name, sess: s}, df: v}
	case TableFunc:
		if v == nil {
			return &TypeMismatchError{Kind: "table", Name: name, Value: value}
		}
		t = &FuncTable{tableBase: tableBase{name: name, sess: s}, fn: v, deps: slices.Clone(deps)}
	case func(Deps) (*frame.Frame, error):
		if v == nil {
			return &TypeMismatchError{Kind: "table", Name: name, Value: value}
		}
		t = &FuncTable{tableBase: tableBase{name: name, sess: s}, fn: v, deps: slices.Clone(deps)}
	default:
		return &TypeMismatchError{Kind: "table", Name: name, Value: value}
	}
	s.tables.Put(name, t)
	s.logger.Debug("registered table", "table", name, "kind", kindOf(t))
	return nil
}

// AddTableSource registers a table computed once on first use, after which
// the name resolves to the materialized result.
func (s *Session) AddTableSource(name string, fn TableFunc, deps ...string) error {
	if s.closed {
		return ErrClosed
	}
	if fn == nil {
		return &TypeMismatchError{Kind: "table source", Name: name, Value: fn}
	}
	t := &SourceTable{tableBase: tableBase{name: name, sess: s}, fn: fn, deps: slices.Clone(deps)}
	s.tables.Put(name, t)
	s.logger.Debug("registered table", "table", name, "kind", kindOf(t))
	return nil
}

// AddColumn registers an extra column on table. value is either a
// *frame.Series or a ColumnFunc. The host table need not exist yet.
func (s *Session) AddColumn(table, name string, value any, deps ...string) error {
	if s.closed {
		return ErrClosed
	}
	key := ColumnKey{Table: table, Name: name}
	var c Column
	switch v := value.(type) {
	case *frame.Series:
		if v == nil {
			return &TypeMismatchError{Kind: "column", Name: key.String(), Value: value}
		}
		c = &SeriesColumn{key: key, series: v}
	case ColumnFunc:
		if v == nil {
			return &TypeMismatchError{Kind: "column", Name: key.String(), Value: value}
		}
		c = &FuncColumn{key: key, fn: v, deps: slices.Clone(deps)}
	case func(Deps) (*frame.Series, error):
		if v == nil {
			return &TypeMismatchError{Kind: "column", Name: key.String(), Value: value}
		}
		c = &FuncColumn{key: key, fn: v, deps: slices.Clone(deps)}
	default:
		return &TypeMismatchError{Kind: "column", Name: key.String(), Value: value}
	}
	s.columns.Put(key, c)
	s.logger.Debug("registered column", "table", table, "column", name)
	return nil
}

// AddInjectable registers a named value. When autocall is set and value is
// an InjectableFunc, the function is invoked on every injection; otherwise
// value is stored as is.
func (s *Session) AddInjectable(name string, value any, autocall bool, deps ...string) error {
	if s.closed {
		return ErrClosed
	}
	var inj Injectable = &ValueInjectable{name: name, value: value}
	if autocall {
		switch fn := value.(type) {
		case InjectableFunc:
			if fn != nil {
				inj = &FuncInjectable{name: name, fn: fn, deps: slices.Clone(deps)}
			}
		case func(Deps) (any, error):
			if fn != nil {
				inj = &FuncInjectable{name: name, fn: fn, deps: slices.Clone(deps)}
			}
		}
	}
	s.injectables.Put(name, inj)
	s.logger.Debug("registered injectable", "injectable", name, "autocall", isAutocall(inj))
	return nil
}

// AddModel registers a model.
func (s *Session) AddModel(name string, fn ModelFunc, deps ...string) error {
	if s.closed {
		return ErrClosed
	}
	if fn == nil {
		return &TypeMismatchError{Kind: "model", Name: name, Value: fn}
	}
	s.models.Put(name, &Model{name: name, fn: fn, deps: slices.Clone(deps)})
	s.logger.Debug("registered model", "model", name, "deps", deps)
	return nil
}

// Table returns the registered table handle.
func (s *Session) Table(name string) (Table, error) {
	t, ok := s.tables.Get(name)
	if !ok {
		return nil, &NotFoundError{Kind: "table", Name: name}
	}
	return t, nil
}

// Column returns the registered extra column.
func (s *Session) Column(table, name string) (Column, error) {
	key := ColumnKey{Table: table, Name: name}
	c, ok := s.columns.Get(key)
	if !ok {
		return nil, &NotFoundError{Kind: "column", Name: key.String()}
	}
	return c, nil
}

// Injectable returns the registered injectable wrapper.
func (s *Session) Injectable(name string) (Injectable, error) {
	inj, ok := s.injectables.Get(name)
	if !ok {
		return nil, &NotFoundError{Kind: "injectable", Name: name}
	}
	return inj, nil
}

// InjectableValue returns the current value of an injectable, invoking it
// when it is an autocall function.
func (s *Session) InjectableValue(name string) (any, error) {
	inj, err := s.Injectable(name)
	if err != nil {
		return nil, err
	}
	return s.injectableValue(inj)
}

// Model returns the registered model.
func (s *Session) Model(name string) (*Model, error) {
	m, ok := s.models.Get(name)
	if !ok {
		return nil, &NotFoundError{Kind: "model", Name: name}
	}
	return m, nil
}

// ListTables returns table names in registration order.
func (s *Session) ListTables() []string { return s.tables.Keys() }

// ListColumns returns registered extra columns in registration order.
func (s *Session) ListColumns() []ColumnKey { return s.columns.Keys() }

// ListModels returns model names in registration order.
func (s *Session) ListModels() []string { return s.models.Keys() }

// ListInjectables returns injectable names in registration order.
func (s *Session) ListInjectables() []string { return s.injectables.Keys() }

// ListBroadcasts returns broadcast keys in registration order.
func (s *Session) ListBroadcasts() []BroadcastKey { return s.broadcasts.Keys() }

// Clear empties every registry. Handles obtained earlier are invalid.
func (s *Session) Clear() {
	s.tables.Clear()
	s.columns.Clear()
	s.injectables.Clear()
	s.models.Clear()
	s.broadcasts.Clear()

	s.evalMu.Lock()
	s.evaluating = nil
	s.evalMu.Unlock()

	s.logger.Debug("cleared session")
}

// Close clears the session and rejects further registrations and runs.
func (s *Session) Close() error {
	s.Clear()
	s.closed = true
	return nil
}

// PartialUpdate overwrites the values of table.column at the labels of
// update and re-registers the result as an extra column. An empty update
// is a no-op.
func (s *Session) PartialUpdate(update *frame.Series, table, column string) error {
	if update == nil || update.Len() == 0 {
		return nil
	}
	t, err := s.Table(table)
	if err != nil {
		return err
	}
	col, err := t.Column(column)
	if err != nil {
		return err
	}
	if err := col.Update(update); err != nil {
		return fmt.Errorf("partial update of %s.%s: %w", table, column, err)
	}
	return s.AddColumn(table, column, col)
}

// extraColumns returns the registered column names of table.
func (s *Session) extraColumns(table string) []string {
	keys := s.columns.Filter(func(k ColumnKey, _ Column) bool { return k.Table == table })
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.Name
	}
	return names
}

// enter pushes key onto the evaluation stack. The returned func pops it.
func (s *Session) enter(key string) (func(), error) {
	s.evalMu.Lock()
	defer s.evalMu.Unlock()

	if i := slices.Index(s.evaluating, key); i >= 0 {
		path := append(slices.Clone(s.evaluating[i:]), key)
		return nil, &DependencyCycleError{Path: path}
	}
	s.evaluating = append(s.evaluating, key)
	return func() {
		s.evalMu.Lock()
		defer s.evalMu.Unlock()
		if i := slices.Index(s.evaluating, key); i >= 0 {
			s.evaluating = slices.Delete(s.evaluating, i, i+1)
		}
	}, nil
}

func kindOf(t Table) string {
	switch t.(type) {
	case *FrameTable:
		return "frame"
	case *FuncTable:
		return "func"
	case *SourceTable:
		return "source"
	}
	return "unknown"
}

func isAutocall(inj Injectable) bool {
	_, ok := inj.(*FuncInjectable)
	return ok
}
