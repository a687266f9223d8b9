// Package script loads Starlark scenario scripts into a simulation session.
//
// Scripts register tables, columns, injectables, models and broadcasts
// through predeclared builtins. The parameter names of a script function
// are its dependency list: when the session evaluates it, each parameter
// receives the table or injectable of the same name.
package script

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/leapstack-labs/leapsim/internal/sim"
	"github.com/leapstack-labs/leapsim/pkg/frame"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Extension is the file extension of scenario scripts.
const Extension = ".star"

var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	Recursion:       true,
}

type module struct {
	globals starlark.StringDict
	err     error
}

// Loader executes scripts against one session. It is not safe for
// concurrent use.
type Loader struct {
	sess        *sim.Session
	logger      *slog.Logger
	pool        *ThreadPool
	predeclared starlark.StringDict
	dir         string
	modules     map[string]*module
	files       []string
}

// NewLoader creates a loader registering into sess.
// If logger is nil, a discard logger is used.
func NewLoader(sess *sim.Session, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	l := &Loader{
		sess:    sess,
		logger:  logger,
		modules: make(map[string]*module),
	}
	l.pool = NewThreadPool(0, func(thread *starlark.Thread) {
		thread.Print = l.print
		thread.Load = l.load
	})
	l.predeclared = l.builtins()
	return l
}

// Files returns the script files executed so far, in execution order.
func (l *Loader) Files() []string {
	out := make([]string, len(l.files))
	copy(out, l.files)
	return out
}

// LoadDir executes every script in dir in lexical order. Scripts already
// executed through load() are not executed twice.
func (l *Loader) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read scripts directory: %w", err)
	}
	l.dir = dir

	var paths []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != Extension {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)

	for _, path := range paths {
		if _, err := l.module(path); err != nil {
			return err
		}
	}
	l.logger.Debug("loaded scripts", slog.String("dir", dir), slog.Int("count", len(l.files)))
	return nil
}

// LoadFile executes a single script. load() statements resolve relative to
// the script's directory unless LoadDir set one.
func (l *Loader) LoadFile(path string) error {
	if l.dir == "" {
		l.dir = filepath.Dir(path)
	}
	_, err := l.module(path)
	return err
}

// LoadSource executes src under filename without touching the filesystem.
func (l *Loader) LoadSource(filename, src string) (starlark.StringDict, error) {
	return l.exec(filename, src)
}

// load implements the Starlark load() statement.
func (l *Loader) load(_ *starlark.Thread, name string) (starlark.StringDict, error) {
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.dir, name)
	}
	return l.module(path)
}

func (l *Loader) module(path string) (starlark.StringDict, error) {
	path = filepath.Clean(path)
	if m, ok := l.modules[path]; ok {
		if m == nil {
			return nil, fmt.Errorf("cycle in load graph at %s", path)
		}
		return m.globals, m.err
	}

	l.modules[path] = nil
	globals, err := l.exec(path, nil)
	l.modules[path] = &module{globals: globals, err: err}
	return globals, err
}

func (l *Loader) exec(filename string, src any) (starlark.StringDict, error) {
	thread := l.pool.Get(filename)
	defer l.pool.Put(thread)

	globals, err := starlark.ExecFileOptions(fileOptions, thread, filename, src, l.predeclared)
	if err != nil {
		return nil, fmt.Errorf("failed to execute %s: %w", filename, err)
	}
	l.files = append(l.files, filename)
	l.logger.Debug("executed script", slog.String("file", filename))
	return globals, nil
}

func (l *Loader) print(thread *starlark.Thread, msg string) {
	l.logger.Info(msg, slog.String("script", thread.Name))
}

// call invokes fn with one keyword argument per dependency.
func (l *Loader) call(fn starlark.Callable, deps []string, d sim.Deps) (starlark.Value, error) {
	kwargs := make([]starlark.Tuple, 0, len(deps))
	for _, name := range deps {
		v, err := d.Get(name)
		if err != nil {
			return nil, err
		}
		sv, err := ToStarlark(v)
		if err != nil {
			return nil, fmt.Errorf("dependency %s: %w", name, err)
		}
		kwargs = append(kwargs, starlark.Tuple{starlark.String(name), sv})
	}

	thread := l.pool.Get(fn.Name())
	defer l.pool.Put(thread)
	return starlark.Call(thread, fn, nil, kwargs)
}

func (l *Loader) tableFunc(fn starlark.Callable, deps []string) sim.TableFunc {
	return func(d sim.Deps) (*frame.Frame, error) {
		v, err := l.call(fn, deps, d)
		if err != nil {
			return nil, err
		}
		if v == starlark.None {
			return nil, nil
		}
		return toFrame(v)
	}
}

func (l *Loader) columnFunc(name string, fn starlark.Callable, deps []string) sim.ColumnFunc {
	return func(d sim.Deps) (*frame.Series, error) {
		v, err := l.call(fn, deps, d)
		if err != nil {
			return nil, err
		}
		if v == starlark.None {
			return nil, nil
		}
		return toSeries(name, v)
	}
}

func (l *Loader) injectableFunc(fn starlark.Callable, deps []string) sim.InjectableFunc {
	return func(d sim.Deps) (any, error) {
		v, err := l.call(fn, deps, d)
		if err != nil {
			return nil, err
		}
		return ToGo(v)
	}
}

func (l *Loader) modelFunc(fn starlark.Callable, deps []string) sim.ModelFunc {
	return func(d sim.Deps) error {
		_, err := l.call(fn, deps, d)
		return err
	}
}

// paramNames returns the parameter names of a script function.
func paramNames(fn starlark.Callable) ([]string, error) {
	f, ok := fn.(*starlark.Function)
	if !ok {
		return nil, fmt.Errorf("cannot infer dependencies of %s %s, pass deps", fn.Type(), fn.Name())
	}
	if f.HasVarargs() || f.HasKwargs() {
		return nil, fmt.Errorf("function %s: *args and **kwargs cannot be injected", f.Name())
	}
	names := make([]string, f.NumParams())
	for i := range names {
		names[i], _ = f.Param(i)
	}
	return names, nil
}
