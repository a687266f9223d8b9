package engine

// export.go - Writing tables after a run

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapsim/internal/config"
	"github.com/leapstack-labs/leapsim/pkg/frame"
)

// Export writes every configured export and returns the written paths.
func (e *Engine) Export(ctx context.Context) ([]string, error) {
	var written []string
	for _, exp := range e.scenario.Exports {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		f, err := e.exportFrame(exp)
		if err != nil {
			return written, fmt.Errorf("export %s: %w", exp.Table, err)
		}
		if err := WriteFrame(f, exp.Path, exp.Format); err != nil {
			return written, fmt.Errorf("export %s: %w", exp.Table, err)
		}
		e.logger.Info("exported table", "table", exp.Table, "path", exp.Path, "format", exp.Format, "rows", f.Len())
		written = append(written, exp.Path)
	}
	return written, nil
}

// Merge merges tables onto target along the registered broadcasts.
// The scenario is loaded first if needed.
func (e *Engine) Merge(ctx context.Context, target string, tables, columns []string) (*frame.Frame, error) {
	if err := e.Load(ctx); err != nil {
		return nil, err
	}
	return e.sess.MergeTableNames(target, withTarget(target, tables), columns...)
}

func (e *Engine) exportFrame(exp config.ExportConfig) (*frame.Frame, error) {
	if len(exp.Merge) > 0 {
		return e.sess.MergeTableNames(exp.Table, withTarget(exp.Table, exp.Merge), exp.Columns...)
	}
	t, err := e.sess.Table(exp.Table)
	if err != nil {
		return nil, err
	}
	return t.ToFrame(exp.Columns...)
}

// withTarget returns tables with target prepended unless already present.
func withTarget(target string, tables []string) []string {
	for _, t := range tables {
		if t == target {
			return tables
		}
	}
	return append([]string{target}, tables...)
}

// WriteFrame writes f to path in the given format, creating parent
// directories as needed.
func WriteFrame(f *frame.Frame, path, format string) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	switch format {
	case config.FormatParquet:
		return f.WriteParquet(out)
	case config.FormatCSV:
		return f.WriteCSV(out)
	case config.FormatYAML:
		return f.WriteYAML(out)
	}
	return fmt.Errorf("unknown export format %q", format)
}
