// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package tidy runs normalization stages over a source tree.
//
// A run walks the tree, hands every eligible file to a [Stage] and writes
// the outcome back. Files are independent: they are processed by a bounded
// pool of workers, each write replaces the file atomically, and a failure
// in one file never stops the others. Failures are collected in the
// [Report] returned at the end.
package tidy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/go4org/hashtriemap"
	"github.com/natefinch/atomic"
	"golang.org/x/sync/errgroup"

	"go.astrophena.name/srctidy/logger"
	"go.astrophena.name/srctidy/rewrite"
	"go.astrophena.name/srctidy/syncx"
	"go.astrophena.name/srctidy/walk"
)

var (
	// ErrTargetExists is recorded when a rename would overwrite a file.
	ErrTargetExists = errors.New("rename target already exists")
	// ErrFailures is returned by [Report.Err] when some files failed.
	ErrFailures = errors.New("some files could not be processed")
	// ErrWouldChange is returned by [Report.Err] in check mode when files
	// are not normalized.
	ErrWouldChange = errors.New("files are not normalized")
)

// Options configure a run.
type Options struct {
	// Root is the directory to walk.
	Root string
	// Walk is passed to the walker. Its Exts field is replaced by the
	// stage's extensions.
	Walk walk.Options
	// DryRun computes and reports changes without writing anything.
	DryRun bool
	// Check implies DryRun and makes [Report.Err] fail when any file would
	// change.
	Check bool
	// Jobs is the number of files processed concurrently. Zero means
	// runtime.NumCPU.
	Jobs int
}

// Run applies stage to every eligible file under opts.Root.
//
// The tree is enumerated completely before the first file is changed, so
// renames made during the run never affect what it sees. The returned error
// is only non-nil when ctx was cancelled; per-file problems are in the
// report.
func Run(ctx context.Context, stage Stage, opts Options) (*Report, error) {
	if opts.Check {
		opts.DryRun = true
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	report := &Report{
		Stage:  stage.Name(),
		Root:   opts.Root,
		DryRun: opts.DryRun,
		Check:  opts.Check,
	}
	r := &runner{
		stage:  stage,
		opts:   opts,
		report: syncx.Protect(report),
	}
	r.root, _ = filepath.Abs(opts.Root)

	wopts := opts.Walk
	wopts.Exts = stage.Exts()

	logger.Debug(ctx, "starting run",
		slog.String("stage", stage.Name()),
		slog.String("root", opts.Root),
		slog.Bool("dry_run", opts.DryRun),
		slog.Int("jobs", jobs),
	)

	paths := slices.Collect(walk.Files(ctx, opts.Root, wopts))
	report.Scanned = len(paths)

	var g errgroup.Group
	g.SetLimit(jobs)
	for _, path := range paths {
		g.Go(func() error {
			r.process(ctx, path)
			return nil
		})
	}
	g.Wait()

	report.sort()
	logger.Debug(ctx, "run finished",
		slog.String("stage", stage.Name()),
		slog.Int("scanned", report.Scanned),
		slog.Int("changed", len(report.Changes)),
		slog.Int("failed", len(report.Failures)),
	)
	return report, ctx.Err()
}

type runner struct {
	stage Stage
	opts  Options
	root  string // absolute

	// claimed holds rename targets taken during this run, so two files
	// renamed to the same name are caught even in a dry run.
	claimed hashtriemap.HashTrieMap[string, string]

	report syncx.Protected[*Report]
}

func (r *runner) process(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}

	link, err := r.link(path)
	if err != nil {
		r.fail(ctx, path, err)
		return
	}
	f := &File{Path: path, Ext: walk.Ext(path), Link: link}
	if link == nil || !link.Shadowed {
		f.Content, err = os.ReadFile(path)
		if err != nil {
			r.fail(ctx, path, err)
			return
		}
	}

	o, err := r.stage.Apply(f)
	if errors.Is(err, rewrite.ErrNotText) {
		logger.Debug(ctx, "skipping file", slog.String("path", path), logger.Err(err))
		r.report.WriteAccess(func(rep *Report) { rep.Skipped++ })
		return
	}
	if err != nil {
		r.fail(ctx, path, err)
		return
	}
	if !o.Changed && o.NewPath == "" && o.LinkTarget == "" {
		return
	}

	if o.NewPath != "" {
		if prev, loaded := r.claimed.LoadOrStore(o.NewPath, path); loaded {
			r.fail(ctx, path, fmt.Errorf("%w: %s is also renamed from %s", ErrTargetExists, o.NewPath, prev))
			return
		}
		if _, err := os.Lstat(o.NewPath); err == nil {
			r.fail(ctx, path, fmt.Errorf("%w: %s", ErrTargetExists, o.NewPath))
			return
		}
	}

	c := Change{Path: path, NewPath: o.NewPath, Rewritten: o.Changed}
	if !r.opts.DryRun {
		if err := writeBack(f, o); err != nil {
			r.fail(ctx, path, err)
			return
		}
	}

	logger.Debug(ctx, "changed file",
		slog.String("stage", r.stage.Name()),
		slog.String("path", path),
		slog.String("new_path", o.NewPath),
		slog.String("link_target", o.LinkTarget),
		slog.Bool("dry_run", r.opts.DryRun),
	)
	r.report.WriteAccess(func(rep *Report) { rep.Changes = append(rep.Changes, c) })
}

// link describes path if it is a symbolic link, and returns nil otherwise.
// The target is resolved lexically, as it may already have been renamed by
// another worker.
func (r *runner) link(path string) (*Link, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		return nil, err
	}
	if fi.Mode()&os.ModeSymlink == 0 {
		return nil, nil
	}
	target, err := os.Readlink(path)
	if err != nil {
		return nil, err
	}
	resolved := target
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(filepath.Dir(path), resolved)
	}
	resolved, err = filepath.Abs(resolved)
	if err != nil {
		return nil, err
	}
	exts := r.stage.Exts()
	inRoot := false
	if rel, err := filepath.Rel(r.root, resolved); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		inRoot = true
	}
	return &Link{
		Target:   target,
		Shadowed: inRoot && (exts.Len() == 0 || exts.Match(resolved)),
	}, nil
}

// writeBack applies o to the file on disk. New content is written first and
// the rename comes last, so an interrupted change leaves the file under its
// old name.
func writeBack(f *File, o Outcome) error {
	if o.Changed {
		target := f.Path
		if f.Link != nil {
			// Write through symbolic links instead of replacing them.
			real, err := filepath.EvalSymlinks(f.Path)
			if err != nil {
				return fmt.Errorf("resolving %s: %w", f.Path, err)
			}
			target = real
		}
		if err := atomic.WriteFile(target, bytes.NewReader(o.Content)); err != nil {
			return fmt.Errorf("writing %s: %w", target, err)
		}
	}

	var err error
	switch {
	case o.LinkTarget != "":
		err = relink(f.Path, o.NewPath, o.LinkTarget)
	case o.NewPath != "":
		err = rename(f.Path, o.NewPath)
	}
	if err != nil && o.Changed {
		return fmt.Errorf("content of %s was rewritten, but: %w", f.Path, err)
	}
	return err
}

// rename moves oldpath to newpath without overwriting an existing file.
func rename(oldpath, newpath string) error {
	err := os.Link(oldpath, newpath)
	switch {
	case err == nil:
		if err := os.Remove(oldpath); err != nil {
			return fmt.Errorf("renaming %s: %w", oldpath, err)
		}
		return nil
	case errors.Is(err, fs.ErrExist):
		return fmt.Errorf("%w: %s", ErrTargetExists, newpath)
	}

	// Hard links are not supported everywhere; fall back to a checked
	// rename.
	if _, err := os.Lstat(newpath); err == nil {
		return fmt.Errorf("%w: %s", ErrTargetExists, newpath)
	}
	if err := os.Rename(oldpath, newpath); err != nil {
		return fmt.Errorf("renaming %s: %w", oldpath, err)
	}
	return nil
}

// relink points the symbolic link at path to target. If newpath is set the
// link is moved there; an existing newpath is never replaced.
func relink(path, newpath, target string) error {
	if newpath != "" {
		if err := os.Symlink(target, newpath); err != nil {
			if errors.Is(err, fs.ErrExist) {
				return fmt.Errorf("%w: %s", ErrTargetExists, newpath)
			}
			return fmt.Errorf("relinking %s: %w", path, err)
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("relinking %s: %w", path, err)
		}
		return nil
	}

	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".relink")
	if err := os.Symlink(target, tmp); err != nil {
		return fmt.Errorf("relinking %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("relinking %s: %w", path, err)
	}
	return nil
}

func (r *runner) fail(ctx context.Context, path string, err error) {
	logger.Warn(ctx, "failed to process file",
		slog.String("stage", r.stage.Name()),
		slog.String("path", path),
		logger.Err(err),
	)
	r.report.WriteAccess(func(rep *Report) {
		rep.Failures = append(rep.Failures, Failure{Path: path, Err: err})
	})
}
