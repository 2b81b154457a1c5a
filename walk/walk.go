// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package walk enumerates the files of a source tree.
//
// Enumeration is best-effort: a directory that cannot be read is skipped and
// reported through [Options.OnError] instead of stopping the walk.
package walk

import (
	"context"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.astrophena.name/srctidy/logger"
)

// Ext returns the extension of path: the suffix starting at the final dot
// of the base name. It returns "" for names without a dot, for dotfiles such
// as ".clang-format" and for names ending with a dot.
func Ext(path string) string {
	base := filepath.Base(path)
	i := strings.LastIndexByte(base, '.')
	if i <= 0 || i == len(base)-1 {
		return ""
	}
	return base[i:]
}

// ExtSet is an immutable set of file extensions. Membership is
// case-insensitive.
type ExtSet struct {
	m map[string]struct{}
}

// NewExtSet returns a set of the given extensions. A missing leading dot is
// added, so "hpp" and ".hpp" are the same member.
func NewExtSet(exts ...string) ExtSet {
	s := ExtSet{m: make(map[string]struct{}, len(exts))}
	for _, ext := range exts {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			continue
		}
		s.m[NormalizeExt(ext)] = struct{}{}
	}
	return s
}

// NormalizeExt lowercases ext and makes sure it starts with a dot.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Contains reports whether ext is a member of s.
func (s ExtSet) Contains(ext string) bool {
	if ext == "" {
		return false
	}
	_, ok := s.m[strings.ToLower(ext)]
	return ok
}

// Match reports whether the extension of path is a member of s.
func (s ExtSet) Match(path string) bool { return s.Contains(Ext(path)) }

// Len returns the number of members.
func (s ExtSet) Len() int { return len(s.m) }

// Sorted returns the members in lexical order.
func (s ExtSet) Sorted() []string {
	exts := make([]string, 0, len(s.m))
	for ext := range s.m {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// Options control a walk.
type Options struct {
	// Exts restricts the walk to files with one of these extensions.
	// An empty set matches every file.
	Exts ExtSet
	// Exclude lists slash-separated path suffixes that are never yielded
	// or descended into.
	Exclude []string
	// FollowSymlinks descends into directories reached through symbolic
	// links. Each real directory is visited once, so link cycles terminate.
	FollowSymlinks bool
	// OnError, if set, is called for every entry that is skipped because it
	// could not be read.
	OnError func(path string, err error)
}

func (o *Options) excluded(path string) bool {
	p := filepath.ToSlash(path)
	for _, ex := range o.Exclude {
		if ex != "" && strings.HasSuffix(p, ex) {
			return true
		}
	}
	return false
}

func (o *Options) skip(ctx context.Context, path string, err error) {
	logger.Debug(ctx, "skipping unreadable entry", slog.String("path", path), logger.Err(err))
	if o.OnError != nil {
		o.OnError(path, err)
	}
}

// Files returns a sequence of the files under root in lexical order.
//
// Symbolic links to files are yielded like regular files. Symbolic links to
// directories are only descended into when opts.FollowSymlinks is set. The
// walk stops when ctx is done.
func Files(ctx context.Context, root string, opts Options) iter.Seq[string] {
	return func(yield func(string) bool) {
		w := &walker{ctx: ctx, opts: &opts, yield: yield, seen: make(map[string]bool)}
		w.dir(root)
	}
}

type walker struct {
	ctx   context.Context
	opts  *Options
	yield func(string) bool
	seen  map[string]bool // real paths of visited directories
	done  bool
}

func (w *walker) dir(path string) {
	if real, err := filepath.EvalSymlinks(path); err == nil {
		if abs, err := filepath.Abs(real); err == nil {
			real = abs
		}
		if w.seen[real] {
			return
		}
		w.seen[real] = true
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		w.opts.skip(w.ctx, path, err)
		return
	}
	for _, e := range entries {
		if w.done || w.ctx.Err() != nil {
			w.done = true
			return
		}
		p := filepath.Join(path, e.Name())
		if w.opts.excluded(p) {
			continue
		}

		typ := e.Type()
		if typ&os.ModeSymlink != 0 {
			target, err := os.Stat(p)
			switch {
			case err != nil:
				// Dangling link.
				w.opts.skip(w.ctx, p, err)
				continue
			case target.IsDir():
				if w.opts.FollowSymlinks {
					w.dir(p)
				}
				continue
			case !target.Mode().IsRegular():
				continue
			}
			w.file(p)
			continue
		}

		switch {
		case typ.IsDir():
			w.dir(p)
		case typ.IsRegular():
			w.file(p)
		}
	}
}

func (w *walker) file(path string) {
	if w.opts.Exts.Len() > 0 && !w.opts.Exts.Match(path) {
		return
	}
	if !w.yield(path) {
		w.done = true
	}
}
