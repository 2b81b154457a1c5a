// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package scan reports lines of interest in a source tree without modifying
// it.
package scan

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/go4org/hashtriemap"
	"golang.org/x/sync/errgroup"

	"go.astrophena.name/srctidy/logger"
	"go.astrophena.name/srctidy/syncx"
	"go.astrophena.name/srctidy/walk"
)

// Tags are the annotation tags accepted by [Annotations].
var Tags = []string{"NOTE", "TODO", "FIXME", "BUG", "HACK"}

// ErrUnknownTag is returned by [Annotations] for a tag not in [Tags].
var ErrUnknownTag = errors.New("unknown annotation tag")

// Finding is a reported line.
type Finding struct {
	Path string
	Line int    // 1-based
	Text string // trimmed line
}

func (f Finding) compare(o Finding) int {
	return cmp.Or(strings.Compare(f.Path, o.Path), cmp.Compare(f.Line, o.Line))
}

// Check selects lines. Match receives each line with surrounding white
// space removed.
type Check struct {
	Name  string
	Match func(line string) bool
	// Unique reports every distinct line once, at its first occurrence in
	// path order.
	Unique bool
}

// SystemIncludes reports angle-bracket include directives, each distinct
// directive once.
func SystemIncludes() Check {
	return Check{
		Name: "check-includes",
		Match: func(line string) bool {
			return strings.HasPrefix(line, "#include <") && strings.HasSuffix(line, ">")
		},
		Unique: true,
	}
}

// Namespaces reports lines that qualify names with std:: or the global
// namespace. Line comments and std::initializer_list are ignored.
func Namespaces() Check {
	return Check{
		Name: "check-namespaces",
		Match: func(line string) bool {
			if strings.HasPrefix(line, "//") || strings.Contains(line, "std::initializer_list") {
				return false
			}
			return strings.Contains(line, "std::") || strings.Contains(line, " ::")
		},
	}
}

// Annotations reports lines containing tag followed by a colon, as in
// "TODO:".
func Annotations(tag string) (Check, error) {
	if !slices.Contains(Tags, tag) {
		return Check{}, fmt.Errorf("%w %q (want one of %s)", ErrUnknownTag, tag, strings.Join(Tags, ", "))
	}
	marker := tag + ":"
	return Check{
		Name:  "annotations",
		Match: func(line string) bool { return strings.Contains(line, marker) },
	}, nil
}

// Options configure [Run].
type Options struct {
	Walk walk.Options
	// Jobs is the number of files read concurrently. Zero means
	// runtime.NumCPU.
	Jobs int
}

// Result holds the findings of a run.
type Result struct {
	Check    string
	Root     string
	Scanned  int
	Skipped  int
	Findings []Finding // sorted by path and line
}

// Run applies c to every file under root selected by opts.Walk.
func Run(ctx context.Context, root string, c Check, opts Options) (*Result, error) {
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	res := &Result{Check: c.Name, Root: root}
	s := &scanner{check: c, res: syncx.Protect(res)}

	var g errgroup.Group
	g.SetLimit(jobs)
	for path := range walk.Files(ctx, root, opts.Walk) {
		s.res.WriteAccess(func(res *Result) { res.Scanned++ })
		g.Go(func() error {
			s.file(ctx, path)
			return nil
		})
	}
	g.Wait()

	if c.Unique {
		for _, first := range s.first.All() {
			first.ReadAccess(func(f *Finding) { res.Findings = append(res.Findings, *f) })
		}
	}
	slices.SortFunc(res.Findings, Finding.compare)
	return res, ctx.Err()
}

type scanner struct {
	check Check

	// first maps a line to its earliest occurrence, for unique checks.
	first hashtriemap.HashTrieMap[string, *syncx.Protected[*Finding]]

	res syncx.Protected[*Result]
}

func (s *scanner) file(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	b, err := os.ReadFile(path)
	if err == nil && !utf8.Valid(b) {
		err = errors.New("not valid UTF-8 text")
	}
	if err != nil {
		logger.Debug(ctx, "skipping file", slog.String("path", path), logger.Err(err))
		s.res.WriteAccess(func(res *Result) { res.Skipped++ })
		return
	}

	var found []Finding
	n := 0
	for line := range strings.Lines(string(b)) {
		n++
		text := strings.TrimSpace(line)
		if !s.check.Match(text) {
			continue
		}
		f := Finding{Path: path, Line: n, Text: text}
		if s.check.Unique {
			s.keepFirst(f)
			continue
		}
		found = append(found, f)
	}
	if len(found) == 0 {
		return
	}
	s.res.WriteAccess(func(res *Result) { res.Findings = append(res.Findings, found...) })
}

func (s *scanner) keepFirst(f Finding) {
	first := syncx.Protect(&f)
	actual, loaded := s.first.LoadOrStore(f.Text, &first)
	if !loaded {
		return
	}
	actual.WriteAccess(func(earliest *Finding) {
		if f.compare(*earliest) < 0 {
			*earliest = f
		}
	})
}

// Print writes findings to w as "path: text", one per line, with paths
// relative to the root. Paths are red if colored is set.
func (r *Result) Print(w io.Writer, colored bool) {
	red := color.New(color.FgRed)
	if colored {
		red.EnableColor()
	} else {
		red.DisableColor()
	}
	for _, f := range r.Findings {
		path := f.Path
		if rel, err := filepath.Rel(r.Root, path); err == nil && !strings.HasPrefix(rel, "..") {
			path = rel
		}
		fmt.Fprintf(w, "%s: %s\n", red.Sprint(path), f.Text)
	}
}
