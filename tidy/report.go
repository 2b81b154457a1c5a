// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package tidy

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/fatih/color"
)

// Report summarizes a run.
type Report struct {
	Stage  string
	Root   string
	DryRun bool
	Check  bool

	// Scanned is the number of eligible files found.
	Scanned int
	// Skipped counts files left alone because they are not text.
	Skipped int
	// Changes lists changed files, or files that would change in a dry
	// run, sorted by path.
	Changes []Change
	// Failures lists files that could not be processed, sorted by path.
	Failures []Failure
}

// Change describes a changed file.
type Change struct {
	Path      string
	NewPath   string // set for renames
	Rewritten bool   // content changed
}

// Failure describes a file that could not be processed.
type Failure struct {
	Path string
	Err  error
}

func (r *Report) sort() {
	slices.SortFunc(r.Changes, func(a, b Change) int { return strings.Compare(a.Path, b.Path) })
	slices.SortFunc(r.Failures, func(a, b Failure) int { return strings.Compare(a.Path, b.Path) })
}

// Err returns an error wrapping [ErrFailures] if any file failed, or
// [ErrWouldChange] if this was a check run and some file would change.
func (r *Report) Err() error {
	if n := len(r.Failures); n > 0 {
		return fmt.Errorf("%s: %w: %d of %d failed", r.Stage, ErrFailures, n, r.Scanned)
	}
	if r.Check && len(r.Changes) > 0 {
		return fmt.Errorf("%s: %w: %d files would change", r.Stage, ErrWouldChange, len(r.Changes))
	}
	return nil
}

// Print writes a human-readable summary of r to w. Paths are shown relative
// to the run root. Colors are used only if colored is set, regardless of
// the global color settings.
func (r *Report) Print(w io.Writer, colored bool) {
	var (
		header  = color.New(color.FgBlue, color.Bold)
		success = color.New(color.FgGreen)
		failure = color.New(color.FgRed)
		muted   = color.New(color.FgHiBlack)
	)
	for _, c := range []*color.Color{header, success, failure, muted} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	verb := "Changed"
	if r.DryRun {
		verb = "Would change"
	}

	fmt.Fprint(w, header.Sprintf("%s:", r.Stage))
	fmt.Fprintf(w, " %d scanned", r.Scanned)
	if r.Skipped > 0 {
		fmt.Fprintf(w, ", %d skipped", r.Skipped)
	}
	fmt.Fprintln(w)

	if len(r.Changes) > 0 {
		fmt.Fprintln(w, success.Sprintf("%s %d file(s):", verb, len(r.Changes)))
		for _, c := range r.Changes {
			switch {
			case c.NewPath != "":
				fmt.Fprintf(w, "  %s -> %s\n", relTo(r.Root, c.Path), relTo(r.Root, c.NewPath))
			default:
				fmt.Fprintf(w, "  %s\n", relTo(r.Root, c.Path))
			}
		}
	} else {
		fmt.Fprintln(w, muted.Sprint("Nothing to change."))
	}

	if len(r.Failures) > 0 {
		fmt.Fprintln(w, failure.Sprintf("Failed to process %d file(s):", len(r.Failures)))
		for _, f := range r.Failures {
			fmt.Fprintf(w, "  %s: %v\n", relTo(r.Root, f.Path), f.Err)
		}
	}
}
