// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package tidy

import (
	"path/filepath"
	"strings"

	"go.astrophena.name/srctidy/banner"
	"go.astrophena.name/srctidy/rewrite"
	"go.astrophena.name/srctidy/walk"
)

// File is a source file read during a run.
type File struct {
	Path    string
	Ext     string
	Content []byte // nil for shadowed links
	// Link is set when Path is a symbolic link.
	Link *Link
}

// Link describes a symbolic link found by the walk.
type Link struct {
	// Target is the link text as stored on disk.
	Target string
	// Shadowed is set when the target lies under the run root and is
	// processed by the same stage on its own. The content of a shadowed
	// link is not read, so it's never rewritten twice.
	Shadowed bool
}

// Outcome is what a [Stage] wants done with a file.
type Outcome struct {
	// Content replaces the file content when Changed is set.
	Content []byte
	Changed bool
	// NewPath, if not empty, is the path the file is renamed to.
	NewPath string
	// LinkTarget, if not empty, is the new text of a symbolic link.
	LinkTarget string
}

// Stage transforms a single file. Implementations must be safe for
// concurrent use.
type Stage interface {
	// Name identifies the stage in logs and reports.
	Name() string
	// Exts selects the files the stage runs on. An empty set means all
	// files.
	Exts() walk.ExtSet
	// Apply computes the outcome for f. It must not modify f.Content.
	Apply(f *File) (Outcome, error)
}

// RewriteStage applies a content rewriter to files with matching
// extensions.
type RewriteStage struct {
	StageName string
	Match     walk.ExtSet
	Rewriter  rewrite.Rewriter
}

// Name implements [Stage].
func (s *RewriteStage) Name() string { return s.StageName }

// Exts implements [Stage].
func (s *RewriteStage) Exts() walk.ExtSet { return s.Match }

// Apply implements [Stage].
func (s *RewriteStage) Apply(f *File) (Outcome, error) {
	if f.Link != nil && f.Link.Shadowed {
		return Outcome{}, nil
	}
	out, changed, err := s.Rewriter.Rewrite(f.Content)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Content: out, Changed: changed}, nil
}

// NormalizeIncludes returns a stage rewriting quoted include extensions to
// canonical in files with one of the source extensions.
func NormalizeIncludes(sources walk.ExtSet, canonical string) Stage {
	return &RewriteStage{
		StageName: "normalize-includes",
		Match:     sources,
		Rewriter:  rewrite.Includes{Ext: canonical},
	}
}

// ApplyLicense returns a stage prepending a banner to files with one of the
// given extensions.
func ApplyLicense(exts walk.ExtSet, a banner.Applier) Stage {
	return &RewriteStage{
		StageName: "apply-license",
		Match:     exts,
		Rewriter:  a,
	}
}

// FixExceptions returns a stage wrapping thrown exception types.
func FixExceptions(sources walk.ExtSet) Stage {
	return &RewriteStage{
		StageName: "fix-exceptions",
		Match:     sources,
		Rewriter:  rewrite.Throws{},
	}
}

// RenameStage renames header files to the canonical extension and rewrites
// their quoted includes. Files with a unit extension keep their name and
// only get the include rewrite.
//
// A symbolic link is renamed like a file. If its target is renamed in the
// same run, the link is pointed at the new name; otherwise the include
// rewrite is written through the link.
type RenameStage struct {
	Canonical string
	Sources   walk.ExtSet
	Units     walk.ExtSet
}

// Name implements [Stage].
func (s *RenameStage) Name() string { return "rename-to-canonical" }

// Exts implements [Stage].
func (s *RenameStage) Exts() walk.ExtSet { return s.Sources }

// Apply implements [Stage].
func (s *RenameStage) Apply(f *File) (Outcome, error) {
	if f.Link != nil && f.Link.Shadowed {
		var o Outcome
		if target, ok := s.Target(f.Path); ok {
			o.NewPath = target
		}
		if target, ok := s.Target(f.Link.Target); ok {
			o.LinkTarget = target
		}
		return o, nil
	}
	out, changed, err := rewrite.Includes{Ext: s.Canonical}.Rewrite(f.Content)
	if err != nil {
		return Outcome{}, err
	}
	o := Outcome{Content: out, Changed: changed}
	if target, ok := s.Target(f.Path); ok {
		o.NewPath = target
	}
	return o, nil
}

// Target returns the canonical name of path and whether path needs
// renaming.
func (s *RenameStage) Target(path string) (string, bool) {
	ext := walk.Ext(path)
	if ext == "" || strings.EqualFold(ext, s.Canonical) || s.Units.Contains(ext) {
		return "", false
	}
	return strings.TrimSuffix(path, ext) + s.Canonical, true
}

// relTo returns path relative to root for display, or path itself.
func relTo(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}
