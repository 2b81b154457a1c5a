// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package rewrite implements the text rewrites srctidy applies to source
// files.
//
// Every rewrite is a single regular expression substitution. Matching is
// textual: nothing here understands C++ beyond the shape of the lines it
// looks for.
package rewrite

import (
	"bytes"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ErrNotText is returned for content that is not valid UTF-8. Such files are
// left alone rather than risk corrupting them with a textual rewrite.
var ErrNotText = errors.New("content is not valid UTF-8 text")

// Rewriter transforms file content.
type Rewriter interface {
	// Rewrite returns the new content and whether it differs from src.
	Rewrite(src []byte) ([]byte, bool, error)
}

// DefaultExt is the canonical header extension.
const DefaultExt = ".hpp"

// includeRe matches a quoted include. Groups: the `#include "` prefix, the
// stem, the extension including its dot, and the closing quote.
var includeRe = regexp.MustCompile(`(#include\s*")([^"]+)(\.[^"]+)(")`)

// Directive is a quoted include directive found in a file.
type Directive struct {
	Prefix string // `#include "`, including any spaces
	Stem   string // file name without the extension
	Ext    string // extension, with the leading dot
	Suffix string // closing quote
}

// String reassembles the directive.
func (d Directive) String() string { return d.Prefix + d.Stem + d.Ext + d.Suffix }

// Parse returns the quoted include directives of src in order of
// appearance. Angle-bracket includes are not returned.
func Parse(src []byte) []Directive {
	var ds []Directive
	for _, m := range includeRe.FindAllSubmatch(src, -1) {
		ds = append(ds, Directive{
			Prefix: string(m[1]),
			Stem:   string(m[2]),
			Ext:    string(m[3]),
			Suffix: string(m[4]),
		})
	}
	return ds
}

// IncludeExtension rewrites the extension of every quoted include in text to
// ext. Everything except the extension token is kept byte for byte.
func IncludeExtension(text, ext string) string {
	return includeRe.ReplaceAllString(text, "${1}${2}"+escape(canonical(ext))+"${4}")
}

// Includes rewrites quoted include directives to a canonical extension.
type Includes struct {
	// Ext is the canonical extension. DefaultExt is used if empty.
	Ext string
}

// Rewrite implements [Rewriter].
func (r Includes) Rewrite(src []byte) ([]byte, bool, error) {
	if !utf8.Valid(src) {
		return nil, false, ErrNotText
	}
	out := includeRe.ReplaceAll(src, []byte("${1}${2}"+escape(canonical(r.Ext))+"${4}"))
	if bytes.Equal(out, src) {
		return src, false, nil
	}
	return out, true, nil
}

func canonical(ext string) string {
	if ext == "" {
		return DefaultExt
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// escape protects literal dollar signs in a replacement template.
func escape(s string) string { return strings.ReplaceAll(s, "$", "$$") }

// throwRe matches `throw T("message");` with optional spaces. T may carry
// namespaces and template arguments; the message may contain escaped quotes.
var throwRe = regexp.MustCompile(`throw\s+([a-zA-Z0-9_:<>]+)\s*\(\s*"((?:[^"\\]|\\.)*)"\s*\)\s*;`)

const excPrefix = "except::exc<"

// Throws wraps thrown exception types into except::exc<T>. Types that are
// already wrapped are left as they are, so the rewrite is idempotent.
type Throws struct{}

// Rewrite implements [Rewriter].
func (Throws) Rewrite(src []byte) ([]byte, bool, error) {
	if !utf8.Valid(src) {
		return nil, false, ErrNotText
	}
	out := throwRe.ReplaceAllFunc(src, func(m []byte) []byte {
		sub := throwRe.FindSubmatch(m)
		typ, msg := sub[1], sub[2]
		if bytes.HasPrefix(typ, []byte(excPrefix)) {
			return m
		}
		var b bytes.Buffer
		b.WriteString("throw " + excPrefix)
		b.Write(typ)
		b.WriteString(`>("`)
		b.Write(msg)
		b.WriteString(`");`)
		return b.Bytes()
	})
	if bytes.Equal(out, src) {
		return src, false, nil
	}
	return out, true, nil
}
