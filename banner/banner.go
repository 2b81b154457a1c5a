// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package banner prepends license banners to source files.
package banner

import "bytes"

// Boost is the default banner: the Boost Software License notice used by
// the micron sources.
var Boost = []byte("//  Copyright (c) 2024- David Lucius Severus\n" +
	"//\n" +
	"//  Distributed under the Boost Software License, Version 1.0.\n" +
	"//  See accompanying file LICENSE_1_0.txt or copy at\n" +
	"//  http://www.boost.org/LICENSE_1_0.txt\n")

// DefaultExts are the extensions that get a banner unless configured
// otherwise.
var DefaultExts = []string{".cpp", ".hpp", ".h", ".c", ".hh", ".cc"}

// Applier prepends Banner to file content.
//
// By default content that already starts with Banner is left unchanged.
// Setting Duplicate prepends unconditionally, so every run adds another
// copy.
type Applier struct {
	Banner    []byte
	Duplicate bool
}

// Apply returns Banner followed by content. It never inspects content.
func (a Applier) Apply(content []byte) []byte {
	out := make([]byte, 0, len(a.Banner)+len(content))
	out = append(out, a.Banner...)
	return append(out, content...)
}

// Has reports whether content starts with Banner.
func (a Applier) Has(content []byte) bool {
	return len(a.Banner) > 0 && bytes.HasPrefix(content, a.Banner)
}

// Rewrite returns the content with the banner applied and whether it
// changed. It implements the same contract as the rewriters in package
// rewrite.
func (a Applier) Rewrite(content []byte) ([]byte, bool, error) {
	if len(a.Banner) == 0 {
		return content, false, nil
	}
	if !a.Duplicate && a.Has(content) {
		return content, false, nil
	}
	return a.Apply(content), true, nil
}
