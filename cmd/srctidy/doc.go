// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Srctidy normalizes the sources of a C and C++ tree.

Usage:

	$ srctidy [flags] <command> [flags] [roots...]

When no roots are given, the directory set by -root (by default the current
directory) is processed. Symbolic links to directories are not followed
unless -follow-symlinks is set.

Commands that change files:

	normalize-includes   rewrite quoted includes to the canonical extension
	rename-to-canonical  rename headers to the canonical extension and
	                     rewrite their includes; compiled units keep
	                     their names
	apply-license        prepend the license banner to files that lack it
	fix-exceptions       rewrite throw T("msg"); to throw except::exc<T>("msg");
	all                  rename-to-canonical followed by apply-license

With -dry nothing is written and the files that would change are listed.
With -check, srctidy additionally exits with status 1 if any file would
change, which makes it usable as a pre-commit check.

Commands that only report:

	check-includes    list system includes, each distinct one once
	check-namespaces  list lines qualified with std:: or the global namespace
	annotations       list lines marked with -tag (NOTE, TODO, FIXME,
	                  BUG or HACK)

	install-hook      install a Git pre-commit hook running srctidy -check all

Settings are read from a txtar archive, .srctidy.txtar by default (see
-config). It may contain these files, all optional:

	license.txt      banner prepended by apply-license
	license.json     JSON array of extensions that get the banner
	sources.json     JSON array of recognized source extensions
	units.json       JSON array of compiled-unit extensions
	exclusions.json  JSON array of path suffixes to leave alone

Files are processed concurrently (see -j). A file that cannot be processed
is reported and does not stop the others; srctidy then exits with status 1.
*/
package main

import (
	_ "embed"

	"go.astrophena.name/srctidy/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }
