// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Addcopyright adds a copyright header to the files of this repository.

It walks the tree and, for every file whose extension has both a template
and a header configured, prepends the template unless the file already
starts with the header. The year in the template is the year the file was
last modified.

The tool is configured through a .addcopyright.txtar file in the working
directory (see -config). This file is a txtar archive and can contain the
following files:

  - exclusions.json: A JSON array of path suffixes to exclude from
    processing.
  - template.{ext}: A template for the copyright header for a specific
    file extension (e.g., template.go). The template can contain a
    formatting verb %d for the year.
  - header.{ext}: A string that identifies an existing copyright header
    for a specific file extension (e.g., header.go). If a file starts with
    this string, it's considered to already have a copyright header.
*/
package main

import (
	_ "embed"

	"go.astrophena.name/srctidy/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }
