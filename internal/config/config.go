// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package config loads srctidy configuration.
//
// Configuration is stored in a txtar archive, by default .srctidy.txtar in
// the working directory. All members are optional:
//
//   - license.txt: the banner prepended by apply-license, byte for byte.
//   - license.json: JSON array of extensions that get the banner.
//   - sources.json: JSON array of recognized source extensions.
//   - units.json: JSON array of compiled-unit extensions that are never
//     renamed.
//   - exclusions.json: JSON array of path suffixes to skip.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"go.astrophena.name/srctidy/banner"
	"go.astrophena.name/srctidy/rewrite"
	"go.astrophena.name/srctidy/txtar"
	"go.astrophena.name/srctidy/walk"
)

// DefaultFile is the configuration file looked up when none is given.
const DefaultFile = ".srctidy.txtar"

// ErrInvalid is returned for configuration that cannot be used.
var ErrInvalid = errors.New("invalid configuration")

var (
	defaultSources = []string{".c", ".cc", ".cpp", ".h", ".hh", ".hpp", ".hxx", ".asm", ".s"}
	defaultUnits   = []string{".cpp", ".cc", ".asm", ".s"}
)

// Config holds the settings shared by all commands.
type Config struct {
	// Canonical is the header extension, with a leading dot.
	Canonical string
	// Banner is prepended by the license stage.
	Banner []byte
	// LicenseExts selects files that get the banner.
	LicenseExts walk.ExtSet
	// Sources are the recognized source extensions.
	Sources walk.ExtSet
	// Units are source extensions of compiled units, which keep their names.
	Units walk.ExtSet
	// Exclude lists path suffixes that are never touched.
	Exclude []string
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Canonical:   rewrite.DefaultExt,
		Banner:      banner.Boost,
		LicenseExts: walk.NewExtSet(banner.DefaultExts...),
		Sources:     walk.NewExtSet(defaultSources...),
		Units:       walk.NewExtSet(defaultUnits...),
	}
}

// Load reads the configuration archive at path on top of [Default]. A
// missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	ar, err := txtar.ParseFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := cfg.apply(ar); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
	}
	return cfg, nil
}

func (cfg *Config) apply(ar *txtar.Archive) error {
	for _, f := range ar.Files {
		switch f.Name {
		case "license.txt":
			cfg.Banner = f.Data
		case "license.json":
			exts, err := extList(f)
			if err != nil {
				return err
			}
			cfg.LicenseExts = walk.NewExtSet(exts...)
		case "sources.json":
			exts, err := extList(f)
			if err != nil {
				return err
			}
			cfg.Sources = walk.NewExtSet(exts...)
		case "units.json":
			exts, err := extList(f)
			if err != nil {
				return err
			}
			cfg.Units = walk.NewExtSet(exts...)
		case "exclusions.json":
			if err := json.Unmarshal(f.Data, &cfg.Exclude); err != nil {
				return fmt.Errorf("%s: %w", f.Name, err)
			}
		default:
			return fmt.Errorf("unknown member %q", f.Name)
		}
	}
	return nil
}

func extList(f txtar.File) ([]string, error) {
	var exts []string
	if err := json.Unmarshal(f.Data, &exts); err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name, err)
	}
	return exts, nil
}

// SetCanonical validates ext and makes it the canonical extension.
func (cfg *Config) SetCanonical(ext string) error {
	ext = walk.NormalizeExt(ext)
	if ext == "." || walk.Ext("x"+ext) != ext {
		return fmt.Errorf("%w: bad canonical extension %q", ErrInvalid, ext)
	}
	cfg.Canonical = ext
	return nil
}

// CheckRoot makes sure root is an existing directory.
func CheckRoot(root string) error {
	fi, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("%w: root %q: %v", ErrInvalid, root, err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("%w: root %q is not a directory", ErrInvalid, root)
	}
	return nil
}
