// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"go.astrophena.name/srctidy/banner"
	"go.astrophena.name/srctidy/cli"
	"go.astrophena.name/srctidy/tidy"
	"go.astrophena.name/srctidy/txtar"
	"go.astrophena.name/srctidy/walk"
)

type config struct {
	exclusions []string
	headers    map[string][]byte // by extension
	templates  map[string]string // by extension
}

func parseConfig(path string) (*config, error) {
	cfg := &config{
		headers:   make(map[string][]byte),
		templates: make(map[string]string),
	}

	ar, err := txtar.ParseFile(path)
	if err != nil {
		return nil, err
	}

	for _, f := range ar.Files {
		if f.Name == "exclusions.json" {
			if err := json.Unmarshal(f.Data, &cfg.exclusions); err != nil {
				return nil, fmt.Errorf("%s: %w", f.Name, err)
			}
			continue
		}
		ext := walk.Ext(f.Name)
		if ext == "" {
			continue
		}
		ext = walk.NormalizeExt(ext)
		switch {
		case strings.HasPrefix(f.Name, "template."):
			cfg.templates[ext] = string(f.Data)
		case strings.HasPrefix(f.Name, "header."):
			cfg.headers[ext] = bytes.TrimSuffix(f.Data, []byte("\n"))
		}
	}

	return cfg, nil
}

// stage prepends the template for the file extension, formatted with the
// year the file was last modified, unless the file starts with the header.
type stage struct{ cfg *config }

func (s *stage) Name() string { return "addcopyright" }

func (s *stage) Exts() walk.ExtSet {
	var exts []string
	for ext := range maps.Keys(s.cfg.templates) {
		if _, ok := s.cfg.headers[ext]; ok {
			exts = append(exts, ext)
		}
	}
	slices.Sort(exts)
	return walk.NewExtSet(exts...)
}

func (s *stage) Apply(f *tidy.File) (tidy.Outcome, error) {
	ext := walk.NormalizeExt(f.Ext)
	if bytes.HasPrefix(f.Content, s.cfg.headers[ext]) {
		// Already has a copyright header.
		return tidy.Outcome{}, nil
	}
	info, err := os.Stat(f.Path)
	if err != nil {
		return tidy.Outcome{}, err
	}
	a := banner.Applier{Banner: fmt.Appendf(nil, s.cfg.templates[ext], info.ModTime().Year())}
	out, changed, err := a.Rewrite(f.Content)
	return tidy.Outcome{Content: out, Changed: changed}, err
}

func main() { cli.Main(new(app)) }

type app struct {
	dry        bool
	root       string
	configPath string
}

func (a *app) Flags(fs *flag.FlagSet) {
	fs.BoolVar(&a.dry, "dry", false, "Print the files that would have a copyright header added, without making changes.")
	fs.StringVar(&a.root, "root", ".", "Walk `dir` instead of the current directory.")
	fs.StringVar(&a.configPath, "config", ".addcopyright.txtar", "Read configuration from `file`.")
}

func (a *app) Run(ctx context.Context) error {
	env := cli.GetEnv(ctx)

	cfg, err := parseConfig(a.configPath)
	if err != nil {
		return err
	}

	r, err := tidy.Run(ctx, &stage{cfg: cfg}, tidy.Options{
		Root:   a.root,
		Walk:   walk.Options{Exclude: cfg.exclusions},
		DryRun: a.dry,
	})
	if err != nil {
		return err
	}
	r.Print(env.Stdout, cli.IsTerminalWriter(env.Stdout))
	return r.Err()
}
