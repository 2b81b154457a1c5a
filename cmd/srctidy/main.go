// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/natefinch/atomic"

	"go.astrophena.name/srctidy/banner"
	"go.astrophena.name/srctidy/cli"
	"go.astrophena.name/srctidy/internal/config"
	"go.astrophena.name/srctidy/logger"
	"go.astrophena.name/srctidy/scan"
	"go.astrophena.name/srctidy/tidy"
	"go.astrophena.name/srctidy/walk"
)

var (
	errFindings   = errors.New("findings reported")
	errHookExists = errors.New("pre-commit hook already exists (use -force to replace it)")
	errNoGit      = errors.New("not a Git checkout")
)

func main() { cli.Main(newApp()) }

type app struct {
	root       string
	dry        bool
	check      bool
	jobs       int
	ext        string
	follow     bool
	configPath string
	duplicate  bool
	tag        string
	force      bool
}

func newApp() *app {
	return &app{
		root:       ".",
		ext:        "hpp",
		configPath: config.DefaultFile,
	}
}

// Flags registers the flags with the current values as defaults, so a
// second registration after the command name keeps what was already set.
func (a *app) Flags(fs *flag.FlagSet) {
	fs.StringVar(&a.root, "root", a.root, "Process `dir` when no roots are given.")
	fs.BoolVar(&a.dry, "dry", a.dry, "Report what would change without writing anything.")
	fs.BoolVar(&a.dry, "dry-run", a.dry, "Alias for -dry.")
	fs.BoolVar(&a.check, "check", a.check, "Like -dry, but fail if anything would change or is reported.")
	fs.IntVar(&a.jobs, "j", a.jobs, "Process `n` files concurrently (0 means one per CPU).")
	fs.StringVar(&a.ext, "ext", a.ext, "Canonical header `extension`.")
	fs.BoolVar(&a.follow, "follow-symlinks", a.follow, "Descend into directories reached through symbolic links.")
	fs.StringVar(&a.configPath, "config", a.configPath, "Read configuration from `file`.")
	fs.BoolVar(&a.duplicate, "duplicate", a.duplicate, "Prepend the license banner even if the file already starts with it.")
	fs.StringVar(&a.tag, "tag", a.tag, "Annotation `tag` to look for (one of "+strings.Join(scan.Tags, ", ")+").")
	fs.BoolVar(&a.force, "force", a.force, "Replace an existing pre-commit hook.")
}

type command func(ctx context.Context, a *app, cfg *config.Config, roots []string) error

var commands = map[string]command{
	"normalize-includes": stageCommand(func(_ *app, cfg *config.Config) []tidy.Stage {
		return []tidy.Stage{tidy.NormalizeIncludes(cfg.Sources, cfg.Canonical)}
	}),
	"rename-to-canonical": stageCommand(func(_ *app, cfg *config.Config) []tidy.Stage {
		return []tidy.Stage{renameStage(cfg)}
	}),
	"apply-license": stageCommand(func(a *app, cfg *config.Config) []tidy.Stage {
		return []tidy.Stage{licenseStage(a, cfg)}
	}),
	"fix-exceptions": stageCommand(func(_ *app, cfg *config.Config) []tidy.Stage {
		return []tidy.Stage{tidy.FixExceptions(cfg.Sources)}
	}),
	"all": stageCommand(func(a *app, cfg *config.Config) []tidy.Stage {
		return []tidy.Stage{renameStage(cfg), licenseStage(a, cfg)}
	}),
	"check-includes": scanCommand(func(*app) (scan.Check, error) {
		return scan.SystemIncludes(), nil
	}),
	"check-namespaces": scanCommand(func(*app) (scan.Check, error) {
		return scan.Namespaces(), nil
	}),
	"annotations": scanCommand(func(a *app) (scan.Check, error) {
		return scan.Annotations(a.tag)
	}),
	"install-hook": installHook,
}

func commandNames() string {
	return strings.Join(slices.Sorted(maps.Keys(commands)), ", ")
}

func (a *app) Run(ctx context.Context) error {
	env := cli.GetEnv(ctx)
	if len(env.Args) == 0 {
		return fmt.Errorf("%w: no command given (want one of %s)", cli.ErrInvalidArgs, commandNames())
	}
	name, args := env.Args[0], env.Args[1:]
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("%w: unknown command %q (want one of %s)", cli.ErrInvalidArgs, name, commandNames())
	}

	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.SetOutput(env.Stderr)
	a.Flags(flags)
	verbose := flags.Bool("v", false, "Enable debug logging.")
	if err := flags.Parse(args); err != nil {
		return cli.Silent(err)
	}
	if *verbose {
		logger.LevelVar(ctx).Set(slog.LevelDebug)
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if err := cfg.SetCanonical(a.ext); err != nil {
		return err
	}

	roots := flags.Args()
	if len(roots) == 0 {
		roots = []string{a.root}
	}
	for _, root := range roots {
		if err := config.CheckRoot(root); err != nil {
			return err
		}
	}

	logger.Debug(ctx, "running command",
		slog.String("command", name),
		slog.Any("roots", roots),
		slog.String("config", a.configPath),
	)
	return cmd(ctx, a, cfg, roots)
}

func (a *app) walkOptions(cfg *config.Config) walk.Options {
	return walk.Options{Exclude: cfg.Exclude, FollowSymlinks: a.follow}
}

func colored(env *cli.Env) bool {
	return allowsColor(cli.IsTerminalWriter(env.Stdout), env.Getenv)
}

func allowsColor(terminal bool, getenv func(string) string) bool {
	return terminal && getenv("NO_COLOR") == "" && getenv("TERM") != "dumb"
}

func renameStage(cfg *config.Config) tidy.Stage {
	return &tidy.RenameStage{Canonical: cfg.Canonical, Sources: cfg.Sources, Units: cfg.Units}
}

func licenseStage(a *app, cfg *config.Config) tidy.Stage {
	return tidy.ApplyLicense(cfg.LicenseExts, banner.Applier{Banner: cfg.Banner, Duplicate: a.duplicate})
}

// stageCommand runs the stages built by build over every root, in order.
func stageCommand(build func(*app, *config.Config) []tidy.Stage) command {
	return func(ctx context.Context, a *app, cfg *config.Config, roots []string) error {
		env := cli.GetEnv(ctx)
		var errs []error
		for _, root := range roots {
			for _, stage := range build(a, cfg) {
				r, err := tidy.Run(ctx, stage, tidy.Options{
					Root:   root,
					Walk:   a.walkOptions(cfg),
					DryRun: a.dry,
					Check:  a.check,
					Jobs:   a.jobs,
				})
				if err != nil {
					return err
				}
				r.Print(env.Stdout, colored(env))
				if err := r.Err(); err != nil {
					errs = append(errs, err)
				}
			}
		}
		return errors.Join(errs...)
	}
}

// scanCommand prints the findings of a check over every root.
func scanCommand(build func(*app) (scan.Check, error)) command {
	return func(ctx context.Context, a *app, cfg *config.Config, roots []string) error {
		env := cli.GetEnv(ctx)
		check, err := build(a)
		if err != nil {
			return fmt.Errorf("%w: %w", cli.ErrInvalidArgs, err)
		}
		wopts := a.walkOptions(cfg)
		wopts.Exts = cfg.Sources

		found := 0
		for _, root := range roots {
			r, err := scan.Run(ctx, root, check, scan.Options{Walk: wopts, Jobs: a.jobs})
			if err != nil {
				return err
			}
			r.Print(env.Stdout, colored(env))
			found += len(r.Findings)
		}
		if found == 0 {
			env.Logf("%s: nothing found", check.Name)
		}
		if a.check && found > 0 {
			return fmt.Errorf("%s: %w: %d line(s)", check.Name, errFindings, found)
		}
		return nil
	}
}

const hookScript = `#!/bin/sh
# Installed by srctidy install-hook.
exec srctidy -check all
`

func installHook(ctx context.Context, a *app, _ *config.Config, roots []string) error {
	env := cli.GetEnv(ctx)
	for _, root := range roots {
		gitDir := filepath.Join(root, ".git")
		if fi, err := os.Stat(gitDir); err != nil || !fi.IsDir() {
			return fmt.Errorf("%w: %s", errNoGit, root)
		}
		hooks := filepath.Join(gitDir, "hooks")
		if err := os.MkdirAll(hooks, 0o755); err != nil {
			return err
		}
		path := filepath.Join(hooks, "pre-commit")
		_, err := os.Lstat(path)
		switch {
		case err == nil && !a.force:
			return fmt.Errorf("%w: %s", errHookExists, path)
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return err
		}
		if a.dry || a.check {
			fmt.Fprintf(env.Stdout, "Would install pre-commit hook at %s.\n", path)
			continue
		}
		if err := atomic.WriteFile(path, bytes.NewReader([]byte(hookScript))); err != nil {
			return err
		}
		if err := os.Chmod(path, 0o755); err != nil {
			return err
		}
		fmt.Fprintf(env.Stdout, "Installed pre-commit hook at %s.\n", path)
	}
	return nil
}
