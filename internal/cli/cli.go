// Package cli implements the crossfs subcommands on top of crossfs.FS and
// watch.Watcher.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/cross-org/fs/internal/logger"
	"github.com/cross-org/fs/pkg/crossfs"
	"github.com/cross-org/fs/pkg/crossfs/watch"
	domainerrors "github.com/cross-org/fs/pkg/errors"
)

// Usage describes the global flags and the commands.
const Usage = `usage: crossfs [global flags] <command> [flags] [args]

global flags:
  -env string          environment: development, staging, production
  -log-level string    debug, info, warn, error
  -log-format string   json, text, pretty
  -platform string     native, unix, portable, memory
  -concurrency int     maximum platform calls in flight
  -hash string         default hash algorithm
  -env-file string     path to .env file

commands:
`

// Deps are the services the commands run against.
type Deps struct {
	FS            *crossfs.FS
	Watcher       *watch.Watcher
	Logger        *logger.Logger
	HashAlgorithm string
	Stdout        io.Writer
}

// App dispatches command lines to commands.
type App struct {
	fs            *crossfs.FS
	watcher       *watch.Watcher
	logger        *logger.Logger
	hashAlgorithm string
	out           io.Writer
	commands      map[string]command
}

type command struct {
	summary string
	run     func(ctx context.Context, args []string) error
}

// New creates an App.
func New(d Deps) *App {
	if d.Logger == nil {
		d.Logger = logger.Discard()
	}
	if d.Stdout == nil {
		d.Stdout = io.Discard
	}
	a := &App{
		fs:            d.FS,
		watcher:       d.Watcher,
		logger:        d.Logger,
		hashAlgorithm: d.HashAlgorithm,
		out:           d.Stdout,
	}
	a.commands = map[string]command{
		"stat":      {"print the status of each path as JSON", a.stat(false)},
		"lstat":     {"like stat, without following symlinks", a.stat(true)},
		"exists":    {"print whether the path exists", a.predicate(a.fs.Exists)},
		"isdir":     {"print whether the path is a directory", a.predicate(a.fs.IsDir)},
		"isfile":    {"print whether the path is a regular file", a.predicate(a.fs.IsFile)},
		"issymlink": {"print whether the path is a symbolic link", a.predicate(a.fs.IsSymlink)},
		"find":      {"list entries below a root that match filters", a.find},
		"size":      {"print the size in bytes of a path", a.size(false)},
		"du":        {"print the disk usage of a path", a.size(true)},
		"hash":      {"print the digest of each file", a.hash},
		"which":     {"locate executables on PATH", a.which},
		"watch":     {"print change events as JSON lines until interrupted", a.watch},
	}
	return a
}

// Help returns the full usage text.
func (a *App) Help() string {
	var b strings.Builder
	b.WriteString(Usage)
	names := make([]string, 0, len(a.commands))
	for name := range a.commands {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(&b, "  %-10s %s\n", name, a.commands[name].summary)
	}
	return b.String()
}

// Run executes the command named by args[0].
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}
	name := args[0]
	if name == "help" {
		fmt.Fprint(a.out, a.Help())
		return nil
	}
	cmd, ok := a.commands[name]
	if !ok {
		return usageError(fmt.Sprintf("unknown command %q", name))
	}
	a.logger.Debug("running command", "command", name, "args", args[1:])
	return cmd.run(ctx, args[1:])
}

func usageError(msg string) error {
	return domainerrors.Validation(msg + " (run 'crossfs help')")
}

// newFlags creates the flag set of a command. Parse errors are returned,
// not printed.
func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return domainerrors.Validationf("%s: %v", fs.Name(), err)
	}
	return nil
}

func requireArgs(fs *flag.FlagSet, n int) ([]string, error) {
	if fs.NArg() < n {
		return nil, domainerrors.Validationf("%s: expected at least %d path argument(s)", fs.Name(), n)
	}
	return fs.Args(), nil
}
