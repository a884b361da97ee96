package command

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/garagebook-go/internal/cli/config"
	"github.com/yndnr/garagebook-go/internal/cli/repl"
)

// shellCommand returns the interactive shell command. Lines typed in the
// shell run as garagebook-cli commands against one shared session.
func shellCommand(s *settings) *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "Start an interactive shell",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "history-file",
				Usage: "History file, empty to disable",
				Value: filepath.Join(config.HomeDir(), config.DirName, "history"),
			},
		},
		Action: func(c *cli.Context) error {
			if s.shared != nil {
				return usageError("already in the shell")
			}
			return runShell(c, s)
		},
	}
}

func runShell(c *cli.Context, s *settings) error {
	env := GetEnv(c)
	history := repl.NewHistory(c.String("history-file"))
	if err := history.Load(); err != nil {
		env.Logger.Warn("load shell history", "error", err)
	}

	r, err := repl.New(repl.Options{
		In:        s.in,
		Out:       s.out,
		Completer: repl.NewCompleter(commandPaths(c.App.Commands, "")...),
		History:   history,
		OnError:   func(err error) string { return "error: " + Describe(err) },
		Exec: func(ctx context.Context, args []string) error {
			nested := &settings{
				in:       s.in,
				out:      s.out,
				errOut:   s.errOut,
				connOpts: s.connOpts,
				shared:   env,
			}
			return nested.app().RunContext(ctx, append([]string{AppName}, args...))
		},
	})
	if err != nil {
		return err
	}

	runErr := r.Run(c.Context)
	if err := history.Save(); err != nil {
		env.Logger.Warn("save shell history", "error", err)
	}
	return runErr
}

// commandPaths flattens a command tree into "parent child" paths.
func commandPaths(cmds []*cli.Command, parent string) []string {
	var paths []string
	for _, cmd := range cmds {
		if cmd.Hidden {
			continue
		}
		path := cmd.Name
		if parent != "" {
			path = parent + " " + cmd.Name
		}
		paths = append(paths, path)
		paths = append(paths, commandPaths(cmd.Subcommands, path)...)
	}
	sort.Strings(paths)
	return paths
}
