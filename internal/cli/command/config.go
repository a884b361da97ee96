package command

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/yndnr/garagebook-go/internal/cli/config"
	"github.com/yndnr/garagebook-go/internal/cli/output"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "CLI configuration",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective configuration",
				Action: configShow,
			},
			{
				Name:   "path",
				Usage:  "Print the configuration file path",
				Action: configPath,
			},
			{
				Name:  "init",
				Usage: "Write the effective configuration to the config file",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Overwrite an existing file",
					},
				},
				Action: configInit,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	env := GetEnv(c)
	if env == nil {
		return fmt.Errorf("cli environment not initialized")
	}
	if env.Format == output.FormatJSON {
		return render(c, env.Config)
	}
	// Nested sections do not fit a table; show the file format instead.
	enc := yaml.NewEncoder(c.App.Writer)
	enc.SetIndent(2)
	if err := enc.Encode(env.Config); err != nil {
		return err
	}
	return enc.Close()
}

func configPath(c *cli.Context) error {
	env := GetEnv(c)
	if env == nil {
		return fmt.Errorf("cli environment not initialized")
	}
	fmt.Fprintln(c.App.Writer, env.ConfigPath)
	return nil
}

func configInit(c *cli.Context) error {
	env := GetEnv(c)
	if env == nil {
		return fmt.Errorf("cli environment not initialized")
	}

	_, err := os.Stat(env.ConfigPath)
	switch {
	case err == nil && !c.Bool("force"):
		return usageError("%s already exists, use --force to overwrite", env.ConfigPath)
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return err
	}

	if err := config.Save(env.Config, env.ConfigPath); err != nil {
		return err
	}
	notice(c, "Wrote %s", env.ConfigPath)
	return nil
}
