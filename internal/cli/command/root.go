// Package command defines the garagebook-cli commands.
//
// It uses urfave/cli/v2 for command parsing and supports both
// single-command mode and the interactive shell.
package command

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/garagebook-go/internal/cli/config"
	"github.com/yndnr/garagebook-go/internal/cli/connection"
	"github.com/yndnr/garagebook-go/internal/cli/output"
	"github.com/yndnr/garagebook-go/internal/infra/buildinfo"
	"github.com/yndnr/garagebook-go/internal/telemetry/logger"
	"github.com/yndnr/garagebook-go/internal/telemetry/metric"
)

// AppName is the binary name.
const AppName = "garagebook-cli"

const metaEnv = "env"

// Env is the per-invocation state shared by commands.
type Env struct {
	Config     *config.CLIConfig
	ConfigPath string
	Logger     logger.Logger
	Metrics    *metric.Registry
	Manager    *connection.Manager
	Format     output.Format
	Wide       bool
}

// Option configures App.
type Option func(*settings)

type settings struct {
	in       io.Reader
	out      io.Writer
	errOut   io.Writer
	connOpts []connection.Option

	// shared is set for commands run from the shell, which reuse the
	// shell's environment instead of building and closing their own.
	shared *Env
}

// WithIO replaces stdin, stdout and stderr.
func WithIO(in io.Reader, out, errOut io.Writer) Option {
	return func(s *settings) {
		s.in, s.out, s.errOut = in, out, errOut
	}
}

// WithConnectionOptions passes options to the connection manager.
func WithConnectionOptions(opts ...connection.Option) Option {
	return func(s *settings) { s.connOpts = append(s.connOpts, opts...) }
}

// App creates the CLI application.
func App(opts ...Option) *cli.App {
	s := &settings{in: os.Stdin, out: os.Stdout, errOut: os.Stderr}
	for _, opt := range opts {
		opt(s)
	}
	return s.app()
}

func (s *settings) app() *cli.App {
	return &cli.App{
		Name:      AppName,
		Usage:     "Manage garage appointments and service types",
		Version:   buildinfo.String(),
		Flags:     globalFlags(),
		Reader:    s.in,
		Writer:    s.out,
		ErrWriter: s.errOut,
		Metadata:  map[string]any{},
		Commands: []*cli.Command{
			LoginCommand(),
			LogoutCommand(),
			WhoamiCommand(),
			AppointmentCommand(),
			ServiceCommand(),
			ConfigCommand(),
			VersionCommand(),
			shellCommand(s),
		},
		Before:          s.before,
		After:           s.after,
		Suggest:         true,
		ExitErrHandler:  func(*cli.Context, error) {},
		CommandNotFound: commandNotFound,
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Config file (default ~/.garagebook/cli.yaml)",
			EnvVars: []string{"GARAGEBOOK_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "API base URL (e.g., https://garage.example.com)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Log requests to stderr",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Per-request timeout",
		},
		&cli.StringFlag{
			Name:  "state-dir",
			Usage: "Directory holding the session and cookies",
		},
		&cli.StringFlag{
			Name:  "state-engine",
			Usage: "State engine: badger or memory",
		},
		&cli.StringFlag{
			Name:  "metrics-textfile",
			Usage: "Write Prometheus metrics to this file on exit",
		},
	}
}

// flagOverrides maps explicitly set global flags onto config keys.
func flagOverrides(c *cli.Context) map[string]any {
	overrides := make(map[string]any)
	for flag, key := range map[string]string{
		"server":           "api.url",
		"output":           "output.format",
		"state-dir":        "state.dir",
		"state-engine":     "state.engine",
		"metrics-textfile": "metrics.textfile",
	} {
		if c.IsSet(flag) {
			overrides[key] = c.String(flag)
		}
	}
	if c.IsSet("timeout") {
		overrides["api.timeout"] = c.Duration("timeout").String()
	}
	if c.Bool("verbose") {
		overrides["log.level"] = "debug"
	}
	return overrides
}

func (s *settings) before(c *cli.Context) error {
	if s.shared != nil {
		return s.useShared(c)
	}

	path := c.String("config")
	cfg, err := config.Load(path, c.IsSet("config"), flagOverrides(c))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if path == "" {
		path = config.DefaultConfigPath()
	}

	lc := cfg.LoggerConfig()
	lc.Output = s.errOut
	log, err := logger.New(lc)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	format, err := output.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}

	metrics := metric.NewRegistry()
	c.App.Metadata[metaEnv] = &Env{
		Config:     cfg,
		ConfigPath: path,
		Logger:     log,
		Metrics:    metrics,
		Manager:    connection.NewManager(cfg, log, metrics, s.connOpts...),
		Format:     format,
		Wide:       c.Bool("wide"),
	}
	return nil
}

// useShared reuses the shell's environment. Only the presentation flags
// apply per line; the rest were fixed when the shell started.
func (s *settings) useShared(c *cli.Context) error {
	env := *s.shared
	if c.IsSet("output") {
		format, err := output.ParseFormat(c.String("output"))
		if err != nil {
			return err
		}
		env.Format = format
	}
	if c.IsSet("wide") {
		env.Wide = c.Bool("wide")
	}
	c.App.Metadata[metaEnv] = &env
	return nil
}

func (s *settings) after(c *cli.Context) error {
	if s.shared != nil {
		return nil
	}
	env, ok := c.App.Metadata[metaEnv].(*Env)
	if !ok {
		return nil
	}
	return env.Manager.Close()
}

func commandNotFound(c *cli.Context, name string) {
	fmt.Fprintf(c.App.ErrWriter, "unknown command %q, see '%s help'\n", name, AppName)
}

// GetEnv retrieves the invocation environment from context.
func GetEnv(c *cli.Context) *Env {
	if env, ok := c.App.Metadata[metaEnv].(*Env); ok {
		return env
	}
	return nil
}

// EnsureConnected returns the runtime, building it on first use.
func EnsureConnected(c *cli.Context) (*connection.Runtime, error) {
	env := GetEnv(c)
	if env == nil {
		return nil, fmt.Errorf("cli environment not initialized")
	}
	if c.Command != nil {
		c.Context = logger.WithCommand(c.Context, strings.TrimPrefix(c.Command.FullName(), AppName+" "))
	}
	return env.Manager.Connect(c.Context)
}

// render writes data in the selected output format.
func render(c *cli.Context, data any) error {
	env := GetEnv(c)
	format, wide := output.FormatTable, false
	if env != nil {
		format, wide = env.Format, env.Wide
	}
	return output.NewFormatter(format, wide).Format(c.App.Writer, data)
}

// machineReadable reports whether output goes to a parser rather than a person.
func machineReadable(c *cli.Context) bool {
	env := GetEnv(c)
	return env != nil && env.Format != output.FormatTable
}

// notice prints a human message unless the output is machine-readable.
func notice(c *cli.Context, format string, args ...any) {
	if machineReadable(c) {
		return
	}
	fmt.Fprintf(c.App.Writer, format+"\n", args...)
}
