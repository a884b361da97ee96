// Package config defines the garagebook-cli configuration and how it is
// loaded from defaults, ~/.garagebook/cli.yaml, GARAGEBOOK_* environment
// variables and command-line flags.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/yndnr/garagebook-go/internal/client"
	"github.com/yndnr/garagebook-go/internal/infra/buildinfo"
	"github.com/yndnr/garagebook-go/internal/storage"
	"github.com/yndnr/garagebook-go/internal/telemetry/logger"
)

// DirName is the per-user directory holding configuration and state.
const DirName = ".garagebook"

// CLIConfig is the configuration for garagebook-cli.
type CLIConfig struct {
	API     APIConfig     `koanf:"api" yaml:"api" json:"api"`
	CSRF    CSRFConfig    `koanf:"csrf" yaml:"csrf" json:"csrf"`
	Auth    AuthConfig    `koanf:"auth" yaml:"auth" json:"auth"`
	State   StateConfig   `koanf:"state" yaml:"state" json:"state"`
	Log     LogConfig     `koanf:"log" yaml:"log" json:"log"`
	Output  OutputConfig  `koanf:"output" yaml:"output" json:"output"`
	Metrics MetricsConfig `koanf:"metrics" yaml:"metrics" json:"metrics"`
}

// APIConfig locates the remote service.
type APIConfig struct {
	URL       string        `koanf:"url" yaml:"url" json:"url"`
	CAFile    string        `koanf:"ca_file" yaml:"ca_file" json:"ca_file"`
	Timeout   time.Duration `koanf:"timeout" yaml:"timeout" json:"timeout"`
	RateLimit float64       `koanf:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
	RateBurst int           `koanf:"rate_burst" yaml:"rate_burst" json:"rate_burst"`
}

// CSRFConfig names the anti-forgery endpoint, cookie and header.
type CSRFConfig struct {
	Endpoint string `koanf:"endpoint" yaml:"endpoint" json:"endpoint"`
	Cookie   string `koanf:"cookie" yaml:"cookie" json:"cookie"`
	Header   string `koanf:"header" yaml:"header" json:"header"`
}

// AuthConfig holds authentication endpoints.
type AuthConfig struct {
	LoginPath string `koanf:"login_path" yaml:"login_path" json:"login_path"`
}

// StateConfig is where the session identity and cookies are persisted.
type StateConfig struct {
	Dir     string `koanf:"dir" yaml:"dir" json:"dir"`
	Engine  string `koanf:"engine" yaml:"engine" json:"engine"`
	Encrypt bool   `koanf:"encrypt" yaml:"encrypt" json:"encrypt"`
	KeyFile string `koanf:"key_file" yaml:"key_file" json:"key_file"`
}

// LogConfig controls diagnostic logging on stderr.
type LogConfig struct {
	Level  string `koanf:"level" yaml:"level" json:"level"`
	Format string `koanf:"format" yaml:"format" json:"format"`
}

// OutputConfig controls result rendering.
type OutputConfig struct {
	Format string `koanf:"format" yaml:"format" json:"format"`
}

// MetricsConfig controls the optional Prometheus textfile dump.
type MetricsConfig struct {
	Textfile string `koanf:"textfile" yaml:"textfile" json:"textfile"`
}

// HomeDir returns ~/.garagebook, or a relative .garagebook when the home
// directory is unknown.
func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DirName
	}
	return filepath.Join(home, DirName)
}

// DefaultConfigPath returns the default CLI config file path.
func DefaultConfigPath() string {
	return filepath.Join(HomeDir(), "cli.yaml")
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	cc := client.DefaultConfig()
	lc := logger.DefaultConfig()
	return &CLIConfig{
		API: APIConfig{
			URL:       cc.BaseURL,
			Timeout:   cc.Timeout,
			RateBurst: cc.RateBurst,
		},
		CSRF: CSRFConfig{
			Endpoint: cc.CSRFEndpoint,
			Cookie:   cc.CSRFCookie,
			Header:   cc.CSRFHeader,
		},
		Auth: AuthConfig{LoginPath: cc.LoginPath},
		State: StateConfig{
			Dir:     filepath.Join(HomeDir(), "state"),
			Engine:  storage.EngineBadger,
			Encrypt: true,
			KeyFile: filepath.Join(HomeDir(), "state.key"),
		},
		Log:    LogConfig{Level: lc.Level, Format: lc.Format},
		Output: OutputConfig{Format: "table"},
	}
}

// Defaults flattens Default into koanf keys.
func Defaults() map[string]any {
	d := Default()
	return map[string]any{
		"api.url":          d.API.URL,
		"api.ca_file":      d.API.CAFile,
		"api.timeout":      d.API.Timeout.String(),
		"api.rate_limit":   d.API.RateLimit,
		"api.rate_burst":   d.API.RateBurst,
		"csrf.endpoint":    d.CSRF.Endpoint,
		"csrf.cookie":      d.CSRF.Cookie,
		"csrf.header":      d.CSRF.Header,
		"auth.login_path":  d.Auth.LoginPath,
		"state.dir":        d.State.Dir,
		"state.engine":     d.State.Engine,
		"state.encrypt":    d.State.Encrypt,
		"state.key_file":   d.State.KeyFile,
		"log.level":        d.Log.Level,
		"log.format":       d.Log.Format,
		"output.format":    d.Output.Format,
		"metrics.textfile": d.Metrics.Textfile,
	}
}

// ClientConfig maps the API settings onto the transport configuration.
func (c *CLIConfig) ClientConfig() client.Config {
	return client.Config{
		BaseURL:      c.API.URL,
		Timeout:      c.API.Timeout,
		RateLimit:    c.API.RateLimit,
		RateBurst:    c.API.RateBurst,
		CSRFEndpoint: c.CSRF.Endpoint,
		CSRFCookie:   c.CSRF.Cookie,
		CSRFHeader:   c.CSRF.Header,
		LoginPath:    c.Auth.LoginPath,
		UserAgent:    buildinfo.UserAgent(),
	}
}

// StorageConfig maps the state settings onto the credential store configuration.
func (c *CLIConfig) StorageConfig() storage.Config {
	sc := storage.DefaultConfig(c.State.Dir)
	if c.State.Engine != "" {
		sc.Engine = c.State.Engine
	}
	sc.Encrypt = c.State.Encrypt
	if c.State.KeyFile != "" {
		sc.KeyFile = c.State.KeyFile
	}
	return sc
}

// LoggerConfig maps the log settings onto the logger configuration.
func (c *CLIConfig) LoggerConfig() logger.Config {
	lc := logger.DefaultConfig()
	if c.Log.Level != "" {
		lc.Level = c.Log.Level
	}
	if c.Log.Format != "" {
		lc.Format = c.Log.Format
	}
	return lc
}
