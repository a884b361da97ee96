package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yndnr/garagebook-go/internal/cli/output"
	"github.com/yndnr/garagebook-go/internal/infra/confloader"
	"github.com/yndnr/garagebook-go/internal/storage"
)

// EnvPrefix prefixes every environment override, e.g. GARAGEBOOK_API_URL.
const EnvPrefix = "GARAGEBOOK_"

// Load builds the configuration from defaults, the file at path (optional
// unless explicit is set), the environment and flag overrides keyed by
// koanf path.
func Load(path string, explicit bool, overrides map[string]any) (*CLIConfig, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	opts := []confloader.Option{
		confloader.WithEnvPrefix(EnvPrefix),
		confloader.WithDefaults(Defaults()),
		confloader.WithOverrides(overrides),
	}
	if explicit {
		opts = append(opts, confloader.WithConfigFile(path))
	} else {
		opts = append(opts, confloader.WithOptionalConfigFile(path))
	}

	cfg := &CLIConfig{}
	if err := confloader.NewLoader(opts...).Load(cfg); err != nil {
		return nil, err
	}
	cfg.State.Dir = expandHome(cfg.State.Dir)
	cfg.State.KeyFile = expandHome(cfg.State.KeyFile)
	cfg.API.CAFile = expandHome(cfg.API.CAFile)
	cfg.Metrics.Textfile = expandHome(cfg.Metrics.Textfile)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the CLI cannot run with.
func (c *CLIConfig) Validate() error {
	if strings.TrimSpace(c.API.URL) == "" {
		return fmt.Errorf("api.url is required")
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}
	if c.API.RateLimit < 0 {
		return fmt.Errorf("api.rate_limit must not be negative")
	}
	switch c.State.Engine {
	case storage.EngineBadger, storage.EngineMemory:
	default:
		return fmt.Errorf("state.engine %q is not supported (want %s or %s)",
			c.State.Engine, storage.EngineBadger, storage.EngineMemory)
	}
	if _, err := output.ParseFormat(c.Output.Format); err != nil {
		return err
	}
	return nil
}

// Save writes cfg as YAML with owner-only permissions.
func Save(cfg *CLIConfig, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// expandHome resolves a leading ~ to the user's home directory.
func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
