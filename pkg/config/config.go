package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/openfroyo/modconf/pkg/frontend"
	"github.com/openfroyo/modconf/pkg/telemetry"
)

// FileName is the tool configuration looked up next to the working directory.
const FileName = "modconf.yaml"

// Config is the configuration of the modconf command line tool.
type Config struct {
	// Frontend configures loading and caching of modules.
	Frontend frontend.Options `yaml:"frontend"`

	// Telemetry configures logging, tracing and metrics.
	Telemetry telemetry.Config `yaml:"telemetry"`

	// Policies lists .rego files, policy bundles or directories of them. Relative
	// paths are relative to the configuration file.
	Policies []string `yaml:"policies" validate:"dive,required"`

	// DisabledPolicies lists policies, built-in or custom, that are not evaluated.
	DisabledPolicies []string `yaml:"disabledPolicies" validate:"dive,required"`
}

// Default returns the configuration used without a configuration file.
func Default() *Config {
	return &Config{
		Frontend:  frontend.DefaultOptions(),
		Telemetry: *telemetry.DefaultConfig(),
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Load reads a configuration file over the defaults. An empty path looks for
// FileName in the working directory and falls back to the defaults when it does
// not exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = FileName
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
	case !explicit && errors.Is(err, fs.ErrNotExist):
		return cfg, nil
	default:
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	dir := filepath.Dir(path)
	for i, p := range cfg.Policies {
		if !filepath.IsAbs(p) {
			cfg.Policies[i] = filepath.Join(dir, p)
		}
	}
	return cfg, nil
}
