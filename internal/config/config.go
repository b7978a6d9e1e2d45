// Package config resolves workspace and backend configuration for overseer.
// Backend presets name a model, a credential environment variable, and an
// endpoint base; credentials are never stored in the config file itself.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"overseer/internal/types"
)

// BackendPreset names an LLM backend configuration. The API key is looked up
// from the environment at resolution time.
type BackendPreset struct {
	Name      string `yaml:"name"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	BaseURL   string `yaml:"base_url,omitempty"`
}

// Config is the full overseer configuration.
type Config struct {
	// ExpertiseDir holds one markdown knowledge file per mode.
	ExpertiseDir string `yaml:"expertise_dir"`

	// SessionDB is the SQLite database path for session persistence.
	SessionDB string `yaml:"session_db"`

	// DefaultTimeout bounds a run when the caller does not specify one.
	DefaultTimeout time.Duration `yaml:"default_timeout"`

	// DelegateTimeout bounds a delegated sub-task by default.
	DelegateTimeout time.Duration `yaml:"delegate_timeout"`

	// Primary is the backend used for the main run.
	Primary BackendPreset `yaml:"primary"`

	// Alternates are tried in order for delegated sub-agents, isolating
	// their throughput from the primary task. Falls back to Primary.
	Alternates []BackendPreset `yaml:"alternates"`
}

// Default returns the built-in configuration. Paths are relative to the
// user's home directory so expertise accumulates across workspaces.
func Default() Config {
	base := ".overseer"
	if home, err := os.UserHomeDir(); err == nil {
		base = filepath.Join(home, ".overseer")
	}

	return Config{
		ExpertiseDir:    filepath.Join(base, "expertise"),
		SessionDB:       filepath.Join(base, "sessions.db"),
		DefaultTimeout:  5 * time.Minute,
		DelegateTimeout: 2 * time.Minute,
		Primary: BackendPreset{
			Name:      "gemini",
			Model:     "gemini-2.5-pro",
			APIKeyEnv: "GEMINI_API_KEY",
		},
		Alternates: []BackendPreset{
			{
				Name:      "gemini-flash",
				Model:     "gemini-2.5-flash",
				APIKeyEnv: "GEMINI_FLASH_API_KEY",
			},
		},
	}
}

// Load reads the config file at path, layering it over Default and then
// applying environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)
	cfg.applyDefaults()
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OVERSEER_EXPERTISE_DIR"); v != "" {
		cfg.ExpertiseDir = v
	}
	if v := os.Getenv("OVERSEER_SESSION_DB"); v != "" {
		cfg.SessionDB = v
	}
	if v := os.Getenv("OVERSEER_MODEL"); v != "" {
		cfg.Primary.Model = v
	}
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.ExpertiseDir == "" {
		c.ExpertiseDir = d.ExpertiseDir
	}
	if c.SessionDB == "" {
		c.SessionDB = d.SessionDB
	}
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = d.DefaultTimeout
	}
	if c.DelegateTimeout <= 0 {
		c.DelegateTimeout = d.DelegateTimeout
	}
	if c.Primary.Model == "" {
		c.Primary = d.Primary
	}
}

// Resolve turns a preset into a concrete backend: model, credential, and
// endpoint. A missing credential is a configuration error - fatal, no retry.
func (p BackendPreset) Resolve() (types.AgentSpec, error) {
	if p.Model == "" {
		return types.AgentSpec{}, fmt.Errorf("%w: preset %q has no model", types.ErrConfiguration, p.Name)
	}

	key := os.Getenv(p.APIKeyEnv)
	if key == "" {
		return types.AgentSpec{}, fmt.Errorf("%w: %s not set for preset %q", types.ErrConfiguration, p.APIKeyEnv, p.Name)
	}

	return types.AgentSpec{
		Model:   p.Model,
		APIKey:  key,
		BaseURL: p.BaseURL,
	}, nil
}

// ResolveAlternate returns the first alternate preset whose credential is
// available, falling back to the primary. Delegation never fails just
// because no alternate backend is configured.
func (c Config) ResolveAlternate() (types.AgentSpec, error) {
	for _, alt := range c.Alternates {
		if spec, err := alt.Resolve(); err == nil {
			return spec, nil
		}
	}
	return c.Primary.Resolve()
}
