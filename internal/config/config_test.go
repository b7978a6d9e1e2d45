package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"overseer/internal/types"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.DefaultTimeout)
	assert.Equal(t, "gemini-2.5-pro", cfg.Primary.Model)
	assert.NotEmpty(t, cfg.ExpertiseDir)
}

func TestLoadLayersFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overseer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
default_timeout: 90s
primary:
  name: custom
  model: custom-model
  api_key_env: CUSTOM_KEY
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 90*time.Second, cfg.DefaultTimeout)
	assert.Equal(t, "custom-model", cfg.Primary.Model)
	assert.Equal(t, "CUSTOM_KEY", cfg.Primary.APIKeyEnv)
	// Unspecified fields keep their defaults.
	assert.Equal(t, 2*time.Minute, cfg.DelegateTimeout)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml:"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OVERSEER_EXPERTISE_DIR", "/tmp/exp")
	t.Setenv("OVERSEER_MODEL", "env-model")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/exp", cfg.ExpertiseDir)
	assert.Equal(t, "env-model", cfg.Primary.Model)
}

func TestResolve(t *testing.T) {
	t.Setenv("TEST_RESOLVE_KEY", "secret")

	spec, err := BackendPreset{
		Name:      "p",
		Model:     "m",
		APIKeyEnv: "TEST_RESOLVE_KEY",
		BaseURL:   "https://example.test",
	}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "m", spec.Model)
	assert.Equal(t, "secret", spec.APIKey)
	assert.Equal(t, "https://example.test", spec.BaseURL)
}

func TestResolveMissingKeyIsConfigurationError(t *testing.T) {
	_, err := BackendPreset{Name: "p", Model: "m", APIKeyEnv: "TEST_RESOLVE_UNSET"}.Resolve()
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrConfiguration))
}

func TestResolveMissingModelIsConfigurationError(t *testing.T) {
	_, err := BackendPreset{Name: "p"}.Resolve()
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrConfiguration))
}

func TestResolveAlternate(t *testing.T) {
	t.Setenv("TEST_ALT_PRIMARY", "primary-key")

	cfg := Config{
		Primary: BackendPreset{Name: "primary", Model: "pm", APIKeyEnv: "TEST_ALT_PRIMARY"},
		Alternates: []BackendPreset{
			{Name: "alt-unavailable", Model: "am", APIKeyEnv: "TEST_ALT_UNSET"},
		},
	}

	// No alternate credential: falls back to primary.
	spec, err := cfg.ResolveAlternate()
	require.NoError(t, err)
	assert.Equal(t, "pm", spec.Model)

	// Alternate credential available: alternate wins.
	t.Setenv("TEST_ALT_UNSET", "alt-key")
	spec, err = cfg.ResolveAlternate()
	require.NoError(t, err)
	assert.Equal(t, "am", spec.Model)
}
