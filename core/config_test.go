package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spanrunner.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, "backends:\n  - alpha\n  - ' '\nlog_level: DEBUG\n")

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, cfg.Backends)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "backends: [unterminated\n"))
	assert.Error(t, err)
}

// TestConfigFromEnv verifies environment overrides
// Given: A config file naming alpha and an env override naming beta and gamma
// When: ConfigFromEnv is called
// Then: The env list wins and the file's log level is kept
func TestConfigFromEnv(t *testing.T) {
	// Arrange
	path := writeConfig(t, "backends: [alpha]\nlog_level: info\n")
	t.Setenv(EnvConfigFile, path)
	t.Setenv(EnvBackends, "beta, gamma,")

	// Act
	cfg, err := ConfigFromEnv()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"beta", "gamma"}, cfg.Backends)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestConfigFromEnv_LogLevel(t *testing.T) {
	t.Setenv(EnvConfigFile, "")
	t.Setenv(EnvLogLevel, "Error")

	cfg, err := ConfigFromEnv()

	require.NoError(t, err)
	assert.Empty(t, cfg.Backends)
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestConfigure_DrivesDiscovery(t *testing.T) {
	isolate(t)
	unregisterAllBackends(t)
	RegisterBackend("alpha", factoryFor("alpha"))
	RegisterBackend("beta", factoryFor("beta"))

	prev := globalConfig.Load()
	t.Cleanup(func() { globalConfig.Store(prev) })
	Configure(Config{Backends: []string{"alpha"}})
	SetBackend(nil)

	b, ok := CurrentBackend().(*namedBackend)
	require.True(t, ok)
	assert.Equal(t, "alpha", b.name)
}
