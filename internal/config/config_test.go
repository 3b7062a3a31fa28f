package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setTestHome isolates the global viper state and points HOME at a scratch
// directory so tests never touch a real ~/.lipsync.
func setTestHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	viper.Reset()
	t.Cleanup(viper.Reset)
	return home
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 0.35, cfg.Engine.TransitionSpeed)
	assert.Equal(t, 0.001, cfg.Engine.SnapEpsilon)
	assert.Equal(t, 60, cfg.Engine.TickRate)
	assert.Equal(t, 1.0, cfg.Engine.DefaultIntensity)

	assert.Equal(t, 0.85, cfg.Calibration.Damping)
	assert.NotNil(t, cfg.Calibration.Categories)
	assert.NotNil(t, cfg.Calibration.Visemes)
	assert.Empty(t, cfg.Calibration.File)

	assert.Empty(t, cfg.Model.Path)

	assert.False(t, cfg.Stream.Enabled)
	assert.Equal(t, "localhost:8931", cfg.Stream.Addr)
	assert.Equal(t, "/ws", cfg.Stream.Path)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Console)
	assert.True(t, cfg.Logging.File)
	assert.True(t, strings.HasSuffix(cfg.Logging.Dir, filepath.Join(".lipsync", "logs")))
}

func TestLoadCreatesDefaultConfigFile(t *testing.T) {
	home := setTestHome(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.35, cfg.Engine.TransitionSpeed)
	assert.Equal(t, "localhost:8931", cfg.Stream.Addr)

	_, err = os.Stat(filepath.Join(home, ".lipsync", "config.yaml"))
	assert.NoError(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	setTestHome(t)

	cfg := DefaultConfig()
	cfg.Model.Path = "/models/avatar.glb"
	cfg.Stream.Enabled = true
	cfg.Stream.Addr = "localhost:9001"
	cfg.Calibration.Damping = 0.7
	cfg.Calibration.File = "/tuning/calibration.yaml"
	cfg.Calibration.Categories = map[string]float64{"jaw_full": 0.9}
	cfg.Logging.Level = "debug"

	require.NoError(t, Save(cfg))

	viper.Reset()
	loaded, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/models/avatar.glb", loaded.Model.Path)
	assert.True(t, loaded.Stream.Enabled)
	assert.Equal(t, "localhost:9001", loaded.Stream.Addr)
	assert.Equal(t, 0.7, loaded.Calibration.Damping)
	assert.Equal(t, "/tuning/calibration.yaml", loaded.Calibration.File)
	assert.Equal(t, map[string]float64{"jaw_full": 0.9}, loaded.Calibration.Categories)
	assert.Equal(t, "debug", loaded.Logging.Level)
}

func TestLoadRespectsExistingFile(t *testing.T) {
	home := setTestHome(t)

	configDir := filepath.Join(home, ".lipsync")
	require.NoError(t, os.MkdirAll(configDir, 0755))
	content := []byte(`model:
  path: /custom/avatar.glb
stream:
  enabled: true
logging:
  level: debug
`)
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"), content, 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/custom/avatar.glb", cfg.Model.Path)
	assert.True(t, cfg.Stream.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Untouched sections keep their defaults
	assert.Equal(t, 0.35, cfg.Engine.TransitionSpeed)
	assert.Equal(t, 0.85, cfg.Calibration.Damping)
}

func TestGetConfigDir(t *testing.T) {
	home := setTestHome(t)

	dir, err := GetConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".lipsync"), dir)
}
