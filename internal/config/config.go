// Package config provides configuration management for the lipsync engine
package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Engine      EngineConfig      `mapstructure:"engine"`
	Calibration CalibrationConfig `mapstructure:"calibration"`
	Model       ModelConfig       `mapstructure:"model"`
	Stream      StreamConfig      `mapstructure:"stream"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// EngineConfig tunes the blend scheduler
type EngineConfig struct {
	// TransitionSpeed is the per-frame interpolation fraction at the 60Hz
	// reference step, in (0,1]. Higher converges faster.
	TransitionSpeed float64 `mapstructure:"transition_speed"`
	// SnapEpsilon is the residual below which a weight snaps to its target.
	SnapEpsilon float64 `mapstructure:"snap_epsilon"`
	// TickRate is the internal loop frequency in Hz when the engine drives
	// its own clock instead of being ticked by a host.
	TickRate int `mapstructure:"tick_rate"`
	// DefaultIntensity scales visemes that arrive without one.
	DefaultIntensity float64 `mapstructure:"default_intensity"`
}

// CalibrationConfig holds retunable intensity presets. Category multipliers
// keep wide-excursion morphs (full jaw drops, extreme puckers) from reaching
// raw 1.0 weights, which reads as shouting on most rigs.
type CalibrationConfig struct {
	// Damping is the global multiplier applied after category scaling.
	Damping float64 `mapstructure:"damping"`
	// Categories maps category name to multiplier, overriding built-ins.
	Categories map[string]float64 `mapstructure:"categories"`
	// Visemes maps viseme id to an extra per-viseme multiplier.
	Visemes map[string]float64 `mapstructure:"visemes"`
	// File, when set, is watched for changes and hot-reloaded.
	File string `mapstructure:"file"`
}

// ModelConfig locates the avatar model
type ModelConfig struct {
	Path string `mapstructure:"path"`
}

// StreamConfig configures the websocket weight-frame broadcaster
type StreamConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig configures log output
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Dir     string `mapstructure:"dir"`
	Console bool   `mapstructure:"console"`
	File    bool   `mapstructure:"file"`
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Engine: EngineConfig{
			TransitionSpeed:  0.35,
			SnapEpsilon:      0.001,
			TickRate:         60,
			DefaultIntensity: 1.0,
		},
		Calibration: CalibrationConfig{
			Damping:    0.85,
			Categories: map[string]float64{},
			Visemes:    map[string]float64{},
			File:       "",
		},
		Model: ModelConfig{
			Path: "",
		},
		Stream: StreamConfig{
			Enabled: false,
			Addr:    "localhost:8931",
			Path:    "/ws",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Dir:     filepath.Join(home, ".lipsync", "logs"),
			Console: true,
			File:    true,
		},
	}
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	cfg := DefaultConfig()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return cfg, err
	}

	configDir := filepath.Join(homeDir, ".lipsync")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return cfg, err
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("LIPSYNC")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, err
		}
		// Config file not found, use defaults and create one
		if err := Save(cfg); err != nil {
			return cfg, err
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Save writes the configuration to file
func Save(cfg *Config) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	configDir := filepath.Join(homeDir, ".lipsync")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	viper.Set("engine", cfg.Engine)
	viper.Set("calibration", cfg.Calibration)
	viper.Set("model", cfg.Model)
	viper.Set("stream", cfg.Stream)
	viper.Set("logging", cfg.Logging)

	configPath := filepath.Join(configDir, "config.yaml")
	return viper.WriteConfigAs(configPath)
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".lipsync"), nil
}
