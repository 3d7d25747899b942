package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const settingsFileName = "settings.yaml"

// Settings holds the runtime configuration for the focus service.
type Settings struct {
	Port          int
	StaticDir     string
	SnapshotPath  string
	WorkDuration  time.Duration
	BreakDuration time.Duration
	TickInterval  time.Duration
}

type yamlSettings struct {
	Port           int    `yaml:"port"`
	StaticDir      string `yaml:"static_dir"`
	SnapshotPath   string `yaml:"snapshot_path"`
	WorkMinutes    int    `yaml:"work_minutes"`
	BreakMinutes   int    `yaml:"break_minutes"`
	TickIntervalMs int    `yaml:"tick_interval_ms"`
}

// Default returns the built-in settings. The snapshot lives in the user
// config directory so both UI surfaces resolve the same file.
func Default(appName string) Settings {
	settings := Settings{
		Port:          8420,
		WorkDuration:  25 * time.Minute,
		BreakDuration: 5 * time.Minute,
		TickInterval:  500 * time.Millisecond,
	}
	if configDir, err := os.UserConfigDir(); err == nil {
		settings.SnapshotPath = filepath.Join(configDir, appName, "snapshot.json")
	} else {
		settings.SnapshotPath = filepath.Join(".", appName, "snapshot.json")
	}
	return settings
}

// Load reads settings from the YAML file in the user config directory.
// If the file does not exist, defaults are returned.
func Load(appName string) (Settings, error) {
	settings := Default(appName)
	configPath, err := resolveConfigPath(appName)
	if err != nil {
		return settings, err
	}

	rawData, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return settings, fmt.Errorf("read settings file: %w", err)
	}

	var fileData yamlSettings
	if err := yaml.Unmarshal(rawData, &fileData); err != nil {
		return settings, fmt.Errorf("parse settings yaml: %w", err)
	}

	applyYamlSettings(&settings, fileData)
	return settings, nil
}

// Save writes settings to the YAML file.
func Save(appName string, settings Settings) error {
	configPath, err := resolveConfigPath(appName)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	fileData := yamlSettings{
		Port:           settings.Port,
		StaticDir:      settings.StaticDir,
		SnapshotPath:   settings.SnapshotPath,
		WorkMinutes:    int(settings.WorkDuration / time.Minute),
		BreakMinutes:   int(settings.BreakDuration / time.Minute),
		TickIntervalMs: int(settings.TickInterval / time.Millisecond),
	}

	serialized, err := yaml.Marshal(fileData)
	if err != nil {
		return fmt.Errorf("marshal settings yaml: %w", err)
	}

	if err := os.WriteFile(configPath, serialized, 0o644); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}

	return nil
}

func resolveConfigPath(appName string) (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, appName, settingsFileName), nil
}

func applyYamlSettings(settings *Settings, fileData yamlSettings) {
	if fileData.Port > 0 {
		settings.Port = fileData.Port
	}
	if fileData.StaticDir != "" {
		settings.StaticDir = fileData.StaticDir
	}
	if fileData.SnapshotPath != "" {
		settings.SnapshotPath = fileData.SnapshotPath
	}
	if fileData.WorkMinutes > 0 {
		settings.WorkDuration = time.Duration(fileData.WorkMinutes) * time.Minute
	}
	if fileData.BreakMinutes > 0 {
		settings.BreakDuration = time.Duration(fileData.BreakMinutes) * time.Minute
	}
	if fileData.TickIntervalMs > 0 {
		settings.TickInterval = time.Duration(fileData.TickIntervalMs) * time.Millisecond
	}
}
