package client

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Settings is the locally persisted client state: connection target
// plus UI preferences. It round-trips through a YAML file at a fixed
// location, no server involved.
type Settings struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	Protocol      string `yaml:"protocol"`
	Theme         string `yaml:"theme"`
	Language      string `yaml:"language"`
	AutoSave      bool   `yaml:"autosave"`
	Notifications bool   `yaml:"notifications"`
}

func DefaultSettings() Settings {
	return Settings{
		Host:          "localhost",
		Port:          8000,
		Protocol:      "http",
		Theme:         "light",
		Language:      "zh-CN",
		AutoSave:      true,
		Notifications: true,
	}
}

// BaseURL builds the server address for Client.New.
func (s Settings) BaseURL() string {
	return fmt.Sprintf("%s://%s:%d", s.Protocol, s.Host, s.Port)
}

// SettingsPath is the fixed location of the settings file.
func SettingsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".rag-tuner", "settings.yaml"), nil
}

// LoadSettings reads settings from path, falling back to defaults for
// a missing file. Unknown keys are ignored, absent keys keep their
// default.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return s, err
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return DefaultSettings(), fmt.Errorf("invalid settings file: %w", err)
	}
	return s, nil
}

// SaveSettings writes settings to path, creating the directory.
func SaveSettings(path string, s Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
