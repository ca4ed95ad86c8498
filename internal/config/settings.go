package config

import (
	"fmt"
	"os"

	"gopkg.in/ini.v1"
)

// Settings are the app-level knobs kept outside the behavior profile,
// read from an INI file next to the binary.
type Settings struct {
	LogLevel     string
	LogJSON      bool
	Display      int
	Backend      string // "auto", "display" or "robotgo"
	TemplateRoot string
	ProfilePath  string
}

// DefaultSettings returns the settings used when no INI file exists.
func DefaultSettings() *Settings {
	return &Settings{
		LogLevel:     "info",
		LogJSON:      false,
		Display:      0,
		Backend:      "auto",
		TemplateRoot: "assets/entities",
		ProfilePath:  "profile.yaml",
	}
}

// LoadSettings reads settings from the given INI path. A missing file is
// not an error; defaults are returned.
func LoadSettings(path string) (*Settings, error) {
	s := DefaultSettings()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return s, nil
	}

	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	app := cfg.Section("app")
	s.LogLevel = app.Key("log_level").MustString(s.LogLevel)
	s.LogJSON = app.Key("log_json").MustBool(s.LogJSON)

	capture := cfg.Section("capture")
	s.Display = capture.Key("display").MustInt(s.Display)
	s.Backend = capture.Key("backend").MustString(s.Backend)

	resources := cfg.Section("resources")
	s.TemplateRoot = resources.Key("template_root").MustString(s.TemplateRoot)
	s.ProfilePath = resources.Key("profile").MustString(s.ProfilePath)

	switch s.Backend {
	case "auto", "display", "robotgo":
	default:
		return nil, fmt.Errorf("settings: unknown capture backend %q", s.Backend)
	}

	return s, nil
}
