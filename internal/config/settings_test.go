package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettingsMissingFileReturnsDefaults(t *testing.T) {
	t.Parallel()

	s, err := LoadSettings(filepath.Join(t.TempDir(), "absent.ini"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)
}

func TestLoadSettingsReadsSections(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "Settings.ini")
	body := `[app]
log_level = debug
log_json = true

[capture]
display = 1
backend = display

[resources]
template_root = /data/entities
profile = /data/profile.yaml
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", s.LogLevel)
	assert.True(t, s.LogJSON)
	assert.Equal(t, 1, s.Display)
	assert.Equal(t, "display", s.Backend)
	assert.Equal(t, "/data/entities", s.TemplateRoot)
	assert.Equal(t, "/data/profile.yaml", s.ProfilePath)
}

func TestLoadSettingsPartialFileKeepsDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "Settings.ini")
	require.NoError(t, os.WriteFile(path, []byte("[app]\nlog_level = warn\n"), 0o644))

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", s.LogLevel)
	assert.Equal(t, DefaultSettings().Backend, s.Backend)
	assert.Equal(t, DefaultSettings().TemplateRoot, s.TemplateRoot)
}

func TestLoadSettingsRejectsUnknownBackend(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "Settings.ini")
	require.NoError(t, os.WriteFile(path, []byte("[capture]\nbackend = wayland\n"), 0o644))

	_, err := LoadSettings(path)
	require.Error(t, err)
	assert.ErrorContains(t, err, "unknown capture backend")
}
