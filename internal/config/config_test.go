package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "Alex", cfg.ChildName)
	assert.Equal(t, BackendFile, cfg.Storage.Backend)
	assert.Equal(t, float64(60), cfg.Limits.DefaultAppMinutes)
	assert.Equal(t, float64(240), cfg.Limits.TotalMinutes)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "screentime.log", cfg.Logging.File)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
child_name: Robin
data_dir: /tmp/screentime-test
storage:
  backend: encrypted
limits:
  default_app_minutes: 90
  total_minutes: 300
logging:
  level: debug
`))
	require.NoError(t, err)

	assert.Equal(t, "Robin", cfg.ChildName)
	assert.Equal(t, "/tmp/screentime-test", cfg.DataDir)
	assert.Equal(t, BackendEncrypted, cfg.Storage.Backend)
	assert.Equal(t, float64(90), cfg.Limits.DefaultAppMinutes)
	assert.Equal(t, float64(300), cfg.Limits.TotalMinutes)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_UnknownBackend(t *testing.T) {
	_, err := Load(writeConfig(t, "storage:\n  backend: s3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage backend")
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".screentime"), ExpandHome("~/.screentime"))
	assert.Equal(t, home, ExpandHome("~"))
	assert.Equal(t, "/var/data", ExpandHome("/var/data"))
	assert.Equal(t, "relative/path", ExpandHome("relative/path"))
}

func TestMinutesToSeconds(t *testing.T) {
	tests := []struct {
		minutes float64
		want    int64
	}{
		{60, 3600},
		{0.5, 30},
		{0, 0},
		{1.25, 75},
		{0.008, 0}, // rounds down to zero
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MinutesToSeconds(tt.minutes), "%v minutes", tt.minutes)
	}
}

func TestDefaultApps(t *testing.T) {
	apps := DefaultApps(3600)
	require.Len(t, apps, 5)

	ids := make([]string, 0, len(apps))
	for _, a := range apps {
		ids = append(ids, a.ID)
		assert.Equal(t, int64(3600), a.LimitSeconds, a.ID)
		assert.Zero(t, a.UsedSeconds, a.ID)
		assert.False(t, a.Running, a.ID)
	}
	assert.Equal(t, []string{"youtube", "whatsapp", "tiktok", "instagram", "games"}, ids)
}

func TestNewDefaultLedger(t *testing.T) {
	cfg := &Config{
		ChildName: "Robin",
		Limits:    LimitsConfig{DefaultAppMinutes: 30, TotalMinutes: 120},
	}

	l := cfg.NewDefaultLedger()
	assert.Equal(t, "Robin", l.ChildName)
	assert.Equal(t, int64(7200), l.TotalLimitSeconds)
	require.Len(t, l.Apps, 5)
	assert.Equal(t, int64(1800), l.Apps[0].LimitSeconds)
	assert.Empty(t, l.EventLog)
}
