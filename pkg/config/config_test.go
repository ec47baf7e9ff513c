package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.Database.WAL)
	assert.Equal(t, "NORMAL", cfg.Database.Sync)
	assert.Equal(t, 0.3, cfg.Search.Threshold)
	assert.Equal(t, "approximate", cfg.Search.Scorer)
	assert.Equal(t, DefaultAddr, cfg.Server.Addr)
	assert.NotEmpty(t, cfg.Database.Path)
}

func TestManager_ReadKeepsDefaultsForMissingKeys(t *testing.T) {
	input := `
[database]
path = "/tmp/journal.db"

[search]
threshold = 0.5
`
	m := &Manager{}
	cfg, err := m.Read(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/journal.db", cfg.Database.Path)
	assert.Equal(t, 0.5, cfg.Search.Threshold)
	assert.Equal(t, "NORMAL", cfg.Database.Sync)
	assert.Equal(t, "approximate", cfg.Search.Scorer)
	assert.Equal(t, DefaultAddr, cfg.Server.Addr)
}

func TestManager_RoundTrip(t *testing.T) {
	m := &Manager{}
	cfg := Default()
	cfg.Database.Path = "/data/nikki.db"
	cfg.Search.Scorer = "subsequence"
	cfg.Log.Development = true

	var buf bytes.Buffer
	require.NoError(t, m.Write(&buf, cfg))

	got, err := m.Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestManager_ReadInvalid(t *testing.T) {
	m := &Manager{}
	_, err := m.Read(strings.NewReader("[database\npath = 1"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"sync mode", func(c *Config) { c.Database.Sync = "SOMETIMES" }},
		{"negative threshold", func(c *Config) { c.Search.Threshold = -0.1 }},
		{"threshold above one", func(c *Config) { c.Search.Threshold = 1.1 }},
		{"scorer", func(c *Config) { c.Search.Scorer = "bm25" }},
		{"log level", func(c *Config) { c.Log.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(lookupFrom(map[string]string{
		EnvDB:              "/env/nikki.db",
		EnvWAL:             "false",
		EnvSync:            "FULL",
		EnvSearchThreshold: "0.25",
		EnvSearchScorer:    "subsequence",
		EnvAddr:            ":9000",
		EnvLogLevel:        "debug",
	}))
	require.NoError(t, err)

	assert.Equal(t, "/env/nikki.db", cfg.Database.Path)
	assert.False(t, cfg.Database.WAL)
	assert.Equal(t, "FULL", cfg.Database.Sync)
	assert.Equal(t, 0.25, cfg.Search.Threshold)
	assert.Equal(t, "subsequence", cfg.Search.Scorer)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestApplyEnv_InvalidValues(t *testing.T) {
	cfg := Default()
	assert.ErrorIs(t, cfg.ApplyEnv(lookupFrom(map[string]string{EnvWAL: "maybe"})), ErrInvalid)
	assert.ErrorIs(t, cfg.ApplyEnv(lookupFrom(map[string]string{EnvSearchThreshold: "high"})), ErrInvalid)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvDB, "")
	t.Setenv(EnvLogLevel, "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[database]\npath = \"/file/nikki.db\"\nsync = \"OFF\"\n"), 0o644))
	t.Setenv(EnvDB, "/env/nikki.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/env/nikki.db", cfg.Database.Path)
	assert.Equal(t, "OFF", cfg.Database.Sync)
}

func TestLoad_RejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[search]\nscorer = \"bm25\"\n"), 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	require.NoError(t, Init(path, Default()))
	cfg, err := ReadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	assert.Error(t, Init(path, Default()), "Init must not overwrite an existing file")
}
