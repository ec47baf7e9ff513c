package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	pkgdb "github.com/unowned-ai/nikki/pkg/db"
	"github.com/unowned-ai/nikki/pkg/search"
	"github.com/unowned-ai/nikki/pkg/utils"
)

// DefaultAddr is the default listen address of the HTTP API.
const DefaultAddr = "127.0.0.1:8765"

// Environment variables that override the configuration file.
const (
	EnvDB              = "NIKKI_DB"
	EnvWAL             = "NIKKI_WAL"
	EnvSync            = "NIKKI_SYNC"
	EnvSearchThreshold = "NIKKI_SEARCH_THRESHOLD"
	EnvSearchScorer    = "NIKKI_SEARCH_SCORER"
	EnvAddr            = "NIKKI_ADDR"
	EnvLogLevel        = "NIKKI_LOG_LEVEL"
)

var ErrInvalid = errors.New("invalid config")

// Config is the nikki configuration file.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Search   SearchConfig   `toml:"search"`
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
}

// DatabaseConfig selects the SQLite file and its pragmas.
type DatabaseConfig struct {
	Path string `toml:"path"`
	WAL  bool   `toml:"wal"`
	Sync string `toml:"sync"` // OFF, NORMAL, FULL or EXTRA
}

// SearchConfig tunes the relevance search.
type SearchConfig struct {
	Threshold float64 `toml:"threshold"`
	Scorer    string  `toml:"scorer"` // "approximate" or "subsequence"
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type LogConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: utils.GetDefaultDBPathOnly(),
			WAL:  true,
			Sync: "NORMAL",
		},
		Search: SearchConfig{
			Threshold: search.DefaultThreshold,
			Scorer:    search.ScorerApproximate,
		},
		Server: ServerConfig{Addr: DefaultAddr},
		Log:    LogConfig{Level: "info"},
	}
}

// Validate checks that every enumerated setting has a known value.
func (c *Config) Validate() error {
	if !pkgdb.ValidSyncMode(c.Database.Sync) {
		return fmt.Errorf("%w: unknown sync mode %q", ErrInvalid, c.Database.Sync)
	}
	if c.Search.Threshold < 0 || c.Search.Threshold > 1 {
		return fmt.Errorf("%w: search threshold %v outside [0, 1]", ErrInvalid, c.Search.Threshold)
	}
	if !search.ValidScorer(c.Search.Scorer) {
		return fmt.Errorf("%w: unknown scorer %q", ErrInvalid, c.Search.Scorer)
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalid, c.Log.Level)
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from r on top of the defaults.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	cfg := Default()
	if _, err := toml.NewDecoder(r).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Write encodes cfg to w.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// Load reads the config file at path, falling back to the defaults when it
// does not exist, then applies the environment. A .env file in the working
// directory is loaded first if present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		fileCfg, err := ReadFromFile(path)
		switch {
		case err == nil:
			cfg = fileCfg
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings from the NIKKI_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvDB); ok && v != "" {
		c.Database.Path = v
	}
	if v, ok := lookup(EnvWAL); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %w", ErrInvalid, EnvWAL, v, err)
		}
		c.Database.WAL = b
	}
	if v, ok := lookup(EnvSync); ok && v != "" {
		c.Database.Sync = v
	}
	if v, ok := lookup(EnvSearchThreshold); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %w", ErrInvalid, EnvSearchThreshold, v, err)
		}
		c.Search.Threshold = f
	}
	if v, ok := lookup(EnvSearchScorer); ok && v != "" {
		c.Search.Scorer = v
	}
	if v, ok := lookup(EnvAddr); ok && v != "" {
		c.Server.Addr = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	return nil
}

func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init writes cfg to a new file at path. An existing file is left alone.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
