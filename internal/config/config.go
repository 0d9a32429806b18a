// Package config loads hnfeed settings from TOML with environment overrides.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/abelbrown/hnfeed/internal/hn"
	"github.com/abelbrown/hnfeed/internal/story"
)

//go:embed sample_config.toml
var sampleConfig string

const defaultConfigPath = "~/.config/hnfeed/config.toml"

// API holds Remote API client settings.
type API struct {
	BaseURL            string  `toml:"base_url"`
	UserAgent          string  `toml:"user_agent"`
	ItemTimeoutSeconds int     `toml:"item_timeout_seconds"`
	ListTimeoutSeconds int     `toml:"list_timeout_seconds"`
	MaxConnsPerHost    int     `toml:"max_conns_per_host"`
	RequestsPerSecond  float64 `toml:"requests_per_second"`
}

// Feed holds paging and memory settings.
type Feed struct {
	DefaultType string `toml:"default_type"`
	PageSize    int    `toml:"page_size"`
	FetchWidth  int    `toml:"fetch_width"`
	MaxItems    int    `toml:"max_items"`
}

// Log holds diagnostic logging settings.
type Log struct {
	Dir    string `toml:"dir"`
	Level  string `toml:"level"`
	Events bool   `toml:"events"`
}

// Config encapsulates all configuration values for hnfeed.
type Config struct {
	API  API  `toml:"api"`
	Feed Feed `toml:"feed"`
	Log  Log  `toml:"log"`
}

// Default returns the built-in configuration.
func Default() Config {
	opts := hn.DefaultOptions()
	return Config{
		API: API{
			BaseURL:            opts.BaseURL,
			UserAgent:          opts.UserAgent,
			ItemTimeoutSeconds: int(opts.ItemTimeout / time.Second),
			ListTimeoutSeconds: int(opts.ListTimeout / time.Second),
			MaxConnsPerHost:    opts.MaxConnsPerHost,
		},
		Feed: Feed{
			DefaultType: story.Top.String(),
			PageSize:    20,
			FetchWidth:  10,
			MaxItems:    500,
		},
		Log: Log{
			Dir:    "~/.local/state/hnfeed",
			Level:  "info",
			Events: true,
		},
	}
}

// DefaultConfigPath returns the absolute path of the default config file.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load reads the file at path (the default location when empty), applies
// environment overrides and validates the result. A missing file is not an
// error; the returned bool reports whether one was read.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolved)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if cfg.Log.Dir, err = expandPath(cfg.Log.Dir); err != nil {
		return nil, "", false, fmt.Errorf("log.dir: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolved, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = defaultConfigPath
	}
	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %q is a directory", expanded)
	}
	return expanded, true, nil
}

// applyEnv overlays HNFEED_* environment variables.
func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("HNFEED_BASE_URL")); v != "" {
		c.API.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("HNFEED_FEED")); v != "" {
		c.Feed.DefaultType = v
	}
	if v := strings.TrimSpace(os.Getenv("HNFEED_LOG_DIR")); v != "" {
		c.Log.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv("HNFEED_LOG_LEVEL")); v != "" {
		c.Log.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("HNFEED_EVENTS")); v != "" {
		switch strings.ToLower(v) {
		case "0", "false", "off", "no":
			c.Log.Events = false
		default:
			c.Log.Events = true
		}
	}
}

// ClientOptions converts the [api] section for hn.NewClient.
func (c *Config) ClientOptions() hn.Options {
	return hn.Options{
		BaseURL:           c.API.BaseURL,
		UserAgent:         c.API.UserAgent,
		ItemTimeout:       time.Duration(c.API.ItemTimeoutSeconds) * time.Second,
		ListTimeout:       time.Duration(c.API.ListTimeoutSeconds) * time.Second,
		MaxConnsPerHost:   c.API.MaxConnsPerHost,
		RequestsPerSecond: c.API.RequestsPerSecond,
	}
}

// FeedType returns the configured starting feed. Validate guarantees it parses.
func (c *Config) FeedType() story.FeedType {
	t, err := story.ParseFeedType(c.Feed.DefaultType)
	if err != nil {
		return story.Top
	}
	return t
}

// EventsPath is where the JSONL event trail is written.
func (c *Config) EventsPath() string {
	return filepath.Join(c.Log.Dir, "events.jsonl")
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() (string, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(data), nil
}

// CreateSample writes a sample configuration file to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// ExpandPath resolves a leading ~ and makes path absolute.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}
