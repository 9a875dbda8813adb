package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MinPollInterval keeps the bot from hammering the notification endpoint.
const MinPollInterval = 10 * time.Second

// Config is the application's configuration model.
type Config struct {
	Account AccountConfig `yaml:"account"`
	Bot     BotConfig     `yaml:"bot"`
	Budget  BudgetConfig  `yaml:"budget"`
	API     APIConfig     `yaml:"api"`
	Health  HealthConfig  `yaml:"health"`
	Log     LogConfig     `yaml:"log"`
	Storage StorageConfig `yaml:"storage"`
}

type AccountConfig struct {
	// Bot handle. If empty, read from env BLUESKY_HANDLE
	Handle string `yaml:"handle"`
	// App password. If empty, read from env BLUESKY_APP_PASSWORD
	AppPassword string `yaml:"appPassword"`
	PDSHost     string `yaml:"pdsHost"`
}

type BotConfig struct {
	PollInterval     time.Duration `yaml:"pollInterval"`
	RecentDays       int           `yaml:"recentDays"`
	MaxPosts         int           `yaml:"maxPosts"`
	MinLikesForRatio int           `yaml:"minLikesForRatio"`
	// Pause between chained thread replies
	ThreadDelay time.Duration `yaml:"threadDelay"`
	// Only answer accounts that follow the bot
	RequireFollow bool `yaml:"requireFollow"`
}

// BudgetConfig caps answered mentions; zero means unlimited.
// Only enforced when storage.dbPath is set.
type BudgetConfig struct {
	MaxPerHour int `yaml:"maxPerHour"`
	MaxPerDay  int `yaml:"maxPerDay"`
}

type APIConfig struct {
	RPS         float64       `yaml:"rps"`
	Burst       int           `yaml:"burst"`
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff"`
	Timeout     time.Duration `yaml:"timeout"`
}

type HealthConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type StorageConfig struct {
	// Empty keeps processed mentions in memory only
	DBPath string `yaml:"dbPath"`
}

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		Account: AccountConfig{PDSHost: "https://bsky.social"},
		Bot: BotConfig{
			PollInterval:     30 * time.Second,
			RecentDays:       30,
			MaxPosts:         1000,
			MinLikesForRatio: 5,
			ThreadDelay:      time.Second,
		},
		API:    APIConfig{RPS: 5, Burst: 10, MaxAttempts: 3, BaseBackoff: 500 * time.Millisecond, Timeout: 15 * time.Second},
		Health: HealthConfig{Port: 8080},
		Log:    LogConfig{Level: "info"},
	}
}

// ResolveEnv fills credentials from the environment when unset and lets
// environment values override the numeric settings.
func (c *Config) ResolveEnv() {
	if c.Account.Handle == "" {
		c.Account.Handle = os.Getenv("BLUESKY_HANDLE")
	}
	if c.Account.AppPassword == "" {
		c.Account.AppPassword = os.Getenv("BLUESKY_APP_PASSWORD")
	}
	if v := os.Getenv("BLUESKY_PDS_HOST"); v != "" {
		c.Account.PDSHost = v
	}
	if n, ok := envInt("POLL_INTERVAL"); ok {
		c.Bot.PollInterval = time.Duration(n) * time.Second
	}
	if n, ok := envInt("RECENT_DAYS"); ok {
		c.Bot.RecentDays = n
	}
	if n, ok := envInt("MAX_POSTS"); ok {
		c.Bot.MaxPosts = n
	}
	if n, ok := envInt("MIN_ENGAGEMENT_FOR_RATIO"); ok {
		c.Bot.MinLikesForRatio = n
	}
	if v := os.Getenv("REQUIRE_FOLLOW"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Bot.RequireFollow = b
		}
	}
	if n, ok := envInt("HEALTH_CHECK_PORT"); ok {
		c.Health.Port = n
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("HYPEBOT_DB"); v != "" {
		c.Storage.DBPath = v
	}
}

// Validate checks the settings the bot cannot run without.
func (c Config) Validate() error {
	var errs []error
	if c.Account.Handle == "" {
		errs = append(errs, errors.New("BLUESKY_HANDLE is required"))
	}
	if c.Account.AppPassword == "" {
		errs = append(errs, errors.New("BLUESKY_APP_PASSWORD is required"))
	}
	if c.Bot.PollInterval < MinPollInterval {
		errs = append(errs, fmt.Errorf("poll interval must be at least %s", MinPollInterval))
	}
	if c.Bot.RecentDays < 1 {
		errs = append(errs, errors.New("recent days must be positive"))
	}
	if c.Bot.MaxPosts < 1 {
		errs = append(errs, errors.New("max posts must be positive"))
	}
	return errors.Join(errs...)
}

// Load reads YAML config from path. A missing file yields the defaults;
// environment overrides are applied either way.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	cfg.ResolveEnv()
	return cfg, nil
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
