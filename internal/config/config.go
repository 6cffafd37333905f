// Package config loads postgraph's runtime configuration.
//
// Values come from three layers, later ones winning: built-in defaults, an
// optional YAML file, and environment variables. Command-line flags are
// applied on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/postgraph/internal/logging"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreMySQL  = "mysql"
	StoreRedis  = "redis"
)

// Model providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google"
)

// Config is the full runtime configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Engine   EngineConfig   `yaml:"engine"`
	Store    StoreConfig    `yaml:"store"`
	Model    ModelConfig    `yaml:"model"`
	Tavily   TavilyConfig   `yaml:"tavily"`
	LinkedIn LinkedInConfig `yaml:"linkedin"`
	Twitter  TwitterConfig  `yaml:"twitter"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// LogConfig configures the application logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// EngineConfig configures the execution engine.
type EngineConfig struct {
	// MaxSteps bounds the nodes run by one Advance or Resume. Zero means
	// unbounded.
	MaxSteps int `yaml:"max_steps"`

	// EventBuffer is the number of recent events kept per session for the
	// events endpoint.
	EventBuffer int `yaml:"event_buffer"`
}

// StoreConfig selects the checkpoint store.
type StoreConfig struct {
	Backend       string        `yaml:"backend"`
	DSN           string        `yaml:"dsn"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	RedisPrefix   string        `yaml:"redis_prefix"`
	RedisTTL      time.Duration `yaml:"redis_ttl"`
}

// ModelConfig selects the chat model.
type ModelConfig struct {
	Provider        string `yaml:"provider"`
	Name            string `yaml:"name"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	GoogleAPIKey    string `yaml:"google_api_key"`
}

// APIKey returns the key for the selected provider.
func (m ModelConfig) APIKey() string {
	switch m.Provider {
	case ProviderAnthropic:
		return m.AnthropicAPIKey
	case ProviderOpenAI:
		return m.OpenAIAPIKey
	case ProviderGoogle:
		return m.GoogleAPIKey
	}
	return ""
}

// TavilyConfig configures web search.
type TavilyConfig struct {
	APIKey    string  `yaml:"api_key"`
	BaseURL   string  `yaml:"base_url"`
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`
}

// LinkedInConfig configures LinkedIn publishing and the OAuth code exchange.
type LinkedInConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURI  string `yaml:"redirect_uri"`
	APIURL       string `yaml:"api_url"`
}

// TwitterConfig configures Twitter publishing.
type TwitterConfig struct {
	BearerToken string `yaml:"bearer_token"`
	APIURL      string `yaml:"api_url"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:           ":8000",
			RequestTimeout: 5 * time.Minute,
			AllowedOrigins: []string{"*"},
		},
		Log:    LogConfig{Level: "info", Format: logging.FormatText},
		Engine: EngineConfig{MaxSteps: 50, EventBuffer: 200},
		Store: StoreConfig{
			Backend:     StoreMemory,
			RedisAddr:   "localhost:6379",
			RedisPrefix: "postgraph:checkpoint:",
		},
		Model:  ModelConfig{Provider: ProviderAnthropic},
		Tavily: TavilyConfig{RateLimit: 5, Burst: 5},
	}
}

// Load reads the YAML file at path over the defaults and then applies the
// environment. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables looked up with
// lookup. Unset variables leave the field alone.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"ANTHROPIC_API_KEY":      &c.Model.AnthropicAPIKey,
		"OPENAI_API_KEY":         &c.Model.OpenAIAPIKey,
		"GOOGLE_API_KEY":         &c.Model.GoogleAPIKey,
		"TAVILY_API_KEY":         &c.Tavily.APIKey,
		"LINKEDIN_CLIENT_ID":     &c.LinkedIn.ClientID,
		"LINKEDIN_CLIENT_SECRET": &c.LinkedIn.ClientSecret,
		"LINKEDIN_REDIRECT_URI":  &c.LinkedIn.RedirectURI,
		"TWITTER_BEARER_TOKEN":   &c.Twitter.BearerToken,
		"POSTGRAPH_STORE":        &c.Store.Backend,
		"POSTGRAPH_DSN":          &c.Store.DSN,
		"POSTGRAPH_REDIS_ADDR":   &c.Store.RedisAddr,
		"POSTGRAPH_PROVIDER":     &c.Model.Provider,
		"POSTGRAPH_LOG_LEVEL":    &c.Log.Level,
	}
	for name, field := range strs {
		if v, ok := lookup(name); ok {
			*field = strings.TrimSpace(v)
		}
	}

	if v, ok := lookup("POSTGRAPH_REDIS_DB"); ok {
		db, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("POSTGRAPH_REDIS_DB: %w", err)
		}
		c.Store.RedisDB = db
	}
	return nil
}

// Validate reports every problem with c at once.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Server.Addr == "" {
		add("server.addr is required")
	}
	if c.Server.RequestTimeout <= 0 {
		add("server.request_timeout must be positive")
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		add("log.level: %v", err)
	}
	if f := strings.ToLower(c.Log.Format); f != logging.FormatText && f != logging.FormatJSON {
		add("log.format %q must be text or json", c.Log.Format)
	}

	if c.Engine.MaxSteps < 0 {
		add("engine.max_steps must not be negative")
	}
	if c.Engine.EventBuffer < 0 {
		add("engine.event_buffer must not be negative")
	}

	switch c.Store.Backend {
	case StoreMemory:
	case StoreSQLite, StoreMySQL:
		if c.Store.DSN == "" {
			add("store.dsn is required for the %s backend", c.Store.Backend)
		}
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			add("store.redis_addr is required for the redis backend")
		}
	default:
		add("store.backend %q is not one of memory, sqlite, mysql, redis", c.Store.Backend)
	}

	providers := []string{ProviderAnthropic, ProviderOpenAI, ProviderGoogle}
	if !slices.Contains(providers, c.Model.Provider) {
		add("model.provider %q is not one of %s", c.Model.Provider, strings.Join(providers, ", "))
	} else if c.Model.APIKey() == "" {
		add("no API key configured for model provider %s", c.Model.Provider)
	}

	if c.Tavily.RateLimit <= 0 || c.Tavily.Burst <= 0 {
		add("tavily.rate_limit and tavily.burst must be positive")
	}

	return errors.Join(errs...)
}

// Redacted returns a copy of c with secrets masked, for logging.
func (c Config) Redacted() Config {
	mask := func(s *string) {
		if *s != "" {
			*s = "***"
		}
	}
	mask(&c.Model.AnthropicAPIKey)
	mask(&c.Model.OpenAIAPIKey)
	mask(&c.Model.GoogleAPIKey)
	mask(&c.Tavily.APIKey)
	mask(&c.LinkedIn.ClientSecret)
	mask(&c.Twitter.BearerToken)
	mask(&c.Store.RedisPassword)
	mask(&c.Store.DSN)
	c.Server.AllowedOrigins = slices.Clone(c.Server.AllowedOrigins)
	return c
}
