// Package config loads service configuration from defaults, an optional YAML
// file and RESEARCHDESK_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g.
// RESEARCHDESK_STORE_DRIVER for store.driver.
const EnvPrefix = "RESEARCHDESK"

// Config is the full service configuration.
type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	Store    StoreConfig    `mapstructure:"store"`
	Arxiv    ArxivConfig    `mapstructure:"arxiv"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Log      LogConfig      `mapstructure:"log"`
	Research ResearchConfig `mapstructure:"research"`
}

type HTTPConfig struct {
	Port            int           `mapstructure:"port"`
	CORSOrigin      string        `mapstructure:"cors_origin"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type StoreConfig struct {
	Driver string       `mapstructure:"driver"`
	Neo4j  Neo4jConfig  `mapstructure:"neo4j"`
	SQLite SQLiteConfig `mapstructure:"sqlite"`
}

type Neo4jConfig struct {
	URL         string        `mapstructure:"url"`
	User        string        `mapstructure:"user"`
	Password    string        `mapstructure:"password"`
	Database    string        `mapstructure:"database"`
	MaxPoolSize int           `mapstructure:"max_pool_size"`
	ConnTimeout time.Duration `mapstructure:"conn_timeout"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type ArxivConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	UserAgent       string        `mapstructure:"user_agent"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxResults      int           `mapstructure:"max_results"`
	RequestInterval time.Duration `mapstructure:"request_interval"`

	// BreakerThreshold consecutive fetch failures stop calls to arXiv for
	// BreakerCooldown.
	BreakerThreshold int           `mapstructure:"breaker_threshold"`
	BreakerCooldown  time.Duration `mapstructure:"breaker_cooldown"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
	Queue   string `mapstructure:"queue"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ResearchConfig struct {
	TopK            int `mapstructure:"top_k"`
	SummaryLimit    int `mapstructure:"summary_limit"`
	SuggestionLimit int `mapstructure:"suggestion_limit"`
	ExcerptLength   int `mapstructure:"excerpt_length"`
}

var defaults = map[string]any{
	"http.port":             8080,
	"http.cors_origin":      "*",
	"http.read_timeout":     15 * time.Second,
	"http.write_timeout":    60 * time.Second,
	"http.shutdown_timeout": 10 * time.Second,

	"store.driver":              "neo4j",
	"store.neo4j.url":           "neo4j://localhost:7687",
	"store.neo4j.user":          "neo4j",
	"store.neo4j.password":      "password",
	"store.neo4j.database":      "",
	"store.neo4j.max_pool_size": 50,
	"store.neo4j.conn_timeout":  10 * time.Second,
	"store.sqlite.path":         "data/researchdesk.db",

	"arxiv.base_url":          "https://export.arxiv.org/api/query",
	"arxiv.user_agent":        "researchdesk/1.0",
	"arxiv.timeout":           30 * time.Second,
	"arxiv.max_results":       5,
	"arxiv.request_interval":  3 * time.Second,
	"arxiv.breaker_threshold": 5,
	"arxiv.breaker_cooldown":  30 * time.Second,

	"nats.url":     "nats://localhost:4222",
	"nats.subject": "research.papers",
	"nats.queue":   "ingest",

	"log.level":  "info",
	"log.format": "json",

	"research.top_k":            5,
	"research.summary_limit":    5,
	"research.suggestion_limit": 5,
	"research.excerpt_length":   200,
}

// legacyEnv keeps the plain variable names used by the deployment scripts.
var legacyEnv = map[string]string{
	"http.port":            "PORT",
	"http.cors_origin":     "CORS_ORIGIN",
	"store.neo4j.url":      "NEO4J_URL",
	"store.neo4j.user":     "NEO4J_USER",
	"store.neo4j.password": "NEO4J_PASS",
	"nats.url":             "NATS_URL",
}

// New returns a viper instance with defaults and environment bindings set.
func New() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		_ = v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env)
	}
	return v
}

// Load reads configuration. path names a YAML file; when empty,
// RESEARCHDESK_CONFIG is consulted and then ./researchdesk.yaml is tried.
// A missing default file is not an error.
func Load(path string) (*Config, error) {
	return LoadWith(New(), path)
}

// LoadWith reads configuration into v, which may already carry bound flags.
func LoadWith(v *viper.Viper, path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		v.SetConfigName("researchdesk")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: read: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port %d out of range", c.HTTP.Port))
	}
	switch c.Store.Driver {
	case "neo4j":
		if c.Store.Neo4j.URL == "" {
			errs = append(errs, errors.New("store.neo4j.url is required"))
		}
	case "sqlite":
		if c.Store.SQLite.Path == "" {
			errs = append(errs, errors.New("store.sqlite.path is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is not one of neo4j, sqlite", c.Store.Driver))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of json, text", c.Log.Format))
	}
	positive := map[string]int{
		"arxiv.max_results":         c.Arxiv.MaxResults,
		"arxiv.breaker_threshold":   c.Arxiv.BreakerThreshold,
		"research.top_k":            c.Research.TopK,
		"research.summary_limit":    c.Research.SummaryLimit,
		"research.suggestion_limit": c.Research.SuggestionLimit,
		"research.excerpt_length":   c.Research.ExcerptLength,
	}
	for _, key := range slices.Sorted(maps.Keys(positive)) {
		if positive[key] <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", key, positive[key]))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
