// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Schedule   ScheduleConfig   `mapstructure:"schedule"`
	Retention  RetentionConfig  `mapstructure:"retention"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Headless   HeadlessConfig   `mapstructure:"headless"`
	Places     PlacesConfig     `mapstructure:"places"`
	Listings   ListingsConfig   `mapstructure:"listings"`
	Structured StructuredConfig `mapstructure:"structured"`
	Store      StoreConfig      `mapstructure:"store"`
	Archive    ArchiveConfig    `mapstructure:"archive"`
	PubSub     PubSubConfig     `mapstructure:"pubsub"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port       int `mapstructure:"port"`
	QueueDepth int `mapstructure:"queue_depth"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// ScheduleConfig describes the recurring refresh trigger.
type ScheduleConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	JobID    string `mapstructure:"job_id"`
	Cron     string `mapstructure:"cron"`
	Timezone string `mapstructure:"timezone"`
	// SeedOnEmpty queues one run at startup when the store holds no restaurants.
	SeedOnEmpty bool `mapstructure:"seed_on_empty"`
}

// RetentionConfig locates the rolling seven-day window in calendar time.
type RetentionConfig struct {
	Timezone string `mapstructure:"timezone"`
}

// HTTPConfig configures outbound fetching.
type HTTPConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
	DelayMinMs     int    `mapstructure:"delay_min_ms"`
	DelayMaxMs     int    `mapstructure:"delay_max_ms"`
	RespectRobots  bool   `mapstructure:"respect_robots"`
}

// HeadlessConfig configures the headless rendering subsystem.
type HeadlessConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	MaxParallel     int  `mapstructure:"max_parallel"`
	NavTimeoutSec   int  `mapstructure:"nav_timeout_seconds"`
	PromotionThresh int  `mapstructure:"promotion_threshold"`
}

// PlacesConfig configures the geocoded places lookup.
type PlacesConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	APIKey        string   `mapstructure:"api_key"`
	Endpoint      string   `mapstructure:"endpoint"`
	QueryTemplate string   `mapstructure:"query_template"`
	Areas         []string `mapstructure:"areas"`
	MaxPerArea    int      `mapstructure:"max_per_area"`
}

// ListingsConfig configures the scraped listings source.
type ListingsConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	URLs        []string `mapstructure:"urls"`
	SearchURLs  []string `mapstructure:"search_urls"`
	MinResults  int      `mapstructure:"min_results"`
	MaxCards    int      `mapstructure:"max_cards"`
	Placeholder string   `mapstructure:"placeholder_address"`
	Districts   []string `mapstructure:"districts"`
}

// StructuredConfig configures the page-level JSON-LD source.
type StructuredConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	URLs    []string `mapstructure:"urls"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// ArchiveConfig selects where raw listing pages are copied.
type ArchiveConfig struct {
	Driver    string `mapstructure:"driver"`
	BaseDir   string `mapstructure:"base_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// PubSubConfig holds metadata for run notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("NEWOPENINGS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindEnvAliases(v); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// bindEnvAliases also honours PORT, GOOGLE_PLACES_API_KEY and DATABASE_URL.
// Prefixed names are checked first.
func bindEnvAliases(v *viper.Viper) error {
	aliases := map[string][]string{
		"server.port":    {"NEWOPENINGS_SERVER_PORT", "PORT"},
		"places.api_key": {"NEWOPENINGS_PLACES_API_KEY", "GOOGLE_PLACES_API_KEY"},
		"store.dsn":      {"NEWOPENINGS_STORE_DSN", "DATABASE_URL"},
	}
	for key, envs := range aliases {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 7860)
	v.SetDefault("server.queue_depth", 4)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
	v.SetDefault("schedule.enabled", true)
	v.SetDefault("schedule.job_id", "weekly_scrape")
	v.SetDefault("schedule.cron", "0 2 * * MON")
	v.SetDefault("schedule.timezone", "Asia/Hong_Kong")
	v.SetDefault("schedule.seed_on_empty", true)
	v.SetDefault("retention.timezone", "Asia/Hong_Kong")
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.user_agent", DefaultUserAgent)
	v.SetDefault("http.delay_min_ms", 2000)
	v.SetDefault("http.delay_max_ms", 4000)
	v.SetDefault("http.respect_robots", false)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 30)
	v.SetDefault("headless.promotion_threshold", 2048)
	v.SetDefault("places.enabled", true)
	v.SetDefault("places.endpoint", "https://places.googleapis.com/v1/places:searchText")
	v.SetDefault("places.query_template", "new restaurant opening in %s, Hong Kong")
	v.SetDefault("places.areas", DefaultAreas)
	v.SetDefault("places.max_per_area", 5)
	v.SetDefault("listings.enabled", true)
	v.SetDefault("listings.urls", DefaultListingURLs)
	v.SetDefault("listings.search_urls", DefaultSearchURLs)
	v.SetDefault("listings.min_results", 5)
	v.SetDefault("listings.max_cards", 20)
	v.SetDefault("listings.placeholder_address", "Address not available")
	v.SetDefault("listings.districts", DefaultDistricts)
	v.SetDefault("structured.enabled", false)
	v.SetDefault("structured.urls", []string{})
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "restaurants.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("archive.driver", "none")
	v.SetDefault("archive.base_dir", "data/pages")
	v.SetDefault("archive.prefix", "pages")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.QueueDepth <= 0 {
		return fmt.Errorf("server.queue_depth must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.Schedule.Enabled && strings.TrimSpace(c.Schedule.Cron) == "" {
		return fmt.Errorf("schedule.cron must be set when the schedule is enabled")
	}
	if strings.TrimSpace(c.Retention.Timezone) == "" {
		return fmt.Errorf("retention.timezone must be set")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.DelayMinMs < 0 || c.HTTP.DelayMaxMs < c.HTTP.DelayMinMs {
		return fmt.Errorf("http.delay_min_ms must be >= 0 and <= http.delay_max_ms")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.Places.Enabled && c.Places.MaxPerArea <= 0 {
		return fmt.Errorf("places.max_per_area must be > 0")
	}
	if c.Listings.Enabled && c.Listings.MaxCards <= 0 {
		return fmt.Errorf("listings.max_cards must be > 0")
	}
	switch c.Store.Driver {
	case "memory":
	case "sqlite", "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn must be set for driver %q", c.Store.Driver)
		}
	default:
		return fmt.Errorf("store.driver %q is not one of memory, sqlite, postgres", c.Store.Driver)
	}
	switch c.Archive.Driver {
	case "none", "memory":
	case "local":
		if c.Archive.BaseDir == "" {
			return fmt.Errorf("archive.base_dir must be set for the local archive")
		}
	case "gcs":
		if c.Archive.GCSBucket == "" {
			return fmt.Errorf("archive.gcs_bucket must be set for the gcs archive")
		}
	default:
		return fmt.Errorf("archive.driver %q is not one of none, memory, local, gcs", c.Archive.Driver)
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic_name is set")
	}
	return nil
}

// RequestTimeout converts the HTTP timeout into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// PauseBounds returns the jittered pause range applied between requests to one source.
func (c Config) PauseBounds() (time.Duration, time.Duration) {
	return time.Duration(c.HTTP.DelayMinMs) * time.Millisecond, time.Duration(c.HTTP.DelayMaxMs) * time.Millisecond
}
