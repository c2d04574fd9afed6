// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/opinion-crawler/internal/source"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig    `mapstructure:"server"`
	Crawler CrawlerConfig   `mapstructure:"crawler"`
	Fetch   FetchConfig     `mapstructure:"fetch"`
	Sources []source.Config `mapstructure:"sources"`
	Storage StorageConfig   `mapstructure:"storage"`
	DB      DBConfig        `mapstructure:"db"`
	PubSub  PubSubConfig    `mapstructure:"pubsub"`
	Logging LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls the ops HTTP server. Port 0 disables it.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// CrawlerConfig governs scheduling and the duplicate cascade.
type CrawlerConfig struct {
	RateMinutes  int    `mapstructure:"rate_minutes"`
	DupThreshold int    `mapstructure:"dup_threshold"`
	ContentHash  string `mapstructure:"content_hash"`
	UserAgent    string `mapstructure:"user_agent"`
}

// FetchConfig configures the download client.
type FetchConfig struct {
	TimeoutSeconds     int     `mapstructure:"timeout_seconds"`
	MaxMetaRefreshHops int     `mapstructure:"max_meta_refresh_hops"`
	RequestsPerSecond  float64 `mapstructure:"requests_per_second"`
	Burst              int     `mapstructure:"burst"`
	MaxBodyBytes       int     `mapstructure:"max_body_bytes"`
}

// StorageConfig selects where document binaries are written.
type StorageConfig struct {
	Provider  string `mapstructure:"provider"`
	BaseDir   string `mapstructure:"base_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// DBConfig selects the document, baseline and error-log store.
type DBConfig struct {
	Provider        string `mapstructure:"provider"`
	DSN             string `mapstructure:"dsn"`
	Schema          string `mapstructure:"schema"`
	MaxConns        int32  `mapstructure:"max_conns"`
	MinConns        int32  `mapstructure:"min_conns"`
	ConnLifetimeMin int    `mapstructure:"conn_lifetime_minutes"`
	Migrate         bool   `mapstructure:"migrate"`
	BadgerDir       string `mapstructure:"badger_dir"`
}

// PubSubConfig holds the extraction topic.
type PubSubConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features and the minimum level.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

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

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 0)
	v.SetDefault("crawler.rate_minutes", 30)
	v.SetDefault("crawler.dup_threshold", 5)
	v.SetDefault("crawler.content_hash", "sha1")
	v.SetDefault("crawler.user_agent", "opinion-crawler/1.0")
	v.SetDefault("fetch.timeout_seconds", 60)
	v.SetDefault("fetch.max_meta_refresh_hops", 5)
	v.SetDefault("fetch.requests_per_second", 1.0)
	v.SetDefault("fetch.burst", 1)
	v.SetDefault("fetch.max_body_bytes", 0)
	v.SetDefault("storage.provider", "local")
	v.SetDefault("storage.base_dir", "data/binaries")
	v.SetDefault("storage.prefix", "opinions")
	v.SetDefault("db.provider", "badger")
	v.SetDefault("db.schema", "public")
	v.SetDefault("db.badger_dir", "data/state")
	v.SetDefault("pubsub.provider", "memory")
	v.SetDefault("pubsub.topic_name", "opinion-extraction")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port < 0 {
		return fmt.Errorf("server.port must be >= 0")
	}
	if c.Crawler.RateMinutes <= 0 {
		return fmt.Errorf("crawler.rate_minutes must be > 0")
	}
	if c.Crawler.DupThreshold <= 0 {
		return fmt.Errorf("crawler.dup_threshold must be > 0")
	}
	switch strings.ToLower(c.Crawler.ContentHash) {
	case "", "sha1", "sha256":
	default:
		return fmt.Errorf("crawler.content_hash must be sha1 or sha256")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Fetch.MaxMetaRefreshHops < 0 {
		return fmt.Errorf("fetch.max_meta_refresh_hops must be >= 0")
	}
	if c.Fetch.RequestsPerSecond < 0 {
		return fmt.Errorf("fetch.requests_per_second must be >= 0")
	}
	switch c.Storage.Provider {
	case "memory":
	case "local":
		if c.Storage.BaseDir == "" {
			return fmt.Errorf("storage.base_dir must be set for the local provider")
		}
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set for the gcs provider")
		}
	default:
		return fmt.Errorf("storage.provider must be local, gcs or memory")
	}
	switch c.DB.Provider {
	case "memory":
	case "badger":
		if c.DB.BadgerDir == "" {
			return fmt.Errorf("db.badger_dir must be set for the badger provider")
		}
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set for the postgres provider")
		}
	default:
		return fmt.Errorf("db.provider must be postgres, badger or memory")
	}
	switch c.PubSub.Provider {
	case "memory":
	case "pubsub":
		if c.PubSub.ProjectID == "" || c.PubSub.TopicName == "" {
			return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set for the pubsub provider")
		}
	default:
		return fmt.Errorf("pubsub.provider must be pubsub or memory")
	}
	return nil
}

// FetchTimeout returns the per-request download timeout.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// ConnLifetime returns the Postgres connection lifetime, or zero for the
// driver default.
func (c Config) ConnLifetime() time.Duration {
	return time.Duration(c.DB.ConnLifetimeMin) * time.Minute
}
