// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

// Package config provides layered configuration loading for Navarchus.
//
// Configuration precedence (highest wins):
//  1. Environment variables
//  2. YAML config file (CONFIG_PATH or default search paths)
//  3. Built-in defaults
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config is the root configuration for the Navarchus server and CLI.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Store     StoreConfig     `koanf:"store"`
	BlobStore BlobStoreConfig `koanf:"blobstore"`
	NATS      NATSConfig      `koanf:"nats"`
	Pipeline  PipelineConfig  `koanf:"pipeline"`
	Render    RenderConfig    `koanf:"render"`
	Upload    UploadConfig    `koanf:"upload"`
	Discord   DiscordConfig   `koanf:"discord"`
	Analytics AnalyticsConfig `koanf:"analytics"`
	WOWS      WOWSConfig      `koanf:"wows"`
	Auth      AuthConfig      `koanf:"auth"`
	API       APIConfig       `koanf:"api"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string        `koanf:"host"`
	Port         int           `koanf:"port"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`
	Environment  string        `koanf:"environment"`
}

// Addr returns the host:port listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// StoreConfig holds BadgerDB record store settings.
type StoreConfig struct {
	Path             string        `koanf:"path"`
	SyncWrites       bool          `koanf:"sync_writes"`
	MemTableSize     int64         `koanf:"mem_table_size"`
	ValueLogFileSize int64         `koanf:"value_log_file_size"`
	NumCompactors    int           `koanf:"num_compactors"`
	ConflictRetries  int           `koanf:"conflict_retries"`
	RetryBackoff     time.Duration `koanf:"retry_backoff"`
	GCInterval       time.Duration `koanf:"gc_interval"`
}

// BlobStoreConfig holds object storage settings for raw replays and videos.
type BlobStoreConfig struct {
	Path string `koanf:"path"`
	// Compress enables zstd compression of blobs at rest.
	Compress bool `koanf:"compress"`
	// RetentionDays prunes raw replay blobs after N days once decoded and
	// rendered. 0 keeps blobs forever.
	RetentionDays int `koanf:"retention_days"`
}

// NATSConfig holds the embedded JetStream server and client settings.
type NATSConfig struct {
	Enabled        bool   `koanf:"enabled"`
	URL            string `koanf:"url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	Host           string `koanf:"host"`
	Port           int    `koanf:"port"`
	StoreDir       string `koanf:"store_dir"`
	MaxMemory      int64  `koanf:"max_memory"`
	MaxStore       int64  `koanf:"max_store"`

	StreamName       string `koanf:"stream_name"`
	DLQStreamName    string `koanf:"dlq_stream_name"`
	SubscribersCount int    `koanf:"subscribers_count"`
	DurableName      string `koanf:"durable_name"`
	QueueGroup       string `koanf:"queue_group"`

	MaxReconnects int           `koanf:"max_reconnects"`
	ReconnectWait time.Duration `koanf:"reconnect_wait"`
	AckWait       time.Duration `koanf:"ack_wait"`
	MaxDeliver    int           `koanf:"max_deliver"`
	MaxAckPending int           `koanf:"max_ack_pending"`
}

// PipelineConfig holds orchestrator settings.
type PipelineConfig struct {
	DecodeTimeout time.Duration `koanf:"decode_timeout"`
	RenderTimeout time.Duration `koanf:"render_timeout"`

	RetryMaxRetries      int           `koanf:"retry_max_retries"`
	RetryInitialInterval time.Duration `koanf:"retry_initial_interval"`
	RetryMaxInterval     time.Duration `koanf:"retry_max_interval"`
	PoisonQueueTopic     string        `koanf:"poison_queue_topic"`
	CloseTimeout         time.Duration `koanf:"close_timeout"`
}

// RenderConfig holds minimap video renderer settings.
type RenderConfig struct {
	Enabled    bool   `koanf:"enabled"`
	FFmpegPath string `koanf:"ffmpeg_path"`
	FrameRate  int    `koanf:"frame_rate"`
	// FrameSize is the square pixel size of a single-perspective frame.
	FrameSize int `koanf:"frame_size"`
	// TrailLength is the number of historical positions drawn per ship.
	TrailLength int `koanf:"trail_length"`
	// SpeedUp compresses battle time: one rendered second covers SpeedUp
	// seconds of battle clock.
	SpeedUp int `koanf:"speed_up"`
}

// UploadConfig holds upload boundary settings.
type UploadConfig struct {
	// APIKey authenticates upload clients via the X-API-Key header.
	APIKey            string   `koanf:"api_key"`
	MaxSizeBytes      int64    `koanf:"max_size_bytes"`
	AllowedExtensions []string `koanf:"allowed_extensions"`
	// RatePerMinute bounds uploads per client IP.
	RatePerMinute int `koanf:"rate_per_minute"`
}

// DiscordConfig holds the outbound match notification webhook settings.
type DiscordConfig struct {
	Enabled    bool   `koanf:"enabled"`
	WebhookURL string `koanf:"webhook_url"`
	// NotifyGameTypes lists the normalized game types that trigger a
	// notification once the video is rendered.
	NotifyGameTypes []string      `koanf:"notify_game_types"`
	MatchBaseURL    string        `koanf:"match_base_url"`
	Timeout         time.Duration `koanf:"timeout"`
}

// AnalyticsConfig holds the DuckDB analytics mirror settings.
type AnalyticsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
}

// WOWSConfig holds the public WoWS encyclopedia API client settings.
// When disabled (or without an application id) ship and clan lookups
// fall back to the embedded gamedata snapshot and placeholder names.
type WOWSConfig struct {
	Enabled       bool          `koanf:"enabled"`
	ApplicationID string        `koanf:"application_id"`
	BaseURL       string        `koanf:"base_url"`
	Timeout       time.Duration `koanf:"timeout"`
	CacheTTL      time.Duration `koanf:"cache_ttl"`
	// RequestsPerSecond bounds outbound API calls; bursts of up to
	// twice this rate are allowed.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
}

// AuthConfig holds signing settings for blob download URLs.
type AuthConfig struct {
	// SigningSecret signs short-lived blob download tokens (HMAC-SHA256 JWT).
	SigningSecret string        `koanf:"signing_secret"`
	TokenTTL      time.Duration `koanf:"token_ttl"`
}

// APIConfig holds query API settings.
type APIConfig struct {
	DefaultPageSize int           `koanf:"default_page_size"`
	MaxPageSize     int           `koanf:"max_page_size"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// Validate checks the configuration for invalid or inconsistent values.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Store.Path == "" {
		errs = append(errs, errors.New("store.path must not be empty"))
	}
	if c.BlobStore.Path == "" {
		errs = append(errs, errors.New("blobstore.path must not be empty"))
	}
	if c.BlobStore.RetentionDays < 0 {
		errs = append(errs, fmt.Errorf("blobstore.retention_days must be >= 0, got %d", c.BlobStore.RetentionDays))
	}
	if c.Upload.MaxSizeBytes <= 0 {
		errs = append(errs, fmt.Errorf("upload.max_size_bytes must be > 0, got %d", c.Upload.MaxSizeBytes))
	}
	if c.NATS.Enabled && !c.NATS.EmbeddedServer && c.NATS.URL == "" {
		errs = append(errs, errors.New("nats.url is required when the embedded server is disabled"))
	}
	if c.Render.Enabled {
		if c.Render.FrameRate < 1 || c.Render.FrameRate > 60 {
			errs = append(errs, fmt.Errorf("render.frame_rate must be 1-60, got %d", c.Render.FrameRate))
		}
		if c.Render.FrameSize < 64 {
			errs = append(errs, fmt.Errorf("render.frame_size must be >= 64, got %d", c.Render.FrameSize))
		}
	}
	if c.Discord.Enabled && c.Discord.WebhookURL == "" {
		errs = append(errs, errors.New("discord.webhook_url is required when discord.enabled is true"))
	}
	if c.Analytics.Enabled && c.Analytics.Path == "" {
		errs = append(errs, errors.New("analytics.path is required when analytics.enabled is true"))
	}
	if c.WOWS.Enabled {
		if c.WOWS.ApplicationID == "" {
			errs = append(errs, errors.New("wows.application_id is required when wows.enabled is true"))
		}
		if c.WOWS.RequestsPerSecond <= 0 {
			errs = append(errs, fmt.Errorf("wows.requests_per_second must be > 0, got %g", c.WOWS.RequestsPerSecond))
		}
	}
	if c.API.DefaultPageSize < 1 || c.API.DefaultPageSize > c.API.MaxPageSize {
		errs = append(errs, fmt.Errorf("api.default_page_size must be 1-%d, got %d",
			c.API.MaxPageSize, c.API.DefaultPageSize))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be > 0"))
	}
	if c.Pipeline.DecodeTimeout <= 0 {
		errs = append(errs, errors.New("pipeline.decode_timeout must be > 0"))
	}

	return errors.Join(errs...)
}
