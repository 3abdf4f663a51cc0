// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/navarchus/config.yaml",
	"/etc/navarchus/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// Defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         3917,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
			Environment:  "development",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Store: StoreConfig{
			Path:             "/data/navarchus/store",
			SyncWrites:       true,
			MemTableSize:     64 << 20,
			ValueLogFileSize: 256 << 20,
			NumCompactors:    4,
			ConflictRetries:  5,
			RetryBackoff:     50 * time.Millisecond,
			GCInterval:       30 * time.Minute,
		},
		BlobStore: BlobStoreConfig{
			Path:          "/data/navarchus/blobs",
			Compress:      true,
			RetentionDays: 0, // keep forever
		},
		NATS: NATSConfig{
			Enabled:        true,
			URL:            "nats://127.0.0.1:4222",
			EmbeddedServer: true,
			Host:           "127.0.0.1",
			Port:           4222,
			StoreDir:       "/data/navarchus/jetstream",
			MaxMemory:      1 << 30,  // 1GB
			MaxStore:       10 << 30, // 10GB

			StreamName:       "PIPELINE",
			DLQStreamName:    "PIPELINE_DLQ",
			SubscribersCount: 4,
			DurableName:      "replay-processor",
			QueueGroup:       "processors",

			MaxReconnects: 60,
			ReconnectWait: 2 * time.Second,
			AckWait:       5 * time.Minute,
			MaxDeliver:    5,
			MaxAckPending: 256,
		},
		Pipeline: PipelineConfig{
			DecodeTimeout: 30 * time.Second,
			RenderTimeout: 10 * time.Minute,

			RetryMaxRetries:      5,
			RetryInitialInterval: time.Second,
			RetryMaxInterval:     time.Minute,
			PoisonQueueTopic:     "dlq.pipeline",
			CloseTimeout:         30 * time.Second,
		},
		Render: RenderConfig{
			Enabled:     true,
			FFmpegPath:  "ffmpeg",
			FrameRate:   15,
			FrameSize:   760,
			TrailLength: 40,
			SpeedUp:     12,
		},
		Upload: UploadConfig{
			APIKey:            "",
			MaxSizeBytes:      64 << 20, // 64MB
			AllowedExtensions: []string{".wowsreplay"},
			RatePerMinute:     10,
		},
		Discord: DiscordConfig{
			Enabled:         false,
			WebhookURL:      "",
			NotifyGameTypes: []string{"clan"},
			MatchBaseURL:    "",
			Timeout:         30 * time.Second,
		},
		Analytics: AnalyticsConfig{
			Enabled:   true,
			Path:      "/data/navarchus/analytics.duckdb",
			MaxMemory: "1GB",
			Threads:   0, // 0 = runtime.NumCPU()
		},
		WOWS: WOWSConfig{
			Enabled:           false,
			ApplicationID:     "",
			BaseURL:           "https://api.worldofwarships.asia",
			Timeout:           5 * time.Second,
			CacheTTL:          24 * time.Hour,
			RequestsPerSecond: 10,
		},
		Auth: AuthConfig{
			SigningSecret: "",
			TokenTTL:      24 * time.Hour,
		},
		API: APIConfig{
			DefaultPageSize: 30,
			MaxPageSize:     100,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in values
//  2. Config file: optional YAML (CONFIG_PATH or default search paths)
//  3. Environment variables: override any setting
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths are parsed as comma-separated
// slices when they arrive from environment variables.
var sliceConfigPaths = []string{
	"api.cors_origins",
	"upload.allowed_extensions",
	"discord.notify_game_types",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields. Env vars come in as strings, but the config expects
// slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML file or defaults).
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unmapped variables are dropped so unrelated environment noise cannot
// reach the config tree.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - STORE_PATH -> store.path
//   - UPLOAD_API_KEY -> upload.api_key
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server
		"http_host":     "server.host",
		"http_port":     "server.port",
		"read_timeout":  "server.read_timeout",
		"write_timeout": "server.write_timeout",
		"environment":   "server.environment",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",

		// Record store
		"store_path":             "store.path",
		"store_sync_writes":      "store.sync_writes",
		"store_conflict_retries": "store.conflict_retries",

		// Blob store
		"blob_path":           "blobstore.path",
		"blob_compress":       "blobstore.compress",
		"blob_retention_days": "blobstore.retention_days",

		// NATS / JetStream
		"nats_enabled":           "nats.enabled",
		"nats_url":               "nats.url",
		"nats_embedded":          "nats.embedded_server",
		"nats_host":              "nats.host",
		"nats_port":              "nats.port",
		"nats_store_dir":         "nats.store_dir",
		"nats_stream_name":       "nats.stream_name",
		"nats_durable_name":      "nats.durable_name",
		"nats_queue_group":       "nats.queue_group",
		"nats_subscribers_count": "nats.subscribers_count",

		// Pipeline
		"decode_timeout":     "pipeline.decode_timeout",
		"render_timeout":     "pipeline.render_timeout",
		"poison_queue_topic": "pipeline.poison_queue_topic",

		// Renderer
		"render_enabled":    "render.enabled",
		"ffmpeg_path":       "render.ffmpeg_path",
		"render_frame_rate": "render.frame_rate",
		"render_frame_size": "render.frame_size",
		"render_speed_up":   "render.speed_up",

		// Upload boundary
		"upload_api_key":         "upload.api_key",
		"upload_max_size_bytes":  "upload.max_size_bytes",
		"upload_rate_per_minute": "upload.rate_per_minute",
		"upload_allowed_ext":     "upload.allowed_extensions",

		// Discord notifications
		"discord_enabled":           "discord.enabled",
		"discord_webhook_url":       "discord.webhook_url",
		"discord_notify_game_types": "discord.notify_game_types",
		"discord_match_base_url":    "discord.match_base_url",

		// Analytics mirror
		"analytics_enabled": "analytics.enabled",
		"duckdb_path":       "analytics.path",
		"duckdb_max_memory": "analytics.max_memory",
		"duckdb_threads":    "analytics.threads",

		// WoWS encyclopedia API
		"wows_enabled":             "wows.enabled",
		"wows_application_id":      "wows.application_id",
		"wows_base_url":            "wows.base_url",
		"wows_timeout":             "wows.timeout",
		"wows_cache_ttl":           "wows.cache_ttl",
		"wows_requests_per_second": "wows.requests_per_second",

		// Signed URLs
		"jwt_secret":     "auth.signing_secret",
		"auth_token_ttl": "auth.token_ttl",

		// Query API
		"api_default_page_size": "api.default_page_size",
		"api_max_page_size":     "api.max_page_size",
		"cors_origins":          "api.cors_origins",
		"api_rate_limit_reqs":   "api.rate_limit_reqs",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// Unknown variables are ignored.
	return ""
}
