// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestDefaultConfig verifies that defaultConfig() returns proper defaults
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	// Server defaults
	if cfg.Server.Port != 3917 {
		t.Errorf("Server.Port = %d, want 3917", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 30s", cfg.Server.ReadTimeout)
	}

	// Store defaults
	if cfg.Store.Path != "/data/navarchus/store" {
		t.Errorf("Store.Path = %q, want /data/navarchus/store", cfg.Store.Path)
	}
	if !cfg.Store.SyncWrites {
		t.Error("Store.SyncWrites should be true by default")
	}
	if cfg.Store.ConflictRetries != 5 {
		t.Errorf("Store.ConflictRetries = %d, want 5", cfg.Store.ConflictRetries)
	}

	// Blob store defaults
	if cfg.BlobStore.Path != "/data/navarchus/blobs" {
		t.Errorf("BlobStore.Path = %q, want /data/navarchus/blobs", cfg.BlobStore.Path)
	}
	if !cfg.BlobStore.Compress {
		t.Error("BlobStore.Compress should be true by default")
	}

	// NATS defaults (embedded, enabled)
	if !cfg.NATS.Enabled {
		t.Error("NATS.Enabled should be true by default")
	}
	if !cfg.NATS.EmbeddedServer {
		t.Error("NATS.EmbeddedServer should be true by default")
	}
	if cfg.NATS.URL != "nats://127.0.0.1:4222" {
		t.Errorf("NATS.URL = %q, want nats://127.0.0.1:4222", cfg.NATS.URL)
	}
	if cfg.NATS.MaxMemory != 1<<30 {
		t.Errorf("NATS.MaxMemory = %d, want 1GB", cfg.NATS.MaxMemory)
	}
	if cfg.NATS.StreamName != "PIPELINE" {
		t.Errorf("NATS.StreamName = %q, want PIPELINE", cfg.NATS.StreamName)
	}

	// Pipeline defaults
	if cfg.Pipeline.DecodeTimeout != 30*time.Second {
		t.Errorf("Pipeline.DecodeTimeout = %v, want 30s", cfg.Pipeline.DecodeTimeout)
	}
	if cfg.Pipeline.PoisonQueueTopic != "dlq.pipeline" {
		t.Errorf("Pipeline.PoisonQueueTopic = %q, want dlq.pipeline", cfg.Pipeline.PoisonQueueTopic)
	}

	// Render defaults
	if cfg.Render.FrameRate != 15 {
		t.Errorf("Render.FrameRate = %d, want 15", cfg.Render.FrameRate)
	}
	if cfg.Render.FFmpegPath != "ffmpeg" {
		t.Errorf("Render.FFmpegPath = %q, want ffmpeg", cfg.Render.FFmpegPath)
	}

	// Upload defaults
	if cfg.Upload.MaxSizeBytes != 64<<20 {
		t.Errorf("Upload.MaxSizeBytes = %d, want 64MB", cfg.Upload.MaxSizeBytes)
	}
	if len(cfg.Upload.AllowedExtensions) != 1 || cfg.Upload.AllowedExtensions[0] != ".wowsreplay" {
		t.Errorf("Upload.AllowedExtensions = %v, want [.wowsreplay]", cfg.Upload.AllowedExtensions)
	}

	// Discord defaults (disabled)
	if cfg.Discord.Enabled {
		t.Error("Discord.Enabled should be false by default")
	}
	if len(cfg.Discord.NotifyGameTypes) != 1 || cfg.Discord.NotifyGameTypes[0] != "clan" {
		t.Errorf("Discord.NotifyGameTypes = %v, want [clan]", cfg.Discord.NotifyGameTypes)
	}

	// WoWS encyclopedia defaults (disabled, Asia realm endpoint)
	if cfg.WOWS.Enabled {
		t.Error("WOWS.Enabled should be false by default")
	}
	if cfg.WOWS.BaseURL != "https://api.worldofwarships.asia" {
		t.Errorf("WOWS.BaseURL = %q, want https://api.worldofwarships.asia", cfg.WOWS.BaseURL)
	}
	if cfg.WOWS.CacheTTL != 24*time.Hour {
		t.Errorf("WOWS.CacheTTL = %v, want 24h", cfg.WOWS.CacheTTL)
	}

	// API defaults
	if cfg.API.DefaultPageSize != 30 {
		t.Errorf("API.DefaultPageSize = %d, want 30", cfg.API.DefaultPageSize)
	}
	if cfg.API.MaxPageSize != 100 {
		t.Errorf("API.MaxPageSize = %d, want 100", cfg.API.MaxPageSize)
	}

	// Logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

// TestEnvTransformFunc verifies environment variable name transformations
func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		// Server
		{"HTTP_PORT", "server.port"},
		{"HTTP_HOST", "server.host"},
		{"ENVIRONMENT", "server.environment"},

		// Logging
		{"LOG_LEVEL", "logging.level"},
		{"LOG_FORMAT", "logging.format"},

		// Stores
		{"STORE_PATH", "store.path"},
		{"BLOB_PATH", "blobstore.path"},
		{"BLOB_COMPRESS", "blobstore.compress"},

		// NATS
		{"NATS_ENABLED", "nats.enabled"},
		{"NATS_URL", "nats.url"},
		{"NATS_EMBEDDED", "nats.embedded_server"},
		{"NATS_STREAM_NAME", "nats.stream_name"},

		// Pipeline and renderer
		{"DECODE_TIMEOUT", "pipeline.decode_timeout"},
		{"FFMPEG_PATH", "render.ffmpeg_path"},
		{"RENDER_FRAME_RATE", "render.frame_rate"},

		// Upload
		{"UPLOAD_API_KEY", "upload.api_key"},
		{"UPLOAD_MAX_SIZE_BYTES", "upload.max_size_bytes"},
		{"UPLOAD_ALLOWED_EXT", "upload.allowed_extensions"},

		// Discord
		{"DISCORD_WEBHOOK_URL", "discord.webhook_url"},
		{"DISCORD_NOTIFY_GAME_TYPES", "discord.notify_game_types"},

		// Analytics
		{"DUCKDB_PATH", "analytics.path"},
		{"DUCKDB_MAX_MEMORY", "analytics.max_memory"},

		// Auth
		{"JWT_SECRET", "auth.signing_secret"},

		// API
		{"CORS_ORIGINS", "api.cors_origins"},
		{"API_DEFAULT_PAGE_SIZE", "api.default_page_size"},

		// Unknown (should return empty)
		{"RANDOM_VAR", ""},
		{"PATH", ""},
		{"HOME", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := envTransformFunc(tt.input)
			if result != tt.expected {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

// TestFindConfigFile verifies config file discovery
func TestFindConfigFile(t *testing.T) {
	tmpDir := t.TempDir()

	origDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	defer func() {
		if err := os.Chdir(origDir); err != nil {
			t.Errorf("Failed to restore working directory: %v", err)
		}
	}()

	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("Failed to change to temp directory: %v", err)
	}

	t.Run("no config file exists", func(t *testing.T) {
		os.Unsetenv(ConfigPathEnvVar)
		result := findConfigFile()
		if result != "" {
			t.Errorf("findConfigFile() = %q, want empty string", result)
		}
	})

	t.Run("config.yaml exists", func(t *testing.T) {
		configPath := filepath.Join(tmpDir, "config.yaml")
		if err := os.WriteFile(configPath, []byte("test: true"), 0644); err != nil {
			t.Fatalf("Failed to create config file: %v", err)
		}
		defer os.Remove(configPath)

		os.Unsetenv(ConfigPathEnvVar)
		result := findConfigFile()
		if result != "config.yaml" {
			t.Errorf("findConfigFile() = %q, want config.yaml", result)
		}
	})

	t.Run("CONFIG_PATH env var takes precedence", func(t *testing.T) {
		customPath := filepath.Join(tmpDir, "custom_config.yaml")
		if err := os.WriteFile(customPath, []byte("test: true"), 0644); err != nil {
			t.Fatalf("Failed to create custom config file: %v", err)
		}
		defer os.Remove(customPath)

		os.Setenv(ConfigPathEnvVar, customPath)
		defer os.Unsetenv(ConfigPathEnvVar)

		result := findConfigFile()
		if result != customPath {
			t.Errorf("findConfigFile() = %q, want %q", result, customPath)
		}
	})

	t.Run("CONFIG_PATH env var with non-existent file", func(t *testing.T) {
		os.Setenv(ConfigPathEnvVar, "/non/existent/config.yaml")
		defer os.Unsetenv(ConfigPathEnvVar)

		result := findConfigFile()
		if result != "" {
			t.Errorf("findConfigFile() = %q, want empty string", result)
		}
	})
}

// TestLoadEnvVars tests loading configuration from environment variables
func TestLoadEnvVars(t *testing.T) {
	os.Clearenv()

	os.Setenv("HTTP_PORT", "9000")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("STORE_PATH", "/tmp/navarchus-test/store")
	os.Setenv("UPLOAD_API_KEY", "test_upload_key_12345")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Store.Path != "/tmp/navarchus-test/store" {
		t.Errorf("Store.Path = %q, want /tmp/navarchus-test/store", cfg.Store.Path)
	}
	if cfg.Upload.APIKey != "test_upload_key_12345" {
		t.Errorf("Upload.APIKey = %q, want test_upload_key_12345", cfg.Upload.APIKey)
	}

	// Verify defaults are still applied for unset values
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want 0.0.0.0 (default)", cfg.Server.Host)
	}
	if cfg.Analytics.Path != "/data/navarchus/analytics.duckdb" {
		t.Errorf("Analytics.Path = %q, want /data/navarchus/analytics.duckdb (default)", cfg.Analytics.Path)
	}
}

// TestLoadConfigFile tests loading configuration from a YAML file
func TestLoadConfigFile(t *testing.T) {
	tmpDir := t.TempDir()

	configContent := `
server:
  port: 8888
  host: "127.0.0.1"

store:
  path: "/var/lib/navarchus/store"

upload:
  api_key: "file_api_key"
  allowed_extensions:
    - ".wowsreplay"
    - ".bin"

logging:
  level: "warn"
`
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}

	os.Clearenv()
	os.Setenv(ConfigPathEnvVar, configPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8888 {
		t.Errorf("Server.Port = %d, want 8888", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Store.Path != "/var/lib/navarchus/store" {
		t.Errorf("Store.Path = %q, want /var/lib/navarchus/store", cfg.Store.Path)
	}
	if len(cfg.Upload.AllowedExtensions) != 2 {
		t.Errorf("Upload.AllowedExtensions = %v, want 2 entries", cfg.Upload.AllowedExtensions)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}

	// Verify defaults are still applied for unset values
	if cfg.BlobStore.Path != "/data/navarchus/blobs" {
		t.Errorf("BlobStore.Path = %q, want /data/navarchus/blobs (default)", cfg.BlobStore.Path)
	}
}

// TestLoadEnvOverridesFile tests that env vars override config file
func TestLoadEnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()

	configContent := `
server:
  port: 8888

logging:
  level: "warn"
`
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}

	os.Clearenv()
	os.Setenv(ConfigPathEnvVar, configPath)
	os.Setenv("HTTP_PORT", "9999")
	os.Setenv("LOG_LEVEL", "error")
	os.Setenv("DUCKDB_PATH", "/custom/analytics.duckdb")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999 (env override)", cfg.Server.Port)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("Logging.Level = %q, want error (env override)", cfg.Logging.Level)
	}
	if cfg.Analytics.Path != "/custom/analytics.duckdb" {
		t.Errorf("Analytics.Path = %q, want /custom/analytics.duckdb (env override)", cfg.Analytics.Path)
	}
}

// TestLoadSliceFromEnv tests comma-separated env values become slices
func TestLoadSliceFromEnv(t *testing.T) {
	os.Clearenv()
	os.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")
	os.Setenv("DISCORD_NOTIFY_GAME_TYPES", "clan,ranked")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.API.CORSOrigins) != 2 {
		t.Fatalf("API.CORSOrigins = %v, want 2 entries", cfg.API.CORSOrigins)
	}
	if cfg.API.CORSOrigins[0] != "https://a.example.com" {
		t.Errorf("API.CORSOrigins[0] = %q, want https://a.example.com", cfg.API.CORSOrigins[0])
	}
	if cfg.API.CORSOrigins[1] != "https://b.example.com" {
		t.Errorf("API.CORSOrigins[1] = %q, want https://b.example.com", cfg.API.CORSOrigins[1])
	}

	if len(cfg.Discord.NotifyGameTypes) != 2 {
		t.Fatalf("Discord.NotifyGameTypes = %v, want 2 entries", cfg.Discord.NotifyGameTypes)
	}
	if cfg.Discord.NotifyGameTypes[1] != "ranked" {
		t.Errorf("Discord.NotifyGameTypes[1] = %q, want ranked", cfg.Discord.NotifyGameTypes[1])
	}
}

// TestLoadValidation tests that validation rejects bad configurations
func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		errMsg  string
	}{
		{
			name:    "defaults are valid",
			envVars: map[string]string{},
			wantErr: false,
		},
		{
			name: "port out of range",
			envVars: map[string]string{
				"HTTP_PORT": "99999",
			},
			wantErr: true,
			errMsg:  "server.port",
		},
		{
			name: "discord enabled without webhook",
			envVars: map[string]string{
				"DISCORD_ENABLED": "true",
			},
			wantErr: true,
			errMsg:  "discord.webhook_url",
		},
		{
			name: "discord enabled with webhook",
			envVars: map[string]string{
				"DISCORD_ENABLED":     "true",
				"DISCORD_WEBHOOK_URL": "https://discord.com/api/webhooks/1/abc",
			},
			wantErr: false,
		},
		{
			name: "nats external without url",
			envVars: map[string]string{
				"NATS_EMBEDDED": "false",
				"NATS_URL":      "",
			},
			wantErr: true,
			errMsg:  "nats.url",
		},
		{
			name: "render frame rate out of range",
			envVars: map[string]string{
				"RENDER_FRAME_RATE": "120",
			},
			wantErr: true,
			errMsg:  "render.frame_rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			_, err := Load()

			if tt.wantErr {
				if err == nil {
					t.Fatalf("Load() expected error containing %q, got nil", tt.errMsg)
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("Load() error = %v, want it to mention %q", err, tt.errMsg)
				}
			} else {
				if err != nil {
					t.Errorf("Load() unexpected error = %v", err)
				}
			}
		})
	}
}

// TestValidateDirect exercises Validate() on hand-built configs
func TestValidateDirect(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}

	cfg = defaultConfig()
	cfg.Store.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Error("empty store.path should fail validation")
	}

	cfg = defaultConfig()
	cfg.API.DefaultPageSize = 500
	if err := cfg.Validate(); err == nil {
		t.Error("default_page_size above max_page_size should fail validation")
	}

	cfg = defaultConfig()
	cfg.WOWS.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Error("wows.enabled without application_id should fail validation")
	}

	// Multiple violations are joined into one error
	cfg = defaultConfig()
	cfg.Server.Port = 0
	cfg.Upload.MaxSizeBytes = 0
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "server.port") || !strings.Contains(err.Error(), "upload.max_size_bytes") {
		t.Errorf("joined error should mention both violations, got %v", err)
	}
}

// TestServerAddr verifies host/port formatting
func TestServerAddr(t *testing.T) {
	cfg := ServerConfig{Host: "127.0.0.1", Port: 3917}
	if got := cfg.Addr(); got != "127.0.0.1:3917" {
		t.Errorf("Addr() = %q, want 127.0.0.1:3917", got)
	}
}
