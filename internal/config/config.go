// Package config handles loading of the processor configuration from a file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values for the application.
// It is built once at process start and passed to each component.
type Config struct {
	// Database connection string
	DatabaseURL string

	// Maximum number of successful uploads per UTC day
	DailyUploadLimit int

	// OAuth2 credentials for the video platform
	YouTubeClientID     string
	YouTubeClientSecret string
	YouTubeRefreshToken string

	// Blob storage token; empty disables remote deletion
	BlobToken     string
	BlobDeleteURL string

	// Directory for transient downloads
	ScratchDir      string
	DownloadTimeout time.Duration
	DeleteTimeout   time.Duration

	// Resumable upload settings
	UploadChunkSize  int64
	UploadMaxRetries int
	UploadPrivacy    string
	UploadCategoryID string

	LogLevel string

	// OTLP collector address (e.g., "localhost:4317"); empty disables tracing
	OTELEndpoint string

	// Address for the Prometheus /metrics endpoint; empty disables it
	MetricsAddr string
}

// envBindings maps config keys to the environment variables that may set them.
// The first variable found wins.
var envBindings = map[string][]string{
	"database_url":          {"DATABASE_URL", "DATABASE_PUBLIC_URL"},
	"daily_upload_limit":    {"DAILY_UPLOAD_LIMIT"},
	"youtube_client_id":     {"YOUTUBE_CLIENT_ID"},
	"youtube_client_secret": {"YOUTUBE_CLIENT_SECRET"},
	"youtube_refresh_token": {"YOUTUBE_REFRESH_TOKEN"},
	"blob_read_write_token": {"BLOB_READ_WRITE_TOKEN"},
	"blob_delete_url":       {"BLOB_DELETE_URL"},
	"scratch_dir":           {"SCRATCH_DIR"},
	"download_timeout":      {"DOWNLOAD_TIMEOUT"},
	"delete_timeout":        {"DELETE_TIMEOUT"},
	"upload_chunk_size":     {"UPLOAD_CHUNK_SIZE"},
	"upload_max_retries":    {"UPLOAD_MAX_RETRIES"},
	"upload_privacy":        {"UPLOAD_PRIVACY"},
	"upload_category_id":    {"UPLOAD_CATEGORY_ID"},
	"log_level":             {"LOG_LEVEL"},
	"otel_endpoint":         {"OTEL_EXPORTER_OTLP_ENDPOINT"},
	"metrics_addr":          {"METRICS_ADDR"},
}

// Load reads configuration from an optional YAML file and environment variables.
// Environment variables take precedence over the file.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("daily_upload_limit", 10)
	v.SetDefault("blob_delete_url", "https://blob.vercel-storage.com/delete")
	v.SetDefault("scratch_dir", os.TempDir())
	v.SetDefault("download_timeout", 300*time.Second)
	v.SetDefault("delete_timeout", 30*time.Second)
	v.SetDefault("upload_chunk_size", 1024*1024)
	v.SetDefault("upload_max_retries", 10)
	v.SetDefault("upload_privacy", "unlisted")
	v.SetDefault("upload_category_id", "22")
	v.SetDefault("log_level", "info")

	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("bind env for %s: %w", key, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	downloadTimeout, err := seconds(v, "download_timeout")
	if err != nil {
		return nil, err
	}
	deleteTimeout, err := seconds(v, "delete_timeout")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:         v.GetString("database_url"),
		DailyUploadLimit:    v.GetInt("daily_upload_limit"),
		YouTubeClientID:     v.GetString("youtube_client_id"),
		YouTubeClientSecret: v.GetString("youtube_client_secret"),
		YouTubeRefreshToken: v.GetString("youtube_refresh_token"),
		BlobToken:           v.GetString("blob_read_write_token"),
		BlobDeleteURL:       v.GetString("blob_delete_url"),
		ScratchDir:          v.GetString("scratch_dir"),
		DownloadTimeout:     downloadTimeout,
		DeleteTimeout:       deleteTimeout,
		UploadChunkSize:     v.GetInt64("upload_chunk_size"),
		UploadMaxRetries:    v.GetInt("upload_max_retries"),
		UploadPrivacy:       strings.ToLower(v.GetString("upload_privacy")),
		UploadCategoryID:    v.GetString("upload_category_id"),
		LogLevel:            strings.ToLower(v.GetString("log_level")),
		OTELEndpoint:        v.GetString("otel_endpoint"),
		MetricsAddr:         v.GetString("metrics_addr"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database_url is required (env: DATABASE_URL)")
	}
	if c.DailyUploadLimit < 0 {
		return fmt.Errorf("invalid daily_upload_limit: %d", c.DailyUploadLimit)
	}
	switch c.UploadPrivacy {
	case "public", "unlisted", "private":
	default:
		return fmt.Errorf("invalid upload_privacy %q (expected public, unlisted or private)", c.UploadPrivacy)
	}
	// Resumable chunks must be a multiple of 256 KiB.
	if c.UploadChunkSize <= 0 || c.UploadChunkSize%(256*1024) != 0 {
		return fmt.Errorf("invalid upload_chunk_size %d: must be a positive multiple of 262144", c.UploadChunkSize)
	}
	if c.DownloadTimeout <= 0 {
		return fmt.Errorf("invalid download_timeout: %s", c.DownloadTimeout)
	}
	if c.DeleteTimeout <= 0 {
		return fmt.Errorf("invalid delete_timeout: %s", c.DeleteTimeout)
	}
	if c.UploadMaxRetries < 0 {
		return fmt.Errorf("invalid upload_max_retries: %d", c.UploadMaxRetries)
	}
	return nil
}

// seconds reads a duration that may be written with a unit ("2m") or as a
// bare number of seconds ("300").
func seconds(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(n * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

// ValidateUpload checks the settings that are only needed when uploads will run.
func (c *Config) ValidateUpload() error {
	var missing []string
	if c.YouTubeClientID == "" {
		missing = append(missing, "YOUTUBE_CLIENT_ID")
	}
	if c.YouTubeClientSecret == "" {
		missing = append(missing, "YOUTUBE_CLIENT_SECRET")
	}
	if c.YouTubeRefreshToken == "" {
		missing = append(missing, "YOUTUBE_REFRESH_TOKEN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing YouTube credentials: %s", strings.Join(missing, ", "))
	}
	return nil
}
