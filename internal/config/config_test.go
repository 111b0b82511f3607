package config

import (
	"os"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, envs := range envBindings {
		for _, env := range envs {
			t.Setenv(env, "")
		}
	}
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	clearEnv(t)

	_, err := Load("")
	if err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
	if err.Error() != "database_url is required (env: DATABASE_URL)" {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/test")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DailyUploadLimit != 10 {
		t.Errorf("expected DailyUploadLimit 10, got %d", cfg.DailyUploadLimit)
	}
	if cfg.UploadMaxRetries != 10 {
		t.Errorf("expected UploadMaxRetries 10, got %d", cfg.UploadMaxRetries)
	}
	if cfg.UploadChunkSize != 1024*1024 {
		t.Errorf("expected UploadChunkSize 1MiB, got %d", cfg.UploadChunkSize)
	}
	if cfg.UploadPrivacy != "unlisted" {
		t.Errorf("expected UploadPrivacy unlisted, got %s", cfg.UploadPrivacy)
	}
	if cfg.UploadCategoryID != "22" {
		t.Errorf("expected UploadCategoryID 22, got %s", cfg.UploadCategoryID)
	}
	if cfg.DownloadTimeout != 300*time.Second {
		t.Errorf("expected DownloadTimeout 300s, got %v", cfg.DownloadTimeout)
	}
	if cfg.DeleteTimeout != 30*time.Second {
		t.Errorf("expected DeleteTimeout 30s, got %v", cfg.DeleteTimeout)
	}
	if cfg.BlobDeleteURL != "https://blob.vercel-storage.com/delete" {
		t.Errorf("unexpected BlobDeleteURL %s", cfg.BlobDeleteURL)
	}
	if cfg.ScratchDir != os.TempDir() {
		t.Errorf("expected ScratchDir %s, got %s", os.TempDir(), cfg.ScratchDir)
	}
	if cfg.BlobToken != "" {
		t.Errorf("expected empty BlobToken, got %s", cfg.BlobToken)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected LogLevel info, got %s", cfg.LogLevel)
	}
	if cfg.OTELEndpoint != "" || cfg.MetricsAddr != "" {
		t.Errorf("expected observability endpoints to be disabled by default")
	}
}

func TestLoad_EnvVarOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://custom/db")
	t.Setenv("DAILY_UPLOAD_LIMIT", "3")
	t.Setenv("YOUTUBE_CLIENT_ID", "client")
	t.Setenv("YOUTUBE_CLIENT_SECRET", "secret")
	t.Setenv("YOUTUBE_REFRESH_TOKEN", "refresh")
	t.Setenv("BLOB_READ_WRITE_TOKEN", "blob-token")
	t.Setenv("SCRATCH_DIR", "/tmp/scratch")
	t.Setenv("DOWNLOAD_TIMEOUT", "2m")
	t.Setenv("UPLOAD_PRIVACY", "PRIVATE")
	t.Setenv("UPLOAD_MAX_RETRIES", "4")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel-collector:4317")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DatabaseURL != "postgres://custom/db" {
		t.Errorf("expected DatabaseURL from env, got %s", cfg.DatabaseURL)
	}
	if cfg.DailyUploadLimit != 3 {
		t.Errorf("expected DailyUploadLimit 3, got %d", cfg.DailyUploadLimit)
	}
	if cfg.BlobToken != "blob-token" {
		t.Errorf("expected BlobToken from env, got %s", cfg.BlobToken)
	}
	if cfg.ScratchDir != "/tmp/scratch" {
		t.Errorf("expected ScratchDir /tmp/scratch, got %s", cfg.ScratchDir)
	}
	if cfg.DownloadTimeout != 2*time.Minute {
		t.Errorf("expected DownloadTimeout 2m, got %v", cfg.DownloadTimeout)
	}
	if cfg.UploadPrivacy != "private" {
		t.Errorf("expected UploadPrivacy private, got %s", cfg.UploadPrivacy)
	}
	if cfg.UploadMaxRetries != 4 {
		t.Errorf("expected UploadMaxRetries 4, got %d", cfg.UploadMaxRetries)
	}
	if cfg.OTELEndpoint != "otel-collector:4317" {
		t.Errorf("expected OTELEndpoint otel-collector:4317, got %s", cfg.OTELEndpoint)
	}
	if err := cfg.ValidateUpload(); err != nil {
		t.Errorf("expected upload credentials to validate, got %v", err)
	}
}

func TestLoad_DatabasePublicURLFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_PUBLIC_URL", "postgres://public/db")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DatabaseURL != "postgres://public/db" {
		t.Errorf("expected DatabaseURL from DATABASE_PUBLIC_URL, got %s", cfg.DatabaseURL)
	}
}

func TestLoad_InvalidPrivacy(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("UPLOAD_PRIVACY", "friends-only")

	if _, err := Load(""); err == nil {
		t.Error("expected error for invalid privacy")
	}
}

func TestLoad_InvalidChunkSize(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("UPLOAD_CHUNK_SIZE", "1000")

	if _, err := Load(""); err == nil {
		t.Error("expected error for chunk size that is not a multiple of 256 KiB")
	}
}

func TestValidateUpload_MissingCredentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("YOUTUBE_CLIENT_ID", "client")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = cfg.ValidateUpload()
	if err == nil {
		t.Fatal("expected error for missing credentials")
	}
	if err.Error() != "missing YouTube credentials: YOUTUBE_CLIENT_SECRET, YOUTUBE_REFRESH_TOKEN" {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	clearEnv(t)

	tmpFile, err := os.CreateTemp("", "uploadqueue-test-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	configContent := `
database_url: "postgres://config-file/db"
daily_upload_limit: 25
upload_privacy: public
metrics_addr: ":9464"
`
	if _, err := tmpFile.WriteString(configContent); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	tmpFile.Close()

	cfg, err := Load(tmpFile.Name())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DatabaseURL != "postgres://config-file/db" {
		t.Errorf("expected DatabaseURL from config file, got %s", cfg.DatabaseURL)
	}
	if cfg.DailyUploadLimit != 25 {
		t.Errorf("expected DailyUploadLimit 25, got %d", cfg.DailyUploadLimit)
	}
	if cfg.UploadPrivacy != "public" {
		t.Errorf("expected UploadPrivacy public, got %s", cfg.UploadPrivacy)
	}
	if cfg.MetricsAddr != ":9464" {
		t.Errorf("expected MetricsAddr :9464, got %s", cfg.MetricsAddr)
	}
}

func TestLoad_EnvOverridesConfigFile(t *testing.T) {
	clearEnv(t)

	tmpFile, err := os.CreateTemp("", "uploadqueue-test-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	configContent := `
database_url: "postgres://from-file/db"
daily_upload_limit: 25
`
	if _, err := tmpFile.WriteString(configContent); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	tmpFile.Close()

	t.Setenv("DATABASE_URL", "postgres://from-env/db")
	t.Setenv("DAILY_UPLOAD_LIMIT", "7")

	cfg, err := Load(tmpFile.Name())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DatabaseURL != "postgres://from-env/db" {
		t.Errorf("expected DatabaseURL from env, got %s", cfg.DatabaseURL)
	}
	if cfg.DailyUploadLimit != 7 {
		t.Errorf("expected DailyUploadLimit 7 from env, got %d", cfg.DailyUploadLimit)
	}
}

func TestLoad_InvalidConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/test")

	_, err := Load("/nonexistent/path/to/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent config file")
	}
}

func TestLoad_UnitlessTimeoutsAreSeconds(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("DOWNLOAD_TIMEOUT", "300")
	t.Setenv("DELETE_TIMEOUT", "2.5")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DownloadTimeout != 300*time.Second {
		t.Errorf("expected DownloadTimeout 300s, got %v", cfg.DownloadTimeout)
	}
	if cfg.DeleteTimeout != 2500*time.Millisecond {
		t.Errorf("expected DeleteTimeout 2.5s, got %v", cfg.DeleteTimeout)
	}
}

func TestLoad_InvalidTimeout(t *testing.T) {
	for _, value := range []string{"soon", "0", "-5s"} {
		t.Run(value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("DATABASE_URL", "postgres://localhost/test")
			t.Setenv("DOWNLOAD_TIMEOUT", value)

			if _, err := Load(""); err == nil {
				t.Errorf("expected error for DOWNLOAD_TIMEOUT=%s", value)
			}
		})
	}
}
