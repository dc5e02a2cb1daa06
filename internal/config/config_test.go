package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_USER", "site")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "site")
	t.Setenv("JWT_SECRET", "jwt-secret")
	t.Setenv("STORAGE_BUCKET", "piwc-site")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, time.Hour, cfg.JWT.AccessTokenExpiry)
	assert.Equal(t, 15*time.Minute, cfg.Storage.UploadExpiry)
	assert.Equal(t, "https://storage.googleapis.com", cfg.Storage.PublicBaseURL)
	assert.Equal(t, "*/15 * * * *", cfg.Cleanup.Cron)
	assert.Equal(t, 50, cfg.Cleanup.BatchSize)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.False(t, cfg.SMTP.Configured())
	assert.Equal(t, "site:secret@tcp(localhost:3306)/site?parseTime=true&charset=utf8mb4", cfg.DSN())
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("STORAGE_PUBLIC_BASE_URL", "https://cdn.example/")
	t.Setenv("SMTP_HOST", "smtp.gmail.com")
	t.Setenv("SMTP_USERNAME", "bot@example.com")
	t.Setenv("SMTP_PASSWORD", "app-password")
	t.Setenv("SMTP_CONTACT_INBOX", "inbox@example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "https://cdn.example", cfg.Storage.PublicBaseURL)
	assert.True(t, cfg.SMTP.Configured())
	assert.Equal(t, "bot@example.com", cfg.SMTP.From)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "missing db host", key: "DB_HOST", value: ""},
		{name: "invalid db port", key: "DB_PORT", value: "abc"},
		{name: "missing jwt secret", key: "JWT_SECRET", value: ""},
		{name: "missing bucket", key: "STORAGE_BUCKET", value: ""},
		{name: "invalid upload expiry", key: "STORAGE_UPLOAD_EXPIRY", value: "soon"},
		{name: "invalid batch size", key: "CLEANUP_BATCH_SIZE", value: "many"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.value)

			cfg, err := Load()

			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}
