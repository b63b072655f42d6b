package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func setRequired(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("APP_URL", "http://localhost:8090")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ENCRYPTION_KEY", "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY=")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg := Load()

	assert.Equal(t, "Codekeeper", cfg.AppName)
	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 168*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, VisionCredentialsDeployment, cfg.VisionCredentials)
	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
	assert.Equal(t, 2*time.Minute, cfg.VisionTimeout)
	assert.False(t, cfg.AllowLateProof)
	assert.Equal(t, time.Minute, cfg.DeadlineNotifyInterval)
	assert.True(t, cfg.IsDevelopment())
	assert.True(t, cfg.UsesDeploymentVisionKey())
	assert.False(t, cfg.GoogleOAuthEnabled())
}

func TestLoad_CustomEnv(t *testing.T) {
	setRequired(t)
	t.Setenv("VISION_CREDENTIALS", "user")
	t.Setenv("ALLOW_LATE_PROOF", "true")
	t.Setenv("VISION_TIMEOUT", "30s")
	t.Setenv("GEMINI_MODEL", "gemini-2.5-pro")

	cfg := Load()

	assert.Equal(t, VisionCredentialsUser, cfg.VisionCredentials)
	assert.False(t, cfg.UsesDeploymentVisionKey())
	assert.True(t, cfg.AllowLateProof)
	assert.Equal(t, 30*time.Second, cfg.VisionTimeout)
	assert.Equal(t, "gemini-2.5-pro", cfg.GeminiModel)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	setRequired(t)
	t.Setenv("VISION_CREDENTIALS", "shared")
	t.Setenv("ALLOW_LATE_PROOF", "maybe")
	t.Setenv("DEADLINE_NOTIFY_INTERVAL", "soon")

	cfg := Load()

	assert.Equal(t, VisionCredentialsDeployment, cfg.VisionCredentials)
	assert.False(t, cfg.AllowLateProof)
	assert.Equal(t, time.Minute, cfg.DeadlineNotifyInterval)
}

func TestSanitized_DropsSecrets(t *testing.T) {
	cfg := &Config{
		AppName:            "Codekeeper",
		JWTSecret:          "jwt",
		EncryptionKey:      "key",
		GeminiAPIKey:       "gemini",
		ResendAPIKey:       "resend",
		S3SecretKey:        "s3",
		GoogleClientID:     "client",
		GoogleClientSecret: "secret",
	}

	s := cfg.Sanitized()

	assert.Equal(t, "Codekeeper", s.AppName)
	assert.Empty(t, s.JWTSecret)
	assert.Empty(t, s.EncryptionKey)
	assert.Empty(t, s.GeminiAPIKey)
	assert.Empty(t, s.ResendAPIKey)
	assert.Empty(t, s.S3SecretKey)
	assert.NotEqual(t, "secret", s.GoogleClientSecret)
	assert.True(t, s.GoogleOAuthEnabled())
}
