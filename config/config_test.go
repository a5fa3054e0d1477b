package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, DefaultAddr, cfg.Addr)
	assert.Equal(t, DefaultMaxUploadBytes, cfg.MaxUploadBytes)
	assert.Equal(t, DefaultPreviewRows, cfg.PreviewRows)
	assert.Equal(t, DefaultShutdownTimeout, cfg.ShutdownTimeout)
	assert.NotEmpty(t, cfg.UploadDir)
}

func TestFromEnv_Overrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TABLECHAT_ADDR", "127.0.0.1:9099")
	t.Setenv("TABLECHAT_UPLOAD_DIR", dir)
	t.Setenv("TABLECHAT_MAX_UPLOAD_MB", "5")
	t.Setenv("TABLECHAT_SHUTDOWN_TIMEOUT", "3s")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9099", cfg.Addr)
	assert.Equal(t, dir, cfg.UploadDir)
	assert.Equal(t, int64(5)<<20, cfg.MaxUploadBytes)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
}

func TestFromEnv_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non-numeric upload cap", "TABLECHAT_MAX_UPLOAD_MB", "lots"},
		{"zero upload cap", "TABLECHAT_MAX_UPLOAD_MB", "0"},
		{"bad duration", "TABLECHAT_SHUTDOWN_TIMEOUT", "soon"},
		{"missing upload dir", "TABLECHAT_UPLOAD_DIR", "/definitely/not/a/real/dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
