package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config carries the tunable runtime settings. SSE cadence is deliberately
// absent: the 30s/60s intervals are protocol constants, not configuration.
type Config struct {
	Addr             string
	UploadDir        string
	MaxUploadBytes   int64
	PreviewRows      int
	PromptSampleRows int
	ShutdownTimeout  time.Duration
}

// Default returns the built-in settings. Uploads stage under the OS temp
// directory unless an operator points TABLECHAT_UPLOAD_DIR elsewhere.
func Default() Config {
	return Config{
		Addr:             DefaultAddr,
		UploadDir:        os.TempDir(),
		MaxUploadBytes:   DefaultMaxUploadBytes,
		PreviewRows:      DefaultPreviewRows,
		PromptSampleRows: DefaultPromptSampleRows,
		ShutdownTimeout:  DefaultShutdownTimeout,
	}
}

// FromEnv starts from Default and applies TABLECHAT_* overrides. Invalid
// values fail startup rather than being silently ignored.
func FromEnv() (Config, error) {
	cfg := Default()

	if addr := os.Getenv("TABLECHAT_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if dir := os.Getenv("TABLECHAT_UPLOAD_DIR"); dir != "" {
		info, err := os.Stat(dir)
		if err != nil {
			return cfg, fmt.Errorf("config: upload dir %q: %w", dir, err)
		}
		if !info.IsDir() {
			return cfg, fmt.Errorf("config: upload dir %q is not a directory", dir)
		}
		cfg.UploadDir = dir
	}
	if raw := os.Getenv("TABLECHAT_MAX_UPLOAD_MB"); raw != "" {
		mb, err := strconv.Atoi(raw)
		if err != nil || mb <= 0 {
			return cfg, fmt.Errorf("config: invalid TABLECHAT_MAX_UPLOAD_MB: %q", raw)
		}
		cfg.MaxUploadBytes = int64(mb) << 20
	}
	if raw := os.Getenv("TABLECHAT_PROMPT_SAMPLE_ROWS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return cfg, fmt.Errorf("config: invalid TABLECHAT_PROMPT_SAMPLE_ROWS: %q", raw)
		}
		cfg.PromptSampleRows = n
	}
	if raw := os.Getenv("TABLECHAT_SHUTDOWN_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return cfg, fmt.Errorf("config: invalid TABLECHAT_SHUTDOWN_TIMEOUT: %q", raw)
		}
		cfg.ShutdownTimeout = d
	}
	return cfg, nil
}
