package config

import "time"

// Service identity reported by /status and embedded in SSE status events.
const (
	ServiceName   = "tablechat"
	ServiceStatus = "running"
)

const (
	// HTTP surface
	DefaultAddr            = ":8000"
	DefaultShutdownTimeout = 10 * time.Second

	// Upload handling
	DefaultMaxUploadBytes = int64(50) << 20 // 50MB
	DefaultPreviewRows    = 5

	// Rows rendered into the analysis prompt
	DefaultPromptSampleRows = 50
)

// SSE cadence. Both intervals are fixed protocol behavior, not tunables:
// heartbeat every 30s, status snapshot every 60s per subscriber.
const (
	HeartbeatInterval = 30 * time.Second
	StatusInterval    = 60 * time.Second
)
