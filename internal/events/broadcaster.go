// Package events streams service state over Server-Sent Events. Every
// subscriber gets a connection acknowledgement, an immediate status frame,
// and then periodic heartbeat and status frames until it disconnects.
package events

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/tablechat/tablechat/config"
	"github.com/tablechat/tablechat/internal/protocol"
	"github.com/tablechat/tablechat/internal/session"
)

// event is the JSON frame sent on the stream. Message is set on connection
// frames and Data on status frames; heartbeats carry the timestamp alone.
type event struct {
	Type      string `json:"type"`
	Message   string `json:"message,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp string `json:"timestamp"`
}

// statusData mirrors the live service summary. SSE consumers see camelCase
// keys, unlike the snake_case REST status document.
type statusData struct {
	Service       string `json:"service"`
	Version       string `json:"version"`
	Status        string `json:"status"`
	DataLoaded    bool   `json:"dataLoaded"`
	LLMConfigured bool   `json:"llmConfigured"`
}

// Broadcaster owns the SSE endpoint. Each subscriber runs its own ticker
// loop against the shared session store, so there is no fan-out queue and a
// slow reader only ever delays itself.
type Broadcaster struct {
	logger   zerolog.Logger
	store    *session.Store
	identity protocol.Identity
	clock    clockwork.Clock

	heartbeatEvery time.Duration
	statusEvery    time.Duration

	mu   sync.Mutex
	subs map[string]struct{}
}

// NewBroadcaster wires the stream against the session store. The clock is
// injectable so tests can drive the tickers.
func NewBroadcaster(store *session.Store, identity protocol.Identity, clock clockwork.Clock, logger zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		logger:         logger.With().Str("component", "events").Logger(),
		store:          store,
		identity:       identity,
		clock:          clock,
		heartbeatEvery: config.HeartbeatInterval,
		statusEvery:    config.StatusInterval,
		subs:           make(map[string]struct{}),
	}
}

// SubscriberCount reports the number of open streams.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// ServeHTTP upgrades the request to an event stream and blocks until the
// client goes away. Both tickers stop on return, whichever side ends the
// stream first.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	id := uuid.NewString()
	b.register(id)
	defer b.unregister(id)

	logger := b.logger.With().Str("subscriber", id).Logger()
	logger.Info().Msg("sse subscriber connected")
	defer logger.Info().Msg("sse subscriber disconnected")

	if err := b.send(w, flusher, b.connectionEvent()); err != nil {
		return
	}
	if err := b.send(w, flusher, b.statusEvent()); err != nil {
		return
	}

	heartbeat := b.clock.NewTicker(b.heartbeatEvery)
	defer heartbeat.Stop()
	status := b.clock.NewTicker(b.statusEvery)
	defer status.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.Chan():
			if err := b.send(w, flusher, b.heartbeatEvent()); err != nil {
				return
			}
		case <-status.Chan():
			if err := b.send(w, flusher, b.statusEvent()); err != nil {
				return
			}
		}
	}
}

func (b *Broadcaster) register(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[id] = struct{}{}
}

func (b *Broadcaster) unregister(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
}

// send writes one data-only SSE frame and flushes it through immediately.
func (b *Broadcaster) send(w io.Writer, flusher http.Flusher, ev event) error {
	buf, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", buf); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

func (b *Broadcaster) connectionEvent() event {
	return event{
		Type:      "connection",
		Message:   "SSE connection established",
		Timestamp: b.now(),
	}
}

func (b *Broadcaster) heartbeatEvent() event {
	return event{Type: "heartbeat", Timestamp: b.now()}
}

func (b *Broadcaster) statusEvent() event {
	snap := b.store.Snapshot()
	return event{
		Type: "status",
		Data: statusData{
			Service:       b.identity.Name,
			Version:       b.identity.Version,
			Status:        config.ServiceStatus,
			DataLoaded:    snap.DataLoaded,
			LLMConfigured: snap.LLMConfigured,
		},
		Timestamp: b.now(),
	}
}

func (b *Broadcaster) now() string {
	return b.clock.Now().UTC().Format(time.RFC3339)
}
