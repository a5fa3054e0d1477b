package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablechat/tablechat/config"
	"github.com/tablechat/tablechat/internal/backend"
	"github.com/tablechat/tablechat/internal/dataset"
	"github.com/tablechat/tablechat/internal/events"
	"github.com/tablechat/tablechat/internal/protocol"
	"github.com/tablechat/tablechat/internal/session"
)

type stubConfigurator struct {
	handle *backend.Handle
	err    error

	calls int
	last  backend.Config
}

func (s *stubConfigurator) Configure(cfg backend.Config) (*backend.Handle, error) {
	s.calls++
	s.last = cfg
	if s.err != nil {
		return nil, s.err
	}
	return s.handle, nil
}

type stubAnalyzer struct {
	answer string
	err    error

	calls    int
	gotQuery string
}

func (s *stubAnalyzer) Analyze(_ context.Context, _ *dataset.Dataset, query string, _ *backend.Handle) (string, error) {
	s.calls++
	s.gotQuery = query
	if s.err != nil {
		return "", s.err
	}
	return s.answer, nil
}

// newTestAPI wires a full surface against stub collaborators. Nil stubs are
// replaced with inert ones.
func newTestAPI(t *testing.T, cfgr protocol.Configurator, eng protocol.Analyzer) (*API, *session.Store) {
	t.Helper()
	if cfgr == nil {
		cfgr = &stubConfigurator{}
	}
	if eng == nil {
		eng = &stubAnalyzer{}
	}

	store := session.NewStore()
	logger := zerolog.Nop()
	identity := protocol.Identity{Name: "tablechat", Version: "1.2.3"}
	router := protocol.NewToolRouter(store, cfgr, eng, logger)
	dispatcher := protocol.NewDispatcher(identity, router, logger)
	broadcaster := events.NewBroadcaster(store, identity, clockwork.NewRealClock(), logger)

	cfg := config.Default()
	cfg.UploadDir = t.TempDir()

	api := New(Options{
		Config:     cfg,
		Logger:     logger,
		Identity:   identity,
		Store:      store,
		Dispatcher: dispatcher,
		Tools:      router,
		Events:     broadcaster,
	})
	return api, store
}

func doJSON(t *testing.T, api http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, req)
	return rec
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), "body: %s", rec.Body.String())
	return m
}

func TestRoot(t *testing.T) {
	api, _ := newTestAPI(t, nil, nil)

	rec := doJSON(t, api, http.MethodGet, "/", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	m := decodeMap(t, rec)
	assert.Equal(t, "tablechat", m["service"])
	assert.Equal(t, "1.2.3", m["version"])
	assert.Equal(t, "running", m["status"])
	endpoints, ok := m["endpoints"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "/mcp", endpoints["mcp"])
	assert.Equal(t, "/sse", endpoints["sse"])
}

func TestDocs(t *testing.T) {
	api, _ := newTestAPI(t, nil, nil)

	rec := doJSON(t, api, http.MethodGet, "/docs", "")

	require.Equal(t, http.StatusOK, rec.Code)
	m := decodeMap(t, rec)
	routes, ok := m["routes"].([]any)
	require.True(t, ok)
	assert.Len(t, routes, 7)
}

func TestStatus_EmptySession(t *testing.T) {
	api, _ := newTestAPI(t, nil, nil)

	rec := doJSON(t, api, http.MethodGet, "/status", "")

	require.Equal(t, http.StatusOK, rec.Code)
	m := decodeMap(t, rec)
	assert.Equal(t, "tablechat", m["service"])
	assert.Equal(t, "1.2.3", m["version"])
	assert.Equal(t, "running", m["status"])
	assert.Equal(t, false, m["data_loaded"])
	assert.Equal(t, false, m["llm_configured"])
	require.Contains(t, m, "dataframe_info")
	assert.Nil(t, m["dataframe_info"])
}

func TestStatus_ReflectsSession(t *testing.T) {
	api, store := newTestAPI(t, nil, nil)
	store.SetDataset(&dataset.Dataset{
		SourceName: "people.csv",
		Columns:    []string{"name", "age"},
		Rows: []map[string]any{
			{"name": "Alice", "age": "30"},
			{"name": "Bob", "age": "25"},
		},
	})
	store.SetBackend(backend.NewHandle(nil, "openai", "gpt-4o"))

	rec := doJSON(t, api, http.MethodGet, "/status", "")

	require.Equal(t, http.StatusOK, rec.Code)
	m := decodeMap(t, rec)
	assert.Equal(t, true, m["data_loaded"])
	assert.Equal(t, true, m["llm_configured"])
	info, ok := m["dataframe_info"].(map[string]any)
	require.True(t, ok, "dataframe_info should be an object once data is loaded")
	assert.Equal(t, "people.csv", info["filename"])
	assert.EqualValues(t, 2, info["rows"])
	assert.EqualValues(t, 2, info["columns"])
}

func TestNotFound(t *testing.T) {
	api, _ := newTestAPI(t, nil, nil)

	rec := doJSON(t, api, http.MethodGet, "/nope", "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	m := decodeMap(t, rec)
	assert.Equal(t, "Not found", m["error"])
	assert.Equal(t, "/nope", m["path"])
}

func TestMethodNotAllowed(t *testing.T) {
	api, _ := newTestAPI(t, nil, nil)

	rec := doJSON(t, api, http.MethodPost, "/status", "{}")

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	m := decodeMap(t, rec)
	assert.Equal(t, "Method not allowed", m["error"])
	assert.Equal(t, "/status", m["path"])
}

func TestPanicRecovery(t *testing.T) {
	api, _ := newTestAPI(t, nil, nil)
	api.Get("/boom", func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	})

	rec := doJSON(t, api, http.MethodGet, "/boom", "")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	m := decodeMap(t, rec)
	assert.Equal(t, "Internal server error", m["error"])
	assert.Equal(t, "kaboom", m["message"])
}

func TestSSE_StreamsInitialFrames(t *testing.T) {
	api, _ := newTestAPI(t, nil, nil)
	srv := httptest.NewServer(api)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/sse", nil)
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "text/event-stream", res.Header.Get("Content-Type"))

	reader := bufio.NewReader(res.Body)
	var types []string
	for len(types) < 2 {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		payload, ok := strings.CutPrefix(line, "data: ")
		require.True(t, ok, "unexpected stream line %q", line)
		var ev map[string]any
		require.NoError(t, json.Unmarshal([]byte(payload), &ev))
		typ, ok := ev["type"].(string)
		require.True(t, ok)
		types = append(types, typ)
	}
	assert.Equal(t, []string{"connection", "status"}, types)
}
