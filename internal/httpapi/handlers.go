package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tablechat/tablechat/config"
	"github.com/tablechat/tablechat/internal/dataset"
	"github.com/tablechat/tablechat/internal/protocol"
	"github.com/tablechat/tablechat/pkg/mcperr"
	"github.com/tablechat/tablechat/pkg/validation"
)

type analyzeRequest struct {
	Query         string         `json:"query" validate:"required"`
	BackendConfig map[string]any `json:"backend_config"`
}

type uploadResponse struct {
	Message  string           `json:"message"`
	Filename string           `json:"filename"`
	Rows     int              `json:"rows"`
	Columns  int              `json:"columns"`
	Preview  []map[string]any `json:"preview"`
}

type dataframeInfo struct {
	Filename string `json:"filename"`
	Rows     int    `json:"rows"`
	Columns  int    `json:"columns"`
}

// statusResponse is the snake_case REST status document. DataframeInfo has
// no omitempty: clients get an explicit null while nothing is loaded.
type statusResponse struct {
	Service       string         `json:"service"`
	Version       string         `json:"version"`
	Status        string         `json:"status"`
	DataLoaded    bool           `json:"data_loaded"`
	LLMConfigured bool           `json:"llm_configured"`
	DataframeInfo *dataframeInfo `json:"dataframe_info"`
}

// mcp decodes the flat method-call body and writes the dispatch envelope:
// 200 with {result}, 400 with {error}.
func (a *API) mcp(w http.ResponseWriter, r *http.Request) {
	var req protocol.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, protocol.Envelope{
			Error: &protocol.ErrorDetail{Code: -1, Message: fmt.Sprintf("invalid request body: %v", err)},
		})
		return
	}

	env := a.dispatch.Dispatch(r.Context(), req)
	status := http.StatusOK
	if env.Failed() {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, env)
}

// upload stages the multipart file under a uuid name and loads it. A
// successful load replaces the active dataset wholesale; the staged copy
// never outlives the request.
func (a *API) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.cfg.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			writeError(w, http.StatusBadRequest, "file is required")
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid upload: %v", err))
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	ext := strings.ToLower(filepath.Ext(name))
	if !dataset.Supported(ext) {
		writeError(w, http.StatusBadRequest, dataset.ErrUnsupported(ext).Error())
		return
	}

	staged := filepath.Join(a.cfg.UploadDir, uuid.NewString()+ext)
	if err := stageUpload(staged, file); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("staging upload: %v", err))
		return
	}
	defer os.Remove(staged)

	ds, err := dataset.Load(staged, name)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	a.store.SetDataset(ds)

	a.log.Info().
		Str("filename", name).
		Int("rows", ds.RowCount()).
		Int("columns", ds.ColumnCount()).
		Msg("dataset replaced")

	writeJSON(w, http.StatusOK, uploadResponse{
		Message:  "File uploaded and loaded successfully",
		Filename: name,
		Rows:     ds.RowCount(),
		Columns:  ds.ColumnCount(),
		Preview:  ds.Preview(a.cfg.PreviewRows),
	})
}

// analyze validates the body and routes through the analyze_data tool, so
// the REST path and the MCP path cannot drift apart.
func (a *API) analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if err := validation.ValidateStruct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	args := map[string]any{"query": req.Query}
	if req.BackendConfig != nil {
		args["backend_config"] = req.BackendConfig
	}

	res, err := a.tools.Call(r.Context(), protocol.ToolAnalyzeData, args)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// configureLLM routes the body through the configure_llm tool and reshapes
// the confirmation into a plain message document.
func (a *API) configureLLM(w http.ResponseWriter, r *http.Request) {
	var args map[string]any
	if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	res, err := a.tools.Call(r.Context(), protocol.ToolConfigureLLM, args)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": firstTextContent(res)})
}

func (a *API) status(w http.ResponseWriter, r *http.Request) {
	snap := a.store.Snapshot()
	resp := statusResponse{
		Service:       a.identity.Name,
		Version:       a.identity.Version,
		Status:        config.ServiceStatus,
		DataLoaded:    snap.DataLoaded,
		LLMConfigured: snap.LLMConfigured,
	}
	if snap.Dataset != nil {
		resp.DataframeInfo = &dataframeInfo{
			Filename: snap.Dataset.Filename,
			Rows:     snap.Dataset.Rows,
			Columns:  snap.Dataset.Columns,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": a.identity.Name,
		"version": a.identity.Version,
		"status":  config.ServiceStatus,
		"endpoints": map[string]string{
			"mcp":           "/mcp",
			"sse":           "/sse",
			"upload":        "/upload",
			"analyze":       "/analyze",
			"configure_llm": "/configure-llm",
			"status":        "/status",
			"docs":          "/docs",
		},
	})
}

func (a *API) docs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": a.identity.Name,
		"version": a.identity.Version,
		"routes": []map[string]string{
			{"method": "POST", "path": "/mcp", "description": "Method dispatch: initialize, notifications/initialized, tools/list, tools/call"},
			{"method": "GET", "path": "/sse", "description": "Server-sent events: connection acknowledgement, status, heartbeat"},
			{"method": "POST", "path": "/upload", "description": "Upload a CSV or Excel file as the active dataset (multipart field: file)"},
			{"method": "POST", "path": "/analyze", "description": "Ask a natural-language question about the active dataset"},
			{"method": "POST", "path": "/configure-llm", "description": "Configure the answering model (provider, model, api_key, base_url, temperature)"},
			{"method": "GET", "path": "/status", "description": "Service status and active dataset summary"},
			{"method": "GET", "path": "/docs", "description": "This document"},
		},
	})
}

func (a *API) notFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not found", "path": r.URL.Path})
}

func (a *API) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed", "path": r.URL.Path})
}

// stageUpload copies the multipart part to its temporary on-disk home.
func stageUpload(path string, src io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return err
	}
	return dst.Close()
}

// statusForError maps taxonomy codes onto REST status codes. Backend
// configuration splits on the cause: rejected input is the client's fault,
// a failed provider construction is not.
func statusForError(err error) int {
	switch mcperr.CodeOf(err) {
	case mcperr.NoDatasetLoaded, mcperr.NoBackendConfigured, mcperr.Validation,
		mcperr.UnsupportedFormat, mcperr.UnknownTool:
		return http.StatusBadRequest
	case mcperr.BackendConfigFailed:
		if mcperr.HasCode(err, mcperr.Validation) {
			return http.StatusBadRequest
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// firstTextContent pulls the first text block out of a tool result.
func firstTextContent(res *mcp.CallToolResult) string {
	for _, c := range res.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
