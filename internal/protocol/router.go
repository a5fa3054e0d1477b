package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/tablechat/tablechat/internal/backend"
	"github.com/tablechat/tablechat/internal/dataset"
	"github.com/tablechat/tablechat/internal/session"
	"github.com/tablechat/tablechat/pkg/mcperr"
)

// Configurator builds backend handles from wire configs.
type Configurator interface {
	Configure(cfg backend.Config) (*backend.Handle, error)
}

// Analyzer answers a question about a dataset through a backend handle.
type Analyzer interface {
	Analyze(ctx context.Context, ds *dataset.Dataset, query string, h *backend.Handle) (string, error)
}

// emptyAnswerPlaceholder stands in when the engine yields no text.
const emptyAnswerPlaceholder = "No analysis result was produced."

// ToolRouter is the second-level dispatch behind tools/call. The REST
// /analyze and /configure-llm adapters route through it too, so both
// surfaces share one behavior.
type ToolRouter struct {
	logger       zerolog.Logger
	session      *session.Store
	configurator Configurator
	engine       Analyzer
	registry     *Registry
}

// NewToolRouter wires the router against the session store and the two
// collaborators, registering both tool schemas for discovery.
func NewToolRouter(store *session.Store, configurator Configurator, engine Analyzer, logger zerolog.Logger) *ToolRouter {
	reg := NewRegistry()
	reg.Register(analyzeTool())
	reg.Register(configureTool())
	return &ToolRouter{
		logger:       logger.With().Str("component", "tools").Logger(),
		session:      store,
		configurator: configurator,
		engine:       engine,
		registry:     reg,
	}
}

// ListResult returns the tools/list payload with definitions sorted by name.
func (r *ToolRouter) ListResult() mcp.ListToolsResult {
	return mcp.ListToolsResult{Tools: r.registry.Tools()}
}

// Call routes name to the matching operation. Unknown names fail naming the
// requested tool.
func (r *ToolRouter) Call(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	switch name {
	case ToolAnalyzeData:
		return r.analyzeData(ctx, args)
	case ToolConfigureLLM:
		return r.configureLLM(args)
	default:
		return nil, mcperr.Newf(mcperr.UnknownTool, "Unknown tool: %s", name)
	}
}

// analyzeData runs the fixed sequence: inline reconfiguration, dataset
// precondition, backend precondition, then the engine call.
func (r *ToolRouter) analyzeData(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	if rawCfg, ok := args["backend_config"]; ok && rawCfg != nil {
		cfg, err := decodeConfig(rawCfg)
		if err != nil {
			return nil, err
		}
		handle, err := r.configurator.Configure(cfg)
		if err != nil {
			return nil, err
		}
		// Last write wins: the inline config replaces the stored backend for
		// this call and every later one, even if the analysis below fails.
		r.session.SetBackend(handle)
	}

	ds, handle := r.session.Get()
	if ds == nil {
		return nil, mcperr.New(mcperr.NoDatasetLoaded)
	}
	if handle == nil {
		return nil, mcperr.New(mcperr.NoBackendConfigured)
	}

	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		return nil, mcperr.Newf(mcperr.Validation, "query is required")
	}

	answer, err := r.engine.Analyze(ctx, ds, query, handle)
	if err != nil {
		return nil, err
	}
	if answer == "" {
		answer = emptyAnswerPlaceholder
	}

	r.logger.Info().
		Str("tool", ToolAnalyzeData).
		Str("dataset", ds.SourceName).
		Int("answer_chars", len(answer)).
		Msg("analysis served")
	return mcp.NewToolResultText(answer), nil
}

// configureLLM replaces the session backend and confirms with the model name
// echoed verbatim from the arguments.
func (r *ToolRouter) configureLLM(args map[string]any) (*mcp.CallToolResult, error) {
	cfg, err := decodeConfig(args)
	if err != nil {
		return nil, err
	}
	handle, err := r.configurator.Configure(cfg)
	if err != nil {
		return nil, err
	}
	r.session.SetBackend(handle)

	r.logger.Info().
		Str("tool", ToolConfigureLLM).
		Str("provider", handle.Provider()).
		Str("model", handle.Label()).
		Msg("backend replaced")
	return mcp.NewToolResultText("LLM backend configured with model: " + handle.Label()), nil
}

// decodeConfig converts loosely-typed tool arguments into a backend.Config.
// Shape problems belong to the backend-configuration stage, so they carry
// its prefix.
func decodeConfig(raw any) (backend.Config, error) {
	var cfg backend.Config
	buf, err := json.Marshal(raw)
	if err != nil {
		return cfg, mcperr.Wrap(mcperr.BackendConfigFailed, fmt.Errorf("invalid backend_config: %v", err))
	}
	if err := json.Unmarshal(buf, &cfg); err != nil {
		return cfg, mcperr.Wrap(mcperr.BackendConfigFailed, fmt.Errorf("invalid backend_config: %v", err))
	}
	return cfg, nil
}
