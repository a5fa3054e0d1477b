package protocol

import (
	"sort"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
)

// Tool names routable through tools/call.
const (
	ToolAnalyzeData  = "analyze_data"
	ToolConfigureLLM = "configure_llm"
)

// Registry keeps the published tool definitions for discovery. Definitions
// are registered once at construction; the lock exists because tools/list
// serves concurrent requests.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]mcp.Tool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: map[string]mcp.Tool{}}
}

// Register stores a tool definition for discovery.
func (r *Registry) Register(tool mcp.Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name] = tool
}

// Tools returns the registered definitions sorted by name.
func (r *Registry) Tools() []mcp.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]mcp.Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}
	sort.Slice(tools, func(i, j int) bool {
		return tools[i].Name < tools[j].Name
	})
	return tools
}

// analyzeTool declares the analyze_data schema.
func analyzeTool() mcp.Tool {
	return mcp.NewTool(
		ToolAnalyzeData,
		mcp.WithDescription("Answer a natural-language question about the uploaded dataset. When backend_config is supplied the LLM backend is reconfigured first and the new configuration persists for later calls."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural-language question about the loaded data"),
		),
		mcp.WithObject("backend_config",
			mcp.Description("Optional LLM backend configuration (provider, model, api_key, base_url, temperature) applied before the analysis; replaces any previously configured backend"),
		),
	)
}

// configureTool declares the configure_llm schema.
func configureTool() mcp.Tool {
	return mcp.NewTool(
		ToolConfigureLLM,
		mcp.WithDescription("Configure the LLM backend used to answer analysis queries. Replaces any existing configuration."),
		mcp.WithString("model",
			mcp.Required(),
			mcp.Description("Model name, passed to the provider verbatim (e.g. gpt-4o, claude-sonnet-4-0, llama3)"),
		),
		mcp.WithString("provider",
			mcp.Description("LLM provider; defaults to openai"),
			mcp.Enum("openai", "anthropic", "ollama"),
		),
		mcp.WithString("api_key",
			mcp.Description("Provider API key; falls back to the provider's environment variable when omitted"),
		),
		mcp.WithString("base_url",
			mcp.Description("Override the provider endpoint (OpenAI-compatible gateways, local Ollama)"),
		),
		mcp.WithNumber("temperature",
			mcp.Description("Sampling temperature"),
			mcp.Min(0), mcp.Max(2),
		),
	)
}
