package protocol

import "github.com/mark3labs/mcp-go/mcp"

// Identity names the service in initialize results. The same identity feeds
// /status payloads and SSE status events so every surface reports one name.
type Identity struct {
	Name    string
	Version string
}

// initializeResult is the MCP handshake payload. It never touches the
// session; only tools are advertised as a capability.
func initializeResult(id Identity) map[string]any {
	return map[string]any{
		"protocolVersion": mcp.LATEST_PROTOCOL_VERSION,
		"capabilities": map[string]any{
			"tools": map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    id.Name,
			"version": id.Version,
		},
	}
}
