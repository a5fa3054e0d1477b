// Package protocol implements the method-dispatch surface: a flat
// {method, params} request resolved against the MCP handshake methods and
// the tool registry, with every outcome expressed as a single-result or
// single-error envelope.
package protocol

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/tablechat/tablechat/pkg/mcperr"
)

// methodNotificationInitialized is the client acknowledgement that follows
// initialize. Unlike a classic notification it gets a success reply here.
const methodNotificationInitialized = mcp.MCPMethod("notifications/initialized")

// Request is the wire shape accepted by the dispatch endpoint.
type Request struct {
	Method mcp.MCPMethod   `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// ErrorDetail is the fixed error object carried by failed envelopes. Code is
// always -1 on this surface; the message alone distinguishes failures.
type ErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Envelope is the dispatch response. Exactly one of Result or Error is set.
type Envelope struct {
	Result any          `json:"result,omitempty"`
	Error  *ErrorDetail `json:"error,omitempty"`
}

// Failed reports whether the envelope carries an error.
func (e Envelope) Failed() bool { return e.Error != nil }

// callParams is the params shape for tools/call.
type callParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Dispatcher resolves methods one level above the tool router.
type Dispatcher struct {
	logger   zerolog.Logger
	identity Identity
	router   *ToolRouter
}

// NewDispatcher builds the dispatch layer for the given service identity.
func NewDispatcher(identity Identity, router *ToolRouter, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		logger:   logger.With().Str("component", "dispatch").Logger(),
		identity: identity,
		router:   router,
	}
}

// Dispatch resolves one request to an envelope. Transport concerns stay with
// the caller; failures here never surface as Go errors, only as envelopes.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Envelope {
	d.logger.Info().
		Str("method", string(req.Method)).
		RawJSON("params", rawOrNull(req.Params)).
		Msg("dispatching method")

	switch req.Method {
	case mcp.MethodInitialize:
		return resultEnvelope(initializeResult(d.identity))
	case methodNotificationInitialized:
		return resultEnvelope(map[string]any{"success": true})
	case mcp.MethodToolsList:
		return resultEnvelope(d.router.ListResult())
	case mcp.MethodToolsCall:
		var params callParams
		if err := json.Unmarshal(rawOrNull(req.Params), &params); err != nil {
			return errorEnvelope(mcperr.Newf(mcperr.Validation, "invalid tools/call params: %v", err))
		}
		res, err := d.router.Call(ctx, params.Name, params.Arguments)
		if err != nil {
			return errorEnvelope(err)
		}
		return resultEnvelope(res)
	default:
		return errorEnvelope(mcperr.Newf(mcperr.UnsupportedMethod, "Method not found: %s", req.Method))
	}
}

func resultEnvelope(result any) Envelope { return Envelope{Result: result} }

// errorEnvelope carries the error message verbatim; collaborators already
// prefix their stage, so nothing is added here.
func errorEnvelope(err error) Envelope {
	return Envelope{Error: &ErrorDetail{Code: -1, Message: err.Error()}}
}

// rawOrNull substitutes the JSON null literal when params were omitted.
func rawOrNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}
