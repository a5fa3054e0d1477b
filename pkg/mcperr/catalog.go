// Package mcperr defines the canonical failure classes surfaced by the MCP
// dispatch layer and the REST adapters, with display-ready messages.
package mcperr

import (
	"errors"
	"fmt"
	"strings"
)

// Code identifies a failure class shared between the MCP envelope and the
// REST surface.
type Code string

const (
	// Dispatch
	UnsupportedMethod Code = "UNSUPPORTED_METHOD"
	UnknownTool       Code = "UNKNOWN_TOOL"

	// Session preconditions
	NoDatasetLoaded     Code = "NO_DATASET_LOADED"
	NoBackendConfigured Code = "NO_BACKEND_CONFIGURED"

	// Input
	Validation        Code = "VALIDATION"
	UnsupportedFormat Code = "UNSUPPORTED_FORMAT"

	// Collaborator stages
	LoadFailed          Code = "LOAD_FAILED"
	BackendConfigFailed Code = "BACKEND_CONFIG_FAILED"
	AnalysisFailed      Code = "ANALYSIS_FAILED"

	// Fallback for unclassified defects
	Internal Code = "INTERNAL"
)

// catalog holds the canonical client-facing message per code. Messages carry
// no code prefix and no internal detail; stage codes double as the prefix
// applied by Wrap.
var catalog = map[Code]string{
	UnsupportedMethod:   "Method not found",
	UnknownTool:         "Unknown tool",
	NoDatasetLoaded:     "No dataset loaded. Please upload a CSV or Excel file first.",
	NoBackendConfigured: "No LLM backend configured. Please call configure_llm or supply backend_config.",
	Validation:          "invalid request",
	UnsupportedFormat:   "Unsupported file format. Supported formats: .csv, .xlsx, .xls",
	LoadFailed:          "File loading failed",
	BackendConfigFailed: "Backend configuration failed",
	AnalysisFailed:      "Analysis failed",
	Internal:            "Internal server error",
}

// Error is a classified failure. Message is the exact text shown to clients.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string { return e.Message }

// Unwrap exposes the collaborator failure behind a wrapped error.
func (e *Error) Unwrap() error { return e.cause }

// New returns the canonical error for a code.
func New(code Code) *Error {
	return &Error{Code: code, Message: messageFor(code)}
}

// Newf returns an error for code with a formatted message replacing the
// canonical one.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap prefixes err with the code's canonical message, keeping err as the
// cause. An err already classified under the same code passes through
// unchanged, so a message is never prefixed twice.
func Wrap(code Code, err error) *Error {
	if err == nil {
		return New(code)
	}
	var classified *Error
	if errors.As(err, &classified) && classified.Code == code {
		return classified
	}
	return &Error{
		Code:    code,
		Message: messageFor(code) + ": " + strings.TrimSpace(err.Error()),
		cause:   err,
	}
}

// CodeOf reports the classification of err: the outermost Error's code, or
// Internal when err carries none.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Code
	}
	return Internal
}

// HasCode reports whether any error in the chain carries code. Unlike
// CodeOf, it sees through stage wrappers; a validation failure wrapped as
// BackendConfigFailed still answers true for Validation.
func HasCode(err error, code Code) bool {
	var classified *Error
	for errors.As(err, &classified) {
		if classified.Code == code {
			return true
		}
		err = classified.Unwrap()
	}
	return false
}

func messageFor(code Code) string {
	if msg, ok := catalog[code]; ok {
		return msg
	}
	return string(code)
}
