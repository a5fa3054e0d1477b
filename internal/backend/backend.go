// Package backend turns a client-supplied configuration into a ready
// language-model handle for the analysis engine.
package backend

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/tablechat/tablechat/pkg/mcperr"
	"github.com/tablechat/tablechat/pkg/validation"
)

// DefaultProvider applies when a config leaves provider empty.
const DefaultProvider = "openai"

// Config is the wire shape accepted by configure_llm and by inline
// backend_config objects on analyze calls. The model name is passed to the
// provider verbatim; only its presence is enforced here.
type Config struct {
	Provider    string   `json:"provider" validate:"omitempty,oneof=openai anthropic ollama"`
	Model       string   `json:"model" validate:"required"`
	APIKey      string   `json:"api_key"`
	BaseURL     string   `json:"base_url" validate:"omitempty,http_url"`
	Temperature *float64 `json:"temperature" validate:"omitempty,gte=0,lte=2"`
}

// Handle wraps a constructed model. The dispatch layer treats it as opaque
// beyond the label echoed in confirmation text.
type Handle struct {
	model       llms.Model
	provider    string
	label       string
	temperature *float64
}

// NewHandle wraps an already-built model. The configurator goes through it
// and tests inject fakes with it.
func NewHandle(model llms.Model, provider, label string) *Handle {
	return &Handle{model: model, provider: provider, label: label}
}

// Model returns the underlying language model.
func (h *Handle) Model() llms.Model { return h.model }

// Provider returns the provider key the handle was built for.
func (h *Handle) Provider() string { return h.provider }

// Label returns the configured model name, echoed in confirmations.
func (h *Handle) Label() string { return h.label }

// Temperature returns the configured sampling temperature, nil when unset.
func (h *Handle) Temperature() *float64 { return h.temperature }

// WithTemperature returns a copy of the handle carrying a sampling
// temperature.
func (h *Handle) WithTemperature(t float64) *Handle {
	c := *h
	c.temperature = &t
	return &c
}

// Configurator validates configs and constructs provider-specific models.
type Configurator struct {
	logger zerolog.Logger
}

// NewConfigurator returns a Configurator logging under the backend component.
func NewConfigurator(logger zerolog.Logger) *Configurator {
	return &Configurator{logger: logger.With().Str("component", "backend").Logger()}
}

// Configure builds a Handle from cfg. Every failure comes back classified as
// BackendConfigFailed with the cause preserved, so validation problems stay
// distinguishable from construction problems further up.
func (c *Configurator) Configure(cfg Config) (*Handle, error) {
	if err := validation.ValidateStruct(cfg); err != nil {
		return nil, mcperr.Wrap(mcperr.BackendConfigFailed, err)
	}

	provider := cfg.Provider
	if provider == "" {
		provider = DefaultProvider
	}

	model, err := buildModel(provider, cfg)
	if err != nil {
		return nil, mcperr.Wrap(mcperr.BackendConfigFailed, err)
	}

	c.logger.Info().
		Str("provider", provider).
		Str("model", cfg.Model).
		Bool("custom_base_url", cfg.BaseURL != "").
		Msg("backend configured")

	h := NewHandle(model, provider, cfg.Model)
	if cfg.Temperature != nil {
		h = h.WithTemperature(*cfg.Temperature)
	}
	return h, nil
}

// buildModel dispatches on provider. An empty api_key is not filled in here;
// each provider client falls back to its own environment variable.
func buildModel(provider string, cfg Config) (llms.Model, error) {
	switch provider {
	case "openai":
		opts := []openai.Option{openai.WithModel(cfg.Model)}
		if cfg.APIKey != "" {
			opts = append(opts, openai.WithToken(cfg.APIKey))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		return openai.New(opts...)
	case "anthropic":
		opts := []anthropic.Option{anthropic.WithModel(cfg.Model)}
		if cfg.APIKey != "" {
			opts = append(opts, anthropic.WithToken(cfg.APIKey))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		return anthropic.New(opts...)
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		return ollama.New(opts...)
	}
	return nil, fmt.Errorf("backend: unknown provider %q", provider)
}
