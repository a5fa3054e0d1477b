// Package httpapi adapts the dispatch, tool, and event layers onto HTTP.
// REST routes reuse the same ToolRouter the /mcp surface runs on, so both
// paths share one behavior per tool.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/tablechat/tablechat/config"
	"github.com/tablechat/tablechat/internal/protocol"
	"github.com/tablechat/tablechat/internal/session"
)

// Options carries everything the HTTP surface needs.
type Options struct {
	Config     config.Config
	Logger     zerolog.Logger
	Identity   protocol.Identity
	Store      *session.Store
	Dispatcher *protocol.Dispatcher
	Tools      *protocol.ToolRouter
	Events     http.Handler
}

// API is the HTTP surface. It embeds the router so it serves directly.
type API struct {
	chi.Router
	log      zerolog.Logger
	cfg      config.Config
	identity protocol.Identity
	store    *session.Store
	dispatch *protocol.Dispatcher
	tools    *protocol.ToolRouter
}

// New builds the router: permissive CORS and JSON panic recovery on every
// route, access logging on everything except the event stream.
func New(o Options) *API {
	a := &API{
		Router:   chi.NewRouter(),
		log:      o.Logger.With().Str("component", "http").Logger(),
		cfg:      o.Config,
		identity: o.Identity,
		store:    o.Store,
		dispatch: o.Dispatcher,
		tools:    o.Tools,
	}

	cors := cors.New(cors.Options{
		AllowOriginFunc:  func(r *http.Request, origin string) bool { return true },
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	})
	a.Use(cors.Handler)
	a.Use(recoverer(a.log))

	a.NotFound(a.notFound)
	a.MethodNotAllowed(a.methodNotAllowed)

	a.Method(http.MethodGet, "/sse", o.Events)

	a.Group(func(r chi.Router) {
		r.Use(requestLogger(a.log))
		r.Get("/", a.root)
		r.Get("/docs", a.docs)
		r.Get("/status", a.status)
		r.Post("/mcp", a.mcp)
		r.Post("/upload", a.upload)
		r.Post("/analyze", a.analyze)
		r.Post("/configure-llm", a.configureLLM)
	})

	return a
}
