package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tablechat/tablechat/config"
	"github.com/tablechat/tablechat/internal/analysis"
	"github.com/tablechat/tablechat/internal/backend"
	"github.com/tablechat/tablechat/internal/events"
	"github.com/tablechat/tablechat/internal/httpapi"
	"github.com/tablechat/tablechat/internal/protocol"
	"github.com/tablechat/tablechat/internal/session"
	"github.com/tablechat/tablechat/pkg/version"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	var (
		addr            string
		debug           bool
		shutdownTimeout time.Duration
	)

	flag.StringVar(&addr, "addr", "", "Listen address (overrides TABLECHAT_ADDR)")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.DurationVar(&shutdownTimeout, "shutdown-timeout", 0, "Graceful shutdown timeout (overrides TABLECHAT_SHUTDOWN_TIMEOUT)")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	logger := zlog.With().Str("service", config.ServiceName).Logger()

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if addr != "" {
		cfg.Addr = addr
	}
	if shutdownTimeout > 0 {
		cfg.ShutdownTimeout = shutdownTimeout
	}

	identity := protocol.Identity{Name: config.ServiceName, Version: version.Version()}

	store := session.NewStore()
	configurator := backend.NewConfigurator(logger)
	engine := analysis.NewEngine(logger, cfg.PromptSampleRows)
	tools := protocol.NewToolRouter(store, configurator, engine, logger)
	dispatcher := protocol.NewDispatcher(identity, tools, logger)
	broadcaster := events.NewBroadcaster(store, identity, clockwork.NewRealClock(), logger)

	api := httpapi.New(httpapi.Options{
		Config:     cfg,
		Logger:     logger,
		Identity:   identity,
		Store:      store,
		Dispatcher: dispatcher,
		Tools:      tools,
		Events:     broadcaster,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: api,
		// Request contexts derive from the signal context so open SSE
		// streams unwind as soon as shutdown starts.
		BaseContext:       func(net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info().
		Str("version", identity.Version).
		Str("addr", cfg.Addr).
		Str("upload_dir", cfg.UploadDir).
		Int64("max_upload_bytes", cfg.MaxUploadBytes).
		Int("prompt_sample_rows", cfg.PromptSampleRows).
		Msg("server bootstrap configured")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		logger.Info().Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server terminated")
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
	logger.Info().Msg("server stopped")
}
