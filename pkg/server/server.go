// Package server provides the public entry point for initializing the
// orchestrator console control plane.
//
// Usage:
//
//	srv, err := server.New(ctx)
//	http.ListenAndServe(":8080", srv.Handler)
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/orquestra/console/internal/api"
	"github.com/orquestra/console/internal/api/handlers"
	"github.com/orquestra/console/internal/chat"
	"github.com/orquestra/console/internal/config"
	"github.com/orquestra/console/internal/mcpgw"
	"github.com/orquestra/console/internal/memory"
	"github.com/orquestra/console/internal/orchestrator"
	"github.com/orquestra/console/internal/pacing"
	"github.com/orquestra/console/internal/router"
	"github.com/orquestra/console/internal/store"
	"github.com/orquestra/console/internal/telemetry"
	"github.com/orquestra/console/internal/terminal"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Server holds the initialized control plane.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Store is the configuration store. Close it on shutdown to flush
	// pending snapshot writes.
	Store store.Store

	// Config is the loaded configuration.
	Config *config.Config

	// Port is the port the server should listen on.
	Port int

	// ShutdownFunc should be called on graceful shutdown to flush telemetry.
	ShutdownFunc func(context.Context) error
}

// New loads configuration and initializes all components.
func New(ctx context.Context) (*Server, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(ctx, cfg)
}

// NewWithConfig initializes the control plane with an explicit configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || lvl == zerolog.NoLevel {
		log.Warn().Str("level", cfg.LogLevel).Msg("Unknown log level, using info")
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	shutdown, err := telemetry.Init(ctx, cfg.Telemetry, cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	dataStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		shutdown(ctx)
		return nil, err
	}
	if err := dataStore.Ping(ctx); err != nil {
		dataStore.Close()
		shutdown(ctx)
		return nil, fmt.Errorf("ping store: %w", err)
	}

	sleeper := pacing.FromMode(cfg.Pacing.Mode)
	exec := mcpgw.NewExecutor(mcpgw.WithPacing(sleeper, cfg.Pacing.ToolDelay))
	sel := router.NewSelector(dataStore)
	mem := memory.NewQueue(dataStore)
	orch := orchestrator.New(dataStore, sel, exec, mem,
		orchestrator.WithPacing(sleeper, cfg.Pacing.StepDelay))
	chats := chat.NewManager(dataStore, orch, terminal.NewHub(cfg.Terminal.MaxLines))

	log.Info().
		Str("pacing", cfg.Pacing.Mode).
		Dur("tool_delay", cfg.Pacing.ToolDelay).
		Int("terminal_lines", cfg.Terminal.MaxLines).
		Msg("✅ Orchestrator initialized")

	h := handlers.New(dataStore, exec, sel, orch, mem, chats)

	return &Server{
		Handler:      api.NewRouter(cfg, h),
		Store:        dataStore,
		Config:       cfg,
		Port:         cfg.Port,
		ShutdownFunc: shutdown,
	}, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Kind {
	case "postgres":
		s, err := store.NewPostgresStore(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		log.Info().Msg("✅ PostgreSQL store initialized")
		return s, nil
	case "sqlite":
		s, err := store.NewSQLiteStore(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		log.Info().Str("dir", cfg.DataDir).Msg("✅ SQLite store initialized")
		return s, nil
	default:
		s := store.NewMemoryStore(cfg.DataDir)
		log.Info().Str("dir", cfg.DataDir).Msg("✅ In-memory store initialized")
		return s, nil
	}
}
