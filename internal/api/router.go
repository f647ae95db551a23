package api

import (
	"encoding/json"
	"net/http"

	"github.com/orquestra/console/internal/api/handlers"
	"github.com/orquestra/console/internal/api/middleware"
	"github.com/orquestra/console/internal/config"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const serviceName = "orquestra-console"

// NewRouter creates the HTTP router with all API routes.
func NewRouter(cfg *config.Config, h *handlers.Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.UserExtractor)
	r.Use(middleware.Logger)
	r.Use(middleware.Telemetry)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-User-Id", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "X-Trace-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.NewAPIKeyAuth(cfg.Auth.Keys()).Middleware)

	// Health & info
	r.Get("/health", healthHandler(h))
	r.Get("/version", versionHandler(cfg))

	r.Route("/api/v1", func(r chi.Router) {
		// AI models
		r.Route("/models", func(r chi.Router) {
			r.Get("/", h.ListModels)
			r.Post("/", h.CreateModel)
			r.Route("/{modelID}", func(r chi.Router) {
				r.Get("/", h.GetModel)
				r.Put("/", h.UpdateModel)
				r.Delete("/", h.DeleteModel)
			})
		})

		// MCP server and tools
		r.Route("/mcp", func(r chi.Router) {
			r.Get("/", h.GetMCPConfig)
			r.Put("/", h.UpdateMCPConfig)
			r.Post("/test", h.TestMCPConnection)
			r.Route("/tools", func(r chi.Router) {
				r.Get("/", h.ListTools)
				r.Post("/", h.CreateTool)
				r.Route("/{toolID}", func(r chi.Router) {
					r.Get("/", h.GetTool)
					r.Put("/", h.UpdateTool)
					r.Delete("/", h.DeleteTool)
					r.Post("/execute", h.ExecuteTool)
				})
			})
		})

		// Agents
		r.Route("/agents", func(r chi.Router) {
			r.Get("/", h.ListAgents)
			r.Post("/", h.CreateAgent)
			r.Route("/{agentID}", func(r chi.Router) {
				r.Get("/", h.GetAgent)
				r.Put("/", h.UpdateAgent)
				r.Delete("/", h.DeleteAgent)
			})
		})

		// Orchestrator
		r.Route("/orchestrator", func(r chi.Router) {
			r.Get("/", h.GetOrchestratorConfig)
			r.Put("/", h.UpdateOrchestratorConfig)
			r.Get("/state", h.GetOrchestratorState)
			r.Post("/select-model", h.SelectModel)
			r.Post("/extract-tools", h.ExtractTools)
			r.Post("/preview", h.PreviewResponse)
		})

		// Memory confirmations
		r.Route("/memory", func(r chi.Router) {
			r.Route("/pending", func(r chi.Router) {
				r.Get("/", h.ListPending)
				r.Post("/{confirmationID}/approve", h.ApprovePending)
				r.Post("/{confirmationID}/reject", h.RejectPending)
			})
			r.Get("/users/{userID}", h.GetUserMemory)
		})

		// Chats
		r.Route("/chats", func(r chi.Router) {
			r.Get("/", h.ListChats)
			r.Post("/", h.CreateChat)
			r.Get("/active", h.GetActiveChat)
			r.Put("/active", h.SetActiveChat)
			r.Post("/messages", h.SendMessage)
			r.Route("/{chatID}", func(r chi.Router) {
				r.Get("/", h.GetChat)
				r.Delete("/", h.DeleteChat)
				r.Post("/messages", h.SendMessage)
				r.Get("/terminal", h.GetTerminal)
				r.Get("/terminal/stream", h.StreamTerminal)
			})
		})
	})

	return r
}

func healthHandler(h *handlers.Handlers) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, code := "healthy", http.StatusOK
		if err := h.Store.Ping(r.Context()); err != nil {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{
			"status":  status,
			"service": serviceName,
		})
	}
}

func versionHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"version": cfg.Version,
			"service": serviceName,
		})
	}
}
