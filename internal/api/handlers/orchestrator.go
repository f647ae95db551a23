package handlers

import (
	"net/http"

	"github.com/orquestra/console/internal/orchestrator"
	"github.com/orquestra/console/internal/router"
	"github.com/orquestra/console/internal/toolcall"
	"github.com/orquestra/console/pkg/models"
	"github.com/rs/zerolog/log"
)

// ══════════════════════════════════════════════════════════════
// ── Orchestrator Handlers ────────────────────────────────────
// ══════════════════════════════════════════════════════════════

func (h *Handlers) GetOrchestratorConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Store.GetOrchestratorConfig(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}

// UpdateOrchestratorConfig replaces the configuration. Name and description
// are fixed and always overwritten.
func (h *Handlers) UpdateOrchestratorConfig(w http.ResponseWriter, r *http.Request) {
	var req models.OrchestratorConfig
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.MainAgentID != "" {
		if _, err := h.Store.GetAgent(r.Context(), req.MainAgentID); err != nil {
			log.Warn().Str("agent", req.MainAgentID).Msg("Main agent does not exist yet")
		}
	}

	if err := h.Store.SaveOrchestratorConfig(r.Context(), &req); err != nil {
		respondStoreError(w, err)
		return
	}
	log.Info().Str("model", req.SelectedModel).Str("main_agent", req.MainAgentID).Msg("Orchestrator config updated")
	respondJSON(w, http.StatusOK, req)
}

func (h *Handlers) GetOrchestratorState(w http.ResponseWriter, r *http.Request) {
	st, err := h.Store.GetOrchestratorState(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, st)
}

// SelectModel resolves the model that would answer a message with the
// stored configuration.
func (h *Handlers) SelectModel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description string `json:"description"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	cfg, err := h.Store.GetOrchestratorConfig(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}

	sel, err := h.Selector.Resolve(r.Context(), cfg, req.Description)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	_, synthetic := sel.(router.SyntheticOrchestrator)
	respondJSON(w, http.StatusOK, map[string]any{
		"modelId":      sel.ModelID(),
		"agentId":      sel.AgentID(),
		"agentName":    sel.AgentName(),
		"synthetic":    synthetic,
		"keywordModel": router.SelectModelForTask(req.Description),
	})
}

func (h *Handlers) ExtractTools(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	respondJSON(w, http.StatusOK, toolcall.Extract(req.Message))
}

// PreviewResponse renders the response template without side effects.
// Capabilities default to the stored configuration.
func (h *Handlers) PreviewResponse(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message      string               `json:"message"`
		Capabilities *models.Capabilities `json:"capabilities"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	caps := req.Capabilities
	if caps == nil {
		cfg, err := h.Store.GetOrchestratorConfig(r.Context())
		if err != nil {
			respondStoreError(w, err)
			return
		}
		c := cfg.Capabilities()
		caps = &c
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"category": orchestrator.Classify(req.Message),
		"response": orchestrator.Generate(req.Message, *caps),
	})
}
