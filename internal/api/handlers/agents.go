package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/orquestra/console/pkg/models"
	"github.com/rs/zerolog/log"
)

// ══════════════════════════════════════════════════════════════
// ── Agent Handlers ───────────────────────────────────────────
// ══════════════════════════════════════════════════════════════

func validateAgent(a *models.Agent) string {
	if strings.TrimSpace(a.Name) == "" {
		return "name is required"
	}
	if !models.ValidJSONText(a.ConfigJSON) {
		return "configJson is not valid JSON"
	}
	return ""
}

func (h *Handlers) ListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.Store.ListAgents(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, agents)
}

func (h *Handlers) CreateAgent(w http.ResponseWriter, r *http.Request) {
	var req models.Agent
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := validateAgent(&req); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	now := time.Now().UTC()
	req.ID = uuid.New().String()
	req.CreatedAt = now
	req.UpdatedAt = now
	if req.ToolIDs == nil {
		req.ToolIDs = []string{}
	}

	if err := h.Store.SaveAgent(r.Context(), &req); err != nil {
		respondStoreError(w, err)
		return
	}
	log.Info().Str("agent", req.Name).Str("id", req.ID).Str("model", req.ModelID).Msg("Agent registered")
	respondJSON(w, http.StatusCreated, req)
}

func (h *Handlers) GetAgent(w http.ResponseWriter, r *http.Request) {
	agent, err := h.Store.GetAgent(r.Context(), chi.URLParam(r, "agentID"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, agent)
}

func (h *Handlers) UpdateAgent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "agentID")
	existing, err := h.Store.GetAgent(r.Context(), id)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	var req models.Agent
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := validateAgent(&req); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	req.ID = id
	req.CreatedAt = existing.CreatedAt
	req.UpdatedAt = time.Now().UTC()
	if req.ToolIDs == nil {
		req.ToolIDs = []string{}
	}

	if err := h.Store.SaveAgent(r.Context(), &req); err != nil {
		respondStoreError(w, err)
		return
	}
	log.Info().Str("agent", req.Name).Str("id", id).Msg("Agent updated")
	respondJSON(w, http.StatusOK, req)
}

func (h *Handlers) DeleteAgent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "agentID")
	if err := h.Store.DeleteAgent(r.Context(), id); err != nil {
		respondStoreError(w, err)
		return
	}
	log.Info().Str("id", id).Msg("Agent deleted")
	w.WriteHeader(http.StatusNoContent)
}
