package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/orquestra/console/pkg/models"
	"github.com/rs/zerolog/log"
)

// ══════════════════════════════════════════════════════════════
// ── AI Model Handlers ────────────────────────────────────────
// ══════════════════════════════════════════════════════════════

func maskModel(m models.AIModel) models.AIModel {
	m.APIKey = maskSecret(m.APIKey)
	return m
}

func validateModel(m *models.AIModel) string {
	if strings.TrimSpace(m.Name) == "" {
		return "name is required"
	}
	if strings.TrimSpace(m.Provider) == "" {
		return "provider is required"
	}
	return ""
}

func (h *Handlers) ListModels(w http.ResponseWriter, r *http.Request) {
	list, err := h.Store.ListModels(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	out := make([]models.AIModel, 0, len(list))
	for _, m := range list {
		out = append(out, maskModel(m))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handlers) CreateModel(w http.ResponseWriter, r *http.Request) {
	var req models.AIModel
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := validateModel(&req); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	req.ID = uuid.New().String()
	if req.Capabilities == nil {
		req.Capabilities = []string{}
	}

	if err := h.Store.SaveModel(r.Context(), &req); err != nil {
		respondStoreError(w, err)
		return
	}
	log.Info().Str("model", req.Name).Str("id", req.ID).Str("provider", req.Provider).Msg("Model registered")
	respondJSON(w, http.StatusCreated, maskModel(req))
}

func (h *Handlers) GetModel(w http.ResponseWriter, r *http.Request) {
	m, err := h.Store.GetModel(r.Context(), chi.URLParam(r, "modelID"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, maskModel(*m))
}

func (h *Handlers) UpdateModel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "modelID")
	existing, err := h.Store.GetModel(r.Context(), id)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	var req models.AIModel
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := validateModel(&req); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	req.ID = id
	req.APIKey = keepSecret(req.APIKey, existing.APIKey)
	if req.Capabilities == nil {
		req.Capabilities = []string{}
	}

	if err := h.Store.SaveModel(r.Context(), &req); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, maskModel(req))
}

func (h *Handlers) DeleteModel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "modelID")
	if err := h.Store.DeleteModel(r.Context(), id); err != nil {
		respondStoreError(w, err)
		return
	}
	log.Info().Str("id", id).Msg("Model deleted")
	w.WriteHeader(http.StatusNoContent)
}
