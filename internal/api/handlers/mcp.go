package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/orquestra/console/internal/mcpgw"
	"github.com/orquestra/console/pkg/models"
	"github.com/rs/zerolog/log"
)

// ══════════════════════════════════════════════════════════════
// ── MCP Handlers ─────────────────────────────────────────────
// ══════════════════════════════════════════════════════════════

func maskTool(t models.MCPTool) models.MCPTool {
	t.AuthKey = maskSecret(t.AuthKey)
	return t
}

func maskMCPConfig(cfg *models.MCPServerConfig) *models.MCPServerConfig {
	out := &models.MCPServerConfig{
		ServerURL: cfg.ServerURL,
		APIKey:    maskSecret(cfg.APIKey),
		Tools:     make([]models.MCPTool, 0, len(cfg.Tools)),
	}
	for _, t := range cfg.Tools {
		out.Tools = append(out.Tools, maskTool(t))
	}
	return out
}

func validateTool(t *models.MCPTool) string {
	if strings.TrimSpace(t.Name) == "" {
		return "name is required"
	}
	if strings.TrimSpace(t.Endpoint) == "" {
		return "endpoint is required"
	}
	if !models.ValidMethod(t.Method) {
		return "method must be one of GET, POST, PUT, DELETE, PATCH"
	}
	if !models.ValidJSONText(t.Parameters) {
		return "parameters is not valid JSON"
	}
	return ""
}

func (h *Handlers) GetMCPConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Store.GetMCPConfig(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, maskMCPConfig(cfg))
}

// UpdateMCPConfig replaces the server URL and API key. Tools are replaced
// only when the body carries them.
func (h *Handlers) UpdateMCPConfig(w http.ResponseWriter, r *http.Request) {
	existing, err := h.Store.GetMCPConfig(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}

	var req models.MCPServerConfig
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.ServerURL = strings.TrimSpace(req.ServerURL)
	req.APIKey = keepSecret(req.APIKey, existing.APIKey)
	if req.Tools == nil {
		req.Tools = existing.Tools
	} else {
		for i := range req.Tools {
			if msg := validateTool(&req.Tools[i]); msg != "" {
				respondError(w, http.StatusBadRequest, "tool "+req.Tools[i].Name+": "+msg)
				return
			}
			if req.Tools[i].ID == "" {
				req.Tools[i].ID = uuid.New().String()
			}
			if prev := existing.FindTool(req.Tools[i].ID); prev != nil {
				req.Tools[i].AuthKey = keepSecret(req.Tools[i].AuthKey, prev.AuthKey)
			}
		}
	}

	if err := h.Store.SaveMCPConfig(r.Context(), &req); err != nil {
		respondStoreError(w, err)
		return
	}
	log.Info().Str("server_url", req.ServerURL).Int("tools", len(req.Tools)).Msg("MCP config updated")
	respondJSON(w, http.StatusOK, maskMCPConfig(&req))
}

// TestMCPConnection checks the server in the body, or the stored one when
// the body names none.
func (h *Handlers) TestMCPConnection(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Store.GetMCPConfig(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}

	var req models.MCPServerConfig
	if err := decodeOptionalBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.ServerURL) != "" {
		cfg.ServerURL = strings.TrimSpace(req.ServerURL)
		cfg.APIKey = keepSecret(req.APIKey, cfg.APIKey)
	}

	err = h.Executor.TestConnection(r.Context(), cfg)
	switch {
	case errors.Is(err, mcpgw.ErrNotConfigured):
		respondError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		respondJSON(w, http.StatusBadGateway, map[string]any{"success": false, "error": err.Error()})
	default:
		respondJSON(w, http.StatusOK, map[string]any{"success": true, "serverUrl": cfg.ServerURL})
	}
}

func (h *Handlers) ListTools(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Store.GetMCPConfig(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, maskMCPConfig(cfg).Tools)
}

func (h *Handlers) CreateTool(w http.ResponseWriter, r *http.Request) {
	var req models.MCPTool
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := validateTool(&req); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	} else if _, err := h.Store.GetTool(r.Context(), req.ID); err == nil {
		respondError(w, http.StatusConflict, "tool already exists: "+req.ID)
		return
	}

	if err := h.Store.SaveTool(r.Context(), &req); err != nil {
		respondStoreError(w, err)
		return
	}
	log.Info().Str("tool", req.Name).Str("id", req.ID).Str("endpoint", req.Endpoint).Msg("Tool registered")
	respondJSON(w, http.StatusCreated, maskTool(req))
}

func (h *Handlers) GetTool(w http.ResponseWriter, r *http.Request) {
	tool, err := h.Store.GetTool(r.Context(), chi.URLParam(r, "toolID"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, maskTool(*tool))
}

func (h *Handlers) UpdateTool(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "toolID")
	existing, err := h.Store.GetTool(r.Context(), id)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	var req models.MCPTool
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := validateTool(&req); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	req.ID = id
	req.AuthKey = keepSecret(req.AuthKey, existing.AuthKey)

	if err := h.Store.SaveTool(r.Context(), &req); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, maskTool(req))
}

func (h *Handlers) DeleteTool(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "toolID")
	if err := h.Store.DeleteTool(r.Context(), id); err != nil {
		respondStoreError(w, err)
		return
	}
	log.Info().Str("id", id).Msg("Tool deleted")
	w.WriteHeader(http.StatusNoContent)
}

// ExecuteTool invokes a tool with the params in the body merged over its
// default parameters.
func (h *Handlers) ExecuteTool(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "toolID")
	cfg, err := h.Store.GetMCPConfig(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	tool := cfg.FindTool(id)
	if tool == nil {
		respondError(w, http.StatusNotFound, "tool not found: "+id)
		return
	}

	var req struct {
		Params map[string]any `json:"params"`
	}
	if err := decodeOptionalBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	params, perr := models.ParseToolParameters(tool.Parameters)
	if perr != nil {
		log.Warn().Err(perr).Str("tool", id).Msg("Invalid tool parameters, using {}")
	}
	for k, v := range req.Params {
		params[k] = v
	}

	result, err := h.Executor.Execute(r.Context(), cfg, tool, params)
	if errors.Is(err, mcpgw.ErrNotConfigured) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, result)
}
