package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ══════════════════════════════════════════════════════════════
// ── Memory Handlers ──────────────────────────────────────────
// ══════════════════════════════════════════════════════════════

// ListPending lists pending confirmations, filtered by the user query
// parameter when present.
func (h *Handlers) ListPending(w http.ResponseWriter, r *http.Request) {
	pending, err := h.Memory.Pending(r.Context(), r.URL.Query().Get("user"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, pending)
}

func (h *Handlers) ApprovePending(w http.ResponseWriter, r *http.Request) {
	h.processPending(w, r, true)
}

func (h *Handlers) RejectPending(w http.ResponseWriter, r *http.Request) {
	h.processPending(w, r, false)
}

func (h *Handlers) processPending(w http.ResponseWriter, r *http.Request, approved bool) {
	p, err := h.Memory.Process(r.Context(), chi.URLParam(r, "confirmationID"), approved)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"confirmation": p,
		"approved":     approved,
	})
}

func (h *Handlers) GetUserMemory(w http.ResponseWriter, r *http.Request) {
	u, err := h.Memory.UserMemory(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, u)
}
