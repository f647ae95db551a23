package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/orquestra/console/internal/api/middleware"
	"github.com/orquestra/console/internal/chat"
	"github.com/rs/zerolog/log"
)

// ══════════════════════════════════════════════════════════════
// ── Chat Handlers ────────────────────────────────────────────
// ══════════════════════════════════════════════════════════════

func (h *Handlers) ListChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.Chats.ListChats(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, chats)
}

func (h *Handlers) CreateChat(w http.ResponseWriter, r *http.Request) {
	c, err := h.Chats.CreateChat(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

func (h *Handlers) GetChat(w http.ResponseWriter, r *http.Request) {
	c, err := h.Chats.GetChat(r.Context(), chi.URLParam(r, "chatID"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *Handlers) DeleteChat(w http.ResponseWriter, r *http.Request) {
	if err := h.Chats.DeleteChat(r.Context(), chi.URLParam(r, "chatID")); err != nil {
		respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) GetActiveChat(w http.ResponseWriter, r *http.Request) {
	c, err := h.Chats.Active(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *Handlers) SetActiveChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChatID string `json:"chatId"`
	}
	if err := decodeBody(r, &req); err != nil || req.ChatID == "" {
		respondError(w, http.StatusBadRequest, "chatId is required")
		return
	}
	if err := h.Chats.SetActive(r.Context(), req.ChatID); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"activeChatId": req.ChatID})
}

// SendMessage sends to the chat in the path, or to the active chat on the
// /chats/messages route.
func (h *Handlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	chatID := chi.URLParam(r, "chatID")
	user := middleware.GetUserID(r.Context())

	res, err := h.Chats.Send(r.Context(), chatID, req.Content, user)
	if errors.Is(err, chat.ErrEmptyMessage) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if res.Result.Err != nil {
		log.Warn().Err(res.Result.Err).Str("chat", res.Chat.ID).Msg("Answer carries pipeline error")
	}
	respondJSON(w, http.StatusOK, res)
}
