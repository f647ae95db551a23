package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const terminalWriteTimeout = 5 * time.Second

// GetTerminal returns the retained terminal lines of a chat. The n query
// parameter limits the result to the last n lines.
func (h *Handlers) GetTerminal(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	if _, err := h.Chats.GetChat(r.Context(), chatID); err != nil {
		respondStoreError(w, err)
		return
	}
	n, _ := strconv.Atoi(r.URL.Query().Get("n"))
	respondJSON(w, http.StatusOK, h.Chats.Terminal(chatID).Recent(n))
}

// StreamTerminal upgrades to a websocket, replays the retained lines and
// then streams new lines as JSON messages until either side goes away.
func (h *Handlers) StreamTerminal(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	if _, err := h.Chats.GetChat(r.Context(), chatID); err != nil {
		respondStoreError(w, err)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS handled by middleware
	})
	if err != nil {
		log.Error().Err(err).Str("chat", chatID).Msg("Websocket accept failed")
		return
	}
	defer conn.CloseNow()

	buf := h.Chats.Terminal(chatID)
	history, lines := buf.SubscribeWithHistory()
	defer buf.Unsubscribe(lines)

	// clients only listen; CloseRead cancels ctx when they disconnect
	ctx := conn.CloseRead(r.Context())
	log.Info().Str("chat", chatID).Str("remote", r.RemoteAddr).Msg("Terminal stream connected")

	for _, line := range history {
		if err := writeJSON(ctx, conn, line); err != nil {
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("chat", chatID).Msg("Terminal stream disconnected")
			return
		case line, ok := <-lines:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "chat deleted")
				return
			}
			if err := writeJSON(ctx, conn, line); err != nil {
				log.Debug().Err(err).Str("chat", chatID).Msg("Terminal stream write failed")
				return
			}
		}
	}
}

func writeJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	ctx, cancel := context.WithTimeout(ctx, terminalWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, v)
}
