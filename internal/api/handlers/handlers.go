// Package handlers implements the HTTP handlers for the orchestrator console
// control plane. All handlers go through the Store interface and the domain
// services; none of them keep state of their own.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/orquestra/console/internal/chat"
	"github.com/orquestra/console/internal/mcpgw"
	"github.com/orquestra/console/internal/memory"
	"github.com/orquestra/console/internal/orchestrator"
	"github.com/orquestra/console/internal/router"
	"github.com/orquestra/console/internal/store"
	"github.com/rs/zerolog/log"
)

// Handlers holds all handler dependencies.
type Handlers struct {
	Store        store.Store
	Executor     *mcpgw.Executor
	Selector     *router.Selector
	Orchestrator *orchestrator.Orchestrator
	Memory       *memory.Queue
	Chats        *chat.Manager
}

// New creates a new Handlers instance with all dependencies.
func New(s store.Store, exec *mcpgw.Executor, sel *router.Selector, orch *orchestrator.Orchestrator, mem *memory.Queue, chats *chat.Manager) *Handlers {
	return &Handlers{
		Store:        s,
		Executor:     exec,
		Selector:     sel,
		Orchestrator: orch,
		Memory:       mem,
		Chats:        chats,
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondStoreError maps not-found errors to 404 and everything else to 500.
func respondStoreError(w http.ResponseWriter, err error) {
	var nf *store.ErrNotFound
	if errors.As(err, &nf) {
		respondError(w, http.StatusNotFound, nf.Error())
		return
	}
	log.Error().Err(err).Msg("Store operation failed")
	respondError(w, http.StatusInternalServerError, err.Error())
}

func decodeBody(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// decodeOptionalBody is decodeBody for endpoints whose body may be empty.
func decodeOptionalBody(r *http.Request, v any) error {
	if err := decodeBody(r, v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

const secretMask = "****"

// maskSecret redacts a credential before returning it to API consumers.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if r := []rune(s); len(r) > 4 {
		return string(r[:4]) + secretMask
	}
	return secretMask
}

// keepSecret returns existing when incoming is a masked echo of it.
func keepSecret(incoming, existing string) string {
	if strings.HasSuffix(incoming, secretMask) {
		return existing
	}
	return incoming
}
