// Package chat manages chat sessions: creation, the active chat, and the
// send flow that appends the user message, runs the orchestrator and
// appends its answer.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/orquestra/console/internal/orchestrator"
	"github.com/orquestra/console/internal/store"
	"github.com/orquestra/console/internal/terminal"
	"github.com/orquestra/console/pkg/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// ErrEmptyMessage is returned when a blank message is sent.
var ErrEmptyMessage = errors.New("message must not be empty")

// Responder produces the assistant answer for a message.
type Responder interface {
	Respond(ctx context.Context, req orchestrator.Request) orchestrator.Result
}

// SendResult is the outcome of a successful Send.
type SendResult struct {
	Chat      *models.Chat        `json:"chat"`
	User      models.Message      `json:"userMessage"`
	Assistant models.Message      `json:"assistantMessage"`
	Result    orchestrator.Result `json:"result"`
}

// Manager owns the chat lifecycle. Sends to the same chat run one at a time.
type Manager struct {
	store     store.ChatStore
	responder Responder
	terminals *terminal.Hub

	mu       sync.Mutex // guards locks
	locks    map[string]*semaphore.Weighted
	activeMu sync.Mutex

	now func() time.Time
}

// NewManager creates a chat manager.
func NewManager(s store.ChatStore, r Responder, hub *terminal.Hub) *Manager {
	return &Manager{
		store:     s,
		responder: r,
		terminals: hub,
		locks:     make(map[string]*semaphore.Weighted),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateChat creates an empty chat and makes it the active one.
func (m *Manager) CreateChat(ctx context.Context) (*models.Chat, error) {
	now := m.now()
	c := &models.Chat{
		ID:        uuid.New().String(),
		Title:     models.DefaultChatTitle,
		Messages:  []models.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.SaveChat(ctx, c); err != nil {
		return nil, fmt.Errorf("save chat: %w", err)
	}
	if err := m.store.SetActiveChatID(ctx, c.ID); err != nil {
		return nil, fmt.Errorf("set active chat: %w", err)
	}
	log.Info().Str("chat", c.ID).Msg("Chat created")
	return c, nil
}

// ListChats returns all chats, newest first.
func (m *Manager) ListChats(ctx context.Context) ([]models.Chat, error) {
	return m.store.ListChats(ctx)
}

// GetChat returns a chat by id.
func (m *Manager) GetChat(ctx context.Context, id string) (*models.Chat, error) {
	return m.store.GetChat(ctx, id)
}

// DeleteChat removes a chat and its terminal.
func (m *Manager) DeleteChat(ctx context.Context, id string) error {
	if err := m.store.DeleteChat(ctx, id); err != nil {
		return err
	}
	m.terminals.Remove(id)

	m.mu.Lock()
	delete(m.locks, id)
	m.mu.Unlock()

	log.Info().Str("chat", id).Msg("Chat deleted")
	return nil
}

// SetActive makes an existing chat the active one.
func (m *Manager) SetActive(ctx context.Context, id string) error {
	if _, err := m.store.GetChat(ctx, id); err != nil {
		return err
	}
	return m.store.SetActiveChatID(ctx, id)
}

// Active returns the active chat, or ErrNotFound when there is none.
func (m *Manager) Active(ctx context.Context) (*models.Chat, error) {
	id, err := m.store.GetActiveChatID(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, &store.ErrNotFound{Entity: "chat", Key: "active"}
	}
	return m.store.GetChat(ctx, id)
}

// Terminal returns the terminal buffer of a chat.
func (m *Manager) Terminal(chatID string) *terminal.Buffer {
	return m.terminals.For(chatID)
}

// activeOrCreate resolves the active chat, creating one when none exists.
func (m *Manager) activeOrCreate(ctx context.Context) (string, error) {
	m.activeMu.Lock()
	defer m.activeMu.Unlock()

	c, err := m.Active(ctx)
	var nf *store.ErrNotFound
	switch {
	case err == nil:
		return c.ID, nil
	case errors.As(err, &nf):
		c, err = m.CreateChat(ctx)
		if err != nil {
			return "", err
		}
		return c.ID, nil
	default:
		return "", err
	}
}

func (m *Manager) lock(chatID string) *semaphore.Weighted {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[chatID]
	if !ok {
		l = semaphore.NewWeighted(1)
		m.locks[chatID] = l
	}
	return l
}

// Send appends content as a user message to chatID (the active chat when
// empty), runs the orchestrator and appends its answer. The first user
// message names the chat.
func (m *Manager) Send(ctx context.Context, chatID, content, userID string) (*SendResult, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}

	if chatID == "" {
		id, err := m.activeOrCreate(ctx)
		if err != nil {
			return nil, err
		}
		chatID = id
	}

	l := m.lock(chatID)
	if err := l.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer l.Release(1)

	c, err := m.store.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}

	userMsg := models.Message{
		ID:        uuid.New().String(),
		Content:   content,
		Role:      models.RoleUser,
		CreatedAt: m.now(),
	}
	if !c.HasUserMessage() {
		c.Title = Title(content)
	}
	c.Messages = append(c.Messages, userMsg)
	c.UpdatedAt = userMsg.CreatedAt
	if err := m.store.SaveChat(ctx, c); err != nil {
		return nil, fmt.Errorf("save user message: %w", err)
	}

	res := m.responder.Respond(ctx, orchestrator.Request{
		UserID:   userID,
		Message:  content,
		Terminal: m.terminals.For(chatID),
	})

	// the chat may have been deleted while the answer was generated
	c, err = m.store.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	reply := models.Message{
		ID:        uuid.New().String(),
		Content:   res.Response,
		Role:      models.RoleAssistant,
		CreatedAt: m.now(),
		ModelUsed: res.ModelID,
		ToolsUsed: res.ToolsUsed,
	}
	c.Messages = append(c.Messages, reply)
	c.UpdatedAt = reply.CreatedAt
	if err := m.store.SaveChat(ctx, c); err != nil {
		return nil, fmt.Errorf("save assistant message: %w", err)
	}

	log.Debug().
		Str("chat", chatID).
		Str("model", res.ModelID).
		Int("messages", len(c.Messages)).
		Msg("Message answered")
	return &SendResult{Chat: c, User: userMsg, Assistant: reply, Result: res}, nil
}

// Title derives a chat title from the first user message.
func Title(content string) string {
	content = strings.TrimSpace(content)
	if utf8.RuneCountInString(content) <= models.ChatTitleLength {
		return content
	}
	return string([]rune(content)[:models.ChatTitleLength])
}
