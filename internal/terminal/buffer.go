// Package terminal keeps the simulated orchestration console of each chat.
package terminal

import (
	"sync"
	"time"

	"github.com/orquestra/console/pkg/models"
)

// DefaultMaxLines is the number of lines retained per chat.
const DefaultMaxLines = 500

// Buffer is a thread-safe ring buffer of terminal lines that supports
// real-time streaming to subscribers.
type Buffer struct {
	mu          sync.RWMutex
	lines       []models.TerminalLine
	maxLines    int
	subscribers map[chan models.TerminalLine]struct{}
}

// NewBuffer creates a buffer that retains up to maxLines lines.
func NewBuffer(maxLines int) *Buffer {
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}
	return &Buffer{
		lines:       make([]models.TerminalLine, 0, maxLines),
		maxLines:    maxLines,
		subscribers: make(map[chan models.TerminalLine]struct{}),
	}
}

// Write appends a line and broadcasts it to all subscribers.
func (b *Buffer) Write(kind models.TerminalKind, text string) models.TerminalLine {
	line := models.TerminalLine{
		Timestamp: time.Now().UTC(),
		Kind:      kind,
		Text:      text,
	}

	b.mu.Lock()
	if len(b.lines) >= b.maxLines {
		b.lines = b.lines[1:]
	}
	b.lines = append(b.lines, line)

	for ch := range b.subscribers {
		select {
		case ch <- line:
		default:
			// slow subscriber misses this line
		}
	}
	b.mu.Unlock()
	return line
}

// Recent returns the last n lines; n <= 0 returns all of them.
func (b *Buffer) Recent(n int) []models.TerminalLine {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := len(b.lines)
	if n <= 0 || n > total {
		n = total
	}
	out := make([]models.TerminalLine, n)
	copy(out, b.lines[total-n:])
	return out
}

// Clear drops all retained lines. Subscribers stay attached.
func (b *Buffer) Clear() {
	b.mu.Lock()
	b.lines = b.lines[:0]
	b.mu.Unlock()
}

// Subscribe returns a channel receiving new lines as they are written.
// Call Unsubscribe when done.
func (b *Buffer) Subscribe() chan models.TerminalLine {
	ch := make(chan models.TerminalLine, 64)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// SubscribeWithHistory returns the retained lines and a subscription taken
// under the same lock, so no line appears in both or in neither.
func (b *Buffer) SubscribeWithHistory() ([]models.TerminalLine, chan models.TerminalLine) {
	ch := make(chan models.TerminalLine, 64)
	b.mu.Lock()
	defer b.mu.Unlock()
	history := make([]models.TerminalLine, len(b.lines))
	copy(history, b.lines)
	b.subscribers[ch] = struct{}{}
	return history, ch
}

// Unsubscribe removes a subscriber channel and closes it.
func (b *Buffer) Unsubscribe(ch chan models.TerminalLine) {
	b.mu.Lock()
	if _, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Hub holds one Buffer per chat.
type Hub struct {
	mu       sync.Mutex
	buffers  map[string]*Buffer
	maxLines int
}

// NewHub creates a hub whose buffers retain maxLines lines each.
func NewHub(maxLines int) *Hub {
	return &Hub{buffers: make(map[string]*Buffer), maxLines: maxLines}
}

// For returns the buffer of chatID, creating it on first use.
func (h *Hub) For(chatID string) *Buffer {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.buffers[chatID]
	if !ok {
		b = NewBuffer(h.maxLines)
		h.buffers[chatID] = b
	}
	return b
}

// Remove drops the buffer of chatID and disconnects its subscribers.
func (h *Hub) Remove(chatID string) {
	h.mu.Lock()
	b, ok := h.buffers[chatID]
	delete(h.buffers, chatID)
	h.mu.Unlock()
	if !ok {
		return
	}

	b.mu.Lock()
	for ch := range b.subscribers {
		delete(b.subscribers, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Emitter writes lines for a single run. A nil *Buffer discards them.
type Emitter interface {
	Emit(kind models.TerminalKind, text string)
}

// Emit implements Emitter.
func (b *Buffer) Emit(kind models.TerminalKind, text string) {
	if b == nil {
		return
	}
	b.Write(kind, text)
}

// Discard is an Emitter that drops every line.
var Discard Emitter = discard{}

type discard struct{}

func (discard) Emit(models.TerminalKind, string) {}
