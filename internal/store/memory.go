// In-memory backend, used by default and in tests. Supports file-based
// snapshot persistence so configuration and chats survive restarts.

package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// snapshotFile is the name of the JSON snapshot inside the data directory.
const snapshotFile = "data.json"

// MemoryBackend keeps every key in a map. When a data directory is given,
// writes are flushed to <dir>/data.json by a debounced background loop.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string]json.RawMessage

	snapshotPath string        // empty = no persistence
	saveMu       sync.Mutex    // guards file writes
	saveCh       chan struct{} // debounce channel
	doneCh       chan struct{}
	loopDone     chan struct{}
	closeOnce    sync.Once
	debounce     time.Duration
}

// NewMemoryBackend creates an in-memory backend. An empty dataDir disables
// persistence.
func NewMemoryBackend(dataDir string) *MemoryBackend {
	m := &MemoryBackend{
		data:     make(map[string]json.RawMessage),
		saveCh:   make(chan struct{}, 1),
		doneCh:   make(chan struct{}),
		loopDone: make(chan struct{}),
		debounce: 500 * time.Millisecond,
	}

	if dataDir != "" {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			log.Warn().Err(err).Str("dir", dataDir).Msg("Cannot create data dir, persistence disabled")
		} else {
			m.snapshotPath = filepath.Join(dataDir, snapshotFile)
		}
	}

	if m.snapshotPath != "" {
		m.loadSnapshot()
		go m.saveLoop()
	} else {
		close(m.loopDone)
	}

	log.Info().Str("snapshot", m.snapshotPath).Msg("Memory store configured")
	return m
}

// NewMemoryStore returns a Store backed by a MemoryBackend.
func NewMemoryStore(dataDir string) *KVStore {
	return NewKVStore(NewMemoryBackend(dataDir))
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (m *MemoryBackend) Put(_ context.Context, key string, value []byte) error {
	v := make(json.RawMessage, len(value))
	copy(v, value)

	m.mu.Lock()
	m.data[key] = v
	m.mu.Unlock()

	m.requestSave()
	return nil
}

func (m *MemoryBackend) Ping(context.Context) error { return nil }

// Close stops the save loop and writes a final snapshot.
func (m *MemoryBackend) Close() error {
	m.closeOnce.Do(func() {
		close(m.doneCh)
		<-m.loopDone
		if m.snapshotPath != "" {
			m.saveSnapshot()
		}
	})
	return nil
}

// requestSave signals the background goroutine to persist data.
// Non-blocking: coalesces rapid writes into one disk flush.
func (m *MemoryBackend) requestSave() {
	if m.snapshotPath == "" {
		return
	}
	select {
	case m.saveCh <- struct{}{}:
	default:
	}
}

func (m *MemoryBackend) saveLoop() {
	defer close(m.loopDone)
	for {
		select {
		case <-m.doneCh:
			return
		case <-m.saveCh:
			select {
			case <-m.doneCh:
				return
			case <-time.After(m.debounce):
			}
			m.saveSnapshot()
		}
	}
}

func (m *MemoryBackend) saveSnapshot() {
	m.mu.RLock()
	data, err := json.MarshalIndent(m.data, "", "  ")
	m.mu.RUnlock()

	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal snapshot")
		return
	}

	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	// Write to temp file then rename for atomicity
	tmp := m.snapshotPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		log.Error().Err(err).Str("path", tmp).Msg("Failed to write snapshot tmp")
		return
	}
	if err := os.Rename(tmp, m.snapshotPath); err != nil {
		log.Error().Err(err).Str("path", m.snapshotPath).Msg("Failed to rename snapshot")
		return
	}
	log.Debug().Str("path", m.snapshotPath).Msg("Snapshot saved")
}

func (m *MemoryBackend) loadSnapshot() {
	data, err := os.ReadFile(m.snapshotPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", m.snapshotPath).Msg("Failed to read snapshot")
		}
		return
	}

	var snap map[string]json.RawMessage
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Warn().Err(err).Str("path", m.snapshotPath).Msg("Corrupt snapshot, starting empty")
		return
	}

	m.mu.Lock()
	for k, v := range snap {
		m.data[k] = v
	}
	m.mu.Unlock()

	log.Info().Int("keys", len(snap)).Str("path", m.snapshotPath).Msg("Snapshot loaded")
}
