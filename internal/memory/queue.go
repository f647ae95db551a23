// Package memory detects facts worth remembering in user messages and keeps
// them in the pending-confirmation queue until the user approves them.
package memory

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/orquestra/console/internal/store"
	"github.com/orquestra/console/pkg/models"
	"github.com/rs/zerolog/log"
)

// SourceChat marks facts detected in a chat message.
const SourceChat = "chat"

type detector struct {
	key     string
	label   string
	pattern *regexp.Regexp
}

// Only the first capture group of each pattern becomes the fact value.
var detectors = []detector{
	{
		key:     "api",
		label:   "API principal",
		pattern: regexp.MustCompile(`(?i)(?:minha api (?:é|e)|my api is)\s+([^\s,;!?]+)`),
	},
	{
		key:     "tool",
		label:   "Ferramenta utilizada",
		pattern: regexp.MustCompile(`(?i)(?:eu uso(?: a ferramenta)?|uso a ferramenta|i use)\s+([^\s,;!?]+)`),
	},
	{
		key:     "username",
		label:   "Nome de usuário",
		pattern: regexp.MustCompile(`(?i)(?:meu nome (?:é|e)|my name is)\s+([\p{L}'-]+)`),
	},
	{
		key:     "company",
		label:   "Empresa",
		pattern: regexp.MustCompile(`(?i)(?:trabalho (?:na|no|em)|i work at)\s+([\p{L}\d&'-]+)`),
	},
}

// Detect returns the facts found in message, at most one per detector.
func Detect(message string) []models.MemoryFact {
	facts := []models.MemoryFact{}
	for _, d := range detectors {
		m := d.pattern.FindStringSubmatch(message)
		if m == nil {
			continue
		}
		value := strings.TrimRight(strings.TrimSpace(m[1]), ".")
		if value == "" {
			continue
		}
		facts = append(facts, models.MemoryFact{
			Key:    d.key,
			Value:  value,
			Label:  d.label,
			Source: SourceChat,
		})
	}
	return facts
}

// Queue manages pending confirmations and committed per-user memory inside
// the orchestrator state.
type Queue struct {
	store store.OrchestratorStore
	now   func() time.Time
}

// NewQueue creates a queue backed by s.
func NewQueue(s store.OrchestratorStore) *Queue {
	return &Queue{store: s, now: func() time.Time { return time.Now().UTC() }}
}

// Enqueue records facts for userID. With prompt enabled they become pending
// confirmations; otherwise they are committed straight away. It returns the
// confirmations created, if any.
func Enqueue(state *models.OrchestratorState, userID string, facts []models.MemoryFact, prompt bool, now time.Time) []models.PendingConfirmation {
	created := []models.PendingConfirmation{}
	for _, f := range facts {
		if !prompt {
			commit(state, userID, f, now)
			continue
		}
		p := models.PendingConfirmation{
			ID:        uuid.New().String(),
			UserID:    userID,
			Entry:     f,
			Timestamp: now,
		}
		state.Memory.PendingConfirmations = append(state.Memory.PendingConfirmations, p)
		created = append(created, p)
	}
	return created
}

func commit(state *models.OrchestratorState, userID string, f models.MemoryFact, now time.Time) {
	fact := models.CommittedFact{MemoryFact: f, Timestamp: now}
	u := state.User(userID, now)
	u.Memory = append(u.Memory, fact)
	state.Memory.Entries = append(state.Memory.Entries, fact)
}

// Capture detects facts in message and records them for userID according
// to cfg. Nothing happens when memory is disabled.
func (q *Queue) Capture(ctx context.Context, userID, message string, cfg *models.MemoryConfig) ([]models.PendingConfirmation, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	facts := Detect(message)
	if len(facts) == 0 {
		return nil, nil
	}

	var created []models.PendingConfirmation
	err := q.store.UpdateOrchestratorState(ctx, func(st *models.OrchestratorState) error {
		created = Enqueue(st, userID, facts, cfg.UserPromptEnabled, q.now())
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user", userID).
		Int("facts", len(facts)).
		Int("pending", len(created)).
		Msg("Memory facts captured")
	return created, nil
}

// Pending lists pending confirmations, optionally filtered by userID.
func (q *Queue) Pending(ctx context.Context, userID string) ([]models.PendingConfirmation, error) {
	st, err := q.store.GetOrchestratorState(ctx)
	if err != nil {
		return nil, err
	}
	out := []models.PendingConfirmation{}
	for _, p := range st.Memory.PendingConfirmations {
		if userID == "" || p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

// Process approves or rejects the confirmation with the given id and removes
// it from the queue. Approved facts are committed with a fresh timestamp.
func (q *Queue) Process(ctx context.Context, id string, approved bool) (*models.PendingConfirmation, error) {
	var processed *models.PendingConfirmation
	err := q.store.UpdateOrchestratorState(ctx, func(st *models.OrchestratorState) error {
		pending := st.Memory.PendingConfirmations
		for i := range pending {
			if pending[i].ID != id {
				continue
			}
			p := pending[i]
			if approved {
				commit(st, p.UserID, p.Entry, q.now())
			}
			st.Memory.PendingConfirmations = append(pending[:i:i], pending[i+1:]...)
			processed = &p
			return nil
		}
		return &store.ErrNotFound{Entity: "confirmation", Key: id}
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("confirmation", id).
		Str("user", processed.UserID).
		Bool("approved", approved).
		Msg("Memory confirmation processed")
	return processed, nil
}

// UserMemory returns the record of userID, or an empty one.
func (q *Queue) UserMemory(ctx context.Context, userID string) (*models.UserRecord, error) {
	st, err := q.store.GetOrchestratorState(ctx)
	if err != nil {
		return nil, err
	}
	if u, ok := st.Users[userID]; ok {
		return u, nil
	}
	return &models.UserRecord{Memory: []models.CommittedFact{}, Preferences: map[string]string{}}, nil
}
