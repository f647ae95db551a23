package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/orquestra/console/internal/memory"
	"github.com/orquestra/console/internal/store"
	"github.com/orquestra/console/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) (*memory.Queue, *store.KVStore) {
	t.Helper()
	s := store.NewMemoryStore("")
	t.Cleanup(func() { s.Close() })
	return memory.NewQueue(s), s
}

var promptCfg = &models.MemoryConfig{Enabled: true, UserPromptEnabled: true}

func TestDetect(t *testing.T) {
	cases := []struct {
		msg, key, value, label string
	}{
		{"meu nome é João", "username", "João", "Nome de usuário"},
		{"My name is Alice, hi", "username", "Alice", "Nome de usuário"},
		{"minha api é api.exemplo.com", "api", "api.exemplo.com", "API principal"},
		{"eu uso a ferramenta Postman.", "tool", "Postman", "Ferramenta utilizada"},
		{"I use Grafana daily", "tool", "Grafana", "Ferramenta utilizada"},
		{"trabalho na Petrobras", "company", "Petrobras", "Empresa"},
		{"I work at Acme", "company", "Acme", "Empresa"},
	}
	for _, tc := range cases {
		t.Run(tc.msg, func(t *testing.T) {
			facts := memory.Detect(tc.msg)
			require.Len(t, facts, 1)
			assert.Equal(t, tc.key, facts[0].Key)
			assert.Equal(t, tc.value, facts[0].Value)
			assert.Equal(t, tc.label, facts[0].Label)
			assert.Equal(t, memory.SourceChat, facts[0].Source)
		})
	}

	assert.Empty(t, memory.Detect("Quais os melhores planos de saúde?"))
	assert.Len(t, memory.Detect("meu nome é Ana e trabalho na Globo"), 2)
}

func TestCapture_PendingThenApprove(t *testing.T) {
	q, s := newTestQueue(t)
	ctx := context.Background()

	created, err := q.Capture(ctx, "u1", "meu nome é João", promptCfg)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.NotEmpty(t, created[0].ID)

	pending, err := q.Pending(ctx, "")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Nome de usuário", pending[0].Entry.Label)
	assert.Equal(t, "João", pending[0].Entry.Value)

	_, err = q.Process(ctx, pending[0].ID, true)
	require.NoError(t, err)

	after, err := q.Pending(ctx, "")
	require.NoError(t, err)
	assert.Len(t, after, len(pending)-1)

	u, err := q.UserMemory(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, u.Memory, 1)
	assert.Equal(t, "João", u.Memory[0].Value)
	assert.False(t, u.Memory[0].Timestamp.IsZero())

	st, err := s.GetOrchestratorState(ctx)
	require.NoError(t, err)
	assert.Len(t, st.Memory.Entries, 1)
}

func TestProcess_StableIDsSurviveRemoval(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	_, err := q.Capture(ctx, "u1", "meu nome é Ana", promptCfg)
	require.NoError(t, err)
	_, err = q.Capture(ctx, "u1", "trabalho na Globo", promptCfg)
	require.NoError(t, err)
	_, err = q.Capture(ctx, "u2", "I use Vim", promptCfg)
	require.NoError(t, err)

	pending, err := q.Pending(ctx, "")
	require.NoError(t, err)
	require.Len(t, pending, 3)

	// reject the first, then approve the last by its id
	_, err = q.Process(ctx, pending[0].ID, false)
	require.NoError(t, err)
	got, err := q.Process(ctx, pending[2].ID, true)
	require.NoError(t, err)
	assert.Equal(t, "Vim", got.Entry.Value)

	left, err := q.Pending(ctx, "")
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, pending[1].ID, left[0].ID)

	u1, err := q.UserMemory(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, u1.Memory)
	u2, err := q.UserMemory(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, u2.Memory, 1)

	byUser, err := q.Pending(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, byUser)
}

func TestProcess_UnknownID(t *testing.T) {
	q, _ := newTestQueue(t)
	_, err := q.Process(context.Background(), "nope", true)
	var nf *store.ErrNotFound
	assert.True(t, errors.As(err, &nf))
}

func TestCapture_DirectCommitWithoutPrompt(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	created, err := q.Capture(ctx, "u1", "my name is Bob", &models.MemoryConfig{Enabled: true})
	require.NoError(t, err)
	assert.Empty(t, created)

	pending, err := q.Pending(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, pending)

	u, err := q.UserMemory(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, u.Memory, 1)
	assert.Equal(t, "Bob", u.Memory[0].Value)
}

func TestCapture_DisabledDoesNothing(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	_, err := q.Capture(ctx, "u1", "meu nome é João", &models.MemoryConfig{Enabled: false, UserPromptEnabled: true})
	require.NoError(t, err)
	_, err = q.Capture(ctx, "u1", "meu nome é João", nil)
	require.NoError(t, err)

	pending, err := q.Pending(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestEnqueue_Pure(t *testing.T) {
	st := models.NewOrchestratorState()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	facts := memory.Detect("meu nome é João")

	created := memory.Enqueue(st, "u1", facts, true, now)
	require.Len(t, created, 1)
	assert.Equal(t, now, created[0].Timestamp)
	assert.Len(t, st.Memory.PendingConfirmations, 1)
	assert.Empty(t, st.Users)
}
