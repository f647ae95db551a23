package store_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/orquestra/console/internal/store"
	"github.com/orquestra/console/pkg/models"
)

// newTestStore creates a fresh in-memory store with no persistence.
func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s := store.NewMemoryStore("")
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleAgent(id, name string) *models.Agent {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &models.Agent{
		ID:          id,
		Name:        name,
		Description: "agente de testes",
		ModelID:     "deepseek-r1",
		ConfigJSON:  `{"systemPrompt":"seja breve"}`,
		ToolIDs:     []string{"web-search", "ghost-tool"},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ─── Agents ──────────────────────────────────────────────────

func TestSaveAndGetAgent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	want := sampleAgent("a-1", "pesquisador")
	if err := s.SaveAgent(ctx, want); err != nil {
		t.Fatalf("SaveAgent() error = %v", err)
	}

	got, err := s.GetAgent(ctx, "a-1")
	if err != nil {
		t.Fatalf("GetAgent() error = %v", err)
	}
	if !got.UpdatedAt.Equal(want.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, want.UpdatedAt)
	}
	got.CreatedAt, got.UpdatedAt = want.CreatedAt, want.UpdatedAt
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GetAgent() = %+v, want %+v", got, want)
	}
}

func TestSaveAgent_LastWriteWins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.SaveAgent(ctx, sampleAgent("a-1", "primeiro"))
	s.SaveAgent(ctx, sampleAgent("a-1", "segundo"))

	agents, _ := s.ListAgents(ctx)
	if len(agents) != 1 {
		t.Fatalf("ListAgents() returned %d, want 1", len(agents))
	}
	if agents[0].Name != "segundo" {
		t.Errorf("Name = %q, want %q", agents[0].Name, "segundo")
	}
}

func TestDeleteAgent_LeavesOthers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a-1", "a-2", "a-3"} {
		s.SaveAgent(ctx, sampleAgent(id, id))
	}
	if err := s.DeleteAgent(ctx, "a-2"); err != nil {
		t.Fatalf("DeleteAgent() error = %v", err)
	}

	_, err := s.GetAgent(ctx, "a-2")
	var nf *store.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("GetAgent() after delete error = %v, want ErrNotFound", err)
	}
	for _, id := range []string{"a-1", "a-3"} {
		if _, err := s.GetAgent(ctx, id); err != nil {
			t.Errorf("GetAgent(%q) error = %v", id, err)
		}
	}
	if err := s.DeleteAgent(ctx, "a-2"); !errors.As(err, &nf) {
		t.Errorf("second DeleteAgent() error = %v, want ErrNotFound", err)
	}
}

func TestAgentRoundTripAcrossReload(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	want := sampleAgent("a-1", "persistente")

	s1 := store.NewMemoryStore(dir)
	if err := s1.SaveAgent(ctx, want); err != nil {
		t.Fatalf("SaveAgent() error = %v", err)
	}
	s1.Close()

	s2 := store.NewMemoryStore(dir)
	defer s2.Close()

	got, err := s2.GetAgent(ctx, "a-1")
	if err != nil {
		t.Fatalf("GetAgent() after reload error = %v", err)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
	got.CreatedAt, got.UpdatedAt = want.CreatedAt, want.UpdatedAt
	if !reflect.DeepEqual(got, want) {
		t.Errorf("reloaded agent = %+v, want %+v", got, want)
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s1, err := store.NewSQLiteStore(dir)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	s1.SaveAgent(ctx, sampleAgent("a-1", "um"))
	s1.SaveAgent(ctx, sampleAgent("a-2", "dois"))
	s1.DeleteAgent(ctx, "a-1")
	s1.Close()

	s2, err := store.NewSQLiteStore(dir)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s2.Close()

	agents, err := s2.ListAgents(ctx)
	if err != nil {
		t.Fatalf("ListAgents() error = %v", err)
	}
	if len(agents) != 1 || agents[0].ID != "a-2" {
		t.Errorf("ListAgents() = %+v, want only a-2", agents)
	}
}

// ─── Models ──────────────────────────────────────────────────

func TestModelCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := &models.AIModel{ID: "m-1", Name: "MiniMax", Provider: "MiniMax", ProviderID: "minimax", Capabilities: []string{"chat"}}
	if err := s.SaveModel(ctx, m); err != nil {
		t.Fatalf("SaveModel() error = %v", err)
	}
	m.Description = "atualizado"
	s.SaveModel(ctx, m)

	got, err := s.GetModel(ctx, "m-1")
	if err != nil {
		t.Fatalf("GetModel() error = %v", err)
	}
	if got.Description != "atualizado" {
		t.Errorf("Description = %q, want %q", got.Description, "atualizado")
	}
	if err := s.DeleteModel(ctx, "m-1"); err != nil {
		t.Fatalf("DeleteModel() error = %v", err)
	}
	list, _ := s.ListModels(ctx)
	if len(list) != 0 {
		t.Errorf("ListModels() after delete = %d entries, want 0", len(list))
	}
}

// ─── MCP ─────────────────────────────────────────────────────

func TestMCPConfig_LegacyKeysRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s1 := store.NewMemoryStore(dir)
	cfg := &models.MCPServerConfig{ServerURL: "https://mcp.example.com/", APIKey: "k-1"}
	if err := s1.SaveMCPConfig(ctx, cfg); err != nil {
		t.Fatalf("SaveMCPConfig() error = %v", err)
	}
	if err := s1.SaveTool(ctx, &models.MCPTool{ID: "weather-api", Name: "Clima", Endpoint: "/weather"}); err != nil {
		t.Fatalf("SaveTool() error = %v", err)
	}
	s1.Close()

	s2 := store.NewMemoryStore(dir)
	defer s2.Close()

	got, err := s2.GetMCPConfig(ctx)
	if err != nil {
		t.Fatalf("GetMCPConfig() error = %v", err)
	}
	if got.ServerURL != cfg.ServerURL || got.APIKey != "k-1" {
		t.Errorf("GetMCPConfig() = %+v", got)
	}
	if len(got.Tools) != 1 || got.Tools[0].ID != "weather-api" {
		t.Errorf("Tools = %+v, want weather-api", got.Tools)
	}
}

func TestDeleteTool_NotFound(t *testing.T) {
	s := newTestStore(t)
	var nf *store.ErrNotFound
	if err := s.DeleteTool(context.Background(), "nope"); !errors.As(err, &nf) {
		t.Errorf("DeleteTool() error = %v, want ErrNotFound", err)
	}
}

// ─── Orchestrator ────────────────────────────────────────────

func TestOrchestratorConfig_FixedIdentity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cfg, err := s.GetOrchestratorConfig(ctx)
	if err != nil {
		t.Fatalf("GetOrchestratorConfig() error = %v", err)
	}
	if cfg.SelectedModel != models.DefaultSelectedModel {
		t.Errorf("default SelectedModel = %q", cfg.SelectedModel)
	}

	cfg.Name = "renomeado"
	cfg.Description = "outra descrição"
	cfg.Memory = &models.MemoryConfig{Enabled: true}
	if err := s.SaveOrchestratorConfig(ctx, cfg); err != nil {
		t.Fatalf("SaveOrchestratorConfig() error = %v", err)
	}

	got, _ := s.GetOrchestratorConfig(ctx)
	if got.Name != models.OrchestratorName || got.Description != models.OrchestratorDescription {
		t.Errorf("identity = %q / %q, want fixed values", got.Name, got.Description)
	}
	if got.Memory == nil || !got.Memory.Enabled {
		t.Error("Memory section was not persisted")
	}
}

func TestUpdateOrchestratorState_ErrorSkipsWrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.UpdateOrchestratorState(ctx, func(st *models.OrchestratorState) error {
		st.Conversations = append(st.Conversations, models.ConversationEntry{Role: "user", Content: "oi"})
		return nil
	})
	boom := errors.New("boom")
	err := s.UpdateOrchestratorState(ctx, func(st *models.OrchestratorState) error {
		st.Conversations = append(st.Conversations, models.ConversationEntry{Role: "user", Content: "descartado"})
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("UpdateOrchestratorState() error = %v, want boom", err)
	}

	st, _ := s.GetOrchestratorState(ctx)
	if len(st.Conversations) != 1 {
		t.Errorf("Conversations = %d, want 1", len(st.Conversations))
	}
}

// ─── Chats ───────────────────────────────────────────────────

func TestChats_NewestFirstAndActiveCleared(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.SaveChat(ctx, &models.Chat{ID: "c-1", Title: "primeira"})
	s.SaveChat(ctx, &models.Chat{ID: "c-2", Title: "segunda"})
	s.SetActiveChatID(ctx, "c-2")

	chats, _ := s.ListChats(ctx)
	if len(chats) != 2 || chats[0].ID != "c-2" {
		t.Fatalf("ListChats() = %+v, want c-2 first", chats)
	}

	if err := s.DeleteChat(ctx, "c-2"); err != nil {
		t.Fatalf("DeleteChat() error = %v", err)
	}
	active, _ := s.GetActiveChatID(ctx)
	if active != "" {
		t.Errorf("active chat = %q after delete, want empty", active)
	}
}
