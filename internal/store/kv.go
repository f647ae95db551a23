package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/orquestra/console/pkg/models"
	"github.com/rs/zerolog/log"
)

// Backend is a raw key/value persistence layer. Values are JSON documents.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Ping(ctx context.Context) error
	Close() error
}

// KVStore implements Store on top of a Backend, one JSON document per
// collection. Values are decoded on every read, so callers always receive
// private copies.
type KVStore struct {
	mu      sync.Mutex
	backend Backend
}

// NewKVStore wraps a backend.
func NewKVStore(b Backend) *KVStore {
	return &KVStore{backend: b}
}

func (s *KVStore) Ping(ctx context.Context) error { return s.backend.Ping(ctx) }

func (s *KVStore) Close() error { return s.backend.Close() }

func (s *KVStore) load(ctx context.Context, key string, v any) (bool, error) {
	data, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok || len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *KVStore) save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.backend.Put(ctx, key, data); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// ── Models ──────────────────────────────────────────────────

func (s *KVStore) listModels(ctx context.Context) ([]models.AIModel, error) {
	list := []models.AIModel{}
	if _, err := s.load(ctx, KeyModels, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *KVStore) ListModels(ctx context.Context) ([]models.AIModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listModels(ctx)
}

func (s *KVStore) GetModel(ctx context.Context, id string) (*models.AIModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.listModels(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].ID == id {
			return &list[i], nil
		}
	}
	return nil, &ErrNotFound{Entity: "model", Key: id}
}

func (s *KVStore) SaveModel(ctx context.Context, model *models.AIModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.listModels(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i := range list {
		if list[i].ID == model.ID {
			list[i] = *model
			replaced = true
			break
		}
	}
	if !replaced {
		list = append(list, *model)
	}
	return s.save(ctx, KeyModels, list)
}

func (s *KVStore) DeleteModel(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.listModels(ctx)
	if err != nil {
		return err
	}
	kept := list[:0]
	for _, m := range list {
		if m.ID != id {
			kept = append(kept, m)
		}
	}
	if len(kept) == len(list) {
		return &ErrNotFound{Entity: "model", Key: id}
	}
	return s.save(ctx, KeyModels, kept)
}

// ── MCP ─────────────────────────────────────────────────────

func (s *KVStore) mcpConfig(ctx context.Context) (*models.MCPServerConfig, error) {
	cfg := &models.MCPServerConfig{Tools: []models.MCPTool{}}
	found, err := s.load(ctx, KeyMCPConfig, cfg)
	if err != nil {
		return nil, err
	}
	if found {
		if cfg.Tools == nil {
			cfg.Tools = []models.MCPTool{}
		}
		return cfg, nil
	}

	// Older installs only carried the two single-value keys.
	var url, apiKey string
	if ok, err := s.load(ctx, KeyLegacyMCPServerURL, &url); err == nil && ok && url != "" {
		cfg.ServerURL = url
		if ok, err := s.load(ctx, KeyLegacyMCPAPIKey, &apiKey); err == nil && ok {
			cfg.APIKey = apiKey
		}
		log.Info().Str("server_url", cfg.ServerURL).Msg("Migrated legacy MCP server settings")
	}
	return cfg, nil
}

func (s *KVStore) saveMCPConfig(ctx context.Context, cfg *models.MCPServerConfig) error {
	if cfg.Tools == nil {
		cfg.Tools = []models.MCPTool{}
	}
	if err := s.save(ctx, KeyMCPConfig, cfg); err != nil {
		return err
	}
	if err := s.save(ctx, KeyLegacyMCPServerURL, cfg.ServerURL); err != nil {
		return err
	}
	return s.save(ctx, KeyLegacyMCPAPIKey, cfg.APIKey)
}

func (s *KVStore) GetMCPConfig(ctx context.Context) (*models.MCPServerConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mcpConfig(ctx)
}

func (s *KVStore) SaveMCPConfig(ctx context.Context, cfg *models.MCPServerConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveMCPConfig(ctx, cfg)
}

func (s *KVStore) GetTool(ctx context.Context, id string) (*models.MCPTool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.mcpConfig(ctx)
	if err != nil {
		return nil, err
	}
	if t := cfg.FindTool(id); t != nil {
		return t, nil
	}
	return nil, &ErrNotFound{Entity: "tool", Key: id}
}

func (s *KVStore) SaveTool(ctx context.Context, tool *models.MCPTool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.mcpConfig(ctx)
	if err != nil {
		return err
	}
	if t := cfg.FindTool(tool.ID); t != nil {
		*t = *tool
	} else {
		cfg.Tools = append(cfg.Tools, *tool)
	}
	return s.saveMCPConfig(ctx, cfg)
}

func (s *KVStore) DeleteTool(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.mcpConfig(ctx)
	if err != nil {
		return err
	}
	kept := cfg.Tools[:0]
	for _, t := range cfg.Tools {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(cfg.Tools) {
		return &ErrNotFound{Entity: "tool", Key: id}
	}
	cfg.Tools = kept
	return s.saveMCPConfig(ctx, cfg)
}

// ── Agents ──────────────────────────────────────────────────

func (s *KVStore) listAgents(ctx context.Context) ([]models.Agent, error) {
	list := []models.Agent{}
	if _, err := s.load(ctx, KeyAgents, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *KVStore) ListAgents(ctx context.Context) ([]models.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listAgents(ctx)
}

func (s *KVStore) GetAgent(ctx context.Context, id string) (*models.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.listAgents(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].ID == id {
			return &list[i], nil
		}
	}
	return nil, &ErrNotFound{Entity: "agent", Key: id}
}

func (s *KVStore) SaveAgent(ctx context.Context, agent *models.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.listAgents(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i := range list {
		if list[i].ID == agent.ID {
			list[i] = *agent
			replaced = true
			break
		}
	}
	if !replaced {
		list = append(list, *agent)
	}
	return s.save(ctx, KeyAgents, list)
}

func (s *KVStore) DeleteAgent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.listAgents(ctx)
	if err != nil {
		return err
	}
	kept := list[:0]
	for _, a := range list {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	if len(kept) == len(list) {
		return &ErrNotFound{Entity: "agent", Key: id}
	}
	return s.save(ctx, KeyAgents, kept)
}

// ── Orchestrator ────────────────────────────────────────────

func (s *KVStore) GetOrchestratorConfig(ctx context.Context) (*models.OrchestratorConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := models.DefaultOrchestratorConfig()
	if _, err := s.load(ctx, KeyOrchestratorConfig, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *KVStore) SaveOrchestratorConfig(ctx context.Context, cfg *models.OrchestratorConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg.Name = models.OrchestratorName
	cfg.Description = models.OrchestratorDescription
	if cfg.SelectedModel == "" {
		cfg.SelectedModel = models.DefaultSelectedModel
	}
	return s.save(ctx, KeyOrchestratorConfig, cfg)
}

func (s *KVStore) orchestratorState(ctx context.Context) (*models.OrchestratorState, error) {
	state := models.NewOrchestratorState()
	if _, err := s.load(ctx, KeyOrchestratorState, state); err != nil {
		return nil, err
	}
	if state.Users == nil {
		state.Users = map[string]*models.UserRecord{}
	}
	return state, nil
}

func (s *KVStore) GetOrchestratorState(ctx context.Context) (*models.OrchestratorState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orchestratorState(ctx)
}

func (s *KVStore) UpdateOrchestratorState(ctx context.Context, fn func(*models.OrchestratorState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.orchestratorState(ctx)
	if err != nil {
		return err
	}
	if err := fn(state); err != nil {
		return err
	}
	return s.save(ctx, KeyOrchestratorState, state)
}

// ── Chats ───────────────────────────────────────────────────

func (s *KVStore) listChats(ctx context.Context) ([]models.Chat, error) {
	list := []models.Chat{}
	if _, err := s.load(ctx, KeyChats, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// ListChats returns chats newest first.
func (s *KVStore) ListChats(ctx context.Context) ([]models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listChats(ctx)
}

func (s *KVStore) GetChat(ctx context.Context, id string) (*models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.listChats(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].ID == id {
			return &list[i], nil
		}
	}
	return nil, &ErrNotFound{Entity: "chat", Key: id}
}

func (s *KVStore) SaveChat(ctx context.Context, chat *models.Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.listChats(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i := range list {
		if list[i].ID == chat.ID {
			list[i] = *chat
			replaced = true
			break
		}
	}
	if !replaced {
		list = append([]models.Chat{*chat}, list...)
	}
	return s.save(ctx, KeyChats, list)
}

func (s *KVStore) DeleteChat(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.listChats(ctx)
	if err != nil {
		return err
	}
	kept := list[:0]
	for _, c := range list {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(list) {
		return &ErrNotFound{Entity: "chat", Key: id}
	}
	if err := s.save(ctx, KeyChats, kept); err != nil {
		return err
	}

	var active string
	if _, err := s.load(ctx, KeyActiveChat, &active); err == nil && active == id {
		return s.save(ctx, KeyActiveChat, "")
	}
	return nil
}

func (s *KVStore) GetActiveChatID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id string
	if _, err := s.load(ctx, KeyActiveChat, &id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *KVStore) SetActiveChatID(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, KeyActiveChat, id)
}
