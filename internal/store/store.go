// Package store provides the persistent configuration store for the
// orchestrator control plane. Every collection (models, MCP config, agents,
// orchestrator config/state, chats) lives under a single key and every write
// replaces the whole collection: last write wins, no versioning.
package store

import (
	"context"

	"github.com/orquestra/console/pkg/models"
)

// Keys under which collections are persisted. The two legacy keys mirror the
// MCP server URL and API key for older console builds.
const (
	KeyModels             = "ai_models"
	KeyMCPConfig          = "mcp_config"
	KeyAgents             = "agents"
	KeyOrchestratorConfig = "orchestrator_config"
	KeyOrchestratorState  = "orchestrator_state"
	KeyChats              = "chats"
	KeyActiveChat         = "active_chat"

	KeyLegacyMCPServerURL = "mcp_server_url"
	KeyLegacyMCPAPIKey    = "mcp_api_key"
)

// Store is the storage interface used by every service and handler.
type Store interface {
	ModelStore
	MCPStore
	AgentStore
	OrchestratorStore
	ChatStore

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close flushes pending writes and releases resources.
	Close() error
}

// ── Model Store ─────────────────────────────────────────────

type ModelStore interface {
	ListModels(ctx context.Context) ([]models.AIModel, error)
	GetModel(ctx context.Context, id string) (*models.AIModel, error)
	SaveModel(ctx context.Context, model *models.AIModel) error
	DeleteModel(ctx context.Context, id string) error
}

// ── MCP Store ───────────────────────────────────────────────

type MCPStore interface {
	GetMCPConfig(ctx context.Context) (*models.MCPServerConfig, error)
	// SaveMCPConfig replaces the server configuration and keeps the legacy
	// URL/API key keys in sync.
	SaveMCPConfig(ctx context.Context, cfg *models.MCPServerConfig) error
	GetTool(ctx context.Context, id string) (*models.MCPTool, error)
	SaveTool(ctx context.Context, tool *models.MCPTool) error
	DeleteTool(ctx context.Context, id string) error
}

// ── Agent Store ─────────────────────────────────────────────

type AgentStore interface {
	ListAgents(ctx context.Context) ([]models.Agent, error)
	GetAgent(ctx context.Context, id string) (*models.Agent, error)
	SaveAgent(ctx context.Context, agent *models.Agent) error
	DeleteAgent(ctx context.Context, id string) error
}

// ── Orchestrator Store ──────────────────────────────────────

type OrchestratorStore interface {
	GetOrchestratorConfig(ctx context.Context) (*models.OrchestratorConfig, error)
	// SaveOrchestratorConfig persists cfg with the fixed name and description.
	SaveOrchestratorConfig(ctx context.Context, cfg *models.OrchestratorConfig) error

	GetOrchestratorState(ctx context.Context) (*models.OrchestratorState, error)
	// UpdateOrchestratorState loads the state, applies fn and writes it back.
	// Nothing is written when fn returns an error.
	UpdateOrchestratorState(ctx context.Context, fn func(*models.OrchestratorState) error) error
}

// ── Chat Store ──────────────────────────────────────────────

type ChatStore interface {
	ListChats(ctx context.Context) ([]models.Chat, error)
	GetChat(ctx context.Context, id string) (*models.Chat, error)
	SaveChat(ctx context.Context, chat *models.Chat) error
	DeleteChat(ctx context.Context, id string) error

	GetActiveChatID(ctx context.Context) (string, error)
	SetActiveChatID(ctx context.Context, id string) error
}

// ── Errors ──────────────────────────────────────────────────

// ErrNotFound is returned when a requested entity does not exist.
type ErrNotFound struct {
	Entity string
	Key    string
}

func (e *ErrNotFound) Error() string {
	return e.Entity + " not found: " + e.Key
}
