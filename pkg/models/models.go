// Package models holds the data types shared by the orchestrator console
// control plane: model and tool registries, agents, orchestrator
// configuration/state, and chats.
package models

import (
	"time"
)

// ── AI Model ─────────────────────────────────────────────────

// AIModel is a model provider entry configured from the admin console.
type AIModel struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Provider     string   `json:"provider"`
	ProviderID   string   `json:"providerId"`
	Description  string   `json:"description"`
	Capabilities []string `json:"capabilities"`
	APIKey       string   `json:"apiKey,omitempty"`
}

// ── MCP Tools ────────────────────────────────────────────────

// HTTP methods accepted for MCP tools.
const (
	MethodGet    = "GET"
	MethodPost   = "POST"
	MethodPut    = "PUT"
	MethodDelete = "DELETE"
	MethodPatch  = "PATCH"
)

// MCPTool is an HTTP endpoint invoked as a tool during response generation.
type MCPTool struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Endpoint    string `json:"endpoint"`
	Method      string `json:"method"`

	// Parameters is raw JSON text holding default parameters. It is only
	// checked for well-formedness where it is consumed.
	Parameters string `json:"parameters,omitempty"`
	AuthKey    string `json:"authKey,omitempty"`
}

// EffectiveMethod returns the tool method, defaulting to GET.
func (t *MCPTool) EffectiveMethod() string {
	switch t.Method {
	case MethodGet, MethodPost, MethodPut, MethodDelete, MethodPatch:
		return t.Method
	default:
		return MethodGet
	}
}

// ValidMethod reports whether m is empty or one of the supported methods.
func ValidMethod(m string) bool {
	switch m {
	case "", MethodGet, MethodPost, MethodPut, MethodDelete, MethodPatch:
		return true
	}
	return false
}

// MCPServerConfig is the single MCP server configuration of an installation.
type MCPServerConfig struct {
	ServerURL string    `json:"serverUrl"`
	APIKey    string    `json:"apiKey,omitempty"`
	Tools     []MCPTool `json:"tools"`
}

// FindTool returns the tool with the given id, or nil.
func (c *MCPServerConfig) FindTool(id string) *MCPTool {
	for i := range c.Tools {
		if c.Tools[i].ID == id {
			return &c.Tools[i]
		}
	}
	return nil
}

// ── Agent ────────────────────────────────────────────────────

// Agent is a named bundle of model, tool list and free-form JSON config.
// ToolIDs may reference tools that no longer exist; those are skipped.
type Agent struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ModelID     string    `json:"modelId"`
	ConfigJSON  string    `json:"configJson"`
	ToolIDs     []string  `json:"toolIds"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ── Orchestrator Config ──────────────────────────────────────

// Fixed identity of the orchestrator. Overwritten on every config save.
const (
	OrchestratorName        = "Orquestrador de IA"
	OrchestratorDescription = "Orquestrador central que coordena modelos, ferramentas e agentes"
)

// DefaultSelectedModel is the selection of a fresh install: "auto" picks the
// model from the message content.
const DefaultSelectedModel = "auto"

type MemoryConfig struct {
	Enabled           bool   `json:"enabled"`
	Type              string `json:"type,omitempty"`
	Capacity          int    `json:"capacity,omitempty"`
	UserPromptEnabled bool   `json:"userPromptEnabled"`
}

type ReasoningConfig struct {
	Enabled      bool   `json:"enabled"`
	Depth        int    `json:"depth,omitempty"`
	Strategy     string `json:"strategy,omitempty"`
	DynamicSteps bool   `json:"dynamicSteps,omitempty"`
}

type PlanningConfig struct {
	Enabled  bool   `json:"enabled"`
	Horizon  int    `json:"horizon,omitempty"`
	Strategy string `json:"strategy,omitempty"`
	Adaptive bool   `json:"adaptive,omitempty"`
}

type MultiAgentConfig struct {
	Enabled           bool   `json:"enabled"`
	CollaborationMode string `json:"collaborationMode,omitempty"`
}

type ResourcesConfig struct {
	MaxTokens     int  `json:"maxTokens,omitempty"`
	OptimizeUsage bool `json:"optimizeUsage,omitempty"`
}

// OrchestratorConfig is the singleton orchestrator configuration.
type OrchestratorConfig struct {
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	SelectedModel string            `json:"selectedModel"`
	MainAgentID   string            `json:"mainAgentId,omitempty"`
	Memory        *MemoryConfig     `json:"memory,omitempty"`
	Reasoning     *ReasoningConfig  `json:"reasoning,omitempty"`
	Planning      *PlanningConfig   `json:"planning,omitempty"`
	MultiAgent    *MultiAgentConfig `json:"multiAgent,omitempty"`
	Resources     *ResourcesConfig  `json:"resources,omitempty"`
}

// DefaultOrchestratorConfig returns the configuration of a fresh install.
func DefaultOrchestratorConfig() *OrchestratorConfig {
	return &OrchestratorConfig{
		Name:          OrchestratorName,
		Description:   OrchestratorDescription,
		SelectedModel: DefaultSelectedModel,
	}
}

// Capabilities extracts the capability toggles used by response generation.
func (c *OrchestratorConfig) Capabilities() Capabilities {
	if c == nil {
		return Capabilities{}
	}
	return Capabilities{Memory: c.Memory, Reasoning: c.Reasoning, Planning: c.Planning}
}

// Capabilities is the set of capability toggles a response is generated with.
// A nil section counts as disabled.
type Capabilities struct {
	Memory     *MemoryConfig    `json:"memory,omitempty"`
	Reasoning  *ReasoningConfig `json:"reasoning,omitempty"`
	Planning   *PlanningConfig  `json:"planning,omitempty"`
	Monitoring bool             `json:"monitoring,omitempty"`
}

func (c Capabilities) MemoryEnabled() bool    { return c.Memory != nil && c.Memory.Enabled }
func (c Capabilities) ReasoningEnabled() bool { return c.Reasoning != nil && c.Reasoning.Enabled }
func (c Capabilities) PlanningEnabled() bool  { return c.Planning != nil && c.Planning.Enabled }

// ── Orchestrator State ───────────────────────────────────────

type ConversationEntry struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type TaskRecord struct {
	ID        string   `json:"id"`
	Task      string   `json:"task"`
	Subtasks  []string `json:"subtasks"`
	Completed bool     `json:"completed"`
}

type MetricSample struct {
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

type Metrics struct {
	ResponseTime []MetricSample `json:"responseTime"`
	TokenUsage   []MetricSample `json:"tokenUsage"`
}

// MemoryFact is a detected piece of user information.
type MemoryFact struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Label  string `json:"label,omitempty"`
	Source string `json:"source"`
}

// PendingConfirmation is a detected fact awaiting user approval. ID is
// stable across removals of other entries.
type PendingConfirmation struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Entry     MemoryFact `json:"entry"`
	Timestamp time.Time  `json:"timestamp"`
}

// CommittedFact is a fact stored in a user's memory.
type CommittedFact struct {
	MemoryFact
	Timestamp time.Time `json:"timestamp"`
}

type MemoryState struct {
	Entries              []CommittedFact       `json:"entries"`
	PendingConfirmations []PendingConfirmation `json:"pendingConfirmations"`
}

type UserRecord struct {
	Created     time.Time         `json:"created"`
	Memory      []CommittedFact   `json:"memory"`
	Preferences map[string]string `json:"preferences"`
}

// OrchestratorState is the append-only runtime record of the orchestrator.
type OrchestratorState struct {
	Conversations []ConversationEntry    `json:"conversations"`
	Tasks         []TaskRecord           `json:"tasks"`
	Metrics       Metrics                `json:"metrics"`
	Memory        MemoryState            `json:"memory"`
	Users         map[string]*UserRecord `json:"users"`
}

// NewOrchestratorState returns an empty state with initialised collections.
func NewOrchestratorState() *OrchestratorState {
	return &OrchestratorState{
		Conversations: []ConversationEntry{},
		Tasks:         []TaskRecord{},
		Metrics: Metrics{
			ResponseTime: []MetricSample{},
			TokenUsage:   []MetricSample{},
		},
		Memory: MemoryState{
			Entries:              []CommittedFact{},
			PendingConfirmations: []PendingConfirmation{},
		},
		Users: map[string]*UserRecord{},
	}
}

// User returns the record for userID, creating it when absent.
func (s *OrchestratorState) User(userID string, now time.Time) *UserRecord {
	if s.Users == nil {
		s.Users = map[string]*UserRecord{}
	}
	u, ok := s.Users[userID]
	if !ok {
		u = &UserRecord{Created: now, Memory: []CommittedFact{}, Preferences: map[string]string{}}
		s.Users[userID] = u
	}
	return u
}

// ── Chats ────────────────────────────────────────────────────

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	ModelUsed string    `json:"modelUsed,omitempty"`
	ToolsUsed []string  `json:"toolsUsed,omitempty"`
}

// ChatTitleLength is the number of runes of the first user message used as
// the chat title.
const ChatTitleLength = 30

// DefaultChatTitle is the title of a chat with no user message yet.
const DefaultChatTitle = "Nova conversa"

type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasUserMessage reports whether the chat already holds a user message.
func (c *Chat) HasUserMessage() bool {
	for _, m := range c.Messages {
		if m.Role == RoleUser {
			return true
		}
	}
	return false
}

// ── Tool Calls ───────────────────────────────────────────────

// Built-in tool identifiers proposed by the extractor.
const (
	ToolWebSearch  = "web-search"
	ToolWeather    = "weather-api"
	ToolCalculator = "calculator"
)

// ToolCall is a proposed tool invocation.
type ToolCall struct {
	ToolID string         `json:"toolId"`
	Params map[string]any `json:"params"`
}

// ToolResult is the normalised outcome of a tool invocation.
type ToolResult struct {
	Success   bool      `json:"success"`
	ToolName  string    `json:"toolName"`
	Method    string    `json:"method,omitempty"`
	Endpoint  string    `json:"endpoint,omitempty"`
	Result    any       `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	Simulated bool      `json:"simulated,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ── Terminal ─────────────────────────────────────────────────

type TerminalKind string

const (
	TerminalInfo   TerminalKind = "info"
	TerminalStep   TerminalKind = "step"
	TerminalTool   TerminalKind = "tool"
	TerminalMemory TerminalKind = "memory"
	TerminalDone   TerminalKind = "done"
	TerminalError  TerminalKind = "error"
)

// TerminalLine is one simulated progress entry shown in the chat console.
type TerminalLine struct {
	Timestamp time.Time    `json:"timestamp"`
	Kind      TerminalKind `json:"kind"`
	Text      string       `json:"text"`
}
