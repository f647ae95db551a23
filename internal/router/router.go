// Package router picks the model that answers a chat message.
//
// A configured main agent wins over everything else. Without one, the
// orchestrator acts as a synthetic agent whose model is either the explicitly
// selected model or, in "auto" mode, the result of keyword-based selection
// over the task description.
package router

import (
	"context"
	"errors"
	"strings"

	"github.com/orquestra/console/internal/store"
	"github.com/orquestra/console/pkg/models"
	"github.com/rs/zerolog/log"
)

// Models returned by keyword selection.
const (
	ModelImage     = "ideogram"
	ModelReasoning = "deepseek-r1"
	ModelDefault   = "minimax"
)

// AutoModel in OrchestratorConfig.SelectedModel enables keyword selection.
const AutoModel = models.DefaultSelectedModel

// SyntheticAgentID identifies the orchestrator acting as its own agent.
const SyntheticAgentID = "virtual-orchestrator"

var (
	imageKeywords     = []string{"image", "picture", "photo"}
	reasoningKeywords = []string{"analyze", "reason", "research", "deep dive"}
)

// SelectModelForTask picks a model from keywords in the task description.
// Image requests win over analysis requests; everything else gets the
// default model.
func SelectModelForTask(description string) string {
	lower := strings.ToLower(description)
	switch {
	case containsAny(lower, imageKeywords):
		return ModelImage
	case containsAny(lower, reasoningKeywords):
		return ModelReasoning
	default:
		return ModelDefault
	}
}

// Selection is either a ConfiguredAgent or a SyntheticOrchestrator.
type Selection interface {
	AgentID() string
	AgentName() string
	ModelID() string
	// ToolIDs lists tools the selection is allowed to use; nil means all.
	ToolIDs() []string
	isSelection()
}

// ConfiguredAgent is a stored agent chosen as main agent.
type ConfiguredAgent struct {
	Agent  models.Agent
	Config models.AgentConfig
}

func (c ConfiguredAgent) AgentID() string   { return c.Agent.ID }
func (c ConfiguredAgent) AgentName() string { return c.Agent.Name }
func (c ConfiguredAgent) ModelID() string   { return c.Agent.ModelID }

func (c ConfiguredAgent) ToolIDs() []string {
	ids := append([]string{}, c.Agent.ToolIDs...)
	return append(ids, c.Config.Tools...)
}

func (ConfiguredAgent) isSelection() {}

// SyntheticOrchestrator stands in for an agent when no main agent resolves.
type SyntheticOrchestrator struct {
	Model string
}

func (SyntheticOrchestrator) AgentID() string   { return SyntheticAgentID }
func (SyntheticOrchestrator) AgentName() string { return models.OrchestratorName }
func (s SyntheticOrchestrator) ModelID() string { return s.Model }
func (SyntheticOrchestrator) ToolIDs() []string { return nil }
func (SyntheticOrchestrator) isSelection()      {}

// Selector resolves the agent and model for a message.
type Selector struct {
	agents store.AgentStore
}

// NewSelector creates a selector reading agents from s.
func NewSelector(s store.AgentStore) *Selector {
	return &Selector{agents: s}
}

// Resolve returns the main agent when cfg names one that exists and has a
// model; otherwise the synthetic orchestrator.
func (s *Selector) Resolve(ctx context.Context, cfg *models.OrchestratorConfig, message string) (Selection, error) {
	if cfg != nil && cfg.MainAgentID != "" {
		agent, err := s.agents.GetAgent(ctx, cfg.MainAgentID)
		var nf *store.ErrNotFound
		switch {
		case errors.As(err, &nf):
			log.Warn().Str("agent", cfg.MainAgentID).Msg("Main agent not found, falling back to orchestrator")
		case err != nil:
			return nil, err
		case agent.ModelID == "":
			log.Warn().Str("agent", agent.ID).Msg("Main agent has no model, falling back to orchestrator")
		default:
			agentCfg, perr := models.ParseAgentConfig(agent.ConfigJSON)
			if perr != nil {
				log.Warn().Err(perr).Str("agent", agent.ID).Msg("Invalid agent config, using {}")
			}
			return ConfiguredAgent{Agent: *agent, Config: agentCfg}, nil
		}
	}

	model := ""
	if cfg != nil {
		model = cfg.SelectedModel
	}
	if model == "" || model == AutoModel {
		model = SelectModelForTask(message)
	}
	return SyntheticOrchestrator{Model: model}, nil
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
