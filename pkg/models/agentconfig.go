package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// AgentConfig is the typed view of Agent.ConfigJSON. Keys it does not know
// about are kept in Extra so they survive a round trip.
type AgentConfig struct {
	SystemPrompt string           `json:"systemPrompt,omitempty"`
	Temperature  *float64         `json:"temperature,omitempty"`
	MaxTokens    int              `json:"maxTokens,omitempty"`
	Tools        []string         `json:"tools,omitempty"`
	Memory       *MemoryConfig    `json:"memory,omitempty"`
	Reasoning    *ReasoningConfig `json:"reasoning,omitempty"`
	Planning     *PlanningConfig  `json:"planning,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var agentConfigKeys = map[string]bool{
	"systemPrompt": true,
	"temperature":  true,
	"maxTokens":    true,
	"tools":        true,
	"memory":       true,
	"reasoning":    true,
	"planning":     true,
}

// ParseAgentConfig decodes raw agent configuration JSON. Blank input yields
// an empty config. The returned config is always usable, also on error.
func ParseAgentConfig(raw string) (AgentConfig, error) {
	var cfg AgentConfig
	if strings.TrimSpace(raw) == "" {
		return cfg, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return AgentConfig{}, fmt.Errorf("agent config is not a JSON object: %w", err)
	}

	type plain AgentConfig
	var known plain
	if err := json.Unmarshal([]byte(raw), &known); err != nil {
		return AgentConfig{}, fmt.Errorf("agent config: %w", err)
	}
	cfg = AgentConfig(known)

	for k, v := range fields {
		if agentConfigKeys[k] {
			continue
		}
		if cfg.Extra == nil {
			cfg.Extra = make(map[string]json.RawMessage)
		}
		cfg.Extra[k] = v
	}
	return cfg, nil
}

// MarshalJSON writes known fields and Extra back into a single object.
func (c AgentConfig) MarshalJSON() ([]byte, error) {
	type plain AgentConfig
	base, err := json.Marshal(plain(c))
	if err != nil {
		return nil, err
	}
	if len(c.Extra) == 0 {
		return base, nil
	}

	merged := make(map[string]json.RawMessage, len(c.Extra)+len(agentConfigKeys))
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range c.Extra {
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// Config returns the parsed agent configuration, or an empty one when
// ConfigJSON is malformed.
func (a *Agent) Config() AgentConfig {
	cfg, err := ParseAgentConfig(a.ConfigJSON)
	if err != nil {
		log.Warn().Err(err).Str("agent", a.ID).Msg("Invalid agent config, using {}")
		return AgentConfig{}
	}
	return cfg
}

// ParseToolParameters decodes a tool's default parameter JSON. Blank input
// yields an empty map.
func ParseToolParameters(raw string) (map[string]any, error) {
	params := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return params, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	if err := dec.Decode(&params); err != nil {
		return map[string]any{}, fmt.Errorf("tool parameters are not a JSON object: %w", err)
	}
	if params == nil {
		params = map[string]any{}
	}
	return params, nil
}

// ValidJSONText reports whether s is blank or well-formed JSON.
func ValidJSONText(s string) bool {
	if strings.TrimSpace(s) == "" {
		return true
	}
	return json.Valid([]byte(s))
}
