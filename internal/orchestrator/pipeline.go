// Package orchestrator turns a user message into the orchestrator's answer.
//
// Respond runs the full pipeline: history, planning decomposition, memory
// capture, tool calls, model selection and the templated response, emitting
// terminal lines along the way and recording metrics in the orchestrator
// state. Generate is the pure response template used by the pipeline.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/orquestra/console/internal/mcpgw"
	"github.com/orquestra/console/internal/memory"
	"github.com/orquestra/console/internal/pacing"
	"github.com/orquestra/console/internal/router"
	"github.com/orquestra/console/internal/store"
	"github.com/orquestra/console/internal/terminal"
	"github.com/orquestra/console/internal/toolcall"
	"github.com/orquestra/console/pkg/models"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrorPrefix starts the response returned when the pipeline fails.
const ErrorPrefix = "Erro ao processar com o agente: "

// DefaultStepDelay paces terminal steps.
const DefaultStepDelay = 300 * time.Millisecond

// planPrefixLength is the number of runes of the message quoted in the first
// planning subtask.
const planPrefixLength = 30

var tracer = otel.Tracer("orquestra/orchestrator")

// Store is the persistence the pipeline needs.
type Store interface {
	store.OrchestratorStore
	store.MCPStore
}

// Request is one message to answer.
type Request struct {
	UserID  string
	Message string
	// Config overrides the stored orchestrator configuration when set.
	Config *models.OrchestratorConfig
	// Terminal receives progress lines; nil discards them.
	Terminal terminal.Emitter
}

// Metrics of a single response.
type Metrics struct {
	Elapsed time.Duration `json:"elapsed"`
	Tokens  int           `json:"tokens"`
}

// Result is the outcome of Respond. Err is set when the pipeline failed;
// Response then carries the user-facing error text.
type Result struct {
	Response  string                       `json:"response"`
	ModelID   string                       `json:"modelId"`
	AgentID   string                       `json:"agentId"`
	ToolsUsed []string                     `json:"toolsUsed"`
	Tools     []models.ToolResult          `json:"tools,omitempty"`
	Pending   []models.PendingConfirmation `json:"pending,omitempty"`
	Metrics   Metrics                      `json:"metrics"`
	Err       error                        `json:"-"`
}

// Orchestrator runs the response pipeline.
type Orchestrator struct {
	store     Store
	selector  *router.Selector
	executor  *mcpgw.Executor
	memory    *memory.Queue
	sleeper   pacing.Sleeper
	stepDelay time.Duration
	now       func() time.Time
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithPacing sets the sleeper and the delay between terminal steps.
func WithPacing(s pacing.Sleeper, stepDelay time.Duration) Option {
	return func(o *Orchestrator) {
		o.sleeper = s
		o.stepDelay = stepDelay
	}
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an orchestrator.
func New(s Store, sel *router.Selector, exec *mcpgw.Executor, mem *memory.Queue, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:     s,
		selector:  sel,
		executor:  exec,
		memory:    mem,
		sleeper:   pacing.Real{},
		stepDelay: DefaultStepDelay,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Respond answers req. It never returns a Go error: failures are reported
// in the result. Side effects recorded before a failure are kept.
func (o *Orchestrator) Respond(ctx context.Context, req Request) Result {
	start := o.now()
	term := req.Terminal
	if term == nil {
		term = terminal.Discard
	}

	ctx, span := tracer.Start(ctx, "orchestrator.respond")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", req.UserID),
		attribute.Int("message.length", len(req.Message)),
	)

	res, err := o.run(ctx, req, term, start)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		term.Emit(models.TerminalError, err.Error())
		log.Error().Err(err).Str("user", req.UserID).Msg("Orchestration failed")
		res.Response = ErrorPrefix + err.Error()
		res.Err = err
		return res
	}

	span.SetAttributes(
		attribute.String("model.id", res.ModelID),
		attribute.Int("tools.count", len(res.ToolsUsed)),
		attribute.Int("tokens", res.Metrics.Tokens),
	)
	log.Info().
		Str("user", req.UserID).
		Str("model", res.ModelID).
		Int("tools", len(res.ToolsUsed)).
		Int("tokens", res.Metrics.Tokens).
		Dur("elapsed", res.Metrics.Elapsed).
		Msg("Response generated")
	return res
}

func (o *Orchestrator) run(ctx context.Context, req Request, term terminal.Emitter, start time.Time) (Result, error) {
	res := Result{ToolsUsed: []string{}}

	cfg := req.Config
	if cfg == nil {
		stored, err := o.store.GetOrchestratorConfig(ctx)
		if err != nil {
			return res, fmt.Errorf("load orchestrator config: %w", err)
		}
		cfg = stored
	}

	if err := o.appendConversation(ctx, models.RoleUser, req.Message); err != nil {
		return res, err
	}
	term.Emit(models.TerminalInfo, "Mensagem recebida de "+req.UserID)

	sel, err := o.selector.Resolve(ctx, cfg, req.Message)
	if err != nil {
		return res, fmt.Errorf("select model: %w", err)
	}
	res.ModelID = sel.ModelID()
	res.AgentID = sel.AgentID()
	term.Emit(models.TerminalStep, fmt.Sprintf("Agente: %s | Modelo: %s", sel.AgentName(), sel.ModelID()))

	caps := capabilitiesFor(cfg, sel)

	if caps.PlanningEnabled() {
		if err := o.plan(ctx, req.Message, term); err != nil {
			return res, err
		}
	}

	if caps.MemoryEnabled() {
		pending, err := o.memory.Capture(ctx, req.UserID, req.Message, caps.Memory)
		if err != nil {
			return res, fmt.Errorf("capture memory: %w", err)
		}
		res.Pending = pending
		for _, p := range pending {
			term.Emit(models.TerminalMemory, fmt.Sprintf("%s: %s (aguardando confirmação)", p.Entry.Label, p.Entry.Value))
		}
	}

	toolResults, err := o.runTools(ctx, req.Message, sel, term)
	if err != nil {
		return res, err
	}
	for _, tr := range toolResults {
		res.ToolsUsed = append(res.ToolsUsed, tr.id)
		res.Tools = append(res.Tools, *tr.result)
	}

	steps := []string{"Analisando a mensagem"}
	if caps.ReasoningEnabled() {
		steps = append(steps, "Raciocinando sobre as informações")
	}
	steps = append(steps, "Gerando resposta")
	for _, s := range steps {
		if err := o.step(ctx, term, s); err != nil {
			return res, err
		}
	}

	response := Generate(req.Message, caps) + toolSection(toolResults)
	res.Response = response

	elapsed := o.now().Sub(start)
	tokens := estimateTokens(req.Message) + estimateTokens(response)
	res.Metrics = Metrics{Elapsed: elapsed, Tokens: tokens}

	err = o.store.UpdateOrchestratorState(ctx, func(st *models.OrchestratorState) error {
		now := o.now()
		st.Metrics.ResponseTime = append(st.Metrics.ResponseTime, models.MetricSample{
			Value:     float64(elapsed.Milliseconds()),
			Timestamp: now,
		})
		st.Metrics.TokenUsage = append(st.Metrics.TokenUsage, models.MetricSample{
			Value:     float64(tokens),
			Timestamp: now,
		})
		st.Conversations = append(st.Conversations, models.ConversationEntry{
			Role:      string(models.RoleAssistant),
			Content:   response,
			Timestamp: now,
		})
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("record response: %w", err)
	}

	term.Emit(models.TerminalDone, fmt.Sprintf("Resposta concluída em %s", elapsed.Round(time.Millisecond)))
	return res, nil
}

func (o *Orchestrator) step(ctx context.Context, term terminal.Emitter, text string) error {
	term.Emit(models.TerminalStep, text)
	return o.sleeper.Sleep(ctx, o.stepDelay)
}

func (o *Orchestrator) appendConversation(ctx context.Context, role models.Role, content string) error {
	err := o.store.UpdateOrchestratorState(ctx, func(st *models.OrchestratorState) error {
		st.Conversations = append(st.Conversations, models.ConversationEntry{
			Role:      string(role),
			Content:   content,
			Timestamp: o.now(),
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("record conversation: %w", err)
	}
	return nil
}

// PlanSubtasks returns the fixed decomposition of message.
func PlanSubtasks(message string) []string {
	return []string{
		fmt.Sprintf("Analisar a solicitação: \"%s\"", truncateRunes(message, planPrefixLength)),
		"Coletar informações relevantes",
		"Formular a resposta final",
	}
}

func (o *Orchestrator) plan(ctx context.Context, message string, term terminal.Emitter) error {
	subtasks := PlanSubtasks(message)
	err := o.store.UpdateOrchestratorState(ctx, func(st *models.OrchestratorState) error {
		st.Tasks = append(st.Tasks, models.TaskRecord{
			ID:       uuid.New().String(),
			Task:     message,
			Subtasks: subtasks,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("record plan: %w", err)
	}
	for i, s := range subtasks {
		if err := o.step(ctx, term, fmt.Sprintf("Subtarefa %d: %s", i+1, s)); err != nil {
			return err
		}
	}
	return nil
}

type toolRun struct {
	id     string
	result *models.ToolResult
}

// runTools executes the calls extracted from message. A selection with a
// tool list only runs tools on that list.
func (o *Orchestrator) runTools(ctx context.Context, message string, sel router.Selection, term terminal.Emitter) ([]toolRun, error) {
	calls := toolcall.Extract(message)
	if len(calls) == 0 {
		return nil, nil
	}

	allowed := map[string]bool{}
	for _, id := range sel.ToolIDs() {
		allowed[id] = true
	}

	server, err := o.store.GetMCPConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load MCP config: %w", err)
	}

	runs := []toolRun{}
	for _, call := range calls {
		if len(allowed) > 0 && !allowed[call.ToolID] {
			continue
		}
		term.Emit(models.TerminalTool, "Executando ferramenta "+call.ToolID)

		tool := server.FindTool(call.ToolID)
		if tool == nil {
			runs = append(runs, toolRun{id: call.ToolID, result: mcpgw.Simulated(call)})
			term.Emit(models.TerminalTool, call.ToolID+": ferramenta não cadastrada, resultado simulado")
			continue
		}

		params := mergeParams(tool, call.Params)
		result, err := o.executor.Execute(ctx, server, tool, params)
		switch {
		case errors.Is(err, mcpgw.ErrNotConfigured):
			result = mcpgw.Simulated(call)
			result.ToolName = tool.Name
			term.Emit(models.TerminalTool, tool.Name+": servidor MCP não configurado, resultado simulado")
		case err != nil:
			return nil, fmt.Errorf("execute %s: %w", call.ToolID, err)
		case result.Success:
			term.Emit(models.TerminalTool, tool.Name+": sucesso")
		default:
			term.Emit(models.TerminalError, tool.Name+": "+result.Error)
		}
		runs = append(runs, toolRun{id: call.ToolID, result: result})
	}
	return runs, nil
}

// mergeParams overlays extracted params on the tool's default parameters.
func mergeParams(tool *models.MCPTool, extracted map[string]any) map[string]any {
	params, err := models.ParseToolParameters(tool.Parameters)
	if err != nil {
		log.Warn().Err(err).Str("tool", tool.ID).Msg("Invalid tool parameters, using {}")
	}
	for k, v := range extracted {
		params[k] = v
	}
	return params
}

func toolSection(runs []toolRun) string {
	if len(runs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\n### 🔧 Ferramentas\n\n")
	for _, r := range runs {
		name := r.result.ToolName
		if name == "" {
			name = r.id
		}
		if !r.result.Success {
			fmt.Fprintf(&b, "- [Erro na ferramenta %s: %s]\n", name, r.result.Error)
			continue
		}
		suffix := ""
		if r.result.Simulated {
			suffix = " (simulado)"
		}
		fmt.Fprintf(&b, "- **%s**%s: %s\n", name, suffix, renderResult(r.result.Result))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderResult(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// capabilitiesFor returns the orchestrator capabilities, overridden by the
// sections a configured agent sets in its own config.
func capabilitiesFor(cfg *models.OrchestratorConfig, sel router.Selection) models.Capabilities {
	caps := cfg.Capabilities()
	agent, ok := sel.(router.ConfiguredAgent)
	if !ok {
		return caps
	}
	if agent.Config.Memory != nil {
		caps.Memory = agent.Config.Memory
	}
	if agent.Config.Reasoning != nil {
		caps.Reasoning = agent.Config.Reasoning
	}
	if agent.Config.Planning != nil {
		caps.Planning = agent.Config.Planning
	}
	return caps
}

// estimateTokens approximates tokens as a quarter of the UTF-16 length,
// rounded up. Emoji outside the BMP count as two units.
func estimateTokens(s string) int {
	n := len(utf16.Encode([]rune(s)))
	return (n + 3) / 4
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
