package orchestrator_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf16"

	"github.com/orquestra/console/internal/mcpgw"
	"github.com/orquestra/console/internal/memory"
	"github.com/orquestra/console/internal/orchestrator"
	"github.com/orquestra/console/internal/pacing"
	"github.com/orquestra/console/internal/router"
	"github.com/orquestra/console/internal/store"
	"github.com/orquestra/console/internal/terminal"
	"github.com/orquestra/console/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrchestrator(t *testing.T) (*orchestrator.Orchestrator, *store.KVStore) {
	t.Helper()
	s := store.NewMemoryStore("")
	t.Cleanup(func() { s.Close() })

	exec := mcpgw.NewExecutor(mcpgw.WithPacing(pacing.None{}, 0))
	o := orchestrator.New(s, router.NewSelector(s), exec, memory.NewQueue(s),
		orchestrator.WithPacing(pacing.None{}, 0))
	return o, s
}

func TestRespond_RecordsHistoryAndMetrics(t *testing.T) {
	o, s := newTestOrchestrator(t)
	ctx := context.Background()

	cfg := models.DefaultOrchestratorConfig()
	cfg.Memory = &models.MemoryConfig{Enabled: true}
	cfg.Reasoning = &models.ReasoningConfig{Enabled: true}

	buf := terminal.NewBuffer(100)
	res := o.Respond(ctx, orchestrator.Request{
		UserID:   "u1",
		Message:  "Quais os melhores planos de saúde?",
		Config:   cfg,
		Terminal: buf,
	})
	require.NoError(t, res.Err)
	assert.Contains(t, res.Response, "Notre Dame Intermédica")
	assert.Equal(t, router.ModelDefault, res.ModelID)
	assert.Empty(t, res.ToolsUsed)

	st, err := s.GetOrchestratorState(ctx)
	require.NoError(t, err)
	require.Len(t, st.Conversations, 2)
	assert.Equal(t, "user", st.Conversations[0].Role)
	assert.Equal(t, "assistant", st.Conversations[1].Role)
	assert.Equal(t, res.Response, st.Conversations[1].Content)
	require.Len(t, st.Metrics.TokenUsage, 1)
	require.Len(t, st.Metrics.ResponseTime, 1)
	assert.Equal(t, float64(res.Metrics.Tokens), st.Metrics.TokenUsage[0].Value)

	lines := buf.Recent(0)
	require.NotEmpty(t, lines)
	assert.Equal(t, models.TerminalInfo, lines[0].Kind)
	assert.Equal(t, models.TerminalDone, lines[len(lines)-1].Kind)
}

func TestRespond_TokenEstimate(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	msg := "abcde"
	res := o.Respond(context.Background(), orchestrator.Request{UserID: "u", Message: msg, Config: models.DefaultOrchestratorConfig()})
	require.NoError(t, res.Err)

	respUnits := len(utf16.Encode([]rune(res.Response)))
	want := 2 + (respUnits+3)/4
	assert.Equal(t, want, res.Metrics.Tokens)
	assert.Greater(t, respUnits, len([]rune(res.Response)), "status markers are surrogate pairs")
}

func TestRespond_TokenEstimateCountsSurrogatePairs(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	msg := "🔧🔧🔧🔧"
	res := o.Respond(context.Background(), orchestrator.Request{UserID: "u", Message: msg, Config: models.DefaultOrchestratorConfig()})
	require.NoError(t, res.Err)

	respUnits := len(utf16.Encode([]rune(res.Response)))
	assert.Equal(t, 2+(respUnits+3)/4, res.Metrics.Tokens)
}

func TestRespond_PlanningRecordsTask(t *testing.T) {
	o, s := newTestOrchestrator(t)
	ctx := context.Background()
	cfg := models.DefaultOrchestratorConfig()
	cfg.Planning = &models.PlanningConfig{Enabled: true}

	msg := "Quero organizar uma viagem de férias para o Nordeste em julho"
	res := o.Respond(ctx, orchestrator.Request{UserID: "u", Message: msg, Config: cfg})
	require.NoError(t, res.Err)
	assert.Contains(t, res.Response, orchestrator.MarkerPlanning)

	st, err := s.GetOrchestratorState(ctx)
	require.NoError(t, err)
	require.Len(t, st.Tasks, 1)
	require.Len(t, st.Tasks[0].Subtasks, 3)
	assert.Contains(t, st.Tasks[0].Subtasks[0], string([]rune(msg)[:30]))
	assert.NotContains(t, st.Tasks[0].Subtasks[0], msg)
}

func TestRespond_MemoryPending(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	cfg := models.DefaultOrchestratorConfig()
	cfg.Memory = &models.MemoryConfig{Enabled: true, UserPromptEnabled: true}

	res := o.Respond(context.Background(), orchestrator.Request{UserID: "u1", Message: "meu nome é João", Config: cfg})
	require.NoError(t, res.Err)
	require.Len(t, res.Pending, 1)
	assert.Equal(t, "João", res.Pending[0].Entry.Value)
}

func TestRespond_ToolsSimulatedWithoutServer(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	res := o.Respond(context.Background(), orchestrator.Request{
		UserID:  "u",
		Message: "calcular 7 mais 3",
		Config:  models.DefaultOrchestratorConfig(),
	})
	require.NoError(t, res.Err)
	assert.Equal(t, []string{models.ToolCalculator}, res.ToolsUsed)
	assert.Contains(t, res.Response, "Ferramentas")
	assert.Contains(t, res.Response, "(simulado)")
}

func TestRespond_ToolCallsConfiguredServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/weather":
			assert.Equal(t, "Lisboa", r.URL.Query().Get("location"))
			assert.Equal(t, "metric", r.URL.Query().Get("units"))
			w.Write([]byte(`{"temp":21}`))
		default:
			http.Error(w, "indisponível", http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	o, s := newTestOrchestrator(t)
	ctx := context.Background()
	require.NoError(t, s.SaveMCPConfig(ctx, &models.MCPServerConfig{
		ServerURL: srv.URL,
		Tools: []models.MCPTool{
			{ID: models.ToolWeather, Name: "Clima", Endpoint: "/weather", Parameters: `{"units":"metric","location":"x"}`},
			{ID: models.ToolWebSearch, Name: "Busca", Endpoint: "/search"},
		},
	}))

	res := o.Respond(ctx, orchestrator.Request{
		UserID:  "u",
		Message: "buscar o clima em Lisboa",
		Config:  models.DefaultOrchestratorConfig(),
	})
	require.NoError(t, res.Err)
	assert.Equal(t, []string{models.ToolWebSearch, models.ToolWeather}, res.ToolsUsed)
	assert.Contains(t, res.Response, "[Erro na ferramenta Busca: indisponível]")
	assert.Contains(t, res.Response, `**Clima**: {"temp":21}`)
}

func TestRespond_AgentToolListFilters(t *testing.T) {
	o, s := newTestOrchestrator(t)
	ctx := context.Background()
	require.NoError(t, s.SaveAgent(ctx, &models.Agent{ID: "a", Name: "Calc", ModelID: "m", ToolIDs: []string{models.ToolCalculator}}))

	cfg := models.DefaultOrchestratorConfig()
	cfg.MainAgentID = "a"
	res := o.Respond(ctx, orchestrator.Request{UserID: "u", Message: "pesquisar e calcular 2 mais 2", Config: cfg})
	require.NoError(t, res.Err)
	assert.Equal(t, "m", res.ModelID)
	assert.Equal(t, []string{models.ToolCalculator}, res.ToolsUsed)
}

func TestRespond_FailureKeepsUserEntry(t *testing.T) {
	s := store.NewMemoryStore("")
	t.Cleanup(func() { s.Close() })
	o := orchestrator.New(s, router.NewSelector(s), mcpgw.NewExecutor(), memory.NewQueue(s),
		orchestrator.WithPacing(pacing.Real{}, time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	buf := terminal.NewBuffer(10)
	res := o.Respond(ctx, orchestrator.Request{UserID: "u", Message: "olá", Config: models.DefaultOrchestratorConfig(), Terminal: buf})
	require.Error(t, res.Err)
	assert.True(t, strings.HasPrefix(res.Response, orchestrator.ErrorPrefix))

	st, err := s.GetOrchestratorState(context.Background())
	require.NoError(t, err)
	require.Len(t, st.Conversations, 1)
	assert.Equal(t, "user", st.Conversations[0].Role)
	assert.Empty(t, st.Metrics.TokenUsage)

	lines := buf.Recent(0)
	assert.Equal(t, models.TerminalError, lines[len(lines)-1].Kind)
}

func TestPlanSubtasks(t *testing.T) {
	subtasks := orchestrator.PlanSubtasks("curta")
	require.Len(t, subtasks, 3)
	assert.Equal(t, `Analisar a solicitação: "curta"`, subtasks[0])
}
