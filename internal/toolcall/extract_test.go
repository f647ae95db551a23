package toolcall_test

import (
	"testing"

	"github.com/orquestra/console/internal/toolcall"
	"github.com/orquestra/console/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findCall(calls []models.ToolCall, id string) *models.ToolCall {
	for i := range calls {
		if calls[i].ToolID == id {
			return &calls[i]
		}
	}
	return nil
}

func TestExtract_WebSearchUsesWholeMessage(t *testing.T) {
	messages := []string{
		"pesquisar sobre economia brasileira",
		"Pode PESQUISAR isso pra mim?  ",
		"quero pesquisar: preços de passagens em 2026",
	}
	for _, msg := range messages {
		t.Run(msg, func(t *testing.T) {
			call := findCall(toolcall.Extract(msg), models.ToolWebSearch)
			require.NotNil(t, call)
			assert.Equal(t, msg, call.Params["query"])
		})
	}
}

func TestExtract_Calculator(t *testing.T) {
	calls := toolcall.Extract("calcular 7 mais 3")
	require.Len(t, calls, 1)
	assert.Equal(t, models.ToolCalculator, calls[0].ToolID)
	assert.Equal(t, map[string]any{"a": 7, "b": 3, "operation": "add"}, calls[0].Params)
}

func TestExtract_CalculatorOperations(t *testing.T) {
	cases := []struct {
		msg  string
		op   string
		a, b int
	}{
		{"calcule 10 menos 4", toolcall.OpSubtract, 10, 4},
		{"multiplicar 6 vezes 7", toolcall.OpMultiply, 6, 7},
		{"dividir 8 por 2", toolcall.OpDivide, 8, 2},
		{"calcular 12 e 30 e 99", toolcall.OpAdd, 12, 30},
		{"quanto é a soma de 2 com 5", toolcall.OpAdd, 2, 5},
	}
	for _, tc := range cases {
		t.Run(tc.msg, func(t *testing.T) {
			call := findCall(toolcall.Extract(tc.msg), models.ToolCalculator)
			require.NotNil(t, call)
			assert.Equal(t, tc.op, call.Params["operation"])
			assert.Equal(t, tc.a, call.Params["a"])
			assert.Equal(t, tc.b, call.Params["b"])
		})
	}
}

func TestExtract_CalculatorNeedsTwoIntegers(t *testing.T) {
	assert.Nil(t, findCall(toolcall.Extract("calcular 7"), models.ToolCalculator))
	assert.Nil(t, findCall(toolcall.Extract("calcular a raiz"), models.ToolCalculator))
}

func TestExtract_WeatherLocation(t *testing.T) {
	call := findCall(toolcall.Extract("qual o clima em Lisboa"), models.ToolWeather)
	require.NotNil(t, call)
	assert.Equal(t, "Lisboa", call.Params["location"])

	call = findCall(toolcall.Extract("qual o clima hoje"), models.ToolWeather)
	require.NotNil(t, call)
	assert.Equal(t, toolcall.DefaultLocation, call.Params["location"])

	call = findCall(toolcall.Extract("weather for New York"), models.ToolWeather)
	require.NotNil(t, call)
	assert.Equal(t, "New York", call.Params["location"])
}

func TestExtract_IndependentRules(t *testing.T) {
	calls := toolcall.Extract("buscar a previsão do tempo para São Paulo")
	require.Len(t, calls, 2)
	assert.Equal(t, models.ToolWebSearch, calls[0].ToolID)
	assert.Equal(t, models.ToolWeather, calls[1].ToolID)
	assert.Equal(t, "São Paulo", calls[1].Params["location"])
}

func TestExtract_NoMatch(t *testing.T) {
	assert.Empty(t, toolcall.Extract("olá, tudo bem?"))
}
