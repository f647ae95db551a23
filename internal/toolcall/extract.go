// Package toolcall proposes tool invocations from free-text user input.
//
// The rules are a flat list evaluated independently, so one message can
// trigger several tools:
//   - web search: search verbs; the whole message becomes the query
//   - weather: weather words; location parsed from "em/de/para/in/at/for X"
//   - calculator: arithmetic verbs plus at least two integers in the message
package toolcall

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/orquestra/console/pkg/models"
)

// DefaultLocation is used when a weather request names no place.
const DefaultLocation = "current"

// Calculator operations.
const (
	OpAdd      = "add"
	OpSubtract = "subtract"
	OpMultiply = "multiply"
	OpDivide   = "divide"
)

var (
	searchKeywords  = []string{"pesquisar", "buscar", "procurar", "search"}
	weatherKeywords = []string{"clima", "tempo", "previsão", "weather"}
	calcKeywords    = []string{"calcul", "som", "subtra", "multiplic", "divid"}

	addKeywords      = []string{"som", "mais", "adicion", "plus", "add", "+"}
	subtractKeywords = []string{"subtra", "menos", "minus", "-"}
	multiplyKeywords = []string{"multiplic", "vezes", "times", "*"}
	divideKeywords   = []string{"divid", "/"}
)

var (
	locationPattern = regexp.MustCompile(`(?i)(clima|tempo|previsão|weather).*(em|de|para|in|at|for)\s+([a-zA-ZÀ-ÿ\s]+)`)
	digitPattern    = regexp.MustCompile(`\d`)
	integerPattern  = regexp.MustCompile(`\d+`)
)

// Extract returns the tool calls proposed for message, in rule order:
// web search, weather, calculator.
func Extract(message string) []models.ToolCall {
	lower := strings.ToLower(message)
	calls := []models.ToolCall{}

	if containsAny(lower, searchKeywords) {
		calls = append(calls, models.ToolCall{
			ToolID: models.ToolWebSearch,
			Params: map[string]any{"query": message},
		})
	}

	if containsAny(lower, weatherKeywords) {
		calls = append(calls, models.ToolCall{
			ToolID: models.ToolWeather,
			Params: map[string]any{"location": extractLocation(message)},
		})
	}

	if containsAny(lower, calcKeywords) && digitPattern.MatchString(message) {
		if call, ok := extractCalculation(message, lower); ok {
			calls = append(calls, call)
		}
	}

	return calls
}

func extractLocation(message string) string {
	m := locationPattern.FindStringSubmatch(message)
	if m == nil {
		return DefaultLocation
	}
	loc := strings.TrimSpace(m[3])
	if loc == "" {
		return DefaultLocation
	}
	return loc
}

func extractCalculation(message, lower string) (models.ToolCall, bool) {
	nums := integerPattern.FindAllString(message, 2)
	if len(nums) < 2 {
		return models.ToolCall{}, false
	}
	a, errA := strconv.Atoi(nums[0])
	b, errB := strconv.Atoi(nums[1])
	if errA != nil || errB != nil {
		return models.ToolCall{}, false
	}

	return models.ToolCall{
		ToolID: models.ToolCalculator,
		Params: map[string]any{"a": a, "b": b, "operation": operation(lower)},
	}, true
}

// operation picks the arithmetic operation by keyword precedence.
func operation(lower string) string {
	switch {
	case containsAny(lower, addKeywords):
		return OpAdd
	case containsAny(lower, subtractKeywords):
		return OpSubtract
	case containsAny(lower, multiplyKeywords):
		return OpMultiply
	case containsAny(lower, divideKeywords):
		return OpDivide
	default:
		return OpAdd
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
