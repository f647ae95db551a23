package orchestrator

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/orquestra/console/pkg/models"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Section markers of a generated response.
const (
	MarkerThinking  = "💭 Pensando..."
	MarkerMemory    = "🧠 Buscando na memória..."
	MarkerGathering = "🔍 Coletando informações..."
	MarkerReasoning = "🤔 Raciocinando"
	MarkerPlanning  = "📋 Organizando a resposta..."
	MarkerDone      = "✅ Finalizado"
)

// DefaultStrategy is shown when reasoning has no strategy configured.
const DefaultStrategy = "padrão"

// Category is the topic a message is classified into.
type Category string

const (
	CategoryHealth  Category = "health"
	CategoryTravel  Category = "travel"
	CategoryFood    Category = "food"
	CategoryGeneric Category = "generic"
)

var categoryKeywords = []struct {
	category Category
	keywords []string
}{
	{CategoryHealth, []string{"saude", "plano"}},
	{CategoryTravel, []string{"viagem", "ferias"}},
	{CategoryFood, []string{"comida", "receita"}},
}

// HealthProviders are listed, in this order, in the health answer.
var HealthProviders = []string{
	"Amil",
	"Bradesco Saúde",
	"SulAmérica",
	"Unimed",
	"Notre Dame Intermédica",
}

// Classify returns the category of message. Matching ignores case and
// accents, so "Saúde" and "férias" match.
func Classify(message string) Category {
	folded := fold(message)
	for _, c := range categoryKeywords {
		for _, k := range c.keywords {
			if strings.Contains(folded, k) {
				return c.category
			}
		}
	}
	return CategoryGeneric
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func fold(s string) string {
	out, _, err := transform.String(stripMarks, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

// Generate builds the markdown response for message. It has no side effects.
//
// Gathering bullets exist for food, but its final block is the generic
// closing.
func Generate(message string, caps models.Capabilities) string {
	category := Classify(message)
	var b strings.Builder

	b.WriteString(MarkerThinking + "\n\n")

	if caps.MemoryEnabled() {
		b.WriteString(MarkerMemory + "\n")
		b.WriteString("Consultando interações anteriores e preferências salvas.\n\n")
	}

	b.WriteString(MarkerGathering + "\n")
	b.WriteString(gatheringBullets(category))
	b.WriteString("\n")

	if caps.ReasoningEnabled() {
		strategy := caps.Reasoning.Strategy
		if strategy == "" {
			strategy = DefaultStrategy
		}
		fmt.Fprintf(&b, "%s (estratégia: %s)...\n", MarkerReasoning, strategy)
		b.WriteString("Avaliando alternativas e conectando as informações coletadas.\n\n")
	}

	if caps.PlanningEnabled() {
		b.WriteString(MarkerPlanning + "\n")
		b.WriteString("Estruturando os tópicos em uma sequência clara e objetiva.\n\n")
	}

	b.WriteString(MarkerDone + "\n\n---\n\n")
	b.WriteString(finalBlock(category, message))
	return b.String()
}

func gatheringBullets(c Category) string {
	switch c {
	case CategoryHealth:
		return "- Levantando as principais operadoras de planos de saúde\n" +
			"- Comparando coberturas, carências e rede credenciada\n" +
			"- Verificando avaliações de clientes e índices da ANS\n"
	case CategoryTravel:
		return "- Pesquisando destinos populares\n" +
			"- Verificando a melhor época para viajar\n" +
			"- Comparando preços de passagens e hospedagem\n"
	case CategoryFood:
		return "- Buscando receitas populares\n" +
			"- Verificando ingredientes e modo de preparo\n" +
			"- Considerando restrições alimentares comuns\n"
	default:
		return "- Analisando o contexto da pergunta\n" +
			"- Consultando fontes de conhecimento relevantes\n" +
			"- Organizando os pontos principais\n"
	}
}

func finalBlock(c Category, message string) string {
	switch c {
	case CategoryHealth:
		var b strings.Builder
		b.WriteString("## Melhores planos de saúde\n\n")
		b.WriteString("Com base nas informações coletadas, estas são as operadoras mais bem avaliadas:\n\n")
		for i, p := range HealthProviders {
			fmt.Fprintf(&b, "%d. **%s**\n", i+1, p)
		}
		b.WriteString("\n### Como escolher\n\n")
		b.WriteString("- Verifique se a rede credenciada cobre hospitais e laboratórios próximos a você\n")
		b.WriteString("- Compare os prazos de carência para consultas, exames e internações\n")
		b.WriteString("- Avalie a coparticipação e o reajuste anual\n")
		b.WriteString("- Consulte o índice de reclamações na ANS antes de contratar\n\n")
		b.WriteString("Quer que eu compare alguma dessas operadoras em detalhe?")
		return b.String()
	case CategoryTravel:
		return "## Planejamento de viagem\n\n" +
			"Para sugerir roteiros, preciso de mais detalhes: destino, datas e orçamento aproximado."
	default:
		return fmt.Sprintf("Sobre a sua pergunta: \"%s\"\n\n"+
			"Reuni acima os pontos principais para responder da melhor forma. "+
			"Há algum aspecto específico que você gostaria de aprofundar?", message)
	}
}
