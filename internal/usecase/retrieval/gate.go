package retrieval

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/suporteia/atena/internal/domain"
	"github.com/suporteia/atena/internal/logger"
)

const (
	// shortQuestionWords is the word count at or below which an unanswerable
	// question is treated as underspecified rather than out of scope.
	shortQuestionWords = 4

	// ambiguousCategorySpan is how many distinct categories among the top
	// candidates signal that the question straddles unrelated topics.
	ambiguousCategorySpan = 3
)

// MaybeClarify decides whether to ask the user for more detail instead of
// answering. It triggers when a short question found nothing, or when the
// top candidates span too many unrelated categories. A high-scoring result
// set for a short question is answerable and never gated.
func MaybeClarify(question string, docs []domain.Document) domain.Clarification {
	words := len(strings.Fields(question))

	if len(docs) == 0 {
		if words <= shortQuestionWords {
			return domain.Clarification{Needed: true, Message: defaultClarification(nil)}
		}
		return domain.Clarification{}
	}

	top := docs
	if len(top) > 3 {
		top = top[:3]
	}
	categories := distinctCategories(top)
	if len(categories) >= ambiguousCategorySpan {
		return domain.Clarification{Needed: true, Message: defaultClarification(categories)}
	}

	return domain.Clarification{}
}

// distinctCategories returns the distinct non-empty categories among docs,
// normalized, in first-seen order.
func distinctCategories(docs []domain.Document) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, doc := range docs {
		cat := strings.TrimSpace(doc.Category)
		if cat == "" {
			continue
		}
		key := domain.Normalize(cat)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, cat)
	}
	return out
}

// clarifyMessage asks the clarifier for a contextual clarification question
// and falls back to the templated message when no clarifier is configured,
// the call fails, or it returns nothing usable.
func (s *Service) clarifyMessage(ctx context.Context, question string, docs []domain.Document, fallback string) string {
	if s.clarifier == nil {
		return fallback
	}

	res, err := s.clarifier.Generate(ctx, clarificationPrompt(question, docs))
	if err != nil {
		logger.FromContext(ctx).Warn("clarification generation failed, using template", zap.Error(err))
		return fallback
	}

	text := strings.TrimSpace(res.Text)
	text = strings.TrimSpace(strings.TrimPrefix(text, "RESPOSTA:"))
	if text == "" {
		return fallback
	}
	return text
}

// clarificationPrompt builds the PT-BR prompt for a model-generated
// clarification, grounding it in the candidate titles and categories.
func clarificationPrompt(question string, docs []domain.Document) string {
	var docContext strings.Builder
	if len(docs) > 0 {
		top := docs
		if len(top) > 5 {
			top = top[:5]
		}
		var titles []string
		for _, d := range top {
			if t := strings.TrimSpace(d.Title); t != "" {
				titles = append(titles, t)
			}
		}
		if len(titles) > 3 {
			titles = titles[:3]
		}
		if len(titles) > 0 {
			docContext.WriteString("\nDocumentos relacionados encontrados: " + strings.Join(titles, ", "))
		}
		if categories := distinctCategories(top); len(categories) > 0 {
			docContext.WriteString("\nCategorias: " + strings.Join(categories, ", "))
		}
	}

	return fmt.Sprintf(`Você é um assistente corporativo especializado em ajudar colaboradores.

CONTEXTO:
Pergunta do usuário: %q
%s

SITUAÇÃO:
A pergunta é muito genérica ou ambígua. Para dar uma resposta útil, você precisa entender melhor o contexto.

TAREFA:
Gere 2-4 perguntas de clarificação específicas e objetivas que ajudem a refinar a busca.

DIRETRIZES:
1. Seja direto, amigável e profissional
2. Baseie as perguntas nos documentos encontrados (se houver)
3. Foque em descobrir: sistema/ferramenta específica, contexto do problema, departamento relacionado
4. Use markdown mas SEM emojis
5. NÃO invente informações - apenas pergunte o necessário
6. Mantenha as perguntas curtas e objetivas

FORMATO EXATO:
## Preciso de mais detalhes

Para te ajudar melhor, poderia me informar:

- [pergunta objetiva 1]?
- [pergunta objetiva 2]?
- [pergunta objetiva 3]?

> Com essas informações, posso buscar a resposta certa para você.

Gere APENAS o texto formatado, sem explicações adicionais.

RESPOSTA:`, question, docContext.String())
}

// defaultClarification builds the templated clarifying message, listing up
// to three detected categories when available.
func defaultClarification(categories []string) string {
	if len(categories) >= 2 {
		if len(categories) > 3 {
			categories = categories[:3]
		}
		list := strings.Join(categories[:len(categories)-1], ", ") + " ou " + categories[len(categories)-1]
		return fmt.Sprintf(
			"## Esclarecimento Necessário\n\n"+
				"Sua pergunta é muito genérica. Encontrei informações sobre: **%s**.\n\n"+
				"**Poderia especificar melhor sua dúvida?** Por exemplo:\n"+
				"- Qual área te interessa?\n"+
				"- Você busca informações técnicas ou administrativas?\n"+
				"- Há um contexto específico para sua pergunta?",
			list,
		)
	}

	return "## Esclarecimento Necessário\n\n" +
		"Sua pergunta é muito genérica. Para te ajudar melhor, poderia fornecer mais detalhes?\n\n" +
		"**Sugestões:**\n" +
		"- Especifique o contexto (sistema, processo, área)\n" +
		"- Inclua detalhes sobre o que você precisa\n" +
		"- Mencione se há alguma situação específica"
}
