package answer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/suporteia/atena/internal/domain"
)

// noContextAnswer is returned when retrieval found nothing usable.
const noContextAnswer = "## Informação Não Disponível\n\n" +
	"Desculpe, não tenho informações sobre esse assunto específico no momento.\n\n" +
	"### O que você pode fazer:\n\n" +
	"1. Reformular a pergunta — tente usar palavras diferentes ou ser mais específico\n" +
	"2. Consultar o GLPI — verifique se há documentação disponível no sistema\n" +
	"3. Abrir um chamado — a equipe de TI poderá ajudar diretamente\n\n" +
	"> **Dica**: Para questões urgentes, contate o suporte de TI diretamente."

// BuildContext renders the retrieved documents into the prompt context block.
func BuildContext(docs []domain.Document) string {
	if len(docs) == 0 {
		return ""
	}

	var b strings.Builder
	for i := range docs {
		d := &docs[i]
		title := d.Title
		if title == "" {
			title = "Documento sem título"
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[Documento %d] %s", i+1, title)
		if d.Category != "" {
			fmt.Fprintf(&b, " (%s)", d.Category)
		}
		fmt.Fprintf(&b, " - Relevância: %.1f%%\n%s\n", d.Score*100, d.Content)
	}
	return b.String()
}

// HistoryText renders the last maxTurns conversation turns into prompt lines.
func HistoryText(turns []domain.Turn, maxTurns int) string {
	if len(turns) == 0 || maxTurns <= 0 {
		return ""
	}
	if len(turns) > maxTurns {
		turns = turns[len(turns)-maxTurns:]
	}

	parts := make([]string, 0, len(turns))
	for _, t := range turns {
		content := strings.TrimSpace(t.Content)
		if content == "" {
			continue
		}
		switch t.Role {
		case domain.RoleUser:
			parts = append(parts, "Usuário: "+content)
		case domain.RoleAssistant:
			parts = append(parts, "Assistente: "+content)
		}
	}
	return strings.Join(parts, "\n")
}

// BuildPrompt assembles the generation prompt. The closing instruction is
// tiered by confidence so low-certainty answers hedge honestly.
func BuildPrompt(question, context, history, department string, confidence float64) string {
	parts := []string{
		"# Seu Papel",
		"Você é um assistente de suporte técnico especializado e prestativo.",
		"Sua missão é ajudar usuários com informações precisas e claras.",
		"",
	}

	if department != "" && department != "Geral" {
		parts = append(parts,
			fmt.Sprintf("## Domínio Detectado: %s", department),
			fmt.Sprintf("Você está respondendo uma questão relacionada a %s.", department),
			"",
		)
	}

	parts = append(parts,
		"# Exemplos de Boas Respostas",
		"",
		"**Exemplo 1 - Resposta Direta:**",
		"Usuário: Como resetar minha senha?",
		"Assistente: Para resetar sua senha, siga estes passos:",
		"1. Acesse o portal de login",
		"2. Clique em 'Esqueci minha senha'",
		"3. Digite seu email corporativo",
		"4. Siga as instruções recebidas por email",
		"",
		"**Exemplo 2 - Resposta com Contexto:**",
		"Usuário: O computador está lento",
		"Assistente: Entendo que seu computador está com lentidão. Aqui estão algumas soluções:",
		"- Feche programas não utilizados",
		"- Reinicie o computador",
		"- Verifique atualizações pendentes",
		"Se o problema persistir, abra um chamado no GLPI.",
		"",
	)

	if strings.TrimSpace(history) != "" {
		parts = append(parts,
			"# Histórico da Conversa",
			history,
			"",
		)
	}

	parts = append(parts,
		"# Informações Disponíveis",
		"Use APENAS as informações abaixo para responder:",
		"",
		context,
		"",
		"# Pergunta do Usuário",
		question,
		"",
		"# Sua Resposta",
	)

	switch {
	case confidence >= domain.HighThreshold:
		parts = append(parts, "Responda de forma clara e confiante, usando as informações acima:")
	case confidence >= domain.MediumThreshold:
		parts = append(parts, "Responda com base nas informações disponíveis. Se houver incerteza, mencione:")
	default:
		parts = append(parts, "As informações disponíveis são limitadas. Responda honestamente e sugira alternativas se necessário:")
	}

	return strings.Join(parts, "\n")
}

var (
	spaceBeforePunct = regexp.MustCompile(`\s+([.,!?;:])`)
	punctNoSpace     = regexp.MustCompile(`([.,!?;:])([\p{L}\d])`)

	answerPrefixes = []string{"Assistente:", "Assistant:", "Resposta:", "Answer:", "AI:"}
)

// Sanitize cleans an assembled model answer: collapses repeated lines and
// blank runs, fixes punctuation spacing and strips role prefixes.
func Sanitize(text string) string {
	if text == "" {
		return ""
	}

	lines := strings.Split(text, "\n")
	unique := lines[:0]
	for _, line := range lines {
		if len(unique) == 0 || strings.TrimSpace(line) != strings.TrimSpace(unique[len(unique)-1]) {
			unique = append(unique, line)
		}
	}
	for i, line := range unique {
		unique[i] = strings.TrimRight(line, " \t")
	}
	text = strings.Join(unique, "\n")

	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}

	text = spaceBeforePunct.ReplaceAllString(text, "$1")
	text = punctNoSpace.ReplaceAllString(text, "$1 $2")

	for _, prefix := range answerPrefixes {
		if trimmed := strings.TrimSpace(text); strings.HasPrefix(trimmed, prefix) {
			text = strings.TrimSpace(strings.TrimPrefix(trimmed, prefix))
		}
	}

	return strings.TrimSpace(text)
}
