package answer

import (
	"strings"
	"testing"

	"github.com/suporteia/atena/internal/domain"
)

func TestBuildContext_Format(t *testing.T) {
	docs := []domain.Document{
		{Title: "Resetar senha", Category: "Acessos", Content: "Passo a passo.", Score: 0.85},
	}

	got := BuildContext(docs)
	want := "[Documento 1] Resetar senha (Acessos) - Relevância: 85.0%\nPasso a passo.\n"
	if got != want {
		t.Errorf("context = %q, want %q", got, want)
	}
}

func TestBuildContext_OmitsEmptyCategory(t *testing.T) {
	docs := []domain.Document{{Title: "Título", Content: "corpo", Score: 0.5}}
	if got := BuildContext(docs); strings.Contains(got, "()") {
		t.Errorf("empty category must be omitted: %q", got)
	}
}

func TestBuildContext_Empty(t *testing.T) {
	if got := BuildContext(nil); got != "" {
		t.Errorf("empty docs = %q, want empty string", got)
	}
}

func TestBuildPrompt_ConfidenceTiers(t *testing.T) {
	tests := []struct {
		confidence float64
		want       string
	}{
		{0.8, "Responda de forma clara e confiante"},
		{0.6, "Se houver incerteza, mencione"},
		{0.2, "As informações disponíveis são limitadas"},
	}
	for _, tc := range tests {
		p := BuildPrompt("pergunta", "contexto", "", "", tc.confidence)
		if !strings.Contains(p, tc.want) {
			t.Errorf("confidence %.2f: prompt missing %q", tc.confidence, tc.want)
		}
	}
}

func TestBuildPrompt_Sections(t *testing.T) {
	p := BuildPrompt("como resetar senha", "contexto aqui", "Usuário: oi", "TI", 0.7)

	for _, section := range []string{
		"# Seu Papel",
		"## Domínio Detectado: TI",
		"# Exemplos de Boas Respostas",
		"# Histórico da Conversa",
		"Usuário: oi",
		"# Informações Disponíveis",
		"Use APENAS as informações abaixo para responder:",
		"contexto aqui",
		"# Pergunta do Usuário",
		"como resetar senha",
		"# Sua Resposta",
	} {
		if !strings.Contains(p, section) {
			t.Errorf("prompt missing section %q", section)
		}
	}

	// Context must come after history, question after context.
	if strings.Index(p, "# Histórico") > strings.Index(p, "# Informações") {
		t.Error("history must precede context")
	}
	if strings.Index(p, "# Informações") > strings.Index(p, "# Pergunta") {
		t.Error("context must precede question")
	}
}

func TestBuildPrompt_NoDomainNoHistory(t *testing.T) {
	p := BuildPrompt("pergunta", "ctx", "", "", 0.7)
	if strings.Contains(p, "Domínio Detectado") {
		t.Error("empty department must not add a domain section")
	}
	if strings.Contains(p, "# Histórico da Conversa") {
		t.Error("empty history must not add a history section")
	}

	// "Geral" is the catch-all, not a real domain.
	if p2 := BuildPrompt("pergunta", "ctx", "", "Geral", 0.7); strings.Contains(p2, "Domínio Detectado") {
		t.Error("Geral must not add a domain section")
	}
}

func TestHistoryText(t *testing.T) {
	turns := []domain.Turn{
		{Role: domain.RoleUser, Content: "primeira"},
		{Role: domain.RoleAssistant, Content: "resposta um"},
		{Role: domain.RoleUser, Content: "segunda"},
		{Role: domain.RoleAssistant, Content: "resposta dois"},
	}

	got := HistoryText(turns, 8)
	want := "Usuário: primeira\nAssistente: resposta um\nUsuário: segunda\nAssistente: resposta dois"
	if got != want {
		t.Errorf("history = %q, want %q", got, want)
	}
}

func TestHistoryText_WindowsToLastTurns(t *testing.T) {
	turns := []domain.Turn{
		{Role: domain.RoleUser, Content: "antiga"},
		{Role: domain.RoleUser, Content: "recente"},
		{Role: domain.RoleAssistant, Content: "resposta"},
	}

	got := HistoryText(turns, 2)
	if strings.Contains(got, "antiga") {
		t.Errorf("turns beyond the window must be dropped: %q", got)
	}
	if !strings.Contains(got, "recente") || !strings.Contains(got, "resposta") {
		t.Errorf("window must keep the most recent turns: %q", got)
	}
}

func TestHistoryText_SkipsEmptyTurns(t *testing.T) {
	turns := []domain.Turn{
		{Role: domain.RoleUser, Content: "  "},
		{Role: domain.RoleAssistant, Content: "ok"},
	}
	if got := HistoryText(turns, 8); got != "Assistente: ok" {
		t.Errorf("history = %q, want only the non-empty turn", got)
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"duplicate lines collapse", "mesma linha\nmesma linha\noutra", "mesma linha\noutra"},
		{"blank runs collapse", "a\n\n\n\nb", "a\n\nb"},
		{"space before punctuation", "certo , sim !", "certo, sim!"},
		{"missing space after punctuation", "primeiro.segundo", "primeiro. segundo"},
		{"strips assistant prefix", "Assistente: a resposta", "a resposta"},
		{"strips answer prefix", "Resposta: conteúdo", "conteúdo"},
		{"trims whitespace", "  texto  \n", "texto"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Sanitize(tc.in); got != tc.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
