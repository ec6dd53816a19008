package plan

import (
	"sort"
	"strings"

	"github.com/suporteia/atena/internal/domain"
)

// expansions maps support vocabulary to related terms appended to the query
// before retrieval. Keys and synonyms are stored accent-free; matching runs
// on normalized text. Could move to config later if the table starts churning.
var expansions = map[string][]string{
	"senha":           {"password", "login", "acesso", "autenticacao", "credencial", "logar", "entrar", "autenticar"},
	"login":           {"senha", "acesso", "entrar", "logar", "credencial", "usuario"},
	"acesso":          {"senha", "login", "permissao", "autorizacao", "entrar", "acessar"},
	"bloqueado":       {"travado", "bloqueio", "locked", "impedido", "trancado"},
	"desbloquear":     {"destravar", "liberar", "unlock", "desbloquear"},
	"email":           {"e-mail", "correio", "outlook", "webmail", "mensagem", "mail", "correio eletronico"},
	"mensagem":        {"email", "msg", "comunicacao", "aviso"},
	"internet":        {"rede", "conexao", "wifi", "network", "conectividade", "online", "web"},
	"rede":            {"internet", "conexao", "network", "wifi", "lan", "conectividade"},
	"wifi":            {"wireless", "sem fio", "rede", "internet", "conexao"},
	"vpn":             {"rede privada", "acesso remoto", "conexao segura", "virtual private"},
	"impressora":      {"imprimir", "impressao", "printer", "documento", "pagina"},
	"imprimir":        {"impressora", "impressao", "printer", "documento", "papel"},
	"scanner":         {"escanear", "digitalizar", "scan", "digitalizacao"},
	"sistema":         {"aplicacao", "programa", "software", "app", "aplicativo", "plataforma"},
	"aplicacao":       {"sistema", "programa", "software", "app", "aplicativo"},
	"programa":        {"sistema", "aplicacao", "software", "app", "ferramenta"},
	"instalar":        {"instalacao", "setup", "configurar", "baixar", "download"},
	"atualizar":       {"update", "atualizacao", "upgrade", "nova versao"},
	"lento":           {"devagar", "travando", "performance", "lag", "demora", "lerdo", "demorado"},
	"travando":        {"congelando", "lento", "travado", "freeze", "parado", "nao responde"},
	"travado":         {"travando", "congelado", "freeze", "parado", "bloqueado"},
	"erro":            {"falha", "problema", "bug", "defeito", "issue", "error", "nao funciona"},
	"problema":        {"erro", "falha", "bug", "issue", "dificuldade", "defeito"},
	"falha":           {"erro", "problema", "bug", "nao funciona", "quebrado"},
	"nao funciona":    {"erro", "problema", "falha", "quebrado", "defeito", "parou"},
	"computador":      {"pc", "notebook", "laptop", "maquina", "desktop", "micro"},
	"notebook":        {"laptop", "computador", "portatil", "pc"},
	"teclado":         {"keyboard", "teclas", "digitar"},
	"mouse":           {"cursor", "ponteiro", "clique"},
	"monitor":         {"tela", "display", "video", "screen"},
	"arquivo":         {"documento", "file", "pasta", "dados", "doc"},
	"pasta":           {"diretorio", "folder", "arquivo", "pasta"},
	"documento":       {"arquivo", "doc", "file", "texto"},
	"backup":          {"copia de seguranca", "backup", "recuperacao", "restaurar"},
	"video":           {"videoconferencia", "reuniao", "meet", "zoom", "teams", "conferencia"},
	"reuniao":         {"meeting", "videoconferencia", "chamada", "video", "encontro"},
	"teams":           {"microsoft teams", "reuniao", "chat", "videoconferencia"},
	"zoom":            {"reuniao", "videoconferencia", "chamada", "video"},
	"servidor":        {"server", "servidores", "maquina", "host", "infraestrutura", "datacenter"},
	"servidores":      {"servidor", "server", "maquinas", "hosts", "infraestrutura"},
	"maquina virtual": {"vm", "virtual machine", "virtualizacao", "servidor virtual", "maquina"},
	"vm":              {"maquina virtual", "virtual machine", "virtualizacao", "servidor virtual"},
	"virtual":         {"vm", "virtualizacao", "maquina virtual", "virtual machine"},
	"lista":           {"relacao", "listagem", "inventario", "catalogo", "registro"},
	"configurar":      {"configuracao", "setup", "ajustar", "parametrizar", "definir"},
	"resetar":         {"reiniciar", "reset", "restaurar", "limpar", "reboot"},
	"reiniciar":       {"restart", "reboot", "resetar", "religar"},
	"deletar":         {"excluir", "apagar", "remover", "delete"},
	"recuperar":       {"restaurar", "recovery", "backup", "resgatar"},
}

// Expand appends synonyms of recognized terms to the question. Short questions
// (three words or fewer) get up to four synonyms per matched term, longer ones
// get three. Terms already present in the question are never appended, and the
// original question text is preserved as the prefix.
func Expand(question string) string {
	normalized := domain.Normalize(question)
	words := domain.Words(question)

	numSynonyms := 3
	if len(words) <= 3 {
		numSynonyms = 4
	}

	matched := make(map[string]bool)
	terms := make(map[string]bool)

	for _, word := range words {
		if len([]rune(word)) < 3 {
			continue
		}
		for key, synonyms := range expansions {
			if !matched[key] && (key == word || strings.Contains(word, key) || strings.Contains(key, word)) {
				matched[key] = true
				n := numSynonyms
				if n > len(synonyms) {
					n = len(synonyms)
				}
				for _, syn := range synonyms[:n] {
					terms[syn] = true
				}
			}
		}
	}

	var extra []string
	for term := range terms {
		if !strings.Contains(normalized, domain.Normalize(term)) {
			extra = append(extra, term)
		}
	}
	if len(extra) == 0 {
		return question
	}
	sort.Strings(extra)

	return question + " " + strings.Join(extra, " ")
}
