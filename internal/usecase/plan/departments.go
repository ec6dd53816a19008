package plan

import (
	"regexp"
	"sort"
	"strings"
)

// Department names as stored in document payloads.
const (
	DeptTI         = "TI"
	DeptRH         = "RH"
	DeptFinanceiro = "Financeiro"
	DeptLoteamento = "Loteamento"
	DeptAluguel    = "Aluguel"
	DeptJuridico   = "Juridico"
)

// keywordTiers groups department vocabulary by specificity. More specific
// terms weigh more when scoring a question against a department.
type keywordTiers struct {
	high   []string // weight 3
	medium []string // weight 2
	low    []string // weight 1
}

var departmentKeywords = map[string]keywordTiers{
	DeptTI: {
		high: []string{
			"vpn", "active directory", "dns", "dhcp", "firewall", "antivirus",
			"backup", "outlook", "windows", "linux", "servidor", "rede",
			"switch", "roteador", "ip", "proxy", "wi-fi", "wifi",
		},
		medium: []string{
			"senha", "login", "acesso", "email", "impressora", "computador",
			"sistema", "software", "internet", "chamado", "ticket",
			"instalação", "configuração", "permissão",
		},
		low: []string{
			"tela", "mouse", "teclado", "monitor", "notebook", "desktop",
		},
	},
	DeptRH: {
		high: []string{
			"férias", "holerite", "folha de pagamento", "ponto eletrônico",
			"admissão", "demissão", "rescisão", "dcct", "fgts", "inss",
			"vale-transporte", "vale-refeição", "plano de saúde",
		},
		medium: []string{
			"salário", "benefícios", "atestado", "licença", "afastamento",
			"treinamento", "curso", "colaborador", "funcionário",
			"contrato de trabalho", "registro", "carteira",
		},
		low: []string{
			"aniversário", "uniforme", "crachá",
		},
	},
	DeptFinanceiro: {
		high: []string{
			"nota fiscal", "nfe", "nfse", "danfe", "boleto", "fatura",
			"pagamento", "cobrança", "inadimplência", "juros",
			"prestação de contas", "centro de custo", "orçamento",
		},
		medium: []string{
			"reembolso", "despesa", "adiantamento", "conta", "débito",
			"crédito", "transferência", "pix", "ted", "doc",
		},
		low: []string{
			"dinheiro", "valor", "custo", "preço",
		},
	},
	DeptLoteamento: {
		high: []string{
			"loteamento", "desmembramento", "remembramento", "gleba",
			"infraestrutura", "pavimentação", "esgoto", "água",
			"registro de imóvel", "matrícula", "averbação",
		},
		medium: []string{
			"lote", "terreno", "quadra", "área", "metragem",
			"escritura", "projeto", "aprovação", "licença",
		},
		low: []string{
			"divisa", "confrontante", "testada",
		},
	},
	DeptAluguel: {
		high: []string{
			"locação", "locatário", "locador", "inquilino", "fiador",
			"caução", "garantia locatícia", "seguro fiança",
			"vistoria de entrada", "vistoria de saída", "rescisão de contrato",
		},
		medium: []string{
			"aluguel", "imóvel", "residencial", "comercial",
			"contrato de locação", "inadimplência", "despejo",
			"iptu", "condomínio", "repasse",
		},
		low: []string{
			"casa", "apartamento", "sala",
		},
	},
	DeptJuridico: {
		high: []string{
			"processo", "ação judicial", "recurso", "sentença",
			"alvará", "procuração", "substabelecimento", "petição",
		},
		medium: []string{
			"contrato", "cláusula", "aditivo", "rescisão contratual",
			"acordo", "multa", "indenização", "prazo legal",
		},
		low: []string{
			"direito", "lei", "legislação", "norma",
		},
	},
}

// departmentPatterns captures verb+object phrasings that identify a
// department even when individual keywords are ambiguous. A pattern match
// weighs 5.
var departmentPatterns = map[string][]*regexp.Regexp{
	DeptTI: {
		regexp.MustCompile(`resetar.*senha`),
		regexp.MustCompile(`configurar.*email`),
		regexp.MustCompile(`instalar.*software`),
		regexp.MustCompile(`erro.*sistema`),
		regexp.MustCompile(`problema.*internet`),
	},
	DeptRH: {
		regexp.MustCompile(`tirar.*f[ée]rias`),
		regexp.MustCompile(`solicitar.*atestado`),
		regexp.MustCompile(`bater.*ponto`),
		regexp.MustCompile(`(receber|consultar).*holerite`),
	},
	DeptFinanceiro: {
		regexp.MustCompile(`emitir.*nota`),
		regexp.MustCompile(`solicitar.*reembolso`),
		regexp.MustCompile(`pagar.*boleto`),
		regexp.MustCompile(`enviar.*nfe`),
	},
	DeptLoteamento: {
		regexp.MustCompile(`registrar.*lote`),
		regexp.MustCompile(`aprovação.*projeto`),
		regexp.MustCompile(`escritura.*terreno`),
	},
	DeptAluguel: {
		regexp.MustCompile(`alugar.*im[óo]vel`),
		regexp.MustCompile(`rescindir.*loca[çc][ãa]o`),
		regexp.MustCompile(`renovar.*contrato.*aluguel`),
	},
	DeptJuridico: {
		regexp.MustCompile(`abrir.*processo`),
		regexp.MustCompile(`revisar.*contrato`),
		regexp.MustCompile(`cl[áa]usula.*contratual`),
	},
}

func departmentScore(questionLower, dept string) int {
	score := 0
	tiers := departmentKeywords[dept]
	for _, kw := range tiers.high {
		if strings.Contains(questionLower, kw) {
			score += 3
		}
	}
	for _, kw := range tiers.medium {
		if strings.Contains(questionLower, kw) {
			score += 2
		}
	}
	for _, kw := range tiers.low {
		if strings.Contains(questionLower, kw) {
			score += 1
		}
	}
	for _, pat := range departmentPatterns[dept] {
		if pat.MatchString(questionLower) {
			score += 5
		}
	}
	return score
}

// ClassifyDepartments returns up to topN departments the question belongs to,
// ordered by relevance. An empty result means the question gives no
// department signal and retrieval should search everywhere.
//
// A runner-up only makes the cut within 20% of the top score. When the top
// score is at least three times the runner-up, the top department wins alone.
func ClassifyDepartments(question string, topN int) []string {
	questionLower := strings.ToLower(question)

	type deptScore struct {
		dept  string
		score int
	}
	var scored []deptScore
	for dept := range departmentKeywords {
		if s := departmentScore(questionLower, dept); s > 0 {
			scored = append(scored, deptScore{dept, s})
		}
	}
	if len(scored) == 0 {
		return nil
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].dept < scored[j].dept
	})

	top := scored[0]
	if len(scored) > 1 && top.score >= scored[1].score*3 {
		return []string{top.dept}
	}

	result := []string{top.dept}
	for _, ds := range scored[1:] {
		if len(result) >= topN {
			break
		}
		if float64(ds.score) >= float64(top.score)*0.8 {
			result = append(result, ds.dept)
		}
	}
	return result
}

// DepartmentConfidence scores how strongly the question belongs to the
// department, normalized to [0, 1] against a practical ceiling of 15.
func DepartmentConfidence(question, dept string) float64 {
	score := departmentScore(strings.ToLower(question), dept)
	confidence := float64(score) / 15.0
	if confidence > 1 {
		confidence = 1
	}
	return confidence
}
