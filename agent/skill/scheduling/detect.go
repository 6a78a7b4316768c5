package scheduling

import (
	"strconv"
	"strings"

	contractx "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/contract"
	datetimex "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/datetime"
	"github.com/tanpawarit/Chative-Scheduling-Assistant/agent/textnorm"
)

var (
	staffPhrases = []string{
		"quem atende", "quem vai me atender", "quem faz", "quem trabalha",
		"quais profissionais", "qual profissional", "quais os profissionais",
		"profissionais disponiveis", "tem profissional", "quem sao os profissionais",
	}
	infoPhrases = []string{
		"quanto custa", "quanto e", "quanto fica", "qual o valor", "qual valor", "valores",
		"preco", "tabela", "horario de funcionamento", "que horas abre", "que horas fecha",
		"ate que horas", "abre que horas", "endereco", "onde fica", "localizacao",
		"forma de pagamento", "aceita cartao", "aceita pix", "estacionamento",
	}
	intentPhrases = []string{
		"quero um horario", "queria um horario", "gostaria de um horario",
		"quero horario", "preciso de um horario", "tem como marcar",
	}
	intentWords = map[string]struct{}{
		"marcar": {}, "marca": {}, "reservar": {}, "reserva": {},
	}
	affirmativeWords = map[string]struct{}{
		"sim": {}, "s": {}, "isso": {}, "pode": {}, "confirmo": {}, "confirma": {}, "confirmar": {},
		"claro": {}, "ok": {}, "okay": {}, "beleza": {}, "blz": {}, "certo": {}, "perfeito": {},
		"fechado": {}, "combinado": {}, "bora": {}, "yes": {}, "positivo": {}, "otimo": {}, "show": {},
	}
	affirmativePhrases = []string{"com certeza", "ta bom", "esta bom", "pode ser", "isso mesmo", "pode marcar", "pode agendar"}
	negativeWords      = map[string]struct{}{
		"nao": {}, "n": {}, "negativo": {}, "nunca": {}, "cancela": {}, "cancelar": {},
	}
	negativePhrases = []string{
		"outro horario", "outra hora", "outro dia", "outra data", "melhor nao",
		"prefiro outro", "nao da", "nao posso", "nao consigo",
	}
	noPreferencePhrases = []string{
		"qualquer", "tanto faz", "sem preferencia", "nao tenho preferencia", "indiferente",
		"quem estiver livre", "quem tiver disponivel", "quem puder",
	}
	// Words too generic to identify a service on their own.
	stopWords = map[string]struct{}{
		"quero": {}, "queria": {}, "gostaria": {}, "fazer": {}, "agendar": {}, "marcar": {},
		"para": {}, "pode": {}, "servico": {}, "horario": {}, "amanha": {}, "hoje": {},
		"manha": {}, "tarde": {}, "noite": {}, "favor": {}, "obrigado": {}, "obrigada": {},
		"uma": {}, "umas": {}, "como": {}, "esse": {}, "essa": {}, "isso": {}, "mesmo": {},
	}
)

// IsStaffQuestion flags questions about who performs the services.
func IsStaffQuestion(text string) bool {
	return textnorm.ContainsAny(textnorm.Normalize(text), staffPhrases...)
}

// IsInfoQuestion flags questions about prices, opening hours and the place.
func IsInfoQuestion(text string) bool {
	return textnorm.ContainsAny(textnorm.Normalize(text), infoPhrases...)
}

// IsAvailabilityQuestion flags vague availability requests ("tem horario?").
func IsAvailabilityQuestion(text string) bool {
	return datetimex.IsAvailabilityQuestion(text)
}

// IsInterruption reports whether text is a question the generic responder
// should answer before the skill re-sends its prompt.
func IsInterruption(text string) bool {
	return IsStaffQuestion(text) || IsInfoQuestion(text) || IsAvailabilityQuestion(text)
}

// IsSchedulingIntent reports whether text asks to book something.
func IsSchedulingIntent(text string) bool {
	norm := textnorm.Normalize(text)
	if textnorm.ContainsAny(norm, "desmarc", "cancel") {
		return false
	}
	if textnorm.ContainsAny(norm, intentPhrases...) {
		return true
	}
	for _, w := range textnorm.Words(norm) {
		if strings.HasPrefix(w, "agend") {
			return true
		}
		if _, ok := intentWords[w]; ok {
			return true
		}
	}
	return false
}

// MatchService resolves text against services in order: a 1-based index, an
// exact name, a substring in either direction, then a shared significant word.
func MatchService(text string, services []contractx.Service) (contractx.Service, bool) {
	query := textnorm.Normalize(strings.Trim(strings.TrimSpace(text), ".!?"))
	if query == "" || len(services) == 0 {
		return contractx.Service{}, false
	}

	if textnorm.IsNumeric(query) {
		idx, err := strconv.Atoi(query)
		if err != nil || idx < 1 || idx > len(services) {
			return contractx.Service{}, false
		}
		return services[idx-1], true
	}

	for _, s := range services {
		if textnorm.Normalize(s.Name) == query {
			return s, true
		}
	}
	for _, s := range services {
		name := textnorm.Normalize(s.Name)
		if name == "" {
			continue
		}
		if strings.Contains(query, name) || (len(query) >= 3 && strings.Contains(name, query)) {
			return s, true
		}
	}

	queryWords := significantWords(query)
	for _, s := range services {
		for w := range significantWords(s.Name) {
			if _, ok := queryWords[w]; ok {
				return s, true
			}
		}
	}
	return contractx.Service{}, false
}

func significantWords(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range textnorm.Words(text) {
		if len(w) < 4 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		out[w] = struct{}{}
	}
	return out
}

func isNegative(text string) bool {
	norm := textnorm.Normalize(text)
	if textnorm.ContainsAny(norm, negativePhrases...) {
		return true
	}
	return hasAnyWord(norm, negativeWords)
}

func isAffirmative(text string) bool {
	if isNegative(text) {
		return false
	}
	norm := textnorm.Normalize(text)
	if textnorm.ContainsAny(norm, affirmativePhrases...) {
		return true
	}
	return hasAnyWord(norm, affirmativeWords)
}

func hasNoPreference(text string) bool {
	return textnorm.ContainsAny(textnorm.Normalize(text), noPreferencePhrases...)
}

func hasAnyWord(norm string, set map[string]struct{}) bool {
	for _, w := range textnorm.Words(norm) {
		if _, ok := set[w]; ok {
			return true
		}
	}
	return false
}
