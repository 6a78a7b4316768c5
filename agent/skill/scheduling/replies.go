package scheduling

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/contract"
	datetimex "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/datetime"
	"github.com/tanpawarit/Chative-Scheduling-Assistant/agent/professional"
	statex "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/state"
)

const (
	replyStart           = "Perfeito! Qual serviço você gostaria de agendar?"
	replyServiceRetry    = "Não encontrei esse serviço. Pode me dizer qual deles você quer?"
	replyAskDatetime     = "Ótimo, %s! Para qual dia e horário você prefere? Por exemplo: \"amanhã às 10h\" ou \"sexta à tarde\"."
	replyDatetimeRetry   = "Não consegui entender a data ou o horário. Pode me dizer, por exemplo, \"amanhã às 10h\" ou \"sexta à tarde\"?"
	replyInvalidHour     = "Esse horário não existe. Me diga um horário entre 00h e 23h, por exemplo 10h ou 14:30."
	replySuggest         = "Para %s %s, tenho %s. Pode ser?"
	replyDeclined        = "Sem problemas! Qual outro horário ou período fica melhor para você?"
	replyAskProfessional = "Com qual profissional você prefere?\n%s\n\nSe não tiver preferência, é só dizer \"tanto faz\"."
	replyProfRetry       = "Não encontrei esse nome. Escolha pelo número ou pelo nome:\n%s"
	replyConfirm         = "Confirmando: %s em %s%s. Posso agendar? (sim/não)"
	replyBooked          = "Prontinho! Seu horário de %s ficou para %s%s. Até lá!"
	replyAskAnotherDate  = "Tudo bem! Qual outro dia e horário você prefere?"
	replyHandover        = "Vou chamar alguém da nossa equipe para continuar seu atendimento. Só um instante!"
)

var periodPhrase = map[statex.Period]string{
	statex.PeriodManha: "de manhã",
	statex.PeriodTarde: "à tarde",
	statex.PeriodNoite: "à noite",
}

var stepLabel = map[statex.Step]string{
	statex.StepAwaitingService:      "escolha do serviço",
	statex.StepAwaitingDatetime:     "escolha de data e horário",
	statex.StepAwaitingProfessional: "escolha do profissional",
	statex.StepAwaitingConfirm:      "confirmação",
}

func servicePrompt(prefix string, services []contractx.Service) string {
	if len(services) == 0 {
		return prefix
	}
	return prefix + "\n" + FormatServiceList(services)
}

// FormatServiceList renders the numbered service menu with prices when known.
func FormatServiceList(services []contractx.Service) string {
	var b strings.Builder
	for i, s := range services {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", i+1, s.Name)
		if s.Price != nil {
			fmt.Fprintf(&b, " - %s", formatPrice(*s.Price))
		}
	}
	return b.String()
}

func formatPrice(v float64) string {
	return "R$ " + strings.Replace(fmt.Sprintf("%.2f", v), ".", ",", 1)
}

func suggestPrompt(dateISO string, period statex.Period, suggested string) string {
	return fmt.Sprintf(replySuggest, datetimex.FormatDisplay(dateISO, ""), periodPhrase[period], suggested)
}

func professionalPrompt(eligible []contractx.Professional) string {
	return fmt.Sprintf(replyAskProfessional, professional.FormatProfessionalList(eligible))
}

func withProfessional(name string) string {
	if name == "" {
		return ""
	}
	return " com " + name
}

func confirmPrompt(s statex.Slots) string {
	return fmt.Sprintf(replyConfirm, s.ServiceLabel, datetimex.FormatDisplay(s.DateISO, s.Time), withProfessional(s.ProfessionalName))
}

func bookedReply(s statex.Slots) string {
	return fmt.Sprintf(replyBooked, s.ServiceLabel, datetimex.FormatDisplay(s.DateISO, s.Time), withProfessional(s.ProfessionalName))
}

// handoverSummary tells the operator why the bot gave up and what it had collected.
func handoverSummary(st statex.ConversationState, reason string) string {
	parts := []string{"Motivo: " + reason}
	s := st.Slots
	if s.ServiceLabel != "" {
		parts = append(parts, "Serviço: "+s.ServiceLabel)
	}
	if s.DateISO != "" {
		parts = append(parts, "Data: "+datetimex.FormatDisplay(s.DateISO, s.Time))
	}
	if s.Period != statex.PeriodNone {
		parts = append(parts, "Período: "+datetimex.PeriodLabel[s.Period])
	}
	if s.LastDeclinedPeriod != statex.PeriodNone {
		parts = append(parts, "Período recusado: "+datetimex.PeriodLabel[s.LastDeclinedPeriod])
	}
	if s.ProfessionalName != "" {
		parts = append(parts, "Profissional: "+s.ProfessionalName)
	}
	return strings.Join(parts, ". ") + "."
}
