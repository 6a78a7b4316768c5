package tool

import (
	"fmt"

	contractx "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/contract"
	"github.com/tanpawarit/Chative-Scheduling-Assistant/agent/professional"
	"github.com/tanpawarit/Chative-Scheduling-Assistant/agent/skill/scheduling"
)

const (
	replyNoServices      = "No momento não temos serviços cadastrados."
	replyServices        = "Estes são os nossos serviços:\n%s"
	replyNoProfessionals = "No momento não há profissionais disponíveis."
	replyProfessionals   = "Nossos profissionais:\n%s"
	replyProfsByService  = "Profissionais que fazem %s:\n%s"
)

// Outcome is what the orchestrator does with a tool request. StartScheduling
// asks it to enter the scheduling skill, seeded with ServiceHint.
type Outcome struct {
	Reply           string
	StartScheduling bool
	ServiceHint     string
}

// Dispatch resolves one tool request against the catalog snapshot of the turn.
func Dispatch(req contractx.ToolRequest, catalog contractx.Catalog) (Outcome, error) {
	switch r := req.(type) {
	case contractx.StartSchedulingRequest:
		return Outcome{StartScheduling: true, ServiceHint: r.ServiceName}, nil
	case contractx.ListServicesRequest:
		return listServices(catalog), nil
	case contractx.ListProfessionalsRequest:
		return listProfessionals(r, catalog), nil
	default:
		return Outcome{}, fmt.Errorf("%w: %T", contractx.ErrUnknownTool, req)
	}
}

func listServices(c contractx.Catalog) Outcome {
	if len(c.Services) == 0 {
		return Outcome{Reply: replyNoServices}
	}
	return Outcome{Reply: fmt.Sprintf(replyServices, scheduling.FormatServiceList(c.Services))}
}

func listProfessionals(r contractx.ListProfessionalsRequest, c contractx.Catalog) Outcome {
	if r.ServiceName != "" {
		if svc, ok := scheduling.MatchService(r.ServiceName, c.Services); ok {
			eligible := professional.ResolveAptProfessionals(svc.ID, c.Professionals, c.Assignments)
			if len(eligible) == 0 {
				return Outcome{Reply: replyNoProfessionals}
			}
			return Outcome{Reply: fmt.Sprintf(replyProfsByService, svc.Name, professional.FormatProfessionalList(eligible))}
		}
	}

	active := professional.ResolveAptProfessionals("", c.Professionals, nil)
	if len(active) == 0 {
		return Outcome{Reply: replyNoProfessionals}
	}
	return Outcome{Reply: fmt.Sprintf(replyProfessionals, professional.FormatProfessionalList(active))}
}
