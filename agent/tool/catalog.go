package tool

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/contract"
)

// Infos is the tool catalog bound to the responder model.
func Infos() []*schema.ToolInfo {
	return []*schema.ToolInfo{
		{
			Name: contractx.ToolStartScheduling,
			Desc: "Start the appointment booking flow when the customer wants to schedule a service.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"service_name": {Type: schema.String, Desc: "Service the customer mentioned, if any"},
			}),
		},
		{
			Name:        contractx.ToolListServices,
			Desc:        "List the services offered with their prices.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
		},
		{
			Name: contractx.ToolListProfessionals,
			Desc: "List the professionals, optionally only those who perform a given service.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"service_name": {Type: schema.String, Desc: "Restrict to professionals performing this service"},
			}),
		},
	}
}

// Decode turns a model tool call into its typed request. Empty arguments are
// accepted as "{}".
func Decode(name, arguments string) (contractx.ToolRequest, error) {
	raw := strings.TrimSpace(arguments)
	if raw == "" {
		raw = "{}"
	}

	switch name {
	case contractx.ToolStartScheduling:
		var req contractx.StartSchedulingRequest
		if err := json.Unmarshal([]byte(raw), &req); err != nil {
			return nil, fmt.Errorf("%w: %s arguments: %v", contractx.ErrSchemaViolation, name, err)
		}
		req.ServiceName = strings.TrimSpace(req.ServiceName)
		return req, nil
	case contractx.ToolListServices:
		return contractx.ListServicesRequest{}, nil
	case contractx.ToolListProfessionals:
		var req contractx.ListProfessionalsRequest
		if err := json.Unmarshal([]byte(raw), &req); err != nil {
			return nil, fmt.Errorf("%w: %s arguments: %v", contractx.ErrSchemaViolation, name, err)
		}
		req.ServiceName = strings.TrimSpace(req.ServiceName)
		return req, nil
	default:
		return nil, fmt.Errorf("%w: %q", contractx.ErrUnknownTool, name)
	}
}
