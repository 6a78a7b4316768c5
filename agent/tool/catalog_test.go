package tool

import (
	"errors"
	"strings"
	"testing"

	contractx "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/contract"
)

func testCatalog() contractx.Catalog {
	price := 45.0
	return contractx.Catalog{
		Services: []contractx.Service{
			{ID: "s1", Name: "Corte de cabelo", Price: &price},
			{ID: "s2", Name: "Barba"},
		},
		Professionals: []contractx.Professional{
			{ID: "p1", Name: "Ana Silva", Active: true},
			{ID: "p2", Name: "Bruno Costa", Active: true},
			{ID: "p3", Name: "Carla Souza", Active: false},
		},
		Assignments: []contractx.Assignment{
			{ProfessionalID: "p2", ServiceID: "s2", Enabled: true},
		},
	}
}

func TestInfos(t *testing.T) {
	t.Parallel()

	infos := Infos()
	if len(infos) != 3 {
		t.Fatalf("expected 3 tool infos, got %d", len(infos))
	}
	want := []string{contractx.ToolStartScheduling, contractx.ToolListServices, contractx.ToolListProfessionals}
	for i, name := range want {
		if infos[i].Name != name {
			t.Fatalf("tool %d: expected %s, got %s", i, name, infos[i].Name)
		}
	}
}

func TestDecode(t *testing.T) {
	t.Parallel()

	req, err := Decode(contractx.ToolStartScheduling, `{"service_name":" Barba "}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	start, ok := req.(contractx.StartSchedulingRequest)
	if !ok || start.ServiceName != "Barba" {
		t.Fatalf("unexpected request: %#v", req)
	}

	req, err = Decode(contractx.ToolListServices, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := req.(contractx.ListServicesRequest); !ok {
		t.Fatalf("unexpected request: %#v", req)
	}

	if _, err := Decode("math.evaluate", `{}`); !errors.Is(err, contractx.ErrUnknownTool) {
		t.Fatalf("expected ErrUnknownTool, got %v", err)
	}
	if _, err := Decode(contractx.ToolListProfessionals, `{"service_name":`); !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("expected ErrSchemaViolation, got %v", err)
	}
}

func TestDispatchStartScheduling(t *testing.T) {
	t.Parallel()

	out, err := Dispatch(contractx.StartSchedulingRequest{ServiceName: "barba"}, testCatalog())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.StartScheduling || out.ServiceHint != "barba" || out.Reply != "" {
		t.Fatalf("unexpected outcome: %#v", out)
	}
}

func TestDispatchListServices(t *testing.T) {
	t.Parallel()

	out, err := Dispatch(contractx.ListServicesRequest{}, testCatalog())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.Reply, "1. Corte de cabelo - R$ 45,00") || !strings.Contains(out.Reply, "2. Barba") {
		t.Fatalf("unexpected reply: %q", out.Reply)
	}

	out, _ = Dispatch(contractx.ListServicesRequest{}, contractx.Catalog{})
	if out.Reply != replyNoServices {
		t.Fatalf("unexpected reply: %q", out.Reply)
	}
}

func TestDispatchListProfessionals(t *testing.T) {
	t.Parallel()

	out, err := Dispatch(contractx.ListProfessionalsRequest{}, testCatalog())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Reply != "Nossos profissionais:\n1. Ana Silva\n2. Bruno Costa" {
		t.Fatalf("unexpected reply: %q", out.Reply)
	}

	out, _ = Dispatch(contractx.ListProfessionalsRequest{ServiceName: "barba"}, testCatalog())
	if out.Reply != "Profissionais que fazem Barba:\n1. Bruno Costa" {
		t.Fatalf("unexpected reply: %q", out.Reply)
	}

	out, _ = Dispatch(contractx.ListProfessionalsRequest{ServiceName: "corte"}, testCatalog())
	if out.Reply != replyNoProfessionals {
		t.Fatalf("unexpected reply: %q", out.Reply)
	}
}

func TestDispatchNilRequest(t *testing.T) {
	t.Parallel()

	if _, err := Dispatch(nil, testCatalog()); !errors.Is(err, contractx.ErrUnknownTool) {
		t.Fatalf("expected ErrUnknownTool, got %v", err)
	}
}
