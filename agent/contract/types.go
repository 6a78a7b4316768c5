package contract

import (
	"time"

	statex "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/state"
)

/* ------------------------------- Catalog -------------------------------- */

type Service struct {
	ID    string   `json:"id" yaml:"id"`
	Name  string   `json:"name" yaml:"name"`
	Price *float64 `json:"price,omitempty" yaml:"price,omitempty"`
}

type Professional struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Active bool   `json:"active" yaml:"active"`
}

// Assignment says whether a professional performs a service.
type Assignment struct {
	ProfessionalID string `json:"professional_id" yaml:"professional_id"`
	ServiceID      string `json:"service_id" yaml:"service_id"`
	Enabled        bool   `json:"enabled" yaml:"enabled"`
}

// Catalog is the read-only lookup data fetched fresh for each turn.
type Catalog struct {
	Services      []Service      `json:"services" yaml:"services"`
	Professionals []Professional `json:"professionals" yaml:"professionals"`
	Assignments   []Assignment   `json:"assignments" yaml:"assignments"`
}

/* ------------------------------ Responder ------------------------------- */

// SessionContext is what the generic responder sees about the conversation.
type SessionContext struct {
	ConversationID string      `json:"conversation_id"`
	AlreadyGreeted bool        `json:"already_greeted"`
	ActiveStep     statex.Step `json:"active_step"`
	Interruption   bool        `json:"interruption"`
	Catalog        Catalog     `json:"catalog"`
	Now            time.Time   `json:"now"`
}

type Response struct {
	Text      string        `json:"text"`
	ToolCalls []ToolRequest `json:"-"`
}

/* ---------------------------- Tool requests ----------------------------- */

const (
	ToolStartScheduling   = "start_scheduling"
	ToolListServices      = "list_services"
	ToolListProfessionals = "list_professionals"
)

// ToolRequest is the closed set of tool calls the responder may emit.
// Only types in this package implement it.
type ToolRequest interface {
	ToolName() string
	isToolRequest()
}

type StartSchedulingRequest struct {
	ServiceName string `json:"service_name,omitempty"`
}

type ListServicesRequest struct{}

type ListProfessionalsRequest struct {
	ServiceName string `json:"service_name,omitempty"`
}

func (StartSchedulingRequest) ToolName() string   { return ToolStartScheduling }
func (ListServicesRequest) ToolName() string      { return ToolListServices }
func (ListProfessionalsRequest) ToolName() string { return ToolListProfessionals }

func (StartSchedulingRequest) isToolRequest()   {}
func (ListServicesRequest) isToolRequest()      {}
func (ListProfessionalsRequest) isToolRequest() {}

/* -------------------------------- Events -------------------------------- */

// BookingRequest is the booking-ready signal of a confirmed scheduling dialogue.
// Persisting the appointment belongs to whoever consumes it.
type BookingRequest struct {
	ID               string `json:"id"`
	ConversationID   string `json:"conversation_id"`
	ServiceID        string `json:"service_id"`
	ServiceLabel     string `json:"service_label"`
	DateISO          string `json:"date_iso"`
	Time             string `json:"time"`
	ProfessionalID   string `json:"professional_id,omitempty"`
	ProfessionalName string `json:"professional_name,omitempty"`
}

type HandoverEvent struct {
	ConversationID string    `json:"conversation_id"`
	Summary        string    `json:"summary"`
	At             time.Time `json:"at"`
}
