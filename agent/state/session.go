package state

import (
	"strings"
	"time"
)

const (
	// StateTTLMinutes is how long an idle skill keeps its position.
	StateTTLMinutes = 60
	// DebounceWindow is how long the orchestrator waits for more fragments.
	DebounceWindow = 2500 * time.Millisecond
	// DedupWindow is the default reply dedup window.
	DedupWindow = 10 * time.Minute

	MaxConfusion = 3
	MaxDeclines  = 3
)

type Skill string

const (
	SkillNone       Skill = "NONE"
	SkillScheduling Skill = "SCHEDULING"
)

type Step string

const (
	StepNone                 Step = "NONE"
	StepAwaitingService      Step = "AWAITING_SERVICE"
	StepAwaitingDatetime     Step = "AWAITING_DATETIME"
	StepAwaitingConfirm      Step = "AWAITING_CONFIRM"
	StepAwaitingProfessional Step = "AWAITING_PROFESSIONAL"
)

// Period is a part of the day understood without an exact hour.
type Period string

const (
	PeriodNone  Period = ""
	PeriodManha Period = "MANHA"
	PeriodTarde Period = "TARDE"
	PeriodNoite Period = "NOITE"
)

// Slots are the scheduling facts collected so far. Empty means not collected.
type Slots struct {
	ServiceID          string `json:"service_id,omitempty"`
	ServiceLabel       string `json:"service_label,omitempty"`
	DateISO            string `json:"date_iso,omitempty"`
	Time               string `json:"time,omitempty"`
	Period             Period `json:"period,omitempty"`
	SuggestedTime      string `json:"suggested_time,omitempty"`
	LastDeclinedPeriod Period `json:"last_declined_period,omitempty"`
	ProfessionalID     string `json:"professional_id,omitempty"`
	ProfessionalName   string `json:"professional_name,omitempty"`
}

// ConversationState is the persisted dialogue position of one conversation.
// Greeting fields are conversation-scoped and survive skill resets.
type ConversationState struct {
	ActiveSkill Skill `json:"active_skill"`
	Step        Step  `json:"step"`
	Slots       Slots `json:"slots"`

	UserAlreadyGreeted bool       `json:"user_already_greeted"`
	LastGreetingAt     *time.Time `json:"last_greeting_at,omitempty"`

	ConfusionCount int `json:"confusion_count"`
	DeclineCount   int `json:"decline_count"`

	TTLExpiresAt *time.Time `json:"ttl_expires_at,omitempty"`

	HandoverSummary string     `json:"handover_summary,omitempty"`
	HandoverAt      *time.Time `json:"handover_at,omitempty"`

	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

/* ----------------------------- Constructors ----------------------------- */

// DefaultState returns the all-NONE state of a conversation never seen before.
func DefaultState() ConversationState {
	return ConversationState{
		ActiveSkill: SkillNone,
		Step:        StepNone,
	}
}

// SoftReset drops everything but the greeting fields.
func SoftReset(st ConversationState) ConversationState {
	reset := DefaultState()
	reset.UserAlreadyGreeted = st.UserAlreadyGreeted
	reset.LastGreetingAt = st.LastGreetingAt
	reset.UpdatedAt = st.UpdatedAt
	return reset
}

/* ------------------------------ Predicates ------------------------------ */

// IsExpired reports whether ttl is set and not after now.
func IsExpired(ttl *time.Time, now time.Time) bool {
	return ttl != nil && !now.Before(*ttl)
}

// InHandover reports whether a human operator owns the conversation.
func (s ConversationState) InHandover() bool {
	return s.HandoverAt != nil
}

// SchedulingActive reports whether the scheduling skill owns the next turn.
func (s ConversationState) SchedulingActive() bool {
	return s.ActiveSkill == SkillScheduling && s.Step != StepNone
}

/* ------------------------------- Helpers -------------------------------- */

// BumpTTL returns now + minutes; minutes <= 0 uses StateTTLMinutes.
func BumpTTL(now time.Time, minutes int) time.Time {
	if minutes <= 0 {
		minutes = StateTTLMinutes
	}
	return now.Add(time.Duration(minutes) * time.Minute).UTC()
}

// MergeBufferTexts joins the non-empty fragments received inside one debounce
// window into a single turn text.
func MergeBufferTexts(texts []string) string {
	parts := make([]string, 0, len(texts))
	for _, t := range texts {
		if trimmed := strings.TrimSpace(t); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}
