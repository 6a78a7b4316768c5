package state

import "time"

// SlotKey names one field of Slots inside a Patch.
type SlotKey string

const (
	SlotServiceID          SlotKey = "service_id"
	SlotServiceLabel       SlotKey = "service_label"
	SlotDateISO            SlotKey = "date_iso"
	SlotTime               SlotKey = "time"
	SlotPeriod             SlotKey = "period"
	SlotSuggestedTime      SlotKey = "suggested_time"
	SlotLastDeclinedPeriod SlotKey = "last_declined_period"
	SlotProfessionalID     SlotKey = "professional_id"
	SlotProfessionalName   SlotKey = "professional_name"
)

// Patch is a partial ConversationState. Merge rules (see Apply):
//   - nil pointer fields are left untouched, set ones overwrite;
//   - Slots merge key-wise, "" clears a slot; ClearSlots empties the record first;
//   - ClearTTL and ClearHandover null the corresponding instants.
type Patch struct {
	ActiveSkill *Skill `json:"active_skill,omitempty"`
	Step        *Step  `json:"step,omitempty"`

	Slots      map[SlotKey]string `json:"slots,omitempty"`
	ClearSlots bool               `json:"clear_slots,omitempty"`

	UserAlreadyGreeted *bool      `json:"user_already_greeted,omitempty"`
	LastGreetingAt     *time.Time `json:"last_greeting_at,omitempty"`

	ConfusionCount *int `json:"confusion_count,omitempty"`
	DeclineCount   *int `json:"decline_count,omitempty"`

	TTLExpiresAt *time.Time `json:"ttl_expires_at,omitempty"`
	ClearTTL     bool       `json:"clear_ttl,omitempty"`

	HandoverSummary *string    `json:"handover_summary,omitempty"`
	HandoverAt      *time.Time `json:"handover_at,omitempty"`
	ClearHandover   bool       `json:"clear_handover,omitempty"`
}

// Ptr returns a pointer to v, for building patches inline.
func Ptr[T any](v T) *T {
	return &v
}

// SetSlot records a key-wise slot write on the patch.
func (p *Patch) SetSlot(key SlotKey, val string) {
	if p.Slots == nil {
		p.Slots = make(map[SlotKey]string, 4)
	}
	p.Slots[key] = val
}

// IsEmpty reports whether applying p would change nothing.
func (p Patch) IsEmpty() bool {
	return p.ActiveSkill == nil && p.Step == nil && len(p.Slots) == 0 && !p.ClearSlots &&
		p.UserAlreadyGreeted == nil && p.LastGreetingAt == nil &&
		p.ConfusionCount == nil && p.DeclineCount == nil &&
		p.TTLExpiresAt == nil && !p.ClearTTL &&
		p.HandoverSummary == nil && p.HandoverAt == nil && !p.ClearHandover
}

// Merge folds next over p so that applying the result equals applying p then next.
func (p Patch) Merge(next Patch) Patch {
	out := p
	if next.ActiveSkill != nil {
		out.ActiveSkill = next.ActiveSkill
	}
	if next.Step != nil {
		out.Step = next.Step
	}
	if next.ClearSlots {
		out.ClearSlots = true
		out.Slots = nil
	}
	if len(next.Slots) > 0 {
		merged := make(map[SlotKey]string, len(out.Slots)+len(next.Slots))
		for k, v := range out.Slots {
			merged[k] = v
		}
		for k, v := range next.Slots {
			merged[k] = v
		}
		out.Slots = merged
	}
	if next.UserAlreadyGreeted != nil {
		out.UserAlreadyGreeted = next.UserAlreadyGreeted
	}
	if next.LastGreetingAt != nil {
		out.LastGreetingAt = next.LastGreetingAt
	}
	if next.ConfusionCount != nil {
		out.ConfusionCount = next.ConfusionCount
	}
	if next.DeclineCount != nil {
		out.DeclineCount = next.DeclineCount
	}
	if next.ClearTTL {
		out.ClearTTL, out.TTLExpiresAt = true, nil
	}
	if next.TTLExpiresAt != nil {
		out.ClearTTL, out.TTLExpiresAt = false, next.TTLExpiresAt
	}
	if next.ClearHandover {
		out.ClearHandover, out.HandoverSummary, out.HandoverAt = true, nil, nil
	}
	if next.HandoverSummary != nil {
		out.HandoverSummary = next.HandoverSummary
	}
	if next.HandoverAt != nil {
		out.ClearHandover, out.HandoverAt = false, next.HandoverAt
	}
	return out
}

// Apply is the single reducer for ConversationState.
func Apply(st ConversationState, p Patch) ConversationState {
	out := st

	if p.ActiveSkill != nil {
		out.ActiveSkill = *p.ActiveSkill
	}
	if p.Step != nil {
		out.Step = *p.Step
	} else if p.ActiveSkill != nil && *p.ActiveSkill == SkillNone {
		out.Step = StepNone
	}

	if p.ClearSlots {
		out.Slots = Slots{}
	}
	for key, val := range p.Slots {
		out.Slots = setSlot(out.Slots, key, val)
	}

	if p.UserAlreadyGreeted != nil {
		out.UserAlreadyGreeted = *p.UserAlreadyGreeted
	}
	if p.LastGreetingAt != nil {
		at := p.LastGreetingAt.UTC()
		out.LastGreetingAt = &at
	}

	if p.ConfusionCount != nil {
		out.ConfusionCount = clampCounter(*p.ConfusionCount, MaxConfusion)
	}
	if p.DeclineCount != nil {
		out.DeclineCount = clampCounter(*p.DeclineCount, MaxDeclines)
	}

	if p.ClearTTL {
		out.TTLExpiresAt = nil
	}
	if p.TTLExpiresAt != nil {
		at := p.TTLExpiresAt.UTC()
		out.TTLExpiresAt = &at
	}

	if p.ClearHandover {
		out.HandoverSummary = ""
		out.HandoverAt = nil
	}
	if p.HandoverSummary != nil {
		out.HandoverSummary = *p.HandoverSummary
	}
	if p.HandoverAt != nil {
		at := p.HandoverAt.UTC()
		out.HandoverAt = &at
	}

	return normalize(out)
}

func setSlot(s Slots, key SlotKey, val string) Slots {
	switch key {
	case SlotServiceID:
		s.ServiceID = val
	case SlotServiceLabel:
		s.ServiceLabel = val
	case SlotDateISO:
		s.DateISO = val
	case SlotTime:
		s.Time = val
	case SlotPeriod:
		s.Period = Period(val)
	case SlotSuggestedTime:
		s.SuggestedTime = val
	case SlotLastDeclinedPeriod:
		s.LastDeclinedPeriod = Period(val)
	case SlotProfessionalID:
		s.ProfessionalID = val
	case SlotProfessionalName:
		s.ProfessionalName = val
	}
	return s
}

func clampCounter(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// normalize repairs enum zero values and the step/skill invariant.
func normalize(st ConversationState) ConversationState {
	if st.ActiveSkill == "" {
		st.ActiveSkill = SkillNone
	}
	if st.Step == "" {
		st.Step = StepNone
	}
	if st.Step != StepNone {
		st.ActiveSkill = SkillScheduling
	}
	if st.ActiveSkill == SkillNone {
		st.Step = StepNone
	}
	return st
}
