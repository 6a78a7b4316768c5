// Package scheduling is the slot-filling dialogue that books one service:
//
//	NONE -> AWAITING_SERVICE -> AWAITING_DATETIME -> [AWAITING_PROFESSIONAL] -> AWAITING_CONFIRM -> NONE
//
// Every function here is pure. The caller owns the state and persists
// Result.NextState through the state store.
package scheduling

import (
	"fmt"
	"time"

	contractx "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/contract"
	datetimex "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/datetime"
	"github.com/tanpawarit/Chative-Scheduling-Assistant/agent/professional"
	statex "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/state"
)

// SkillContext is the read-only data a turn may consult.
type SkillContext struct {
	Services      []contractx.Service
	Professionals []contractx.Professional
	Assignments   []contractx.Assignment
	Now           time.Time
	TTLMinutes    int
}

// Result is the outcome of one turn. Handover and Booking are signals for the
// caller; InterruptionQuery asks it to run the generic responder before
// sending ReplyText.
type Result struct {
	NextState         statex.Patch
	ReplyText         string
	Handover          bool
	HandoverSummary   string
	InterruptionQuery bool
	Booking           *contractx.BookingRequest
}

func (sc SkillContext) now() time.Time {
	if sc.Now.IsZero() {
		return time.Now()
	}
	return sc.Now
}

// StartScheduling enters the skill at AWAITING_SERVICE with fresh slots.
func StartScheduling(now time.Time) Result {
	p := statex.Patch{
		ActiveSkill:    statex.Ptr(statex.SkillScheduling),
		Step:           statex.Ptr(statex.StepAwaitingService),
		ClearSlots:     true,
		ConfusionCount: statex.Ptr(0),
		DeclineCount:   statex.Ptr(0),
		TTLExpiresAt:   statex.Ptr(statex.BumpTTL(now, statex.StateTTLMinutes)),
	}
	return Result{NextState: p, ReplyText: replyStart}
}

// StartSchedulingWithServices is StartScheduling with the catalog listed in
// the opening prompt.
func StartSchedulingWithServices(sc SkillContext) Result {
	r := StartScheduling(sc.now())
	r.NextState.TTLExpiresAt = statex.Ptr(statex.BumpTTL(sc.now(), sc.TTLMinutes))
	r.ReplyText = servicePrompt(replyStart, sc.Services)
	return r
}

// HandleSchedulingTurn is the transition function of the skill. It never fails:
// every branch yields a reply and a state delta.
func HandleSchedulingTurn(st statex.ConversationState, text string, sc SkillContext) Result {
	if st.InHandover() {
		return Result{Handover: true, HandoverSummary: st.HandoverSummary}
	}

	t := turn{st: st, text: text, sc: sc, interruption: IsInterruption(text)}
	var r Result
	switch st.Step {
	case statex.StepAwaitingService:
		r = t.awaitingService()
	case statex.StepAwaitingDatetime:
		r = t.awaitingDatetime()
	case statex.StepAwaitingProfessional:
		r = t.awaitingProfessional()
	case statex.StepAwaitingConfirm:
		r = t.awaitingConfirm()
	default:
		return StartSchedulingWithServices(sc)
	}
	if t.interruption && !r.Handover {
		r.InterruptionQuery = true
	}
	return r
}

type turn struct {
	st           statex.ConversationState
	text         string
	sc           SkillContext
	interruption bool
}

// patch starts a delta that keeps the dialogue alive for another TTL.
func (t turn) patch() statex.Patch {
	return statex.Patch{TTLExpiresAt: statex.Ptr(statex.BumpTTL(t.sc.now(), t.sc.TTLMinutes))}
}

/* --------------------------- AWAITING_SERVICE --------------------------- */

func (t turn) awaitingService() Result {
	svc, ok := MatchService(t.text, t.sc.Services)
	if !ok {
		return t.confused(servicePrompt(replyServiceRetry, t.sc.Services))
	}

	p := t.patch()
	p.SetSlot(statex.SlotServiceID, svc.ID)
	p.SetSlot(statex.SlotServiceLabel, svc.Name)
	p.ConfusionCount = statex.Ptr(0)

	if dt := datetimex.Parse(t.text, t.sc.now()); dt.Kind == datetimex.KindExact {
		t.fillExact(&p, dt)
		return t.afterDatetime(p)
	}

	p.Step = statex.Ptr(statex.StepAwaitingDatetime)
	return Result{NextState: p, ReplyText: fmt.Sprintf(replyAskDatetime, svc.Name)}
}

/* -------------------------- AWAITING_DATETIME --------------------------- */

func (t turn) awaitingDatetime() Result {
	slots := t.st.Slots
	pending := slots.SuggestedTime != ""
	dt := datetimex.Parse(t.text, t.sc.now())

	if pending && isAffirmative(t.text) &&
		(dt.Kind == datetimex.KindNone || (dt.Kind == datetimex.KindPeriod && dt.Period == slots.Period)) {
		p := t.patch()
		if dt.Kind == datetimex.KindPeriod && dt.DateExplicit {
			p.SetSlot(statex.SlotDateISO, dt.DateISO)
		}
		p.SetSlot(statex.SlotTime, slots.SuggestedTime)
		p.SetSlot(statex.SlotPeriod, "")
		p.SetSlot(statex.SlotSuggestedTime, "")
		p.ConfusionCount = statex.Ptr(0)
		p.DeclineCount = statex.Ptr(0)
		return t.afterDatetime(p)
	}

	switch dt.Kind {
	case datetimex.KindInvalidHour:
		return Result{NextState: t.patch(), ReplyText: replyInvalidHour}

	case datetimex.KindExact:
		p := t.patch()
		t.fillExact(&p, dt)
		p.ConfusionCount = statex.Ptr(0)
		p.DeclineCount = statex.Ptr(0)
		return t.afterDatetime(p)

	case datetimex.KindPeriod:
		p := t.patch()
		if pending && dt.Period != slots.Period {
			p.SetSlot(statex.SlotLastDeclinedPeriod, string(slots.Period))
			if r, over := t.declined(&p); over {
				return r
			}
		}
		suggested := datetimex.PeriodSuggestions[dt.Period]
		p.SetSlot(statex.SlotDateISO, dt.DateISO)
		p.SetSlot(statex.SlotPeriod, string(dt.Period))
		p.SetSlot(statex.SlotSuggestedTime, suggested)
		p.ConfusionCount = statex.Ptr(0)
		return Result{NextState: p, ReplyText: suggestPrompt(dt.DateISO, dt.Period, suggested)}
	}

	if pending && isNegative(t.text) {
		p := t.patch()
		p.SetSlot(statex.SlotLastDeclinedPeriod, string(slots.Period))
		p.SetSlot(statex.SlotSuggestedTime, "")
		if r, over := t.declined(&p); over {
			return r
		}
		return Result{NextState: p, ReplyText: replyDeclined}
	}

	return t.confused(replyDatetimeRetry)
}

// declined counts one rejected suggestion on p. At the ceiling it returns the
// handover result and true.
func (t turn) declined(p *statex.Patch) (Result, bool) {
	n := t.st.DeclineCount + 1
	p.DeclineCount = statex.Ptr(n)
	if n >= statex.MaxDeclines {
		reached := statex.Apply(t.st, *p)
		return t.handover(reached, fmt.Sprintf("cliente recusou %d sugestões de horário", n)), true
	}
	return Result{}, false
}

// fillExact writes an exact date and time. A bare hour keeps the day already
// in the slots.
func (t turn) fillExact(p *statex.Patch, dt datetimex.Result) {
	p.SetSlot(statex.SlotDateISO, t.exactDate(dt))
	p.SetSlot(statex.SlotTime, dt.Time)
	p.SetSlot(statex.SlotPeriod, "")
	p.SetSlot(statex.SlotSuggestedTime, "")
}

// afterDatetime routes a patch that completed date and time to the
// professional choice or straight to confirmation.
func (t turn) afterDatetime(p statex.Patch) Result {
	next := statex.Apply(t.st, p)
	eligible := professional.ResolveAptProfessionals(next.Slots.ServiceID, t.sc.Professionals, t.sc.Assignments)

	switch len(eligible) {
	case 0:
		p.SetSlot(statex.SlotProfessionalID, "")
		p.SetSlot(statex.SlotProfessionalName, "")
		return t.toConfirm(p)
	case 1:
		p.SetSlot(statex.SlotProfessionalID, eligible[0].ID)
		p.SetSlot(statex.SlotProfessionalName, eligible[0].Name)
		return t.toConfirm(p)
	}

	p.Step = statex.Ptr(statex.StepAwaitingProfessional)
	return Result{NextState: p, ReplyText: professionalPrompt(eligible)}
}

func (t turn) toConfirm(p statex.Patch) Result {
	p.Step = statex.Ptr(statex.StepAwaitingConfirm)
	next := statex.Apply(t.st, p)
	return Result{NextState: p, ReplyText: confirmPrompt(next.Slots)}
}

/* ------------------------ AWAITING_PROFESSIONAL ------------------------- */

func (t turn) awaitingProfessional() Result {
	eligible := professional.ResolveAptProfessionals(t.st.Slots.ServiceID, t.sc.Professionals, t.sc.Assignments)
	if len(eligible) == 0 || hasNoPreference(t.text) {
		p := t.patch()
		p.SetSlot(statex.SlotProfessionalID, "")
		p.SetSlot(statex.SlotProfessionalName, "")
		p.ConfusionCount = statex.Ptr(0)
		return t.toConfirm(p)
	}

	pro, ok := professional.FuzzyMatchProfessional(t.text, eligible)
	if !ok {
		return t.confused(fmt.Sprintf(replyProfRetry, professional.FormatProfessionalList(eligible)))
	}

	p := t.patch()
	p.SetSlot(statex.SlotProfessionalID, pro.ID)
	p.SetSlot(statex.SlotProfessionalName, pro.Name)
	p.ConfusionCount = statex.Ptr(0)
	return t.toConfirm(p)
}

/* --------------------------- AWAITING_CONFIRM --------------------------- */

func (t turn) exactDate(dt datetimex.Result) string {
	if !dt.DateExplicit && t.st.Slots.DateISO != "" {
		return t.st.Slots.DateISO
	}
	return dt.DateISO
}

func (t turn) awaitingConfirm() Result {
	slots := t.st.Slots
	dt := datetimex.Parse(t.text, t.sc.now())

	// A different exact date or time is an explicit correction, even when it
	// comes with a yes ("sim, às 16h").
	switch dt.Kind {
	case datetimex.KindInvalidHour:
		return Result{NextState: t.patch(), ReplyText: replyInvalidHour}
	case datetimex.KindExact:
		if t.exactDate(dt) != slots.DateISO || dt.Time != slots.Time {
			p := t.patch()
			t.fillExact(&p, dt)
			p.ConfusionCount = statex.Ptr(0)
			return t.toConfirm(p)
		}
	}

	switch {
	case isAffirmative(t.text):
		booking := &contractx.BookingRequest{
			ServiceID:        slots.ServiceID,
			ServiceLabel:     slots.ServiceLabel,
			DateISO:          slots.DateISO,
			Time:             slots.Time,
			ProfessionalID:   slots.ProfessionalID,
			ProfessionalName: slots.ProfessionalName,
		}
		p := statex.Patch{
			ActiveSkill:    statex.Ptr(statex.SkillNone),
			Step:           statex.Ptr(statex.StepNone),
			ClearSlots:     true,
			ConfusionCount: statex.Ptr(0),
			DeclineCount:   statex.Ptr(0),
			ClearTTL:       true,
		}
		return Result{NextState: p, ReplyText: bookedReply(slots), Booking: booking}

	case isNegative(t.text):
		p := t.patch()
		p.Step = statex.Ptr(statex.StepAwaitingDatetime)
		p.SetSlot(statex.SlotDateISO, "")
		p.SetSlot(statex.SlotTime, "")
		p.SetSlot(statex.SlotPeriod, "")
		p.SetSlot(statex.SlotSuggestedTime, "")
		p.ConfusionCount = statex.Ptr(0)
		return Result{NextState: p, ReplyText: replyAskAnotherDate}
	}

	return t.confused(confirmPrompt(slots))
}

/* ------------------------- Confusion / handover ------------------------- */

// confused re-prompts and counts one misunderstanding, handing over at the
// ceiling. An interruption query re-prompts without counting.
func (t turn) confused(reprompt string) Result {
	p := t.patch()
	if t.interruption {
		return Result{NextState: p, ReplyText: reprompt, InterruptionQuery: true}
	}

	n := t.st.ConfusionCount + 1
	p.ConfusionCount = statex.Ptr(n)
	if n >= statex.MaxConfusion {
		reached := statex.Apply(t.st, p)
		return t.handover(reached, fmt.Sprintf("cliente não foi compreendido %d vezes na %s", n, stepLabel[t.st.Step]))
	}
	return Result{NextState: p, ReplyText: reprompt}
}

// handover escalates to a human. Slots stay for the operator to read; the
// skill position is reset and reached is the state the summary describes.
func (t turn) handover(reached statex.ConversationState, reason string) Result {
	summary := handoverSummary(reached, reason)
	p := statex.Patch{
		ActiveSkill:     statex.Ptr(statex.SkillNone),
		Step:            statex.Ptr(statex.StepNone),
		ConfusionCount:  statex.Ptr(reached.ConfusionCount),
		DeclineCount:    statex.Ptr(reached.DeclineCount),
		ClearTTL:        true,
		HandoverSummary: statex.Ptr(summary),
		HandoverAt:      statex.Ptr(t.sc.now().UTC()),
	}
	for key, val := range slotsOf(reached.Slots) {
		p.SetSlot(key, val)
	}
	return Result{NextState: p, ReplyText: replyHandover, Handover: true, HandoverSummary: summary}
}

func slotsOf(s statex.Slots) map[statex.SlotKey]string {
	return map[statex.SlotKey]string{
		statex.SlotServiceID:          s.ServiceID,
		statex.SlotServiceLabel:       s.ServiceLabel,
		statex.SlotDateISO:            s.DateISO,
		statex.SlotTime:               s.Time,
		statex.SlotPeriod:             string(s.Period),
		statex.SlotSuggestedTime:      s.SuggestedTime,
		statex.SlotLastDeclinedPeriod: string(s.LastDeclinedPeriod),
		statex.SlotProfessionalID:     s.ProfessionalID,
		statex.SlotProfessionalName:   s.ProfessionalName,
	}
}
