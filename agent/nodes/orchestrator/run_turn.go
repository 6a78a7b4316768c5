package orchestratornode

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	contractx "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/contract"
	"github.com/tanpawarit/Chative-Scheduling-Assistant/agent/skill/scheduling"
	statex "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/state"
	toolx "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/tool"
	logx "github.com/tanpawarit/Chative-Scheduling-Assistant/pkg/logger"
)

// FallbackReply is sent when the generic responder cannot answer.
const FallbackReply = "Desculpe, não consegui processar sua mensagem agora. Pode repetir, por favor?"

// RunTurn routes the turn: a conversation in handover gets nothing, an active
// skill owns the turn, a scheduling intent starts the skill, and everything
// else goes to the generic responder.
func RunTurn(
	ctx context.Context,
	in *GraphState,
	responder contractx.TurnResponder,
	ttlMinutes int,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	st := in.State
	sc := scheduling.SkillContext{
		Services:      in.Catalog.Services,
		Professionals: in.Catalog.Professionals,
		Assignments:   in.Catalog.Assignments,
		Now:           in.Now,
		TTLMinutes:    ttlMinutes,
	}

	switch {
	case st.InHandover():
		logx.Conversation(in.ConversationID).Debug().Msg("conversation in handover, no reply")
		return in, nil
	case st.SchedulingActive():
		applySkill(ctx, in, responder, scheduling.HandleSchedulingTurn(st, in.Text, sc))
	case scheduling.IsSchedulingIntent(in.Text):
		startSkill(ctx, in, responder, sc, in.Text)
	default:
		respond(ctx, in, responder, sc)
	}
	return in, nil
}

// startSkill enters the skill and, when hint names a service, runs the first
// skill turn on it right away.
func startSkill(
	ctx context.Context,
	in *GraphState,
	responder contractx.TurnResponder,
	sc scheduling.SkillContext,
	hint string,
) {
	start := scheduling.StartSchedulingWithServices(sc)
	if _, ok := scheduling.MatchService(hint, sc.Services); !ok {
		applySkill(ctx, in, responder, start)
		return
	}

	entered := statex.Apply(in.State, start.NextState)
	next := scheduling.HandleSchedulingTurn(entered, hint, sc)
	next.NextState = start.NextState.Merge(next.NextState)
	applySkill(ctx, in, responder, next)
}

func applySkill(
	ctx context.Context,
	in *GraphState,
	responder contractx.TurnResponder,
	r scheduling.Result,
) {
	if r.InterruptionQuery {
		answer, err := ask(ctx, in, responder, true)
		if err != nil {
			logx.Conversation(in.ConversationID).Warn().Err(err).
				Msg("responder failed on interruption, sending skill reply only")
		}
		in.addReply(answer.Text)
	}

	in.Patch = in.Patch.Merge(r.NextState)
	in.addReply(r.ReplyText)

	if r.Booking != nil {
		booking := *r.Booking
		booking.ID = uuid.NewString()
		booking.ConversationID = in.ConversationID
		in.Booking = &booking
	}
	if r.Handover && r.NextState.HandoverAt != nil {
		in.Handover = &contractx.HandoverEvent{
			ConversationID: in.ConversationID,
			Summary:        r.HandoverSummary,
			At:             *r.NextState.HandoverAt,
		}
	}
}

// respond answers with the generic responder and executes its tool calls.
func respond(
	ctx context.Context,
	in *GraphState,
	responder contractx.TurnResponder,
	sc scheduling.SkillContext,
) {
	resp, err := ask(ctx, in, responder, false)
	if err != nil {
		logx.Conversation(in.ConversationID).Warn().Err(err).
			Msg("responder failed, sending fallback reply")
		in.addReply(FallbackReply)
		return
	}
	in.addReply(resp.Text)

	started := false
	for _, call := range resp.ToolCalls {
		out, err := toolx.Dispatch(call, in.Catalog)
		if err != nil {
			logx.Conversation(in.ConversationID).Warn().Err(err).Msg("tool dispatch failed")
			continue
		}
		if out.StartScheduling {
			if !started {
				started = true
				startSkill(ctx, in, responder, sc, out.ServiceHint)
			}
			continue
		}
		in.addReply(out.Reply)
	}

	if len(in.Replies) == 0 {
		in.addReply(FallbackReply)
	}
}

func ask(
	ctx context.Context,
	in *GraphState,
	responder contractx.TurnResponder,
	interruption bool,
) (contractx.Response, error) {
	if responder == nil {
		return contractx.Response{}, errors.New("responder is not configured")
	}
	return responder.Respond(ctx, in.Text, contractx.SessionContext{
		ConversationID: in.ConversationID,
		AlreadyGreeted: in.State.UserAlreadyGreeted,
		ActiveStep:     in.State.Step,
		Interruption:   interruption,
		Catalog:        in.Catalog,
		Now:            in.Now,
	})
}
