package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestApplyOverwritesScalarsAndMergesSlots(t *testing.T) {
	t.Parallel()

	st := DefaultState()
	st.ActiveSkill = SkillScheduling
	st.Step = StepAwaitingDatetime
	st.Slots = Slots{ServiceID: "svc-1", ServiceLabel: "Corte"}

	var p Patch
	p.Step = Ptr(StepAwaitingConfirm)
	p.SetSlot(SlotDateISO, "2026-01-02")
	p.SetSlot(SlotTime, "10:00")

	got := Apply(st, p)
	require.Equal(t, StepAwaitingConfirm, got.Step)
	require.Equal(t, SkillScheduling, got.ActiveSkill)
	require.Equal(t, Slots{ServiceID: "svc-1", ServiceLabel: "Corte", DateISO: "2026-01-02", Time: "10:00"}, got.Slots)
}

func TestApplyEmptySlotValueClears(t *testing.T) {
	t.Parallel()

	st := DefaultState()
	st.Slots = Slots{DateISO: "2026-01-02", Time: "10:00", ProfessionalID: "p1"}

	var p Patch
	p.SetSlot(SlotDateISO, "")
	p.SetSlot(SlotTime, "")

	got := Apply(st, p)
	require.Equal(t, Slots{ProfessionalID: "p1"}, got.Slots)
}

func TestApplyClampsCounters(t *testing.T) {
	t.Parallel()

	got := Apply(DefaultState(), Patch{ConfusionCount: Ptr(7), DeclineCount: Ptr(-2)})
	require.Equal(t, MaxConfusion, got.ConfusionCount)
	require.Equal(t, 0, got.DeclineCount)
}

func TestApplyRepairsStepSkillInvariant(t *testing.T) {
	t.Parallel()

	got := Apply(DefaultState(), Patch{Step: Ptr(StepAwaitingService)})
	require.Equal(t, SkillScheduling, got.ActiveSkill)

	st := DefaultState()
	st.ActiveSkill = SkillScheduling
	st.Step = StepAwaitingConfirm
	got = Apply(st, Patch{ActiveSkill: Ptr(SkillNone)})
	require.Equal(t, SkillNone, got.ActiveSkill)
	require.Equal(t, StepNone, got.Step)
}

func TestApplyClearFlags(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	st := DefaultState()
	st.TTLExpiresAt = &now
	st.HandoverAt = &now
	st.HandoverSummary = "ajuda"
	st.Slots = Slots{ServiceID: "svc"}

	got := Apply(st, Patch{ClearTTL: true, ClearHandover: true, ClearSlots: true})
	require.Nil(t, got.TTLExpiresAt)
	require.Nil(t, got.HandoverAt)
	require.Empty(t, got.HandoverSummary)
	require.Equal(t, Slots{}, got.Slots)
}

func TestPatchMergeMatchesSequentialApply(t *testing.T) {
	t.Parallel()

	ttl := time.Date(2026, 1, 1, 11, 0, 0, 0, time.UTC)
	first := Patch{Step: Ptr(StepAwaitingService), ConfusionCount: Ptr(1)}
	first.SetSlot(SlotServiceID, "svc-1")

	second := Patch{TTLExpiresAt: &ttl, ClearSlots: true}
	second.SetSlot(SlotDateISO, "2026-01-02")

	base := DefaultState()
	sequential := Apply(Apply(base, first), second)
	merged := Apply(base, first.Merge(second))
	require.Equal(t, sequential, merged)
	require.True(t, Patch{}.IsEmpty())
	require.False(t, second.IsEmpty())
}
