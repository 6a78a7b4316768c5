package state

import (
	"testing"
	"time"
)

func TestDefaultState(t *testing.T) {
	t.Parallel()

	st := DefaultState()
	if st.ActiveSkill != SkillNone || st.Step != StepNone {
		t.Fatalf("DefaultState() = %s/%s, want NONE/NONE", st.ActiveSkill, st.Step)
	}
	if st.ConfusionCount != 0 || st.DeclineCount != 0 || st.TTLExpiresAt != nil || st.InHandover() {
		t.Fatalf("DefaultState() not zeroed: %#v", st)
	}
}

func TestIsExpired(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	past := now.Add(-time.Second)
	future := now.Add(time.Second)

	if IsExpired(nil, now) {
		t.Fatal("nil ttl must never expire")
	}
	if !IsExpired(&past, now) {
		t.Fatal("past ttl must be expired")
	}
	if !IsExpired(&now, now) {
		t.Fatal("ttl equal to now must be expired")
	}
	if IsExpired(&future, now) {
		t.Fatal("future ttl must not be expired")
	}
}

func TestBumpTTL(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	if got := BumpTTL(now, 0); !got.Equal(now.Add(60 * time.Minute)) {
		t.Fatalf("BumpTTL(now, 0) = %v, want +60m", got)
	}
	if got := BumpTTL(now, 5); !got.Equal(now.Add(5 * time.Minute)) {
		t.Fatalf("BumpTTL(now, 5) = %v, want +5m", got)
	}
}

func TestMergeBufferTexts(t *testing.T) {
	t.Parallel()

	got := MergeBufferTexts([]string{"  oi ", "", "   ", "quero agendar", "corte\n"})
	if got != "oi\nquero agendar\ncorte" {
		t.Fatalf("MergeBufferTexts() = %q", got)
	}
	if got := MergeBufferTexts(nil); got != "" {
		t.Fatalf("MergeBufferTexts(nil) = %q, want empty", got)
	}
}

func TestSoftResetKeepsGreeting(t *testing.T) {
	t.Parallel()

	greetedAt := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	st := ConversationState{
		ActiveSkill:        SkillScheduling,
		Step:               StepAwaitingDatetime,
		Slots:              Slots{ServiceID: "svc-1"},
		UserAlreadyGreeted: true,
		LastGreetingAt:     &greetedAt,
		ConfusionCount:     2,
	}

	reset := SoftReset(st)
	if reset.ActiveSkill != SkillNone || reset.Step != StepNone || reset.Slots != (Slots{}) || reset.ConfusionCount != 0 {
		t.Fatalf("SoftReset() kept skill state: %#v", reset)
	}
	if !reset.UserAlreadyGreeted || reset.LastGreetingAt == nil || !reset.LastGreetingAt.Equal(greetedAt) {
		t.Fatalf("SoftReset() lost greeting: %#v", reset)
	}
}
