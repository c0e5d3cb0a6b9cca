package parkour

import (
	"context"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

// startRun puts the session into a run at z=1.
func startRun(t *testing.T, s *Session, b *fakeBody) {
	t.Helper()
	b.pos = mgl64.Vec3{0, 64, -1}
	move(s, b, mgl64.Vec3{0, 64, 1})
	if s.Phase() != PhaseRunning {
		t.Fatalf("expected Running, got %s", s.Phase())
	}
}

func TestStallFailsAtThreshold(t *testing.T) {
	tests := []struct {
		name   string
		stall  StallConfig
		health float64
	}{
		{"default", StallConfig{Period: 2, Damage: 1, Threshold: 1, ImmunityTicks: 1}, 20},
		{"slow heavy", StallConfig{Period: 5, Damage: 3, Threshold: 1, ImmunityTicks: 0}, 20},
		{"low health", StallConfig{Period: 1, Damage: 2, Threshold: 4, ImmunityTicks: 1}, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := DefaultConfig()
			conf.Stall = tt.stall
			lvl := testLevel(t, 100, "")
			h := newHarness(t, conf, nil, lvl)
			s, b, _ := h.play(t, lvl)
			b.health = tt.health
			startRun(t, s, b)

			armedAt := h.m.Scheduler().Now()
			s.OnSprintToggle(b, false)

			// The run fails on the first application k where H - k*D <= threshold.
			k := 0
			for tt.health-float64(k)*tt.stall.Damage > tt.stall.Threshold {
				k++
			}
			want := armedAt + 1 + uint64(k*tt.stall.Period)

			for i := 0; i < 1000 && len(h.handler.fails) == 0; i++ {
				h.ticks(1)
			}
			if got := h.handler.lastFail(t).Reason; got != ReasonStall {
				t.Fatalf("expected %s, got %s", ReasonStall, got)
			}
			if got := h.handler.failTicks[0]; got != want {
				t.Fatalf("expected failure on tick %d, got %d", want, got)
			}
			if len(b.damage) != k {
				t.Fatalf("expected %d damage applications, got %d", k, len(b.damage))
			}
			if s.StallArmed() {
				t.Fatalf("stall timer still armed after failure")
			}
			if b.health != b.maxHealth {
				t.Fatalf("expected health restored, got %v", b.health)
			}

			h.ticks(20)
			if len(h.handler.fails) != 1 {
				t.Fatalf("expected exactly one failure, got %d", len(h.handler.fails))
			}
			if h.m.Scheduler().Pending() != 0 {
				t.Fatalf("leaked %d tasks after termination", h.m.Scheduler().Pending())
			}
		})
	}
}

func TestStallSingleTimer(t *testing.T) {
	lvl := testLevel(t, 100, "")
	h := newHarness(t, DefaultConfig(), nil, lvl)
	s, b, _ := h.play(t, lvl)
	startRun(t, s, b)

	s.OnSprintToggle(b, false)
	s.OnSprintToggle(b, true)
	s.OnSprintToggle(b, false)
	s.OnSprintToggle(b, false)

	if !s.StallArmed() {
		t.Fatalf("expected the stall timer to be armed")
	}
	if n := h.m.Scheduler().Pending(); n != 1 {
		t.Fatalf("expected one armed timer, got %d", n)
	}

	h.ticks(1)
	if len(b.damage) != 1 {
		t.Fatalf("expected one damage application on the first tick, got %d", len(b.damage))
	}
}

func TestStallDisarmedBySprinting(t *testing.T) {
	lvl := testLevel(t, 100, "")
	h := newHarness(t, DefaultConfig(), nil, lvl)
	s, b, _ := h.play(t, lvl)
	startRun(t, s, b)

	s.OnSprintToggle(b, false)
	h.ticks(3)
	damaged := len(b.damage)
	if damaged == 0 {
		t.Fatalf("expected damage while not sprinting")
	}

	s.OnSprintToggle(b, true)
	h.ticks(10)
	if len(b.damage) != damaged {
		t.Fatalf("damage dealt after sprinting again")
	}
	if s.Phase() != PhaseRunning {
		t.Fatalf("run ended after sprinting again")
	}
	if h.presenter.countSound(SoundWarning) != 1 {
		t.Fatalf("expected one warning sound")
	}
}

func TestStallIgnoredOutsideRun(t *testing.T) {
	lvl := testLevel(t, 100, "")
	h := newHarness(t, DefaultConfig(), nil, lvl)
	s, b, _ := h.play(t, lvl)

	s.OnSprintToggle(b, false)
	if s.StallArmed() {
		t.Fatalf("stall timer armed outside of a run")
	}
}

func TestStallCancelledWhenUnreachable(t *testing.T) {
	lvl := testLevel(t, 100, "")
	h := newHarness(t, DefaultConfig(), nil, lvl)
	s, b, ref := h.play(t, lvl)
	startRun(t, s, b)

	s.OnSprintToggle(b, false)
	ref.setOnline(false)
	h.ticks(1)

	if s.StallArmed() {
		t.Fatalf("stall timer still armed for an unreachable player")
	}
	if h.m.Scheduler().Pending() != 0 {
		t.Fatalf("expected no pending tasks")
	}
}

func TestStallFailsCreativePlayer(t *testing.T) {
	lvl := testLevel(t, 100, "")
	h := newHarness(t, DefaultConfig(), nil, lvl)
	b := newFakeBody(lvl.Spawn)
	b.creative = true

	s, err := h.m.Play(context.Background(), newFakeRef(b), b, lvl.ID)
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if b.creative {
		t.Fatalf("expected Play to put the player in adventure mode")
	}
	startRun(t, s, b)
	s.OnSprintToggle(b, false)

	for i := 0; i < 1000 && len(h.handler.fails) == 0; i++ {
		h.ticks(1)
	}
	if got := h.handler.lastFail(t).Reason; got != ReasonStall {
		t.Fatalf("expected %s, got %s", ReasonStall, got)
	}
}
