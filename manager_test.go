package parkour

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

func TestManagerPlayUnknownLevel(t *testing.T) {
	h := newHarness(t, DefaultConfig(), nil)
	b := newFakeBody(mgl64.Vec3{})
	_, err := h.m.Play(context.Background(), newFakeRef(b), b, uuid.New())
	if !errors.Is(err, ErrLevelNotFound) {
		t.Fatalf("expected ErrLevelNotFound, got %v", err)
	}
	if h.m.SessionCount() != 0 {
		t.Fatalf("session created for an unknown level")
	}
}

func TestManagerReplayReplacesSession(t *testing.T) {
	lvl := testLevel(t, 10, "")
	h := newHarness(t, DefaultConfig(), nil, lvl)
	first, b, ref := h.play(t, lvl)

	b.pos = mgl64.Vec3{0, 64, -1}
	move(first, b, mgl64.Vec3{0, 64, 1})

	second, err := h.m.Play(context.Background(), ref, b, lvl.ID)
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if first == second || !first.Closed() || second.Closed() {
		t.Fatalf("expected a fresh session replacing the closed one")
	}
	if h.m.Session(b.UUID()) != second {
		t.Fatalf("manager still points at the old session")
	}
	if got := h.handler.lastFail(t).Reason; got != ReasonForced {
		t.Fatalf("expected the interrupted run to be reported as %s, got %s", ReasonForced, got)
	}
	if refs := h.m.cache.refs(lvl.ID); refs != 1 {
		t.Fatalf("expected one cache reference, got %d", refs)
	}
}

func TestManagerPlayNamed(t *testing.T) {
	lvl := testLevel(t, 10, "")
	lvl.Name = "Intro"
	h := newHarness(t, DefaultConfig(), nil, lvl)
	b := newFakeBody(mgl64.Vec3{})

	s, err := h.m.PlayNamed(context.Background(), newFakeRef(b), b, "intro")
	if err != nil {
		t.Fatalf("PlayNamed: %v", err)
	}
	if s.Level() != lvl {
		t.Fatalf("wrong level started")
	}
	if _, err := h.m.PlayNamed(context.Background(), newFakeRef(b), b, "nope"); !errors.Is(err, ErrLevelNotFound) {
		t.Fatalf("expected ErrLevelNotFound, got %v", err)
	}
	if len(h.m.Levels()) != 1 {
		t.Fatalf("expected the provider's levels to be listed")
	}
}

func TestManagerClose(t *testing.T) {
	lvl := testLevel(t, 10, "")
	h := newHarness(t, DefaultConfig(), nil, lvl)
	s, b, _ := h.play(t, lvl)

	if !h.m.Close(b.UUID(), b) {
		t.Fatalf("expected Close to find the session")
	}
	if h.m.Close(b.UUID(), b) {
		t.Fatalf("second Close found a session")
	}
	if !s.Closed() || s.Phase() != PhasePreparing {
		t.Fatalf("expected a closed, parked session")
	}
	if s.OnMove(b, b.pos, mgl64.Vec3{0, 64, 1}, b.rot) {
		t.Fatalf("closed session cancelled a move")
	}
	if h.m.cache.refs(lvl.ID) != 0 {
		t.Fatalf("closed session kept its cache reference")
	}
}

func TestManagerRemoveLevel(t *testing.T) {
	conf := DefaultConfig()
	lvl, other := testLevel(t, 10, ""), testLevel(t, 20, "")
	other.Name = "Other"
	h := newHarness(t, conf, nil, lvl, other)

	a, _, _ := h.play(t, lvl)
	b, _, bref := h.play(t, lvl)
	c, _, _ := h.play(t, other)
	bref.setOnline(false)

	if n := h.m.RemoveLevel(lvl.ID); n != 2 {
		t.Fatalf("expected 2 affected sessions, got %d", n)
	}
	if h.m.SessionCount() != 1 {
		t.Fatalf("expected one remaining session, got %d", h.m.SessionCount())
	}
	if h.set.Len() != 1 {
		t.Fatalf("expected the level to be removed from the provider")
	}

	eventually(t, func() bool { return a.Closed() && b.Closed() })
	if c.Closed() {
		t.Fatalf("session of another level closed")
	}
	eventually(t, func() bool {
		return h.presenter.lastMessage() == fmt.Sprintf(conf.Messages.LevelRemoved, lvl.Name)
	})
	eventually(t, func() bool { return h.m.cache.refs(lvl.ID) == 0 })

	p := newFakeBody(mgl64.Vec3{})
	if _, err := h.m.Play(context.Background(), newFakeRef(p), p, lvl.ID); !errors.Is(err, ErrLevelNotFound) {
		t.Fatalf("expected ErrLevelNotFound after removal, got %v", err)
	}
}

func TestManagerRemoveLevelClosesInTransaction(t *testing.T) {
	lvl := testLevel(t, 10, "")
	h := newHarness(t, DefaultConfig(), nil, lvl)
	s, b, ref := h.play(t, lvl)
	before := b.restores

	// Holding the transaction keeps the close from happening.
	ref.mu.Lock()
	h.m.RemoveLevel(lvl.ID)
	time.Sleep(20 * time.Millisecond)
	if s.Closed() {
		ref.mu.Unlock()
		t.Fatalf("session closed outside of the player's transaction")
	}
	ref.mu.Unlock()

	eventually(t, s.Closed)
	ref.mu.Lock()
	restores := b.restores
	ref.mu.Unlock()
	if restores != before+1 {
		t.Fatalf("expected the close to restore the player, restores %d -> %d", before, restores)
	}
}

func TestManagerShutdown(t *testing.T) {
	lvl := testLevel(t, 10, "")
	h := newHarness(t, DefaultConfig(), nil, lvl)
	s, b, _ := h.play(t, lvl)
	b.pos = mgl64.Vec3{0, 64, -1}
	move(s, b, mgl64.Vec3{0, 64, 1})
	s.OnSprintToggle(b, false)

	h.m.Shutdown()
	h.m.Shutdown()

	if !s.Closed() || h.m.SessionCount() != 0 {
		t.Fatalf("expected every session closed")
	}
	if h.m.Scheduler().Pending() != 0 {
		t.Fatalf("expected no pending tasks after shutdown")
	}
	p := newFakeBody(mgl64.Vec3{})
	if _, err := h.m.Play(context.Background(), newFakeRef(p), p, lvl.ID); !errors.Is(err, ErrManagerClosed) {
		t.Fatalf("expected ErrManagerClosed, got %v", err)
	}
}

func TestBuilderInitPanicsWithoutLevels(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected Init to panic without a level provider")
		}
	}()
	NewBuilder().Manual().Init()
}
