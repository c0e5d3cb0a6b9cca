package parkour

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// fakeBody is an in-memory player.
type fakeBody struct {
	id   uuid.UUID
	name string

	pos       mgl64.Vec3
	rot       cube.Rotation
	sprinting bool
	sneaking  bool
	onGround  bool

	health    float64
	maxHealth float64
	// creative players take no damage, as in dragonfly
	creative bool
	hidden   bool

	damage    []float64
	restores  int
	teleports []mgl64.Vec3
}

func newFakeBody(pos mgl64.Vec3) *fakeBody {
	return &fakeBody{
		id:        uuid.New(),
		name:      "runner",
		pos:       pos,
		sprinting: true,
		onGround:  true,
		health:    20,
		maxHealth: 20,
	}
}

func (b *fakeBody) UUID() uuid.UUID         { return b.id }
func (b *fakeBody) Name() string            { return b.name }
func (b *fakeBody) Position() mgl64.Vec3    { return b.pos }
func (b *fakeBody) Rotation() cube.Rotation { return b.rot }
func (b *fakeBody) Sprinting() bool         { return b.sprinting }
func (b *fakeBody) Sneaking() bool          { return b.sneaking }
func (b *fakeBody) OnGround() bool          { return b.onGround }
func (b *fakeBody) Health() float64         { return b.health }

func (b *fakeBody) Damage(amount float64) {
	if b.creative {
		return
	}
	b.damage = append(b.damage, amount)
	b.health -= amount
}

func (b *fakeBody) Restore() {
	b.restores++
	b.health = b.maxHealth
}

func (b *fakeBody) Teleport(pos mgl64.Vec3) {
	b.teleports = append(b.teleports, pos)
	b.pos = pos
}

func (b *fakeBody) SetAdventure() { b.creative = false }
func (b *fakeBody) HideOthers()   { b.hidden = true }
func (b *fakeBody) ShowOthers()   { b.hidden = false }

// fakeRef reaches a fakeBody while online.
type fakeRef struct {
	mu     sync.Mutex
	body   *fakeBody
	online bool
}

func newFakeRef(b *fakeBody) *fakeRef {
	return &fakeRef{body: b, online: true}
}

func (r *fakeRef) Exec(fn func(b Body)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.online {
		return false
	}
	fn(r.body)
	return true
}

func (r *fakeRef) setOnline(online bool) {
	r.mu.Lock()
	r.online = online
	r.mu.Unlock()
}

type titleCall struct {
	line, subtitle string
}

// recordingPresenter records everything shown to players.
type recordingPresenter struct {
	mu       sync.Mutex
	titles   []titleCall
	bars     []string
	sounds   []Sound
	messages []string
}

func (p *recordingPresenter) ShowTitle(_ Body, line, subtitle string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.titles = append(p.titles, titleCall{line, subtitle})
}

func (p *recordingPresenter) ShowActionBar(_ Body, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bars = append(p.bars, text)
}

func (p *recordingPresenter) PlaySound(_ Body, s Sound) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sounds = append(p.sounds, s)
}

func (p *recordingPresenter) Message(_ Body, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, text)
}

func (p *recordingPresenter) lastMessage() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.messages) == 0 {
		return ""
	}
	return p.messages[len(p.messages)-1]
}

func (p *recordingPresenter) countSound(s Sound) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, snd := range p.sounds {
		if snd == s {
			n++
		}
	}
	return n
}

// recordingHandler records run outcomes together with the tick they happened on.
type recordingHandler struct {
	sch       func() uint64
	starts    int
	completes []Result
	fails     []Failure
	failTicks []uint64
}

func (h *recordingHandler) HandleRunStart(*Session) { h.starts++ }

func (h *recordingHandler) HandleRunComplete(_ *Session, r Result) {
	h.completes = append(h.completes, r)
}

func (h *recordingHandler) HandleRunFail(_ *Session, f Failure) {
	h.fails = append(h.fails, f)
	if h.sch != nil {
		h.failTicks = append(h.failTicks, h.sch())
	}
}

func (h *recordingHandler) lastFail(t *testing.T) Failure {
	t.Helper()
	if len(h.fails) == 0 {
		t.Fatalf("expected a failed run, got none")
	}
	return h.fails[len(h.fails)-1]
}

// fakeAssets is an AssetProvider with a scripted outcome.
type fakeAssets struct {
	applied   bool
	available bool
	start     bool
	delivery  *Delivery
	requests  int

	playing map[uuid.UUID]string
	plays   int
}

func (a *fakeAssets) Applied(uuid.UUID, string) bool { return a.applied }
func (a *fakeAssets) Available(string) bool          { return a.available }

func (a *fakeAssets) PlayTrack(player uuid.UUID, track string) {
	if a.playing == nil {
		a.playing = make(map[uuid.UUID]string)
	}
	a.playing[player] = track
	a.plays++
}

func (a *fakeAssets) StopTrack(player uuid.UUID) {
	delete(a.playing, player)
}

func (a *fakeAssets) RequestApply(uuid.UUID, string) (*Delivery, bool) {
	a.requests++
	if !a.start {
		return nil, false
	}
	return a.delivery, true
}

// straightCourse returns a course along +Z from z=0 to z=length with a waypoint every
// 10 blocks.
func straightCourse(t *testing.T, length float64) *Course {
	t.Helper()
	var waypoints []mgl64.Vec3
	for z := 0.0; z < length; z += 10 {
		waypoints = append(waypoints, mgl64.Vec3{0, 64, z})
	}
	waypoints = append(waypoints, mgl64.Vec3{0, 64, length})

	c, err := NewCourse(waypoints,
		Border{Position: mgl64.Vec3{0, 64, 0}},
		Border{Position: mgl64.Vec3{0, 64, length}},
		1e-3,
	)
	if err != nil {
		t.Fatalf("NewCourse: %v", err)
	}
	return c
}

func testLevel(t *testing.T, length float64, track string) *Level {
	t.Helper()
	return &Level{
		ID:         uuid.New(),
		Name:       "Test",
		Course:     straightCourse(t, length),
		Spawn:      mgl64.Vec3{0, 64, -3},
		FallHeight: 60,
		Track:      track,
	}
}

// harness wires a manager that is ticked by hand.
type harness struct {
	m         *Manager
	set       *LevelSet
	presenter *recordingPresenter
	handler   *recordingHandler
}

func newHarness(t *testing.T, conf Config, assets AssetProvider, levels ...*Level) *harness {
	t.Helper()
	set, err := NewLevelSet(levels...)
	if err != nil {
		t.Fatalf("NewLevelSet: %v", err)
	}
	h := &harness{
		set:       set,
		presenter: &recordingPresenter{},
		handler:   &recordingHandler{},
	}
	b := NewBuilder().
		Config(conf).
		Logger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Levels(set).
		Presenter(h.presenter).
		Handler(h.handler).
		Manual()
	if assets != nil {
		b.Assets(assets)
	}
	h.m = b.Init()
	h.handler.sch = h.m.Scheduler().Now
	t.Cleanup(h.m.Shutdown)
	return h
}

// play starts lvl for a new player standing at the spawn.
func (h *harness) play(t *testing.T, lvl *Level) (*Session, *fakeBody, *fakeRef) {
	t.Helper()
	b := newFakeBody(lvl.Spawn)
	ref := newFakeRef(b)
	s, err := h.m.Play(context.Background(), ref, b, lvl.ID)
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	return s, b, ref
}

// eventually fails the test if cond does not hold within a second.
func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within a second")
		}
		time.Sleep(time.Millisecond)
	}
}

// ticks advances the scheduler n times.
func (h *harness) ticks(n int) {
	for range n {
		h.m.Scheduler().Tick()
	}
}

// move moves b to pos through the session and reports whether the move was cancelled.
func move(s *Session, b *fakeBody, pos mgl64.Vec3) bool {
	cancelled := s.OnMove(b, b.pos, pos, b.rot)
	if !cancelled {
		b.pos = pos
	}
	return cancelled
}
