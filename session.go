package parkour

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// Session is one player playing one level.
//
// Sessions are created by Manager.Play and destroyed when the player leaves the level,
// disconnects, or the level is removed. A closed session is never reused.
//
// All methods taking a Body must be called from the player's transaction (a handler,
// a command, or a scheduled task). Phase, Accuracy and Closed may be called from any
// goroutine.
type Session struct {
	// id uniquely identifies this session
	id uuid.UUID

	// player and name are cached for fast lookup
	player uuid.UUID
	name   string

	// ref reaches the player from scheduled tasks
	ref PlayerRef

	level   *Level
	manager *Manager
	conf    *Config
	log     *slog.Logger

	phase    atomic.Uint32
	accuracy *AccuracyTracker
	// lastAccuracy mirrors the tracker for readers outside the player's transaction
	lastAccuracy atomic.Uint64

	stall     *RepeatingTaskHandle
	gate      *assetGate
	startedAt uint64

	// trackLoaded is set once the player has the level's track
	trackLoaded bool
	// trackPlaying and hidden are the effects of a run that must be undone when it ends
	trackPlaying bool
	hidden       bool

	// closed indicates if the session has been closed
	closed atomic.Bool

	// pendingTasks holds scheduled tasks for this session
	pendingTasks []*scheduledTask
	taskMu       sync.Mutex
}

// newSession creates a session in PhasePreparing.
func newSession(m *Manager, ref PlayerRef, b Body, lvl *Level) *Session {
	s := &Session{
		id:       uuid.New(),
		player:   b.UUID(),
		name:     b.Name(),
		ref:      ref,
		level:    lvl,
		manager:  m,
		conf:     &m.conf,
		accuracy: NewAccuracyTracker(lvl.Course, m.conf.Accuracy.Tolerance, m.conf.Accuracy.Scale),
	}
	s.log = m.log.With("player", s.name, "level", lvl.Name, "session", s.id)
	s.storeAccuracy(1)
	return s
}

// ID returns the session id.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Player returns the player's UUID.
func (s *Session) Player() uuid.UUID {
	return s.player
}

// Name returns the player's name.
func (s *Session) Name() string {
	return s.name
}

// Level returns the level being played.
func (s *Session) Level() *Level {
	return s.level
}

// Manager returns the manager owning this session.
func (s *Session) Manager() *Manager {
	return s.manager
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	return Phase(s.phase.Load())
}

// Accuracy returns the accuracy of the current run, or 1 outside of a run.
func (s *Session) Accuracy() float64 {
	return math.Float64frombits(s.lastAccuracy.Load())
}

// Closed returns true if the session has been closed.
func (s *Session) Closed() bool {
	return s.closed.Load()
}

// String returns a string representation of the session for debugging.
func (s *Session) String() string {
	return fmt.Sprintf("Session{Player: %s, Level: %s, Phase: %s, ID: %s}", s.name, s.level.Name, s.Phase(), s.id)
}

// OnMove handles a movement of the player from → to while looking in rot. It returns
// true if the movement must be cancelled, which is the case while preparing and when the
// movement ended the run.
func (s *Session) OnMove(b Body, from, to mgl64.Vec3, rot cube.Rotation) bool {
	if s.closed.Load() {
		return false
	}
	switch s.Phase() {
	case PhasePreparing:
		return true
	case PhaseReady:
		if s.level.Course.Start().Reached(to) {
			s.Start(b)
			return s.Phase() != PhaseRunning
		}
	case PhaseRunning:
		return s.checkRun(b, from, to, rot)
	}
	return false
}

// checkRun evaluates a movement during a run. The first failing check ends the run.
func (s *Session) checkRun(b Body, from, to mgl64.Vec3, rot cube.Rotation) bool {
	c := s.level.Course
	dir := c.Direction()
	motion := dir.Classify(from, to)

	if c.Finish().Reached(to) {
		if motion == MotionBackward {
			return s.Fail(b, FailWith(ReasonWrongWayFinish,
				"from", dir.Coordinate(from),
				"to", dir.Coordinate(to),
				"finish", c.Finish().Coordinate(),
			))
		}
		s.sample(from, to)
		return s.Complete(b)
	}

	limit := s.conf.Direction.MaxFacingAngle
	if angle := dir.FacingAngle(rot.Vec3()); angle > limit+dir.Epsilon() {
		return s.Fail(b, FailWith(ReasonFacing, "angle", angle, "limit", limit, "deviation", s.accuracy.LastDeviation()))
	}
	if motion == MotionBackward {
		return s.Fail(b, FailWith(ReasonBackward,
			"from", dir.Coordinate(from),
			"to", dir.Coordinate(to),
		))
	}

	s.sample(from, to)
	s.manager.presenter.ShowActionBar(b, fmt.Sprintf(s.conf.Messages.Accuracy, s.accuracy.Accuracy()*100))
	return false
}

// sample scores the end of a movement. Movements that do not change the position are not
// scored.
func (s *Session) sample(from, to mgl64.Vec3) {
	if to.Sub(from).LenSqr() == 0 {
		return
	}
	s.accuracy.Sample(to)
	s.storeAccuracy(s.accuracy.Accuracy())
}

// OnSprintToggle handles the player starting or stopping to sprint. Outside of a run it
// does nothing.
func (s *Session) OnSprintToggle(b Body, sprinting bool) {
	if s.closed.Load() || s.Phase() != PhaseRunning {
		return
	}
	if sprinting {
		s.disarmStall()
		return
	}
	s.armStall(b)
}

// OnExternalFail ends a run because of an event outside the engine, such as a fall,
// death, void damage or a disconnect. Falling or dropping into the void outside of a run
// sends the player back to the spawn. b may be nil if the player can no longer be presented to. OnExternalFail
// reports whether the player was moved.
func (s *Session) OnExternalFail(b Body, reason Reason) bool {
	if s.closed.Load() {
		return false
	}
	if s.Phase() == PhaseRunning {
		return s.Fail(b, Fail(reason))
	}
	if (reason == ReasonFall || reason == ReasonVoid) && b != nil {
		b.Teleport(s.level.Spawn)
		return true
	}
	return false
}

// Start moves a ready session into a run. The player must be sprinting, not sneaking and
// on the ground; otherwise the run fails straight away. Start reports whether the run is
// now in progress.
func (s *Session) Start(b Body) bool {
	if s.closed.Load() || !s.phase.CompareAndSwap(uint32(PhaseReady), uint32(PhaseRunning)) {
		return false
	}
	s.startedAt = s.manager.scheduler.Now()
	s.accuracy.Reset()
	s.storeAccuracy(1)

	switch {
	case !b.Sprinting():
		s.Fail(b, Fail(ReasonNotSprinting))
		return false
	case b.Sneaking():
		s.Fail(b, Fail(ReasonSneaking))
		return false
	case !b.OnGround():
		s.Fail(b, Fail(ReasonAirborne))
		return false
	}

	s.startEffects(b)
	s.log.Debug("parkour: run started", "tick", s.startedAt)
	s.manager.presenter.PlaySound(b, SoundStart)
	s.manager.handler.HandleRunStart(s)
	return true
}

// Fail ends the running run without success. It reports false if no run was in progress.
func (s *Session) Fail(b Body, f Failure) bool {
	if !s.phase.CompareAndSwap(uint32(PhaseRunning), uint32(PhasePreparing)) {
		return false
	}
	res := s.terminate(b)

	subtitle := ""
	if s.conf.Debug {
		subtitle = f.Detail()
	}
	s.present(b, s.conf.Messages.Reason(f.Reason), subtitle, SoundFail)

	s.log.Info("parkour: run failed", "failure", f, "accuracy", res.Accuracy, "ticks", res.Ticks)
	s.phase.Store(uint32(PhaseReady))
	s.manager.handler.HandleRunFail(s, f)
	return true
}

// Complete ends the running run successfully. It reports false if no run was in progress.
func (s *Session) Complete(b Body) bool {
	if !s.phase.CompareAndSwap(uint32(PhaseRunning), uint32(PhasePreparing)) {
		return false
	}
	res := s.terminate(b)

	s.present(b, s.conf.Messages.Complete, fmt.Sprintf(s.conf.Messages.Accuracy, res.Accuracy*100), SoundComplete)

	s.log.Info("parkour: run completed", "accuracy", res.Accuracy, "samples", res.Samples, "ticks", res.Ticks)
	s.phase.Store(uint32(PhaseReady))
	s.manager.handler.HandleRunComplete(s, res)
	return true
}

// terminate disarms the stall timer, undoes the run's effects and snapshots and resets
// the accuracy of the run. b may be nil.
func (s *Session) terminate(b Body) Result {
	s.disarmStall()
	s.stopEffects(b)
	res := Result{
		Accuracy: s.accuracy.Accuracy(),
		Samples:  s.accuracy.Samples(),
		Ticks:    s.manager.scheduler.Now() - s.startedAt,
	}
	s.accuracy.Reset()
	s.storeAccuracy(1)
	return res
}

// startEffects plays the level's track, if the player has it, and hides the other
// players for the run.
func (s *Session) startEffects(b Body) {
	if tp, ok := s.manager.assets.(TrackPlayer); ok && s.trackLoaded {
		tp.PlayTrack(s.player, s.level.Track)
		s.trackPlaying = true
	}
	b.HideOthers()
	s.hidden = true
}

// stopEffects undoes startEffects. It is idempotent. b may be nil, in which case the
// other players stay hidden.
func (s *Session) stopEffects(b Body) {
	if s.trackPlaying {
		s.trackPlaying = false
		if tp, ok := s.manager.assets.(TrackPlayer); ok {
			tp.StopTrack(s.player)
		}
	}
	if s.hidden && b != nil {
		b.ShowOthers()
		s.hidden = false
	}
}

// present shows the outcome of a run and sends the player back to the spawn.
func (s *Session) present(b Body, line, subtitle string, snd Sound) {
	if b == nil {
		return
	}
	p := s.manager.presenter
	p.ShowTitle(b, line, subtitle)
	p.PlaySound(b, snd)
	b.Restore()
	b.Teleport(s.level.Spawn)
}

// ForceStop parks the session in PhasePreparing from any phase. A run in progress is
// reported to the RunHandler as ReasonForced. Prepare leaves the parked state.
func (s *Session) ForceStop(b Body) {
	was := Phase(s.phase.Swap(uint32(PhasePreparing)))
	s.disarmStall()
	s.cancelGate()
	s.stopEffects(b)
	s.accuracy.Reset()
	s.storeAccuracy(1)
	if b != nil {
		b.Restore()
		b.SetAdventure()
	}
	if was == PhaseRunning {
		f := Fail(ReasonForced)
		s.log.Info("parkour: run stopped", "failure", f)
		s.manager.handler.HandleRunFail(s, f)
	}
}

// Prepare runs the asset gate for the level's track, leaving the session in PhaseReady
// once the track is delivered or given up on. Any run in progress is stopped first.
func (s *Session) Prepare(b Body) {
	if s.closed.Load() {
		return
	}
	s.ForceStop(b)

	track := s.level.Track
	assets := s.manager.assets
	switch {
	case track == "":
		s.ready()
	case assets.Applied(s.player, track):
		s.trackLoaded = true
		s.ready()
	case !assets.Available(track):
		s.log.Warn("parkour: track unavailable", "track", track)
		s.manager.presenter.Message(b, fmt.Sprintf(s.conf.Messages.TrackUnavailable, track))
		s.ready()
	default:
		s.manager.presenter.Message(b, fmt.Sprintf(s.conf.Messages.TrackLoading, track))
		s.gate = newAssetGate(s, track)
	}
}

// AwaitingAssets reports whether the session is waiting on its track.
func (s *Session) AwaitingAssets() bool {
	return s.gate != nil && s.gate.Pending()
}

// ready moves a preparing session to PhaseReady.
func (s *Session) ready() {
	if s.phase.CompareAndSwap(uint32(PhasePreparing), uint32(PhaseReady)) {
		s.log.Debug("parkour: level ready")
	}
}

// cancelGate stops the asset gate, if any.
func (s *Session) cancelGate() {
	if s.gate != nil {
		s.gate.cancel()
		s.gate = nil
	}
}

// storeAccuracy publishes the accuracy for Accuracy.
func (s *Session) storeAccuracy(a float64) {
	s.lastAccuracy.Store(math.Float64bits(a))
}

// close closes the session and cleans up all resources. b may be nil.
func (s *Session) close(b Body) {
	if s.closed.Swap(true) {
		return // Already closed
	}

	was := Phase(s.phase.Swap(uint32(PhasePreparing)))
	s.disarmStall()
	s.cancelGate()
	s.stopEffects(b)

	// Cancel all pending tasks
	s.taskMu.Lock()
	tasks := s.pendingTasks
	s.pendingTasks = nil
	s.taskMu.Unlock()

	for _, task := range tasks {
		task.cancelled.Store(true)
	}

	if b != nil {
		b.Restore()
	}
	if was == PhaseRunning {
		s.manager.handler.HandleRunFail(s, Fail(ReasonForced))
	}
	s.log.Debug("parkour: session closed")
}

// addTask adds a scheduled task to this session.
func (s *Session) addTask(task *scheduledTask) {
	s.taskMu.Lock()
	s.pendingTasks = append(s.pendingTasks, task)
	s.taskMu.Unlock()
}

// removeTask removes a scheduled task from this session.
func (s *Session) removeTask(task *scheduledTask) {
	s.taskMu.Lock()
	for i, t := range s.pendingTasks {
		if t == task {
			s.pendingTasks = append(s.pendingTasks[:i], s.pendingTasks[i+1:]...)
			break
		}
	}
	s.taskMu.Unlock()
}
