package parkour

import (
	"fmt"
	"sync/atomic"
)

// AssetStatus is the state of a Delivery.
type AssetStatus uint32

const (
	// AssetPending means the outcome is not known yet.
	AssetPending AssetStatus = iota
	// AssetApplied means the track was delivered.
	AssetApplied
	// AssetFailed means the track could not be delivered.
	AssetFailed
)

// String returns the string representation of the status.
func (s AssetStatus) String() string {
	switch s {
	case AssetPending:
		return "Pending"
	case AssetApplied:
		return "Applied"
	case AssetFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Delivery is the pending outcome of a track delivery. It is resolved once, from any
// goroutine, and observed by the asset gate on the tick thread.
type Delivery struct {
	status atomic.Uint32
}

// NewDelivery returns a pending delivery.
func NewDelivery() *Delivery {
	return &Delivery{}
}

// Resolve settles the delivery. Only the first call has an effect; it reports whether
// this call settled it.
func (d *Delivery) Resolve(applied bool) bool {
	to := AssetFailed
	if applied {
		to = AssetApplied
	}
	return d.status.CompareAndSwap(uint32(AssetPending), uint32(to))
}

// Status returns the current status.
func (d *Delivery) Status() AssetStatus {
	return AssetStatus(d.status.Load())
}

// assetGate holds a session in PhasePreparing until the level's track is delivered,
// declared unavailable, or given up on.
type assetGate struct {
	s        *Session
	track    string
	delivery *Delivery
	deadline uint64

	request *TaskHandle
	poll    *RepeatingTaskHandle
	done    bool
}

// newAssetGate creates a gate for the session's track and schedules the request.
func newAssetGate(s *Session, track string) *assetGate {
	g := &assetGate{s: s, track: track}
	g.request = Schedule(s, RunnableFunc(g.requestApply), s.conf.Assets.Delay)
	return g
}

// requestApply asks the asset provider to start delivering the track.
func (g *assetGate) requestApply(b Body) {
	if g.done {
		return
	}
	s := g.s
	d, ok := s.manager.assets.RequestApply(s.player, g.track)
	if !ok || d == nil {
		s.log.Warn("parkour: track delivery not started", "track", g.track)
		g.finish(b, fmt.Sprintf(s.conf.Messages.TrackFailed, g.track))
		return
	}
	g.delivery = d
	g.deadline = s.manager.scheduler.Now() + uint64(s.conf.Assets.Timeout)
	if g.check(b) {
		return
	}
	g.poll = ScheduleRepeating(s, RunnableFunc(g.pollDelivery), s.conf.Assets.PollInterval, -1)
}

// pollDelivery is run every poll interval until the delivery is settled or times out.
func (g *assetGate) pollDelivery(b Body) {
	if g.done {
		g.poll.Cancel()
		return
	}
	if g.check(b) {
		return
	}
	if g.s.manager.scheduler.Now() >= g.deadline {
		g.s.log.Warn("parkour: track delivery timed out", "track", g.track, "ticks", g.s.conf.Assets.Timeout)
		g.finish(b, fmt.Sprintf(g.s.conf.Messages.TrackFailed, g.track))
	}
}

// check finishes the gate if the delivery is settled and reports whether it did.
func (g *assetGate) check(b Body) bool {
	switch g.delivery.Status() {
	case AssetApplied:
		g.s.trackLoaded = true
		g.finish(b, fmt.Sprintf(g.s.conf.Messages.TrackLoaded, g.track))
		return true
	case AssetFailed:
		g.s.log.Warn("parkour: track delivery failed", "track", g.track)
		g.finish(b, fmt.Sprintf(g.s.conf.Messages.TrackFailed, g.track))
		return true
	}
	return false
}

// finish stops the gate, tells the player why and opens the level.
func (g *assetGate) finish(b Body, msg string) {
	g.cancel()
	if g.s.gate == g {
		g.s.gate = nil
	}
	g.s.manager.presenter.Message(b, msg)
	g.s.ready()
}

// cancel stops every task of the gate. It is idempotent.
func (g *assetGate) cancel() {
	g.done = true
	g.request.Cancel()
	g.poll.Cancel()
}

// Pending reports whether the gate is still waiting.
func (g *assetGate) Pending() bool {
	return !g.done
}
