package parkour

// stallTask punishes a running player for not sprinting. It runs every Stall.Period ticks
// while armed, dealing Stall.Damage per application and failing the run once health drops
// to Stall.Threshold.
type stallTask struct {
	s           *Session
	handle      *RepeatingTaskHandle
	immuneUntil uint64
	runs        int
}

// Run implements Runnable.
func (t *stallTask) Run(b Body) {
	s := t.s
	if s.closed.Load() || s.Phase() != PhaseRunning {
		t.handle.Cancel()
		return
	}
	t.runs++

	conf := s.conf.Stall
	if health := b.Health(); health <= conf.Threshold {
		t.handle.Cancel()
		s.Fail(b, FailWith(ReasonStall, "health", health, "runs", t.runs))
		return
	}

	s.manager.presenter.ShowTitle(b, "", s.conf.Messages.StallWarning)

	now := s.manager.scheduler.Now()
	if now >= t.immuneUntil {
		b.Damage(conf.Damage)
		t.immuneUntil = now + uint64(conf.ImmunityTicks)
	}
}

// armStall starts the stall timer. It reports false if a timer is already armed.
func (s *Session) armStall(b Body) bool {
	if s.stall != nil && !s.stall.Cancelled() {
		return false
	}
	t := &stallTask{s: s}
	h := ScheduleRepeating(s, t, s.conf.Stall.Period, -1)
	if h == nil {
		return false
	}
	t.handle = h
	s.stall = h
	s.manager.presenter.PlaySound(b, SoundWarning)
	s.log.Debug("parkour: stall timer armed")
	return true
}

// disarmStall stops the stall timer. It is idempotent.
func (s *Session) disarmStall() {
	if s.stall == nil {
		return
	}
	if s.stall.Cancel() {
		s.log.Debug("parkour: stall timer disarmed")
	}
	s.stall = nil
}

// StallArmed reports whether the stall timer is running.
func (s *Session) StallArmed() bool {
	return s.stall != nil && !s.stall.Cancelled()
}
