package parkour

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
)

// Scheduler advances the tick counter and runs due tasks inside the transaction of the
// player they belong to. It is driven either by its own ticker (Start) or by calling Tick
// directly.
type Scheduler struct {
	queue *taskQueue
	log   *slog.Logger

	// tickMu serialises ticks so that Tick may be called from tests while the loop is stopped.
	tickMu sync.Mutex

	// Execution state
	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	// Tick tracking
	tickRate   time.Duration
	tickNumber atomic.Uint64
}

// newScheduler creates a new scheduler.
func newScheduler(tickRate time.Duration, log *slog.Logger) *Scheduler {
	if tickRate <= 0 {
		tickRate = 50 * time.Millisecond // 20 TPS
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		queue:    newTaskQueue(),
		log:      log,
		tickRate: tickRate,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Now returns the number of ticks executed so far.
func (s *Scheduler) Now() uint64 {
	return s.tickNumber.Load()
}

// TickRate returns the duration of one tick.
func (s *Scheduler) TickRate() time.Duration {
	return s.tickRate
}

// Pending returns the number of tasks that are scheduled and not cancelled.
func (s *Scheduler) Pending() int {
	return s.queue.Live()
}

// Start begins the scheduler's tick loop.
func (s *Scheduler) Start() {
	if s.running.Swap(true) {
		return // Already running
	}
	go s.tickLoop()
}

// Stop stops the tick loop and waits for the current tick to finish.
func (s *Scheduler) Stop() {
	if !s.running.Swap(false) {
		return // Not running
	}
	close(s.stopCh)
	<-s.doneCh
}

// Running reports whether the tick loop is active.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// tickLoop is the main scheduler loop.
func (s *Scheduler) tickLoop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.tickRate)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// Tick advances the scheduler by one tick and runs every task that became due.
func (s *Scheduler) Tick() {
	s.tick()
}

// tick executes one scheduler tick.
func (s *Scheduler) tick() {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	n := s.tickNumber.Add(1)

	for _, task := range s.queue.PopDue(n) {
		if task.cancelled.Load() {
			continue
		}
		s.executeTask(task)
	}
}

// executeTask runs a single task in its player's transaction.
func (s *Scheduler) executeTask(task *scheduledTask) {
	sess := task.session
	defer sess.removeTask(task)

	if sess.closed.Load() {
		task.cancelled.Store(true)
		return
	}

	ok := sess.ref.Exec(func(b Body) {
		if task.cancelled.Load() {
			return
		}
		defer func() {
			if r := recover(); r != nil {
				s.handleTaskPanic(task, r)
			}
		}()
		task.task.Run(b)
	})
	if !ok {
		task.cancelled.Store(true)
		if w, isRepeating := task.task.(*repeatingTaskWrapper); isRepeating {
			w.unreachable()
		}
		s.log.Debug("parkour: task dropped, player unreachable", "player", sess.name)
	}
}

// handleTaskPanic reports a panicking task and cancels it. The scheduler keeps running.
func (s *Scheduler) handleTaskPanic(task *scheduledTask, recovered any) {
	task.cancelled.Store(true)
	if w, isRepeating := task.task.(*repeatingTaskWrapper); isRepeating {
		w.handle.cancelled.Store(true)
	}

	s.log.Error("parkour: panic in task",
		"task", fmt.Sprintf("%T", task.task),
		"player", task.session.name,
		"panic", recovered,
		"stack", string(debug.Stack()),
	)
	hub := sentry.CurrentHub().Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("task", fmt.Sprintf("%T", task.task))
		scope.SetTag("player", task.session.name)
	})
	hub.Recover(recovered)
}
