package parkour

import (
	"sync"
	"sync/atomic"
)

// scheduledTask represents a task scheduled for a future tick.
type scheduledTask struct {
	// executeAt is the tick the task should execute on
	executeAt uint64

	// seq breaks ties between tasks due on the same tick, keeping insertion order
	seq uint64

	// session is the session the task runs for
	session *Session

	// task is the task instance
	task Runnable

	// cancelled indicates if the task has been cancelled
	cancelled atomic.Bool

	// index is the heap index
	index int
}

// before reports whether t is due before o.
func (t *scheduledTask) before(o *scheduledTask) bool {
	if t.executeAt != o.executeAt {
		return t.executeAt < o.executeAt
	}
	return t.seq < o.seq
}

// taskQueue is a priority queue for scheduled tasks.
// It uses a binary heap for O(log n) insertion and removal.
type taskQueue struct {
	mu   sync.Mutex
	heap []*scheduledTask
	seq  uint64
}

// newTaskQueue creates a new task queue.
func newTaskQueue() *taskQueue {
	return &taskQueue{
		heap: make([]*scheduledTask, 0, 64),
	}
}

// compactHeap removes cancelled tasks from the heap and rebuilds the heap property.
func (q *taskQueue) compactHeap() {
	write := 0
	for read := 0; read < len(q.heap); read++ {
		if !q.heap[read].cancelled.Load() {
			q.heap[write] = q.heap[read]
			q.heap[write].index = write
			write++
		}
	}

	for i := write; i < len(q.heap); i++ {
		q.heap[i] = nil
	}
	q.heap = q.heap[:write]

	for i := len(q.heap)/2 - 1; i >= 0; i-- {
		q.down(i, len(q.heap))
	}
}

// Push adds a task to the queue with periodic cleanup to prevent memory leaks.
func (q *taskQueue) Push(task *scheduledTask) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.heap) > 100 && len(q.heap)%100 == 0 {
		q.compactHeap()
	}

	q.seq++
	task.seq = q.seq
	task.index = len(q.heap)
	q.heap = append(q.heap, task)
	q.up(task.index)
}

// PopDue removes and returns all live tasks that are due on or before tick.
func (q *taskQueue) PopDue(tick uint64) []*scheduledTask {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []*scheduledTask
	cancelledCount := 0

	for len(q.heap) > 0 && q.heap[0].executeAt <= tick {
		task := q.pop()
		if !task.cancelled.Load() {
			due = append(due, task)
		} else {
			cancelledCount++
		}
	}

	if cancelledCount > 50 && len(q.heap) > 0 {
		q.compactHeap()
	}

	return due
}

// Len returns the number of tasks in the queue, including cancelled ones not yet popped.
func (q *taskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap)
}

// Live returns the number of tasks in the queue that have not been cancelled.
func (q *taskQueue) Live() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, t := range q.heap {
		if !t.cancelled.Load() {
			n++
		}
	}
	return n
}

// Clear cancels and removes all tasks from the queue.
func (q *taskQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, t := range q.heap {
		t.cancelled.Store(true)
		q.heap[i] = nil
	}
	q.heap = q.heap[:0]
}

// pop removes and returns the minimum task. Caller must hold lock.
func (q *taskQueue) pop() *scheduledTask {
	n := len(q.heap) - 1
	q.swap(0, n)
	q.down(0, n)
	task := q.heap[n]
	q.heap[n] = nil // Allow GC
	q.heap = q.heap[:n]
	task.index = -1
	return task
}

// up moves task at index up the heap.
func (q *taskQueue) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !q.heap[i].before(q.heap[parent]) {
			break
		}
		q.swap(i, parent)
		i = parent
	}
}

// down moves task at index down the heap.
func (q *taskQueue) down(i, n int) {
	for {
		left := 2*i + 1
		if left >= n || left < 0 {
			break
		}
		j := left
		if right := left + 1; right < n && q.heap[right].before(q.heap[left]) {
			j = right
		}
		if !q.heap[j].before(q.heap[i]) {
			break
		}
		q.swap(i, j)
		i = j
	}
}

// swap swaps two tasks in the heap.
func (q *taskQueue) swap(i, j int) {
	q.heap[i], q.heap[j] = q.heap[j], q.heap[i]
	q.heap[i].index = i
	q.heap[j].index = j
}

// TaskHandle allows cancelling a scheduled one-shot task.
type TaskHandle struct {
	task *scheduledTask
}

// Cancel cancels the scheduled task. Cancelling twice, or cancelling a nil handle,
// is a no-op.
func (h *TaskHandle) Cancel() {
	if h != nil && h.task != nil {
		h.task.cancelled.Store(true)
	}
}

// Cancelled reports whether the task was cancelled. A nil handle counts as cancelled.
func (h *TaskHandle) Cancelled() bool {
	return h == nil || h.task == nil || h.task.cancelled.Load()
}

// Schedule schedules a task to run for the session delay ticks from now.
// A delay below 1 runs the task on the next tick.
// Returns nil if the session is closed.
func Schedule(s *Session, task Runnable, delay int) *TaskHandle {
	if s == nil || s.closed.Load() || s.manager == nil {
		return nil
	}
	sch := s.manager.scheduler

	scheduled := &scheduledTask{
		executeAt: sch.Now() + uint64(max(delay, 1)),
		session:   s,
		task:      task,
	}

	s.addTask(scheduled)
	sch.queue.Push(scheduled)

	return &TaskHandle{task: scheduled}
}

// RepeatingTaskHandle allows cancelling a repeating scheduled task.
type RepeatingTaskHandle struct {
	cancelled atomic.Bool
	session   *Session

	// current is the next scheduled execution
	current atomic.Pointer[scheduledTask]
}

// Cancel cancels the repeating task, preventing future executions.
// Cancel reports whether this call cancelled the task; later calls are no-ops
// and return false.
func (h *RepeatingTaskHandle) Cancel() bool {
	if h == nil {
		return false
	}
	if t := h.current.Load(); t != nil {
		t.cancelled.Store(true)
	}
	return !h.cancelled.Swap(true)
}

// Cancelled reports whether the task was cancelled. A nil handle counts as cancelled.
func (h *RepeatingTaskHandle) Cancelled() bool {
	return h == nil || h.cancelled.Load()
}

// repeatingTaskWrapper wraps a task to reschedule itself after execution.
type repeatingTaskWrapper struct {
	inner     Runnable
	interval  int
	remaining int // -1 for infinite
	handle    *RepeatingTaskHandle
}

func (w *repeatingTaskWrapper) Run(b Body) {
	if w.handle.cancelled.Load() {
		return
	}

	w.inner.Run(b)

	if w.handle.cancelled.Load() {
		return
	}

	if w.remaining > 0 {
		w.remaining--
	}
	if w.remaining == 0 {
		w.handle.cancelled.Store(true)
		return
	}

	s := w.handle.session
	if s == nil || s.closed.Load() || s.manager == nil {
		w.handle.cancelled.Store(true)
		return
	}

	sch := s.manager.scheduler
	scheduled := &scheduledTask{
		executeAt: sch.Now() + uint64(w.interval),
		session:   s,
		task:      w,
	}

	w.handle.current.Store(scheduled)
	s.addTask(scheduled)
	sch.queue.Push(scheduled)
}

// unreachable cancels the repeating task when its player cannot be reached.
func (w *repeatingTaskWrapper) unreachable() {
	w.handle.cancelled.Store(true)
}

// ScheduleRepeating schedules a task to run every interval ticks, starting on the next tick.
// If times is -1, the task repeats until cancelled. If times is > 0, the task runs
// exactly that many times. The task is cancelled when its player becomes unreachable.
func ScheduleRepeating(s *Session, task Runnable, interval int, times int) *RepeatingTaskHandle {
	if s == nil || s.closed.Load() || s.manager == nil {
		return nil
	}
	if times == 0 || interval < 1 {
		return nil
	}

	handle := &RepeatingTaskHandle{
		session: s,
	}

	wrapper := &repeatingTaskWrapper{
		inner:     task,
		interval:  interval,
		remaining: times,
		handle:    handle,
	}

	sch := s.manager.scheduler
	scheduled := &scheduledTask{
		executeAt: sch.Now() + 1,
		session:   s,
		task:      wrapper,
	}

	handle.current.Store(scheduled)
	s.addTask(scheduled)
	sch.queue.Push(scheduled)

	return handle
}
