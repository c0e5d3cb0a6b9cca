package parkour

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AccuracyTracker scores how closely a run follows the waypoints of a course.
//
// Every sample measures the distance to the nearest segment of the course that has not
// been completed yet. Distance up to the tolerance is free; the excess accumulates for the
// rest of the run, and the accuracy is exp(-accumulated/scale). Accuracy therefore starts
// at 1, stays at 1 for a run that never leaves the tolerance, and never recovers.
//
// An AccuracyTracker is owned by one session and is not safe for concurrent use.
type AccuracyTracker struct {
	course    *Course
	tolerance float64
	scale     float64

	next      int
	deviation float64
	samples   int
	last      float64
}

// NewAccuracyTracker creates a tracker for the course.
func NewAccuracyTracker(c *Course, tolerance, scale float64) *AccuracyTracker {
	if scale <= 0 {
		scale = 1
	}
	return &AccuracyTracker{
		course:    c,
		tolerance: math.Max(tolerance, 0),
		scale:     scale,
		next:      1,
	}
}

// Sample feeds one observed position and returns its deviation from the course.
func (a *AccuracyTracker) Sample(pos mgl64.Vec3) float64 {
	n := a.course.Len()
	for a.next < n && a.passed(a.next, pos) {
		a.next++
	}

	first := min(a.next, n-1) - 1
	d := math.Inf(1)
	for i := first; i < n-1; i++ {
		d = math.Min(d, segmentDistance(a.course.Waypoint(i), a.course.Waypoint(i+1), pos))
	}

	a.samples++
	a.last = d
	a.deviation += math.Max(0, d-a.tolerance)
	return d
}

// passed reports whether pos is at or beyond waypoint i, measured along the segment
// that ends at it.
func (a *AccuracyTracker) passed(i int, pos mgl64.Vec3) bool {
	from, to := a.course.Waypoint(i-1), a.course.Waypoint(i)
	seg := to.Sub(from)
	l2 := seg.LenSqr()
	if l2 == 0 {
		return true
	}
	return pos.Sub(from).Dot(seg)/l2 >= 1
}

// Accuracy returns the current accuracy in [0, 1]. It is 1 before the first sample.
func (a *AccuracyTracker) Accuracy() float64 {
	if a.samples == 0 {
		return 1
	}
	return mgl64.Clamp(math.Exp(-a.deviation/a.scale), 0, 1)
}

// Next returns the index of the next waypoint the player is expected to pass.
func (a *AccuracyTracker) Next() int {
	return a.next
}

// Deviation returns the accumulated deviation beyond tolerance.
func (a *AccuracyTracker) Deviation() float64 {
	return a.deviation
}

// Samples returns the number of samples taken since the last reset.
func (a *AccuracyTracker) Samples() int {
	return a.samples
}

// LastDeviation returns the raw deviation of the most recent sample.
func (a *AccuracyTracker) LastDeviation() float64 {
	return a.last
}

// Reset clears the cursor and accumulators.
func (a *AccuracyTracker) Reset() {
	a.next = 1
	a.deviation = 0
	a.samples = 0
	a.last = 0
}

// segmentDistance returns the distance from p to the segment a-b.
func segmentDistance(a, b, p mgl64.Vec3) float64 {
	ab := b.Sub(a)
	l2 := ab.LenSqr()
	if l2 == 0 {
		return p.Sub(a).Len()
	}
	t := mgl64.Clamp(p.Sub(a).Dot(ab)/l2, 0, 1)
	return p.Sub(a.Add(ab.Mul(t))).Len()
}
