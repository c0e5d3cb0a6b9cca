package parkour

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Motion classifies a movement along a course axis.
type Motion uint8

const (
	// MotionStationary is a movement that made no progress along the axis within epsilon.
	MotionStationary Motion = iota
	// MotionForward is a movement that advanced along the axis.
	MotionForward
	// MotionBackward is a movement that went back along the axis beyond epsilon.
	MotionBackward
)

// String returns the string representation of the motion.
func (m Motion) String() string {
	switch m {
	case MotionStationary:
		return "Stationary"
	case MotionForward:
		return "Forward"
	case MotionBackward:
		return "Backward"
	default:
		return "Unknown"
	}
}

// DirectionChecker judges positions against a single direction of travel.
// It holds no state beyond its axis and epsilon and is safe for concurrent use.
type DirectionChecker struct {
	axis    mgl64.Vec3
	epsilon float64
}

// NewDirectionChecker creates a checker for the given axis. The axis is normalised;
// a zero axis yields a checker for which every position has coordinate 0.
func NewDirectionChecker(axis mgl64.Vec3, epsilon float64) DirectionChecker {
	if l := axis.Len(); l > 0 {
		axis = axis.Mul(1 / l)
	}
	return DirectionChecker{axis: axis, epsilon: math.Abs(epsilon)}
}

// Axis returns the unit axis of the checker.
func (d DirectionChecker) Axis() mgl64.Vec3 {
	return d.axis
}

// Epsilon returns the tolerance used for every comparison.
func (d DirectionChecker) Epsilon() float64 {
	return d.epsilon
}

// Coordinate returns the scalar projection of pos onto the axis.
func (d DirectionChecker) Coordinate(pos mgl64.Vec3) float64 {
	return pos.Dot(d.axis)
}

// Delta returns the signed progress along the axis from one position to another.
func (d DirectionChecker) Delta(from, to mgl64.Vec3) float64 {
	return d.Coordinate(to) - d.Coordinate(from)
}

// IsCorrectDirection reports whether observed is not behind reference along the axis.
// A reference exactly at the observed coordinate counts as reached.
func (d DirectionChecker) IsCorrectDirection(reference, observed mgl64.Vec3) bool {
	return d.Delta(reference, observed) > -d.epsilon
}

// IsSameDirection reports whether the movement from → to made no progress along the
// axis within epsilon, in either direction.
func (d DirectionChecker) IsSameDirection(from, to mgl64.Vec3) bool {
	return math.Abs(d.Delta(from, to)) <= d.epsilon
}

// Classify classifies the movement from → to.
func (d DirectionChecker) Classify(from, to mgl64.Vec3) Motion {
	switch {
	case d.IsSameDirection(from, to):
		return MotionStationary
	case d.IsCorrectDirection(from, to):
		return MotionForward
	default:
		return MotionBackward
	}
}

// FacingAngle returns the angle in degrees between look and the axis.
// Zero-length look vectors are treated as facing straight along the axis.
func (d DirectionChecker) FacingAngle(look mgl64.Vec3) float64 {
	ll, al := look.Len(), d.axis.Len()
	if ll <= d.epsilon || al == 0 {
		return 0
	}
	cos := mgl64.Clamp(look.Dot(d.axis)/(ll*al), -1, 1)
	return mgl64.RadToDeg(math.Acos(cos))
}

// FacingLegal reports whether look stays within limit degrees of the axis.
func (d DirectionChecker) FacingLegal(look mgl64.Vec3, limit float64) bool {
	return d.FacingAngle(look) <= limit+d.epsilon
}
