package parkour

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

var (
	// ErrTooFewWaypoints is returned when a course has fewer than two waypoints.
	ErrTooFewWaypoints = errors.New("course needs at least two waypoints")
	// ErrDegenerateAxis is returned when the start and finish borders coincide.
	ErrDegenerateAxis = errors.New("start and finish borders coincide")
	// ErrBorderAxis is returned when a border faces against the direction of travel.
	ErrBorderAxis = errors.New("border axis points against the course")
	// ErrInvalidCoordinate is returned for NaN or infinite coordinates.
	ErrInvalidCoordinate = errors.New("coordinate is not finite")
	// ErrSpawnPastStart is returned when a level spawn is not behind the start border.
	ErrSpawnPastStart = errors.New("spawn is not behind the start border")
	// ErrNoCourse is returned when a level has no course.
	ErrNoCourse = errors.New("level has no course")
)

// Border is a plane a player crosses to start or finish a run.
type Border struct {
	// Position is any point on the plane.
	Position mgl64.Vec3
	// Axis is the direction in which the border must be crossed. A zero axis
	// is replaced by the course axis.
	Axis mgl64.Vec3

	dir DirectionChecker
}

// Reached reports whether pos lies on or beyond the border.
func (b Border) Reached(pos mgl64.Vec3) bool {
	return b.dir.IsCorrectDirection(b.Position, pos)
}

// Coordinate returns the border's own coordinate along its axis.
func (b Border) Coordinate() float64 {
	return b.dir.Coordinate(b.Position)
}

// Course is the intended path of a level: an ordered list of waypoints and the start
// and finish borders. A Course is immutable once created and is shared read-only by
// every session playing the level.
type Course struct {
	waypoints []mgl64.Vec3
	start     Border
	finish    Border
	dir       DirectionChecker
}

// NewCourse validates and creates a course. The direction of travel is the vector
// from the start border position to the finish border position.
func NewCourse(waypoints []mgl64.Vec3, start, finish Border, epsilon float64) (*Course, error) {
	if len(waypoints) < 2 {
		return nil, fmt.Errorf("new course: %w (got %d)", ErrTooFewWaypoints, len(waypoints))
	}
	for i, w := range waypoints {
		if !finite(w) {
			return nil, fmt.Errorf("new course: waypoint %d: %w", i, ErrInvalidCoordinate)
		}
	}
	if !finite(start.Position) || !finite(start.Axis) {
		return nil, fmt.Errorf("new course: start border: %w", ErrInvalidCoordinate)
	}
	if !finite(finish.Position) || !finite(finish.Axis) {
		return nil, fmt.Errorf("new course: finish border: %w", ErrInvalidCoordinate)
	}

	axis := finish.Position.Sub(start.Position)
	if axis.Len() <= math.Max(epsilon, 1e-9) {
		return nil, fmt.Errorf("new course: %w", ErrDegenerateAxis)
	}
	dir := NewDirectionChecker(axis, epsilon)

	var err error
	if start, err = prepareBorder(start, dir, epsilon); err != nil {
		return nil, fmt.Errorf("new course: start border: %w", err)
	}
	if finish, err = prepareBorder(finish, dir, epsilon); err != nil {
		return nil, fmt.Errorf("new course: finish border: %w", err)
	}

	return &Course{
		waypoints: append([]mgl64.Vec3(nil), waypoints...),
		start:     start,
		finish:    finish,
		dir:       dir,
	}, nil
}

// prepareBorder defaults and validates the axis of a border.
func prepareBorder(b Border, dir DirectionChecker, epsilon float64) (Border, error) {
	if b.Axis.Len() <= 1e-9 {
		b.Axis = dir.Axis()
	}
	if b.Axis.Dot(dir.Axis()) <= 0 {
		return b, ErrBorderAxis
	}
	b.dir = NewDirectionChecker(b.Axis, epsilon)
	b.Axis = b.dir.Axis()
	return b, nil
}

// Waypoints returns a copy of the course waypoints in path order.
func (c *Course) Waypoints() []mgl64.Vec3 {
	return append([]mgl64.Vec3(nil), c.waypoints...)
}

// Waypoint returns the waypoint at index i.
func (c *Course) Waypoint(i int) mgl64.Vec3 {
	return c.waypoints[i]
}

// Len returns the number of waypoints.
func (c *Course) Len() int {
	return len(c.waypoints)
}

// Start returns the start border.
func (c *Course) Start() Border {
	return c.start
}

// Finish returns the finish border.
func (c *Course) Finish() Border {
	return c.finish
}

// Axis returns the unit start → finish vector.
func (c *Course) Axis() mgl64.Vec3 {
	return c.dir.Axis()
}

// Direction returns the direction checker of the course.
func (c *Course) Direction() DirectionChecker {
	return c.dir
}

// Level is a playable level: a course plus the data the engine needs around it.
type Level struct {
	// ID uniquely identifies the level.
	ID uuid.UUID
	// Name is the display name of the level.
	Name string
	// Course is the path the player has to follow.
	Course *Course
	// Spawn is where the player is sent before and after every run.
	Spawn mgl64.Vec3
	// FallHeight is the minimum height. Falling below it ends the run.
	FallHeight float64
	// Track is the audio asset played during runs. Empty means no track.
	Track string
}

// Validate checks the level can be played.
func (l *Level) Validate() error {
	if l.Course == nil {
		return fmt.Errorf("level %q: %w", l.Name, ErrNoCourse)
	}
	if !finite(l.Spawn) {
		return fmt.Errorf("level %q: spawn: %w", l.Name, ErrInvalidCoordinate)
	}
	start := l.Course.Start()
	if start.Reached(l.Spawn) {
		return fmt.Errorf("level %q: %w", l.Name, ErrSpawnPastStart)
	}
	return nil
}

// finite reports whether all components of v are finite.
func finite(v mgl64.Vec3) bool {
	for _, f := range v {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
