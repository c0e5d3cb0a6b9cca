package parkour

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
)

// ErrDuplicateLevel is returned when two levels share an id.
var ErrDuplicateLevel = errors.New("duplicate level")

// LevelSet is an in-memory LevelProvider that keeps levels in the order they were added.
// It is safe for concurrent use.
type LevelSet struct {
	mu     sync.RWMutex
	levels *orderedmap.OrderedMap[uuid.UUID, *Level]
}

// NewLevelSet creates a set holding the given levels.
func NewLevelSet(levels ...*Level) (*LevelSet, error) {
	set := &LevelSet{levels: orderedmap.NewOrderedMap[uuid.UUID, *Level]()}
	for _, l := range levels {
		if err := set.Add(l); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// Add validates and adds a level.
func (set *LevelSet) Add(l *Level) error {
	if err := l.Validate(); err != nil {
		return err
	}
	set.mu.Lock()
	defer set.mu.Unlock()
	if _, ok := set.levels.Get(l.ID); ok {
		return fmt.Errorf("level %q (%s): %w", l.Name, l.ID, ErrDuplicateLevel)
	}
	set.levels.Set(l.ID, l)
	return nil
}

// RemoveLevel implements LevelRemover.
func (set *LevelSet) RemoveLevel(id uuid.UUID) bool {
	set.mu.Lock()
	defer set.mu.Unlock()
	return set.levels.Delete(id)
}

// LoadLevel implements LevelProvider.
func (set *LevelSet) LoadLevel(_ context.Context, id uuid.UUID) (*Level, error) {
	set.mu.RLock()
	defer set.mu.RUnlock()
	l, ok := set.levels.Get(id)
	if !ok {
		return nil, fmt.Errorf("level %s: %w", id, ErrLevelNotFound)
	}
	return l, nil
}

// Levels implements LevelLister.
func (set *LevelSet) Levels() []*Level {
	set.mu.RLock()
	defer set.mu.RUnlock()
	out := make([]*Level, 0, set.levels.Len())
	for el := set.levels.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value)
	}
	return out
}

// Len returns the number of levels.
func (set *LevelSet) Len() int {
	set.mu.RLock()
	defer set.mu.RUnlock()
	return set.levels.Len()
}

// ByName returns the first level whose name matches, ignoring case.
func (set *LevelSet) ByName(name string) (*Level, bool) {
	return findLevel(set.Levels(), name)
}

// findLevel looks a level up by name, ignoring case, or by id.
func findLevel(levels []*Level, name string) (*Level, bool) {
	name = strings.TrimSpace(name)
	for _, l := range levels {
		if strings.EqualFold(l.Name, name) {
			return l, true
		}
	}
	if id, err := uuid.Parse(name); err == nil {
		for _, l := range levels {
			if l.ID == id {
				return l, true
			}
		}
	}
	return nil, false
}

// point is a position in a level file.
type point struct {
	X float64 `toml:"x"`
	Y float64 `toml:"y"`
	Z float64 `toml:"z"`
}

func (p point) vec() mgl64.Vec3 {
	return mgl64.Vec3{p.X, p.Y, p.Z}
}

// borderFile is a border in a level file. An omitted axis follows the course.
type borderFile struct {
	Position point  `toml:"position"`
	Axis     *point `toml:"axis,omitempty"`
}

func (b borderFile) border() Border {
	br := Border{Position: b.Position.vec()}
	if b.Axis != nil {
		br.Axis = b.Axis.vec()
	}
	return br
}

// levelFile is one level in a level file.
type levelFile struct {
	ID         string     `toml:"id,omitempty"`
	Name       string     `toml:"name"`
	Track      string     `toml:"track,omitempty"`
	FallHeight float64    `toml:"fall_height"`
	Spawn      point      `toml:"spawn"`
	Start      borderFile `toml:"start"`
	Finish     borderFile `toml:"finish"`
	Waypoints  []point    `toml:"waypoint"`
}

// levelsFile is the root of a level file.
type levelsFile struct {
	Levels []levelFile `toml:"level"`
}

// ParseLevels decodes levels from TOML. A level without an id gets one derived from its
// name, so that it stays stable across restarts.
func ParseLevels(data []byte, epsilon float64) (*LevelSet, error) {
	var file levelsFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode levels: %w", err)
	}

	set, _ := NewLevelSet()
	for i, lf := range file.Levels {
		lvl, err := lf.level(epsilon)
		if err != nil {
			return nil, fmt.Errorf("level %d: %w", i, err)
		}
		if err := set.Add(lvl); err != nil {
			return nil, fmt.Errorf("level %d: %w", i, err)
		}
	}
	return set, nil
}

// level converts the decoded level into a Level.
func (lf levelFile) level(epsilon float64) (*Level, error) {
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte("parkour:"+lf.Name))
	if lf.ID != "" {
		var err error
		if id, err = uuid.Parse(lf.ID); err != nil {
			return nil, fmt.Errorf("id %q: %w", lf.ID, err)
		}
	}

	waypoints := make([]mgl64.Vec3, len(lf.Waypoints))
	for i, p := range lf.Waypoints {
		waypoints[i] = p.vec()
	}
	course, err := NewCourse(waypoints, lf.Start.border(), lf.Finish.border(), epsilon)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", lf.Name, err)
	}
	return &Level{
		ID:         id,
		Name:       lf.Name,
		Course:     course,
		Spawn:      lf.Spawn.vec(),
		FallHeight: lf.FallHeight,
		Track:      lf.Track,
	}, nil
}

// LoadLevels reads levels from the TOML file at path.
func LoadLevels(path string, epsilon float64) (*LevelSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read levels: %w", err)
	}
	return ParseLevels(data, epsilon)
}
