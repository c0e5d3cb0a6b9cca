package parkour

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

const levelsTOML = `
[[level]]
name = "Intro"
track = "intro"
fall_height = 60.0
spawn = { x = 0.5, y = 64.0, z = -3.0 }
start = { position = { x = 0.0, y = 64.0, z = 0.0 } }
finish = { position = { x = 0.0, y = 64.0, z = 20.0 } }

[[level.waypoint]]
x = 0.5
y = 64.0
z = 0.0

[[level.waypoint]]
x = 0.5
y = 65.0
z = 10.0

[[level.waypoint]]
x = 0.5
y = 64.0
z = 20.0

[[level]]
id = "6f1f8a3e-2f4b-4f0e-9a57-1c1b6f0f2a10"
name = "Sideways"
fall_height = 10.0
spawn = { x = -2.0, y = 20.0, z = 0.0 }
start = { position = { x = 0.0, y = 20.0, z = 0.0 }, axis = { x = 1.0, y = 0.0, z = 0.0 } }
finish = { position = { x = 30.0, y = 20.0, z = 0.0 } }

[[level.waypoint]]
x = 0.0
y = 20.0
z = 0.0

[[level.waypoint]]
x = 30.0
y = 20.0
z = 0.0
`

func TestParseLevels(t *testing.T) {
	set, err := ParseLevels([]byte(levelsTOML), 1e-3)
	if err != nil {
		t.Fatalf("ParseLevels: %v", err)
	}
	levels := set.Levels()
	if len(levels) != 2 || levels[0].Name != "Intro" || levels[1].Name != "Sideways" {
		t.Fatalf("expected [Intro Sideways] in file order, got %d levels", len(levels))
	}

	intro := levels[0]
	if intro.Track != "intro" || intro.FallHeight != 60 || intro.Spawn != (mgl64.Vec3{0.5, 64, -3}) {
		t.Fatalf("intro decoded wrongly: %+v", intro)
	}
	if intro.Course.Len() != 3 || intro.Course.Waypoint(1) != (mgl64.Vec3{0.5, 65, 10}) {
		t.Fatalf("intro waypoints decoded wrongly: %v", intro.Course.Waypoints())
	}
	if want := uuid.NewSHA1(uuid.NameSpaceOID, []byte("parkour:Intro")); intro.ID != want {
		t.Fatalf("expected a name derived id %s, got %s", want, intro.ID)
	}

	sideways := levels[1]
	if sideways.ID.String() != "6f1f8a3e-2f4b-4f0e-9a57-1c1b6f0f2a10" {
		t.Fatalf("explicit id ignored: %s", sideways.ID)
	}
	if sideways.Course.Axis() != (mgl64.Vec3{1, 0, 0}) {
		t.Fatalf("expected axis +X, got %v", sideways.Course.Axis())
	}
}

func TestParseLevelsRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"one waypoint", `
[[level]]
name = "Short"
spawn = { x = 0.0, y = 64.0, z = -3.0 }
start = { position = { x = 0.0, y = 64.0, z = 0.0 } }
finish = { position = { x = 0.0, y = 64.0, z = 10.0 } }
[[level.waypoint]]
x = 0.0
y = 64.0
z = 0.0
`, ErrTooFewWaypoints},
		{"spawn past start", `
[[level]]
name = "Ahead"
spawn = { x = 0.0, y = 64.0, z = 3.0 }
start = { position = { x = 0.0, y = 64.0, z = 0.0 } }
finish = { position = { x = 0.0, y = 64.0, z = 10.0 } }
[[level.waypoint]]
x = 0.0
y = 64.0
z = 0.0
[[level.waypoint]]
x = 0.0
y = 64.0
z = 10.0
`, ErrSpawnPastStart},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseLevels([]byte(tt.data), 1e-3); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if _, err := ParseLevels([]byte("[[level]\nname ="), 1e-3); err == nil {
		t.Fatalf("expected a decode error")
	}
}

func TestLoadLevelsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "levels.toml")
	if err := os.WriteFile(path, []byte(levelsTOML), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	set, err := LoadLevels(path, 1e-3)
	if err != nil {
		t.Fatalf("LoadLevels: %v", err)
	}
	if set.Len() != 2 {
		t.Fatalf("expected 2 levels, got %d", set.Len())
	}
	if _, err := LoadLevels(filepath.Join(t.TempDir(), "missing.toml"), 1e-3); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func TestLevelSet(t *testing.T) {
	a, b := testLevel(t, 10, ""), testLevel(t, 20, "")
	b.Name = "Second"
	set, err := NewLevelSet(a, b)
	if err != nil {
		t.Fatalf("NewLevelSet: %v", err)
	}

	if err := set.Add(a); !errors.Is(err, ErrDuplicateLevel) {
		t.Fatalf("expected ErrDuplicateLevel, got %v", err)
	}
	if l, ok := set.ByName("second"); !ok || l != b {
		t.Fatalf("expected a case insensitive name lookup")
	}
	if l, ok := set.ByName(a.ID.String()); !ok || l != a {
		t.Fatalf("expected lookup by id")
	}
	if got, err := set.LoadLevel(context.Background(), b.ID); err != nil || got != b {
		t.Fatalf("LoadLevel: %v", err)
	}

	if !set.RemoveLevel(a.ID) || set.RemoveLevel(a.ID) {
		t.Fatalf("expected exactly one successful removal")
	}
	if _, err := set.LoadLevel(context.Background(), a.ID); !errors.Is(err, ErrLevelNotFound) {
		t.Fatalf("expected ErrLevelNotFound, got %v", err)
	}
}
