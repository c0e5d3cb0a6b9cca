package parkour

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config contains every tunable of the engine.
type Config struct {
	// TickRate is the duration of one scheduler tick.
	TickRate time.Duration `toml:"tick_rate"`
	// Debug shows diagnostic values such as coordinates and angles in failure titles.
	Debug bool `toml:"debug"`

	Stall     StallConfig     `toml:"stall"`
	Direction DirectionConfig `toml:"direction"`
	Accuracy  AccuracyConfig  `toml:"accuracy"`
	Assets    AssetConfig     `toml:"assets"`
	Messages  Messages        `toml:"messages"`
}

// StallConfig configures the penalty for not sprinting during a run.
type StallConfig struct {
	// Period is the number of ticks between two penalty applications.
	Period int `toml:"period"`
	// Damage is the health removed per application.
	Damage float64 `toml:"damage"`
	// Threshold is the health at or below which the run fails.
	Threshold float64 `toml:"threshold"`
	// ImmunityTicks is the window after an application in which no further damage is dealt.
	ImmunityTicks int `toml:"immunity_ticks"`
}

// DirectionConfig configures the geometric checks.
type DirectionConfig struct {
	// Epsilon is the tolerance for projections and angles.
	Epsilon float64 `toml:"epsilon"`
	// MaxFacingAngle is the largest legal angle in degrees between look and course direction.
	MaxFacingAngle float64 `toml:"max_facing_angle"`
}

// AccuracyConfig configures accuracy scoring.
type AccuracyConfig struct {
	// Tolerance is the distance from the path that is not penalised.
	Tolerance float64 `toml:"tolerance"`
	// Scale is the accumulated deviation at which accuracy drops to 1/e.
	Scale float64 `toml:"scale"`
}

// AssetConfig configures the audio track gate.
type AssetConfig struct {
	// Delay is the number of ticks to wait before requesting the track.
	Delay int `toml:"delay"`
	// PollInterval is the number of ticks between two delivery checks.
	PollInterval int `toml:"poll_interval"`
	// Timeout is the number of ticks after which delivery is given up.
	Timeout int `toml:"timeout"`
}

// Messages holds every text shown to players.
type Messages struct {
	Complete       string `toml:"complete"`
	Accuracy       string `toml:"accuracy"`
	StallWarning   string `toml:"stall_warning"`
	NotSprinting   string `toml:"not_sprinting"`
	Sneaking       string `toml:"sneaking"`
	Airborne       string `toml:"airborne"`
	Facing         string `toml:"facing"`
	Backward       string `toml:"backward"`
	WrongWayFinish string `toml:"wrong_way_finish"`
	Stall          string `toml:"stall"`
	Fall           string `toml:"fall"`
	Death          string `toml:"death"`
	Void           string `toml:"void"`
	Disconnect     string `toml:"disconnect"`
	Forced         string `toml:"forced"`

	TrackUnavailable string `toml:"track_unavailable"`
	TrackFailed      string `toml:"track_failed"`
	TrackLoading     string `toml:"track_loading"`
	TrackLoaded      string `toml:"track_loaded"`
	LevelRemoved     string `toml:"level_removed"`
}

// Reason returns the message for a failure reason.
func (m Messages) Reason(r Reason) string {
	switch r {
	case ReasonNotSprinting:
		return m.NotSprinting
	case ReasonSneaking:
		return m.Sneaking
	case ReasonAirborne:
		return m.Airborne
	case ReasonFacing:
		return m.Facing
	case ReasonBackward:
		return m.Backward
	case ReasonWrongWayFinish:
		return m.WrongWayFinish
	case ReasonStall:
		return m.Stall
	case ReasonFall:
		return m.Fall
	case ReasonDeath:
		return m.Death
	case ReasonVoid:
		return m.Void
	case ReasonDisconnect:
		return m.Disconnect
	case ReasonForced:
		return m.Forced
	}
	return r.String()
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		TickRate: 50 * time.Millisecond,
		Debug:    true,
		Stall: StallConfig{
			Period:        2,
			Damage:        1,
			Threshold:     1,
			ImmunityTicks: 1,
		},
		Direction: DirectionConfig{
			Epsilon:        1e-3,
			MaxFacingAngle: 100,
		},
		Accuracy: AccuracyConfig{
			Tolerance: 0.5,
			Scale:     50,
		},
		Assets: AssetConfig{
			Delay:        20,
			PollInterval: 10,
			Timeout:      600,
		},
		Messages: Messages{
			Complete:       "You completed the level",
			Accuracy:       "Accuracy: %.2f%%",
			StallWarning:   "Keep sprinting!",
			NotSprinting:   "Hold sprint to start!",
			Sneaking:       "Do not sneak!",
			Airborne:       "Do not jump at the start!",
			Facing:         "You cannot run backward!",
			Backward:       "You cannot run backward!",
			WrongWayFinish: "Wrong way across the finish!",
			Stall:          "You stopped sprinting",
			Fall:           "You fell",
			Death:          "You died",
			Void:           "You fell into the void",
			Disconnect:     "Disconnected",
			Forced:         "Run stopped",

			TrackUnavailable: "Track %q is currently unavailable",
			TrackFailed:      "Could not load track %q, playing without music",
			TrackLoading:     "Loading track %q, the level unlocks once it is done",
			TrackLoaded:      "Track %q loaded, enjoy the game!",
			LevelRemoved:     "Level %q was removed",
		},
	}
}

// Validate checks the configuration for values the engine cannot work with.
func (c Config) Validate() error {
	var errs []error
	if c.TickRate <= 0 {
		errs = append(errs, errors.New("tick_rate must be positive"))
	}
	if c.Stall.Period < 1 {
		errs = append(errs, errors.New("stall.period must be at least 1"))
	}
	if c.Stall.Damage <= 0 {
		errs = append(errs, errors.New("stall.damage must be positive"))
	}
	if c.Stall.Threshold < 0 {
		errs = append(errs, errors.New("stall.threshold must not be negative"))
	}
	if c.Stall.ImmunityTicks < 0 {
		errs = append(errs, errors.New("stall.immunity_ticks must not be negative"))
	}
	if c.Direction.Epsilon < 0 {
		errs = append(errs, errors.New("direction.epsilon must not be negative"))
	}
	if c.Direction.MaxFacingAngle <= 0 || c.Direction.MaxFacingAngle > 180 {
		errs = append(errs, errors.New("direction.max_facing_angle must be in (0, 180]"))
	}
	if c.Accuracy.Scale <= 0 {
		errs = append(errs, errors.New("accuracy.scale must be positive"))
	}
	if c.Accuracy.Tolerance < 0 {
		errs = append(errs, errors.New("accuracy.tolerance must not be negative"))
	}
	if c.Assets.Delay < 0 || c.Assets.PollInterval < 1 || c.Assets.Timeout < 1 {
		errs = append(errs, errors.New("assets.delay must not be negative, poll_interval and timeout must be at least 1"))
	}
	return errors.Join(errs...)
}

// LoadConfig reads the configuration at path on top of DefaultConfig. If the file does
// not exist, the defaults are written to it.
func LoadConfig(path string) (Config, error) {
	conf := DefaultConfig()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		data, err = toml.Marshal(conf)
		if err != nil {
			return conf, fmt.Errorf("encode default config: %w", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return conf, fmt.Errorf("write default config: %w", err)
		}
		return conf, nil
	}
	if err != nil {
		return conf, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &conf); err != nil {
		return conf, fmt.Errorf("decode config: %w", err)
	}
	if err := conf.Validate(); err != nil {
		return conf, fmt.Errorf("invalid config: %w", err)
	}
	return conf, nil
}
