package parkour

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/elliotchance/orderedmap/v2"
)

// Reason identifies why a run ended without success.
type Reason uint8

const (
	// ReasonNotSprinting is a start attempt without sprinting.
	ReasonNotSprinting Reason = iota
	// ReasonSneaking is a start attempt while sneaking.
	ReasonSneaking
	// ReasonAirborne is a start attempt while not on the ground.
	ReasonAirborne
	// ReasonFacing is looking too far away from the direction of the course.
	ReasonFacing
	// ReasonBackward is moving back along the course.
	ReasonBackward
	// ReasonWrongWayFinish is reaching the finish border from the wrong side.
	ReasonWrongWayFinish
	// ReasonStall is running out of health after not sprinting.
	ReasonStall
	// ReasonFall is dropping below the fall height of the level.
	ReasonFall
	// ReasonDeath is the player dying.
	ReasonDeath
	// ReasonVoid is the player taking void damage.
	ReasonVoid
	// ReasonDisconnect is the player leaving the server.
	ReasonDisconnect
	// ReasonForced is a run stopped by the host.
	ReasonForced
)

// String returns the string representation of the reason.
func (r Reason) String() string {
	switch r {
	case ReasonNotSprinting:
		return "NotSprinting"
	case ReasonSneaking:
		return "Sneaking"
	case ReasonAirborne:
		return "Airborne"
	case ReasonFacing:
		return "Facing"
	case ReasonBackward:
		return "Backward"
	case ReasonWrongWayFinish:
		return "WrongWayFinish"
	case ReasonStall:
		return "Stall"
	case ReasonFall:
		return "Fall"
	case ReasonDeath:
		return "Death"
	case ReasonVoid:
		return "Void"
	case ReasonDisconnect:
		return "Disconnect"
	case ReasonForced:
		return "Forced"
	default:
		return "Unknown"
	}
}

// External reports whether the reason originates outside the engine.
func (r Reason) External() bool {
	switch r {
	case ReasonFall, ReasonDeath, ReasonVoid, ReasonDisconnect, ReasonForced:
		return true
	}
	return false
}

// Failure describes a failed run.
type Failure struct {
	// Reason is the cause of the failure.
	Reason Reason
	// Data holds diagnostic values in insertion order, such as coordinates or angles.
	// It may be nil.
	Data *orderedmap.OrderedMap[string, any]
}

// Fail creates a failure without diagnostics.
func Fail(r Reason) Failure {
	return Failure{Reason: r}
}

// FailWith creates a failure with diagnostic key/value pairs. kv must alternate
// string keys and values.
func FailWith(r Reason, kv ...any) Failure {
	data := orderedmap.NewOrderedMap[string, any]()
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			k = fmt.Sprint(kv[i])
		}
		data.Set(k, kv[i+1])
	}
	return Failure{Reason: r, Data: data}
}

// Detail renders the diagnostic data as "key=value" pairs in insertion order.
func (f Failure) Detail() string {
	if f.Data == nil || f.Data.Len() == 0 {
		return ""
	}
	parts := make([]string, 0, f.Data.Len())
	for el := f.Data.Front(); el != nil; el = el.Next() {
		switch v := el.Value.(type) {
		case float64:
			parts = append(parts, fmt.Sprintf("%s=%.2f", el.Key, v))
		default:
			parts = append(parts, fmt.Sprintf("%s=%v", el.Key, v))
		}
	}
	return strings.Join(parts, " ")
}

// LogValue implements slog.LogValuer, keeping the diagnostic order.
func (f Failure) LogValue() slog.Value {
	attrs := []slog.Attr{slog.String("reason", f.Reason.String())}
	if f.Data != nil {
		for el := f.Data.Front(); el != nil; el = el.Next() {
			attrs = append(attrs, slog.Any(el.Key, el.Value))
		}
	}
	return slog.GroupValue(attrs...)
}

// Result describes a completed run.
type Result struct {
	// Accuracy is the final accuracy of the run in [0, 1].
	Accuracy float64
	// Samples is the number of positions scored during the run.
	Samples int
	// Ticks is the number of scheduler ticks the run lasted.
	Ticks uint64
}
