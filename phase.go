package parkour

// Phase represents the mode a run session is currently in.
// Sessions move Preparing → Ready → Running and fall back to Ready when a run ends.
type Phase uint32

const (
	// PhasePreparing parks the session. Movement is cancelled while the session waits
	// for its audio track or after a forced stop.
	PhasePreparing Phase = iota

	// PhaseReady arms the session. Crossing the start border starts a run.
	PhaseReady

	// PhaseRunning is an active run. Every movement is validated and scored.
	PhaseRunning
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhasePreparing:
		return "Preparing"
	case PhaseReady:
		return "Ready"
	case PhaseRunning:
		return "Running"
	default:
		return "Unknown"
	}
}
