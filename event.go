package parkour

// RunHandler receives the outcome of runs. Methods are called on the goroutine that
// drove the transition, which is the player's world goroutine for moves and scheduled
// tasks. Implementations must not block.
type RunHandler interface {
	// HandleRunStart is called when a run has started.
	HandleRunStart(s *Session)
	// HandleRunComplete is called when a run reached the finish border.
	HandleRunComplete(s *Session, r Result)
	// HandleRunFail is called when a run ended without success.
	HandleRunFail(s *Session, f Failure)
}

// NopRunHandler ignores every event.
type NopRunHandler struct{}

func (NopRunHandler) HandleRunStart(*Session)            {}
func (NopRunHandler) HandleRunComplete(*Session, Result) {}
func (NopRunHandler) HandleRunFail(*Session, Failure)    {}

// Compile time check to make sure NopRunHandler implements RunHandler.
var _ RunHandler = NopRunHandler{}

// MultiRunHandler fans events out to several handlers in order.
type MultiRunHandler []RunHandler

func (m MultiRunHandler) HandleRunStart(s *Session) {
	for _, h := range m {
		h.HandleRunStart(s)
	}
}

func (m MultiRunHandler) HandleRunComplete(s *Session, r Result) {
	for _, h := range m {
		h.HandleRunComplete(s, r)
	}
}

func (m MultiRunHandler) HandleRunFail(s *Session, f Failure) {
	for _, h := range m {
		h.HandleRunFail(s, f)
	}
}
