package parkour

// Runnable is the interface implemented by scheduled tasks.
// Run is called inside the owning player's transaction with the player's current Body.
type Runnable interface {
	Run(b Body)
}

// RunnableFunc adapts a function to the Runnable interface.
type RunnableFunc func(b Body)

// Run calls f(b).
func (f RunnableFunc) Run(b Body) {
	f(b)
}
