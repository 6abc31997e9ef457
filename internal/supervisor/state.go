package supervisor

// State represents the lifecycle state of the browser process.
type State int

const (
	// StateCreated is the initial state before spawn.
	StateCreated State = iota

	// StateStarting indicates the process is being spawned.
	StateStarting

	// StateRunning indicates the process is alive.
	StateRunning

	// StateExited indicates the process has been reaped.
	StateExited
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	default:
		return "unknown"
	}
}

// IsActive reports whether the process is starting or alive.
func (s State) IsActive() bool {
	return s == StateStarting || s == StateRunning
}

// IsTerminal reports whether the process is gone.
func (s State) IsTerminal() bool {
	return s == StateExited
}
