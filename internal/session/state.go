package session

// State is a stream session lifecycle state.
//
//	Idle → Acquiring → Streaming → Stopping → Idle
//	Acquiring → Stopping → Idle        (stop during acquisition)
//	Acquiring/Streaming → Error → Idle (acquisition or bind failure)
type State int32

const (
	StateIdle State = iota
	StateAcquiring
	StateStreaming
	StateStopping
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAcquiring:
		return "acquiring"
	case StateStreaming:
		return "streaming"
	case StateStopping:
		return "stopping"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// active reports whether a start request would be a no-op.
func (s State) active() bool {
	return s == StateAcquiring || s == StateStreaming
}
