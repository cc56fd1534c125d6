package playback

// State is the lifecycle position of a Session.
type State int

const (
	// StateIdle means nothing has been mounted yet.
	StateIdle State = iota

	// StateMounted means a reference is bound to a render target.
	StateMounted

	// StateUnmounted is terminal; the session accepts no further operations.
	StateUnmounted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateMounted:
		return "Mounted"
	case StateUnmounted:
		return "Unmounted"
	default:
		return "Unknown"
	}
}
