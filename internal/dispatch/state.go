package dispatch

// State is the position of one dispatch in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateDownloading
	StateAwaitingProvider
	StateFormatting
	StateDelivered
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDownloading:
		return "downloading"
	case StateAwaitingProvider:
		return "awaiting_provider"
	case StateFormatting:
		return "formatting"
	case StateDelivered:
		return "delivered"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateIdle || s == StateDelivered || s == StateFailed
}
