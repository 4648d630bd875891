package session

import "fmt"

// State is the connection state of the controller.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// SocketError means the WebSocket failed after or while being established.
type SocketError struct {
	Err error
}

func (e *SocketError) Error() string {
	return fmt.Sprintf("streaming socket failure: %v", e.Err)
}

func (e *SocketError) Unwrap() error { return e.Err }
