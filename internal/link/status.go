package link

import "fmt"

// Status is the coarse connectivity state other loops gate on.
type Status int32

const (
	Disconnected Status = iota
	Connecting
	Connected
	Error
)

func (s Status) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int32(s))
	}
}

// MarshalText renders the status as its lowercase name in JSON payloads.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// LinkState is what the underlying link reports on each check.
type LinkState int

const (
	// LinkDown covers transient loss: refused, unreachable, timed out.
	LinkDown LinkState = iota
	LinkUp
	// LinkFailed is a persistent failure that retrying right away won't fix.
	LinkFailed
)

func (s LinkState) String() string {
	switch s {
	case LinkUp:
		return "up"
	case LinkFailed:
		return "failed"
	default:
		return "down"
	}
}
