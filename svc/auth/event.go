package auth

import "fmt"

// EventKind is the closed set of provider events.
type EventKind uint8

const (
	EventUnknown EventKind = iota
	EventSignedIn
	EventSignedOut
	EventTokenRefreshed
	EventUserUpdated
	EventInitialSession
)

var eventNames = map[EventKind]string{
	EventUnknown:        "UNKNOWN",
	EventSignedIn:       "SIGNED_IN",
	EventSignedOut:      "SIGNED_OUT",
	EventTokenRefreshed: "TOKEN_REFRESHED",
	EventUserUpdated:    "USER_UPDATED",
	EventInitialSession: "INITIAL_SESSION",
}

func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return fmt.Sprintf("EventKind(%d)", uint8(k))
}

// ParseEventKind maps a wire name to its kind; unrecognized names yield
// EventUnknown.
func ParseEventKind(name string) EventKind {
	for k, n := range eventNames {
		if n == name {
			return k
		}
	}
	return EventUnknown
}

// Event is pushed by the provider. Session is nil when nobody is signed in.
type Event struct {
	Kind    EventKind
	Session *Session
}
