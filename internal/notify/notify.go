// Package notify pushes engine status events to connected observers.
//
// The channel is strictly one-way: events are fire-and-forget, at most once
// per triggering state transition, and nothing ever flows back into the
// engine. The engine depends only on the Notifier interface so the core is
// testable without a live transport.
package notify

// Event is one status notification.
type Event struct {
	Type     EventType `json:"type"`
	Username string    `json:"username,omitempty"`
	UserID   string    `json:"user_id,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	Message  string    `json:"message,omitempty"`
}

// EventType enumerates the engine's observable transitions.
type EventType string

const (
	EventReady             EventType = "ready"
	EventChallengeRequired EventType = "challenge_required"
	EventAuthFailed        EventType = "auth_failed"
	EventDisconnected      EventType = "disconnected"
)

// Notifier publishes events to whoever is listening. Implementations must
// never block the caller on slow observers and must never fail the caller.
type Notifier interface {
	Publish(ev Event)
}

// Discard is a Notifier that drops every event. Useful in tests.
type Discard struct{}

// Publish implements Notifier.
func (Discard) Publish(Event) {}
