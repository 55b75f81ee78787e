package audit

import "time"

// Event names recorded in the session audit trail.
const (
	EventSessionStarted   = "session_started"
	EventSessionStopped   = "session_stopped"
	EventSessionCompleted = "session_completed"
	EventSessionFailed    = "session_failed"
	EventStopRequested    = "stop_requested"
)

// Entry is one operator-visible record of session activity.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`
	Event     string    `json:"event"`
	Detail    string    `json:"detail,omitempty"`
}
