// Package calendar is the client for the remote calendar service.
//
// Every operation is a single JSON POST. A 200 status is the only success
// signal; any other status becomes a *GatewayError carrying the message the
// service put in its {"message": "..."} body, and a failure to talk to the
// service at all becomes a *TransportError. Calls are never retried.
package calendar

import (
	"fmt"
	"time"
)

// TimeLayout is the timestamp format the calendar service expects
// (JavaScript's toISOString).
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Operation names, used in errors and metrics.
const (
	OpListEvents  = "list_events"
	OpFindEvents  = "find_events"
	OpCreateEvent = "create_event"
	OpCancelEvent = "cancel_event"
	OpLinkAccount = "link_account"
)

// Event is a calendar event as returned by the listing endpoint.
type Event struct {
	Title        string    `json:"title"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Participants []string  `json:"participants"`
}

// NewEvent describes an event to create.
type NewEvent struct {
	Start        time.Time
	End          time.Time
	Title        string
	Participants []string
}

// GatewayError is a non-200 answer from the calendar service.
type GatewayError struct {
	Operation string
	Status    int
	// Message is the service's own error text, suitable for showing to the
	// user verbatim.
	Message string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("calendar: %s: HTTP %d: %s", e.Operation, e.Status, e.Message)
}

// TransportError is a failure to reach the calendar service or to read its
// answer.
type TransportError struct {
	Operation string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("calendar: %s: %v", e.Operation, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}
