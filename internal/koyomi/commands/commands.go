// Package commands turns normalized chat input into replies and calendar
// mutations.
//
// A Message is routed by intent to one of four handlers. Handlers that
// propose a mutation embed a pending-action token in a confirmation button;
// the Resolver decodes the token when the button is pressed and performs the
// mutation.
package commands

import (
	"context"
	"errors"
	"time"

	"github.com/bdobrica/Koyomi/internal/koyomi/calendar"
	"github.com/bdobrica/Koyomi/internal/koyomi/reply"
)

// Intents the router understands.
const (
	IntentConnectAccount = "connect_slack_account"
	IntentGetEvents      = "get_events"
	IntentProcessEvent   = "process_event"
)

// Values of the "action" entity under IntentProcessEvent.
const (
	ProcessCreate = "create"
	ProcessCancel = "cancel"
)

// Action ids carried by buttons and inputs.
const (
	ActionConfirmCreate = "confirm_appointment_create"
	ActionCancelCreate  = "cancel_appointment_create"
	ActionConfirmCancel = "confirm_appointment_cancel"
	ActionLinkAccount   = "connect_slack_calendar_app"
)

var (
	// ErrDateParse is returned when the datetime entity is missing or cannot
	// be parsed.
	ErrDateParse = errors.New("commands: cannot parse datetime")

	// ErrMissingEntity is returned when a required entity was not extracted.
	ErrMissingEntity = errors.New("commands: required entity missing")

	// ErrNoUser is returned when an event carries no platform user id.
	ErrNoUser = errors.New("commands: event has no user")
)

// Message is an inbound chat message.
type Message struct {
	Text        string
	User        string
	Channel     string
	ChannelType string
}

// Action is an inbound interaction: a button press or an input submission.
type Action struct {
	ActionID string
	BlockID  string
	Value    string
	User     string
	Channel  string
}

// Result is the outcome of handling one event.
type Result struct {
	Reply reply.Message
}

// NoAction is the Result of an event that deliberately produces no reply.
var NoAction = Result{}

// IsNoAction reports whether r sends nothing.
func (r Result) IsNoAction() bool { return r.Reply.IsZero() }

func textResult(s string) Result { return Result{Reply: reply.Text(s)} }

// Calendar is the calendar service as the handlers use it.
// *calendar.Client implements it.
type Calendar interface {
	ListEvents(ctx context.Context, userID string, date time.Time, grain string) ([]calendar.Event, error)
	FindEvents(ctx context.Context, userID string, date time.Time, grain, eventName string) ([]calendar.Event, error)
	CreateEvent(ctx context.Context, userID string, ev calendar.NewEvent) error
	CancelEvent(ctx context.Context, userID string, start time.Time, title string) error
	LinkAccount(ctx context.Context, userID, username string) error
}

var _ Calendar = (*calendar.Client)(nil)

// Sink receives inbound events from a chat transport. Transports call it on
// a fresh goroutine per event.
type Sink interface {
	HandleMessage(ctx context.Context, msg Message)
	// HandleAction handles an interaction; ack acknowledges it to the
	// platform and must be called before any slow work.
	HandleAction(ctx context.Context, act Action, ack Ack)
}
