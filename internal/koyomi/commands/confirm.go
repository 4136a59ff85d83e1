package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bdobrica/Koyomi/internal/koyomi/calendar"
	"github.com/bdobrica/Koyomi/internal/koyomi/pending"
)

// EventDuration is the length of every event created from a confirmation.
const EventDuration = 30 * time.Minute

// DefaultVerifyURL is where users confirm a newly linked account.
const DefaultVerifyURL = "http://localhost:3000/verify/slack"

// Replies sent by the Resolver.
const (
	CreatedText      = "The new event has been created!"
	CancelledText    = "The event has been cancelled."
	NotCreatedText   = "Event will not be created."
	linkedTextFormat = "Slack Account Connected. Please verify by checking your account settings at %s"
)

// Ack acknowledges an interaction to the chat platform.
type Ack func(ctx context.Context) error

// ActionHandler handles one interaction.
type ActionHandler func(ctx context.Context, act Action) (Result, error)

// Resolver performs the mutation a confirmation button carries.
type Resolver struct {
	calendar  Calendar
	verifyURL string
	handlers  map[string]ActionHandler
}

// NewResolver returns a Resolver with the confirmation and account-link
// actions registered. An empty verifyURL uses DefaultVerifyURL.
func NewResolver(cal Calendar, verifyURL string) *Resolver {
	if verifyURL == "" {
		verifyURL = DefaultVerifyURL
	}
	r := &Resolver{
		calendar:  cal,
		verifyURL: verifyURL,
		handlers:  make(map[string]ActionHandler),
	}
	r.Register(ActionConfirmCreate, r.confirmCreate)
	r.Register(ActionCancelCreate, r.cancelCreate)
	r.Register(ActionConfirmCancel, r.confirmCancel)
	r.Register(ActionLinkAccount, r.linkAccount)
	return r
}

// Register registers a handler for an action id, replacing any existing one.
func (r *Resolver) Register(actionID string, handler ActionHandler) {
	r.handlers[actionID] = handler
}

// Resolve acknowledges act through ack, then runs the handler registered for
// its action id. The acknowledgement always happens first, before any
// calendar call and whatever the outcome. Unknown action ids yield NoAction.
func (r *Resolver) Resolve(ctx context.Context, act Action, ack Ack) (Result, error) {
	if ack != nil {
		if err := ack(ctx); err != nil {
			return NoAction, fmt.Errorf("acknowledge %s: %w", act.ActionID, err)
		}
	}
	handler, ok := r.handlers[act.ActionID]
	if !ok {
		slog.DebugContext(ctx, "no handler for action", "action_id", act.ActionID)
		return NoAction, nil
	}
	return handler(ctx, act)
}

func (r *Resolver) confirmCreate(ctx context.Context, act Action) (Result, error) {
	if act.User == "" {
		return NoAction, ErrNoUser
	}
	proposal, err := pending.DecodeCreate(act.Value)
	if err != nil {
		return NoAction, err
	}
	err = r.calendar.CreateEvent(ctx, act.User, calendar.NewEvent{
		Start:        proposal.Start,
		End:          proposal.Start.Add(EventDuration),
		Title:        proposal.Title,
		Participants: proposal.Participants,
	})
	if err != nil {
		return gatewayResult(ctx, err)
	}
	slog.InfoContext(ctx, "event created", "user", act.User, "title", proposal.Title)
	return textResult(CreatedText), nil
}

func (r *Resolver) cancelCreate(context.Context, Action) (Result, error) {
	return textResult(NotCreatedText), nil
}

func (r *Resolver) confirmCancel(ctx context.Context, act Action) (Result, error) {
	if act.User == "" {
		return NoAction, ErrNoUser
	}
	proposal, err := pending.DecodeCancel(act.Value)
	if err != nil {
		return NoAction, err
	}
	if err := r.calendar.CancelEvent(ctx, act.User, proposal.Start, proposal.Title); err != nil {
		return gatewayResult(ctx, err)
	}
	slog.InfoContext(ctx, "event cancelled", "user", act.User, "title", proposal.Title)
	return textResult(CancelledText), nil
}

func (r *Resolver) linkAccount(ctx context.Context, act Action) (Result, error) {
	if act.User == "" {
		return NoAction, ErrNoUser
	}
	username := strings.TrimSpace(act.Value)
	if username == "" {
		return NoAction, fmt.Errorf("%w: username", ErrMissingEntity)
	}
	if err := r.calendar.LinkAccount(ctx, act.User, username); err != nil {
		return gatewayResult(ctx, err)
	}
	return textResult(fmt.Sprintf(linkedTextFormat, r.verifyURL)), nil
}
