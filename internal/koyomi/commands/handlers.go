package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bdobrica/Koyomi/internal/koyomi/calendar"
	"github.com/bdobrica/Koyomi/internal/koyomi/nlu"
)

// Display layouts for dates shown to the user, in the configured location.
const (
	dateLayout     = "1/2/2006"
	clockLayout    = "3:04:05 PM"
	dateTimeLayout = dateLayout + ", " + clockLayout
)

// Handlers holds the dependencies of the message handlers.
type Handlers struct {
	calendar Calendar
	location *time.Location
}

// NewHandlers returns Handlers using cal. Dates are shown in loc (UTC when
// nil).
func NewHandlers(cal Calendar, loc *time.Location) *Handlers {
	if loc == nil {
		loc = time.UTC
	}
	return &Handlers{calendar: cal, location: loc}
}

// Register registers the four message handlers on r.
func (h *Handlers) Register(r *Router) {
	r.Register(IntentConnectAccount, h.HandleLinkPrompt)
	r.Register(IntentGetEvents, h.HandleListEvents)
	r.Register(IntentProcessEvent+"."+ProcessCreate, h.HandleCreate)
	r.Register(IntentProcessEvent+"."+ProcessCancel, h.HandleCancel)
}

// ParseDatetime parses a datetime entity value. Wit returns RFC 3339 with
// fractional seconds; a bare date is read as midnight in loc.
func ParseDatetime(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: no datetime entity", ErrDateParse)
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.ParseInLocation(time.DateOnly, value, loc); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrDateParse, value)
}

func (h *Handlers) datetime(ents nlu.Entities) (time.Time, error) {
	return ParseDatetime(ents.Get(nlu.EntityDatetime), h.location)
}

func requireEntity(ents nlu.Entities, name string) (string, error) {
	v := strings.TrimSpace(ents.Get(name))
	if v == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingEntity, name)
	}
	return v, nil
}

// gatewayResult turns a calendar failure into a reply when the service
// answered with an error message. Any other error is returned unchanged.
func gatewayResult(ctx context.Context, err error) (Result, error) {
	var gwErr *calendar.GatewayError
	if errors.As(err, &gwErr) {
		slog.WarnContext(ctx, "calendar request failed",
			"op", gwErr.Operation, "status", gwErr.Status, "message", gwErr.Message)
		return textResult(gwErr.Message), nil
	}
	return NoAction, err
}
