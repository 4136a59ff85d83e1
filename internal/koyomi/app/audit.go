package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/bdobrica/Koyomi/common/trace"
	"github.com/bdobrica/Koyomi/internal/koyomi/calendar"
	"github.com/bdobrica/Koyomi/internal/koyomi/commands"
	"github.com/bdobrica/Koyomi/internal/koyomi/store"
)

// AuditWriter records calendar mutations. *store.Store implements it.
type AuditWriter interface {
	WriteAudit(ctx context.Context, traceID, platform, userID, action, target, result, errorMsg string) error
}

var _ AuditWriter = (*store.Store)(nil)

// auditedCalendar records every mutation passed to the wrapped calendar.
// Reads go straight through.
type auditedCalendar struct {
	commands.Calendar
	audit    AuditWriter
	platform string
}

// withAudit wraps cal so mutations are written to audit. A nil audit
// returns cal unchanged.
func withAudit(cal commands.Calendar, audit AuditWriter, platform string) commands.Calendar {
	if audit == nil {
		return cal
	}
	return &auditedCalendar{Calendar: cal, audit: audit, platform: platform}
}

func (a *auditedCalendar) CreateEvent(ctx context.Context, userID string, ev calendar.NewEvent) error {
	err := a.Calendar.CreateEvent(ctx, userID, ev)
	a.record(ctx, userID, calendar.OpCreateEvent, ev.Title+" @ "+ev.Start.UTC().Format(calendar.TimeLayout), err)
	return err
}

func (a *auditedCalendar) CancelEvent(ctx context.Context, userID string, start time.Time, title string) error {
	err := a.Calendar.CancelEvent(ctx, userID, start, title)
	a.record(ctx, userID, calendar.OpCancelEvent, title+" @ "+start.UTC().Format(calendar.TimeLayout), err)
	return err
}

func (a *auditedCalendar) LinkAccount(ctx context.Context, userID, username string) error {
	err := a.Calendar.LinkAccount(ctx, userID, username)
	a.record(ctx, userID, calendar.OpLinkAccount, username, err)
	return err
}

// record never fails the mutation; audit errors are only logged.
func (a *auditedCalendar) record(ctx context.Context, userID, action, target string, err error) {
	result, msg := store.AuditSuccess, ""
	if err != nil {
		result, msg = store.AuditFailure, err.Error()
	}
	if werr := a.audit.WriteAudit(ctx, trace.FromContext(ctx), a.platform, userID, action, target, result, msg); werr != nil {
		slog.WarnContext(ctx, "failed to write audit entry", "action", action, "err", werr)
	}
}
