package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/bdobrica/Koyomi/common/trace"
	"github.com/bdobrica/Koyomi/internal/koyomi/calendar"
	"github.com/bdobrica/Koyomi/internal/koyomi/commands"
	"github.com/bdobrica/Koyomi/internal/koyomi/metrics"
	"github.com/bdobrica/Koyomi/internal/koyomi/nlu"
	"github.com/bdobrica/Koyomi/internal/koyomi/pending"
	"github.com/bdobrica/Koyomi/internal/koyomi/reply"
)

// Sender delivers replies to a chat channel.
type Sender interface {
	Send(ctx context.Context, channel string, msg reply.Message) error
}

// Transport is a chat platform connection.
type Transport interface {
	Sender
	Name() string
	// Run delivers inbound events to sink until ctx is cancelled.
	Run(ctx context.Context, sink commands.Sink) error
}

// Event outcomes, used in metrics and stats.
const (
	outcomeReplied  = "replied"
	outcomeNoAction = "no_action"
	outcomeError    = "error"
	outcomeDropped  = "dropped"
)

// Pipeline handles inbound chat events: it classifies messages, routes them
// to the command handlers, resolves interactions and sends the replies.
// It implements commands.Sink.
type Pipeline struct {
	classifier nlu.Classifier
	limiter    *nlu.RateLimiter
	router     *commands.Router
	resolver   *commands.Resolver
	sender     Sender

	messages atomic.Int64
	actions  atomic.Int64
	replies  atomic.Int64
	failures atomic.Int64
}

// PipelineConfig holds the collaborators of a Pipeline.
type PipelineConfig struct {
	Classifier nlu.Classifier
	// Limiter caps classifications per user. Nil disables limiting.
	Limiter  *nlu.RateLimiter
	Calendar commands.Calendar
	Sender   Sender
	// VerifyURL is shown after an account is linked.
	VerifyURL string
	// Location dates are displayed in.
	Location *time.Location
}

var _ commands.Sink = (*Pipeline)(nil)

// NewPipeline wires the router, handlers and resolver around cfg's
// collaborators.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	router := commands.NewRouter()
	commands.NewHandlers(cfg.Calendar, cfg.Location).Register(router)
	return &Pipeline{
		classifier: cfg.Classifier,
		limiter:    cfg.Limiter,
		router:     router,
		resolver:   commands.NewResolver(cfg.Calendar, cfg.VerifyURL),
		sender:     cfg.Sender,
	}
}

// HandleMessage classifies msg, routes it and sends the reply, if any.
// Errors are logged and never returned: the user only ever sees replies the
// handlers produce.
func (p *Pipeline) HandleMessage(ctx context.Context, msg commands.Message) {
	ctx = trace.Ensure(ctx)
	p.messages.Add(1)
	defer p.recover(ctx, "message")

	slog.DebugContext(ctx, "message received", "user", msg.User, "channel", msg.Channel)

	if !p.limiter.Allow(msg.User) {
		slog.WarnContext(ctx, "message rate limited", "user", msg.User)
		p.send(ctx, "message", msg.Channel, reply.Text(nlu.RateLimitMessage))
		metrics.Events.WithLabelValues("message", outcomeDropped).Inc()
		return
	}

	raw, err := p.classifier.Classify(ctx, msg.Text)
	if err != nil {
		if errors.Is(err, nlu.ErrRateLimit) {
			p.send(ctx, "message", msg.Channel, reply.Text(nlu.RateLimitMessage))
		}
		p.finish(ctx, "message", msg.Channel, commands.NoAction, fmt.Errorf("classify: %w", err))
		return
	}

	ents, err := nlu.Normalize(raw)
	if err != nil {
		p.finish(ctx, "message", msg.Channel, commands.NoAction, err)
		return
	}
	metrics.Intents.WithLabelValues(ents.Intent).Inc()
	slog.InfoContext(ctx, "message classified", "user", msg.User, "intent", ents.Intent, "key", commands.HandlerKey(ents))

	res, err := p.router.Dispatch(ctx, ents, msg)
	p.finish(ctx, "message", msg.Channel, res, err)
}

// HandleAction resolves an interaction and sends the reply, if any.
func (p *Pipeline) HandleAction(ctx context.Context, act commands.Action, ack commands.Ack) {
	ctx = trace.Ensure(ctx)
	p.actions.Add(1)
	defer p.recover(ctx, "action")

	slog.InfoContext(ctx, "action received", "user", act.User, "action_id", act.ActionID)

	res, err := p.resolver.Resolve(ctx, act, ack)
	p.finish(ctx, "action", act.Channel, res, err)
}

// finish logs err, sends res and records the outcome.
func (p *Pipeline) finish(ctx context.Context, kind, channel string, res commands.Result, err error) {
	if err != nil {
		p.failures.Add(1)
		logError(ctx, kind, err)
		metrics.Events.WithLabelValues(kind, outcomeError).Inc()
		return
	}
	if res.IsNoAction() {
		metrics.Events.WithLabelValues(kind, outcomeNoAction).Inc()
		return
	}
	if !p.send(ctx, kind, channel, res.Reply) {
		metrics.Events.WithLabelValues(kind, outcomeError).Inc()
		return
	}
	metrics.Events.WithLabelValues(kind, outcomeReplied).Inc()
}

func (p *Pipeline) send(ctx context.Context, kind, channel string, msg reply.Message) bool {
	if err := p.sender.Send(ctx, channel, msg); err != nil {
		p.failures.Add(1)
		slog.ErrorContext(ctx, "failed to send reply", "kind", kind, "channel", channel, "err", err)
		return false
	}
	p.replies.Add(1)
	return true
}

// logError logs at a level matching how expected the failure is.
func logError(ctx context.Context, kind string, err error) {
	var transportErr *calendar.TransportError
	switch {
	case errors.Is(err, nlu.ErrIntentAbsent):
		slog.InfoContext(ctx, "no intent in message", "kind", kind)
	case errors.Is(err, commands.ErrDateParse),
		errors.Is(err, commands.ErrMissingEntity),
		errors.Is(err, pending.ErrTokenFormat):
		slog.WarnContext(ctx, "event not handled", "kind", kind, "err", err)
	case errors.As(err, &transportErr):
		slog.ErrorContext(ctx, "calendar unreachable", "kind", kind, "op", transportErr.Operation, "err", transportErr.Err)
	default:
		slog.ErrorContext(ctx, "event failed", "kind", kind, "err", err)
	}
}

func (p *Pipeline) recover(ctx context.Context, kind string) {
	if r := recover(); r != nil {
		p.failures.Add(1)
		metrics.Events.WithLabelValues(kind, outcomeError).Inc()
		slog.ErrorContext(ctx, "panic while handling event", "kind", kind, "panic", r, "stack", string(debug.Stack()))
	}
}

// Stats is a snapshot of the pipeline counters.
type Stats struct {
	Messages int64 `json:"messages"`
	Actions  int64 `json:"actions"`
	Replies  int64 `json:"replies"`
	Failures int64 `json:"failures"`
}

// Stats returns the current counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Messages: p.messages.Load(),
		Actions:  p.actions.Load(),
		Replies:  p.replies.Load(),
		Failures: p.failures.Load(),
	}
}
