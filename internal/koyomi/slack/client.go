// Package slack connects Koyomi to Slack over Socket Mode.
//
// Direct messages in the configured bot channel become commands.Message
// values; button presses and input submissions become commands.Action values.
// Replies go out through chat.postMessage.
package slack

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/bdobrica/Koyomi/internal/koyomi/commands"
	"github.com/bdobrica/Koyomi/internal/koyomi/reply"
)

// Config configures the Slack transport.
type Config struct {
	BotToken string
	AppToken string
	// BaseURL of the Web API. Defaults to DefaultBaseURL.
	BaseURL string
	// BotChannel is the one DM channel messages are accepted from.
	BotChannel string
	HTTPClient *http.Client
}

// Client is the Slack transport.
type Client struct {
	api        *API
	botChannel string

	backoffMin time.Duration
	backoffMax time.Duration
}

// New returns a Slack transport.
func New(cfg Config) *Client {
	return &Client{
		api:        NewAPI(cfg.HTTPClient, cfg.BaseURL, cfg.BotToken, cfg.AppToken),
		botChannel: cfg.BotChannel,
		backoffMin: 2 * time.Second,
		backoffMax: time.Minute,
	}
}

// Name returns the platform name.
func (c *Client) Name() string { return "slack" }

// Send posts msg to channel.
func (c *Client) Send(ctx context.Context, channel string, msg reply.Message) error {
	return c.api.PostMessage(ctx, channel, msg)
}

// Run identifies the bot, then reads Socket Mode events until ctx is
// cancelled, reconnecting with back-off whenever the connection drops.
func (c *Client) Run(ctx context.Context, sink commands.Sink) error {
	auth, err := c.api.AuthTest(ctx)
	if err != nil {
		return err
	}
	slog.Info("slack: authenticated", "team", auth.Team, "bot_user", auth.UserID)
	f := filter{botUserID: auth.UserID, botChannel: c.botChannel}

	backoff := c.backoffMin
	for {
		if ctx.Err() != nil {
			return nil
		}
		conn, err := c.api.ConnectSocket(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Warn("slack: socket connect failed", "err", err, "backoff", backoff)
			if !sleep(ctx, backoff) {
				return nil
			}
			backoff = min(backoff*2, c.backoffMax)
			continue
		}
		backoff = c.backoffMin
		slog.Info("slack: socket connected")

		s := &socket{conn: conn}
		readErr := s.consume(ctx, func(env Envelope) { c.dispatch(ctx, s, f, env, sink) })
		conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		if readErr != nil && !errors.Is(readErr, errDisconnect) {
			slog.Warn("slack: socket read failed", "err", readErr)
		}
	}
}

// dispatch acknowledges and routes one envelope. Events are acknowledged on
// receipt; interactions hand the acknowledgement to the sink.
func (c *Client) dispatch(ctx context.Context, s *socket, f filter, env Envelope, sink commands.Sink) {
	handlerCtx := context.WithoutCancel(ctx)

	switch env.Type {
	case EnvelopeEventsAPI:
		if err := s.ack(env.EnvelopeID); err != nil {
			slog.Warn("slack: ack failed", "envelope_id", env.EnvelopeID, "err", err)
		}
		msg, ok, err := f.parseMessage(env.Payload)
		if err != nil {
			slog.Warn("slack: bad event payload", "err", err)
			return
		}
		if ok {
			go sink.HandleMessage(handlerCtx, msg)
		}

	case EnvelopeInteractive:
		actions, err := parseActions(env.Payload)
		if err != nil || len(actions) == 0 {
			if err != nil {
				slog.Warn("slack: bad interactive payload", "err", err)
			}
			if err := s.ack(env.EnvelopeID); err != nil {
				slog.Warn("slack: ack failed", "envelope_id", env.EnvelopeID, "err", err)
			}
			return
		}
		var once sync.Once
		var ackErr error
		ack := func(context.Context) error {
			once.Do(func() { ackErr = s.ack(env.EnvelopeID) })
			return ackErr
		}
		for _, act := range actions {
			go sink.HandleAction(handlerCtx, act, ack)
		}

	default:
		slog.Debug("slack: ignoring envelope", "type", env.Type)
		if err := s.ack(env.EnvelopeID); err != nil {
			slog.Warn("slack: ack failed", "envelope_id", env.EnvelopeID, "err", err)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
