// Package matrix connects Koyomi to Matrix rooms. Text messages become
// commands.Message values; lines of the form "!koyomi <action_id> <value>"
// stand in for buttons and become commands.Action values.
package matrix

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/bdobrica/Koyomi/internal/koyomi/commands"
	"github.com/bdobrica/Koyomi/internal/koyomi/reply"
)

// ChannelTypeRoom is the commands.Message ChannelType of Matrix messages.
const ChannelTypeRoom = "room"

// Config holds Matrix client configuration
type Config struct {
	Homeserver  string
	UserID      string
	AccessToken string
	// Rooms are the room IDs Koyomi joins and listens in.
	Rooms []string
	// Prefix of action lines. Defaults to DefaultPrefix.
	Prefix string
	// SyncState persists the /sync position across restarts. When nil an
	// in-memory store is used and events older than process start are
	// ignored.
	SyncState SyncStateStore
}

// Client wraps the Matrix client
type Client struct {
	client    *mautrix.Client
	config    Config
	startedAt time.Time
}

// New creates a new Matrix client
func New(config Config) (*Client, error) {
	client, err := mautrix.NewClient(config.Homeserver, id.UserID(config.UserID), config.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Matrix client: %w", err)
	}
	if config.Prefix == "" {
		config.Prefix = DefaultPrefix
	}

	if config.SyncState != nil {
		client.Store = &dbSyncStore{state: config.SyncState}
		slog.Info("Matrix sync store: using persistent SQLite store")
	} else {
		slog.Warn("Matrix sync store: no DB configured, using in-memory store (events before startup are skipped)")
	}

	return &Client{client: client, config: config}, nil
}

// Name returns the platform name.
func (c *Client) Name() string { return "matrix" }

// Run joins the configured rooms and syncs until ctx is cancelled,
// reconnecting with exponential back-off when the sync loop fails.
func (c *Client) Run(ctx context.Context, sink commands.Sink) error {
	c.startedAt = time.Now()

	syncer, ok := c.client.Syncer.(*mautrix.DefaultSyncer)
	if !ok {
		return fmt.Errorf("unexpected Matrix syncer %T", c.client.Syncer)
	}
	syncer.OnEventType(event.EventMessage, func(ctx context.Context, evt *event.Event) {
		c.handleMessage(ctx, evt, sink)
	})

	for _, roomID := range c.config.Rooms {
		if err := c.joinRoom(ctx, id.RoomID(roomID)); err != nil {
			return fmt.Errorf("failed to join room %s: %w", roomID, err)
		}
	}

	const (
		backoffMin = 2 * time.Second
		backoffMax = 5 * time.Minute
	)
	backoff := backoffMin
	for {
		err := c.client.SyncWithContext(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			return nil
		}
		slog.Error("Matrix sync stopped; reconnecting", "err", err, "backoff", backoff)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, backoffMax)
	}
}

// Send posts msg to the room channel. Block replies are sent as HTML with a
// plain-text body.
func (c *Client) Send(ctx context.Context, channel string, msg reply.Message) error {
	content := event.MessageEventContent{
		MsgType: event.MsgText,
		Body:    reply.Plain(msg, c.config.Prefix),
	}
	if len(msg.Blocks) > 0 {
		content.Format = event.FormatHTML
		content.FormattedBody = reply.HTML(msg, c.config.Prefix)
	}
	if _, err := c.client.SendMessageEvent(ctx, id.RoomID(channel), event.EventMessage, &content); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// IsWatchedRoom checks if a room is one Koyomi listens in
func (c *Client) IsWatchedRoom(roomID string) bool {
	return slices.Contains(c.config.Rooms, roomID)
}

func (c *Client) handleMessage(ctx context.Context, evt *event.Event, sink commands.Sink) {
	if evt.Sender == id.UserID(c.config.UserID) {
		return
	}
	msgContent := evt.Content.AsMessage()
	if msgContent == nil || msgContent.MsgType != event.MsgText {
		return
	}
	if !c.IsWatchedRoom(evt.RoomID.String()) {
		return
	}
	if c.config.SyncState == nil && time.UnixMilli(evt.Timestamp).Before(c.startedAt) {
		return
	}

	roomID := evt.RoomID.String()
	sender := evt.Sender.String()

	if act, ok := ParseAction(msgContent.Body, c.config.Prefix); ok {
		act.User = sender
		act.Channel = roomID
		act.BlockID = sender
		ack := func(ctx context.Context) error {
			return c.client.MarkRead(ctx, evt.RoomID, evt.ID)
		}
		go sink.HandleAction(context.WithoutCancel(ctx), act, ack)
		return
	}

	go sink.HandleMessage(context.WithoutCancel(ctx), commands.Message{
		Text:        msgContent.Body,
		User:        sender,
		Channel:     roomID,
		ChannelType: ChannelTypeRoom,
	})
}

func (c *Client) joinRoom(ctx context.Context, roomID id.RoomID) error {
	_, err := c.client.JoinRoomByID(ctx, roomID)
	if err != nil {
		// M_FORBIDDEN is returned by homeservers when the bot is already a member
		// of the room.
		if errors.Is(err, mautrix.MForbidden) {
			slog.Warn("joinRoom: already a member or access denied, continuing", "room", roomID)
			return nil
		}
		return err
	}
	return nil
}
