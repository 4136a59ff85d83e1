package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bdobrica/Koyomi/common/version"
	"github.com/bdobrica/Koyomi/internal/koyomi/metrics"
)

const (
	// DefaultBaseURL is the hosted calendar service.
	DefaultBaseURL = "https://shielded-beach-58320.herokuapp.com"
	defaultTimeout = 30 * time.Second

	pathEventsGet    = "/api/slack/events/get"
	pathEventsAdd    = "/api/slack/events/add/"
	pathEventsCancel = "/api/slack/events/cancel/"
	pathConnect      = "/account/connect/slack"
)

// Config configures the calendar client.
type Config struct {
	// BaseURL of the calendar service. Defaults to DefaultBaseURL.
	BaseURL string
	// Timeout bounds each HTTP call. Defaults to 30 s.
	Timeout time.Duration
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// Client talks to the calendar service. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a calendar Client.
func New(cfg Config) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: base, http: hc}
}

type getEventsRequest struct {
	SlackUserID string `json:"slackUserID"`
	Date        string `json:"date"`
	Grain       string `json:"grain,omitempty"`
	EventName   string `json:"eventName,omitempty"`
}

type getEventsResponse struct {
	Events []Event `json:"events"`
}

// ListEvents returns the user's events around date, at the given grain
// ("day", "hour", ...; empty lets the service decide).
func (c *Client) ListEvents(ctx context.Context, userID string, date time.Time, grain string) ([]Event, error) {
	return c.getEvents(ctx, OpListEvents, getEventsRequest{
		SlackUserID: userID,
		Date:        formatTime(date),
		Grain:       grain,
	})
}

// FindEvents is ListEvents narrowed to events named eventName. It is the
// lookup behind cancellation.
func (c *Client) FindEvents(ctx context.Context, userID string, date time.Time, grain, eventName string) ([]Event, error) {
	return c.getEvents(ctx, OpFindEvents, getEventsRequest{
		SlackUserID: userID,
		Date:        formatTime(date),
		Grain:       grain,
		EventName:   eventName,
	})
}

func (c *Client) getEvents(ctx context.Context, op string, body getEventsRequest) ([]Event, error) {
	raw, err := c.post(ctx, op, pathEventsGet, body)
	if err != nil {
		return nil, err
	}
	var out getEventsResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &TransportError{Operation: op, Err: fmt.Errorf("decode events: %w", err)}
	}
	return out.Events, nil
}

type newEventBody struct {
	Start        string   `json:"start"`
	End          string   `json:"end"`
	Title        string   `json:"title"`
	Participants []string `json:"participants"`
}

// CreateEvent adds ev to the user's calendar.
func (c *Client) CreateEvent(ctx context.Context, userID string, ev NewEvent) error {
	participants := ev.Participants
	if participants == nil {
		participants = []string{}
	}
	_, err := c.post(ctx, OpCreateEvent, pathEventsAdd, struct {
		SlackID  string       `json:"slackID"`
		NewEvent newEventBody `json:"newEvent"`
	}{
		SlackID: userID,
		NewEvent: newEventBody{
			Start:        formatTime(ev.Start),
			End:          formatTime(ev.End),
			Title:        ev.Title,
			Participants: participants,
		},
	})
	return err
}

// CancelEvent cancels the user's event starting at start with the given title.
func (c *Client) CancelEvent(ctx context.Context, userID string, start time.Time, title string) error {
	_, err := c.post(ctx, OpCancelEvent, pathEventsCancel, struct {
		SlackID    string `json:"slackID"`
		EventStart string `json:"eventStart"`
		EventTitle string `json:"eventTitle"`
	}{
		SlackID:    userID,
		EventStart: formatTime(start),
		EventTitle: title,
	})
	return err
}

// LinkAccount associates the chat user with a calendar account username.
func (c *Client) LinkAccount(ctx context.Context, userID, username string) error {
	_, err := c.post(ctx, OpLinkAccount, pathConnect, struct {
		SlackUserID string `json:"slackUserID"`
		Username    string `json:"username"`
	}{
		SlackUserID: userID,
		Username:    username,
	})
	return err
}

type errorBody struct {
	Message string `json:"message"`
}

// post sends payload as JSON and returns the body of a 200 response.
func (c *Client) post(ctx context.Context, op, path string, payload any) ([]byte, error) {
	started := time.Now()

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("calendar: %s: marshal request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("calendar: %s: create request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveGateway(op, "transport_error", started)
		return nil, &TransportError{Operation: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ObserveGateway(op, "transport_error", started)
		return nil, &TransportError{Operation: op, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		metrics.ObserveGateway(op, "gateway_error", started)
		msg := http.StatusText(resp.StatusCode)
		var eb errorBody
		if json.Unmarshal(raw, &eb) == nil && strings.TrimSpace(eb.Message) != "" {
			msg = eb.Message
		}
		slog.Debug("calendar: non-200 response", "op", op, "status", resp.StatusCode, "message", msg)
		return nil, &GatewayError{Operation: op, Status: resp.StatusCode, Message: msg}
	}

	metrics.ObserveGateway(op, "ok", started)
	return raw, nil
}
