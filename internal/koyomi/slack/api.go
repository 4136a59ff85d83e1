package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bdobrica/Koyomi/common/retry"
	"github.com/bdobrica/Koyomi/common/version"
	"github.com/bdobrica/Koyomi/internal/koyomi/reply"
)

// DefaultBaseURL is the Slack Web API root.
const DefaultBaseURL = "https://slack.com/api"

// API is a minimal Slack Web API client: the calls Socket Mode needs plus
// chat.postMessage.
type API struct {
	http     *http.Client
	baseURL  string
	botToken string
	appToken string
	retry    retry.Config
}

// NewAPI returns an API client. A nil httpClient gets a 30 s timeout; an
// empty baseURL uses DefaultBaseURL.
func NewAPI(httpClient *http.Client, baseURL, botToken, appToken string) *API {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	baseURL = strings.TrimSpace(strings.TrimRight(baseURL, "/"))
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	cfg := retry.DefaultConfig
	cfg.ShouldRetry = retryable
	return &API{
		http:     httpClient,
		baseURL:  baseURL,
		botToken: strings.TrimSpace(botToken),
		appToken: strings.TrimSpace(appToken),
		retry:    cfg,
	}
}

// AuthInfo is the identity auth.test reports for the bot token.
type AuthInfo struct {
	TeamID string `json:"team_id"`
	UserID string `json:"user_id"`
	BotID  string `json:"bot_id"`
	Team   string `json:"team"`
	User   string `json:"user"`
}

// apiResponse is the envelope every Web API call answers with.
type apiResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// StatusError is a non-2xx HTTP answer from the Web API.
type StatusError struct {
	Method     string
	Status     int
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("slack %s http %d", e.Method, e.Status)
}

// APIError is an "ok": false answer from the Web API.
type APIError struct {
	Method string
	Code   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("slack %s failed: %s", e.Method, e.Code)
}

// AuthTest identifies the bot user behind the bot token.
func (api *API) AuthTest(ctx context.Context) (AuthInfo, error) {
	var out struct {
		apiResponse
		AuthInfo
	}
	if err := api.call(ctx, api.botToken, "auth.test", nil, &out); err != nil {
		return AuthInfo{}, err
	}
	return out.AuthInfo, nil
}

// OpenSocketURL asks for a fresh Socket Mode websocket URL.
func (api *API) OpenSocketURL(ctx context.Context) (string, error) {
	var out struct {
		apiResponse
		URL string `json:"url"`
	}
	if err := api.call(ctx, api.appToken, "apps.connections.open", nil, &out); err != nil {
		return "", err
	}
	url := strings.TrimSpace(out.URL)
	if url == "" {
		return "", fmt.Errorf("slack apps.connections.open returned empty url")
	}
	return url, nil
}

// ConnectSocket opens a Socket Mode connection.
func (api *API) ConnectSocket(ctx context.Context) (*websocket.Conn, error) {
	url, err := api.OpenSocketURL(ctx)
	if err != nil {
		return nil, err
	}
	dialer := *websocket.DefaultDialer
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial slack socket: %w", err)
	}
	return conn, nil
}

type postMessageRequest struct {
	Channel string        `json:"channel"`
	Text    string        `json:"text"`
	Blocks  []reply.Block `json:"blocks,omitempty"`
}

// PostMessage sends msg to channel. Rate-limited and 5xx answers are retried
// with back-off, honouring Retry-After.
func (api *API) PostMessage(ctx context.Context, channel string, msg reply.Message) error {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return fmt.Errorf("channel is required")
	}
	if msg.IsZero() {
		return fmt.Errorf("message is empty")
	}
	payload := postMessageRequest{Channel: channel, Text: msg.Text, Blocks: msg.Blocks}
	if payload.Text == "" {
		// Notification fallback for block-only replies.
		payload.Text = reply.Summary(msg)
	}
	return retry.Do(ctx, api.retry, func() error {
		var out apiResponse
		return api.call(ctx, api.botToken, "chat.postMessage", payload, &out)
	})
}

// call posts payload to method with token and decodes the answer into out,
// which must embed apiResponse.
func (api *API) call(ctx context.Context, token, method string, payload any, out interface{ result() apiResponse }) error {
	if token == "" {
		return fmt.Errorf("slack %s: token is required", method)
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal slack %s payload: %w", method, err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, api.baseURL+"/"+method, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := api.http.Do(req)
	if err != nil {
		return fmt.Errorf("slack %s: %w", method, err)
	}
	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("slack %s: read response: %w", method, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{Method: method, Status: resp.StatusCode}
		if secs, err := strconv.Atoi(strings.TrimSpace(resp.Header.Get("Retry-After"))); err == nil && secs > 0 {
			statusErr.RetryAfter = time.Duration(secs) * time.Second
		}
		if statusErr.RetryAfter > 0 {
			return &retry.Delay{Err: statusErr, After: statusErr.RetryAfter}
		}
		return statusErr
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("slack %s: decode response: %w", method, err)
	}
	if r := out.result(); !r.OK {
		code := strings.TrimSpace(r.Error)
		if code == "" {
			code = "unknown_error"
		}
		return &APIError{Method: method, Code: code}
	}
	return nil
}

func (r apiResponse) result() apiResponse { return r }

// retryable reports whether a Web API failure is worth another attempt:
// rate limiting, server errors and transport failures are; API errors are
// not.
func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status == http.StatusTooManyRequests || statusErr.Status >= 500
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
