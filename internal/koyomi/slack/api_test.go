package slack

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bdobrica/Koyomi/internal/koyomi/reply"
)

func newTestAPI(t *testing.T, h http.HandlerFunc) *API {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	api := NewAPI(srv.Client(), srv.URL, "xoxb-test", "xapp-test")
	api.retry.InitialDelay = time.Millisecond
	api.retry.MaxDelay = 5 * time.Millisecond
	return api
}

func TestPostMessage_Blocks(t *testing.T) {
	var got map[string]any
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat.postMessage" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer xoxb-test" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got)
		_, _ = io.WriteString(w, `{"ok":true}`)
	})

	msg := reply.Blocks(reply.Header("Standup"), reply.Divider())
	if err := api.PostMessage(context.Background(), "D1", msg); err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	if got["channel"] != "D1" {
		t.Errorf("channel = %v", got["channel"])
	}
	if got["text"] != "Standup" {
		t.Errorf("fallback text = %q", got["text"])
	}
	blocks, ok := got["blocks"].([]any)
	if !ok || len(blocks) != 2 {
		t.Fatalf("blocks = %v", got["blocks"])
	}
	if b := blocks[0].(map[string]any); b["type"] != "header" {
		t.Errorf("first block = %v", b)
	}
}

func TestPostMessage_FallbackTextHidesTokens(t *testing.T) {
	var got map[string]any
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got)
		_, _ = io.WriteString(w, `{"ok":true}`)
	})

	msg := reply.Blocks(
		reply.Section("*Please confirm appointment details* \n\n*Appointment Type:* call"),
		reply.Actions("verify_appointment",
			reply.Button{Text: "Create", ActionID: "confirm_appointment_create", Value: "2024-01-02T15:00:00.000Z|call|bob"},
		),
	)
	if err := api.PostMessage(context.Background(), "D1", msg); err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	if got["text"] != "Please confirm appointment details" {
		t.Errorf("fallback text = %q", got["text"])
	}
}

func TestPostMessage_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `{"ok":true}`)
	})

	if err := api.PostMessage(context.Background(), "D1", reply.Text("hi")); err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestPostMessage_RateLimitHonoursRetryAfter(t *testing.T) {
	var calls atomic.Int32
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "30")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = io.WriteString(w, `{"ok":true}`)
	})

	start := time.Now()
	if err := api.PostMessage(context.Background(), "D1", reply.Text("hi")); err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
	if time.Since(start) > 5*time.Second {
		t.Error("Retry-After wait should be capped by MaxDelay")
	}
}

func TestPostMessage_APIErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, `{"ok":false,"error":"channel_not_found"}`)
	})

	err := api.PostMessage(context.Background(), "D1", reply.Text("hi"))
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "channel_not_found" {
		t.Fatalf("got %v, want channel_not_found", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestPostMessage_Validation(t *testing.T) {
	api := NewAPI(nil, "", "xoxb", "xapp")
	if err := api.PostMessage(context.Background(), "", reply.Text("x")); err == nil {
		t.Error("empty channel should fail")
	}
	if err := api.PostMessage(context.Background(), "D1", reply.Message{}); err == nil {
		t.Error("empty message should fail")
	}
}

func TestAuthTest(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth.test" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"ok":true,"team_id":"T1","user_id":"UBOT","team":"Acme","user":"koyomi"}`)
	})
	info, err := api.AuthTest(context.Background())
	if err != nil {
		t.Fatalf("AuthTest: %v", err)
	}
	if info.UserID != "UBOT" || info.TeamID != "T1" {
		t.Errorf("info = %+v", info)
	}
}

func TestOpenSocketURL_UsesAppToken(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer xapp-test" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		_, _ = io.WriteString(w, `{"ok":true,"url":"wss://example.test/link"}`)
	})
	url, err := api.OpenSocketURL(context.Background())
	if err != nil || url != "wss://example.test/link" {
		t.Errorf("url = %q, err = %v", url, err)
	}
}
