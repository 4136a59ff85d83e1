package calendar_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bdobrica/Koyomi/common/version"
	"github.com/bdobrica/Koyomi/internal/koyomi/calendar"
)

type recorded struct {
	path        string
	contentType string
	userAgent   string
	body        map[string]any
}

func newServer(t *testing.T, status int, respBody string) (*calendar.Client, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		rec.path = r.URL.Path
		rec.contentType = r.Header.Get("Content-Type")
		rec.userAgent = r.Header.Get("User-Agent")
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &rec.body); err != nil {
			t.Errorf("request body is not JSON: %v", err)
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, respBody)
	}))
	t.Cleanup(srv.Close)
	return calendar.New(calendar.Config{BaseURL: srv.URL + "/"}), rec
}

var monday = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

func TestListEvents(t *testing.T) {
	client, rec := newServer(t, http.StatusOK, `{"events":[
		{"title":"Standup","start":"2024-03-04T09:00:00.000Z","end":"2024-03-04T09:30:00.000Z","participants":["ana","bo"]}
	]}`)

	events, err := client.ListEvents(context.Background(), "U1", monday, "day")
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	ev := events[0]
	if ev.Title != "Standup" || !ev.Start.Equal(monday) || !ev.End.Equal(monday.Add(30*time.Minute)) {
		t.Errorf("unexpected event %+v", ev)
	}
	if len(ev.Participants) != 2 || ev.Participants[1] != "bo" {
		t.Errorf("participants = %v", ev.Participants)
	}

	if rec.path != "/api/slack/events/get" {
		t.Errorf("path = %q", rec.path)
	}
	if rec.contentType != "application/json" {
		t.Errorf("content type = %q", rec.contentType)
	}
	if rec.userAgent != version.UserAgent() {
		t.Errorf("user agent = %q, want %q", rec.userAgent, version.UserAgent())
	}
	if rec.body["slackUserID"] != "U1" || rec.body["date"] != "2024-03-04T09:00:00.000Z" || rec.body["grain"] != "day" {
		t.Errorf("body = %v", rec.body)
	}
	if _, ok := rec.body["eventName"]; ok {
		t.Error("ListEvents should not send eventName")
	}
}

func TestFindEvents_SendsEventName(t *testing.T) {
	client, rec := newServer(t, http.StatusOK, `{"events":[]}`)

	events, err := client.FindEvents(context.Background(), "U1", monday, "", "lunch")
	if err != nil {
		t.Fatalf("FindEvents: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events, want 0", len(events))
	}
	if rec.body["eventName"] != "lunch" {
		t.Errorf("eventName = %v", rec.body["eventName"])
	}
	if _, ok := rec.body["grain"]; ok {
		t.Error("empty grain should be omitted")
	}
}

func TestCreateEvent(t *testing.T) {
	client, rec := newServer(t, http.StatusOK, `{}`)

	err := client.CreateEvent(context.Background(), "U1", calendar.NewEvent{
		Start: monday,
		End:   monday.Add(30 * time.Minute),
		Title: "meeting",
	})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if rec.path != "/api/slack/events/add/" {
		t.Errorf("path = %q", rec.path)
	}
	if rec.body["slackID"] != "U1" {
		t.Errorf("slackID = %v", rec.body["slackID"])
	}
	ev, ok := rec.body["newEvent"].(map[string]any)
	if !ok {
		t.Fatalf("newEvent missing: %v", rec.body)
	}
	if ev["start"] != "2024-03-04T09:00:00.000Z" || ev["end"] != "2024-03-04T09:30:00.000Z" || ev["title"] != "meeting" {
		t.Errorf("newEvent = %v", ev)
	}
	if ps, ok := ev["participants"].([]any); !ok || len(ps) != 0 {
		t.Errorf("participants = %#v, want empty array", ev["participants"])
	}
}

func TestCancelEvent(t *testing.T) {
	client, rec := newServer(t, http.StatusOK, `{}`)

	local := time.FixedZone("EET", 2*3600)
	if err := client.CancelEvent(context.Background(), "U1", monday.In(local), "lunch"); err != nil {
		t.Fatalf("CancelEvent: %v", err)
	}
	if rec.path != "/api/slack/events/cancel/" {
		t.Errorf("path = %q", rec.path)
	}
	if rec.body["eventStart"] != "2024-03-04T09:00:00.000Z" || rec.body["eventTitle"] != "lunch" || rec.body["slackID"] != "U1" {
		t.Errorf("body = %v", rec.body)
	}
}

func TestLinkAccount(t *testing.T) {
	client, rec := newServer(t, http.StatusOK, `{}`)

	if err := client.LinkAccount(context.Background(), "U1", "ana"); err != nil {
		t.Fatalf("LinkAccount: %v", err)
	}
	if rec.path != "/account/connect/slack" {
		t.Errorf("path = %q", rec.path)
	}
	if rec.body["slackUserID"] != "U1" || rec.body["username"] != "ana" {
		t.Errorf("body = %v", rec.body)
	}
}

func TestGatewayErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"message body", http.StatusInternalServerError, `{"message":"db down"}`, "db down"},
		{"no message", http.StatusBadGateway, `<html>oops</html>`, "Bad Gateway"},
		{"empty message", http.StatusNotFound, `{"message":""}`, "Not Found"},
		{"201 is not success", http.StatusCreated, `{"message":"created elsewhere"}`, "created elsewhere"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newServer(t, tt.status, tt.body)
			err := client.CreateEvent(context.Background(), "U1", calendar.NewEvent{Start: monday, End: monday, Title: "x"})

			var gwErr *calendar.GatewayError
			if !errors.As(err, &gwErr) {
				t.Fatalf("want *GatewayError, got %v", err)
			}
			if gwErr.Status != tt.status || gwErr.Message != tt.wantMsg {
				t.Errorf("got status %d message %q", gwErr.Status, gwErr.Message)
			}
			if gwErr.Operation != calendar.OpCreateEvent {
				t.Errorf("operation = %q", gwErr.Operation)
			}
		})
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := calendar.New(calendar.Config{BaseURL: url, Timeout: time.Second})
	_, err := client.ListEvents(context.Background(), "U1", monday, "")

	var tErr *calendar.TransportError
	if !errors.As(err, &tErr) {
		t.Fatalf("want *TransportError, got %v", err)
	}
	var gwErr *calendar.GatewayError
	if errors.As(err, &gwErr) {
		t.Error("transport failure must not look like a gateway error")
	}
}

func TestListEvents_UndecodableBody(t *testing.T) {
	client, _ := newServer(t, http.StatusOK, `not json`)
	_, err := client.ListEvents(context.Background(), "U1", monday, "")
	var tErr *calendar.TransportError
	if !errors.As(err, &tErr) {
		t.Fatalf("want *TransportError, got %v", err)
	}
}
