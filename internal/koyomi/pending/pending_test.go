package pending_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/bdobrica/Koyomi/internal/koyomi/pending"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return ts
}

func TestCreate_RoundTrip(t *testing.T) {
	in := pending.Create{
		Start:        mustTime(t, "2024-01-01T10:00:00Z"),
		Title:        "Sync",
		Participants: []string{"alice", "bob"},
	}
	token, err := in.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if want := "2024-01-01T10:00:00.000Z|Sync|alice,bob"; token != want {
		t.Errorf("token: got %q, want %q", token, want)
	}
	if n := len(strings.Split(token, "|")); n != 3 {
		t.Errorf("expected 3 fields, got %d", n)
	}

	out, err := pending.DecodeCreate(token)
	if err != nil {
		t.Fatalf("DecodeCreate: %v", err)
	}
	if !out.Start.Equal(in.Start) || out.Title != in.Title || !reflect.DeepEqual(out.Participants, in.Participants) {
		t.Errorf("round trip: got %+v, want %+v", out, in)
	}
}

func TestCreate_NoParticipants(t *testing.T) {
	token, err := pending.Create{Start: mustTime(t, "2024-01-01T10:00:00Z"), Title: "Focus"}.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.HasSuffix(token, "|None") {
		t.Errorf("expected None placeholder, got %q", token)
	}
	out, err := pending.DecodeCreate(token)
	if err != nil {
		t.Fatalf("DecodeCreate: %v", err)
	}
	if len(out.Participants) != 0 {
		t.Errorf("expected no participants, got %v", out.Participants)
	}
}

func TestCreate_OffsetNormalizedToUTC(t *testing.T) {
	token, err := pending.Create{
		Start: mustTime(t, "2024-01-02T15:00:00.000-08:00"),
		Title: "call",
	}.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.HasPrefix(token, "2024-01-02T23:00:00.000Z|") {
		t.Errorf("expected UTC start, got %q", token)
	}
}

func TestDecodeCreate_Rejects(t *testing.T) {
	tests := map[string]string{
		"two fields":    "2024-01-01T10:00:00.000Z|Sync",
		"four fields":   "2024-01-01T10:00:00.000Z|Sync|alice|extra",
		"bad date":      "tomorrow|Sync|alice",
		"empty title":   "2024-01-01T10:00:00.000Z| |alice",
		"cancel sentry": "Cancel",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := pending.DecodeCreate(token); !errors.Is(err, pending.ErrTokenFormat) {
				t.Fatalf("expected ErrTokenFormat, got %v", err)
			}
		})
	}
}

func TestCancel_RoundTrip(t *testing.T) {
	in := pending.Cancel{Start: mustTime(t, "2024-01-02T14:00:00Z"), Title: "Standup"}
	token, err := in.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if want := "2024-01-02T14:00:00.000Z|Standup"; token != want {
		t.Errorf("token: got %q, want %q", token, want)
	}
	out, err := pending.DecodeCancel(token)
	if err != nil {
		t.Fatalf("DecodeCancel: %v", err)
	}
	if !out.Start.Equal(in.Start) || out.Title != in.Title {
		t.Errorf("round trip: got %+v, want %+v", out, in)
	}
}

func TestDecodeCancel_RejectsCreateToken(t *testing.T) {
	if _, err := pending.DecodeCancel("2024-01-01T10:00:00.000Z|Sync|alice"); !errors.Is(err, pending.ErrTokenFormat) {
		t.Fatalf("expected ErrTokenFormat, got %v", err)
	}
}

func TestEncode_RejectsDelimiterInFields(t *testing.T) {
	start := mustTime(t, "2024-01-01T10:00:00Z")
	if _, err := (pending.Create{Start: start, Title: "a|b"}).Encode(); !errors.Is(err, pending.ErrTokenFormat) {
		t.Errorf("create with pipe in title: expected ErrTokenFormat, got %v", err)
	}
	if _, err := (pending.Create{Start: start, Title: "x", Participants: []string{"a,b"}}).Encode(); !errors.Is(err, pending.ErrTokenFormat) {
		t.Errorf("participant with comma: expected ErrTokenFormat, got %v", err)
	}
	if _, err := (pending.Cancel{Start: start, Title: ""}).Encode(); !errors.Is(err, pending.ErrTokenFormat) {
		t.Errorf("cancel with empty title: expected ErrTokenFormat, got %v", err)
	}
}

func TestParticipantsText(t *testing.T) {
	if got := pending.ParticipantsText(nil); got != "None" {
		t.Errorf("empty: got %q", got)
	}
	if got := pending.ParticipantsText([]string{"alice", "bob"}); got != "alice,bob" {
		t.Errorf("two: got %q", got)
	}
}
