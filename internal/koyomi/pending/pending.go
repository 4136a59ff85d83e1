// Package pending encodes proposed calendar mutations into the value of a
// confirmation button.
//
// No server-side session backs a proposal: the encoded token is the whole
// state and travels through the chat platform until the user presses the
// button. Each kind has a fixed, ordered set of pipe-delimited fields and
// decoding is strict, so a token of the wrong kind or a damaged token is
// rejected rather than reinterpreted.
//
//	Create: <start>|<event type>|<participants csv>
//	Cancel: <start>|<title>
//
// Tokens are not single-use. Pressing the same button twice replays the
// mutation.
package pending

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrTokenFormat is returned when a token has the wrong number of fields or a
// field cannot be parsed, and when a value cannot be encoded without
// ambiguity.
var ErrTokenFormat = errors.New("pending: malformed action token")

const (
	delimiter = "|"
	// TimeLayout matches JavaScript's Date.prototype.toISOString, the format
	// the calendar service stores.
	TimeLayout = "2006-01-02T15:04:05.000Z"
	// NoParticipants is the placeholder used when a new event has no
	// participants.
	NoParticipants = "None"
)

// Kind identifies the mutation a token proposes.
type Kind string

const (
	KindCreate Kind = "create"
	KindCancel Kind = "cancel"
)

// fieldCount is the exact arity of each kind.
var fieldCount = map[Kind]int{
	KindCreate: 3,
	KindCancel: 2,
}

// Create proposes a new event.
type Create struct {
	Start        time.Time
	Title        string
	Participants []string
}

// Cancel proposes cancelling an existing event identified by start and title.
type Cancel struct {
	Start time.Time
	Title string
}

// ParticipantsText joins participants with commas, or returns NoParticipants
// when there are none.
func ParticipantsText(participants []string) string {
	if len(participants) == 0 {
		return NoParticipants
	}
	return strings.Join(participants, ",")
}

// Encode returns the token for c.
func (c Create) Encode() (string, error) {
	for _, p := range c.Participants {
		if p == "" || strings.Contains(p, ",") {
			return "", fmt.Errorf("%w: participant %q cannot be encoded", ErrTokenFormat, p)
		}
	}
	return encode(formatTime(c.Start), c.Title, ParticipantsText(c.Participants))
}

// Encode returns the token for c.
func (c Cancel) Encode() (string, error) {
	return encode(formatTime(c.Start), c.Title)
}

// DecodeCreate parses a create token.
func DecodeCreate(token string) (Create, error) {
	fields, start, err := split(KindCreate, token)
	if err != nil {
		return Create{}, err
	}
	var participants []string
	if fields[2] != NoParticipants && fields[2] != "" {
		participants = strings.Split(fields[2], ",")
	}
	return Create{Start: start, Title: fields[1], Participants: participants}, nil
}

// DecodeCancel parses a cancel token.
func DecodeCancel(token string) (Cancel, error) {
	fields, start, err := split(KindCancel, token)
	if err != nil {
		return Cancel{}, err
	}
	return Cancel{Start: start, Title: fields[1]}, nil
}

// formatTime renders t in TimeLayout (UTC).
func formatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func encode(fields ...string) (string, error) {
	for _, f := range fields {
		if strings.Contains(f, delimiter) {
			return "", fmt.Errorf("%w: field %q contains %q", ErrTokenFormat, f, delimiter)
		}
	}
	if strings.TrimSpace(fields[1]) == "" {
		return "", fmt.Errorf("%w: empty title", ErrTokenFormat)
	}
	return strings.Join(fields, delimiter), nil
}

func split(kind Kind, token string) ([]string, time.Time, error) {
	fields := strings.Split(token, delimiter)
	if want := fieldCount[kind]; len(fields) != want {
		return nil, time.Time{}, fmt.Errorf("%w: %s token has %d fields, want %d", ErrTokenFormat, kind, len(fields), want)
	}
	start, err := time.Parse(time.RFC3339Nano, fields[0])
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: start %q: %v", ErrTokenFormat, fields[0], err)
	}
	if strings.TrimSpace(fields[1]) == "" {
		return nil, time.Time{}, fmt.Errorf("%w: empty title", ErrTokenFormat)
	}
	return fields, start, nil
}
