// Package nlu turns free-form chat text into a classified intent plus a flat
// set of entities.
//
// The NLU engine itself is a black box behind the Classifier interface. It
// returns every candidate intent and every entity occurrence it found, each
// with a confidence score; Normalize reduces that to the single intent and
// the handful of values the command handlers act on.
package nlu

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrIntentAbsent is returned by Normalize when the classifier produced no
// candidate intent at all.
var ErrIntentAbsent = errors.New("nlu: no intent in classification")

// ErrRateLimit is returned when the NLU service (or the local per-user
// limiter) refuses the request.
var ErrRateLimit = errors.New("nlu: rate limit exceeded")

// ErrMalformedOutput is returned when the NLU service answers with a body
// that does not match the expected classification shape.
var ErrMalformedOutput = errors.New("nlu: malformed classification response")

// RateLimitMessage is the reply sent to a user who exceeds the per-user
// classification limit.
const RateLimitMessage = "⏳ I'm processing too many requests from you right now. Please try again in a moment."

// Classifier classifies a chat message. Implementations must be safe for
// concurrent use.
type Classifier interface {
	Classify(ctx context.Context, text string) (*RawClassification, error)
}

// Intent is one ranked intent candidate.
type Intent struct {
	ID         string  `json:"id,omitempty"`
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Entity is one occurrence of an extracted entity.
type Entity struct {
	// Value is the resolved value rendered as a string. Non-string JSON
	// values (numbers, booleans) keep their JSON text.
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	// Grain is the precision of a datetime value ("day", "hour", ...).
	Grain string `json:"grain,omitempty"`
}

// UnmarshalJSON accepts the classifier's wire shape, where "value" may be any
// JSON scalar and interval datetimes carry "from"/"to" bounds instead of a
// value. The lower bound stands in for the value of an interval.
func (e *Entity) UnmarshalJSON(data []byte) error {
	var wire struct {
		Value      json.RawMessage `json:"value"`
		Confidence float64         `json:"confidence"`
		Grain      string          `json:"grain"`
		From       *struct {
			Value json.RawMessage `json:"value"`
			Grain string          `json:"grain"`
		} `json:"from"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	e.Value = scalarString(wire.Value)
	e.Confidence = wire.Confidence
	e.Grain = wire.Grain
	if e.Value == "" && wire.From != nil {
		e.Value = scalarString(wire.From.Value)
		if e.Grain == "" {
			e.Grain = wire.From.Grain
		}
	}
	return nil
}

func scalarString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// RawClassification is the classifier output for one message: intents ranked
// best first, and entity occurrences keyed by their namespaced name (for
// example "wit$contact:contact").
type RawClassification struct {
	Text     string              `json:"text,omitempty"`
	Intents  []Intent            `json:"intents"`
	Entities map[string][]Entity `json:"entities"`
}
