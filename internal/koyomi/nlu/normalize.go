package nlu

import (
	"slices"
	"strings"
)

// ConfidenceThreshold is the minimum confidence an entity's first occurrence
// must exceed for the entity to be kept.
const ConfidenceThreshold = 0.7

// Entity and intent names the command handlers understand.
const (
	EntityDatetime      = "datetime"
	EntityDatetimeGrain = "datetimeGrain"
	EntityContact       = "contact"
	EntityEventType     = "event_type"
	EntityAction        = "action"
)

// Entities is the normalized view of a classification: the top intent, one
// string per single-valued entity and the ordered contact list.
type Entities struct {
	Intent   string
	Values   map[string]string
	Contacts []string
}

// Get returns the named value, or "" when it was not extracted.
func (e Entities) Get(name string) string {
	return e.Values[name]
}

// Lookup returns the named value and whether it was extracted.
func (e Entities) Lookup(name string) (string, bool) {
	v, ok := e.Values[name]
	return v, ok
}

// Normalize reduces raw to Entities.
//
// The top-ranked intent becomes Intent. Each entity key loses its namespace
// prefix ("wit$datetime:datetime" becomes "datetime"). A key is dropped when
// its first occurrence has confidence ≤ ConfidenceThreshold. For "contact"
// every occurrence's value is kept in source order; for everything else only
// the first value is kept, and a datetime also records its grain under
// "datetimeGrain".
func Normalize(raw *RawClassification) (Entities, error) {
	if raw == nil || len(raw.Intents) == 0 {
		return Entities{}, ErrIntentAbsent
	}

	out := Entities{
		Intent: raw.Intents[0].Name,
		Values: make(map[string]string, len(raw.Entities)),
	}

	keys := make([]string, 0, len(raw.Entities))
	for k := range raw.Entities {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, key := range keys {
		occurrences := raw.Entities[key]
		if len(occurrences) == 0 || occurrences[0].Confidence <= ConfidenceThreshold {
			continue
		}

		name := shortName(key)
		switch name {
		case EntityContact:
			for _, occ := range occurrences {
				out.Contacts = append(out.Contacts, occ.Value)
			}
		case EntityDatetime:
			out.Values[EntityDatetimeGrain] = occurrences[0].Grain
			out.Values[name] = occurrences[0].Value
		default:
			out.Values[name] = occurrences[0].Value
		}
	}

	return out, nil
}

// shortName strips the namespace from an entity key: the part after the
// first ':' is the role name. Keys without a ':' are used as-is.
func shortName(key string) string {
	if _, role, ok := strings.Cut(key, ":"); ok {
		return role
	}
	return key
}
