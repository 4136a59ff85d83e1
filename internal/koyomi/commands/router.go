package commands

import (
	"context"
	"log/slog"

	"github.com/bdobrica/Koyomi/internal/koyomi/nlu"
)

// Handler handles one classified message.
type Handler func(ctx context.Context, ents nlu.Entities, msg Message) (Result, error)

// Router routes classified messages to handlers by intent.
type Router struct {
	handlers map[string]Handler
}

// NewRouter creates a new router
func NewRouter() *Router {
	return &Router{handlers: make(map[string]Handler)}
}

// Register registers a handler under key. The key is an intent name, or
// "process_event.<action>" for the sub-dispatch on the action entity.
func (r *Router) Register(key string, handler Handler) {
	r.handlers[key] = handler
}

// HandlerKey returns the key Dispatch looks up for ents.
func HandlerKey(ents nlu.Entities) string {
	if ents.Intent == IntentProcessEvent {
		return IntentProcessEvent + "." + ents.Get(nlu.EntityAction)
	}
	return ents.Intent
}

// Dispatch calls the handler registered for ents. Intents and actions with
// no handler yield NoAction.
func (r *Router) Dispatch(ctx context.Context, ents nlu.Entities, msg Message) (Result, error) {
	key := HandlerKey(ents)
	handler, ok := r.handlers[key]
	if !ok {
		slog.DebugContext(ctx, "no handler for intent", "key", key)
		return NoAction, nil
	}
	return handler(ctx, ents, msg)
}
