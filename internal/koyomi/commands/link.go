package commands

import (
	"context"

	"github.com/bdobrica/Koyomi/internal/koyomi/nlu"
	"github.com/bdobrica/Koyomi/internal/koyomi/reply"
)

// HandleLinkPrompt asks the user for their calendar username. The input block
// is tagged with the user id so the submission can be tied back to them.
func (h *Handlers) HandleLinkPrompt(ctx context.Context, _ nlu.Entities, msg Message) (Result, error) {
	if msg.User == "" {
		return NoAction, ErrNoUser
	}
	return Result{Reply: reply.Blocks(
		reply.TextInput(msg.User, reply.Input{
			Label:       "Username:",
			Placeholder: "Enter your username",
			ActionID:    ActionLinkAccount,
		}),
	)}, nil
}
