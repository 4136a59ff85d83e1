package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bdobrica/Koyomi/internal/koyomi/nlu"
	"github.com/bdobrica/Koyomi/internal/koyomi/pending"
	"github.com/bdobrica/Koyomi/internal/koyomi/reply"
)

// VerifyCancellationBlock is the block id of the cancel confirmation button.
const VerifyCancellationBlock = "verify_cancellation"

// HandleCancel looks up the event the user wants to cancel and, when exactly
// one event matches, asks for confirmation. Zero or several matches produce
// no reply.
func (h *Handlers) HandleCancel(ctx context.Context, ents nlu.Entities, msg Message) (Result, error) {
	when, err := h.datetime(ents)
	if err != nil {
		return NoAction, err
	}
	eventType, err := requireEntity(ents, nlu.EntityEventType)
	if err != nil {
		return NoAction, err
	}

	matches, err := h.calendar.FindEvents(ctx, msg.User, when, ents.Get(nlu.EntityDatetimeGrain), eventType)
	if err != nil {
		return gatewayResult(ctx, err)
	}
	if len(matches) != 1 {
		// TODO: offer a choice between candidates once there is a product
		// decision on how to disambiguate them.
		slog.InfoContext(ctx, "cancellation needs exactly one match",
			"user", msg.User, "event", eventType, "matches", len(matches))
		return NoAction, nil
	}

	ev := matches[0]
	token, err := pending.Cancel{Start: ev.Start, Title: ev.Title}.Encode()
	if err != nil {
		return NoAction, fmt.Errorf("encode cancel proposal: %w", err)
	}

	text := fmt.Sprintf("*Please confirm cancellation* \n\n*Event:* %s\n*Date:* %s",
		ev.Title,
		ev.Start.In(h.location).Format(dateTimeLayout),
	)
	return Result{Reply: reply.Blocks(
		reply.Section(text),
		reply.Actions(VerifyCancellationBlock,
			reply.Button{Text: "Cancel", Style: reply.StyleDanger, ActionID: ActionConfirmCancel, Value: token},
		),
	)}, nil
}
