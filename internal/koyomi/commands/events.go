package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/bdobrica/Koyomi/internal/koyomi/calendar"
	"github.com/bdobrica/Koyomi/internal/koyomi/nlu"
	"github.com/bdobrica/Koyomi/internal/koyomi/reply"
)

// NoEventsText is the reply when the listing is empty.
const NoEventsText = "You have no events planned."

// HandleListEvents lists the user's events around the datetime entity.
func (h *Handlers) HandleListEvents(ctx context.Context, ents nlu.Entities, msg Message) (Result, error) {
	when, err := h.datetime(ents)
	if err != nil {
		return NoAction, err
	}

	events, err := h.calendar.ListEvents(ctx, msg.User, when, ents.Get(nlu.EntityDatetimeGrain))
	if err != nil {
		return gatewayResult(ctx, err)
	}
	if len(events) == 0 {
		return textResult(NoEventsText), nil
	}

	blocks := make([]reply.Block, 0, 3*len(events))
	for _, ev := range events {
		blocks = append(blocks,
			reply.Header(ev.Title),
			reply.Divider(),
			reply.Section(h.eventDetails(ev)),
		)
	}
	return Result{Reply: reply.Blocks(blocks...)}, nil
}

func (h *Handlers) eventDetails(ev calendar.Event) string {
	start := ev.Start.In(h.location)
	end := ev.End.In(h.location)
	return fmt.Sprintf("*- Date:* %s\n*- Time:* %s to %s\n*- Participants:* %s",
		start.Format(dateLayout),
		start.Format(clockLayout),
		end.Format(clockLayout),
		strings.Join(ev.Participants, ","),
	)
}
