package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/bdobrica/Koyomi/internal/koyomi/nlu"
	"github.com/bdobrica/Koyomi/internal/koyomi/pending"
	"github.com/bdobrica/Koyomi/internal/koyomi/reply"
)

// VerifyAppointmentBlock is the block id of the create confirmation buttons.
const VerifyAppointmentBlock = "verify_appointment"

// cancelCreateValue is the value of the "Cancel" button on a create prompt.
const cancelCreateValue = "Cancel"

// HandleCreate proposes a new event and asks the user to confirm it. Nothing
// is written to the calendar until the Create button is pressed.
func (h *Handlers) HandleCreate(ctx context.Context, ents nlu.Entities, msg Message) (Result, error) {
	when, err := h.datetime(ents)
	if err != nil {
		return NoAction, err
	}
	eventType, err := requireEntity(ents, nlu.EntityEventType)
	if err != nil {
		return NoAction, err
	}

	participants := participantNames(ents.Contacts)
	proposal := pending.Create{
		Start:        when,
		Title:        eventType,
		Participants: participants,
	}
	token, err := proposal.Encode()
	if err != nil {
		return NoAction, fmt.Errorf("encode create proposal: %w", err)
	}

	text := fmt.Sprintf("*Please confirm appointment details* \n\n*Appointment Date:* %s\n*Appointment Type:* %s\n*Participants:* %s",
		when.In(h.location).Format(dateTimeLayout),
		eventType,
		pending.ParticipantsText(participants),
	)
	return Result{Reply: reply.Blocks(
		reply.Section(text),
		reply.Actions(VerifyAppointmentBlock,
			reply.Button{Text: "Create", Style: reply.StylePrimary, ActionID: ActionConfirmCreate, Value: token},
			reply.Button{Text: "Cancel", Style: reply.StyleDanger, ActionID: ActionCancelCreate, Value: cancelCreateValue},
		),
	)}, nil
}

// separators are the characters a create token reserves.
var separators = strings.NewReplacer(",", " ", "|", " ")

// participantNames makes contact names safe to carry in a create token:
// "Smith, John" becomes "Smith John". Names left empty are dropped.
func participantNames(contacts []string) []string {
	var out []string
	for _, c := range contacts {
		if name := strings.Join(strings.Fields(separators.Replace(c)), " "); name != "" {
			out = append(out, name)
		}
	}
	return out
}
