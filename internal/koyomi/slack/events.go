package slack

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bdobrica/Koyomi/internal/koyomi/commands"
)

// ChannelTypeIM is the channel_type of direct messages.
const ChannelTypeIM = "im"

type eventsAPIPayload struct {
	Type  string       `json:"type"`
	Event messageEvent `json:"event"`
}

type messageEvent struct {
	Type        string `json:"type"`
	Subtype     string `json:"subtype"`
	User        string `json:"user"`
	BotID       string `json:"bot_id"`
	Text        string `json:"text"`
	Channel     string `json:"channel"`
	ChannelType string `json:"channel_type"`
	TS          string `json:"ts"`
}

type interactivePayload struct {
	Type string `json:"type"`
	User struct {
		ID string `json:"id"`
	} `json:"user"`
	Channel struct {
		ID string `json:"id"`
	} `json:"channel"`
	Container struct {
		ChannelID string `json:"channel_id"`
	} `json:"container"`
	Actions []struct {
		Type     string `json:"type"`
		ActionID string `json:"action_id"`
		BlockID  string `json:"block_id"`
		Value    string `json:"value"`
	} `json:"actions"`
}

// filter decides which messages reach the bot.
type filter struct {
	botUserID  string
	botChannel string
}

// parseMessage extracts a user's direct message from an events_api payload.
// ok is false for anything else: other event types, edits and other
// subtypes, bot messages, channels other than the configured bot channel.
// With no bot channel configured nothing is accepted.
func (f filter) parseMessage(payload json.RawMessage) (msg commands.Message, ok bool, err error) {
	var p eventsAPIPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return commands.Message{}, false, fmt.Errorf("decode events_api payload: %w", err)
	}
	ev := p.Event
	switch {
	case p.Type != "event_callback", ev.Type != "message":
		return commands.Message{}, false, nil
	case ev.Subtype != "", ev.BotID != "":
		return commands.Message{}, false, nil
	case ev.User == "" || ev.User == f.botUserID:
		return commands.Message{}, false, nil
	case ev.ChannelType != ChannelTypeIM:
		return commands.Message{}, false, nil
	case ev.Channel != f.botChannel:
		return commands.Message{}, false, nil
	case strings.TrimSpace(ev.Text) == "":
		return commands.Message{}, false, nil
	}
	return commands.Message{
		Text:        ev.Text,
		User:        ev.User,
		Channel:     ev.Channel,
		ChannelType: ev.ChannelType,
	}, true, nil
}

// parseActions extracts the actions of a block_actions payload.
func parseActions(payload json.RawMessage) ([]commands.Action, error) {
	var p interactivePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("decode interactive payload: %w", err)
	}
	if p.Type != "block_actions" {
		return nil, nil
	}
	channel := p.Channel.ID
	if channel == "" {
		channel = p.Container.ChannelID
	}
	out := make([]commands.Action, 0, len(p.Actions))
	for _, a := range p.Actions {
		out = append(out, commands.Action{
			ActionID: a.ActionID,
			BlockID:  a.BlockID,
			Value:    a.Value,
			User:     p.User.ID,
			Channel:  channel,
		})
	}
	return out, nil
}
