// Package reply is the platform-neutral model of a bot reply: plain text or
// a list of layout blocks (header, section, divider, buttons, text input).
//
// Blocks marshal to the Slack Block Kit shape. Transports without rich
// layout use Plain to render the same reply as text.
package reply

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BlockType names a layout block.
type BlockType string

const (
	BlockHeader  BlockType = "header"
	BlockSection BlockType = "section"
	BlockDivider BlockType = "divider"
	BlockActions BlockType = "actions"
	BlockInput   BlockType = "input"
)

// Button styles.
const (
	StylePrimary = "primary"
	StyleDanger  = "danger"
)

// Message is one outbound reply. Exactly one of Text or Blocks is normally
// set; when both are set, Text is the notification fallback.
type Message struct {
	Text   string
	Blocks []Block
}

// Text returns a plain-text reply.
func Text(s string) Message { return Message{Text: s} }

// Blocks returns a block reply.
func Blocks(blocks ...Block) Message { return Message{Blocks: blocks} }

// IsZero reports whether m carries nothing to send.
func (m Message) IsZero() bool { return m.Text == "" && len(m.Blocks) == 0 }

// Block is one layout element. Which fields are meaningful depends on Type.
type Block struct {
	Type BlockType
	// BlockID is set on actions and input blocks.
	BlockID string
	// Text is the header text (plain) or the section text (mrkdwn).
	Text string
	// Buttons of an actions block.
	Buttons []Button
	// Input of an input block.
	Input *Input
}

// Button is an interactive button. Pressing it delivers ActionID and Value
// back to the bot.
type Button struct {
	Text     string
	Style    string
	ActionID string
	Value    string
}

// Input is a single-line text field that submits on enter.
type Input struct {
	Label       string
	Placeholder string
	ActionID    string
}

// UntitledHeader replaces blank header text, which Slack rejects.
const UntitledHeader = "(untitled)"

// Header returns a header block.
func Header(text string) Block {
	if strings.TrimSpace(text) == "" {
		text = UntitledHeader
	}
	return Block{Type: BlockHeader, Text: text}
}

// Section returns a section block with mrkdwn text.
func Section(mrkdwn string) Block { return Block{Type: BlockSection, Text: mrkdwn} }

// Divider returns a divider block.
func Divider() Block { return Block{Type: BlockDivider} }

// Actions returns an actions block holding buttons.
func Actions(blockID string, buttons ...Button) Block {
	return Block{Type: BlockActions, BlockID: blockID, Buttons: buttons}
}

// TextInput returns an input block that dispatches its value as an action
// when submitted.
func TextInput(blockID string, in Input) Block {
	return Block{Type: BlockInput, BlockID: blockID, Input: &in}
}

type plainText struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji *bool  `json:"emoji,omitempty"`
}

type wireButton struct {
	Type     string    `json:"type"`
	Text     plainText `json:"text"`
	Style    string    `json:"style,omitempty"`
	ActionID string    `json:"action_id"`
	Value    string    `json:"value"`
}

type wireElement struct {
	Type        string     `json:"type"`
	ActionID    string     `json:"action_id"`
	Placeholder *plainText `json:"placeholder,omitempty"`
}

type wireBlock struct {
	Type           BlockType    `json:"type"`
	BlockID        string       `json:"block_id,omitempty"`
	DispatchAction bool         `json:"dispatch_action,omitempty"`
	Text           *plainText   `json:"text,omitempty"`
	Label          *plainText   `json:"label,omitempty"`
	Element        *wireElement `json:"element,omitempty"`
	Elements       []wireButton `json:"elements,omitempty"`
}

// MarshalJSON renders b in the Block Kit shape.
func (b Block) MarshalJSON() ([]byte, error) {
	w := wireBlock{Type: b.Type, BlockID: b.BlockID}
	switch b.Type {
	case BlockHeader:
		w.Text = &plainText{Type: "plain_text", Text: b.Text}
	case BlockSection:
		w.Text = &plainText{Type: "mrkdwn", Text: b.Text}
	case BlockDivider:
	case BlockActions:
		w.Elements = make([]wireButton, 0, len(b.Buttons))
		for _, btn := range b.Buttons {
			w.Elements = append(w.Elements, wireButton{
				Type:     "button",
				Text:     plainText{Type: "plain_text", Text: btn.Text},
				Style:    btn.Style,
				ActionID: btn.ActionID,
				Value:    btn.Value,
			})
		}
	case BlockInput:
		if b.Input == nil {
			return nil, fmt.Errorf("reply: input block %q has no input", b.BlockID)
		}
		noEmoji := false
		w.DispatchAction = true
		w.Label = &plainText{Type: "plain_text", Text: b.Input.Label, Emoji: &noEmoji}
		w.Element = &wireElement{Type: "plain_text_input", ActionID: b.Input.ActionID}
		if b.Input.Placeholder != "" {
			w.Element.Placeholder = &plainText{Type: "plain_text", Text: b.Input.Placeholder}
		}
	default:
		return nil, fmt.Errorf("reply: unknown block type %q", b.Type)
	}
	return json.Marshal(w)
}
