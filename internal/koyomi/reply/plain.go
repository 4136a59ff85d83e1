package reply

import (
	"fmt"
	"strings"
)

// Plain renders m as text for transports without block layout. Buttons and
// inputs become command lines of the form "<prefix> <action_id> <value>"
// that the user can send back; an input's value is left as a placeholder.
func Plain(m Message, prefix string) string {
	if len(m.Blocks) == 0 {
		return m.Text
	}

	var sb strings.Builder
	for _, b := range m.Blocks {
		switch b.Type {
		case BlockHeader:
			fmt.Fprintf(&sb, "**%s**\n", b.Text)
		case BlockSection:
			sb.WriteString(mrkdwnToMarkdown(b.Text))
			sb.WriteString("\n")
		case BlockDivider:
			sb.WriteString("---\n")
		case BlockActions:
			for _, btn := range b.Buttons {
				fmt.Fprintf(&sb, "%s: `%s %s %s`\n", btn.Text, prefix, btn.ActionID, btn.Value)
			}
		case BlockInput:
			if b.Input == nil {
				continue
			}
			hint := b.Input.Placeholder
			if hint == "" {
				hint = "value"
			}
			fmt.Fprintf(&sb, "%s `%s %s <%s>`\n", b.Input.Label, prefix, b.Input.ActionID, strings.ToLower(hint))
		}
	}
	if m.Text != "" && sb.Len() == 0 {
		return m.Text
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Summary returns one line describing m, for notifications and other places
// where blocks are not shown. It is the text of a text message, otherwise
// the first header or the first line of the first section. Button values
// and inputs never appear in it.
func Summary(m Message) string {
	if m.Text != "" {
		return m.Text
	}
	for _, b := range m.Blocks {
		switch b.Type {
		case BlockHeader:
			return b.Text
		case BlockSection:
			line, _, _ := strings.Cut(b.Text, "\n")
			if line = strings.TrimSpace(strings.ReplaceAll(line, "*", "")); line != "" {
				return line
			}
		}
	}
	return summaryFallback
}

const summaryFallback = "New message from Koyomi"

// mrkdwnToMarkdown converts Slack's *bold* to Markdown's **bold**.
func mrkdwnToMarkdown(s string) string {
	var sb strings.Builder
	open := false
	for i := 0; i < len(s); i++ {
		if s[i] == '*' {
			sb.WriteString("**")
			open = !open
			continue
		}
		sb.WriteByte(s[i])
	}
	if open {
		sb.WriteString("**")
	}
	return sb.String()
}
