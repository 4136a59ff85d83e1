package reply

import (
	"fmt"
	"html"
	"strings"
)

// HTML renders m as the HTML subset Matrix clients display. Buttons and
// inputs are shown as the same command lines Plain produces.
func HTML(m Message, prefix string) string {
	if len(m.Blocks) == 0 {
		return html.EscapeString(m.Text)
	}

	var parts []string
	for _, b := range m.Blocks {
		switch b.Type {
		case BlockHeader:
			parts = append(parts, "<h4>"+html.EscapeString(b.Text)+"</h4>")
		case BlockSection:
			parts = append(parts, "<p>"+mrkdwnToHTML(b.Text)+"</p>")
		case BlockDivider:
			parts = append(parts, "<hr>")
		case BlockActions:
			var items []string
			for _, btn := range b.Buttons {
				items = append(items, fmt.Sprintf("<li>%s: <code>%s</code></li>",
					html.EscapeString(btn.Text),
					html.EscapeString(prefix+" "+btn.ActionID+" "+btn.Value)))
			}
			parts = append(parts, "<ul>"+strings.Join(items, "")+"</ul>")
		case BlockInput:
			if b.Input == nil {
				continue
			}
			hint := b.Input.Placeholder
			if hint == "" {
				hint = "value"
			}
			parts = append(parts, fmt.Sprintf("<p>%s <code>%s</code></p>",
				html.EscapeString(b.Input.Label),
				html.EscapeString(prefix+" "+b.Input.ActionID+" <"+strings.ToLower(hint)+">")))
		}
	}
	return strings.Join(parts, "")
}

// mrkdwnToHTML escapes s, turns *bold* into <strong> and newlines into <br>.
func mrkdwnToHTML(s string) string {
	var sb strings.Builder
	open := false
	for i, seg := range strings.Split(s, "*") {
		if i > 0 {
			if open {
				sb.WriteString("</strong>")
			} else {
				sb.WriteString("<strong>")
			}
			open = !open
		}
		sb.WriteString(strings.ReplaceAll(html.EscapeString(seg), "\n", "<br>"))
	}
	if open {
		sb.WriteString("</strong>")
	}
	return sb.String()
}
