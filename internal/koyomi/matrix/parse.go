package matrix

import (
	"strings"

	"github.com/bdobrica/Koyomi/internal/koyomi/commands"
)

// DefaultPrefix starts a line that carries an interaction instead of a
// message for the NLU.
const DefaultPrefix = "!koyomi"

// ParseAction reads "<prefix> <action_id> <value>" from text. The value is
// the rest of the line and may contain spaces. ok is false when text is not
// an action line.
func ParseAction(text, prefix string) (act commands.Action, ok bool) {
	text = strings.TrimSpace(text)
	if prefix == "" {
		prefix = DefaultPrefix
	}
	rest, found := strings.CutPrefix(text, prefix)
	if !found || (rest != "" && rest[0] != ' ' && rest[0] != '\t') {
		return commands.Action{}, false
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return commands.Action{}, false
	}
	actionID, value, _ := strings.Cut(rest, " ")
	return commands.Action{
		ActionID: actionID,
		Value:    strings.TrimSpace(value),
	}, true
}
