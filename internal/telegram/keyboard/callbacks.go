package keyboard

import (
	"fmt"
	"strings"
)

// Callback actions
const (
	ActionMode     = "mode"  // mode:<MODE>
	ActionQuiz     = "quiz"  // quiz:<messageID>:<option>
	ActionQuizNext = "qnext" // qnext:<messageID>
	ActionDownload = "dl"    // dl:<messageID>:<format>
)

// CallbackData represents parsed callback data
type CallbackData struct {
	Action string
	Value  string // message id or mode
	Arg    string // option index or export format, empty when unused
}

// ParseCallback parses callback data string
func ParseCallback(data string) (*CallbackData, error) {
	parts := strings.SplitN(data, ":", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("invalid callback format: %s", data)
	}

	cb := &CallbackData{
		Action: parts[0],
		Value:  parts[1],
	}
	if len(parts) == 3 {
		cb.Arg = parts[2]
	}

	switch cb.Action {
	case ActionQuiz, ActionDownload:
		if cb.Arg == "" {
			return nil, fmt.Errorf("callback %s requires an argument: %s", cb.Action, data)
		}
	}

	return cb, nil
}

// EncodeCallback creates callback data string. Telegram caps it at 64 bytes,
// which a uuid message id with a short action and argument stays within.
func EncodeCallback(action string, values ...string) string {
	return action + ":" + strings.Join(values, ":")
}
