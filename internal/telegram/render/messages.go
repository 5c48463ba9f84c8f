package render

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net"
	"regexp"
	"strings"

	"github.com/futig/omnistudy/internal/entity"
)

// Messages are sent with the HTML parse mode; dynamic text must go through html.EscapeString
const (
	// Welcome messages
	MsgWelcome = `👋 Hi! I'm <b>OmniStudy</b>, your study companion.

I can:
• Explain any topic with sources
• Quiz you on a subject
• Build a study plan for a goal
• Summarize long texts

Pick a mode and send me a message.`

	MsgHelp = `🤖 <b>Commands</b>

/start - Start a new conversation
/mode - Choose a study mode
/reset - Clear the current conversation
/help - Show this help

<b>Modes</b>
💡 EXPLAIN - ask anything
📝 QUIZ - send a topic
📅 STUDY PLAN - send a goal, e.g. "Learn Calculus in 1 week"
📄 SUMMARIZE - paste a text`

	MsgChooseMode = `🎯 Choose a mode. Current: <b>%s</b>`

	MsgModeSelected = `✅ Mode set to <b>%s</b>

%s`

	MsgConversationReset = `🧹 Conversation cleared.

Send /start to begin a new one.`

	MsgNoConversation = `There is no active conversation. Send /start`

	MsgExportReady = `📎 Here is your file`

	// Quiz widget
	MsgQuizQuestion = `<b>Question %d of %d</b>

%s`
	MsgQuizCorrect  = `✅ Correct!`
	MsgQuizWrong    = `❌ Not quite right`
	MsgQuizComplete = `🏆 <b>Quiz Complete!</b>

You scored %d out of %d (%d%%)`
	BtnNextQuestion = "Next Question ➡️"
	BtnFinishQuiz   = "Finish Quiz 🏁"

	// Errors
	ErrGeneric          = `❌ Something went wrong. Please try again or send /start`
	ErrBusy             = `⏳ Still working on your previous request. Please wait.`
	ErrNotFound         = `❌ This conversation is no longer available. Send /start`
	ErrQuizUnavailable  = `❌ This quiz is no longer available.`
	ErrInvalidInput     = `❌ That doesn't look right. Please try again.`
	ErrInputTooLong     = `❌ The message is too long. Please shorten it.`
	ErrUnknownCommand   = `❌ Unknown command. Send /help`
	ErrNetworkIssue     = `❌ Connection problem. Please try again later.`
	ErrTimeout          = `❌ The operation took too long. Please try again.`
	ErrExportFailed     = `❌ Could not prepare the file.`
	ErrUnsupportedInput = `Please send text. Voice messages and files are not supported.`
)

// MaxMessageLength is the Telegram limit for one text message
const MaxMessageLength = 4096

var (
	headingPattern = regexp.MustCompile(`^#{1,6}\s+(.*)$`)
	bulletPattern  = regexp.MustCompile(`^(\s*)[-*•]\s+(.*)$`)
	boldPattern    = regexp.MustCompile(`\*\*(.+?)\*\*`)
)

// FormatMarkdown converts the markdown subset produced by the model to Telegram HTML:
// headings become bold lines, bullets are normalised to "•" and **bold** is kept.
func FormatMarkdown(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, line := range lines {
		line = html.EscapeString(line)
		if m := headingPattern.FindStringSubmatch(line); m != nil {
			line = "<b>" + strings.Trim(m[1], "* ") + "</b>"
		} else if m := bulletPattern.FindStringSubmatch(line); m != nil {
			line = m[1] + "• " + m[2]
		}
		lines[i] = boldPattern.ReplaceAllString(line, "<b>$1</b>")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// RenderText formats a plain assistant reply with its sources
func RenderText(content string, sources []entity.Source) string {
	var sb strings.Builder
	sb.WriteString(FormatMarkdown(content))

	if len(sources) > 0 {
		sb.WriteString("\n\n<b>Sources</b>")
		for i, s := range sources {
			title := s.Title
			if title == "" {
				title = s.URI
			}
			fmt.Fprintf(&sb, "\n%d. <a href=\"%s\">%s</a>", i+1, html.EscapeString(s.URI), html.EscapeString(title))
		}
	}

	return sb.String()
}

func RenderStudyPlan(caption string, plan *entity.StudyPlan) string {
	var sb strings.Builder
	sb.WriteString(FormatMarkdown(caption))

	for i, item := range plan.Items {
		fmt.Fprintf(&sb, "\n\n<b>%d. %s</b>", i+1, html.EscapeString(item.Topic))
		if item.Duration != "" {
			fmt.Fprintf(&sb, " <i>(%s)</i>", html.EscapeString(item.Duration))
		}
		if item.Description != "" {
			sb.WriteString("\n" + html.EscapeString(item.Description))
		}
		for _, r := range item.Resources {
			sb.WriteString("\n• " + html.EscapeString(r))
		}
	}

	return sb.String()
}

func RenderSummary(caption string, summary *entity.Summary) string {
	var sb strings.Builder
	sb.WriteString(FormatMarkdown(caption))

	fmt.Fprintf(&sb, "\n\n<b>Main point</b>\n%s", html.EscapeString(summary.MainPoint))

	if len(summary.Takeaways) > 0 {
		sb.WriteString("\n\n<b>Key takeaways</b>")
		for _, t := range summary.Takeaways {
			sb.WriteString("\n• " + html.EscapeString(t))
		}
	}

	if summary.Context != nil && *summary.Context != "" {
		fmt.Fprintf(&sb, "\n\n<i>%s</i>", html.EscapeString(*summary.Context))
	}

	return sb.String()
}

// RenderQuizQuestion shows the question and its lettered options
func RenderQuizQuestion(q entity.QuizQuestion, index, total int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, MsgQuizQuestion, index+1, total, html.EscapeString(q.Question))
	sb.WriteString("\n")
	for i, opt := range q.Options {
		fmt.Fprintf(&sb, "\n%s. %s", OptionLetter(i), html.EscapeString(opt))
	}
	return sb.String()
}

// RenderQuizFeedback shows the revealed question with the verdict and explanation
func RenderQuizFeedback(q entity.QuizQuestion, index, total, selected int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, MsgQuizQuestion, index+1, total, html.EscapeString(q.Question))
	sb.WriteString("\n")
	for i, opt := range q.Options {
		marker := "▫️"
		switch {
		case i == q.CorrectAnswer:
			marker = "✅"
		case i == selected:
			marker = "❌"
		}
		fmt.Fprintf(&sb, "\n%s %s. %s", marker, OptionLetter(i), html.EscapeString(opt))
	}

	if selected == q.CorrectAnswer {
		sb.WriteString("\n\n" + MsgQuizCorrect)
	} else {
		sb.WriteString("\n\n" + MsgQuizWrong)
	}
	if q.Explanation != "" {
		sb.WriteString("\n" + html.EscapeString(q.Explanation))
	}

	return sb.String()
}

func RenderQuizComplete(score, total, percentage int) string {
	return fmt.Sprintf(MsgQuizComplete, score, total, percentage)
}

func RenderChooseMode(current entity.Mode) string {
	return fmt.Sprintf(MsgChooseMode, current.Label())
}

func RenderModeSelected(mode entity.Mode) string {
	return fmt.Sprintf(MsgModeSelected, mode.Label(), html.EscapeString(mode.InputHint()))
}

// OptionLetter maps an option index to A, B, C...
func OptionLetter(i int) string {
	return string(rune('A' + i))
}

// SplitMessage cuts text into chunks of at most limit runes, preferring paragraph
// and line boundaries. Lines longer than limit are cut outside tags and entities,
// with open tags closed at the cut and reopened in the next chunk.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 || len([]rune(text)) <= limit {
		return []string{text}
	}

	var (
		chunks  []string
		current strings.Builder
		size    int
	)
	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, strings.TrimRight(current.String(), "\n"))
			current.Reset()
			size = 0
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		n := len([]rune(line))
		if size+n > limit {
			flush()
		}
		if n > limit {
			pieces := splitLine(line, limit)
			chunks = append(chunks, pieces[:len(pieces)-1]...)
			line = pieces[len(pieces)-1]
			n = len([]rune(line))
		}
		current.WriteString(line)
		size += n
	}
	flush()

	return chunks
}

var tagPattern = regexp.MustCompile(`<(/?)([a-zA-Z]+)[^<>]*>`)

func splitLine(line string, limit int) []string {
	var (
		pieces []string
		open   []string
	)
	r := []rune(line)

	for len(r) > 0 {
		prefix := strings.Join(open, "")
		budget := limit - len([]rune(prefix))

		for {
			if budget < 1 {
				budget = 1
			}
			cut := safeCut(r, budget)
			next := trackTags(open, string(r[:cut]))
			piece := prefix + string(r[:cut]) + closingTags(next)

			overflow := len([]rune(piece)) - limit
			if overflow <= 0 || budget == 1 {
				pieces = append(pieces, piece)
				open = next
				r = r[cut:]
				break
			}
			budget -= overflow
		}
	}

	return pieces
}

// safeCut picks a cut point at or before budget that does not land inside a
// tag or an entity, preferring the last space
func safeCut(r []rune, budget int) int {
	if len(r) <= budget {
		return len(r)
	}

	head := string(r[:budget])
	cut := budget
	if sp := strings.LastIndexAny(head, " \t"); sp >= 0 {
		if at := len([]rune(head[:sp])) + 1; at > budget/2 {
			cut = at
		}
	}

	head = string(r[:cut])
	if lt := strings.LastIndex(head, "<"); lt > strings.LastIndex(head, ">") {
		cut = len([]rune(head[:lt]))
	}
	head = string(r[:cut])
	if amp := strings.LastIndex(head, "&"); amp > strings.LastIndex(head, ";") {
		cut = len([]rune(head[:amp]))
	}

	if cut == 0 {
		return budget
	}
	return cut
}

// trackTags returns the stack of tags still open after piece
func trackTags(open []string, piece string) []string {
	stack := append([]string(nil), open...)
	for _, m := range tagPattern.FindAllStringSubmatch(piece, -1) {
		if m[1] == "" {
			stack = append(stack, m[0])
			continue
		}
		for i := len(stack) - 1; i >= 0; i-- {
			if tagName(stack[i]) == m[2] {
				stack = append(stack[:i], stack[i+1:]...)
				break
			}
		}
	}
	return stack
}

func closingTags(open []string) string {
	var sb strings.Builder
	for i := len(open) - 1; i >= 0; i-- {
		sb.WriteString("</" + tagName(open[i]) + ">")
	}
	return sb.String()
}

func tagName(tag string) string {
	if m := tagPattern.FindStringSubmatch(tag); m != nil {
		return m[2]
	}
	return ""
}

// ClassifyError maps an error to a user-facing message
func ClassifyError(err error) string {
	switch {
	case err == nil:
		return ErrGeneric
	case errors.Is(err, entity.ErrBusy):
		return ErrBusy
	case errors.Is(err, entity.ErrConversationNotFound):
		return ErrNotFound
	case errors.Is(err, entity.ErrMessageNotFound),
		errors.Is(err, entity.ErrNotAQuiz),
		errors.Is(err, entity.ErrInvalidQuiz):
		return ErrQuizUnavailable
	case errors.Is(err, entity.ErrInvalidParameter):
		return ErrInputTooLong
	case errors.Is(err, entity.ErrInvalidMode),
		errors.Is(err, entity.ErrInvalidFormat),
		errors.Is(err, entity.ErrMissingField):
		return ErrInvalidInput
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrTimeout
		}
		return ErrNetworkIssue
	}

	return ErrGeneric
}
