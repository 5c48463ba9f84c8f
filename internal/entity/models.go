package entity

import (
	"fmt"
	"strings"
	"time"
)

type Mode string

// Mode selects which generation operation handles a submitted prompt
const (
	ModeExplain   Mode = "EXPLAIN"    // Free-text explanation with grounding sources (default)
	ModeQuiz      Mode = "QUIZ"       // Multiple-choice quiz on a topic
	ModeStudyPlan Mode = "STUDY_PLAN" // Time-boxed study schedule for a goal
	ModeSummarize Mode = "SUMMARIZE"  // Condensed key takeaways of a text
)

// AllModes returns modes in display order
func AllModes() []Mode {
	return []Mode{ModeExplain, ModeQuiz, ModeStudyPlan, ModeSummarize}
}

func (m Mode) IsValid() bool {
	switch m {
	case ModeExplain, ModeQuiz, ModeStudyPlan, ModeSummarize:
		return true
	}
	return false
}

// ParseMode accepts any casing and spaces in place of underscores ("study plan")
func ParseMode(s string) (Mode, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	mode := Mode(normalized)
	return mode, mode.IsValid()
}

// Label is the human readable mode name shown on mode selectors
func (m Mode) Label() string {
	return strings.ReplaceAll(string(m), "_", " ")
}

// InputHint returns the prompt placeholder for the mode
func (m Mode) InputHint() string {
	switch m {
	case ModeQuiz:
		return "Enter a topic to generate a quiz..."
	case ModeStudyPlan:
		return "What's your goal? (e.g., Learn Calculus in 1 week)"
	case ModeSummarize:
		return "Paste text here to condense it..."
	default:
		return "Ask anything... (e.g., 'Explain quantum physics')"
	}
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type MessageKind string

// Message kind; the zero value means "absent"
const (
	KindNone    MessageKind = ""
	KindPlain   MessageKind = "plain"
	KindQuiz    MessageKind = "quiz"
	KindPlan    MessageKind = "plan"
	KindSummary MessageKind = "summary"
)

// Source is a grounding citation returned alongside explanations
type Source struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// Message is one turn of the conversation transcript. Never mutated after append.
type Message struct {
	ID        string      `json:"id"`
	Role      Role        `json:"role"`
	Content   string      `json:"content"`
	Kind      MessageKind `json:"kind,omitempty"`
	Quiz      *Quiz       `json:"quiz,omitempty"`
	Plan      *StudyPlan  `json:"plan,omitempty"`
	Summary   *Summary    `json:"summary,omitempty"`
	Sources   []Source    `json:"sources"`
	CreatedAt time.Time   `json:"created_at"`
}

// Validate checks that the payload matches the message kind
func (m *Message) Validate() error {
	if m.Role != RoleUser && m.Role != RoleAssistant {
		return fmt.Errorf("%w: role %q", ErrInvalidParameter, m.Role)
	}

	payloads := 0
	if m.Quiz != nil {
		payloads++
	}
	if m.Plan != nil {
		payloads++
	}
	if m.Summary != nil {
		payloads++
	}

	switch m.Kind {
	case KindNone, KindPlain:
		if payloads != 0 {
			return fmt.Errorf("%w: %q message carries a structured payload", ErrInvalidParameter, m.Kind)
		}
	case KindQuiz:
		if m.Quiz == nil || payloads != 1 {
			return fmt.Errorf("%w: quiz message needs exactly a quiz payload", ErrInvalidParameter)
		}
	case KindPlan:
		if m.Plan == nil || payloads != 1 {
			return fmt.Errorf("%w: plan message needs exactly a plan payload", ErrInvalidParameter)
		}
	case KindSummary:
		if m.Summary == nil || payloads != 1 {
			return fmt.Errorf("%w: summary message needs exactly a summary payload", ErrInvalidParameter)
		}
	default:
		return fmt.Errorf("%w: kind %q", ErrInvalidParameter, m.Kind)
	}

	if len(m.Sources) > 0 && m.Kind != KindNone && m.Kind != KindPlain {
		return fmt.Errorf("%w: sources on %q message", ErrInvalidParameter, m.Kind)
	}

	return nil
}

// Explanation is the gateway result for EXPLAIN mode
type Explanation struct {
	Text    string   `json:"text"`
	Sources []Source `json:"sources"`
}
