package entity

import (
	"time"
)

type ExportFormat string

const (
	FormatMarkdown ExportFormat = "markdown"
	FormatPDF      ExportFormat = "pdf"
	FormatDOCX     ExportFormat = "docx"
)

func (f ExportFormat) IsValid() bool {
	switch f {
	case FormatMarkdown, FormatPDF, FormatDOCX:
		return true
	}
	return false
}

type SubmitMessageRequest struct {
	Mode string `json:"mode"`
	Text string `json:"text"`
}

type SubmitMessageResponse struct {
	UserMessage      MessageDTO `json:"user_message"`
	AssistantMessage MessageDTO `json:"assistant_message"`
}

type SelectOptionRequest struct {
	Option *int `json:"option"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type MessageDTO struct {
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

type ConversationDTO struct {
	ID       string       `json:"conversation_id"`
	Busy     bool         `json:"busy"`
	Messages []MessageDTO `json:"messages"`
}

type QuizRunDTO struct {
	MessageID    string        `json:"message_id"`
	Title        string        `json:"title"`
	Phase        string        `json:"phase"`
	CurrentIndex int           `json:"current_index"`
	Total        int           `json:"total"`
	Question     *QuizQuestion `json:"question,omitempty"`
	Selected     *int          `json:"selected,omitempty"`
	Revealed     bool          `json:"revealed"`
	Correct      *bool         `json:"correct,omitempty"`
	Score        int           `json:"score"`
	Finished     bool          `json:"finished"`
	Percentage   *int          `json:"percentage,omitempty"`
}
