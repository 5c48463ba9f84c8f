package keyboard

import (
	"strconv"

	"github.com/futig/omnistudy/internal/entity"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var modeIcons = map[entity.Mode]string{
	entity.ModeExplain:   "💡",
	entity.ModeQuiz:      "📝",
	entity.ModeStudyPlan: "📅",
	entity.ModeSummarize: "📄",
}

// Builder creates inline keyboards
type Builder struct{}

// NewBuilder creates a keyboard builder
func NewBuilder() *Builder {
	return &Builder{}
}

// ModeKeyboard lays the four modes out in two rows, marking the current one
func (b *Builder) ModeKeyboard(current entity.Mode) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton

	for _, mode := range entity.AllModes() {
		label := modeIcons[mode] + " " + mode.Label()
		if mode == current {
			label = "✅ " + mode.Label()
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, EncodeCallback(ActionMode, string(mode))))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// QuizOptionsKeyboard has one lettered button per option of the current question
func (b *Builder) QuizOptionsKeyboard(messageID string, optionCount int) tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, optionCount)
	for i := 0; i < optionCount; i++ {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			string(rune('A'+i)),
			EncodeCallback(ActionQuiz, messageID, strconv.Itoa(i)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

// QuizNextKeyboard advances a revealed question; the label changes on the last one
func (b *Builder) QuizNextKeyboard(messageID string, last bool, nextLabel, finishLabel string) tgbotapi.InlineKeyboardMarkup {
	label := nextLabel
	if last {
		label = finishLabel
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, EncodeCallback(ActionQuizNext, messageID)),
		),
	)
}

// ExportKeyboard offers the message as a downloadable file
func (b *Builder) ExportKeyboard(messageID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📄 .md", EncodeCallback(ActionDownload, messageID, string(entity.FormatMarkdown))),
			tgbotapi.NewInlineKeyboardButtonData("📕 .pdf", EncodeCallback(ActionDownload, messageID, string(entity.FormatPDF))),
			tgbotapi.NewInlineKeyboardButtonData("📘 .docx", EncodeCallback(ActionDownload, messageID, string(entity.FormatDOCX))),
		),
	)
}
