package state

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/futig/omnistudy/internal/entity"
)

var ErrSessionNotFound = errors.New("telegram session not found")

// TelegramSession maps a telegram user to their current conversation and UI state
type TelegramSession struct {
	UserID         int64           `json:"user_id"`
	ConversationID string          `json:"conversation_id,omitempty"`
	StateData      json.RawMessage `json:"state_data,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// StateData contains telegram-specific UI state
// Version 1: mode, quiz tracking
type StateData struct {
	// Version for compatibility tracking (current version: 1)
	Version int `json:"version,omitempty"`

	// Mode applied to the next text message
	Mode entity.Mode `json:"mode,omitempty"`

	// Quiz messages rendered in this chat; their runs are discarded on reset
	QuizMessageIDs []string `json:"quiz_message_ids,omitempty"`

	// Last bot message ID (for editing)
	LastMessageID int `json:"last_message_id,omitempty"`
}

// CurrentMode returns the selected mode, defaulting to EXPLAIN
func (d *StateData) CurrentMode() entity.Mode {
	if d.Mode.IsValid() {
		return d.Mode
	}
	return entity.ModeExplain
}

// TrackQuiz remembers a rendered quiz message once
func (d *StateData) TrackQuiz(messageID string) {
	for _, id := range d.QuizMessageIDs {
		if id == messageID {
			return
		}
	}
	d.QuizMessageIDs = append(d.QuizMessageIDs, messageID)
}

const (
	// StateDataCurrentVersion is the current version of StateData
	StateDataCurrentVersion = 1
)

// Storage defines the interface for telegram session persistence
type Storage interface {
	// Get retrieves telegram session by user ID
	Get(ctx context.Context, userID int64) (*TelegramSession, error)

	// Set saves telegram session
	Set(ctx context.Context, session *TelegramSession) error

	// Delete removes telegram session
	Delete(ctx context.Context, userID int64) error

	// GetByConversationID retrieves telegram session by conversation ID
	GetByConversationID(ctx context.Context, conversationID string) (*TelegramSession, error)
}
