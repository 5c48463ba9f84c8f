package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const stateDataKey contextKey = "state_data"

// StateDataFromContext retrieves StateData from context if available
func StateDataFromContext(ctx context.Context) (*StateData, bool) {
	data, ok := ctx.Value(stateDataKey).(*StateData)
	return data, ok
}

// ContextWithStateData attaches StateData to context for request-scoped caching
func ContextWithStateData(ctx context.Context, data *StateData) context.Context {
	return context.WithValue(ctx, stateDataKey, data)
}

// Manager manages telegram sessions
type Manager struct {
	storage Storage
}

func NewManager(storage Storage) *Manager {
	return &Manager{
		storage: storage,
	}
}

func (m *Manager) GetSession(ctx context.Context, userID int64) (*TelegramSession, error) {
	session, err := m.storage.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get telegram session from storage: %w", err)
	}

	return session, nil
}

func (m *Manager) SetSession(ctx context.Context, session *TelegramSession) error {
	session.UpdatedAt = time.Now()

	if err := m.storage.Set(ctx, session); err != nil {
		return fmt.Errorf("save telegram session to storage: %w", err)
	}

	return nil
}

func (m *Manager) DeleteSession(ctx context.Context, userID int64) error {
	if err := m.storage.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete telegram session from storage: %w", err)
	}

	return nil
}

// GetStateData extracts typed state data
// First checks context for cached data, then loads from storage if needed.
// A user without a session gets fresh state.
func (m *Manager) GetStateData(ctx context.Context, userID int64) (*StateData, error) {
	if data, ok := StateDataFromContext(ctx); ok {
		return data, nil
	}

	session, err := m.GetSession(ctx, userID)
	if errors.Is(err, ErrSessionNotFound) {
		return &StateData{Version: StateDataCurrentVersion}, nil
	}
	if err != nil {
		return nil, err
	}

	if len(session.StateData) == 0 {
		return &StateData{Version: StateDataCurrentVersion}, nil
	}

	var data StateData
	if err := json.Unmarshal(session.StateData, &data); err != nil {
		return nil, fmt.Errorf("unmarshal state data: %w", err)
	}

	if data.Version == 0 {
		data.Version = StateDataCurrentVersion
	}

	return &data, nil
}

// UpdateStateData stores data on the user's session, creating the session if needed
func (m *Manager) UpdateStateData(ctx context.Context, userID int64, data *StateData) error {
	session, err := m.GetSession(ctx, userID)
	if errors.Is(err, ErrSessionNotFound) {
		session = newSession(userID, "")
	} else if err != nil {
		return err
	}

	data.Version = StateDataCurrentVersion

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal state data: %w", err)
	}

	session.StateData = jsonData
	return m.SetSession(ctx, session)
}

// CreateOrUpdateSession binds the user to conversationID, keeping existing UI state
func (m *Manager) CreateOrUpdateSession(ctx context.Context, userID int64, conversationID string) error {
	session, err := m.GetSession(ctx, userID)
	if errors.Is(err, ErrSessionNotFound) {
		session = newSession(userID, conversationID)
	} else if err != nil {
		return err
	} else if conversationID != "" {
		session.ConversationID = conversationID
	}

	return m.SetSession(ctx, session)
}

func (m *Manager) GetByConversationID(ctx context.Context, conversationID string) (*TelegramSession, error) {
	return m.storage.GetByConversationID(ctx, conversationID)
}

func newSession(userID int64, conversationID string) *TelegramSession {
	now := time.Now()
	return &TelegramSession{
		UserID:         userID,
		ConversationID: conversationID,
		CreatedAt:      now,
		UpdatedAt:      now,
		StateData:      json.RawMessage("{}"),
	}
}
