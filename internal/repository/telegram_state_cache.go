package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/futig/omnistudy/internal/telegram/state"
	"github.com/patrickmn/go-cache"
)

var _ state.Storage = &TelegramStateCache{}

// TelegramStateCache implements state.Storage in process memory with an idle TTL
type TelegramStateCache struct {
	cache *cache.Cache
	ttl   time.Duration
}

func NewTelegramStateCache(ttl, cleanupInterval time.Duration) *TelegramStateCache {
	return &TelegramStateCache{
		cache: cache.New(ttl, cleanupInterval),
		ttl:   ttl,
	}
}

func (r *TelegramStateCache) Get(_ context.Context, userID int64) (*state.TelegramSession, error) {
	v, ok := r.cache.Get(userKey(userID))
	if !ok {
		return nil, fmt.Errorf("%w: %d", state.ErrSessionNotFound, userID)
	}

	session := *v.(*state.TelegramSession)
	return &session, nil
}

func (r *TelegramStateCache) Set(_ context.Context, session *state.TelegramSession) error {
	stored := *session
	r.cache.Set(userKey(session.UserID), &stored, r.ttl)
	return nil
}

func (r *TelegramStateCache) Delete(_ context.Context, userID int64) error {
	r.cache.Delete(userKey(userID))
	return nil
}

func (r *TelegramStateCache) GetByConversationID(_ context.Context, conversationID string) (*state.TelegramSession, error) {
	for _, item := range r.cache.Items() {
		session, ok := item.Object.(*state.TelegramSession)
		if ok && session.ConversationID == conversationID {
			found := *session
			return &found, nil
		}
	}
	return nil, fmt.Errorf("%w: conversation %s", state.ErrSessionNotFound, conversationID)
}

func userKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
