package repository

import (
	"context"
	"time"

	"github.com/futig/omnistudy/internal/conversation"
	"github.com/futig/omnistudy/internal/entity"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

type ConversationRepository interface {
	Create(ctx context.Context) (*conversation.Store, error)
	Get(ctx context.Context, id string) (*conversation.Store, error)
	Delete(ctx context.Context, id string) error
}

var _ ConversationRepository = &ConversationCache{}

// ConversationCache keeps conversations in process memory. Entries expire
// after ttl without access; every Get restarts the clock.
type ConversationCache struct {
	cache *cache.Cache
	ttl   time.Duration
}

func NewConversationCache(ttl, cleanupInterval time.Duration) *ConversationCache {
	return &ConversationCache{
		cache: cache.New(ttl, cleanupInterval),
		ttl:   ttl,
	}
}

// OnEvicted registers a callback for conversations dropped by expiry or Delete
func (r *ConversationCache) OnEvicted(fn func(store *conversation.Store)) {
	r.cache.OnEvicted(func(_ string, v any) {
		if store, ok := v.(*conversation.Store); ok {
			fn(store)
		}
	})
}

func (r *ConversationCache) Create(_ context.Context) (*conversation.Store, error) {
	store := conversation.New(uuid.New().String())
	r.cache.Set(store.ID(), store, r.ttl)
	return store, nil
}

func (r *ConversationCache) Get(_ context.Context, id string) (*conversation.Store, error) {
	v, ok := r.cache.Get(id)
	if !ok {
		return nil, entity.ErrConversationNotFound
	}

	store := v.(*conversation.Store)
	// Replace fails once the key is gone, so a concurrent Delete sticks
	if err := r.cache.Replace(id, store, r.ttl); err != nil {
		return nil, entity.ErrConversationNotFound
	}
	return store, nil
}

func (r *ConversationCache) Delete(_ context.Context, id string) error {
	if _, ok := r.cache.Get(id); !ok {
		return entity.ErrConversationNotFound
	}
	r.cache.Delete(id)
	return nil
}

func (r *ConversationCache) Count() int {
	return r.cache.ItemCount()
}
