package store

import (
	"context"
	"log"

	"pdfchat/internal/model"
)

// Cache is the cache-aside slice CachedConversationStore relies on.
type Cache interface {
	GetHistory(ctx context.Context, userID string) ([]model.ConversationTurn, bool, error)
	SetHistory(ctx context.Context, userID string, turns []model.ConversationTurn) error
	DeleteHistory(ctx context.Context, userID string) error
}

// CachedConversationStore layers a cache over a ConversationStore. The cache
// is advisory: every cache failure degrades to the underlying store and is
// never surfaced to the caller.
type CachedConversationStore struct {
	inner ConversationStore
	cache Cache
}

func NewCachedConversationStore(inner ConversationStore, cache Cache) *CachedConversationStore {
	return &CachedConversationStore{inner: inner, cache: cache}
}

func (s *CachedConversationStore) Append(ctx context.Context, userID string, turns ...model.ConversationTurn) error {
	if err := s.inner.Append(ctx, userID, turns...); err != nil {
		return err
	}
	if err := s.cache.DeleteHistory(ctx, userID); err != nil {
		log.Printf("invalidate history cache for %s failed: %v", userID, err)
	}
	return nil
}

func (s *CachedConversationStore) Fetch(ctx context.Context, userID string) ([]model.ConversationTurn, error) {
	cached, hit, err := s.cache.GetHistory(ctx, userID)
	if err != nil {
		log.Printf("read history cache for %s failed: %v", userID, err)
	} else if hit {
		return cached, nil
	}

	turns, err := s.inner.Fetch(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetHistory(ctx, userID, turns); err != nil {
		log.Printf("fill history cache for %s failed: %v", userID, err)
	}
	return turns, nil
}

func (s *CachedConversationStore) Clear(ctx context.Context, userID string) (int64, error) {
	deleted, err := s.inner.Clear(ctx, userID)
	if err != nil {
		return 0, err
	}
	if err := s.cache.DeleteHistory(ctx, userID); err != nil {
		log.Printf("invalidate history cache for %s failed: %v", userID, err)
	}
	return deleted, nil
}
