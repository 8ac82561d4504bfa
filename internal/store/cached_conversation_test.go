package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfchat/internal/model"
)

type stubStore struct {
	turns   map[string][]model.ConversationTurn
	fetches int
}

func newStubStore() *stubStore {
	return &stubStore{turns: make(map[string][]model.ConversationTurn)}
}

func (s *stubStore) Append(ctx context.Context, userID string, turns ...model.ConversationTurn) error {
	s.turns[userID] = append(s.turns[userID], turns...)
	return nil
}

func (s *stubStore) Fetch(ctx context.Context, userID string) ([]model.ConversationTurn, error) {
	s.fetches++
	return s.turns[userID], nil
}

func (s *stubStore) Clear(ctx context.Context, userID string) (int64, error) {
	n := int64(len(s.turns[userID]))
	delete(s.turns, userID)
	return n, nil
}

type stubCache struct {
	entries map[string][]model.ConversationTurn
	getErr  error
	setErr  error
	delErr  error
}

func newStubCache() *stubCache {
	return &stubCache{entries: make(map[string][]model.ConversationTurn)}
}

func (c *stubCache) GetHistory(ctx context.Context, userID string) ([]model.ConversationTurn, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	turns, ok := c.entries[userID]
	return turns, ok, nil
}

func (c *stubCache) SetHistory(ctx context.Context, userID string, turns []model.ConversationTurn) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[userID] = turns
	return nil
}

func (c *stubCache) DeleteHistory(ctx context.Context, userID string) error {
	if c.delErr != nil {
		return c.delErr
	}
	delete(c.entries, userID)
	return nil
}

func turn(role, content string) model.ConversationTurn {
	return model.ConversationTurn{Role: role, Content: content}
}

func TestFetchFillsCache(t *testing.T) {
	inner := newStubStore()
	cache := newStubCache()
	s := NewCachedConversationStore(inner, cache)
	ctx := context.Background()

	require.NoError(t, inner.Append(ctx, "u1", turn(model.RoleUser, "hi")))

	turns, err := s.Fetch(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, 1, inner.fetches)

	// Second read is served from the cache.
	_, err = s.Fetch(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.fetches)
}

func TestAppendInvalidatesCache(t *testing.T) {
	inner := newStubStore()
	cache := newStubCache()
	s := NewCachedConversationStore(inner, cache)
	ctx := context.Background()

	_, err := s.Fetch(ctx, "u1")
	require.NoError(t, err)
	_, cached := cache.entries["u1"]
	require.True(t, cached)

	require.NoError(t, s.Append(ctx, "u1", turn(model.RoleUser, "new question")))
	_, cached = cache.entries["u1"]
	assert.False(t, cached)

	turns, err := s.Fetch(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "new question", turns[0].Content)
}

func TestClearInvalidatesCache(t *testing.T) {
	inner := newStubStore()
	cache := newStubCache()
	s := NewCachedConversationStore(inner, cache)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "u1", turn(model.RoleUser, "a"), turn(model.RoleAssistant, "b")))
	_, err := s.Fetch(ctx, "u1")
	require.NoError(t, err)

	deleted, err := s.Clear(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	_, cached := cache.entries["u1"]
	assert.False(t, cached)

	turns, err := s.Fetch(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestCacheFailuresDegradeToStore(t *testing.T) {
	inner := newStubStore()
	cache := newStubCache()
	cache.getErr = errors.New("redis down")
	cache.setErr = errors.New("redis down")
	cache.delErr = errors.New("redis down")
	s := NewCachedConversationStore(inner, cache)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "u1", turn(model.RoleUser, "q")))

	turns, err := s.Fetch(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, turns, 1)

	_, err = s.Clear(ctx, "u1")
	assert.NoError(t, err)
}
