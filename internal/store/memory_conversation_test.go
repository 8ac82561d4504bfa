package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfchat/internal/model"
)

func TestAppendFetchCallOrder(t *testing.T) {
	s := NewMemoryConversationStore()
	ctx := context.Background()

	// Appends for two users interleave; each user's fetch must return
	// exactly their own turns in call order.
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(ctx, "u1", turn(model.RoleUser, fmt.Sprintf("u1 msg %d", i))))
		require.NoError(t, s.Append(ctx, "u2", turn(model.RoleUser, fmt.Sprintf("u2 msg %d", i))))
	}

	turns, err := s.Fetch(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, turns, 5)
	for i, tr := range turns {
		assert.Equal(t, fmt.Sprintf("u1 msg %d", i), tr.Content)
		assert.Equal(t, int64(i+1), tr.Seq)
		assert.Equal(t, "u1", tr.UserID)
	}
}

func TestAppendMultiTurnConsecutiveSeq(t *testing.T) {
	s := NewMemoryConversationStore()
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "u1",
		turn(model.RoleUser, "question"),
		turn(model.RoleAssistant, "answer"),
	))
	require.NoError(t, s.Append(ctx, "u1",
		turn(model.RoleUser, "follow-up"),
		turn(model.RoleAssistant, "second answer"),
	))

	turns, err := s.Fetch(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, turns, 4)
	for i, tr := range turns {
		assert.Equal(t, int64(i+1), tr.Seq)
	}
	assert.Equal(t, model.RoleUser, turns[2].Role)
	assert.Equal(t, "follow-up", turns[2].Content)
}

func TestFetchIsolationBetweenUsers(t *testing.T) {
	s := NewMemoryConversationStore()
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "alice", turn(model.RoleUser, "alice secret")))
	require.NoError(t, s.Append(ctx, "bob", turn(model.RoleUser, "bob question")))

	turns, err := s.Fetch(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "alice secret", turns[0].Content)

	turns, err = s.Fetch(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "bob question", turns[0].Content)
}

func TestClearLeavesOtherUsersUntouched(t *testing.T) {
	s := NewMemoryConversationStore()
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "alice", turn(model.RoleUser, "a1"), turn(model.RoleAssistant, "a2")))
	require.NoError(t, s.Append(ctx, "bob", turn(model.RoleUser, "b1")))

	deleted, err := s.Clear(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	turns, err := s.Fetch(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, turns)

	turns, err = s.Fetch(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "b1", turns[0].Content)
}

func TestFetchUnknownUserIsEmpty(t *testing.T) {
	s := NewMemoryConversationStore()

	turns, err := s.Fetch(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestConcurrentAppendsKeepSeqDense(t *testing.T) {
	s := NewMemoryConversationStore()
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			_ = s.Append(ctx, "u1",
				turn(model.RoleUser, fmt.Sprintf("q from %d", w)),
				turn(model.RoleAssistant, fmt.Sprintf("a to %d", w)),
			)
		}(w)
	}
	wg.Wait()

	turns, err := s.Fetch(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, turns, writers*2)
	for i, tr := range turns {
		assert.Equal(t, int64(i+1), tr.Seq)
	}
	// Each append's pair stays adjacent: a user turn is always followed by
	// its assistant turn.
	for i := 0; i < len(turns); i += 2 {
		assert.Equal(t, model.RoleUser, turns[i].Role)
		assert.Equal(t, model.RoleAssistant, turns[i+1].Role)
	}
}
