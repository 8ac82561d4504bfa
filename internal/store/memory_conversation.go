package store

import (
	"context"
	"sync"
	"time"

	"pdfchat/internal/model"
)

// MemoryConversationStore is an in-process ConversationStore with the same
// observable semantics as the SQL store: per-user total order via Seq,
// atomic multi-turn appends, isolation between users. It backs tests and
// single-process setups; it does not survive restarts.
type MemoryConversationStore struct {
	mu    sync.Mutex
	turns map[string][]model.ConversationTurn
}

func NewMemoryConversationStore() *MemoryConversationStore {
	return &MemoryConversationStore{turns: make(map[string][]model.ConversationTurn)}
}

func (s *MemoryConversationStore) Append(ctx context.Context, userID string, turns ...model.ConversationTurn) error {
	if len(turns) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.turns[userID]
	var maxSeq int64
	if n := len(existing); n > 0 {
		maxSeq = existing[n-1].Seq
	}
	for i := range turns {
		turns[i].UserID = userID
		turns[i].Seq = maxSeq + int64(i) + 1
		turns[i].CreatedAt = time.Now()
	}
	s.turns[userID] = append(existing, turns...)
	return nil
}

func (s *MemoryConversationStore) Fetch(ctx context.Context, userID string) ([]model.ConversationTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ConversationTurn(nil), s.turns[userID]...), nil
}

func (s *MemoryConversationStore) Clear(ctx context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.turns[userID]))
	delete(s.turns, userID)
	return n, nil
}
