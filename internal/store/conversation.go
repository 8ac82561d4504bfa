package store

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"pdfchat/internal/model"
)

// ConversationStore persists per-user ordered message history. Fetch on an
// unknown user returns an empty slice, never an error.
type ConversationStore interface {
	Append(ctx context.Context, userID string, turns ...model.ConversationTurn) error
	Fetch(ctx context.Context, userID string) ([]model.ConversationTurn, error)
	Clear(ctx context.Context, userID string) (int64, error)
}

// SQLConversationStore keeps turns in MySQL. Appends for the same user are
// serialized by a per-user lock so Seq assignment gives a total order;
// different users append concurrently.
type SQLConversationStore struct {
	db *gorm.DB

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewSQLConversationStore(db *gorm.DB) *SQLConversationStore {
	return &SQLConversationStore{db: db, locks: make(map[string]*sync.Mutex)}
}

func (s *SQLConversationStore) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// Append writes all turns in one transaction, assigning consecutive Seq
// values after the user's current tail.
func (s *SQLConversationStore) Append(ctx context.Context, userID string, turns ...model.ConversationTurn) error {
	if len(turns) == 0 {
		return nil
	}

	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxSeq int64
		if err := tx.Model(&model.ConversationTurn{}).
			Where("user_id = ?", userID).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&maxSeq).Error; err != nil {
			return fmt.Errorf("read turn sequence failed: %w", err)
		}

		for i := range turns {
			turns[i].UserID = userID
			turns[i].Seq = maxSeq + int64(i) + 1
		}
		if err := tx.Create(&turns).Error; err != nil {
			return fmt.Errorf("append turns failed: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("conversation append for %s: %w", userID, err)
	}
	return nil
}

func (s *SQLConversationStore) Fetch(ctx context.Context, userID string) ([]model.ConversationTurn, error) {
	var turns []model.ConversationTurn
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("seq ASC").
		Find(&turns).Error; err != nil {
		return nil, fmt.Errorf("fetch history for %s failed: %w", userID, err)
	}
	return turns, nil
}

func (s *SQLConversationStore) Clear(ctx context.Context, userID string) (int64, error) {
	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	res := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.ConversationTurn{})
	if res.Error != nil {
		return 0, fmt.Errorf("clear history for %s failed: %w", userID, res.Error)
	}
	return res.RowsAffected, nil
}
