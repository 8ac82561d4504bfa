package metrics

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"pdfchat/internal/model"
)

// EventRepository is the durable append-only query-event log.
type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Create(ctx context.Context, event *model.QueryEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("create query event failed: %w", err)
	}
	return nil
}

// ListEvents returns events at or after since (zero time means all),
// optionally scoped to one user, oldest first.
func (r *EventRepository) ListEvents(ctx context.Context, since time.Time, userID string) ([]model.QueryEvent, error) {
	q := r.db.WithContext(ctx).Model(&model.QueryEvent{})
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since)
	}
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}

	var events []model.QueryEvent
	if err := q.Order("created_at ASC, id ASC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list query events failed: %w", err)
	}
	return events, nil
}
