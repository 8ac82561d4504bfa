package metrics

import (
	"context"
	"log"

	"pdfchat/internal/model"
)

// Recorder appends QueryEvents to the metrics log. Record never returns an
// error: observability must not break functionality, so write failures are
// logged and swallowed.
type Recorder interface {
	Record(ctx context.Context, event model.QueryEvent)
}

// EventPublisher hands an event to the broker for asynchronous persistence.
type EventPublisher interface {
	Publish(ctx context.Context, event model.QueryEvent) error
}

// QueueRecorder publishes events to RabbitMQ with persistent delivery; the
// persist worker writes them to MySQL.
type QueueRecorder struct {
	publisher EventPublisher
}

func NewQueueRecorder(publisher EventPublisher) *QueueRecorder {
	return &QueueRecorder{publisher: publisher}
}

func (r *QueueRecorder) Record(ctx context.Context, event model.QueryEvent) {
	if err := r.publisher.Publish(ctx, event); err != nil {
		log.Printf("publish query event %s failed: %v", event.EventID, err)
	}
}

// DirectRecorder writes events straight to the repository, for deployments
// without a broker.
type DirectRecorder struct {
	repo *EventRepository
}

func NewDirectRecorder(repo *EventRepository) *DirectRecorder {
	return &DirectRecorder{repo: repo}
}

func (r *DirectRecorder) Record(ctx context.Context, event model.QueryEvent) {
	if err := r.repo.Create(ctx, &event); err != nil {
		log.Printf("persist query event %s failed: %v", event.EventID, err)
	}
}
