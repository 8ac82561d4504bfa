package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"pdfchat/internal/metrics"
	"pdfchat/internal/model"
)

// EventPersistWorker drains the query-event queue into MySQL so metrics
// writes never sit on the request path.
type EventPersistWorker struct {
	conn      *amqp.Connection
	repo      *metrics.EventRepository
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewEventPersistWorker(conn *amqp.Connection, repo *metrics.EventRepository, queueName string) *EventPersistWorker {
	return &EventPersistWorker{
		conn:      conn,
		repo:      repo,
		queueName: queueName,
	}
}

func (w *EventPersistWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}

				var event model.QueryEvent
				if err := json.Unmarshal(d.Body, &event); err != nil {
					log.Printf("worker decode event failed: %v", err)
					_ = d.Nack(false, false)
					continue
				}

				if err := w.repo.Create(workerCtx, &event); err != nil {
					log.Printf("worker persist event failed: %v", err)
					_ = d.Nack(false, false)
					continue
				}

				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *EventPersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
