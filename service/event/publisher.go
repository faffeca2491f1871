package event

import (
	"context"
	"time"

	"github.com/viant/kproc/service/messaging"
)

// Publisher sends events to a queue
type Publisher[T any] struct {
	queue messaging.Queue[Event[T]]
}

// NewPublisher creates a publisher
func NewPublisher[T any](queue messaging.Queue[Event[T]]) *Publisher[T] {
	return &Publisher[T]{
		queue: queue,
	}
}

// Publish enqueues event, blocking while the queue is full
func (p *Publisher[T]) Publish(ctx context.Context, event *Event[T]) error {
	event.CreatedAt = time.Now()
	return p.queue.Publish(ctx, event)
}

// Offer enqueues event without blocking; it returns false when the event
// was dropped.
func (p *Publisher[T]) Offer(event *Event[T]) bool {
	event.CreatedAt = time.Now()
	if offerer, ok := p.queue.(messaging.Offerer[Event[T]]); ok {
		return offerer.Offer(event)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return p.queue.Publish(ctx, event) == nil
}

// Consume returns the next event, acknowledging it
func (p *Publisher[T]) Consume(ctx context.Context) (*Event[T], error) {
	msg, err := p.queue.Consume(ctx)
	if err != nil || msg == nil {
		return nil, err
	}
	if err = msg.Ack(); err != nil {
		return nil, err
	}
	return msg.T(), nil
}
