package publish

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"transactions/transaction"
)

// AsyncPublisher hands events to a wrapped publisher from a single goroutine,
// so publishing never blocks the caller and events keep their order.
// When the queue is full new events are dropped and logged.
type AsyncPublisher struct {
	next   transaction.Publisher
	logger *zap.Logger

	queue chan func(context.Context) error
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

var _ transaction.Publisher = (*AsyncPublisher)(nil)

func NewAsyncPublisher(next transaction.Publisher, size int, logger *zap.Logger) *AsyncPublisher {
	if size <= 0 {
		size = 1024
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &AsyncPublisher{
		next:   next,
		logger: logger,
		queue:  make(chan func(context.Context) error, size),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *AsyncPublisher) run() {
	defer close(p.done)
	for publish := range p.queue {
		if err := publish(context.Background()); err != nil {
			p.logger.Warn("publishing event", zap.Error(err))
		}
	}
}

func (p *AsyncPublisher) PublishCreated(_ context.Context, e *transaction.CreatedEvent) error {
	p.enqueue(e.TransactionID, transaction.TopicCreated, func(ctx context.Context) error {
		return p.next.PublishCreated(ctx, e)
	})
	return nil
}

func (p *AsyncPublisher) PublishCompleted(_ context.Context, e *transaction.CompletedEvent) error {
	p.enqueue(e.TransactionID, transaction.TopicCompleted, func(ctx context.Context) error {
		return p.next.PublishCompleted(ctx, e)
	})
	return nil
}

func (p *AsyncPublisher) enqueue(transactionID, topic string, publish func(context.Context) error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Warn("publisher closed, dropping event",
			zap.String("topic", topic),
			zap.String("transaction_id", transactionID),
		)
		return
	}
	select {
	case p.queue <- publish:
	default:
		p.logger.Warn("publish queue full, dropping event",
			zap.String("topic", topic),
			zap.String("transaction_id", transactionID),
		)
	}
}

// Close stops accepting events and waits for the queued ones to be published
func (p *AsyncPublisher) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	<-p.done
}
