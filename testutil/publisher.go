package testutil

import (
	"context"
	"sync"

	"transactions/transaction"
)

// Publisher records published events. Setting Err makes every publish fail after recording.
type Publisher struct {
	mu        sync.Mutex
	created   []*transaction.CreatedEvent
	completed []*transaction.CompletedEvent

	Err error
}

func (p *Publisher) PublishCreated(_ context.Context, e *transaction.CreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, e)
	return p.Err
}

func (p *Publisher) PublishCompleted(_ context.Context, e *transaction.CompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed = append(p.completed, e)
	return p.Err
}

func (p *Publisher) Created() []*transaction.CreatedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*transaction.CreatedEvent(nil), p.created...)
}

func (p *Publisher) Completed() []*transaction.CompletedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*transaction.CompletedEvent(nil), p.completed...)
}
