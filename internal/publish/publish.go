// Package publish delivers transaction lifecycle events to the event bus.
package publish

import (
	"context"
	"encoding/json"
	"errors"

	"transactions/transaction"
)

// Multi hands every event to each publisher and joins their errors
type Multi []transaction.Publisher

var _ transaction.Publisher = Multi(nil)

func (m Multi) PublishCreated(ctx context.Context, e *transaction.CreatedEvent) error {
	var errs []error
	for _, p := range m {
		errs = append(errs, p.PublishCreated(ctx, e))
	}
	return errors.Join(errs...)
}

func (m Multi) PublishCompleted(ctx context.Context, e *transaction.CompletedEvent) error {
	var errs []error
	for _, p := range m {
		errs = append(errs, p.PublishCompleted(ctx, e))
	}
	return errors.Join(errs...)
}

// message is what every bus publisher sends: a topic, a partitioning key and a JSON body
type message struct {
	topic string
	key   string
	body  []byte
}

func createdMessage(e *transaction.CreatedEvent) (*message, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return &message{topic: transaction.TopicCreated, key: e.Key(), body: body}, nil
}

func completedMessage(e *transaction.CompletedEvent) (*message, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return &message{topic: transaction.TopicCompleted, key: e.Key(), body: body}, nil
}
