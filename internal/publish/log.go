package publish

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"transactions/transaction"
)

// Appender is a partitioned topic; *log.Topic implements it
type Appender interface {
	Append(key string, value []byte) (partition uint32, offset uint64, err error)
}

// LogPublisher appends events to the local commit-log topics
type LogPublisher struct {
	topics map[string]Appender
	logger *zap.Logger
}

var _ transaction.Publisher = (*LogPublisher)(nil)

// NewLogPublisher needs an Appender for both the created and completed topics
func NewLogPublisher(topics map[string]Appender, logger *zap.Logger) (*LogPublisher, error) {
	for _, name := range []string{transaction.TopicCreated, transaction.TopicCompleted} {
		if topics[name] == nil {
			return nil, fmt.Errorf("log publisher: missing topic %q", name)
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPublisher{topics: topics, logger: logger}, nil
}

func (p *LogPublisher) PublishCreated(_ context.Context, e *transaction.CreatedEvent) error {
	m, err := createdMessage(e)
	if err != nil {
		return err
	}
	return p.append(m)
}

func (p *LogPublisher) PublishCompleted(_ context.Context, e *transaction.CompletedEvent) error {
	m, err := completedMessage(e)
	if err != nil {
		return err
	}
	return p.append(m)
}

func (p *LogPublisher) append(m *message) error {
	partition, offset, err := p.topics[m.topic].Append(m.key, m.body)
	if err != nil {
		return fmt.Errorf("appending to %s: %w", m.topic, err)
	}
	p.logger.Debug("event appended",
		zap.String("topic", m.topic),
		zap.String("key", m.key),
		zap.Uint32("partition", partition),
		zap.Uint64("offset", offset),
	)
	return nil
}
