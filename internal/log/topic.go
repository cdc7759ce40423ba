package log

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"path/filepath"
	"strconv"
	"sync"

	api "transactions/api/v1"
)

// Topic spreads records over a fixed set of partitions by key,
// so records sharing a key keep their relative order.
type Topic struct {
	Name       string
	partitions []*Log

	mu sync.Mutex
	// closed and replaced on every append to wake waiting readers
	appended chan struct{}
}

// NewTopic opens or creates the topic's partitions under dir/<name>/<partition>
func NewTopic(dir string, c TopicConfig) (*Topic, error) {
	if c.Name == "" {
		return nil, errors.New("topic: name is required")
	}
	if c.Partitions == 0 {
		c.Partitions = 1
	}

	t := &Topic{
		Name:     c.Name,
		appended: make(chan struct{}),
	}
	for p := uint32(0); p < c.Partitions; p++ {
		l, err := NewLog(filepath.Join(dir, c.Name, strconv.FormatUint(uint64(p), 10)), c.Log)
		if err != nil {
			_ = t.Close()
			return nil, fmt.Errorf("opening %s partition %d: %w", c.Name, p, err)
		}
		t.partitions = append(t.partitions, l)
	}

	return t, nil
}

func (t *Topic) Partitions() uint32 {
	return uint32(len(t.partitions))
}

// PartitionFor hashes key onto a partition
func (t *Topic) PartitionFor(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % t.Partitions()
}

// Append writes value to the key's partition and returns where it landed
func (t *Topic) Append(key string, value []byte) (partition uint32, offset uint64, err error) {
	partition = t.PartitionFor(key)
	offset, err = t.partitions[partition].Append(&api.Record{
		Value: value,
		Key:   key,
		Topic: t.Name,
	})
	if err != nil {
		return 0, 0, err
	}

	t.mu.Lock()
	close(t.appended)
	t.appended = make(chan struct{})
	t.mu.Unlock()

	return partition, offset, nil
}

func (t *Topic) Read(partition uint32, offset uint64) (*api.Record, error) {
	l, err := t.partition(partition)
	if err != nil {
		return nil, err
	}

	record, err := l.Read(offset)
	var outOfRange api.ErrOffsetOutOfRange
	if errors.As(err, &outOfRange) {
		outOfRange.Partition = partition
		return nil, outOfRange
	}
	return record, err
}

// Wait blocks until the partition holds offset or ctx is done
func (t *Topic) Wait(ctx context.Context, partition uint32, offset uint64) error {
	l, err := t.partition(partition)
	if err != nil {
		return err
	}

	for {
		t.mu.Lock()
		appended := t.appended
		t.mu.Unlock()

		if offset < l.NextOffset() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-appended:
		}
	}
}

// NextOffset is the offset the partition's next record will get
func (t *Topic) NextOffset(partition uint32) (uint64, error) {
	l, err := t.partition(partition)
	if err != nil {
		return 0, err
	}
	return l.NextOffset(), nil
}

func (t *Topic) partition(partition uint32) (*Log, error) {
	if partition >= t.Partitions() {
		return nil, api.ErrPartitionOutOfRange{Partition: partition}
	}
	return t.partitions[partition], nil
}

func (t *Topic) Close() error {
	for _, l := range t.partitions {
		if err := l.Close(); err != nil {
			return err
		}
	}
	return nil
}
