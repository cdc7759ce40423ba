package log_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	api "transactions/api/v1"
	"transactions/internal/log"
)

func newTopic(t *testing.T, dir string, partitions uint32) *log.Topic {
	t.Helper()
	topic, err := log.NewTopic(dir, log.TopicConfig{Name: "transaction-created", Partitions: partitions})
	require.NoError(t, err)
	return topic
}

func TestTopicKeepsKeyOrder(t *testing.T) {
	topic := newTopic(t, t.TempDir(), 4)
	defer topic.Close()
	require.Equal(t, uint32(4), topic.Partitions())

	keys := []string{"a", "b", "c", "d", "e"}
	for round := 0; round < 3; round++ {
		for _, key := range keys {
			partition, _, err := topic.Append(key, []byte(fmt.Sprintf("%s-%d", key, round)))
			require.NoError(t, err)
			require.Equal(t, topic.PartitionFor(key), partition)
		}
	}

	for p := uint32(0); p < topic.Partitions(); p++ {
		next, err := topic.NextOffset(p)
		require.NoError(t, err)

		seen := map[string]int{}
		for off := uint64(0); off < next; off++ {
			record, err := topic.Read(p, off)
			require.NoError(t, err)
			require.Equal(t, "transaction-created", record.Topic)
			require.Equal(t, p, topic.PartitionFor(record.Key))
			require.Equal(t, fmt.Sprintf("%s-%d", record.Key, seen[record.Key]), string(record.Value))
			seen[record.Key]++
		}
	}
}

func TestTopicReadErrors(t *testing.T) {
	topic := newTopic(t, t.TempDir(), 2)
	defer topic.Close()

	_, err := topic.Read(5, 0)
	require.IsType(t, api.ErrPartitionOutOfRange{}, err)

	_, err = topic.Read(1, 0)
	outOfRange, ok := err.(api.ErrOffsetOutOfRange)
	require.True(t, ok)
	require.Equal(t, uint32(1), outOfRange.Partition)
}

func TestTopicReopen(t *testing.T) {
	dir := t.TempDir()
	topic := newTopic(t, dir, 3)
	partition, offset, err := topic.Append("txn-1", []byte("first"))
	require.NoError(t, err)
	require.NoError(t, topic.Close())

	topic = newTopic(t, dir, 3)
	defer topic.Close()
	record, err := topic.Read(partition, offset)
	require.NoError(t, err)
	require.Equal(t, []byte("first"), record.Value)
}

func TestTopicWait(t *testing.T) {
	topic := newTopic(t, t.TempDir(), 1)
	defer topic.Close()

	done := make(chan error, 1)
	go func() {
		done <- topic.Wait(context.Background(), 0, 0)
	}()

	select {
	case <-done:
		t.Fatal("wait returned before anything was appended")
	case <-time.After(50 * time.Millisecond):
	}

	_, _, err := topic.Append("k", []byte("v"))
	require.NoError(t, err)
	require.NoError(t, <-done)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, topic.Wait(ctx, 0, 1), context.DeadlineExceeded)
}
