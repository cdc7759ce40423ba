package api

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrOffsetOutOfRange is returned when reading past the end of a partition
type ErrOffsetOutOfRange struct {
	Partition uint32
	Offset    uint64
}

func (e ErrOffsetOutOfRange) GRPCStatus() *status.Status {
	return status.New(
		codes.NotFound,
		fmt.Sprintf("offset out of range: %d/%d", e.Partition, e.Offset),
	)
}

func (e ErrOffsetOutOfRange) Error() string {
	return e.GRPCStatus().Err().Error()
}

// ErrPartitionOutOfRange is returned for a partition the topic doesn't have
type ErrPartitionOutOfRange struct {
	Partition uint32
}

func (e ErrPartitionOutOfRange) GRPCStatus() *status.Status {
	return status.New(
		codes.InvalidArgument,
		fmt.Sprintf("partition out of range: %d", e.Partition),
	)
}

func (e ErrPartitionOutOfRange) Error() string {
	return e.GRPCStatus().Err().Error()
}

// ErrUnknownTopic is returned when consuming a topic the server doesn't host
type ErrUnknownTopic struct {
	Topic string
}

func (e ErrUnknownTopic) GRPCStatus() *status.Status {
	return status.New(codes.NotFound, fmt.Sprintf("unknown topic: %q", e.Topic))
}

func (e ErrUnknownTopic) Error() string {
	return e.GRPCStatus().Err().Error()
}
