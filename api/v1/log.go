package api

import (
	"github.com/gogo/protobuf/proto"
)

// Record is one entry of a commit-log partition.
// It is persisted with protobuf encoding and served over gRPC as JSON.
type Record struct {
	Value  []byte `protobuf:"bytes,1,opt,name=value,proto3" json:"value,omitempty"`
	Offset uint64 `protobuf:"varint,2,opt,name=offset,proto3" json:"offset"`
	Key    string `protobuf:"bytes,3,opt,name=key,proto3" json:"key,omitempty"`
	Topic  string `protobuf:"bytes,4,opt,name=topic,proto3" json:"topic,omitempty"`
}

func (m *Record) Reset()         { *m = Record{} }
func (m *Record) String() string { return proto.CompactTextString(m) }
func (*Record) ProtoMessage()    {}

// ConsumeRequest reads from one partition of a topic, starting at Offset
type ConsumeRequest struct {
	Topic     string `json:"topic"`
	Partition uint32 `json:"partition"`
	Offset    uint64 `json:"offset"`
}

type ConsumeResponse struct {
	Record *Record `json:"record"`
}
