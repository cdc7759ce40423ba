package api

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// Name of the codec registered with gRPC. Clients in this package always call
// with this content-subtype, so requests arrive as application/grpc+json.
const codecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return codecName
}
