package rpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodec implements encoding.Codec by marshaling messages as JSON rather
// than protobuf wire format. Every message type in this package is a plain
// Go struct, not a proto.Message, so this is the only codec that can ever
// work for them.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return codecName
}

const codecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
