// Package codec registers a JSON grpc.Codec so internal gRPC clients can be
// hand-rolled against a protobuf-shaped contract without a protoc build step.
// Grounded on the teacher's google.golang.org/grpc dependency: the wire
// contract (service name, method names, message shape) is what matters here,
// not the specific serialization on the wire.
package codec

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// Name is the codec name passed via grpc.CallContentSubtype / registered
// against encoding.RegisterCodec.
const Name = "json"

func init() {
	encoding.RegisterCodec(codec{})
}

type codec struct{}

func (codec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (codec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("codec: unmarshal: %w", err)
	}
	return nil
}

func (codec) Name() string { return Name }
