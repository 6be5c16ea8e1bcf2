package api

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodec lets the management service carry plain Go structs (api/types/v1)
// over grpc without protoc-generated proto.Message types: the teacher's only
// gRPC precedent is a client consuming a remote protoc-generated package that
// isn't available to regenerate here, so this server swaps grpc's codec
// instead of hand-rolling proto wire encoding (documented in DESIGN.md).
// Registering under the name "proto" overrides grpc-go's built-in codec,
// since encoding.RegisterCodec keys by Name() and this package's init runs
// after grpc's.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return "proto" }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
