// Package rpcjson registers a JSON wire codec for google.golang.org/grpc
// under the content-subtype "json", letting the server and its clients
// exchange plain Go structs tagged with `json:"..."` instead of
// protobuf-generated messages. grpc-go negotiates the wire codec per RPC
// from the "application/grpc+<subtype>" content-type, which is exactly
// the extension point encoding.RegisterCodec exists for — this is not a
// homegrown substitute for protobuf, it is the documented mechanism
// grpc-go ships for exactly this purpose.
//
// Importing this package for its side effect (the init-time
// RegisterCodec call) is enough to make every grpc.Server and
// grpc.ClientConn in the process capable of negotiating "json" as long
// as the RPC sets grpc.CallContentSubtype(Name) (client side) or the
// peer requests it (server side, automatic once registered).
package rpcjson

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// Name is the content-subtype this codec registers under. A client
// must call grpc.CallContentSubtype(Name) to request it explicitly;
// servers accept whatever subtype the client negotiated.
const Name = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec implements encoding.Codec (formerly encoding.Codec in
// google.golang.org/grpc/encoding) by delegating to encoding/json.
// Unlike the protobuf codec it has no concept of a shared message
// registry: any type with exported fields and JSON tags round-trips.
type jsonCodec struct{}

func (jsonCodec) Name() string {
	return Name
}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("rpcjson: marshal %T: %w", v, err)
	}
	return data, nil
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("rpcjson: unmarshal into %T: %w", v, err)
	}
	return nil
}
