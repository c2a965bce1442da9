// Package rpcwire provides the gRPC codec shared by the store client/server
// and the PDC client/server. spec.md explicitly scopes the wire format out
// (§1 Non-goals: "defining the wire format"), so this module does not carry
// a protobuf schema; it registers a small gob-based codec with grpc's own
// encoding registry, which is the same extension point
// google.golang.org/grpc itself uses to register "proto". This lets the
// rest of the module use real grpc.ClientConn/grpc.Server wiring without
// inventing a protobuf descriptor set.
package rpcwire

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// Name is the codec name passed to grpc.CallContentSubtype / registered
// against encoding.RegisterCodec.
const Name = "kvclient-gob"

func init() {
	encoding.RegisterCodec(codec{})
}

type codec struct{}

func (codec) Name() string {
	return Name
}

func (codec) Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("rpcwire: marshal: %w", err)
	}
	return buf.Bytes(), nil
}

func (codec) Unmarshal(data []byte, v interface{}) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("rpcwire: unmarshal: %w", err)
	}
	return nil
}
