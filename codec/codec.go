// Package codec converts event payloads and service messages to and from bytes.
package codec

import "fmt"

// Codec encodes/decodes values V to []byte.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// ByName returns a Codec for dynamic values, as used for event payloads.
// Known names: "msgpack" (default for ""), "cbor", "json", "protobuf".
func ByName(name string) (Codec[any], error) {
	switch name {
	case "", "msgpack":
		return Msgpack[any]{}, nil
	case "cbor":
		return NewCBOR[any](false)
	case "json":
		return JSON[any]{}, nil
	case "protobuf":
		return ProtoValue{}, nil
	default:
		return nil, fmt.Errorf("codec: unknown codec %q", name)
	}
}
