package codec

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Protobuf encodes a concrete message type T.
type Protobuf[T proto.Message] struct {
	new func() T // e.g. func() *mypb.Event { return &mypb.Event{} }
}

func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{new: ctor}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	return proto.Marshal(v)
}

func (c Protobuf[T]) Decode(b []byte) (T, error) {
	m := c.new()
	err := proto.Unmarshal(b, m)
	return m, err
}

// ProtoValue carries dynamic values as google.protobuf.Value, so publishers in
// other languages can emit event data without a shared schema.
// Only JSON-like shapes are supported (nil, bool, numbers, string, []any, map[string]any).
type ProtoValue struct{}

var inner = NewProtobuf(func() *structpb.Value { return &structpb.Value{} })

func (ProtoValue) Encode(v any) ([]byte, error) {
	pv, err := structpb.NewValue(v)
	if err != nil {
		return nil, err
	}
	return inner.Encode(pv)
}

func (ProtoValue) Decode(b []byte) (any, error) {
	pv, err := inner.Decode(b)
	if err != nil {
		return nil, err
	}
	return pv.AsInterface(), nil
}
