package codec

import (
	"bytes"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-msgpack/codec"

	"github.com/finnegan-hale/meidkv/internal/value"
)

// handle is shared across every Encode/Decode call. The concrete
// codec.MsgpackHandle type from hashicorp/go-msgpack is safe for concurrent
// use once configured, so one package-level instance is enough, the same
// "construct once, reuse" pattern the rpc/serializer implementations follow
// (rpc/serializer/binaryImpl.go has no per-call state either).
var handle = newHandle()

func newHandle() *codec.MsgpackHandle {
	h := &codec.MsgpackHandle{}
	// Keep MessagePack "bin" payloads as []byte and "str" payloads as
	// string on decode, so Value.FromNative can tell Bytes and Str apart
	// without guessing.
	h.RawToString = true
	h.WriteExt = true
	return h
}

// DecodeError wraps a MessagePack decode failure. Callers that need to tell
// "malformed input" apart from other I/O errors can match on this type.
type DecodeError struct {
	cause error
}

func (e *DecodeError) Error() string { return "codec: decode failed: " + e.cause.Error() }
func (e *DecodeError) Unwrap() error { return e.cause }

// Encode serializes a Value tree to its MessagePack wire representation.
func Encode(v value.Value) ([]byte, error) {
	var buf bytes.Buffer
	enc := codec.NewEncoder(&buf, handle)
	if err := enc.Encode(v.ToNative()); err != nil {
		return nil, errors.Wrap(err, "codec: encode failed")
	}
	return buf.Bytes(), nil
}

// Decode parses a MessagePack byte stream back into a Value tree. Truncated
// or malformed input surfaces as a *DecodeError.
func Decode(data []byte) (value.Value, error) {
	var native interface{}
	dec := codec.NewDecoder(bytes.NewReader(data), handle)
	if err := dec.Decode(&native); err != nil {
		return value.Value{}, &DecodeError{cause: err}
	}
	v, err := value.FromNative(native)
	if err != nil {
		return value.Value{}, &DecodeError{cause: err}
	}
	return v, nil
}

// EncodedSize returns the byte length value would occupy when encoded,
// without retaining the buffer - used by the engine's per-entry and
// memory-cap checks so a rejected write never mutates state.
func EncodedSize(v value.Value) (int, error) {
	b, err := Encode(v)
	if err != nil {
		return 0, err
	}
	return len(b), nil
}
