package codec

import (
	"testing"

	"github.com/finnegan-hale/meidkv/internal/value"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []value.Value{
		value.Nil(),
		value.Bool(true),
		value.Bool(false),
		value.Int(-42),
		value.Uint(42),
		value.Float(3.5),
		value.Str("hello world"),
		value.Bytes([]byte{0, 1, 2, 255}),
		value.Seq([]value.Value{value.Int(1), value.Str("a"), value.Nil()}),
		value.Map(map[string]value.Value{
			"a": value.Int(1),
			"b": value.Str("two"),
			"c": value.Seq([]value.Value{value.Bool(true)}),
		}),
	}

	for _, in := range cases {
		enc, err := Encode(in)
		if err != nil {
			t.Fatalf("Encode(%v): %v", in, err)
		}
		out, err := Decode(enc)
		if err != nil {
			t.Fatalf("Decode(%x): %v", enc, err)
		}
		if !value.Equal(normalizeNumeric(in), normalizeNumeric(out)) {
			t.Errorf("round trip mismatch: in=%+v out=%+v", in, out)
		}
	}
}

// normalizeNumeric collapses the Int/Uint distinction for comparison: the
// wire format doesn't separately tag "signed small positive integer" vs
// "unsigned", so a round trip of value.Int(42) may legitimately decode as
// value.Uint(42). Tests only care that the numeric value survived.
func normalizeNumeric(v value.Value) value.Value {
	switch v.Kind {
	case value.KindInt:
		if v.Int >= 0 {
			return value.Uint(uint64(v.Int))
		}
		return v
	case value.KindSeq:
		out := make([]value.Value, len(v.Seq))
		for i, e := range v.Seq {
			out[i] = normalizeNumeric(e)
		}
		return value.Seq(out)
	case value.KindMap:
		out := make(map[string]value.Value, len(v.Map))
		for k, e := range v.Map {
			out[k] = normalizeNumeric(e)
		}
		return value.Map(out)
	default:
		return v
	}
}

func TestDecodeTruncatedInput(t *testing.T) {
	enc, err := Encode(value.Map(map[string]value.Value{"k": value.Str("value")}))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	_, err = Decode(enc[:len(enc)-2])
	if err == nil {
		t.Fatal("expected decode of truncated input to fail")
	}
	if _, ok := err.(*DecodeError); !ok {
		t.Errorf("expected *DecodeError, got %T: %v", err, err)
	}
}

func TestDigestStability(t *testing.T) {
	d1 := Digest([]byte("hello"))
	d2 := Digest([]byte("hello"))
	if DigestHex(d1) != DigestHex(d2) {
		t.Fatal("digest of identical input must be stable")
	}
	d3 := Digest([]byte("hellp"))
	if DigestHex(d1) == DigestHex(d3) {
		t.Fatal("digest of different input collided unexpectedly")
	}
	if len(d1) != DigestSize {
		t.Fatalf("expected digest length %d, got %d", DigestSize, len(d1))
	}
}
