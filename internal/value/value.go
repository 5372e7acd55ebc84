package value

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Kind identifies which variant of Value is populated.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindStr
	KindBytes
	KindSeq
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindStr:
		return "str"
	case KindBytes:
		return "bytes"
	case KindSeq:
		return "seq"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is a tagged sum over every primitive, byte string, ordered sequence
// and string-keyed mapping the binary codec can round-trip. Only the field
// matching Kind is meaningful; the rest are zero.
type Value struct {
	Kind  Kind
	Bool  bool
	Int   int64
	Uint  uint64
	Float float64
	Str   string
	Bytes []byte
	Seq   []Value
	Map   map[string]Value
}

func Nil() Value                { return Value{Kind: KindNil} }
func Bool(b bool) Value          { return Value{Kind: KindBool, Bool: b} }
func Int(i int64) Value          { return Value{Kind: KindInt, Int: i} }
func Uint(u uint64) Value        { return Value{Kind: KindUint, Uint: u} }
func Float(f float64) Value      { return Value{Kind: KindFloat, Float: f} }
func Str(s string) Value         { return Value{Kind: KindStr, Str: s} }
func Bytes(b []byte) Value       { return Value{Kind: KindBytes, Bytes: b} }
func Seq(v []Value) Value        { return Value{Kind: KindSeq, Seq: v} }
func Map(m map[string]Value) Value {
	return Value{Kind: KindMap, Map: m}
}

func (v Value) IsNil() bool { return v.Kind == KindNil }

// ToNative converts a Value into the plain Go representation the MessagePack
// codec (and encoding/json, for JSON-mode shell responses) operate on
// directly: nil, bool, int64, uint64, float64, string, []byte, []interface{}
// and map[string]interface{}.
func (v Value) ToNative() interface{} {
	switch v.Kind {
	case KindNil:
		return nil
	case KindBool:
		return v.Bool
	case KindInt:
		return v.Int
	case KindUint:
		return v.Uint
	case KindFloat:
		return v.Float
	case KindStr:
		return v.Str
	case KindBytes:
		return v.Bytes
	case KindSeq:
		out := make([]interface{}, len(v.Seq))
		for i, e := range v.Seq {
			out[i] = e.ToNative()
		}
		return out
	case KindMap:
		out := make(map[string]interface{}, len(v.Map))
		for k, e := range v.Map {
			out[k] = e.ToNative()
		}
		return out
	default:
		return nil
	}
}

// FromNative builds a Value from the generic interface{} tree produced by a
// MessagePack or JSON decode. It accepts the handful of concrete Go types
// those decoders actually emit.
func FromNative(n interface{}) (Value, error) {
	switch t := n.(type) {
	case nil:
		return Nil(), nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return Uint(uint64(t)), nil
	case uint8:
		return Uint(uint64(t)), nil
	case uint16:
		return Uint(uint64(t)), nil
	case uint32:
		return Uint(uint64(t)), nil
	case uint64:
		return Uint(t), nil
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case string:
		return Str(t), nil
	case []byte:
		return Bytes(t), nil
	case json.Number:
		// encoding/json's UseNumber mode yields this instead of float64, so
		// whole numbers decoded from JSON keep their Int identity instead
		// of collapsing to Float.
		s := string(t)
		if !strings.ContainsAny(s, ".eE") {
			if i, err := t.Int64(); err == nil {
				return Int(i), nil
			}
		}
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("value: invalid json number %q", s)
		}
		return Float(f), nil
	case []interface{}:
		seq := make([]Value, len(t))
		for i, e := range t {
			cv, err := FromNative(e)
			if err != nil {
				return Value{}, err
			}
			seq[i] = cv
		}
		return Seq(seq), nil
	case map[string]interface{}:
		m := make(map[string]Value, len(t))
		for k, e := range t {
			cv, err := FromNative(e)
			if err != nil {
				return Value{}, err
			}
			m[k] = cv
		}
		return Map(m), nil
	case map[interface{}]interface{}:
		// some msgpack decoders yield interface{}-keyed maps for map headers
		// when the handle isn't told to prefer string keys.
		m := make(map[string]Value, len(t))
		for k, e := range t {
			ks, ok := k.(string)
			if !ok {
				ks = fmt.Sprintf("%v", k)
			}
			cv, err := FromNative(e)
			if err != nil {
				return Value{}, err
			}
			m[ks] = cv
		}
		return Map(m), nil
	default:
		return Value{}, fmt.Errorf("value: unsupported native type %T", n)
	}
}

// Equal reports whether two Values represent the same tree. Map comparison is
// order-independent; Seq comparison is order-dependent.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNil:
		return true
	case KindBool:
		return a.Bool == b.Bool
	case KindInt:
		return a.Int == b.Int
	case KindUint:
		return a.Uint == b.Uint
	case KindFloat:
		return a.Float == b.Float
	case KindStr:
		return a.Str == b.Str
	case KindBytes:
		if len(a.Bytes) != len(b.Bytes) {
			return false
		}
		for i := range a.Bytes {
			if a.Bytes[i] != b.Bytes[i] {
				return false
			}
		}
		return true
	case KindSeq:
		if len(a.Seq) != len(b.Seq) {
			return false
		}
		for i := range a.Seq {
			if !Equal(a.Seq[i], b.Seq[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(a.Map) != len(b.Map) {
			return false
		}
		for k, av := range a.Map {
			bv, ok := b.Map[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// SortedKeys returns a Map's keys in a deterministic order.
func (v Value) SortedKeys() []string {
	keys := make([]string, 0, len(v.Map))
	for k := range v.Map {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
