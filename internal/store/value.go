package store

import "fmt"

// Value kinds.
const (
	KindBool   = "bool"
	KindUint   = "uint"
	KindInt    = "int"
	KindFloat  = "float"
	KindString = "string"
	KindBytes  = "bytes"
)

// Value is a cached attribute value tagged with its kind and, for numbers,
// its bit width, so it decodes to the Go type it was stored as. A zero
// width is 64 bits; int and uint come back as int64 and uint64.
type Value struct {
	Kind  string  `json:"kind"`
	Bits  uint8   `json:"bits,omitempty"`
	Bool  bool    `json:"bool,omitempty"`
	Uint  uint64  `json:"uint,omitempty"`
	Int   int64   `json:"int,omitempty"`
	Float float64 `json:"float,omitempty"`
	Str   string  `json:"str,omitempty"`
	Bytes []byte  `json:"bytes,omitempty"`
}

// NewValue wraps v. Values of other types are rejected.
func NewValue(v any) (Value, error) {
	switch x := v.(type) {
	case bool:
		return Value{Kind: KindBool, Bool: x}, nil
	case uint8:
		return Value{Kind: KindUint, Bits: 8, Uint: uint64(x)}, nil
	case uint16:
		return Value{Kind: KindUint, Bits: 16, Uint: uint64(x)}, nil
	case uint32:
		return Value{Kind: KindUint, Bits: 32, Uint: uint64(x)}, nil
	case uint64:
		return Value{Kind: KindUint, Uint: x}, nil
	case uint:
		return Value{Kind: KindUint, Uint: uint64(x)}, nil
	case int8:
		return Value{Kind: KindInt, Bits: 8, Int: int64(x)}, nil
	case int16:
		return Value{Kind: KindInt, Bits: 16, Int: int64(x)}, nil
	case int32:
		return Value{Kind: KindInt, Bits: 32, Int: int64(x)}, nil
	case int64:
		return Value{Kind: KindInt, Int: x}, nil
	case int:
		return Value{Kind: KindInt, Int: int64(x)}, nil
	case float32:
		return Value{Kind: KindFloat, Bits: 32, Float: float64(x)}, nil
	case float64:
		return Value{Kind: KindFloat, Float: x}, nil
	case string:
		return Value{Kind: KindString, Str: x}, nil
	case []byte:
		return Value{Kind: KindBytes, Bytes: append([]byte(nil), x...)}, nil
	default:
		return Value{}, fmt.Errorf("unsupported attribute value %T", v)
	}
}

// Any returns the wrapped value, or nil for an unknown kind.
func (v Value) Any() any {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindUint:
		switch v.Bits {
		case 8:
			return uint8(v.Uint)
		case 16:
			return uint16(v.Uint)
		case 32:
			return uint32(v.Uint)
		}
		return v.Uint
	case KindInt:
		switch v.Bits {
		case 8:
			return int8(v.Int)
		case 16:
			return int16(v.Int)
		case 32:
			return int32(v.Int)
		}
		return v.Int
	case KindFloat:
		if v.Bits == 32 {
			return float32(v.Float)
		}
		return v.Float
	case KindString:
		return v.Str
	case KindBytes:
		if v.Bytes == nil {
			return []byte{}
		}
		return v.Bytes
	}
	return nil
}
