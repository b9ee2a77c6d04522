package zcl

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ZCL data type IDs
const (
	TypeNoData   uint8 = 0x00
	TypeBool     uint8 = 0x10
	TypeBitmap8  uint8 = 0x18
	TypeBitmap16 uint8 = 0x19
	TypeUint8    uint8 = 0x20
	TypeUint16   uint8 = 0x21
	TypeUint24   uint8 = 0x22
	TypeUint32   uint8 = 0x23
	TypeUint40   uint8 = 0x24
	TypeInt8     uint8 = 0x28
	TypeInt16    uint8 = 0x29
	TypeInt32    uint8 = 0x2B
	TypeEnum8    uint8 = 0x30
	TypeEnum16   uint8 = 0x31
	TypeFloat32  uint8 = 0x39
	TypeOctetStr uint8 = 0x41
	TypeCharStr  uint8 = 0x42
	TypeEUI64    uint8 = 0xF0
)

var typeNames = map[uint8]string{
	TypeNoData:   "nodata",
	TypeBool:     "bool",
	TypeBitmap8:  "map8",
	TypeBitmap16: "map16",
	TypeUint8:    "uint8",
	TypeUint16:   "uint16",
	TypeUint24:   "uint24",
	TypeUint32:   "uint32",
	TypeUint40:   "uint40",
	TypeInt8:     "int8",
	TypeInt16:    "int16",
	TypeInt32:    "int32",
	TypeEnum8:    "enum8",
	TypeEnum16:   "enum16",
	TypeFloat32:  "float32",
	TypeOctetStr: "octstr",
	TypeCharStr:  "string",
	TypeEUI64:    "EUI64",
}

// TypeName returns a human-readable name for a ZCL type.
func TypeName(typeID uint8) string {
	if n, ok := typeNames[typeID]; ok {
		return n
	}
	return fmt.Sprintf("0x%02X", typeID)
}

// TypeSize returns the fixed size in bytes of a ZCL type, or -1 for
// length-prefixed and unsupported types.
func TypeSize(typeID uint8) int {
	switch typeID {
	case TypeNoData:
		return 0
	case TypeBool, TypeUint8, TypeInt8, TypeEnum8, TypeBitmap8:
		return 1
	case TypeUint16, TypeInt16, TypeEnum16, TypeBitmap16:
		return 2
	case TypeUint24:
		return 3
	case TypeUint32, TypeInt32, TypeFloat32:
		return 4
	case TypeUint40:
		return 5
	case TypeEUI64:
		return 8
	default:
		return -1
	}
}

// DecodeValue decodes a ZCL typed value from raw bytes, returning the Go value
// and the number of bytes consumed.
func DecodeValue(typeID uint8, data []byte) (any, int, error) {
	if typeID == TypeOctetStr || typeID == TypeCharStr {
		return decodeString(typeID, data)
	}

	size := TypeSize(typeID)
	switch {
	case size == 0:
		return nil, 0, nil
	case size < 0:
		return nil, 0, fmt.Errorf("zcl: unsupported type 0x%02X", typeID)
	case len(data) < size:
		return nil, 0, fmt.Errorf("zcl: not enough data for type 0x%02X: need %d, have %d", typeID, size, len(data))
	}

	switch typeID {
	case TypeBool:
		return data[0] != 0, 1, nil
	case TypeUint8, TypeEnum8, TypeBitmap8:
		return data[0], 1, nil
	case TypeUint16, TypeEnum16, TypeBitmap16:
		return binary.LittleEndian.Uint16(data), 2, nil
	case TypeUint24:
		return uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16, 3, nil
	case TypeUint32:
		return binary.LittleEndian.Uint32(data), 4, nil
	case TypeUint40:
		var v uint64
		for i := 4; i >= 0; i-- {
			v = v<<8 | uint64(data[i])
		}
		return v, 5, nil
	case TypeInt8:
		return int8(data[0]), 1, nil
	case TypeInt16:
		return int16(binary.LittleEndian.Uint16(data)), 2, nil
	case TypeInt32:
		return int32(binary.LittleEndian.Uint32(data)), 4, nil
	case TypeFloat32:
		return math.Float32frombits(binary.LittleEndian.Uint32(data)), 4, nil
	case TypeEUI64:
		var addr [8]byte
		copy(addr[:], data[:8])
		return addr, 8, nil
	}
	return nil, 0, fmt.Errorf("zcl: unsupported type 0x%02X", typeID)
}

func decodeString(typeID uint8, data []byte) (any, int, error) {
	if len(data) < 1 {
		return nil, 0, fmt.Errorf("zcl: no length byte for string type")
	}
	length := int(data[0])
	if length == 0xFF {
		return nil, 1, nil
	}
	if len(data) < 1+length {
		return nil, 0, fmt.Errorf("zcl: string truncated: need %d, have %d", length, len(data)-1)
	}
	if typeID == TypeCharStr {
		return string(data[1 : 1+length]), 1 + length, nil
	}
	b := make([]byte, length)
	copy(b, data[1:1+length])
	return b, 1 + length, nil
}

// EncodeValue encodes a Go value into ZCL wire format. It covers the types
// used in command payloads.
func EncodeValue(typeID uint8, val any) ([]byte, error) {
	switch typeID {
	case TypeBool:
		v, ok := val.(bool)
		if !ok {
			return nil, fmt.Errorf("zcl: cannot convert %T to bool", val)
		}
		if v {
			return []byte{1}, nil
		}
		return []byte{0}, nil

	case TypeUint8, TypeEnum8, TypeBitmap8, TypeUint16, TypeEnum16, TypeBitmap16, TypeUint32:
		size := TypeSize(typeID)
		f, ok := Numeric(val)
		if !ok || f < 0 || f != math.Trunc(f) {
			return nil, fmt.Errorf("zcl: cannot convert %v (%T) to %s", val, val, TypeName(typeID))
		}
		if f > float64(uint64(1)<<(8*size)-1) {
			return nil, fmt.Errorf("zcl: value %v overflows %s", val, TypeName(typeID))
		}
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, uint64(f))
		return buf[:size], nil

	case TypeInt8, TypeInt16, TypeInt32:
		size := TypeSize(typeID)
		f, ok := Numeric(val)
		if !ok || f != math.Trunc(f) {
			return nil, fmt.Errorf("zcl: cannot convert %v (%T) to %s", val, val, TypeName(typeID))
		}
		limit := float64(int64(1) << (8*size - 1))
		if f < -limit || f >= limit {
			return nil, fmt.Errorf("zcl: value %v overflows %s", val, TypeName(typeID))
		}
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, uint64(int64(f)))
		return buf[:size], nil

	case TypeCharStr:
		s, ok := val.(string)
		if !ok {
			return nil, fmt.Errorf("zcl: cannot convert %T to string", val)
		}
		if len(s) > 254 {
			return nil, fmt.Errorf("zcl: string too long for CharStr: %d (max 254)", len(s))
		}
		return append([]byte{uint8(len(s))}, s...), nil
	}

	return nil, fmt.Errorf("zcl: encode not implemented for type 0x%02X", typeID)
}

// Numeric converts any Go numeric value (including the float64 produced by
// JSON decoding) to float64.
func Numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
