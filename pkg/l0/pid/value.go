package pid

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the wire type of the 4-byte value slot.
type Kind byte

// Value kinds
const (
	// KindNone means no argument or no result. The slot content is
	// don't-care on the device. NoValue sends zeros, a decoded value keeps
	// the received filler so the frame re-encodes with the same checksum.
	KindNone Kind = iota
	KindInt32
	KindUInt32
	KindFloat32
)

var kindNames = [...]string{
	KindNone:    "none",
	KindInt32:   "int32",
	KindUInt32:  "uint32",
	KindFloat32: "float32",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", byte(k))
}

// IsValid indicates k is one of the defined kinds.
func (k Kind) IsValid() bool {
	return int(k) < len(kindNames)
}

// ParseKind parses the name of a kind.
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, n := range kindNames {
		if n == name {
			return Kind(k), nil
		}
	}
	switch name {
	case "", "void", "-":
		return KindNone, nil
	case "int", "i32":
		return KindInt32, nil
	case "uint", "u32":
		return KindUInt32, nil
	case "float", "f32":
		return KindFloat32, nil
	}
	return KindNone, fmt.Errorf("unknown value kind %q", name)
}

// Value is the tagged content of the value slot.
// The zero Value is NoValue.
type Value struct {
	kind Kind
	bits uint32
}

// NoValue is the value of KindNone.
var NoValue = Value{}

// Int32 creates an Int32 value.
func Int32(v int32) Value {
	return Value{kind: KindInt32, bits: uint32(v)}
}

// UInt32 creates an UInt32 value.
func UInt32(v uint32) Value {
	return Value{kind: KindUInt32, bits: v}
}

// Float32 creates a Float32 value.
func Float32(v float32) Value {
	return Value{kind: KindFloat32, bits: math.Float32bits(v)}
}

// Kind returns the tag.
func (v Value) Kind() Kind {
	return v.kind
}

// Int32 returns the content as int32.
func (v Value) Int32() int32 {
	return int32(v.bits)
}

// UInt32 returns the content as uint32.
func (v Value) UInt32() uint32 {
	return v.bits
}

// Float32 returns the content as float32.
func (v Value) Float32() float32 {
	return math.Float32frombits(v.bits)
}

// Float64 converts the content into float64 according to the kind.
// NoValue converts to 0.
func (v Value) Float64() float64 {
	switch v.kind {
	case KindInt32:
		return float64(v.Int32())
	case KindUInt32:
		return float64(v.bits)
	case KindFloat32:
		return float64(v.Float32())
	}
	return 0
}

// Interface returns the content as int32, uint32, float32 or nil.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindInt32:
		return v.Int32()
	case KindUInt32:
		return v.bits
	case KindFloat32:
		return v.Float32()
	}
	return nil
}

// String implements fmt.Stringer.
func (v Value) String() string {
	switch v.kind {
	case KindInt32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case KindUInt32:
		return strconv.FormatUint(uint64(v.bits), 10)
	case KindFloat32:
		return strconv.FormatFloat(float64(v.Float32()), 'g', -1, 32)
	}
	return "-"
}

func (v Value) put(b []byte) {
	binary.BigEndian.PutUint32(b, v.bits)
}

func valueFrom(k Kind, b []byte) Value {
	if !k.IsValid() {
		return NoValue
	}
	return Value{kind: k, bits: binary.BigEndian.Uint32(b)}
}

// CoerceValue converts v into a Value of kind k.
//
// A Value, or one of the sized Go types int32, uint32 and float32, is
// already tagged and must match k exactly, otherwise ErrTypeMismatch.
// nil is a tagged NoValue. Other Go numbers are bare and converted to k;
// floats are truncated toward zero for integer kinds. ErrValueRange is
// returned if the conversion can't represent the number.
func CoerceValue(k Kind, v interface{}) (Value, error) {
	var tagged Value
	switch n := v.(type) {
	case Value:
		tagged = n
	case nil:
		tagged = NoValue
	case int32:
		tagged = Int32(n)
	case uint32:
		tagged = UInt32(n)
	case float32:
		tagged = Float32(n)
	case int:
		return coerceInt(k, int64(n))
	case int8:
		return coerceInt(k, int64(n))
	case int16:
		return coerceInt(k, int64(n))
	case int64:
		return coerceInt(k, n)
	case uint:
		return coerceUint(k, uint64(n))
	case uint8:
		return coerceUint(k, uint64(n))
	case uint16:
		return coerceUint(k, uint64(n))
	case uint64:
		return coerceUint(k, n)
	case float64:
		return coerceFloat(k, n)
	default:
		return NoValue, frameErr(ErrTypeMismatch, "value", nil, "unsupported Go type %T, %s expected", v, k)
	}
	if tagged.kind != k {
		return NoValue, frameErr(ErrTypeMismatch, "value", nil, "given %s but %s expected", tagged.kind, k)
	}
	return tagged, nil
}

func coerceInt(k Kind, n int64) (Value, error) {
	switch k {
	case KindNone:
		return NoValue, nil
	case KindInt32:
		if n < math.MinInt32 || n > math.MaxInt32 {
			return NoValue, frameErr(ErrValueRange, "value", nil, "%d overflows %s", n, k)
		}
		return Int32(int32(n)), nil
	case KindUInt32:
		if n < 0 || n > math.MaxUint32 {
			return NoValue, frameErr(ErrValueRange, "value", nil, "%d overflows %s", n, k)
		}
		return UInt32(uint32(n)), nil
	case KindFloat32:
		return Float32(float32(n)), nil
	}
	return NoValue, frameErr(ErrTypeMismatch, "value", nil, "invalid kind %s", k)
}

func coerceUint(k Kind, n uint64) (Value, error) {
	if n > math.MaxInt64 {
		if k == KindFloat32 {
			return Float32(float32(n)), nil
		}
		if k == KindNone {
			return NoValue, nil
		}
		return NoValue, frameErr(ErrValueRange, "value", nil, "%d overflows %s", n, k)
	}
	return coerceInt(k, int64(n))
}

func coerceFloat(k Kind, f float64) (Value, error) {
	switch k {
	case KindNone:
		return NoValue, nil
	case KindFloat32:
		f32 := float32(f)
		if math.IsInf(float64(f32), 0) && !math.IsInf(f, 0) {
			return NoValue, frameErr(ErrValueRange, "value", nil, "%g overflows %s", f, k)
		}
		return Float32(f32), nil
	case KindInt32, KindUInt32:
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return NoValue, frameErr(ErrValueRange, "value", nil, "%g is not representable as %s", f, k)
		}
		t := math.Trunc(f)
		if t < math.MinInt32 || t > math.MaxUint32 {
			return NoValue, frameErr(ErrValueRange, "value", nil, "%g overflows %s", f, k)
		}
		return coerceInt(k, int64(t))
	}
	return NoValue, frameErr(ErrTypeMismatch, "value", nil, "invalid kind %s", k)
}

// ParseValue parses text into a Value of kind k.
// Any text is accepted for KindNone.
func ParseValue(k Kind, text string) (Value, error) {
	text = strings.TrimSpace(text)
	switch k {
	case KindNone:
		return NoValue, nil
	case KindInt32:
		n, err := strconv.ParseInt(text, 0, 32)
		if err != nil {
			return NoValue, frameErr(ErrValueRange, "value", nil, "%v", err)
		}
		return Int32(int32(n)), nil
	case KindUInt32:
		n, err := strconv.ParseUint(text, 0, 32)
		if err != nil {
			return NoValue, frameErr(ErrValueRange, "value", nil, "%v", err)
		}
		return UInt32(uint32(n)), nil
	case KindFloat32:
		f, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return NoValue, frameErr(ErrValueRange, "value", nil, "%v", err)
		}
		return Float32(float32(f)), nil
	}
	return NoValue, frameErr(ErrTypeMismatch, "value", nil, "invalid kind %s", k)
}
