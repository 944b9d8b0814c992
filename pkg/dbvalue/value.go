package dbvalue

import (
	"bytes"
	"math"

	"github.com/agnesoft/agdb-go/pkg/dberr"
)

// Tag discriminates which variant of Value is live.
type Tag byte

// Variant tags, matching the wire descriptor's tag byte (spec §4.9).
const (
	TagBytes Tag = 1 + iota
	TagI64
	TagU64
	TagF64
	TagString
	TagVecI64
	TagVecU64
	TagVecF64
	TagVecString
)

func (t Tag) name() string {
	switch t {
	case TagBytes:
		return "bytes"
	case TagI64:
		return "i64"
	case TagU64:
		return "u64"
	case TagF64:
		return "f64"
	case TagString:
		return "string"
	case TagVecI64:
		return "vec<i64>"
	case TagVecU64:
		return "vec<u64>"
	case TagVecF64:
		return "vec<f64>"
	case TagVecString:
		return "vec<string>"
	default:
		return "unknown"
	}
}

// Value is the database's tagged value union: exactly one of its
// fields is meaningful at a time, selected by Tag.
type Value struct {
	tag    Tag
	bytes  []byte
	i64    int64
	u64    uint64
	f64    float64
	str    string
	vecI64 []int64
	vecU64 []uint64
	vecF64 []float64
	vecStr []string
}

// Tag reports which variant v holds.
func (v Value) Tag() Tag { return v.tag }

// FromBytes constructs a Bytes value.
func FromBytes(b []byte) Value { return Value{tag: TagBytes, bytes: b} }

// FromI64 constructs an I64 value.
func FromI64(n int64) Value { return Value{tag: TagI64, i64: n} }

// FromU64 constructs a U64 value.
func FromU64(n uint64) Value { return Value{tag: TagU64, u64: n} }

// FromF64 constructs an F64 value.
func FromF64(f float64) Value { return Value{tag: TagF64, f64: f} }

// FromString constructs a String value.
func FromString(s string) Value { return Value{tag: TagString, str: s} }

// FromVecI64 constructs a VecI64 value.
func FromVecI64(v []int64) Value { return Value{tag: TagVecI64, vecI64: v} }

// FromVecU64 constructs a VecU64 value.
func FromVecU64(v []uint64) Value { return Value{tag: TagVecU64, vecU64: v} }

// FromVecF64 constructs a VecF64 value.
func FromVecF64(v []float64) Value { return Value{tag: TagVecF64, vecF64: v} }

// FromVecString constructs a VecString value.
func FromVecString(v []string) Value { return Value{tag: TagVecString, vecStr: v} }

func typeError(from Tag, to string) error { return dberr.NewTypeMismatch(from.name(), to) }

// Bytes returns the Bytes payload, or an error if v is a different
// variant.
func (v Value) Bytes() ([]byte, error) {
	if v.tag != TagBytes {
		return nil, typeError(v.tag, "bytes")
	}
	return v.bytes, nil
}

// String returns the String payload, or an error if v is a different
// variant.
func (v Value) String() (string, error) {
	if v.tag != TagString {
		return "", typeError(v.tag, "string")
	}
	return v.str, nil
}

// VecI64 returns the VecI64 payload, or an error if v is a different
// variant.
func (v Value) VecI64() ([]int64, error) {
	if v.tag != TagVecI64 {
		return nil, typeError(v.tag, "vec<i64>")
	}
	return v.vecI64, nil
}

// VecU64 returns the VecU64 payload, or an error if v is a different
// variant.
func (v Value) VecU64() ([]uint64, error) {
	if v.tag != TagVecU64 {
		return nil, typeError(v.tag, "vec<u64>")
	}
	return v.vecU64, nil
}

// VecF64 returns the VecF64 payload, or an error if v is a different
// variant.
func (v Value) VecF64() ([]float64, error) {
	if v.tag != TagVecF64 {
		return nil, typeError(v.tag, "vec<f64>")
	}
	return v.vecF64, nil
}

// VecString returns the VecString payload, or an error if v is a
// different variant.
func (v Value) VecString() ([]string, error) {
	if v.tag != TagVecString {
		return nil, typeError(v.tag, "vec<string>")
	}
	return v.vecStr, nil
}

// ToI64 returns v as an int64, converting from U64 if it fits;
// I64 itself always succeeds. Any other variant is a TypeMismatch.
func (v Value) ToI64() (int64, error) {
	switch v.tag {
	case TagI64:
		return v.i64, nil
	case TagU64:
		if v.u64 > math.MaxInt64 {
			return 0, dberr.NewOutOfRange("u64 value %d does not fit in i64", v.u64)
		}
		return int64(v.u64), nil
	default:
		return 0, typeError(v.tag, "i64")
	}
}

// ToU64 returns v as a uint64, converting from I64 if it is
// non-negative; U64 itself always succeeds. Any other variant is a
// TypeMismatch.
func (v Value) ToU64() (uint64, error) {
	switch v.tag {
	case TagU64:
		return v.u64, nil
	case TagI64:
		if v.i64 < 0 {
			return 0, dberr.NewOutOfRange("i64 value %d does not fit in u64", v.i64)
		}
		return uint64(v.i64), nil
	default:
		return 0, typeError(v.tag, "u64")
	}
}

// ToF64 returns v as a float64, converting from I64 or U64 if the
// source fits in a 32-bit integer; F64 itself always succeeds. Any
// other variant, or an I64/U64 too wide for int32/uint32, fails.
func (v Value) ToF64() (float64, error) {
	switch v.tag {
	case TagF64:
		return v.f64, nil
	case TagI64:
		if v.i64 < math.MinInt32 || v.i64 > math.MaxInt32 {
			return 0, dberr.NewOutOfRange("i64 value %d does not fit in i32", v.i64)
		}
		return float64(v.i64), nil
	case TagU64:
		if v.u64 > math.MaxUint32 {
			return 0, dberr.NewOutOfRange("u64 value %d does not fit in u32", v.u64)
		}
		return float64(v.u64), nil
	default:
		return 0, typeError(v.tag, "f64")
	}
}

// Compare returns -1, 0 or 1 as v is less than, equal to, or greater
// than other, implementing the total order of spec §4.9: tag first
// (bytes < i64 < u64 < f64 < string < vec_i64 < vec_u64 < vec_f64 <
// vec_string), then the payload. F64 orders by total bit pattern so
// NaNs and signed zeros still compare consistently.
func (v Value) Compare(other Value) int {
	if v.tag != other.tag {
		if v.tag < other.tag {
			return -1
		}
		return 1
	}

	switch v.tag {
	case TagBytes:
		return bytes.Compare(v.bytes, other.bytes)
	case TagI64:
		return compareOrdered(v.i64, other.i64)
	case TagU64:
		return compareOrdered(v.u64, other.u64)
	case TagF64:
		return compareOrdered(f64TotalOrderKey(v.f64), f64TotalOrderKey(other.f64))
	case TagString:
		return compareOrdered(v.str, other.str)
	case TagVecI64:
		return compareSlices(v.vecI64, other.vecI64, compareOrdered[int64])
	case TagVecU64:
		return compareSlices(v.vecU64, other.vecU64, compareOrdered[uint64])
	case TagVecF64:
		return compareSlices(v.vecF64, other.vecF64, func(a, b float64) int {
			return compareOrdered(f64TotalOrderKey(a), f64TotalOrderKey(b))
		})
	case TagVecString:
		return compareSlices(v.vecStr, other.vecStr, compareOrdered[string])
	default:
		return 0
	}
}

func compareOrdered[T int64 | uint64 | string | int](a, b T) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func compareSlices[T any](a, b []T, cmp func(T, T) int) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c := cmp(a[i], b[i]); c != 0 {
			return c
		}
	}
	return compareOrdered(len(a), len(b))
}

// f64TotalOrderKey maps a float64 to a uint64 whose natural ordering
// matches IEEE-754 total order: flip the sign bit for non-negatives,
// invert every bit for negatives, so that -Inf < ... < -0 < +0 < ... <
// +Inf and NaNs sort consistently at the ends by sign.
func f64TotalOrderKey(f float64) uint64 {
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		return ^bits
	}
	return bits | (1 << 63)
}
