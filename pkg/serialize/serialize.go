// Package serialize implements the bit-exact little-endian encode/decode
// rules every stored type in the database follows. The round-trip law
// Deserialize(Serialize(x)) == x holds for every type this package handles;
// tests in serialize_test.go exercise it directly.
package serialize

import (
	"encoding/binary"
	"math"

	"github.com/agnesoft/agdb-go/pkg/dberr"
)

// Fixed encoded sizes, in bytes, of the scalar types this package handles.
// Strings and vectors have no fixed size: their encoding is length-prefixed.
const (
	SizeI64  = 8
	SizeU64  = 8
	SizeF64  = 8
	SizeU8   = 1
	SizeBool = 1
)

// PutI64 appends the little-endian encoding of v to dst.
func PutI64(dst []byte, v int64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	return append(dst, b[:]...)
}

// PutU64 appends the little-endian encoding of v to dst.
func PutU64(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// PutF64 appends the little-endian bit-pattern encoding of v to dst.
func PutF64(dst []byte, v float64) []byte {
	return PutU64(dst, math.Float64bits(v))
}

// PutBool appends a single 0/1 byte to dst.
func PutBool(dst []byte, v bool) []byte {
	if v {
		return append(dst, 1)
	}
	return append(dst, 0)
}

// PutBytes appends a [u64 length][bytes] framed byte string to dst.
func PutBytes(dst []byte, v []byte) []byte {
	dst = PutU64(dst, uint64(len(v)))
	return append(dst, v...)
}

// PutString appends a [u64 byte-length][utf-8 bytes] framed string to dst.
func PutString(dst []byte, v string) []byte {
	return PutBytes(dst, []byte(v))
}

// I64 decodes a little-endian i64 starting at offset 0 of b.
func I64(b []byte) (int64, error) {
	u, err := u64raw(b)
	return int64(u), err
}

// U64 decodes a little-endian u64 starting at offset 0 of b.
func U64(b []byte) (uint64, error) { return u64raw(b) }

// F64 decodes a little-endian f64 bit pattern starting at offset 0 of b.
func F64(b []byte) (float64, error) {
	u, err := u64raw(b)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(u), nil
}

// Bool decodes a single 0/1 byte starting at offset 0 of b.
func Bool(b []byte) (bool, error) {
	if len(b) < 1 {
		return false, dberr.WrapDeserialization("bool deserialization: out of bounds", nil)
	}
	return b[0] != 0, nil
}

func u64raw(b []byte) (uint64, error) {
	if len(b) < 8 {
		return 0, dberr.WrapDeserialization("u64 deserialization: out of bounds", nil)
	}
	return binary.LittleEndian.Uint64(b[:8]), nil
}

// Bytes decodes a [u64 length][bytes] framed byte string from the front of
// b and returns the remaining, unconsumed tail.
func Bytes(b []byte) (value []byte, rest []byte, err error) {
	n, err := u64raw(b)
	if err != nil {
		return nil, nil, dberr.WrapDeserialization("bytes deserialization: length out of bounds", err)
	}
	b = b[8:]
	if uint64(len(b)) < n {
		return nil, nil, dberr.WrapDeserialization("bytes deserialization: value out of bounds", nil)
	}
	out := make([]byte, n)
	copy(out, b[:n])
	return out, b[n:], nil
}

// String decodes a [u64 byte-length][utf-8 bytes] framed string from the
// front of b and returns the remaining, unconsumed tail.
func String(b []byte) (string, []byte, error) {
	raw, rest, err := Bytes(b)
	if err != nil {
		return "", nil, err
	}
	return string(raw), rest, nil
}

// VecI64 decodes [u64 count][i64 * count].
func VecI64(b []byte) ([]int64, error) {
	n, err := u64raw(b)
	if err != nil {
		return nil, err
	}
	b = b[8:]
	out := make([]int64, n)
	for i := range out {
		v, err := I64(b)
		if err != nil {
			return nil, dberr.WrapDeserialization("vec<i64> deserialization: out of bounds", err)
		}
		out[i] = v
		b = b[8:]
	}
	return out, nil
}

// PutVecI64 appends [u64 count][i64 * count] to dst.
func PutVecI64(dst []byte, v []int64) []byte {
	dst = PutU64(dst, uint64(len(v)))
	for _, x := range v {
		dst = PutI64(dst, x)
	}
	return dst
}

// VecU64 decodes [u64 count][u64 * count].
func VecU64(b []byte) ([]uint64, error) {
	n, err := u64raw(b)
	if err != nil {
		return nil, err
	}
	b = b[8:]
	out := make([]uint64, n)
	for i := range out {
		v, err := U64(b)
		if err != nil {
			return nil, dberr.WrapDeserialization("vec<u64> deserialization: out of bounds", err)
		}
		out[i] = v
		b = b[8:]
	}
	return out, nil
}

// PutVecU64 appends [u64 count][u64 * count] to dst.
func PutVecU64(dst []byte, v []uint64) []byte {
	dst = PutU64(dst, uint64(len(v)))
	for _, x := range v {
		dst = PutU64(dst, x)
	}
	return dst
}

// VecF64 decodes [u64 count][f64 * count].
func VecF64(b []byte) ([]float64, error) {
	n, err := u64raw(b)
	if err != nil {
		return nil, err
	}
	b = b[8:]
	out := make([]float64, n)
	for i := range out {
		v, err := F64(b)
		if err != nil {
			return nil, dberr.WrapDeserialization("vec<f64> deserialization: out of bounds", err)
		}
		out[i] = v
		b = b[8:]
	}
	return out, nil
}

// PutVecF64 appends [u64 count][f64 * count] to dst.
func PutVecF64(dst []byte, v []float64) []byte {
	dst = PutU64(dst, uint64(len(v)))
	for _, x := range v {
		dst = PutF64(dst, x)
	}
	return dst
}

// VecString decodes [u64 count][serialize(string) ...].
func VecString(b []byte) ([]string, error) {
	n, err := u64raw(b)
	if err != nil {
		return nil, err
	}
	b = b[8:]
	out := make([]string, n)
	for i := range out {
		s, rest, err := String(b)
		if err != nil {
			return nil, dberr.WrapDeserialization("vec<string> deserialization: out of bounds", err)
		}
		out[i] = s
		b = rest
	}
	return out, nil
}

// PutVecString appends [u64 count][serialize(string) ...] to dst.
func PutVecString(dst []byte, v []string) []byte {
	dst = PutU64(dst, uint64(len(v)))
	for _, s := range v {
		dst = PutString(dst, s)
	}
	return dst
}

// SystemTime is the 13-byte wire encoding of a point in time: seconds since
// epoch, nanosecond remainder, and a before/after-epoch flag so that times
// before 1970 round-trip without sign ambiguity in the unsigned seconds
// field.
type SystemTime struct {
	Seconds     uint64
	Nanos       uint32
	BeforeEpoch bool
}

// PutSystemTime appends the 13-byte encoding to dst.
func PutSystemTime(dst []byte, t SystemTime) []byte {
	dst = PutU64(dst, t.Seconds)
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], t.Nanos)
	dst = append(dst, b[:]...)
	return PutBool(dst, t.BeforeEpoch)
}

// DecodeSystemTime decodes the 13-byte encoding from the front of b.
func DecodeSystemTime(b []byte) (SystemTime, error) {
	if len(b) < 13 {
		return SystemTime{}, dberr.WrapDeserialization("system time deserialization: out of bounds", nil)
	}
	seconds, _ := U64(b)
	nanos := binary.LittleEndian.Uint32(b[8:12])
	before := b[12] != 0
	return SystemTime{Seconds: seconds, Nanos: nanos, BeforeEpoch: before}, nil
}
