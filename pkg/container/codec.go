package container

import (
	"github.com/cespare/xxhash/v2"

	"github.com/agnesoft/agdb-go/pkg/serialize"
	"github.com/agnesoft/agdb-go/pkg/storage"
)

// Codec tells a Vector, HashMap or MultiMap how to turn a value of type T
// into a fixed-width stored representation and back. Size is the encoded
// width every slot reserves; a variable-width value (e.g. a string) must
// outline its payload into its own storage record and encode only a
// fixed-width reference to it here, the same inline-vs-outlined split
// spec §4.9 uses for DbValue.
type Codec[T any] struct {
	Size   uint64
	Encode func(dst []byte, v T) ([]byte, error)
	Decode func(b []byte) (T, error)
}

func noErrEncode[T any](f func(dst []byte, v T) []byte) func([]byte, T) ([]byte, error) {
	return func(dst []byte, v T) ([]byte, error) { return f(dst, v), nil }
}

func noErrDecode[T any](f func(b []byte) (T, error)) func([]byte) (T, error) {
	return f
}

// U64Codec encodes a uint64 in its native 8 bytes.
var U64Codec = Codec[uint64]{Size: serialize.SizeU64, Encode: noErrEncode(serialize.PutU64), Decode: noErrDecode(serialize.U64)}

// I64Codec encodes an int64 in its native 8 bytes.
var I64Codec = Codec[int64]{Size: serialize.SizeI64, Encode: noErrEncode(serialize.PutI64), Decode: noErrDecode(serialize.I64)}

// ByteCodec encodes a single byte, used for the probe table's state slots.
var ByteCodec = Codec[byte]{
	Size:   1,
	Encode: func(dst []byte, v byte) ([]byte, error) { return append(dst, v), nil },
	Decode: func(b []byte) (byte, error) { return b[0], nil },
}

// Hasher computes a stable, deterministic hash of a key. Go's builtin map
// hash is randomized per process and unusable for a reproducible on-disk
// probe sequence, so every key type used with HashMap/MultiMap supplies
// one of these, built from xxhash over the key's encoded bytes.
type Hasher[K any] func(key K) uint64

// HashU64 hashes a uint64 key.
func HashU64(key uint64) uint64 { return xxhash.Sum64(serialize.PutU64(nil, key)) }

// HashI64 hashes an int64 key.
func HashI64(key int64) uint64 { return xxhash.Sum64(serialize.PutI64(nil, key)) }

// HashString hashes a string key.
func HashString(key string) uint64 { return xxhash.Sum64([]byte(key)) }

// outliner stores variable-width byte payloads as their own storage
// records, referenced by their index. It backs StringCodec: a string's
// bytes live in their own record and the map/vector slot stores only
// that record's 8-byte index.
type outliner struct {
	storage *storage.Storage
}

func newOutliner(s *storage.Storage) *outliner { return &outliner{storage: s} }

func (o *outliner) put(data []byte) (uint64, error) { return o.storage.Insert(data) }
func (o *outliner) get(index uint64) ([]byte, error) { return o.storage.Value(index) }

// StringCodec builds a Codec[string] that outlines each string's bytes
// into their own record in s, storing only the record's index inline.
func StringCodec(s *storage.Storage) Codec[string] {
	out := newOutliner(s)
	return Codec[string]{
		Size: serialize.SizeU64,
		Encode: func(dst []byte, v string) ([]byte, error) {
			idx, err := out.put([]byte(v))
			if err != nil {
				return nil, err
			}
			return serialize.PutU64(dst, idx), nil
		},
		Decode: func(b []byte) (string, error) {
			idx, err := serialize.U64(b)
			if err != nil {
				return "", err
			}
			raw, err := out.get(idx)
			if err != nil {
				return "", err
			}
			return string(raw), nil
		},
	}
}
