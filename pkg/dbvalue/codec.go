package dbvalue

import (
	"github.com/agnesoft/agdb-go/pkg/container"
	"github.com/agnesoft/agdb-go/pkg/dberr"
	"github.com/agnesoft/agdb-go/pkg/serialize"
	"github.com/agnesoft/agdb-go/pkg/storage"
)

const descriptorSize = 17
const payloadSize = 16
const inlineBytesLimit = payloadSize - 2 // one byte of the payload holds the inline length; spec requires strictly shorter than 15 bytes to inline

// Codec builds a container.Codec[Value] for the 17-byte value
// descriptor: a 1-byte tag followed by 16 bytes of either inline
// payload or (for outlined variants) an 8-byte storage index referring
// to the value's own record in s.
func Codec(s *storage.Storage) container.Codec[Value] {
	return container.Codec[Value]{
		Size:   descriptorSize,
		Encode: encode(s),
		Decode: decode(s),
	}
}

func encode(s *storage.Storage) func([]byte, Value) ([]byte, error) {
	return func(dst []byte, v Value) ([]byte, error) {
		dst = append(dst, byte(v.tag))
		payload := make([]byte, payloadSize)

		switch v.tag {
		case TagI64:
			copy(payload, serialize.PutI64(nil, v.i64))
		case TagU64:
			copy(payload, serialize.PutU64(nil, v.u64))
		case TagF64:
			copy(payload, serialize.PutF64(nil, v.f64))
		case TagBytes:
			if err := encodeInlineOrOutlined(s, payload, v.bytes); err != nil {
				return nil, err
			}
		case TagString:
			if err := encodeInlineOrOutlined(s, payload, []byte(v.str)); err != nil {
				return nil, err
			}
		case TagVecI64:
			idx, err := s.Insert(serialize.PutVecI64(nil, v.vecI64))
			if err != nil {
				return nil, err
			}
			copy(payload, serialize.PutU64(nil, idx))
		case TagVecU64:
			idx, err := s.Insert(serialize.PutVecU64(nil, v.vecU64))
			if err != nil {
				return nil, err
			}
			copy(payload, serialize.PutU64(nil, idx))
		case TagVecF64:
			idx, err := s.Insert(serialize.PutVecF64(nil, v.vecF64))
			if err != nil {
				return nil, err
			}
			copy(payload, serialize.PutU64(nil, idx))
		case TagVecString:
			idx, err := s.Insert(serialize.PutVecString(nil, v.vecStr))
			if err != nil {
				return nil, err
			}
			copy(payload, serialize.PutU64(nil, idx))
		default:
			return nil, dberr.NewDataIntegrity("unknown value tag '%d'", v.tag)
		}

		return append(dst, payload...), nil
	}
}

// encodeInlineOrOutlined writes raw either inline (length byte at
// payload[15] plus the bytes themselves) when it is shorter than 15
// bytes, or as an 8-byte storage index when it is not.
func encodeInlineOrOutlined(s *storage.Storage, payload []byte, raw []byte) error {
	if len(raw) <= inlineBytesLimit {
		copy(payload, raw)
		payload[payloadSize-1] = byte(len(raw)) | inlineMarker
		return nil
	}
	idx, err := s.Insert(raw)
	if err != nil {
		return err
	}
	copy(payload, serialize.PutU64(nil, idx))
	return nil
}

// inlineMarker flags payload[15] as an inline length. The outlined
// encoding only ever writes its 8-byte index into payload[0:8], leaving
// payload[15] zero, so the marker bit unambiguously distinguishes the
// two encodings.
const inlineMarker = 0x80

func isInline(payload []byte) bool { return payload[payloadSize-1]&inlineMarker != 0 }

func decode(s *storage.Storage) func([]byte) (Value, error) {
	return func(b []byte) (Value, error) {
		if len(b) < descriptorSize {
			return Value{}, dberr.WrapDeserialization("value descriptor: out of bounds", nil)
		}
		tag := Tag(b[0])
		payload := b[1:descriptorSize]

		switch tag {
		case TagI64:
			n, err := serialize.I64(payload)
			return FromI64(n), err
		case TagU64:
			n, err := serialize.U64(payload)
			return FromU64(n), err
		case TagF64:
			f, err := serialize.F64(payload)
			return FromF64(f), err
		case TagBytes:
			raw, err := decodeInlineOrOutlined(s, payload)
			if err != nil {
				return Value{}, err
			}
			return FromBytes(raw), nil
		case TagString:
			raw, err := decodeInlineOrOutlined(s, payload)
			if err != nil {
				return Value{}, err
			}
			return FromString(string(raw)), nil
		case TagVecI64:
			raw, err := outlined(s, payload)
			if err != nil {
				return Value{}, err
			}
			v, err := serialize.VecI64(raw)
			return FromVecI64(v), err
		case TagVecU64:
			raw, err := outlined(s, payload)
			if err != nil {
				return Value{}, err
			}
			v, err := serialize.VecU64(raw)
			return FromVecU64(v), err
		case TagVecF64:
			raw, err := outlined(s, payload)
			if err != nil {
				return Value{}, err
			}
			v, err := serialize.VecF64(raw)
			return FromVecF64(v), err
		case TagVecString:
			raw, err := outlined(s, payload)
			if err != nil {
				return Value{}, err
			}
			v, err := serialize.VecString(raw)
			return FromVecString(v), err
		default:
			return Value{}, dberr.NewDataIntegrity("unknown value tag '%d'", tag)
		}
	}
}

func outlined(s *storage.Storage, payload []byte) ([]byte, error) {
	idx, err := serialize.U64(payload)
	if err != nil {
		return nil, err
	}
	return s.Value(idx)
}

func decodeInlineOrOutlined(s *storage.Storage, payload []byte) ([]byte, error) {
	if isInline(payload) {
		length := payload[payloadSize-1] &^ inlineMarker
		out := make([]byte, length)
		copy(out, payload[:length])
		return out, nil
	}
	return outlined(s, payload)
}
