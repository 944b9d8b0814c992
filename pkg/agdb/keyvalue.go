package agdb

import (
	"github.com/agnesoft/agdb-go/pkg/container"
	"github.com/agnesoft/agdb-go/pkg/dbvalue"
	"github.com/agnesoft/agdb-go/pkg/storage"
)

// KeyValue pairs a database key with its value, the unit the value
// multi-map stores under each id.
type KeyValue struct {
	Key   dbvalue.Value
	Value dbvalue.Value
}

// sameKey reports whether other holds the same key, used to gate
// insert_or_replace_key_value and its undo.
func (kv KeyValue) sameKey(other KeyValue) bool { return kv.Key.Compare(other.Key) == 0 }

// keyValueCodec concatenates two dbvalue descriptors: the key's then
// the value's.
func keyValueCodec(s *storage.Storage) container.Codec[KeyValue] {
	value := dbvalue.Codec(s)
	size := value.Size * 2

	return container.Codec[KeyValue]{
		Size: size,
		Encode: func(dst []byte, kv KeyValue) ([]byte, error) {
			dst, err := value.Encode(dst, kv.Key)
			if err != nil {
				return nil, err
			}
			return value.Encode(dst, kv.Value)
		},
		Decode: func(b []byte) (KeyValue, error) {
			key, err := value.Decode(b[:value.Size])
			if err != nil {
				return KeyValue{}, err
			}
			val, err := value.Decode(b[value.Size:])
			if err != nil {
				return KeyValue{}, err
			}
			return KeyValue{Key: key, Value: val}, nil
		},
	}
}
