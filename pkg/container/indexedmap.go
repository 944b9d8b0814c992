package container

import "github.com/agnesoft/agdb-go/pkg/storage"

// IndexedBidirectionalMap pairs two unique-key HashMaps so that looking
// up by key or by value is equally fast and the pairing stays one-to-
// one: inserting (key, value) atomically displaces whichever existing
// pair previously held either side, grounded on the original's
// IndexedMapImpl.
type IndexedBidirectionalMap[K comparable, V comparable] struct {
	keysToValues *HashMap[K, V]
	valuesToKeys *HashMap[V, K]
}

// NewIndexedBidirectionalMap creates an empty indexed bidirectional map.
func NewIndexedBidirectionalMap[K comparable, V comparable](
	s *storage.Storage,
	keyCodec Codec[K], valueCodec Codec[V],
	keyHash Hasher[K], valueHash Hasher[V],
) (*IndexedBidirectionalMap[K, V], error) {
	keysToValues, err := NewHashMap[K, V](s, keyCodec, valueCodec, keyHash)
	if err != nil {
		return nil, err
	}
	valuesToKeys, err := NewHashMap[V, K](s, valueCodec, keyCodec, valueHash)
	if err != nil {
		return nil, err
	}
	return &IndexedBidirectionalMap[K, V]{keysToValues: keysToValues, valuesToKeys: valuesToKeys}, nil
}

// OpenIndexedBidirectionalMap reopens a map previously built with
// NewIndexedBidirectionalMap from the eight storage indices backing its
// two HashMaps (state/key/value/len for keys_to_values, then for
// values_to_keys).
func OpenIndexedBidirectionalMap[K comparable, V comparable](
	s *storage.Storage,
	ktvStateIdx, ktvKeyIdx, ktvValueIdx, ktvLenIdx uint64,
	vtkStateIdx, vtkKeyIdx, vtkValueIdx, vtkLenIdx uint64,
	keyCodec Codec[K], valueCodec Codec[V],
	keyHash Hasher[K], valueHash Hasher[V],
) (*IndexedBidirectionalMap[K, V], error) {
	keysToValues, err := OpenHashMap[K, V](s, ktvStateIdx, ktvKeyIdx, ktvValueIdx, ktvLenIdx, keyCodec, valueCodec, keyHash)
	if err != nil {
		return nil, err
	}
	valuesToKeys, err := OpenHashMap[V, K](s, vtkStateIdx, vtkKeyIdx, vtkValueIdx, vtkLenIdx, valueCodec, keyCodec, valueHash)
	if err != nil {
		return nil, err
	}
	return &IndexedBidirectionalMap[K, V]{keysToValues: keysToValues, valuesToKeys: valuesToKeys}, nil
}

// Insert pairs key with value, removing whichever existing pair
// previously held either side of the new pair.
func (m *IndexedBidirectionalMap[K, V]) Insert(key K, value V) error {
	oldValue, hadOldValue, err := m.keysToValues.Insert(key, value)
	if err != nil {
		return err
	}
	if hadOldValue {
		if err := m.valuesToKeys.Remove(oldValue); err != nil {
			return err
		}
	}

	oldKey, hadOldKey, err := m.valuesToKeys.Insert(value, key)
	if err != nil {
		return err
	}
	if hadOldKey {
		if err := m.keysToValues.Remove(oldKey); err != nil {
			return err
		}
	}
	return nil
}

// Value returns the value paired with key.
func (m *IndexedBidirectionalMap[K, V]) Value(key K) (V, bool, error) {
	return m.keysToValues.Value(key)
}

// Key returns the key paired with value.
func (m *IndexedBidirectionalMap[K, V]) Key(value V) (K, bool, error) {
	return m.valuesToKeys.Value(value)
}

// RemoveKey removes key and its paired value, a no-op if key is absent.
func (m *IndexedBidirectionalMap[K, V]) RemoveKey(key K) error {
	value, ok, err := m.keysToValues.Value(key)
	if err != nil {
		return err
	}
	if ok {
		if err := m.valuesToKeys.Remove(value); err != nil {
			return err
		}
	}
	return m.keysToValues.Remove(key)
}

// RemoveValue removes value and its paired key, a no-op if value is
// absent.
func (m *IndexedBidirectionalMap[K, V]) RemoveValue(value V) error {
	key, ok, err := m.valuesToKeys.Value(value)
	if err != nil {
		return err
	}
	if ok {
		if err := m.keysToValues.Remove(key); err != nil {
			return err
		}
	}
	return m.valuesToKeys.Remove(value)
}

// Len returns the number of pairs.
func (m *IndexedBidirectionalMap[K, V]) Len() uint64 { return m.keysToValues.Len() }

// IsEmpty reports whether the map holds no pairs.
func (m *IndexedBidirectionalMap[K, V]) IsEmpty() bool { return m.keysToValues.IsEmpty() }

// Capacity returns the number of probe slots currently reserved in the
// key-to-value side (both sides always grow in lockstep).
func (m *IndexedBidirectionalMap[K, V]) Capacity() uint64 { return m.keysToValues.Capacity() }

// Iter visits every (key, value) pair, stopping early if fn returns
// false.
func (m *IndexedBidirectionalMap[K, V]) Iter(fn func(K, V) bool) error {
	return m.keysToValues.Iter(fn)
}

// StorageIndices exposes the eight storage indices backing the two
// underlying HashMaps, for a caller that needs to persist them (e.g. in
// a parent record) and reopen the map later with
// OpenIndexedBidirectionalMap.
func (m *IndexedBidirectionalMap[K, V]) StorageIndices() [8]uint64 {
	return [8]uint64{
		m.keysToValues.StateIndex(), m.keysToValues.KeyIndex(), m.keysToValues.ValueIndex(), m.keysToValues.LenIndex(),
		m.valuesToKeys.StateIndex(), m.valuesToKeys.KeyIndex(), m.valuesToKeys.ValueIndex(), m.valuesToKeys.LenIndex(),
	}
}
