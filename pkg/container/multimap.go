package container

import "github.com/agnesoft/agdb-go/pkg/storage"

// MultiMap is a storage-backed, open-addressed map that allows the same
// key to hold several values, grounded on the original MultiMapImpl.
type MultiMap[K comparable, V comparable] struct {
	table *probeTable[K, V]
}

// NewMultiMap creates an empty multi-map.
func NewMultiMap[K comparable, V comparable](s *storage.Storage, keyCodec Codec[K], valueCodec Codec[V], hash Hasher[K]) (*MultiMap[K, V], error) {
	t, err := newProbeTable[K, V](s, keyCodec, valueCodec, hash)
	if err != nil {
		return nil, err
	}
	return &MultiMap[K, V]{table: t}, nil
}

// OpenMultiMap reopens a multi-map from its backing vector/length indices.
func OpenMultiMap[K comparable, V comparable](s *storage.Storage, statesIdx, keysIdx, valuesIdx, lenIdx uint64, keyCodec Codec[K], valueCodec Codec[V], hash Hasher[K]) (*MultiMap[K, V], error) {
	t, err := openProbeTable[K, V](s, statesIdx, keysIdx, valuesIdx, lenIdx, keyCodec, valueCodec, hash)
	if err != nil {
		return nil, err
	}
	return &MultiMap[K, V]{table: t}, nil
}

// Insert adds (key, value) without disturbing any existing entry under
// key; a key may end up holding several values.
func (m *MultiMap[K, V]) Insert(key K, value V) error {
	return m.table.InsertAllowDuplicate(key, value)
}

// InsertOrReplace replaces the first value under key for which predicate
// returns true, or appends (key, value) as new if none matches.
func (m *MultiMap[K, V]) InsertOrReplace(key K, value V, predicate func(V) bool) (V, bool, error) {
	return m.table.InsertOrReplace(key, value, predicate)
}

// Value returns the first value stored under key.
func (m *MultiMap[K, V]) Value(key K) (V, bool, error) { return m.table.Value(key) }

// Values returns every value stored under key.
func (m *MultiMap[K, V]) Values(key K) ([]V, error) { return m.table.Values(key) }

// ValuesCount counts the entries stored under key.
func (m *MultiMap[K, V]) ValuesCount(key K) (uint64, error) { return m.table.ValuesCount(key) }

// Contains reports whether key is present.
func (m *MultiMap[K, V]) Contains(key K) (bool, error) { return m.table.Contains(key) }

// ContainsValue reports whether the (key, value) pair is present.
func (m *MultiMap[K, V]) ContainsValue(key K, value V) (bool, error) {
	return m.table.ContainsValue(key, value)
}

// RemoveKey removes every entry stored under key.
func (m *MultiMap[K, V]) RemoveKey(key K) error { return m.table.RemoveKey(key) }

// RemoveValue removes the first (key, value) pair found, if any.
func (m *MultiMap[K, V]) RemoveValue(key K, value V) error { return m.table.RemoveValue(key, value) }

// Reserve grows the table so it can hold at least capacity entries
// without rehashing.
func (m *MultiMap[K, V]) Reserve(capacity uint64) error { return m.table.Reserve(capacity) }

// Len returns the number of entries.
func (m *MultiMap[K, V]) Len() uint64 { return m.table.Len() }

// Capacity returns the number of probe slots currently reserved.
func (m *MultiMap[K, V]) Capacity() uint64 { return m.table.Capacity() }

// IsEmpty reports whether the multi-map holds no entries.
func (m *MultiMap[K, V]) IsEmpty() bool { return m.table.IsEmpty() }

func (m *MultiMap[K, V]) StateIndex() uint64 { return m.table.states.Index() }
func (m *MultiMap[K, V]) KeyIndex() uint64   { return m.table.keys.Index() }
func (m *MultiMap[K, V]) ValueIndex() uint64 { return m.table.values.Index() }
func (m *MultiMap[K, V]) LenIndex() uint64   { return m.table.lenIndex }

// Iter visits every (key, value) pair in slot order, stopping early if
// fn returns false.
func (m *MultiMap[K, V]) Iter(fn func(K, V) bool) error {
	return iterTable(m.table, fn)
}

// IterKey visits every value stored under key, stopping early if fn
// returns false.
func (m *MultiMap[K, V]) IterKey(key K, fn func(V) bool) error {
	if m.table.Capacity() == 0 {
		return nil
	}
	pos := m.table.hash(key) % m.table.Capacity()
	for {
		st, err := m.table.stateAt(pos)
		if err != nil {
			return err
		}
		if st == stateEmpty {
			return nil
		}
		if st == stateValid {
			k, err := m.table.keys.Value(pos)
			if err != nil {
				return err
			}
			if k == key {
				v, err := m.table.values.Value(pos)
				if err != nil {
					return err
				}
				if !fn(v) {
					return nil
				}
			}
		}
		pos = m.table.nextPos(pos)
	}
}
