package container

import "github.com/agnesoft/agdb-go/pkg/storage"

// HashMap is a storage-backed, open-addressed map enforcing unique keys,
// built on the same probe table as MultiMap with an always-replace
// predicate standing in for MultiMapImpl's generic insert_or_replace.
type HashMap[K comparable, V comparable] struct {
	table *probeTable[K, V]
}

// NewHashMap creates an empty map.
func NewHashMap[K comparable, V comparable](s *storage.Storage, keyCodec Codec[K], valueCodec Codec[V], hash Hasher[K]) (*HashMap[K, V], error) {
	t, err := newProbeTable[K, V](s, keyCodec, valueCodec, hash)
	if err != nil {
		return nil, err
	}
	return &HashMap[K, V]{table: t}, nil
}

// OpenHashMap reopens a map from its backing vector/length indices.
func OpenHashMap[K comparable, V comparable](s *storage.Storage, statesIdx, keysIdx, valuesIdx, lenIdx uint64, keyCodec Codec[K], valueCodec Codec[V], hash Hasher[K]) (*HashMap[K, V], error) {
	t, err := openProbeTable[K, V](s, statesIdx, keysIdx, valuesIdx, lenIdx, keyCodec, valueCodec, hash)
	if err != nil {
		return nil, err
	}
	return &HashMap[K, V]{table: t}, nil
}

func alwaysReplace[V any](V) bool { return true }

// Insert sets key to value, returning the previous value if one existed.
func (m *HashMap[K, V]) Insert(key K, value V) (V, bool, error) {
	return m.table.InsertOrReplace(key, value, alwaysReplace[V])
}

// Value returns the value stored under key.
func (m *HashMap[K, V]) Value(key K) (V, bool, error) { return m.table.Value(key) }

// Contains reports whether key is present.
func (m *HashMap[K, V]) Contains(key K) (bool, error) { return m.table.Contains(key) }

// Remove deletes key, a no-op if it is absent.
func (m *HashMap[K, V]) Remove(key K) error { return m.table.RemoveKey(key) }

// Reserve grows the map so it can hold at least capacity entries
// without rehashing.
func (m *HashMap[K, V]) Reserve(capacity uint64) error { return m.table.Reserve(capacity) }

// Len returns the number of entries.
func (m *HashMap[K, V]) Len() uint64 { return m.table.Len() }

// Capacity returns the number of probe slots currently reserved.
func (m *HashMap[K, V]) Capacity() uint64 { return m.table.Capacity() }

// IsEmpty reports whether the map holds no entries.
func (m *HashMap[K, V]) IsEmpty() bool { return m.table.IsEmpty() }

// StateIndex, KeyIndex, ValueIndex and LenIndex expose the backing
// storage indices so a caller can persist them (e.g. in a parent
// record) and reopen the map later with OpenHashMap.
func (m *HashMap[K, V]) StateIndex() uint64 { return m.table.states.Index() }
func (m *HashMap[K, V]) KeyIndex() uint64   { return m.table.keys.Index() }
func (m *HashMap[K, V]) ValueIndex() uint64 { return m.table.values.Index() }
func (m *HashMap[K, V]) LenIndex() uint64   { return m.table.lenIndex }

// Iter visits every (key, value) pair in slot order, stopping early if
// fn returns false.
func (m *HashMap[K, V]) Iter(fn func(K, V) bool) error {
	return iterTable(m.table, fn)
}

func iterTable[K comparable, V comparable](t *probeTable[K, V], fn func(K, V) bool) error {
	for pos := uint64(0); pos < t.Capacity(); pos++ {
		st, err := t.stateAt(pos)
		if err != nil {
			return err
		}
		if st != stateValid {
			continue
		}
		key, err := t.keys.Value(pos)
		if err != nil {
			return err
		}
		value, err := t.values.Value(pos)
		if err != nil {
			return err
		}
		if !fn(key, value) {
			return nil
		}
	}
	return nil
}
