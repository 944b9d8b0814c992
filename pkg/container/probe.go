package container

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/agnesoft/agdb-go/pkg/serialize"
	"github.com/agnesoft/agdb-go/pkg/storage"
)

type slotState byte

const (
	stateEmpty slotState = iota
	stateDeleted
	stateValid
)

const (
	minTableCapacity = 64
	lenMaxNumerator  = 15
	lenMaxDenom      = 16
	lenMinNumerator  = 7
	lenMinDenom      = 16
)

// probeTable is the open-addressed linear-probing table shared by HashMap
// and MultiMap, grounded on the original implementation's MultiMapImpl:
// three parallel storage-backed Vectors (state, key, value) sized to the
// current capacity, plus a length counter kept in its own tiny record
// since the vectors themselves are always sized to capacity, not to the
// number of valid entries.
type probeTable[K comparable, V comparable] struct {
	storage   *storage.Storage
	states    *Vector[byte]
	keys      *Vector[K]
	values    *Vector[V]
	lenIndex  uint64
	length    uint64
	hash      Hasher[K]
	zeroKey   K
	zeroValue V
}

func newProbeTable[K comparable, V comparable](s *storage.Storage, keyCodec Codec[K], valueCodec Codec[V], hash Hasher[K]) (*probeTable[K, V], error) {
	states, err := NewVector[byte](s, ByteCodec)
	if err != nil {
		return nil, err
	}
	keys, err := NewVector[K](s, keyCodec)
	if err != nil {
		return nil, err
	}
	values, err := NewVector[V](s, valueCodec)
	if err != nil {
		return nil, err
	}
	lenIndex, err := s.Insert(serialize.PutU64(nil, 0))
	if err != nil {
		return nil, err
	}
	return &probeTable[K, V]{storage: s, states: states, keys: keys, values: values, lenIndex: lenIndex, hash: hash}, nil
}

// openProbeTable reopens a table from the three vector indices and the
// length record created by newProbeTable.
func openProbeTable[K comparable, V comparable](s *storage.Storage, statesIdx, keysIdx, valuesIdx, lenIdx uint64, keyCodec Codec[K], valueCodec Codec[V], hash Hasher[K]) (*probeTable[K, V], error) {
	states, err := OpenVector[byte](s, statesIdx, ByteCodec)
	if err != nil {
		return nil, err
	}
	keys, err := OpenVector[K](s, keysIdx, keyCodec)
	if err != nil {
		return nil, err
	}
	values, err := OpenVector[V](s, valuesIdx, valueCodec)
	if err != nil {
		return nil, err
	}
	lenBytes, err := s.Value(lenIdx)
	if err != nil {
		return nil, err
	}
	length, err := serialize.U64(lenBytes)
	if err != nil {
		return nil, err
	}
	return &probeTable[K, V]{storage: s, states: states, keys: keys, values: values, lenIndex: lenIdx, length: length, hash: hash}, nil
}

func (t *probeTable[K, V]) Capacity() uint64 { return t.states.Len() }
func (t *probeTable[K, V]) Len() uint64      { return t.length }
func (t *probeTable[K, V]) IsEmpty() bool    { return t.length == 0 }

func (t *probeTable[K, V]) maxLen() uint64 {
	return t.Capacity() * lenMaxNumerator / lenMaxDenom
}

func (t *probeTable[K, V]) minLen() uint64 {
	return t.Capacity() * lenMinNumerator / lenMinDenom
}

func (t *probeTable[K, V]) nextPos(pos uint64) uint64 {
	if pos == t.Capacity()-1 {
		return 0
	}
	return pos + 1
}

func (t *probeTable[K, V]) stateAt(pos uint64) (slotState, error) {
	b, err := t.states.Value(pos)
	if err != nil {
		return stateEmpty, err
	}
	return slotState(b), nil
}

func (t *probeTable[K, V]) setState(pos uint64, st slotState) error {
	return t.states.SetValue(pos, byte(st))
}

func (t *probeTable[K, V]) setLen(n uint64) error {
	t.length = n
	_, err := t.storage.InsertAt(t.lenIndex, 0, serialize.PutU64(nil, n))
	return err
}

func (t *probeTable[K, V]) doInsert(pos uint64, key K, value V) error {
	if err := t.setState(pos, stateValid); err != nil {
		return err
	}
	if err := t.keys.SetValue(pos, key); err != nil {
		return err
	}
	if err := t.values.SetValue(pos, value); err != nil {
		return err
	}
	return t.setLen(t.length + 1)
}

func (t *probeTable[K, V]) dropValue(pos uint64) error {
	if err := t.setState(pos, stateDeleted); err != nil {
		return err
	}
	if err := t.keys.SetValue(pos, t.zeroKey); err != nil {
		return err
	}
	return t.values.SetValue(pos, t.zeroValue)
}

// Contains reports whether key is present (first match along the probe
// sequence).
func (t *probeTable[K, V]) Contains(key K) (bool, error) {
	if t.Capacity() == 0 {
		return false, nil
	}
	pos := t.hash(key) % t.Capacity()
	for {
		st, err := t.stateAt(pos)
		if err != nil {
			return false, err
		}
		switch st {
		case stateEmpty:
			return false, nil
		case stateValid:
			k, err := t.keys.Value(pos)
			if err != nil {
				return false, err
			}
			if k == key {
				return true, nil
			}
			pos = t.nextPos(pos)
		default:
			pos = t.nextPos(pos)
		}
	}
}

// ContainsValue reports whether the (key, value) pair is present.
func (t *probeTable[K, V]) ContainsValue(key K, value V) (bool, error) {
	if t.Capacity() == 0 {
		return false, nil
	}
	pos := t.hash(key) % t.Capacity()
	for {
		st, err := t.stateAt(pos)
		if err != nil {
			return false, err
		}
		switch st {
		case stateEmpty:
			return false, nil
		case stateValid:
			k, err := t.keys.Value(pos)
			if err != nil {
				return false, err
			}
			if k == key {
				v, err := t.values.Value(pos)
				if err != nil {
					return false, err
				}
				if v == value {
					return true, nil
				}
			}
			pos = t.nextPos(pos)
		default:
			pos = t.nextPos(pos)
		}
	}
}

// Value returns the first value stored under key.
func (t *probeTable[K, V]) Value(key K) (V, bool, error) {
	var zero V
	if t.Capacity() == 0 {
		return zero, false, nil
	}
	pos := t.hash(key) % t.Capacity()
	for {
		st, err := t.stateAt(pos)
		if err != nil {
			return zero, false, err
		}
		switch st {
		case stateEmpty:
			return zero, false, nil
		case stateValid:
			k, err := t.keys.Value(pos)
			if err != nil {
				return zero, false, err
			}
			if k == key {
				v, err := t.values.Value(pos)
				return v, true, err
			}
			pos = t.nextPos(pos)
		default:
			pos = t.nextPos(pos)
		}
	}
}

// Values returns every value stored under key, in probe order.
func (t *probeTable[K, V]) Values(key K) ([]V, error) {
	var out []V
	if t.Capacity() == 0 {
		return out, nil
	}
	pos := t.hash(key) % t.Capacity()
	for {
		st, err := t.stateAt(pos)
		if err != nil {
			return nil, err
		}
		if st == stateEmpty {
			break
		}
		if st == stateValid {
			k, err := t.keys.Value(pos)
			if err != nil {
				return nil, err
			}
			if k == key {
				v, err := t.values.Value(pos)
				if err != nil {
					return nil, err
				}
				out = append(out, v)
			}
		}
		pos = t.nextPos(pos)
	}
	return out, nil
}

// ValuesCount counts the entries stored under key.
func (t *probeTable[K, V]) ValuesCount(key K) (uint64, error) {
	var count uint64
	if t.Capacity() == 0 {
		return 0, nil
	}
	pos := t.hash(key) % t.Capacity()
	for {
		st, err := t.stateAt(pos)
		if err != nil {
			return 0, err
		}
		if st == stateEmpty {
			break
		}
		if st == stateValid {
			k, err := t.keys.Value(pos)
			if err != nil {
				return 0, err
			}
			if k == key {
				count++
			}
		}
		pos = t.nextPos(pos)
	}
	return count, nil
}

// freeIndex finds the probe slot key would occupy (the first Empty or
// Deleted slot along its probe sequence), growing the table first if
// the load factor would be exceeded. Used when duplicate keys are
// allowed (MultiMap.Insert).
func (t *probeTable[K, V]) freeIndex(key K) (uint64, error) {
	if t.length >= t.maxLen() {
		if err := t.rehash(t.Capacity() * 2); err != nil {
			return 0, err
		}
	}
	pos := t.hash(key) % t.Capacity()
	for {
		st, err := t.stateAt(pos)
		if err != nil {
			return 0, err
		}
		if st != stateValid {
			return pos, nil
		}
		pos = t.nextPos(pos)
	}
}

// InsertAllowDuplicate inserts (key, value) at the first free slot along
// key's probe sequence without checking for an existing key, mirroring
// MultiMapImpl::insert.
func (t *probeTable[K, V]) InsertAllowDuplicate(key K, value V) error {
	pos, err := t.freeIndex(key)
	if err != nil {
		return err
	}
	return t.doInsert(pos, key, value)
}

// InsertOrReplace inserts (key, value), replacing the first existing
// entry under key for which predicate returns true and returning its
// old value, or appending a new entry if none matches (or the key is
// absent). Grounds both HashMap.Insert (predicate always true, i.e.
// unique keys) and MultiMapImpl::insert_or_replace.
func (t *probeTable[K, V]) InsertOrReplace(key K, value V, predicate func(V) bool) (V, bool, error) {
	var zero V
	if t.length >= t.maxLen() {
		if err := t.rehash(t.Capacity() * 2); err != nil {
			return zero, false, err
		}
	}

	pos := t.hash(key) % t.Capacity()
	firstDeleted, haveDeleted := uint64(0), false
	for {
		st, err := t.stateAt(pos)
		if err != nil {
			return zero, false, err
		}
		switch st {
		case stateEmpty:
			if haveDeleted {
				pos = firstDeleted
			}
			return zero, false, t.doInsert(pos, key, value)
		case stateValid:
			k, err := t.keys.Value(pos)
			if err != nil {
				return zero, false, err
			}
			if k == key {
				old, err := t.values.Value(pos)
				if err != nil {
					return zero, false, err
				}
				if predicate(old) {
					if err := t.values.SetValue(pos, value); err != nil {
						return zero, false, err
					}
					return old, true, nil
				}
			}
			pos = t.nextPos(pos)
		default:
			if !haveDeleted {
				firstDeleted, haveDeleted = pos, true
			}
			pos = t.nextPos(pos)
		}
	}
}

// RemoveKey removes every entry stored under key.
func (t *probeTable[K, V]) RemoveKey(key K) error {
	if t.Capacity() == 0 {
		return nil
	}
	pos := t.hash(key) % t.Capacity()
	removed := uint64(0)

	for {
		st, err := t.stateAt(pos)
		if err != nil {
			return err
		}
		if st == stateEmpty {
			break
		}
		if st == stateValid {
			k, err := t.keys.Value(pos)
			if err != nil {
				return err
			}
			if k == key {
				if err := t.dropValue(pos); err != nil {
					return err
				}
				removed++
			}
		}
		pos = t.nextPos(pos)
	}

	if removed == 0 {
		return nil
	}
	if err := t.setLen(t.length - removed); err != nil {
		return err
	}
	if t.length <= t.minLen() {
		return t.rehash(t.Capacity() / 2)
	}
	return nil
}

// RemoveValue removes the first (key, value) pair found, if any.
func (t *probeTable[K, V]) RemoveValue(key K, value V) error {
	if t.Capacity() == 0 {
		return nil
	}
	pos := t.hash(key) % t.Capacity()
	for {
		st, err := t.stateAt(pos)
		if err != nil {
			return err
		}
		if st == stateEmpty {
			return nil
		}
		if st == stateValid {
			k, err := t.keys.Value(pos)
			if err != nil {
				return err
			}
			if k == key {
				v, err := t.values.Value(pos)
				if err != nil {
					return err
				}
				if v == value {
					return t.removeIndex(pos)
				}
			}
		}
		pos = t.nextPos(pos)
	}
}

func (t *probeTable[K, V]) removeIndex(pos uint64) error {
	if err := t.dropValue(pos); err != nil {
		return err
	}
	if err := t.setLen(t.length - 1); err != nil {
		return err
	}
	if t.length <= t.minLen() {
		return t.rehash(t.Capacity() / 2)
	}
	return nil
}

// Reserve grows the table so it can hold at least capacity entries
// without rehashing.
func (t *probeTable[K, V]) Reserve(capacity uint64) error {
	if t.Capacity() < capacity {
		return t.rehash(capacity)
	}
	return nil
}

func (t *probeTable[K, V]) rehash(capacity uint64) error {
	current := t.Capacity()
	newCapacity := capacity
	if newCapacity < minTableCapacity {
		newCapacity = minTableCapacity
	}

	switch {
	case current < newCapacity:
		if err := t.resizeVectors(newCapacity); err != nil {
			return err
		}
		return t.rehashValues(current, newCapacity)
	case current == newCapacity:
		return nil
	default:
		if err := t.rehashValues(current, newCapacity); err != nil {
			return err
		}
		return t.resizeVectors(newCapacity)
	}
}

func (t *probeTable[K, V]) resizeVectors(newCapacity uint64) error {
	if err := t.states.Resize(newCapacity); err != nil {
		return err
	}
	if err := t.keys.Resize(newCapacity); err != nil {
		return err
	}
	return t.values.Resize(newCapacity)
}

// rehashValues walks the old table (positions [0, currentCapacity)) in
// order, relocating every Valid entry to its probed slot in a table of
// newCapacity and marking every Deleted slot (still inside the old
// bounds that remain addressable) Empty. A roaring.Bitmap tracks which
// new-table slots are still free, taking the place of the original's
// `Vec<bool>` second-chance scan.
func (t *probeTable[K, V]) rehashValues(currentCapacity, newCapacity uint64) error {
	empty := roaring.New()
	empty.AddRange(0, newCapacity)

	i := uint64(0)
	for i != currentCapacity {
		st, err := t.stateAt(i)
		if err != nil {
			return err
		}
		switch st {
		case stateEmpty:
			i++
		case stateDeleted:
			if i < newCapacity {
				if err := t.setState(i, stateEmpty); err != nil {
					return err
				}
			}
			i++
		case stateValid:
			if err := t.rehashValid(&i, newCapacity, empty); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *probeTable[K, V]) rehashValid(i *uint64, newCapacity uint64, empty *roaring.Bitmap) error {
	key, err := t.keys.Value(*i)
	if err != nil {
		return err
	}
	pos := t.hash(key) % newCapacity

	for {
		if empty.Contains(uint32(pos)) {
			empty.Remove(uint32(pos))
			if err := t.swap(*i, pos); err != nil {
				return err
			}
			if *i == pos {
				*i++
			}
			return nil
		}
		pos++
		if pos == newCapacity {
			pos = 0
		}
	}
}

// swap exchanges the raw (state, key, value) bytes at a and b without
// decoding them, so an outlined value (e.g. a string's record index)
// moves without re-outlining its payload.
func (t *probeTable[K, V]) swap(a, b uint64) error {
	if a == b {
		return nil
	}
	if err := swapRaw(t.states, a, b); err != nil {
		return err
	}
	if err := swapRaw(t.keys, a, b); err != nil {
		return err
	}
	return swapRaw(t.values, a, b)
}

func swapRaw[T any](v *Vector[T], a, b uint64) error {
	rawA, err := v.RawAt(a)
	if err != nil {
		return err
	}
	bufA := append([]byte(nil), rawA...)
	rawB, err := v.RawAt(b)
	if err != nil {
		return err
	}
	bufB := append([]byte(nil), rawB...)
	if err := v.SetRaw(a, bufB); err != nil {
		return err
	}
	return v.SetRaw(b, bufA)
}
