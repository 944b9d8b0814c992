package container

import (
	"github.com/agnesoft/agdb-go/pkg/dberr"
	"github.com/agnesoft/agdb-go/pkg/serialize"
	"github.com/agnesoft/agdb-go/pkg/storage"
)

const minVectorCapacity = 64

// Vector is a storage-backed, growable array of fixed-width elements: a
// single record holding an 8-byte length prefix followed by `capacity`
// Codec-sized slots. Grounded on the original implementation's
// StorageVec: push grows to max(capacity*2, 64) on overflow; remove
// shifts the tail down via storage.MoveAt instead of rewriting every
// element.
type Vector[T any] struct {
	storage  *storage.Storage
	index    uint64
	codec    Codec[T]
	len      uint64
	capacity uint64
}

// NewVector creates an empty vector with its own storage record.
func NewVector[T any](s *storage.Storage, codec Codec[T]) (*Vector[T], error) {
	idx, err := s.Insert(serialize.PutU64(nil, 0))
	if err != nil {
		return nil, err
	}
	return &Vector[T]{storage: s, index: idx, codec: codec}, nil
}

// OpenVector reopens a vector previously created at index.
func OpenVector[T any](s *storage.Storage, index uint64, codec Codec[T]) (*Vector[T], error) {
	byteSize, err := s.ValueSize(index)
	if err != nil {
		return nil, err
	}
	lenBytes, err := s.ValueAt(index, 0, serialize.SizeU64)
	if err != nil {
		return nil, err
	}
	length, err := serialize.U64(lenBytes)
	if err != nil {
		return nil, err
	}
	return &Vector[T]{
		storage:  s,
		index:    index,
		codec:    codec,
		len:      length,
		capacity: capacityFromBytes(byteSize, codec.Size),
	}, nil
}

func capacityFromBytes(byteSize, elemSize uint64) uint64 {
	return (byteSize - serialize.SizeU64) / elemSize
}

// Index returns the storage index backing this vector.
func (v *Vector[T]) Index() uint64 { return v.index }

// Len returns the number of elements.
func (v *Vector[T]) Len() uint64 { return v.len }

// Capacity returns the number of slots currently reserved.
func (v *Vector[T]) Capacity() uint64 { return v.capacity }

// IsEmpty reports whether the vector holds no elements.
func (v *Vector[T]) IsEmpty() bool { return v.len == 0 }

func (v *Vector[T]) offset(i uint64) uint64 {
	return serialize.SizeU64 + i*v.codec.Size
}

// Value returns the element at i.
func (v *Vector[T]) Value(i uint64) (T, error) {
	var zero T
	if i >= v.len {
		return zero, dberr.NewIndexOutOfBounds(i, v.len)
	}
	raw, err := v.storage.ValueAt(v.index, v.offset(i), v.codec.Size)
	if err != nil {
		return zero, err
	}
	return v.codec.Decode(raw)
}

// RawAt returns the undecoded bytes of the element at i. Used internally
// by HashMap/MultiMap to relocate slots during rehash without decoding
// and re-encoding values that may carry outlined state (e.g. strings).
func (v *Vector[T]) RawAt(i uint64) ([]byte, error) {
	if i >= v.len {
		return nil, dberr.NewIndexOutOfBounds(i, v.len)
	}
	return v.storage.ValueAt(v.index, v.offset(i), v.codec.Size)
}

// SetRaw overwrites the element at i with already-encoded bytes.
func (v *Vector[T]) SetRaw(i uint64, raw []byte) error {
	if i >= v.len {
		return dberr.NewIndexOutOfBounds(i, v.len)
	}
	_, err := v.storage.InsertAt(v.index, v.offset(i), raw)
	return err
}

// SetValue overwrites the element at i.
func (v *Vector[T]) SetValue(i uint64, value T) error {
	if i >= v.len {
		return dberr.NewIndexOutOfBounds(i, v.len)
	}
	raw, err := v.codec.Encode(nil, value)
	if err != nil {
		return err
	}
	return v.SetRaw(i, raw)
}

// Push appends value, growing storage if the vector is at capacity.
func (v *Vector[T]) Push(value T) error {
	tx := v.storage.Transaction()

	if v.len == v.capacity {
		newCap := v.capacity * 2
		if newCap < minVectorCapacity {
			newCap = minVectorCapacity
		}
		if err := v.reallocate(newCap); err != nil {
			return err
		}
	}

	raw, err := v.codec.Encode(nil, value)
	if err != nil {
		return err
	}
	if _, err := v.storage.InsertAt(v.index, v.offset(v.len), raw); err != nil {
		return err
	}
	v.len++
	if err := v.writeLen(); err != nil {
		return err
	}
	return v.storage.Commit(tx)
}

// Remove deletes the element at i, shifting the tail down by one slot.
func (v *Vector[T]) Remove(i uint64) error {
	if i >= v.len {
		return dberr.NewIndexOutOfBounds(i, v.len)
	}

	fromOff := v.offset(i + 1)
	toOff := v.offset(i)
	size := v.offset(v.len) - fromOff

	tx := v.storage.Transaction()
	if size > 0 {
		if err := v.storage.MoveAt(v.index, fromOff, toOff, size); err != nil {
			return err
		}
	}
	v.len--
	if err := v.writeLen(); err != nil {
		return err
	}
	return v.storage.Commit(tx)
}

// Reserve grows capacity to at least capacity, a no-op if already larger.
func (v *Vector[T]) Reserve(capacity uint64) error {
	if capacity <= v.capacity {
		return nil
	}
	return v.reallocate(capacity)
}

// Resize changes the logical length, zero-filling new elements when
// growing and reserving capacity as needed.
func (v *Vector[T]) Resize(size uint64) error {
	if size == v.len {
		return nil
	}

	tx := v.storage.Transaction()
	if size < v.len {
		offset := v.offset(size)
		if err := v.storage.ResizeValue(v.index, offset); err != nil {
			return err
		}
		v.capacity = size
	} else if v.capacity < size {
		if err := v.reallocate(size); err != nil {
			return err
		}
	}
	if size > v.len {
		gap := make([]byte, v.offset(size)-v.offset(v.len))
		if _, err := v.storage.InsertAt(v.index, v.offset(v.len), gap); err != nil {
			return err
		}
	}
	v.len = size
	if err := v.writeLen(); err != nil {
		return err
	}
	return v.storage.Commit(tx)
}

// ShrinkToFit trims reserved capacity down to the current length.
func (v *Vector[T]) ShrinkToFit() error {
	return v.reallocate(v.len)
}

// ToSlice decodes and returns every element in order.
func (v *Vector[T]) ToSlice() ([]T, error) {
	out := make([]T, v.len)
	for i := uint64(0); i < v.len; i++ {
		val, err := v.Value(i)
		if err != nil {
			return nil, err
		}
		out[i] = val
	}
	return out, nil
}

func (v *Vector[T]) reallocate(newCapacity uint64) error {
	v.capacity = newCapacity
	return v.storage.ResizeValue(v.index, v.offset(newCapacity))
}

func (v *Vector[T]) writeLen() error {
	_, err := v.storage.InsertAt(v.index, 0, serialize.PutU64(nil, v.len))
	return err
}
