package agdb

import "github.com/agnesoft/agdb-go/pkg/serialize"

// descriptorSize is 13 u64 values: the graph's own descriptor index,
// the alias bidirectional map's eight sub-indices, and the value
// multi-map's four sub-indices. See SPEC_FULL.md "Facade descriptor
// layout" for why this replaces the original's four-index, 32-byte
// record.
const descriptorSize = 13 * 8

// descriptor is the decoded shape of storage index 1's payload.
type descriptor struct {
	graph    uint64
	aliasKTV [4]uint64 // alias -> id HashMap: state, key, value, len
	aliasVTK [4]uint64 // id -> alias HashMap: state, key, value, len
	values   [4]uint64 // id -> key/value MultiMap: state, key, value, len
}

func (d descriptor) encode() []byte {
	buf := serialize.PutU64(nil, d.graph)
	for _, v := range d.aliasKTV {
		buf = serialize.PutU64(buf, v)
	}
	for _, v := range d.aliasVTK {
		buf = serialize.PutU64(buf, v)
	}
	for _, v := range d.values {
		buf = serialize.PutU64(buf, v)
	}
	return buf
}

func decodeDescriptor(b []byte) (descriptor, error) {
	var d descriptor
	var err error
	read := func(offset int) uint64 {
		if err != nil {
			return 0
		}
		var v uint64
		v, err = serialize.U64(b[offset*8 : offset*8+8])
		return v
	}

	d.graph = read(0)
	for i := range d.aliasKTV {
		d.aliasKTV[i] = read(1 + i)
	}
	for i := range d.aliasVTK {
		d.aliasVTK[i] = read(5 + i)
	}
	for i := range d.values {
		d.values[i] = read(9 + i)
	}
	return d, err
}
