package doc

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Hash is a content hash of a document which agrees with Compare: nodes that
// compare equal hash equal, whatever their realization. Integral floats hash
// as the integer they represent and -0 hashes as 0.
func Hash[N Node[N]](n N) uint64 {
	d := xxhash.New()
	var scratch [9]byte
	hashInto(d, &scratch, n)
	return d.Sum64()
}

func hashInto[N Node[N]](d *xxhash.Digest, scratch *[9]byte, n N) {
	word := func(tag byte, v uint64) {
		scratch[0] = tag
		binary.LittleEndian.PutUint64(scratch[1:], v)
		_, _ = d.Write(scratch[:])
	}
	switch k := n.Kind(); k {
	case Null:
		_, _ = d.Write([]byte{byte(Null)})
	case Bool:
		var v uint64
		if n.Bool() {
			v = 1
		}
		word(byte(Bool), v)
	case PosInt:
		word(byte(PosInt), n.PosInt())
	case NegInt:
		word(byte(NegInt), uint64(n.NegInt()))
	case Float:
		f := n.Float()
		if h, ok := integralFloat(f); ok {
			word(byte(h.kind), h.num)
		} else {
			word(byte(Float), NewFloat(f).num)
		}
	case String:
		s := n.Str()
		word(byte(String), uint64(len(s)))
		_, _ = d.WriteString(s)
	case Bytes:
		b := n.Bytes()
		word(byte(Bytes), uint64(len(b)))
		_, _ = d.Write(b)
	case Array:
		word(byte(Array), uint64(n.Len()))
		for i := 0; i < n.Len(); i++ {
			hashInto(d, scratch, n.Item(i))
		}
	case Object:
		word(byte(Object), uint64(n.Len()))
		for i := 0; i < n.Len(); i++ {
			name, v := n.Field(i)
			word(byte(String), uint64(len(name)))
			_, _ = d.WriteString(name)
			hashInto(d, scratch, v)
		}
	}
}

// SubtreeHashes appends a hash for every node of n, in pre-order, to dst.
// Scalars hash as Hash does. A container's hash covers its children's
// hashes rather than their content, so the whole tape costs one pass.
func SubtreeHashes[N Node[N]](dst []uint64, n N) []uint64 {
	dst, _ = subtreeHashes(dst, n)
	return dst
}

func subtreeHashes[N Node[N]](dst []uint64, n N) ([]uint64, uint64) {
	k := n.Kind()
	if k != Array && k != Object {
		h := Hash(n)
		return append(dst, h), h
	}
	at := len(dst)
	dst = append(dst, 0)

	var buf [9]byte
	d := xxhash.New()
	buf[0] = byte(k)
	binary.LittleEndian.PutUint64(buf[1:], uint64(n.Len()))
	_, _ = d.Write(buf[:])

	var h uint64
	for i := 0; i < n.Len(); i++ {
		var c N
		if k == Object {
			var name string
			name, c = n.Field(i)
			_, _ = d.WriteString(name)
			_, _ = d.Write([]byte{0})
		} else {
			c = n.Item(i)
		}
		dst, h = subtreeHashes(dst, c)
		binary.LittleEndian.PutUint64(buf[1:], h)
		_, _ = d.Write(buf[1:])
	}
	dst[at] = d.Sum64()
	return dst, dst[at]
}
