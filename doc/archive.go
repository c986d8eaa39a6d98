package doc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unsafe"
)

// Archive tags.
const (
	tagNull byte = iota
	tagFalse
	tagTrue
	tagPosInt
	tagNegInt
	tagFloat
	tagString
	tagBytes
	tagArray
	tagObject
)

// ErrCorruptArchive is returned by OpenArchive for a malformed buffer.
var ErrCorruptArchive = errors.New("doc: corrupt archive")

var le = binary.LittleEndian

// Encode appends the archive encoding of n to dst. Offsets inside the
// encoding are relative to the position at which encoding began, so the
// appended region can be opened on its own with OpenArchive.
//
// Layout: a tag byte, then 8 bytes for numbers, a u32 length and the bytes for
// strings, or for containers a u32 count, a u32 tape length and a table of
// u32 child offsets followed by the children. Object children are a u32
// name length, the name, and the value.
func Encode[N Node[N]](dst []byte, n N) []byte {
	return encodeAt(dst, len(dst), n)
}

func encodeAt[N Node[N]](dst []byte, base int, n N) []byte {
	switch n.Kind() {
	case Null:
		return append(dst, tagNull)
	case Bool:
		if n.Bool() {
			return append(dst, tagTrue)
		}
		return append(dst, tagFalse)
	case PosInt:
		return le.AppendUint64(append(dst, tagPosInt), n.PosInt())
	case NegInt:
		return le.AppendUint64(append(dst, tagNegInt), uint64(n.NegInt()))
	case Float:
		return le.AppendUint64(append(dst, tagFloat), math.Float64bits(n.Float()))
	case String:
		s := n.Str()
		dst = le.AppendUint32(append(dst, tagString), uint32(len(s)))
		return append(dst, s...)
	case Bytes:
		b := n.Bytes()
		dst = le.AppendUint32(append(dst, tagBytes), uint32(len(b)))
		return append(dst, b...)
	}

	tag := tagArray
	if n.Kind() == Object {
		tag = tagObject
	}
	count := n.Len()
	dst = append(dst, tag)
	dst = le.AppendUint32(dst, uint32(count))
	dst = le.AppendUint32(dst, uint32(n.TapeLength()))
	table := len(dst)
	dst = append(dst, make([]byte, 4*count)...)

	for i := 0; i < count; i++ {
		le.PutUint32(dst[table+4*i:], uint32(len(dst)-base))
		if tag == tagArray {
			dst = encodeAt(dst, base, n.Item(i))
		} else {
			name, v := n.Field(i)
			dst = le.AppendUint32(dst, uint32(len(name)))
			dst = append(dst, name...)
			dst = encodeAt(dst, base, v)
		}
	}
	return dst
}

// Archived is a view over an archive buffer. Accessors read the buffer in
// place and never allocate.
type Archived struct {
	buf []byte
	off uint32
}

// OpenArchive verifies buf holds exactly one well-formed document and returns
// a view of its root. The buffer must not be modified while views exist.
func OpenArchive(buf []byte) (Archived, error) {
	end, _, err := verify(buf, 0, 0)
	if err != nil {
		return Archived{}, err
	}
	if end != uint32(len(buf)) {
		return Archived{}, fmt.Errorf("%w: %d trailing bytes", ErrCorruptArchive, len(buf)-int(end))
	}
	return Archived{buf: buf}, nil
}

const maxArchiveDepth = 1 << 12

// verify checks the node at off and returns the offset just past it and its
// tape length.
func verify(buf []byte, off uint32, depth int) (uint32, uint32, error) {
	fail := func(what string) (uint32, uint32, error) {
		return 0, 0, fmt.Errorf("%w: %s at offset %d", ErrCorruptArchive, what, off)
	}
	if depth > maxArchiveDepth {
		return fail("nesting too deep")
	}
	n := uint32(len(buf))
	if off >= n {
		return fail("truncated node")
	}
	switch buf[off] {
	case tagNull, tagFalse, tagTrue:
		return off + 1, 1, nil
	case tagPosInt, tagNegInt, tagFloat:
		if n-off < 9 {
			return fail("truncated number")
		}
		return off + 9, 1, nil
	case tagString, tagBytes:
		if n-off < 5 {
			return fail("truncated length")
		}
		l := le.Uint32(buf[off+1:])
		if uint64(off)+5+uint64(l) > uint64(n) {
			return fail("string overruns buffer")
		}
		return off + 5 + l, 1, nil
	case tagArray, tagObject:
		if n-off < 9 {
			return fail("truncated header")
		}
		count := le.Uint32(buf[off+1:])
		tape := le.Uint32(buf[off+5:])
		table := uint64(off) + 9
		if table+4*uint64(count) > uint64(n) {
			return fail("offset table overruns buffer")
		}
		next := uint32(table + 4*uint64(count))
		sum := uint32(1)
		var prev string
		for i := uint32(0); i < count; i++ {
			child := le.Uint32(buf[uint32(table)+4*i:])
			if child != next {
				return fail("child out of place")
			}
			if buf[off] == tagObject {
				if n-child < 4 {
					return fail("truncated property")
				}
				l := le.Uint32(buf[child:])
				if uint64(child)+4+uint64(l) > uint64(n) {
					return fail("property overruns buffer")
				}
				name := b2s(buf[child+4 : child+4+l])
				if i > 0 && name <= prev {
					return fail("properties out of order")
				}
				prev = name
				child += 4 + l
			}
			end, t, err := verify(buf, child, depth+1)
			if err != nil {
				return 0, 0, err
			}
			next, sum = end, sum+t
		}
		if sum != tape {
			return fail("tape length mismatch")
		}
		return next, tape, nil
	}
	return fail("unknown tag")
}

func (a Archived) tag() byte { return a.buf[a.off] }

func (a Archived) Kind() Kind {
	switch a.tag() {
	case tagNull:
		return Null
	case tagFalse, tagTrue:
		return Bool
	case tagPosInt:
		return PosInt
	case tagNegInt:
		return NegInt
	case tagFloat:
		return Float
	case tagString:
		return String
	case tagBytes:
		return Bytes
	case tagArray:
		return Array
	}
	return Object
}

func (a Archived) Bool() bool     { return a.tag() == tagTrue }
func (a Archived) PosInt() uint64 { return le.Uint64(a.buf[a.off+1:]) }
func (a Archived) NegInt() int64  { return int64(le.Uint64(a.buf[a.off+1:])) }
func (a Archived) Float() float64 { return math.Float64frombits(le.Uint64(a.buf[a.off+1:])) }

func (a Archived) Bytes() []byte {
	l := le.Uint32(a.buf[a.off+1:])
	return a.buf[a.off+5 : a.off+5+l]
}

func (a Archived) Len() int { return int(le.Uint32(a.buf[a.off+1:])) }

func (a Archived) Str() string {
	b := a.Bytes()
	return unsafe.String(unsafe.SliceData(b), len(b))
}

func (a Archived) TapeLength() int {
	if t := a.tag(); t == tagArray || t == tagObject {
		return int(le.Uint32(a.buf[a.off+5:]))
	}
	return 1
}

func (a Archived) child(i int) uint32 { return le.Uint32(a.buf[a.off+9+4*uint32(i):]) }

func (a Archived) Item(i int) Archived { return Archived{buf: a.buf, off: a.child(i)} }

func (a Archived) Field(i int) (string, Archived) {
	at := a.child(i)
	l := le.Uint32(a.buf[at:])
	name := a.buf[at+4 : at+4+l]
	return unsafe.String(unsafe.SliceData(name), len(name)), Archived{buf: a.buf, off: at + 4 + l}
}
