// Package doc is the document model shared by the validator, the reducer and
// the combiner.
//
// A document may be held in one of three realizations, all of which satisfy
// Node:
//
//   - HeapNode, owned and allocated from an Arena;
//   - Borrowed, a view over a document parsed by valyala/fastjson;
//   - Archived, a view over the binary archive encoding produced by Encode.
//
// Lazy wraps any of them behind one non-generic type and is what most
// callers pass around.
package doc

// Kind classifies a document node.
type Kind uint8

const (
	Null Kind = iota
	Bool
	PosInt // unsigned integer
	NegInt // signed integer below zero
	Float
	String
	Bytes
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "boolean"
	case PosInt, NegInt:
		return "integer"
	case Float:
		return "number"
	case String:
		return "string"
	case Bytes:
		return "bytes"
	case Array:
		return "array"
	case Object:
		return "object"
	}
	return "unknown"
}

// IsNumber reports whether k is one of the numeric kinds.
func (k Kind) IsNumber() bool { return k == PosInt || k == NegInt || k == Float }

// Node is the read-only access pattern implemented by every realization.
// Accessors other than Kind are only meaningful for the matching kind.
// Object fields are ordered by property name and names are unique.
type Node[N any] interface {
	Kind() Kind
	Bool() bool
	PosInt() uint64
	NegInt() int64
	Float() float64
	Str() string
	Bytes() []byte
	// Len is the number of array items or object fields.
	Len() int
	Item(i int) N
	Field(i int) (string, N)
	// TapeLength is the number of nodes in this subtree, itself included.
	TapeLength() int
}

// Structure is the coarse form returned by Lazy.Destructure.
type Structure uint8

const (
	Scalar Structure = iota
	ArrayStructure
	ObjectStructure
)

// FindField looks up a property of an object node by binary search.
func FindField[N Node[N]](n N, property string) (N, bool) {
	lo, hi := 0, n.Len()
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		name, _ := n.Field(mid)
		if name < property {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < n.Len() {
		if name, v := n.Field(lo); name == property {
			return v, true
		}
	}
	var zero N
	return zero, false
}
