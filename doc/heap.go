package doc

import (
	"math"
	"slices"
	"strings"
	"unsafe"
)

// HeapNode is an owned document node. The zero value is null.
//
// Containers record their tape length when they are built, so TapeLength is
// O(1) at every level. HeapNode values are immutable once built; reductions
// produce new nodes that may share unchanged children.
type HeapNode struct {
	kind   Kind
	tape   int32
	num    uint64 // bool, PosInt, NegInt bits or Float bits
	str    string // String or Bytes
	items  []HeapNode
	fields []HeapField
}

// HeapField is one property of a HeapNode object.
type HeapField struct {
	Property string
	Value    HeapNode
}

func NewNull() HeapNode { return HeapNode{} }

func NewBool(b bool) HeapNode {
	n := HeapNode{kind: Bool}
	if b {
		n.num = 1
	}
	return n
}

func NewPosInt(u uint64) HeapNode { return HeapNode{kind: PosInt, num: u} }

// NewInt returns a PosInt for non-negative values and a NegInt otherwise.
func NewInt(i int64) HeapNode {
	if i >= 0 {
		return HeapNode{kind: PosInt, num: uint64(i)}
	}
	return HeapNode{kind: NegInt, num: uint64(i)}
}

func NewFloat(f float64) HeapNode { return HeapNode{kind: Float, num: math.Float64bits(f)} }

// NewString returns a string node referencing s without copying it.
func NewString(s string) HeapNode { return HeapNode{kind: String, str: s} }

// NewBytes returns a bytes node referencing b without copying it.
func NewBytes(b []byte) HeapNode {
	return HeapNode{kind: Bytes, str: unsafe.String(unsafe.SliceData(b), len(b))}
}

// NewArray wraps items, which the caller must not modify afterwards.
func NewArray(items []HeapNode) HeapNode {
	tape := 1
	for i := range items {
		tape += items[i].TapeLength()
	}
	return HeapNode{kind: Array, items: items, tape: int32(tape)}
}

// NewObject wraps fields, which must already be ordered by property and
// unique. Use SortFields when that is not known to hold.
func NewObject(fields []HeapField) HeapNode {
	tape := 1
	for i := range fields {
		tape += fields[i].Value.TapeLength()
	}
	return HeapNode{kind: Object, fields: fields, tape: int32(tape)}
}

// SortFields orders fields by property in place. Where a property repeats,
// the last occurrence wins. The returned slice aliases fields.
func SortFields(fields []HeapField) []HeapField {
	if slices.IsSortedFunc(fields, func(a, b HeapField) int { return strings.Compare(a.Property, b.Property) }) &&
		!hasAdjacentDup(fields) {
		return fields
	}
	slices.SortStableFunc(fields, func(a, b HeapField) int { return strings.Compare(a.Property, b.Property) })
	out := fields[:0]
	for i := range fields {
		if i+1 < len(fields) && fields[i+1].Property == fields[i].Property {
			continue
		}
		out = append(out, fields[i])
	}
	return out
}

func hasAdjacentDup(fields []HeapField) bool {
	for i := 1; i < len(fields); i++ {
		if fields[i].Property == fields[i-1].Property {
			return true
		}
	}
	return false
}

func (n HeapNode) Kind() Kind          { return n.kind }
func (n HeapNode) Bool() bool          { return n.num != 0 }
func (n HeapNode) PosInt() uint64      { return n.num }
func (n HeapNode) NegInt() int64       { return int64(n.num) }
func (n HeapNode) Float() float64      { return math.Float64frombits(n.num) }
func (n HeapNode) Str() string         { return n.str }
func (n HeapNode) Bytes() []byte       { return unsafe.Slice(unsafe.StringData(n.str), len(n.str)) }
func (n HeapNode) Item(i int) HeapNode { return n.items[i] }

func (n HeapNode) Field(i int) (string, HeapNode) {
	f := &n.fields[i]
	return f.Property, f.Value
}

func (n HeapNode) Len() int {
	switch n.kind {
	case Array:
		return len(n.items)
	case Object:
		return len(n.fields)
	}
	return 0
}

func (n HeapNode) TapeLength() int {
	if n.kind == Array || n.kind == Object {
		return int(n.tape)
	}
	return 1
}

// Items exposes the array items of n.
func (n HeapNode) Items() []HeapNode { return n.items }

// Fields exposes the object fields of n.
func (n HeapNode) Fields() []HeapField { return n.fields }

// Get returns the value of property, if n is an object holding it.
func (n HeapNode) Get(property string) (HeapNode, bool) {
	if n.kind != Object {
		return HeapNode{}, false
	}
	i, ok := slices.BinarySearchFunc(n.fields, property, func(f HeapField, p string) int {
		return strings.Compare(f.Property, p)
	})
	if !ok {
		return HeapNode{}, false
	}
	return n.fields[i].Value, true
}

// IntoHeap deep-copies any realization into the arena.
func IntoHeap[N Node[N]](a *Arena, n N) HeapNode {
	switch k := n.Kind(); k {
	case Null:
		return HeapNode{}
	case Bool:
		return NewBool(n.Bool())
	case PosInt:
		return NewPosInt(n.PosInt())
	case NegInt:
		return NewInt(n.NegInt())
	case Float:
		return NewFloat(n.Float())
	case String:
		return NewString(a.String(n.Str()))
	case Bytes:
		b := n.Bytes()
		return HeapNode{kind: Bytes, str: a.String(unsafe.String(unsafe.SliceData(b), len(b)))}
	case Array:
		items := a.Items(n.Len())
		for i := range items {
			items[i] = IntoHeap(a, n.Item(i))
		}
		return NewArray(items)
	default:
		fields := a.Fields(n.Len())
		for i := range fields {
			name, v := n.Field(i)
			fields[i] = HeapField{Property: a.String(name), Value: IntoHeap(a, v)}
		}
		return NewObject(fields)
	}
}
