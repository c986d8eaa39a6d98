package doc

import "unsafe"

const (
	nodeSlab  = 4096
	fieldSlab = 2048
	byteSlab  = 64 << 10

	nodeSize  = int(unsafe.Sizeof(HeapNode{}))
	fieldSize = int(unsafe.Sizeof(HeapField{}))
)

// Arena is a bump allocator for HeapNode documents. Slices handed out are
// capped at their length, so appending to one never writes into a neighbour.
//
// An Arena is not safe for concurrent use. Reset drops every slab; documents
// allocated before a Reset remain valid for as long as they are referenced.
type Arena struct {
	nodes  []HeapNode
	fields []HeapField
	bytes  []byte
	used   int
}

// NewArena returns an empty arena.
func NewArena() *Arena { return &Arena{} }

// Used is the number of bytes handed out since the last Reset.
func (a *Arena) Used() int { return a.used }

// Reset releases all slabs.
func (a *Arena) Reset() {
	a.nodes, a.fields, a.bytes = nil, nil, nil
	a.used = 0
}

// Items allocates n zeroed nodes.
func (a *Arena) Items(n int) []HeapNode {
	if n == 0 {
		return nil
	}
	if cap(a.nodes)-len(a.nodes) < n {
		a.nodes = make([]HeapNode, 0, max(n, nodeSlab))
	}
	l := len(a.nodes)
	a.nodes = a.nodes[:l+n]
	a.used += n * nodeSize
	return a.nodes[l : l+n : l+n]
}

// Fields allocates n zeroed fields.
func (a *Arena) Fields(n int) []HeapField {
	if n == 0 {
		return nil
	}
	if cap(a.fields)-len(a.fields) < n {
		a.fields = make([]HeapField, 0, max(n, fieldSlab))
	}
	l := len(a.fields)
	a.fields = a.fields[:l+n]
	a.used += n * fieldSize
	return a.fields[l : l+n : l+n]
}

// String copies s into the arena.
func (a *Arena) String(s string) string {
	if len(s) == 0 {
		return ""
	}
	b := a.alloc(len(s))
	copy(b, s)
	return unsafe.String(unsafe.SliceData(b), len(b))
}

func (a *Arena) alloc(n int) []byte {
	if n > byteSlab/4 {
		a.used += n
		return make([]byte, n)
	}
	if cap(a.bytes)-len(a.bytes) < n {
		a.bytes = make([]byte, 0, byteSlab)
	}
	l := len(a.bytes)
	a.bytes = a.bytes[:l+n]
	a.used += n
	return a.bytes[l : l+n : l+n]
}
