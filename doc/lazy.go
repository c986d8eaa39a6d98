package doc

// Lazy is one node of any realization, or an absent node. It satisfies
// Node[Lazy] so generic helpers apply, and it is the type passed through the
// validator, the reducer and the combiner.
type Lazy struct {
	form form
	heap *HeapNode
	bd   *borrowedDoc
	buf  []byte
	idx  uint32
}

type form uint8

const (
	formAbsent form = iota
	formHeap
	formBorrowed
	formArchived
)

// FromHeap wraps an owned node. The node must not be modified while the Lazy
// is in use.
func FromHeap(n *HeapNode) Lazy { return Lazy{form: formHeap, heap: n} }

func FromBorrowed(b Borrowed) Lazy { return Lazy{form: formBorrowed, bd: b.d, idx: uint32(b.i)} }

func FromArchived(a Archived) Lazy { return Lazy{form: formArchived, buf: a.buf, idx: a.off} }

// Present is false for the zero Lazy, which stands for a missing location.
func (l Lazy) Present() bool { return l.form != formAbsent }

// IsHeap reports whether l wraps a HeapNode.
func (l Lazy) IsHeap() bool { return l.form == formHeap }

func (l Lazy) borrowed() Borrowed { return Borrowed{d: l.bd, i: int32(l.idx)} }
func (l Lazy) archived() Archived { return Archived{buf: l.buf, off: l.idx} }

// IntoHeap returns an owned form of l. Heap nodes are returned as-is and
// share their children with the original; other forms are copied into a.
func (l Lazy) IntoHeap(a *Arena) HeapNode {
	switch l.form {
	case formHeap:
		return *l.heap
	case formBorrowed:
		return IntoHeap(a, l.borrowed())
	case formArchived:
		return IntoHeap(a, l.archived())
	}
	return HeapNode{}
}

// Destructure reports whether l is a scalar, an array or an object.
func (l Lazy) Destructure() Structure {
	switch l.Kind() {
	case Array:
		return ArrayStructure
	case Object:
		return ObjectStructure
	}
	return Scalar
}

func (l Lazy) Kind() Kind {
	switch l.form {
	case formHeap:
		return l.heap.kind
	case formBorrowed:
		return l.borrowed().Kind()
	case formArchived:
		return l.archived().Kind()
	}
	return Null
}

func (l Lazy) Bool() bool {
	switch l.form {
	case formHeap:
		return l.heap.Bool()
	case formBorrowed:
		return l.borrowed().Bool()
	case formArchived:
		return l.archived().Bool()
	}
	return false
}

func (l Lazy) PosInt() uint64 {
	switch l.form {
	case formHeap:
		return l.heap.PosInt()
	case formBorrowed:
		return l.borrowed().PosInt()
	case formArchived:
		return l.archived().PosInt()
	}
	return 0
}

func (l Lazy) NegInt() int64 {
	switch l.form {
	case formHeap:
		return l.heap.NegInt()
	case formBorrowed:
		return l.borrowed().NegInt()
	case formArchived:
		return l.archived().NegInt()
	}
	return 0
}

func (l Lazy) Float() float64 {
	switch l.form {
	case formHeap:
		return l.heap.Float()
	case formBorrowed:
		return l.borrowed().Float()
	case formArchived:
		return l.archived().Float()
	}
	return 0
}

func (l Lazy) Str() string {
	switch l.form {
	case formHeap:
		return l.heap.str
	case formBorrowed:
		return l.borrowed().Str()
	case formArchived:
		return l.archived().Str()
	}
	return ""
}

func (l Lazy) Bytes() []byte {
	switch l.form {
	case formHeap:
		return l.heap.Bytes()
	case formBorrowed:
		return l.borrowed().Bytes()
	case formArchived:
		return l.archived().Bytes()
	}
	return nil
}

func (l Lazy) Len() int {
	switch l.form {
	case formHeap:
		return l.heap.Len()
	case formBorrowed:
		return l.borrowed().Len()
	case formArchived:
		return l.archived().Len()
	}
	return 0
}

func (l Lazy) Item(i int) Lazy {
	switch l.form {
	case formHeap:
		return FromHeap(&l.heap.items[i])
	case formBorrowed:
		return FromBorrowed(l.borrowed().Item(i))
	case formArchived:
		return FromArchived(l.archived().Item(i))
	}
	return Lazy{}
}

func (l Lazy) Field(i int) (string, Lazy) {
	switch l.form {
	case formHeap:
		f := &l.heap.fields[i]
		return f.Property, FromHeap(&f.Value)
	case formBorrowed:
		name, v := l.borrowed().Field(i)
		return name, FromBorrowed(v)
	case formArchived:
		name, v := l.archived().Field(i)
		return name, FromArchived(v)
	}
	return "", Lazy{}
}

// TapeLength is 0 for an absent node.
func (l Lazy) TapeLength() int {
	switch l.form {
	case formHeap:
		return l.heap.TapeLength()
	case formBorrowed:
		return l.borrowed().TapeLength()
	case formArchived:
		return l.archived().TapeLength()
	}
	return 0
}

// Get returns the value of property when l is an object holding it. The
// result is absent otherwise.
func (l Lazy) Get(property string) Lazy {
	if l.Kind() != Object {
		return Lazy{}
	}
	v, _ := FindField(l, property)
	return v
}
