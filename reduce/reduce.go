// Package reduce merges two documents that share a key, guided by the
// strategy annotated at each location of the right-hand document.
package reduce

import (
	"fmt"

	"github.com/reoring/flowdoc/doc"
)

// TapeEntry is the reduction strategy and subtree hash of one node of a
// validated document.
type TapeEntry struct {
	Strategy Strategy
	Hash     uint64
}

// Tape holds one TapeEntry per node of a document, in pre-order. Tapes are
// produced by schema.Valid.ReduceTape.
type Tape []TapeEntry

// DefaultStrategy applies at locations with no reduce annotation.
var DefaultStrategy Strategy = LastWriteWins{Associative: true}

type tapeReader struct {
	tape Tape
	pos  int
}

// Cursor is the state handed to a Strategy: the two values to reduce, where
// they sit in the document, and the unread remainder of the RHS tape.
//
// A Strategy must advance the tape past every RHS node it consumes, either
// by reducing children through Child or by calling one of the Take or Skip
// helpers.
type Cursor struct {
	tape  *tapeReader
	Ptr   doc.Pointer
	Full  bool
	LHS   doc.Lazy // absent when the location is missing on the left
	RHS   doc.Lazy
	Arena *doc.Arena
}

// Reduce folds rhs into lhs. A full reduction may discard values that only
// matter between partial reductions, such as deleted properties. The
// returned flag reports that the root document itself is deleted.
//
// tape must come from validating rhs; Reduce panics if it is not consumed
// exactly, since that means the two are out of step.
func Reduce(lhs, rhs doc.Lazy, tape Tape, arena *doc.Arena, full bool) (doc.HeapNode, bool, error) {
	tr := &tapeReader{tape: tape}
	c := Cursor{tape: tr, Full: full, LHS: lhs, RHS: rhs, Arena: arena}
	out, del, err := c.Reduce()
	if err != nil {
		return doc.HeapNode{}, false, err
	}
	if tr.pos != len(tape) {
		panic(fmt.Sprintf("reduce: tape has %d entries but %d were consumed", len(tape), tr.pos))
	}
	return out, del, nil
}

// Reduce applies the strategy at the head of the tape.
func (c *Cursor) Reduce() (doc.HeapNode, bool, error) {
	if c.tape.pos >= len(c.tape.tape) {
		panic("reduce: tape exhausted")
	}
	return c.tape.tape[c.tape.pos].Strategy.Apply(c)
}

// Skip advances the tape by n nodes.
func (c *Cursor) Skip(n int) { c.tape.pos += n }

// SkipRHS advances the tape past the whole RHS subtree.
func (c *Cursor) SkipRHS() { c.Skip(c.RHS.TapeLength()) }

// TakeRHS returns the RHS as an owned node and skips its subtree.
func (c *Cursor) TakeRHS() doc.HeapNode {
	c.SkipRHS()
	return c.RHS.IntoHeap(c.Arena)
}

// TakeLHS returns the LHS as an owned node and skips the RHS subtree.
func (c *Cursor) TakeLHS() doc.HeapNode {
	c.SkipRHS()
	return c.LHS.IntoHeap(c.Arena)
}

// ChildProp returns a cursor for property name. lhs may be absent.
func (c *Cursor) ChildProp(name string, lhs, rhs doc.Lazy) *Cursor {
	return &Cursor{tape: c.tape, Ptr: c.Ptr.Push(name), Full: c.Full, LHS: lhs, RHS: rhs, Arena: c.Arena}
}

// ChildItem returns a cursor for array index i. lhs may be absent.
func (c *Cursor) ChildItem(i int, lhs, rhs doc.Lazy) *Cursor {
	return &Cursor{tape: c.tape, Ptr: c.Ptr.PushIndex(i), Full: c.Full, LHS: lhs, RHS: rhs, Arena: c.Arena}
}

// Fail wraps err with the location and both values.
func (c *Cursor) Fail(err error) error {
	e := &Error{Ptr: c.Ptr.String(), Err: err}
	if c.LHS.Present() {
		e.LHS = render(c.LHS)
	}
	e.RHS = render(c.RHS)
	return e
}

func render(l doc.Lazy) string {
	b, err := doc.MarshalJSON(l, doc.DebugPolicy())
	if err != nil {
		return "<" + err.Error() + ">"
	}
	return string(b)
}

// Key orders documents by relative pointers. A location missing from a
// document orders before any value, null included.
type Key []doc.Pointer

// ParseKey parses JSON Pointers.
func ParseKey(ptrs []string) Key {
	k := make(Key, len(ptrs))
	for i, p := range ptrs {
		k[i] = doc.NewPointer(p)
	}
	return k
}

// Compare orders a and b by each pointer in turn.
func (k Key) Compare(a, b doc.Lazy) int {
	for _, p := range k {
		av, bv := p.Query(a), p.Query(b)
		switch {
		case !av.Present() && !bv.Present():
			continue
		case !av.Present():
			return -1
		case !bv.Present():
			return 1
		}
		if c := doc.Compare(av, bv); c != 0 {
			return c
		}
	}
	return 0
}

// mergeJoin walks two sorted sequences of lengths nl and nr in step. visit
// receives -1 for the side that has no counterpart.
func mergeJoin(nl, nr int, cmp func(l, r int) int, visit func(l, r int) error) error {
	l, r := 0, 0
	for l < nl || r < nr {
		var err error
		switch {
		case r == nr:
			err = visit(l, -1)
			l++
		case l == nl:
			err = visit(-1, r)
			r++
		default:
			switch c := cmp(l, r); {
			case c < 0:
				err = visit(l, -1)
				l++
			case c > 0:
				err = visit(-1, r)
				r++
			default:
				err = visit(l, r)
				l++
				r++
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// objectBuilder accumulates the fields of a reduced object.
type objectBuilder struct {
	a      *doc.Arena
	fields []doc.HeapField
}

func (b *objectBuilder) push(name string, v doc.HeapNode) {
	b.fields = append(b.fields, doc.HeapField{Property: name, Value: v})
}

func (b *objectBuilder) build() doc.HeapNode {
	out := b.a.Fields(len(b.fields))
	copy(out, b.fields)
	return doc.NewObject(out)
}

type arrayBuilder struct {
	a     *doc.Arena
	items []doc.HeapNode
}

func (b *arrayBuilder) push(v doc.HeapNode) { b.items = append(b.items, v) }

func (b *arrayBuilder) build() doc.HeapNode {
	out := b.a.Items(len(b.items))
	copy(out, b.items)
	return doc.NewArray(out)
}

// ownedName returns a property name safe to keep in a HeapNode.
func ownedName(a *doc.Arena, l doc.Lazy, name string) string {
	if l.IsHeap() {
		return name
	}
	return a.String(name)
}
