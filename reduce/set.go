package reduce

import (
	"strings"

	"github.com/reoring/flowdoc/doc"
)

// Set reduces documents of the form {"add": A, "intersect": I} or
// {"add": A, "remove": R}, where terms are either all objects (keyed by
// property) or all arrays (ordered by Key, or by whole item when Key is
// empty). Full reductions apply and then drop the intersect and remove
// terms.
type Set struct{ Key Key }

func (Set) Name() string { return "set" }

const (
	termAdd = iota
	termIntersect
	termRemove
)

var termNames = [3]string{"add", "intersect", "remove"}

// Masks selecting which outcomes of a term's merge-join are kept.
const (
	keepNone  = 0
	keepLeft  = 1
	keepRight = 2
	keepBoth  = 4
	keepUnion = keepLeft | keepRight | keepBoth
)

type setTerms [3]doc.Lazy

func unpackSet(c *Cursor, n doc.Lazy, terms *setTerms, arrays, objects *bool) error {
	for i := 0; i < n.Len(); i++ {
		name, v := n.Field(i)
		t := -1
		switch name {
		case "add":
			t = termAdd
		case "intersect":
			t = termIntersect
		case "remove":
			if !terms[termIntersect].Present() {
				t = termRemove
			}
		}
		k := v.Kind()
		if t < 0 || (k != doc.Array && k != doc.Object) {
			return &Error{Ptr: c.Ptr.Push(name).String(), RHS: render(v), Err: ErrSetWrongType}
		}
		terms[t] = v
		*arrays = *arrays || k == doc.Array
		*objects = *objects || k == doc.Object
	}
	return nil
}

func (s Set) Apply(c *Cursor) (doc.HeapNode, bool, error) {
	if c.RHS.Kind() != doc.Object || (c.LHS.Present() && c.LHS.Kind() != doc.Object) {
		return doc.HeapNode{}, false, c.Fail(ErrSetWrongType)
	}
	var lt, rt setTerms
	var arrays, objects bool
	if c.LHS.Present() {
		if err := unpackSet(c, c.LHS, &lt, &arrays, &objects); err != nil {
			return doc.HeapNode{}, false, err
		}
	}
	if err := unpackSet(c, c.RHS, &rt, &arrays, &objects); err != nil {
		return doc.HeapNode{}, false, err
	}
	if arrays && objects {
		return doc.HeapNode{}, false, c.Fail(ErrSetWrongType)
	}
	c.Skip(1)

	b := setBuilder{c: c, key: s.Key, objects: objects}
	out := objectBuilder{a: c.Arena}
	// Terms are pushed in property order.
	push := func(t int, n doc.HeapNode, ok bool) {
		if ok {
			out.push(termNames[t], n)
		}
	}
	// In full reductions the second term is still walked, to consume its
	// tape, but it's not emitted.
	second := func(mask int) int {
		if c.Full {
			return keepNone
		}
		return mask
	}

	la, li, lr := lt[termAdd], lt[termIntersect], lt[termRemove]
	ra, ri, rr := rt[termAdd], rt[termIntersect], rt[termRemove]

	var n doc.HeapNode
	var ok bool
	var err error

	switch {
	case li.Present() && ri.Present():
		// add: (LA & RI) | RA. intersect: LI & RI.
		if n, ok, err = b.term(termAdd, la, ri, true, keepUnion, ra); err != nil {
			break
		}
		push(termAdd, n, ok)
		if n, ok, err = b.term(termIntersect, li, doc.Lazy{}, false, second(keepBoth), ri); err != nil {
			break
		}
		push(termIntersect, n, ok && !c.Full)

	case li.Present():
		// add: (LA - RR) | RA. intersect: LI - RR.
		if n, ok, err = b.term(termAdd, la, rr, false, keepUnion, ra); err != nil {
			break
		}
		push(termAdd, n, ok)
		if n, ok, err = b.term(termRemove, li, doc.Lazy{}, false, second(keepLeft), rr); err != nil {
			break
		}
		push(termIntersect, n, ok && !c.Full)

	case ri.Present():
		// add: (LA & RI) | RA. intersect: RI - LR.
		if n, ok, err = b.term(termAdd, la, ri, true, keepUnion, ra); err != nil {
			break
		}
		push(termAdd, n, ok)
		if n, ok, err = b.term(termIntersect, lr, doc.Lazy{}, false, second(keepRight), ri); err != nil {
			break
		}
		push(termIntersect, n, ok && !c.Full)

	default:
		// add: (LA - RR) | RA. remove: LR | RR.
		if n, ok, err = b.term(termAdd, la, rr, false, keepUnion, ra); err != nil {
			break
		}
		push(termAdd, n, ok)
		if n, ok, err = b.term(termRemove, lr, doc.Lazy{}, false, second(keepUnion), rr); err != nil {
			break
		}
		push(termRemove, n, ok && !c.Full)
	}
	if err != nil {
		return doc.HeapNode{}, false, err
	}
	return out.build(), false, nil
}

type setBuilder struct {
	c       *Cursor
	key     Key
	objects bool
}

func (b *setBuilder) compareItems(l, r doc.Lazy) int {
	if len(b.key) == 0 {
		return doc.Compare(l, r)
	}
	return b.key.Compare(l, r)
}

// term builds (lhs op1 sub) op2 rhs. op1 removes entries of lhs found in sub
// or, with naught, entries not found in sub. mask selects op2. The RHS
// container is consumed from the tape when present, and entries of rhs that
// aren't kept are skipped. ok is false when both lhs and rhs are absent.
func (b *setBuilder) term(t int, lhs, sub doc.Lazy, naught bool, mask int, rhs doc.Lazy) (doc.HeapNode, bool, error) {
	c := b.c
	if rhs.Present() {
		c.Skip(1)
	} else if !lhs.Present() {
		return doc.HeapNode{}, false, nil
	}
	tc := &Cursor{tape: c.tape, Ptr: c.Ptr.Push(termNames[t]), Full: c.Full, LHS: lhs, RHS: rhs, Arena: c.Arena}

	if b.objects {
		left := b.subtractFields(lhs, sub, naught)
		ob := objectBuilder{a: c.Arena}
		err := mergeJoin(len(left), rhs.Len(),
			func(l, r int) int {
				rn, _ := rhs.Field(r)
				return strings.Compare(left[l].name, rn)
			},
			func(l, r int) error {
				switch {
				case r < 0:
					if mask&keepLeft != 0 {
						ob.push(ownedName(c.Arena, lhs, left[l].name), left[l].value.IntoHeap(c.Arena))
					}
				case l < 0 && mask&keepRight != 0:
					name, v := rhs.Field(r)
					c.Skip(v.TapeLength())
					ob.push(ownedName(c.Arena, rhs, name), v.IntoHeap(c.Arena))
				case l >= 0 && mask&keepBoth != 0:
					name, v := rhs.Field(r)
					out, del, err := tc.ChildProp(name, left[l].value, v).Reduce()
					if err != nil {
						return err
					}
					if !del {
						ob.push(ownedName(c.Arena, rhs, name), out)
					}
				default:
					_, v := rhs.Field(r)
					c.Skip(v.TapeLength())
				}
				return nil
			})
		return ob.build(), true, err
	}

	left := b.subtractItems(lhs, sub, naught)
	ab := arrayBuilder{a: c.Arena}
	err := mergeJoin(len(left), rhs.Len(),
		func(l, r int) int { return b.compareItems(left[l], rhs.Item(r)) },
		func(l, r int) error {
			switch {
			case r < 0:
				if mask&keepLeft != 0 {
					ab.push(left[l].IntoHeap(c.Arena))
				}
			case l < 0 && mask&keepRight != 0:
				v := rhs.Item(r)
				c.Skip(v.TapeLength())
				ab.push(v.IntoHeap(c.Arena))
			case l >= 0 && mask&keepBoth != 0:
				out, del, err := tc.ChildItem(r, left[l], rhs.Item(r)).Reduce()
				if err != nil {
					return err
				}
				if !del {
					ab.push(out)
				}
			default:
				c.Skip(rhs.Item(r).TapeLength())
			}
			return nil
		})
	return ab.build(), true, err
}

type lazyField struct {
	name  string
	value doc.Lazy
}

func (b *setBuilder) subtractFields(lhs, sub doc.Lazy, naught bool) []lazyField {
	var out []lazyField
	if !lhs.Present() {
		return out
	}
	if !sub.Present() {
		for i := 0; i < lhs.Len(); i++ {
			name, v := lhs.Field(i)
			out = append(out, lazyField{name, v})
		}
		return out
	}
	_ = mergeJoin(lhs.Len(), sub.Len(),
		func(l, r int) int {
			ln, _ := lhs.Field(l)
			rn, _ := sub.Field(r)
			return strings.Compare(ln, rn)
		},
		func(l, r int) error {
			if l >= 0 && (r < 0) != naught {
				name, v := lhs.Field(l)
				out = append(out, lazyField{name, v})
			}
			return nil
		})
	return out
}

func (b *setBuilder) subtractItems(lhs, sub doc.Lazy, naught bool) []doc.Lazy {
	var out []doc.Lazy
	if !lhs.Present() {
		return out
	}
	if !sub.Present() {
		for i := 0; i < lhs.Len(); i++ {
			out = append(out, lhs.Item(i))
		}
		return out
	}
	_ = mergeJoin(lhs.Len(), sub.Len(),
		func(l, r int) int { return b.compareItems(lhs.Item(l), sub.Item(r)) },
		func(l, r int) error {
			if l >= 0 && (r < 0) != naught {
				out = append(out, lhs.Item(l))
			}
			return nil
		})
	return out
}
