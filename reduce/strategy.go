package reduce

import (
	"strings"

	"github.com/reoring/flowdoc/doc"
)

// Append concatenates the RHS array onto the LHS array. A null LHS is kept
// as null, which lets a document opt out of further appends.
type Append struct{}

func (Append) Name() string { return "append" }

func (Append) Apply(c *Cursor) (doc.HeapNode, bool, error) {
	if c.RHS.Kind() != doc.Array {
		return doc.HeapNode{}, false, c.Fail(ErrAppendWrongType)
	}
	switch {
	case !c.LHS.Present():
		return c.TakeRHS(), false, nil
	case c.LHS.Kind() == doc.Null:
		c.SkipRHS()
		return doc.NewNull(), false, nil
	case c.LHS.Kind() != doc.Array:
		return doc.HeapNode{}, false, c.Fail(ErrAppendWrongType)
	}
	c.Skip(1)

	ln, rn := c.LHS.Len(), c.RHS.Len()
	items := c.Arena.Items(ln + rn)
	for i := 0; i < ln; i++ {
		items[i] = c.LHS.Item(i).IntoHeap(c.Arena)
	}
	for i := 0; i < rn; i++ {
		item := c.RHS.Item(i)
		c.Skip(item.TapeLength())
		items[ln+i] = item.IntoHeap(c.Arena)
	}
	return doc.NewArray(items), false, nil
}

// FirstWriteWins keeps the LHS when there is one.
type FirstWriteWins struct{}

func (FirstWriteWins) Name() string { return "firstWriteWins" }

func (FirstWriteWins) Apply(c *Cursor) (doc.HeapNode, bool, error) {
	if !c.LHS.Present() {
		return c.TakeRHS(), false, nil
	}
	return c.TakeLHS(), false, nil
}

// LastWriteWins takes the RHS. With Delete, a full reduction removes the
// location from its parent. Without Associative, a partial reduction fails
// unless both sides are equal.
type LastWriteWins struct {
	Delete      bool
	Associative bool
}

func (LastWriteWins) Name() string { return "lastWriteWins" }

func (s LastWriteWins) Apply(c *Cursor) (doc.HeapNode, bool, error) {
	if !s.Associative && !c.Full && c.LHS.Present() && doc.Compare(c.LHS, c.RHS) != 0 {
		return doc.HeapNode{}, false, c.Fail(ErrNotAssociative)
	}
	return c.TakeRHS(), c.Full && s.Delete, nil
}

// Minimize keeps the smaller side. With a Key, sides are ordered by the key
// and sides with equal keys are deep-merged.
type Minimize struct{ Key Key }

func (Minimize) Name() string { return "minimize" }

func (s Minimize) Apply(c *Cursor) (doc.HeapNode, bool, error) {
	return minMax(c, s.Key, false)
}

// Maximize is Minimize in reverse.
type Maximize struct{ Key Key }

func (Maximize) Name() string { return "maximize" }

func (s Maximize) Apply(c *Cursor) (doc.HeapNode, bool, error) {
	return minMax(c, s.Key, true)
}

func minMax(c *Cursor, key Key, reverse bool) (doc.HeapNode, bool, error) {
	if !c.LHS.Present() {
		return c.TakeRHS(), false, nil
	}
	l, r := c.LHS, c.RHS
	if reverse {
		l, r = r, l
	}
	var ord int
	if len(key) == 0 {
		ord = doc.Compare(l, r)
	} else {
		ord = key.Compare(l, r)
	}

	switch {
	case ord < 0:
		return c.TakeLHS(), false, nil
	case len(key) == 0:
		return c.TakeRHS(), false, nil
	}
	if ord > 0 {
		c.LHS = doc.Lazy{}
	}
	out, err := mergeWithKey(c, nil)
	return out, false, err
}

// Merge deep-merges objects by property, and arrays by index or, with a Key,
// by the key order of their items. Under a full reduction a non-container
// LHS is replaced.
type Merge struct {
	Key    Key
	Delete bool
}

func (Merge) Name() string { return "merge" }

func (s Merge) Apply(c *Cursor) (doc.HeapNode, bool, error) {
	out, err := mergeWithKey(c, s.Key)
	return out, c.Full && s.Delete, err
}

func mergeWithKey(c *Cursor, key Key) (doc.HeapNode, error) {
	lk, rk := c.LHS.Kind(), c.RHS.Kind()
	lhs := c.LHS.Present()

	switch {
	case lhs && lk == doc.Object && rk == doc.Object:
		c.Skip(1)
		b := objectBuilder{a: c.Arena}
		err := mergeJoin(c.LHS.Len(), c.RHS.Len(),
			func(l, r int) int {
				ln, _ := c.LHS.Field(l)
				rn, _ := c.RHS.Field(r)
				return strings.Compare(ln, rn)
			},
			func(l, r int) error { return c.reduceProp(&b, l, r) })
		return b.build(), err

	case c.Full && rk == doc.Object:
		c.Skip(1)
		b := objectBuilder{a: c.Arena}
		for r := 0; r < c.RHS.Len(); r++ {
			if err := c.reduceProp(&b, -1, r); err != nil {
				return doc.HeapNode{}, err
			}
		}
		return b.build(), nil

	case lhs && lk == doc.Array && rk == doc.Array:
		c.Skip(1)
		b := arrayBuilder{a: c.Arena}
		cmp := func(l, r int) int { return l - r }
		if len(key) != 0 {
			cmp = func(l, r int) int { return key.Compare(c.LHS.Item(l), c.RHS.Item(r)) }
		}
		err := mergeJoin(c.LHS.Len(), c.RHS.Len(), cmp,
			func(l, r int) error { return c.reduceItem(&b, l, r) })
		return b.build(), err

	case c.Full && rk == doc.Array:
		c.Skip(1)
		b := arrayBuilder{a: c.Arena}
		for r := 0; r < c.RHS.Len(); r++ {
			if err := c.reduceItem(&b, -1, r); err != nil {
				return doc.HeapNode{}, err
			}
		}
		return b.build(), nil

	case rk == doc.Object || rk == doc.Array:
		if !lhs {
			return c.TakeRHS(), nil
		}
		return doc.HeapNode{}, c.Fail(ErrNotAssociative)
	}
	return doc.HeapNode{}, c.Fail(ErrMergeWrongType)
}

// reduceProp handles one step of a property merge-join. A field only on the
// left is copied. Otherwise the RHS is reduced, against an absent LHS when
// the left has no such field, and dropped if the strategy deletes it.
func (c *Cursor) reduceProp(b *objectBuilder, l, r int) error {
	if r < 0 {
		name, v := c.LHS.Field(l)
		b.push(ownedName(c.Arena, c.LHS, name), v.IntoHeap(c.Arena))
		return nil
	}
	name, rv := c.RHS.Field(r)
	var lv doc.Lazy
	if l >= 0 {
		_, lv = c.LHS.Field(l)
	}
	out, del, err := c.ChildProp(name, lv, rv).Reduce()
	if err != nil || del {
		return err
	}
	b.push(ownedName(c.Arena, c.RHS, name), out)
	return nil
}

func (c *Cursor) reduceItem(b *arrayBuilder, l, r int) error {
	if r < 0 {
		b.push(c.LHS.Item(l).IntoHeap(c.Arena))
		return nil
	}
	var lv doc.Lazy
	if l >= 0 {
		lv = c.LHS.Item(l)
	}
	out, del, err := c.ChildItem(r, lv, c.RHS.Item(r)).Reduce()
	if err != nil || del {
		return err
	}
	b.push(out)
	return nil
}
