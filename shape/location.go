package shape

import (
	"math"

	"github.com/reoring/flowdoc/doc"
	"github.com/reoring/flowdoc/schema"
)

// Exists is the existence constraint of a shape location.
type Exists uint8

const (
	// Must locations always exist.
	Must Exists = iota
	// May locations may exist, and have keywords which explicitly allow it,
	// such as properties, items or additionalProperties.
	May
	// Implicit locations may exist only because nothing forbids them.
	Implicit
	// Cannot locations never exist. They're out of array bounds, or
	// disallowed, or have an impossible type.
	Cannot
)

func (e Exists) String() string {
	switch e {
	case Must:
		return "must"
	case May:
		return "may"
	case Implicit:
		return "implicit"
	}
	return "cannot"
}

// extend a parent's existence with that of a child.
func (e Exists) extend(child Exists) Exists { return max(e, child) }

// Locate returns the shape at ptr and its existence constraint. The
// returned shape must not be modified.
func (s *Shape) Locate(ptr doc.Pointer) (*Shape, Exists) {
	cur, exists := s, Must
	for _, tok := range ptr {
		next, e := cur.locateToken(tok)
		cur, exists = next, exists.extend(e)
	}
	// A location may be permitted yet impossible to satisfy.
	if cur.Type == schema.Invalid {
		exists = Cannot
	}
	return cur, exists
}

func anything() *Shape {
	s := New()
	return &s
}

func (s *Shape) locateToken(tok doc.Token) (*Shape, Exists) {
	arr, obj := s.Type.Overlaps(schema.Array), s.Type.Overlaps(schema.Object)
	switch {
	case tok.Kind == doc.IndexToken && arr:
		maxItems := math.MaxInt
		if s.Array.Max != nil {
			maxItems = *s.Array.Max
		}
		var exists Exists
		switch i := tok.Index; {
		case s.Type == schema.Array && s.Array.Min != nil && i < *s.Array.Min:
			exists = Must
		case i >= maxItems:
			exists = Cannot
		case s.Array.Max != nil, i < len(s.Array.Tuple), s.Array.Additional != nil:
			exists = May
		default:
			exists = Implicit
		}
		switch {
		case tok.Index < len(s.Array.Tuple):
			return &s.Array.Tuple[tok.Index], exists
		case s.Array.Additional != nil:
			return s.Array.Additional, exists
		}
		return anything(), exists

	case tok.Kind == doc.NextIndexToken && arr:
		if s.Array.Additional != nil {
			return s.Array.Additional, Cannot
		}
		return anything(), Cannot

	case obj:
		return s.propertyLocation(tok.Property)
	}
	return anything(), Cannot
}

func (s *Shape) propertyLocation(name string) (*Shape, Exists) {
	if p, ok := s.Object.Property(name); ok {
		if s.Type == schema.Object && p.Required {
			return &p.Shape, Must
		}
		return &p.Shape, May
	}
	if p := matchPattern(s.Object.Patterns, name); p != nil {
		return &p.Shape, May
	}
	if s.Object.Additional != nil {
		return s.Object.Additional, May
	}
	return anything(), Implicit
}

// Location is a flattened location of a shape.
type Location struct {
	// Ptr addresses the location. Patterns appear as their regex,
	// additional properties as "*" and additional items as "-".
	Ptr doc.Pointer
	// Pattern is true if the location or one of its parents is a pattern
	// or additional location.
	Pattern bool
	Shape   *Shape
	Exists  Exists
}

// Locations flattens s into all of its nested locations, in pre-order.
func (s *Shape) Locations() []Location {
	var out []Location
	s.locations(nil, Must, false, &out)
	return out
}

func (s *Shape) locations(ptr doc.Pointer, exists Exists, pattern bool, out *[]Location) {
	if s.Type == schema.Invalid {
		exists = Cannot
	}
	*out = append(*out, Location{Ptr: ptr, Pattern: pattern, Shape: s, Exists: exists})

	// A child must exist only if its parent must, the parent can only be
	// an object or array, and it requires the child.
	for i := range s.Object.Properties {
		p := &s.Object.Properties[i]
		e := exists.extend(May)
		if s.Type == schema.Object && p.Required {
			e = exists.extend(Must)
		}
		p.Shape.locations(ptr.Push(p.Name), e, pattern, out)
	}
	for i := range s.Object.Patterns {
		p := &s.Object.Patterns[i]
		p.Shape.locations(ptr.Push(p.Re.String()), exists.extend(May), true, out)
	}
	if s.Object.Additional != nil {
		s.Object.Additional.locations(ptr.Push("*"), exists.extend(May), true, out)
	}
	for i := range s.Array.Tuple {
		e := exists.extend(May)
		if s.Type == schema.Array && s.Array.Min != nil && i < *s.Array.Min {
			e = exists.extend(Must)
		}
		s.Array.Tuple[i].locations(ptr.PushIndex(i), e, pattern, out)
	}
	if s.Array.Additional != nil {
		s.Array.Additional.locations(append(ptr[:len(ptr):len(ptr)], doc.Token{Kind: doc.NextIndexToken, Property: "-"}), exists.extend(May), true, out)
	}
}
