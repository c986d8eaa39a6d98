package shape

import (
	"slices"

	"github.com/reoring/flowdoc/schema"
)

// DefaultComplexityLimit bounds the locations of merged schemas.
const DefaultComplexityLimit = 1000

// EnforceFieldCountLimits squashes objects having more named properties
// than allowed into their additionalProperties. Limits apply depth-first,
// so squashed properties are themselves limited before they're unioned.
// The limited shape accepts every document the original accepted.
func (s *Shape) EnforceFieldCountLimits(rootLimit, nestedLimit int) {
	s.enforceFieldCount(rootLimit, nestedLimit)
}

func (s *Shape) enforceFieldCount(limit, nested int) {
	if s.Type.Overlaps(schema.Array) && s.Array.Additional != nil {
		s.Array.Additional.enforceFieldCount(nested, nested)
	}
	if !s.Type.Overlaps(schema.Object) {
		return
	}

	if len(s.Object.Properties) <= limit {
		for i := range s.Object.Properties {
			s.Object.Properties[i].Shape.enforceFieldCount(nested, nested)
		}
		return
	}

	addl := Invalid()
	if s.Object.Additional != nil {
		addl = *s.Object.Additional
	}
	for _, p := range s.Object.Properties {
		p.Shape.enforceFieldCount(nested, nested)
		addl = Union(addl, p.Shape)
	}
	s.Object.Properties = nil
	s.Object.Additional = &addl
}

// step is one edge from a shape to a child shape.
type step struct {
	kind  stepKind
	name  string
	index int
}

type stepKind uint8

const (
	stepProperty stepKind = iota
	stepIndex
	stepPattern
	stepAdditionalProperties
	stepAdditionalItems
)

func (st step) less(o step) bool {
	if st.kind != o.kind {
		return st.kind < o.kind
	}
	if st.name != o.name {
		return st.name < o.name
	}
	return st.index < o.index
}

// EnforceComplexityLimit squashes the deepest named properties and tuple
// items of s into their parent's patterns or additional shapes until at
// most limit such locations remain. The squashed shape accepts every
// document the original accepted.
func (s *Shape) EnforceComplexityLimit(limit int) {
	var paths [][]step
	s.collectPaths(nil, &paths)
	if len(paths) <= limit {
		return
	}

	// Deepest and then lexically greatest locations are squashed first.
	slices.SortStableFunc(paths, func(a, b []step) int {
		if len(a) != len(b) {
			return len(a) - len(b)
		}
		for i := range a {
			if a[i].less(b[i]) {
				return -1
			} else if b[i].less(a[i]) {
				return 1
			}
		}
		return 0
	})
	for len(paths) > limit {
		path := paths[len(paths)-1]
		paths = paths[:len(paths)-1]
		s.walk(path[:len(path)-1]).squash(path[len(path)-1].kind)
	}
}

// collectPaths gathers the paths of named properties and tuple items.
// Paths through patterns and additional shapes are included, but those
// locations themselves aren't squashable.
func (s *Shape) collectPaths(prefix []step, out *[][]step) {
	visit := func(st step, c *Shape) {
		p := append(prefix[:len(prefix):len(prefix)], st)
		if st.kind == stepProperty || st.kind == stepIndex {
			*out = append(*out, p)
		}
		c.collectPaths(p, out)
	}
	for i := range s.Object.Properties {
		visit(step{kind: stepProperty, name: s.Object.Properties[i].Name}, &s.Object.Properties[i].Shape)
	}
	for i := range s.Object.Patterns {
		visit(step{kind: stepPattern, index: i}, &s.Object.Patterns[i].Shape)
	}
	if s.Object.Additional != nil {
		visit(step{kind: stepAdditionalProperties}, s.Object.Additional)
	}
	for i := range s.Array.Tuple {
		visit(step{kind: stepIndex, index: i}, &s.Array.Tuple[i])
	}
	if s.Array.Additional != nil {
		visit(step{kind: stepAdditionalItems}, s.Array.Additional)
	}
}

func (s *Shape) walk(path []step) *Shape {
	for _, st := range path {
		switch st.kind {
		case stepProperty:
			p, ok := s.Object.Property(st.name)
			if !ok {
				panic("shape: squashed path has no property " + st.name)
			}
			s = &p.Shape
		case stepIndex:
			s = &s.Array.Tuple[st.index]
		case stepPattern:
			s = &s.Object.Patterns[st.index].Shape
		case stepAdditionalProperties:
			s = s.Object.Additional
		case stepAdditionalItems:
			s = s.Array.Additional
		}
	}
	return s
}

// squash folds one child of kind into s. Which child is squashed doesn't
// matter: the last is taken, so indices and names of the others are kept.
func (s *Shape) squash(kind stepKind) {
	switch kind {
	case stepIndex:
		last := s.Array.Tuple[len(s.Array.Tuple)-1]
		s.Array.Tuple = s.Array.Tuple[:len(s.Array.Tuple)-1]
		last.flattenAdditional()
		if s.Array.Additional != nil {
			u := Union(*s.Array.Additional, last)
			s.Array.Additional = &u
		} else {
			s.Array.Additional = &last
		}

	case stepProperty:
		last := s.Object.Properties[len(s.Object.Properties)-1]
		s.Object.Properties = s.Object.Properties[:len(s.Object.Properties)-1]
		last.Shape.flattenAdditional()
		if p := matchPattern(s.Object.Patterns, last.Name); p != nil {
			p.Shape = Union(p.Shape, last.Shape)
		} else if s.Object.Additional != nil {
			u := Union(*s.Object.Additional, last.Shape)
			s.Object.Additional = &u
		} else {
			s.Object.Additional = &last.Shape
		}
	}
}

// flattenAdditional replaces additional shapes, which may be recursive,
// with either false or unconstrained.
func (s *Shape) flattenAdditional() {
	flatten := func(a *Shape) *Shape {
		if a != nil && a.Type == schema.Invalid {
			f := Invalid()
			return &f
		}
		return nil
	}
	s.Array.Additional = flatten(s.Array.Additional)
	s.Object.Additional = flatten(s.Object.Additional)
}
