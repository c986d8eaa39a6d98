package shape

import (
	"unicode/utf8"

	"github.com/reoring/flowdoc/doc"
	"github.com/reoring/flowdoc/schema"
)

const (
	// MaxRootFields bounds the named properties of the document root.
	MaxRootFields = 750
	// MaxNestedFields bounds the named properties of nested objects.
	MaxNestedFields = 200
)

// Widen minimally widens s so that it accepts n, and reports whether the
// widened shape may exceed field count limits. In that case callers should
// follow up with EnforceFieldCountLimits.
//
// Widening starts from Invalid. Object properties are required only if
// they're present in the first object observed at their location, and
// string formats are detected only from the first string observed.
func (s *Shape) Widen(n doc.Lazy) bool { return s.widen(n, true) }

func (s *Shape) widen(n doc.Lazy, root bool) bool {
	switch n.Kind() {
	case doc.Object:
		first := !s.Type.Overlaps(schema.Object)
		s.Type |= schema.Object
		return s.Object.widen(n, root, first)

	case doc.Array:
		addl := Invalid()
		if s.Array.Additional != nil {
			addl = *s.Array.Additional
		}
		var hint bool
		for i := 0; i < n.Len(); i++ {
			hint = addl.widen(n.Item(i), false) || hint
		}
		s.Array.Additional = &addl

		l := n.Len()
		if s.Array.Min == nil || l < *s.Array.Min {
			s.Array.Min = intPtr(l)
		}
		if s.Array.Max == nil || l > *s.Array.Max {
			s.Array.Max = intPtr(l)
		}
		s.Type |= schema.Array
		return hint

	case doc.Bool:
		s.Type |= schema.Boolean
	case doc.Null:
		s.Type |= schema.Null

	case doc.Bytes:
		s.Type |= schema.String
		s.String = unionStringShape(s.String, StringShape{ContentEncoding: "base64"})

	case doc.PosInt, doc.NegInt, doc.Float:
		first := !s.Type.Overlaps(schema.Number)
		s.Type |= schema.TypeOf(n)
		v := numberNode(n)
		if first {
			s.Numeric = NumericShape{Minimum: &v, Maximum: &v}
		} else {
			s.Numeric = unionNumeric(s.Numeric, NumericShape{Minimum: &v, Maximum: &v})
		}

	case doc.String:
		first := !s.Type.Overlaps(schema.String)
		s.Type |= schema.String

		str := n.Str()
		l := utf8.RuneCountInString(str)
		partial := StringShape{MaxLength: intPtr(l), MinLength: l}
		// Later strings still detect so that an integer format may widen
		// to number.
		if first || s.String.Format != "" {
			partial.Format = schema.DetectFormat(str)
		}
		if first {
			s.String = partial
		} else {
			s.String = unionStringShape(s.String, partial)
		}
	}
	return false
}

func numberNode(n doc.Lazy) doc.HeapNode {
	switch n.Kind() {
	case doc.PosInt:
		return doc.NewPosInt(n.PosInt())
	case doc.NegInt:
		return doc.NewInt(n.NegInt())
	}
	return doc.NewFloat(n.Float())
}

func (o *ObjShape) widen(n doc.Lazy, root, first bool) bool {
	// Additional properties start as false. Otherwise every new field would
	// fold into them and nothing would be learned.
	addl := Invalid()
	if o.Additional != nil {
		addl = *o.Additional
	}

	var hint bool
	var fresh []ObjProperty
	props := o.Properties
	i := 0
	for f := 0; f < n.Len(); f++ {
		name, value := n.Field(f)
		for i < len(props) && props[i].Name < name {
			props[i].Required = false
			i++
		}
		if i < len(props) && props[i].Name == name {
			hint = props[i].Shape.widen(value, false) || hint
			i++
			continue
		}
		// Only fields of the very first object seen here can be required:
		// a field added later was missing from an earlier document.
		prop := ObjProperty{Name: name, Required: first, Shape: Invalid()}
		hint = prop.Shape.widen(value, false) || hint

		if p := matchPattern(o.Patterns, name); p != nil {
			p.Shape = Union(p.Shape, prop.Shape)
			continue
		}
		fresh = append(fresh, prop)
	}
	for ; i < len(props); i++ {
		props[i].Required = false
	}

	if len(fresh) != 0 {
		if addl.Type == schema.Invalid {
			o.Properties = mergeProperties(o.Properties, fresh)
		} else {
			for _, p := range fresh {
				addl = Union(addl, p.Shape)
			}
		}
	}
	o.Additional = &addl

	if hint {
		return true
	} else if root {
		return len(o.Properties) > MaxRootFields
	}
	return len(o.Properties) > MaxNestedFields
}

func matchPattern(patterns []ObjPattern, name string) *ObjPattern {
	for i := range patterns {
		if patterns[i].Re.MatchString(name) {
			return &patterns[i]
		}
	}
	return nil
}

// mergeProperties merges two name-sorted property lists with disjoint
// names.
func mergeProperties(a, b []ObjProperty) []ObjProperty {
	out := make([]ObjProperty, 0, len(a)+len(b))
	for len(a) != 0 && len(b) != 0 {
		if a[0].Name < b[0].Name {
			out, a = append(out, a[0]), a[1:]
		} else {
			out, b = append(out, b[0]), b[1:]
		}
	}
	out = append(out, a...)
	return append(out, b...)
}
