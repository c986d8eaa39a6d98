package shape

import (
	"github.com/reoring/flowdoc/doc"
	"github.com/reoring/flowdoc/schema"
)

// Intersect returns a shape accepting only values accepted by both lhs and
// rhs.
func Intersect(lhs, rhs Shape) Shape {
	t := lhs.Type & rhs.Type
	enum := intersectEnum(t, lhs.Enum, rhs.Enum)
	if enum != nil {
		t &= enumTypes(enum)
	}

	out := Shape{
		Type:        t,
		Enum:        enum,
		Title:       or(lhs.Title, rhs.Title),
		Description: or(lhs.Description, rhs.Description),
		Reduction:   lhs.Reduction.intersect(rhs.Reduction),
		Provenance:  lhs.Provenance.intersect(rhs.Provenance),
		Default:     lhs.Default,
		Secret:      lhs.Secret || rhs.Secret,
	}
	if out.Default == nil {
		out.Default = rhs.Default
	}
	if len(lhs.Annotations)+len(rhs.Annotations) != 0 {
		out.Annotations = make(map[string]any, len(lhs.Annotations)+len(rhs.Annotations))
		for k, v := range rhs.Annotations {
			out.Annotations[k] = v
		}
		for k, v := range lhs.Annotations {
			out.Annotations[k] = v
		}
	}

	if lhs.Type.Overlaps(schema.String) && rhs.Type.Overlaps(schema.String) {
		out.String = intersectStringShape(lhs.String, rhs.String)
	}
	if lhs.Type.Overlaps(schema.Number) && rhs.Type.Overlaps(schema.Number) {
		out.Numeric = intersectNumeric(lhs.Numeric, rhs.Numeric)
	}
	if lhs.Type.Overlaps(schema.Array) && rhs.Type.Overlaps(schema.Array) {
		out.Array = intersectArray(lhs.Array, rhs.Array)
	}
	if lhs.Type.Overlaps(schema.Object) && rhs.Type.Overlaps(schema.Object) {
		out.Object = intersectObject(lhs.Object, rhs.Object)
	}
	return out
}

func or[T comparable](l, r T) T {
	var zero T
	if l != zero {
		return l
	}
	return r
}

func intersectEnum(t schema.Types, l, r []doc.HeapNode) []doc.HeapNode {
	switch {
	case l == nil && r == nil:
		return nil
	case r == nil:
		return filterEnum(t, l)
	case l == nil:
		return filterEnum(t, r)
	}
	out := make([]doc.HeapNode, 0, min(len(l), len(r)))
	for len(l) != 0 && len(r) != 0 {
		switch c := doc.Compare(l[0], r[0]); {
		case c < 0:
			l = l[1:]
		case c > 0:
			r = r[1:]
		default:
			out, l, r = append(out, l[0]), l[1:], r[1:]
		}
	}
	return filterEnum(t, out)
}

func intersectStringShape(l, r StringShape) StringShape {
	out := StringShape{
		ContentEncoding: or(l.ContentEncoding, r.ContentEncoding),
		ContentType:     or(l.ContentType, r.ContentType),
		Format:          or(l.Format, r.Format),
		MinLength:       max(l.MinLength, r.MinLength),
		MaxLength:       l.MaxLength,
	}
	if l.MaxLength == nil || (r.MaxLength != nil && *r.MaxLength < *l.MaxLength) {
		out.MaxLength = r.MaxLength
	}
	return out
}

// intersectNumeric takes the tighter bound of each side. When the sides
// compare equal the integer representation wins, since intersected number
// types narrow towards integer.
func intersectNumeric(l, r NumericShape) NumericShape {
	out := NumericShape{Minimum: l.Minimum, Maximum: l.Maximum}
	if l.Minimum == nil {
		out.Minimum = r.Minimum
	} else if r.Minimum != nil {
		switch c := doc.Compare(*l.Minimum, *r.Minimum); {
		case c < 0, c == 0 && l.Minimum.Kind() == doc.Float:
			out.Minimum = r.Minimum
		}
	}
	if l.Maximum == nil {
		out.Maximum = r.Maximum
	} else if r.Maximum != nil {
		switch c := doc.Compare(*l.Maximum, *r.Maximum); {
		case c > 0, c == 0 && l.Maximum.Kind() == doc.Float:
			out.Maximum = r.Maximum
		}
	}
	return out
}

func intersectArray(l, r ArrayShape) ArrayShape {
	out := ArrayShape{Min: l.Min, Max: l.Max}
	if l.Min == nil || (r.Min != nil && *r.Min > *l.Min) {
		out.Min = r.Min
	}
	if l.Max == nil || (r.Max != nil && *r.Max < *l.Max) {
		out.Max = r.Max
	}

	// The tuple is the longer of the two. Items beyond the shorter side are
	// intersected with its additional items, if any.
	for i := 0; i < max(len(l.Tuple), len(r.Tuple)); i++ {
		switch {
		case i < len(l.Tuple) && i < len(r.Tuple):
			out.Tuple = append(out.Tuple, Intersect(l.Tuple[i], r.Tuple[i]))
		case i < len(l.Tuple) && r.Additional != nil:
			out.Tuple = append(out.Tuple, Intersect(l.Tuple[i], r.Additional.Clone()))
		case i < len(l.Tuple):
			out.Tuple = append(out.Tuple, l.Tuple[i])
		case l.Additional != nil:
			out.Tuple = append(out.Tuple, Intersect(l.Additional.Clone(), r.Tuple[i]))
		default:
			out.Tuple = append(out.Tuple, r.Tuple[i])
		}
	}
	out.Additional = intersectAdditional(l.Additional, r.Additional)
	return out
}

func intersectAdditional(l, r *Shape) *Shape {
	switch {
	case l == nil:
		return r
	case r == nil:
		return l
	}
	i := Intersect(*l, *r)
	return &i
}

func intersectObject(l, r ObjShape) ObjShape {
	var out ObjShape

	imputed := func(side ObjProperty, other *Shape) {
		if other != nil {
			side.Shape = Intersect(side.Shape, *other)
		}
		out.Properties = append(out.Properties, side)
	}
	lp, rp := l.Properties, r.Properties
	for len(lp) != 0 || len(rp) != 0 {
		switch c := compareNames(lp, rp); {
		case c == 0:
			out.Properties = append(out.Properties, ObjProperty{
				Name:     lp[0].Name,
				Required: lp[0].Required || rp[0].Required,
				Shape:    Intersect(lp[0].Shape, rp[0].Shape),
			})
			lp, rp = lp[1:], rp[1:]
		case c < 0:
			imputed(lp[0], impute(lp[0].Name, r.Patterns, r.Additional))
			lp = lp[1:]
		default:
			imputed(rp[0], impute(rp[0].Name, l.Patterns, l.Additional))
			rp = rp[1:]
		}
	}

	lt, rt := l.Patterns, r.Patterns
	for len(lt) != 0 || len(rt) != 0 {
		switch c := comparePatterns(lt, rt); {
		case c == 0:
			out.Patterns = append(out.Patterns, ObjPattern{Re: lt[0].Re, Shape: Intersect(lt[0].Shape, rt[0].Shape)})
			lt, rt = lt[1:], rt[1:]
		case c < 0:
			out.Patterns = append(out.Patterns, lt[0])
			lt = lt[1:]
		default:
			out.Patterns = append(out.Patterns, rt[0])
			rt = rt[1:]
		}
	}

	out.Additional = intersectAdditional(l.Additional, r.Additional)
	return out
}

// applyPatterns intersects named properties with the patterns they match.
func (o ObjShape) applyPatterns() ObjShape {
	for i := range o.Properties {
		for _, p := range o.Patterns {
			if p.Re.MatchString(o.Properties[i].Name) {
				o.Properties[i].Shape = Intersect(o.Properties[i].Shape, p.Shape.Clone())
			}
		}
	}
	return o
}
