package shape

import (
	"github.com/reoring/flowdoc/doc"
	"github.com/reoring/flowdoc/schema"
)

// Union returns a shape accepting every value accepted by lhs or rhs.
func Union(lhs, rhs Shape) Shape {
	if lhs.Type == schema.Invalid {
		return rhs
	} else if rhs.Type == schema.Invalid {
		return lhs
	}

	out := Shape{
		Type:        lhs.Type | rhs.Type,
		Enum:        unionEnum(lhs.Enum, rhs.Enum),
		Title:       unionString(lhs.Title, rhs.Title),
		Description: unionString(lhs.Description, rhs.Description),
		Reduction:   lhs.Reduction.union(rhs.Reduction),
		Provenance:  lhs.Provenance.union(rhs.Provenance),
		Secret:      lhs.Secret && rhs.Secret,
	}
	if lhs.Default != nil && rhs.Default != nil && doc.Equal(lhs.Default.Value, rhs.Default.Value) {
		out.Default = lhs.Default
	}

	// Only annotations which hold on both sides hold for the union.
	for k, v := range lhs.Annotations {
		if o, ok := rhs.Annotations[k]; ok && annotationsEqual(v, o) {
			if out.Annotations == nil {
				out.Annotations = map[string]any{}
			}
			out.Annotations[k] = v
		}
	}

	switch l, r := lhs.Type.Overlaps(schema.String), rhs.Type.Overlaps(schema.String); {
	case l && r:
		out.String = unionStringShape(lhs.String, rhs.String)
	case !r:
		out.String = lhs.String
	default:
		out.String = rhs.String
	}
	switch l, r := lhs.Type.Overlaps(schema.Number), rhs.Type.Overlaps(schema.Number); {
	case l && r:
		out.Numeric = unionNumeric(lhs.Numeric, rhs.Numeric)
	case !r:
		out.Numeric = lhs.Numeric
	default:
		out.Numeric = rhs.Numeric
	}
	switch l, r := lhs.Type.Overlaps(schema.Array), rhs.Type.Overlaps(schema.Array); {
	case l && r:
		out.Array = unionArray(lhs.Array, rhs.Array)
	case !r:
		out.Array = lhs.Array
	default:
		out.Array = rhs.Array
	}
	switch l, r := lhs.Type.Overlaps(schema.Object), rhs.Type.Overlaps(schema.Object); {
	case l && r:
		out.Object = unionObject(lhs.Object, rhs.Object)
	case !r:
		out.Object = lhs.Object
	default:
		out.Object = rhs.Object
	}
	return out
}

func unionString(l, r string) string {
	if l == r {
		return l
	}
	return ""
}

func unionEnum(l, r []doc.HeapNode) []doc.HeapNode {
	if l == nil || r == nil {
		return nil
	}
	out := make([]doc.HeapNode, 0, len(l)+len(r))
	for len(l) != 0 && len(r) != 0 {
		switch c := doc.Compare(l[0], r[0]); {
		case c < 0:
			out, l = append(out, l[0]), l[1:]
		case c > 0:
			out, r = append(out, r[0]), r[1:]
		default:
			out, l, r = append(out, l[0]), l[1:], r[1:]
		}
	}
	out = append(out, l...)
	return append(out, r...)
}

func unionStringShape(l, r StringShape) StringShape {
	out := StringShape{
		ContentEncoding: unionString(l.ContentEncoding, r.ContentEncoding),
		ContentType:     unionString(l.ContentType, r.ContentType),
		MinLength:       min(l.MinLength, r.MinLength),
	}
	if l.MaxLength != nil && r.MaxLength != nil {
		out.MaxLength = intPtr(max(*l.MaxLength, *r.MaxLength))
	}
	switch {
	case l.Format == r.Format:
		out.Format = l.Format
	case l.Format == schema.FormatInteger && r.Format == schema.FormatNumber,
		l.Format == schema.FormatNumber && r.Format == schema.FormatInteger:
		out.Format = schema.FormatNumber
	}
	return out
}

// unionNumeric takes the looser bound of each side. When the sides compare
// equal the float representation wins, keeping bounds consistent with the
// widened type.
func unionNumeric(l, r NumericShape) NumericShape {
	var out NumericShape
	if l.Minimum != nil && r.Minimum != nil {
		switch c := doc.Compare(*l.Minimum, *r.Minimum); {
		case c < 0, c == 0 && l.Minimum.Kind() == doc.Float:
			out.Minimum = l.Minimum
		default:
			out.Minimum = r.Minimum
		}
	}
	if l.Maximum != nil && r.Maximum != nil {
		switch c := doc.Compare(*l.Maximum, *r.Maximum); {
		case c > 0, c == 0 && l.Maximum.Kind() == doc.Float:
			out.Maximum = l.Maximum
		default:
			out.Maximum = r.Maximum
		}
	}
	return out
}

func unionArray(l, r ArrayShape) ArrayShape {
	var out ArrayShape
	if l.Min != nil && r.Min != nil {
		out.Min = intPtr(min(*l.Min, *r.Min))
	}
	if l.Max != nil && r.Max != nil {
		out.Max = intPtr(max(*l.Max, *r.Max))
	}

	// Beyond the shorter tuple, items are constrained only if the shorter
	// side has additional items.
tuple:
	for i := 0; i < max(len(l.Tuple), len(r.Tuple)); i++ {
		switch {
		case i < len(l.Tuple) && i < len(r.Tuple):
			out.Tuple = append(out.Tuple, Union(l.Tuple[i], r.Tuple[i]))
		case i < len(l.Tuple) && r.Additional != nil:
			out.Tuple = append(out.Tuple, Union(l.Tuple[i], r.Additional.Clone()))
		case i < len(r.Tuple) && l.Additional != nil:
			out.Tuple = append(out.Tuple, Union(l.Additional.Clone(), r.Tuple[i]))
		default:
			break tuple
		}
	}
	out.Additional = unionAdditional(l.Additional, r.Additional)
	return out
}

func unionAdditional(l, r *Shape) *Shape {
	if l == nil || r == nil {
		return nil
	}
	u := Union(*l, *r)
	return &u
}

func unionObject(l, r ObjShape) ObjShape {
	var out ObjShape

	imputed := func(side ObjProperty, other *Shape) {
		if other != nil {
			out.Properties = append(out.Properties, ObjProperty{
				Name:  side.Name,
				Shape: Union(side.Shape, *other),
			})
		}
	}
	lp, rp := l.Properties, r.Properties
	for len(lp) != 0 || len(rp) != 0 {
		switch c := compareNames(lp, rp); {
		case c == 0:
			out.Properties = append(out.Properties, ObjProperty{
				Name:     lp[0].Name,
				Required: lp[0].Required && rp[0].Required,
				Shape:    Union(lp[0].Shape, rp[0].Shape),
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
			out.Patterns = append(out.Patterns, ObjPattern{Re: lt[0].Re, Shape: Union(lt[0].Shape, rt[0].Shape)})
			lt, rt = lt[1:], rt[1:]
		case c < 0:
			if r.Additional != nil {
				out.Patterns = append(out.Patterns, ObjPattern{Re: lt[0].Re, Shape: Union(lt[0].Shape, r.Additional.Clone())})
			}
			lt = lt[1:]
		default:
			if l.Additional != nil {
				out.Patterns = append(out.Patterns, ObjPattern{Re: rt[0].Re, Shape: Union(l.Additional.Clone(), rt[0].Shape)})
			}
			rt = rt[1:]
		}
	}

	out.Additional = unionAdditional(l.Additional, r.Additional)
	return out
}

// compareNames orders the heads of two property lists. An exhausted list
// sorts after the other.
func compareNames(l, r []ObjProperty) int {
	switch {
	case len(l) == 0:
		return 1
	case len(r) == 0:
		return -1
	case l[0].Name < r[0].Name:
		return -1
	case l[0].Name > r[0].Name:
		return 1
	}
	return 0
}

func comparePatterns(l, r []ObjPattern) int {
	switch {
	case len(l) == 0:
		return 1
	case len(r) == 0:
		return -1
	}
	ls, rs := l[0].Re.String(), r[0].Re.String()
	switch {
	case ls < rs:
		return -1
	case ls > rs:
		return 1
	}
	return 0
}

// impute returns the shape a property takes when it isn't named: the
// intersection of its matching patterns, or else additional properties.
func impute(property string, patterns []ObjPattern, additional *Shape) *Shape {
	var out *Shape
	for _, p := range patterns {
		if !p.Re.MatchString(property) {
			continue
		}
		if out == nil {
			c := p.Shape.Clone()
			out = &c
		} else {
			i := Intersect(*out, p.Shape.Clone())
			out = &i
		}
	}
	if out == nil && additional != nil {
		c := additional.Clone()
		out = &c
	}
	return out
}
