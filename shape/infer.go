package shape

import (
	"slices"
	"strings"

	"github.com/reoring/flowdoc/doc"
	"github.com/reoring/flowdoc/schema"
)

// Infer derives the shape of documents valid against s. idx resolves $ref
// targets and validates default values. It may be nil, in which case
// references are unconstrained.
func Infer(s *schema.Schema, idx *schema.Index) Shape {
	in := inferrer{index: idx}
	if idx != nil {
		in.validator = schema.NewValidator(idx)
	}
	return in.infer(s)
}

type inferrer struct {
	index     *schema.Index
	validator *schema.Validator
	visited   []string
}

// provenanceNeutral reports whether kw leaves a schema's provenance
// unchanged. In-place applications promote to inline only through the
// provenance of what they apply.
func provenanceNeutral(kw schema.Keyword) bool {
	switch k := kw.(type) {
	case *schema.Application:
		switch k.Kind {
		case schema.AppRef, schema.AppDef, schema.AppDefinition,
			schema.AppAllOf, schema.AppAnyOf, schema.AppOneOf,
			schema.AppIf, schema.AppThen, schema.AppElse, schema.AppNot:
			return true
		}
	case *schema.Annotation:
		switch k.Name {
		case "default", "description", "examples", "title":
			return true
		}
	}
	return false
}

func (in *inferrer) infer(s *schema.Schema) Shape {
	shape := New()
	var unevalProps, unevalItems *Shape

	for _, kw := range s.Keywords {
		if !provenanceNeutral(kw) {
			shape.Provenance = Provenance{Kind: ProvenanceInline}
			break
		}
	}

	for _, kw := range s.Keywords {
		switch k := kw.(type) {
		case *schema.Assertion:
			in.assertion(&shape, k)
		case *schema.Annotation:
			in.annotation(&shape, s, k)
		case *schema.Application:
			switch k.Kind {
			case schema.AppItems, schema.AppPrefixItems:
				child := in.infer(k.Schema)
				if k.Index < 0 {
					shape.Array.Additional = &child
					continue
				}
				for len(shape.Array.Tuple) <= k.Index {
					shape.Array.Tuple = append(shape.Array.Tuple, New())
				}
				shape.Array.Tuple[k.Index] = child
			case schema.AppAdditionalItems:
				child := in.infer(k.Schema)
				shape.Array.Additional = &child
			case schema.AppUnevaluatedItems:
				child := in.infer(k.Schema)
				unevalItems = &child
			case schema.AppProperties:
				shape.Object = intersectObject(shape.Object, ObjShape{
					Properties: []ObjProperty{{Name: k.Name, Shape: in.infer(k.Schema)}},
				})
			case schema.AppPatternProperties:
				shape.Object = intersectObject(shape.Object, ObjShape{
					Patterns: []ObjPattern{{Re: k.Regex, Shape: in.infer(k.Schema)}},
				})
			case schema.AppAdditionalProperties:
				child := in.infer(k.Schema)
				shape.Object.Additional = &child
			case schema.AppUnevaluatedProperties:
				child := in.infer(k.Schema)
				unevalProps = &child
			}
		}
	}

	shape.Object = shape.Object.applyPatterns()

	// Enum variants are restricted to the permitted types, and the types
	// to those of the variants.
	shape.Enum = intersectEnum(shape.Type, shape.Enum, nil)
	if shape.Enum != nil {
		shape.Type &= enumTypes(shape.Enum)
	}

	var oneOf, anyOf, then, els *Shape
	var hasIf bool
	unionInto := func(acc **Shape, s Shape) {
		if *acc == nil {
			*acc = &s
		} else {
			u := Union(**acc, s)
			*acc = &u
		}
	}

	for _, kw := range s.Keywords {
		app, ok := kw.(*schema.Application)
		if !ok {
			continue
		}
		switch app.Kind {
		case schema.AppRef:
			shape = Intersect(shape, in.reference(app))
		case schema.AppAllOf:
			shape = Intersect(shape, in.infer(app.Schema))
		case schema.AppOneOf:
			unionInto(&oneOf, in.infer(app.Schema))
		case schema.AppAnyOf:
			unionInto(&anyOf, in.infer(app.Schema))
		case schema.AppIf:
			hasIf = true
		case schema.AppThen:
			t := in.infer(app.Schema)
			then = &t
		case schema.AppElse:
			e := in.infer(app.Schema)
			els = &e
		}
	}

	if oneOf != nil {
		shape = Intersect(shape, *oneOf)
	}
	if anyOf != nil {
		shape = Intersect(shape, *anyOf)
	}
	if hasIf && then != nil && els != nil {
		shape = Intersect(shape, Union(*then, *els))
	}

	if shape.Object.Additional == nil && unevalProps != nil {
		shape.Object.Additional = unevalProps
	}
	if shape.Array.Additional == nil && unevalItems != nil {
		shape.Array.Additional = unevalItems
	}
	return shape
}

func (in *inferrer) reference(app *schema.Application) Shape {
	var referent Shape
	target := app.Schema
	if in.index != nil {
		if s, ok := in.index.Fetch(app.Ref); ok {
			target = s
		}
	}
	switch {
	case slices.Contains(in.visited, app.Ref), target == nil:
		referent = New()
	default:
		in.visited = append(in.visited, app.Ref)
		referent = in.infer(target)
		in.visited = in.visited[:len(in.visited)-1]
	}

	// The bottom-most reference of a chain of references is tracked.
	if referent.Provenance.Kind != ProvenanceReference {
		referent.Provenance = Provenance{Kind: ProvenanceReference, Ref: app.Ref}
	}
	return referent
}

func (in *inferrer) assertion(shape *Shape, a *schema.Assertion) {
	switch a.Kind {
	case schema.ValFalse:
		shape.Type = schema.Invalid
	case schema.ValType:
		shape.Type = a.Types
	case schema.ValConst, schema.ValEnum:
		shape.Enum = make([]doc.HeapNode, len(a.Literals))
		for i, l := range a.Literals {
			shape.Enum[i] = l.Value
		}
		slices.SortFunc(shape.Enum, doc.Compare[doc.HeapNode, doc.HeapNode])
	case schema.ValMaxLength:
		shape.String.MaxLength = intPtr(a.Count)
	case schema.ValMinLength:
		shape.String.MinLength = a.Count
	case schema.ValFormat:
		shape.String.Format = a.Format
	case schema.ValMinimum:
		n := a.Number
		shape.Numeric.Minimum = &n
	case schema.ValMaximum:
		n := a.Number
		shape.Numeric.Maximum = &n
	case schema.ValMinItems:
		shape.Array.Min = intPtr(a.Count)
	case schema.ValMaxItems:
		shape.Array.Max = intPtr(a.Count)
	case schema.ValRequired:
		props := slices.Clone(a.Props)
		slices.Sort(props)
		props = slices.Compact(props)
		obj := ObjShape{Properties: make([]ObjProperty, len(props))}
		for i, p := range props {
			obj.Properties[i] = ObjProperty{Name: p, Required: true, Shape: New()}
		}
		shape.Object = intersectObject(shape.Object, obj)
	}
}

func (in *inferrer) annotation(shape *Shape, s *schema.Schema, a *schema.Annotation) {
	switch name := a.Name; {
	case name == "reduce":
		shape.Reduction = ReductionOf(a.Value)
	case name == "title":
		shape.Title, _ = a.Value.(string)
	case name == "description":
		shape.Description, _ = a.Value.(string)
	case name == "contentEncoding":
		shape.String.ContentEncoding, _ = a.Value.(string)
	case name == "contentMediaType":
		shape.String.ContentType, _ = a.Value.(string)
	case name == "secret", name == "airbyte_secret":
		shape.Secret = a.IsSecret()
	case name == "default":
		shape.Default = in.defaultValue(s, a.Value)
	case strings.HasPrefix(name, "x-"), strings.HasPrefix(name, "X-"):
		if shape.Annotations == nil {
			shape.Annotations = map[string]any{}
		}
		shape.Annotations[name] = a.Value
	}
}

func (in *inferrer) defaultValue(s *schema.Schema, v any) *Default {
	n, err := doc.FromAny(doc.NewArena(), v)
	if err != nil {
		return nil
	}
	d := &Default{Value: n}
	if in.validator == nil {
		return d
	}
	res, err := in.validator.Validate(s.CURI, doc.FromHeap(&d.Value))
	if err != nil {
		return d
	}
	if _, failed := res.Ok(); failed != nil {
		d.Err = failed
	}
	return d
}
