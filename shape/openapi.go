package shape

import (
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/reoring/flowdoc/doc"
	"github.com/reoring/flowdoc/schema"
)

// ToOpenAPI renders s as an OpenAPI 3.0 schema, for front ends which
// generate code from OpenAPI documents.
//
// OpenAPI 3.0 has a single type per schema: null becomes Nullable and
// shapes of several other types are rendered as a oneOf of one schema per
// type. Tuples and patterns have no equivalent and are approximated by
// their additional shapes.
func ToOpenAPI(s Shape) *openapi3.Schema {
	if s.Type == schema.Invalid {
		return &openapi3.Schema{Not: openapi3.NewSchema().NewRef()}
	}

	var types []schema.Types
	for _, t := range []schema.Types{schema.Object, schema.Array, schema.String, schema.Integer, schema.Number, schema.Boolean} {
		switch {
		case t == schema.Integer && s.Type&schema.Number == schema.Number:
			continue
		case t == schema.Number && s.Type&schema.Number == schema.Integer:
			continue
		case s.Type.Overlaps(t):
			types = append(types, t)
		}
	}

	var out *openapi3.Schema
	switch len(types) {
	case 0:
		out = openapi3.NewSchema()
	case 1:
		out = openAPIType(s, types[0])
	default:
		if s.Type&^schema.Null == schema.Any&^schema.Null {
			out = openapi3.NewSchema()
			break
		}
		out = openapi3.NewSchema()
		for _, t := range types {
			out.OneOf = append(out.OneOf, openAPIType(s, t).NewRef())
		}
	}

	out.Nullable = s.Type.Overlaps(schema.Null)
	out.Title = s.Title
	out.Description = s.Description
	if s.Default != nil {
		out.Default = doc.ToAny(s.Default.Value, doc.SerPolicy{})
	}
	for _, v := range s.Enum {
		out.Enum = append(out.Enum, doc.ToAny(v, doc.SerPolicy{}))
	}
	for k, v := range s.Annotations {
		if out.Extensions == nil {
			out.Extensions = map[string]any{}
		}
		out.Extensions[k] = v
	}
	if s.Secret {
		out.WriteOnly = true
	}
	return out
}

func openAPIType(s Shape, t schema.Types) *openapi3.Schema {
	out := openapi3.NewSchema()
	switch t {
	case schema.Object:
		out.Type = openapi3.TypeObject
		for _, p := range s.Object.Properties {
			if out.Properties == nil {
				out.Properties = openapi3.Schemas{}
			}
			out.Properties[p.Name] = ToOpenAPI(p.Shape).NewRef()
			if p.Required {
				out.Required = append(out.Required, p.Name)
			}
		}
		addl := s.Object.Additional
		if addl == nil && len(s.Object.Patterns) != 0 {
			u := Invalid()
			for _, p := range s.Object.Patterns {
				u = Union(u, p.Shape.Clone())
			}
			addl = &u
		}
		switch {
		case addl == nil:
		case addl.Type == schema.Invalid:
			out.AdditionalProperties = openapi3.AdditionalProperties{Has: openapi3.BoolPtr(false)}
		default:
			out.AdditionalProperties = openapi3.AdditionalProperties{Schema: ToOpenAPI(*addl).NewRef()}
		}

	case schema.Array:
		out.Type = openapi3.TypeArray
		if s.Array.Min != nil {
			out.MinItems = uint64(*s.Array.Min)
		}
		if s.Array.Max != nil {
			out.MaxItems = openapi3.Uint64Ptr(uint64(*s.Array.Max))
		}
		items := Invalid()
		for _, t := range s.Array.Tuple {
			items = Union(items, t.Clone())
		}
		if s.Array.Additional != nil {
			items = Union(items, s.Array.Additional.Clone())
		} else if len(s.Array.Tuple) == 0 {
			items = New()
		}
		out.Items = ToOpenAPI(items).NewRef()

	case schema.String:
		out.Type = openapi3.TypeString
		out.Format = string(s.String.Format)
		out.MinLength = uint64(s.String.MinLength)
		if s.String.MaxLength != nil {
			out.MaxLength = openapi3.Uint64Ptr(uint64(*s.String.MaxLength))
		}

	case schema.Integer, schema.Number:
		out.Type = openapi3.TypeNumber
		if t == schema.Integer {
			out.Type = openapi3.TypeInteger
		}
		if s.Numeric.Minimum != nil {
			out.Min = openapi3.Float64Ptr(asFloat(*s.Numeric.Minimum))
		}
		if s.Numeric.Maximum != nil {
			out.Max = openapi3.Float64Ptr(asFloat(*s.Numeric.Maximum))
		}

	case schema.Boolean:
		out.Type = openapi3.TypeBoolean
	}
	return out
}

func asFloat(n doc.HeapNode) float64 {
	switch n.Kind() {
	case doc.PosInt:
		return float64(n.PosInt())
	case doc.NegInt:
		return float64(n.NegInt())
	}
	return n.Float()
}
