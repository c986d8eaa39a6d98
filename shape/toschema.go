package shape

import (
	"github.com/reoring/flowdoc/doc"
	"github.com/reoring/flowdoc/schema"
)

// ToSchema renders s as a JSON schema. Rendering an inferred shape and
// inferring it again yields an equivalent shape.
//
// The result holds strings, bools, numbers, slices, maps and doc.HeapNode
// values, and marshals to JSON directly.
func ToSchema(s Shape) any {
	if s.Type == schema.Invalid {
		return false
	}
	out := map[string]any{}

	if s.Type != schema.Any {
		var names []any
		for _, n := range s.Type.Names() {
			if n == "fractional" {
				n = "number"
			}
			names = append(names, n)
		}
		if len(names) == 1 {
			out["type"] = names[0]
		} else {
			out["type"] = names
		}
	}
	if s.Enum != nil {
		enum := make([]any, len(s.Enum))
		for i, v := range s.Enum {
			enum[i] = v
		}
		out["enum"] = enum
	}
	if s.Title != "" {
		out["title"] = s.Title
	}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if s.Default != nil {
		out["default"] = s.Default.Value
	}

	if s.Type.Overlaps(schema.Object) {
		props := map[string]any{}
		var required []any
		for _, p := range s.Object.Properties {
			if p.Required {
				required = append(required, p.Name)
			}
			props[p.Name] = ToSchema(p.Shape)
		}
		if len(props) != 0 {
			out["properties"] = props
		}
		if len(required) != 0 {
			out["required"] = required
		}
		if len(s.Object.Patterns) != 0 {
			patterns := map[string]any{}
			for _, p := range s.Object.Patterns {
				patterns[p.Re.String()] = ToSchema(p.Shape)
			}
			out["patternProperties"] = patterns
		}
		if s.Object.Additional != nil {
			out["additionalProperties"] = ToSchema(*s.Object.Additional)
		}
	}

	if s.Type.Overlaps(schema.Array) {
		if s.Array.Min != nil && *s.Array.Min != 0 {
			out["minItems"] = *s.Array.Min
		}
		if s.Array.Max != nil {
			out["maxItems"] = *s.Array.Max
		}
		if len(s.Array.Tuple) != 0 {
			items := make([]any, len(s.Array.Tuple))
			for i, t := range s.Array.Tuple {
				items[i] = ToSchema(t)
			}
			out["items"] = items
			if s.Array.Additional != nil {
				out["additionalItems"] = ToSchema(*s.Array.Additional)
			}
		} else if s.Array.Additional != nil {
			out["items"] = ToSchema(*s.Array.Additional)
		}
	}

	if s.Type.Overlaps(schema.String) {
		if s.String.ContentEncoding != "" {
			out["contentEncoding"] = s.String.ContentEncoding
		}
		if s.String.ContentType != "" {
			out["contentMediaType"] = s.String.ContentType
		}
		if s.String.Format != "" {
			out["format"] = string(s.String.Format)
		}
		if s.String.MinLength != 0 {
			out["minLength"] = s.String.MinLength
		}
		if s.String.MaxLength != nil {
			out["maxLength"] = *s.String.MaxLength
		}
	}

	if s.Type.Overlaps(schema.Number) {
		if s.Numeric.Minimum != nil {
			out["minimum"] = *s.Numeric.Minimum
		}
		if s.Numeric.Maximum != nil {
			out["maximum"] = *s.Numeric.Maximum
		}
	}

	if s.Secret {
		out["secret"] = true
	}
	if v := s.Reduction.Value(); v != nil {
		out["reduce"] = v
	}
	for k, v := range s.Annotations {
		out[k] = v
	}
	return out
}

// ToDocument renders s as a JSON schema document.
func ToDocument(a *doc.Arena, s Shape) (doc.HeapNode, error) {
	return doc.FromAny(a, ToSchema(s))
}
