// Package shape infers the possible shapes of document locations from
// schemas, and widens them from observed documents.
//
// A Shape is an over-approximation: every document valid against the
// schema it was inferred from is accepted by the shape, but the shape may
// accept documents the schema rejects.
package shape

import (
	"reflect"
	"regexp"

	j "github.com/goccy/go-json"

	"github.com/reoring/flowdoc/doc"
	"github.com/reoring/flowdoc/schema"
)

// Shape describes the values a document location may take.
//
// Union and Intersect consume their arguments: callers must not use either
// operand afterwards. Use Clone to keep a copy.
type Shape struct {
	Type schema.Types
	// Enum is nil when values are unconstrained. Otherwise it's sorted by
	// doc.Compare.
	Enum        []doc.HeapNode
	Title       string
	Description string
	Reduction   Reduction
	Provenance  Provenance
	Default     *Default
	Secret      bool
	// Annotations holds x- prefixed keywords by name.
	Annotations map[string]any

	String  StringShape
	Numeric NumericShape
	Array   ArrayShape
	Object  ObjShape
}

// Default is a location's default value and the error, if any, from
// validating it against the location's schema.
type Default struct {
	Value doc.HeapNode
	Err   *schema.FailedValidation
}

type StringShape struct {
	ContentEncoding string
	ContentType     string
	Format          schema.Format
	MaxLength       *int
	MinLength       int
}

// NumericShape bounds numbers. Bounds are integer or float documents.
type NumericShape struct {
	Minimum *doc.HeapNode
	Maximum *doc.HeapNode
}

type ArrayShape struct {
	Min        *int
	Max        *int
	Tuple      []Shape
	Additional *Shape
}

// ObjShape describes object properties. Properties are sorted by name and
// Patterns by regex text.
type ObjShape struct {
	Properties []ObjProperty
	Patterns   []ObjPattern
	Additional *Shape
}

type ObjProperty struct {
	Name     string
	Required bool
	Shape    Shape
}

type ObjPattern struct {
	Re    *regexp.Regexp
	Shape Shape
}

// Reduction is the reduce annotation of a location. The zero value is
// unset. Multiple means the location was unioned from shapes with
// differing strategies.
type Reduction struct {
	Multiple bool
	Strategy string

	value any
	key   string
}

// ReductionOf builds a Reduction from a reduce annotation value.
func ReductionOf(v any) Reduction {
	r := Reduction{value: v}
	if m, ok := v.(map[string]any); ok {
		r.Strategy, _ = m["strategy"].(string)
	}
	b, _ := j.Marshal(v)
	r.key = string(b)
	return r
}

// IsUnset reports whether no strategy applies.
func (r Reduction) IsUnset() bool { return r.Strategy == "" && !r.Multiple }

// Value returns the annotation value of a single strategy, or nil.
func (r Reduction) Value() any {
	if r.Multiple {
		return nil
	}
	return r.value
}

func (r Reduction) Equal(o Reduction) bool {
	return r.Multiple == o.Multiple && r.key == o.key
}

func (r Reduction) union(o Reduction) Reduction {
	switch {
	case r.Equal(o):
		return r
	case r.IsUnset(), o.IsUnset():
		return Reduction{}
	}
	return Reduction{Multiple: true}
}

func (r Reduction) intersect(o Reduction) Reduction {
	if r.IsUnset() {
		return o
	}
	return r
}

// ProvenanceKind describes where a location's schema came from.
type ProvenanceKind uint8

const (
	// ProvenanceUnset locations have no constraining keywords.
	ProvenanceUnset ProvenanceKind = iota
	// ProvenanceReference locations flow from a $ref to Provenance.Ref.
	ProvenanceReference
	// ProvenanceInline locations have local keywords which constrain them.
	ProvenanceInline
)

type Provenance struct {
	Kind ProvenanceKind
	Ref  string
}

func (p Provenance) union(o Provenance) Provenance {
	switch {
	case p == o:
		return p
	case p.Kind == ProvenanceUnset, o.Kind == ProvenanceUnset:
		return Provenance{}
	}
	return Provenance{Kind: ProvenanceInline}
}

func (p Provenance) intersect(o Provenance) Provenance {
	switch {
	case p == o:
		return p
	case p.Kind == ProvenanceUnset:
		return o
	case o.Kind == ProvenanceUnset:
		return p
	}
	return Provenance{Kind: ProvenanceInline}
}

// New returns a shape which accepts any value.
func New() Shape { return Shape{Type: schema.Any} }

// Invalid returns a shape which accepts no value.
func Invalid() Shape {
	return Shape{Type: schema.Invalid, Provenance: Provenance{Kind: ProvenanceInline}}
}

// Clone returns a deep copy of s. Document values are immutable and shared.
func (s Shape) Clone() Shape {
	out := s
	if s.Enum != nil {
		out.Enum = append([]doc.HeapNode(nil), s.Enum...)
	}
	if s.Default != nil {
		d := *s.Default
		out.Default = &d
	}
	if s.Annotations != nil {
		out.Annotations = make(map[string]any, len(s.Annotations))
		for k, v := range s.Annotations {
			out.Annotations[k] = v
		}
	}
	out.String.MaxLength = cloneInt(s.String.MaxLength)
	out.Array.Min = cloneInt(s.Array.Min)
	out.Array.Max = cloneInt(s.Array.Max)
	out.Array.Tuple = nil
	for _, t := range s.Array.Tuple {
		out.Array.Tuple = append(out.Array.Tuple, t.Clone())
	}
	out.Array.Additional = cloneShape(s.Array.Additional)
	out.Object.Properties = nil
	for _, p := range s.Object.Properties {
		p.Shape = p.Shape.Clone()
		out.Object.Properties = append(out.Object.Properties, p)
	}
	out.Object.Patterns = nil
	for _, p := range s.Object.Patterns {
		p.Shape = p.Shape.Clone()
		out.Object.Patterns = append(out.Object.Patterns, p)
	}
	out.Object.Additional = cloneShape(s.Object.Additional)
	return out
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneShape(s *Shape) *Shape {
	if s == nil {
		return nil
	}
	c := s.Clone()
	return &c
}

func intPtr(v int) *int { return &v }

// Property returns the named property, if present.
func (o *ObjShape) Property(name string) (*ObjProperty, bool) {
	for i := range o.Properties {
		if o.Properties[i].Name == name {
			return &o.Properties[i], true
		}
	}
	return nil, false
}

func enumTypes(enum []doc.HeapNode) schema.Types {
	var t schema.Types
	for _, v := range enum {
		t |= schema.TypeOf(v)
	}
	return t
}

func filterEnum(t schema.Types, enum []doc.HeapNode) []doc.HeapNode {
	out := make([]doc.HeapNode, 0, len(enum))
	for _, v := range enum {
		if t.Overlaps(schema.TypeOf(v)) {
			out = append(out, v)
		}
	}
	return out
}

func annotationsEqual(a, b any) bool { return reflect.DeepEqual(a, b) }
