package shape

import (
	"errors"
	"fmt"

	"github.com/reoring/flowdoc/doc"
	"github.com/reoring/flowdoc/reduce"
	"github.com/reoring/flowdoc/schema"
)

const (
	// ComplexityLimitAnnotation overrides DefaultComplexityLimit for a
	// merged schema.
	ComplexityLimitAnnotation = "x-complexity-limit"
	// GenerationAnnotation marks the generation of a merged schema. Schemas
	// of an older generation are replaced rather than merged.
	GenerationAnnotation = "x-collection-generation-id"

	mergeURI = "flowdoc:///merge"
)

// ErrMergeSchema is wrapped by errors of schemas which jsonSchemaMerge
// can't build.
var ErrMergeSchema = errors.New("json-schema-merge strategy schema error")

// JSONSchemaMerge reduces JSON schemas by the union of their inferred
// shapes. The result accepts every document either side accepts.
type JSONSchemaMerge struct{}

func init() {
	reduce.Register("jsonSchemaMerge", func(cfg map[string]any) (reduce.Strategy, error) {
		var c struct{}
		if err := reduce.DecodeConfig(cfg, &c); err != nil {
			return nil, err
		}
		return JSONSchemaMerge{}, nil
	})
}

func (JSONSchemaMerge) Name() string { return "jsonSchemaMerge" }

func (JSONSchemaMerge) Apply(c *reduce.Cursor) (doc.HeapNode, bool, error) {
	c.SkipRHS()

	var lhs any = false
	if c.LHS.Present() {
		lhs = doc.ToAny(c.LHS, doc.SerPolicy{})
	}
	left, err := inferSchema(lhs)
	if err != nil {
		return doc.HeapNode{}, false, c.Fail(err)
	}
	right, err := inferSchema(doc.ToAny(c.RHS, doc.SerPolicy{}))
	if err != nil {
		return doc.HeapNode{}, false, c.Fail(err)
	}

	limit := DefaultComplexityLimit
	if l, ok := complexityLimit(right.Annotations[ComplexityLimitAnnotation]); ok {
		limit = l
	}

	var merged Shape
	lgen, lok := left.Annotations[GenerationAnnotation].(string)
	rgen, rok := right.Annotations[GenerationAnnotation].(string)
	switch {
	case lok && rok && lgen < rgen:
		merged = right
	case lok && rok && lgen > rgen:
		merged = left
	case lok != rok:
		gen := lgen
		if rok {
			gen = rgen
		}
		merged = Union(left, right)
		if merged.Annotations == nil {
			merged.Annotations = map[string]any{}
		}
		merged.Annotations[GenerationAnnotation] = gen
	default:
		merged = Union(left, right)
	}
	merged.EnforceComplexityLimit(limit)

	out, err := ToDocument(c.Arena, merged)
	if err != nil {
		return doc.HeapNode{}, false, c.Fail(err)
	}
	return out, false, nil
}

func inferSchema(v any) (Shape, error) {
	s, err := schema.Build(mergeURI, v)
	if err != nil {
		return Shape{}, fmt.Errorf("%w: %w", ErrMergeSchema, err)
	}
	ib := schema.NewIndexBuilder()
	if err := ib.Add(s); err != nil {
		return Shape{}, fmt.Errorf("%w: %w", ErrMergeSchema, err)
	}
	idx, err := ib.Build()
	if err != nil {
		return Shape{}, fmt.Errorf("%w: %w", ErrMergeSchema, err)
	}
	return Infer(s, idx), nil
}

func complexityLimit(v any) (int, bool) {
	n, err := doc.FromAny(doc.NewArena(), v)
	if err != nil || n.Kind() != doc.PosInt {
		return 0, false
	}
	if l := n.PosInt(); l >= 1 && l <= 100_000 {
		return int(l), true
	}
	return 0, false
}
