package doc

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	j "github.com/goccy/go-json"

	"github.com/reoring/flowdoc"
)

// ParseJSON parses exactly one JSON document from data into the arena,
// applying opt's duplicate-key, depth and size limits.
func ParseJSON(a *Arena, data []byte, opt flowdoc.ParseOpt) (HeapNode, error) {
	src := flowdoc.EnforceSource(flowdoc.JSONBytes(data), opt)
	n, err := ReadJSON(a, src)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return HeapNode{}, io.ErrUnexpectedEOF
		}
		return HeapNode{}, err
	}
	if tok, err := src.NextToken(); !errors.Is(err, io.EOF) {
		if err != nil {
			return HeapNode{}, err
		}
		return HeapNode{}, fmt.Errorf("doc: unexpected %s after document", tok.Kind)
	}
	return n, nil
}

// ReadJSON reads the next document from a token stream. It returns io.EOF
// when the stream holds no further documents.
func ReadJSON(a *Arena, src flowdoc.Source) (HeapNode, error) {
	tok, err := src.NextToken()
	if err != nil {
		return HeapNode{}, err
	}
	r := reader{a: a, src: src}
	return r.value(tok, 0)
}

// reader keeps per-depth scratch stacks so that children can be gathered
// before their exact count is known, then copied into the arena once.
type reader struct {
	a      *Arena
	src    flowdoc.Source
	items  [][]HeapNode
	fields [][]HeapField
}

func (r *reader) next() (flowdoc.Token, error) {
	tok, err := r.src.NextToken()
	if errors.Is(err, io.EOF) {
		return tok, io.ErrUnexpectedEOF
	}
	return tok, err
}

func (r *reader) value(tok flowdoc.Token, depth int) (HeapNode, error) {
	switch tok.Kind {
	case flowdoc.TokenNull:
		return HeapNode{}, nil
	case flowdoc.TokenBool:
		return NewBool(tok.Bool), nil
	case flowdoc.TokenNumber:
		return ParseNumber(tok.Number)
	case flowdoc.TokenString:
		return NewString(r.a.String(tok.String)), nil
	case flowdoc.TokenBeginArray:
		if len(r.items) <= depth {
			r.items = append(r.items, make([][]HeapNode, depth+1-len(r.items))...)
		}
		scratch := r.items[depth][:0]
		for {
			tok, err := r.next()
			if err != nil {
				return HeapNode{}, err
			}
			if tok.Kind == flowdoc.TokenEndArray {
				break
			}
			v, err := r.value(tok, depth+1)
			if err != nil {
				return HeapNode{}, err
			}
			scratch = append(scratch, v)
		}
		r.items[depth] = scratch
		items := r.a.Items(len(scratch))
		copy(items, scratch)
		return NewArray(items), nil
	case flowdoc.TokenBeginObject:
		if len(r.fields) <= depth {
			r.fields = append(r.fields, make([][]HeapField, depth+1-len(r.fields))...)
		}
		scratch := r.fields[depth][:0]
		for {
			tok, err := r.next()
			if err != nil {
				return HeapNode{}, err
			}
			if tok.Kind == flowdoc.TokenEndObject {
				break
			}
			if tok.Kind != flowdoc.TokenKey {
				return HeapNode{}, fmt.Errorf("doc: expected object key, got %s", tok.Kind)
			}
			name := r.a.String(tok.String)
			if tok, err = r.next(); err != nil {
				return HeapNode{}, err
			}
			v, err := r.value(tok, depth+1)
			if err != nil {
				return HeapNode{}, err
			}
			scratch = append(scratch, HeapField{Property: name, Value: v})
		}
		r.fields[depth] = scratch
		fields := r.a.Fields(len(scratch))
		copy(fields, scratch)
		return NewObject(SortFields(fields)), nil
	}
	return HeapNode{}, fmt.Errorf("doc: unexpected token %s", tok.Kind)
}

// FromAny builds a document from a decoded Go value such as the output of
// json.Unmarshal into an any, or yaml.v3 decoding.
func FromAny(a *Arena, v any) (HeapNode, error) {
	switch t := v.(type) {
	case nil:
		return HeapNode{}, nil
	case bool:
		return NewBool(t), nil
	case string:
		return NewString(a.String(t)), nil
	case []byte:
		return NewBytes([]byte(a.String(b2s(t)))), nil
	case j.Number:
		return ParseNumber(string(t))
	case float64:
		if h, ok := integralFloat(t); ok && math.Abs(t) < 1<<53 {
			return h, nil
		}
		return NewFloat(t), nil
	case float32:
		return FromAny(a, float64(t))
	case int:
		return NewInt(int64(t)), nil
	case int64:
		return NewInt(t), nil
	case int32:
		return NewInt(int64(t)), nil
	case uint:
		return NewPosInt(uint64(t)), nil
	case uint64:
		return NewPosInt(t), nil
	case uint32:
		return NewPosInt(uint64(t)), nil
	case []any:
		items := a.Items(len(t))
		for i := range t {
			var err error
			if items[i], err = FromAny(a, t[i]); err != nil {
				return HeapNode{}, err
			}
		}
		return NewArray(items), nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := a.Fields(len(keys))
		for i, k := range keys {
			v, err := FromAny(a, t[k])
			if err != nil {
				return HeapNode{}, err
			}
			fields[i] = HeapField{Property: a.String(k), Value: v}
		}
		return NewObject(fields), nil
	case HeapNode:
		return t, nil
	}
	return HeapNode{}, fmt.Errorf("doc: cannot build a document from %T", v)
}

// MustFromJSON parses a literal document. It is meant for tests and static
// fixtures and panics on error.
func MustFromJSON(a *Arena, text string) HeapNode {
	n, err := ParseJSON(a, []byte(text), flowdoc.ParseOpt{})
	if err != nil {
		panic(err)
	}
	return n
}
