package doc

import (
	"strconv"
	"strings"

	eng "github.com/reoring/flowdoc/internal/engine"
)

// TokenKind distinguishes the parts of a Pointer.
type TokenKind uint8

const (
	PropertyToken TokenKind = iota
	IndexToken
	NextIndexToken // "-", one past the end of an array
)

// Token is one unescaped JSON Pointer component. Index tokens keep their
// text in Property so they can also address object properties.
type Token struct {
	Kind     TokenKind
	Property string
	Index    int
}

// Pointer is a parsed JSON Pointer (RFC 6901).
type Pointer []Token

// NewPointer parses s, which is either empty or begins with '/'. Tokens with
// a leading '+' or a leading zero are properties, never indices.
func NewPointer(s string) Pointer {
	if s == "" {
		return nil
	}
	parts := strings.Split(strings.TrimPrefix(s, "/"), "/")
	p := make(Pointer, 0, len(parts))
	for _, part := range parts {
		p = append(p, ParseToken(eng.UnescapePointerToken(part)))
	}
	return p
}

// ParseToken classifies an already-unescaped token.
func ParseToken(t string) Token {
	if t == "-" {
		return Token{Kind: NextIndexToken, Property: t}
	}
	if t == "" || t[0] == '+' || (t[0] == '0' && len(t) > 1) {
		return Token{Kind: PropertyToken, Property: t}
	}
	if i, err := strconv.Atoi(t); err == nil && i >= 0 {
		return Token{Kind: IndexToken, Property: t, Index: i}
	}
	return Token{Kind: PropertyToken, Property: t}
}

// Push returns p extended with a property token.
func (p Pointer) Push(property string) Pointer {
	return append(p[:len(p):len(p)], Token{Kind: PropertyToken, Property: property})
}

// PushIndex returns p extended with an index token.
func (p Pointer) PushIndex(i int) Pointer {
	return append(p[:len(p):len(p)], Token{Kind: IndexToken, Property: strconv.Itoa(i), Index: i})
}

func (p Pointer) String() string {
	var b strings.Builder
	for _, t := range p {
		b.WriteByte('/')
		b.WriteString(eng.EscapePointerToken(t.Property))
	}
	return b.String()
}

// Query walks n along p.
func Query[N Node[N]](p Pointer, n N) (N, bool) {
	for _, t := range p {
		switch n.Kind() {
		case Object:
			v, ok := FindField(n, t.Property)
			if !ok {
				return v, false
			}
			n = v
		case Array:
			if t.Kind != IndexToken || t.Index >= n.Len() {
				var zero N
				return zero, false
			}
			n = n.Item(t.Index)
		default:
			var zero N
			return zero, false
		}
	}
	return n, true
}

// Query walks l along p and returns an absent Lazy when p doesn't resolve.
func (p Pointer) Query(l Lazy) Lazy {
	if !l.Present() {
		return l
	}
	v, ok := Query(p, l)
	if !ok {
		return Lazy{}
	}
	return v
}

// Create sets the location p within *root to value, creating intermediate
// objects and arrays where the walk meets null, and padding arrays with null.
// Containers along the path are rebuilt so that shared children are never
// written through. It reports false when p runs into a scalar, or applies a
// property to an array.
func (p Pointer) Create(a *Arena, root *HeapNode, value HeapNode) bool {
	out, ok := p.create(a, *root, value)
	if ok {
		*root = out
	}
	return ok
}

func (p Pointer) create(a *Arena, n HeapNode, value HeapNode) (HeapNode, bool) {
	if len(p) == 0 {
		return value, true
	}
	t := p[0]
	if n.kind == Null {
		if t.Kind == PropertyToken {
			n = NewObject(nil)
		} else {
			n = NewArray(nil)
		}
	}
	switch n.kind {
	case Object:
		child, _ := n.Get(t.Property)
		child, ok := p[1:].create(a, child, value)
		if !ok {
			return n, false
		}
		return n.with(a, t.Property, child), true
	case Array:
		idx := t.Index
		switch t.Kind {
		case PropertyToken:
			return n, false
		case NextIndexToken:
			idx = len(n.items)
		}
		var child HeapNode
		if idx < len(n.items) {
			child = n.items[idx]
		}
		child, ok := p[1:].create(a, child, value)
		if !ok {
			return n, false
		}
		items := a.Items(max(len(n.items), idx+1))
		copy(items, n.items)
		items[idx] = child
		return NewArray(items), true
	}
	return n, false
}

// with returns a copy of object n where property is set to v.
func (n HeapNode) with(a *Arena, property string, v HeapNode) HeapNode {
	i := 0
	for i < len(n.fields) && n.fields[i].Property < property {
		i++
	}
	if i < len(n.fields) && n.fields[i].Property == property {
		fields := a.Fields(len(n.fields))
		copy(fields, n.fields)
		fields[i].Value = v
		return NewObject(fields)
	}
	fields := a.Fields(len(n.fields) + 1)
	copy(fields, n.fields[:i])
	fields[i] = HeapField{Property: a.String(property), Value: v}
	copy(fields[i+1:], n.fields[i:])
	return NewObject(fields)
}
