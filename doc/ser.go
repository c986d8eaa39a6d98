package doc

import (
	"unicode/utf8"

	j "github.com/goccy/go-json"
)

// SerPolicy truncates documents rendered for downstream consumers that
// cannot take unbounded values. A zero limit means no limit.
type SerPolicy struct {
	StrTruncateAfter       int
	ArrayTruncateAfter     int
	ObjTruncateAfter       int // applies to the root object
	NestedObjTruncateAfter int // applies to every object below the root
}

// DebugPolicy bounds documents embedded in error messages.
func DebugPolicy() SerPolicy {
	return SerPolicy{
		StrTruncateAfter:       512,
		ArrayTruncateAfter:     200,
		ObjTruncateAfter:       400,
		NestedObjTruncateAfter: 100,
	}
}

func limit(n, lim int) int {
	if lim > 0 && n > lim {
		return lim
	}
	return n
}

// truncateString shortens s to at most lim bytes without splitting a rune.
func (p SerPolicy) truncateString(s string) string {
	if p.StrTruncateAfter <= 0 || len(s) <= p.StrTruncateAfter {
		return s
	}
	at := p.StrTruncateAfter
	for at > 0 && !utf8.RuneStart(s[at]) {
		at--
	}
	return s[:at]
}

func (p SerPolicy) child() SerPolicy {
	p.ObjTruncateAfter = p.NestedObjTruncateAfter
	return p
}

// ToAny renders n as plain Go values: nil, bool, uint64, int64, float64,
// string, []byte, []any and map[string]any.
func ToAny[N Node[N]](n N, p SerPolicy) any {
	switch n.Kind() {
	case Null:
		return nil
	case Bool:
		return n.Bool()
	case PosInt:
		return n.PosInt()
	case NegInt:
		return n.NegInt()
	case Float:
		return n.Float()
	case String:
		return p.truncateString(n.Str())
	case Bytes:
		return append([]byte(nil), n.Bytes()...)
	case Array:
		c := p.child()
		out := make([]any, limit(n.Len(), p.ArrayTruncateAfter))
		for i := range out {
			out[i] = ToAny(n.Item(i), c)
		}
		return out
	default:
		c := p.child()
		cnt := limit(n.Len(), p.ObjTruncateAfter)
		out := make(map[string]any, cnt)
		for i := 0; i < cnt; i++ {
			name, v := n.Field(i)
			out[name] = ToAny(v, c)
		}
		return out
	}
}

// MarshalJSON renders n as JSON text under policy p.
func MarshalJSON[N Node[N]](n N, p SerPolicy) ([]byte, error) {
	return j.Marshal(ToAny(n, p))
}

func (n HeapNode) MarshalJSON() ([]byte, error) { return MarshalJSON(n, SerPolicy{}) }

func (l Lazy) MarshalJSON() ([]byte, error) {
	if !l.Present() {
		return []byte("null"), nil
	}
	return MarshalJSON(l, SerPolicy{})
}

func (a Archived) MarshalJSON() ([]byte, error) { return MarshalJSON(a, SerPolicy{}) }
