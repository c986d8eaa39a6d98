package schema

import (
	"fmt"
	"math"
	"strings"

	"github.com/reoring/flowdoc/doc"
)

// Types is a set of JSON-Schema types. "number" is the union of Integer and
// Fractional.
type Types uint8

const (
	Array Types = 1 << iota
	Boolean
	Fractional
	Integer
	Null
	Object
	String

	Invalid Types = 0
	Number        = Integer | Fractional
	Any           = Array | Boolean | Fractional | Integer | Null | Object | String
)

// TypeForName maps a type keyword value to its set.
func TypeForName(name string) (Types, bool) {
	switch name {
	case "array":
		return Array, true
	case "boolean":
		return Boolean, true
	case "fractional":
		return Fractional, true
	case "integer":
		return Integer, true
	case "null":
		return Null, true
	case "number":
		return Number, true
	case "object":
		return Object, true
	case "string":
		return String, true
	}
	return Invalid, false
}

// TypeOf returns the single type of n. Floats with no fractional part are
// integers.
func TypeOf[N doc.Node[N]](n N) Types {
	switch n.Kind() {
	case doc.Null:
		return Null
	case doc.Bool:
		return Boolean
	case doc.PosInt, doc.NegInt:
		return Integer
	case doc.Float:
		f := n.Float()
		if f == math.Trunc(f) && !math.IsInf(f, 0) {
			return Integer
		}
		return Fractional
	case doc.String, doc.Bytes:
		return String
	case doc.Array:
		return Array
	}
	return Object
}

func (t Types) Overlaps(o Types) bool { return t&o != 0 }

// IsSingle reports whether t names exactly one kind of JSON value, treating
// the number types as one kind.
func (t Types) IsSingle() bool {
	switch t {
	case Array, Boolean, Fractional, Integer, Number, Object, String:
		return true
	}
	return false
}

// IsKeyable reports whether values of t may form a collection key.
func (t Types) IsKeyable() bool {
	switch t {
	case Boolean, Integer, Number, Fractional, String:
		return true
	}
	return false
}

// Names lists the type names of t in a stable order, folding Integer and
// Fractional into "number" when both are present.
func (t Types) Names() []string {
	var out []string
	add := func(bit Types, name string) {
		if t&bit != 0 {
			out = append(out, name)
		}
	}
	add(Array, "array")
	add(Boolean, "boolean")
	switch t & Number {
	case Number:
		out = append(out, "number")
	case Integer:
		out = append(out, "integer")
	case Fractional:
		out = append(out, "fractional")
	}
	add(Null, "null")
	add(Object, "object")
	add(String, "string")
	return out
}

func (t Types) String() string {
	if t == Invalid {
		return "invalid"
	}
	return strings.Join(t.Names(), ", ")
}

func parseTypes(v any) (Types, error) {
	one := func(v any) (Types, error) {
		s, ok := v.(string)
		if !ok {
			return Invalid, fmt.Errorf("expected a type name, not %T", v)
		}
		t, ok := TypeForName(s)
		if !ok {
			return Invalid, fmt.Errorf("unknown type %q", s)
		}
		return t, nil
	}
	switch vv := v.(type) {
	case []any:
		var out Types
		for _, item := range vv {
			t, err := one(item)
			if err != nil {
				return Invalid, err
			}
			out |= t
		}
		return out, nil
	default:
		return one(v)
	}
}
