package doc

import (
	"bytes"
	"strings"
)

// rank is the cross-type order: null < bool < number < string < array <
// object < bytes. Bytes never appear in user documents.
func rank(k Kind) int {
	switch k {
	case Null:
		return 0
	case Bool:
		return 1
	case PosInt, NegInt, Float:
		return 2
	case String:
		return 3
	case Array:
		return 4
	case Object:
		return 5
	}
	return 6
}

// Compare is a total deep order over documents of any realization. It
// returns -1, 0 or +1.
//
// Numbers compare by value, so 20 equals 20.0. Arrays compare item by item
// and a strict prefix ranks lower. Objects walk their sorted fields in step,
// comparing property names and then values; an object whose fields run out
// first ranks lower.
func Compare[L Node[L], R Node[R]](a L, b R) int {
	ak, bk := a.Kind(), b.Kind()
	if ra, rb := rank(ak), rank(bk); ra != rb {
		return cmp3(ra, rb)
	}
	switch ak {
	case Null:
		return 0
	case Bool:
		switch av, bv := a.Bool(), b.Bool(); {
		case av == bv:
			return 0
		case !av:
			return -1
		}
		return 1
	case PosInt, NegInt, Float:
		return compareNodeNumbers(a, b)
	case String:
		return strings.Compare(a.Str(), b.Str())
	case Bytes:
		return bytes.Compare(a.Bytes(), b.Bytes())
	case Array:
		an, bn := a.Len(), b.Len()
		for i := 0; i < an && i < bn; i++ {
			if c := Compare(a.Item(i), b.Item(i)); c != 0 {
				return c
			}
		}
		return cmp3(an, bn)
	default:
		an, bn := a.Len(), b.Len()
		for i := 0; i < an && i < bn; i++ {
			ap, av := a.Field(i)
			bp, bv := b.Field(i)
			if c := strings.Compare(ap, bp); c != 0 {
				return c
			}
			if c := Compare(av, bv); c != 0 {
				return c
			}
		}
		return cmp3(an, bn)
	}
}

func compareNodeNumbers[L Node[L], R Node[R]](a L, b R) int {
	var au, bu uint64
	var ai, bi int64
	var af, bf float64
	ak, bk := a.Kind(), b.Kind()
	switch ak {
	case PosInt:
		au = a.PosInt()
	case NegInt:
		ai = a.NegInt()
	default:
		af = a.Float()
	}
	switch bk {
	case PosInt:
		bu = b.PosInt()
	case NegInt:
		bi = b.NegInt()
	default:
		bf = b.Float()
	}
	return compareNumbers(ak, au, ai, af, bk, bu, bi, bf)
}

// Equal reports whether Compare(a, b) == 0.
func Equal[L Node[L], R Node[R]](a L, b R) bool { return Compare(a, b) == 0 }
