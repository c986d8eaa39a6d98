package doc

import (
	"math"
	"strconv"
	"strings"
)

// ParseNumber classifies the literal text of a JSON number. Text holding a
// fraction or exponent is a Float. Otherwise it is a PosInt or, with a
// leading '-', a NegInt. Integers that overflow 64 bits fall back to Float.
func ParseNumber(text string) (HeapNode, error) {
	if strings.ContainsAny(text, ".eE") {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return HeapNode{}, err
		}
		return NewFloat(f), nil
	}
	if strings.HasPrefix(text, "-") {
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			return NewInt(i), nil
		}
	} else if u, err := strconv.ParseUint(text, 10, 64); err == nil {
		return NewPosInt(u), nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return HeapNode{}, err
	}
	return NewFloat(f), nil
}

// compareNumbers orders two numeric nodes by value.
func compareNumbers(ak Kind, au uint64, ai int64, af float64, bk Kind, bu uint64, bi int64, bf float64) int {
	switch {
	case ak == PosInt && bk == PosInt:
		return cmp3(au, bu)
	case ak == NegInt && bk == NegInt:
		return cmp3(ai, bi)
	case ak == NegInt && bk == PosInt:
		return -1
	case ak == PosInt && bk == NegInt:
		return 1
	}
	return compareFloats(asFloat(ak, au, ai, af), asFloat(bk, bu, bi, bf))
}

func asFloat(k Kind, u uint64, i int64, f float64) float64 {
	switch k {
	case PosInt:
		return float64(u)
	case NegInt:
		return float64(i)
	}
	return f
}

// compareFloats is a total order. NaN sorts after every other number.
func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	case a == b:
		return 0
	case math.IsNaN(a) && math.IsNaN(b):
		return 0
	case math.IsNaN(a):
		return 1
	}
	return -1
}

func cmp3[T int64 | uint64 | int | string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// integralFloat reports whether f is a whole number representable as a
// PosInt or NegInt, returning that form.
func integralFloat(f float64) (HeapNode, bool) {
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return HeapNode{}, false
	}
	if f >= 0 && f < 1<<64 {
		return NewPosInt(uint64(f)), true
	}
	if f < 0 && f >= math.MinInt64 {
		return NewInt(int64(f)), true
	}
	return HeapNode{}, false
}
