package reduce

import (
	"math"
	"math/big"
	"math/bits"
	"strconv"
	"strings"

	"github.com/reoring/flowdoc/doc"
)

// Sum adds numbers. Integers stay exact and fail on overflow rather than
// wrapping, floats fail on reaching infinity, and numeric strings switch to
// arbitrary-precision decimal arithmetic with a string result.
type Sum struct{}

func (Sum) Name() string { return "sum" }

func (Sum) Apply(c *Cursor) (doc.HeapNode, bool, error) {
	l, lok := number{kind: doc.PosInt}, true
	if c.LHS.Present() {
		l, lok = numberOf(c.LHS)
	}
	r, rok := numberOf(c.RHS)
	if !lok || !rok {
		return doc.HeapNode{}, false, c.Fail(ErrSumWrongType)
	}
	c.Skip(1)

	out, ok := l.add(r)
	if !ok {
		return doc.HeapNode{}, false, c.Fail(ErrSumNumericOverflow)
	}
	if out.kind == doc.String {
		return doc.NewString(c.Arena.String(out.str)), false, nil
	}
	return out.heap(), false, nil
}

// number is a summand. kind is doc.String for a decimal parsed from text.
type number struct {
	kind doc.Kind
	u    uint64
	i    int64
	f    float64
	str  string
	dec  *big.Rat
}

func numberOf(n doc.Lazy) (number, bool) {
	switch n.Kind() {
	case doc.PosInt:
		return number{kind: doc.PosInt, u: n.PosInt()}, true
	case doc.NegInt:
		return number{kind: doc.NegInt, i: n.NegInt()}, true
	case doc.Float:
		return number{kind: doc.Float, f: n.Float()}, true
	case doc.String:
		s := strings.TrimSpace(n.Str())
		r, ok := new(big.Rat).SetString(s)
		if !ok {
			return number{}, false
		}
		return number{kind: doc.String, str: s, dec: r}, true
	}
	return number{}, false
}

func (n number) heap() doc.HeapNode {
	switch n.kind {
	case doc.PosInt:
		return doc.NewPosInt(n.u)
	case doc.NegInt:
		return doc.NewInt(n.i)
	}
	return doc.NewFloat(n.f)
}

func (n number) float() float64 {
	switch n.kind {
	case doc.PosInt:
		return float64(n.u)
	case doc.NegInt:
		return float64(n.i)
	}
	return n.f
}

// decimal returns n as an exact rational and the number of fractional
// digits to render it with.
func (n number) decimal() (*big.Rat, int) {
	switch n.kind {
	case doc.PosInt:
		return new(big.Rat).SetUint64(n.u), 0
	case doc.NegInt:
		return new(big.Rat).SetInt64(n.i), 0
	case doc.Float:
		s := strconv.FormatFloat(n.f, 'f', -1, 64)
		r, _ := new(big.Rat).SetString(s)
		return r, scale(s)
	}
	return n.dec, scale(n.str)
}

// scale counts the fractional digits of a decimal literal, after applying
// any exponent.
func scale(s string) int {
	mant, exp := s, 0
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		mant = s[:i]
		exp, _ = strconv.Atoi(s[i+1:])
	}
	frac := 0
	if i := strings.IndexByte(mant, '.'); i >= 0 {
		frac = len(mant) - i - 1
	}
	return max(frac-exp, 0)
}

func (n number) add(o number) (number, bool) {
	switch {
	case n.kind == doc.String || o.kind == doc.String:
		a, as := n.decimal()
		b, bs := o.decimal()
		sum := new(big.Rat).Add(a, b)
		return number{kind: doc.String, str: sum.FloatString(max(as, bs))}, true

	case n.kind == doc.Float || o.kind == doc.Float:
		f := n.float() + o.float()
		if math.IsInf(f, 0) {
			return number{}, false
		}
		return number{kind: doc.Float, f: f}, true

	case n.kind == doc.PosInt && o.kind == doc.PosInt:
		s, carry := bits.Add64(n.u, o.u, 0)
		if carry != 0 {
			return number{}, false
		}
		return number{kind: doc.PosInt, u: s}, true
	}

	// At least one side is negative: sum exactly, then narrow.
	sum := new(big.Int).Add(n.bigInt(), o.bigInt())
	switch {
	case sum.Sign() >= 0 && sum.IsUint64():
		return number{kind: doc.PosInt, u: sum.Uint64()}, true
	case sum.IsInt64():
		return number{kind: doc.NegInt, i: sum.Int64()}, true
	}
	return number{}, false
}

func (n number) bigInt() *big.Int {
	if n.kind == doc.PosInt {
		return new(big.Int).SetUint64(n.u)
	}
	return big.NewInt(n.i)
}
