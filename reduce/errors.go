package reduce

import (
	"errors"
	"fmt"
)

var (
	ErrAppendWrongType    = errors.New("'append' strategy expects arrays")
	ErrSumWrongType       = errors.New("'sum' strategy expects numbers")
	ErrSumNumericOverflow = errors.New("'sum' resulted in numeric overflow")
	ErrMergeWrongType     = errors.New("'merge' strategy expects objects or arrays")
	ErrSetWrongType       = errors.New("'set' strategy expects objects having only 'add', 'remove' and 'intersect' properties with consistent object or array types")
	ErrNotAssociative     = errors.New("reduction is not associative and cannot be applied to a partially-reduced left-hand document")
)

// Error locates a failed reduction. LHS and RHS are JSON renderings of the
// two values, truncated for display; LHS is empty when the location was
// missing on the left.
type Error struct {
	Ptr string
	LHS string
	RHS string
	Err error
}

func (e *Error) Error() string {
	ptr := e.Ptr
	if ptr == "" {
		ptr = "/"
	}
	if e.LHS == "" {
		return fmt.Sprintf("%v at %s (rhs %s)", e.Err, ptr, e.RHS)
	}
	return fmt.Sprintf("%v at %s (lhs %s, rhs %s)", e.Err, ptr, e.LHS, e.RHS)
}

func (e *Error) Unwrap() error { return e.Err }
