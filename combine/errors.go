package combine

import (
	"errors"
	"fmt"

	"github.com/reoring/flowdoc"
	"github.com/reoring/flowdoc/schema"
)

var (
	// ErrSpillIO wraps failures reading or writing the spill file, and
	// spilled data which fails to decode.
	ErrSpillIO = errors.New("spill file error")
	// ErrUnknownBinding is returned when a document names a binding the
	// Spec doesn't have.
	ErrUnknownBinding = errors.New("unknown binding")
)

// FailedValidationError is a document which failed validation against its
// binding's schema.
type FailedValidationError struct {
	Binding string
	Failed  *schema.FailedValidation
}

func (e *FailedValidationError) Error() string {
	return fmt.Sprintf("document of binding %q failed validation against its schema: %v", e.Binding, e.Failed)
}

func (e *FailedValidationError) Unwrap() error { return e.Failed }

// Issues lists the validation failures.
func (e *FailedValidationError) Issues() flowdoc.Issues { return e.Failed.Issues() }

// ReductionError wraps a *reduce.Error raised while combining documents
// which share a key.
type ReductionError struct {
	Binding string
	Err     error
}

func (e *ReductionError) Error() string {
	return fmt.Sprintf("failed to combine documents of binding %q having a shared key: %v", e.Binding, e.Err)
}

func (e *ReductionError) Unwrap() error { return e.Err }

// AlreadyFullyReducedError is returned when a front document is added for a
// key that already has one.
type AlreadyFullyReducedError struct {
	Doc string
}

func (e *AlreadyFullyReducedError) Error() string {
	return "asked to left-combine, but right-hand document is already fully reduced: " + e.Doc
}
