package schema

import (
	"errors"
	"fmt"
)

// Details of build errors. They're reported wrapped in an *AtKeywordError
// or *AtSchemaError.
var (
	ErrExpectedBool          = errors.New("expected a boolean")
	ErrExpectedString        = errors.New("expected a string")
	ErrExpectedObject        = errors.New("expected an object")
	ErrExpectedArray         = errors.New("expected an array")
	ErrExpectedSchema        = errors.New("expected a schema")
	ErrExpectedSchemaOrArray = errors.New("expected a schema or array of schemas")
	ErrExpectedUnsigned      = errors.New("expected an unsigned integer")
	ErrExpectedNumber        = errors.New("expected a number")
	ErrExpectedStringArray   = errors.New("expected an array of strings")
)

// ExpectedTypeError is a malformed type keyword.
type ExpectedTypeError struct{ Err error }

func (e *ExpectedTypeError) Error() string {
	return fmt.Sprintf("expected a type or array of types: %v", e.Err)
}
func (e *ExpectedTypeError) Unwrap() error { return e.Err }

// UnknownKeywordError is a keyword the builder doesn't support.
type UnknownKeywordError struct{ Keyword string }

func (e *UnknownKeywordError) Error() string {
	return fmt.Sprintf("unexpected keyword '%s'", e.Keyword)
}

// UnexpectedFragmentError is an $id having a fragment component.
type UnexpectedFragmentError struct{ Fragment string }

func (e *UnexpectedFragmentError) Error() string {
	return fmt.Sprintf("unexpected fragment component '%s' of $id keyword", e.Fragment)
}

// AtSchemaError locates a build error at a schema.
type AtSchemaError struct {
	CURI string
	Err  error
}

func (e *AtSchemaError) Error() string { return fmt.Sprintf("at schema '%s': %v", e.CURI, e.Err) }
func (e *AtSchemaError) Unwrap() error { return e.Err }

// AtKeywordError locates a build error at a keyword of a schema.
type AtKeywordError struct {
	CURI    string
	Keyword string
	Err     error
}

func (e *AtKeywordError) Error() string {
	return fmt.Sprintf("at keyword '%s' of schema '%s': %v", e.Keyword, e.CURI, e.Err)
}
func (e *AtKeywordError) Unwrap() error { return e.Err }

// DuplicateCanonicalURIError is a canonical URI registered twice with an
// index.
type DuplicateCanonicalURIError struct{ CURI string }

func (e *DuplicateCanonicalURIError) Error() string {
	return fmt.Sprintf("duplicate canonical URI: '%s'", e.CURI)
}

// DuplicateAnchorError is an $anchor registered twice with an index.
type DuplicateAnchorError struct{ Anchor string }

func (e *DuplicateAnchorError) Error() string {
	return fmt.Sprintf("duplicate anchor: '%s'", e.Anchor)
}

// InvalidReferenceError is a $ref with no indexed target.
type InvalidReferenceError struct {
	Ref  string
	CURI string
}

func (e *InvalidReferenceError) Error() string {
	return fmt.Sprintf("schema $ref '%s', referenced by '%s', was not found", e.Ref, e.CURI)
}

// UnknownSchemaError is a validation request for a schema the index
// doesn't hold.
type UnknownSchemaError struct{ CURI string }

func (e *UnknownSchemaError) Error() string {
	return fmt.Sprintf("schema '%s' was not found in the index", e.CURI)
}
