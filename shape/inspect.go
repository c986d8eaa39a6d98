package shape

import (
	"fmt"

	"github.com/reoring/flowdoc/doc"
	"github.com/reoring/flowdoc/schema"
)

// ImpossibleMustExistError is a location which must exist but can never be
// valid.
type ImpossibleMustExistError struct{ Ptr string }

func (e *ImpossibleMustExistError) Error() string {
	return fmt.Sprintf("'%s' must exist, but is constrained to always be invalid", e.Ptr)
}

// ChildWithoutParentReductionError is a location with a reduce strategy
// whose parent has none, so the strategy can never be reached.
type ChildWithoutParentReductionError struct{ Ptr string }

func (e *ChildWithoutParentReductionError) Error() string {
	return fmt.Sprintf("'%s' has reduction strategy, but its parent does not", e.Ptr)
}

type SumNotNumberError struct {
	Ptr   string
	Types schema.Types
}

func (e *SumNotNumberError) Error() string {
	return fmt.Sprintf("%s has 'sum' reduction strategy, restricted to numbers, but has types %s", e.Ptr, e.Types)
}

type MergeNotObjectOrArrayError struct {
	Ptr   string
	Types schema.Types
}

func (e *MergeNotObjectOrArrayError) Error() string {
	return fmt.Sprintf("%s has 'merge' reduction strategy, restricted to objects & arrays, but has types %s", e.Ptr, e.Types)
}

type SetNotObjectError struct {
	Ptr   string
	Types schema.Types
}

func (e *SetNotObjectError) Error() string {
	return fmt.Sprintf("%s has 'set' reduction strategy, restricted to objects, but has types %s", e.Ptr, e.Types)
}

type SetInvalidPropertyError struct{ Ptr string }

func (e *SetInvalidPropertyError) Error() string {
	return fmt.Sprintf("%s location's parent has 'set' reduction strategy, restricted to 'add'/'remove'/'intersect' properties", e.Ptr)
}

type InvalidDefaultValueError struct {
	Ptr string
	Err *schema.FailedValidation
}

func (e *InvalidDefaultValueError) Error() string {
	return fmt.Sprintf("%s default value is invalid: %s", e.Ptr, e.Err)
}

func (e *InvalidDefaultValueError) Unwrap() error { return e.Err }

// Inspect reports shape problems which are likely schema authoring
// mistakes. It doesn't modify s.
func (s *Shape) Inspect() []error {
	var out []error
	s.inspect(nil, true, &out)
	return out
}

type child struct {
	ptr  doc.Pointer
	must bool
	set  bool // a named property, subject to set's property restrictions
	s    *Shape
}

func (s *Shape) inspect(ptr doc.Pointer, mustExist bool, out *[]error) {
	loc := ptr.String()

	var children []child
	for i := range s.Array.Tuple {
		must := s.Type == schema.Array && s.Array.Min != nil && i < *s.Array.Min
		children = append(children, child{ptr: ptr.PushIndex(i), must: must, s: &s.Array.Tuple[i]})
	}
	if s.Array.Additional != nil {
		children = append(children, child{ptr: ptr.Push("-"), s: s.Array.Additional})
	}
	for i := range s.Object.Properties {
		p := &s.Object.Properties[i]
		must := s.Type == schema.Object && p.Required
		children = append(children, child{ptr: ptr.Push(p.Name), must: must, set: true, s: &p.Shape})
	}
	for i := range s.Object.Patterns {
		p := &s.Object.Patterns[i]
		children = append(children, child{ptr: ptr.Push(p.Re.String()), set: true, s: &p.Shape})
	}
	if s.Object.Additional != nil {
		children = append(children, child{ptr: ptr.Push("*"), s: s.Object.Additional})
	}

	if s.Type == schema.Invalid && mustExist {
		*out = append(*out, &ImpossibleMustExistError{Ptr: loc})
	}
	if s.Default != nil && s.Default.Err != nil {
		*out = append(*out, &InvalidDefaultValueError{Ptr: loc, Err: s.Default.Err})
	}

	switch s.Reduction.Strategy {
	case "sum":
		if s.Type&^schema.Number != schema.Invalid {
			*out = append(*out, &SumNotNumberError{Ptr: loc, Types: s.Type})
		}
	case "merge":
		if s.Type&^(schema.Object|schema.Array) != schema.Invalid {
			*out = append(*out, &MergeNotObjectOrArrayError{Ptr: loc, Types: s.Type})
		}
	case "set":
		if s.Type != schema.Object {
			*out = append(*out, &SetNotObjectError{Ptr: loc, Types: s.Type})
		}
		for _, c := range children {
			if !c.set {
				continue
			}
			switch c.ptr[len(c.ptr)-1].Property {
			case "add", "intersect", "remove":
			default:
				*out = append(*out, &SetInvalidPropertyError{Ptr: c.ptr.String()})
			}
		}
	}

	for _, c := range children {
		if s.Reduction.IsUnset() && !c.s.Reduction.IsUnset() {
			*out = append(*out, &ChildWithoutParentReductionError{Ptr: c.ptr.String()})
		}
		c.s.inspect(c.ptr, mustExist && c.must, out)
	}
}
