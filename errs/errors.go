// Package errs defines the errors returned by chunkfield packages.
//
// Sentinel errors are compared with errors.Is. The two fatal structural
// errors, ConstructionError and TypeMismatchError, carry the offending types
// and unwrap to ErrConstruction and ErrTypeMismatch respectively.
//
// A logical field that does not exist for the active layout is not an error:
// getters report it as an absent value and setters ignore the write.
package errs

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrConstruction indicates a nested delegate could not be constructed.
	ErrConstruction = errors.New("nested delegate construction failed")
	// ErrTypeMismatch indicates a positional field does not have the requested type.
	ErrTypeMismatch = errors.New("field type mismatch")

	// ErrNilStructure indicates a nil structure handle was supplied.
	ErrNilStructure = errors.New("nil structure")
	// ErrNotStruct indicates the structure handle is not a pointer to a struct.
	ErrNotStruct = errors.New("structure must be a non-nil pointer to a struct")
	// ErrPacketTypeMismatch indicates a packet of a different type than the binding's was wrapped.
	ErrPacketTypeMismatch = errors.New("packet type does not match binding")
	// ErrNoNestedType indicates the owner type declares no nested type at the requested position.
	ErrNoNestedType = errors.New("nested type not found")

	// ErrSectionOverflow indicates a section set has bits that a 32-bit mask cannot hold.
	ErrSectionOverflow = errors.New("section set exceeds 32-bit mask")
	// ErrSectionOutOfRange indicates a section index beyond the supported section count.
	ErrSectionOutOfRange = errors.New("section index out of range")

	// ErrInvalidVersion indicates a version string could not be parsed.
	ErrInvalidVersion = errors.New("invalid version")
	// ErrInvalidPolicy indicates inconsistent layout boundaries.
	ErrInvalidPolicy = errors.New("invalid layout policy")
)

// ConstructionError reports that a nested delegate type has no usable
// zero-argument construction path or that constructing it failed.
//
// It signals a mismatch between the assumed and the actual runtime layout
// and must not be retried.
type ConstructionError struct {
	Type reflect.Type
	Err  error
}

func (e *ConstructionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("construct %v: %v", e.Type, ErrConstruction)
	}

	return fmt.Sprintf("construct %v: %v", e.Type, e.Err)
}

// Unwrap returns both the cause and ErrConstruction so callers can match either.
func (e *ConstructionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrConstruction}
	}

	return []error{ErrConstruction, e.Err}
}

// TypeMismatchError reports that the field at Index of Owner is not
// assignment-compatible with Want. Got is nil when Owner has fewer than
// Index+1 fields of the wanted type.
type TypeMismatchError struct {
	Owner reflect.Type
	Index int
	Want  reflect.Type
	Got   reflect.Type
}

func (e *TypeMismatchError) Error() string {
	if e.Got == nil {
		return fmt.Sprintf("%v: no field #%d of type %v", e.Owner, e.Index, e.Want)
	}

	return fmt.Sprintf("%v: field #%d of type %v is not assignable to %v", e.Owner, e.Index, e.Got, e.Want)
}

func (e *TypeMismatchError) Unwrap() error {
	return ErrTypeMismatch
}
