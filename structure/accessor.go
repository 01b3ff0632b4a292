// Package structure provides positional, typed access to the fields of an
// externally-defined structure whose Go type is unknown to the caller at
// build time.
//
// A field is addressed by its type and its zero-based position among the
// structure's fields of that type, in declaration order. For
//
//	type packet struct {
//	    a    int32
//	    full bool
//	    b    int32
//	}
//
// index 1 with type int32 addresses field b, and index 0 with type bool
// addresses field full. Unexported fields are reachable.
//
// The Accessor interface is the only contract the rest of chunkfield depends
// on. Handle implements it with reflection over a pointer to a struct.
//
// # Thread Safety
//
// A Handle performs no locking. Concurrent writes through handles sharing the
// same structure need external synchronization. The per-type field index
// cache is safe for concurrent use.
package structure

import (
	"reflect"

	"github.com/arloliu/chunkfield/errs"
)

// Accessor reads and writes fields of a structure by type and position.
type Accessor interface {
	// Type returns the structure's type (not the pointer type).
	Type() reflect.Type

	// ReadField returns the index-th field whose type is assignable to typ.
	// It fails with *errs.TypeMismatchError when no such field exists.
	ReadField(index int, typ reflect.Type) (any, error)

	// WriteField stores value into the index-th field whose type is
	// assignable to typ. A nil value stores the field's zero value. It fails
	// with *errs.TypeMismatchError when no such field exists or value is not
	// assignable to the field.
	WriteField(index int, typ reflect.Type, value any) error
}

// Read reads the index-th field of type T.
func Read[T any](a Accessor, index int) (T, error) {
	var zero T

	want := reflect.TypeFor[T]()
	v, err := a.ReadField(index, want)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}

	t, ok := v.(T)
	if !ok {
		return zero, &errs.TypeMismatchError{Owner: a.Type(), Index: index, Want: want, Got: reflect.TypeOf(v)}
	}

	return t, nil
}

// Write writes value into the index-th field of type T.
func Write[T any](a Accessor, index int, value T) error {
	return a.WriteField(index, reflect.TypeFor[T](), value)
}
