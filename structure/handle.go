package structure

import (
	"reflect"
	"sync"
	"unsafe"

	"github.com/arloliu/chunkfield/errs"
)

// Handle is a reflection-backed Accessor over a borrowed pointer to a struct.
//
// The handle never copies the structure: writes are visible through the
// original pointer.
type Handle struct {
	ptr reflect.Value // pointer to the struct
	val reflect.Value // ptr.Elem(), addressable
}

var _ Accessor = (*Handle)(nil)

// Wrap creates a Handle for ptr, which must be a non-nil pointer to a struct.
//
// Returns:
//   - *Handle: Accessor over the pointed-to struct
//   - error: ErrNilStructure for nil input, ErrNotStruct for any other kind
func Wrap(ptr any) (*Handle, error) {
	if ptr == nil {
		return nil, errs.ErrNilStructure
	}

	rv := reflect.ValueOf(ptr)
	if rv.Kind() != reflect.Pointer || rv.Type().Elem().Kind() != reflect.Struct {
		return nil, errs.ErrNotStruct
	}
	if rv.IsNil() {
		return nil, errs.ErrNilStructure
	}

	return &Handle{ptr: rv, val: rv.Elem()}, nil
}

// Type returns the struct type.
func (h *Handle) Type() reflect.Type {
	return h.val.Type()
}

// Pointer returns the wrapped pointer.
func (h *Handle) Pointer() any {
	return h.ptr.Interface()
}

// ReadField implements Accessor.
func (h *Handle) ReadField(index int, typ reflect.Type) (any, error) {
	f, err := h.field(index, typ)
	if err != nil {
		return nil, err
	}

	return f.Interface(), nil
}

// WriteField implements Accessor.
func (h *Handle) WriteField(index int, typ reflect.Type, value any) error {
	f, err := h.field(index, typ)
	if err != nil {
		return err
	}

	if value == nil {
		f.SetZero()
		return nil
	}

	rv := reflect.ValueOf(value)
	if !rv.Type().AssignableTo(f.Type()) {
		return &errs.TypeMismatchError{Owner: h.Type(), Index: index, Want: f.Type(), Got: rv.Type()}
	}
	f.Set(rv)

	return nil
}

// Count returns the number of fields whose type is assignable to typ.
func (h *Handle) Count(typ reflect.Type) int {
	return len(fieldIndexes(h.Type(), typ))
}

// field returns a settable view of the index-th field assignable to typ.
func (h *Handle) field(index int, typ reflect.Type) (reflect.Value, error) {
	idx := fieldIndexes(h.Type(), typ)
	if index < 0 || index >= len(idx) {
		return reflect.Value{}, &errs.TypeMismatchError{Owner: h.Type(), Index: index, Want: typ}
	}

	f := h.val.Field(idx[index])
	if !f.CanSet() {
		// unexported field: address it directly
		f = reflect.NewAt(f.Type(), unsafe.Pointer(f.UnsafeAddr())).Elem()
	}

	return f, nil
}

type fieldKey struct {
	owner reflect.Type
	typ   reflect.Type
}

// fieldIndexCache maps fieldKey to the ordered struct field indexes matching it.
var fieldIndexCache sync.Map

// fieldIndexes returns the declaration-order indexes of owner's fields whose
// type is assignable to typ. Results are computed once per key.
func fieldIndexes(owner, typ reflect.Type) []int {
	key := fieldKey{owner: owner, typ: typ}
	if cached, ok := fieldIndexCache.Load(key); ok {
		return cached.([]int)
	}

	var idx []int
	if typ != nil {
		for i := range owner.NumField() {
			if owner.Field(i).Type.AssignableTo(typ) {
				idx = append(idx, i)
			}
		}
	}

	actual, _ := fieldIndexCache.LoadOrStore(key, idx)

	return actual.([]int)
}
