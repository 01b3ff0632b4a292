package nested

import (
	"reflect"

	"github.com/arloliu/chunkfield/structure"
)

// Delegate is an owned nested sub-structure.
type Delegate struct {
	slot   reflect.Type      // type of the parent's slot: T or *T
	ptr    reflect.Value     // *T owned by the delegate
	handle *structure.Handle // accessor over ptr
}

func newDelegate(slot reflect.Type, ptr reflect.Value) (*Delegate, error) {
	h, err := structure.Wrap(ptr.Interface())
	if err != nil {
		return nil, err
	}

	return &Delegate{slot: slot, ptr: ptr, handle: h}, nil
}

// SlotType returns the type of the parent slot this delegate is stored in.
func (d *Delegate) SlotType() reflect.Type {
	return d.slot
}

// Accessor returns the positional accessor over the delegate's fields.
func (d *Delegate) Accessor() structure.Accessor {
	return d.handle
}

// Value returns the value to store into the parent's slot: the owned
// pointer for pointer slots, or a copy of the struct for value slots.
func (d *Delegate) Value() any {
	if d.slot.Kind() == reflect.Pointer {
		return d.ptr.Interface()
	}

	return d.ptr.Elem().Interface()
}
