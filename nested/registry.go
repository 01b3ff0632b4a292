// Package nested discovers, constructs and wraps the sub-structures some
// packet layouts use to hold fields that other layouts keep inline.
//
// A TypeRegistry answers which type is the n-th nested structure of an owner
// type. A Resolver caches those answers for the process lifetime and
// produces Delegates: owned sub-structure instances exposing the same
// positional structure.Accessor contract as their parent.
//
// A Delegate is never attached to its parent implicitly. Callers mutate it
// and then store Delegate.Value back into the parent's slot.
package nested

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/arloliu/chunkfield/errs"
)

// TypeRegistry resolves the n-th nested structure type of an owner type.
type TypeRegistry interface {
	NestedType(owner reflect.Type, n int) (reflect.Type, error)
}

// FieldRegistry discovers nested types by reflection. The n-th nested type
// of owner is the n-th distinct struct type, in field declaration order,
// that owner holds either by value or by pointer and that is declared in
// owner's own package. The field's type is returned as declared, so a
// pointer slot yields a pointer type.
type FieldRegistry struct{}

var _ TypeRegistry = FieldRegistry{}

// NestedType implements TypeRegistry.
func (FieldRegistry) NestedType(owner reflect.Type, n int) (reflect.Type, error) {
	if owner == nil || owner.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: owner %v", errs.ErrNotStruct, owner)
	}

	seen := make(map[reflect.Type]struct{})
	found := 0
	for i := range owner.NumField() {
		ft := owner.Field(i).Type
		st := ft
		if st.Kind() == reflect.Pointer {
			st = st.Elem()
		}
		if st.Kind() != reflect.Struct || st.PkgPath() != owner.PkgPath() {
			continue
		}
		if _, dup := seen[st]; dup {
			continue
		}
		seen[st] = struct{}{}

		if found == n {
			return ft, nil
		}
		found++
	}

	return nil, fmt.Errorf("%w: %v has no nested type #%d", errs.ErrNoNestedType, owner, n)
}

type registryKey struct {
	owner reflect.Type
	n     int
}

// StaticRegistry resolves nested types from explicit registrations.
// It is safe for concurrent use.
type StaticRegistry struct {
	mu    sync.RWMutex
	types map[registryKey]reflect.Type
}

var _ TypeRegistry = (*StaticRegistry)(nil)

// NewStaticRegistry creates an empty StaticRegistry.
func NewStaticRegistry() *StaticRegistry {
	return &StaticRegistry{types: make(map[registryKey]reflect.Type)}
}

// Register records nested as the n-th nested type of owner.
func (r *StaticRegistry) Register(owner reflect.Type, n int, nested reflect.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.types[registryKey{owner: owner, n: n}] = nested
}

// NestedType implements TypeRegistry.
func (r *StaticRegistry) NestedType(owner reflect.Type, n int) (reflect.Type, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.types[registryKey{owner: owner, n: n}]
	if !ok {
		return nil, fmt.Errorf("%w: %v has no registered nested type #%d", errs.ErrNoNestedType, owner, n)
	}

	return t, nil
}
