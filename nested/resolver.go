package nested

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/arloliu/chunkfield/errs"
)

// Initializer is implemented by nested structures that need more than a
// zeroed value to be usable. Init runs once, right after allocation.
type Initializer interface {
	Init() error
}

// Resolver resolves and constructs nested delegates.
//
// Type lookups are cached per (owner, n) for the lifetime of the Resolver.
// Concurrent first lookups may both consult the registry; the first stored
// answer wins and later lookups reuse it.
type Resolver struct {
	registry TypeRegistry
	types    sync.Map // registryKey -> reflect.Type
}

// NewResolver creates a Resolver backed by registry. A nil registry means
// FieldRegistry.
func NewResolver(registry TypeRegistry) *Resolver {
	if registry == nil {
		registry = FieldRegistry{}
	}

	return &Resolver{registry: registry}
}

var defaultResolver = NewResolver(FieldRegistry{})

// Default returns the process-wide reflection-backed Resolver.
func Default() *Resolver {
	return defaultResolver
}

// DelegateType returns the n-th nested type of owner.
func (r *Resolver) DelegateType(owner reflect.Type, n int) (reflect.Type, error) {
	key := registryKey{owner: owner, n: n}
	if t, ok := r.types.Load(key); ok {
		return t.(reflect.Type), nil
	}

	t, err := r.registry.NestedType(owner, n)
	if err != nil {
		return nil, err
	}

	actual, _ := r.types.LoadOrStore(key, t)

	return actual.(reflect.Type), nil
}

// Instantiate builds a new zero-valued delegate of type t, which must be a
// struct type or a pointer to one.
//
// Returns:
//   - *Delegate: Freshly constructed delegate
//   - error: *errs.ConstructionError if t cannot be constructed or its Init fails
func (r *Resolver) Instantiate(t reflect.Type) (*Delegate, error) {
	elem, err := structElem(t)
	if err != nil {
		return nil, err
	}

	ptr := reflect.New(elem)
	if init, ok := ptr.Interface().(Initializer); ok {
		if err := runInit(init); err != nil {
			return nil, &errs.ConstructionError{Type: t, Err: err}
		}
	}

	return newDelegate(t, ptr)
}

// Adopt wraps an existing slot value read from the parent as an owned
// delegate. The value is copied, so changes to the delegate reach the parent
// only through write-back. A nil pointer value returns a nil Delegate and no
// error; callers then Instantiate.
func (r *Resolver) Adopt(t reflect.Type, value any) (*Delegate, error) {
	elem, err := structElem(t)
	if err != nil {
		return nil, err
	}

	rv := reflect.ValueOf(value)
	if value == nil || (rv.Kind() == reflect.Pointer && rv.IsNil()) {
		return nil, nil //nolint:nilnil // absent slot
	}
	if rv.Type() != t {
		return nil, &errs.TypeMismatchError{Owner: elem, Want: t, Got: rv.Type()}
	}

	ptr := reflect.New(elem)
	if t.Kind() == reflect.Pointer {
		ptr.Elem().Set(rv.Elem())
	} else {
		ptr.Elem().Set(rv)
	}

	return newDelegate(t, ptr)
}

func structElem(t reflect.Type) (reflect.Type, error) {
	if t == nil {
		return nil, &errs.ConstructionError{Err: errs.ErrNotStruct}
	}

	elem := t
	if elem.Kind() == reflect.Pointer {
		elem = elem.Elem()
	}
	if elem.Kind() != reflect.Struct {
		return nil, &errs.ConstructionError{
			Type: t,
			Err:  fmt.Errorf("%s kind has no zero-argument construction: %w", elem.Kind(), errs.ErrNotStruct),
		}
	}

	return elem, nil
}

func runInit(init Initializer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("init panicked: %v", r)
		}
	}()

	return init.Init()
}
