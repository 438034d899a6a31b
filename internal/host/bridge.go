// Package host reflects Go types for the runtime's foreign type bridge.
//
// Struct types are registered explicitly and instantiated as pointers.
// Member names are exposed in camelCase: field X becomes "x", method
// Distance becomes "distance".
package host

import (
	"fmt"
	"reflect"
	"sync"

	"reflex/internal/rt"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Bridge is a rt.HostBridge over Go reflect.
type Bridge struct {
	mu     sync.RWMutex
	byName map[string]*Class
	byType map[reflect.Type]*Class
	ifaces []*Class
	extra  map[reflect.Type][]*Method
}

var _ rt.HostBridge = (*Bridge)(nil)

// New returns a bridge that knows the Go basic types.
func New() *Bridge {
	b := &Bridge{
		byName: make(map[string]*Class),
		byType: make(map[reflect.Type]*Class),
		extra:  make(map[reflect.Type][]*Method),
	}
	for _, t := range []reflect.Type{
		reflect.TypeOf((*bool)(nil)).Elem(), reflect.TypeOf((*string)(nil)).Elem(),
		reflect.TypeOf((*int)(nil)).Elem(), reflect.TypeOf((*int8)(nil)).Elem(), reflect.TypeOf((*int16)(nil)).Elem(),
		reflect.TypeOf((*int32)(nil)).Elem(), reflect.TypeOf((*int64)(nil)).Elem(),
		reflect.TypeOf((*uint)(nil)).Elem(), reflect.TypeOf((*uint8)(nil)).Elem(), reflect.TypeOf((*uint16)(nil)).Elem(),
		reflect.TypeOf((*uint32)(nil)).Elem(), reflect.TypeOf((*uint64)(nil)).Elem(),
		reflect.TypeOf((*float32)(nil)).Elem(), reflect.TypeOf((*float64)(nil)).Elem(),
		reflect.TypeOf((*any)(nil)).Elem(), reflect.TypeOf((*error)(nil)).Elem(),
	} {
		b.classFor(t)
	}
	return b
}

// Register makes the struct types of the sample values known by name.
// Samples may be values or pointers.
func (b *Bridge) Register(samples ...any) error {
	for _, s := range samples {
		t := reflect.TypeOf(s)
		if t == nil {
			return fmt.Errorf("host: cannot register nil")
		}
		if t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if t.Kind() != reflect.Struct || t.Name() == "" {
			return fmt.Errorf("host: %s is not a named struct type", t)
		}
		b.classFor(t)
	}
	return nil
}

// RegisterInterface registers interface types given as nil pointers, e.g.
// (*fmt.Stringer)(nil). Registered interfaces become mixins of the classes
// implementing them.
func (b *Bridge) RegisterInterface(ptrs ...any) error {
	for _, p := range ptrs {
		t := reflect.TypeOf(p)
		if t == nil || t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Interface {
			return fmt.Errorf("host: %v is not a pointer to an interface", t)
		}
		c := b.classFor(t.Elem())
		b.mu.Lock()
		known := false
		for _, x := range b.ifaces {
			known = known || x == c
		}
		if !known {
			b.ifaces = append(b.ifaces, c)
		}
		b.mu.Unlock()
	}
	return nil
}

// AddMethod adds a method overload to the struct type of sample. fn takes
// the receiver as its first parameter. Overloads must be added before the
// class is first reflected.
func (b *Bridge) AddMethod(sample any, name string, fn any) error {
	return b.addExtra(sample, name, fn, false)
}

// AddStatic adds a static method to the struct type of sample.
func (b *Bridge) AddStatic(sample any, name string, fn any) error {
	return b.addExtra(sample, name, fn, true)
}

func (b *Bridge) addExtra(sample any, name string, fn any, static bool) error {
	t := reflect.TypeOf(sample)
	if t == nil {
		return fmt.Errorf("host: cannot add method %s to nil", name)
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	m, err := b.Func(name, fn, !static)
	if err != nil {
		return err
	}
	if !static && !reflect.PointerTo(t).AssignableTo(m.fn.Type().In(0)) {
		return fmt.Errorf("host: method %s must take *%s as its first parameter", name, t.Name())
	}
	b.classFor(t)
	b.mu.Lock()
	b.extra[t] = append(b.extra[t], m)
	b.mu.Unlock()
	return nil
}

// Func wraps a Go function as a host method. With recv set the first
// parameter receives the target; otherwise the method is static.
func (b *Bridge) Func(name string, fn any, recv bool) (*Method, error) {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func {
		return nil, fmt.Errorf("host: method %s is %T, not a function", name, fn)
	}
	if fv.Type().IsVariadic() {
		return nil, fmt.Errorf("host: method %s is variadic", name)
	}
	if recv && fv.Type().NumIn() == 0 {
		return nil, fmt.Errorf("host: method %s has no receiver parameter", name)
	}
	return b.newMethod(name, fv, recv, !recv), nil
}

// FindClass resolves a registered class by host name: "pkgpath.Name" for
// named types, the Go spelling for others.
func (b *Bridge) FindClass(name string) (rt.HostClass, error) {
	b.mu.RLock()
	c, ok := b.byName[name]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("host class %q is not registered", name)
	}
	return c, nil
}

// ClassOf returns the class of v.
func (b *Bridge) ClassOf(v any) (rt.HostClass, bool) {
	t := reflect.TypeOf(v)
	if t == nil {
		return nil, false
	}
	return b.classFor(t), true
}

// Class returns the class of a Go type.
func (b *Bridge) Class(t reflect.Type) *Class { return b.classFor(t) }

func (b *Bridge) classFor(t reflect.Type) *Class {
	if t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct {
		t = t.Elem()
	}
	b.mu.RLock()
	c, ok := b.byType[t]
	b.mu.RUnlock()
	if ok {
		return c
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.byType[t]; ok {
		return c
	}
	c = newClass(b, t)
	b.byType[t] = c
	b.byName[c.name] = c
	return c
}

func (b *Bridge) interfaces() []*Class {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]*Class(nil), b.ifaces...)
}

func (b *Bridge) extraMethods(t reflect.Type) []*Method {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]*Method(nil), b.extra[t]...)
}
