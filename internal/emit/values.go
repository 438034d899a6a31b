package emit

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"reflex/internal/rt"
)

// List is the mutable runtime representation of sys::List values.
type List struct {
	mu    sync.RWMutex
	typ   rt.Type
	items []any
}

// NewList returns a list of the given list type.
func NewList(typ rt.Type, items ...any) *List {
	return &List{typ: typ, items: append([]any(nil), items...)}
}

func (l *List) Typeof() rt.Type { return l.typ }

func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Items returns a copy of the elements.
func (l *List) Items() []any {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]any(nil), l.items...)
}

func (l *List) Add(v any) {
	l.mu.Lock()
	l.items = append(l.items, v)
	l.mu.Unlock()
}

// Resize truncates the list or pads it with nulls.
func (l *List) Resize(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n <= len(l.items) {
		clear(l.items[n:])
		l.items = l.items[:n]
		return
	}
	l.items = append(l.items, make([]any, n-len(l.items))...)
}

func (l *List) String() string { return formatList(l.Items()) }

func formatList(items []any) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = display(it)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Map is the runtime representation of sys::Map values. Iteration follows
// insertion order.
type Map struct {
	mu   sync.RWMutex
	typ  rt.Type
	keys []any
	vals map[any]any
}

// NewMap returns an empty map of the given map type.
func NewMap(typ rt.Type) *Map {
	return &Map{typ: typ, vals: make(map[any]any)}
}

func (m *Map) Typeof() rt.Type { return m.typ }

func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.keys)
}

func (m *Map) Get(key any) (any, bool) {
	if !hashable(key) {
		return nil, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vals[key]
	return v, ok
}

// Set stores val under key. Keys must be comparable and non-null.
func (m *Map) Set(key, val any) error {
	if key == nil {
		return fmt.Errorf("map key is null")
	}
	if !hashable(key) {
		return fmt.Errorf("map key of type %T is not comparable", key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = val
	return nil
}

func (m *Map) Keys() []any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]any(nil), m.keys...)
}

func (m *Map) Vals() []any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]any, len(m.keys))
	for i, k := range m.keys {
		out[i] = m.vals[k]
	}
	return out
}

func (m *Map) String() string {
	keys, vals := m.Keys(), m.Vals()
	if len(keys) == 0 {
		return "[:]"
	}
	parts := make([]string, len(keys))
	for i := range keys {
		parts[i] = display(keys[i]) + ":" + display(vals[i])
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func hashable(v any) bool {
	t := reflect.TypeOf(v)
	return t != nil && t.Comparable()
}

// Func is a runtime function value.
type Func struct {
	typ *rt.GenericType
	fn  func(args []any) (any, error)
}

// NewFunc wraps fn as a value of the function type typ.
func NewFunc(typ *rt.GenericType, fn func(args []any) (any, error)) *Func {
	return &Func{typ: typ, fn: fn}
}

func (f *Func) Typeof() rt.Type { return f.typ }

// Arity returns the number of declared parameters.
func (f *Func) Arity() int { return len(f.typ.FuncParams()) }

// Call invokes the function. Extra arguments are dropped and missing ones
// are null.
func (f *Func) Call(args ...any) (any, error) {
	n := f.Arity()
	full := make([]any, n)
	copy(full, args)
	return f.fn(full)
}

func (f *Func) String() string { return f.typ.Signature() }

// Instance is a record value whose fields live in a map. Types registered
// with Table.Record are instantiated as Instances.
type Instance struct {
	mu     sync.RWMutex
	typ    rt.Type
	fields map[string]any
}

func NewInstance(typ rt.Type) *Instance {
	return &Instance{typ: typ, fields: make(map[string]any)}
}

func (in *Instance) Typeof() rt.Type { return in.typ }

func (in *Instance) Get(name string) any {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.fields[name]
}

func (in *Instance) Set(name string, v any) {
	in.mu.Lock()
	in.fields[name] = v
	in.mu.Unlock()
}

func (in *Instance) String() string { return fmt.Sprintf("%s@%p", in.typ.QName(), in) }

// Err is the runtime representation of sys::Err values.
type Err struct {
	Msg string
}

func (e *Err) Error() string { return e.Msg }
