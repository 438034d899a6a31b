package host

import (
	"errors"
	"fmt"
	"reflect"

	"reflex/internal/rt"
)

// Field is an exported struct field, promoted fields included.
type Field struct {
	owner *Class
	name  string
	index []int
	typ   reflect.Type
}

var _ rt.HostField = (*Field)(nil)

func (f *Field) Name() string       { return f.name }
func (f *Field) Type() rt.HostClass { return f.owner.b.classFor(f.typ) }
func (f *Field) Exported() bool     { return true }
func (f *Field) String() string     { return f.owner.name + "." + f.name }

func (f *Field) Get(self any) (any, error) {
	sv, err := structOf(self, f.owner.typ, false)
	if err != nil {
		return nil, err
	}
	fv, err := sv.FieldByIndexErr(f.index)
	if err != nil {
		return nil, err
	}
	return fv.Interface(), nil
}

// Set requires a pointer target.
func (f *Field) Set(self, val any) error {
	sv, err := structOf(self, f.owner.typ, true)
	if err != nil {
		return err
	}
	fv, err := sv.FieldByIndexErr(f.index)
	if err != nil {
		return err
	}
	if !fv.CanSet() {
		return fmt.Errorf("field %s is not settable", f)
	}
	v, err := toValue(val, f.typ)
	if err != nil {
		return fmt.Errorf("field %s: %w", f, err)
	}
	fv.Set(v)
	return nil
}

func structOf(self any, t reflect.Type, settable bool) (reflect.Value, error) {
	rv := reflect.ValueOf(self)
	switch {
	case !rv.IsValid():
		return reflect.Value{}, errors.New("nil target")
	case rv.Kind() == reflect.Pointer:
		if rv.IsNil() {
			return reflect.Value{}, errors.New("nil target")
		}
		rv = rv.Elem()
	case settable:
		return reflect.Value{}, fmt.Errorf("cannot set field of %s value, need a pointer", rv.Type())
	}
	if rv.Type() != t {
		return reflect.Value{}, fmt.Errorf("target is %s, want %s", rv.Type(), t)
	}
	return rv, nil
}

// Method is one overload: a method of the type's method set, an interface
// method called dynamically, or a function added through AddMethod or
// AddStatic.
type Method struct {
	name   string
	goName string
	fn     reflect.Value // invalid for interface methods
	recv   bool
	static bool
	params []rt.HostClass
	result *Class
	errOut bool
}

var _ rt.HostMethod = (*Method)(nil)

func (b *Bridge) newMethod(name string, fn reflect.Value, recv, static bool) *Method {
	ft := fn.Type()
	m := &Method{name: name, fn: fn, recv: recv, static: static}
	first := 0
	if recv {
		first = 1
	}
	for i := first; i < ft.NumIn(); i++ {
		m.params = append(m.params, b.classFor(ft.In(i)))
	}
	m.setResults(b, ft)
	return m
}

func (b *Bridge) newDynamic(goName string, ft reflect.Type) *Method {
	m := &Method{name: camel(goName), goName: goName, recv: true}
	for i := 0; i < ft.NumIn(); i++ {
		m.params = append(m.params, b.classFor(ft.In(i)))
	}
	m.setResults(b, ft)
	return m
}

func (m *Method) setResults(b *Bridge, ft reflect.Type) {
	n := ft.NumOut()
	if n > 0 && ft.Out(n-1) == errorType {
		m.errOut = true
		n--
	}
	if n > 0 {
		m.result = b.classFor(ft.Out(0))
	}
}

func (m *Method) Name() string   { return m.name }
func (m *Method) Exported() bool { return true }
func (m *Method) Static() bool   { return m.static }

func (m *Method) Params() []rt.HostClass {
	return append([]rt.HostClass(nil), m.params...)
}

func (m *Method) Result() rt.HostClass {
	if m.result == nil {
		return nil
	}
	return m.result
}

// Invoke calls the overload. Arguments must already match the parameter
// classes; only representation conversions are applied here.
func (m *Method) Invoke(self any, args []any) (any, error) {
	if len(args) != len(m.params) {
		return nil, fmt.Errorf("%s takes %d arguments, got %d", m.name, len(m.params), len(args))
	}
	fn := m.fn
	in := make([]reflect.Value, 0, len(args)+1)
	switch {
	case !fn.IsValid():
		rv := reflect.ValueOf(self)
		if !rv.IsValid() {
			return nil, fmt.Errorf("%s called without target", m.name)
		}
		fn = rv.MethodByName(m.goName)
		if !fn.IsValid() {
			return nil, fmt.Errorf("%s has no method %s", rv.Type(), m.goName)
		}
	case m.recv:
		if self == nil {
			return nil, fmt.Errorf("%s called without target", m.name)
		}
		rv, err := toValue(self, fn.Type().In(0))
		if err != nil {
			return nil, fmt.Errorf("receiver: %w", err)
		}
		in = append(in, rv)
	}
	ft := fn.Type()
	off := len(in)
	for i, a := range args {
		av, err := toValue(a, ft.In(off+i))
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		in = append(in, av)
	}
	out := fn.Call(in)
	if m.errOut {
		if ev := out[len(out)-1]; !ev.IsNil() {
			return nil, ev.Interface().(error)
		}
	}
	if m.result == nil {
		return nil, nil
	}
	return out[0].Interface(), nil
}

// toValue converts v for a parameter or field of type t.
func toValue(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, fmt.Errorf("cannot use nil as %s", t)
	}
	rv := reflect.ValueOf(v)
	switch {
	case rv.Type().AssignableTo(t):
		return rv, nil
	case rv.Kind() == reflect.Pointer && !rv.IsNil() && rv.Type().Elem().AssignableTo(t):
		return rv.Elem(), nil
	case t.Kind() == reflect.Pointer && rv.Type().AssignableTo(t.Elem()):
		p := reflect.New(t.Elem())
		p.Elem().Set(rv)
		return p, nil
	case isNumber(rv.Kind()) && isNumber(t.Kind()):
		return rv.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %s as %s", rv.Type(), t)
}

func isNumber(k reflect.Kind) bool {
	return (k >= reflect.Int && k <= reflect.Uint64) || k == reflect.Float32 || k == reflect.Float64
}
