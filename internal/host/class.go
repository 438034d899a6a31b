package host

import (
	"fmt"
	"go/token"
	"reflect"
	"sync"
	"unicode"

	"reflex/internal/rt"
)

// Class is a reflected Go type.
type Class struct {
	b    *Bridge
	typ  reflect.Type
	name string
	kind rt.HostKind

	once    sync.Once
	fields  []rt.HostField
	methods []rt.HostMethod
}

var _ rt.HostClass = (*Class)(nil)

func newClass(b *Bridge, t reflect.Type) *Class {
	name := t.String()
	if t.Name() != "" && t.PkgPath() != "" {
		name = t.PkgPath() + "." + t.Name()
	}
	return &Class{b: b, typ: t, name: name, kind: kindOf(t)}
}

func kindOf(t reflect.Type) rt.HostKind {
	switch t.Kind() {
	case reflect.Bool:
		return rt.HostBool
	case reflect.Int:
		return rt.HostInt
	case reflect.Int8:
		return rt.HostInt8
	case reflect.Int16:
		return rt.HostInt16
	case reflect.Int32:
		return rt.HostInt32
	case reflect.Int64:
		return rt.HostInt64
	case reflect.Uint:
		return rt.HostUint
	case reflect.Uint8:
		return rt.HostUint8
	case reflect.Uint16:
		return rt.HostUint16
	case reflect.Uint32:
		return rt.HostUint32
	case reflect.Uint64:
		return rt.HostUint64
	case reflect.Float32:
		return rt.HostFloat32
	case reflect.Float64:
		return rt.HostFloat64
	case reflect.String:
		return rt.HostString
	case reflect.Slice, reflect.Array:
		return rt.HostSlice
	case reflect.Map:
		return rt.HostMap
	case reflect.Struct:
		return rt.HostStruct
	case reflect.Interface:
		return rt.HostInterface
	case reflect.Func:
		return rt.HostFunc
	}
	return rt.HostOther
}

// Type returns the Go type. Struct classes stand for pointers to the type.
func (c *Class) Type() reflect.Type { return c.typ }

func (c *Class) Name() string      { return c.name }
func (c *Class) Package() string   { return c.typ.PkgPath() }
func (c *Class) Simple() string    { return c.typ.Name() }
func (c *Class) Kind() rt.HostKind { return c.kind }
func (c *Class) String() string    { return c.name }

func (c *Class) Exported() bool {
	if c.typ.Name() == "" || c.typ.PkgPath() == "" {
		return true
	}
	return token.IsExported(c.typ.Name())
}

// Super returns the class of the first embedded struct.
func (c *Class) Super() rt.HostClass {
	if c.typ.Kind() != reflect.Struct {
		return nil
	}
	for i := 0; i < c.typ.NumField(); i++ {
		sf := c.typ.Field(i)
		if !sf.Anonymous || !sf.IsExported() {
			continue
		}
		ft := sf.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct {
			return c.b.classFor(ft)
		}
	}
	return nil
}

// Interfaces returns the registered interfaces the class implements,
// excluding the class itself.
func (c *Class) Interfaces() []rt.HostClass {
	var out []rt.HostClass
	for _, iface := range c.b.interfaces() {
		if iface == c {
			continue
		}
		if c.typ.Implements(iface.typ) || (c.kind == rt.HostStruct && reflect.PointerTo(c.typ).Implements(iface.typ)) {
			out = append(out, iface)
		}
	}
	return out
}

func (c *Class) Elem() rt.HostClass {
	switch c.typ.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return c.b.classFor(c.typ.Elem())
	}
	return nil
}

func (c *Class) Key() rt.HostClass {
	if c.typ.Kind() != reflect.Map {
		return nil
	}
	return c.b.classFor(c.typ.Key())
}

func (c *Class) Fields() []rt.HostField {
	c.once.Do(c.reflect)
	return c.fields
}

func (c *Class) Methods() []rt.HostMethod {
	c.once.Do(c.reflect)
	return c.methods
}

// reflect collects visible exported fields and the method set. Struct
// methods come from the pointer method set so that pointer receivers are
// included.
func (c *Class) reflect() {
	if c.typ.Kind() == reflect.Struct {
		for _, sf := range reflect.VisibleFields(c.typ) {
			if sf.Anonymous || !sf.IsExported() {
				continue
			}
			c.fields = append(c.fields, &Field{
				owner: c,
				name:  camel(sf.Name),
				index: sf.Index,
				typ:   sf.Type,
			})
		}
	}
	switch c.typ.Kind() {
	case reflect.Interface:
		for i := 0; i < c.typ.NumMethod(); i++ {
			m := c.typ.Method(i)
			if !m.IsExported() {
				continue
			}
			c.methods = append(c.methods, c.b.newDynamic(m.Name, m.Type))
		}
	case reflect.Struct:
		c.addMethodSet(reflect.PointerTo(c.typ))
	default:
		c.addMethodSet(c.typ)
	}
	for _, m := range c.b.extraMethods(c.typ) {
		c.methods = append(c.methods, m)
	}
}

func (c *Class) addMethodSet(t reflect.Type) {
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if !m.IsExported() || m.Type.IsVariadic() {
			continue
		}
		c.methods = append(c.methods, c.b.newMethod(camel(m.Name), m.Func, true, false))
	}
}

// IsInstance reports whether v is a value of the class. Struct classes
// accept both values and pointers.
func (c *Class) IsInstance(v any) bool {
	vt := reflect.TypeOf(v)
	if vt == nil {
		return false
	}
	switch c.kind {
	case rt.HostInterface:
		return vt.Implements(c.typ)
	case rt.HostStruct:
		return vt == c.typ || vt == reflect.PointerTo(c.typ)
	}
	return vt == c.typ
}

// AssignableTo reports whether the class can be used where other is
// expected: same type, an implemented interface, or an embedded base.
func (c *Class) AssignableTo(other rt.HostClass) bool {
	o, ok := other.(*Class)
	if !ok {
		return false
	}
	if c == o || c.typ == o.typ {
		return true
	}
	if o.kind == rt.HostInterface {
		return c.typ.Implements(o.typ) || (c.kind == rt.HostStruct && reflect.PointerTo(c.typ).Implements(o.typ))
	}
	for s := c.Super(); s != nil; s = s.Super() {
		if s == other {
			return true
		}
	}
	return false
}

// New returns a pointer to a new zero struct, or the zero value of other
// kinds.
func (c *Class) New() (any, error) {
	switch c.kind {
	case rt.HostInterface:
		return nil, fmt.Errorf("cannot instantiate interface %s", c.name)
	case rt.HostStruct:
		return reflect.New(c.typ).Interface(), nil
	}
	return reflect.Zero(c.typ).Interface(), nil
}

// MakeSlice builds a value of a slice class from elems.
func (c *Class) MakeSlice(elems []any) (any, error) {
	if c.typ.Kind() != reflect.Slice {
		return nil, fmt.Errorf("%s is not a slice type", c.name)
	}
	s := reflect.MakeSlice(c.typ, len(elems), len(elems))
	for i, e := range elems {
		ev, err := toValue(e, c.typ.Elem())
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		s.Index(i).Set(ev)
	}
	return s.Interface(), nil
}

// camel lowers the leading upper-case run of a Go identifier, keeping the
// last capital of an acronym that starts a new word: URLPath -> urlPath.
func camel(s string) string {
	r := []rune(s)
	n := 0
	for n < len(r) && unicode.IsUpper(r[n]) {
		n++
	}
	switch {
	case n == 0:
		return s
	case n > 1 && n < len(r):
		n--
	}
	for i := 0; i < n; i++ {
		r[i] = unicode.ToLower(r[i])
	}
	return string(r)
}
