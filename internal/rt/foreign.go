package rt

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// ForeignPrefix marks the module part of foreign type names:
// "[go]example.com/geo::Point".
const ForeignPrefix = "[go]"

// ForeignType wraps a class of the host environment. The host class is
// resolved lazily, either by name through the bridge or directly when the
// type was created from a HostClass.
type ForeignType struct {
	reg      *Registry
	hostName string // "example.com/geo.Point"
	module   string
	name     string

	mu       sync.Mutex
	resolved atomic.Bool // class and identity are set
	ready    atomic.Bool // slot table is built
	class    HostClass
	flags    Flags
	base     Type
	mixins   []Type
	table    *slotTable

	nullOnce sync.Once
	nullable *NullableType
	inhOnce  sync.Once
	inh      []Type
}

// splitForeign converts "[go]pkg::Name" into the host name "pkg.Name".
func splitForeign(qname string) (pkg, name string, err error) {
	rest, ok := strings.CutPrefix(qname, ForeignPrefix)
	if !ok {
		return "", "", fmt.Errorf("foreign type %q must start with %q", qname, ForeignPrefix)
	}
	pkg, name, ok = strings.Cut(rest, "::")
	if !ok || name == "" {
		return "", "", fmt.Errorf("foreign type %q must have the form %spkg::Name", qname, ForeignPrefix)
	}
	return pkg, name, nil
}

func hostName(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}

func (ft *ForeignType) ModuleName() string  { return ft.module }
func (ft *ForeignType) Name() string        { return ft.name }
func (ft *ForeignType) QName() string       { return ft.module + "::" + ft.name }
func (ft *ForeignType) Signature() string   { return ft.QName() }
func (ft *ForeignType) IsNullable() bool    { return false }
func (ft *ForeignType) ToNonNullable() Type { return ft }
func (ft *ForeignType) Is(other Type) bool  { return isType(ft, other) }
func (ft *ForeignType) Registry() *Registry { return ft.reg }
func (ft *ForeignType) String() string      { return ft.QName() }
func (ft *ForeignType) Facets() *Facets     { return emptyFacets }

func (ft *ForeignType) Params() map[string]Type { return nil }

// HostName returns the host class name.
func (ft *ForeignType) HostName() string { return ft.hostName }

func (ft *ForeignType) ToNullable() Type {
	ft.nullOnce.Do(func() { ft.nullable = &NullableType{root: ft} })
	return ft.nullable
}

// Class returns the resolved host class.
func (ft *ForeignType) Class() (HostClass, error) {
	if err := ft.resolve(); err != nil {
		return nil, err
	}
	return ft.class, nil
}

// Flags are derived from the host class: exported classes are public,
// interfaces are abstract mixins, structs are final.
func (ft *ForeignType) Flags() Flags {
	if ft.resolve() != nil {
		return 0
	}
	return ft.flags
}

// Base returns the embedded host super class, or sys::Obj.
func (ft *ForeignType) Base() Type {
	if ft.resolve() != nil {
		return ft.reg.root()
	}
	return ft.base
}

// Mixins returns the registered host interfaces the class implements.
func (ft *ForeignType) Mixins() []Type {
	if ft.resolve() != nil {
		return nil
	}
	out := make([]Type, len(ft.mixins))
	copy(out, ft.mixins)
	return out
}

func (ft *ForeignType) Inheritance() []Type {
	ft.inhOnce.Do(func() { ft.inh = linearize(ft) })
	return ft.inh
}

func (ft *ForeignType) resolve() error {
	if ft.resolved.Load() {
		return nil
	}
	ft.mu.Lock()
	defer ft.mu.Unlock()
	if ft.resolved.Load() {
		return nil
	}
	if ft.reg.bridge == nil {
		return errorf(CodeUnsupportedOperation, ft.QName(), "no host bridge configured")
	}
	class, err := ft.reg.bridge.FindClass(ft.hostName)
	if err != nil {
		return wrapErr(CodeUnknownType, ft.QName(), err)
	}
	ft.setClass(class)
	return nil
}

// setClass derives identity from the host class. Called with mu held or
// before the type is published.
func (ft *ForeignType) setClass(class HostClass) {
	ft.class = class
	var flags Flags
	if class.Exported() {
		flags |= FlagPublic
	}
	switch class.Kind() {
	case HostInterface:
		flags |= FlagMixin | FlagAbstract
	case HostStruct:
		flags |= FlagFinal
	}
	ft.flags = flags
	if super := class.Super(); super != nil {
		ft.base = ft.reg.ForeignOf(super)
	} else {
		ft.base = ft.reg.root()
	}
	for _, iface := range class.Interfaces() {
		ft.mixins = append(ft.mixins, ft.reg.ForeignOf(iface))
	}
	ft.resolved.Store(true)
}

func (ft *ForeignType) Finish() error { return ft.reflect() }

// reflect maps host fields and methods to slots. Same-named host methods
// accumulate into one overloaded Method; a method named like a field is
// attached to the field as its overload.
func (ft *ForeignType) reflect() error {
	if ft.ready.Load() {
		return nil
	}
	if err := ft.resolve(); err != nil {
		return err
	}
	ft.mu.Lock()
	defer ft.mu.Unlock()
	if ft.ready.Load() {
		return nil
	}

	st := &slotTable{byName: make(map[string]Slot)}
	for _, hf := range ft.class.Fields() {
		if !hf.Exported() {
			continue
		}
		if _, dup := st.byName[hf.Name()]; dup {
			continue
		}
		f := newField(ft, hf.Name(), FlagPublic, ft.reg.hostType(hf.Type()), nil, 0)
		f.host = hf
		st.slots = append(st.slots, f)
		st.fields = append(st.fields, f)
		st.byName[f.name] = f
	}

	byName := make(map[string]*Method)
	for _, hm := range ft.class.Methods() {
		if !hm.Exported() {
			continue
		}
		if m, ok := byName[hm.Name()]; ok {
			m.host = append(m.host, hm)
			continue
		}
		m := ft.hostMethod(hm)
		byName[m.name] = m
		st.methods = append(st.methods, m)
		if existing, ok := st.byName[m.name]; ok {
			if f, isField := existing.(*Field); isField {
				f.overload = m
			}
			continue
		}
		st.slots = append(st.slots, m)
		st.byName[m.name] = m
	}
	ft.table = st
	ft.ready.Store(true)
	return nil
}

func (ft *ForeignType) hostMethod(hm HostMethod) *Method {
	flags := FlagPublic
	if hm.Static() {
		flags |= FlagStatic
	}
	hp := hm.Params()
	params := make([]*Param, len(hp))
	for i, p := range hp {
		params[i] = NewParam(fmt.Sprintf("p%d", i), ft.reg.hostType(p), false, nil)
	}
	m := newMethod(ft, hm.Name(), flags, ft.reg.hostType(hm.Result()), nil, params, nil, 0)
	m.host = []HostMethod{hm}
	return m
}

func (ft *ForeignType) Slots() ([]Slot, error) {
	if err := ft.reflect(); err != nil {
		return nil, err
	}
	out := make([]Slot, len(ft.table.slots))
	copy(out, ft.table.slots)
	return out, nil
}

func (ft *ForeignType) Fields() ([]*Field, error) {
	if err := ft.reflect(); err != nil {
		return nil, err
	}
	out := make([]*Field, len(ft.table.fields))
	copy(out, ft.table.fields)
	return out, nil
}

// Methods includes methods attached to fields as overloads.
func (ft *ForeignType) Methods() ([]*Method, error) {
	if err := ft.reflect(); err != nil {
		return nil, err
	}
	out := make([]*Method, len(ft.table.methods))
	copy(out, ft.table.methods)
	return out, nil
}

func (ft *ForeignType) Slot(name string) (Slot, error) {
	if err := ft.reflect(); err != nil {
		return nil, err
	}
	if s, ok := ft.table.lookup(name); ok {
		return s, nil
	}
	return nil, errorf(CodeUnknownSlot, slotQName(ft, name), "")
}

func (ft *ForeignType) FindSlot(name string) Slot {
	s, err := ft.Slot(name)
	if err != nil {
		return nil
	}
	return s
}

func (ft *ForeignType) Field(name string) (*Field, error) { return findField(ft, name) }

// Method returns the named method; for a name shared with a field the
// field's overload is returned.
func (ft *ForeignType) Method(name string) (*Method, error) { return findMethod(ft, name) }

// Make creates a zero instance of the host class. Constructor arguments
// are not supported.
func (ft *ForeignType) Make(args ...any) (any, error) {
	if len(args) > 0 {
		return nil, errorf(CodeUnsupportedOperation, ft.QName(), "host constructors take no arguments")
	}
	if err := ft.resolve(); err != nil {
		return nil, err
	}
	if ft.flags&FlagAbstract != 0 {
		return nil, errorf(CodeUnsupportedOperation, ft.QName(), "cannot instantiate interface")
	}
	v, err := ft.class.New()
	if err != nil {
		return nil, wrapErr(CodeUnsupportedOperation, ft.QName(), err)
	}
	return v, nil
}

// Foreign returns the foreign type named "[go]pkg::Name".
func (r *Registry) Foreign(qname string) (*ForeignType, error) {
	pkg, name, err := splitForeign(qname)
	if err != nil {
		return nil, wrapErr(CodeInvalidSignature, qname, err)
	}
	host := hostName(pkg, name)
	r.foreignMu.Lock()
	defer r.foreignMu.Unlock()
	if ft, ok := r.foreign[host]; ok {
		return ft, nil
	}
	ft := &ForeignType{reg: r, hostName: host, module: ForeignPrefix + pkg, name: name}
	r.foreign[host] = ft
	return ft, nil
}

// ForeignOf returns the foreign type of an already resolved host class.
func (r *Registry) ForeignOf(class HostClass) *ForeignType {
	host := class.Name()
	r.foreignMu.Lock()
	ft, ok := r.foreign[host]
	if !ok {
		ft = &ForeignType{reg: r, hostName: host, module: ForeignPrefix + class.Package(), name: class.Simple()}
		r.foreign[host] = ft
	}
	r.foreignMu.Unlock()

	if !ft.resolved.Load() {
		ft.mu.Lock()
		if !ft.resolved.Load() {
			ft.setClass(class)
		}
		ft.mu.Unlock()
	}
	return ft
}

// hostType maps a host class to the type used for slot signatures.
func (r *Registry) hostType(hc HostClass) Type {
	if hc == nil {
		return r.sysTypeOr("Void")
	}
	k := hc.Kind()
	switch {
	case k == HostBool:
		return r.sysTypeOr("Bool")
	case k.IsInteger():
		return r.sysTypeOr("Int")
	case k.IsFloat():
		return r.sysTypeOr("Float")
	case k == HostString:
		return r.sysTypeOr("Str")
	case k == HostSlice:
		if lt, err := r.ListOf(r.hostType(hc.Elem())); err == nil {
			return lt
		}
	case k == HostMap:
		if mt, err := r.MapOf(r.hostType(hc.Key()), r.hostType(hc.Elem())); err == nil {
			return mt
		}
	case k == HostFunc:
		return r.sysTypeOr("Func")
	case k == HostStruct || (k == HostInterface && hc.Simple() != ""):
		return r.ForeignOf(hc)
	}
	return r.root().ToNullable()
}
