package rt

import (
	"strings"
	"sync"
	"sync/atomic"
)

// Shape is the structure of a generic type.
type Shape uint8

const (
	ShapeList Shape = iota + 1
	ShapeMap
	ShapeFunc
)

func (s Shape) String() string {
	switch s {
	case ShapeList:
		return "list"
	case ShapeMap:
		return "map"
	case ShapeFunc:
		return "func"
	default:
		return "unknown"
	}
}

// funcParamNames are the placeholder names of function parameters.
const funcParamNames = "ABCDEFGH"

// GenericType is a parameterized instance of sys::List, sys::Map or
// sys::Func. Name, qname and flags come from the master; the slot table is
// specialized from the master's.
type GenericType struct {
	reg    *Registry
	master *ClassType
	shape  Shape
	sig    string

	elem    Type   // list
	key     Type   // map
	val     Type   // map
	fparams []Type // func
	ret     Type   // func

	nullOnce sync.Once
	nullable *NullableType
	inhOnce  sync.Once
	inh      []Type
	facets   atomic.Pointer[facetCache]

	mu    sync.Mutex
	ready atomic.Bool
	table *slotTable
}

func (g *GenericType) ModuleName() string  { return g.master.ModuleName() }
func (g *GenericType) Name() string        { return g.master.Name() }
func (g *GenericType) QName() string       { return g.master.QName() }
func (g *GenericType) Signature() string   { return g.sig }
func (g *GenericType) Flags() Flags        { return g.master.Flags() }
func (g *GenericType) IsNullable() bool    { return false }
func (g *GenericType) ToNonNullable() Type { return g }
func (g *GenericType) Base() Type          { return g.master }
func (g *GenericType) Mixins() []Type      { return g.master.Mixins() }
func (g *GenericType) Registry() *Registry { return g.reg }
func (g *GenericType) String() string      { return g.sig }

// Shape returns the generic shape.
func (g *GenericType) Shape() Shape { return g.shape }

// Master returns the generic master type.
func (g *GenericType) Master() *ClassType { return g.master }

// Elem returns the element type of a list, or nil.
func (g *GenericType) Elem() Type { return g.elem }

// Key returns the key type of a map, or nil.
func (g *GenericType) Key() Type { return g.key }

// Val returns the value type of a map, or nil.
func (g *GenericType) Val() Type { return g.val }

// FuncParams returns the parameter types of a function type.
func (g *GenericType) FuncParams() []Type {
	out := make([]Type, len(g.fparams))
	copy(out, g.fparams)
	return out
}

// Ret returns the return type of a function type, or nil.
func (g *GenericType) Ret() Type { return g.ret }

func (g *GenericType) ToNullable() Type {
	g.nullOnce.Do(func() { g.nullable = &NullableType{root: g} })
	return g.nullable
}

func (g *GenericType) Inheritance() []Type {
	g.inhOnce.Do(func() { g.inh = linearize(g) })
	return g.inh
}

func (g *GenericType) components() []Type {
	switch g.shape {
	case ShapeList:
		return []Type{g.elem}
	case ShapeMap:
		return []Type{g.key, g.val}
	default:
		return append(g.FuncParams(), g.ret)
	}
}

// Is extends the shared subtype test with structural rules: lists and maps
// are covariant, functions accept fewer parameters and contravariant
// parameter types.
func (g *GenericType) Is(other Type) bool {
	if other == nil {
		return false
	}
	if o, ok := other.ToNonNullable().(*GenericType); ok && o.shape == g.shape {
		switch g.shape {
		case ShapeList:
			return g.elem.Is(o.elem)
		case ShapeMap:
			return g.key.Is(o.key) && g.val.Is(o.val)
		case ShapeFunc:
			if !IsVoid(o.ret) && !g.ret.Is(o.ret) {
				return false
			}
			if len(g.fparams) > len(o.fparams) {
				return false
			}
			for i, p := range g.fparams {
				if !o.fparams[i].Is(p) {
					return false
				}
			}
			return true
		}
	}
	return isType(g, other)
}

// Params returns the generic bindings: V and L for lists, K, V and M for
// maps, A through H and R for functions.
func (g *GenericType) Params() map[string]Type {
	out := make(map[string]Type)
	switch g.shape {
	case ShapeList:
		out["V"] = g.elem
		out["L"] = g
	case ShapeMap:
		out["K"] = g.key
		out["V"] = g.val
		out["M"] = g
	case ShapeFunc:
		for i := 0; i < len(funcParamNames); i++ {
			name := funcParamNames[i : i+1]
			if i < len(g.fparams) {
				out[name] = g.fparams[i]
			} else {
				out[name] = g.reg.root()
			}
		}
		out["R"] = g.ret
	}
	return out
}

func (g *GenericType) binding(name string) Type {
	if t, ok := g.Params()[name]; ok && t != nil {
		return t
	}
	return g.reg.root()
}

func (g *GenericType) Facets() *Facets { return cachedFacets(g, &g.facets) }

func (g *GenericType) Finish() error { return g.reflect() }

func (g *GenericType) Make(args ...any) (any, error) {
	if g.Flags()&FlagAbstract != 0 {
		return nil, errorf(CodeUnsupportedOperation, g.sig, "cannot instantiate abstract type")
	}
	return makeInstance(g, args)
}

func (g *GenericType) Slots() ([]Slot, error) {
	if err := g.reflect(); err != nil {
		return nil, err
	}
	out := make([]Slot, len(g.table.slots))
	copy(out, g.table.slots)
	return out, nil
}

func (g *GenericType) Fields() ([]*Field, error) {
	if err := g.reflect(); err != nil {
		return nil, err
	}
	out := make([]*Field, len(g.table.fields))
	copy(out, g.table.fields)
	return out, nil
}

func (g *GenericType) Methods() ([]*Method, error) {
	if err := g.reflect(); err != nil {
		return nil, err
	}
	out := make([]*Method, len(g.table.methods))
	copy(out, g.table.methods)
	return out, nil
}

func (g *GenericType) Slot(name string) (Slot, error) {
	if err := g.reflect(); err != nil {
		return nil, err
	}
	if s, ok := g.table.lookup(name); ok {
		return s, nil
	}
	return nil, errorf(CodeUnknownSlot, g.sig+"."+name, "")
}

func (g *GenericType) FindSlot(name string) Slot {
	s, err := g.Slot(name)
	if err != nil {
		return nil
	}
	return s
}

func (g *GenericType) Field(name string) (*Field, error)   { return findField(g, name) }
func (g *GenericType) Method(name string) (*Method, error) { return findMethod(g, name) }

// reflect specializes the master's finished slot table. Slots that do not
// mention a generic parameter are shared with the master.
func (g *GenericType) reflect() error {
	if g.ready.Load() {
		return nil
	}
	if err := g.master.Finish(); err != nil {
		return err
	}
	slots, err := g.master.Slots()
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ready.Load() {
		return nil
	}
	m := newMerger(g)
	for _, s := range slots {
		var out Slot
		switch x := s.(type) {
		case *Field:
			out, err = g.parameterizeField(x)
		case *Method:
			out, err = g.parameterizeMethod(x)
		}
		if err != nil {
			return err
		}
		m.slots = append(m.slots, out)
	}
	g.table = m.table()
	g.ready.Store(true)
	return nil
}

func (g *GenericType) parameterizeField(f *Field) (*Field, error) {
	getter, err := g.parameterizeAccessor(f.getter)
	if err != nil {
		return nil, err
	}
	setter, err := g.parameterizeAccessor(f.setter)
	if err != nil {
		return nil, err
	}
	if !hasGenericParam(f.typ) && getter == f.getter && setter == f.setter {
		return f, nil
	}
	typ, err := g.subst(f.typ)
	if err != nil {
		return nil, err
	}
	nf := f.clone()
	nf.parent = g
	nf.typ = typ
	nf.getter = getter
	nf.setter = setter
	return nf, nil
}

func (g *GenericType) parameterizeAccessor(m *Method) (*Method, error) {
	if m == nil {
		return nil, nil
	}
	return g.parameterizeMethod(m)
}

// parameterizeMethod rebuilds a generic method with substituted types. The
// result shares the master's binding, so dispatch reaches the same native.
func (g *GenericType) parameterizeMethod(m *Method) (*Method, error) {
	if !m.generic {
		return m, nil
	}
	params := make([]*Param, len(m.params))
	for i, p := range m.params {
		pt, err := g.subst(p.typ)
		if err != nil {
			return nil, err
		}
		params[i] = &Param{name: p.name, typ: pt, hasDefault: p.hasDefault, def: p.def}
	}
	ret, err := g.subst(m.returns)
	if err != nil {
		return nil, err
	}
	inherited, err := g.subst(m.inheritedReturns)
	if err != nil {
		return nil, err
	}
	return &Method{
		slotBase:         slotBase{parent: g, name: m.name, flags: m.flags, facets: m.facets, line: m.line},
		params:           params,
		returns:          ret,
		inheritedReturns: inherited,
		master:           m,
		bind:             m.bind,
	}, nil
}

// subst replaces generic parameters in t, recursing into nested list, map
// and function types. Nullability is preserved.
func (g *GenericType) subst(t Type) (Type, error) {
	if t == nil || !hasGenericParam(t) {
		return t, nil
	}
	nullable := t.IsNullable()
	var out Type
	switch x := t.ToNonNullable().(type) {
	case *ClassType:
		out = g.binding(x.Name())
	case *GenericType:
		var err error
		if out, err = g.reg.substGeneric(x, g.subst); err != nil {
			return nil, err
		}
	default:
		out = t.ToNonNullable()
	}
	if nullable {
		out = out.ToNullable()
	}
	return out, nil
}

// substGeneric rebuilds x with f applied to each component.
func (r *Registry) substGeneric(x *GenericType, f func(Type) (Type, error)) (Type, error) {
	comps := x.components()
	subs := make([]Type, len(comps))
	for i, c := range comps {
		s, err := f(c)
		if err != nil {
			return nil, err
		}
		subs[i] = s
	}
	switch x.shape {
	case ShapeList:
		return r.genericType(r.ListOf(subs[0]))
	case ShapeMap:
		return r.genericType(r.MapOf(subs[0], subs[1]))
	default:
		return r.genericType(r.FuncOf(subs[:len(subs)-1], subs[len(subs)-1]))
	}
}

// ListOf returns the list type with element type elem.
func (r *Registry) ListOf(elem Type) (*GenericType, error) {
	if elem == nil {
		return nil, errorf(CodeInvalidSignature, "sys::List", "missing element type")
	}
	master, err := r.sysClass("List")
	if err != nil {
		return nil, err
	}
	return r.intern(elem.Signature()+"[]", func(sig string) *GenericType {
		return &GenericType{reg: r, master: master, shape: ShapeList, sig: sig, elem: elem}
	}), nil
}

// MapOf returns the map type from key to val.
func (r *Registry) MapOf(key, val Type) (*GenericType, error) {
	if key == nil || val == nil {
		return nil, errorf(CodeInvalidSignature, "sys::Map", "missing key or value type")
	}
	master, err := r.sysClass("Map")
	if err != nil {
		return nil, err
	}
	sig := "[" + key.Signature() + ":" + val.Signature() + "]"
	return r.intern(sig, func(sig string) *GenericType {
		return &GenericType{reg: r, master: master, shape: ShapeMap, sig: sig, key: key, val: val}
	}), nil
}

// FuncOf returns the function type taking params and returning ret.
func (r *Registry) FuncOf(params []Type, ret Type) (*GenericType, error) {
	if ret == nil {
		return nil, errorf(CodeInvalidSignature, "sys::Func", "missing return type")
	}
	if len(params) > len(funcParamNames) {
		return nil, errorf(CodeInvalidSignature, "sys::Func", "too many parameters: %d", len(params))
	}
	master, err := r.sysClass("Func")
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	sb.WriteByte('|')
	for i, p := range params {
		if p == nil {
			return nil, errorf(CodeInvalidSignature, "sys::Func", "missing parameter type %d", i)
		}
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(p.Signature())
	}
	sb.WriteString("->")
	sb.WriteString(ret.Signature())
	sb.WriteByte('|')
	ps := make([]Type, len(params))
	copy(ps, params)
	return r.intern(sb.String(), func(sig string) *GenericType {
		return &GenericType{reg: r, master: master, shape: ShapeFunc, sig: sig, fparams: ps, ret: ret}
	}), nil
}

// Parameterize binds the generic parameters of a master type: V for
// sys::List, K and V for sys::Map, R and consecutive A..H for sys::Func.
func (r *Registry) Parameterize(master Type, bindings map[string]Type) (Type, error) {
	if master == nil {
		return nil, errorf(CodeInvalidSignature, "", "missing master type")
	}
	need := func(name string) (Type, error) {
		if t, ok := bindings[name]; ok && t != nil {
			return t, nil
		}
		return nil, errorf(CodeInvalidSignature, master.QName(), "missing binding %s", name)
	}
	switch master.QName() {
	case "sys::List":
		v, err := need("V")
		if err != nil {
			return nil, err
		}
		return r.genericType(r.ListOf(v))
	case "sys::Map":
		k, err := need("K")
		if err != nil {
			return nil, err
		}
		v, err := need("V")
		if err != nil {
			return nil, err
		}
		return r.genericType(r.MapOf(k, v))
	case "sys::Func":
		ret, err := need("R")
		if err != nil {
			return nil, err
		}
		var params []Type
		gap := false
		for i := 0; i < len(funcParamNames); i++ {
			t, ok := bindings[funcParamNames[i:i+1]]
			switch {
			case ok && gap:
				return nil, errorf(CodeInvalidSignature, master.QName(), "binding %c follows a gap", funcParamNames[i])
			case ok:
				params = append(params, t)
			default:
				gap = true
			}
		}
		return r.genericType(r.FuncOf(params, ret))
	}
	return nil, errorf(CodeUnsupportedOperation, master.QName(), "not a generic type")
}

func (r *Registry) intern(sig string, build func(sig string) *GenericType) *GenericType {
	r.genericMu.Lock()
	defer r.genericMu.Unlock()
	if g, ok := r.generics[sig]; ok {
		return g
	}
	g := build(sig)
	r.generics[sig] = g
	return g
}
