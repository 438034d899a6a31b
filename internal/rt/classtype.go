package rt

import (
	"strconv"
	"sync"
	"sync/atomic"

	"reflex/internal/meta"
	"reflex/internal/trace"
)

// Stage is the lifecycle stage of a class type.
type Stage uint32

const (
	// StageHollow: identity, base and mixins are known.
	StageHollow Stage = iota
	// StageReflected: the slot table is built.
	StageReflected
	// StageEmitted: executables were obtained from the emitter.
	StageEmitted
	// StageFinished: every own slot is bound to a handle.
	StageFinished
)

func (s Stage) String() string {
	switch s {
	case StageHollow:
		return "hollow"
	case StageReflected:
		return "reflected"
	case StageEmitted:
		return "emitted"
	case StageFinished:
		return "finished"
	default:
		return "Stage(" + strconv.Itoa(int(s)) + ")"
	}
}

// ClassType is a type declared by a module.
type ClassType struct {
	reg      *Registry
	mod      *Module
	name     string
	qname    string
	flags    Flags
	nullable *NullableType
	base     Type
	mixins   []Type
	own      *Facets
	source   string
	line     int

	mu      sync.Mutex
	stage   atomic.Uint32
	def     *meta.TypeDef // dropped once emitted
	table   *slotTable
	primary Executable
	aux     Executable

	inhOnce sync.Once
	inh     []Type
	facets  atomic.Pointer[facetCache]
}

type facetCache struct {
	gen    uint64
	facets *Facets
}

// newClassType builds a hollow type. name is the normalized form of
// def.Name; def itself belongs to the source and is never written.
func newClassType(reg *Registry, mod *Module, name string, def *meta.TypeDef) (*ClassType, error) {
	flags, err := ParseFlags(def.Flags)
	if err != nil {
		return nil, wrapErr(CodeLoadFailed, mod.name+"::"+name, err)
	}
	t := &ClassType{
		reg:    reg,
		mod:    mod,
		name:   name,
		qname:  mod.name + "::" + name,
		flags:  flags,
		own:    NewFacets(def.Facets),
		source: def.Source,
		line:   def.Line,
		def:    def,
	}
	t.nullable = &NullableType{root: t}
	return t, nil
}

func (t *ClassType) ModuleName() string  { return t.mod.name }
func (t *ClassType) Module() *Module     { return t.mod }
func (t *ClassType) Name() string        { return t.name }
func (t *ClassType) QName() string       { return t.qname }
func (t *ClassType) Signature() string   { return t.qname }
func (t *ClassType) Flags() Flags        { return t.flags }
func (t *ClassType) IsNullable() bool    { return false }
func (t *ClassType) ToNullable() Type    { return t.nullable }
func (t *ClassType) ToNonNullable() Type { return t }
func (t *ClassType) Is(other Type) bool  { return isType(t, other) }
func (t *ClassType) Registry() *Registry { return t.reg }
func (t *ClassType) String() string      { return t.qname }

func (t *ClassType) Params() map[string]Type { return nil }

// SourceFile returns the file the type was declared in.
func (t *ClassType) SourceFile() string { return t.source }

// Line returns the declaration line, or 0.
func (t *ClassType) Line() int { return t.line }

func (t *ClassType) IsMixin() bool    { return t.flags&FlagMixin != 0 }
func (t *ClassType) IsAbstract() bool { return t.flags&FlagAbstract != 0 }

// Base returns the base type. Interface values holding a nil pointer are
// never returned.
func (t *ClassType) Base() Type {
	if t.base == nil {
		return nil
	}
	return t.base
}

func (t *ClassType) Mixins() []Type {
	out := make([]Type, len(t.mixins))
	copy(out, t.mixins)
	return out
}

func (t *ClassType) Inheritance() []Type {
	t.inhOnce.Do(func() { t.inh = linearize(t) })
	return t.inh
}

// Stage returns the current lifecycle stage.
func (t *ClassType) Stage() Stage { return Stage(t.stage.Load()) }

func (t *ClassType) ownFacets() *Facets { return t.own }

// Facets returns own and inherited facets. The result is recomputed after a
// registry reload.
func (t *ClassType) Facets() *Facets {
	return cachedFacets(t, &t.facets)
}

func cachedFacets(t Type, cache *atomic.Pointer[facetCache]) *Facets {
	gen := t.Registry().Generation()
	if fc := cache.Load(); fc != nil && fc.gen == gen {
		return fc.facets
	}
	var sets []*Facets
	for _, x := range t.Inheritance() {
		if of, ok := x.(interface{ ownFacets() *Facets }); ok {
			sets = append(sets, of.ownFacets())
		}
	}
	f := inheritFacets(sets)
	cache.Store(&facetCache{gen: gen, facets: f})
	return f
}

func (t *ClassType) Slots() ([]Slot, error) {
	if err := t.Reflect(); err != nil {
		return nil, err
	}
	out := make([]Slot, len(t.table.slots))
	copy(out, t.table.slots)
	return out, nil
}

func (t *ClassType) Fields() ([]*Field, error) {
	if err := t.Reflect(); err != nil {
		return nil, err
	}
	out := make([]*Field, len(t.table.fields))
	copy(out, t.table.fields)
	return out, nil
}

func (t *ClassType) Methods() ([]*Method, error) {
	if err := t.Reflect(); err != nil {
		return nil, err
	}
	out := make([]*Method, len(t.table.methods))
	copy(out, t.table.methods)
	return out, nil
}

func (t *ClassType) Slot(name string) (Slot, error) {
	if err := t.Reflect(); err != nil {
		return nil, err
	}
	if s, ok := t.table.lookup(name); ok {
		return s, nil
	}
	return nil, errorf(CodeUnknownSlot, slotQName(t, name), "")
}

func (t *ClassType) FindSlot(name string) Slot {
	s, err := t.Slot(name)
	if err != nil {
		return nil
	}
	return s
}

func (t *ClassType) Field(name string) (*Field, error)   { return findField(t, name) }
func (t *ClassType) Method(name string) (*Method, error) { return findMethod(t, name) }

// Reflect builds the slot table, reflecting base and mixins first.
func (t *ClassType) Reflect() error {
	if t.Stage() >= StageReflected {
		return nil
	}
	// Parents are reflected without holding our lock; inheritance cycles
	// are rejected at load time so this terminates.
	for _, p := range t.parents() {
		if _, err := p.Slots(); err != nil {
			return err
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Stage() >= StageReflected {
		return nil
	}
	span := trace.Begin(t.reg.tracer, trace.ScopeType, "reflect "+t.qname, 0)
	table, err := t.buildTable()
	if err != nil {
		span.Fail(err)
		return err
	}
	t.table = table
	t.stage.Store(uint32(StageReflected))
	span.WithExtra("slots", strconv.Itoa(len(table.slots))).End("")
	return nil
}

func (t *ClassType) parents() []Type {
	out := make([]Type, 0, len(t.mixins)+1)
	out = append(out, t.mixins...)
	if t.base != nil {
		out = append(out, t.base)
	}
	return out
}

func (t *ClassType) buildTable() (*slotTable, error) {
	m := newMerger(t)
	for _, p := range t.parents() {
		slots, err := p.Slots()
		if err != nil {
			return nil, err
		}
		m.addAll(slots)
	}
	def := t.def
	if def == nil {
		return emptyTable, nil
	}
	for i := range def.Fields {
		f, err := t.makeField(&def.Fields[i])
		if err != nil {
			return nil, err
		}
		m.add(f)
	}
	for i := range def.Methods {
		meth, err := t.makeMethod(&def.Methods[i])
		if err != nil {
			return nil, err
		}
		m.add(meth)
	}
	return m.table(), nil
}

func (t *ClassType) makeField(fd *meta.FieldDef) (*Field, error) {
	qname := slotQName(t, fd.Name)
	flags, err := ParseFlags(fd.Flags)
	if err != nil {
		return nil, wrapErr(CodeLoadFailed, qname, err)
	}
	typ, err := t.mod.resolve(fd.Type)
	if err != nil {
		return nil, wrapErr(CodeLoadFailed, qname, err)
	}
	return newField(t, fd.Name, flags, typ, NewFacets(fd.Facets), fd.Line), nil
}

func (t *ClassType) makeMethod(md *meta.MethodDef) (*Method, error) {
	qname := slotQName(t, md.Name)
	flags, err := ParseFlags(md.Flags)
	if err != nil {
		return nil, wrapErr(CodeLoadFailed, qname, err)
	}
	ret, err := t.mod.resolveOr(md.Returns, voidQName)
	if err != nil {
		return nil, wrapErr(CodeLoadFailed, qname, err)
	}
	inherited := ret
	if md.InheritedReturns != "" {
		if inherited, err = t.mod.resolve(md.InheritedReturns); err != nil {
			return nil, wrapErr(CodeLoadFailed, qname, err)
		}
	}
	params := make([]*Param, len(md.Params))
	for i, pd := range md.Params {
		pt, err := t.mod.resolve(pd.Type)
		if err != nil {
			return nil, wrapErr(CodeLoadFailed, qname+"("+pd.Name+")", err)
		}
		params[i] = NewParam(pd.Name, pt, pd.Defaulted(), pd.Default)
	}
	return newMethod(t, md.Name, flags, ret, inherited, params, NewFacets(md.Facets), md.Line), nil
}

// Emit obtains the executables from the registry's emitter. The metadata
// definition is released afterwards.
func (t *ClassType) Emit() error {
	if t.Stage() >= StageEmitted {
		return nil
	}
	if err := t.Reflect(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Stage() >= StageEmitted {
		return nil
	}
	span := trace.Begin(t.reg.tracer, trace.ScopeType, "emit "+t.qname, 0)
	primary, aux, err := t.reg.emitter.Emit(t)
	if err != nil {
		err = wrapErr(CodeEmitFailed, t.qname, err)
		span.Fail(err)
		return err
	}
	if primary == nil {
		primary = EmptyExecutable
	}
	if aux == nil {
		aux = EmptyExecutable
	}
	t.primary, t.aux = primary, aux
	t.def = nil
	t.stage.Store(uint32(StageEmitted))
	span.End("")
	return nil
}

// Executables returns the emitted executables, or nils before emission.
func (t *ClassType) Executables() (primary, aux Executable) {
	if t.Stage() < StageEmitted {
		return nil, nil
	}
	return t.primary, t.aux
}

// Finish binds every slot declared by the type to a handle. A slot without
// a native member takes over the base type's handle; if there is none an
// unsupported handle is bound.
func (t *ClassType) Finish() error {
	if t.Stage() >= StageFinished {
		return nil
	}
	if err := t.Emit(); err != nil {
		return err
	}
	if t.base != nil {
		if err := t.base.Finish(); err != nil {
			return wrapErr(CodeFinishFailed, t.qname, err)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Stage() >= StageFinished {
		return nil
	}
	span := trace.Begin(t.reg.tracer, trace.ScopeType, "finish "+t.qname, 0)
	bound := 0
	for _, s := range t.table.slots {
		switch x := s.(type) {
		case *Field:
			if !t.bindField(x) {
				continue
			}
		case *Method:
			if x.parent != t {
				continue
			}
			t.bindMethod(x)
		}
		bound++
		trace.Point(t.reg.tracer, trace.ScopeSlot, "bind "+s.QName(), "")
	}
	t.stage.Store(uint32(StageFinished))
	span.WithExtra("bound", strconv.Itoa(bound)).End("")
	return nil
}

func (t *ClassType) executableFor(s Slot) Executable {
	if t.IsMixin() && s.Flags()&FlagStatic != 0 {
		return t.aux
	}
	return t.primary
}

// bindField binds an own field, and accessors this type declares for a field
// it inherits. The binding of an inherited field belongs to its owner and is
// left alone.
func (t *ClassType) bindField(f *Field) bool {
	own := f.parent == t
	ownGetter := f.getter != nil && f.getter.parent == t
	ownSetter := f.setter != nil && f.setter.parent == t
	if !own && !ownGetter && !ownSetter {
		return false
	}
	acc, ok := t.executableFor(f).Field(f.name)
	if !ok {
		acc, ok = t.inheritedAccessor(f.name)
	}
	if !ok {
		acc = unsupportedAccessor(f.QName())
	}
	if own {
		f.bind.accessor = acc
	}
	if ownGetter && acc.Get != nil {
		get := acc.Get
		f.getter.bind.invoker = func(self any, _ []any) (any, error) { return get(self) }
	}
	if ownSetter && acc.Set != nil {
		set := acc.Set
		qname := f.QName()
		f.setter.bind.invoker = func(self any, args []any) (any, error) {
			if len(args) != 1 {
				return nil, errorf(CodeNoMatchingOverload, qname, "setter takes one argument")
			}
			return nil, set(self, args[0])
		}
	}
	return true
}

func (t *ClassType) bindMethod(m *Method) {
	inv, ok := t.executableFor(m).Method(m.name)
	if !ok {
		inv, ok = t.inheritedInvoker(m.name)
	}
	if !ok {
		inv = unsupportedInvoker(m.QName())
	}
	m.bind.invoker = inv
}

func (t *ClassType) inheritedInvoker(name string) (Invoker, bool) {
	if t.base == nil {
		return nil, false
	}
	bm, ok := t.base.FindSlot(name).(*Method)
	if !ok || bm.bind.invoker == nil || bm.flags&FlagCtor != 0 {
		return nil, false
	}
	return bm.bind.invoker, true
}

func (t *ClassType) inheritedAccessor(name string) (Accessor, bool) {
	if t.base == nil {
		return Accessor{}, false
	}
	bf, ok := t.base.FindSlot(name).(*Field)
	if !ok || bf.bind.accessor.Get == nil {
		return Accessor{}, false
	}
	return bf.bind.accessor, true
}

// Make instantiates the type through its public constructor or default
// value.
func (t *ClassType) Make(args ...any) (any, error) {
	if t.flags&(FlagAbstract|FlagMixin) != 0 {
		return nil, errorf(CodeUnsupportedOperation, t.qname, "cannot instantiate abstract type")
	}
	return makeInstance(t, args)
}
