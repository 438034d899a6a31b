// Package emit provides the default emitter: native Go members registered
// per type, layered over built-in members of the core sys types.
package emit

import (
	"fmt"
	"reflect"
	"sync"

	"reflex/internal/host"
	"reflex/internal/meta"
	"reflex/internal/rt"
)

// Members is a set of native members for one type.
type Members struct {
	methods map[string]rt.Invoker
	fields  map[string]rt.Accessor
}

func newMembers() *Members {
	return &Members{
		methods: make(map[string]rt.Invoker),
		fields:  make(map[string]rt.Accessor),
	}
}

func (m *Members) Method(name string) (rt.Invoker, bool) {
	if m == nil {
		return nil, false
	}
	inv, ok := m.methods[name]
	return inv, ok
}

func (m *Members) Field(name string) (rt.Accessor, bool) {
	if m == nil {
		return rt.Accessor{}, false
	}
	acc, ok := m.fields[name]
	return acc, ok
}

func (m *Members) clone() *Members {
	if m == nil {
		return nil
	}
	out := newMembers()
	for k, v := range m.methods {
		out.methods[k] = v
	}
	for k, v := range m.fields {
		out.fields[k] = v
	}
	return out
}

// layers looks members up in order; the first hit wins.
type layers []rt.Executable

func (ls layers) Method(name string) (rt.Invoker, bool) {
	for _, l := range ls {
		if inv, ok := l.Method(name); ok {
			return inv, true
		}
	}
	return nil, false
}

func (ls layers) Field(name string) (rt.Accessor, bool) {
	for _, l := range ls {
		if acc, ok := l.Field(name); ok {
			return acc, true
		}
	}
	return rt.Accessor{}, false
}

// Table is an rt.Emitter serving members registered by type qname.
// Registrations made after a type was emitted do not affect it.
type Table struct {
	mu      sync.Mutex
	bridge  *host.Bridge
	primary map[string]*Members
	aux     map[string]*Members
	records map[string]bool
	emits   map[string]int
}

var _ rt.Emitter = (*Table)(nil)

// New returns a table that serves the built-in sys members.
func New() *Table {
	return &Table{
		bridge:  host.New(),
		primary: make(map[string]*Members),
		aux:     make(map[string]*Members),
		records: make(map[string]bool),
		emits:   make(map[string]int),
	}
}

func (t *Table) members(set map[string]*Members, qname string) *Members {
	m, ok := set[qname]
	if !ok {
		m = newMembers()
		set[qname] = m
	}
	return m
}

// Invoker registers a method implementation.
func (t *Table) Invoker(qname, name string, inv rt.Invoker) {
	t.mu.Lock()
	t.members(t.primary, qname).methods[name] = inv
	t.mu.Unlock()
}

// AuxInvoker registers a static method of a mixin.
func (t *Table) AuxInvoker(qname, name string, inv rt.Invoker) {
	t.mu.Lock()
	t.members(t.aux, qname).methods[name] = inv
	t.mu.Unlock()
}

// Accessor registers a field implementation.
func (t *Table) Accessor(qname, name string, acc rt.Accessor) {
	t.mu.Lock()
	t.members(t.primary, qname).fields[name] = acc
	t.mu.Unlock()
}

// Func registers a Go function as a static method or constructor.
func (t *Table) Func(qname, name string, fn any) error {
	hm, err := t.bridge.Func(name, fn, false)
	if err != nil {
		return fmt.Errorf("emit %s.%s: %w", qname, name, err)
	}
	t.Invoker(qname, name, func(_ any, args []any) (any, error) {
		return hm.Invoke(nil, args)
	})
	return nil
}

// GoMethod registers a Go function taking the target as its first
// parameter as an instance method.
func (t *Table) GoMethod(qname, name string, fn any) error {
	hm, err := t.bridge.Func(name, fn, true)
	if err != nil {
		return fmt.Errorf("emit %s.%s: %w", qname, name, err)
	}
	t.Invoker(qname, name, hm.Invoke)
	return nil
}

// Struct binds the exported fields and methods of sample's struct type to
// the slots of qname, by camelCase name. Instances are pointers to the
// struct.
func (t *Table) Struct(qname string, sample any) error {
	if err := t.bridge.Register(sample); err != nil {
		return fmt.Errorf("emit %s: %w", qname, err)
	}
	c := t.bridge.Class(reflect.TypeOf(sample))
	t.mu.Lock()
	defer t.mu.Unlock()
	m := t.members(t.primary, qname)
	for _, f := range c.Fields() {
		m.fields[f.Name()] = rt.Accessor{Get: f.Get, Set: f.Set}
	}
	for _, hm := range c.Methods() {
		if _, dup := m.methods[hm.Name()]; dup {
			continue
		}
		m.methods[hm.Name()] = hm.Invoke
	}
	return nil
}

// Record makes qname a record type: its own instance fields are stored in
// an Instance and its own constructor "make" assigns each argument to the
// field named like the parameter.
func (t *Table) Record(qname string) {
	t.mu.Lock()
	t.records[qname] = true
	t.mu.Unlock()
}

// Emits returns how many times qname was emitted.
func (t *Table) Emits(qname string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.emits[qname]
}

// Emit implements rt.Emitter.
func (t *Table) Emit(ct *rt.ClassType) (rt.Executable, rt.Executable, error) {
	qname := ct.QName()
	t.mu.Lock()
	t.emits[qname]++
	prim := t.primary[qname].clone()
	aux := t.aux[qname].clone()
	record := t.records[qname]
	t.mu.Unlock()

	var primary layers
	if prim != nil {
		primary = append(primary, prim)
	}
	if record {
		rec, err := recordMembers(ct)
		if err != nil {
			return nil, nil, err
		}
		primary = append(primary, rec)
	}
	if ct.ModuleName() == meta.SysModule {
		if n := sysNatives(ct); n != nil {
			primary = append(primary, n)
		}
	}
	var auxExec rt.Executable = rt.EmptyExecutable
	if aux != nil {
		auxExec = aux
	}
	return primary, auxExec, nil
}

func recordMembers(ct *rt.ClassType) (*Members, error) {
	fields, err := ct.Fields()
	if err != nil {
		return nil, err
	}
	m := newMembers()
	for _, f := range fields {
		if f.Parent() != rt.Type(ct) || f.IsStatic() {
			continue
		}
		name, qname := f.Name(), f.QName()
		m.fields[name] = rt.Accessor{
			Get: func(self any) (any, error) {
				in, ok := self.(*Instance)
				if !ok {
					return nil, fmt.Errorf("%s: target is %s, not a record", qname, kindName(self))
				}
				return in.Get(name), nil
			},
			Set: func(self, val any) error {
				in, ok := self.(*Instance)
				if !ok {
					return fmt.Errorf("%s: target is %s, not a record", qname, kindName(self))
				}
				in.Set(name, val)
				return nil
			},
		}
	}
	if mk, ok := ct.FindSlot("make").(*rt.Method); ok && mk.Parent() == rt.Type(ct) && mk.IsCtor() {
		params := mk.Params()
		m.methods["make"] = func(_ any, args []any) (any, error) {
			in := NewInstance(ct)
			for i, p := range params {
				if i < len(args) {
					in.Set(p.Name(), args[i])
				}
			}
			return in, nil
		}
	}
	return m, nil
}
