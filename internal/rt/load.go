package rt

import (
	"errors"
	"slices"
	"strconv"
	"strings"

	"reflex/internal/depend"
	"reflex/internal/meta"
	"reflex/internal/trace"
)

// resolution is the dependency walk that precedes loading. Modules are
// collected in post-order so dependencies load first; nothing is published
// until the whole graph is known to be acyclic.
type resolution struct {
	stack  []string
	active map[string]bool
	done   map[string]bool
	defs   map[string]*meta.ModuleDef
	order  []string
}

func newResolution() *resolution {
	return &resolution{
		active: make(map[string]bool),
		done:   make(map[string]bool),
		defs:   make(map[string]*meta.ModuleDef),
	}
}

func (res *resolution) push(name string) {
	res.active[name] = true
	res.stack = append(res.stack, name)
}

func (res *resolution) pop(name string) {
	delete(res.active, name)
	res.stack = res.stack[:len(res.stack)-1]
}

func (res *resolution) cycle(name string) error {
	i := slices.Index(res.stack, name)
	chain := append(slices.Clone(res.stack[i:]), name)
	return errorf(CodeCyclicDependency, name, "%s", strings.Join(chain, " -> "))
}

func (r *Registry) visit(res *resolution, name string) error {
	if res.active[name] {
		return res.cycle(name)
	}
	if res.done[name] || r.cached(name) != nil {
		res.done[name] = true
		return nil
	}
	def, err := r.readDef(name)
	if err != nil {
		return err
	}
	deps, err := moduleDepends(def)
	if err != nil {
		return err
	}
	res.push(name)
	for _, d := range deps {
		if err := r.visit(res, d.Name); err != nil {
			return err
		}
	}
	res.pop(name)
	res.done[name] = true
	res.defs[name] = def
	res.order = append(res.order, name)
	return nil
}

func (r *Registry) readDef(name string) (*meta.ModuleDef, error) {
	def, err := r.source.Load(name)
	if err != nil {
		if errors.Is(err, meta.ErrNotFound) {
			return nil, errorf(CodeUnknownModule, name, "")
		}
		return nil, wrapErr(CodeLoadFailed, name, err)
	}
	if def.Name != name {
		return nil, errorf(CodeUnknownModule, name, "stored as %q", def.Name)
	}
	return def, nil
}

// moduleDepends parses the declared dependencies and adds the implicit
// dependency on sys.
func moduleDepends(def *meta.ModuleDef) ([]depend.Depend, error) {
	deps := make([]depend.Depend, 0, len(def.Depends)+1)
	hasSys := def.Name == meta.SysModule
	for _, text := range def.Depends {
		d, err := depend.Parse(text)
		if err != nil {
			return nil, wrapErr(CodeLoadFailed, def.Name, err)
		}
		if d.Name == def.Name {
			return nil, errorf(CodeCyclicDependency, def.Name, "%s -> %s", def.Name, def.Name)
		}
		hasSys = hasSys || d.Name == meta.SysModule
		deps = append(deps, d)
	}
	if !hasSys {
		deps = append(deps, depend.MustParse(meta.SysModule+" 0+"))
	}
	return deps, nil
}

func (r *Registry) find(name string) (*Module, error) {
	span := trace.Begin(r.tracer, trace.ScopeRegistry, "find "+name, 0)
	res := newResolution()
	if err := r.visit(res, name); err != nil {
		span.Fail(err)
		return nil, err
	}
	for _, n := range res.order {
		if _, err := r.load(n, res.defs[n]); err != nil {
			span.Fail(err)
			return nil, err
		}
	}
	m := r.cached(name)
	if m == nil {
		// Evicted between load and lookup.
		err := errorf(CodeLoadFailed, name, "module was evicted while loading")
		span.Fail(err)
		return nil, err
	}
	span.End("")
	return m, nil
}

// load builds and publishes one module whose dependencies are loaded.
// Concurrent loads of the same name share one build.
func (r *Registry) load(name string, def *meta.ModuleDef) (*Module, error) {
	v, err, _ := r.loads.Do(name, func() (any, error) {
		if m := r.cached(name); m != nil {
			return m, nil
		}
		m := &Module{reg: r, name: name}
		st, err := r.buildState(m, def)
		if err != nil {
			return nil, err
		}
		m.state.Store(st)
		r.mu.Lock()
		r.modules[name] = m
		r.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Module), nil
}

// Reload re-reads a loaded module from the source and swaps its contents in
// place. Types handed out before the reload keep their old definitions;
// lookups through the module see the new ones.
func (r *Registry) Reload(name string) (*Module, error) {
	name = normalizeName(name)
	m := r.cached(name)
	if m == nil {
		return r.Find(name)
	}
	v, err, _ := r.loads.Do("reload\x00"+name, func() (any, error) {
		span := trace.Begin(r.tracer, trace.ScopeRegistry, "reload "+name, 0)
		def, err := r.readDef(name)
		if err != nil {
			span.Fail(err)
			return nil, err
		}
		deps, err := moduleDepends(def)
		if err != nil {
			span.Fail(err)
			return nil, err
		}
		res := newResolution()
		res.push(name)
		for _, d := range deps {
			if err := r.visit(res, d.Name); err != nil {
				span.Fail(err)
				return nil, err
			}
		}
		for _, n := range res.order {
			if _, err := r.load(n, res.defs[n]); err != nil {
				span.Fail(err)
				return nil, err
			}
		}
		st, err := r.buildState(m, def)
		if err != nil {
			span.Fail(err)
			return nil, err
		}
		m.state.Store(st)
		r.invalidate()
		span.End("")
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Module), nil
}

// buildState runs the two load passes: hollow types first, then base and
// mixin links, so types of one module may refer to each other in any order.
func (r *Registry) buildState(m *Module, def *meta.ModuleDef) (*moduleState, error) {
	span := trace.Begin(r.tracer, trace.ScopeModule, "load "+m.name, 0)
	st, err := r.buildStateSpan(m, def)
	if err != nil {
		span.Fail(err)
		return nil, err
	}
	span.WithExtra("types", strconv.Itoa(len(st.types))).End(st.version.String())
	return st, nil
}

func (r *Registry) buildStateSpan(m *Module, def *meta.ModuleDef) (*moduleState, error) {
	version, err := depend.ParseVersion(def.Version)
	if err != nil {
		return nil, wrapErr(CodeLoadFailed, m.name, err)
	}
	deps, err := moduleDepends(def)
	if err != nil {
		return nil, err
	}
	for _, d := range deps {
		dm, err := r.Find(d.Name)
		if err != nil {
			return nil, err
		}
		if !d.Match(dm.Version()) {
			return nil, errorf(CodeVersionMismatch, m.name, "requires %s, found %s %s", d, d.Name, dm.Version())
		}
	}

	st := &moduleState{
		version: version,
		depends: deps,
		meta:    make(map[string]string, len(def.Meta)),
		types:   make([]*ClassType, 0, len(def.Types)),
		byName:  make(map[string]*ClassType, len(def.Types)),
	}
	for k, v := range def.Meta {
		st.meta[k] = v
	}

	// Pass 1: hollow types.
	for i := range def.Types {
		td := &def.Types[i]
		name := normalizeName(td.Name)
		if name == "" {
			return nil, errorf(CodeLoadFailed, m.name, "type without a name")
		}
		if _, dup := st.byName[name]; dup {
			return nil, errorf(CodeLoadFailed, m.name+"::"+name, "duplicate type")
		}
		t, err := newClassType(r, m, name, td)
		if err != nil {
			return nil, err
		}
		st.types = append(st.types, t)
		st.byName[name] = t
	}

	// Pass 2: inheritance links.
	for _, t := range st.types {
		if err := linkParents(m, st, t); err != nil {
			return nil, err
		}
	}
	if err := checkInheritance(st.types); err != nil {
		return nil, err
	}
	return st, nil
}

func linkParents(m *Module, st *moduleState, t *ClassType) error {
	td := t.def
	switch {
	case td.Base != "":
		base, err := resolveParent(m, st, t, td.Base)
		if err != nil {
			return err
		}
		if base.Flags().Has(FlagMixin) {
			return errorf(CodeLoadFailed, t.qname, "base %s is a mixin", base.QName())
		}
		if t.IsMixin() && !IsRoot(base) {
			return errorf(CodeLoadFailed, t.qname, "mixin cannot extend %s", base.QName())
		}
		t.base = base
	case t.qname == rootQName:
	default:
		base, err := resolveParent(m, st, t, rootQName)
		if err != nil {
			return err
		}
		t.base = base
	}
	for _, text := range td.Mixins {
		mx, err := resolveParent(m, st, t, text)
		if err != nil {
			return err
		}
		if !mx.Flags().Has(FlagMixin) {
			return errorf(CodeLoadFailed, t.qname, "%s is not a mixin", mx.QName())
		}
		t.mixins = append(t.mixins, mx)
	}
	return nil
}

func resolveParent(m *Module, st *moduleState, t *ClassType, text string) (Type, error) {
	p, err := m.resolveIn(st, text)
	if err != nil {
		return nil, wrapErr(CodeLoadFailed, t.qname, err)
	}
	if _, ok := p.(*ClassType); !ok {
		return nil, errorf(CodeLoadFailed, t.qname, "cannot inherit from %s", p.Signature())
	}
	if p == Type(t) {
		return nil, errorf(CodeLoadFailed, t.qname, "type inherits from itself")
	}
	return p, nil
}

// checkInheritance rejects inheritance cycles among the types of one
// module. Cycles across modules cannot form since module dependencies are
// acyclic.
func checkInheritance(types []*ClassType) error {
	const (
		visiting = 1
		visited  = 2
	)
	state := make(map[*ClassType]int, len(types))
	var walk func(t *ClassType) error
	walk = func(t *ClassType) error {
		switch state[t] {
		case visiting:
			return errorf(CodeLoadFailed, t.qname, "cyclic inheritance")
		case visited:
			return nil
		}
		state[t] = visiting
		for _, p := range t.parents() {
			if pc, ok := p.(*ClassType); ok && pc.mod == t.mod {
				if err := walk(pc); err != nil {
					return err
				}
			}
		}
		state[t] = visited
		return nil
	}
	for _, t := range types {
		if err := walk(t); err != nil {
			return err
		}
	}
	return nil
}
