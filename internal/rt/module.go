package rt

import (
	"sort"
	"sync/atomic"

	"github.com/Masterminds/semver/v3"

	"reflex/internal/depend"
	"reflex/internal/sig"
)

// Module is a versioned, named unit of type definitions. Everything but the
// name lives in a snapshot that Reload replaces atomically.
type Module struct {
	reg   *Registry
	name  string
	state atomic.Pointer[moduleState]
}

type moduleState struct {
	version *semver.Version
	depends []depend.Depend
	meta    map[string]string
	types   []*ClassType
	byName  map[string]*ClassType
}

func (st *moduleState) dependsOn(name string) bool {
	for _, d := range st.depends {
		if d.Name == name {
			return true
		}
	}
	return false
}

func (m *Module) Name() string        { return m.name }
func (m *Module) String() string      { return m.name }
func (m *Module) Registry() *Registry { return m.reg }

func (m *Module) Version() *semver.Version { return m.state.Load().version }

// Depends returns the declared dependencies, including the implicit sys
// dependency.
func (m *Module) Depends() []depend.Depend {
	deps := m.state.Load().depends
	out := make([]depend.Depend, len(deps))
	copy(out, deps)
	return out
}

// Meta returns a module meta property.
func (m *Module) Meta(key string) (string, bool) {
	v, ok := m.state.Load().meta[key]
	return v, ok
}

// MetaKeys returns the meta property names in sorted order.
func (m *Module) MetaKeys() []string {
	meta := m.state.Load().meta
	out := make([]string, 0, len(meta))
	for k := range meta {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Types returns the declared types in declaration order.
func (m *Module) Types() []Type {
	types := m.state.Load().types
	out := make([]Type, len(types))
	for i, t := range types {
		out[i] = t
	}
	return out
}

// Type looks up a declared type; a miss is an UnknownType error.
func (m *Module) Type(name string) (*ClassType, error) {
	if t, ok := m.state.Load().byName[name]; ok {
		return t, nil
	}
	return nil, errorf(CodeUnknownType, m.name+"::"+name, "")
}

// FindType looks up a declared type; a miss returns nil.
func (m *Module) FindType(name string) *ClassType {
	return m.state.Load().byName[name]
}

// resolve parses a signature in the scope of the module.
func (m *Module) resolve(text string) (Type, error) {
	return m.resolveIn(m.state.Load(), text)
}

func (m *Module) resolveOr(text, fallback string) (Type, error) {
	if text == "" {
		text = fallback
	}
	return m.resolve(text)
}

// resolveIn resolves against st, which may not be published yet. Types may
// come from the module itself, from sys, or from a declared dependency.
func (m *Module) resolveIn(st *moduleState, text string) (Type, error) {
	s, err := sig.Parse(text)
	if err != nil {
		return nil, wrapErr(CodeInvalidSignature, text, err)
	}
	return m.reg.buildSig(s, func(module, name string) (Type, error) {
		if module == m.name {
			if t, ok := st.byName[name]; ok {
				return t, nil
			}
			return nil, errorf(CodeUnknownType, module+"::"+name, "")
		}
		if module != "sys" && !st.dependsOn(module) {
			return nil, errorf(CodeUnknownType, module+"::"+name, "module %s does not depend on %s", m.name, module)
		}
		dm, err := m.reg.Find(module)
		if err != nil {
			return nil, err
		}
		t, err := dm.Type(name)
		if err != nil {
			return nil, err
		}
		return t, nil
	})
}
