// Package meta provides module metadata: the read-only description of every
// type a module declares, together with the sources that produce it.
//
// A ModuleDef is re-derivable from its Source at any time, so consumers may
// drop it once they no longer need it.
package meta

// ModuleDef describes one module.
type ModuleDef struct {
	Name    string            `toml:"name" msgpack:"name"`
	Version string            `toml:"version" msgpack:"version"`
	Depends []string          `toml:"depends" msgpack:"depends"`
	Meta    map[string]string `toml:"meta" msgpack:"meta"`
	Types   []TypeDef         `toml:"types" msgpack:"types"`
}

// TypeDef describes a declared type. Base and Mixins are type signatures.
type TypeDef struct {
	Name    string         `toml:"name" msgpack:"name"`
	Flags   []string       `toml:"flags" msgpack:"flags"`
	Base    string         `toml:"base" msgpack:"base"`
	Mixins  []string       `toml:"mixins" msgpack:"mixins"`
	Facets  map[string]any `toml:"facets" msgpack:"facets"`
	Line    int            `toml:"line" msgpack:"line"`
	Source  string         `toml:"source" msgpack:"source"`
	Fields  []FieldDef     `toml:"fields" msgpack:"fields"`
	Methods []MethodDef    `toml:"methods" msgpack:"methods"`
}

// FieldDef describes a field. Fields are always listed before the accessor
// methods that share their name.
type FieldDef struct {
	Name   string         `toml:"name" msgpack:"name"`
	Type   string         `toml:"type" msgpack:"type"`
	Flags  []string       `toml:"flags" msgpack:"flags"`
	Facets map[string]any `toml:"facets" msgpack:"facets"`
	Line   int            `toml:"line" msgpack:"line"`
}

// MethodDef describes a method, constructor or field accessor.
type MethodDef struct {
	Name             string         `toml:"name" msgpack:"name"`
	Returns          string         `toml:"returns" msgpack:"returns"`
	InheritedReturns string         `toml:"inherited_returns" msgpack:"inherited_returns"`
	Flags            []string       `toml:"flags" msgpack:"flags"`
	Params           []ParamDef     `toml:"params" msgpack:"params"`
	Facets           map[string]any `toml:"facets" msgpack:"facets"`
	Line             int            `toml:"line" msgpack:"line"`
}

// ParamDef describes a method parameter. A parameter has a default when
// Default is set or HasDefault is true (the latter expresses a null default).
type ParamDef struct {
	Name       string `toml:"name" msgpack:"name"`
	Type       string `toml:"type" msgpack:"type"`
	Default    any    `toml:"default" msgpack:"default"`
	HasDefault bool   `toml:"has_default" msgpack:"has_default"`
}

// Defaulted reports whether the parameter declares a default value.
func (p ParamDef) Defaulted() bool {
	return p.HasDefault || p.Default != nil
}

// Type returns the type definition with the given name.
func (m *ModuleDef) Type(name string) (*TypeDef, bool) {
	if m == nil {
		return nil, false
	}
	for i := range m.Types {
		if m.Types[i].Name == name {
			return &m.Types[i], true
		}
	}
	return nil, false
}
