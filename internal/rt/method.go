package rt

import (
	"strings"
)

// Param is a method parameter.
type Param struct {
	name       string
	typ        Type
	hasDefault bool
	def        any
}

// NewParam creates a parameter. def is ignored unless hasDefault is set.
func NewParam(name string, typ Type, hasDefault bool, def any) *Param {
	return &Param{name: name, typ: typ, hasDefault: hasDefault, def: def}
}

func (p *Param) Name() string     { return p.name }
func (p *Param) Type() Type       { return p.typ }
func (p *Param) HasDefault() bool { return p.hasDefault }
func (p *Param) Default() any     { return p.def }

func (p *Param) String() string {
	s := typeString(p.typ) + " " + p.name
	if p.hasDefault {
		s += " := ..."
	}
	return s
}

// Method is an invocable slot: a method, constructor, or field accessor.
type Method struct {
	slotBase
	params           []*Param
	returns          Type
	inheritedReturns Type
	generic          bool
	master           *Method

	// host holds the overload set of a foreign method.
	host []HostMethod
	bind *methodBinding
}

type methodBinding struct {
	invoker Invoker
}

func newMethod(parent Type, name string, flags Flags, returns, inherited Type, params []*Param, facets *Facets, line int) *Method {
	if inherited == nil {
		inherited = returns
	}
	m := &Method{
		slotBase:         slotBase{parent: parent, name: name, flags: flags, facets: facets, line: line},
		params:           params,
		returns:          returns,
		inheritedReturns: inherited,
		bind:             &methodBinding{},
	}
	m.generic = hasGenericParam(returns)
	for _, p := range params {
		if hasGenericParam(p.typ) {
			m.generic = true
		}
	}
	return m
}

// Params returns the parameter list.
func (m *Method) Params() []*Param {
	out := make([]*Param, len(m.params))
	copy(out, m.params)
	return out
}

func (m *Method) Returns() Type { return m.returns }

// InheritedReturns returns the return type declared by the overridden
// method, which may be wider than Returns.
func (m *Method) InheritedReturns() Type { return m.inheritedReturns }

// IsGeneric reports whether the signature references a generic parameter.
func (m *Method) IsGeneric() bool { return m.generic }

// GenericMaster returns the master method a parameterized method was
// synthesized from, or nil.
func (m *Method) GenericMaster() *Method { return m.master }

// Overloads returns the number of host overloads of a foreign method.
func (m *Method) Overloads() int { return len(m.host) }

// Arity returns the minimum and maximum number of arguments.
func (m *Method) Arity() (lo, hi int) {
	for _, p := range m.params {
		if !p.hasDefault {
			lo++
		}
	}
	return lo, len(m.params)
}

// Signature renders "Ret(Type a, Type b)".
func (m *Method) Signature() string {
	var sb strings.Builder
	sb.WriteString(typeString(m.returns))
	sb.WriteByte('(')
	for i, p := range m.params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

func (m *Method) String() string { return m.QName() }

func (m *Method) isInstance() bool {
	return m.flags&(FlagStatic|FlagCtor) == 0
}

// Call invokes the method. self is the target instance and must be nil for
// static methods and constructors. Omitted trailing arguments are filled
// from parameter defaults.
func (m *Method) Call(self any, args ...any) (any, error) {
	if err := m.parent.Finish(); err != nil {
		return nil, err
	}
	if self == nil && m.isInstance() {
		return nil, errorf(CodeUnsupportedOperation, m.QName(), "instance method called without target")
	}
	if len(m.host) > 0 {
		return m.callHost(self, args)
	}
	full, err := m.fillArgs(args)
	if err != nil {
		return nil, err
	}
	inv := m.bind.invoker
	if inv == nil {
		return nil, errorf(CodeUnsupportedOperation, m.QName(), "method is not bound")
	}
	return inv(self, full)
}

// CallList is Call with the arguments in a slice.
func (m *Method) CallList(self any, args []any) (any, error) {
	return m.Call(self, args...)
}

func (m *Method) fillArgs(args []any) ([]any, error) {
	if len(args) > len(m.params) {
		return nil, errorf(CodeNoMatchingOverload, m.QName(), "too many arguments: got %d, want at most %d", len(args), len(m.params))
	}
	full := make([]any, len(m.params))
	copy(full, args)
	for i := len(args); i < len(m.params); i++ {
		p := m.params[i]
		if !p.hasDefault {
			return nil, errorf(CodeNoMatchingOverload, m.QName(), "missing argument %q", p.name)
		}
		full[i] = p.def
	}
	return full, nil
}

func unsupportedInvoker(qname string) Invoker {
	return func(any, []any) (any, error) {
		return nil, errorf(CodeUnsupportedOperation, qname, "no implementation bound")
	}
}

func unsupportedAccessor(qname string) Accessor {
	return Accessor{
		Get: func(any) (any, error) {
			return nil, errorf(CodeUnsupportedOperation, qname, "no implementation bound")
		},
		Set: func(any, any) error {
			return errorf(CodeUnsupportedOperation, qname, "no implementation bound")
		},
	}
}
