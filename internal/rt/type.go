package rt

import (
	"fmt"
	"strings"
)

// Type is the runtime description of a value's type.
//
// Identity queries never fail. Structural queries (slots) may trigger lazy
// initialization and report its failure.
type Type interface {
	// ModuleName returns the owning module, e.g. "sys".
	ModuleName() string
	// Name returns the simple name, e.g. "Int".
	Name() string
	// QName returns "module::Name".
	QName() string
	// Signature returns the full formal signature, e.g. "sys::Str?[]".
	Signature() string
	Flags() Flags

	IsNullable() bool
	// ToNullable returns the single nullable wrapper of the type.
	ToNullable() Type
	ToNonNullable() Type

	// Base returns the base type; nil only for sys::Obj.
	Base() Type
	Mixins() []Type
	// Inheritance returns the type followed by every type it inherits
	// from, without duplicates.
	Inheritance() []Type
	Is(other Type) bool
	// Params returns the generic parameter bindings of a generic
	// instance, or nil.
	Params() map[string]Type

	Slots() ([]Slot, error)
	Fields() ([]*Field, error)
	Methods() ([]*Method, error)
	// Slot looks up a slot by name; a miss is an UnknownSlot error.
	Slot(name string) (Slot, error)
	// FindSlot looks up a slot by name; a miss returns nil.
	FindSlot(name string) Slot
	Field(name string) (*Field, error)
	Method(name string) (*Method, error)

	// Facets returns the facets declared on the type and inherited from
	// its ancestors.
	Facets() *Facets
	// Finish completes lazy initialization so that every slot is bound.
	Finish() error
	// Make instantiates the type.
	Make(args ...any) (any, error)

	Registry() *Registry
	String() string
}

// Typed is implemented by runtime values that know their type.
type Typed interface {
	Typeof() Type
}

const (
	rootQName = "sys::Obj"
	voidQName = "sys::Void"
)

// IsRoot reports whether t is the universal root type sys::Obj.
func IsRoot(t Type) bool {
	if t == nil {
		return false
	}
	_, generic := t.ToNonNullable().(*GenericType)
	return !generic && t.QName() == rootQName
}

// IsVoid reports whether t is the bottom type sys::Void.
func IsVoid(t Type) bool {
	return t != nil && t.QName() == voidQName && !t.IsNullable()
}

// sameType compares two non-nullable types by signature. Types are unique
// per registry, but a reload replaces instances, so identity alone is not
// enough.
func sameType(a, b Type) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.Signature() == b.Signature()
}

// linearize builds [t] ++ inheritance(base) ++ inheritance(mixins...),
// dropping later duplicates.
func linearize(t Type) []Type {
	if IsVoid(t) {
		return []Type{t}
	}
	seen := map[string]struct{}{t.Signature(): {}}
	out := []Type{t}
	add := func(list []Type) {
		for _, x := range list {
			sig := x.Signature()
			if _, dup := seen[sig]; dup {
				continue
			}
			seen[sig] = struct{}{}
			out = append(out, x)
		}
	}
	if b := t.Base(); b != nil {
		add(b.Inheritance())
	}
	for _, m := range t.Mixins() {
		add(m.Inheritance())
	}
	return out
}

// isType is the shared subtype test: nullability is ignored, sys::Obj is a
// supertype of everything except sys::Void.
func isType(t, u Type) bool {
	if t == nil || u == nil {
		return false
	}
	t = t.ToNonNullable()
	u = u.ToNonNullable()
	if sameType(t, u) {
		return true
	}
	if IsRoot(u) {
		return !IsVoid(t)
	}
	for _, x := range t.Inheritance() {
		if sameType(x, u) {
			return true
		}
	}
	return false
}

// Fits reports whether t can be used where u is expected, ignoring
// nullability on both sides.
func Fits(t, u Type) bool {
	if t == nil || u == nil {
		return false
	}
	return t.ToNonNullable().Is(u.ToNonNullable())
}

// isGenericParam reports whether t is one of the single letter placeholder
// types of sys.
func isGenericParam(t Type) bool {
	ct, ok := t.ToNonNullable().(*ClassType)
	return ok && ct.ModuleName() == "sys" && len(ct.Name()) == 1
}

// hasGenericParam reports whether a generic parameter occurs anywhere in t.
func hasGenericParam(t Type) bool {
	if t == nil {
		return false
	}
	switch x := t.ToNonNullable().(type) {
	case *ClassType:
		return isGenericParam(x)
	case *GenericType:
		for _, p := range x.components() {
			if hasGenericParam(p) {
				return true
			}
		}
	}
	return false
}

// findField and findMethod share the checked lookup path of all types.
func findField(t Type, name string) (*Field, error) {
	s, err := t.Slot(name)
	if err != nil {
		return nil, err
	}
	f, ok := s.(*Field)
	if !ok {
		return nil, errorf(CodeUnknownSlot, t.QName()+"."+name, "not a field")
	}
	return f, nil
}

func findMethod(t Type, name string) (*Method, error) {
	s, err := t.Slot(name)
	if err != nil {
		return nil, err
	}
	switch x := s.(type) {
	case *Method:
		return x, nil
	case *Field:
		if x.overload != nil {
			return x.overload, nil
		}
	}
	return nil, errorf(CodeUnknownSlot, t.QName()+"."+name, "not a method")
}

func typeString(t Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.Signature()
}

func typeNames(list []Type) string {
	parts := make([]string, len(list))
	for i, t := range list {
		parts[i] = typeString(t)
	}
	return strings.Join(parts, ", ")
}

func slotQName(t Type, name string) string {
	return fmt.Sprintf("%s.%s", t.QName(), name)
}
