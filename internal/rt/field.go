package rt

import "fmt"

// Field is a storage slot. Getter and setter methods declared together with
// the field are folded into it and never appear as separate slots.
type Field struct {
	slotBase
	typ    Type
	getter *Method
	setter *Method

	// overload is a same-named host method of a foreign type.
	overload *Method
	host     HostField
	bind     *fieldBinding
}

type fieldBinding struct {
	accessor Accessor
}

func newField(parent Type, name string, flags Flags, typ Type, facets *Facets, line int) *Field {
	return &Field{
		slotBase: slotBase{parent: parent, name: name, flags: flags, facets: facets, line: line},
		typ:      typ,
		bind:     &fieldBinding{},
	}
}

// Type returns the declared value type.
func (f *Field) Type() Type { return f.typ }

// Getter returns the folded getter method, or nil.
func (f *Field) Getter() *Method { return f.getter }

// Setter returns the folded setter method, or nil.
func (f *Field) Setter() *Method { return f.setter }

// Overload returns the host method sharing the field's name, or nil.
func (f *Field) Overload() *Method { return f.overload }

func (f *Field) Signature() string { return typeString(f.typ) }

func (f *Field) String() string { return f.QName() }

// clone returns a shallow copy sharing the binding, used when an accessor is
// linked onto a field owned by another type.
func (f *Field) clone() *Field {
	cp := *f
	return &cp
}

// Get reads the field. A folded getter is used when present.
func (f *Field) Get(self any) (any, error) {
	if f.getter != nil {
		return f.getter.Call(self)
	}
	if err := f.parent.Finish(); err != nil {
		return nil, err
	}
	if err := f.checkTarget(self); err != nil {
		return nil, err
	}
	if f.host != nil {
		v, err := f.host.Get(self)
		if err != nil {
			return nil, err
		}
		return coerceFromHost(v), nil
	}
	if f.bind.accessor.Get == nil {
		return nil, errorf(CodeUnsupportedOperation, f.QName(), "field has no getter")
	}
	return f.bind.accessor.Get(self)
}

// Set writes the field. A folded setter is used when present.
func (f *Field) Set(self, val any) error {
	if f.flags&FlagConst != 0 {
		return errorf(CodeUnsupportedOperation, f.QName(), "cannot set const field")
	}
	if f.setter != nil {
		_, err := f.setter.Call(self, val)
		return err
	}
	if err := f.parent.Finish(); err != nil {
		return err
	}
	if err := f.checkTarget(self); err != nil {
		return err
	}
	if f.host != nil {
		hv, err := coerceToHost(f.host.Type(), val)
		if err != nil {
			return wrapErr(CodeUnsupportedOperation, f.QName(), err)
		}
		return f.host.Set(self, hv)
	}
	if f.bind.accessor.Set == nil {
		return errorf(CodeUnsupportedOperation, f.QName(), "field is read-only")
	}
	return f.bind.accessor.Set(self, val)
}

func (f *Field) checkTarget(self any) error {
	if self == nil && f.flags&FlagStatic == 0 {
		return errorf(CodeUnsupportedOperation, f.QName(), "instance field accessed without target")
	}
	return nil
}

func (f *Field) GoString() string { return fmt.Sprintf("Field(%s %s)", f.Signature(), f.QName()) }
