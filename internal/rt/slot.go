package rt

// Slot is a named member of a type: a *Field or a *Method.
type Slot interface {
	// Parent returns the type that declares the slot.
	Parent() Type
	Name() string
	// QName returns "module::Type.name".
	QName() string
	Flags() Flags
	Facets() *Facets
	Line() int
	// Signature renders the slot's type signature.
	Signature() string
	String() string

	base() *slotBase
}

type slotBase struct {
	parent Type
	name   string
	flags  Flags
	facets *Facets
	line   int
}

func (s *slotBase) base() *slotBase  { return s }
func (s *slotBase) Parent() Type     { return s.parent }
func (s *slotBase) Name() string     { return s.name }
func (s *slotBase) QName() string    { return slotQName(s.parent, s.name) }
func (s *slotBase) Flags() Flags     { return s.flags }
func (s *slotBase) Line() int        { return s.line }
func (s *slotBase) IsStatic() bool   { return s.flags&FlagStatic != 0 }
func (s *slotBase) IsAbstract() bool { return s.flags&FlagAbstract != 0 }
func (s *slotBase) IsPublic() bool   { return s.flags&FlagPublic != 0 }
func (s *slotBase) IsCtor() bool     { return s.flags&FlagCtor != 0 }
func (s *slotBase) IsConst() bool    { return s.flags&FlagConst != 0 }

func (s *slotBase) Facets() *Facets {
	if s.facets == nil {
		return emptyFacets
	}
	return s.facets
}

func isAccessor(s Slot) bool {
	return s.Flags()&(FlagGetter|FlagSetter) != 0
}
