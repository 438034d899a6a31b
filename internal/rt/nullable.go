package rt

// NullableType marks a type as optional. It is a thin wrapper: structural
// queries delegate to the root type.
type NullableType struct {
	root Type
}

func (n *NullableType) Root() Type          { return n.root }
func (n *NullableType) ModuleName() string  { return n.root.ModuleName() }
func (n *NullableType) Name() string        { return n.root.Name() }
func (n *NullableType) QName() string       { return n.root.QName() }
func (n *NullableType) Signature() string   { return n.root.Signature() + "?" }
func (n *NullableType) Flags() Flags        { return n.root.Flags() }
func (n *NullableType) IsNullable() bool    { return true }
func (n *NullableType) ToNullable() Type    { return n }
func (n *NullableType) ToNonNullable() Type { return n.root }
func (n *NullableType) Base() Type          { return n.root.Base() }
func (n *NullableType) Mixins() []Type      { return n.root.Mixins() }
func (n *NullableType) Inheritance() []Type { return n.root.Inheritance() }
func (n *NullableType) Is(other Type) bool  { return n.root.Is(other) }

func (n *NullableType) Params() map[string]Type           { return n.root.Params() }
func (n *NullableType) Slots() ([]Slot, error)            { return n.root.Slots() }
func (n *NullableType) Fields() ([]*Field, error)         { return n.root.Fields() }
func (n *NullableType) Methods() ([]*Method, error)       { return n.root.Methods() }
func (n *NullableType) Slot(name string) (Slot, error)    { return n.root.Slot(name) }
func (n *NullableType) FindSlot(name string) Slot         { return n.root.FindSlot(name) }
func (n *NullableType) Field(name string) (*Field, error) { return n.root.Field(name) }
func (n *NullableType) Method(name string) (*Method, error) {
	return n.root.Method(name)
}
func (n *NullableType) Facets() *Facets               { return n.root.Facets() }
func (n *NullableType) Finish() error                 { return n.root.Finish() }
func (n *NullableType) Make(args ...any) (any, error) { return n.root.Make(args...) }
func (n *NullableType) Registry() *Registry           { return n.root.Registry() }
func (n *NullableType) String() string                { return n.Signature() }
