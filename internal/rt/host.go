package rt

// HostKind classifies host classes for argument coercion.
type HostKind uint8

const (
	HostOther HostKind = iota
	HostBool
	HostInt
	HostInt8
	HostInt16
	HostInt32
	HostInt64
	HostUint
	HostUint8
	HostUint16
	HostUint32
	HostUint64
	HostFloat32
	HostFloat64
	HostString
	HostSlice
	HostMap
	HostStruct
	HostInterface
	HostFunc
)

// IsInteger reports whether k is a signed or unsigned integer kind.
func (k HostKind) IsInteger() bool { return k >= HostInt && k <= HostUint64 }

// IsFloat reports whether k is a floating point kind.
func (k HostKind) IsFloat() bool { return k == HostFloat32 || k == HostFloat64 }

// HostBridge resolves classes of the host environment.
type HostBridge interface {
	// FindClass resolves a host class by its host name, e.g.
	// "example.com/geo.Point".
	FindClass(name string) (HostClass, error)
	// ClassOf returns the class of a host value.
	ClassOf(v any) (HostClass, bool)
}

// HostClass is a reflected host class.
type HostClass interface {
	// Name returns the host name, "pkgpath.Name" or a builtin name.
	Name() string
	// Package and Simple split Name.
	Package() string
	Simple() string
	Kind() HostKind
	Exported() bool
	// Super returns the embedded base class, or nil.
	Super() HostClass
	// Interfaces returns the registered interfaces the class implements.
	Interfaces() []HostClass
	// Elem returns the element class of slices, the value class of maps.
	Elem() HostClass
	// Key returns the key class of maps.
	Key() HostClass
	Fields() []HostField
	Methods() []HostMethod
	// IsInstance reports whether v can be passed where this class is
	// expected without conversion.
	IsInstance(v any) bool
	// AssignableTo reports whether values of this class can be used where
	// other is expected.
	AssignableTo(other HostClass) bool
	// New creates a zero instance.
	New() (any, error)
	// MakeSlice builds a slice of this class's element type.
	MakeSlice(elems []any) (any, error)
}

// HostField is a field of a host class.
type HostField interface {
	Name() string
	Type() HostClass
	Exported() bool
	Get(self any) (any, error)
	Set(self, val any) error
}

// HostMethod is one host overload of a method.
type HostMethod interface {
	Name() string
	Params() []HostClass
	// Result returns nil for methods without a result.
	Result() HostClass
	Exported() bool
	Static() bool
	Invoke(self any, args []any) (any, error)
}
