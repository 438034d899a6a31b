package rt

// Invoker calls a bound method. self is nil for static methods and
// constructors; args always has one entry per declared parameter.
type Invoker func(self any, args []any) (any, error)

// Accessor reads and writes a bound field.
type Accessor struct {
	Get func(self any) (any, error)
	Set func(self, val any) error
}

// Executable is the emitted form of a class type: the native members its
// slots are bound to.
type Executable interface {
	Method(name string) (Invoker, bool)
	Field(name string) (Accessor, bool)
}

// Emitter turns a reflected class type into executables. aux is only
// meaningful for mixins and carries their static members.
type Emitter interface {
	Emit(t *ClassType) (primary, aux Executable, err error)
}

type emptyExecutable struct{}

func (emptyExecutable) Method(string) (Invoker, bool) { return nil, false }
func (emptyExecutable) Field(string) (Accessor, bool) { return Accessor{}, false }

// EmptyExecutable binds nothing; every slot falls back to its base type or
// to an unsupported handle.
var EmptyExecutable Executable = emptyExecutable{}

type nopEmitter struct{}

func (nopEmitter) Emit(*ClassType) (Executable, Executable, error) {
	return EmptyExecutable, EmptyExecutable, nil
}
