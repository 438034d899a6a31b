package rt

import "fmt"

// TypeOf returns the type of a runtime value.
func (r *Registry) TypeOf(v any) (Type, error) {
	switch x := v.(type) {
	case nil:
		return nil, errorf(CodeUnsupportedOperation, "", "null has no type")
	case Typed:
		if t := x.Typeof(); t != nil {
			return t, nil
		}
	case Type:
		return r.sysType("Type")
	case *Field:
		return r.sysType("Field")
	case *Method:
		return r.sysType("Method")
	case bool:
		return r.sysType("Bool")
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return r.sysType("Int")
	case float32, float64:
		return r.sysType("Float")
	case string:
		return r.sysType("Str")
	case []any:
		return r.genericType(r.ListOf(r.root().ToNullable()))
	case map[any]any:
		return r.genericType(r.MapOf(r.root(), r.root().ToNullable()))
	case error:
		return r.sysType("Err")
	}
	if r.bridge != nil {
		if hc, ok := r.bridge.ClassOf(v); ok {
			return r.ForeignOf(hc), nil
		}
	}
	return nil, errorf(CodeUnknownType, fmt.Sprintf("%T", v), "no type for value")
}

// Common returns the most specific type every non-null value is. Null values
// are skipped; with no values the result is sys::Obj.
func (r *Registry) Common(vals []any) (Type, error) {
	var best Type
	for _, v := range vals {
		if v == nil {
			continue
		}
		t, err := r.TypeOf(v)
		if err != nil {
			return nil, err
		}
		t = t.ToNonNullable()
		if best == nil {
			best = t
			continue
		}
		for !t.Is(best) {
			best = best.Base()
			if best == nil {
				return r.Root()
			}
		}
	}
	if best == nil {
		return r.Root()
	}
	return best, nil
}

// Root returns sys::Obj.
func (r *Registry) Root() (Type, error) { return r.sysType("Obj") }

func (r *Registry) sysType(name string) (Type, error) {
	t, err := r.sysClass(name)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *Registry) genericType(g *GenericType, err error) (Type, error) {
	if err != nil {
		return nil, err
	}
	return g, nil
}
