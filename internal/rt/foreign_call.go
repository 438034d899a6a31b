package rt

import (
	"fmt"
	"reflect"

	"fortio.org/safecast"
)

// callHost resolves the host overload for args and invokes it.
func (m *Method) callHost(self any, args []any) (any, error) {
	hm, hostArgs, err := m.resolveHost(args)
	if err != nil {
		return nil, err
	}
	res, err := hm.Invoke(self, hostArgs)
	if err != nil {
		return nil, err
	}
	return coerceFromHost(res), nil
}

// resolveHost picks the overload to call. A single candidate is used
// without filtering and fails only if its arguments cannot be coerced.
func (m *Method) resolveHost(args []any) (HostMethod, []any, error) {
	if len(m.host) == 1 {
		hm := m.host[0]
		hostArgs, err := coerceArgs(hm, args)
		if err != nil {
			return nil, nil, wrapErr(CodeNoMatchingOverload, m.QName(), err)
		}
		return hm, hostArgs, nil
	}
	var best HostMethod
	for _, hm := range m.host {
		if !acceptsArgs(hm, args) {
			continue
		}
		switch {
		case best == nil:
			best = hm
		case isMoreSpecific(best, hm):
		case isMoreSpecific(hm, best):
			best = hm
		default:
			return nil, nil, errorf(CodeAmbiguousOverload, m.QName(), "%s and %s both accept (%s)",
				hostSignature(best), hostSignature(hm), argTypes(args))
		}
	}
	if best == nil {
		return nil, nil, errorf(CodeNoMatchingOverload, m.QName(), "no overload accepts (%s)", argTypes(args))
	}
	hostArgs, err := coerceArgs(best, args)
	if err != nil {
		return nil, nil, wrapErr(CodeNoMatchingOverload, m.QName(), err)
	}
	return best, hostArgs, nil
}

func acceptsArgs(hm HostMethod, args []any) bool {
	params := hm.Params()
	if len(params) != len(args) {
		return false
	}
	for i, p := range params {
		if !acceptsArgument(p, args[i]) {
			return false
		}
	}
	return true
}

// acceptsArgument reports whether v can be passed for p: an instance of p,
// an integer that fits p's integer kind, a float for a float kind, or a
// list whose elements are all accepted by p's element class.
func acceptsArgument(p HostClass, v any) bool {
	k := p.Kind()
	if v == nil {
		switch k {
		case HostSlice, HostMap, HostInterface, HostFunc, HostStruct, HostOther:
			return true
		}
		return false
	}
	if p.IsInstance(v) {
		return true
	}
	switch {
	case k.IsInteger():
		_, err := toHostInt(k, v)
		return err == nil
	case k.IsFloat():
		_, err := toHostFloat(k, v)
		return err == nil
	case k == HostBool:
		_, ok := v.(bool)
		return ok
	case k == HostString:
		_, ok := v.(string)
		return ok
	case k == HostSlice:
		list, ok := v.([]any)
		if !ok {
			return false
		}
		for _, e := range list {
			if !acceptsArgument(p.Elem(), e) {
				return false
			}
		}
		return true
	}
	return false
}

// isMoreSpecific reports whether every parameter of a is assignable to the
// corresponding parameter of b.
func isMoreSpecific(a, b HostMethod) bool {
	ap, bp := a.Params(), b.Params()
	if len(ap) != len(bp) {
		return false
	}
	for i := range ap {
		if !ap[i].AssignableTo(bp[i]) {
			return false
		}
	}
	return true
}

func coerceArgs(hm HostMethod, args []any) ([]any, error) {
	params := hm.Params()
	if len(params) != len(args) {
		return nil, fmt.Errorf("%s takes %d arguments, got %d", hostSignature(hm), len(params), len(args))
	}
	out := make([]any, len(args))
	for i, p := range params {
		v, err := coerceToHost(p, args[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// coerceToHost converts a runtime value into the representation p expects.
func coerceToHost(p HostClass, v any) (any, error) {
	if v == nil || p.IsInstance(v) {
		return v, nil
	}
	k := p.Kind()
	switch {
	case k.IsInteger():
		return toHostInt(k, v)
	case k.IsFloat():
		return toHostFloat(k, v)
	case k == HostSlice:
		list, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("cannot use %T as %s", v, p.Name())
		}
		elems := make([]any, len(list))
		for i, e := range list {
			ce, err := coerceToHost(p.Elem(), e)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			elems[i] = ce
		}
		return p.MakeSlice(elems)
	}
	return nil, fmt.Errorf("cannot use %T as %s", v, p.Name())
}

func box[T any](v T, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return v, nil
}

// toHostInt narrows a Go integer to the given kind, failing when the value
// does not fit.
func toHostInt(k HostKind, v any) (any, error) {
	switch x := v.(type) {
	case int:
		return narrowInt(k, int64(x))
	case int8:
		return narrowInt(k, int64(x))
	case int16:
		return narrowInt(k, int64(x))
	case int32:
		return narrowInt(k, int64(x))
	case int64:
		return narrowInt(k, x)
	case uint:
		return narrowInt(k, uint64(x))
	case uint8:
		return narrowInt(k, uint64(x))
	case uint16:
		return narrowInt(k, uint64(x))
	case uint32:
		return narrowInt(k, uint64(x))
	case uint64:
		return narrowInt(k, x)
	}
	return nil, fmt.Errorf("%T is not an integer", v)
}

func narrowInt[N int64 | uint64](k HostKind, n N) (any, error) {
	switch k {
	case HostInt:
		return box(safecast.Conv[int](n))
	case HostInt8:
		return box(safecast.Conv[int8](n))
	case HostInt16:
		return box(safecast.Conv[int16](n))
	case HostInt32:
		return box(safecast.Conv[int32](n))
	case HostInt64:
		return box(safecast.Conv[int64](n))
	case HostUint:
		return box(safecast.Conv[uint](n))
	case HostUint8:
		return box(safecast.Conv[uint8](n))
	case HostUint16:
		return box(safecast.Conv[uint16](n))
	case HostUint32:
		return box(safecast.Conv[uint32](n))
	case HostUint64:
		return box(safecast.Conv[uint64](n))
	}
	return nil, fmt.Errorf("kind %d is not an integer kind", k)
}

func toHostFloat(k HostKind, v any) (any, error) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	default:
		return nil, fmt.Errorf("%T is not a float", v)
	}
	if k == HostFloat32 {
		return float32(f), nil
	}
	return f, nil
}

// coerceFromHost normalizes host results: integers become int64, floats
// float64, and slices []any.
func coerceFromHost(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case int64, float64, bool, string, []any:
		return x
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint:
		if n, err := safecast.Conv[int64](x); err == nil {
			return n
		}
		return x
	case uint64:
		if n, err := safecast.Conv[int64](x); err == nil {
			return n
		}
		return x
	case float32:
		return float64(x)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice {
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = coerceFromHost(rv.Index(i).Interface())
		}
		return out
	}
	return v
}

func hostSignature(hm HostMethod) string {
	s := hm.Name() + "("
	for i, p := range hm.Params() {
		if i > 0 {
			s += ", "
		}
		s += p.Name()
	}
	return s + ")"
}

func argTypes(args []any) string {
	s := ""
	for i, a := range args {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%T", a)
	}
	return s
}
