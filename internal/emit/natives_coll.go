package emit

import (
	"strconv"
	"strings"

	"reflex/internal/rt"
)

// callFunc calls a function value with the given arguments.
func callFunc(f any, args ...any) (any, error) {
	fn, err := toFunc(f)
	if err != nil {
		return nil, err
	}
	return fn.Call(args...)
}

func indexOf(items []any, i int64) (any, error) {
	n := int64(len(items))
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return nil, &Err{Msg: "index out of range: " + strconv.FormatInt(i, 10)}
	}
	return items[i], nil
}

// listLike returns a list of the same kind as self: a *List of the same
// type, or a plain slice.
func listLike(self any, items []any) any {
	if l, ok := self.(*List); ok {
		return NewList(l.typ, items...)
	}
	return items
}

func listNatives(reg *rt.Registry) *Members {
	objList := func(items []any) (any, error) {
		root, err := reg.Root()
		if err != nil {
			return nil, err
		}
		lt, err := reg.ListOf(root.ToNullable())
		if err != nil {
			return nil, err
		}
		return NewList(lt, items...), nil
	}

	m := newMembers()
	m.fields["size"] = rt.Accessor{
		Get: func(self any) (any, error) {
			items, err := itemsOf(self)
			if err != nil {
				return nil, err
			}
			return int64(len(items)), nil
		},
		Set: func(self, val any) error {
			l, ok := self.(*List)
			if !ok {
				return &Err{Msg: "list is read-only"}
			}
			n, err := toInt(val)
			if err != nil {
				return err
			}
			if n < 0 {
				return &Err{Msg: "negative size"}
			}
			l.Resize(int(n))
			return nil
		},
	}
	m.methods["make"] = func(_ any, args []any) (any, error) {
		capacity, err := toInt(args[0])
		if err != nil {
			return nil, err
		}
		l, err := objList(nil)
		if err != nil {
			return nil, err
		}
		lst := l.(*List)
		lst.items = make([]any, 0, max(capacity, 0))
		return lst, nil
	}
	m.methods["isEmpty"] = unary(itemsOf, func(items []any) (any, error) { return len(items) == 0, nil })
	m.methods["get"] = binary(itemsOf, toInt, indexOf)
	m.methods["first"] = unary(itemsOf, func(items []any) (any, error) {
		if len(items) == 0 {
			return nil, nil
		}
		return items[0], nil
	})
	m.methods["add"] = func(self any, args []any) (any, error) {
		switch l := self.(type) {
		case *List:
			l.Add(args[0])
			return l, nil
		case []any:
			return append(l, args[0]), nil
		}
		_, err := itemsOf(self)
		return nil, err
	}
	m.methods["contains"] = binary(itemsOf, toAny, func(items []any, x any) (any, error) {
		for _, it := range items {
			if equal(it, x) {
				return true, nil
			}
		}
		return false, nil
	})
	m.methods["each"] = binary(itemsOf, toAny, func(items []any, f any) (any, error) {
		for i, it := range items {
			if _, err := callFunc(f, it, int64(i)); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	m.methods["map"] = binary(itemsOf, toAny, func(items []any, f any) (any, error) {
		out := make([]any, len(items))
		for i, it := range items {
			v, err := callFunc(f, it, int64(i))
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return objList(out)
	})
	m.methods["findAll"] = func(self any, args []any) (any, error) {
		items, err := itemsOf(self)
		if err != nil {
			return nil, err
		}
		var out []any
		for i, it := range items {
			v, err := callFunc(args[0], it, int64(i))
			if err != nil {
				return nil, err
			}
			if keep, _ := v.(bool); keep {
				out = append(out, it)
			}
		}
		return listLike(self, out), nil
	}
	m.methods["join"] = binary(itemsOf, toStr, func(items []any, sep string) (any, error) {
		parts := make([]string, len(items))
		for i, it := range items {
			parts[i] = display(it)
		}
		return strings.Join(parts, sep), nil
	})
	m.methods["toStr"] = unary(itemsOf, func(items []any) (any, error) { return formatList(items), nil })
	return m
}

func mapNatives(reg *rt.Registry) *Members {
	m := newMembers()
	m.fields["size"] = rt.Accessor{Get: func(self any) (any, error) {
		mp, err := toMap(self)
		if err != nil {
			return nil, err
		}
		return int64(mp.Len()), nil
	}}
	m.methods["make"] = func(any, []any) (any, error) {
		root, err := reg.Root()
		if err != nil {
			return nil, err
		}
		mt, err := reg.MapOf(root, root.ToNullable())
		if err != nil {
			return nil, err
		}
		return NewMap(mt), nil
	}
	m.methods["isEmpty"] = unary(toMap, func(mp *Map) (any, error) { return mp.Len() == 0, nil })
	m.methods["get"] = func(self any, args []any) (any, error) {
		mp, err := toMap(self)
		if err != nil {
			return nil, err
		}
		if v, ok := mp.Get(args[0]); ok {
			return v, nil
		}
		return args[1], nil
	}
	m.methods["set"] = func(self any, args []any) (any, error) {
		mp, err := toMap(self)
		if err != nil {
			return nil, err
		}
		if err := mp.Set(args[0], args[1]); err != nil {
			return nil, &Err{Msg: err.Error()}
		}
		return mp, nil
	}
	m.methods["containsKey"] = binary(toMap, toAny, func(mp *Map, k any) (any, error) {
		_, ok := mp.Get(k)
		return ok, nil
	})
	m.methods["keys"] = unary(toMap, func(mp *Map) (any, error) {
		return typedList(reg, mp.typ, "K", mp.Keys())
	})
	m.methods["vals"] = unary(toMap, func(mp *Map) (any, error) {
		return typedList(reg, mp.typ, "V", mp.Vals())
	})
	m.methods["each"] = binary(toMap, toAny, func(mp *Map, f any) (any, error) {
		keys, vals := mp.Keys(), mp.Vals()
		for i := range keys {
			if _, err := callFunc(f, vals[i], keys[i]); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	m.methods["toStr"] = unary(toMap, func(mp *Map) (any, error) { return mp.String(), nil })
	return m
}

// typedList builds a list whose element type is the binding param of the
// generic type t.
func typedList(reg *rt.Registry, t rt.Type, param string, items []any) (any, error) {
	var elem rt.Type
	if t != nil {
		elem = t.Params()[param]
	}
	if elem == nil {
		root, err := reg.Root()
		if err != nil {
			return nil, err
		}
		elem = root.ToNullable()
	}
	lt, err := reg.ListOf(elem)
	if err != nil {
		return nil, err
	}
	return NewList(lt, items...), nil
}

func funcNatives() *Members {
	m := newMembers()
	m.methods["arity"] = unary(toFunc, func(f *Func) (any, error) { return int64(f.Arity()), nil })
	m.methods["call"] = func(self any, args []any) (any, error) {
		f, err := toFunc(self)
		if err != nil {
			return nil, err
		}
		return f.Call(args...)
	}
	m.methods["callList"] = func(self any, args []any) (any, error) {
		f, err := toFunc(self)
		if err != nil {
			return nil, err
		}
		var list []any
		if args[0] != nil {
			if list, err = itemsOf(args[0]); err != nil {
				return nil, err
			}
		}
		return f.Call(list...)
	}
	return m
}
