package emit

import (
	"hash/fnv"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"reflex/internal/rt"
)

func unary[T any](conv func(any) (T, error), f func(T) (any, error)) rt.Invoker {
	return func(self any, _ []any) (any, error) {
		x, err := conv(self)
		if err != nil {
			return nil, err
		}
		return f(x)
	}
}

func binary[T, U any](conv func(any) (T, error), argConv func(any) (U, error), f func(T, U) (any, error)) rt.Invoker {
	return func(self any, args []any) (any, error) {
		x, err := conv(self)
		if err != nil {
			return nil, err
		}
		y, err := argConv(args[0])
		if err != nil {
			return nil, err
		}
		return f(x, y)
	}
}

func constant(v any) rt.Accessor {
	return rt.Accessor{Get: func(any) (any, error) { return v, nil }}
}

// sysNatives returns the built-in members of a sys type, or nil.
func sysNatives(ct *rt.ClassType) *Members {
	reg := ct.Registry()
	switch ct.Name() {
	case "Obj":
		return objNatives(reg)
	case "Bool":
		return boolNatives()
	case "Int":
		return intNatives()
	case "Float":
		return floatNatives()
	case "Str":
		return strNatives()
	case "Type":
		return typeNatives()
	case "Slot":
		return slotNatives()
	case "List":
		return listNatives(reg)
	case "Map":
		return mapNatives(reg)
	case "Func":
		return funcNatives()
	case "Err":
		return errNatives()
	}
	return nil
}

func objNatives(reg *rt.Registry) *Members {
	m := newMembers()
	m.methods["make"] = func(any, []any) (any, error) {
		root, err := reg.Root()
		if err != nil {
			return nil, err
		}
		return NewInstance(root), nil
	}
	m.methods["equals"] = binary(toAny, toAny, func(a, b any) (any, error) { return equal(a, b), nil })
	m.methods["hash"] = unary(toAny, func(v any) (any, error) {
		h := fnv.New64a()
		h.Write([]byte(display(v)))
		return int64(h.Sum64() >> 1), nil
	})
	m.methods["toStr"] = unary(toAny, func(v any) (any, error) { return display(v), nil })
	m.methods["isImmutable"] = unary(toAny, func(v any) (any, error) { return isImmutable(v), nil })
	m.methods["typeof"] = unary(toAny, func(v any) (any, error) { return reg.TypeOf(v) })
	return m
}

func boolNatives() *Members {
	m := newMembers()
	m.fields["defVal"] = constant(false)
	m.methods["not"] = unary(toBool, func(b bool) (any, error) { return !b, nil })
	m.methods["and"] = binary(toBool, toBool, func(a, b bool) (any, error) { return a && b, nil })
	m.methods["or"] = binary(toBool, toBool, func(a, b bool) (any, error) { return a || b, nil })
	m.methods["toStr"] = unary(toBool, func(b bool) (any, error) { return strconv.FormatBool(b), nil })
	return m
}

func intNatives() *Members {
	m := newMembers()
	m.fields["defVal"] = constant(int64(0))
	m.fields["maxVal"] = constant(int64(math.MaxInt64))
	m.fields["minVal"] = constant(int64(math.MinInt64))
	m.methods["plus"] = binary(toInt, toInt, func(a, b int64) (any, error) { return a + b, nil })
	m.methods["minus"] = binary(toInt, toInt, func(a, b int64) (any, error) { return a - b, nil })
	m.methods["mult"] = binary(toInt, toInt, func(a, b int64) (any, error) { return a * b, nil })
	m.methods["negate"] = unary(toInt, func(a int64) (any, error) { return -a, nil })
	m.methods["toInt"] = unary(toInt, func(a int64) (any, error) { return a, nil })
	m.methods["toFloat"] = unary(toInt, func(a int64) (any, error) { return float64(a), nil })
	m.methods["toStr"] = unary(toInt, func(a int64) (any, error) { return strconv.FormatInt(a, 10), nil })
	return m
}

func floatNatives() *Members {
	m := newMembers()
	m.fields["defVal"] = constant(0.0)
	m.methods["plus"] = binary(toFloat, toFloat, func(a, b float64) (any, error) { return a + b, nil })
	m.methods["minus"] = binary(toFloat, toFloat, func(a, b float64) (any, error) { return a - b, nil })
	m.methods["toInt"] = unary(toFloat, func(a float64) (any, error) { return int64(a), nil })
	m.methods["toFloat"] = unary(toFloat, func(a float64) (any, error) { return a, nil })
	m.methods["toStr"] = unary(toFloat, func(a float64) (any, error) { return display(a), nil })
	return m
}

func strNatives() *Members {
	upper := cases.Upper(language.Und)
	lower := cases.Lower(language.Und)
	m := newMembers()
	m.fields["defVal"] = constant("")
	m.methods["size"] = unary(toStr, func(s string) (any, error) { return int64(utf8.RuneCountInString(s)), nil })
	m.methods["isEmpty"] = unary(toStr, func(s string) (any, error) { return s == "", nil })
	m.methods["get"] = binary(toStr, toInt, func(s string, i int64) (any, error) {
		runes := []rune(s)
		if i < 0 {
			i += int64(len(runes))
		}
		if i < 0 || i >= int64(len(runes)) {
			return nil, &Err{Msg: "index out of range: " + strconv.FormatInt(i, 10)}
		}
		return int64(runes[i]), nil
	})
	m.methods["upper"] = unary(toStr, func(s string) (any, error) { return upper.String(s), nil })
	m.methods["lower"] = unary(toStr, func(s string) (any, error) { return lower.String(s), nil })
	m.methods["plus"] = binary(toStr, toAny, func(s string, x any) (any, error) { return s + display(x), nil })
	m.methods["contains"] = binary(toStr, toStr, func(s, sub string) (any, error) { return strings.Contains(s, sub), nil })
	m.methods["toStr"] = unary(toStr, func(s string) (any, error) { return s, nil })
	return m
}

func typeNatives() *Members {
	m := newMembers()
	m.methods["name"] = unary(toType, func(t rt.Type) (any, error) { return t.Name(), nil })
	m.methods["qname"] = unary(toType, func(t rt.Type) (any, error) { return t.QName(), nil })
	m.methods["signature"] = unary(toType, func(t rt.Type) (any, error) { return t.Signature(), nil })
	m.methods["isNullable"] = unary(toType, func(t rt.Type) (any, error) { return t.IsNullable(), nil })
	m.methods["toStr"] = unary(toType, func(t rt.Type) (any, error) { return t.Signature(), nil })
	return m
}

func slotNatives() *Members {
	m := newMembers()
	m.methods["name"] = unary(toSlot, func(s rt.Slot) (any, error) { return s.Name(), nil })
	m.methods["qname"] = unary(toSlot, func(s rt.Slot) (any, error) { return s.QName(), nil })
	return m
}

func errNatives() *Members {
	m := newMembers()
	m.fields["msg"] = rt.Accessor{Get: func(self any) (any, error) {
		e, err := toErr(self)
		if err != nil {
			return nil, err
		}
		return e.Error(), nil
	}}
	m.methods["make"] = func(_ any, args []any) (any, error) {
		msg, err := toStr(args[0])
		if err != nil {
			return nil, err
		}
		return &Err{Msg: msg}, nil
	}
	m.methods["toStr"] = unary(toErr, func(e error) (any, error) { return display(e), nil })
	return m
}
