package emit

import (
	"fmt"
	"reflect"
	"strconv"

	"fortio.org/safecast"

	"reflex/internal/rt"
)

func toInt(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint:
		return safecast.Conv[int64](x)
	case uint64:
		return safecast.Conv[int64](x)
	}
	return 0, fmt.Errorf("expected Int, got %s", kindName(v))
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	}
	if n, err := toInt(v); err == nil {
		return float64(n), nil
	}
	return 0, fmt.Errorf("expected Float, got %s", kindName(v))
}

func toBool(v any) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return false, fmt.Errorf("expected Bool, got %s", kindName(v))
}

func toStr(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", fmt.Errorf("expected Str, got %s", kindName(v))
}

func toType(v any) (rt.Type, error) {
	if t, ok := v.(rt.Type); ok {
		return t, nil
	}
	return nil, fmt.Errorf("expected Type, got %s", kindName(v))
}

func toSlot(v any) (rt.Slot, error) {
	if s, ok := v.(rt.Slot); ok {
		return s, nil
	}
	return nil, fmt.Errorf("expected Slot, got %s", kindName(v))
}

func toAny(v any) (any, error) { return v, nil }

// itemsOf reads the elements of a *List or a []any.
func itemsOf(v any) ([]any, error) {
	switch x := v.(type) {
	case *List:
		return x.Items(), nil
	case []any:
		return x, nil
	}
	return nil, fmt.Errorf("expected List, got %s", kindName(v))
}

func toMap(v any) (*Map, error) {
	if m, ok := v.(*Map); ok {
		return m, nil
	}
	return nil, fmt.Errorf("expected Map, got %s", kindName(v))
}

func toFunc(v any) (*Func, error) {
	if f, ok := v.(*Func); ok {
		return f, nil
	}
	return nil, fmt.Errorf("expected Func, got %s", kindName(v))
}

func toErr(v any) (error, error) {
	if e, ok := v.(error); ok {
		return e, nil
	}
	return nil, fmt.Errorf("expected Err, got %s", kindName(v))
}

func kindName(v any) string {
	if v == nil {
		return "null"
	}
	if t, ok := v.(rt.Typed); ok && t.Typeof() != nil {
		return t.Typeof().Signature()
	}
	return fmt.Sprintf("%T", v)
}

// display renders a value the way toStr does.
func display(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case []any:
		return formatList(x)
	case *Err:
		return "sys::Err: " + x.Msg
	case fmt.Stringer:
		return x.String()
	case error:
		return x.Error()
	}
	return fmt.Sprint(v)
}

// equal compares runtime values; integers of different widths are equal
// when their values are.
func equal(a, b any) bool {
	if ai, err := toInt(a); err == nil {
		bi, err := toInt(b)
		return err == nil && ai == bi
	}
	if af, ok := a.(float64); ok {
		bf, ok := b.(float64)
		return ok && af == bf
	}
	if hashable(a) && hashable(b) {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

func isImmutable(v any) bool {
	switch v.(type) {
	case nil, bool, string, float32, float64, rt.Type, rt.Slot, *Func:
		return true
	}
	_, err := toInt(v)
	return err == nil
}
