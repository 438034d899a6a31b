package trace

import "time"

// Kind represents the type of trace event.
type Kind uint8

const (
	// KindSpanBegin marks the start of a logical operation.
	KindSpanBegin Kind = iota + 1
	// KindSpanEnd marks the end of a logical operation.
	KindSpanEnd
	// KindPoint represents an instant event.
	KindPoint
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindSpanBegin:
		return "begin"
	case KindSpanEnd:
		return "end"
	case KindPoint:
		return "point"
	default:
		return "unknown"
	}
}

// Scope indicates the granularity of the event.
// Lower values are coarser.
type Scope uint8

const (
	ScopeRegistry Scope = iota + 1 // registry-wide operations
	ScopeModule                    // loading and reloading one module
	ScopeType                      // reflect/emit/finish of one type
	ScopeSlot                      // binding of individual slots
)

// String returns the string representation of Scope.
func (s Scope) String() string {
	switch s {
	case ScopeRegistry:
		return "registry"
	case ScopeModule:
		return "module"
	case ScopeType:
		return "type"
	case ScopeSlot:
		return "slot"
	default:
		return "unknown"
	}
}

// Event is a single trace record.
type Event struct {
	Time     time.Time
	Seq      uint64 // global, monotonic
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64 // 0 for roots
	Name     string // e.g. "load acme", "finish acme::Point"
	Detail   string
	Extra    map[string]string
}
