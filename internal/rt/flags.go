package rt

import (
	"fmt"
	"strings"
)

// Flags is the modifier bitset shared by types and slots. The bit values are
// part of the compiled metadata format and must not change.
type Flags uint32

const (
	FlagAbstract  Flags = 0x00000001
	FlagConst     Flags = 0x00000002
	FlagCtor      Flags = 0x00000004
	FlagEnum      Flags = 0x00000008
	FlagFinal     Flags = 0x00000010
	FlagGetter    Flags = 0x00000020
	FlagInternal  Flags = 0x00000040
	FlagMixin     Flags = 0x00000080
	FlagNative    Flags = 0x00000100
	FlagOverride  Flags = 0x00000200
	FlagPrivate   Flags = 0x00000400
	FlagProtected Flags = 0x00000800
	FlagPublic    Flags = 0x00001000
	FlagSetter    Flags = 0x00002000
	FlagStatic    Flags = 0x00004000
	FlagStorage   Flags = 0x00008000
	FlagSynthetic Flags = 0x00010000
	FlagVirtual   Flags = 0x00020000
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{FlagPublic, "public"},
	{FlagProtected, "protected"},
	{FlagInternal, "internal"},
	{FlagPrivate, "private"},
	{FlagAbstract, "abstract"},
	{FlagVirtual, "virtual"},
	{FlagOverride, "override"},
	{FlagStatic, "static"},
	{FlagConst, "const"},
	{FlagFinal, "final"},
	{FlagMixin, "mixin"},
	{FlagEnum, "enum"},
	{FlagCtor, "ctor"},
	{FlagGetter, "getter"},
	{FlagSetter, "setter"},
	{FlagNative, "native"},
	{FlagStorage, "storage"},
	{FlagSynthetic, "synthetic"},
}

// Has reports whether all bits of x are set.
func (f Flags) Has(x Flags) bool { return f&x == x }

// String renders the set flags as space separated modifier names.
func (f Flags) String() string {
	var parts []string
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, " ")
}

// ParseFlags converts modifier names into a bitset.
func ParseFlags(names []string) (Flags, error) {
	var f Flags
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		found := false
		for _, fn := range flagNames {
			if fn.name == n {
				f |= fn.flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown flag %q", n)
		}
	}
	return f, nil
}
