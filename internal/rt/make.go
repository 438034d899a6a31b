package rt

// makeInstance instantiates t through its public "make" constructor when
// the argument count fits, else through a public static "defVal".
func makeInstance(t Type, args []any) (any, error) {
	if err := t.Finish(); err != nil {
		return nil, err
	}
	if m, ok := t.FindSlot("make").(*Method); ok && m.flags&FlagPublic != 0 && m.flags&(FlagCtor|FlagStatic) != 0 {
		lo, hi := m.Arity()
		if len(args) >= lo && len(args) <= hi {
			return m.Call(nil, args...)
		}
	}
	if len(args) == 0 {
		switch dv := t.FindSlot("defVal").(type) {
		case *Field:
			if dv.flags.Has(FlagPublic | FlagStatic) {
				return dv.Get(nil)
			}
		case *Method:
			if lo, _ := dv.Arity(); lo == 0 && dv.flags.Has(FlagPublic|FlagStatic) {
				return dv.Call(nil)
			}
		}
	}
	return nil, errorf(CodeUnsupportedOperation, t.QName(), "no public constructor accepting %d arguments", len(args))
}
