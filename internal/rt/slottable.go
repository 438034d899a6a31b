package rt

// slotTable is the merged member list of a type. It is built once and never
// modified afterwards.
type slotTable struct {
	slots   []Slot
	fields  []*Field
	methods []*Method
	byName  map[string]Slot
}

var emptyTable = &slotTable{byName: map[string]Slot{}}

func (st *slotTable) lookup(name string) (Slot, bool) {
	s, ok := st.byName[name]
	return s, ok
}

// merger applies the slot merge rules for one type.
type merger struct {
	owner  Type
	slots  []Slot
	byName map[string]int
}

func newMerger(owner Type) *merger {
	return &merger{owner: owner, byName: make(map[string]int)}
}

// addAll merges every slot of an inherited table.
func (m *merger) addAll(slots []Slot) {
	for _, s := range slots {
		m.add(s)
	}
}

// add merges one incoming slot.
func (m *merger) add(s Slot) {
	own := s.Parent() == m.owner
	// Constructors are never inherited.
	if s.Flags()&FlagCtor != 0 && !own {
		return
	}
	idx, dup := m.byName[s.Name()]
	if !dup {
		m.byName[s.Name()] = len(m.slots)
		m.slots = append(m.slots, s)
		return
	}
	existing := m.slots[idx]

	// Root-owned duplicates arrive through mixins and are already covered
	// by whatever is in the table.
	if IsRoot(s.Parent()) {
		return
	}
	// An abstract slot never hides an inherited concrete one.
	if existing.Parent() != m.owner && s.Flags()&FlagAbstract != 0 && existing.Flags()&FlagAbstract == 0 {
		return
	}
	if isAccessor(s) {
		if f, ok := existing.(*Field); ok {
			m.slots[idx] = m.link(f, s.(*Method))
			return
		}
	}
	m.slots[idx] = s
}

// link folds an accessor into its field. A field declared by another type
// is cloned so that type's table stays untouched.
func (m *merger) link(f *Field, acc *Method) *Field {
	if f.Parent() != m.owner {
		f = f.clone()
	}
	if acc.Flags()&FlagGetter != 0 {
		f.getter = acc
	} else {
		f.setter = acc
	}
	return f
}

func (m *merger) table() *slotTable {
	st := &slotTable{
		slots:  m.slots,
		byName: make(map[string]Slot, len(m.slots)),
	}
	for _, s := range m.slots {
		st.byName[s.Name()] = s
		switch x := s.(type) {
		case *Field:
			st.fields = append(st.fields, x)
		case *Method:
			st.methods = append(st.methods, x)
		}
	}
	return st
}
