package main

import (
	"github.com/spf13/cobra"

	"reflex/internal/rt"
)

var typesCmd = &cobra.Command{
	Use:   "types <module>",
	Short: "List the types declared by a module",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		m, err := s.reg.Find(args[0])
		if err != nil {
			return err
		}
		t := newTable("TYPE", "BASE", "MIXINS", "FLAGS").color(0, nameColor).color(3, dimColor)
		for _, typ := range m.Types() {
			t.add(typ.QName(), typeName(typ.Base()), typeList(typ.Mixins()), typ.Flags().String())
		}
		return t.write(cmd.OutOrStdout())
	},
}

func typeName(t rt.Type) string {
	if t == nil {
		return "-"
	}
	return t.Signature()
}

func typeList(ts []rt.Type) string {
	if len(ts) == 0 {
		return "-"
	}
	out := ""
	for i, t := range ts {
		if i > 0 {
			out += ", "
		}
		out += t.Signature()
	}
	return out
}
