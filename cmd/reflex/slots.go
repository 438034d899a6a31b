package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reflex/internal/rt"
)

var slotsShowFacets bool

func init() {
	slotsCmd.Flags().BoolVar(&slotsShowFacets, "facets", false, "print facets of the type and its slots")
}

var slotsCmd = &cobra.Command{
	Use:   "slots <type>",
	Short: "List the merged slots of a type",
	Long:  `slots lists every field and method of a type, inherited ones included, in merge order`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		typ, err := s.findType(args[0])
		if err != nil {
			return err
		}
		slots, err := typ.Slots()
		if err != nil {
			return err
		}
		t := newTable("SLOT", "KIND", "SIGNATURE", "FROM", "FLAGS").color(0, nameColor).color(4, dimColor)
		for _, slot := range slots {
			from := "-"
			if slot.Parent() != nil && slot.Parent().QName() != typ.QName() {
				from = slot.Parent().QName()
			}
			t.add(slot.Name(), slotKind(slot), slot.Signature(), from, slot.Flags().String())
		}
		if err := t.write(cmd.OutOrStdout()); err != nil {
			return err
		}
		if slotsShowFacets {
			writeFacets(cmd, typ.QName(), typ.Facets())
			for _, slot := range slots {
				writeFacets(cmd, slot.QName(), slot.Facets())
			}
		}
		return nil
	},
}

func slotKind(s rt.Slot) string {
	switch s := s.(type) {
	case *rt.Field:
		return "field"
	case *rt.Method:
		if s.IsCtor() {
			return "ctor"
		}
		if s.IsStatic() {
			return "static"
		}
		return "method"
	}
	return "?"
}

func writeFacets(cmd *cobra.Command, owner string, f *rt.Facets) {
	if f == nil || f.Len() == 0 {
		return
	}
	out := cmd.OutOrStdout()
	for _, k := range f.Keys() {
		v, _ := f.Get(k)
		fmt.Fprintf(out, "%s  @%s = %s\n", nameColor.Sprint(owner), k, strings.TrimSpace(fmt.Sprint(v)))
	}
}
