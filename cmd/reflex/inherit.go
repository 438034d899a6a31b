package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var inheritCmd = &cobra.Command{
	Use:   "inherit <type>",
	Short: "Show the inheritance of a type",
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
		out := cmd.OutOrStdout()

		depth := 0
		for b := typ; b != nil; b = b.Base() {
			fmt.Fprintf(out, "%s%s", strings.Repeat("  ", depth), nameColor.Sprint(b.Signature()))
			if mixins := b.Mixins(); len(mixins) > 0 {
				fmt.Fprintf(out, " %s %s", dimColor.Sprint("mixes"), typeList(mixins))
			}
			fmt.Fprintln(out)
			depth++
		}
		fmt.Fprintf(out, "%s ", headerColor.Sprint("order:"))
		fmt.Fprintln(out, typeList(typ.Inheritance()))
		return nil
	},
}
