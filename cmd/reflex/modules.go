package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"reflex/internal/rt"
)

var modulesShowMeta bool

func init() {
	modulesCmd.Flags().BoolVar(&modulesShowMeta, "meta", false, "print module meta entries")
}

var modulesCmd = &cobra.Command{
	Use:   "modules [name...]",
	Short: "List modules with their versions and dependencies",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		var (
			mods    []*rt.Module
			loadErr error
		)
		if len(args) == 0 {
			mods, loadErr = s.reg.List()
		} else {
			mods, loadErr = s.reg.LoadAll(cmd.Context(), args)
		}

		t := newTable("MODULE", "VERSION", "TYPES", "DEPENDS").color(0, nameColor)
		for _, m := range mods {
			deps := make([]string, 0, len(m.Depends()))
			for _, d := range m.Depends() {
				deps = append(deps, d.String())
			}
			t.add(m.Name(), m.Version().String(), strconv.Itoa(len(m.Types())), strings.Join(deps, ", "))
		}
		if err := t.write(cmd.OutOrStdout()); err != nil {
			return err
		}
		if modulesShowMeta {
			out := cmd.OutOrStdout()
			for _, m := range mods {
				for _, k := range m.MetaKeys() {
					v, _ := m.Meta(k)
					fmt.Fprintf(out, "%s  %s = %s\n", nameColor.Sprint(m.Name()), k, v)
				}
			}
		}
		return loadErr
	},
}
