package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"reflex/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "reflex",
	Short:         "Inspect and check reflex module metadata",
	Long:          `reflex loads module metadata, resolves types and slots, and reports load errors`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		value, err := cmd.Root().PersistentFlags().GetString("color")
		if err != nil {
			return err
		}
		mode, err := readColorMode(value)
		if err != nil {
			return err
		}
		applyColorMode(mode)
		return nil
	},
}

func init() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(modulesCmd)
	rootCmd.AddCommand(typesCmd)
	rootCmd.AddCommand(slotsCmd)
	rootCmd.AddCommand(inheritCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().String("config", "", "path to reflex.toml (default: search upwards)")
	rootCmd.PersistentFlags().String("path", "", "module directories separated by the OS list separator, overrides [registry].path")
	rootCmd.PersistentFlags().String("trace", "", "trace output file (- for stderr)")
	rootCmd.PersistentFlags().String("trace-level", "", "trace level (off|error|phase|detail|debug)")
}

// main runs the root command. Any error exits with status 1.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		printError(rootCmd.ErrOrStderr(), err)
		os.Exit(1)
	}
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
