package main

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"reflex/internal/meta"
	"reflex/internal/version"
)

var (
	versionFormat   string
	versionShowFull bool
)

func init() {
	versionCmd.Flags().StringVar(&versionFormat, "format", "pretty", "output format (pretty|json)")
	versionCmd.Flags().BoolVar(&versionShowFull, "full", false, "include commit, build date and toolchain")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show reflex build information",
	Long: `version prints the reflex release together with the version of the
embedded sys module and the metadata cache layout it reads and writes`,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := collectBuildReport(versionShowFull)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		switch strings.ToLower(versionFormat) {
		case "pretty":
			report.writePretty(out)
			return nil
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		default:
			return fmt.Errorf("unsupported format %q (must be pretty or json)", versionFormat)
		}
	},
}

// buildReport describes what a reflex binary is compatible with: the sys
// module every registry starts from and the cache entries it accepts.
type buildReport struct {
	Tool        string `json:"tool"`
	Version     string `json:"version"`
	SysModule   string `json:"sys_module"`
	CacheSchema uint16 `json:"cache_schema"`
	GitCommit   string `json:"git_commit,omitempty"`
	GitMessage  string `json:"git_message,omitempty"`
	BuildDate   string `json:"build_date,omitempty"`
	GoVersion   string `json:"go_version,omitempty"`

	full bool
}

func collectBuildReport(full bool) (buildReport, error) {
	sys, err := meta.Sys()
	if err != nil {
		return buildReport{}, fmt.Errorf("embedded sys module: %w", err)
	}
	r := buildReport{
		Tool:        "reflex",
		Version:     orUnknown(version.Version),
		SysModule:   sys.Version,
		CacheSchema: meta.CacheSchemaVersion,
		full:        full,
	}
	if full {
		r.GitCommit = orUnknown(version.GitCommit)
		r.GitMessage = orUnknown(version.GitMessage)
		r.BuildDate = orUnknown(version.BuildDate)
		r.GoVersion = runtime.Version()
	}
	return r, nil
}

func (r buildReport) writePretty(out io.Writer) {
	fmt.Fprintf(out, "reflex %s\n", version.Pretty())
	row := func(label, value string) {
		fmt.Fprintf(out, "  %s %s\n", dimColor.Sprintf("%-13s", label+":"), value)
	}
	row("sys module", r.SysModule)
	row("cache schema", fmt.Sprintf("v%d", r.CacheSchema))
	if r.full {
		row("commit", r.GitCommit)
		row("message", r.GitMessage)
		row("built", r.BuildDate)
		row("go", r.GoVersion)
	}
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "unknown"
	}
	return s
}
