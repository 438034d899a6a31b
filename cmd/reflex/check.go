package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"reflex/internal/observ"
	"reflex/internal/prof"
	"reflex/internal/rt"
	"reflex/internal/trace"
	"reflex/internal/ui"
)

var (
	checkTimings bool
	checkUI      string
	checkProfile prof.Options
)

func init() {
	checkCmd.Flags().BoolVar(&checkTimings, "timings", false, "print load and finish times per module")
	checkCmd.Flags().StringVar(&checkUI, "ui", "off", "show live progress (auto|on|off)")
	checkCmd.Flags().StringVar(&checkProfile.CPU, "cpu-profile", "", "write a CPU profile to this file")
	checkCmd.Flags().StringVar(&checkProfile.Mem, "mem-profile", "", "write a heap profile to this file")
}

var checkCmd = &cobra.Command{
	Use:   "check [module...]",
	Short: "Load modules and finish every type they declare",
	Long: `check loads the named modules, or every module found on the path, and
finishes each of their types so merge and binding errors surface`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()
		live, err := progressView(checkUI, s.tracer.Enabled() && ringOf(s.tracer) == nil, isTerminal(os.Stdout))
		if err != nil {
			return err
		}

		profile, err := prof.Start(checkProfile)
		if err != nil {
			return err
		}
		defer func() {
			if err := profile.Stop(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "profile: %v\n", err)
			}
		}()

		names := args
		if len(names) == 0 {
			names, err = s.reg.Source().Names()
			if err != nil {
				return err
			}
		}

		var res checkResult
		if live {
			res, err = runCheckWithUI(cmd.Context(), s, names)
			if err != nil {
				return err
			}
		} else {
			res = runCheck(cmd.Context(), s, names, nil)
		}

		out := cmd.OutOrStdout()
		res.write(out)
		if checkTimings {
			fmt.Fprint(out, res.timer.Summary())
		}
		fmt.Fprintln(out, dimColor.Sprintf("%d modules, %d types, %d failed in %s",
			len(res.modules), res.types(), res.failed(), res.elapsed.Round(time.Millisecond)))

		if n := res.failed(); n > 0 {
			return errors.Join(errSilent, fmt.Errorf("%d of %d modules failed", n, len(res.modules)))
		}
		return nil
	},
}

// progressView decides whether check draws the live progress view. In auto
// mode it needs a terminal and no streaming tracer, whose events would land
// on stderr while the view repaints.
func progressView(value string, streaming, tty bool) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on":
		return true, nil
	case "off":
		return false, nil
	case "", "auto":
		return tty && !streaming, nil
	default:
		return false, fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
	}
}

type moduleResult struct {
	name    string
	version string
	types   int
	err     error
}

type checkResult struct {
	modules []moduleResult
	timer   *observ.Timer
	elapsed time.Duration
}

func (r checkResult) types() int {
	n := 0
	for _, m := range r.modules {
		n += m.types
	}
	return n
}

func (r checkResult) failed() int {
	n := 0
	for _, m := range r.modules {
		if m.err != nil {
			n++
		}
	}
	return n
}

func (r checkResult) write(out io.Writer) {
	for _, m := range r.modules {
		if m.err != nil {
			fmt.Fprintf(out, "%s %s: %s\n", errColor.Sprint("FAIL"), m.name, formatError(m.err))
			continue
		}
		fmt.Fprintf(out, "%s   %s %s (%d types)\n", okColor.Sprint("ok"), m.name, m.version, m.types)
	}
}

// runCheck loads and finishes each module in turn. progress, when set,
// receives every stage change.
func runCheck(ctx context.Context, s *session, names []string, progress func(ui.Event)) checkResult {
	report := func(name string, stage ui.Stage, detail string) {
		if progress != nil {
			progress(ui.Event{Module: name, Stage: stage, Detail: detail})
		}
	}
	start := time.Now()
	res := checkResult{timer: observ.NewTimer()}
	span := trace.Begin(s.tracer, trace.ScopeRegistry, "check", trace.CurrentSpan(ctx))

	for _, name := range names {
		mr := moduleResult{name: name}

		report(name, ui.StageLoad, "")
		idx := res.timer.Begin("load " + name)
		m, err := s.reg.Find(name)
		res.timer.End(idx, "")
		if err == nil {
			mr.version = m.Version().String()
			ts := m.Types()
			mr.types = len(ts)

			report(name, ui.StageFinish, fmt.Sprintf("%d types", len(ts)))
			idx = res.timer.Begin("finish " + name)
			err = rt.FinishAll(ctx, ts)
			res.timer.End(idx, fmt.Sprintf("%d types", len(ts)))
		}
		mr.err = err
		if err != nil {
			report(name, ui.StageFailed, rt.CodeOf(err).ID())
		} else {
			report(name, ui.StageDone, fmt.Sprintf("%s, %d types", mr.version, mr.types))
		}
		res.modules = append(res.modules, mr)
	}

	res.elapsed = time.Since(start)
	if n := res.failed(); n > 0 {
		span.Fail(fmt.Errorf("%d of %d modules failed", n, len(names)))
	} else {
		span.End(fmt.Sprintf("%d modules", len(names)))
	}
	return res
}

func runCheckWithUI(ctx context.Context, s *session, names []string) (checkResult, error) {
	events := make(chan ui.Event, 256)
	done := make(chan checkResult, 1)
	go func() {
		res := runCheck(ctx, s, names, func(ev ui.Event) { events <- ev })
		close(events)
		done <- res
	}()

	model := ui.NewProgressModel("checking modules", names, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout), tea.WithContext(ctx))
	_, uiErr := program.Run()
	// The program may quit before the check ends; keep the worker from
	// blocking on a full channel.
	go func() {
		for range events {
		}
	}()
	res := <-done
	return res, uiErr
}
