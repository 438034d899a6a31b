package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"reflex/internal/meta"
	"reflex/internal/rt"
)

var watchDebounce time.Duration

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 100*time.Millisecond, "wait this long for a burst of changes to settle")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reload modules when their metadata files change",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		changes := make(chan string, 64)
		g, ctx := errgroup.WithContext(cmd.Context())
		watchers := make([]*meta.Watcher, 0, len(s.dirs))
		for _, dir := range s.dirs {
			w, err := meta.Watch(dir)
			if err != nil {
				for _, w := range watchers {
					_ = w.Close()
				}
				return fmt.Errorf("failed to watch %s: %w", dir, err)
			}
			watchers = append(watchers, w)
		}
		for i, w := range watchers {
			w := w
			dir := s.dirs[i]
			g.Go(func() error {
				defer w.Close()
				for {
					select {
					case name, ok := <-w.Changes():
						if !ok {
							return nil
						}
						select {
						case changes <- name:
						case <-ctx.Done():
							return nil
						}
					case err := <-w.Errors():
						return fmt.Errorf("watch %s: %w", dir, err)
					case <-ctx.Done():
						return nil
					}
				}
			})
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, dimColor.Sprintf("watching %d directories, interrupt to stop", len(s.dirs)))

		pending := make(map[string]bool)
		timer := time.NewTimer(watchDebounce)
		timer.Stop()
	loop:
		for {
			select {
			case name := <-changes:
				pending[name] = true
				timer.Reset(watchDebounce)
			case <-timer.C:
				for name := range pending {
					reloadModule(cmd, s.reg, name)
				}
				clear(pending)
			case <-ctx.Done():
				break loop
			}
		}
		if err := g.Wait(); err != nil {
			return err
		}
		return nil
	},
}

// reloadModule reloads name and reports the outcome. A module whose file
// disappeared is evicted.
func reloadModule(cmd *cobra.Command, reg *rt.Registry, name string) {
	out := cmd.OutOrStdout()
	stamp := time.Now().Format(time.TimeOnly)
	m, err := reg.Reload(name)
	switch {
	case errors.Is(err, rt.ErrUnknownModule):
		if reg.Evict(name) {
			fmt.Fprintf(out, "%s %s %s\n", dimColor.Sprint(stamp), nameColor.Sprint(name), "evicted")
		}
	case err != nil:
		fmt.Fprintf(out, "%s %s %s\n", dimColor.Sprint(stamp), errColor.Sprint("FAIL"), formatError(err))
	default:
		fmt.Fprintf(out, "%s %s %s reloaded (generation %d)\n", dimColor.Sprint(stamp), nameColor.Sprint(m.Name()), m.Version(), reg.Generation())
	}
}
