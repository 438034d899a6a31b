package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reflex/internal/config"
	"reflex/internal/trace"
)

// setupTracing builds the tracer from the [trace] section and the trace
// flags, and attaches it to the command context. The returned cleanup
// flushes and closes it.
func setupTracing(cmd *cobra.Command, cfg *config.Config) (trace.Tracer, func(), error) {
	root := cmd.Root()

	traceOutput, err := root.PersistentFlags().GetString("trace")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := root.PersistentFlags().GetString("trace-level")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get trace-level flag: %w", err)
	}

	tc, err := cfg.TracerConfig()
	if err != nil {
		return nil, nil, err
	}
	if traceOutput != "" {
		tc.OutputPath = traceOutput
		// An output without a level still traces.
		if tc.Level == trace.LevelOff {
			tc.Level = trace.LevelPhase
		}
	}
	if levelStr != "" {
		tc.Level, err = trace.ParseLevel(levelStr)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid trace level: %w", err)
		}
	}

	tracer, err := trace.New(tc)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)

	cleanup := func() {
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if ring := ringOf(tracer); ring != nil {
			if err := ring.Dump(cmd.ErrOrStderr(), trace.FormatText); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "trace: dump error: %v\n", err)
			}
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}
	return tracer, cleanup, nil
}

// ringOf returns the ring buffer of a ring-only tracer. A tracer in "both"
// mode has already streamed its events.
func ringOf(t trace.Tracer) *trace.RingTracer {
	if r, ok := t.(*trace.RingTracer); ok {
		return r
	}
	return nil
}
