// Package trace records what the type registry is doing: module loads,
// lifecycle transitions of individual types, and slot binding.
//
// Tracing is configured from reflex.toml or the command line:
//
//	reflex types acme --trace=- --trace-level=detail
//
// Tracer implementations:
//
//   - Nop: disabled tracing
//   - StreamTracer: writes each event as it happens (text or NDJSON)
//   - RingTracer: keeps the last N events for post-mortem dumps
//   - MultiTracer: fans out to several tracers
//
// Levels select scopes. LevelPhase shows registry and module events,
// LevelDetail adds per-type lifecycle, LevelDebug adds per-slot binding.
//
//	span := trace.Begin(t, trace.ScopeModule, "load acme", 0)
//	defer span.End("")
package trace
