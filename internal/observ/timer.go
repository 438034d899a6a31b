// Package observ times the steps of a registry run, such as loading and
// finishing each module during a check.
package observ

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Step is one timed unit of work.
type Step struct {
	Name  string
	Start time.Time
	Dur   time.Duration
	Note  string
}

// Timer records steps. It is safe for concurrent use.
type Timer struct {
	mu    sync.Mutex
	steps []Step
}

// NewTimer returns an empty timer.
func NewTimer() *Timer { return &Timer{steps: make([]Step, 0, 8)} }

// Begin starts a step and returns its index.
func (t *Timer) Begin(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.steps = append(t.steps, Step{Name: name, Start: time.Now()})
	return len(t.steps) - 1
}

// End finishes the step at idx. Unknown indexes are ignored.
func (t *Timer) End(idx int, note string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx < 0 || idx >= len(t.steps) {
		return
	}
	s := &t.steps[idx]
	s.Dur = time.Since(s.Start)
	s.Note = note
}

// Summary renders the steps and their total, one per line.
func (t *Timer) Summary() string {
	report := t.Report()
	width := len("total")
	for _, s := range report.Steps {
		width = max(width, len(s.Name))
	}
	var b strings.Builder
	b.WriteString("timings:\n")
	for _, s := range report.Steps {
		fmt.Fprintf(&b, "  %-*s %8.2f ms", width, s.Name, s.DurationMS)
		if s.Note != "" {
			b.WriteString("  // " + s.Note)
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "  %-*s %8.2f ms\n", width, "total", report.TotalMS)
	return b.String()
}

// StepReport is the serializable form of a step.
type StepReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

// Report aggregates the recorded steps.
type Report struct {
	TotalMS float64      `json:"total_ms"`
	Steps   []StepReport `json:"steps"`
}

// Report returns the steps in the order they began.
func (t *Timer) Report() Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.steps) == 0 {
		return Report{}
	}
	report := Report{Steps: make([]StepReport, len(t.steps))}
	var total time.Duration
	for i, s := range t.steps {
		total += s.Dur
		report.Steps[i] = StepReport{
			Name:       s.Name,
			DurationMS: durationToMillis(s.Dur),
			Note:       s.Note,
		}
	}
	report.TotalMS = durationToMillis(total)
	return report
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
