// Package registry provides tracing interfaces for matcher debugging.
package registry

// TraceResult contains trace information from a matcher's attempt on a line.
type TraceResult struct {
	MatcherName string        // Name of the matcher.
	QuickCheck  *QuickCheck   // QuickCheck result (nil if not applicable).
	Formats     []FormatTrace // Format/pattern match attempts (for grok-style matchers).
	Matched     bool          // Whether the matcher matched the line.
}

// QuickCheck contains the result of a matcher's quick check.
type QuickCheck struct {
	Passed bool   // Whether the quick check passed.
	Reason string // Optional reason for the result.
}

// FormatTrace contains debug information about a format/pattern match attempt.
type FormatTrace struct {
	Name     string            // Format or pattern name.
	Matched  bool              // Whether the pattern matched.
	Pattern  string            // The regex pattern used.
	Captures map[string]string // Captured groups (if matched).
}

// Traceable is implemented by matchers that support debug tracing.
// This allows the trace command to show why a line was or wasn't accepted.
type Traceable interface {
	MatchWithTrace(line string) *TraceResult
}

// Trace runs every matcher against the line and reports what each did.
// Matchers that are not Traceable get a trace built from QuickCheck and Match.
func (r *Registry) Trace(line string) []*TraceResult {
	r.mu.RLock()
	defer r.mu.RUnlock()

	traces := make([]*TraceResult, 0, len(r.matchers))
	for _, m := range r.matchers {
		if tm, ok := m.(Traceable); ok {
			traces = append(traces, tm.MatchWithTrace(line))
			continue
		}

		tr := &TraceResult{
			MatcherName: m.Name(),
			QuickCheck:  &QuickCheck{Passed: m.QuickCheck(line)},
		}
		if tr.QuickCheck.Passed {
			tr.Matched = m.Match(line) != nil
		}
		traces = append(traces, tr)
	}
	return traces
}
