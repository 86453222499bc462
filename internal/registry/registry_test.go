package registry

import (
	"strings"
	"testing"
)

type kindResult string

func (k kindResult) Kind() string { return string(k) }

type prefixMatcher struct {
	name     string
	prefix   string
	priority int
	calls    int
}

func (m *prefixMatcher) Name() string  { return m.name }
func (m *prefixMatcher) Priority() int { return m.priority }

func (m *prefixMatcher) QuickCheck(line string) bool {
	return strings.HasPrefix(line, m.prefix)
}

func (m *prefixMatcher) Match(line string) Result {
	m.calls++
	return kindResult(m.name)
}

type tracedMatcher struct{ prefixMatcher }

func (m *tracedMatcher) MatchWithTrace(line string) *TraceResult {
	return &TraceResult{
		MatcherName: m.name,
		Formats:     []FormatTrace{{Name: "only", Matched: m.QuickCheck(line)}},
		Matched:     m.QuickCheck(line),
	}
}

func TestDispatchFirstHonoursPriority(t *testing.T) {
	r := New()
	r.Register(&prefixMatcher{name: "late", prefix: "XX", priority: 20})
	r.Register(&prefixMatcher{name: "early", prefix: "XX", priority: 10})
	r.Sort()

	got := r.DispatchFirst("XX 02PMC XX")
	if got == nil || got.Kind() != "early" {
		t.Errorf("DispatchFirst() = %v, want early", got)
	}

	if all := r.Dispatch("XX 02PMC XX"); len(all) != 2 {
		t.Errorf("Dispatch() returned %d results, want 2", len(all))
	}
}

func TestQuickCheckSkipsMatch(t *testing.T) {
	m := &prefixMatcher{name: "note", prefix: "[", priority: 1}
	r := New()
	r.Register(m)

	if got := r.DispatchFirst("001 176-20257333"); got != nil {
		t.Errorf("DispatchFirst() = %v, want nil", got)
	}
	if m.calls != 0 {
		t.Errorf("Match called %d times despite failed QuickCheck", m.calls)
	}
}

func TestSortIsStableForEqualPriority(t *testing.T) {
	r := New()
	r.Register(&prefixMatcher{name: "a", priority: 5})
	r.Register(&prefixMatcher{name: "b", priority: 5})
	r.Register(&prefixMatcher{name: "c", priority: 1})
	r.Sort()

	var names []string
	for _, m := range r.AllMatchers() {
		names = append(names, m.Name())
	}
	if strings.Join(names, ",") != "c,a,b" {
		t.Errorf("order = %v, want c,a,b", names)
	}
	if r.Count() != 3 {
		t.Errorf("Count() = %d, want 3", r.Count())
	}
}

func TestTrace(t *testing.T) {
	r := New()
	r.Register(&prefixMatcher{name: "plain", prefix: "[", priority: 1})
	r.Register(&tracedMatcher{prefixMatcher{name: "traced", prefix: "[", priority: 2}})
	r.Sort()

	traces := r.Trace("[note]")
	if len(traces) != 2 {
		t.Fatalf("expected 2 traces, got %d", len(traces))
	}
	if traces[0].MatcherName != "plain" || !traces[0].Matched || !traces[0].QuickCheck.Passed {
		t.Errorf("plain trace = %+v", traces[0])
	}
	if traces[1].MatcherName != "traced" || len(traces[1].Formats) != 1 {
		t.Errorf("traced trace = %+v", traces[1])
	}

	traces = r.Trace("no match")
	if traces[0].Matched || traces[0].QuickCheck.Passed {
		t.Errorf("expected plain trace to fail quick check, got %+v", traces[0])
	}
}
