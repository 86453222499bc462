package patterns

import (
	"testing"
)

var testFormats = []Format{
	{
		Name:    "strict",
		Pattern: `^(?P<serial>{SERIAL})\s+(?P<awb>{AWB})\s{2,}(?P<date>{DAYMON})$`,
		Fields:  []string{"serial", "awb", "date"},
	},
	{
		Name:    "loose",
		Pattern: `^(?P<serial>{SERIAL})\s+(?P<awb>{AWB})(?:\s+(?P<date>{DAYMON}))?`,
		Fields:  []string{"serial", "awb", "date"},
	},
	{
		Name:    "uld_count",
		Pattern: `(?P<count>\d+)?(?P<type>{ULDTYPE})`,
		Fields:  []string{"count", "type"},
	},
}

func newTestCompiler(t *testing.T) *Compiler {
	t.Helper()
	c := NewCompiler(testFormats, nil)
	if err := c.Compile(); err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	return c
}

func TestCompilerParsePreservesCase(t *testing.T) {
	c := newTestCompiler(t)

	m := c.Parse("001 176-20257333  12Oct")
	if m == nil {
		t.Fatal("expected a match")
	}
	if m.FormatName != "strict" {
		t.Errorf("Expected format name 'strict', got '%s'", m.FormatName)
	}
	if got := m.GetCapture("date", ""); got != "12Oct" {
		t.Errorf("Field date: expected '12Oct', got '%s'", got)
	}
}

func TestCompilerFallsBackToLooserFormat(t *testing.T) {
	c := newTestCompiler(t)

	m := c.Parse("001 176-20257333 12Oct")
	if m == nil {
		t.Fatal("expected a match")
	}
	if m.FormatName != "loose" {
		t.Errorf("Expected format name 'loose', got '%s'", m.FormatName)
	}

	trace := c.ParseWithTrace("001 176-20257333 12Oct")
	if len(trace.Formats) != len(testFormats) {
		t.Fatalf("expected %d format traces, got %d", len(testFormats), len(trace.Formats))
	}
	if trace.Formats[0].Matched {
		t.Error("strict format should not match single spaced line")
	}
	if !trace.Formats[1].Matched {
		t.Error("loose format should match")
	}
	if trace.Match == nil || trace.Match.FormatName != "loose" {
		t.Errorf("trace match = %+v, want loose", trace.Match)
	}
}

func TestCompilerLocalPatternOverride(t *testing.T) {
	c := NewCompiler(testFormats[:1], map[string]string{"DAYMON": `\d{2}[A-Z]{3}`})
	if err := c.Compile(); err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if m := c.Parse("001 176-20257333  12Oct"); m != nil {
		t.Errorf("override should reject mixed case month, got %+v", m)
	}
	if m := c.Parse("001 176-20257333  12OCT"); m == nil {
		t.Error("override should accept upper case month")
	}
}

func TestFindAllMatches(t *testing.T) {
	c := newTestCompiler(t)

	got := c.FindAllMatches("02PMC 03AKE BULK", "uld_count")
	if len(got) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(got))
	}
	want := []struct{ count, typ string }{{"02", "PMC"}, {"03", "AKE"}, {"", "BULK"}}
	for i, w := range want {
		if got[i]["count"] != w.count || got[i]["type"] != w.typ {
			t.Errorf("match %d = %v, want count=%q type=%q", i, got[i], w.count, w.typ)
		}
	}
}

func TestGetCaptureDefault(t *testing.T) {
	var m *Match
	if got := m.GetCapture("x", "def"); got != "def" {
		t.Errorf("nil match GetCapture = %q, want def", got)
	}
	m = &Match{Captures: map[string]string{"x": ""}}
	if got := m.GetCapture("x", "def"); got != "def" {
		t.Errorf("empty capture GetCapture = %q, want def", got)
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		local  map[string]string
	}{
		{name: "unknown placeholder", format: Format{Name: "x", Pattern: `^{NOPE}$`}},
		{name: "bad regex", format: Format{Name: "x", Pattern: `^(?P<a>{INT}$`}},
		{name: "self reference", format: Format{Name: "x", Pattern: `{LOOP}`}, local: map[string]string{"LOOP": `a{LOOP}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := NewCompiler([]Format{tt.format}, tt.local).Compile(); err == nil {
				t.Error("expected Compile() error")
			}
		})
	}
}

func TestNestedPlaceholders(t *testing.T) {
	c := NewCompiler([]Format{{Name: "pair", Pattern: `^(?P<pair>{PAIR})$`}},
		map[string]string{"PAIR": `{SERIAL}/{SERIAL}`})
	if err := c.Compile(); err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if got := c.Parse("001/002").GetCapture("pair", ""); got != "001/002" {
		t.Errorf("Field pair: expected '001/002', got '%s'", got)
	}
}
