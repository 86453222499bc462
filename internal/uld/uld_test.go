package uld

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseSection(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Section
	}{
		{
			name:  "mixed types",
			input: "XX 01PMC 01AKE XX",
			want:  Section{Count: 2, Types: []string{"PMC", "AKE"}, ExpandedTypes: []string{"PMC", "AKE"}},
		},
		{
			name:  "repeated type",
			input: "XX 02PMC XX",
			want:  Section{Count: 2, Types: []string{"PMC"}, ExpandedTypes: []string{"PMC", "PMC"}},
		},
		{
			name:  "first seen order kept",
			input: "XX 01AKE 02PMC 01AKE XX",
			want:  Section{Count: 4, Types: []string{"AKE", "PMC"}, ExpandedTypes: []string{"AKE", "PMC", "PMC", "AKE"}},
		},
		{
			name:  "missing count defaults to one",
			input: "XX BULK XX",
			want:  Section{Count: 1, Types: []string{"BULK"}, ExpandedTypes: []string{"BULK"}},
		},
		{
			name:  "case insensitive",
			input: "xx 02akl 01rke xx",
			want:  Section{Count: 3, Types: []string{"AKL", "RKE"}, ExpandedTypes: []string{"AKL", "AKL", "RKE"}},
		},
		{
			name:  "no markers",
			input: "03PAG",
			want:  Section{Count: 3, Types: []string{"PAG"}, ExpandedTypes: []string{"PAG", "PAG", "PAG"}},
		},
		{
			name:  "oversized count skipped",
			input: "XX 100PMC 02AKE XX",
			want:  Section{Count: 2, Types: []string{"AKE"}, ExpandedTypes: []string{"AKE", "AKE"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseSection(tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseSection(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
			if len(got.ExpandedTypes) != got.Count {
				t.Errorf("len(ExpandedTypes) = %d, Count = %d", len(got.ExpandedTypes), got.Count)
			}
		})
	}
}

func TestParseSectionGarbage(t *testing.T) {
	empty := Section{Count: 0, Types: []string{}, ExpandedTypes: []string{}}
	for _, input := range []string{"", "   ", "XX XX", "hello world", "XX 02XYZ XX", "12345", "XX 20000000PMC XX"} {
		t.Run(input, func(t *testing.T) {
			if diff := cmp.Diff(empty, ParseSection(input)); diff != "" {
				t.Errorf("ParseSection(%q) mismatch (-want +got):\n%s", input, diff)
			}
		})
	}
}

func TestFormatSection(t *testing.T) {
	tests := []struct {
		name     string
		numbers  []string
		original string
		want     string
	}{
		{
			name:     "all filled",
			numbers:  []string{"A6-1", "A6-2"},
			original: "XX 02PMC XX",
			want:     "XX 02PMC XX",
		},
		{
			name:     "blank entries not counted",
			numbers:  []string{"A6-1", "", "A6-2"},
			original: "XX 06AKE XX",
			want:     "XX 02AKE XX",
		},
		{
			name:     "whitespace only is blank",
			numbers:  []string{"  ", "PMC12345EK"},
			original: "XX 01PMC 01AKE XX",
			want:     "XX 01AKE XX",
		},
		{
			name:     "type order follows original",
			numbers:  []string{"AKE1", "PMC1", "PMC2"},
			original: "XX 01AKE 02PMC XX",
			want:     "XX 01AKE 02PMC XX",
		},
		{
			name:     "zero count type omitted",
			numbers:  []string{"P1", "", ""},
			original: "XX 01PMC 02AKE XX",
			want:     "XX 01PMC XX",
		},
		{
			name:     "extra numbers inherit last type",
			numbers:  []string{"P1", "A1", "A2"},
			original: "XX 01PMC 01AKE XX",
			want:     "XX 01PMC 02AKE XX",
		},
		{
			name:     "unknown original falls back to PMC",
			numbers:  []string{"X1"},
			original: "",
			want:     "XX 01PMC XX",
		},
		{
			name:     "nothing filled returns original",
			numbers:  []string{"", " "},
			original: "XX 02PMC XX",
			want:     "XX 02PMC XX",
		},
		{
			name:     "nil numbers returns original verbatim",
			numbers:  nil,
			original: "xx 02pmc xx",
			want:     "xx 02pmc xx",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatSection(tt.numbers, tt.original); got != tt.want {
				t.Errorf("FormatSection(%q, %q) = %q, want %q", tt.numbers, tt.original, got, tt.want)
			}
		})
	}
}

// Re-parsing a formatted section must give per-type counts equal to the
// filled counts, in the original first-seen order.
func TestFormatSectionRoundTrip(t *testing.T) {
	original := "XX 02PMC 03AKE 01PAG XX"
	orig := ParseSection(original)

	// Every subset of the six units.
	for mask := 1; mask < 1<<orig.Count; mask++ {
		numbers := make([]string, orig.Count)
		wantCounts := make(map[string]int)
		for i := 0; i < orig.Count; i++ {
			if mask&(1<<i) != 0 {
				numbers[i] = "N"
				wantCounts[orig.ExpandedTypes[i]]++
			}
		}

		got := ParseSection(FormatSection(numbers, original))

		gotCounts := make(map[string]int)
		for _, typ := range got.ExpandedTypes {
			gotCounts[typ]++
		}
		if diff := cmp.Diff(wantCounts, gotCounts); diff != "" {
			t.Fatalf("mask %b: counts mismatch (-want +got):\n%s", mask, diff)
		}

		var wantOrder []string
		for _, typ := range orig.Types {
			if wantCounts[typ] > 0 {
				wantOrder = append(wantOrder, typ)
			}
		}
		if diff := cmp.Diff(wantOrder, got.Types); diff != "" {
			t.Fatalf("mask %b: type order mismatch (-want +got):\n%s", mask, diff)
		}
	}
}

func TestSectionLabels(t *testing.T) {
	got := ParseSection("XX 02PMC 01AKE XX").Labels()
	want := []string{"PMC 1", "PMC 2", "AKE 1"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Labels() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSectionMaxCount(t *testing.T) {
	if got := ParseSection("XX 99PMC XX").Count; got != MaxCount {
		t.Errorf("Count = %d, want %d", got, MaxCount)
	}
	if got := FormatSection([]string{"PMC12345EK"}, "XX 999999999PMC XX"); got != "XX 01PMC XX" {
		t.Errorf("FormatSection() = %q", got)
	}
}
