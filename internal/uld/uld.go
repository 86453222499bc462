// Package uld decodes and re-encodes compact ULD section notation such as
// "XX 02PMC 03AKE XX".
package uld

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"cargo_loadplan/internal/patterns"
)

// DefaultType is used when a filled unit has no declared type to inherit.
const DefaultType = "PMC"

// MaxCount is the largest unit count one token may declare. Tokens above it
// are skipped like unreadable counts.
const MaxCount = 99

// Section is the decoded form of a ULD section marker.
// len(ExpandedTypes) == Count always holds.
type Section struct {
	Count         int      `json:"count"`
	Types         []string `json:"types"`          // unique, first-seen order
	ExpandedTypes []string `json:"expanded_types"` // one entry per unit
}

// Formats defines the ULD count token format.
var Formats = []patterns.Format{
	// Example: 02PMC, AKE, 1bulk
	{
		Name:    "uld_count",
		Pattern: `(?i)(?P<count>\d+)?(?P<type>{ULDTYPE})`,
		Fields:  []string{"count", "type"},
	},
}

// Grok compiler singleton.
var (
	grokCompiler *patterns.Compiler
	grokOnce     sync.Once
	grokErr      error
)

func getCompiler() (*patterns.Compiler, error) {
	grokOnce.Do(func() {
		grokCompiler = patterns.NewCompiler(Formats, nil)
		grokErr = grokCompiler.Compile()
	})
	return grokCompiler, grokErr
}

// ParseSection expands section notation into per-unit types. Input with no
// recognisable tokens yields a zero Section, never an error.
func ParseSection(input string) Section {
	s := Section{Types: []string{}, ExpandedTypes: []string{}}

	compiler, err := getCompiler()
	if err != nil {
		return s
	}

	body := strings.TrimSpace(input)
	body = strings.TrimSpace(strings.TrimPrefix(body, "XX"))
	body = strings.TrimSpace(strings.TrimSuffix(body, "XX"))

	seen := make(map[string]bool)
	for _, m := range compiler.FindAllMatches(body, "uld_count") {
		count := 1
		if c := m["count"]; c != "" {
			n, err := strconv.Atoi(c)
			if err != nil || n > MaxCount {
				continue
			}
			count = n
		}
		typ := strings.ToUpper(m["type"])
		for i := 0; i < count; i++ {
			s.ExpandedTypes = append(s.ExpandedTypes, typ)
		}
		if !seen[typ] {
			seen[typ] = true
			s.Types = append(s.Types, typ)
		}
	}
	s.Count = len(s.ExpandedTypes)

	return s
}

// FormatSection re-renders originalSection counting only the units that have
// a non-blank ULD number. Types keep the original first-seen order and types
// with nothing filled are left out. With no filled units the original string
// is returned unchanged.
func FormatSection(uldNumbers []string, originalSection string) string {
	orig := ParseSection(originalSection)

	counts := make(map[string]int)
	var order []string
	filled := 0
	for i, n := range uldNumbers {
		if strings.TrimSpace(n) == "" {
			continue
		}
		filled++
		typ := typeAt(orig, i)
		if counts[typ] == 0 {
			order = append(order, typ)
		}
		counts[typ]++
	}

	if filled == 0 {
		return originalSection
	}

	parts := []string{"XX"}
	for _, typ := range orderedTypes(orig.Types, order) {
		if counts[typ] > 0 {
			parts = append(parts, fmt.Sprintf("%02d%s", counts[typ], typ))
		}
	}
	parts = append(parts, "XX")

	return strings.Join(parts, " ")
}

// typeAt returns the declared type of unit i, falling back to the last known
// type, then the first declared type, then DefaultType.
func typeAt(s Section, i int) string {
	if i < len(s.ExpandedTypes) {
		return s.ExpandedTypes[i]
	}
	if n := len(s.ExpandedTypes); n > 0 {
		return s.ExpandedTypes[n-1]
	}
	if len(s.Types) > 0 {
		return s.Types[0]
	}
	return DefaultType
}

// orderedTypes returns declared followed by any extra types not declared.
func orderedTypes(declared, extra []string) []string {
	out := append([]string(nil), declared...)
	for _, t := range extra {
		if !patterns.HasCode(declared, t) {
			out = append(out, t)
		}
	}
	return out
}

// Labels returns a display label per unit, e.g. "PMC 1", "PMC 2", "AKE 1".
func (s Section) Labels() []string {
	seen := make(map[string]int)
	labels := make([]string, 0, len(s.ExpandedTypes))
	for _, t := range s.ExpandedTypes {
		seen[t]++
		labels = append(labels, fmt.Sprintf("%s %d", t, seen[t]))
	}
	return labels
}
