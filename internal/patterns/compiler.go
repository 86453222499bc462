// Package patterns provides shared regex patterns and helper functions for load plan parsing.
// This file contains the grok-style pattern compiler.

package patterns

import (
	"fmt"
	"regexp"
)

// maxExpandDepth bounds placeholder substitution for patterns that refer to
// other placeholders.
const maxExpandDepth = 4

// placeholderRe matches {NAME}. Repetition counts such as \d{3} never match
// because names must start with a capital letter.
var placeholderRe = regexp.MustCompile(`\{([A-Z][A-Z0-9_]*)\}`)

// Format is one named line layout.
type Format struct {
	Name     string         // Format name for identification
	Pattern  string         // Pattern with {PLACEHOLDER} syntax
	Compiled *regexp.Regexp // Compiled regex (populated by Compile)
	Fields   []string       // Field names in capture order (for documentation)
}

// Compiler holds a set of formats. Formats are tried in declaration order,
// so stricter layouts go first.
type Compiler struct {
	placeholders map[string]string
	formats      []Format
}

// NewCompiler creates a compiler for formats. localPatterns override
// BasePatterns of the same name.
func NewCompiler(formats []Format, localPatterns map[string]string) *Compiler {
	c := &Compiler{
		placeholders: make(map[string]string, len(BasePatterns)+len(localPatterns)),
		formats:      append([]Format(nil), formats...),
	}
	for k, v := range BasePatterns {
		c.placeholders[k] = v
	}
	for k, v := range localPatterns {
		c.placeholders[k] = v
	}
	return c
}

// Compile expands placeholders and compiles every format.
func (c *Compiler) Compile() error {
	for i := range c.formats {
		expanded, err := c.expand(c.formats[i].Pattern)
		if err != nil {
			return fmt.Errorf("format %s: %w", c.formats[i].Name, err)
		}
		re, err := regexp.Compile(expanded)
		if err != nil {
			return fmt.Errorf("format %s: %w", c.formats[i].Name, err)
		}
		c.formats[i].Compiled = re
	}
	return nil
}

// expand substitutes placeholders until none remain.
func (c *Compiler) expand(pattern string) (string, error) {
	var missing string
	for depth := 0; depth < maxExpandDepth; depth++ {
		if !placeholderRe.MatchString(pattern) {
			return pattern, nil
		}
		pattern = placeholderRe.ReplaceAllStringFunc(pattern, func(ph string) string {
			name := ph[1 : len(ph)-1]
			re, ok := c.placeholders[name]
			if !ok {
				missing = name
				return ph
			}
			return re
		})
		if missing != "" {
			return "", fmt.Errorf("unknown placeholder {%s}", missing)
		}
	}
	return "", fmt.Errorf("placeholders nested deeper than %d", maxExpandDepth)
}

// Match is a successful format match.
type Match struct {
	FormatName string            // Name of the matched format
	Captures   map[string]string // Named capture group values
}

// Parse returns the first format that matches text, or nil. Text is matched
// as-is: load plan dates such as "12Oct" are mixed case.
func (c *Compiler) Parse(text string) *Match {
	for _, f := range c.formats {
		if m := f.match(text); m != nil {
			return m
		}
	}
	return nil
}

// FindAllMatches returns the captures of every occurrence of one format in
// text, for notation that repeats within a line such as ULD counts.
func (c *Compiler) FindAllMatches(text string, formatName string) []map[string]string {
	for _, f := range c.formats {
		if f.Name != formatName || f.Compiled == nil {
			continue
		}
		var results []map[string]string
		for _, sub := range f.Compiled.FindAllStringSubmatch(text, -1) {
			results = append(results, captures(f.Compiled, sub))
		}
		return results
	}
	return nil
}

func (f Format) match(text string) *Match {
	if f.Compiled == nil {
		return nil
	}
	sub := f.Compiled.FindStringSubmatch(text)
	if sub == nil {
		return nil
	}
	return &Match{FormatName: f.Name, Captures: captures(f.Compiled, sub)}
}

func captures(re *regexp.Regexp, sub []string) map[string]string {
	out := make(map[string]string, re.NumSubexp())
	for i, name := range re.SubexpNames() {
		if i > 0 && name != "" {
			out[name] = sub[i]
		}
	}
	return out
}

// GetCapture returns a non-empty capture or defaultVal. It is safe on a nil Match.
func (m *Match) GetCapture(name string, defaultVal string) string {
	if m == nil {
		return defaultVal
	}
	if val := m.Captures[name]; val != "" {
		return val
	}
	return defaultVal
}

// FormatTrace records one format's attempt on a line.
type FormatTrace struct {
	Name     string            // Format name
	Matched  bool              // Whether the pattern matched
	Pattern  string            // The expanded regex pattern
	Captures map[string]string // Captured groups (if matched)
}

// ParseTrace is the result of ParseWithTrace.
type ParseTrace struct {
	Formats []FormatTrace // All format match attempts
	Match   *Match        // The first successful match (if any)
}

// ParseWithTrace tries every format and reports each attempt, for finding out
// why a line fell through to a looser format.
func (c *Compiler) ParseWithTrace(text string) *ParseTrace {
	trace := &ParseTrace{Formats: make([]FormatTrace, 0, len(c.formats))}

	for _, f := range c.formats {
		ft := FormatTrace{Name: f.Name}
		if f.Compiled != nil {
			ft.Pattern = f.Compiled.String()
		}
		if m := f.match(text); m != nil {
			ft.Matched = true
			ft.Captures = m.Captures
			if trace.Match == nil {
				trace.Match = m
			}
		}
		trace.Formats = append(trace.Formats, ft)
	}

	return trace
}
