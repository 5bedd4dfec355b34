package primitives

import (
	"fmt"
	"strings"
)

// Cell is the state of a single position in a row of springs.
type Cell uint8

const (
	// Unknown cells can be resolved to either Active or Inactive.
	Unknown Cell = iota
	// Active cells must be covered by a run.
	Active
	// Inactive cells must not be covered by a run.
	Inactive
)

const (
	kActive   = '#'
	kInactive = '.'
	kUnknown  = '?'
)

// CellFromRune maps a condition record character to a Cell.
func CellFromRune(r rune) (Cell, error) {
	switch r {
	case kActive:
		return Active, nil
	case kInactive:
		return Inactive, nil
	case kUnknown:
		return Unknown, nil
	}
	return Unknown, fmt.Errorf("character %q is not one of %q", r, string([]rune{kInactive, kActive, kUnknown}))
}

func (c Cell) Rune() rune {
	switch c {
	case Active:
		return kActive
	case Inactive:
		return kInactive
	default:
		return kUnknown
	}
}

func (c Cell) String() string {
	switch c {
	case Active:
		return "Active"
	case Inactive:
		return "Inactive"
	default:
		return "Unknown"
	}
}

// Pattern is an ordered row of cells.
type Pattern []Cell

// ParsePattern converts a string such as "?#..??" into a Pattern.
func ParsePattern(s string) (Pattern, error) {
	p := make(Pattern, 0, len(s))
	for _, r := range s {
		c, err := CellFromRune(r)
		if err != nil {
			return nil, fmt.Errorf("position %d: %w", len(p), err)
		}
		p = append(p, c)
	}
	return p, nil
}

// MustParsePattern is like ParsePattern but panics on error. Intended for tests
// and constant patterns.
func MustParsePattern(s string) Pattern {
	p, err := ParsePattern(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Pattern) String() string {
	var sb strings.Builder
	sb.Grow(len(p))
	for _, c := range p {
		sb.WriteRune(c.Rune())
	}
	return sb.String()
}

// NumUnknown returns the number of cells that are still to be resolved.
func (p Pattern) NumUnknown() int {
	n := 0
	for _, c := range p {
		if c == Unknown {
			n++
		}
	}
	return n
}

// Runs returns the lengths of the maximal runs of Active cells, left to right.
//
// Unknown cells break runs, so this is only meaningful for resolved patterns.
func (p Pattern) Runs() []int {
	var runs []int
	current := 0
	for _, c := range p {
		if c == Active {
			current++
			continue
		}
		if current > 0 {
			runs = append(runs, current)
			current = 0
		}
	}
	if current > 0 {
		runs = append(runs, current)
	}
	return runs
}
