package internal

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"crosswarped.com/arrangements/pkg/primitives"
)

// PartTwoFactor is the number of copies a record is unfolded into for the
// second half of the puzzle.
const PartTwoFactor = 5

// ErrParse is matched by every error returned from ParseRecord.
var ErrParse = errors.New("parse error")

// ParseError describes a condition record line that could not be parsed.
type ParseError struct {
	Line   string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("invalid record %q: %s", e.Line, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrParse}
	}
	return []error{ErrParse, e.Err}
}

// Record is a single parsed condition record: a row of springs and the
// contiguous damaged group sizes it must contain.
type Record struct {
	Pattern primitives.Pattern
	Groups  []int
}

// ParseRecord parses a line of the form "???.### 1,1,3".
func ParseRecord(line string) (Record, error) {
	line = strings.TrimSpace(line)

	patternStr, groupsStr, ok := strings.Cut(line, " ")
	if !ok {
		return Record{}, &ParseError{Line: line, Reason: "missing space between pattern and groups"}
	}
	if patternStr == "" {
		return Record{}, &ParseError{Line: line, Reason: "empty pattern"}
	}

	pattern, err := primitives.ParsePattern(patternStr)
	if err != nil {
		return Record{}, &ParseError{Line: line, Reason: "bad pattern", Err: err}
	}

	groupsStr = strings.TrimSpace(groupsStr)
	if groupsStr == "" {
		return Record{}, &ParseError{Line: line, Reason: "empty group list"}
	}

	tokens := strings.Split(groupsStr, ",")
	groups := make([]int, 0, len(tokens))
	for _, tok := range tokens {
		g, err := strconv.Atoi(tok)
		if err != nil {
			return Record{}, &ParseError{Line: line, Reason: fmt.Sprintf("group %q is not a number", tok), Err: err}
		}
		if g < 1 {
			return Record{}, &ParseError{Line: line, Reason: fmt.Sprintf("group %d is not positive", g)}
		}
		groups = append(groups, g)
	}

	return Record{Pattern: pattern, Groups: groups}, nil
}

// Unfold returns k copies of the pattern joined by a single Unknown cell, and k
// copies of the group list. k < 1 is treated as 1.
func (r Record) Unfold(k int) Record {
	k = max(k, 1)

	pattern := make(primitives.Pattern, 0, k*len(r.Pattern)+k-1)
	groups := make([]int, 0, k*len(r.Groups))
	for i := range k {
		if i > 0 {
			pattern = append(pattern, primitives.Unknown)
		}
		pattern = append(pattern, r.Pattern...)
		groups = append(groups, r.Groups...)
	}
	return Record{Pattern: pattern, Groups: groups}
}

// maxMemoEntries bounds the (n+1)*(m+1) table of the memoized counter. Larger
// records are counted with the rolling rows instead.
const maxMemoEntries = 1 << 22

// Count returns the number of arrangements of the record. The count is
// computed in uint64 and only recomputed in arbitrary precision when it
// overflows.
func (r Record) Count() (*big.Int, error) {
	count, countBig := primitives.Count, primitives.CountBig
	if (len(r.Pattern)+1)*(len(r.Groups)+1) > maxMemoEntries {
		count, countBig = primitives.CountRolling, primitives.CountRollingBig
	}

	n, err := count(r.Pattern, r.Groups)
	if errors.Is(err, primitives.ErrOverflow) {
		return countBig(r.Pattern, r.Groups)
	}
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetUint64(n), nil
}

// String returns the record in its input form; ParseRecord(r.String()) == r.
func (r Record) String() string {
	groups := make([]string, len(r.Groups))
	for i, g := range r.Groups {
		groups[i] = strconv.Itoa(g)
	}
	return r.Pattern.String() + " " + strings.Join(groups, ",")
}
