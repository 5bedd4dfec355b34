package primitives

import (
	"errors"
	"fmt"
	"math/big"
	"math/bits"
	"slices"
)

var (
	// ErrOverflow is returned by Count when the number of arrangements does not fit in a uint64.
	ErrOverflow = errors.New("arrangement count overflows uint64")

	// ErrInvalidGroup is returned when a required run length is less than 1.
	ErrInvalidGroup = errors.New("group length must be at least 1")
)

// arithmetic describes the numeric type a count is accumulated in.
type arithmetic[T any] struct {
	zero func() T
	one  func() T
	add  func(a, b T) (T, error)
}

var uint64Arithmetic = arithmetic[uint64]{
	zero: func() uint64 { return 0 },
	one:  func() uint64 { return 1 },
	add: func(a, b uint64) (uint64, error) {
		sum, carry := bits.Add64(a, b, 0)
		if carry != 0 {
			return 0, ErrOverflow
		}
		return sum, nil
	},
}

var bigArithmetic = arithmetic[*big.Int]{
	zero: func() *big.Int { return new(big.Int) },
	one:  func() *big.Int { return big.NewInt(1) },
	add: func(a, b *big.Int) (*big.Int, error) {
		return new(big.Int).Add(a, b), nil
	},
}

type memoEntry[T any] struct {
	value T
	set   bool
}

// counter holds the state of a single Count invocation.
type counter[T any] struct {
	pattern Pattern
	groups  []int
	index   *FeasibilityIndex
	arith   arithmetic[T]

	// need[j] is the minimum number of cells needed to hold groups[j:], including
	// the separators between them.
	need []int

	// memo[i][j] caches count(i, j). Entries are written at most once.
	memo [][]memoEntry[T]
}

func validateGroups(groups []int) error {
	for i, g := range groups {
		if g < 1 {
			return fmt.Errorf("group %d has length %d: %w", i, g, ErrInvalidGroup)
		}
	}
	return nil
}

// minCells returns the number of cells needed to hold groups[j:] with one
// separator between consecutive runs for every j, saturated at n+1 so that
// arbitrarily large groups cannot overflow.
func minCells(n int, groups []int) []int {
	m := len(groups)
	need := make([]int, m+1)
	for j := m - 1; j >= 0; j-- {
		if groups[j] > n {
			need[j] = n + 1
			continue
		}
		need[j] = need[j+1] + groups[j]
		if j < m-1 {
			need[j]++
		}
		need[j] = min(need[j], n+1)
	}
	return need
}

// fits reports whether groups could possibly be placed in n cells.
func fits(n int, groups []int) bool {
	return minCells(n, groups)[0] <= n
}

func newCounter[T any](p Pattern, groups []int, arith arithmetic[T]) *counter[T] {
	n, m := len(p), len(groups)
	need := minCells(n, groups)

	memo := make([][]memoEntry[T], n+1)
	for i := range memo {
		memo[i] = make([]memoEntry[T], m+1)
	}

	return &counter[T]{
		pattern: p,
		groups:  groups,
		index:   NewFeasibilityIndex(p),
		arith:   arith,
		need:    need,
		memo:    memo,
	}
}

// count returns the number of ways pattern[i:] can be resolved to contain
// exactly groups[j:] as its runs.
func (c *counter[T]) count(i, j int) (T, error) {
	n, m := len(c.pattern), len(c.groups)

	if j == m {
		if c.index.HasActiveFrom(i) {
			return c.arith.zero(), nil
		}
		return c.arith.one(), nil
	}
	if i >= n || n-i < c.need[j] {
		return c.arith.zero(), nil
	}

	if e := c.memo[i][j]; e.set {
		return e.value, nil
	}

	total := c.arith.zero()
	cell := c.pattern[i]

	if cell != Active {
		skip, err := c.count(i+1, j)
		if err != nil {
			return total, err
		}
		if total, err = c.arith.add(total, skip); err != nil {
			return total, err
		}
	}

	if l := c.groups[j]; cell != Inactive && c.index.CanPlace(i, l) {
		next := min(i+l+1, n)
		place, err := c.count(next, j+1)
		if err != nil {
			return total, err
		}
		if total, err = c.arith.add(total, place); err != nil {
			return total, err
		}
	}

	c.memo[i][j] = memoEntry[T]{value: total, set: true}
	return total, nil
}

// MaxRecursiveLen is the longest pattern Count and CountBig evaluate with the
// memoized recursion. Longer patterns go through the rolling form, whose stack
// use does not grow with the pattern.
const MaxRecursiveLen = 1 << 15

// Count returns the number of ways the Unknown cells of p can be resolved so
// that its runs of Active cells are exactly groups, in order.
//
// Impossible inputs count as 0. ErrOverflow is returned if the answer does not
// fit in a uint64; use CountBig for such inputs.
func Count(p Pattern, groups []int) (uint64, error) {
	if err := validateGroups(groups); err != nil {
		return 0, err
	}
	if !fits(len(p), groups) {
		return 0, nil
	}
	if len(p) > MaxRecursiveLen {
		return countRolling(p, groups, uint64Arithmetic)
	}
	return newCounter(p, groups, uint64Arithmetic).count(0, 0)
}

// CountBig is like Count but accumulates in arbitrary precision.
func CountBig(p Pattern, groups []int) (*big.Int, error) {
	if err := validateGroups(groups); err != nil {
		return nil, err
	}
	if !fits(len(p), groups) {
		return new(big.Int), nil
	}
	if len(p) > MaxRecursiveLen {
		return countRolling(p, groups, bigArithmetic)
	}
	return newCounter(p, groups, bigArithmetic).count(0, 0)
}

// CountRolling computes the same value as Count bottom-up, keeping only the
// rows the recurrence can still reach. It uses O(m * max(groups)) memory
// instead of O(n * m), and no recursion.
func CountRolling(p Pattern, groups []int) (uint64, error) {
	if err := validateGroups(groups); err != nil {
		return 0, err
	}
	if !fits(len(p), groups) {
		return 0, nil
	}
	return countRolling(p, groups, uint64Arithmetic)
}

// CountRollingBig is CountRolling in arbitrary precision.
func CountRollingBig(p Pattern, groups []int) (*big.Int, error) {
	if err := validateGroups(groups); err != nil {
		return nil, err
	}
	if !fits(len(p), groups) {
		return new(big.Int), nil
	}
	return countRolling(p, groups, bigArithmetic)
}

// countRolling expects groups that fit in p.
func countRolling[T any](p Pattern, groups []int, arith arithmetic[T]) (T, error) {
	n, m := len(p), len(groups)
	index := NewFeasibilityIndex(p)

	maxGroup := 0
	if m > 0 {
		maxGroup = min(slices.Max(groups), n)
	}

	// The place option jumps from row i to row min(i+l+1, n), so rows
	// i+1..i+maxGroup+1 must still be live while row i is computed.
	ring := make([][]T, maxGroup+2)
	for r := range ring {
		ring[r] = make([]T, m+1)
	}
	row := func(i int) []T {
		return ring[i%len(ring)]
	}
	reset := func(r []T) {
		for j := range r {
			r[j] = arith.zero()
		}
	}

	last := row(n)
	reset(last)
	last[m] = arith.one()

	for i := n - 1; i >= 0; i-- {
		cur := row(i)
		reset(cur)
		if !index.HasActiveFrom(i) {
			cur[m] = arith.one()
		}

		cell := p[i]
		for j := m - 1; j >= 0; j-- {
			total := arith.zero()
			if cell != Active {
				total = row(i + 1)[j]
			}
			if l := groups[j]; cell != Inactive && index.CanPlace(i, l) {
				sum, err := arith.add(total, row(min(i+l+1, n))[j+1])
				if err != nil {
					var zero T
					return zero, err
				}
				total = sum
			}
			cur[j] = total
		}
	}

	return row(0)[0], nil
}
