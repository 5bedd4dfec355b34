package primitives

import (
	"context"
	"iter"
	"slices"
)

// feasibility only tracks whether any arrangement exists.
var feasibility = arithmetic[bool]{
	zero: func() bool { return false },
	one:  func() bool { return true },
	add:  func(a, b bool) (bool, error) { return a || b, nil },
}

// Arrangements yields every resolution of p whose runs are exactly groups, in
// lexicographic order with Inactive before Active.
//
// Only branches that lead to at least one arrangement are explored, so after
// the O(n*m) feasibility table is filled each arrangement costs O(n). Invalid
// groups yield nothing. The walk recurses once per cell, so patterns longer
// than MaxRecursiveLen should be counted rather than listed.
func Arrangements(ctx context.Context, p Pattern, groups []int) iter.Seq[Pattern] {
	return func(yield func(Pattern) bool) {
		if validateGroups(groups) != nil || !fits(len(p), groups) {
			return
		}
		e := &enumerator{
			ctx:      ctx,
			feasible: newCounter(p, groups, feasibility),
			buf:      slices.Clone(p),
			yield:    yield,
		}
		e.walk(0, 0)
	}
}

type enumerator struct {
	ctx      context.Context
	feasible *counter[bool]
	buf      Pattern
	yield    func(Pattern) bool
}

func (e *enumerator) ok(i, j int) bool {
	v, _ := e.feasible.count(i, j)
	return v
}

// walk returns false once the consumer has stopped or ctx is done.
func (e *enumerator) walk(i, j int) bool {
	if e.ctx.Err() != nil {
		return false
	}

	p, groups := e.feasible.pattern, e.feasible.groups
	n, m := len(p), len(groups)

	if j == m {
		if !e.ok(i, j) {
			return true
		}
		for k := i; k < n; k++ {
			e.buf[k] = Inactive
		}
		return e.yield(slices.Clone(e.buf))
	}
	if i >= n {
		return true
	}

	cell := p[i]
	if cell != Active && e.ok(i+1, j) {
		e.buf[i] = Inactive
		if !e.walk(i+1, j) {
			return false
		}
	}

	if l := groups[j]; cell != Inactive && e.feasible.index.CanPlace(i, l) {
		next := min(i+l+1, n)
		if e.ok(next, j+1) {
			for k := i; k < i+l; k++ {
				e.buf[k] = Active
			}
			if i+l < n {
				e.buf[i+l] = Inactive
			}
			if !e.walk(next, j+1) {
				return false
			}
		}
	}
	return true
}
