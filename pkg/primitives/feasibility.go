package primitives

// FeasibilityIndex answers placement questions about a single Pattern in O(1).
//
// Both arrays have len(pattern)+1 entries so that index n (one past the end) is
// always a valid query.
type FeasibilityIndex struct {
	n int

	// nextInactive[i] is the smallest j >= i such that pattern[j] is Inactive, or n.
	nextInactive []int
	// firstActive[i] is the smallest j >= i such that pattern[j] is Active, or n.
	firstActive []int

	pattern Pattern
}

// NewFeasibilityIndex builds the index in a single backward pass over p.
func NewFeasibilityIndex(p Pattern) *FeasibilityIndex {
	n := len(p)
	idx := &FeasibilityIndex{
		n:            n,
		nextInactive: make([]int, n+1),
		firstActive:  make([]int, n+1),
		pattern:      p,
	}

	idx.nextInactive[n] = n
	idx.firstActive[n] = n
	for i := n - 1; i >= 0; i-- {
		idx.nextInactive[i] = idx.nextInactive[i+1]
		idx.firstActive[i] = idx.firstActive[i+1]
		switch p[i] {
		case Inactive:
			idx.nextInactive[i] = i
		case Active:
			idx.firstActive[i] = i
		}
	}
	return idx
}

// NextInactive returns the smallest j >= i with an Inactive cell, or the pattern length.
func (f *FeasibilityIndex) NextInactive(i int) int {
	if i >= f.n {
		return f.n
	}
	return f.nextInactive[i]
}

// FirstActiveAtOrAfter returns the smallest j >= i with an Active cell, or the
// pattern length.
func (f *FeasibilityIndex) FirstActiveAtOrAfter(i int) int {
	if i >= f.n {
		return f.n
	}
	return f.firstActive[i]
}

// HasActiveFrom reports whether pattern[i:] contains any Active cell.
func (f *FeasibilityIndex) HasActiveFrom(i int) bool {
	return f.FirstActiveAtOrAfter(i) < f.n
}

// CanPlace reports whether a run of length l may start at position i: it must
// fit in the pattern, cover no Inactive cell, and not be immediately followed by
// an Active cell.
func (f *FeasibilityIndex) CanPlace(i, l int) bool {
	if i < 0 || l < 1 || l > f.n-i {
		return false
	}
	end := i + l
	if f.nextInactive[i] < end {
		return false
	}
	return end == f.n || f.pattern[end] != Active
}
