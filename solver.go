package arrangements

import (
	"context"
	"fmt"
	"iter"
	"math/big"
	"runtime"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"crosswarped.com/arrangements/internal"
)

// Solver counts arrangements for whole documents of condition records.
type Solver struct {
	// UnfoldFactor is the number of copies each record is unfolded into before
	// counting. 1 leaves records unchanged.
	UnfoldFactor int
	// Workers bounds the number of records counted concurrently.
	Workers int

	// cache maps an unfolded record's text to its count. nil when disabled.
	cache *lru.Cache[string, *big.Int]
}

type SolverParams struct {
	UnfoldFactor int
	Workers      int
	// CacheSize is the number of distinct records whose counts are remembered
	// across calls. 0 disables the cache.
	CacheSize int
}

// Result is the count for a single record of a document.
type Result struct {
	Index  int
	Record internal.Record
	Count  *big.Int
}

func CreateSolver(params SolverParams) (*Solver, error) {
	s := &Solver{
		UnfoldFactor: max(params.UnfoldFactor, 1),
		Workers:      params.Workers,
	}
	if s.Workers <= 0 {
		s.Workers = runtime.GOMAXPROCS(0)
	}
	if params.CacheSize > 0 {
		cache, err := lru.New[string, *big.Int](params.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("lru.New: %w", err)
		}
		s.cache = cache
	}
	return s, nil
}

// CountRecord returns the number of arrangements of rec after unfolding.
func (s *Solver) CountRecord(rec internal.Record) (*big.Int, error) {
	unfolded := rec.Unfold(s.UnfoldFactor)

	var key string
	if s.cache != nil {
		key = unfolded.String()
		if v, ok := s.cache.Get(key); ok {
			return v, nil
		}
	}

	count, err := unfolded.Count()
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Add(key, count)
	}
	return count, nil
}

// Solve counts every record on a pool of s.Workers goroutines. The returned
// results are in input order.
func (s *Solver) Solve(ctx context.Context, records []internal.Record) ([]Result, error) {
	results := make([]Result, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Workers)
	for i, rec := range records {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			count, err := s.CountRecord(rec)
			if err != nil {
				return fmt.Errorf("record %d (%s): %w", i+1, rec, err)
			}
			Log.WithFields(logrus.Fields{
				"index":  i,
				"record": rec.String(),
				"count":  count.String(),
			}).Debug("counted record")
			results[i] = Result{Index: i, Record: rec, Count: count}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Sum returns the total number of arrangements across all records.
func (s *Solver) Sum(ctx context.Context, records []internal.Record) (*big.Int, error) {
	results, err := s.Solve(ctx, records)
	if err != nil {
		return nil, err
	}
	return Total(results), nil
}

// Parts holds the totals of a document as written and unfolded for part two.
type Parts struct {
	One *big.Int
	Two *big.Int
}

// SolveParts sums records unfolded once and internal.PartTwoFactor times.
// params.UnfoldFactor is ignored.
func SolveParts(ctx context.Context, records []internal.Record, params SolverParams) (Parts, error) {
	var parts Parts
	for _, p := range []struct {
		unfold int
		total  **big.Int
	}{
		{unfold: 1, total: &parts.One},
		{unfold: internal.PartTwoFactor, total: &parts.Two},
	} {
		params.UnfoldFactor = p.unfold
		s, err := CreateSolver(params)
		if err != nil {
			return Parts{}, err
		}
		total, err := s.Sum(ctx, records)
		if err != nil {
			return Parts{}, fmt.Errorf("unfold %d: %w", p.unfold, err)
		}
		*p.total = total
	}
	return parts, nil
}

// Results counts the records one at a time, in order, stopping at the first
// error or when ctx is done.
func (s *Solver) Results(ctx context.Context, records []internal.Record) iter.Seq2[Result, error] {
	return func(yield func(Result, error) bool) {
		for i, rec := range records {
			if err := ctx.Err(); err != nil {
				yield(Result{Index: i, Record: rec}, err)
				return
			}
			count, err := s.CountRecord(rec)
			if err != nil {
				yield(Result{Index: i, Record: rec}, err)
				return
			}
			if !yield(Result{Index: i, Record: rec, Count: count}, nil) {
				return
			}
		}
	}
}

// Total sums the counts of results.
func Total(results []Result) *big.Int {
	total := new(big.Int)
	for _, r := range results {
		if r.Count != nil {
			total.Add(total, r.Count)
		}
	}
	return total
}
