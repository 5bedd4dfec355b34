package arrangements

import (
	"context"
	"errors"
	"math/big"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crosswarped.com/arrangements/internal"
)

func loadExample(t testing.TB) []internal.Record {
	records, err := LoadFromFile(context.Background(), "testdata/example.txt")
	if err != nil {
		t.Fatalf("failed to load example records: %v", err)
	}
	return records
}

func newSolver(t testing.TB, params SolverParams) *Solver {
	s, err := CreateSolver(params)
	require.NoError(t, err)
	return s
}

func TestSolver_Sum(t *testing.T) {
	records := loadExample(t)
	require.Len(t, records, 6)

	for _, tc := range []struct {
		name   string
		unfold int
		want   int64
	}{
		{name: "part one", unfold: 1, want: 21},
		{name: "part two", unfold: internal.PartTwoFactor, want: 525152},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := newSolver(t, SolverParams{UnfoldFactor: tc.unfold})
			got, err := s.Sum(t.Context(), records)
			require.NoError(t, err)
			assert.Equal(t, big.NewInt(tc.want).String(), got.String())
		})
	}
}

func TestSolver_Solve(t *testing.T) {
	records := loadExample(t)
	s := newSolver(t, SolverParams{UnfoldFactor: 1, Workers: 3})

	results, err := s.Solve(t.Context(), records)
	require.NoError(t, err)

	var counts []int64
	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, records[i], r.Record)
		counts = append(counts, r.Count.Int64())
	}
	assert.Equal(t, []int64{1, 4, 1, 1, 4, 10}, counts)
}

func TestSolver_SumIsOrderAndWorkerIndependent(t *testing.T) {
	records := loadExample(t)
	want, err := newSolver(t, SolverParams{UnfoldFactor: 5, Workers: 1}).Sum(t.Context(), records)
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(7, 11))
	for _, workers := range []int{1, 2, 4, 16} {
		shuffled := slices.Clone(records)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		got, err := newSolver(t, SolverParams{UnfoldFactor: 5, Workers: workers}).Sum(t.Context(), shuffled)
		require.NoError(t, err)
		assert.Zero(t, want.Cmp(got), "workers=%d: got %s, want %s", workers, got, want)
	}
}

func TestSolver_Results(t *testing.T) {
	records := loadExample(t)
	s := newSolver(t, SolverParams{UnfoldFactor: 5})

	var counts []int64
	for r, err := range s.Results(t.Context(), records) {
		require.NoError(t, err)
		counts = append(counts, r.Count.Int64())
	}
	assert.Equal(t, []int64{1, 16384, 1, 16, 2500, 506250}, counts)
}

func TestSolver_ResultsStopsEarly(t *testing.T) {
	records := loadExample(t)
	s := newSolver(t, SolverParams{})

	seen := 0
	for _, err := range s.Results(t.Context(), records) {
		require.NoError(t, err)
		seen++
		if seen == 2 {
			break
		}
	}
	assert.Equal(t, 2, seen)
}

func TestSolver_Cancelled(t *testing.T) {
	records := loadExample(t)
	s := newSolver(t, SolverParams{})

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := s.Sum(ctx, records)
	assert.ErrorIs(t, err, context.Canceled)

	for _, err := range s.Results(ctx, records) {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestSolver_OverflowFallsBackToBig(t *testing.T) {
	line := strings.Repeat("?", 200) + " " + strings.TrimSuffix(strings.Repeat("1,", 60), ",")
	rec, err := internal.ParseRecord(line)
	require.NoError(t, err)

	s := newSolver(t, SolverParams{})
	got, err := s.CountRecord(rec)
	require.NoError(t, err)

	want := new(big.Int).Binomial(141, 60)
	assert.Zero(t, want.Cmp(got), "got %s, want %s", got, want)
	assert.False(t, got.IsUint64())
}

func TestSolver_Cache(t *testing.T) {
	records := loadExample(t)
	s := newSolver(t, SolverParams{UnfoldFactor: 5, CacheSize: 16})

	doubled := append(slices.Clone(records), records...)
	got, err := s.Sum(t.Context(), doubled)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(2*525152).String(), got.String())
	assert.Equal(t, len(records), s.cache.Len())

	again, err := s.CountRecord(records[5])
	require.NoError(t, err)
	assert.Equal(t, int64(506250), again.Int64())
}

func TestSolver_CacheKeyIncludesUnfold(t *testing.T) {
	rec, err := internal.ParseRecord("?###???????? 3,2,1")
	require.NoError(t, err)

	once := newSolver(t, SolverParams{UnfoldFactor: 1, CacheSize: 4})
	five := newSolver(t, SolverParams{UnfoldFactor: 5, CacheSize: 4})

	a, err := once.CountRecord(rec)
	require.NoError(t, err)
	b, err := five.CountRecord(rec)
	require.NoError(t, err)
	assert.Equal(t, int64(10), a.Int64())
	assert.Equal(t, int64(506250), b.Int64())
}

func TestCreateSolver_Defaults(t *testing.T) {
	s := newSolver(t, SolverParams{UnfoldFactor: -3})
	assert.Equal(t, 1, s.UnfoldFactor)
	assert.Positive(t, s.Workers)
	assert.Nil(t, s.cache)
}

func TestTotal(t *testing.T) {
	results := []Result{
		{Count: big.NewInt(3)},
		{},
		{Count: big.NewInt(4)},
	}
	assert.Equal(t, "7", Total(results).String())
	assert.Equal(t, "0", Total(nil).String())
}

func TestReadRecords(t *testing.T) {
	input := "???.### 1,1,3\n\n   \n  # 1  \n"
	records, err := ReadRecords(t.Context(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "???.### 1,1,3", records[0].String())
	assert.Equal(t, "# 1", records[1].String())
}

func TestLoadFromFile_Malformed(t *testing.T) {
	_, err := LoadFromFile(t.Context(), "testdata/malformed.txt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, internal.ErrParse))
	assert.Contains(t, err.Error(), "line 3")
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(t.Context(), "testdata/does-not-exist.txt")
	require.Error(t, err)
}

func TestParseLines(t *testing.T) {
	records, err := ParseLines(t.Context(), []string{"?#? 1", "??? 1,1"})
	require.NoError(t, err)

	s := newSolver(t, SolverParams{})
	got, err := s.Sum(t.Context(), records)
	require.NoError(t, err)
	assert.Equal(t, "2", got.String())
}

func TestParseLines_Errors(t *testing.T) {
	for _, tc := range []struct {
		name  string
		lines []string
		want  string
	}{
		{name: "blank", lines: []string{"?#? 1", ""}, want: "lines[1]"},
		{name: "spaces", lines: []string{"  "}, want: "lines[0]"},
		{name: "two records", lines: []string{"?#? 1\n??? 1,1"}, want: "lines[0]"},
		{name: "carriage return", lines: []string{"? 1", "?#? 1\r"}, want: "lines[1]"},
		{name: "bad group", lines: []string{"? 1", "? 1", "? x"}, want: "lines[2]"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseLines(t.Context(), tc.lines)
			require.Error(t, err)
			assert.ErrorIs(t, err, internal.ErrParse)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestSolver_HugeGroups(t *testing.T) {
	records, err := ParseLines(t.Context(), []string{
		"?? 9223372036854775807,1",
		"???.### 1,1,3",
		"? 9223372036854775807",
	})
	require.NoError(t, err)

	for _, unfold := range []int{1, 5} {
		s := newSolver(t, SolverParams{UnfoldFactor: unfold, Workers: 2})
		results, err := s.Solve(t.Context(), records)
		require.NoError(t, err)
		assert.Equal(t, "0", results[0].Count.String())
		assert.Equal(t, "1", results[1].Count.String())
		assert.Equal(t, "0", results[2].Count.String())
	}
}

func TestSolver_LongRecord(t *testing.T) {
	const n = 5_000_000
	rec, err := internal.ParseRecord(strings.Repeat("?", n) + " 1")
	require.NoError(t, err)

	s := newSolver(t, SolverParams{})
	got, err := s.CountRecord(rec)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(n).String(), got.String())
}

func TestLoadFromFile_LongLine(t *testing.T) {
	const n = 1 << 20
	path := filepath.Join(t.TempDir(), "long.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("?", n)+" 2\n"), 0o644))

	records, err := LoadFromFile(t.Context(), path)
	require.NoError(t, err)
	require.Len(t, records, 1)

	s := newSolver(t, SolverParams{})
	got, err := s.Sum(t.Context(), records)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(n-1).String(), got.String())
}

func TestSolveParts(t *testing.T) {
	records := loadExample(t)

	parts, err := SolveParts(t.Context(), records, SolverParams{UnfoldFactor: 3, Workers: 2, CacheSize: 8})
	require.NoError(t, err)
	assert.Equal(t, "21", parts.One.String())
	assert.Equal(t, "525152", parts.Two.String())
}

func TestSolveParts_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := SolveParts(ctx, loadExample(t), SolverParams{})
	assert.ErrorIs(t, err, context.Canceled)
}

func BenchmarkSolver_Sum(b *testing.B) {
	records := loadExample(b)
	b.ReportAllocs()

	for _, tc := range []struct {
		name    string
		workers int
	}{
		{name: "1 worker", workers: 1},
		{name: "4 workers", workers: 4},
	} {
		b.Run(tc.name, func(b *testing.B) {
			s := newSolver(b, SolverParams{UnfoldFactor: 5, Workers: tc.workers})
			for b.Loop() {
				total, err := s.Sum(b.Context(), records)
				if err != nil {
					b.Fatal(err)
				}
				b.ReportMetric(float64(total.Int64()), "arrangements")
			}
		})
	}
}
