package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/sirupsen/logrus"

	"crosswarped.com/arrangements"
	"crosswarped.com/arrangements/internal"
	"crosswarped.com/arrangements/pkg/primitives"
)

func main() {
	file := flag.String("file", "", "The file to load condition records from")
	unfold := flag.Int("unfold", 1, fmt.Sprintf("Unfold each record this many times (%d for part two)", internal.PartTwoFactor))
	partTwo := flag.Bool("part2", false, "Shorthand for -unfold 5")
	both := flag.Bool("both", false, "Print the part one and part two totals")
	workers := flag.Int("workers", 0, "Number of records counted concurrently (0 = GOMAXPROCS)")
	cacheSize := flag.Int("cache", 0, "Remember counts for this many distinct records (0 disables)")
	verbose := flag.Bool("verbose", false, "Print the count for every record")
	show := flag.Int("show", 0, "Print up to this many arrangements of every record")

	timeout := flag.Duration("timeout", 1*time.Minute, "The timeout for counting")

	profile := flag.Bool("profile", false, "Profile the solver")
	profileFile := flag.String("profile-file", "cpu.pprof", "The file to write the CPU profile to")
	memoryProfileFile := flag.String("memory-profile-file", "mem.pprof", "The file to write the memory profile to")

	flag.Parse()

	log := arrangements.Log
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if *file == "" {
		log.Error("-file is required")
		os.Exit(1)
	}
	if *partTwo {
		if *unfold != 1 && *unfold != internal.PartTwoFactor {
			log.Errorf("Cannot use -part2 with -unfold %d", *unfold)
			os.Exit(1)
		}
		*unfold = internal.PartTwoFactor
	}
	if *both && (*partTwo || *unfold != 1) {
		log.Error("Cannot use -both with -unfold or -part2")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	records, err := arrangements.LoadFromFile(ctx, *file)
	if err != nil {
		log.WithError(err).Error("Error loading records from file")
		os.Exit(1)
	}
	log.WithFields(logrus.Fields{
		"file":    *file,
		"records": len(records),
		"unfold":  *unfold,
	}).Info("Loaded records")

	var mf *os.File
	if *profile {
		f, err := os.Create(*profileFile)
		if err != nil {
			log.WithError(err).Error("Error creating profile file")
			os.Exit(1)
		}
		defer f.Close()

		mf, err = os.Create(*memoryProfileFile)
		if err != nil {
			log.WithError(err).Error("Error creating memory profile file")
			os.Exit(1)
		}
		defer mf.Close()

		if err := pprof.StartCPUProfile(f); err != nil {
			log.WithError(err).Error("Error starting CPU profile")
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	params := arrangements.SolverParams{
		UnfoldFactor: *unfold,
		Workers:      *workers,
		CacheSize:    *cacheSize,
	}

	start := time.Now()
	if *both {
		parts, err := arrangements.SolveParts(ctx, records, params)
		if err != nil {
			log.WithError(err).Error("Error counting arrangements")
			os.Exit(1)
		}
		fmt.Printf("Part1: %s\n", parts.One)
		fmt.Printf("Part2: %s\n", parts.Two)
		log.WithField("elapsed", time.Since(start)).Info("Done")
		if mf != nil {
			pprof.WriteHeapProfile(mf)
		}
		return
	}

	solver, err := arrangements.CreateSolver(params)
	if err != nil {
		log.WithError(err).Error("Error creating solver")
		os.Exit(1)
	}

	results, err := solver.Solve(ctx, records)
	if err != nil {
		log.WithError(err).Error("Error counting arrangements")
		os.Exit(1)
	}

	if *verbose || *show > 0 {
		for _, r := range results {
			fmt.Printf("%4d  %s  unknown=%d  %s\n", r.Index+1, r.Record, r.Record.Pattern.NumUnknown(), r.Count)
			printArrangements(ctx, r.Record.Unfold(*unfold), *show)
		}
		fmt.Println("--------------------------------")
	}
	fmt.Println(arrangements.Total(results))

	log.WithField("elapsed", time.Since(start)).Info("Done")

	if mf != nil {
		pprof.WriteHeapProfile(mf)
	}
}

func printArrangements(ctx context.Context, rec internal.Record, limit int) {
	if limit <= 0 {
		return
	}
	if len(rec.Pattern) > primitives.MaxRecursiveLen {
		arrangements.Log.WithField("cells", len(rec.Pattern)).Warn("Record too long to list arrangements")
		return
	}
	shown := 0
	for a := range primitives.Arrangements(ctx, rec.Pattern, rec.Groups) {
		fmt.Printf("      %s\n", a)
		shown++
		if shown >= limit {
			break
		}
	}
}
