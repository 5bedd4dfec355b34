package arrangements

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"crosswarped.com/arrangements/internal"
)

// maxLineSize is the longest line ReadRecords accepts.
const maxLineSize = 64 << 20

// ReadRecords parses one condition record per non-blank line of r.
//
// The first malformed line aborts the read; every line of a document is a
// required entry.
func ReadRecords(ctx context.Context, r io.Reader) ([]internal.Record, error) {
	var records []internal.Record
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLineSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		rec, err := internal.ParseRecord(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading records: %w", err)
	}
	return records, nil
}

// ParseLines parses every element of lines as exactly one record. Unlike
// ReadRecords, blank entries are errors, so the result lines up one to one
// with lines.
func ParseLines(ctx context.Context, lines []string) ([]internal.Record, error) {
	records := make([]internal.Record, len(lines))
	for i, line := range lines {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if strings.ContainsAny(line, "\r\n") {
			return nil, fmt.Errorf("lines[%d]: %w", i, &internal.ParseError{Line: line, Reason: "contains a line break"})
		}
		rec, err := internal.ParseRecord(line)
		if err != nil {
			return nil, fmt.Errorf("lines[%d]: %w", i, err)
		}
		records[i] = rec
	}
	return records, nil
}

// LoadFromFile reads all records from the file at path.
func LoadFromFile(ctx context.Context, path string) ([]internal.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadRecords(ctx, f)
}
