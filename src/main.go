package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"regexp"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/iterator"

	"crosswarped.com/arrangements"
)

const maxLines = 5000

type CountArrangementsRequest struct {
	Lines   []string `json:"lines"`
	Unfold  int      `json:"unfold"`
	Dataset string   `json:"dataset"`
}

type CountArrangementsResponse struct {
	Success bool     `json:"success"`
	Total   string   `json:"total,omitempty"`
	Counts  []string `json:"counts,omitempty"`
	Error   string   `json:"error,omitempty"`
}

var datasetPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

var errLineSource = errors.New("loading lines from dataset")

// lineSource loads extra condition records from a named dataset. Replaced in tests.
var lineSource = getLines

func projectID() string {
	if p := os.Getenv("BIGQUERY_PROJECT"); p != "" {
		return p
	}
	return "xword-x"
}

func getLines(ctx context.Context, dataset string) ([]string, error) {
	client, err := bigquery.NewClient(ctx, projectID())
	if err != nil {
		return nil, fmt.Errorf("bigquery.NewClient: %w", err)
	}
	defer client.Close()

	query := fmt.Sprintf("SELECT line FROM `%s.%s.records` ORDER BY line_number", projectID(), dataset)
	q := client.Query(query)
	q.Location = "US"

	job, err := q.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("q.Run: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("job.Wait: %w", err)
	}
	if err := status.Err(); err != nil {
		return nil, fmt.Errorf("status.Err: %w", err)
	}
	it, err := job.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("job.Read: %w", err)
	}

	var lines []string
	for {
		var row []bigquery.Value
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("it.Next: %w", err)
		}

		line, ok := row[0].(string)
		if !ok {
			return nil, fmt.Errorf("row[0] is not a string: %v", row[0])
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func execute(ctx context.Context, req CountArrangementsRequest) (total string, counts []string, err error) {
	if req.Unfold == 0 {
		req.Unfold = 1
	}
	if req.Unfold < 1 || req.Unfold > 10 {
		return "", nil, fmt.Errorf("unfold must be between 1 and 10")
	}

	lines := req.Lines
	if req.Dataset != "" {
		if !datasetPattern.MatchString(req.Dataset) {
			return "", nil, fmt.Errorf("invalid dataset name %q", req.Dataset)
		}
		extra, err := lineSource(ctx, req.Dataset)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %w", errLineSource, err)
		}
		arrangements.Log.WithFields(logrus.Fields{
			"dataset": req.Dataset,
			"lines":   len(extra),
		}).Info("Loaded lines from BigQuery")
		lines = append(lines, extra...)
	}

	if len(lines) == 0 {
		return "", nil, fmt.Errorf("lines must not be empty")
	}
	if len(lines) > maxLines {
		return "", nil, fmt.Errorf("at most %d lines may be counted, got %d", maxLines, len(lines))
	}

	records, err := arrangements.ParseLines(ctx, lines)
	if err != nil {
		return "", nil, err
	}

	solver, err := arrangements.CreateSolver(arrangements.SolverParams{UnfoldFactor: req.Unfold})
	if err != nil {
		return "", nil, err
	}

	timeout := 1 * time.Minute
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline) - 5*time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results, err := solver.Solve(ctx, records)
	if err != nil {
		return "", nil, err
	}

	counts = make([]string, len(results))
	for i, r := range results {
		counts[i] = r.Count.String()
	}
	return arrangements.Total(results).String(), counts, nil
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Content-Type", "application/json")
}

func writeResponse(w http.ResponseWriter, status int, response CountArrangementsResponse) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		arrangements.Log.WithError(err).Error("Error marshaling response")
	}
}

func countArrangements(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)

	// Handle OPTIONS request for CORS preflight
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Method != http.MethodPost {
		writeResponse(w, http.StatusMethodNotAllowed, CountArrangementsResponse{
			Error: fmt.Sprintf("Method %s not allowed", r.Method),
		})
		return
	}

	var req CountArrangementsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		arrangements.Log.WithError(err).Warn("Error parsing JSON body")
		writeResponse(w, http.StatusBadRequest, CountArrangementsResponse{
			Error: fmt.Sprintf("Invalid JSON: %v", err),
		})
		return
	}

	total, counts, err := execute(r.Context(), req)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		} else if errors.Is(err, errLineSource) {
			status = http.StatusBadGateway
		}
		writeResponse(w, status, CountArrangementsResponse{Error: err.Error()})
		return
	}

	writeResponse(w, http.StatusOK, CountArrangementsResponse{
		Success: true,
		Total:   total,
		Counts:  counts,
	})
}

func main() {
	_ = godotenv.Load()

	funcframework.RegisterHTTPFunction("/count-arrangements", countArrangements)

	port := "8080"
	if envPort := os.Getenv("PORT"); envPort != "" {
		port = envPort
	}
	hostname := ""
	if localOnly := os.Getenv("LOCAL_ONLY"); localOnly == "true" {
		hostname = "127.0.0.1"
	}
	if err := funcframework.StartHostPort(hostname, port); err != nil {
		log.Fatalf("funcframework.StartHostPort: %v\n", err)
	}
}
