// Loadtest fires concurrent requests at the load balancer and reports
// throughput, latency percentiles and how requests were spread across
// backends, using the X-Backend-Server response header.
//
// Usage:
//
//	go run ./scripts/loadtest -url http://localhost:8000/ -concurrency 10 -requests 1000
//	go run ./scripts/loadtest -method POST -body '{"x":1}' -csv results.csv -out summary.json
package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"maps"
	"net/http"
	"os"
	"slices"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
)

const unknownBackend = "(none)"

type result struct {
	idx      int
	backend  string
	status   int
	duration time.Duration
	err      error
}

type backendSummary struct {
	Total   int     `json:"total"`
	Success int     `json:"success"`
	Failure int     `json:"failure"`
	P50     float64 `json:"p50_ms"`
	P90     float64 `json:"p90_ms"`
	P99     float64 `json:"p99_ms"`
}

type summary struct {
	Target        string                    `json:"target"`
	Total         int                       `json:"total"`
	Success       int                       `json:"success"`
	Failure       int                       `json:"failure"`
	DurationMS    int64                     `json:"duration_ms"`
	ThroughputRPS float64                   `json:"throughput_rps"`
	StatusCodes   map[int]int               `json:"status_codes"`
	Backends      map[string]backendSummary `json:"backends"`
}

type options struct {
	url         string
	method      string
	body        string
	contentType string
	concurrency int
	requests    int
}

func main() {
	var opts options
	flag.StringVar(&opts.url, "url", "http://localhost:8000/", "Target URL")
	flag.StringVar(&opts.method, "method", http.MethodGet, "HTTP method")
	flag.StringVar(&opts.body, "body", "", "Request body")
	flag.StringVar(&opts.contentType, "content-type", "application/json", "Content-Type header")
	flag.IntVar(&opts.concurrency, "concurrency", 10, "Number of concurrent workers")
	flag.IntVar(&opts.requests, "requests", 100, "Total number of requests to send")
	timeout := flag.Duration("timeout", 10*time.Second, "Per-request timeout")
	outJSON := flag.String("out", "", "Write JSON summary to this file (optional)")
	outCSV := flag.String("csv", "", "Write per-request CSV to this file (optional)")
	flag.Parse()

	client := &http.Client{Timeout: *timeout}

	start := time.Now()
	results, err := run(context.Background(), client, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load test aborted: %v\n", err)
		os.Exit(1)
	}

	s := summarize(opts.url, results, time.Since(start))
	printSummary(s)

	if *outCSV != "" {
		if err := writeCSV(*outCSV, results); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write csv: %v\n", err)
			os.Exit(1)
		}
	}

	if *outJSON != "" {
		if err := writeJSON(*outJSON, s); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write json: %v\n", err)
			os.Exit(1)
		}
	}

	if s.Failure > 0 {
		os.Exit(2)
	}
}

// run sends opts.requests requests from opts.concurrency workers. Request
// failures are recorded in the results, not returned.
func run(ctx context.Context, client *http.Client, opts options) ([]result, error) {
	results := make([]result, opts.requests)
	jobs := make(chan int)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		for i := range opts.requests {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for range opts.concurrency {
		g.Go(func() error {
			for idx := range jobs {
				results[idx] = send(ctx, client, opts, idx)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func send(ctx context.Context, client *http.Client, opts options, idx int) result {
	res := result{idx: idx, backend: unknownBackend}

	req, err := http.NewRequestWithContext(ctx, opts.method, opts.url, bytes.NewBufferString(opts.body))
	if err != nil {
		res.err = err
		return res
	}
	if opts.body != "" {
		req.Header.Set("Content-Type", opts.contentType)
	}

	started := time.Now()
	resp, err := client.Do(req)
	res.duration = time.Since(started)
	if err != nil {
		res.err = err
		return res
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	res.status = resp.StatusCode
	if b := resp.Header.Get("X-Backend-Server"); b != "" {
		res.backend = b
	}

	return res
}

func (r result) ok() bool {
	return r.err == nil && r.status >= 200 && r.status <= 299
}

func summarize(target string, results []result, elapsed time.Duration) summary {
	s := summary{
		Target:      target,
		Total:       len(results),
		DurationMS:  elapsed.Milliseconds(),
		StatusCodes: make(map[int]int),
		Backends:    make(map[string]backendSummary),
	}

	if elapsed > 0 {
		s.ThroughputRPS = float64(len(results)) / elapsed.Seconds()
	}

	latencies := make(map[string][]time.Duration)
	for _, r := range results {
		bs := s.Backends[r.backend]
		bs.Total++
		if r.ok() {
			s.Success++
			bs.Success++
		} else {
			s.Failure++
			bs.Failure++
		}
		if r.err == nil {
			s.StatusCodes[r.status]++
		}
		s.Backends[r.backend] = bs
		latencies[r.backend] = append(latencies[r.backend], r.duration)
	}

	for name, lat := range latencies {
		slices.Sort(lat)
		bs := s.Backends[name]
		bs.P50 = percentileMS(lat, 0.50)
		bs.P90 = percentileMS(lat, 0.90)
		bs.P99 = percentileMS(lat, 0.99)
		s.Backends[name] = bs
	}

	return s
}

// percentileMS expects sorted input.
func percentileMS(sorted []time.Duration, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	d := sorted[int(float64(len(sorted)-1)*p)]
	return float64(d.Microseconds()) / 1000.0
}

func printSummary(s summary) {
	fmt.Printf("Target: %s\n", s.Target)
	fmt.Printf("Requests: %d  success: %d  failure: %d\n", s.Total, s.Success, s.Failure)
	fmt.Printf("Duration: %dms  throughput: %.1f req/s\n", s.DurationMS, s.ThroughputRPS)

	fmt.Println("\nStatus codes:")
	for _, code := range slices.Sorted(maps.Keys(s.StatusCodes)) {
		fmt.Printf("  %d: %d\n", code, s.StatusCodes[code])
	}

	fmt.Println("\nBackends:")
	for _, name := range slices.Sorted(maps.Keys(s.Backends)) {
		bs := s.Backends[name]
		share := 100 * float64(bs.Total) / float64(max(s.Total, 1))
		fmt.Printf("  %s: %d (%.1f%%) success=%d failure=%d p50=%.2fms p90=%.2fms p99=%.2fms\n",
			name, bs.Total, share, bs.Success, bs.Failure, bs.P50, bs.P90, bs.P99)
	}
}

func writeCSV(path string, results []result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	_ = w.Write([]string{"idx", "backend", "status", "duration_ms", "error"})
	for _, r := range results {
		errText := ""
		if r.err != nil {
			errText = r.err.Error()
		}
		_ = w.Write([]string{
			strconv.Itoa(r.idx),
			r.backend,
			strconv.Itoa(r.status),
			fmt.Sprintf("%.3f", float64(r.duration.Microseconds())/1000.0),
			errText,
		})
	}
	w.Flush()

	return w.Error()
}

func writeJSON(path string, s summary) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
