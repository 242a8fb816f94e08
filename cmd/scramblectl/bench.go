package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
)

type benchResult struct {
	Sample    string `json:"sample"`
	Chars     int    `json:"chars"`
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	Run       int    `json:"run"`
	ElapsedMs int64  `json:"elapsed_ms"`
	WallMs    int64  `json:"wall_ms"`
	OutChars  int    `json:"out_chars"`
	Error     string `json:"error,omitempty"`
}

func benchCommand() *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "Measure enhancement latency against the server",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "runs", Usage: "number of runs per sample", Value: 3},
			&cli.StringFlag{Name: "prompt", Aliases: []string{"p"}, Usage: "prompt `ID`", Value: "fix_grammar"},
			&cli.BoolFlag{Name: "quality", Usage: "show input and output for each quality sample (1 run, no timing table)"},
			&cli.StringFlag{Name: "json", Usage: "write results to `FILE`"},
			&cli.BoolFlag{Name: "warmup", Usage: "run one discarded request per sample before measuring"},
		},
		Action: runBench,
	}
}

func runBench(c *cli.Context) error {
	client := newClient(c)
	out := c.App.Writer
	promptID := c.String("prompt")

	if c.Bool("quality") {
		return runQuality(c.Context, client, out, promptID)
	}

	runs := c.Int("runs")
	fmt.Fprintf(out, "Benchmarking against %s using prompt %s (%d runs per sample", client.baseURL, promptID, runs)
	if c.Bool("warmup") {
		fmt.Fprint(out, ", warmup enabled")
	}
	fmt.Fprintln(out, ")")

	var results []benchResult
	var failures int
	for _, s := range samples {
		if c.Bool("warmup") {
			fmt.Fprintf(out, "  Warming up %s...", s.Name)
			w := benchOnce(c.Context, client, promptID, s, 0)
			if w.Error != "" {
				fmt.Fprintf(out, " FAILED (%s)\n", w.Error)
			} else {
				fmt.Fprintf(out, " %dms (discarded)\n", w.ElapsedMs)
			}
		}
		for run := 1; run <= runs; run++ {
			fmt.Fprintf(out, "  Running %s (run %d/%d)...", s.Name, run, runs)
			r := benchOnce(c.Context, client, promptID, s, run)
			results = append(results, r)
			if r.Error != "" {
				fmt.Fprintf(out, " FAILED (%s)\n", r.Error)
				failures++
			} else {
				fmt.Fprintf(out, " %dms\n", r.ElapsedMs)
			}
		}
	}

	fmt.Fprintln(out)
	printTable(out, results)
	printSummary(out, results)

	if path := c.String("json"); path != "" {
		if err := writeReport(path, results, client.baseURL, promptID); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Fprintf(out, "\nResults written to %s\n", path)
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d runs failed", failures, len(results))
	}
	return nil
}

func benchOnce(ctx context.Context, client *apiClient, promptID string, s sample, run int) benchResult {
	r := benchResult{Sample: s.Name, Chars: len(s.Text), Run: run}
	start := time.Now()
	res, err := client.Enhance(ctx, promptID, s.Text)
	r.WallMs = time.Since(start).Milliseconds()
	if err != nil {
		r.Error = err.Error()
		return r
	}
	r.Provider = string(res.Provider)
	r.Model = res.Model
	r.ElapsedMs = res.Elapsed.Milliseconds()
	r.OutChars = len(res.Text)
	return r
}

func printTable(w io.Writer, results []benchResult) {
	fmt.Fprintln(w, "| Sample | Chars | Model | Run | Elapsed (ms) | Wall (ms) | Out Chars | Ratio |")
	fmt.Fprintln(w, "|--------|-------|-------|-----|--------------|-----------|-----------|-------|")
	for _, r := range results {
		if r.Error != "" {
			fmt.Fprintf(w, "| %-6s | %5d | %-20s | %d | %12s | %9s | %9s | %5s |\n",
				r.Sample, r.Chars, "-", r.Run, "FAIL", "-", "-", "-")
			continue
		}
		ratio := float64(r.OutChars) / float64(r.Chars)
		fmt.Fprintf(w, "| %-6s | %5d | %-20s | %d | %12d | %9d | %9d | %5.2f |\n",
			r.Sample, r.Chars, r.Model, r.Run, r.ElapsedMs, r.WallMs, r.OutChars, ratio)
	}
}

func printSummary(w io.Writer, results []benchResult) {
	var ok []benchResult
	for _, r := range results {
		if r.Error == "" {
			ok = append(ok, r)
		}
	}
	if len(ok) == 0 {
		fmt.Fprintf(w, "\nSummary: all %d runs failed\n", len(results))
		return
	}

	var totalElapsed int64
	var totalChars int
	fastest, slowest := ok[0], ok[0]
	for _, r := range ok {
		totalElapsed += r.ElapsedMs
		totalChars += r.Chars
		if r.ElapsedMs < fastest.ElapsedMs {
			fastest = r
		}
		if r.ElapsedMs > slowest.ElapsedMs {
			slowest = r
		}
	}

	fmt.Fprintf(w, "\nSummary:\n")
	fmt.Fprintf(w, "- Avg ms/char: %.2f\n", float64(totalElapsed)/float64(totalChars))
	fmt.Fprintf(w, "- Min elapsed: %dms (%s)\n", fastest.ElapsedMs, fastest.Sample)
	fmt.Fprintf(w, "- Max elapsed: %dms (%s)\n", slowest.ElapsedMs, slowest.Sample)
	fmt.Fprintf(w, "- Total runs: %d (%d ok, %d failed)\n", len(results), len(ok), len(results)-len(ok))
}

func runQuality(ctx context.Context, client *apiClient, w io.Writer, promptID string) error {
	fmt.Fprintf(w, "Quality test against %s using prompt %s\n", client.baseURL, promptID)
	fmt.Fprintln(w, strings.Repeat("=", 72))

	var failures int
	for i, s := range qualitySamples {
		fmt.Fprintf(w, "\n--- %d/%d: %s (%d chars) ---\n", i+1, len(qualitySamples), s.Name, len(s.Text))
		fmt.Fprintf(w, "IN:  %s\n", s.Text)

		res, err := client.Enhance(ctx, promptID, s.Text)
		if err != nil {
			fmt.Fprintf(w, "ERR: %s\n", err)
			failures++
			continue
		}
		fmt.Fprintf(w, "OUT: %s\n", res.Text)
		fmt.Fprintf(w, "     [%dms, %d->%d chars]\n", res.Elapsed.Milliseconds(), len(s.Text), len(res.Text))
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 72))
	fmt.Fprintf(w, "Done: %d/%d passed\n", len(qualitySamples)-failures, len(qualitySamples))
	if failures > 0 {
		return fmt.Errorf("%d quality samples failed", failures)
	}
	return nil
}

type benchReport struct {
	Timestamp string        `json:"timestamp"`
	URL       string        `json:"url"`
	PromptID  string        `json:"prompt_id"`
	Results   []benchResult `json:"results"`
}

func writeReport(path string, results []benchResult, baseURL, promptID string) error {
	data, err := json.MarshalIndent(benchReport{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		URL:       baseURL,
		PromptID:  promptID,
		Results:   results,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
