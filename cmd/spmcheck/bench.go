package main

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/samcharles93/spmcheck/internal/logger"
	"github.com/samcharles93/spmcheck/internal/sentencepiece"
)

type benchResult struct {
	Samples  int64
	Tokens   int64
	Bytes    int64
	Duration time.Duration
}

func benchCmd() *cli.Command {
	var (
		warmupRuns int64
		benchRuns  int64
		workers    int64
		noProgress bool
	)

	return &cli.Command{
		Name:    "bench",
		Aliases: []string{"benchmark"},
		Usage:   "Measure encode and decode throughput over the corpus",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:        "warmup",
				Usage:       "number of untimed passes over the corpus",
				Value:       1,
				Destination: &warmupRuns,
			},
			&cli.Int64Flag{
				Name:        "runs",
				Aliases:     []string{"n"},
				Usage:       "number of timed passes over the corpus",
				Value:       100,
				Destination: &benchRuns,
			},
			&cli.Int64Flag{
				Name:        "workers",
				Aliases:     []string{"j"},
				Usage:       "concurrent passes (defaults to GOMAXPROCS)",
				Destination: &workers,
			},
			&cli.BoolFlag{
				Name:        "no-progress",
				Usage:       "hide the progress bar",
				Destination: &noProgress,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx, _, err := prepare(ctx, cmd)
			if err != nil {
				return err
			}
			log := logger.FromContext(ctx)
			if benchRuns < 1 {
				return cli.Exit("error: --runs must be at least 1", 1)
			}
			if workers < 1 {
				workers = int64(runtime.GOMAXPROCS(0))
			}

			corpus, err := loadCorpus()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			loadStart := time.Now()
			proc, path, err := openModel(ctx, cmd)
			if err != nil {
				return err
			}
			loadDuration := time.Since(loadStart)

			for i := range int(warmupRuns) {
				log.Debug("warmup run", "run", i+1)
				if _, err := benchPass(proc, corpus); err != nil {
					return cli.Exit(fmt.Sprintf("error: warmup run %d: %v", i+1, err), 1)
				}
			}

			var bar *progressbar.ProgressBar
			if !noProgress {
				bar = progressbar.NewOptions64(benchRuns,
					progressbar.OptionSetWriter(errWriter(cmd)),
					progressbar.OptionSetDescription("Encoding"),
					progressbar.OptionSetWidth(40),
					progressbar.OptionShowCount(),
					progressbar.OptionShowIts(),
					progressbar.OptionSetItsString("pass"),
					progressbar.OptionClearOnFinish(),
					progressbar.OptionSetTheme(progressbar.Theme{
						Saucer:        "=",
						SaucerHead:    ">",
						SaucerPadding: " ",
						BarStart:      "[",
						BarEnd:        "]",
					}),
				)
			}

			res, err := runBench(ctx, proc, corpus, int(benchRuns), int(workers), func() {
				if bar != nil {
					_ = bar.Add(1)
				}
			})
			if bar != nil {
				_ = bar.Finish()
			}
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			writeBenchReport(outWriter(cmd), path, loadDuration, len(corpus), int(benchRuns), int(workers), res)
			return nil
		},
	}
}

// runBench runs passes over corpus on up to workers goroutines and calls
// done after each pass.
func runBench(ctx context.Context, proc *sentencepiece.Processor, corpus []string, runs, workers int, done func()) (benchResult, error) {
	var samples, tokens, bytes atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	start := time.Now()
	for range runs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			n, err := benchPass(proc, corpus)
			if err != nil {
				return err
			}
			samples.Add(int64(len(corpus)))
			tokens.Add(int64(n))
			for _, s := range corpus {
				bytes.Add(int64(len(s)))
			}
			done()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return benchResult{}, err
	}
	return benchResult{
		Samples:  samples.Load(),
		Tokens:   tokens.Load(),
		Bytes:    bytes.Load(),
		Duration: time.Since(start),
	}, nil
}

// benchPass encodes and decodes every sample once and returns the number of
// ids produced.
func benchPass(proc *sentencepiece.Processor, corpus []string) (int, error) {
	total := 0
	for _, text := range corpus {
		ids := proc.EncodeAsIDs(text)
		if _, err := proc.Decode(ids); err != nil {
			return 0, err
		}
		total += len(ids)
	}
	return total, nil
}

func writeBenchReport(w io.Writer, path string, load time.Duration, samples, runs, workers int, res benchResult) {
	secs := res.Duration.Seconds()
	if secs <= 0 {
		secs = 1e-9
	}
	fmt.Fprintln(w, "=== spmcheck bench ===")
	fmt.Fprintf(w, "Model:    %s\n", path)
	fmt.Fprintf(w, "Load:     %s\n", load.Round(time.Microsecond))
	fmt.Fprintf(w, "Corpus:   %d samples\n", samples)
	fmt.Fprintf(w, "Runs:     %d (%d workers)\n", runs, workers)
	fmt.Fprintf(w, "Elapsed:  %s\n", res.Duration.Round(time.Microsecond))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-10s %14s\n", "samples/s", fmt.Sprintf("%.0f", float64(res.Samples)/secs))
	fmt.Fprintf(w, "%-10s %14s\n", "tokens/s", fmt.Sprintf("%.0f", float64(res.Tokens)/secs))
	fmt.Fprintf(w, "%-10s %14s\n", "MB/s", fmt.Sprintf("%.2f", float64(res.Bytes)/secs/(1024*1024)))
}
