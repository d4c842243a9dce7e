// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/mboxsearch"
	"github.com/poiesic/mboxsearch/ai"
	"github.com/poiesic/mboxsearch/ai/openai"
	"github.com/poiesic/mboxsearch/mailbox"
)

// newProvider builds the embedding provider; tests replace it.
var newProvider = func(cfg *ai.Config) (ai.AIProvider, error) {
	return openai.NewProvider(cfg)
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "mboxsearch",
		Usage:     "Semantic search over an mbox archive",
		ArgsUsage: "<query> <mbox-file>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "embedding-host",
				Usage: "Embedding service host URL",
				Value: "http://localhost:11434/v1",
			},
			&cli.StringFlag{
				Name:  "embedding-model",
				Usage: "Embedding model name",
				Value: "all-minilm",
			},
			&cli.IntFlag{
				Name:  "dimensions",
				Usage: "Expected embedding dimension (0 disables the check)",
				Value: 384,
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Number of embedding workers (0 picks half the CPUs)",
			},
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Number of messages to embed in each batch",
				Value: mailbox.DefaultBatchSize,
			},
			&cli.IntFlag{
				Name:    "results",
				Aliases: []string{"k"},
				Usage:   "Number of results to print",
				Value:   mailbox.DefaultResults,
			},
			&cli.StringFlag{
				Name:  "cache-dir",
				Usage: "Directory for the persistent embedding cache (disabled when empty)",
			},
			&cli.StringFlag{
				Name:  "metrics-file",
				Usage: "Write Prometheus metrics in text format to this file on exit",
			},
			&cli.IntFlag{
				Name:  "max-retries",
				Usage: "Maximum attempts per embedding chunk",
				Value: 1,
			},
			&cli.DurationFlag{
				Name:  "retry-delay",
				Usage: "Base delay for exponential backoff",
				Value: 1 * time.Second,
			},
			&cli.BoolFlag{
				Name:  "progress",
				Usage: "Print indexing progress to stderr",
			},
		},
		Before: setupLogger,
		Action: searchCommand,
	}
}

func searchCommand(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("expected <query> <mbox-file>, got %d arguments", c.NArg())
	}
	query, path := c.Args().Get(0), c.Args().Get(1)

	if c.Int("batch-size") <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if c.Int("max-retries") <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}
	if c.Int("workers") < 0 {
		return fmt.Errorf("workers must not be negative")
	}

	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithDimensions(c.Int("dimensions")),
	)
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	provider, err := newProvider(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create embedding provider: %w", err)
	}

	registry := prometheus.NewRegistry()
	opts := []mboxsearch.Option{
		mboxsearch.WithAIConfig(aiConfig),
		mboxsearch.WithProvider(provider),
		mboxsearch.WithWorkers(c.Int("workers")),
		mboxsearch.WithBatchSize(c.Int("batch-size")),
		mboxsearch.WithRetry(c.Int("max-retries"), c.Duration("retry-delay")),
		mboxsearch.WithCacheDir(c.String("cache-dir")),
		mboxsearch.WithMetrics(registry),
	}
	if c.Bool("progress") {
		opts = append(opts, mboxsearch.WithProgress(c.App.ErrWriter))
	}

	archive, err := mboxsearch.Open(path, opts...)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer archive.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	report := archive.Index(ctx)
	slog.Info("archive indexed",
		"messages", archive.Storage().CountEmails(),
		"indexed", report.Indexed,
		"skipped", report.Skipped,
		"failed_batches", report.FailedBatches)

	results, err := archive.Search(ctx, query, c.Int("results"))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	w := c.App.Writer
	for _, r := range results {
		fmt.Fprintf(w, "Score : %g\n", r.Score)
		fmt.Fprintln(w, r.Message.String())
	}

	if metricsFile := c.String("metrics-file"); metricsFile != "" {
		if err := prometheus.WriteToTextfile(metricsFile, registry); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
