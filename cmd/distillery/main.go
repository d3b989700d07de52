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
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/poiesic/distillery"
	"github.com/poiesic/distillery/ai"
	"github.com/poiesic/distillery/core"
	"github.com/poiesic/distillery/distill"
	"github.com/poiesic/distillery/retrieval"
	"github.com/poiesic/distillery/vectorindex"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "distillery",
		Usage: "Distill conversations into knowledge and search the catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run the selector, distiller and refiner until interrupted",
				Action: runCommand,
				Flags: append(commonFlags(),
					&cli.DurationFlag{
						Name:  "scan-interval",
						Usage: "Pause between scans for threads needing distillation",
						Value: distill.DefaultConfig().ScanInterval,
					},
					&cli.DurationFlag{
						Name:  "heartbeat-max-age",
						Usage: "Scan only while the newest agent heartbeat is younger than this",
						Value: distill.DefaultConfig().HeartbeatMaxAge,
					},
					&cli.DurationFlag{
						Name:  "lookback",
						Usage: "Ignore threads idle for longer than this (0 disables)",
					},
					&cli.IntFlag{
						Name:  "queue-capacity",
						Usage: "Threads handed to the distiller before the selector blocks",
						Value: distill.DefaultConfig().QueueCapacity,
					},
				),
			},
			{
				Name:      "search",
				Usage:     "Search the catalog or a memo scope",
				ArgsUsage: "<query text>",
				Action:    searchCommand,
				Flags: append(append(commonFlags(), indexFlags()...), searchFlags()...),
			},
			{
				Name:   "rebuild-index",
				Usage:  "Rebuild the vector index snapshot from the embedding store",
				Action: rebuildCommand,
				Flags: append(commonFlags(), append(indexFlags(),
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of embedding rows fetched per page",
						Value: vectorindex.DefaultConfig().BatchSize,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N rows",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts per page fetch",
						Value: vectorindex.DefaultConfig().MaxRetries,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: vectorindex.DefaultConfig().RetryDelay,
					},
				)...),
			},
			{
				Name:   "beat",
				Usage:  "Record an agent heartbeat",
				Action: beatCommand,
				Flags: []cli.Flag{
					dataFlag(),
					&cli.StringFlag{
						Name:  "agent",
						Usage: "Name of the agent reporting activity",
						Value: "agent",
					},
				},
			},
		},
	}
}

func dataFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "data",
		Aliases:  []string{"d"},
		Usage:    "Path to the data directory",
		Required: true,
	}
}

func commonFlags() []cli.Flag {
	defaults := ai.DefaultConfig()
	return []cli.Flag{
		dataFlag(),
		&cli.StringFlag{
			Name:    "embedding-host",
			Usage:   "Embedding service host URL",
			Value:   defaults.EmbeddingHost,
			EnvVars: []string{"DISTILLERY_EMBEDDING_HOST"},
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Usage:   "Embedding model name",
			Value:   defaults.EmbeddingModel,
			EnvVars: []string{"DISTILLERY_EMBEDDING_MODEL"},
		},
		&cli.StringFlag{
			Name:    "completion-host",
			Usage:   "Completion service host URL",
			Value:   defaults.CompletionHost,
			EnvVars: []string{"DISTILLERY_COMPLETION_HOST"},
		},
		&cli.StringFlag{
			Name:    "completion-model",
			Usage:   "Completion model name",
			Value:   defaults.CompletionModel,
			EnvVars: []string{"DISTILLERY_COMPLETION_MODEL"},
		},
		&cli.StringFlag{
			Name:    "token",
			Usage:   "API token for the AI services",
			Value:   defaults.Token,
			EnvVars: []string{"DISTILLERY_TOKEN"},
		},
	}
}

func indexFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "corpus",
			Usage: "Embedding corpus to index",
			Value: vectorindex.DefaultConfig().Corpus,
		},
		&cli.IntFlag{
			Name:  "dimensions",
			Usage: "Embedding dimensionality",
			Value: vectorindex.DefaultConfig().Dimensions,
		},
	}
}

func searchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "scope",
			Usage: `Search scope: "catalog" or a memo directory name`,
			Value: "catalog",
		},
		&cli.IntFlag{
			Name:  "top-n",
			Usage: "Maximum catalog results (capped at 50)",
			Value: retrieval.DefaultTopN,
		},
		&cli.StringFlag{
			Name:  "verbosity",
			Usage: "Catalog detail: short or full",
			Value: "short",
		},
		&cli.StringFlag{
			Name:  "source",
			Usage: "Only return catalog entities from this source",
		},
		&cli.StringFlag{
			Name:  "entity",
			Usage: "Look up DATABASE.SCHEMA.TABLE directly instead of searching",
		},
	}
}

func openDatabase(c *cli.Context) (*distillery.Database, error) {
	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithCompletionHost(c.String("completion-host")),
		ai.WithCompletionModel(c.String("completion-model")),
		ai.WithToken(c.String("token")),
		// zero outside the commands that read an index
		ai.WithEmbeddingDimensions(c.Int("dimensions")),
	)
	aiConfig.Normalize()
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	db, err := distillery.NewDatabase(c.String("data"), distillery.WithAIConfig(aiConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func indexConfig(c *cli.Context) *vectorindex.Config {
	config := vectorindex.DefaultConfig()
	config.Corpus = c.String("corpus")
	config.Dimensions = c.Int("dimensions")
	if c.IsSet("batch-size") {
		config.BatchSize = c.Int("batch-size")
	}
	if c.IsSet("max-retries") {
		config.MaxRetries = c.Int("max-retries")
	}
	if c.IsSet("retry-delay") {
		config.RetryDelay = c.Duration("retry-delay")
	}
	return config
}

func runCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	config := distill.DefaultConfig()
	config.ScanInterval = c.Duration("scan-interval")
	config.HeartbeatMaxAge = c.Duration("heartbeat-max-age")
	config.Lookback = c.Duration("lookback")
	config.QueueCapacity = c.Int("queue-capacity")

	pipeline, err := db.NewPipeline(distill.WithConfig(config))
	if err != nil {
		return err
	}

	slog.Info("distillation pipeline started", "data", c.String("data"))
	if err := pipeline.Run(ctx); err != nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}
	slog.Info("distillation pipeline stopped")
	return nil
}

func searchCommand(c *cli.Context) error {
	verbosity, err := parseVerbosity(c.String("verbosity"))
	if err != nil {
		return err
	}
	scope, err := retrieval.ParseScope(c.String("scope"))
	if err != nil {
		return err
	}
	query := retrieval.Query{
		Text:      strings.Join(c.Args().Slice(), " "),
		TopN:      c.Int("top-n"),
		Scope:     scope,
		Verbosity: verbosity,
	}
	if entity := c.String("entity"); entity != "" {
		ptr, err := core.ParseEntityPointer(entity)
		if err != nil {
			return err
		}
		query.Entity = &ptr
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	cache, err := db.NewIndexCache(indexConfig(c))
	if err != nil {
		return err
	}
	searcher, err := db.NewSearcher(cache, retrieval.WithSource(c.String("source")))
	if err != nil {
		return err
	}
	defer searcher.Release()

	results, err := searcher.Search(c.Context, query)
	if err != nil {
		return err
	}
	printResults(c, results)
	return nil
}

func printResults(c *cli.Context, results []retrieval.Result) {
	out := c.App.Writer
	fmt.Fprintf(out, "Found %d hits\n", len(results))
	for i, r := range results {
		if r.NotFound {
			fmt.Fprintf(out, "%d: '%s' not found\n", i, r.Name)
			continue
		}
		fmt.Fprintf(out, "%d: '%s' [%0.3f]\n%s\n", i, r.Name, r.Score, r.Content)
	}
}

func rebuildCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	reportInterval := c.Int("report-interval")
	if reportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}

	cache, err := db.NewIndexCache(indexConfig(c), vectorindex.WithProgress(c.App.ErrWriter, reportInterval))
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.ErrWriter, "Data: %s\n", c.String("data"))
	fmt.Fprintf(c.App.ErrWriter, "Corpus: %s\n", c.String("corpus"))
	fmt.Fprintln(c.App.ErrWriter)

	snapshot, err := cache.Rebuild(c.Context)
	if err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}
	if snapshot.IsPlaceholder() {
		fmt.Fprintf(c.App.Writer, "Corpus %s has no embeddings\n", c.String("corpus"))
		return nil
	}
	fmt.Fprintf(c.App.Writer, "Indexed %d entities (fingerprint %s)\n", snapshot.Len(), snapshot.Fingerprint)
	return nil
}

func beatCommand(c *cli.Context) error {
	db, err := distillery.NewDatabase(c.String("data"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	agent := c.String("agent")
	if err := db.Repositories().Heartbeats.Beat(c.Context, agent, time.Now()); err != nil {
		return err
	}
	slog.Debug("heartbeat recorded", "agent", agent)
	return nil
}

func parseVerbosity(s string) (core.Verbosity, error) {
	switch strings.ToLower(s) {
	case "", "short":
		return core.VerbosityShort, nil
	case "full":
		return core.VerbosityFull, nil
	default:
		return 0, fmt.Errorf("invalid verbosity %q: must be short or full", s)
	}
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
