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
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/tariff"
	"github.com/poiesic/tariff/ai"
	"github.com/poiesic/tariff/core"
	"github.com/poiesic/tariff/storage/badger"
)

func main() {
	// Optional .env for host and model settings.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "tariff",
		Usage: "Iterative tariff code classifier over the HS/CN nomenclature",
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
				Name:      "classify",
				Usage:     "Classify a product description interactively",
				ArgsUsage: "<product description>",
				Action:    classifyCommand,
				Flags: append(systemFlags(),
					&cli.BoolFlag{
						Name:  "save",
						Usage: "Archive the finalized classification as a precedent",
					},
					&cli.IntFlag{
						Name:  "max-iterations",
						Usage: "Maximum classification iterations",
						Value: 6,
					},
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Base similarity threshold",
						Value: 0.6,
					},
				),
			},
			{
				Name:      "search",
				Usage:     "Run a one-shot semantic search against the taxonomy",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: append(systemFlags(),
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Base similarity threshold",
						Value: 0.6,
					},
				),
			},
			{
				Name:   "embed",
				Usage:  "Compute or refresh the taxonomy embedding cache",
				Action: embedCommand,
				Flags: append(systemFlags(),
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Recompute even when a matching cache exists",
					},
				),
			},
			{
				Name:   "precedents",
				Usage:  "List archived classification precedents",
				Action: precedentsCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "db",
						Aliases: []string{"d"},
						Usage:   "Path to BadgerDB database directory",
						Value:   "./tariff_db",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of precedents to list",
						Value: 20,
					},
					&cli.StringFlag{
						Name:  "code",
						Usage: "List only precedents committed to this tariff code",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func systemFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "taxonomy",
			Aliases:  []string{"t"},
			Usage:    "Path to the taxonomy CSV file",
			Required: true,
			EnvVars:  []string{"TARIFF_TAXONOMY"},
		},
		&cli.StringFlag{
			Name:    "db",
			Aliases: []string{"d"},
			Usage:   "Path to BadgerDB database directory",
			Value:   "./tariff_db",
			EnvVars: []string{"TARIFF_DB"},
		},
		&cli.StringFlag{
			Name:    "embedding-host",
			Usage:   "Embedding service host URL",
			Value:   "http://localhost:11434/v1",
			EnvVars: []string{"TARIFF_EMBEDDING_HOST"},
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Usage:   "Embedding model name",
			Value:   "embeddinggemma",
			EnvVars: []string{"TARIFF_EMBEDDING_MODEL"},
		},
		&cli.StringFlag{
			Name:    "generator-host",
			Usage:   "Text generation service host URL",
			Value:   "http://localhost:11434/v1",
			EnvVars: []string{"TARIFF_GENERATOR_HOST"},
		},
		&cli.StringFlag{
			Name:    "generator-model",
			Usage:   "Text generation model name",
			Value:   "qwen2.5:3b",
			EnvVars: []string{"TARIFF_GENERATOR_MODEL"},
		},
		&cli.StringFlag{
			Name:    "cache-dir",
			Usage:   "Directory for the embedding matrix cache",
			Value:   ".",
			EnvVars: []string{"TARIFF_CACHE_DIR"},
		},
		&cli.BoolFlag{
			Name:  "cached-only",
			Usage: "Fail instead of calling the embedding model when no cache matches",
		},
	}
}

func buildSystem(ctx context.Context, c *cli.Context, extra ...tariff.SystemOption) (*tariff.System, error) {
	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithGeneratorHost(c.String("generator-host")),
		ai.WithGeneratorModel(c.String("generator-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	source, err := os.Open(c.String("taxonomy"))
	if err != nil {
		return nil, fmt.Errorf("failed to open taxonomy: %w", err)
	}
	defer source.Close()

	opts := []tariff.SystemOption{
		tariff.WithAIConfig(aiConfig),
		tariff.WithEmbeddingCacheDir(c.String("cache-dir")),
	}
	if c.Bool("cached-only") {
		opts = append(opts, tariff.WithCachedEmbeddingsOnly())
	}
	opts = append(opts, extra...)

	return tariff.NewSystem(ctx, c.String("db"), source, opts...)
}

func classifyCommand(c *cli.Context) error {
	ctx := context.Background()

	description := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	reader := bufio.NewReader(os.Stdin)
	if description == "" {
		fmt.Print("Describe the product: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		description = strings.TrimSpace(line)
	}

	system, err := buildSystem(ctx, c,
		tariff.WithClassifyMaxIterations(c.Int("max-iterations")),
		tariff.WithClassifyThreshold(float32(c.Float64("threshold"))),
	)
	if err != nil {
		return err
	}
	defer system.Close()

	session, turn, err := system.Classify(ctx, description)
	if err != nil {
		return err
	}

	for !turn.Done {
		fmt.Printf("\n[iteration %d] query: %s\n", turn.Iteration, turn.Query)
		for i, candidate := range turn.Candidates {
			if i >= 5 {
				break
			}
			fmt.Printf("  %-12s %.3f  %s\n", candidate.Code, candidate.SimilarityScore, candidate.Description)
		}

		fmt.Printf("\n%s\n", turn.Outcome.Text)
		if len(turn.Outcome.Options) > 0 {
			fmt.Printf("Options: %s\n", strings.Join(turn.Outcome.Options, ", "))
		}
		fmt.Print("> ")

		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		turn, err = session.Answer(ctx, strings.TrimSpace(line))
		if err != nil {
			return err
		}
	}

	result, err := session.Result()
	if err != nil {
		return err
	}
	printResult(result)

	if c.Bool("save") && result.Code != "" {
		precedent, err := system.SavePrecedent(ctx, session)
		if err != nil {
			return fmt.Errorf("failed to save precedent: %w", err)
		}
		fmt.Printf("Saved precedent %d\n", precedent.Id)
	}
	return nil
}

func printResult(result *core.Result) {
	fmt.Println()
	switch result.Status {
	case core.StatusClassified:
		fmt.Printf("Classified: %s (%.3f)\n", result.Code, result.Score)
	case core.StatusNeedsReview:
		fmt.Printf("Needs review: %s (%.3f)\n", result.Code, result.Score)
	case core.StatusNoResult:
		fmt.Println("No candidate survived the threshold")
		return
	}
	if result.Description != "" {
		fmt.Printf("  %s\n", result.Description)
	}
	if result.Conclusion != "" {
		fmt.Printf("  %s\n", result.Conclusion)
	}
}

func searchCommand(c *cli.Context) error {
	ctx := context.Background()

	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("query is required")
	}

	system, err := buildSystem(ctx, c)
	if err != nil {
		return err
	}
	defer system.Close()

	candidates, err := system.Search(ctx, query, float32(c.Float64("threshold")))
	if err != nil {
		return err
	}

	fmt.Printf("Found %d candidates\n", len(candidates))
	for i, candidate := range candidates {
		fmt.Printf("%d: %-12s [%.3f] %s\n", i, candidate.Code, candidate.SimilarityScore, candidate.Description)
	}
	return nil
}

func embedCommand(c *cli.Context) error {
	ctx := context.Background()

	var extra []tariff.SystemOption
	if c.Bool("force") {
		extra = append(extra, tariff.WithForceRecompute())
	}

	system, err := buildSystem(ctx, c, extra...)
	if err != nil {
		return err
	}
	defer system.Close()

	fmt.Fprintf(os.Stderr, "Embedding cache ready: %d taxonomy leaves\n", system.EmbeddingRows())
	return nil
}

func precedentsCommand(c *cli.Context) error {
	ctx := context.Background()

	backend, err := badger.OpenBackend(c.String("db"), false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()

	repo, err := badger.NewPrecedentRepository(backend)
	if err != nil {
		return fmt.Errorf("failed to create repository: %w", err)
	}
	defer repo.Close()

	var precedents []*core.Precedent
	if code := c.String("code"); code != "" {
		precedents, err = repo.FindByCode(ctx, code)
	} else {
		precedents, err = repo.GetRecentPrecedents(ctx, c.Int("limit"))
	}
	if err != nil {
		return err
	}

	fmt.Printf("Found %d precedents\n", len(precedents))
	for _, precedent := range precedents {
		fmt.Printf("%s  %-12s %.3f  %s (%d iterations)\n",
			precedent.CreatedAt.Format("2006-01-02"), precedent.Code,
			precedent.Score, precedent.ProductDescription, precedent.Iterations)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
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
