package main

import (
	"context"
	"fmt"
	"time"

	"github.com/longregen/geoqa/internal/adapters/id"
	"github.com/longregen/geoqa/internal/adapters/metrics"
	"github.com/longregen/geoqa/internal/adapters/postgres"
	"github.com/longregen/geoqa/internal/dataset"
	"github.com/longregen/geoqa/internal/example"
	"github.com/longregen/geoqa/internal/llm"
	"github.com/longregen/geoqa/internal/prompt"
	"github.com/spf13/cobra"
)

func evalCmd() *cobra.Command {
	var (
		file        string
		dbDataset   string
		metricName  string
		concurrency int
		limit       int
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate the predictor against a dataset",
		Long: `Evaluate runs the geography predictor over every example of a dataset and
scores the answers. The dataset comes from a JSONL or YAML file (--dataset)
or from the example store (--db-dataset).

Metrics: exact_match (default), exact_match_strict, contains, token_overlap, llm_judge`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (file == "") == (dbDataset == "") {
				return fmt.Errorf("exactly one of --dataset or --db-dataset is required")
			}
			if err := requireAPIKey(); err != nil {
				return err
			}

			ctx := cmd.Context()

			devset, err := loadDevset(ctx, file, dbDataset, limit)
			if err != nil {
				return err
			}
			if len(devset) == 0 {
				return fmt.Errorf("dataset has no examples")
			}

			predictor, service := newPredictor()
			metric, err := resolveMetric(metricName, service)
			if err != nil {
				return err
			}

			if concurrency <= 0 {
				concurrency = cfg.Eval.Concurrency
			}

			runID := id.New().GenerateEvalRunID()
			runLogger := logger.With("run_id", runID)

			fmt.Printf("Run %s: evaluating %d examples with %s (concurrency %d)...\n",
				runID, len(devset), prompt.MetricName(metric), concurrency)
			start := time.Now()

			report, err := prompt.Evaluate(ctx, predictor, metric, devset, prompt.EvaluateOptions{
				Concurrency: concurrency,
				Metrics:     metrics.NewCollector(),
				Logger:      runLogger,
			})
			if err != nil {
				return err
			}

			printReport(report, verbose)
			fmt.Printf("\nScore: %.3f (%d examples, %d failed) in %s\n",
				report.Mean, len(report.Results), report.Failed, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "dataset", "", "dataset file (.jsonl or .yaml)")
	cmd.Flags().StringVar(&dbDataset, "db-dataset", "", "dataset name in the example store")
	cmd.Flags().StringVar(&metricName, "metric", "exact_match", "scoring metric")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "parallel predictions (default from config)")
	cmd.Flags().IntVar(&limit, "limit", 1000, "maximum examples read from the store")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print every example")

	return cmd
}

func loadDevset(ctx context.Context, file, dbDataset string, limit int) ([]example.Example, error) {
	if file != "" {
		return dataset.Load(file, cfg.Eval.InputKeys)
	}

	pool, err := initDB(ctx)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	stored, err := postgres.NewExampleRepository(pool).ListByDataset(ctx, dbDataset, limit, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset %s: %w", dbDataset, err)
	}

	devset := make([]example.Example, len(stored))
	for i, ex := range stored {
		devset[i] = ex.Example
	}
	return devset, nil
}

func resolveMetric(name string, service *llm.Service) (prompt.Metric, error) {
	if name == "llm_judge" {
		return prompt.NewLLMJudgeMetric(service, "The answer names the same place or fact as the reference."), nil
	}
	return prompt.MetricByName(name, "")
}

func printReport(report *prompt.EvaluationReport, verbose bool) {
	for _, res := range report.Results {
		if !verbose && res.Err == nil {
			continue
		}

		question := res.Gold.Get("question")
		if res.Err != nil {
			fmt.Printf("[%d] ERROR %s: %v\n", res.Index, question, res.Err)
			continue
		}
		fmt.Printf("[%d] %.2f %s -> %s (%s)\n", res.Index, res.Score.Score, question, res.Prediction.Get("answer"), res.Score.Feedback)
	}
}
