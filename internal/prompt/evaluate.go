package prompt

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/longregen/geoqa/internal/example"
	"golang.org/x/sync/errgroup"
)

// EvaluateOptions controls an evaluation run
type EvaluateOptions struct {
	// Concurrency bounds in-flight predictions, default 4
	Concurrency int
	Metrics     MetricsCollector
	Logger      *slog.Logger
}

// EvaluationResult is the outcome for one example
type EvaluationResult struct {
	Index      int               `json:"index"`
	Gold       example.Example   `json:"gold"`
	Prediction example.Example   `json:"prediction"`
	Score      ScoreWithFeedback `json:"score"`
	Duration   time.Duration     `json:"duration"`
	Err        error             `json:"-"`
}

// EvaluationReport aggregates an evaluation run
type EvaluationReport struct {
	Results []EvaluationResult `json:"results"`
	// Mean is taken over all examples; failed predictions score 0
	Mean   float64 `json:"mean"`
	Failed int     `json:"failed"`
}

// Evaluate runs module over the inputs of every example in devset and scores
// the result against the example's labels. Prediction and scoring errors are
// recorded per example. Only cancellation of ctx aborts the run.
func Evaluate(ctx context.Context, module Module, metric Metric, devset []example.Example, opts EvaluateOptions) (*EvaluationReport, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Metrics == nil {
		opts.Metrics = &NoOpMetrics{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	results := make([]EvaluationResult, len(devset))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for i, gold := range devset {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}

			start := time.Now()
			res := EvaluationResult{Index: i, Gold: gold}

			pred, err := module.Forward(gCtx, gold.Inputs())
			if err == nil {
				res.Prediction = pred
				res.Score, err = metric.Score(gCtx, gold, pred)
			}
			res.Duration = time.Since(start)

			if err != nil {
				if ctxErr := gCtx.Err(); ctxErr != nil {
					return ctxErr
				}
				res.Err = err
				res.Score = ScoreWithFeedback{Feedback: err.Error()}
				opts.Logger.WarnContext(gCtx, "evaluation example failed", "index", i, "error", err)
			}

			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("evaluation aborted: %w", err)
	}

	report := &EvaluationReport{Results: results}
	var total float64
	for _, r := range results {
		total += r.Score.Score
		if r.Err != nil {
			report.Failed++
		}
	}
	if len(results) > 0 {
		report.Mean = total / float64(len(results))
	}

	opts.Metrics.SetGauge("evaluation_score", report.Mean, map[string]string{"metric": MetricName(metric)})

	return report, nil
}
