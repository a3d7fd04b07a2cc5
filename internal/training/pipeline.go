// Package training recomputes the durable model artifacts: per-feature weights,
// behavior patterns, classification rules, case patterns and model metrics.
package training

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/legaldesk/insights/internal/metrics"
	"github.com/legaldesk/insights/internal/signals"
	"github.com/legaldesk/insights/internal/storage"
	"github.com/legaldesk/insights/pkg/logger"
)

// ErrTrainerFailed wraps the error of the sub-trainer that aborted a run.
var ErrTrainerFailed = errors.New("trainer failed")

// Trainer is one sub-trainer. Train reports how many rows it read and wrote.
type Trainer interface {
	ModelType() string
	Train(ctx context.Context) (Stats, error)
}

type Stats struct {
	RowsRead    int `json:"rowsRead"`
	RowsWritten int `json:"rowsWritten"`
}

type TrainerResult struct {
	ModelType string        `json:"modelType"`
	Stats     Stats         `json:"stats"`
	Duration  time.Duration `json:"duration"`
}

type Summary struct {
	StartedAt  time.Time       `json:"startedAt"`
	FinishedAt time.Time       `json:"finishedAt"`
	Trainers   []TrainerResult `json:"trainers"`
}

// Pipeline runs its trainers one after another and stops at the first failure.
// Writes made by trainers that already finished are kept.
type Pipeline struct {
	trainers []Trainer
	now      signals.Clock
}

// NewPipeline builds the standard pipeline: suggestion, behavior, document
// classification, case recommendation, then fraud detection.
func NewPipeline(gw storage.Gateway, now signals.Clock) *Pipeline {
	if now == nil {
		now = time.Now
	}
	repo := storage.NewRepository(gw)
	return NewPipelineWith(now,
		&suggestionTrainer{source: signals.NewSearchCollector(gw, now), repo: repo, now: now},
		&behaviorTrainer{source: signals.NewBehaviorCollector(gw, now), repo: repo, now: now},
		&documentTrainer{source: signals.NewDocumentCollector(gw, now), repo: repo, now: now},
		&caseTrainer{source: signals.NewCaseCollector(gw, now), repo: repo, now: now},
		&fraudTrainer{source: signals.NewFraudCollector(gw, now), repo: repo, now: now},
	)
}

func NewPipelineWith(now signals.Clock, trainers ...Trainer) *Pipeline {
	if now == nil {
		now = time.Now
	}
	return &Pipeline{trainers: trainers, now: now}
}

func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	summary := Summary{StartedAt: p.now()}
	logger.Info("Starting model training", zap.Int("trainers", len(p.trainers)))

	for _, t := range p.trainers {
		start := time.Now()
		stats, err := t.Train(ctx)
		elapsed := time.Since(start)
		metrics.ObserveTrainer(t.ModelType(), elapsed.Seconds())

		if err != nil {
			metrics.RecordTrainingRun(metrics.StatusError)
			logger.Error("Model training aborted",
				zap.String("model_type", t.ModelType()),
				zap.Error(err),
			)
			return summary, fmt.Errorf("%w: %s: %w", ErrTrainerFailed, t.ModelType(), err)
		}

		summary.Trainers = append(summary.Trainers, TrainerResult{
			ModelType: t.ModelType(),
			Stats:     stats,
			Duration:  elapsed,
		})
		logger.Info("Model trained",
			zap.String("model_type", t.ModelType()),
			zap.Int("rows_read", stats.RowsRead),
			zap.Int("rows_written", stats.RowsWritten),
			zap.Duration("duration", elapsed),
		)
	}

	summary.FinishedAt = p.now()
	metrics.RecordTrainingRun(metrics.StatusOK)
	logger.Info("Model training completed", zap.Int("trainers", len(summary.Trainers)))
	return summary, nil
}
