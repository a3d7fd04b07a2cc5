package scoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/legaldesk/insights/internal/metrics"
	"github.com/legaldesk/insights/pkg/logger"
)

// Policy decides what a failed operation hands back to its caller.
type Policy int

const (
	// Authoritative operations log and return the error.
	Authoritative Policy = iota
	// BestEffort operations log and return the fallback with a nil error.
	BestEffort
)

func (p Policy) String() string {
	switch p {
	case BestEffort:
		return "best_effort"
	default:
		return "authoritative"
	}
}

// Run executes fn under policy, recording duration and outcome for op.
func Run[T any](ctx context.Context, op string, policy Policy, fallback T, fn func(ctx context.Context) (T, error)) (T, error) {
	start := time.Now()
	value, err := fn(ctx)
	elapsed := time.Since(start).Seconds()

	if err == nil {
		metrics.ObserveOperation(op, metrics.StatusOK, elapsed)
		return value, nil
	}

	switch policy {
	case BestEffort:
		logger.Warn("Operation failed, returning empty result",
			zap.String("operation", op),
			zap.Error(err),
		)
		metrics.ObserveOperation(op, metrics.StatusDegraded, elapsed)
		return fallback, nil
	default:
		logger.Error("Operation failed",
			zap.String("operation", op),
			zap.Error(err),
		)
		metrics.ObserveOperation(op, metrics.StatusError, elapsed)
		return value, err
	}
}
