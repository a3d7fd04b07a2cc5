package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Operation outcome labels.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusError    = "error"
)

var (
	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "insights_operation_duration_seconds",
			Help:    "Scoring operation duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"operation"},
	)

	OperationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insights_operation_total",
			Help: "Scoring operations by outcome",
		},
		[]string{"operation", "status"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insights_cache_hits_total",
			Help: "Result cache hits",
		},
		[]string{"operation"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insights_cache_misses_total",
			Help: "Result cache misses",
		},
		[]string{"operation"},
	)

	ConfidenceScore = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "insights_confidence_score",
			Help:    "Self-reported model confidence",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
		[]string{"model"},
	)

	FraudRiskScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "insights_fraud_risk_score",
			Help:    "Fraud risk score per assessed activity",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	FraudAssessments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insights_fraud_assessments_total",
			Help: "Fraud assessments by verdict",
		},
		[]string{"suspicious"},
	)

	TrainingRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insights_training_runs_total",
			Help: "Training pipeline runs by outcome",
		},
		[]string{"status"},
	)

	TrainerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "insights_trainer_duration_seconds",
			Help:    "Sub-trainer duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model_type"},
	)
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		OperationDuration,
		OperationTotal,
		CacheHits,
		CacheMisses,
		ConfidenceScore,
		FraudRiskScore,
		FraudAssessments,
		TrainingRuns,
		TrainerDuration,
	}
}

// Init registers every collector on the default registry.
func Init() {
	prometheus.MustRegister(collectors()...)
}

// Register registers every collector on reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func ObserveOperation(operation, status string, seconds float64) {
	OperationDuration.WithLabelValues(operation).Observe(seconds)
	OperationTotal.WithLabelValues(operation, status).Inc()
}

func RecordCacheHit(operation string) {
	CacheHits.WithLabelValues(operation).Inc()
}

func RecordCacheMiss(operation string) {
	CacheMisses.WithLabelValues(operation).Inc()
}

func ObserveConfidence(model string, confidence float64) {
	ConfidenceScore.WithLabelValues(model).Observe(confidence)
}

func ObserveRiskScore(risk float64) {
	FraudRiskScore.Observe(risk)
}

func RecordFraudAssessment(suspicious bool) {
	label := "false"
	if suspicious {
		label = "true"
	}
	FraudAssessments.WithLabelValues(label).Inc()
}

func RecordTrainingRun(status string) {
	TrainingRuns.WithLabelValues(status).Inc()
}

func ObserveTrainer(modelType string, seconds float64) {
	TrainerDuration.WithLabelValues(modelType).Observe(seconds)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
