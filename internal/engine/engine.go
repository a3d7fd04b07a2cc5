// Package engine is the entry point to the scoring subsystem. An Engine wires
// collectors, models, the result cache and the training pipeline around one
// Persistence Gateway and one Cache Gateway.
package engine

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"go.uber.org/zap"

	"github.com/legaldesk/insights/internal/cache"
	"github.com/legaldesk/insights/internal/metrics"
	"github.com/legaldesk/insights/internal/scoring"
	"github.com/legaldesk/insights/internal/signals"
	"github.com/legaldesk/insights/internal/storage"
	"github.com/legaldesk/insights/internal/storage/models"
	"github.com/legaldesk/insights/internal/training"
	"github.com/legaldesk/insights/pkg/logger"
)

// Operation names used for metrics and logs.
const (
	OpSuggestions     = "search_suggestions"
	OpBehavior        = "behavior_prediction"
	OpClassification  = "document_classification"
	OpRecommendations = "case_recommendations"
	OpFraud           = "fraud_detection"
	OpTraining        = "model_training"
	OpPerformance     = "model_performance"
	OpWeights         = "model_weights"
)

type TTLs struct {
	Suggestions     time.Duration
	Behavior        time.Duration
	Classification  time.Duration
	Recommendations time.Duration
}

func DefaultTTLs() TTLs {
	return TTLs{
		Suggestions:     cache.SuggestionsTTL,
		Behavior:        cache.BehaviorTTL,
		Classification:  cache.ClassificationTTL,
		Recommendations: cache.RecommendationsTTL,
	}
}

type Options struct {
	Now                 signals.Clock
	TTLs                TTLs
	SuggestionLimit     int
	RecommendationLimit int
	ModelVersion        string
}

type Engine struct {
	repo  *storage.Repository
	store cache.Store
	opts  Options

	suggestions *scoring.SuggestionRanker
	behavior    *scoring.BehaviorPredictor
	documents   *scoring.DocumentClassifier
	cases       *scoring.CaseRecommender
	fraud       *scoring.FraudScorer
	pipeline    *training.Pipeline
}

// New builds an Engine. A nil store disables result caching.
func New(gw storage.Gateway, store cache.Store, opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.TTLs == (TTLs{}) {
		opts.TTLs = DefaultTTLs()
	}
	if opts.SuggestionLimit <= 0 {
		opts.SuggestionLimit = scoring.DefaultSuggestionLimit
	}
	if opts.RecommendationLimit <= 0 {
		opts.RecommendationLimit = scoring.DefaultRecommendationLimit
	}
	if isNilStore(store) {
		store = nil
	}

	repo := storage.NewRepository(gw)
	now := opts.Now

	return &Engine{
		repo:        repo,
		store:       store,
		opts:        opts,
		suggestions: scoring.NewSuggestionRanker(signals.NewSearchCollector(gw, now), now),
		behavior:    scoring.NewBehaviorPredictor(signals.NewBehaviorCollector(gw, now), now),
		documents:   scoring.NewDocumentClassifier(repo, now, opts.ModelVersion),
		cases:       scoring.NewCaseRecommender(signals.NewCaseCollector(gw, now), now),
		fraud:       scoring.NewFraudScorer(signals.NewFraudCollector(gw, now), repo, now),
		pipeline:    training.NewPipeline(gw, now),
	}
}

// GenerateSearchSuggestions never fails; on any internal error it returns an
// empty list. A limit of zero or less uses the configured default. Cached
// lists hold at least the default limit and are cut to the requested one.
func (e *Engine) GenerateSearchSuggestions(ctx context.Context, partialQuery, userID string, limit int) []scoring.SearchSuggestion {
	if limit <= 0 {
		limit = e.opts.SuggestionLimit
	}

	out, _ := scoring.Run(ctx, OpSuggestions, scoring.BestEffort, []scoring.SearchSuggestion{},
		func(ctx context.Context) ([]scoring.SearchSuggestion, error) {
			return cache.ReadThrough(ctx, e.store, OpSuggestions, cache.SuggestionsKey(partialQuery, userID), e.opts.TTLs.Suggestions,
				func(ctx context.Context) ([]scoring.SearchSuggestion, error) {
					return e.suggestions.Score(ctx, scoring.SuggestionRequest{
						PartialQuery: partialQuery,
						UserID:       userID,
						Limit:        max(limit, e.opts.SuggestionLimit),
					})
				})
		})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (e *Engine) PredictUserBehavior(ctx context.Context, userID string) (scoring.UserBehaviorPrediction, error) {
	if userID == "" {
		return scoring.UserBehaviorPrediction{}, fmt.Errorf("user id is required")
	}

	prediction, err := scoring.Run(ctx, OpBehavior, scoring.Authoritative, scoring.UserBehaviorPrediction{},
		func(ctx context.Context) (scoring.UserBehaviorPrediction, error) {
			return cache.ReadThrough(ctx, e.store, OpBehavior, cache.BehaviorKey(userID), e.opts.TTLs.Behavior,
				func(ctx context.Context) (scoring.UserBehaviorPrediction, error) {
					return e.behavior.Score(ctx, userID)
				})
		})
	if err != nil {
		return prediction, err
	}

	metrics.ObserveConfidence(models.ModelBehavior, prediction.Confidence)
	return prediction, nil
}

// ClassifyDocument persists the classification on a cache miss. A cache hit
// returns the earlier result without persisting again.
func (e *Engine) ClassifyDocument(ctx context.Context, documentID, content string, metadata scoring.DocumentMetadata) (scoring.DocumentClassification, error) {
	result, err := scoring.Run(ctx, OpClassification, scoring.Authoritative, scoring.DocumentClassification{},
		func(ctx context.Context) (scoring.DocumentClassification, error) {
			return cache.ReadThrough(ctx, e.store, OpClassification, cache.ClassificationKey(documentID), e.opts.TTLs.Classification,
				func(ctx context.Context) (scoring.DocumentClassification, error) {
					return e.documents.Score(ctx, scoring.DocumentInput{
						DocumentID: documentID,
						Content:    content,
						Metadata:   metadata,
					})
				})
		})
	if err != nil {
		return result, err
	}

	metrics.ObserveConfidence(models.ModelClassification, result.Confidence)
	return result, nil
}

// GenerateCaseRecommendations never fails; on any internal error it returns
// an empty list.
func (e *Engine) GenerateCaseRecommendations(ctx context.Context, userID string, limit int) []scoring.CaseRecommendation {
	if limit <= 0 {
		limit = e.opts.RecommendationLimit
	}

	out, _ := scoring.Run(ctx, OpRecommendations, scoring.BestEffort, []scoring.CaseRecommendation{},
		func(ctx context.Context) ([]scoring.CaseRecommendation, error) {
			return cache.ReadThrough(ctx, e.store, OpRecommendations, cache.RecommendationsKey(userID), e.opts.TTLs.Recommendations,
				func(ctx context.Context) ([]scoring.CaseRecommendation, error) {
					return e.cases.Score(ctx, scoring.CaseRequest{UserID: userID, Limit: max(limit, e.opts.RecommendationLimit)})
				})
		})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// DetectFraud is never cached.
func (e *Engine) DetectFraud(ctx context.Context, userID string, activity scoring.ActivityPayload) (scoring.FraudAssessment, error) {
	assessment, err := scoring.Run(ctx, OpFraud, scoring.Authoritative, scoring.FraudAssessment{},
		func(ctx context.Context) (scoring.FraudAssessment, error) {
			return e.fraud.Score(ctx, scoring.FraudInput{UserID: userID, Activity: activity})
		})
	if err != nil {
		return assessment, err
	}

	metrics.RecordFraudAssessment(assessment.IsSuspicious)
	metrics.ObserveRiskScore(assessment.RiskScore)
	if assessment.IsSuspicious {
		logger.Warn("Suspicious activity detected",
			zap.String("user_id", userID),
			zap.String("action", activity.Name()),
			zap.Float64("risk_score", assessment.RiskScore),
		)
	}
	return assessment, nil
}

func (e *Engine) TrainModels(ctx context.Context) (training.Summary, error) {
	return scoring.Run(ctx, OpTraining, scoring.Authoritative, training.Summary{}, e.pipeline.Run)
}

func (e *Engine) GetModelPerformance(ctx context.Context) ([]models.ModelMetrics, error) {
	return scoring.Run(ctx, OpPerformance, scoring.Authoritative, []models.ModelMetrics(nil), e.repo.ListModelMetrics)
}

func (e *Engine) GetModelWeights(ctx context.Context, modelType string) ([]models.ModelWeight, error) {
	return scoring.Run(ctx, OpWeights, scoring.Authoritative, []models.ModelWeight(nil),
		func(ctx context.Context) ([]models.ModelWeight, error) {
			return e.repo.ListModelWeights(ctx, modelType)
		})
}

func isNilStore(s cache.Store) bool {
	if s == nil {
		return true
	}
	v := reflect.ValueOf(s)
	return v.Kind() == reflect.Ptr && v.IsNil()
}
