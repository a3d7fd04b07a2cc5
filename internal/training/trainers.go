package training

import (
	"context"
	"sort"
	"time"

	"github.com/legaldesk/insights/internal/signals"
	"github.com/legaldesk/insights/internal/storage"
	"github.com/legaldesk/insights/internal/storage/models"
)

const (
	shortWindow = 90 * 24 * time.Hour
	longWindow  = 180 * 24 * time.Hour

	minQueryOccurrences  = 3
	minUserActivities    = 5
	minCaseAssignments   = 3
	minFraudFactorReview = 3
)

// Reported metrics per model. These are fixed figures, not evaluated from data.
var fixedMetrics = map[string]models.ModelMetrics{
	models.ModelSuggestion:     {Accuracy: 0.85, Precision: 0.82, Recall: 0.88, F1Score: 0.85},
	models.ModelBehavior:       {Accuracy: 0.78, Precision: 0.75, Recall: 0.80, F1Score: 0.77},
	models.ModelClassification: {Accuracy: 0.92, Precision: 0.90, Recall: 0.94, F1Score: 0.92},
	models.ModelRecommendation: {Accuracy: 0.81, Precision: 0.79, Recall: 0.83, F1Score: 0.81},
	models.ModelFraud:          {Accuracy: 0.95, Precision: 0.93, Recall: 0.89, F1Score: 0.91},
}

var suggestionWeights = []struct {
	feature string
	weight  float64
}{
	{"frequency", 0.4},
	{"relevance", 0.4},
	{"user_specific", 0.2},
}

// ClassificationRules is the rule table the document classifier applies,
// highest priority first.
var ClassificationRules = []models.ClassificationRule{
	{Name: "legal_document_rule", Category: "legal_document", Condition: "has_legal_terms AND word_count > 1000", Priority: 1},
	{Name: "contract_rule", Category: "contract", Condition: "file_type = 'pdf'", Priority: 2},
	{Name: "draft_document_rule", Category: "draft_document", Condition: "file_type IN ('doc', 'docx')", Priority: 3},
	{Name: "general_document_rule", Category: "general_document", Condition: "default", Priority: 4},
}

func writeMetrics(ctx context.Context, repo *storage.Repository, modelType string, at time.Time) error {
	m := fixedMetrics[modelType]
	m.ModelType = modelType
	m.TrainingDate = at
	return repo.UpsertModelMetrics(ctx, m)
}

type suggestionTrainer struct {
	source *signals.SearchCollector
	repo   *storage.Repository
	now    signals.Clock
}

func (t *suggestionTrainer) ModelType() string { return models.ModelSuggestion }

func (t *suggestionTrainer) Train(ctx context.Context) (Stats, error) {
	queries, err := t.source.FrequentQueries(ctx, shortWindow, minQueryOccurrences)
	if err != nil {
		return Stats{}, err
	}

	now := t.now()
	stats := Stats{RowsRead: len(queries)}
	for _, w := range suggestionWeights {
		err := t.repo.UpsertModelWeight(ctx, models.ModelWeight{
			ModelType: models.ModelSuggestion,
			Feature:   w.feature,
			Weight:    w.weight,
			UpdatedAt: now,
		})
		if err != nil {
			return stats, err
		}
		stats.RowsWritten++
	}

	if err := writeMetrics(ctx, t.repo, models.ModelSuggestion, now); err != nil {
		return stats, err
	}
	stats.RowsWritten++
	return stats, nil
}

type behaviorTrainer struct {
	source *signals.BehaviorCollector
	repo   *storage.Repository
	now    signals.Clock
}

func (t *behaviorTrainer) ModelType() string { return models.ModelBehavior }

func (t *behaviorTrainer) Train(ctx context.Context) (Stats, error) {
	users, err := t.source.ActiveUsers(ctx, shortWindow, minUserActivities)
	if err != nil {
		return Stats{}, err
	}

	now := t.now()
	stats := Stats{RowsRead: len(users)}
	for _, userID := range users {
		patterns, err := t.source.Patterns(ctx, userID)
		if err != nil {
			return stats, err
		}
		if err := t.repo.UpsertBehaviorPatterns(ctx, userID, patterns, now); err != nil {
			return stats, err
		}
		stats.RowsWritten++
	}

	if err := writeMetrics(ctx, t.repo, models.ModelBehavior, now); err != nil {
		return stats, err
	}
	stats.RowsWritten++
	return stats, nil
}

// documentTrainer reads recent feature rows but always persists the same rule
// table; the rules do not depend on the rows.
type documentTrainer struct {
	source *signals.DocumentCollector
	repo   *storage.Repository
	now    signals.Clock
}

func (t *documentTrainer) ModelType() string { return models.ModelClassification }

func (t *documentTrainer) Train(ctx context.Context) (Stats, error) {
	rows, err := t.source.FeatureRows(ctx, shortWindow)
	if err != nil {
		return Stats{}, err
	}

	now := t.now()
	stats := Stats{RowsRead: len(rows)}
	for _, rule := range ClassificationRules {
		if err := t.repo.UpsertClassificationRule(ctx, rule, now); err != nil {
			return stats, err
		}
		stats.RowsWritten++
	}

	if err := writeMetrics(ctx, t.repo, models.ModelClassification, now); err != nil {
		return stats, err
	}
	stats.RowsWritten++
	return stats, nil
}

type caseTrainer struct {
	source *signals.CaseCollector
	repo   *storage.Repository
	now    signals.Clock
}

func (t *caseTrainer) ModelType() string { return models.ModelRecommendation }

func (t *caseTrainer) Train(ctx context.Context) (Stats, error) {
	patterns, err := t.source.AssignmentPatterns(ctx, longWindow, minCaseAssignments)
	if err != nil {
		return Stats{}, err
	}

	now := t.now()
	stats := Stats{RowsRead: len(patterns)}
	for _, p := range patterns {
		err := t.repo.UpsertCasePattern(ctx, models.CasePattern{
			PracticeArea:    p.PracticeArea,
			UserID:          p.UserID,
			AssignmentCount: p.Assignments,
			SuccessRate:     p.SuccessRate,
		}, now)
		if err != nil {
			return stats, err
		}
		stats.RowsWritten++
	}

	if err := writeMetrics(ctx, t.repo, models.ModelRecommendation, now); err != nil {
		return stats, err
	}
	stats.RowsWritten++
	return stats, nil
}

type fraudTrainer struct {
	source *signals.FraudCollector
	repo   *storage.Repository
	now    signals.Clock
}

func (t *fraudTrainer) ModelType() string { return models.ModelFraud }

func (t *fraudTrainer) Train(ctx context.Context) (Stats, error) {
	flags, err := t.source.ReviewedFlags(ctx, longWindow)
	if err != nil {
		return Stats{}, err
	}

	now := t.now()
	stats := Stats{RowsRead: len(flags)}
	for _, fw := range confirmedRatios(flags, minFraudFactorReview) {
		err := t.repo.UpsertModelWeight(ctx, models.ModelWeight{
			ModelType: models.ModelFraud,
			Feature:   fw.factor,
			Weight:    fw.ratio,
			UpdatedAt: now,
		})
		if err != nil {
			return stats, err
		}
		stats.RowsWritten++
	}

	if err := writeMetrics(ctx, t.repo, models.ModelFraud, now); err != nil {
		return stats, err
	}
	stats.RowsWritten++
	return stats, nil
}

type factorRatio struct {
	factor string
	ratio  float64
}

// confirmedRatios returns, per risk factor seen on at least minSupport reviewed
// flags, the share of those flags confirmed as fraud. Sorted by factor.
func confirmedRatios(flags []signals.ReviewedFlag, minSupport int) []factorRatio {
	total := make(map[string]int)
	confirmed := make(map[string]int)
	for _, f := range flags {
		for _, factor := range f.RiskFactors {
			total[factor]++
			if f.Confirmed {
				confirmed[factor]++
			}
		}
	}

	out := make([]factorRatio, 0, len(total))
	for factor, n := range total {
		if n < minSupport {
			continue
		}
		out = append(out, factorRatio{factor: factor, ratio: float64(confirmed[factor]) / float64(n)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].factor < out[j].factor })
	return out
}
