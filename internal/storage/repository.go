package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/legaldesk/insights/internal/storage/models"
	"github.com/legaldesk/insights/pkg/logger"
)

// Repository holds the typed statements for the durable records the scoring
// engine writes: model artifacts, classifications and suspicious activity.
type Repository struct {
	gw Gateway
}

func NewRepository(gw Gateway) *Repository {
	return &Repository{gw: gw}
}

func (r *Repository) Gateway() Gateway {
	return r.gw
}

func (r *Repository) UpsertModelWeight(ctx context.Context, w models.ModelWeight) error {
	query := `
		INSERT INTO ml_model_weights (model_type, feature, weight, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(model_type, feature) DO UPDATE SET
			weight = excluded.weight,
			updated_at = excluded.updated_at
	`
	if err := r.gw.Exec(ctx, query, w.ModelType, w.Feature, w.Weight, w.UpdatedAt.Unix()); err != nil {
		return fmt.Errorf("failed to upsert model weight %s/%s: %w", w.ModelType, w.Feature, err)
	}
	return nil
}

func (r *Repository) UpsertModelMetrics(ctx context.Context, m models.ModelMetrics) error {
	query := `
		INSERT INTO ml_model_metrics (model_type, accuracy, precision_score, recall, f1_score, training_date)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(model_type) DO UPDATE SET
			accuracy = excluded.accuracy,
			precision_score = excluded.precision_score,
			recall = excluded.recall,
			f1_score = excluded.f1_score,
			training_date = excluded.training_date
	`
	err := r.gw.Exec(ctx, query, m.ModelType, m.Accuracy, m.Precision, m.Recall, m.F1Score, m.TrainingDate.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert model metrics %s: %w", m.ModelType, err)
	}

	logger.Debug("Model metrics stored", zap.String("model_type", m.ModelType), zap.Float64("f1", m.F1Score))
	return nil
}

func (r *Repository) ListModelMetrics(ctx context.Context) ([]models.ModelMetrics, error) {
	rows, err := r.gw.Query(ctx, `
		SELECT model_type, accuracy, precision_score, recall, f1_score, training_date
		FROM ml_model_metrics
		ORDER BY model_type
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list model metrics: %w", err)
	}

	metrics := make([]models.ModelMetrics, 0, len(rows))
	for _, row := range rows {
		metrics = append(metrics, models.ModelMetrics{
			ModelType:    row.String("model_type"),
			Accuracy:     row.Float("accuracy"),
			Precision:    row.Float("precision_score"),
			Recall:       row.Float("recall"),
			F1Score:      row.Float("f1_score"),
			TrainingDate: row.Time("training_date"),
		})
	}
	return metrics, nil
}

func (r *Repository) ListModelWeights(ctx context.Context, modelType string) ([]models.ModelWeight, error) {
	rows, err := r.gw.Query(ctx, `
		SELECT model_type, feature, weight, updated_at
		FROM ml_model_weights
		WHERE model_type = ?
		ORDER BY feature
	`, modelType)
	if err != nil {
		return nil, fmt.Errorf("failed to list model weights: %w", err)
	}

	weights := make([]models.ModelWeight, 0, len(rows))
	for _, row := range rows {
		weights = append(weights, models.ModelWeight{
			ModelType: row.String("model_type"),
			Feature:   row.String("feature"),
			Weight:    row.Float("weight"),
			UpdatedAt: row.Time("updated_at"),
		})
	}
	return weights, nil
}

func (r *Repository) UpsertBehaviorPatterns(ctx context.Context, userID string, patterns any, updatedAt time.Time) error {
	data, err := json.Marshal(patterns)
	if err != nil {
		return fmt.Errorf("failed to marshal behavior patterns: %w", err)
	}

	query := `
		INSERT INTO user_behavior_patterns (user_id, patterns, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			patterns = excluded.patterns,
			updated_at = excluded.updated_at
	`
	if err := r.gw.Exec(ctx, query, userID, string(data), updatedAt.Unix()); err != nil {
		return fmt.Errorf("failed to upsert behavior patterns for %s: %w", userID, err)
	}
	return nil
}

func (r *Repository) UpsertClassificationRule(ctx context.Context, rule models.ClassificationRule, updatedAt time.Time) error {
	query := `
		INSERT INTO ml_classification_rules (rule_name, category, condition, priority, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(rule_name) DO UPDATE SET
			category = excluded.category,
			condition = excluded.condition,
			priority = excluded.priority,
			updated_at = excluded.updated_at
	`
	if err := r.gw.Exec(ctx, query, rule.Name, rule.Category, rule.Condition, rule.Priority, updatedAt.Unix()); err != nil {
		return fmt.Errorf("failed to upsert classification rule %s: %w", rule.Name, err)
	}
	return nil
}

func (r *Repository) UpsertCasePattern(ctx context.Context, p models.CasePattern, updatedAt time.Time) error {
	query := `
		INSERT INTO ml_case_patterns (practice_area, user_id, assignment_count, success_rate, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(practice_area, user_id) DO UPDATE SET
			assignment_count = excluded.assignment_count,
			success_rate = excluded.success_rate,
			updated_at = excluded.updated_at
	`
	if err := r.gw.Exec(ctx, query, p.PracticeArea, p.UserID, p.AssignmentCount, p.SuccessRate, updatedAt.Unix()); err != nil {
		return fmt.Errorf("failed to upsert case pattern %s/%s: %w", p.PracticeArea, p.UserID, err)
	}
	return nil
}

func (r *Repository) UpsertClassification(ctx context.Context, rec models.ClassificationRecord) error {
	tags, err := json.Marshal(rec.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}
	features, err := json.Marshal(rec.Features)
	if err != nil {
		return fmt.Errorf("failed to marshal features: %w", err)
	}

	query := `
		INSERT INTO document_classifications (id, document_id, predicted_category, confidence, tags, features, model_version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			predicted_category = excluded.predicted_category,
			confidence = excluded.confidence,
			tags = excluded.tags,
			features = excluded.features,
			model_version = excluded.model_version,
			created_at = excluded.created_at
	`
	err = r.gw.Exec(ctx, query,
		rec.ID,
		rec.DocumentID,
		rec.PredictedCategory,
		rec.Confidence,
		string(tags),
		string(features),
		rec.ModelVersion,
		rec.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store classification for %s: %w", rec.DocumentID, err)
	}

	logger.Debug("Classification stored",
		zap.String("document_id", rec.DocumentID),
		zap.String("category", rec.PredictedCategory),
	)
	return nil
}

func (r *Repository) InsertSuspiciousActivity(ctx context.Context, a models.SuspiciousActivity) error {
	activity, err := json.Marshal(a.Activity)
	if err != nil {
		return fmt.Errorf("failed to marshal activity: %w", err)
	}
	factors, err := json.Marshal(nonNil(a.RiskFactors))
	if err != nil {
		return fmt.Errorf("failed to marshal risk factors: %w", err)
	}
	reasons, err := json.Marshal(nonNil(a.Reasons))
	if err != nil {
		return fmt.Errorf("failed to marshal reasons: %w", err)
	}
	recommendations, err := json.Marshal(nonNil(a.Recommendations))
	if err != nil {
		return fmt.Errorf("failed to marshal recommendations: %w", err)
	}

	query := `
		INSERT INTO suspicious_activities (id, user_id, activity, risk_score, risk_factors, reasons, recommendations, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	err = r.gw.Exec(ctx, query,
		a.ID,
		a.UserID,
		string(activity),
		a.RiskScore,
		string(factors),
		string(reasons),
		string(recommendations),
		a.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record suspicious activity: %w", err)
	}

	logger.Info("Suspicious activity recorded",
		zap.String("id", a.ID),
		zap.String("user_id", a.UserID),
		zap.Float64("risk_score", a.RiskScore),
	)
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
