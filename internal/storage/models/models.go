package models

import "time"

// Model types owned by the training pipeline.
const (
	ModelSuggestion     = "search_suggestions"
	ModelBehavior       = "user_behavior"
	ModelClassification = "document_classification"
	ModelRecommendation = "case_recommendations"
	ModelFraud          = "fraud_detection"
)

type ModelWeight struct {
	ModelType string    `json:"modelType"`
	Feature   string    `json:"feature"`
	Weight    float64   `json:"weight"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ModelMetrics struct {
	ModelType    string    `json:"modelType"`
	Accuracy     float64   `json:"accuracy"`
	Precision    float64   `json:"precision"`
	Recall       float64   `json:"recall"`
	F1Score      float64   `json:"f1Score"`
	TrainingDate time.Time `json:"trainingDate"`
}

type ClassificationRule struct {
	Name      string
	Category  string
	Condition string
	Priority  int
}

type CasePattern struct {
	PracticeArea    string
	UserID          string
	AssignmentCount int
	SuccessRate     float64
}

type SuspiciousActivity struct {
	ID              string
	UserID          string
	Activity        map[string]any
	RiskScore       float64
	RiskFactors     []string
	Reasons         []string
	Recommendations []string
	CreatedAt       time.Time
}

type ClassificationRecord struct {
	ID                string
	DocumentID        string
	PredictedCategory string
	Confidence        float64
	Tags              []string
	Features          map[string]any
	ModelVersion      string
	CreatedAt         time.Time
}
