// Package scoring holds the five heuristic models behind the insights engine.
// Each model reads signals through a narrow source interface and is exposed
// through the Scorer capability.
package scoring

import (
	"context"
	"math"
	"time"

	"github.com/legaldesk/insights/internal/signals"
)

// Scorer is the capability shared by every model.
type Scorer[In, Out any] interface {
	Score(ctx context.Context, in In) (Out, error)
}

type SearchSuggestion struct {
	Query     string    `json:"query"`
	Frequency int       `json:"frequency"`
	Relevance float64   `json:"relevance"`
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`
}

type UserBehaviorPrediction struct {
	UserID          string    `json:"userId"`
	PredictedAction string    `json:"predictedAction"`
	Confidence      float64   `json:"confidence"`
	NextBestAction  string    `json:"nextBestAction"`
	Recommendations []string  `json:"recommendations"`
	Timestamp       time.Time `json:"timestamp"`
}

type DocumentClassification struct {
	DocumentID        string         `json:"documentId"`
	PredictedCategory string         `json:"predictedCategory"`
	Confidence        float64        `json:"confidence"`
	Tags              []string       `json:"tags"`
	Metadata          map[string]any `json:"metadata"`
	Timestamp         time.Time      `json:"timestamp"`
}

type RecommendationType string

const (
	SimilarCase        RecommendationType = "similar_case"
	ExpertAssignment   RecommendationType = "expert_assignment"
	ResourceAllocation RecommendationType = "resource_allocation"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities for sorting. Unrecognised values rank as low.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	default:
		return 1
	}
}

type CaseRecommendation struct {
	CaseID             string             `json:"caseId"`
	UserID             string             `json:"userId"`
	RecommendationType RecommendationType `json:"recommendationType"`
	Confidence         float64            `json:"confidence"`
	Reasoning          string             `json:"reasoning"`
	Priority           Priority           `json:"priority"`
	Timestamp          time.Time          `json:"timestamp"`
}

type FraudAssessment struct {
	IsSuspicious    bool     `json:"isSuspicious"`
	RiskScore       float64  `json:"riskScore"`
	AnomalyScore    float64  `json:"anomalyScore"`
	RiskFactors     []string `json:"riskFactors"`
	Reasons         []string `json:"reasons"`
	Recommendations []string `json:"recommendations"`
}

func clockOrNow(now signals.Clock) signals.Clock {
	if now == nil {
		return time.Now
	}
	return now
}

// roundScore drops float noise from sums of fixed increments so threshold
// comparisons see the intended value.
func roundScore(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
