package scoring

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/legaldesk/insights/internal/signals"
	"github.com/legaldesk/insights/internal/storage/models"
)

// Risk factor names, also used as fraud model weight features.
const (
	FactorUnusualLoginTime     = "unusual_login_time"
	FactorHighActivityVolume   = "high_activity_volume"
	FactorMultipleFailedLogins = "multiple_failed_logins"
)

// SuspiciousThreshold is exclusive: a risk score of exactly this value is not suspicious.
const SuspiciousThreshold = 0.7

const (
	highActivityVolume    = 50
	multipleFailedLogins  = 3
	excessiveFailedLogins = 5
)

// ActivityPayload is the activity being assessed. Type is accepted as an
// alias for Action.
type ActivityPayload struct {
	Action    string         `json:"action,omitempty"`
	Type      string         `json:"type,omitempty"`
	Timestamp *time.Time     `json:"timestamp,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

func (a ActivityPayload) Name() string {
	if a.Action != "" {
		return a.Action
	}
	return a.Type
}

func (a ActivityPayload) raw() map[string]any {
	m := map[string]any{"action": a.Name()}
	if a.Type != "" {
		m["type"] = a.Type
	}
	if a.Timestamp != nil {
		m["timestamp"] = a.Timestamp.UTC().Format(time.RFC3339)
	}
	for k, v := range a.Details {
		if _, taken := m[k]; !taken {
			m[k] = v
		}
	}
	return m
}

type FraudInput struct {
	UserID   string
	Activity ActivityPayload
}

type FraudSource interface {
	Collect(ctx context.Context, userID string) (signals.RiskSignals, error)
}

type SuspiciousActivityWriter interface {
	InsertSuspiciousActivity(ctx context.Context, a models.SuspiciousActivity) error
}

// FraudScorer reads the hour of day from its clock's location.
type FraudScorer struct {
	source FraudSource
	writer SuspiciousActivityWriter
	now    signals.Clock
}

func NewFraudScorer(source FraudSource, writer SuspiciousActivityWriter, now signals.Clock) *FraudScorer {
	return &FraudScorer{source: source, writer: writer, now: clockOrNow(now)}
}

var _ Scorer[FraudInput, FraudAssessment] = (*FraudScorer)(nil)

func (s *FraudScorer) Score(ctx context.Context, in FraudInput) (FraudAssessment, error) {
	if in.UserID == "" {
		return FraudAssessment{}, fmt.Errorf("user id is required")
	}

	sig, err := s.source.Collect(ctx, in.UserID)
	if err != nil {
		return FraudAssessment{}, err
	}

	now := s.now()
	factors := riskFactors(now, sig)
	anomaly := anomalyScore(now, in.Activity, sig.Patterns)

	risk := anomaly
	for _, f := range factors {
		risk += factorPenalty(f)
	}
	risk = math.Min(1, roundScore(risk))

	assessment := FraudAssessment{
		IsSuspicious:    risk > SuspiciousThreshold,
		RiskScore:       risk,
		AnomalyScore:    anomaly,
		RiskFactors:     factors,
		Reasons:         []string{},
		Recommendations: []string{},
	}

	// These checks are independent of IsSuspicious.
	if anomaly > 0.8 {
		assessment.Reasons = append(assessment.Reasons, "Activity pattern deviates significantly from user baseline")
		assessment.Recommendations = append(assessment.Recommendations, "Require additional verification")
	}
	if len(factors) > 3 {
		assessment.Reasons = append(assessment.Reasons, "Multiple risk factors detected")
		assessment.Recommendations = append(assessment.Recommendations, "Review recent account activity")
	}
	if sig.FailedLogins > excessiveFailedLogins {
		assessment.Reasons = append(assessment.Reasons, "Excessive failed login attempts")
		assessment.Recommendations = append(assessment.Recommendations, "Temporarily lock account and notify user")
	}

	if assessment.IsSuspicious {
		err := s.writer.InsertSuspiciousActivity(ctx, models.SuspiciousActivity{
			ID:              uuid.NewString(),
			UserID:          in.UserID,
			Activity:        in.Activity.raw(),
			RiskScore:       risk,
			RiskFactors:     factors,
			Reasons:         assessment.Reasons,
			Recommendations: assessment.Recommendations,
			CreatedAt:       now,
		})
		if err != nil {
			return FraudAssessment{}, err
		}
	}

	return assessment, nil
}

func riskFactors(now time.Time, sig signals.RiskSignals) []string {
	factors := []string{}
	if h := now.Hour(); h < 6 || h > 22 {
		factors = append(factors, FactorUnusualLoginTime)
	}
	if sig.RecentCount > highActivityVolume {
		factors = append(factors, FactorHighActivityVolume)
	}
	if sig.FailedLogins > multipleFailedLogins {
		factors = append(factors, FactorMultipleFailedLogins)
	}
	return factors
}

func factorPenalty(factor string) float64 {
	switch factor {
	case FactorUnusualLoginTime:
		return 0.1
	case FactorHighActivityVolume:
		return 0.2
	case FactorMultipleFailedLogins:
		return 0.3
	default:
		return 0
	}
}

func anomalyScore(now time.Time, activity ActivityPayload, patterns signals.PatternMap) float64 {
	score := 0.0
	if _, known := patterns[activity.Name()]; !known {
		score += 0.3
	}
	if activity.Timestamp != nil {
		mean := patterns.MeanInterval()
		if mean > 0 && now.Sub(*activity.Timestamp) < mean/2 {
			score += 0.2
		}
	}
	return math.Min(1, roundScore(score))
}
