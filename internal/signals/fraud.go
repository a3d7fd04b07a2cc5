package signals

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/legaldesk/insights/internal/storage"
)

// RecentWindow is the look-back for activity volume and failed logins.
const RecentWindow = time.Hour

// RiskSignals is what the fraud scorer knows about a user before scoring an activity.
type RiskSignals struct {
	RecentCount  int
	FailedLogins int
	Patterns     PatternMap
}

// ReviewedFlag is a past suspicious-activity record a reviewer has confirmed or cleared.
type ReviewedFlag struct {
	RiskFactors []string
	Confirmed   bool
}

type FraudCollector struct {
	gw  storage.Gateway
	now Clock
}

func NewFraudCollector(gw storage.Gateway, now Clock) *FraudCollector {
	return &FraudCollector{gw: gw, now: orDefault(now)}
}

func (c *FraudCollector) Collect(ctx context.Context, userID string) (RiskSignals, error) {
	rows, err := c.gw.Query(ctx, `
		SELECT COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN action = 'login' AND status = 'failed' THEN 1 ELSE 0 END), 0) AS failed_logins
		FROM user_activities
		WHERE user_id = ? AND created_at >= ?
	`, userID, since(c.now, RecentWindow))
	if err != nil {
		return RiskSignals{}, fmt.Errorf("failed to collect recent activity volume: %w", err)
	}

	var signals RiskSignals
	if len(rows) > 0 {
		signals.RecentCount = int(rows[0].Int("total"))
		signals.FailedLogins = int(rows[0].Int("failed_logins"))
	}

	signals.Patterns, err = patternMap(ctx, c.gw, userID, since(c.now, PatternWindow))
	if err != nil {
		return RiskSignals{}, err
	}
	return signals, nil
}

// ReviewedFlags returns suspicious-activity records from window that carry a reviewer verdict.
func (c *FraudCollector) ReviewedFlags(ctx context.Context, window time.Duration) ([]ReviewedFlag, error) {
	rows, err := c.gw.Query(ctx, `
		SELECT risk_factors, confirmed_fraud
		FROM suspicious_activities
		WHERE created_at >= ? AND confirmed_fraud IS NOT NULL
	`, since(c.now, window))
	if err != nil {
		return nil, fmt.Errorf("failed to collect reviewed flags: %w", err)
	}

	flags := make([]ReviewedFlag, 0, len(rows))
	for _, row := range rows {
		var factors []string
		if raw := row.String("risk_factors"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &factors); err != nil {
				return nil, fmt.Errorf("failed to decode risk factors: %w", err)
			}
		}
		flags = append(flags, ReviewedFlag{
			RiskFactors: factors,
			Confirmed:   row.Int("confirmed_fraud") != 0,
		})
	}
	return flags, nil
}
