package signals

import (
	"context"
	"fmt"
	"time"

	"github.com/legaldesk/insights/internal/storage"
)

// PatternWindow is the look-back used to derive a user's pattern map.
const PatternWindow = 30 * 24 * time.Hour

// RecentActivityLimit bounds how many recent activity rows a prediction reads.
const RecentActivityLimit = 100

type Activity struct {
	Action    string
	Status    string
	CreatedAt time.Time
}

// PatternStats summarises one action for one user.
type PatternStats struct {
	Frequency int `json:"frequency"`
	// AvgInterval is the mean gap between consecutive occurrences, in seconds.
	AvgInterval  float64 `json:"avgInterval"`
	FailedLogins int     `json:"failedLogins"`
}

// PatternMap is keyed by action.
type PatternMap map[string]PatternStats

// MeanInterval averages the positive per-action intervals.
func (m PatternMap) MeanInterval() time.Duration {
	var sum float64
	n := 0
	for _, p := range m {
		if p.AvgInterval > 0 {
			sum += p.AvgInterval
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return time.Duration(sum / float64(n) * float64(time.Second))
}

type BehaviorCollector struct {
	gw  storage.Gateway
	now Clock
}

func NewBehaviorCollector(gw storage.Gateway, now Clock) *BehaviorCollector {
	return &BehaviorCollector{gw: gw, now: orDefault(now)}
}

func (c *BehaviorCollector) RecentActivities(ctx context.Context, userID string, limit int) ([]Activity, error) {
	rows, err := c.gw.Query(ctx, `
		SELECT action, status, created_at
		FROM user_activities
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to collect recent activities: %w", err)
	}

	activities := make([]Activity, 0, len(rows))
	for _, row := range rows {
		activities = append(activities, Activity{
			Action:    row.String("action"),
			Status:    row.String("status"),
			CreatedAt: row.Time("created_at"),
		})
	}
	return activities, nil
}

func (c *BehaviorCollector) Patterns(ctx context.Context, userID string) (PatternMap, error) {
	return patternMap(ctx, c.gw, userID, since(c.now, PatternWindow))
}

// ActiveUsers lists users with at least minActivities activities within window.
func (c *BehaviorCollector) ActiveUsers(ctx context.Context, window time.Duration, minActivities int) ([]string, error) {
	rows, err := c.gw.Query(ctx, `
		SELECT user_id
		FROM user_activities
		WHERE created_at >= ?
		GROUP BY user_id
		HAVING COUNT(*) >= ?
		ORDER BY user_id
	`, since(c.now, window), minActivities)
	if err != nil {
		return nil, fmt.Errorf("failed to collect active users: %w", err)
	}

	users := make([]string, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.String("user_id"))
	}
	return users, nil
}

func patternMap(ctx context.Context, gw storage.Gateway, userID string, from int64) (PatternMap, error) {
	rows, err := gw.Query(ctx, `
		SELECT action,
			COUNT(*) AS frequency,
			CASE WHEN COUNT(*) > 1
				THEN CAST(MAX(created_at) - MIN(created_at) AS REAL) / (COUNT(*) - 1)
				ELSE 0 END AS avg_interval,
			SUM(CASE WHEN action = 'login' AND status = 'failed' THEN 1 ELSE 0 END) AS failed_logins
		FROM user_activities
		WHERE user_id = ? AND created_at >= ?
		GROUP BY action
	`, userID, from)
	if err != nil {
		return nil, fmt.Errorf("failed to collect behavior patterns: %w", err)
	}

	patterns := make(PatternMap, len(rows))
	for _, row := range rows {
		patterns[row.String("action")] = PatternStats{
			Frequency:    int(row.Int("frequency")),
			AvgInterval:  row.Float("avg_interval"),
			FailedLogins: int(row.Int("failed_logins")),
		}
	}
	return patterns, nil
}
