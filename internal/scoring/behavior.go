package scoring

import (
	"context"
	"math"

	"github.com/legaldesk/insights/internal/signals"
)

type Action string

const (
	ActionViewCase       Action = "view_case"
	ActionCreateDocument Action = "create_document"
	ActionSearch         Action = "search"
	ActionUpdateCase     Action = "update_case"
	ActionLogin          Action = "login"

	// ActionViewDashboard is predicted when a user has no activity.
	ActionViewDashboard Action = "view_dashboard"
)

const maxBehaviorConfidence = 0.9

type BehaviorSource interface {
	RecentActivities(ctx context.Context, userID string, limit int) ([]signals.Activity, error)
	Patterns(ctx context.Context, userID string) (signals.PatternMap, error)
}

type BehaviorPredictor struct {
	source BehaviorSource
	now    signals.Clock
}

func NewBehaviorPredictor(source BehaviorSource, now signals.Clock) *BehaviorPredictor {
	return &BehaviorPredictor{source: source, now: clockOrNow(now)}
}

var _ Scorer[string, UserBehaviorPrediction] = (*BehaviorPredictor)(nil)

func (p *BehaviorPredictor) Score(ctx context.Context, userID string) (UserBehaviorPrediction, error) {
	activities, err := p.source.RecentActivities(ctx, userID, signals.RecentActivityLimit)
	if err != nil {
		return UserBehaviorPrediction{}, err
	}
	patterns, err := p.source.Patterns(ctx, userID)
	if err != nil {
		return UserBehaviorPrediction{}, err
	}

	predicted := mostFrequentAction(activities)
	return UserBehaviorPrediction{
		UserID:          userID,
		PredictedAction: string(predicted),
		Confidence:      behaviorConfidence(len(activities), len(patterns)),
		NextBestAction:  nextBestAction(predicted),
		Recommendations: behaviorRecommendations(predicted),
		Timestamp:       p.now(),
	}, nil
}

// mostFrequentAction breaks ties by whichever action appeared first.
func mostFrequentAction(activities []signals.Activity) Action {
	if len(activities) == 0 {
		return ActionViewDashboard
	}

	counts := make(map[string]int)
	var order []string
	for _, a := range activities {
		if _, ok := counts[a.Action]; !ok {
			order = append(order, a.Action)
		}
		counts[a.Action]++
	}

	best := order[0]
	for _, action := range order[1:] {
		if counts[action] > counts[best] {
			best = action
		}
	}
	return Action(best)
}

func behaviorConfidence(recentCount, patternActions int) float64 {
	c := (float64(recentCount) / float64(signals.RecentActivityLimit)) * (float64(patternActions) / 10)
	return math.Min(maxBehaviorConfidence, c)
}

func nextBestAction(a Action) string {
	switch a {
	case ActionViewCase:
		return "review_case_documents"
	case ActionCreateDocument:
		return "share_with_client"
	case ActionSearch:
		return "refine_search"
	case ActionUpdateCase:
		return "notify_client"
	case ActionLogin:
		return "check_notifications"
	default:
		return "explore_dashboard"
	}
}

func behaviorRecommendations(a Action) []string {
	switch a {
	case ActionViewCase:
		return []string{
			"Review recent case updates",
			"Check upcoming case deadlines",
			"Review related documents",
		}
	case ActionCreateDocument:
		return []string{
			"Use a document template",
			"Share the document for review",
		}
	case ActionSearch:
		return []string{
			"Save frequent searches",
			"Use advanced search filters",
		}
	default:
		return []string{
			"Explore the dashboard",
			"Review recent activity",
		}
	}
}
