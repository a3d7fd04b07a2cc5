package scoring

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/legaldesk/insights/internal/signals"
)

const DefaultRecommendationLimit = 5

const (
	similarCaseConfidence        = 0.8
	expertAssignmentConfidence   = 0.9
	resourceAllocationConfidence = 0.7
)

type CaseSource interface {
	SimilarCases(ctx context.Context, userID string, limit int) ([]signals.CaseCandidate, error)
	ExpertAssignments(ctx context.Context, userID string, limit int) ([]signals.CaseCandidate, error)
	ResourceAllocations(ctx context.Context, userID string, limit int) ([]signals.ResourceCandidate, error)
}

type CaseRequest struct {
	UserID string
	Limit  int
}

type CaseRecommender struct {
	source CaseSource
	now    signals.Clock
}

func NewCaseRecommender(source CaseSource, now signals.Clock) *CaseRecommender {
	return &CaseRecommender{source: source, now: clockOrNow(now)}
}

var _ Scorer[CaseRequest, []CaseRecommendation] = (*CaseRecommender)(nil)

func (r *CaseRecommender) Score(ctx context.Context, req CaseRequest) ([]CaseRecommendation, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultRecommendationLimit
	}
	now := r.now()

	similar, err := r.source.SimilarCases(ctx, req.UserID, limit)
	if err != nil {
		return nil, err
	}
	experts, err := r.source.ExpertAssignments(ctx, req.UserID, limit)
	if err != nil {
		return nil, err
	}
	resources, err := r.source.ResourceAllocations(ctx, req.UserID, limit)
	if err != nil {
		return nil, err
	}

	recs := make([]CaseRecommendation, 0, len(similar)+len(experts)+len(resources))
	for _, c := range similar {
		recs = append(recs, CaseRecommendation{
			CaseID:             c.CaseID,
			UserID:             req.UserID,
			RecommendationType: SimilarCase,
			Confidence:         similarCaseConfidence,
			Reasoning:          fmt.Sprintf("Open %s case similar to cases you have worked on", areaOrGeneral(c.PracticeArea)),
			Priority:           PriorityMedium,
			Timestamp:          now,
		})
	}
	for _, c := range experts {
		recs = append(recs, CaseRecommendation{
			CaseID:             c.CaseID,
			UserID:             req.UserID,
			RecommendationType: ExpertAssignment,
			Confidence:         expertAssignmentConfidence,
			Reasoning:          fmt.Sprintf("Unassigned case matching your %s expertise", areaOrGeneral(c.PracticeArea)),
			Priority:           PriorityHigh,
			Timestamp:          now,
		})
	}
	for _, res := range resources {
		recs = append(recs, CaseRecommendation{
			CaseID:             res.CaseID,
			UserID:             req.UserID,
			RecommendationType: ResourceAllocation,
			Confidence:         resourceAllocationConfidence,
			Reasoning:          resourceReasoning(res),
			Priority:           ParsePriority(res.Priority),
			Timestamp:          now,
		})
	}

	return rankRecommendations(recs, limit), nil
}

// ParsePriority maps stored priority text onto a Priority; anything
// unrecognised is low.
func ParsePriority(s string) Priority {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case PriorityHigh, PriorityMedium:
		return p
	default:
		return PriorityLow
	}
}

// rankRecommendations orders by priority rank then confidence, both descending.
func rankRecommendations(recs []CaseRecommendation, limit int) []CaseRecommendation {
	sort.SliceStable(recs, func(i, j int) bool {
		ri, rj := recs[i].Priority.Rank(), recs[j].Priority.Rank()
		if ri != rj {
			return ri > rj
		}
		return recs[i].Confidence > recs[j].Confidence
	})
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs
}

func resourceReasoning(r signals.ResourceCandidate) string {
	target := r.CaseTitle
	if target == "" {
		target = r.CaseID
	}
	if r.Description != "" {
		return fmt.Sprintf("Pending %s request on %s: %s", r.ResourceType, target, r.Description)
	}
	return fmt.Sprintf("Pending %s request on %s", r.ResourceType, target)
}

func areaOrGeneral(area string) string {
	if area == "" {
		return "general"
	}
	return area
}
