package signals

import (
	"context"
	"fmt"
	"time"

	"github.com/legaldesk/insights/internal/storage"
)

type CaseCandidate struct {
	CaseID       string
	Title        string
	PracticeArea string
}

type ResourceCandidate struct {
	RequestID    string
	CaseID       string
	CaseTitle    string
	ResourceType string
	Priority     string
	Description  string
}

// AssignmentPattern is how often a user has been assigned cases in a practice area.
type AssignmentPattern struct {
	PracticeArea string
	UserID       string
	Assignments  int
	SuccessRate  float64
}

type CaseCollector struct {
	gw  storage.Gateway
	now Clock
}

func NewCaseCollector(gw storage.Gateway, now Clock) *CaseCollector {
	return &CaseCollector{gw: gw, now: orDefault(now)}
}

// SimilarCases returns open cases in practice areas the user already works in,
// excluding cases the user is assigned to.
func (c *CaseCollector) SimilarCases(ctx context.Context, userID string, limit int) ([]CaseCandidate, error) {
	rows, err := c.gw.Query(ctx, `
		SELECT c.id, c.title, c.practice_area
		FROM cases c
		WHERE c.status = 'open'
			AND c.practice_area IN (
				SELECT c2.practice_area FROM cases c2
				JOIN case_assignments a ON a.case_id = c2.id
				WHERE a.user_id = ?
			)
			AND c.id NOT IN (SELECT case_id FROM case_assignments WHERE user_id = ?)
		ORDER BY c.created_at DESC
		LIMIT ?
	`, userID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to collect similar cases: %w", err)
	}
	return toCaseCandidates(rows), nil
}

// ExpertAssignments returns unassigned open cases in the user's areas of expertise.
func (c *CaseCollector) ExpertAssignments(ctx context.Context, userID string, limit int) ([]CaseCandidate, error) {
	rows, err := c.gw.Query(ctx, `
		SELECT c.id, c.title, c.practice_area
		FROM cases c
		JOIN user_expertise e ON e.practice_area = c.practice_area AND e.user_id = ?
		WHERE c.status = 'open'
			AND NOT EXISTS (SELECT 1 FROM case_assignments a WHERE a.case_id = c.id)
		ORDER BY e.years DESC, c.created_at DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to collect expert assignments: %w", err)
	}
	return toCaseCandidates(rows), nil
}

// ResourceAllocations returns pending resource requests on the user's cases.
func (c *CaseCollector) ResourceAllocations(ctx context.Context, userID string, limit int) ([]ResourceCandidate, error) {
	rows, err := c.gw.Query(ctx, `
		SELECT DISTINCT r.id, r.case_id, c.title, r.resource_type, r.priority, r.description, r.created_at
		FROM resource_requests r
		JOIN case_assignments a ON a.case_id = r.case_id AND a.user_id = ?
		LEFT JOIN cases c ON c.id = r.case_id
		WHERE r.status = 'pending'
		ORDER BY r.created_at DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to collect resource requests: %w", err)
	}

	out := make([]ResourceCandidate, 0, len(rows))
	for _, row := range rows {
		out = append(out, ResourceCandidate{
			RequestID:    row.String("id"),
			CaseID:       row.String("case_id"),
			CaseTitle:    row.String("title"),
			ResourceType: row.String("resource_type"),
			Priority:     row.String("priority"),
			Description:  row.String("description"),
		})
	}
	return out, nil
}

// AssignmentPatterns groups assignments in window by practice area and user,
// keeping groups with at least minAssignments rows.
func (c *CaseCollector) AssignmentPatterns(ctx context.Context, window time.Duration, minAssignments int) ([]AssignmentPattern, error) {
	rows, err := c.gw.Query(ctx, `
		SELECT c.practice_area, a.user_id, COUNT(*) AS assignments,
			AVG(COALESCE(a.outcome_score, 0)) AS success_rate
		FROM case_assignments a
		JOIN cases c ON c.id = a.case_id
		WHERE a.assigned_at >= ? AND c.practice_area IS NOT NULL
		GROUP BY c.practice_area, a.user_id
		HAVING COUNT(*) >= ?
		ORDER BY c.practice_area, assignments DESC
	`, since(c.now, window), minAssignments)
	if err != nil {
		return nil, fmt.Errorf("failed to collect assignment patterns: %w", err)
	}

	out := make([]AssignmentPattern, 0, len(rows))
	for _, row := range rows {
		out = append(out, AssignmentPattern{
			PracticeArea: row.String("practice_area"),
			UserID:       row.String("user_id"),
			Assignments:  int(row.Int("assignments")),
			SuccessRate:  row.Float("success_rate"),
		})
	}
	return out, nil
}

func toCaseCandidates(rows []storage.Row) []CaseCandidate {
	out := make([]CaseCandidate, 0, len(rows))
	for _, row := range rows {
		out = append(out, CaseCandidate{
			CaseID:       row.String("id"),
			Title:        row.String("title"),
			PracticeArea: row.String("practice_area"),
		})
	}
	return out
}
