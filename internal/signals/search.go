package signals

import (
	"context"
	"fmt"
	"time"

	"github.com/legaldesk/insights/internal/storage"
)

// SearchCandidate is an aggregated past query matching a partial query.
type SearchCandidate struct {
	Query     string
	Frequency int
	Relevance float64
	Category  string
	LastSeen  time.Time
}

// ContentMatch is a case, document or client whose title contains the partial query.
type ContentMatch struct {
	ID        string
	Title     string
	Source    string
	CreatedAt time.Time
}

// QueryStat is one query's support in the training window.
type QueryStat struct {
	Query       string
	Occurrences int
	Users       int
}

type SearchCollector struct {
	gw  storage.Gateway
	now Clock
}

func NewSearchCollector(gw storage.Gateway, now Clock) *SearchCollector {
	return &SearchCollector{gw: gw, now: orDefault(now)}
}

func (c *SearchCollector) PopularMatches(ctx context.Context, partial string, limit int) ([]SearchCandidate, error) {
	rows, err := c.gw.Query(ctx, `
		SELECT query, COUNT(*) AS frequency, AVG(relevance_score) AS relevance,
			MAX(category) AS category, MAX(created_at) AS last_seen
		FROM search_logs
		WHERE LOWER(query) LIKE ? ESCAPE '\'
		GROUP BY LOWER(query)
		ORDER BY frequency DESC, last_seen DESC
		LIMIT ?
	`, likeContains(partial), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to collect popular searches: %w", err)
	}
	return toCandidates(rows), nil
}

func (c *SearchCollector) UserHistoryMatches(ctx context.Context, userID, partial string, limit int) ([]SearchCandidate, error) {
	rows, err := c.gw.Query(ctx, `
		SELECT query, COUNT(*) AS frequency, AVG(relevance_score) AS relevance,
			MAX(category) AS category, MAX(created_at) AS last_seen
		FROM search_logs
		WHERE user_id = ? AND LOWER(query) LIKE ? ESCAPE '\'
		GROUP BY LOWER(query)
		ORDER BY last_seen DESC
		LIMIT ?
	`, userID, likeContains(partial), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to collect search history: %w", err)
	}
	return toCandidates(rows), nil
}

func (c *SearchCollector) ContentMatches(ctx context.Context, partial string, limit int) ([]ContentMatch, error) {
	pattern := likeContains(partial)
	rows, err := c.gw.Query(ctx, `
		SELECT id, title, 'case' AS source, created_at FROM cases WHERE LOWER(title) LIKE ? ESCAPE '\'
		UNION ALL
		SELECT id, title, 'document' AS source, created_at FROM documents WHERE LOWER(title) LIKE ? ESCAPE '\'
		UNION ALL
		SELECT id, name AS title, 'client' AS source, created_at FROM clients WHERE LOWER(name) LIKE ? ESCAPE '\'
		LIMIT ?
	`, pattern, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to collect content matches: %w", err)
	}

	matches := make([]ContentMatch, 0, len(rows))
	for _, row := range rows {
		matches = append(matches, ContentMatch{
			ID:        row.String("id"),
			Title:     row.String("title"),
			Source:    row.String("source"),
			CreatedAt: row.Time("created_at"),
		})
	}
	return matches, nil
}

// FrequentQueries returns queries searched at least minOccurrences times within window.
func (c *SearchCollector) FrequentQueries(ctx context.Context, window time.Duration, minOccurrences int) ([]QueryStat, error) {
	rows, err := c.gw.Query(ctx, `
		SELECT LOWER(query) AS query, COUNT(*) AS occurrences, COUNT(DISTINCT user_id) AS users
		FROM search_logs
		WHERE created_at >= ?
		GROUP BY LOWER(query)
		HAVING COUNT(*) >= ?
		ORDER BY occurrences DESC
	`, since(c.now, window), minOccurrences)
	if err != nil {
		return nil, fmt.Errorf("failed to collect frequent queries: %w", err)
	}

	stats := make([]QueryStat, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, QueryStat{
			Query:       row.String("query"),
			Occurrences: int(row.Int("occurrences")),
			Users:       int(row.Int("users")),
		})
	}
	return stats, nil
}

func toCandidates(rows []storage.Row) []SearchCandidate {
	candidates := make([]SearchCandidate, 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, SearchCandidate{
			Query:     row.String("query"),
			Frequency: int(row.Int("frequency")),
			Relevance: row.Float("relevance"),
			Category:  row.String("category"),
			LastSeen:  row.Time("last_seen"),
		})
	}
	return candidates
}
