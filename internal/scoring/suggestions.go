package scoring

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/legaldesk/insights/internal/signals"
)

const (
	DefaultSuggestionLimit = 10
	userHistoryBoost       = 1.2
)

type SuggestionSource interface {
	PopularMatches(ctx context.Context, partial string, limit int) ([]signals.SearchCandidate, error)
	UserHistoryMatches(ctx context.Context, userID, partial string, limit int) ([]signals.SearchCandidate, error)
	ContentMatches(ctx context.Context, partial string, limit int) ([]signals.ContentMatch, error)
}

type SuggestionRequest struct {
	PartialQuery string
	// UserID is optional; when empty the history pool is skipped.
	UserID string
	Limit  int
}

type SuggestionRanker struct {
	source SuggestionSource
	now    signals.Clock
}

func NewSuggestionRanker(source SuggestionSource, now signals.Clock) *SuggestionRanker {
	return &SuggestionRanker{source: source, now: clockOrNow(now)}
}

var _ Scorer[SuggestionRequest, []SearchSuggestion] = (*SuggestionRanker)(nil)

func (r *SuggestionRanker) Score(ctx context.Context, req SuggestionRequest) ([]SearchSuggestion, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}

	popular, err := r.source.PopularMatches(ctx, req.PartialQuery, limit)
	if err != nil {
		return nil, err
	}
	pool := make([]SearchSuggestion, 0, limit*3)
	for _, c := range popular {
		pool = append(pool, r.fromCandidate(c, 1))
	}

	if req.UserID != "" {
		history, err := r.source.UserHistoryMatches(ctx, req.UserID, req.PartialQuery, limit)
		if err != nil {
			return nil, err
		}
		for _, c := range history {
			pool = append(pool, r.fromCandidate(c, userHistoryBoost))
		}
	}

	content, err := r.source.ContentMatches(ctx, req.PartialQuery, limit)
	if err != nil {
		return nil, err
	}
	for _, m := range content {
		pool = append(pool, SearchSuggestion{
			Query:     m.Title,
			Relevance: contentRelevance(req.PartialQuery, m.Title),
			Category:  m.Source,
			Timestamp: r.stamp(m.CreatedAt),
		})
	}

	return rankSuggestions(pool, limit), nil
}

func (r *SuggestionRanker) fromCandidate(c signals.SearchCandidate, boost float64) SearchSuggestion {
	return SearchSuggestion{
		Query:     c.Query,
		Frequency: c.Frequency,
		Relevance: c.Relevance * boost,
		Category:  c.Category,
		Timestamp: r.stamp(c.LastSeen),
	}
}

func (r *SuggestionRanker) stamp(t time.Time) time.Time {
	if t.IsZero() {
		return r.now()
	}
	return t
}

// rankSuggestions drops later duplicates of a lower-cased query, then orders
// by relevance keeping collection order among equals.
func rankSuggestions(pool []SearchSuggestion, limit int) []SearchSuggestion {
	seen := make(map[string]struct{}, len(pool))
	unique := make([]SearchSuggestion, 0, len(pool))
	for _, s := range pool {
		key := strings.ToLower(s.Query)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, s)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Relevance > unique[j].Relevance
	})

	if len(unique) > limit {
		unique = unique[:limit]
	}
	return unique
}

// contentRelevance scores a title against the query terms in [0,1]: the share
// of terms present, damped by how much of the title those terms cover.
func contentRelevance(query, title string) float64 {
	terms := strings.Fields(strings.ToLower(query))
	text := strings.ToLower(title)
	if len(terms) == 0 || text == "" {
		return 0
	}

	matched, covered := 0, 0
	for _, term := range terms {
		if n := strings.Count(text, term); n > 0 {
			matched++
			covered += n * len(term)
		}
	}
	if matched == 0 {
		return 0
	}

	density := float64(covered) / float64(len(text))
	if density > 1 {
		density = 1
	}
	coverage := float64(matched) / float64(len(terms))
	return coverage * (0.5 + 0.5*density)
}
