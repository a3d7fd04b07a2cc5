package engine_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legaldesk/insights/internal/cache"
	"github.com/legaldesk/insights/internal/cache/memory"
	"github.com/legaldesk/insights/internal/engine"
	"github.com/legaldesk/insights/internal/metrics"
	"github.com/legaldesk/insights/internal/scoring"
	"github.com/legaldesk/insights/internal/storage"
	"github.com/legaldesk/insights/internal/storage/models"
	"github.com/legaldesk/insights/internal/storage/sqlite"
	"github.com/legaldesk/insights/internal/storage/sqlite/sqlitetest"
)

var now = time.Date(2024, 3, 14, 2, 30, 0, 0, time.UTC)

func clock() time.Time { return now }

// countingGateway counts Query calls and can be switched into failure.
type countingGateway struct {
	storage.Gateway
	queries atomic.Int64
	fail    atomic.Bool
}

func (g *countingGateway) Query(ctx context.Context, statement string, args ...any) ([]storage.Row, error) {
	g.queries.Add(1)
	if g.fail.Load() {
		return nil, errors.New("connection reset")
	}
	return g.Gateway.Query(ctx, statement, args...)
}

func (g *countingGateway) Exec(ctx context.Context, statement string, args ...any) error {
	if g.fail.Load() {
		return errors.New("connection reset")
	}
	return g.Gateway.Exec(ctx, statement, args...)
}

func setup(t *testing.T) (*sqlite.Client, *countingGateway, *engine.Engine) {
	t.Helper()
	db := sqlitetest.New(t)
	gw := &countingGateway{Gateway: db}
	store := memory.NewStore(100).WithClock(clock)
	return db, gw, engine.New(gw, store, engine.Options{Now: clock})
}

func TestEngine_SuggestionsServedFromCache(t *testing.T) {
	db, gw, e := setup(t)
	ctx := context.Background()
	sqlitetest.Exec(t, db, `INSERT INTO search_logs (user_id, query, category, relevance_score, created_at) VALUES ('u1', 'indemnity clause', 'documents', 0.8, ?)`, now.Unix())

	first := e.GenerateSearchSuggestions(ctx, "indem", "u1", 0)
	require.NotEmpty(t, first)
	collected := gw.queries.Load()

	second := e.GenerateSearchSuggestions(ctx, "indem", "u1", 0)
	assert.Equal(t, collected, gw.queries.Load())
	assert.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Query, second[i].Query)
		assert.Equal(t, first[i].Relevance, second[i].Relevance)
		assert.True(t, first[i].Timestamp.Equal(second[i].Timestamp))
	}
}

// steppedSetup gives the cache its own clock so entries can be aged past
// their TTL while the engine's scoring clock stays put.
func steppedSetup(t *testing.T) (*sqlite.Client, *countingGateway, *engine.Engine, func(time.Duration)) {
	t.Helper()
	db := sqlitetest.New(t)
	gw := &countingGateway{Gateway: db}
	storeNow := now
	store := memory.NewStore(100).WithClock(func() time.Time { return storeNow })
	advance := func(d time.Duration) { storeNow = storeNow.Add(d) }
	return db, gw, engine.New(gw, store, engine.Options{Now: clock}), advance
}

func TestEngine_SuggestionsRecomputedAfterTTL(t *testing.T) {
	db, gw, e, advance := steppedSetup(t)
	ctx := context.Background()
	sqlitetest.Exec(t, db, `INSERT INTO search_logs (user_id, query, relevance_score, created_at) VALUES ('u1', 'indemnity clause', 0.8, ?)`, now.Unix())

	e.GenerateSearchSuggestions(ctx, "indem", "u1", 0)
	collected := gw.queries.Load()

	advance(cache.SuggestionsTTL - time.Second)
	e.GenerateSearchSuggestions(ctx, "indem", "u1", 0)
	assert.Equal(t, collected, gw.queries.Load(), "served from cache inside the TTL")

	advance(time.Second)
	got := e.GenerateSearchSuggestions(ctx, "indem", "u1", 0)
	assert.Greater(t, gw.queries.Load(), collected, "recollected once the TTL ran out")
	require.Len(t, got, 1)
	assert.Equal(t, "indemnity clause", got[0].Query)
}

func TestEngine_RecommendationsRecomputedAfterTTL(t *testing.T) {
	db, gw, e, advance := steppedSetup(t)
	ctx := context.Background()
	sqlitetest.Exec(t, db, `INSERT INTO cases (id, title, practice_area, status, created_at) VALUES ('ip', 'Patent', 'ip', 'open', 3)`)
	sqlitetest.Exec(t, db, `INSERT INTO user_expertise (user_id, practice_area, years) VALUES ('u1', 'ip', 4)`)

	require.Len(t, e.GenerateCaseRecommendations(ctx, "u1", 0), 1)
	collected := gw.queries.Load()

	advance(cache.RecommendationsTTL - time.Second)
	e.GenerateCaseRecommendations(ctx, "u1", 0)
	assert.Equal(t, collected, gw.queries.Load())

	advance(time.Second)
	e.GenerateCaseRecommendations(ctx, "u1", 0)
	assert.Greater(t, gw.queries.Load(), collected)
}

func TestEngine_SuggestionsDegradeToEmpty(t *testing.T) {
	_, gw, e := setup(t)
	gw.fail.Store(true)

	got := e.GenerateSearchSuggestions(context.Background(), "x", "", 5)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	gw.fail.Store(false)
	before := gw.queries.Load()
	e.GenerateSearchSuggestions(context.Background(), "x", "", 5)
	assert.Greater(t, gw.queries.Load(), before, "failures must not be cached")
}

func TestEngine_RecommendationsDegradeToEmpty(t *testing.T) {
	_, gw, e := setup(t)
	gw.fail.Store(true)

	got := e.GenerateCaseRecommendations(context.Background(), "u1", 0)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestEngine_RecommendationsRanked(t *testing.T) {
	db, _, e := setup(t)
	sqlitetest.Exec(t, db, `INSERT INTO cases (id, title, practice_area, status, created_at) VALUES
		('mine', 'Mine', 'litigation', 'open', 1), ('peer', 'Peer', 'litigation', 'open', 2), ('ip', 'Patent', 'ip', 'open', 3)`)
	sqlitetest.Exec(t, db, `INSERT INTO case_assignments (case_id, user_id, assigned_at) VALUES ('mine', 'u1', 1), ('peer', 'u2', 1)`)
	sqlitetest.Exec(t, db, `INSERT INTO user_expertise (user_id, practice_area, years) VALUES ('u1', 'ip', 4)`)
	sqlitetest.Exec(t, db, `INSERT INTO resource_requests (id, case_id, resource_type, priority, created_at) VALUES ('r1', 'mine', 'paralegal', 'low', 1)`)

	got := e.GenerateCaseRecommendations(context.Background(), "u1", 0)
	require.Len(t, got, 3)
	assert.Equal(t, scoring.ExpertAssignment, got[0].RecommendationType)
	assert.Equal(t, scoring.SimilarCase, got[1].RecommendationType)
	assert.Equal(t, scoring.ResourceAllocation, got[2].RecommendationType)
}

func TestEngine_BehaviorPropagatesErrors(t *testing.T) {
	_, gw, e := setup(t)
	gw.fail.Store(true)

	_, err := e.PredictUserBehavior(context.Background(), "u1")
	assert.Error(t, err)
}

func TestEngine_BehaviorCached(t *testing.T) {
	db, gw, e := setup(t)
	ctx := context.Background()
	sqlitetest.Exec(t, db, `INSERT INTO user_activities (user_id, action, created_at) VALUES ('u1', 'view_case', ?)`, now.Add(-time.Hour).Unix())

	first, err := e.PredictUserBehavior(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "view_case", first.PredictedAction)

	gw.fail.Store(true)
	second, err := e.PredictUserBehavior(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, first.PredictedAction, second.PredictedAction)
}

func TestEngine_ClassifyDocumentPersistsOnce(t *testing.T) {
	db, _, e := setup(t)
	ctx := context.Background()
	content := "The plaintiff filed with the court. " + strings.Repeat("word ", 1200)

	got, err := e.ClassifyDocument(ctx, "doc-1", content, scoring.DocumentMetadata{FileType: "pdf", FileSize: 2048})
	require.NoError(t, err)
	assert.Equal(t, scoring.CategoryLegalDocument, got.PredictedCategory)
	assert.Equal(t, 0.95, got.Confidence)

	_, err = e.ClassifyDocument(ctx, "doc-1", "ignored on cache hit", scoring.DocumentMetadata{FileType: "txt"})
	require.NoError(t, err)

	rows, err := db.Query(ctx, `SELECT predicted_category, model_version FROM document_classifications WHERE document_id = 'doc-1'`)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, scoring.CategoryLegalDocument, rows[0].String("predicted_category"))
	assert.Equal(t, scoring.DefaultModelVersion, rows[0].String("model_version"))
}

func TestEngine_ClassifyDocumentPropagatesErrors(t *testing.T) {
	_, gw, e := setup(t)
	gw.fail.Store(true)

	_, err := e.ClassifyDocument(context.Background(), "doc-1", "text", scoring.DocumentMetadata{})
	assert.Error(t, err)
}

func TestEngine_FraudNeverCached(t *testing.T) {
	db, gw, e := setup(t)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		sqlitetest.Exec(t, db, `INSERT INTO user_activities (user_id, action, status, created_at) VALUES ('u1', 'login', 'failed', ?)`, now.Add(-5*time.Minute).Unix())
	}

	first, err := e.DetectFraud(ctx, "u1", scoring.ActivityPayload{Action: "login"})
	require.NoError(t, err)
	afterFirst := gw.queries.Load()

	second, err := e.DetectFraud(ctx, "u1", scoring.ActivityPayload{Action: "login"})
	require.NoError(t, err)
	assert.Greater(t, gw.queries.Load(), afterFirst)

	assert.Equal(t, first, second)
	assert.Contains(t, first.RiskFactors, scoring.FactorUnusualLoginTime)
	assert.Contains(t, first.RiskFactors, scoring.FactorMultipleFailedLogins)
	assert.InDelta(t, 0.4, first.RiskScore, 1e-9)
	assert.False(t, first.IsSuspicious)
}

func TestEngine_FraudRecordsSuspiciousActivity(t *testing.T) {
	db, _, e := setup(t)
	ctx := context.Background()
	for i := 0; i < 60; i++ {
		sqlitetest.Exec(t, db, `INSERT INTO user_activities (user_id, action, status, created_at) VALUES ('u1', 'login', 'failed', ?)`, now.Add(-10*time.Minute).Unix())
	}

	got, err := e.DetectFraud(ctx, "u1", scoring.ActivityPayload{Action: "bulk_export"})
	require.NoError(t, err)
	assert.True(t, got.IsSuspicious)
	assert.Equal(t, 0.9, got.RiskScore)
	assert.Equal(t, []string{"Excessive failed login attempts"}, got.Reasons)

	rows, err := db.Query(ctx, `SELECT user_id, risk_score, status, activity FROM suspicious_activities`)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "u1", rows[0].String("user_id"))
	assert.Equal(t, "pending_review", rows[0].String("status"))
	assert.JSONEq(t, `{"action":"bulk_export"}`, rows[0].String("activity"))

	assert.False(t, metrics.ConfidenceScore.DeleteLabelValues(models.ModelFraud), "risk is not a confidence")
}

func TestEngine_TrainingAndPerformance(t *testing.T) {
	_, _, e := setup(t)
	ctx := context.Background()

	summary, err := e.TrainModels(ctx)
	require.NoError(t, err)
	assert.Len(t, summary.Trainers, 5)

	perf, err := e.GetModelPerformance(ctx)
	require.NoError(t, err)
	require.Len(t, perf, 5)

	weights, err := e.GetModelWeights(ctx, models.ModelSuggestion)
	require.NoError(t, err)
	assert.Len(t, weights, 3)
}

func TestEngine_TrainingPropagatesErrors(t *testing.T) {
	_, gw, e := setup(t)
	gw.fail.Store(true)

	_, err := e.TrainModels(context.Background())
	assert.Error(t, err)

	_, err = e.GetModelPerformance(context.Background())
	assert.Error(t, err)
}

func TestEngine_NilStoreDisablesCaching(t *testing.T) {
	db := sqlitetest.New(t)
	gw := &countingGateway{Gateway: db}
	var store *memory.Store
	e := engine.New(gw, store, engine.Options{Now: clock})

	e.GenerateSearchSuggestions(context.Background(), "x", "", 5)
	first := gw.queries.Load()
	e.GenerateSearchSuggestions(context.Background(), "x", "", 5)
	assert.Equal(t, 2*first, gw.queries.Load())
}
