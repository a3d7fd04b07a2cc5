package signals_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legaldesk/insights/internal/signals"
	"github.com/legaldesk/insights/internal/storage/sqlite"
	"github.com/legaldesk/insights/internal/storage/sqlite/sqlitetest"
)

var testNow = time.Date(2024, 3, 14, 15, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func ago(d time.Duration) int64 { return testNow.Add(-d).Unix() }

func seedSearch(t *testing.T, db *sqlite.Client, user, query string, relevance float64, at int64) {
	t.Helper()
	sqlitetest.Exec(t, db, `INSERT INTO search_logs (user_id, query, category, relevance_score, results_count, created_at)
		VALUES (?, ?, 'cases', ?, 3, ?)`, user, query, relevance, at)
}

func seedActivity(t *testing.T, db *sqlite.Client, user, action, status string, at int64) {
	t.Helper()
	sqlitetest.Exec(t, db, `INSERT INTO user_activities (user_id, action, status, created_at) VALUES (?, ?, ?, ?)`,
		user, action, status, at)
}

func TestSearchCollector_PopularMatchesGroupsCaseInsensitively(t *testing.T) {
	db := sqlitetest.New(t)
	seedSearch(t, db, "u1", "Contract review", 0.6, ago(time.Hour))
	seedSearch(t, db, "u2", "contract review", 0.8, ago(2*time.Hour))
	seedSearch(t, db, "u2", "court filing", 0.9, ago(time.Hour))

	c := signals.NewSearchCollector(db, fixedClock)
	got, err := c.PopularMatches(context.Background(), "CONTRACT", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Frequency)
	assert.InDelta(t, 0.7, got[0].Relevance, 1e-9)
	assert.Equal(t, "cases", got[0].Category)
}

func TestSearchCollector_LikeWildcardsAreLiteral(t *testing.T) {
	db := sqlitetest.New(t)
	seedSearch(t, db, "u1", "fees 100%", 0.5, ago(time.Hour))
	seedSearch(t, db, "u1", "fees 1000", 0.5, ago(time.Hour))

	c := signals.NewSearchCollector(db, fixedClock)
	got, err := c.PopularMatches(context.Background(), "0%", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "fees 100%", got[0].Query)
}

func TestSearchCollector_UserHistoryOnlyForUser(t *testing.T) {
	db := sqlitetest.New(t)
	seedSearch(t, db, "u1", "deposition", 0.5, ago(time.Hour))
	seedSearch(t, db, "u2", "deposition notes", 0.5, ago(time.Hour))

	c := signals.NewSearchCollector(db, fixedClock)
	got, err := c.UserHistoryMatches(context.Background(), "u1", "depo", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "deposition", got[0].Query)
}

func TestSearchCollector_ContentMatchesAllSources(t *testing.T) {
	db := sqlitetest.New(t)
	sqlitetest.Exec(t, db, `INSERT INTO cases (id, title, created_at) VALUES ('c1', 'Acme merger', 1)`)
	sqlitetest.Exec(t, db, `INSERT INTO documents (id, title, created_at) VALUES ('d1', 'Acme NDA', 2)`)
	sqlitetest.Exec(t, db, `INSERT INTO clients (id, name, created_at) VALUES ('k1', 'Acme Corp', 3)`)
	sqlitetest.Exec(t, db, `INSERT INTO clients (id, name, created_at) VALUES ('k2', 'Globex', 4)`)

	c := signals.NewSearchCollector(db, fixedClock)
	got, err := c.ContentMatches(context.Background(), "acme", 10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	sources := map[string]string{}
	for _, m := range got {
		sources[m.Source] = m.ID
	}
	assert.Equal(t, map[string]string{"case": "c1", "document": "d1", "client": "k1"}, sources)
}

func TestSearchCollector_FrequentQueriesRespectsWindowAndSupport(t *testing.T) {
	db := sqlitetest.New(t)
	for i := 0; i < 3; i++ {
		seedSearch(t, db, "u1", "Billing", 0.5, ago(24*time.Hour))
	}
	seedSearch(t, db, "u1", "rare", 0.5, ago(24*time.Hour))
	for i := 0; i < 3; i++ {
		seedSearch(t, db, "u1", "stale", 0.5, ago(100*24*time.Hour))
	}

	c := signals.NewSearchCollector(db, fixedClock)
	got, err := c.FrequentQueries(context.Background(), 90*24*time.Hour, 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "billing", got[0].Query)
	assert.Equal(t, 3, got[0].Occurrences)
	assert.Equal(t, 1, got[0].Users)
}

func TestBehaviorCollector_RecentActivitiesNewestFirst(t *testing.T) {
	db := sqlitetest.New(t)
	seedActivity(t, db, "u1", "login", "success", ago(3*time.Hour))
	seedActivity(t, db, "u1", "view_case", "success", ago(time.Hour))
	seedActivity(t, db, "u2", "search", "success", ago(time.Minute))

	c := signals.NewBehaviorCollector(db, fixedClock)
	got, err := c.RecentActivities(context.Background(), "u1", signals.RecentActivityLimit)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "view_case", got[0].Action)
	assert.Equal(t, "login", got[1].Action)
}

func TestBehaviorCollector_Patterns(t *testing.T) {
	db := sqlitetest.New(t)
	seedActivity(t, db, "u1", "search", "success", ago(3*time.Hour))
	seedActivity(t, db, "u1", "search", "success", ago(2*time.Hour))
	seedActivity(t, db, "u1", "search", "success", ago(time.Hour))
	seedActivity(t, db, "u1", "login", "failed", ago(time.Hour))
	seedActivity(t, db, "u1", "login", "success", ago(time.Hour))
	seedActivity(t, db, "u1", "export", "success", ago(40*24*time.Hour))

	c := signals.NewBehaviorCollector(db, fixedClock)
	got, err := c.Patterns(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 3, got["search"].Frequency)
	assert.InDelta(t, 3600, got["search"].AvgInterval, 1e-9)
	assert.Equal(t, 0, got["search"].FailedLogins)
	assert.Equal(t, 1, got["login"].FailedLogins)
	assert.NotContains(t, got, "export")
}

func TestPatternMap_MeanInterval(t *testing.T) {
	m := signals.PatternMap{
		"search": {AvgInterval: 100},
		"login":  {AvgInterval: 300},
		"once":   {AvgInterval: 0},
	}
	assert.Equal(t, 200*time.Second, m.MeanInterval())
	assert.Zero(t, signals.PatternMap{}.MeanInterval())
}

func TestBehaviorCollector_ActiveUsers(t *testing.T) {
	db := sqlitetest.New(t)
	for i := 0; i < 5; i++ {
		seedActivity(t, db, "busy", "search", "success", ago(time.Duration(i+1)*time.Hour))
	}
	for i := 0; i < 4; i++ {
		seedActivity(t, db, "quiet", "search", "success", ago(time.Hour))
	}

	c := signals.NewBehaviorCollector(db, fixedClock)
	got, err := c.ActiveUsers(context.Background(), 90*24*time.Hour, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"busy"}, got)
}

func TestFraudCollector_CountsOnlyLastHour(t *testing.T) {
	db := sqlitetest.New(t)
	for i := 0; i < 4; i++ {
		seedActivity(t, db, "u1", "login", "failed", ago(10*time.Minute))
	}
	seedActivity(t, db, "u1", "login", "failed", ago(2*time.Hour))
	seedActivity(t, db, "u1", "search", "failed", ago(5*time.Minute))

	c := signals.NewFraudCollector(db, fixedClock)
	got, err := c.Collect(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 5, got.RecentCount)
	assert.Equal(t, 4, got.FailedLogins)
	assert.Equal(t, 5, got.Patterns["login"].Frequency)
}

func TestFraudCollector_NoActivity(t *testing.T) {
	db := sqlitetest.New(t)

	c := signals.NewFraudCollector(db, fixedClock)
	got, err := c.Collect(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Zero(t, got.RecentCount)
	assert.Zero(t, got.FailedLogins)
	assert.Empty(t, got.Patterns)
}

func TestFraudCollector_ReviewedFlags(t *testing.T) {
	db := sqlitetest.New(t)
	insert := `INSERT INTO suspicious_activities (id, user_id, activity, risk_score, risk_factors, reasons, recommendations, confirmed_fraud, created_at)
		VALUES (?, 'u1', '{}', 0.9, ?, '[]', '[]', ?, ?)`
	sqlitetest.Exec(t, db, insert, "s1", `["unusual_login_time"]`, 1, ago(24*time.Hour))
	sqlitetest.Exec(t, db, insert, "s2", `["high_activity_volume"]`, 0, ago(24*time.Hour))
	sqlitetest.Exec(t, db, insert, "s3", `["unusual_login_time"]`, nil, ago(24*time.Hour))

	c := signals.NewFraudCollector(db, fixedClock)
	got, err := c.ReviewedFlags(context.Background(), 180*24*time.Hour)
	require.NoError(t, err)
	require.Len(t, got, 2)

	confirmed := 0
	for _, f := range got {
		if f.Confirmed {
			confirmed++
			assert.Equal(t, []string{"unusual_login_time"}, f.RiskFactors)
		}
	}
	assert.Equal(t, 1, confirmed)
}

func TestDocumentCollector_FeatureRows(t *testing.T) {
	db := sqlitetest.New(t)
	insert := `INSERT INTO document_classifications (id, document_id, predicted_category, confidence, tags, features, model_version, created_at)
		VALUES (?, ?, 'contract', 0.7, '[]', '{"wordCount":10}', 'v1.0', ?)`
	sqlitetest.Exec(t, db, insert, "r1", "d1", ago(24*time.Hour))
	sqlitetest.Exec(t, db, insert, "r2", "d2", ago(120*24*time.Hour))

	c := signals.NewDocumentCollector(db, fixedClock)
	got, err := c.FeatureRows(context.Background(), 90*24*time.Hour)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "d1", got[0].DocumentID)
	assert.JSONEq(t, `{"wordCount":10}`, got[0].Features)
}

func seedCases(t *testing.T, db *sqlite.Client) {
	t.Helper()
	sqlitetest.Exec(t, db, `INSERT INTO cases (id, title, practice_area, status, created_at) VALUES
		('mine', 'Assigned litigation', 'litigation', 'open', 1),
		('peer', 'Peer litigation', 'litigation', 'open', 2),
		('closed', 'Closed litigation', 'litigation', 'closed', 3),
		('ip-open', 'Patent dispute', 'ip', 'open', 4),
		('tax-open', 'Tax audit', 'tax', 'open', 5)`)
	sqlitetest.Exec(t, db, `INSERT INTO case_assignments (case_id, user_id, role, outcome_score, assigned_at) VALUES
		('mine', 'u1', 'lead', 1.0, ?),
		('peer', 'u2', 'lead', 0.5, ?)`, ago(time.Hour), ago(time.Hour))
	sqlitetest.Exec(t, db, `INSERT INTO user_expertise (user_id, practice_area, years) VALUES ('u1', 'ip', 7)`)
}

func TestCaseCollector_SimilarCasesExcludesOwnAndClosed(t *testing.T) {
	db := sqlitetest.New(t)
	seedCases(t, db)

	c := signals.NewCaseCollector(db, fixedClock)
	got, err := c.SimilarCases(context.Background(), "u1", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "peer", got[0].CaseID)
}

func TestCaseCollector_ExpertAssignmentsOnlyUnassigned(t *testing.T) {
	db := sqlitetest.New(t)
	seedCases(t, db)

	c := signals.NewCaseCollector(db, fixedClock)
	got, err := c.ExpertAssignments(context.Background(), "u1", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ip-open", got[0].CaseID)
	assert.Equal(t, "ip", got[0].PracticeArea)
}

func TestCaseCollector_ResourceAllocations(t *testing.T) {
	db := sqlitetest.New(t)
	seedCases(t, db)
	sqlitetest.Exec(t, db, `INSERT INTO resource_requests (id, case_id, resource_type, priority, status, description, created_at) VALUES
		('r1', 'mine', 'paralegal', 'high', 'pending', 'Discovery review', 10),
		('r2', 'mine', 'expert_witness', 'low', 'fulfilled', 'Done', 11),
		('r3', 'peer', 'paralegal', 'high', 'pending', 'Not ours', 12)`)

	c := signals.NewCaseCollector(db, fixedClock)
	got, err := c.ResourceAllocations(context.Background(), "u1", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0].RequestID)
	assert.Equal(t, "high", got[0].Priority)
	assert.Equal(t, "Assigned litigation", got[0].CaseTitle)
}

func TestCaseCollector_AssignmentPatterns(t *testing.T) {
	db := sqlitetest.New(t)
	seedCases(t, db)
	for i := 0; i < 2; i++ {
		sqlitetest.Exec(t, db, `INSERT INTO case_assignments (case_id, user_id, role, outcome_score, assigned_at)
			VALUES ('peer', 'u1', 'support', 0.5, ?)`, ago(24*time.Hour))
	}

	c := signals.NewCaseCollector(db, fixedClock)
	got, err := c.AssignmentPatterns(context.Background(), 180*24*time.Hour, 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "litigation", got[0].PracticeArea)
	assert.Equal(t, "u1", got[0].UserID)
	assert.Equal(t, 3, got[0].Assignments)
	assert.InDelta(t, 2.0/3.0, got[0].SuccessRate, 1e-9)
}
