package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/legaldesk/insights/internal/storage"
	"github.com/legaldesk/insights/pkg/logger"
)

// Client is the sqlite-backed Persistence Gateway.
type Client struct {
	db *sql.DB
}

var _ storage.Gateway = (*Client)(nil)

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Each connection to an in-memory database is its own database.
	if dbPath == ":memory:" || strings.HasPrefix(dbPath, "file::memory:") {
		db.SetMaxOpenConns(1)
	}

	if _, err = db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err = db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Client) Query(ctx context.Context, statement string, args ...any) ([]storage.Row, error) {
	rows, err := c.db.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var result []storage.Row
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}

		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(storage.Row, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				values[i] = string(b)
			}
			row[col] = values[i]
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return result, nil
}

func (c *Client) Exec(ctx context.Context, statement string, args ...any) error {
	if _, err := c.db.ExecContext(ctx, statement, args...); err != nil {
		return fmt.Errorf("failed to execute statement: %w", err)
	}
	return nil
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_clients_name ON clients(name);

	CREATE TABLE IF NOT EXISTS cases (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		practice_area TEXT,
		status TEXT NOT NULL DEFAULT 'open',
		client_id TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_cases_area ON cases(practice_area);
	CREATE INDEX IF NOT EXISTS idx_cases_status ON cases(status);

	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		case_id TEXT,
		file_type TEXT,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS case_assignments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		case_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		role TEXT,
		outcome_score REAL,
		assigned_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_assignments_user ON case_assignments(user_id);
	CREATE INDEX IF NOT EXISTS idx_assignments_case ON case_assignments(case_id);

	CREATE TABLE IF NOT EXISTS user_expertise (
		user_id TEXT NOT NULL,
		practice_area TEXT NOT NULL,
		years INTEGER DEFAULT 0,
		PRIMARY KEY (user_id, practice_area)
	);

	CREATE TABLE IF NOT EXISTS resource_requests (
		id TEXT PRIMARY KEY,
		case_id TEXT NOT NULL,
		resource_type TEXT NOT NULL,
		priority TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		description TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_resource_case ON resource_requests(case_id);

	CREATE TABLE IF NOT EXISTS search_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT,
		query TEXT NOT NULL,
		category TEXT,
		relevance_score REAL NOT NULL DEFAULT 0,
		results_count INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_search_user ON search_logs(user_id);
	CREATE INDEX IF NOT EXISTS idx_search_created ON search_logs(created_at);

	CREATE TABLE IF NOT EXISTS user_activities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		action TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'success',
		resource_type TEXT,
		resource_id TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_activities_user ON user_activities(user_id, created_at);

	CREATE TABLE IF NOT EXISTS user_behavior_patterns (
		user_id TEXT PRIMARY KEY,
		patterns TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS document_classifications (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL UNIQUE,
		predicted_category TEXT NOT NULL,
		confidence REAL NOT NULL,
		tags TEXT,
		features TEXT,
		model_version TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_classifications_created ON document_classifications(created_at);

	CREATE TABLE IF NOT EXISTS suspicious_activities (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		activity TEXT,
		risk_score REAL NOT NULL,
		risk_factors TEXT,
		reasons TEXT,
		recommendations TEXT,
		status TEXT NOT NULL DEFAULT 'pending_review',
		confirmed_fraud INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_suspicious_user ON suspicious_activities(user_id);
	CREATE INDEX IF NOT EXISTS idx_suspicious_created ON suspicious_activities(created_at);

	CREATE TABLE IF NOT EXISTS ml_model_weights (
		model_type TEXT NOT NULL,
		feature TEXT NOT NULL,
		weight REAL NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (model_type, feature)
	);

	CREATE TABLE IF NOT EXISTS ml_model_metrics (
		model_type TEXT PRIMARY KEY,
		accuracy REAL NOT NULL,
		precision_score REAL NOT NULL,
		recall REAL NOT NULL,
		f1_score REAL NOT NULL,
		training_date INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS ml_classification_rules (
		rule_name TEXT PRIMARY KEY,
		category TEXT NOT NULL,
		condition TEXT NOT NULL,
		priority INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS ml_case_patterns (
		practice_area TEXT NOT NULL,
		user_id TEXT NOT NULL,
		assignment_count INTEGER NOT NULL,
		success_rate REAL NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (practice_area, user_id)
	);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}
