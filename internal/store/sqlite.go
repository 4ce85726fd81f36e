package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/promptbench/engine/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS executions (
			execution_id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			total_turns INTEGER NOT NULL DEFAULT 0,
			result TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_executions_created ON executions(created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveResult stores the full conversation result for an execution.
func (s *SQLiteStore) SaveResult(ctx context.Context, executionID string, result *domain.ConversationResult) error {
	payload, err := json.Marshal(result.ToMap())
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO executions (execution_id, status, total_turns, result) VALUES (?, ?, ?, ?)`,
		executionID, string(result.Status), result.TotalTurns, string(payload))
	return err
}

// GetResult retrieves a stored result by execution ID. A missing row returns
// (nil, nil).
func (s *SQLiteStore) GetResult(ctx context.Context, executionID string) (*domain.ConversationResult, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT result FROM executions WHERE execution_id = ?`,
		executionID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode stored result: %w", err)
	}
	return domain.ResultFromMap(raw)
}

// ListExecutions lists stored executions, newest first.
func (s *SQLiteStore) ListExecutions(ctx context.Context, limit int) ([]ExecutionSummary, error) {
	query := `SELECT execution_id, status, total_turns, created_at FROM executions ORDER BY created_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ExecutionSummary
	for rows.Next() {
		var row ExecutionSummary
		if err := rows.Scan(&row.ExecutionID, &row.Status, &row.TotalTurns, &row.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
