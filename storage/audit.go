// Package storage provides the SQLite query audit log.
//
// The audit log records how each query was answered: the question, the
// outcome and the tool steps taken along the way. It exists for offline
// inspection only; conversation history itself is never persisted.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/richinex/delphi/model"
)

const auditSchema = `
CREATE TABLE IF NOT EXISTS queries (
	id TEXT PRIMARY KEY,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	question TEXT NOT NULL,
	status TEXT NOT NULL,
	response TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS query_steps (
	id TEXT PRIMARY KEY,
	query_id TEXT NOT NULL REFERENCES queries(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	tool TEXT NOT NULL,
	result TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_queries_created ON queries(created_at);
CREATE INDEX IF NOT EXISTS idx_query_steps_query ON query_steps(query_id, position);
`

// AuditLog persists query outcomes to SQLite.
type AuditLog struct {
	db *sql.DB
}

// QueryRecord is one audited query with its step trace.
type QueryRecord struct {
	ID        string
	CreatedAt time.Time
	Question  string
	Status    model.Status
	Response  string
	Steps     []model.TraceEntry
}

// NewAuditLog opens (or creates) the audit database at path.
// Use ":memory:" for an ephemeral log.
func NewAuditLog(path string) (*AuditLog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec(auditSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create audit schema: %w", err)
	}

	return &AuditLog{db: db}, nil
}

// Record stores one query outcome and returns its generated id.
// The whole record is written in a single transaction.
func (a *AuditLog) Record(ctx context.Context, question string, result model.QueryResult) (string, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id := uuid.New().String()

	response := result.Response
	if result.Status == model.StatusError {
		response = result.Message
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO queries (id, question, status, response) VALUES (?, ?, ?, ?)",
		id, question, string(result.Status), response)
	if err != nil {
		return "", fmt.Errorf("failed to insert query: %w", err)
	}

	for i, step := range result.Steps {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO query_steps (id, query_id, position, tool, result) VALUES (?, ?, ?, ?, ?)",
			uuid.New().String(), id, i, step.Tool, step.Result)
		if err != nil {
			return "", fmt.Errorf("failed to insert step: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}
	return id, nil
}

// Recent returns the most recent records, newest first.
func (a *AuditLog) Recent(ctx context.Context, limit int) ([]QueryRecord, error) {
	if limit < 1 {
		limit = 10
	}

	rows, err := a.db.QueryContext(ctx,
		"SELECT id, created_at, question, status, response FROM queries ORDER BY created_at DESC, id LIMIT ?",
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var records []QueryRecord
	for rows.Next() {
		var rec QueryRecord
		var status string
		if err := rows.Scan(&rec.ID, &rec.CreatedAt, &rec.Question, &status, &rec.Response); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec.Status = model.Status(status)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}

	for i := range records {
		steps, err := a.stepsFor(ctx, records[i].ID)
		if err != nil {
			return nil, err
		}
		records[i].Steps = steps
	}

	return records, nil
}

// stepsFor loads the step trace of one query, in execution order.
func (a *AuditLog) stepsFor(ctx context.Context, queryID string) ([]model.TraceEntry, error) {
	rows, err := a.db.QueryContext(ctx,
		"SELECT tool, result FROM query_steps WHERE query_id = ? ORDER BY position",
		queryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query steps: %w", err)
	}
	defer rows.Close()

	var steps []model.TraceEntry
	for rows.Next() {
		var step model.TraceEntry
		if err := rows.Scan(&step.Tool, &step.Result); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

// Close closes the underlying database.
func (a *AuditLog) Close() error {
	return a.db.Close()
}
