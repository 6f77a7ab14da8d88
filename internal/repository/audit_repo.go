// Package repository provides data access for session audit records.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/remote-shell-broker/backend/internal/model"
)

// AuditRepository persists one row per spawned session. Records are purely
// historical; sessions are never revived from them.
type AuditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates an AuditRepository.
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// SessionStarted inserts a running record and returns its row id.
func (r *AuditRepository) SessionStarted(ctx context.Context, rec *model.SessionRecord) (int64, error) {
	query := `
		INSERT INTO session_audit (session_id, conn_id, shell, workdir, pid, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := r.db.ExecContext(ctx, query,
		rec.SessionID,
		rec.ConnID,
		string(rec.Shell),
		rec.Workdir,
		rec.PID,
		string(rec.Status),
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert audit record: %w", err)
	}
	return res.LastInsertId()
}

// SessionFinished stamps the record's final status and exit code.
func (r *AuditRepository) SessionFinished(ctx context.Context, rowID int64, status model.SessionStatus, exitCode *int) error {
	query := `
		UPDATE session_audit
		SET status = ?, exit_code = ?, updated_at = ?
		WHERE id = ?
	`

	if _, err := r.db.ExecContext(ctx, query, string(status), exitCode, time.Now(), rowID); err != nil {
		return fmt.Errorf("failed to update audit record: %w", err)
	}
	return nil
}

// MarkInterrupted flips every record still marked running to interrupted.
// Called once at boot: anything running then belonged to a previous broker
// process and is gone.
func (r *AuditRepository) MarkInterrupted(ctx context.Context) (int64, error) {
	query := `
		UPDATE session_audit
		SET status = ?, updated_at = ?
		WHERE status = ?
	`

	res, err := r.db.ExecContext(ctx, query,
		string(model.SessionStatusInterrupted),
		time.Now(),
		string(model.SessionStatusRunning),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark interrupted sessions: %w", err)
	}
	return res.RowsAffected()
}

// List returns the most recent records, newest first.
func (r *AuditRepository) List(ctx context.Context, limit int) ([]*model.SessionRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, session_id, conn_id, shell, workdir, pid, status, exit_code, created_at, updated_at
		FROM session_audit
		ORDER BY id DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit records: %w", err)
	}
	defer rows.Close()

	var records []*model.SessionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetByRowID retrieves a single record.
func (r *AuditRepository) GetByRowID(ctx context.Context, rowID int64) (*model.SessionRecord, error) {
	query := `
		SELECT id, session_id, conn_id, shell, workdir, pid, status, exit_code, created_at, updated_at
		FROM session_audit
		WHERE id = ?
	`

	rows, err := r.db.QueryContext(ctx, query, rowID)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit record: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, model.ErrSessionNotFound
	}
	return scanRecord(rows)
}

func scanRecord(rows *sql.Rows) (*model.SessionRecord, error) {
	rec := &model.SessionRecord{}
	var shell, status string
	var exitCode sql.NullInt64

	err := rows.Scan(
		&rec.RowID,
		&rec.SessionID,
		&rec.ConnID,
		&shell,
		&rec.Workdir,
		&rec.PID,
		&status,
		&exitCode,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan audit record: %w", err)
	}

	rec.Shell = model.ShellKind(shell)
	rec.Status = model.SessionStatus(status)
	if exitCode.Valid {
		code := int(exitCode.Int64)
		rec.ExitCode = &code
	}
	return rec, nil
}
