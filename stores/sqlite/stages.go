// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mdhender/exprtree/model"
)

var _ model.Store = (*SQLiteStore)(nil)

// InsertExpressionFile inserts an expression file and returns its assigned ID.
func (s *SQLiteStore) InsertExpressionFile(ctx context.Context, ef *model.ExpressionFile) (int64, error) {
	const query = `
		INSERT INTO expression_files (name, sha256, fs_path, created_at)
		VALUES (?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		ef.Name,
		ef.SHA256,
		ef.FsPath,
		ef.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("insert expression_file: %w", err)
	}
	return result.LastInsertId()
}

const selectExpressionFile = `SELECT id, name, sha256, fs_path, created_at FROM expression_files`

// GetExpressionFileBySHA256 returns an expression file by SHA256 hash, or nil if not found.
func (s *SQLiteStore) GetExpressionFileBySHA256(ctx context.Context, sha256 string) (*model.ExpressionFile, error) {
	row := s.db.QueryRowContext(ctx, selectExpressionFile+` WHERE sha256 = ? LIMIT 1`, sha256)
	ef, err := scanExpressionFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("get expression_file by sha256: %w", err)
	}
	return ef, nil
}

// GetExpressionFileByID returns an expression file by ID, or nil if not found.
func (s *SQLiteStore) GetExpressionFileByID(ctx context.Context, id int64) (*model.ExpressionFile, error) {
	row := s.db.QueryRowContext(ctx, selectExpressionFile+` WHERE id = ?`, id)
	ef, err := scanExpressionFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("get expression_file %d: %w", id, err)
	}
	return ef, nil
}

func scanExpressionFile(row scanner) (*model.ExpressionFile, error) {
	var ef model.ExpressionFile
	var createdAt string
	if err := row.Scan(&ef.ID, &ef.Name, &ef.SHA256, &ef.FsPath, &createdAt); err != nil {
		return nil, err
	}
	ef.CreatedAt = parseTime(createdAt)
	return &ef, nil
}

// InsertWork inserts a Work job and returns its assigned ID.
func (s *SQLiteStore) InsertWork(ctx context.Context, work *model.Work) (int64, error) {
	const query = `
		INSERT INTO work (file_id, stage, status, attempt, available_at)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		work.FileID,
		work.Stage,
		work.Status,
		work.Attempt,
		work.AvailableAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("insert work: %w", err)
	}
	return result.LastInsertId()
}

const workColumns = `id, file_id, stage, status, attempt, available_at,
	locked_by, locked_at, started_at, finished_at, error_code, error_message`

// ClaimWork atomically claims a queued job for a stage, returning nil if none available.
func (s *SQLiteStore) ClaimWork(ctx context.Context, stage, workerID string) (*model.Work, error) {
	nowStr := time.Now().UTC().Format(time.RFC3339)

	const query = `
		UPDATE work
		SET status = 'running',
		    locked_by = ?,
		    locked_at = ?,
		    started_at = COALESCE(started_at, ?),
		    attempt = attempt + 1
		WHERE id = (
			SELECT id FROM work
			WHERE stage = ?
			  AND status = 'queued'
			  AND available_at <= ?
			ORDER BY available_at, id
			LIMIT 1
		)
		RETURNING ` + workColumns

	row := s.db.QueryRowContext(ctx, query, workerID, nowStr, nowStr, stage, nowStr)
	work, err := scanWork(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("claim work: %w", err)
	}
	return work, nil
}

// FinishWork updates a job's status to ok or failed with optional error info.
func (s *SQLiteStore) FinishWork(ctx context.Context, id int64, status, errorCode, errorMsg string) error {
	const query = `
		UPDATE work
		SET status = ?,
		    finished_at = ?,
		    error_code = ?,
		    error_message = ?,
		    locked_by = NULL,
		    locked_at = NULL
		WHERE id = ?
	`
	_, err := s.db.ExecContext(ctx, query,
		status,
		time.Now().UTC().Format(time.RFC3339),
		nullString(errorCode),
		nullString(errorMsg),
		id,
	)
	if err != nil {
		return fmt.Errorf("finish work: %w", err)
	}
	return nil
}

// ResetFailedWork resets failed jobs for a stage back to queued, returning count reset.
func (s *SQLiteStore) ResetFailedWork(ctx context.Context, stage string) (int, error) {
	const query = `
		UPDATE work
		SET status = 'queued',
		    available_at = ?,
		    locked_by = NULL,
		    locked_at = NULL,
		    finished_at = NULL,
		    error_code = NULL,
		    error_message = NULL
		WHERE stage = ?
		  AND status = 'failed'
	`
	result, err := s.db.ExecContext(ctx, query, time.Now().UTC().Format(time.RFC3339), stage)
	if err != nil {
		return 0, fmt.Errorf("reset failed work: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset failed work: %w", err)
	}
	return int(n), nil
}

// GetWorkSummary returns job counts by stage and status.
func (s *SQLiteStore) GetWorkSummary(ctx context.Context) (map[string]map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT stage, status, COUNT(*) FROM work GROUP BY stage, status`)
	if err != nil {
		return nil, fmt.Errorf("work summary: %w", err)
	}
	defer rows.Close()

	summary := make(map[string]map[string]int)
	for rows.Next() {
		var stage, status string
		var count int
		if err := rows.Scan(&stage, &status, &count); err != nil {
			return nil, fmt.Errorf("work summary: %w", err)
		}
		if summary[stage] == nil {
			summary[stage] = make(map[string]int)
		}
		summary[stage][status] = count
	}
	return summary, rows.Err()
}

// InsertExpression saves the result of parsing one line.
// A second result for the same line replaces the first.
func (s *SQLiteStore) InsertExpression(ctx context.Context, expr *model.Expression) (int64, error) {
	const query = `
		INSERT INTO expressions (file_id, line_no, text, tree_json, error_code, error_message)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_id, line_no) DO UPDATE SET
			text = excluded.text,
			tree_json = excluded.tree_json,
			error_code = excluded.error_code,
			error_message = excluded.error_message
		RETURNING id
	`
	var id int64
	err := s.db.QueryRowContext(ctx, query,
		expr.FileID,
		expr.LineNo,
		expr.Text,
		expr.TreeJSON,
		expr.ErrorCode,
		expr.ErrorMessage,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert expression: %w", err)
	}
	return id, nil
}

// ListExpressions returns the parsed lines of a file in line order.
func (s *SQLiteStore) ListExpressions(ctx context.Context, fileID int64) ([]model.Expression, error) {
	const query = `
		SELECT id, file_id, line_no, text, tree_json, error_code, error_message
		FROM expressions
		WHERE file_id = ?
		ORDER BY line_no
	`
	rows, err := s.db.QueryContext(ctx, query, fileID)
	if err != nil {
		return nil, fmt.Errorf("query expressions: %w", err)
	}
	defer rows.Close()

	var list []model.Expression
	for rows.Next() {
		var e model.Expression
		if err := rows.Scan(&e.ID, &e.FileID, &e.LineNo, &e.Text, &e.TreeJSON, &e.ErrorCode, &e.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scan expression: %w", err)
		}
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func scanWork(row scanner) (*model.Work, error) {
	var w model.Work
	var availableAt string
	var lockedBy, lockedAt, startedAt, finishedAt, errorCode, errorMessage sql.NullString
	if err := row.Scan(
		&w.ID, &w.FileID, &w.Stage, &w.Status, &w.Attempt, &availableAt,
		&lockedBy, &lockedAt, &startedAt, &finishedAt, &errorCode, &errorMessage,
	); err != nil {
		return nil, err
	}
	w.AvailableAt = parseTime(availableAt)
	w.LockedBy = nullStringPtr(lockedBy)
	w.LockedAt = parseTimePtr(lockedAt)
	w.StartedAt = parseTimePtr(startedAt)
	w.FinishedAt = parseTimePtr(finishedAt)
	w.ErrorCode = nullStringPtr(errorCode)
	w.ErrorMessage = nullStringPtr(errorMessage)
	return &w, nil
}

// Helper functions

func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}

func parseTimePtr(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, ns.String); err == nil {
		return &t
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
