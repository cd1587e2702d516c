// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Package model holds the rows of the batch parsing pipeline.
package model

import (
	"time"
)

// ExpressionFile is an uploaded file of expressions, one per line.
type ExpressionFile struct {
	ID        int64     `json:"id"        db:"id"`
	Name      string    `json:"name"      db:"name"` // original filename
	SHA256    string    `json:"sha256"    db:"sha256"`
	FsPath    string    `json:"fsPath"    db:"fs_path"` // relative to the data directory
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Expression is the outcome of parsing one line of an ExpressionFile.
// Exactly one of TreeJSON and ErrorCode is set.
type Expression struct {
	ID           int64  `json:"id"                     db:"id"`
	FileID       int64  `json:"fileId"                 db:"file_id"`
	LineNo       int    `json:"lineNo"                 db:"line_no"`
	Text         string `json:"text"                   db:"text"`
	TreeJSON     string `json:"tree,omitempty"         db:"tree_json"`
	ErrorCode    string `json:"errorCode,omitempty"    db:"error_code"`
	ErrorMessage string `json:"errorMessage,omitempty" db:"error_message"`
}

// Work stages.
const (
	WorkStageParse = "parse"
)

// Work statuses.
const (
	WorkStatusQueued  = "queued"
	WorkStatusRunning = "running"
	WorkStatusOk      = "ok"
	WorkStatusFailed  = "failed"
)

// Work is one queued job for a pipeline stage.
type Work struct {
	ID           int64      `json:"id"                     db:"id"`
	FileID       int64      `json:"fileId"                 db:"file_id"`
	Stage        string     `json:"stage"                  db:"stage"`
	Status       string     `json:"status"                 db:"status"`
	Attempt      int        `json:"attempt"                db:"attempt"`
	AvailableAt  time.Time  `json:"availableAt"            db:"available_at"`
	LockedBy     *string    `json:"lockedBy,omitempty"     db:"locked_by"`
	LockedAt     *time.Time `json:"lockedAt,omitempty"     db:"locked_at"`
	StartedAt    *time.Time `json:"startedAt,omitempty"    db:"started_at"`
	FinishedAt   *time.Time `json:"finishedAt,omitempty"   db:"finished_at"`
	ErrorCode    *string    `json:"errorCode,omitempty"    db:"error_code"`
	ErrorMessage *string    `json:"errorMessage,omitempty" db:"error_message"`
}
