// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package model

import "context"

// Store is the persistence needed by the batch parsing pipeline.
type Store interface {
	// ingest

	GetExpressionFileBySHA256(ctx context.Context, sha256 string) (*ExpressionFile, error)
	GetExpressionFileByID(ctx context.Context, id int64) (*ExpressionFile, error)
	InsertExpressionFile(ctx context.Context, ef *ExpressionFile) (int64, error)

	// stages

	InsertWork(ctx context.Context, work *Work) (int64, error)
	ClaimWork(ctx context.Context, stage, workerID string) (*Work, error)
	FinishWork(ctx context.Context, id int64, status, errorCode, errorMsg string) error
	ResetFailedWork(ctx context.Context, stage string) (int, error)
	GetWorkSummary(ctx context.Context) (map[string]map[string]int, error)

	// results

	InsertExpression(ctx context.Context, expr *Expression) (int64, error)
	ListExpressions(ctx context.Context, fileID int64) ([]Expression, error)
}
