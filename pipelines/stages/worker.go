// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package stages

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mdhender/exprtree"
	"github.com/mdhender/exprtree/model"
	"github.com/spf13/afero"
)

// WorkerService claims and executes pipeline jobs.
type WorkerService struct {
	store    WorkerStore
	dataDir  string
	workerID string
	fs       afero.Fs
	opts     []exprtree.Option
	logger   *slog.Logger
}

// WorkerStore defines the store operations needed by WorkerService.
type WorkerStore interface {
	ClaimWork(ctx context.Context, stage, workerID string) (*model.Work, error)
	FinishWork(ctx context.Context, id int64, status, errorCode, errorMsg string) error
	GetExpressionFileByID(ctx context.Context, id int64) (*model.ExpressionFile, error)

	// For parsing stage - persist one result per line
	InsertExpression(ctx context.Context, expr *model.Expression) (int64, error)
}

// NewWorkerService creates a new WorkerService. The parser options are
// applied to every expression the worker parses.
func NewWorkerService(store WorkerStore, dataDir, workerID string, opts ...exprtree.Option) *WorkerService {
	if workerID == "" {
		hostname, _ := os.Hostname()
		workerID = fmt.Sprintf("%s:%d", hostname, os.Getpid())
	}
	return &WorkerService{
		store:    store,
		dataDir:  dataDir,
		workerID: workerID,
		fs:       afero.NewOsFs(),
		opts:     opts,
		logger:   slog.Default(),
	}
}

// SetFS sets the filesystem for testing.
func (w *WorkerService) SetFS(fs afero.Fs) {
	w.fs = fs
}

// SetLogger sets the logger for job progress.
func (w *WorkerService) SetLogger(logger *slog.Logger) {
	if logger != nil {
		w.logger = logger
	}
}

// WorkResult represents the outcome of executing a job.
type WorkResult struct {
	Success      bool
	ErrorCode    string
	ErrorMessage string
}

// ClaimJob atomically claims a queued job for the given stage.
// Returns nil if no work is available.
func (w *WorkerService) ClaimJob(ctx context.Context, stage string) (*model.Work, error) {
	return w.store.ClaimWork(ctx, stage, w.workerID)
}

// ExecuteParse parses every expression in the file and stores one row per line.
// Blank lines and lines starting with '#' are skipped. A line that fails to
// parse or encode is stored with its error code; it does not fail the job.
func (w *WorkerService) ExecuteParse(ctx context.Context, job *model.Work, ef *model.ExpressionFile) error {
	fullPath := filepath.Join(w.dataDir, ef.FsPath)
	data, err := afero.ReadFile(w.fs, fullPath)
	if err != nil {
		return &ErrReadFile{Path: fullPath, Err: err}
	}

	parsed, failed := 0, 0
	// lines are split in memory so no line is too long to read;
	// the parser's own length limit applies per line
	for n, line := range bytes.Split(data, []byte("\n")) {
		if err := ctx.Err(); err != nil {
			return err
		}
		lineNo := n + 1
		text := string(bytes.TrimSpace(line))
		if text == "" || text[0] == '#' {
			continue
		}
		expr := &model.Expression{FileID: ef.ID, LineNo: lineNo, Text: text}
		opts := append(w.opts[:len(w.opts):len(w.opts)], exprtree.WithName(fmt.Sprintf("%s:%d", ef.Name, lineNo)))
		tree, err := exprtree.Parse(text, opts...)
		var buf []byte
		if err == nil {
			buf, err = json.Marshal(tree)
		}
		if err != nil {
			expr.ErrorCode, expr.ErrorMessage = ErrorCode(err), err.Error()
			failed++
		} else {
			expr.TreeJSON = string(buf)
			parsed++
		}
		if _, err := w.store.InsertExpression(ctx, expr); err != nil {
			return &ErrDatabase{Op: "persist parse result", Err: err}
		}
	}
	if parsed+failed == 0 {
		return &ErrNoExpressions{Path: ef.Name}
	}

	w.logger.Info("stages: parsed file",
		slog.String("worker", w.workerID),
		slog.Int64("job", job.ID),
		slog.String("file", ef.Name),
		slog.Int("parsed", parsed),
		slog.Int("failed", failed),
	)
	return nil
}

// FinishJob marks a job as completed (ok or failed) based on the result.
func (w *WorkerService) FinishJob(ctx context.Context, job *model.Work, result WorkResult) error {
	status := model.WorkStatusOk
	errorCode := ""
	errorMsg := ""

	if !result.Success {
		status = model.WorkStatusFailed
		errorCode = result.ErrorCode
		errorMsg = result.ErrorMessage
	}

	return w.store.FinishWork(ctx, job.ID, status, errorCode, errorMsg)
}

// ProcessJob claims, executes, and finishes a single job for the given stage.
// Returns (jobProcessed, error). jobProcessed is true if a job was claimed.
func (w *WorkerService) ProcessJob(ctx context.Context, stage string) (bool, error) {
	job, err := w.ClaimJob(ctx, stage)
	if err != nil {
		return false, fmt.Errorf("claim job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	ef, err := w.store.GetExpressionFileByID(ctx, job.FileID)
	if err != nil {
		w.FinishJob(ctx, job, WorkResult{
			Success:      false,
			ErrorCode:    ErrCodeDatabase,
			ErrorMessage: fmt.Sprintf("get expression file: %v", err),
		})
		return true, fmt.Errorf("get expression file: %w", err)
	}
	if ef == nil {
		w.FinishJob(ctx, job, WorkResult{
			Success:      false,
			ErrorCode:    ErrCodeDatabase,
			ErrorMessage: "expression file not found",
		})
		return true, fmt.Errorf("expression file %d not found", job.FileID)
	}

	var execErr error
	switch stage {
	case model.WorkStageParse:
		execErr = w.ExecuteParse(ctx, job, ef)
	default:
		execErr = fmt.Errorf("unknown stage: %s", stage)
	}

	if execErr != nil {
		w.FinishJob(ctx, job, WorkResult{
			Success:      false,
			ErrorCode:    ErrorCode(execErr),
			ErrorMessage: execErr.Error(),
		})
		return true, execErr
	}

	if err := w.FinishJob(ctx, job, WorkResult{Success: true}); err != nil {
		return true, fmt.Errorf("finish job: %w", err)
	}

	return true, nil
}

// Drain processes jobs for the stage until none are left. A failed job is
// logged and recorded in the store; only store errors stop the loop.
// Returns the number of jobs processed.
func (w *WorkerService) Drain(ctx context.Context, stage string) (int, error) {
	processed := 0
	for {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		ok, err := w.ProcessJob(ctx, stage)
		if !ok {
			return processed, err
		}
		processed++
		if err != nil {
			w.logger.Warn("stages: job failed",
				slog.String("worker", w.workerID),
				slog.String("code", ErrorCode(err)),
				slog.String("error", err.Error()),
			)
		}
	}
}
