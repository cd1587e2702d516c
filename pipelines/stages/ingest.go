// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Package stages implements the batch parsing pipeline: files of
// expressions are ingested into the store and queued, then workers
// claim the queued jobs and record a tree or an error code per line.
package stages

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mdhender/exprtree/model"
	"github.com/spf13/afero"
)

// IngestService handles file ingestion into the pipeline.
type IngestService struct {
	store   IngestStore
	dataDir string
	fs      afero.Fs
}

// IngestStore defines the store operations needed by IngestService.
type IngestStore interface {
	GetExpressionFileBySHA256(ctx context.Context, sha256 string) (*model.ExpressionFile, error)
	InsertExpressionFile(ctx context.Context, ef *model.ExpressionFile) (int64, error)
	InsertWork(ctx context.Context, work *model.Work) (int64, error)
}

// NewIngestService creates a new IngestService.
func NewIngestService(store IngestStore, dataDir string) *IngestService {
	return &IngestService{
		store:   store,
		dataDir: dataDir,
		fs:      afero.NewOsFs(),
	}
}

// SetFS sets the filesystem for testing.
func (s *IngestService) SetFS(fs afero.Fs) {
	s.fs = fs
}

// IngestRequest contains the parameters for ingesting a file.
type IngestRequest struct {
	Filename string // original filename
	Data     []byte // file content
}

// IngestResult contains the result of an ingest operation.
type IngestResult struct {
	FileID    int64
	WorkID    int64
	Duplicate bool // true if file was already ingested (idempotent no-op)
}

// IngestFile copies a file into the data directory and queues it for parsing.
// Returns IngestResult with Duplicate=true if the file already exists (idempotent no-op).
func (s *IngestService) IngestFile(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	hash := sha256.Sum256(req.Data)
	hashStr := hex.EncodeToString(hash[:])

	existing, err := s.store.GetExpressionFileBySHA256(ctx, hashStr)
	if err != nil {
		return nil, &ErrDatabase{Op: "check duplicate", Err: err}
	}
	if existing != nil {
		return &IngestResult{
			FileID:    existing.ID,
			Duplicate: true,
		}, nil
	}

	fsPath := filepath.Join("files", hashStr[:2], formatStandardFilename(hashStr, req.Filename))
	fullPath := filepath.Join(s.dataDir, fsPath)

	if err := s.fs.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, &ErrWriteFile{Op: "mkdir", Path: filepath.Dir(fullPath), Err: err}
	}
	if err := afero.WriteFile(s.fs, fullPath, req.Data, 0644); err != nil {
		return nil, &ErrWriteFile{Op: "write", Path: fullPath, Err: err}
	}

	now := time.Now().UTC()
	ef := &model.ExpressionFile{
		Name:      filepath.Base(req.Filename),
		SHA256:    hashStr,
		FsPath:    fsPath,
		CreatedAt: now,
	}
	fileID, err := s.store.InsertExpressionFile(ctx, ef)
	if err != nil {
		return nil, &ErrDatabase{Op: "insert expression_file", Err: err}
	}

	work := &model.Work{
		FileID:      fileID,
		Stage:       model.WorkStageParse,
		Status:      model.WorkStatusQueued,
		Attempt:     0,
		AvailableAt: now,
	}
	workID, err := s.store.InsertWork(ctx, work)
	if err != nil {
		return nil, &ErrDatabase{Op: "insert work", Err: err}
	}

	return &IngestResult{
		FileID:    fileID,
		WorkID:    workID,
		Duplicate: false,
	}, nil
}

// IngestFiles ingests each file in order, stopping at the first error.
func (s *IngestService) IngestFiles(ctx context.Context, files []IngestRequest) ([]IngestResult, error) {
	var results []IngestResult
	for _, file := range files {
		result, err := s.IngestFile(ctx, file)
		if err != nil {
			return results, fmt.Errorf("%s: %w", file.Filename, err)
		}
		results = append(results, *result)
	}
	return results, nil
}

// formatStandardFilename generates the stored filename: HHHHHHHHHHHH.{base}
// Example: 3f2a9c01d4e7.rules.txt
func formatStandardFilename(hash, filename string) string {
	base := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ' ' {
			return '_'
		}
		return r
	}, filepath.Base(filename))
	if base == "." || base == "" {
		base = "expressions.txt"
	}
	return fmt.Sprintf("%s.%s", hash[:12], base)
}
