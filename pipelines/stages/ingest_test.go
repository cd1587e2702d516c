// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package stages_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path/filepath"
	"testing"

	"github.com/mdhender/exprtree/model"
	"github.com/mdhender/exprtree/pipelines/stages"
	"github.com/spf13/afero"
)

// mockStore implements stages.IngestStore for testing.
type mockStore struct {
	files       map[int64]*model.ExpressionFile
	work        map[int64]*model.Work
	sha256Index map[string]*model.ExpressionFile

	nextFileID int64
	nextWorkID int64
	failWork   error
}

func newMockStore() *mockStore {
	return &mockStore{
		files:       make(map[int64]*model.ExpressionFile),
		work:        make(map[int64]*model.Work),
		sha256Index: make(map[string]*model.ExpressionFile),
		nextFileID:  1,
		nextWorkID:  1,
	}
}

func (m *mockStore) GetExpressionFileBySHA256(_ context.Context, sha256 string) (*model.ExpressionFile, error) {
	return m.sha256Index[sha256], nil
}

func (m *mockStore) InsertExpressionFile(_ context.Context, ef *model.ExpressionFile) (int64, error) {
	id := m.nextFileID
	m.nextFileID++
	ef.ID = id
	m.files[id] = ef
	m.sha256Index[ef.SHA256] = ef
	return id, nil
}

func (m *mockStore) InsertWork(_ context.Context, work *model.Work) (int64, error) {
	if m.failWork != nil {
		return 0, m.failWork
	}
	id := m.nextWorkID
	m.nextWorkID++
	work.ID = id
	m.work[id] = work
	return id, nil
}

func hashOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func TestIngestService_IngestFile(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	fs := afero.NewMemMapFs()

	svc := stages.NewIngestService(store, "/data")
	svc.SetFS(fs)

	data := []byte("a + b\n# comment\nDiff[x]\n")
	result, err := svc.IngestFile(ctx, stages.IngestRequest{Filename: "/tmp/my rules.txt", Data: data})
	if err != nil {
		t.Fatalf("ingest file: %v", err)
	}
	if result.Duplicate {
		t.Error("expected not duplicate on first ingest")
	}
	if result.FileID == 0 {
		t.Error("expected non-zero file ID")
	}
	if result.WorkID == 0 {
		t.Error("expected non-zero work ID")
	}

	hash := hashOf(data)
	ef := store.files[result.FileID]
	if ef == nil {
		t.Fatal("expression file not found in store")
	}
	if ef.Name != "my rules.txt" {
		t.Errorf("expected name 'my rules.txt', got %q", ef.Name)
	}
	wantPath := filepath.Join("files", hash[:2], hash[:12]+".my_rules.txt")
	if ef.FsPath != wantPath {
		t.Errorf("expected fs_path %q, got %q", wantPath, ef.FsPath)
	}
	if ef.SHA256 != hash {
		t.Errorf("expected sha256 %q, got %q", hash, ef.SHA256)
	}

	work := store.work[result.WorkID]
	if work == nil {
		t.Fatal("work not found in store")
	}
	if work.Stage != model.WorkStageParse || work.Status != model.WorkStatusQueued {
		t.Errorf("expected queued parse work, got %q %q", work.Stage, work.Status)
	}

	got, err := afero.ReadFile(fs, filepath.Join("/data", wantPath))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("stored file: got %q, want %q", got, data)
	}
}

func TestIngestService_DuplicateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()

	svc := stages.NewIngestService(store, "/data")
	svc.SetFS(afero.NewMemMapFs())

	data := []byte("x = y\n")
	results, err := svc.IngestFiles(ctx, []stages.IngestRequest{
		{Filename: "first.txt", Data: data},
		{Filename: "second.txt", Data: data},
	})
	if err != nil {
		t.Fatalf("ingest files: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Duplicate || !results[1].Duplicate {
		t.Errorf("expected second ingest to be a duplicate, got %+v", results)
	}
	if results[0].FileID != results[1].FileID {
		t.Errorf("expected same file ID, got %d and %d", results[0].FileID, results[1].FileID)
	}
	if results[1].WorkID != 0 {
		t.Errorf("expected no work for duplicate, got %d", results[1].WorkID)
	}
	if len(store.work) != 1 {
		t.Errorf("expected 1 work row, got %d", len(store.work))
	}
}

func TestIngestService_DatabaseError(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	store.failWork = errors.New("disk full")

	svc := stages.NewIngestService(store, "/data")
	svc.SetFS(afero.NewMemMapFs())

	_, err := svc.IngestFile(ctx, stages.IngestRequest{Filename: "a.txt", Data: []byte("a")})
	if err == nil {
		t.Fatal("expected error")
	}
	if code := stages.ErrorCode(err); code != stages.ErrCodeDatabase {
		t.Errorf("expected code %q, got %q", stages.ErrCodeDatabase, code)
	}
}

func TestIngestService_ReadOnlyFS(t *testing.T) {
	ctx := context.Background()
	svc := stages.NewIngestService(newMockStore(), "/data")
	svc.SetFS(afero.NewReadOnlyFs(afero.NewMemMapFs()))

	_, err := svc.IngestFile(ctx, stages.IngestRequest{Filename: "a.txt", Data: []byte("a")})
	var writeErr *stages.ErrWriteFile
	if !errors.As(err, &writeErr) {
		t.Fatalf("expected *ErrWriteFile, got %v", err)
	}
	if code := stages.ErrorCode(err); code != stages.ErrCodeWriteFile {
		t.Errorf("expected code %q, got %q", stages.ErrCodeWriteFile, code)
	}
}
