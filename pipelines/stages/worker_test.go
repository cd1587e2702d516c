// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package stages_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mdhender/exprtree"
	"github.com/mdhender/exprtree/model"
	"github.com/mdhender/exprtree/pipelines/stages"
	store "github.com/mdhender/exprtree/stores/sqlite"
	"github.com/spf13/afero"
)

func newStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	sqlStore, err := store.NewSQLiteStore()
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { _ = sqlStore.Close() })
	return sqlStore
}

func insertFile(t *testing.T, sqlStore *store.SQLiteStore, name string) int64 {
	t.Helper()
	id, err := sqlStore.InsertExpressionFile(context.Background(), &model.ExpressionFile{
		Name:      name,
		SHA256:    "hash-" + name,
		FsPath:    "files/" + name,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("insert expression file: %v", err)
	}
	return id
}

func insertWork(t *testing.T, sqlStore *store.SQLiteStore, fileID int64) int64 {
	t.Helper()
	id, err := sqlStore.InsertWork(context.Background(), &model.Work{
		FileID:      fileID,
		Stage:       model.WorkStageParse,
		Status:      model.WorkStatusQueued,
		AvailableAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("insert work: %v", err)
	}
	return id
}

func TestWorkerService_ClaimJob_AtomicLocking(t *testing.T) {
	ctx := context.Background()
	sqlStore := newStore(t)
	insertWork(t, sqlStore, insertFile(t, sqlStore, "one.txt"))

	const numWorkers = 10
	var wg sync.WaitGroup
	wg.Add(numWorkers)

	claimedCount := 0
	var mu sync.Mutex

	for i := 0; i < numWorkers; i++ {
		workerID := i
		go func() {
			defer wg.Done()
			work, err := sqlStore.ClaimWork(ctx, model.WorkStageParse, fmt.Sprintf("worker-%d", workerID))
			if err != nil {
				t.Errorf("worker %d: claim error: %v", workerID, err)
				return
			}
			if work != nil {
				mu.Lock()
				claimedCount++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	if claimedCount != 1 {
		t.Errorf("expected exactly 1 worker to claim the job, got %d", claimedCount)
	}
}

func TestWorkerService_ClaimJob_ReturnsNilWhenNoWork(t *testing.T) {
	sqlStore := newStore(t)

	work, err := sqlStore.ClaimWork(context.Background(), model.WorkStageParse, "test-worker")
	if err != nil {
		t.Fatalf("claim work: %v", err)
	}
	if work != nil {
		t.Errorf("expected nil work when no jobs available, got %+v", work)
	}
}

func TestWorkerService_Pipeline(t *testing.T) {
	ctx := context.Background()
	sqlStore := newStore(t)
	fs := afero.NewMemMapFs()

	ingest := stages.NewIngestService(sqlStore, "/data")
	ingest.SetFS(fs)
	results, err := ingest.IngestFiles(ctx, []stages.IngestRequest{
		{Filename: "good.txt", Data: []byte("# derivative rules\nDiff[a+b] = Diff[a] + Diff[b]\n\n(a+b\n")},
		{Filename: "empty.txt", Data: []byte("# nothing here\n\n")},
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	worker := stages.NewWorkerService(sqlStore, "/data", "test-worker")
	worker.SetFS(fs)
	processed, err := worker.Drain(ctx, model.WorkStageParse)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if processed != 2 {
		t.Errorf("expected 2 jobs processed, got %d", processed)
	}

	exprs, err := sqlStore.ListExpressions(ctx, results[0].FileID)
	if err != nil {
		t.Fatalf("list expressions: %v", err)
	}
	if len(exprs) != 2 {
		t.Fatalf("expected 2 expressions, got %d", len(exprs))
	}
	if exprs[0].LineNo != 2 || exprs[0].ErrorCode != "" || exprs[0].TreeJSON == "" {
		t.Errorf("line 2: got %+v", exprs[0])
	}
	tree, err := exprtree.UnmarshalNode([]byte(exprs[0].TreeJSON))
	if err != nil {
		t.Fatalf("line 2: decode tree: %v", err)
	}
	want, err := exprtree.Parse(exprs[0].Text)
	if err != nil {
		t.Fatalf("line 2: parse: %v", err)
	}
	if !exprtree.Equal(want, tree) {
		t.Errorf("line 2: stored tree does not match a fresh parse")
	}
	if exprs[1].LineNo != 4 || exprs[1].ErrorCode != exprtree.ErrCodeUnclosedGroup || exprs[1].TreeJSON != "" {
		t.Errorf("line 4: got %+v", exprs[1])
	}

	summary, err := sqlStore.GetWorkSummary(ctx)
	if err != nil {
		t.Fatalf("work summary: %v", err)
	}
	if got := summary[model.WorkStageParse]; got[model.WorkStatusOk] != 1 || got[model.WorkStatusFailed] != 1 {
		t.Errorf("expected 1 ok and 1 failed job, got %v", got)
	}

	// the empty file failed; resetting queues it again
	n, err := sqlStore.ResetFailedWork(ctx, model.WorkStageParse)
	if err != nil {
		t.Fatalf("reset failed work: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 job reset, got %d", n)
	}
	job, err := worker.ClaimJob(ctx, model.WorkStageParse)
	if err != nil || job == nil {
		t.Fatalf("claim reset job: %v, %v", job, err)
	}
	if job.FileID != results[1].FileID || job.Attempt != 2 {
		t.Errorf("expected second attempt for file %d, got %+v", results[1].FileID, job)
	}
}

func TestWorkerService_ParserOptions(t *testing.T) {
	ctx := context.Background()
	sqlStore := newStore(t)
	fs := afero.NewMemMapFs()

	ingest := stages.NewIngestService(sqlStore, "/data")
	ingest.SetFS(fs)
	results, err := ingest.IngestFiles(ctx, []stages.IngestRequest{
		{Filename: "mixed.txt", Data: []byte("a + b * c\n")},
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	worker := stages.NewWorkerService(sqlStore, "/data", "", exprtree.WithOperatorCheck(exprtree.OperatorCheckError))
	worker.SetFS(fs)
	if ok, err := worker.ProcessJob(ctx, model.WorkStageParse); !ok || err != nil {
		t.Fatalf("process job: %v, %v", ok, err)
	}

	exprs, err := sqlStore.ListExpressions(ctx, results[0].FileID)
	if err != nil {
		t.Fatalf("list expressions: %v", err)
	}
	if len(exprs) != 1 || exprs[0].ErrorCode != exprtree.ErrCodeMixedOperators {
		t.Errorf("expected a MIXED_OPERATORS row, got %+v", exprs)
	}
}

func TestWorkerService_MissingFile(t *testing.T) {
	ctx := context.Background()
	sqlStore := newStore(t)
	insertWork(t, sqlStore, insertFile(t, sqlStore, "gone.txt"))

	worker := stages.NewWorkerService(sqlStore, "/data", "test-worker")
	worker.SetFS(afero.NewMemMapFs())
	ok, err := worker.ProcessJob(ctx, model.WorkStageParse)
	if !ok {
		t.Fatal("expected a job to be claimed")
	}
	if code := stages.ErrorCode(err); code != stages.ErrCodeReadFile {
		t.Errorf("expected code %q, got %q (%v)", stages.ErrCodeReadFile, code, err)
	}
	var readErr *stages.ErrReadFile
	if !errors.As(err, &readErr) {
		t.Errorf("expected *ErrReadFile, got %T", err)
	}
}

func TestWorkerService_LongLine(t *testing.T) {
	long := strings.Repeat("a + ", 20000) + "a"
	data := []byte("x + y\n" + long + "\n(a+b]\nx\xff+y\n")

	for _, tc := range []struct {
		name     string
		opts     []exprtree.Option
		longCode string
	}{
		{name: "default limit", longCode: exprtree.ErrCodeInputTooLong},
		{name: "no limit", opts: []exprtree.Option{exprtree.WithMaxInputLength(0)}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			sqlStore := newStore(t)
			fs := afero.NewMemMapFs()

			ingest := stages.NewIngestService(sqlStore, "/data")
			ingest.SetFS(fs)
			results, err := ingest.IngestFiles(ctx, []stages.IngestRequest{
				{Filename: "long.txt", Data: data},
			})
			if err != nil {
				t.Fatalf("ingest: %v", err)
			}

			worker := stages.NewWorkerService(sqlStore, "/data", "test-worker", tc.opts...)
			worker.SetFS(fs)
			if ok, err := worker.ProcessJob(ctx, model.WorkStageParse); !ok || err != nil {
				t.Fatalf("process job: %v, %v", ok, err)
			}

			exprs, err := sqlStore.ListExpressions(ctx, results[0].FileID)
			if err != nil {
				t.Fatalf("list expressions: %v", err)
			}
			if len(exprs) != 4 {
				t.Fatalf("expected 4 expressions, got %d", len(exprs))
			}
			for i, want := range []string{"", tc.longCode, exprtree.ErrCodeMismatchedBracket, exprtree.ErrCodeInvalidUTF8} {
				if exprs[i].LineNo != i+1 || exprs[i].ErrorCode != want {
					t.Errorf("line %d: expected code %q, got line %d code %q", i+1, want, exprs[i].LineNo, exprs[i].ErrorCode)
				}
			}
			if tc.longCode == "" && exprs[1].TreeJSON == "" {
				t.Errorf("line 2: expected a tree")
			}
		})
	}
}
