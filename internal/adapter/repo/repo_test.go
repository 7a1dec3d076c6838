package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"imagestudio/internal/domain"
	"imagestudio/internal/sqlinline"
)

var testTime = time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC)

func jobRow(id int64, status string, result, errMsg *string) []any {
	return []any{id, "a cat", status, result, errMsg, testTime, testTime}
}

func TestJobCreate(t *testing.T) {
	exec := &stubExecutor{row: jobRow(7, "processing", nil, nil)}
	job, err := NewJobRepository(exec).Create(context.Background(), "a cat")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if exec.query != sqlinline.QInsertJob || exec.args[0] != "a cat" {
		t.Fatalf("unexpected statement %q %v", exec.query, exec.args)
	}
	if job.ID != 7 || job.Status != domain.JobStatusProcessing || job.ResultText != nil {
		t.Fatalf("job = %+v", job)
	}
}

func TestJobGetByID(t *testing.T) {
	exec := &stubExecutor{row: jobRow(3, "completed", strPtr("done"), nil)}
	job, err := NewJobRepository(exec).GetByID(context.Background(), 3)
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if job.Status != domain.JobStatusCompleted || *job.ResultText != "done" {
		t.Fatalf("job = %+v", job)
	}

	missing := &stubExecutor{rowErr: pgx.ErrNoRows}
	if _, err := NewJobRepository(missing).GetByID(context.Background(), 4); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetByID(missing) error = %v, want ErrNotFound", err)
	}
}

func TestJobTransitions(t *testing.T) {
	tests := []struct {
		name    string
		tag     string
		call    func(*JobRepositoryPG) (bool, error)
		query   string
		changed bool
	}{
		{
			name:    "complete",
			tag:     "UPDATE 1",
			call:    func(r *JobRepositoryPG) (bool, error) { return r.Complete(context.Background(), 1, "text") },
			query:   sqlinline.QCompleteJob,
			changed: true,
		},
		{
			name:    "fail terminal job",
			tag:     "UPDATE 0",
			call:    func(r *JobRepositoryPG) (bool, error) { return r.Fail(context.Background(), 1, "boom") },
			query:   sqlinline.QFailJob,
			changed: false,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			exec := &stubExecutor{execTag: pgconn.NewCommandTag(tc.tag)}
			changed, err := tc.call(NewJobRepository(exec))
			if err != nil {
				t.Fatalf("error: %v", err)
			}
			if changed != tc.changed {
				t.Fatalf("changed = %v, want %v", changed, tc.changed)
			}
			if exec.query != tc.query {
				t.Fatalf("query mismatch")
			}
		})
	}
}

func TestJobListAndFailStale(t *testing.T) {
	exec := &stubExecutor{rows: [][]any{
		jobRow(2, "error", nil, strPtr("boom")),
		jobRow(1, "completed", strPtr("ok"), nil),
	}}
	repo := NewJobRepository(exec)
	jobs, err := repo.List(context.Background(), 20)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(jobs) != 2 || jobs[0].ID != 2 || *jobs[0].ErrorMessage != "boom" {
		t.Fatalf("jobs = %+v", jobs)
	}
	if exec.args[0] != 20 {
		t.Fatalf("limit arg = %v", exec.args[0])
	}

	exec.rows = [][]any{{int64(5)}, {int64(9)}}
	ids, err := repo.FailStale(context.Background(), testTime, "interrupted")
	if err != nil {
		t.Fatalf("FailStale error: %v", err)
	}
	if len(ids) != 2 || ids[0] != 5 || ids[1] != 9 {
		t.Fatalf("ids = %v", ids)
	}
	if exec.query != sqlinline.QFailStaleJobs || exec.args[1] != "interrupted" {
		t.Fatalf("unexpected statement args %v", exec.args)
	}
}

func TestJobDelete(t *testing.T) {
	exec := &stubExecutor{execTag: pgconn.NewCommandTag("DELETE 0")}
	if err := NewJobRepository(exec).Delete(context.Background(), 1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Delete error = %v, want ErrNotFound", err)
	}
}

func TestAssetCreate(t *testing.T) {
	exec := &stubExecutor{row: []any{int64(11), testTime}}
	asset := &domain.ImageAsset{JobID: 3, Kind: domain.AssetKindOutput, FileName: "job3_output_ab.png", FilePath: "outputs/job3_output_ab.png"}
	if err := NewAssetRepository(exec).Create(context.Background(), asset); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if asset.ID != 11 || !asset.CreatedAt.Equal(testTime) {
		t.Fatalf("asset = %+v", asset)
	}
	if asset.FileURL != "/files/outputs/job3_output_ab.png" {
		t.Fatalf("FileURL = %q", asset.FileURL)
	}
	if exec.args[1] != "output" {
		t.Fatalf("kind arg = %v", exec.args[1])
	}
}

func TestAssetListByJobIDs(t *testing.T) {
	exec := &stubExecutor{rows: [][]any{
		{int64(1), int64(10), "input", "a.png", "uploads/a.png", testTime},
		{int64(2), int64(10), "output", "b.png", "outputs/b.png", testTime},
		{int64(3), int64(12), "output", "c.png", "outputs/c.png", testTime},
	}}
	repo := NewAssetRepository(exec)
	grouped, err := repo.ListByJobIDs(context.Background(), []int64{10, 12})
	if err != nil {
		t.Fatalf("ListByJobIDs error: %v", err)
	}
	if len(grouped[10]) != 2 || len(grouped[12]) != 1 {
		t.Fatalf("grouped = %+v", grouped)
	}
	if grouped[10][0].Kind != domain.AssetKindInput || grouped[10][0].FileURL != "/files/uploads/a.png" {
		t.Fatalf("first asset = %+v", grouped[10][0])
	}

	exec.query = ""
	empty, err := repo.ListByJobIDs(context.Background(), nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("ListByJobIDs(nil) = %v, %v", empty, err)
	}
	if exec.query != "" {
		t.Fatal("no query expected for an empty id list")
	}
}

func TestAssetListPassesKindFilter(t *testing.T) {
	exec := &stubExecutor{}
	if _, err := NewAssetRepository(exec).List(context.Background(), "", 50); err != nil {
		t.Fatalf("List error: %v", err)
	}
	if exec.args[0] != "" || exec.args[1] != 50 {
		t.Fatalf("args = %v", exec.args)
	}
}

func TestAssetGetAndDelete(t *testing.T) {
	missing := &stubExecutor{rowErr: pgx.ErrNoRows}
	if _, err := NewAssetRepository(missing).GetByID(context.Background(), 1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetByID error = %v, want ErrNotFound", err)
	}
	deleted := &stubExecutor{execTag: pgconn.NewCommandTag("DELETE 1")}
	if err := NewAssetRepository(deleted).Delete(context.Background(), 1); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
}

func TestEnsureSchema(t *testing.T) {
	exec := &stubExecutor{}
	if err := EnsureSchema(context.Background(), exec); err != nil {
		t.Fatalf("EnsureSchema error: %v", err)
	}
	if exec.query != sqlinline.QEnsureSchema {
		t.Fatal("unexpected schema statement")
	}
	exec.err = errors.New("permission denied")
	if err := EnsureSchema(context.Background(), exec); err == nil {
		t.Fatal("expected error")
	}
}
