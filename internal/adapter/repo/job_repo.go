package repo

import (
	"context"
	"time"

	"imagestudio/internal/domain"
	"imagestudio/internal/infra"
	"imagestudio/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewJobRepository creates a job repository backed by PostgreSQL.
func NewJobRepository(sql infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{sql: sql}
}

// Create inserts a job in the processing state.
func (r *JobRepositoryPG) Create(ctx context.Context, prompt string) (*domain.Job, error) {
	return scanJob(r.sql.QueryRow(ctx, sqlinline.QInsertJob, prompt))
}

func (r *JobRepositoryPG) Complete(ctx context.Context, id int64, resultText string) (bool, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QCompleteJob, id, resultText)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *JobRepositoryPG) Fail(ctx context.Context, id int64, message string) (bool, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QFailJob, id, message)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// FailStale fails processing jobs last updated before the cutoff.
func (r *JobRepositoryPG) FailStale(ctx context.Context, before time.Time, message string) ([]int64, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QFailStaleJobs, before, message)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetByID fetches a job without its assets.
func (r *JobRepositoryPG) GetByID(ctx context.Context, id int64) (*domain.Job, error) {
	job, err := scanJob(r.sql.QueryRow(ctx, sqlinline.QSelectJobByID, id))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// List returns the newest jobs first.
func (r *JobRepositoryPG) List(ctx context.Context, limit int) ([]domain.Job, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListJobs, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := make([]domain.Job, 0, limit)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// Delete removes a job; its asset rows go with it.
func (r *JobRepositoryPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QDeleteJob, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*domain.Job, error) {
	var job domain.Job
	var status string
	if err := row.Scan(
		&job.ID,
		&job.Prompt,
		&status,
		&job.ResultText,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	job.Status = domain.JobStatus(status)
	return &job, nil
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
