package domain

import (
	"context"
	"time"
)

// JobRepository persists jobs. Complete and Fail only affect jobs that are
// still processing and report whether a row changed.
type JobRepository interface {
	Create(ctx context.Context, prompt string) (*Job, error)
	Complete(ctx context.Context, id int64, resultText string) (bool, error)
	Fail(ctx context.Context, id int64, message string) (bool, error)
	FailStale(ctx context.Context, before time.Time, message string) ([]int64, error)
	GetByID(ctx context.Context, id int64) (*Job, error)
	List(ctx context.Context, limit int) ([]Job, error)
	Delete(ctx context.Context, id int64) error
}

// AssetRepository persists image asset records.
type AssetRepository interface {
	Create(ctx context.Context, asset *ImageAsset) error
	GetByID(ctx context.Context, id int64) (*ImageAsset, error)
	ListByJobIDs(ctx context.Context, jobIDs []int64) (map[int64][]ImageAsset, error)
	List(ctx context.Context, kind AssetKind, limit int) ([]ImageAsset, error)
	Delete(ctx context.Context, id int64) error
}
