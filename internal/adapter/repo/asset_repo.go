package repo

import (
	"context"

	"imagestudio/internal/domain"
	"imagestudio/internal/infra"
	"imagestudio/internal/sqlinline"
)

// AssetRepositoryPG implements domain.AssetRepository using PostgreSQL.
type AssetRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewAssetRepository constructs a new asset repository instance.
func NewAssetRepository(sql infra.SQLExecutor) *AssetRepositoryPG {
	return &AssetRepositoryPG{sql: sql}
}

// Create inserts the asset and fills in its ID, creation time and URL.
func (r *AssetRepositoryPG) Create(ctx context.Context, asset *domain.ImageAsset) error {
	row := r.sql.QueryRow(ctx, sqlinline.QInsertImageAsset, asset.JobID, string(asset.Kind), asset.FileName, asset.FilePath)
	if err := row.Scan(&asset.ID, &asset.CreatedAt); err != nil {
		return err
	}
	asset.FileURL = domain.FileURLFor(asset.FilePath)
	return nil
}

func (r *AssetRepositoryPG) GetByID(ctx context.Context, id int64) (*domain.ImageAsset, error) {
	asset, err := scanAsset(r.sql.QueryRow(ctx, sqlinline.QSelectImageAssetByID, id))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return asset, nil
}

// ListByJobIDs groups the assets of the given jobs by job, each group in
// creation order.
func (r *AssetRepositoryPG) ListByJobIDs(ctx context.Context, jobIDs []int64) (map[int64][]domain.ImageAsset, error) {
	out := make(map[int64][]domain.ImageAsset, len(jobIDs))
	if len(jobIDs) == 0 {
		return out, nil
	}
	assets, err := r.list(ctx, sqlinline.QListImageAssetsByJobs, jobIDs)
	if err != nil {
		return nil, err
	}
	for _, a := range assets {
		out[a.JobID] = append(out[a.JobID], a)
	}
	return out, nil
}

// List returns the newest assets first. An empty kind matches both kinds.
func (r *AssetRepositoryPG) List(ctx context.Context, kind domain.AssetKind, limit int) ([]domain.ImageAsset, error) {
	return r.list(ctx, sqlinline.QListImageAssets, string(kind), limit)
}

func (r *AssetRepositoryPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QDeleteImageAsset, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *AssetRepositoryPG) list(ctx context.Context, query string, args ...any) ([]domain.ImageAsset, error) {
	rows, err := r.sql.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []domain.ImageAsset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, *asset)
	}
	return assets, rows.Err()
}

func scanAsset(row scanner) (*domain.ImageAsset, error) {
	var asset domain.ImageAsset
	var kind string
	if err := row.Scan(&asset.ID, &asset.JobID, &kind, &asset.FileName, &asset.FilePath, &asset.CreatedAt); err != nil {
		return nil, err
	}
	asset.Kind = domain.AssetKind(kind)
	asset.FileURL = domain.FileURLFor(asset.FilePath)
	return &asset, nil
}

var _ domain.AssetRepository = (*AssetRepositoryPG)(nil)
