package repo

import (
	"context"
	"fmt"

	"imagestudio/internal/infra"
	"imagestudio/internal/sqlinline"
)

// EnsureSchema creates the service tables if they do not exist.
func EnsureSchema(ctx context.Context, sql infra.SQLExecutor) error {
	if _, err := sql.Exec(ctx, sqlinline.QEnsureSchema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
