package repository

import (
	"context"

	"github.com/smallbiznis/fleetwatch/pkg/db/option"
)

// Repository is a generic gorm-backed reader/writer for one table model.
// Stores are append-mostly: rows are listed with query options and inserted in batches.
type Repository[T any] interface {
	Find(ctx context.Context, filter *T, opts ...option.QueryOption) ([]*T, error)
	BatchCreate(ctx context.Context, rows []*T, batchSize int) error
}
