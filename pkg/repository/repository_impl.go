package repository

import (
	"context"

	"github.com/smallbiznis/fleetwatch/pkg/db/option"
	"gorm.io/gorm"
)

type store[T any] struct {
	db *gorm.DB
}

func ProvideStore[T any](db *gorm.DB) Repository[T] {
	return &store[T]{db: db}
}

func (r *store[T]) Find(ctx context.Context, filter *T, opts ...option.QueryOption) ([]*T, error) {
	q := r.db.WithContext(ctx).Model(new(T))
	if filter != nil {
		q = q.Where(filter)
	}
	for _, opt := range opts {
		q = opt.Apply(q)
	}

	var rows []*T
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// BatchCreate inserts rows in chunks of batchSize; a non-positive size inserts them in one statement.
func (r *store[T]) BatchCreate(ctx context.Context, rows []*T, batchSize int) error {
	if len(rows) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = len(rows)
	}
	return r.db.WithContext(ctx).CreateInBatches(rows, batchSize).Error
}
