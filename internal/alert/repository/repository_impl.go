package repository

import (
	"context"

	alertdomain "github.com/smallbiznis/fleetwatch/internal/alert/domain"
	"github.com/smallbiznis/fleetwatch/pkg/repository"
	"gorm.io/gorm"
)

const insertBatchSize = 100

type repo struct {
	store repository.Repository[alertdomain.Alert]
}

func Provide(db *gorm.DB) alertdomain.Sink {
	return &repo{store: repository.ProvideStore[alertdomain.Alert](db)}
}

func (r *repo) InsertBatch(ctx context.Context, alerts []alertdomain.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	rows := make([]*alertdomain.Alert, 0, len(alerts))
	for i := range alerts {
		rows = append(rows, &alerts[i])
	}
	return r.store.BatchCreate(ctx, rows, insertBatchSize)
}
