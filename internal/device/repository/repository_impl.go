package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	devicedomain "github.com/smallbiznis/fleetwatch/internal/device/domain"
	"github.com/smallbiznis/fleetwatch/pkg/db/option"
	"github.com/smallbiznis/fleetwatch/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	store repository.Repository[devicedomain.Device]
}

func Provide(db *gorm.DB) devicedomain.Store {
	return &repo{store: repository.ProvideStore[devicedomain.Device](db)}
}

func (r *repo) ListInScope(ctx context.Context, orgID snowflake.ID, scope devicedomain.Scope) ([]devicedomain.Device, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	opts := []option.QueryOption{option.Where("org_id = ?", orgID)}
	switch scope.Kind {
	case devicedomain.ScopeSpecific:
		if len(scope.Values) == 0 {
			return []devicedomain.Device{}, nil
		}
		opts = append(opts, option.Where("id IN ?", scope.Values))
	}
	opts = append(opts, option.OrderBy("created_at ASC, id ASC"))

	rows, err := r.store.Find(ctx, nil, opts...)
	if err != nil {
		return nil, err
	}
	// Group and tag membership lives in JSON columns; match in memory so every dialect behaves alike.
	return devicedomain.Resolve(scope, deref(rows)), nil
}

func deref(rows []*devicedomain.Device) []devicedomain.Device {
	out := make([]devicedomain.Device, 0, len(rows))
	for _, row := range rows {
		if row != nil {
			out = append(out, *row)
		}
	}
	return out
}
