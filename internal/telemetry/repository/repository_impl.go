package repository

import (
	"context"
	"fmt"
	"time"

	telemetrydomain "github.com/smallbiznis/fleetwatch/internal/telemetry/domain"
	"github.com/smallbiznis/fleetwatch/pkg/db/option"
	"github.com/smallbiznis/fleetwatch/pkg/repository"
	"gorm.io/gorm"
)

// Config bounds how many rows a single lookup may pull.
type Config struct {
	MaxReadings int
	MaxPayloads int
}

func (c Config) withDefaults() Config {
	if c.MaxReadings <= 0 {
		c.MaxReadings = 500
	}
	if c.MaxPayloads <= 0 {
		c.MaxPayloads = 200
	}
	return c
}

type repo struct {
	readings repository.Repository[telemetrydomain.Reading]
	payloads repository.Repository[telemetrydomain.Payload]
	cfg      Config
}

func Provide(db *gorm.DB) telemetrydomain.Source {
	return New(db, Config{})
}

func New(db *gorm.DB, cfg Config) telemetrydomain.Source {
	return &repo{
		readings: repository.ProvideStore[telemetrydomain.Reading](db),
		payloads: repository.ProvideStore[telemetrydomain.Payload](db),
		cfg:      cfg.withDefaults(),
	}
}

func (r *repo) Readings(ctx context.Context, deviceID, metric string, since time.Time) ([]telemetrydomain.Reading, error) {
	rows, err := r.readings.Find(ctx, nil,
		option.Where("device_id = ? AND metric = ? AND timestamp >= ?", deviceID, metric, since),
		option.OrderBy("timestamp DESC, id DESC"),
		option.Limit(r.cfg.MaxReadings),
	)
	if err != nil {
		return nil, fmt.Errorf("list readings: %w", err)
	}
	out := make([]telemetrydomain.Reading, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	return out, nil
}

func (r *repo) Payloads(ctx context.Context, deviceID string, since time.Time) ([]telemetrydomain.Payload, error) {
	rows, err := r.payloads.Find(ctx, nil,
		option.Where("device_id = ? AND received_at >= ?", deviceID, since),
		option.OrderBy("received_at DESC, id DESC"),
		option.Limit(r.cfg.MaxPayloads),
	)
	if err != nil {
		return nil, fmt.Errorf("list payloads: %w", err)
	}
	out := make([]telemetrydomain.Payload, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	return out, nil
}
