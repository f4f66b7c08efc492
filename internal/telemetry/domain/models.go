package domain

import (
	"context"
	"time"

	"gorm.io/datatypes"
)

// Reading is a pre-typed telemetry sample.
type Reading struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	DeviceID  string    `json:"device_id" gorm:"type:text;not null;index:ix_device_telemetry_lookup,priority:1"`
	Metric    string    `json:"metric" gorm:"type:text;not null;index:ix_device_telemetry_lookup,priority:2"`
	Value     float64   `json:"value" gorm:"not null"`
	Timestamp time.Time `json:"timestamp" gorm:"not null;index:ix_device_telemetry_lookup,priority:3"`
}

// TableName sets the database table name.
func (Reading) TableName() string { return "device_telemetry" }

// Payload is a raw vendor message that still needs metric normalization.
type Payload struct {
	ID         int64             `json:"id" gorm:"primaryKey;autoIncrement"`
	DeviceID   string            `json:"device_id" gorm:"type:text;not null;index:ix_telemetry_data_lookup,priority:1"`
	Telemetry  datatypes.JSONMap `json:"telemetry"`
	ReceivedAt time.Time         `json:"received_at" gorm:"not null;index:ix_telemetry_data_lookup,priority:2"`
}

// TableName sets the database table name.
func (Payload) TableName() string { return "telemetry_data" }

// Fields exposes the payload tree to the normalizer.
func (p Payload) Fields() map[string]any {
	if p.Telemetry == nil {
		return nil
	}
	return map[string]any(p.Telemetry)
}

// Source returns telemetry newest first, limited to samples at or after since.
type Source interface {
	Readings(ctx context.Context, deviceID, metric string, since time.Time) ([]Reading, error)
	Payloads(ctx context.Context, deviceID string, since time.Time) ([]Payload, error)
}
