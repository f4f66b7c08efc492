package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
)

type Category string

const (
	CategoryEnvironmental Category = "environmental"
	CategoryConnectivity  Category = "connectivity"
	CategorySystem        Category = "system"
)

// SourceRule marks alerts produced by rule sweeps.
const SourceRule = "rule"

// Alert records one triggered (rule, device) pair. Alerts are never updated by the engine.
type Alert struct {
	ID          snowflake.ID      `json:"id" gorm:"primaryKey"`
	OrgID       snowflake.ID      `json:"organization_id" gorm:"column:org_id;not null;index"`
	DeviceID    string            `json:"device_id" gorm:"type:text;not null;index"`
	Title       string            `json:"title" gorm:"type:text;not null"`
	Description string            `json:"description" gorm:"type:text"`
	Severity    Severity          `json:"severity" gorm:"type:text;not null"`
	Category    Category          `json:"category" gorm:"type:text;not null"`
	AlertType   string            `json:"alert_type" gorm:"column:alert_type;type:text;not null"`
	Source      string            `json:"source" gorm:"type:text;not null"`
	Metadata    datatypes.JSONMap `json:"metadata"`
	CreatedAt   time.Time         `json:"created_at" gorm:"not null"`
}

// TableName sets the database table name.
func (Alert) TableName() string { return "alerts" }

type Sink interface {
	InsertBatch(ctx context.Context, alerts []Alert) error
}

var ErrPersist = errors.New("alert_persist_failed")
