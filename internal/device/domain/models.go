package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Device is a registered sensing device. Rows are owned by the device registry.
type Device struct {
	ID         string                      `json:"id" gorm:"primaryKey;type:text"`
	OrgID      snowflake.ID                `json:"organization_id" gorm:"column:org_id;not null;index"`
	Name       string                      `json:"name" gorm:"type:text;not null"`
	Status     string                      `json:"status" gorm:"type:text;not null;default:'online'"`
	LastSeenAt *time.Time                  `json:"last_seen_at,omitempty"`
	Metadata   datatypes.JSONMap           `json:"metadata,omitempty"`
	Groups     datatypes.JSONSlice[string] `json:"groups,omitempty"`
	Tags       datatypes.JSONSlice[string] `json:"tags,omitempty"`
	CreatedAt  time.Time                   `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Device) TableName() string { return "devices" }

type Store interface {
	// ListInScope returns the organization's devices selected by scope; an empty result is not an error.
	ListInScope(ctx context.Context, orgID snowflake.ID, scope Scope) ([]Device, error)
}
