package domain

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	devicedomain "github.com/smallbiznis/fleetwatch/internal/device/domain"
	"gorm.io/datatypes"
)

type RuleType string

const (
	RuleTypeTelemetry RuleType = "telemetry"
	RuleTypeOffline   RuleType = "offline"
)

// Rule is an operator-defined alert rule as stored by the rule authoring service.
// Condition, DeviceScope and Actions keep their stored JSON; use the typed accessors.
type Rule struct {
	ID              snowflake.ID   `json:"id" gorm:"primaryKey"`
	OrgID           snowflake.ID   `json:"organization_id" gorm:"column:org_id;not null;index"`
	Name            string         `json:"name" gorm:"type:text;not null"`
	Description     string         `json:"description" gorm:"type:text"`
	RuleType        RuleType       `json:"rule_type" gorm:"column:rule_type;type:text;not null"`
	Condition       datatypes.JSON `json:"condition" gorm:"not null"`
	DeviceScope     datatypes.JSON `json:"device_scope" gorm:"column:device_scope;not null"`
	Actions         datatypes.JSON `json:"actions" gorm:"not null"`
	Enabled         bool           `json:"enabled" gorm:"not null;default:true"`
	CooldownMinutes int            `json:"cooldown_minutes" gorm:"not null;default:0"`
	LastTriggeredAt *time.Time     `json:"last_triggered_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time      `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Rule) TableName() string { return "alert_rules" }

func (r Rule) DecodedCondition() (Condition, error) {
	return DecodeCondition(r.RuleType, r.Condition)
}

func (r Rule) DecodedActions() ([]Action, error) {
	return DecodeActions(r.Actions)
}

func (r Rule) Scope() (devicedomain.Scope, error) {
	scope, err := devicedomain.ParseScope(r.DeviceScope)
	if err != nil {
		return devicedomain.Scope{}, fmt.Errorf("%w: %w", ErrInvalidScope, err)
	}
	return scope, nil
}

// Cooldown returns the minimum interval between two firings.
func (r Rule) Cooldown() time.Duration {
	if r.CooldownMinutes <= 0 {
		return 0
	}
	return time.Duration(r.CooldownMinutes) * time.Minute
}
