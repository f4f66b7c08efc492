package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Source is the read side of the rule store plus the cooldown write-back.
type Source interface {
	// ListEnabled returns enabled rules in sweep order. A nil orgID lists every organization.
	ListEnabled(ctx context.Context, orgID *snowflake.ID) ([]Rule, error)
	MarkTriggered(ctx context.Context, ruleID snowflake.ID, at time.Time) error
}

var (
	ErrInvalidCondition = errors.New("invalid_condition")
	ErrInvalidAction    = errors.New("invalid_action")
	ErrInvalidScope     = errors.New("invalid_scope")
	ErrNotFound         = errors.New("not_found")
)
