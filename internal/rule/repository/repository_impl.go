package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	ruledomain "github.com/smallbiznis/fleetwatch/internal/rule/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) ruledomain.Source {
	return &repo{db: db}
}

const selectRuleColumns = `SELECT id, org_id, name, description, rule_type, condition, device_scope, actions,
	enabled, cooldown_minutes, last_triggered_at, created_at, updated_at
	FROM alert_rules`

func (r *repo) ListEnabled(ctx context.Context, orgID *snowflake.ID) ([]ruledomain.Rule, error) {
	var rules []ruledomain.Rule
	query := selectRuleColumns + ` WHERE enabled = ?`
	args := []any{true}
	if orgID != nil {
		query += ` AND org_id = ?`
		args = append(args, *orgID)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&rules).Error; err != nil {
		return nil, fmt.Errorf("list enabled rules: %w", err)
	}
	return rules, nil
}

func (r *repo) MarkTriggered(ctx context.Context, ruleID snowflake.ID, at time.Time) error {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE alert_rules SET last_triggered_at = ?, updated_at = ? WHERE id = ?`,
		at,
		at,
		ruleID,
	)
	if res.Error != nil {
		return fmt.Errorf("mark rule triggered: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ruledomain.ErrNotFound
	}
	return nil
}
