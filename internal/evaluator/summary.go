package evaluator

import (
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	OutcomeTriggered = "triggered"
	OutcomeEvaluated = "evaluated"
	OutcomeSkipped   = "skipped"
	OutcomeError     = "error"
)

const (
	StageDecode    = "decode"
	StageDevices   = "devices"
	StageCondition = "condition"
	StageCooldown  = "cooldown"
	StagePanic     = "panic"
)

// Summary aggregates one sweep. A triggered rule counts as both triggered and evaluated.
type Summary struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Evaluated  int       `json:"evaluated"`
	Triggered  int       `json:"triggered"`
	Skipped    int       `json:"skipped"`
	Errors     int       `json:"errors"`
}

func (s *Summary) add(outcome string) {
	switch outcome {
	case OutcomeTriggered:
		s.Triggered++
		s.Evaluated++
	case OutcomeEvaluated:
		s.Evaluated++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeError:
		s.Errors++
	}
}

var (
	ErrInvalidConfig       = errors.New("invalid_evaluator_config")
	ErrInvalidOrganization = errors.New("invalid_organization")
)

// EvaluationError marks a failure contained at the rule boundary.
type EvaluationError struct {
	RuleID snowflake.ID
	Stage  string
	Err    error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("rule %s: %s: %v", e.RuleID, e.Stage, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }
