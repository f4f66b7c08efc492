package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
)

type ScopeKind string

const (
	ScopeAll      ScopeKind = "all"
	ScopeGroups   ScopeKind = "groups"
	ScopeTags     ScopeKind = "tags"
	ScopeSpecific ScopeKind = "specific"
)

var ErrInvalidScope = errors.New("invalid_scope")

// Scope selects the devices a rule targets.
type Scope struct {
	Kind   ScopeKind `json:"type"`
	Values []string  `json:"values,omitempty"`
}

// ParseScope decodes a stored `{"type": ..., "values": [...]}` scope.
func ParseScope(raw []byte) (Scope, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return Scope{}, fmt.Errorf("%w: scope is empty", ErrInvalidScope)
	}
	var scope Scope
	if err := json.Unmarshal(raw, &scope); err != nil {
		return Scope{}, fmt.Errorf("%w: %w", ErrInvalidScope, err)
	}
	scope.Kind = ScopeKind(strings.ToLower(strings.TrimSpace(string(scope.Kind))))
	if err := scope.Validate(); err != nil {
		return Scope{}, err
	}
	return scope, nil
}

func (s Scope) Validate() error {
	switch s.Kind {
	case ScopeAll, ScopeGroups, ScopeTags, ScopeSpecific:
		return nil
	}
	return fmt.Errorf("%w: unknown type %q", ErrInvalidScope, string(s.Kind))
}

// Resolve returns the devices selected by scope, preserving input order.
func Resolve(scope Scope, devices []Device) []Device {
	matched := make([]Device, 0, len(devices))
	for _, d := range devices {
		if scope.Matches(d) {
			matched = append(matched, d)
		}
	}
	return matched
}

// Matches reports whether a single device falls inside the scope.
func (s Scope) Matches(d Device) bool {
	switch s.Kind {
	case ScopeAll:
		return true
	case ScopeGroups:
		return intersects(d.Groups, s.Values)
	case ScopeTags:
		return intersects(d.Tags, s.Values)
	case ScopeSpecific:
		return slices.Contains(s.Values, d.ID)
	}
	return false
}

func intersects(have, want []string) bool {
	for _, v := range have {
		if slices.Contains(want, v) {
			return true
		}
	}
	return false
}
