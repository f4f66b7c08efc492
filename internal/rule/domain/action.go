package domain

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

type ActionKind string

const (
	ActionEmail   ActionKind = "email"
	ActionSMS     ActionKind = "sms"
	ActionWebhook ActionKind = "webhook"
	ActionUnknown ActionKind = "unknown"
)

// Action is implemented only by EmailAction, SMSAction, WebhookAction and InvalidAction.
type Action interface {
	Kind() ActionKind
	action()
}

type EmailAction struct {
	Recipients []string `json:"recipients"`
}

func (EmailAction) Kind() ActionKind { return ActionEmail }
func (EmailAction) action()          {}

type SMSAction struct {
	Recipients []string `json:"recipients"`
}

func (SMSAction) Kind() ActionKind { return ActionSMS }
func (SMSAction) action()          {}

type WebhookAction struct {
	URL     string            `json:"webhook_url"`
	Headers map[string]string `json:"headers,omitempty"`
}

func (WebhookAction) Kind() ActionKind { return ActionWebhook }
func (WebhookAction) action()          {}

type actionRow struct {
	Type       ActionKind        `json:"type"`
	Recipients []string          `json:"recipients"`
	WebhookURL string            `json:"webhook_url"`
	Headers    map[string]string `json:"headers"`
}

// InvalidAction stands in for a stored entry that could not be decoded. It keeps its
// position in the list so the dispatcher reports it as a failed action.
type InvalidAction struct {
	Declared ActionKind
	Err      error
}

// Kind returns the declared kind when it is known, "unknown" otherwise.
func (a InvalidAction) Kind() ActionKind {
	switch a.Declared {
	case ActionEmail, ActionSMS, ActionWebhook:
		return a.Declared
	}
	return ActionUnknown
}
func (InvalidAction) action() {}

// DecodeActions decodes the stored `[{"type": ...}]` action list in order.
// Only an unreadable or empty list is an error; a bad entry becomes an InvalidAction.
func DecodeActions(raw []byte) ([]Action, error) {
	var rows []json.RawMessage
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidAction, err)
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: at least one action is required", ErrInvalidAction)
	}

	actions := make([]Action, 0, len(rows))
	for i, entry := range rows {
		actions = append(actions, decodeAction(i, entry))
	}
	return actions, nil
}

func decodeAction(index int, entry json.RawMessage) Action {
	var row actionRow
	if err := json.Unmarshal(entry, &row); err != nil {
		return InvalidAction{Err: fmt.Errorf("%w: action %d: %w", ErrInvalidAction, index, err)}
	}
	kind := ActionKind(strings.ToLower(strings.TrimSpace(string(row.Type))))
	invalid := func(format string, args ...any) Action {
		return InvalidAction{
			Declared: kind,
			Err:      fmt.Errorf("%w: action %d: %s", ErrInvalidAction, index, fmt.Sprintf(format, args...)),
		}
	}

	switch kind {
	case ActionEmail:
		recipients := cleanRecipients(row.Recipients)
		if len(recipients) == 0 {
			return invalid("email recipients are required")
		}
		return EmailAction{Recipients: recipients}
	case ActionSMS:
		recipients := cleanRecipients(row.Recipients)
		if len(recipients) == 0 {
			return invalid("sms recipients are required")
		}
		return SMSAction{Recipients: recipients}
	case ActionWebhook:
		target := strings.TrimSpace(row.WebhookURL)
		parsed, err := url.Parse(target)
		if target == "" || err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return invalid("webhook_url must be an absolute http(s) url")
		}
		return WebhookAction{URL: target, Headers: row.Headers}
	}
	return invalid("unknown type %q", string(row.Type))
}

func cleanRecipients(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
