package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestDecodeActionsPreservesOrder(t *testing.T) {
	raw := `[
		{"type":"webhook","webhook_url":"https://hooks.example.com/a","headers":{"X-Token":"t"}},
		{"type":"email","recipients":["ops@example.com"," "]},
		{"type":"sms","recipients":["+15550100"]}
	]`
	actions, err := DecodeActions([]byte(raw))
	require.NoError(t, err)
	require.Len(t, actions, 3)

	assert.Equal(t, WebhookAction{URL: "https://hooks.example.com/a", Headers: map[string]string{"X-Token": "t"}}, actions[0])
	assert.Equal(t, EmailAction{Recipients: []string{"ops@example.com"}}, actions[1])
	assert.Equal(t, SMSAction{Recipients: []string{"+15550100"}}, actions[2])
	assert.Equal(t, ActionSMS, actions[2].Kind())
}

func TestDecodeActionsRejectsUnreadableList(t *testing.T) {
	for _, raw := range []string{
		``,
		`[]`,
		`{"type":"email"}`,
	} {
		_, err := DecodeActions([]byte(raw))
		assert.ErrorIs(t, err, ErrInvalidAction, raw)
	}
}

func TestDecodeActionsKeepsBadEntriesInPlace(t *testing.T) {
	cases := []struct {
		raw  string
		kind ActionKind
	}{
		{`[{"type":"pager"}]`, ActionUnknown},
		{`[{"type":"email","recipients":[]}]`, ActionEmail},
		{`[{"type":"webhook","webhook_url":"ftp://example.com"}]`, ActionWebhook},
		{`[{"type":"webhook","webhook_url":"hooks.example.com/x"}]`, ActionWebhook},
		{`[{"type":"webhook"}]`, ActionWebhook},
		{`[42]`, ActionUnknown},
	}
	for _, tc := range cases {
		actions, err := DecodeActions([]byte(tc.raw))
		require.NoError(t, err, tc.raw)
		require.Len(t, actions, 1, tc.raw)

		invalid, ok := actions[0].(InvalidAction)
		require.True(t, ok, tc.raw)
		assert.Equal(t, tc.kind, invalid.Kind(), tc.raw)
		assert.ErrorIs(t, invalid.Err, ErrInvalidAction, tc.raw)
	}
}

func TestDecodeActionsBadEntryDoesNotDropSiblings(t *testing.T) {
	raw := `[
		{"type":"webhook","webhook_url":"hooks.example.com/x"},
		{"type":"email","recipients":["ops@example.com"]}
	]`
	actions, err := DecodeActions([]byte(raw))
	require.NoError(t, err)
	require.Len(t, actions, 2)

	assert.IsType(t, InvalidAction{}, actions[0])
	assert.Equal(t, EmailAction{Recipients: []string{"ops@example.com"}}, actions[1])
}

func TestRuleAccessors(t *testing.T) {
	r := Rule{
		RuleType:        RuleTypeTelemetry,
		Condition:       datatypes.JSON(`{"metric":"co2","operator":">=","value":1200}`),
		DeviceScope:     datatypes.JSON(`{"type":"tags","values":["office"]}`),
		Actions:         datatypes.JSON(`[{"type":"sms","recipients":["+15550100"]}]`),
		CooldownMinutes: 15,
	}

	scope, err := r.Scope()
	require.NoError(t, err)
	assert.Equal(t, []string{"office"}, scope.Values)
	assert.Equal(t, 15*time.Minute, r.Cooldown())

	r.DeviceScope = datatypes.JSON(`{"type":"floor"}`)
	_, err = r.Scope()
	require.ErrorIs(t, err, ErrInvalidScope)

	r.CooldownMinutes = -3
	assert.Zero(t, r.Cooldown())
}
