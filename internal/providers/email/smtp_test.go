package email

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/smallbiznis/fleetwatch/internal/notification/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var payload = domain.Payload{
	RuleID:   "42",
	RuleName: "Freezer too warm",
	TriggeredDevices: []domain.TriggeredDevice{
		{ID: "dev-a", Name: "Freezer <1>"},
		{ID: "dev-b", Name: "Freezer 2"},
	},
	Timestamp: time.Date(2026, 7, 4, 10, 0, 0, 0, time.UTC),
}

func TestRender(t *testing.T) {
	subject, body, err := Render(payload)
	require.NoError(t, err)
	assert.Equal(t, "[Alert] Freezer too warm: 2 device(s) triggered", subject)
	assert.Contains(t, body, "Freezer &lt;1&gt;")
	assert.Contains(t, body, "2026-07-04T10:00:00Z")
	assert.Contains(t, body, "2 devices")
}

func TestSMTPSend(t *testing.T) {
	p := NewSMTP(Config{Host: "smtp.example.com", Port: 587, Username: "u", Password: "p", From: "alerts@example.com"})

	var gotAddr string
	var gotTo []string
	var gotMsg string
	p.sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		assert.Equal(t, "alerts@example.com", from)
		return nil
	}

	err := p.Send(context.Background(), domain.Delivery{Kind: "email", Recipients: []string{"a@example.com", "b@example.com"}, Payload: payload})
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, gotTo)
	assert.True(t, strings.HasPrefix(gotMsg, "From: alerts@example.com\r\nTo: a@example.com, b@example.com\r\n"))
	assert.Contains(t, gotMsg, "Content-Type: text/html")
}

func TestSMTPSendErrors(t *testing.T) {
	p := NewSMTP(Config{Host: "smtp.example.com", Port: 25})
	p.sendMail = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("421 try later") }

	err := p.Send(context.Background(), domain.Delivery{Recipients: []string{"a@example.com"}, Payload: payload})
	require.ErrorContains(t, err, "421")

	err = p.Send(context.Background(), domain.Delivery{Payload: payload})
	require.ErrorIs(t, err, domain.ErrDeliveryRejected)
}
