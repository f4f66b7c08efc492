package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/smallbiznis/fleetwatch/internal/notification/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var ruleAlertTemplate = template.Must(template.ParseFS(templateFS, "templates/rule_alert.html"))

type ruleAlertView struct {
	RuleID    string
	RuleName  string
	Timestamp string
	Devices   []domain.TriggeredDevice
}

// Render returns the subject and HTML body for a triggered rule.
func Render(payload domain.Payload) (string, string, error) {
	view := ruleAlertView{
		RuleID:    payload.RuleID,
		RuleName:  payload.RuleName,
		Timestamp: payload.Timestamp.UTC().Format(time.RFC3339),
		Devices:   payload.TriggeredDevices,
	}

	var body bytes.Buffer
	if err := ruleAlertTemplate.Execute(&body, view); err != nil {
		return "", "", fmt.Errorf("render rule alert email: %w", err)
	}
	subject := fmt.Sprintf("[Alert] %s: %d device(s) triggered", payload.RuleName, len(payload.TriggeredDevices))
	return subject, body.String(), nil
}
