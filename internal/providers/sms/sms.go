package sms

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/smallbiznis/fleetwatch/internal/notification/domain"
	"github.com/smallbiznis/fleetwatch/internal/providers/natsbus"
)

// maxTextLen keeps the message inside a single SMS segment.
const maxTextLen = 160

// Message is the hand-off envelope consumed by the external SMS gateway.
type Message struct {
	Recipients []string       `json:"recipients"`
	Text       string         `json:"text"`
	Payload    domain.Payload `json:"payload"`
}

type NATSProvider struct {
	pub     natsbus.Publisher
	subject string
}

func NewNATS(pub natsbus.Publisher, subject string) *NATSProvider {
	return &NATSProvider{pub: pub, subject: subject}
}

func (p *NATSProvider) Send(ctx context.Context, delivery domain.Delivery) error {
	if len(delivery.Recipients) == 0 {
		return fmt.Errorf("%w: sms has no recipients", domain.ErrDeliveryRejected)
	}
	msgID := delivery.Payload.RuleID + "-sms-" + strconv.FormatInt(delivery.Payload.Timestamp.UnixMilli(), 10)
	return natsbus.Publish(ctx, p.pub, p.subject, msgID, Message{
		Recipients: delivery.Recipients,
		Text:       Text(delivery.Payload),
		Payload:    delivery.Payload,
	})
}

// Text renders the single-line SMS body.
func Text(payload domain.Payload) string {
	names := make([]string, 0, len(payload.TriggeredDevices))
	for _, d := range payload.TriggeredDevices {
		name := d.Name
		if name == "" {
			name = d.ID
		}
		names = append(names, name)
	}

	head := fmt.Sprintf("ALERT %s: %d device(s) ", payload.RuleName, len(names))
	tail := " " + payload.Timestamp.UTC().Format("2006-01-02 15:04Z")

	listed := strings.Join(names, ", ")
	for shown := len(names); shown > 0 && len(head)+len(listed)+len(tail) > maxTextLen; shown-- {
		listed = strings.Join(names[:shown-1], ", ")
		if rest := len(names) - (shown - 1); rest > 0 {
			if listed != "" {
				listed += " "
			}
			listed += fmt.Sprintf("+%d more", rest)
		}
	}

	return strings.TrimSpace(truncate(head+listed+tail, maxTextLen))
}

// truncate cuts s to at most limit bytes without splitting a UTF-8 sequence.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
