package email

import (
	"context"
	"strconv"

	"github.com/smallbiznis/fleetwatch/internal/notification/domain"
	"github.com/smallbiznis/fleetwatch/internal/providers/natsbus"
)

// Message is the hand-off envelope consumed by the external mail gateway.
type Message struct {
	Recipients []string       `json:"recipients"`
	Subject    string         `json:"subject"`
	HTML       string         `json:"html"`
	Payload    domain.Payload `json:"payload"`
}

// NATSProvider hands rendered email to a gateway over NATS when no SMTP relay is configured.
type NATSProvider struct {
	pub     natsbus.Publisher
	subject string
}

func NewNATS(pub natsbus.Publisher, subject string) *NATSProvider {
	return &NATSProvider{pub: pub, subject: subject}
}

func (p *NATSProvider) Send(ctx context.Context, delivery domain.Delivery) error {
	subject, body, err := Render(delivery.Payload)
	if err != nil {
		return err
	}
	msgID := delivery.Payload.RuleID + "-email-" + strconv.FormatInt(delivery.Payload.Timestamp.UnixMilli(), 10)
	return natsbus.Publish(ctx, p.pub, p.subject, msgID, Message{
		Recipients: delivery.Recipients,
		Subject:    subject,
		HTML:       body,
		Payload:    delivery.Payload,
	})
}
