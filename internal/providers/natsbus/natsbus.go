// Package natsbus owns the shared NATS connection used to hand notifications to external gateways.
package natsbus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/smallbiznis/fleetwatch/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Publisher is the subset of *nats.Conn used for hand-off.
type Publisher interface {
	PublishMsg(msg *nats.Msg) error
	FlushWithContext(ctx context.Context) error
}

// Connect opens a connection that keeps retrying in the background when the server is down.
// It returns nil when NATS is not configured.
func Connect(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*nats.Conn, error) {
	if !cfg.NATS.Enabled() {
		return nil, nil
	}
	log = log.Named("natsbus")

	nc, err := nats.Connect(cfg.NATS.URL,
		nats.Name(cfg.AppName),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("natsbus.disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("natsbus.reconnected", zap.String("url", c.ConnectedUrlRedacted()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return nc.Drain()
			},
		})
	}
	return nc, nil
}

// Publish encodes v as JSON and publishes it, using msgID for server-side de-duplication.
func Publish(ctx context.Context, pub Publisher, subject, msgID string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", subject, err)
	}
	msg := nats.NewMsg(subject)
	msg.Data = body
	msg.Header.Set("Content-Type", "application/json")
	if id := strings.TrimSpace(msgID); id != "" {
		msg.Header.Set(nats.MsgIdHdr, id)
	}
	if err := pub.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	if err := pub.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush %s: %w", subject, err)
	}
	return nil
}
