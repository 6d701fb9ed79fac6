package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// DefaultSubjectPrefix is prepended to the event kind, e.g. "troupe.party.kicked".
const DefaultSubjectPrefix = "troupe.party"

// NATSNotifier publishes events as JSON on core NATS subjects.
type NATSNotifier struct {
	nc     *nats.Conn
	prefix string
	log    *zap.Logger
}

// ConnectNATS dials url and returns a notifier publishing under DefaultSubjectPrefix.
func ConnectNATS(url string, log *zap.Logger) (*NATSNotifier, error) {
	nc, err := nats.Connect(url,
		nats.Name("troupe"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	log.Info("Connected to NATS", zap.String("url", nc.ConnectedUrl()))
	return &NATSNotifier{nc: nc, prefix: DefaultSubjectPrefix, log: log}, nil
}

// Subject returns the subject an event of kind k is published on.
func Subject(prefix string, k Kind) string {
	return prefix + "." + string(k)
}

func (n *NATSNotifier) Notify(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return n.nc.Publish(Subject(n.prefix, e.Kind), data)
}

// Close flushes pending messages and closes the connection.
func (n *NATSNotifier) Close() error {
	return n.nc.Drain()
}
