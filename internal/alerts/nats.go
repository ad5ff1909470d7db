package alerts

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/tccollector/internal/config"
	"git.home.luguber.info/inful/tccollector/internal/foundation/errors"
	"git.home.luguber.info/inful/tccollector/internal/logfields"
)

const (
	publishTimeout = 5 * time.Second
	streamMaxAge   = 30 * 24 * time.Hour
)

// streamPublisher is the part of jetstream.JetStream the publisher needs.
type streamPublisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATSPublisher publishes alerts to a JetStream subject.
type NATSPublisher struct {
	conn    *nats.Conn
	js      streamPublisher
	subject string
}

// NewNATSPublisher connects to NATS and makes sure the alert stream exists.
func NewNATSPublisher(ctx context.Context, cfg config.NATSConfig) (*NATSPublisher, error) {
	if !cfg.Enabled {
		return nil, errors.ConfigError("nats alert publishing is disabled").Build()
	}

	conn, err := nats.Connect(cfg.URL, nats.Name("tccollector"))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryAlert, "failed to connect to NATS").
			WithContext("url", cfg.URL).Build()
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, errors.WrapError(err, errors.CategoryAlert, "failed to create JetStream context").Build()
	}

	sctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err = js.CreateOrUpdateStream(sctx, jetstream.StreamConfig{
		Name:        cfg.Stream,
		Description: "tccollector operator alerts",
		Subjects:    []string{cfg.Subject},
		MaxAge:      streamMaxAge,
	})
	if err != nil {
		conn.Close()
		return nil, errors.WrapError(err, errors.CategoryAlert, "failed to create alert stream").
			WithContext("stream", cfg.Stream).Build()
	}

	slog.Info("NATS alert publisher initialized",
		logfields.URL(cfg.URL),
		slog.String("subject", cfg.Subject),
		slog.String("stream", cfg.Stream))

	return &NATSPublisher{conn: conn, js: js, subject: cfg.Subject}, nil
}

// Raise publishes a to the alert subject. The alert ID doubles as the
// JetStream message ID so a re-raised alert is deduplicated.
func (p *NATSPublisher) Raise(ctx context.Context, a Alert) (Alert, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return a, errors.WrapError(err, errors.CategoryInternal, "failed to marshal alert").Build()
	}

	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	var opts []jetstream.PublishOpt
	if a.ID != 0 {
		opts = append(opts, jetstream.WithMsgID("alert-"+strconv.FormatInt(a.ID, 10)))
	}
	if _, err := p.js.Publish(pctx, p.subject, data, opts...); err != nil {
		return a, errors.WrapError(err, errors.CategoryAlert, "failed to publish alert").
			WithContext("subject", p.subject).Retryable().Build()
	}

	slog.Debug("Published alert", logfields.AlertID(a.ID), slog.String("subject", p.subject))
	return a, nil
}

// Close drains the NATS connection.
func (p *NATSPublisher) Close() error {
	if p.conn != nil {
		return p.conn.Drain()
	}
	return nil
}
