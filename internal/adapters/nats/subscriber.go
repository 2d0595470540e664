package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/isoroute/internal/core/domain"
	"github.com/samirrijal/isoroute/internal/core/ports"
)

// Subscriber implements ports.JobSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

var _ ports.JobSubscriber = (*Subscriber)(nil)

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	if err := ensureStreams(js); err != nil {
		conn.Close()
		return nil, err
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeIsochroneJobs hands every queued batch request to handler.
// Undecodable messages are terminated; handler errors are not redelivered
// because a batch is never retried.
func (s *Subscriber) SubscribeIsochroneJobs(ctx context.Context, handler func(ctx context.Context, job *domain.IsochroneJob) error) error {
	sub, err := s.js.Subscribe(SubjectJobs, func(msg *nats.Msg) {
		var job domain.IsochroneJob
		if err := json.Unmarshal(msg.Data, &job); err != nil {
			slog.Warn("dropping malformed isochrone job", "error", err)
			_ = msg.Term()
			return
		}
		if err := handler(ctx, &job); err != nil {
			slog.Error("isochrone job failed", "job_id", job.ID, "error", err)
			_ = msg.Term()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable("isochrone-batch"),
		nats.ManualAck(),
		nats.MaxDeliver(1),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
