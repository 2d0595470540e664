package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/isoroute/internal/core/domain"
	"github.com/samirrijal/isoroute/internal/core/ports"
)

// Subjects used on the bus.
const (
	SubjectComputedPrefix = "isochrone.computed."
	SubjectComputedAll    = "isochrone.computed.>"
	SubjectJobs           = "isochrone.requests"
)

// Streams returns the JetStream streams the service relies on.
func Streams() []nats.StreamConfig {
	return []nats.StreamConfig{
		{
			Name:      "ISOCHRONES",
			Subjects:  []string{SubjectComputedAll},
			Retention: nats.LimitsPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "ISOCHRONE_JOBS",
			Subjects:  []string{SubjectJobs},
			Retention: nats.WorkQueuePolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

var _ ports.EventPublisher = (*Publisher)(nil)

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
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
	return &Publisher{conn: conn, js: js}, nil
}

func ensureStreams(js nats.JetStreamContext) error {
	for _, cfg := range Streams() {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist, try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}
	return nil
}

// ComputedSubject returns the subject an isochrone event for profile is
// published on.
func ComputedSubject(profile string) string {
	return SubjectComputedPrefix + strings.ToLower(profile)
}

// PublishIsochroneComputed announces a finished computation.
func (p *Publisher) PublishIsochroneComputed(ctx context.Context, event *domain.IsochroneEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(ComputedSubject(event.Profile), data, nats.Context(ctx))
	return err
}

// PublishIsochroneJob queues a batch request for the worker.
func (p *Publisher) PublishIsochroneJob(ctx context.Context, job *domain.IsochroneJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	opts := []nats.PubOpt{nats.Context(ctx)}
	if job.ID != "" {
		opts = append(opts, nats.MsgId(job.ID))
	}
	_, err = p.js.Publish(SubjectJobs, data, opts...)
	return err
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
