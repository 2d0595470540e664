package http

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/isoroute/internal/core/domain"
	"github.com/samirrijal/isoroute/internal/core/usecases"
)

// Pinger is any backend the readiness probe can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// JobQueue accepts batch isochrone requests for asynchronous processing.
type JobQueue interface {
	PublishIsochroneJob(ctx context.Context, job *domain.IsochroneJob) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Isochrones *usecases.IsochroneService
	Routes     *usecases.RouteService
	Matrices   *usecases.MatrixService
	Jobs       JobQueue

	// Defaults fill in isochrone parameters a request leaves out.
	Defaults domain.IsochroneParams
	// RequestTimeout bounds compute endpoints; zero means 120s.
	RequestTimeout time.Duration
	// OpenAPIPath overrides DefaultOpenAPIPath.
	OpenAPIPath string

	NATS   *nats.Conn
	DB     Pinger
	Cache  Pinger
	Router Pinger
}

func (d *Dependencies) requestTimeout() time.Duration {
	if d.RequestTimeout <= 0 {
		return 120 * time.Second
	}
	return d.RequestTimeout
}
