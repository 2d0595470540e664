package ports

import (
	"context"

	"github.com/samirrijal/isoroute/internal/core/domain"
)

// IsochroneRepository archives computed isochrones.
type IsochroneRepository interface {
	Save(ctx context.Context, iso *domain.Isochrone) error
	GetByID(ctx context.Context, id string) (*domain.Isochrone, error)
	List(ctx context.Context, offset, limit int) ([]domain.IsochroneSummary, int, error)
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishIsochroneComputed(ctx context.Context, event *domain.IsochroneEvent) error
}

// JobSubscriber delivers batch isochrone requests from a message broker.
type JobSubscriber interface {
	SubscribeIsochroneJobs(ctx context.Context, handler func(ctx context.Context, job *domain.IsochroneJob) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
