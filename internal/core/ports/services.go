package ports

import (
	"context"

	"github.com/zKi3v/ECOALERTA-FTD/internal/core/domain"
)

// FramePublisher publishes truck simulation events to a message broker.
type FramePublisher interface {
	PublishFrame(ctx context.Context, f *domain.TruckFrame) error
	PublishArrival(ctx context.Context, a *domain.TruckArrival) error
}

// FrameSubscriber receives truck simulation events from a message broker.
type FrameSubscriber interface {
	SubscribeFrames(ctx context.Context, handler func(ctx context.Context, f *domain.TruckFrame) error) error
	SubscribeArrivals(ctx context.Context, handler func(ctx context.Context, a *domain.TruckArrival) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// Projector converts WGS 84 coordinates to Web Mercator.
type Projector interface {
	Project(p domain.GeoPoint) domain.MercatorPoint
}
