package ports

import (
	"context"

	"github.com/samirrijal/mapdump/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishRouteEvent(ctx context.Context, event *domain.RouteEvent) error
	PublishMapEvent(ctx context.Context, event *domain.MapEvent) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeRouteEvents(ctx context.Context, handler func(ctx context.Context, event *domain.RouteEvent) error) error
	SubscribeMapEvents(ctx context.Context, handler func(ctx context.Context, event *domain.MapEvent) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// WorkflowStarter kicks off background processing of a route.
type WorkflowStarter interface {
	StartRouteEnrichment(ctx context.Context, routeID string) error
}
