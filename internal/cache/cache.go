package cache

import (
	"context"
	"time"

	"painthub/backend/internal/domain"
)

// DashboardCache holds a short-lived copy of the dashboard aggregate. The
// noop implementation is the default: the aggregator then recomputes from
// store state on every call.
type DashboardCache interface {
	Get(ctx context.Context, key string) (*domain.DashboardStats, bool, error)
	Set(ctx context.Context, key string, value *domain.DashboardStats, ttl time.Duration) error
}

type NoopDashboardCache struct{}

func (NoopDashboardCache) Get(_ context.Context, _ string) (*domain.DashboardStats, bool, error) {
	return nil, false, nil
}

func (NoopDashboardCache) Set(_ context.Context, _ string, _ *domain.DashboardStats, _ time.Duration) error {
	return nil
}
