package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"painthub/backend/internal/domain"
)

const dashboardCacheKey = "painthub:dashboard-stats"

// DashboardStats recomputes the dashboard aggregate from current catalog,
// stock and sales state. A cache sits in front only when Redis is
// configured; the default noop cache means every call hits the store.
func (s *Service) DashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	if cached, found, err := s.dashboard.Get(ctx, dashboardCacheKey); err != nil {
		log.Warn().Err(err).Msg("dashboard cache read failed")
	} else if found {
		return cached, nil
	}

	stats, err := s.repo.DashboardStats(ctx, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.dashboard.Set(ctx, dashboardCacheKey, stats, s.dashboardTTL); err != nil {
		log.Warn().Err(err).Msg("dashboard cache write failed")
	}

	return stats, nil
}
