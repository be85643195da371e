package service

import (
	"context"

	"github.com/sn-foods/commerce-api/internal/domain"
	"github.com/sn-foods/commerce-api/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DashboardService aggregates the back-office landing page counters.
// The lookups are independent and read-only, so they run concurrently.
type DashboardService struct {
	orderRepo   *repository.OrderRepository
	productRepo *repository.ProductRepository
	accountRepo *repository.AccountRepository
	profileRepo *repository.ProfileRepository
	logger      *zap.Logger
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(
	orderRepo *repository.OrderRepository,
	productRepo *repository.ProductRepository,
	accountRepo *repository.AccountRepository,
	profileRepo *repository.ProfileRepository,
	logger *zap.Logger,
) *DashboardService {
	return &DashboardService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		accountRepo: accountRepo,
		profileRepo: profileRepo,
		logger:      logger,
	}
}

// GetStats collects the dashboard counters
func (s *DashboardService) GetStats(ctx context.Context) (*domain.DashboardStats, error) {
	stats := &domain.DashboardStats{}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		counts, err := s.orderRepo.CountByStatus(gctx)
		if err != nil {
			return err
		}
		stats.OrdersByStatus = counts
		return nil
	})

	g.Go(func() error {
		value, err := s.orderRepo.SumTotalByStatus(gctx, domain.OrderStatusPending)
		if err != nil {
			return err
		}
		stats.PendingOrdersValue = value
		return nil
	})

	g.Go(func() error {
		count, err := s.productRepo.CountActive(gctx)
		if err != nil {
			return err
		}
		stats.TotalProducts = count
		return nil
	})

	g.Go(func() error {
		count, err := s.accountRepo.CountActive(gctx)
		if err != nil {
			return err
		}
		stats.TotalAccounts = count
		return nil
	})

	g.Go(func() error {
		count, err := s.profileRepo.Count(gctx)
		if err != nil {
			return err
		}
		stats.TotalProfiles = count
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return stats, nil
}
