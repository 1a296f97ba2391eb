package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"painthub/backend/internal/cache"
	"painthub/backend/internal/domain"
	"painthub/backend/internal/store"
)

// Policies are the named business toggles from the store's operating rules:
// whether stock may go negative on a sale, and whether a new unpaid bill for
// a known phone number folds into the customer's existing open bill.
type Policies struct {
	AllowOversell      bool
	MergeUnpaidByPhone bool
}

type Service struct {
	repo         store.Repository
	dashboard    cache.DashboardCache
	policies     Policies
	dashboardTTL time.Duration
	now          func() time.Time
}

func New(repo store.Repository, dashboard cache.DashboardCache, policies Policies, dashboardTTL time.Duration) *Service {
	if dashboard == nil {
		dashboard = cache.NoopDashboardCache{}
	}
	return &Service{
		repo:         repo,
		dashboard:    dashboard,
		policies:     policies,
		dashboardTTL: dashboardTTL,
		now:          func() time.Time { return time.Now() },
	}
}

// Products

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (*domain.Product, error) {
	req.Company = strings.TrimSpace(req.Company)
	req.ProductName = strings.TrimSpace(req.ProductName)

	var verr domain.ValidationError
	if req.Company == "" {
		verr.Add("company", "is required")
	}
	if req.ProductName == "" {
		verr.Add("productName", "is required")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	return s.repo.CreateProduct(ctx, domain.Product{
		Company:     req.Company,
		ProductName: req.ProductName,
	})
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	return s.repo.DeleteProduct(ctx, id)
}

// Variants

func (s *Service) ListVariants(ctx context.Context) ([]domain.VariantWithProduct, error) {
	return s.repo.ListVariants(ctx)
}

func (s *Service) CreateVariant(ctx context.Context, req domain.VariantCreateRequest) (*domain.Variant, error) {
	req.ProductID = strings.TrimSpace(req.ProductID)
	req.PackingSize = strings.TrimSpace(req.PackingSize)

	var verr domain.ValidationError
	if req.ProductID == "" {
		verr.Add("productId", "is required")
	}
	if req.PackingSize == "" {
		verr.Add("packingSize", "is required")
	}
	if !req.Rate.IsPositive() {
		verr.Add("rate", "must be greater than zero")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	return s.repo.CreateVariant(ctx, domain.Variant{
		ProductID:   req.ProductID,
		PackingSize: req.PackingSize,
		Rate:        req.Rate,
	})
}

func (s *Service) UpdateVariantRate(ctx context.Context, id string, rate decimal.Decimal) (*domain.Variant, error) {
	if !rate.IsPositive() {
		verr := domain.ValidationError{}
		verr.Add("rate", "must be greater than zero")
		return nil, &verr
	}
	return s.repo.UpdateVariantRate(ctx, id, rate)
}

func (s *Service) DeleteVariant(ctx context.Context, id string) error {
	return s.repo.DeleteVariant(ctx, id)
}

// Colors and the stock ledger

func (s *Service) ListColors(ctx context.Context) ([]domain.ColorWithVariant, error) {
	return s.repo.ListColors(ctx)
}

func (s *Service) CreateColor(ctx context.Context, req domain.ColorCreateRequest) (*domain.Color, error) {
	req.VariantID = strings.TrimSpace(req.VariantID)
	req.ColorName = strings.TrimSpace(req.ColorName)
	req.ColorCode = strings.TrimSpace(req.ColorCode)

	var verr domain.ValidationError
	if req.VariantID == "" {
		verr.Add("variantId", "is required")
	}
	if req.ColorName == "" {
		verr.Add("colorName", "is required")
	}
	if req.ColorCode == "" {
		verr.Add("colorCode", "is required")
	}
	if req.StockQuantity < 0 {
		verr.Add("stockQuantity", "must not be negative")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	return s.repo.CreateColor(ctx, domain.Color{
		VariantID:     req.VariantID,
		ColorName:     req.ColorName,
		ColorCode:     req.ColorCode,
		StockQuantity: req.StockQuantity,
	})
}

// CorrectColorStock is the explicit stock-correction path: a direct overwrite
// rather than a delta, reserved for physical recounts.
func (s *Service) CorrectColorStock(ctx context.Context, id string, quantity int) (*domain.Color, error) {
	if quantity < 0 {
		verr := domain.ValidationError{}
		verr.Add("stockQuantity", "must not be negative")
		return nil, &verr
	}
	return s.repo.SetColorStock(ctx, id, quantity)
}

// StockIn records a restock event, increasing the color's running balance.
func (s *Service) StockIn(ctx context.Context, id string, quantity int) (*domain.Color, error) {
	if quantity <= 0 {
		verr := domain.ValidationError{}
		verr.Add("quantity", "must be greater than zero")
		return nil, &verr
	}
	return s.repo.AdjustStock(ctx, id, quantity)
}

func (s *Service) DeleteColor(ctx context.Context, id string) error {
	return s.repo.DeleteColor(ctx, id)
}
