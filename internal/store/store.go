package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"painthub/backend/internal/domain"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrExceedsOutstanding = errors.New("amount exceeds outstanding balance")
)

// Repository is the persistence boundary for the catalog, the stock ledger
// and the sale/payment aggregates. Compound mutations (create sale + reserve
// stock, delete item + release stock, item edit) are atomic within a single
// call: the postgres implementation wraps them in one SQL transaction, the
// memory implementation holds its mutex for the whole mutation.
type Repository interface {
	// Products
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	// Variants
	ListVariants(ctx context.Context) ([]domain.VariantWithProduct, error)
	GetVariant(ctx context.Context, id string) (*domain.Variant, error)
	CreateVariant(ctx context.Context, variant domain.Variant) (*domain.Variant, error)
	UpdateVariantRate(ctx context.Context, id string, rate decimal.Decimal) (*domain.Variant, error)
	DeleteVariant(ctx context.Context, id string) error

	// Colors and the stock ledger. AdjustStock applies a signed delta to the
	// running balance; SetColorStock is the explicit correction path.
	ListColors(ctx context.Context) ([]domain.ColorWithVariant, error)
	GetColor(ctx context.Context, id string) (*domain.Color, error)
	CreateColor(ctx context.Context, color domain.Color) (*domain.Color, error)
	SetColorStock(ctx context.Context, id string, quantity int) (*domain.Color, error)
	AdjustStock(ctx context.Context, colorID string, delta int) (*domain.Color, error)
	DeleteColor(ctx context.Context, id string) error

	// Sales
	ListSales(ctx context.Context) ([]domain.Sale, error)
	ListUnpaidSales(ctx context.Context) ([]domain.Sale, error)
	ListOutstandingSalesByPhone(ctx context.Context, customerPhone string) ([]domain.Sale, error)
	FindOpenSaleByPhone(ctx context.Context, customerPhone string) (*domain.Sale, error)
	GetSale(ctx context.Context, id string) (*domain.SaleWithItems, error)
	GetSaleItem(ctx context.Context, id string) (*domain.SaleItem, error)
	CreateSale(ctx context.Context, sale domain.Sale, items []domain.SaleItem) (*domain.Sale, error)
	AddSaleItem(ctx context.Context, saleID string, item domain.SaleItem) (*domain.SaleItem, error)
	UpdateSaleItem(ctx context.Context, id string, quantity int, rate decimal.Decimal) (*domain.SaleItem, error)
	DeleteSaleItem(ctx context.Context, id string) error
	DeleteSale(ctx context.Context, id string, returnStock bool) error
	ApplyPayment(ctx context.Context, saleID string, amount decimal.Decimal) (*domain.Sale, error)

	// Reporting
	DashboardStats(ctx context.Context, now time.Time) (*domain.DashboardStats, error)
}
