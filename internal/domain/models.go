package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product groups a paint manufacturer's line, e.g. "Berger / WeatherCoat".
type Product struct {
	ID          string    `json:"id"`
	Company     string    `json:"company"`
	ProductName string    `json:"productName"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Variant is a packing size + price point of a Product, e.g. "4L @ 1250.00".
// Rate is the current unit price; sale items snapshot their own rate so later
// rate edits never rewrite history.
type Variant struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"productId"`
	PackingSize string          `json:"packingSize"`
	Rate        decimal.Decimal `json:"rate"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Color is the actual stock-keeping unit. StockQuantity is a running balance
// only ever moved by deltas, except for the explicit stock-correction path.
type Color struct {
	ID            string    `json:"id"`
	VariantID     string    `json:"variantId"`
	ColorName     string    `json:"colorName"`
	ColorCode     string    `json:"colorCode"`
	StockQuantity int       `json:"stockQuantity"`
	CreatedAt     time.Time `json:"createdAt"`
}

type VariantWithProduct struct {
	Variant
	Product Product `json:"product"`
}

type ColorWithVariant struct {
	Color
	Variant VariantWithProduct `json:"variant"`
}

const (
	PaymentStatusUnpaid  = "unpaid"
	PaymentStatusPartial = "partial"
	PaymentStatusPaid    = "paid"
)

// Sale is one customer bill. TotalAmount is derived from the item subtotals
// and recomputed after every item mutation, never written directly.
// PaymentStatus is always the pure function PaymentStatusFor(total, paid).
type Sale struct {
	ID            string          `json:"id"`
	CustomerName  string          `json:"customerName"`
	CustomerPhone string          `json:"customerPhone"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	AmountPaid    decimal.Decimal `json:"amountPaid"`
	PaymentStatus string          `json:"paymentStatus"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// Outstanding is the unpaid remainder of the bill, floored at zero.
func (s Sale) Outstanding() decimal.Decimal {
	out := s.TotalAmount.Sub(s.AmountPaid)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

type SaleItem struct {
	ID       string          `json:"id"`
	SaleID   string          `json:"saleId"`
	ColorID  string          `json:"colorId"`
	Quantity int             `json:"quantity"`
	Rate     decimal.Decimal `json:"rate"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type SaleItemWithColor struct {
	SaleItem
	Color ColorWithVariant `json:"color"`
}

type SaleWithItems struct {
	Sale
	SaleItems []SaleItemWithColor `json:"saleItems"`
}

type ProductCreateRequest struct {
	Company     string `json:"company"`
	ProductName string `json:"productName"`
}

type VariantCreateRequest struct {
	ProductID   string          `json:"productId"`
	PackingSize string          `json:"packingSize"`
	Rate        decimal.Decimal `json:"rate"`
}

type VariantRateRequest struct {
	Rate decimal.Decimal `json:"rate"`
}

type ColorCreateRequest struct {
	VariantID     string `json:"variantId"`
	ColorName     string `json:"colorName"`
	ColorCode     string `json:"colorCode"`
	StockQuantity int    `json:"stockQuantity"`
}

type StockCorrectionRequest struct {
	StockQuantity int `json:"stockQuantity"`
}

type StockInRequest struct {
	Quantity int `json:"quantity"`
}

// SaleItemInput is one line of a new bill. Subtotal is accepted for wire
// compatibility but always recomputed server-side as rate × quantity.
type SaleItemInput struct {
	ColorID  string          `json:"colorId"`
	Quantity int             `json:"quantity"`
	Rate     decimal.Decimal `json:"rate"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// SaleCreateRequest mirrors the original client payload. TotalAmount and
// PaymentStatus are accepted but derived server-side from the items and
// AmountPaid.
type SaleCreateRequest struct {
	CustomerName  string          `json:"customerName"`
	CustomerPhone string          `json:"customerPhone"`
	Items         []SaleItemInput `json:"items"`
	AmountPaid    decimal.Decimal `json:"amountPaid"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	PaymentStatus string          `json:"paymentStatus"`
}

type PaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type SaleItemUpdateRequest struct {
	Quantity int             `json:"quantity"`
	Rate     decimal.Decimal `json:"rate"`
}

type CustomerSuggestion struct {
	CustomerName  string          `json:"customerName"`
	CustomerPhone string          `json:"customerPhone"`
	LastSaleDate  time.Time       `json:"lastSaleDate"`
	TotalSpent    decimal.Decimal `json:"totalSpent"`
}

type PeriodSales struct {
	Revenue      decimal.Decimal `json:"revenue"`
	Transactions int             `json:"transactions"`
}

type InventorySummary struct {
	TotalProducts   int             `json:"totalProducts"`
	TotalVariants   int             `json:"totalVariants"`
	TotalColors     int             `json:"totalColors"`
	LowStock        int             `json:"lowStock"`
	TotalStockValue decimal.Decimal `json:"totalStockValue"`
}

type UnpaidSummary struct {
	Count       int             `json:"count"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

type DailyRevenue struct {
	Date    string          `json:"date"`
	Revenue decimal.Decimal `json:"revenue"`
}

type DashboardStats struct {
	TodaySales   PeriodSales      `json:"todaySales"`
	MonthlySales PeriodSales      `json:"monthlySales"`
	Inventory    InventorySummary `json:"inventory"`
	UnpaidBills  UnpaidSummary    `json:"unpaidBills"`
	RecentSales  []Sale           `json:"recentSales"`
	MonthlyChart []DailyRevenue   `json:"monthlyChart"`
}
