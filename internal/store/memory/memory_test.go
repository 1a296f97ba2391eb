package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"painthub/backend/internal/domain"
	"painthub/backend/internal/store"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func seedChain(t *testing.T, s *Store, rate string, stock int) (productID, variantID, colorID string) {
	t.Helper()
	ctx := context.Background()

	product, err := s.CreateProduct(ctx, domain.Product{Company: "Asian Paints", ProductName: "Apex Ultima"})
	if err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	variant, err := s.CreateVariant(ctx, domain.Variant{
		ProductID:   product.ID,
		PackingSize: "4L",
		Rate:        mustDecimal(t, rate),
	})
	if err != nil {
		t.Fatalf("create variant failed: %v", err)
	}
	color, err := s.CreateColor(ctx, domain.Color{
		VariantID:     variant.ID,
		ColorName:     "Sky Blue",
		ColorCode:     "RAL5015",
		StockQuantity: stock,
	})
	if err != nil {
		t.Fatalf("create color failed: %v", err)
	}
	return product.ID, variant.ID, color.ID
}

func TestSeededStoreHasCatalog(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	products, err := s.ListProducts(ctx)
	if err != nil {
		t.Fatalf("list products failed: %v", err)
	}
	if len(products) == 0 {
		t.Fatalf("expected seeded products")
	}
	colors, err := s.ListColors(ctx)
	if err != nil {
		t.Fatalf("list colors failed: %v", err)
	}
	for _, c := range colors {
		if c.Variant.ID == "" || c.Variant.Product.ID == "" {
			t.Fatalf("color %s missing variant/product join", c.ID)
		}
	}
}

func TestDeleteProductCascadesToColors(t *testing.T) {
	s := New()
	ctx := context.Background()
	productID, variantID, colorID := seedChain(t, s, "480.00", 10)

	if err := s.DeleteProduct(ctx, productID); err != nil {
		t.Fatalf("delete product failed: %v", err)
	}
	if _, err := s.GetVariant(ctx, variantID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected variant gone, got %v", err)
	}
	if _, err := s.GetColor(ctx, colorID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected color gone, got %v", err)
	}
}

func TestCreateVariantRequiresProduct(t *testing.T) {
	s := New()

	_, err := s.CreateVariant(context.Background(), domain.Variant{
		ProductID:   "prod-none",
		PackingSize: "1L",
		Rate:        mustDecimal(t, "480.00"),
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateSaleReservesStock(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, _, colorID := seedChain(t, s, "480.00", 10)

	sale, err := s.CreateSale(ctx, domain.Sale{
		CustomerName:  "Ravi",
		CustomerPhone: "9800000001",
		TotalAmount:   mustDecimal(t, "960.00"),
		AmountPaid:    decimal.Zero,
		PaymentStatus: domain.PaymentStatusUnpaid,
	}, []domain.SaleItem{
		{ColorID: colorID, Quantity: 2, Rate: mustDecimal(t, "480.00"), Subtotal: mustDecimal(t, "960.00")},
	})
	if err != nil {
		t.Fatalf("create sale failed: %v", err)
	}

	color, err := s.GetColor(ctx, colorID)
	if err != nil {
		t.Fatalf("get color failed: %v", err)
	}
	if color.StockQuantity != 8 {
		t.Fatalf("expected balance 8, got %d", color.StockQuantity)
	}

	full, err := s.GetSale(ctx, sale.ID)
	if err != nil {
		t.Fatalf("get sale failed: %v", err)
	}
	if len(full.SaleItems) != 1 {
		t.Fatalf("expected 1 item, got %d", len(full.SaleItems))
	}
	if full.SaleItems[0].Color.ID != colorID {
		t.Fatalf("expected item joined to color %s", colorID)
	}
}

func TestDeleteSaleItemSurvivesDeletedColor(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, _, colorID := seedChain(t, s, "480.00", 10)

	sale, err := s.CreateSale(ctx, domain.Sale{
		CustomerName:  "Ravi",
		CustomerPhone: "9800000001",
		TotalAmount:   mustDecimal(t, "480.00"),
		PaymentStatus: domain.PaymentStatusUnpaid,
	}, []domain.SaleItem{
		{ColorID: colorID, Quantity: 1, Rate: mustDecimal(t, "480.00"), Subtotal: mustDecimal(t, "480.00")},
	})
	if err != nil {
		t.Fatalf("create sale failed: %v", err)
	}
	if err := s.DeleteColor(ctx, colorID); err != nil {
		t.Fatalf("delete color failed: %v", err)
	}

	full, err := s.GetSale(ctx, sale.ID)
	if err != nil {
		t.Fatalf("get sale failed: %v", err)
	}
	if err := s.DeleteSaleItem(ctx, full.SaleItems[0].ID); err != nil {
		t.Fatalf("delete item should tolerate the missing color: %v", err)
	}

	after, err := s.GetSale(ctx, sale.ID)
	if err != nil {
		t.Fatalf("get sale failed: %v", err)
	}
	if len(after.SaleItems) != 0 {
		t.Fatalf("expected item removed, got %d", len(after.SaleItems))
	}
	if !after.TotalAmount.IsZero() {
		t.Fatalf("expected total recomputed to 0, got %s", after.TotalAmount)
	}
}

func TestDeleteSaleStockReturnToggle(t *testing.T) {
	for _, returnStock := range []bool{true, false} {
		s := New()
		ctx := context.Background()
		_, _, colorID := seedChain(t, s, "480.00", 10)

		sale, err := s.CreateSale(ctx, domain.Sale{
			CustomerName:  "Ravi",
			CustomerPhone: "9800000001",
			TotalAmount:   mustDecimal(t, "1440.00"),
			PaymentStatus: domain.PaymentStatusUnpaid,
		}, []domain.SaleItem{
			{ColorID: colorID, Quantity: 3, Rate: mustDecimal(t, "480.00"), Subtotal: mustDecimal(t, "1440.00")},
		})
		if err != nil {
			t.Fatalf("create sale failed: %v", err)
		}

		if err := s.DeleteSale(ctx, sale.ID, returnStock); err != nil {
			t.Fatalf("delete sale failed: %v", err)
		}

		color, err := s.GetColor(ctx, colorID)
		if err != nil {
			t.Fatalf("get color failed: %v", err)
		}
		want := 7
		if returnStock {
			want = 10
		}
		if color.StockQuantity != want {
			t.Fatalf("returnStock=%v: expected balance %d, got %d", returnStock, want, color.StockQuantity)
		}
	}
}

func TestFindOpenSaleByPhonePicksMostRecent(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, _, colorID := seedChain(t, s, "100.00", 100)

	base := time.Now().UTC().Add(-time.Hour)
	var newestID string
	for i := 0; i < 3; i++ {
		sale, err := s.CreateSale(ctx, domain.Sale{
			CustomerName:  "Sita",
			CustomerPhone: "9800000002",
			TotalAmount:   mustDecimal(t, "100.00"),
			PaymentStatus: domain.PaymentStatusUnpaid,
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}, []domain.SaleItem{
			{ColorID: colorID, Quantity: 1, Rate: mustDecimal(t, "100.00"), Subtotal: mustDecimal(t, "100.00")},
		})
		if err != nil {
			t.Fatalf("create sale failed: %v", err)
		}
		newestID = sale.ID
	}

	open, err := s.FindOpenSaleByPhone(ctx, "9800000002")
	if err != nil {
		t.Fatalf("find open sale failed: %v", err)
	}
	if open.ID != newestID {
		t.Fatalf("expected most recent open bill %s, got %s", newestID, open.ID)
	}

	outstanding, err := s.ListOutstandingSalesByPhone(ctx, "9800000002")
	if err != nil {
		t.Fatalf("list outstanding failed: %v", err)
	}
	if len(outstanding) != 3 {
		t.Fatalf("expected 3 open bills, got %d", len(outstanding))
	}
	for i := 1; i < len(outstanding); i++ {
		if outstanding[i].CreatedAt.Before(outstanding[i-1].CreatedAt) {
			t.Fatalf("expected oldest-first ordering")
		}
	}
}

func TestApplyPaymentRecomputesStatus(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, _, colorID := seedChain(t, s, "100.00", 100)

	sale, err := s.CreateSale(ctx, domain.Sale{
		CustomerName:  "Sita",
		CustomerPhone: "9800000002",
		TotalAmount:   mustDecimal(t, "300.00"),
		PaymentStatus: domain.PaymentStatusUnpaid,
	}, []domain.SaleItem{
		{ColorID: colorID, Quantity: 3, Rate: mustDecimal(t, "100.00"), Subtotal: mustDecimal(t, "300.00")},
	})
	if err != nil {
		t.Fatalf("create sale failed: %v", err)
	}

	updated, err := s.ApplyPayment(ctx, sale.ID, mustDecimal(t, "120.00"))
	if err != nil {
		t.Fatalf("apply payment failed: %v", err)
	}
	if updated.PaymentStatus != domain.PaymentStatusPartial {
		t.Fatalf("expected partial, got %s", updated.PaymentStatus)
	}

	updated, err = s.ApplyPayment(ctx, sale.ID, mustDecimal(t, "180.00"))
	if err != nil {
		t.Fatalf("apply payment failed: %v", err)
	}
	if updated.PaymentStatus != domain.PaymentStatusPaid {
		t.Fatalf("expected paid, got %s", updated.PaymentStatus)
	}
}

func TestDashboardStatsWindows(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, _, _ = seedChain(t, s, "100.00", 5)

	now := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

	mkSale := func(createdAt time.Time, total string, status string) {
		t.Helper()
		if _, err := s.CreateSale(ctx, domain.Sale{
			CustomerName:  "Ravi",
			CustomerPhone: "9800000001",
			TotalAmount:   mustDecimal(t, total),
			PaymentStatus: status,
			CreatedAt:     createdAt,
		}, nil); err != nil {
			t.Fatalf("create sale failed: %v", err)
		}
	}

	mkSale(now.Add(-time.Hour), "200.00", domain.PaymentStatusUnpaid)      // today
	mkSale(now.AddDate(0, 0, -5), "300.00", domain.PaymentStatusPaid)      // this month
	mkSale(now.AddDate(0, 0, -40), "9999.00", domain.PaymentStatusPartial) // outside both windows

	stats, err := s.DashboardStats(ctx, now)
	if err != nil {
		t.Fatalf("dashboard stats failed: %v", err)
	}

	if stats.TodaySales.Transactions != 1 || !stats.TodaySales.Revenue.Equal(mustDecimal(t, "200.00")) {
		t.Fatalf("today: got %d tx / %s", stats.TodaySales.Transactions, stats.TodaySales.Revenue)
	}
	if stats.MonthlySales.Transactions != 2 || !stats.MonthlySales.Revenue.Equal(mustDecimal(t, "500.00")) {
		t.Fatalf("month: got %d tx / %s", stats.MonthlySales.Transactions, stats.MonthlySales.Revenue)
	}
	// The 40-day-old partial bill still counts as unpaid debt.
	if stats.UnpaidBills.Count != 2 {
		t.Fatalf("expected 2 unpaid bills, got %d", stats.UnpaidBills.Count)
	}
	if len(stats.MonthlyChart) != 2 {
		t.Fatalf("expected 2 chart days inside 30-day window, got %d", len(stats.MonthlyChart))
	}
	if stats.Inventory.LowStock != 1 {
		t.Fatalf("expected 1 low-stock color, got %d", stats.Inventory.LowStock)
	}
	if !stats.Inventory.TotalStockValue.Equal(mustDecimal(t, "500.00")) {
		t.Fatalf("expected stock value 500.00, got %s", stats.Inventory.TotalStockValue)
	}
}
