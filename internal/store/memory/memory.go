package memory

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"painthub/backend/internal/domain"
	"painthub/backend/internal/store"
	"painthub/backend/internal/xid"
)

// Store keeps the whole catalog and sales ledger in maps. It backs unit
// tests and the desktop dev mode when DATABASE_URL is unset. Every compound
// mutation runs under one write lock, so stock and invoice state always
// move together.
type Store struct {
	mu        sync.RWMutex
	products  map[string]domain.Product
	variants  map[string]domain.Variant
	colors    map[string]domain.Color
	sales     map[string]domain.Sale
	saleItems map[string]domain.SaleItem
}

func New() *Store {
	return &Store{
		products:  make(map[string]domain.Product),
		variants:  make(map[string]domain.Variant),
		colors:    make(map[string]domain.Color),
		sales:     make(map[string]domain.Sale),
		saleItems: make(map[string]domain.SaleItem),
	}
}

type seedColor struct {
	name  string
	code  string
	stock int
}

type seedVariant struct {
	packing string
	rate    string
	colors  []seedColor
}

type seedProduct struct {
	company string
	product string
	sizes   []seedVariant
}

// NewSeeded returns a store preloaded with a small paint catalog for dev mode.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	seed := []seedProduct{
		{
			company: "Asian Paints",
			product: "Apex Ultima",
			sizes: []seedVariant{
				{"1L", "480.00", []seedColor{{"Sky Blue", "RAL5015", 40}, {"Sunset Red", "RAL3016", 25}}},
				{"4L", "1760.00", []seedColor{{"Sky Blue", "RAL5015", 16}, {"Pearl White", "RAL9010", 30}}},
			},
		},
		{
			company: "Berger",
			product: "WeatherCoat",
			sizes: []seedVariant{
				{"16L", "5400.00", []seedColor{{"Ivory", "RAL1015", 8}, {"Slate Grey", "RAL7015", 5}}},
			},
		},
	}

	for _, p := range seed {
		product := domain.Product{ID: xid.New("prod"), Company: p.company, ProductName: p.product, CreatedAt: now}
		s.products[product.ID] = product
		for _, v := range p.sizes {
			rate, _ := decimal.NewFromString(v.rate)
			variant := domain.Variant{ID: xid.New("var"), ProductID: product.ID, PackingSize: v.packing, Rate: rate, CreatedAt: now}
			s.variants[variant.ID] = variant
			for _, c := range v.colors {
				color := domain.Color{ID: xid.New("col"), VariantID: variant.ID, ColorName: c.name, ColorCode: c.code, StockQuantity: c.stock, CreatedAt: now}
				s.colors[color.ID] = color
			}
		}
	}

	return s
}

// Products

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	sortNewestFirst(products, func(p domain.Product) (time.Time, string) { return p.CreatedAt, p.ID })
	return products, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := product
	return &copied, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	s.products[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.products, id)

	// Cascade product -> variants -> colors, as the schema does.
	for variantID, variant := range s.variants {
		if variant.ProductID != id {
			continue
		}
		delete(s.variants, variantID)
		for colorID, color := range s.colors {
			if color.VariantID == variantID {
				delete(s.colors, colorID)
			}
		}
	}
	return nil
}

// Variants

func (s *Store) ListVariants(_ context.Context) ([]domain.VariantWithProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	variants := make([]domain.VariantWithProduct, 0, len(s.variants))
	for _, v := range s.variants {
		product, exists := s.products[v.ProductID]
		if !exists {
			continue
		}
		variants = append(variants, domain.VariantWithProduct{Variant: v, Product: product})
	}
	sortNewestFirst(variants, func(v domain.VariantWithProduct) (time.Time, string) { return v.CreatedAt, v.ID })
	return variants, nil
}

func (s *Store) GetVariant(_ context.Context, id string) (*domain.Variant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	variant, exists := s.variants[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := variant
	return &copied, nil
}

func (s *Store) CreateVariant(_ context.Context, variant domain.Variant) (*domain.Variant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[variant.ProductID]; !exists {
		return nil, store.ErrNotFound
	}
	if variant.ID == "" {
		variant.ID = xid.New("var")
	}
	if variant.CreatedAt.IsZero() {
		variant.CreatedAt = time.Now().UTC()
	}
	s.variants[variant.ID] = variant
	created := variant
	return &created, nil
}

func (s *Store) UpdateVariantRate(_ context.Context, id string, rate decimal.Decimal) (*domain.Variant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	variant, exists := s.variants[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	variant.Rate = rate
	s.variants[id] = variant
	updated := variant
	return &updated, nil
}

func (s *Store) DeleteVariant(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.variants[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.variants, id)
	for colorID, color := range s.colors {
		if color.VariantID == id {
			delete(s.colors, colorID)
		}
	}
	return nil
}

// Colors and the stock ledger

func (s *Store) ListColors(_ context.Context) ([]domain.ColorWithVariant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	colors := make([]domain.ColorWithVariant, 0, len(s.colors))
	for _, c := range s.colors {
		withVariant, ok := s.colorWithVariantLocked(c)
		if !ok {
			continue
		}
		colors = append(colors, withVariant)
	}
	sortNewestFirst(colors, func(c domain.ColorWithVariant) (time.Time, string) { return c.CreatedAt, c.ID })
	return colors, nil
}

func (s *Store) GetColor(_ context.Context, id string) (*domain.Color, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	color, exists := s.colors[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := color
	return &copied, nil
}

func (s *Store) CreateColor(_ context.Context, color domain.Color) (*domain.Color, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.variants[color.VariantID]; !exists {
		return nil, store.ErrNotFound
	}
	if color.ID == "" {
		color.ID = xid.New("col")
	}
	if color.CreatedAt.IsZero() {
		color.CreatedAt = time.Now().UTC()
	}
	s.colors[color.ID] = color
	created := color
	return &created, nil
}

func (s *Store) SetColorStock(_ context.Context, id string, quantity int) (*domain.Color, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	color, exists := s.colors[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	color.StockQuantity = quantity
	s.colors[id] = color
	updated := color
	return &updated, nil
}

func (s *Store) AdjustStock(_ context.Context, colorID string, delta int) (*domain.Color, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	color, err := s.adjustStockLocked(colorID, delta)
	if err != nil {
		return nil, err
	}
	updated := *color
	return &updated, nil
}

func (s *Store) adjustStockLocked(colorID string, delta int) (*domain.Color, error) {
	color, exists := s.colors[colorID]
	if !exists {
		return nil, store.ErrNotFound
	}
	color.StockQuantity += delta
	s.colors[colorID] = color
	return &color, nil
}

func (s *Store) DeleteColor(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.colors[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.colors, id)
	return nil
}

// Sales

func (s *Store) ListSales(_ context.Context) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listSalesLocked(func(domain.Sale) bool { return true }, true), nil
}

func (s *Store) ListUnpaidSales(_ context.Context) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listSalesLocked(func(sale domain.Sale) bool {
		return sale.PaymentStatus != domain.PaymentStatusPaid
	}, true), nil
}

func (s *Store) ListOutstandingSalesByPhone(_ context.Context, customerPhone string) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sales := s.listSalesLocked(func(sale domain.Sale) bool {
		return sale.CustomerPhone == customerPhone && sale.PaymentStatus != domain.PaymentStatusPaid
	}, true)
	// Oldest debt first for allocation.
	slices.Reverse(sales)
	return sales, nil
}

func (s *Store) FindOpenSaleByPhone(_ context.Context, customerPhone string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	open := s.listSalesLocked(func(sale domain.Sale) bool {
		return sale.CustomerPhone == customerPhone && sale.PaymentStatus != domain.PaymentStatusPaid
	}, true)
	if len(open) == 0 {
		return nil, store.ErrNotFound
	}
	latest := open[0]
	return &latest, nil
}

func (s *Store) listSalesLocked(keep func(domain.Sale) bool, newestFirst bool) []domain.Sale {
	sales := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		if keep(sale) {
			sales = append(sales, sale)
		}
	}
	sortNewestFirst(sales, func(sale domain.Sale) (time.Time, string) { return sale.CreatedAt, sale.ID })
	if !newestFirst {
		slices.Reverse(sales)
	}
	return sales
}

func (s *Store) GetSale(_ context.Context, id string) (*domain.SaleWithItems, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, exists := s.sales[id]
	if !exists {
		return nil, store.ErrNotFound
	}

	items := make([]domain.SaleItemWithColor, 0, 4)
	for _, item := range s.saleItems {
		if item.SaleID != id {
			continue
		}
		entry := domain.SaleItemWithColor{SaleItem: item}
		if color, exists := s.colors[item.ColorID]; exists {
			if withVariant, ok := s.colorWithVariantLocked(color); ok {
				entry.Color = withVariant
			}
		}
		items = append(items, entry)
	}
	slices.SortFunc(items, func(a, b domain.SaleItemWithColor) int {
		return strings.Compare(a.ID, b.ID)
	})

	return &domain.SaleWithItems{Sale: sale, SaleItems: items}, nil
}

func (s *Store) GetSaleItem(_ context.Context, id string) (*domain.SaleItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.saleItems[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := item
	return &copied, nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale, items []domain.SaleItem) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range items {
		if _, exists := s.colors[item.ColorID]; !exists {
			return nil, store.ErrNotFound
		}
	}

	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	s.sales[sale.ID] = sale

	for _, item := range items {
		if item.ID == "" {
			item.ID = xid.New("item")
		}
		item.SaleID = sale.ID
		s.saleItems[item.ID] = item
		if _, err := s.adjustStockLocked(item.ColorID, -item.Quantity); err != nil {
			return nil, err
		}
	}

	created := sale
	return &created, nil
}

func (s *Store) AddSaleItem(_ context.Context, saleID string, item domain.SaleItem) (*domain.SaleItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sales[saleID]; !exists {
		return nil, store.ErrNotFound
	}
	if _, exists := s.colors[item.ColorID]; !exists {
		return nil, store.ErrNotFound
	}

	if item.ID == "" {
		item.ID = xid.New("item")
	}
	item.SaleID = saleID
	s.saleItems[item.ID] = item

	if _, err := s.adjustStockLocked(item.ColorID, -item.Quantity); err != nil {
		return nil, err
	}
	s.recomputeSaleLocked(saleID)

	created := item
	return &created, nil
}

func (s *Store) UpdateSaleItem(_ context.Context, id string, quantity int, rate decimal.Decimal) (*domain.SaleItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.saleItems[id]
	if !exists {
		return nil, store.ErrNotFound
	}

	// Quantity going down returns units, going up consumes them.
	if delta := item.Quantity - quantity; delta != 0 {
		if _, err := s.adjustStockLocked(item.ColorID, delta); err != nil {
			return nil, err
		}
	}

	item.Quantity = quantity
	item.Rate = rate
	item.Subtotal = domain.LineSubtotal(rate, quantity)
	s.saleItems[id] = item

	s.recomputeSaleLocked(item.SaleID)

	updated := item
	return &updated, nil
}

func (s *Store) DeleteSaleItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.saleItems[id]
	if !exists {
		return store.ErrNotFound
	}

	// A deleted color cannot take its stock back; the item still goes away.
	if _, err := s.adjustStockLocked(item.ColorID, item.Quantity); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	delete(s.saleItems, id)
	s.recomputeSaleLocked(item.SaleID)
	return nil
}

func (s *Store) DeleteSale(_ context.Context, id string, returnStock bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sales[id]; !exists {
		return store.ErrNotFound
	}

	for itemID, item := range s.saleItems {
		if item.SaleID != id {
			continue
		}
		if returnStock {
			_, _ = s.adjustStockLocked(item.ColorID, item.Quantity)
		}
		delete(s.saleItems, itemID)
	}
	delete(s.sales, id)
	return nil
}

func (s *Store) ApplyPayment(_ context.Context, saleID string, amount decimal.Decimal) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, exists := s.sales[saleID]
	if !exists {
		return nil, store.ErrNotFound
	}

	sale.AmountPaid = sale.AmountPaid.Add(amount)
	sale.PaymentStatus = domain.PaymentStatusFor(sale.TotalAmount, sale.AmountPaid)
	s.sales[saleID] = sale

	updated := sale
	return &updated, nil
}

// recomputeSaleLocked rebuilds the derived total and payment status of a
// sale from its current item set.
func (s *Store) recomputeSaleLocked(saleID string) {
	sale, exists := s.sales[saleID]
	if !exists {
		return
	}

	items := make([]domain.SaleItem, 0, 4)
	for _, item := range s.saleItems {
		if item.SaleID == saleID {
			items = append(items, item)
		}
	}

	sale.TotalAmount = domain.SumSubtotals(items)
	sale.PaymentStatus = domain.PaymentStatusFor(sale.TotalAmount, sale.AmountPaid)
	s.sales[saleID] = sale
}

// Reporting

func (s *Store) DashboardStats(_ context.Context, now time.Time) (*domain.DashboardStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	thirtyDaysAgo := now.AddDate(0, 0, -30)

	stats := domain.DashboardStats{
		TodaySales:   domain.PeriodSales{Revenue: decimal.Zero},
		MonthlySales: domain.PeriodSales{Revenue: decimal.Zero},
		Inventory: domain.InventorySummary{
			TotalProducts:   len(s.products),
			TotalVariants:   len(s.variants),
			TotalColors:     len(s.colors),
			TotalStockValue: decimal.Zero,
		},
		UnpaidBills:  domain.UnpaidSummary{TotalAmount: decimal.Zero},
		MonthlyChart: []domain.DailyRevenue{},
	}

	for _, color := range s.colors {
		if color.StockQuantity > 0 && color.StockQuantity < 10 {
			stats.Inventory.LowStock++
		}
		if variant, exists := s.variants[color.VariantID]; exists {
			value := variant.Rate.Mul(decimal.NewFromInt(int64(color.StockQuantity)))
			stats.Inventory.TotalStockValue = stats.Inventory.TotalStockValue.Add(value)
		}
	}

	byDay := make(map[string]decimal.Decimal)
	for _, sale := range s.sales {
		if !sale.CreatedAt.Before(todayStart) {
			stats.TodaySales.Revenue = stats.TodaySales.Revenue.Add(sale.TotalAmount)
			stats.TodaySales.Transactions++
		}
		if !sale.CreatedAt.Before(monthStart) {
			stats.MonthlySales.Revenue = stats.MonthlySales.Revenue.Add(sale.TotalAmount)
			stats.MonthlySales.Transactions++
		}
		if sale.PaymentStatus != domain.PaymentStatusPaid {
			stats.UnpaidBills.Count++
			stats.UnpaidBills.TotalAmount = stats.UnpaidBills.TotalAmount.Add(sale.Outstanding())
		}
		if !sale.CreatedAt.Before(thirtyDaysAgo) {
			day := sale.CreatedAt.In(now.Location()).Format("2006-01-02")
			byDay[day] = byDay[day].Add(sale.TotalAmount)
		}
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	slices.Sort(days)
	for _, day := range days {
		stats.MonthlyChart = append(stats.MonthlyChart, domain.DailyRevenue{Date: day, Revenue: byDay[day]})
	}

	recent := s.listSalesLocked(func(domain.Sale) bool { return true }, true)
	if len(recent) > 10 {
		recent = recent[:10]
	}
	stats.RecentSales = recent

	return &stats, nil
}

func (s *Store) colorWithVariantLocked(color domain.Color) (domain.ColorWithVariant, bool) {
	variant, exists := s.variants[color.VariantID]
	if !exists {
		return domain.ColorWithVariant{}, false
	}
	product, exists := s.products[variant.ProductID]
	if !exists {
		return domain.ColorWithVariant{}, false
	}
	return domain.ColorWithVariant{
		Color:   color,
		Variant: domain.VariantWithProduct{Variant: variant, Product: product},
	}, true
}

func sortNewestFirst[T any](entries []T, key func(T) (time.Time, string)) {
	slices.SortFunc(entries, func(a, b T) int {
		ta, ia := key(a)
		tb, ib := key(b)
		if ta.Equal(tb) {
			return strings.Compare(ib, ia)
		}
		if ta.After(tb) {
			return -1
		}
		return 1
	})
}
