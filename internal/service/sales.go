package service

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"painthub/backend/internal/domain"
	"painthub/backend/internal/store"
)

func (s *Service) ListSales(ctx context.Context) ([]domain.Sale, error) {
	return s.repo.ListSales(ctx)
}

func (s *Service) ListUnpaidSales(ctx context.Context) ([]domain.Sale, error) {
	return s.repo.ListUnpaidSales(ctx)
}

func (s *Service) GetSale(ctx context.Context, id string) (*domain.SaleWithItems, error) {
	return s.repo.GetSale(ctx, id)
}

// CreateSale validates the bill, derives its total and payment status from
// the items, reserves stock and persists everything. When the merge policy
// is on and the customer already has an open bill, the new items are folded
// into that bill instead of opening a second one.
func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreateRequest) (*domain.SaleWithItems, error) {
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerPhone = strings.TrimSpace(req.CustomerPhone)

	var verr domain.ValidationError
	if req.CustomerName == "" {
		verr.Add("customerName", "is required")
	}
	if req.CustomerPhone == "" {
		verr.Add("customerPhone", "is required")
	}
	if len(req.Items) == 0 {
		verr.Add("items", "at least one item is required")
	}
	if req.AmountPaid.IsNegative() {
		verr.Add("amountPaid", "must not be negative")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	items, err := s.buildItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	total := domain.SumSubtotals(items)
	status := domain.PaymentStatusFor(total, req.AmountPaid)

	if s.policies.MergeUnpaidByPhone && status == domain.PaymentStatusUnpaid {
		if open, err := s.repo.FindOpenSaleByPhone(ctx, req.CustomerPhone); err == nil {
			for _, item := range items {
				if _, err := s.repo.AddSaleItem(ctx, open.ID, item); err != nil {
					return nil, err
				}
			}
			return s.repo.GetSale(ctx, open.ID)
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}

	sale, err := s.repo.CreateSale(ctx, domain.Sale{
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		TotalAmount:   total,
		AmountPaid:    req.AmountPaid,
		PaymentStatus: status,
	}, items)
	if err != nil {
		return nil, err
	}

	return s.repo.GetSale(ctx, sale.ID)
}

func (s *Service) AddSaleItem(ctx context.Context, saleID string, input domain.SaleItemInput) (*domain.SaleItem, error) {
	items, err := s.buildItems(ctx, []domain.SaleItemInput{input})
	if err != nil {
		return nil, err
	}
	return s.repo.AddSaleItem(ctx, saleID, items[0])
}

// UpdateSaleItem edits quantity and rate on an existing line. The stock
// ledger moves by oldQuantity − newQuantity; total and status of the parent
// bill are recomputed by the store inside the same mutation.
func (s *Service) UpdateSaleItem(ctx context.Context, id string, req domain.SaleItemUpdateRequest) (*domain.SaleItem, error) {
	var verr domain.ValidationError
	if req.Quantity < 1 {
		verr.Add("quantity", "must be at least 1")
	}
	if req.Rate.IsNegative() {
		verr.Add("rate", "must not be negative")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	if !s.policies.AllowOversell {
		current, err := s.repo.GetSaleItem(ctx, id)
		if err != nil {
			return nil, err
		}
		if extra := req.Quantity - current.Quantity; extra > 0 {
			color, err := s.repo.GetColor(ctx, current.ColorID)
			if err != nil {
				return nil, err
			}
			if color.StockQuantity < extra {
				return nil, store.ErrInsufficientStock
			}
		}
	}

	return s.repo.UpdateSaleItem(ctx, id, req.Quantity, req.Rate)
}

func (s *Service) DeleteSaleItem(ctx context.Context, id string) error {
	return s.repo.DeleteSaleItem(ctx, id)
}

// DeleteSale removes a bill and its items, returning the reserved stock for
// every remaining item, matching what deleting the items one by one does.
func (s *Service) DeleteSale(ctx context.Context, id string) error {
	return s.repo.DeleteSale(ctx, id, true)
}

// RecordPayment applies a single payment to a single bill. AmountPaid only
// ever grows; overpayment on one bill is allowed here, the UI warns.
func (s *Service) RecordPayment(ctx context.Context, saleID string, amount decimal.Decimal) (*domain.Sale, error) {
	if !amount.IsPositive() {
		verr := domain.ValidationError{}
		verr.Add("amount", "must be greater than zero")
		return nil, &verr
	}
	return s.repo.ApplyPayment(ctx, saleID, amount)
}

// AllocatePayment spreads one payment across a customer's open bills,
// oldest debt first. The amount must not exceed the combined outstanding
// balance; that is checked before any bill is touched.
func (s *Service) AllocatePayment(ctx context.Context, customerPhone string, amount decimal.Decimal) ([]domain.Sale, error) {
	if !amount.IsPositive() {
		verr := domain.ValidationError{}
		verr.Add("amount", "must be greater than zero")
		return nil, &verr
	}

	open, err := s.repo.ListOutstandingSalesByPhone(ctx, strings.TrimSpace(customerPhone))
	if err != nil {
		return nil, err
	}
	slices.SortFunc(open, func(a, b domain.Sale) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	outstanding := decimal.Zero
	for _, sale := range open {
		outstanding = outstanding.Add(sale.Outstanding())
	}
	if amount.GreaterThan(outstanding) {
		return nil, store.ErrExceedsOutstanding
	}

	updated := make([]domain.Sale, 0, len(open))
	remaining := amount
	for _, sale := range open {
		if !remaining.IsPositive() {
			break
		}
		portion := decimal.Min(remaining, sale.Outstanding())
		if !portion.IsPositive() {
			continue
		}
		paid, err := s.repo.ApplyPayment(ctx, sale.ID, portion)
		if err != nil {
			return nil, err
		}
		updated = append(updated, *paid)
		remaining = remaining.Sub(portion)
	}

	return updated, nil
}

// CustomerSuggestions derives a short autocomplete list from sales history:
// the ten most recently seen customers with their lifetime spend.
func (s *Service) CustomerSuggestions(ctx context.Context) ([]domain.CustomerSuggestion, error) {
	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		return nil, err
	}

	byPhone := make(map[string]*domain.CustomerSuggestion)
	for _, sale := range sales {
		if sale.CustomerPhone == "" {
			continue
		}
		entry, exists := byPhone[sale.CustomerPhone]
		if !exists {
			entry = &domain.CustomerSuggestion{
				CustomerPhone: sale.CustomerPhone,
				TotalSpent:    decimal.Zero,
			}
			byPhone[sale.CustomerPhone] = entry
		}
		if sale.CreatedAt.After(entry.LastSaleDate) {
			entry.LastSaleDate = sale.CreatedAt
			entry.CustomerName = sale.CustomerName
		}
		entry.TotalSpent = entry.TotalSpent.Add(sale.TotalAmount)
	}

	suggestions := make([]domain.CustomerSuggestion, 0, len(byPhone))
	for _, entry := range byPhone {
		suggestions = append(suggestions, *entry)
	}
	slices.SortFunc(suggestions, func(a, b domain.CustomerSuggestion) int {
		return b.LastSaleDate.Compare(a.LastSaleDate)
	})
	if len(suggestions) > 10 {
		suggestions = suggestions[:10]
	}
	return suggestions, nil
}

// buildItems validates raw item inputs, snapshots their subtotals and runs
// the stock precheck. Colors must exist; when overselling is disabled the
// requested quantity must be covered by the current balance.
func (s *Service) buildItems(ctx context.Context, inputs []domain.SaleItemInput) ([]domain.SaleItem, error) {
	var verr domain.ValidationError
	requested := make(map[string]int, len(inputs))

	items := make([]domain.SaleItem, 0, len(inputs))
	for _, input := range inputs {
		input.ColorID = strings.TrimSpace(input.ColorID)
		if input.ColorID == "" {
			verr.Add("colorId", "is required")
		}
		if input.Quantity < 1 {
			verr.Add("quantity", "must be at least 1")
		}
		if input.Rate.IsNegative() {
			verr.Add("rate", "must not be negative")
		}
		requested[input.ColorID] += input.Quantity
		items = append(items, domain.SaleItem{
			ColorID:  input.ColorID,
			Quantity: input.Quantity,
			Rate:     input.Rate,
			Subtotal: domain.LineSubtotal(input.Rate, input.Quantity),
		})
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	for colorID, quantity := range requested {
		color, err := s.repo.GetColor(ctx, colorID)
		if err != nil {
			return nil, err
		}
		if !s.policies.AllowOversell && color.StockQuantity < quantity {
			return nil, store.ErrInsufficientStock
		}
	}

	return items, nil
}
