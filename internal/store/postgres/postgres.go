package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"painthub/backend/internal/domain"
	"painthub/backend/internal/store"
	"painthub/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ensureSchema bootstraps the five tables on first start. The deployment is a
// single local store, so idempotent DDL at startup stands in for a migration
// tool.
func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS products (
			id           TEXT PRIMARY KEY,
			company      TEXT NOT NULL,
			product_name TEXT NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS variants (
			id           TEXT PRIMARY KEY,
			product_id   TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
			packing_size TEXT NOT NULL,
			rate         NUMERIC NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS colors (
			id             TEXT PRIMARY KEY,
			variant_id     TEXT NOT NULL REFERENCES variants(id) ON DELETE CASCADE,
			color_name     TEXT NOT NULL,
			color_code     TEXT NOT NULL,
			stock_quantity INTEGER NOT NULL DEFAULT 0,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS sales (
			id             TEXT PRIMARY KEY,
			customer_name  TEXT NOT NULL,
			customer_phone TEXT NOT NULL,
			total_amount   NUMERIC NOT NULL DEFAULT 0,
			amount_paid    NUMERIC NOT NULL DEFAULT 0,
			payment_status TEXT NOT NULL DEFAULT 'unpaid',
			created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS sale_items (
			id       TEXT PRIMARY KEY,
			sale_id  TEXT NOT NULL REFERENCES sales(id) ON DELETE CASCADE,
			color_id TEXT NOT NULL REFERENCES colors(id),
			quantity INTEGER NOT NULL,
			rate     NUMERIC NOT NULL,
			subtotal NUMERIC NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_sales_phone_status ON sales (customer_phone, payment_status);
		CREATE INDEX IF NOT EXISTS idx_sale_items_sale ON sale_items (sale_id);
	`)
	return err
}

// Products

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, company, product_name, created_at
		FROM products
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Company, &p.ProductName, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt = p.CreatedAt.UTC()
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, company, product_name, created_at
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Company, &p.ProductName, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, company, product_name, created_at)
		VALUES ($1,$2,$3,$4)
	`, product.ID, product.Company, product.ProductName, product.CreatedAt)
	if err != nil {
		return nil, err
	}
	created := product
	return &created, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	return s.deleteByID(ctx, `DELETE FROM products WHERE id = $1`, id)
}

// Variants

func (s *Store) ListVariants(ctx context.Context) ([]domain.VariantWithProduct, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.id, v.product_id, v.packing_size, v.rate, v.created_at,
		       p.id, p.company, p.product_name, p.created_at
		FROM variants v
		JOIN products p ON p.id = v.product_id
		ORDER BY v.created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	variants := make([]domain.VariantWithProduct, 0, 64)
	for rows.Next() {
		var v domain.VariantWithProduct
		if err := rows.Scan(
			&v.ID, &v.ProductID, &v.PackingSize, &v.Rate, &v.CreatedAt,
			&v.Product.ID, &v.Product.Company, &v.Product.ProductName, &v.Product.CreatedAt,
		); err != nil {
			return nil, err
		}
		v.CreatedAt = v.CreatedAt.UTC()
		v.Product.CreatedAt = v.Product.CreatedAt.UTC()
		variants = append(variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return variants, nil
}

func (s *Store) GetVariant(ctx context.Context, id string) (*domain.Variant, error) {
	var v domain.Variant
	err := s.db.QueryRowContext(ctx, `
		SELECT id, product_id, packing_size, rate, created_at
		FROM variants
		WHERE id = $1
	`, id).Scan(&v.ID, &v.ProductID, &v.PackingSize, &v.Rate, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	v.CreatedAt = v.CreatedAt.UTC()
	return &v, nil
}

func (s *Store) CreateVariant(ctx context.Context, variant domain.Variant) (*domain.Variant, error) {
	if variant.ID == "" {
		variant.ID = xid.New("var")
	}
	if variant.CreatedAt.IsZero() {
		variant.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO variants (id, product_id, packing_size, rate, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, variant.ID, variant.ProductID, variant.PackingSize, variant.Rate, variant.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	created := variant
	return &created, nil
}

func (s *Store) UpdateVariantRate(ctx context.Context, id string, rate decimal.Decimal) (*domain.Variant, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE variants SET rate = $2 WHERE id = $1
	`, id, rate)
	if err != nil {
		return nil, err
	}
	if affected, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if affected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetVariant(ctx, id)
}

func (s *Store) DeleteVariant(ctx context.Context, id string) error {
	return s.deleteByID(ctx, `DELETE FROM variants WHERE id = $1`, id)
}

// Colors

func (s *Store) ListColors(ctx context.Context) ([]domain.ColorWithVariant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.variant_id, c.color_name, c.color_code, c.stock_quantity, c.created_at,
		       v.id, v.product_id, v.packing_size, v.rate, v.created_at,
		       p.id, p.company, p.product_name, p.created_at
		FROM colors c
		JOIN variants v ON v.id = c.variant_id
		JOIN products p ON p.id = v.product_id
		ORDER BY c.created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	colors := make([]domain.ColorWithVariant, 0, 128)
	for rows.Next() {
		var c domain.ColorWithVariant
		if err := rows.Scan(
			&c.ID, &c.VariantID, &c.ColorName, &c.ColorCode, &c.StockQuantity, &c.CreatedAt,
			&c.Variant.ID, &c.Variant.ProductID, &c.Variant.PackingSize, &c.Variant.Rate, &c.Variant.CreatedAt,
			&c.Variant.Product.ID, &c.Variant.Product.Company, &c.Variant.Product.ProductName, &c.Variant.Product.CreatedAt,
		); err != nil {
			return nil, err
		}
		c.CreatedAt = c.CreatedAt.UTC()
		colors = append(colors, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return colors, nil
}

func (s *Store) GetColor(ctx context.Context, id string) (*domain.Color, error) {
	var c domain.Color
	err := s.db.QueryRowContext(ctx, `
		SELECT id, variant_id, color_name, color_code, stock_quantity, created_at
		FROM colors
		WHERE id = $1
	`, id).Scan(&c.ID, &c.VariantID, &c.ColorName, &c.ColorCode, &c.StockQuantity, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

func (s *Store) CreateColor(ctx context.Context, color domain.Color) (*domain.Color, error) {
	if color.ID == "" {
		color.ID = xid.New("col")
	}
	if color.CreatedAt.IsZero() {
		color.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO colors (id, variant_id, color_name, color_code, stock_quantity, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, color.ID, color.VariantID, color.ColorName, color.ColorCode, color.StockQuantity, color.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	created := color
	return &created, nil
}

func (s *Store) SetColorStock(ctx context.Context, id string, quantity int) (*domain.Color, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE colors SET stock_quantity = $2 WHERE id = $1
	`, id, quantity)
	if err != nil {
		return nil, err
	}
	if affected, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if affected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetColor(ctx, id)
}

func (s *Store) AdjustStock(ctx context.Context, colorID string, delta int) (*domain.Color, error) {
	var c domain.Color
	err := s.db.QueryRowContext(ctx, `
		UPDATE colors SET stock_quantity = stock_quantity + $2
		WHERE id = $1
		RETURNING id, variant_id, color_name, color_code, stock_quantity, created_at
	`, colorID, delta).Scan(&c.ID, &c.VariantID, &c.ColorName, &c.ColorCode, &c.StockQuantity, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

func (s *Store) DeleteColor(ctx context.Context, id string) error {
	return s.deleteByID(ctx, `DELETE FROM colors WHERE id = $1`, id)
}

// Sales

const saleColumns = `id, customer_name, customer_phone, total_amount, amount_paid, payment_status, created_at`

func (s *Store) ListSales(ctx context.Context) ([]domain.Sale, error) {
	return s.querySales(ctx, `SELECT `+saleColumns+` FROM sales ORDER BY created_at DESC`)
}

func (s *Store) ListUnpaidSales(ctx context.Context) ([]domain.Sale, error) {
	return s.querySales(ctx, `
		SELECT `+saleColumns+` FROM sales
		WHERE payment_status != 'paid'
		ORDER BY created_at DESC
	`)
}

func (s *Store) ListOutstandingSalesByPhone(ctx context.Context, customerPhone string) ([]domain.Sale, error) {
	return s.querySales(ctx, `
		SELECT `+saleColumns+` FROM sales
		WHERE customer_phone = $1 AND payment_status != 'paid'
		ORDER BY created_at ASC
	`, customerPhone)
}

func (s *Store) FindOpenSaleByPhone(ctx context.Context, customerPhone string) (*domain.Sale, error) {
	sales, err := s.querySales(ctx, `
		SELECT `+saleColumns+` FROM sales
		WHERE customer_phone = $1 AND payment_status != 'paid'
		ORDER BY created_at DESC
		LIMIT 1
	`, customerPhone)
	if err != nil {
		return nil, err
	}
	if len(sales) == 0 {
		return nil, store.ErrNotFound
	}
	return &sales[0], nil
}

func (s *Store) querySales(ctx context.Context, query string, args ...any) ([]domain.Sale, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 32)
	for rows.Next() {
		var sale domain.Sale
		if err := rows.Scan(&sale.ID, &sale.CustomerName, &sale.CustomerPhone, &sale.TotalAmount, &sale.AmountPaid, &sale.PaymentStatus, &sale.CreatedAt); err != nil {
			return nil, err
		}
		sale.CreatedAt = sale.CreatedAt.UTC()
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) GetSale(ctx context.Context, id string) (*domain.SaleWithItems, error) {
	var sale domain.Sale
	err := s.db.QueryRowContext(ctx, `
		SELECT `+saleColumns+` FROM sales WHERE id = $1
	`, id).Scan(&sale.ID, &sale.CustomerName, &sale.CustomerPhone, &sale.TotalAmount, &sale.AmountPaid, &sale.PaymentStatus, &sale.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	sale.CreatedAt = sale.CreatedAt.UTC()

	rows, err := s.db.QueryContext(ctx, `
		SELECT si.id, si.sale_id, si.color_id, si.quantity, si.rate, si.subtotal,
		       c.id, c.variant_id, c.color_name, c.color_code, c.stock_quantity, c.created_at,
		       v.id, v.product_id, v.packing_size, v.rate, v.created_at,
		       p.id, p.company, p.product_name, p.created_at
		FROM sale_items si
		JOIN colors c ON c.id = si.color_id
		JOIN variants v ON v.id = c.variant_id
		JOIN products p ON p.id = v.product_id
		WHERE si.sale_id = $1
		ORDER BY si.id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.SaleItemWithColor, 0, 8)
	for rows.Next() {
		var item domain.SaleItemWithColor
		if err := rows.Scan(
			&item.ID, &item.SaleID, &item.ColorID, &item.Quantity, &item.Rate, &item.Subtotal,
			&item.Color.ID, &item.Color.VariantID, &item.Color.ColorName, &item.Color.ColorCode, &item.Color.StockQuantity, &item.Color.CreatedAt,
			&item.Color.Variant.ID, &item.Color.Variant.ProductID, &item.Color.Variant.PackingSize, &item.Color.Variant.Rate, &item.Color.Variant.CreatedAt,
			&item.Color.Variant.Product.ID, &item.Color.Variant.Product.Company, &item.Color.Variant.Product.ProductName, &item.Color.Variant.Product.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &domain.SaleWithItems{Sale: sale, SaleItems: items}, nil
}

func (s *Store) GetSaleItem(ctx context.Context, id string) (*domain.SaleItem, error) {
	var item domain.SaleItem
	err := s.db.QueryRowContext(ctx, `
		SELECT id, sale_id, color_id, quantity, rate, subtotal
		FROM sale_items
		WHERE id = $1
	`, id).Scan(&item.ID, &item.SaleID, &item.ColorID, &item.Quantity, &item.Rate, &item.Subtotal)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// CreateSale inserts the bill, its items and the matching stock reservations
// in one transaction, so a failure partway leaves no half-written sale.
func (s *Store) CreateSale(ctx context.Context, sale domain.Sale, items []domain.SaleItem) (*domain.Sale, error) {
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (id, customer_name, customer_phone, total_amount, amount_paid, payment_status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, sale.ID, sale.CustomerName, sale.CustomerPhone, sale.TotalAmount, sale.AmountPaid, sale.PaymentStatus, sale.CreatedAt)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		if item.ID == "" {
			item.ID = xid.New("item")
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sale_items (id, sale_id, color_id, quantity, rate, subtotal)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, item.ID, sale.ID, item.ColorID, item.Quantity, item.Rate, item.Subtotal)
		if err != nil {
			if isForeignKeyViolation(err) {
				return nil, store.ErrNotFound
			}
			return nil, err
		}
		if err := adjustStockTx(ctx, tx, item.ColorID, -item.Quantity); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := sale
	return &created, nil
}

func (s *Store) AddSaleItem(ctx context.Context, saleID string, item domain.SaleItem) (*domain.SaleItem, error) {
	if item.ID == "" {
		item.ID = xid.New("item")
	}
	item.SaleID = saleID

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sale_items (id, sale_id, color_id, quantity, rate, subtotal)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, item.ID, saleID, item.ColorID, item.Quantity, item.Rate, item.Subtotal)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	if err := adjustStockTx(ctx, tx, item.ColorID, -item.Quantity); err != nil {
		return nil, err
	}
	if err := recomputeSaleTx(ctx, tx, saleID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := item
	return &created, nil
}

func (s *Store) UpdateSaleItem(ctx context.Context, id string, quantity int, rate decimal.Decimal) (*domain.SaleItem, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var current domain.SaleItem
	err = tx.QueryRowContext(ctx, `
		SELECT id, sale_id, color_id, quantity, rate, subtotal
		FROM sale_items
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&current.ID, &current.SaleID, &current.ColorID, &current.Quantity, &current.Rate, &current.Subtotal)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	subtotal := domain.LineSubtotal(rate, quantity)
	_, err = tx.ExecContext(ctx, `
		UPDATE sale_items SET quantity = $2, rate = $3, subtotal = $4 WHERE id = $1
	`, id, quantity, rate, subtotal)
	if err != nil {
		return nil, err
	}

	if delta := current.Quantity - quantity; delta != 0 {
		if err := adjustStockTx(ctx, tx, current.ColorID, delta); err != nil {
			return nil, err
		}
	}
	if err := recomputeSaleTx(ctx, tx, current.SaleID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	current.Quantity = quantity
	current.Rate = rate
	current.Subtotal = subtotal
	return &current, nil
}

func (s *Store) DeleteSaleItem(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var item domain.SaleItem
	err = tx.QueryRowContext(ctx, `
		SELECT id, sale_id, color_id, quantity FROM sale_items WHERE id = $1 FOR UPDATE
	`, id).Scan(&item.ID, &item.SaleID, &item.ColorID, &item.Quantity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return err
	}

	if err := adjustStockTx(ctx, tx, item.ColorID, item.Quantity); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sale_items WHERE id = $1`, id); err != nil {
		return err
	}
	if err := recomputeSaleTx(ctx, tx, item.SaleID); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) DeleteSale(ctx context.Context, id string, returnStock bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if returnStock {
		_, err = tx.ExecContext(ctx, `
			UPDATE colors c
			SET stock_quantity = c.stock_quantity + si.quantity
			FROM sale_items si
			WHERE si.sale_id = $1 AND si.color_id = c.id
		`, id)
		if err != nil {
			return err
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if affected, err := res.RowsAffected(); err != nil {
		return err
	} else if affected == 0 {
		return store.ErrNotFound
	}

	return tx.Commit()
}

func (s *Store) ApplyPayment(ctx context.Context, saleID string, amount decimal.Decimal) (*domain.Sale, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var sale domain.Sale
	err = tx.QueryRowContext(ctx, `
		SELECT `+saleColumns+` FROM sales WHERE id = $1 FOR UPDATE
	`, saleID).Scan(&sale.ID, &sale.CustomerName, &sale.CustomerPhone, &sale.TotalAmount, &sale.AmountPaid, &sale.PaymentStatus, &sale.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	sale.AmountPaid = sale.AmountPaid.Add(amount)
	sale.PaymentStatus = domain.PaymentStatusFor(sale.TotalAmount, sale.AmountPaid)
	sale.CreatedAt = sale.CreatedAt.UTC()

	_, err = tx.ExecContext(ctx, `
		UPDATE sales SET amount_paid = $2, payment_status = $3 WHERE id = $1
	`, saleID, sale.AmountPaid, sale.PaymentStatus)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &sale, nil
}

// Reporting

func (s *Store) DashboardStats(ctx context.Context, now time.Time) (*domain.DashboardStats, error) {
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	thirtyDaysAgo := now.AddDate(0, 0, -30)

	stats := domain.DashboardStats{MonthlyChart: []domain.DailyRevenue{}}

	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_amount), 0), COUNT(*) FROM sales WHERE created_at >= $1
	`, todayStart).Scan(&stats.TodaySales.Revenue, &stats.TodaySales.Transactions)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_amount), 0), COUNT(*) FROM sales WHERE created_at >= $1
	`, monthStart).Scan(&stats.MonthlySales.Revenue, &stats.MonthlySales.Transactions)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM products),
			(SELECT COUNT(*) FROM variants),
			(SELECT COUNT(*) FROM colors),
			(SELECT COUNT(*) FROM colors WHERE stock_quantity > 0 AND stock_quantity < 10),
			COALESCE((SELECT SUM(c.stock_quantity * v.rate) FROM colors c JOIN variants v ON v.id = c.variant_id), 0)
	`).Scan(
		&stats.Inventory.TotalProducts,
		&stats.Inventory.TotalVariants,
		&stats.Inventory.TotalColors,
		&stats.Inventory.LowStock,
		&stats.Inventory.TotalStockValue,
	)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_amount - amount_paid), 0)
		FROM sales
		WHERE payment_status != 'paid'
	`).Scan(&stats.UnpaidBills.Count, &stats.UnpaidBills.TotalAmount)
	if err != nil {
		return nil, err
	}

	recent, err := s.querySales(ctx, `SELECT `+saleColumns+` FROM sales ORDER BY created_at DESC LIMIT 10`)
	if err != nil {
		return nil, err
	}
	stats.RecentSales = recent

	rows, err := s.db.QueryContext(ctx, `
		SELECT to_char(created_at, 'YYYY-MM-DD') AS day, COALESCE(SUM(total_amount), 0)
		FROM sales
		WHERE created_at >= $1
		GROUP BY day
		ORDER BY day
	`, thirtyDaysAgo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var entry domain.DailyRevenue
		if err := rows.Scan(&entry.Date, &entry.Revenue); err != nil {
			return nil, err
		}
		stats.MonthlyChart = append(stats.MonthlyChart, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &stats, nil
}

// helpers

func (s *Store) deleteByID(ctx context.Context, query string, id string) error {
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func adjustStockTx(ctx context.Context, tx *sql.Tx, colorID string, delta int) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE colors SET stock_quantity = stock_quantity + $2 WHERE id = $1
	`, colorID, delta)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// recomputeSaleTx rebuilds total_amount and payment_status from the sale's
// current item set inside the surrounding transaction.
func recomputeSaleTx(ctx context.Context, tx *sql.Tx, saleID string) error {
	var total, paid decimal.Decimal
	err := tx.QueryRowContext(ctx, `
		SELECT COALESCE((SELECT SUM(subtotal) FROM sale_items WHERE sale_id = $1), 0), amount_paid
		FROM sales
		WHERE id = $1
		FOR UPDATE
	`, saleID).Scan(&total, &paid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE sales SET total_amount = $2, payment_status = $3 WHERE id = $1
	`, saleID, total, domain.PaymentStatusFor(total, paid))
	return err
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}
