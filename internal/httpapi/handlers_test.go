package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"painthub/backend/internal/cache"
	"painthub/backend/internal/service"
	"painthub/backend/internal/store/memory"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	svc := service.New(memory.New(), cache.NoopDashboardCache{}, service.Policies{
		AllowOversell:      true,
		MergeUnpaidByPhone: true,
	}, 5*time.Second)
	return New(svc, "http://127.0.0.1:3000").Handler()
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body failed: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("decode response failed: %v (body: %s)", err, rec.Body.String())
	}
}

// seedCatalog walks product -> variant -> color over the API and returns
// the color ID.
func seedCatalog(t *testing.T, handler http.Handler, stock int) string {
	t.Helper()

	rec := doJSON(t, handler, http.MethodPost, "/api/products", map[string]any{
		"company":     "Asian Paints",
		"productName": "Apex Ultima",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create product: status %d (%s)", rec.Code, rec.Body.String())
	}
	var product struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &product)

	rec = doJSON(t, handler, http.MethodPost, "/api/variants", map[string]any{
		"productId":   product.ID,
		"packingSize": "4L",
		"rate":        "480.00",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create variant: status %d (%s)", rec.Code, rec.Body.String())
	}
	var variant struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &variant)

	rec = doJSON(t, handler, http.MethodPost, "/api/colors", map[string]any{
		"variantId":     variant.ID,
		"colorName":     "Sky Blue",
		"colorCode":     "RAL5015",
		"stockQuantity": stock,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create color: status %d (%s)", rec.Code, rec.Body.String())
	}
	var color struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &color)
	return color.ID
}

func TestHealthz(t *testing.T) {
	handler := newTestHandler(t)

	rec := doJSON(t, handler, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var body struct {
		OK bool `json:"ok"`
	}
	decodeBody(t, rec, &body)
	if !body.OK {
		t.Fatalf("expected ok=true")
	}
}

func TestProductValidationReturnsFieldDetails(t *testing.T) {
	handler := newTestHandler(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/products", map[string]any{
		"company":     "",
		"productName": "",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d (%s)", rec.Code, rec.Body.String())
	}
	var body struct {
		Error   string `json:"error"`
		Details []struct {
			Field string `json:"field"`
		} `json:"details"`
	}
	decodeBody(t, rec, &body)
	if len(body.Details) != 2 {
		t.Fatalf("expected 2 field details, got %d", len(body.Details))
	}
}

func TestUnknownBodyFieldRejected(t *testing.T) {
	handler := newTestHandler(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/products", map[string]any{
		"company":     "Berger",
		"productName": "WeatherCoat",
		"surprise":    true,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestSaleLifecycleOverAPI(t *testing.T) {
	handler := newTestHandler(t)
	colorID := seedCatalog(t, handler, 40)

	rec := doJSON(t, handler, http.MethodPost, "/api/sales", map[string]any{
		"customerName":  "Ravi",
		"customerPhone": "9800000001",
		"amountPaid":    "400.00",
		"items": []map[string]any{
			{"colorId": colorID, "quantity": 2, "rate": "480.00"},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create sale: status %d (%s)", rec.Code, rec.Body.String())
	}
	var sale struct {
		ID            string `json:"id"`
		TotalAmount   string `json:"totalAmount"`
		PaymentStatus string `json:"paymentStatus"`
		SaleItems     []struct {
			ID string `json:"id"`
		} `json:"saleItems"`
	}
	decodeBody(t, rec, &sale)
	if sale.TotalAmount != "960" {
		t.Fatalf("expected total 960, got %s", sale.TotalAmount)
	}
	if sale.PaymentStatus != "partial" {
		t.Fatalf("expected partial, got %s", sale.PaymentStatus)
	}
	if len(sale.SaleItems) != 1 {
		t.Fatalf("expected 1 item, got %d", len(sale.SaleItems))
	}

	// Settle the bill.
	rec = doJSON(t, handler, http.MethodPost, "/api/sales/"+sale.ID+"/payment", map[string]any{
		"amount": "560.00",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("payment: status %d (%s)", rec.Code, rec.Body.String())
	}
	var paid struct {
		PaymentStatus string `json:"paymentStatus"`
	}
	decodeBody(t, rec, &paid)
	if paid.PaymentStatus != "paid" {
		t.Fatalf("expected paid, got %s", paid.PaymentStatus)
	}

	// A settled bill no longer shows in the unpaid list.
	rec = doJSON(t, handler, http.MethodGet, "/api/sales/unpaid", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unpaid list: status %d", rec.Code)
	}
	var unpaid []json.RawMessage
	decodeBody(t, rec, &unpaid)
	if len(unpaid) != 0 {
		t.Fatalf("expected no unpaid bills, got %d", len(unpaid))
	}

	rec = doJSON(t, handler, http.MethodDelete, "/api/sales/"+sale.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete sale: status %d (%s)", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, handler, http.MethodGet, "/api/sales/"+sale.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestSaleItemEditAndDeleteOverAPI(t *testing.T) {
	handler := newTestHandler(t)
	colorID := seedCatalog(t, handler, 40)

	rec := doJSON(t, handler, http.MethodPost, "/api/sales", map[string]any{
		"customerName":  "Ravi",
		"customerPhone": "9800000001",
		"items": []map[string]any{
			{"colorId": colorID, "quantity": 5, "rate": "480.00"},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create sale: status %d (%s)", rec.Code, rec.Body.String())
	}
	var sale struct {
		ID        string `json:"id"`
		SaleItems []struct {
			ID string `json:"id"`
		} `json:"saleItems"`
	}
	decodeBody(t, rec, &sale)
	itemID := sale.SaleItems[0].ID

	rec = doJSON(t, handler, http.MethodPatch, "/api/sale-items/"+itemID, map[string]any{
		"quantity": 2,
		"rate":     "500.00",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch item: status %d (%s)", rec.Code, rec.Body.String())
	}
	var item struct {
		Subtotal string `json:"subtotal"`
	}
	decodeBody(t, rec, &item)
	if item.Subtotal != "1000" {
		t.Fatalf("expected subtotal 1000, got %s", item.Subtotal)
	}

	rec = doJSON(t, handler, http.MethodDelete, "/api/sale-items/"+itemID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete item: status %d (%s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/sales/"+sale.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get sale: status %d", rec.Code)
	}
	var after struct {
		TotalAmount   string `json:"totalAmount"`
		PaymentStatus string `json:"paymentStatus"`
	}
	decodeBody(t, rec, &after)
	if after.TotalAmount != "0" {
		t.Fatalf("expected total 0, got %s", after.TotalAmount)
	}
	if after.PaymentStatus != "paid" {
		t.Fatalf("expected paid, got %s", after.PaymentStatus)
	}
}

func TestStockEndpoints(t *testing.T) {
	handler := newTestHandler(t)
	colorID := seedCatalog(t, handler, 10)

	rec := doJSON(t, handler, http.MethodPost, "/api/colors/"+colorID+"/stock-in", map[string]any{
		"quantity": 5,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("stock-in: status %d (%s)", rec.Code, rec.Body.String())
	}
	var color struct {
		StockQuantity int `json:"stockQuantity"`
	}
	decodeBody(t, rec, &color)
	if color.StockQuantity != 15 {
		t.Fatalf("expected 15 after stock-in, got %d", color.StockQuantity)
	}

	rec = doJSON(t, handler, http.MethodPatch, "/api/colors/"+colorID+"/stock", map[string]any{
		"stockQuantity": 3,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("stock correction: status %d (%s)", rec.Code, rec.Body.String())
	}
	decodeBody(t, rec, &color)
	if color.StockQuantity != 3 {
		t.Fatalf("expected corrected balance 3, got %d", color.StockQuantity)
	}
}

func TestCustomerAllocationOverAPI(t *testing.T) {
	handler := newTestHandler(t)
	colorID := seedCatalog(t, handler, 100)

	rec := doJSON(t, handler, http.MethodPost, "/api/sales", map[string]any{
		"customerName":  "Sita",
		"customerPhone": "9800000002",
		"items": []map[string]any{
			{"colorId": colorID, "quantity": 3, "rate": "100.00"},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create sale: status %d (%s)", rec.Code, rec.Body.String())
	}

	// More than the customer owes is a conflict.
	rec = doJSON(t, handler, http.MethodPost, "/api/customers/9800000002/payments", map[string]any{
		"amount": "1000.00",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/customers/9800000002/payments", map[string]any{
		"amount": "300.00",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("allocation: status %d (%s)", rec.Code, rec.Body.String())
	}
	var body struct {
		Sales []struct {
			PaymentStatus string `json:"paymentStatus"`
		} `json:"sales"`
	}
	decodeBody(t, rec, &body)
	if len(body.Sales) != 1 || body.Sales[0].PaymentStatus != "paid" {
		t.Fatalf("expected one settled bill, got %+v", body.Sales)
	}
}

func TestDashboardStatsShape(t *testing.T) {
	handler := newTestHandler(t)
	colorID := seedCatalog(t, handler, 8)

	rec := doJSON(t, handler, http.MethodPost, "/api/sales", map[string]any{
		"customerName":  "Ravi",
		"customerPhone": "9800000001",
		"items": []map[string]any{
			{"colorId": colorID, "quantity": 2, "rate": "480.00"},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create sale: status %d (%s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/dashboard-stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard: status %d (%s)", rec.Code, rec.Body.String())
	}
	var stats struct {
		TodaySales struct {
			Revenue      string `json:"revenue"`
			Transactions int    `json:"transactions"`
		} `json:"todaySales"`
		Inventory struct {
			TotalColors int `json:"totalColors"`
			LowStock    int `json:"lowStock"`
		} `json:"inventory"`
		UnpaidBills struct {
			Count int `json:"count"`
		} `json:"unpaidBills"`
		RecentSales  []json.RawMessage `json:"recentSales"`
		MonthlyChart []struct {
			Date string `json:"date"`
		} `json:"monthlyChart"`
	}
	decodeBody(t, rec, &stats)

	if stats.TodaySales.Transactions != 1 {
		t.Fatalf("expected 1 transaction today, got %d", stats.TodaySales.Transactions)
	}
	if stats.TodaySales.Revenue != "960" {
		t.Fatalf("expected revenue 960, got %s", stats.TodaySales.Revenue)
	}
	if stats.Inventory.TotalColors != 1 {
		t.Fatalf("expected 1 color, got %d", stats.Inventory.TotalColors)
	}
	// 8 - 2 = 6 left, inside the 0 < qty < 10 band.
	if stats.Inventory.LowStock != 1 {
		t.Fatalf("expected 1 low-stock color, got %d", stats.Inventory.LowStock)
	}
	if stats.UnpaidBills.Count != 1 {
		t.Fatalf("expected 1 unpaid bill, got %d", stats.UnpaidBills.Count)
	}
	if len(stats.RecentSales) != 1 {
		t.Fatalf("expected 1 recent sale, got %d", len(stats.RecentSales))
	}
	if len(stats.MonthlyChart) != 1 {
		t.Fatalf("expected 1 chart point, got %d", len(stats.MonthlyChart))
	}
	if want := time.Now().Format("2006-01-02"); stats.MonthlyChart[0].Date != want {
		t.Fatalf("expected chart keyed %s, got %s", want, stats.MonthlyChart[0].Date)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	handler := newTestHandler(t)

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodPut, "/api/products"},
		{http.MethodPost, "/api/dashboard-stats"},
		{http.MethodGet, "/api/customers/9800000001/payments"},
	} {
		rec := doJSON(t, handler, tc.method, tc.path, nil)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s %s: expected 405, got %d", tc.method, tc.path, rec.Code)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/products", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://127.0.0.1:3000" {
		t.Fatalf("unexpected allow-origin %q", got)
	}
}

func TestNotFoundRoutes(t *testing.T) {
	handler := newTestHandler(t)

	for i, path := range []string{
		"/api/products/missing-id/extra",
		"/api/customers/9800000001/unknown",
	} {
		rec := doJSON(t, handler, http.MethodDelete, path, nil)
		if rec.Code != http.StatusNotFound && rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("case %d: expected 404/405, got %d", i, rec.Code)
		}
	}

	rec := doJSON(t, handler, http.MethodGet, fmt.Sprintf("/api/sales/%s", "sale-missing"), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown sale, got %d", rec.Code)
	}
}
