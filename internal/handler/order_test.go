package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/royalartisanat/shop-api/internal/catalog"
	"github.com/royalartisanat/shop-api/internal/order"
)

type mockOrderService struct {
	placeOrderFunc        func(ctx context.Context, input order.PlaceOrderInput) (string, error)
	getOrderByIDFunc      func(ctx context.Context, id string) (*order.Order, error)
	listOrdersFunc        func(ctx context.Context, status order.Status, limit int) ([]order.Order, error)
	updateOrderStatusFunc func(ctx context.Context, id string, newStatus order.Status) error
	deleteOrderFunc       func(ctx context.Context, id string) error
}

func (m *mockOrderService) PlaceOrder(ctx context.Context, input order.PlaceOrderInput) (string, error) {
	return m.placeOrderFunc(ctx, input)
}

func (m *mockOrderService) GetOrderByID(ctx context.Context, id string) (*order.Order, error) {
	return m.getOrderByIDFunc(ctx, id)
}

func (m *mockOrderService) ListOrders(ctx context.Context, status order.Status, limit int) ([]order.Order, error) {
	return m.listOrdersFunc(ctx, status, limit)
}

func (m *mockOrderService) UpdateOrderStatus(ctx context.Context, id string, newStatus order.Status) error {
	return m.updateOrderStatusFunc(ctx, id, newStatus)
}

func (m *mockOrderService) DeleteOrder(ctx context.Context, id string) error {
	return m.deleteOrderFunc(ctx, id)
}

func newTestRouter(svc order.Service) *chi.Mux {
	h := NewOrderHandler(svc)
	r := chi.NewRouter()
	r.Route("/api/orders", func(r chi.Router) {
		r.Post("/guest", h.PlaceGuestOrder)
		r.Get("/", h.ListOrders)
		r.Get("/{id}", h.GetOrderByID)
		r.Put("/{id}", h.UpdateOrderStatus)
		r.Delete("/{id}", h.DeleteOrder)
	})
	return r
}

func TestOrderHandler_PlaceGuestOrder(t *testing.T) {
	validBody := `{
		"productId": "550e8400-e29b-41d4-a716-446655440000",
		"productName": "Panier artisanal",
		"quantity": 2,
		"customerName": "Amira Ben Salah",
		"customerPhone": "+216 20 123 456",
		"governorate": "Tunis",
		"address": "12 Rue de Carthage",
		"orderDate": "2025-06-01T10:00:00Z"
	}`

	tests := []struct {
		name       string
		body       string
		placeFunc  func(ctx context.Context, input order.PlaceOrderInput) (string, error)
		wantStatus int
		wantBody   string
	}{
		{
			name: "success",
			body: validBody,
			placeFunc: func(ctx context.Context, input order.PlaceOrderInput) (string, error) {
				return "123456", nil
			},
			wantStatus: http.StatusCreated,
			wantBody:   `{"success":true,"orderId":"123456","message":"Order placed successfully"}`,
		},
		{
			name:       "malformed_json",
			body:       `{"productId":`,
			placeFunc:  nil,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"invalid request body"}`,
		},
		{
			name: "missing_fields",
			body: validBody,
			placeFunc: func(ctx context.Context, input order.PlaceOrderInput) (string, error) {
				return "", &order.ValidationError{Fields: []string{"customerName", "quantity"}}
			},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"missing or invalid fields: customerName, quantity"}`,
		},
		{
			name: "out_of_stock",
			body: validBody,
			placeFunc: func(ctx context.Context, input order.PlaceOrderInput) (string, error) {
				return "", catalog.ErrOutOfStock
			},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"Insufficient stock"}`,
		},
		{
			name: "product_not_found",
			body: validBody,
			placeFunc: func(ctx context.Context, input order.PlaceOrderInput) (string, error) {
				return "", catalog.ErrProductNotFound
			},
			wantStatus: http.StatusNotFound,
			wantBody:   `{"error":"Product not found"}`,
		},
		{
			name: "internal_error",
			body: validBody,
			placeFunc: func(ctx context.Context, input order.PlaceOrderInput) (string, error) {
				return "", assert.AnError
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"Internal server error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&mockOrderService{placeOrderFunc: tt.placeFunc})

			req := httptest.NewRequest(http.MethodPost, "/api/orders/guest", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestOrderHandler_PlaceGuestOrder_ForwardsInput(t *testing.T) {
	var got order.PlaceOrderInput
	router := newTestRouter(&mockOrderService{
		placeOrderFunc: func(ctx context.Context, input order.PlaceOrderInput) (string, error) {
			got = input
			return "654321", nil
		},
	})

	body := `{"productId":"550e8400-e29b-41d4-a716-446655440000","quantity":3,"customerName":"Amira","customerPhone":"+216 20 123 456","governorate":"Sfax"}`
	req := httptest.NewRequest(http.MethodPost, "/api/orders/guest", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, uuid.Must(uuid.FromString("550e8400-e29b-41d4-a716-446655440000")), got.ProductID)
	assert.Equal(t, 3, got.Quantity)
	assert.Equal(t, "Amira", got.CustomerName)
	assert.Equal(t, "Sfax", got.Governorate)
}

func TestOrderHandler_ListOrders(t *testing.T) {
	t.Run("returns_orders", func(t *testing.T) {
		router := newTestRouter(&mockOrderService{
			listOrdersFunc: func(ctx context.Context, status order.Status, limit int) ([]order.Order, error) {
				assert.Equal(t, order.StatusPending, status)
				assert.Equal(t, 10, limit)
				return []order.Order{{ID: "123456", Status: order.StatusPending}}, nil
			},
		})

		req := httptest.NewRequest(http.MethodGet, "/api/orders/?status=PENDING&limit=10", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"123456"`)
	})

	t.Run("invalid_limit", func(t *testing.T) {
		router := newTestRouter(&mockOrderService{
			listOrdersFunc: func(ctx context.Context, status order.Status, limit int) ([]order.Order, error) {
				t.Fatal("service must not be called with an invalid limit")
				return nil, nil
			},
		})

		req := httptest.NewRequest(http.MethodGet, "/api/orders/?limit=abc", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid_status_filter", func(t *testing.T) {
		router := newTestRouter(&mockOrderService{
			listOrdersFunc: func(ctx context.Context, status order.Status, limit int) ([]order.Order, error) {
				return nil, &order.ValidationError{Fields: []string{"status"}}
			},
		})

		req := httptest.NewRequest(http.MethodGet, "/api/orders/?status=BOGUS", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestOrderHandler_GetOrderByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		router := newTestRouter(&mockOrderService{
			getOrderByIDFunc: func(ctx context.Context, id string) (*order.Order, error) {
				assert.Equal(t, "123456", id)
				return &order.Order{ID: id, Status: order.StatusProcessing}, nil
			},
		})

		req := httptest.NewRequest(http.MethodGet, "/api/orders/123456", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"PROCESSING"`)
	})

	t.Run("not_found", func(t *testing.T) {
		router := newTestRouter(&mockOrderService{
			getOrderByIDFunc: func(ctx context.Context, id string) (*order.Order, error) {
				return nil, order.ErrOrderNotFound
			},
		})

		req := httptest.NewRequest(http.MethodGet, "/api/orders/999999", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"error":"order not found"}`, rec.Body.String())
	})
}

func TestOrderHandler_UpdateOrderStatus(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		updateFunc func(ctx context.Context, id string, newStatus order.Status) error
		wantStatus int
		wantBody   string
	}{
		{
			name: "success",
			body: `{"status":"PROCESSING"}`,
			updateFunc: func(ctx context.Context, id string, newStatus order.Status) error {
				return nil
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"success":true,"status":"PROCESSING"}`,
		},
		{
			name:       "malformed_json",
			body:       `{"status":`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"invalid request body"}`,
		},
		{
			name: "invalid_status_value",
			body: `{"status":"BOGUS"}`,
			updateFunc: func(ctx context.Context, id string, newStatus order.Status) error {
				return &order.ValidationError{Fields: []string{"status"}}
			},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"missing or invalid fields: status"}`,
		},
		{
			name: "not_found",
			body: `{"status":"PROCESSING"}`,
			updateFunc: func(ctx context.Context, id string, newStatus order.Status) error {
				return order.ErrOrderNotFound
			},
			wantStatus: http.StatusNotFound,
			wantBody:   `{"error":"order not found"}`,
		},
		{
			name: "invalid_transition",
			body: `{"status":"CANCELLED"}`,
			updateFunc: func(ctx context.Context, id string, newStatus order.Status) error {
				return order.ErrInvalidStatusTransition
			},
			wantStatus: http.StatusConflict,
			wantBody:   `{"error":"invalid status transition"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&mockOrderService{updateOrderStatusFunc: tt.updateFunc})

			req := httptest.NewRequest(http.MethodPut, "/api/orders/123456", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestOrderHandler_DeleteOrder(t *testing.T) {
	tests := []struct {
		name       string
		deleteFunc func(ctx context.Context, id string) error
		wantStatus int
		wantBody   string
	}{
		{
			name: "success",
			deleteFunc: func(ctx context.Context, id string) error {
				assert.Equal(t, "123456", id)
				return nil
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"success":true}`,
		},
		{
			name: "not_found",
			deleteFunc: func(ctx context.Context, id string) error {
				return order.ErrOrderNotFound
			},
			wantStatus: http.StatusNotFound,
			wantBody:   `{"error":"order not found"}`,
		},
		{
			name: "delivered_order",
			deleteFunc: func(ctx context.Context, id string) error {
				return order.ErrOrderFulfilled
			},
			wantStatus: http.StatusConflict,
			wantBody:   `{"error":"delivered orders cannot be deleted"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&mockOrderService{deleteOrderFunc: tt.deleteFunc})

			req := httptest.NewRequest(http.MethodDelete, "/api/orders/123456", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}
