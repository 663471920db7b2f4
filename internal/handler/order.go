package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/royalartisanat/shop-api/internal/catalog"
	"github.com/royalartisanat/shop-api/internal/order"
)

const storeTimeout = 5 * time.Second

// OrderHandler handles HTTP requests for guest checkout and administrative
// order management.
type OrderHandler struct {
	svc order.Service
}

func NewOrderHandler(svc order.Service) *OrderHandler {
	return &OrderHandler{svc: svc}
}

type placeOrderResponse struct {
	Success bool   `json:"success"`
	OrderID string `json:"orderId"`
	Message string `json:"message"`
}

// PlaceGuestOrder handles the creation of a new guest order.
func (h *OrderHandler) PlaceGuestOrder(w http.ResponseWriter, r *http.Request) {
	var input order.PlaceOrderInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	orderID, err := h.svc.PlaceOrder(ctx, input)
	if err != nil {
		h.respondPlaceOrderError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, placeOrderResponse{
		Success: true,
		OrderID: orderID,
		Message: "Order placed successfully",
	})
}

func (h *OrderHandler) respondPlaceOrderError(w http.ResponseWriter, err error) {
	var validationErr *order.ValidationError
	switch {
	case errors.As(err, &validationErr):
		respondWithError(w, http.StatusBadRequest, validationErr.Error())
	case errors.Is(err, catalog.ErrOutOfStock):
		respondWithError(w, http.StatusBadRequest, "Insufficient stock")
	case errors.Is(err, catalog.ErrProductNotFound):
		respondWithError(w, http.StatusNotFound, "Product not found")
	default:
		log.Error().Err(err).Msg("handler: failed to place order")
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// ListOrders returns orders for the admin UI, newest first. Supports
// ?status= and ?limit= filters.
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	status := order.Status(r.URL.Query().Get("status"))
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondWithError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	orders, err := h.svc.ListOrders(ctx, status, limit)
	if err != nil {
		var validationErr *order.ValidationError
		if errors.As(err, &validationErr) {
			respondWithError(w, http.StatusBadRequest, validationErr.Error())
			return
		}
		log.Error().Err(err).Msg("handler: failed to list orders")
		respondWithError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

// GetOrderByID retrieves one order with its items.
func (h *OrderHandler) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "id is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	o, err := h.svc.GetOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			respondWithError(w, http.StatusNotFound, "order not found")
			return
		}
		log.Error().Err(err).Str("order_id", id).Msg("handler: failed to get order")
		respondWithError(w, http.StatusInternalServerError, "failed to get order")
		return
	}

	respondWithJSON(w, http.StatusOK, o)
}

type updateStatusRequest struct {
	Status order.Status `json:"status"`
}

// UpdateOrderStatus applies a status transition to an existing order.
func (h *OrderHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	if err := h.svc.UpdateOrderStatus(ctx, id, req.Status); err != nil {
		var validationErr *order.ValidationError
		switch {
		case errors.As(err, &validationErr):
			respondWithError(w, http.StatusBadRequest, validationErr.Error())
		case errors.Is(err, order.ErrOrderNotFound):
			respondWithError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, order.ErrInvalidStatusTransition):
			respondWithError(w, http.StatusConflict, "invalid status transition")
		default:
			log.Error().Err(err).Str("order_id", id).Msg("handler: failed to update order status")
			respondWithError(w, http.StatusInternalServerError, "failed to update order status")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"success": true, "status": req.Status})
}

// DeleteOrder removes an order and restores the stock its items reserved.
func (h *OrderHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	if err := h.svc.DeleteOrder(ctx, id); err != nil {
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			respondWithError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, order.ErrOrderFulfilled):
			respondWithError(w, http.StatusConflict, "delivered orders cannot be deleted")
		default:
			log.Error().Err(err).Str("order_id", id).Msg("handler: failed to delete order")
			respondWithError(w, http.StatusInternalServerError, "failed to delete order")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"success": true})
}
