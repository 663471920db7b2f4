package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/royalartisanat/shop-api/internal/account"
	"github.com/royalartisanat/shop-api/internal/catalog"
	"github.com/royalartisanat/shop-api/internal/notify"
)

var (
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	// ErrOrderFulfilled is returned when deleting an order that has already
	// been delivered.
	ErrOrderFulfilled = errors.New("order already fulfilled")
)

// ValidationError carries the names of the missing or invalid input fields so
// the caller can return actionable detail.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing or invalid fields: " + strings.Join(e.Fields, ", ")
}

// placeAttempts bounds the retry loop on identifier collisions that slip past
// the allocator's existence check.
const placeAttempts = 3

const notifyTimeout = 10 * time.Second

type PlaceOrderInput struct {
	ProductID     uuid.UUID `json:"productId" validate:"required"`
	ProductName   string    `json:"productName"`
	ProductPrice  float64   `json:"productPrice"`
	Quantity      int       `json:"quantity" validate:"gt=0"`
	TotalPrice    float64   `json:"totalPrice"`
	CustomerName  string    `json:"customerName" validate:"required"`
	CustomerPhone string    `json:"customerPhone" validate:"required"`
	Governorate   string    `json:"governorate" validate:"required"`
	Address       string    `json:"address"`
	OrderDate     string    `json:"orderDate"`
}

// validate reports field names by their json tags so validation detail lines
// up with what the client actually sent.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type Service interface {
	// PlaceOrder validates the request, resolves the guest account, allocates
	// an identifier and creates the order atomically with the stock
	// decrement. Returns the new order id.
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (string, error)
	GetOrderByID(ctx context.Context, id string) (*Order, error)
	ListOrders(ctx context.Context, status Status, limit int) ([]Order, error)
	UpdateOrderStatus(ctx context.Context, id string, newStatus Status) error
	DeleteOrder(ctx context.Context, id string) error
}

type service struct {
	orders    Repository
	products  catalog.Repository
	accounts  account.Repository
	allocator *IDAllocator
	notifier  notify.Notifier
}

func NewService(orders Repository, products catalog.Repository, accounts account.Repository, notifier notify.Notifier) Service {
	return &service{
		orders:    orders,
		products:  products,
		accounts:  accounts,
		allocator: NewIDAllocator(orders),
		notifier:  notifier,
	}
}

func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (string, error) {
	if err := validatePlaceOrder(input); err != nil {
		log.Warn().Err(err).Msg("service: rejected order input")
		return "", err
	}

	product, err := s.products.GetProductByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return "", catalog.ErrProductNotFound
		}
		return "", fmt.Errorf("service: failed to fetch product: %w", err)
	}
	if !product.Active {
		return "", catalog.ErrProductNotFound
	}

	// Optimistic pre-check only; the ledger decrement inside the transaction
	// is authoritative since stock can change before commit.
	if input.Quantity > product.Stock {
		return "", catalog.ErrOutOfStock
	}

	guestID, err := s.accounts.EnsureGuest(ctx)
	if err != nil {
		return "", fmt.Errorf("service: failed to resolve guest account: %w", err)
	}

	shipping, err := json.Marshal(ShippingInfo{
		CustomerName:  input.CustomerName,
		CustomerPhone: input.CustomerPhone,
		Governorate:   input.Governorate,
		Address:       input.Address,
		OrderDate:     input.OrderDate,
	})
	if err != nil {
		return "", fmt.Errorf("service: failed to serialize shipping info: %w", err)
	}

	// Snapshot the current catalog price; totals are computed server-side
	// rather than trusted from the client.
	unitPrice := product.Price
	total := unitPrice * float64(input.Quantity)

	var orderID string
	for attempt := 0; attempt < placeAttempts; attempt++ {
		orderID, err = s.allocator.Allocate(ctx)
		if err != nil {
			return "", err
		}

		o := &Order{
			ID:              orderID,
			UserID:          guestID,
			Status:          StatusPending,
			PaymentStatus:   PaymentPending,
			PaymentMethod:   PaymentMethodCashOnDelivery,
			TotalAmount:     total,
			ShippingAddress: string(shipping),
			OrderItems: []OrderItem{{
				ProductID: input.ProductID,
				Quantity:  input.Quantity,
				Price:     unitPrice,
			}},
		}

		err = s.orders.CreateOrder(ctx, o)
		if err == nil {
			break
		}
		if errors.Is(err, ErrOrderIDTaken) {
			log.Warn().Str("order_id", orderID).Msg("service: order id collided at insert, retrying")
			continue
		}
		if errors.Is(err, catalog.ErrOutOfStock) || errors.Is(err, catalog.ErrProductNotFound) {
			return "", err
		}
		return "", fmt.Errorf("service: failed to create order: %w", err)
	}
	if err != nil {
		return "", ErrOrderIDSpaceExhausted
	}

	log.Info().Str("order_id", orderID).Stringer("product_id", input.ProductID).Int("quantity", input.Quantity).Msg("service: order placed")

	s.dispatchNotification(orderID, input, product, total)

	return orderID, nil
}

// dispatchNotification is fire and forget: a failed notification is logged
// and never rolls back or delays the placed order.
func (s *service) dispatchNotification(orderID string, input PlaceOrderInput, product *catalog.Product, total float64) {
	productName := input.ProductName
	if productName == "" {
		productName = product.Name
	}
	orderDate := input.OrderDate
	if orderDate == "" {
		orderDate = time.Now().UTC().Format(time.RFC3339)
	}

	n := notify.OrderNotification{
		OrderID:       orderID,
		CustomerName:  input.CustomerName,
		CustomerPhone: input.CustomerPhone,
		Governorate:   input.Governorate,
		Address:       input.Address,
		Items: []notify.ItemLine{{
			ProductName: productName,
			Quantity:    input.Quantity,
			Price:       product.Price,
		}},
		TotalAmount: total,
		OrderDate:   orderDate,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notifier.OrderPlaced(ctx, n); err != nil {
			log.Error().Err(err).Str("order_id", orderID).Msg("service: order notification failed")
		}
	}()
}

func validatePlaceOrder(input PlaceOrderInput) error {
	// Whitespace-only strings count as absent.
	input.CustomerName = strings.TrimSpace(input.CustomerName)
	input.CustomerPhone = strings.TrimSpace(input.CustomerPhone)
	input.Governorate = strings.TrimSpace(input.Governorate)

	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("service: failed to validate order input: %w", err)
	}

	fields := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		fields = append(fields, fe.Field())
	}
	return &ValidationError{Fields: fields}
}

func (s *service) GetOrderByID(ctx context.Context, id string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("service: failed to fetch order by id: %w", err)
	}
	return o, nil
}

func (s *service) ListOrders(ctx context.Context, status Status, limit int) ([]Order, error) {
	if status != "" && !ValidStatus(status) {
		return nil, &ValidationError{Fields: []string{"status"}}
	}
	orders, err := s.orders.List(ctx, status, limit)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *service) UpdateOrderStatus(ctx context.Context, id string, newStatus Status) error {
	if !ValidStatus(newStatus) {
		return &ValidationError{Fields: []string{"status"}}
	}

	current, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("service: failed to get order for status update: %w", err)
	}

	if current.Status == newStatus {
		return nil
	}

	if !CanTransition(current.Status, newStatus) {
		log.Warn().
			Str("order_id", id).
			Stringer("current_status", current.Status).
			Stringer("new_status", newStatus).
			Msg("service: invalid status transition attempt")
		return ErrInvalidStatusTransition
	}

	// Compare-and-set against the status just observed; if another update
	// slipped in between the read and here, the repository rejects it.
	if err := s.orders.UpdateStatus(ctx, id, current.Status, newStatus); err != nil {
		if errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrInvalidStatusTransition) {
			return err
		}
		return fmt.Errorf("service: failed to update order status: %w", err)
	}

	log.Info().Str("order_id", id).Stringer("old_status", current.Status).Stringer("new_status", newStatus).Msg("service: order status updated")
	return nil
}

func (s *service) DeleteOrder(ctx context.Context, id string) error {
	// No pre-read: the repository checks the delivered guard under a row lock
	// inside the delete transaction, where it cannot race a concurrent
	// transition.
	if err := s.orders.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrOrderFulfilled) {
			return err
		}
		return fmt.Errorf("service: failed to delete order: %w", err)
	}

	return nil
}
