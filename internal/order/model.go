package order

import (
	"time"

	"github.com/gofrs/uuid"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

func (s Status) String() string {
	return string(s)
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

const PaymentMethodCashOnDelivery = "CASH_ON_DELIVERY"

type OrderItem struct {
	ID        uuid.UUID `json:"id" db:"id"`
	OrderID   string    `json:"order_id" db:"order_id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	// Price is the unit price at the time of purchase, never recomputed from
	// the live product price.
	Price     float64   `json:"price" db:"price"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Order struct {
	ID              string        `json:"id" db:"id"`
	UserID          uuid.UUID     `json:"user_id" db:"user_id"`
	Status          Status        `json:"status" db:"status"`
	PaymentStatus   PaymentStatus `json:"payment_status" db:"payment_status"`
	PaymentMethod   string        `json:"payment_method" db:"payment_method"`
	TotalAmount     float64       `json:"total_amount" db:"total_amount"`
	ShippingAddress string        `json:"shipping_address" db:"shipping_address"`
	OrderItems      []OrderItem   `json:"order_items" db:"-"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" db:"updated_at"`
}

// ShippingInfo is the customer contact payload serialized into an order's
// shipping_address column.
type ShippingInfo struct {
	CustomerName  string `json:"customerName"`
	CustomerPhone string `json:"customerPhone"`
	Governorate   string `json:"governorate"`
	Address       string `json:"address,omitempty"`
	OrderDate     string `json:"orderDate,omitempty"`
}
