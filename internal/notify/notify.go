// Package notify delivers best-effort operator notifications for new orders.
// Delivery failures are logged and absorbed; they never affect the order that
// triggered them.
package notify

import "context"

type ItemLine struct {
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

type OrderNotification struct {
	OrderID       string     `json:"orderId"`
	CustomerName  string     `json:"customerName"`
	CustomerPhone string     `json:"customerPhone"`
	Governorate   string     `json:"governorate"`
	Address       string     `json:"address,omitempty"`
	Items         []ItemLine `json:"items"`
	TotalAmount   float64    `json:"totalAmount"`
	OrderDate     string     `json:"orderDate"`
}

type Notifier interface {
	OrderPlaced(ctx context.Context, n OrderNotification) error
}

// Nop is used when no notification channel is configured.
type Nop struct{}

func (Nop) OrderPlaced(ctx context.Context, n OrderNotification) error { return nil }
