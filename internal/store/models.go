package store

import (
	"context"
	"time"
)

// OrderStatus tracks an order through its payment lifecycle.
type OrderStatus string

const (
	OrderCreated         OrderStatus = "created"
	OrderAwaitingPayment OrderStatus = "awaiting_payment"
	OrderPaid            OrderStatus = "paid"
	OrderCancelled       OrderStatus = "cancelled"
)

type Product struct {
	ID          string  `gorm:"primaryKey" json:"id"`
	Name        string  `gorm:"not null" json:"name"`
	Category    string  `gorm:"index" json:"category"`
	Price       float64 `json:"price"`
	Description string  `gorm:"type:text" json:"description"`
	Stock       int     `json:"stock"`
}

type OrderItem struct {
	ID          uint    `gorm:"primaryKey" json:"-"`
	OrderID     string  `gorm:"index" json:"-"`
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Subtotal    float64 `json:"subtotal"`
}

type Order struct {
	ID        string      `gorm:"primaryKey" json:"id"`
	SessionID string      `gorm:"index" json:"session_id"`
	Status    OrderStatus `json:"status"`
	Items     []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
	Total     float64     `json:"total"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// OrderItemInput is one requested line when creating an order.
type OrderItemInput struct {
	ProductID string
	Quantity  int
}

// ProductRepository is the catalog access contract the handlers consume.
type ProductRepository interface {
	Search(ctx context.Context, query, category string, maxResults int) ([]Product, error)
	Get(ctx context.Context, id string) (*Product, error)
	CheckStock(ctx context.Context, id string, quantity int) (bool, error)
}

// OrderRepository is the order access contract the handlers consume.
type OrderRepository interface {
	Create(ctx context.Context, sessionID string, items []OrderItemInput) (*Order, error)
	Get(ctx context.Context, id string) (*Order, error)
	UpdateStatus(ctx context.Context, id string, status OrderStatus) error
}
