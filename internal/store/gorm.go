package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	logx "github.com/shoptalk/assistant/pkg/logger"
)

// GormProductRepository serves the catalog from Postgres.
type GormProductRepository struct {
	db *gorm.DB
}

func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) Search(ctx context.Context, query, category string, maxResults int) ([]Product, error) {
	if maxResults <= 0 {
		maxResults = 10
	}
	q := r.db.WithContext(ctx).Model(&Product{})
	if term := strings.TrimSpace(query); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(category) LIKE ? OR LOWER(description) LIKE ?", like, like, like)
	}
	if category != "" {
		q = q.Where("LOWER(category) = ?", strings.ToLower(category))
	}

	var products []Product
	if err := q.Limit(maxResults).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return products, nil
}

func (r *GormProductRepository) Get(ctx context.Context, id string) (*Product, error) {
	var p Product
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

func (r *GormProductRepository) CheckStock(ctx context.Context, id string, quantity int) (bool, error) {
	p, err := r.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if p == nil {
		return false, nil
	}
	return p.Stock >= quantity, nil
}

// GormOrderRepository persists orders in Postgres.
type GormOrderRepository struct {
	db       *gorm.DB
	products ProductRepository
}

func NewGormOrderRepository(db *gorm.DB, products ProductRepository) *GormOrderRepository {
	return &GormOrderRepository{db: db, products: products}
}

func (r *GormOrderRepository) Create(ctx context.Context, sessionID string, items []OrderItemInput) (*Order, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("order requires at least one item")
	}

	order := &Order{
		ID:        newOrderID(),
		SessionID: sessionID,
		Status:    OrderCreated,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	for _, in := range items {
		p, err := r.products.Get(ctx, in.ProductID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, fmt.Errorf("product %s not found", in.ProductID)
		}
		qty := in.Quantity
		if qty <= 0 {
			qty = 1
		}
		item := OrderItem{
			OrderID:     order.ID,
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    qty,
			UnitPrice:   p.Price,
			Subtotal:    p.Price * float64(qty),
		}
		order.Items = append(order.Items, item)
		order.Total += item.Subtotal
	}

	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	logx.Info().Str("order_id", order.ID).Str("session_id", sessionID).Float64("total", order.Total).Msg("order created")
	return order, nil
}

func (r *GormOrderRepository) Get(ctx context.Context, id string) (*Order, error) {
	var o Order
	err := r.db.WithContext(ctx).Preload("Items").First(&o, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &o, nil
}

func (r *GormOrderRepository) UpdateStatus(ctx context.Context, id string, status OrderStatus) error {
	res := r.db.WithContext(ctx).Model(&Order{}).Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now()})
	if res.Error != nil {
		return fmt.Errorf("update order status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("order %s not found", id)
	}
	return nil
}

func newOrderID() string {
	return "ord_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

var (
	_ ProductRepository = (*GormProductRepository)(nil)
	_ OrderRepository   = (*GormOrderRepository)(nil)
)
