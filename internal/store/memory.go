package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MemoryProductRepository serves the catalog from an in-process slice.
// It backs deployments without Postgres and the test suite.
type MemoryProductRepository struct {
	mu       sync.RWMutex
	products []Product
}

func NewMemoryProductRepository(products []Product) *MemoryProductRepository {
	if products == nil {
		products = SeedProducts()
	}
	return &MemoryProductRepository{products: products}
}

func (r *MemoryProductRepository) Search(ctx context.Context, query, category string, maxResults int) ([]Product, error) {
	if maxResults <= 0 {
		maxResults = 10
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	term := strings.ToLower(strings.TrimSpace(query))
	var matched []Product
	for _, p := range r.products {
		if term != "" &&
			!strings.Contains(strings.ToLower(p.Name), term) &&
			!strings.Contains(strings.ToLower(p.Category), term) &&
			!strings.Contains(strings.ToLower(p.Description), term) {
			continue
		}
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		matched = append(matched, p)
		if len(matched) >= maxResults {
			break
		}
	}
	return matched, nil
}

func (r *MemoryProductRepository) Get(ctx context.Context, id string) (*Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.products {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemoryProductRepository) CheckStock(ctx context.Context, id string, quantity int) (bool, error) {
	p, err := r.Get(ctx, id)
	if err != nil || p == nil {
		return false, err
	}
	return p.Stock >= quantity, nil
}

// MemoryOrderRepository keeps orders in an in-process map.
type MemoryOrderRepository struct {
	mu       sync.Mutex
	orders   map[string]*Order
	products ProductRepository
	seq      int
}

func NewMemoryOrderRepository(products ProductRepository) *MemoryOrderRepository {
	return &MemoryOrderRepository{
		orders:   make(map[string]*Order),
		products: products,
	}
}

func (r *MemoryOrderRepository) Create(ctx context.Context, sessionID string, items []OrderItemInput) (*Order, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("order requires at least one item")
	}

	r.mu.Lock()
	r.seq++
	id := fmt.Sprintf("ord_%06x", r.seq)
	r.mu.Unlock()

	order := &Order{
		ID:        id,
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

	r.mu.Lock()
	r.orders[order.ID] = order
	r.mu.Unlock()
	return order, nil
}

func (r *MemoryOrderRepository) Get(ctx context.Context, id string) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (r *MemoryOrderRepository) UpdateStatus(ctx context.Context, id string, status OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order %s not found", id)
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	return nil
}

// SeedProducts is the demo catalog used by in-memory deployments.
func SeedProducts() []Product {
	return []Product{
		{ID: "prod_001", Name: "Aurora 14 Laptop", Category: "laptops", Price: 899.00, Description: "14-inch ultrabook, 16GB RAM, 512GB SSD, all-day battery laptop computer notebook", Stock: 12},
		{ID: "prod_002", Name: "Nimbus 15 Gaming Laptop", Category: "laptops", Price: 1249.00, Description: "15-inch gaming laptop with dedicated GPU and 144Hz display laptop computer", Stock: 5},
		{ID: "prod_003", Name: "Featherlight 13", Category: "laptops", Price: 1099.00, Description: "13-inch thin-and-light laptop for travel and everyday work laptop notebook", Stock: 0},
		{ID: "prod_004", Name: "Pulse X Smartphone", Category: "smartphones", Price: 699.00, Description: "6.1-inch OLED smartphone with dual camera phone mobile", Stock: 25},
		{ID: "prod_005", Name: "Pulse X Pro", Category: "smartphones", Price: 999.00, Description: "6.7-inch flagship smartphone with telephoto camera phone mobile", Stock: 9},
		{ID: "prod_006", Name: "EchoBuds ANC", Category: "audio", Price: 129.00, Description: "Wireless earbuds with active noise cancellation headphones audio", Stock: 40},
		{ID: "prod_007", Name: "StudioSound Over-Ear", Category: "audio", Price: 249.00, Description: "Over-ear wireless headphones with studio tuning audio", Stock: 15},
		{ID: "prod_008", Name: "PageTurner E-Reader", Category: "tablets", Price: 149.00, Description: "7-inch e-ink reader for books and documents tablet book reader", Stock: 18},
	}
}

var (
	_ ProductRepository = (*MemoryProductRepository)(nil)
	_ OrderRepository   = (*MemoryOrderRepository)(nil)
)
