package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/invoicer/internal/domain/invoicing"
	"github.com/erp/invoicer/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var _ invoicing.OrderRepository = (*GormOrderRepository)(nil)

// GormOrderRepository implements invoicing.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID loads the order with its customer, optional billing address and
// line items in position order.
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.Order, error) {
	db := r.db.WithContext(ctx)

	var header models.OrderHeaderRow
	err := db.Table("orders").
		Select("orders.id, orders.created_at, orders.validated, customers.first_name, customers.last_name, customers.email").
		Joins("JOIN customers ON customers.id = orders.customer_id").
		Where("orders.id = ?", id).
		Take(&header).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invoicing.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order %s: %w", id, err)
	}

	var addresses []models.BillingAddressModel
	if err := db.Where("order_id = ?", id).Limit(1).Find(&addresses).Error; err != nil {
		return nil, fmt.Errorf("failed to load billing address of order %s: %w", id, err)
	}
	var address *models.BillingAddressModel
	if len(addresses) > 0 {
		address = &addresses[0]
	}

	var items []models.LineItemRow
	err = db.Table("order_items").
		Select("order_items.position, products.name AS product_name, products.image_url, order_items.unit_price_minor, order_items.quantity").
		Joins("JOIN products ON products.id = order_items.product_id").
		Where("order_items.order_id = ?", id).
		Order("order_items.position").
		Scan(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load line items of order %s: %w", id, err)
	}

	return header.ToDomain(address, items), nil
}
