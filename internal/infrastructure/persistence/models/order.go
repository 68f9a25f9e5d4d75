package models

import (
	"time"

	"github.com/erp/invoicer/internal/domain/invoicing"
	"github.com/google/uuid"
)

// BaseModel provides common persistence fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// CustomerModel maps to customers
type CustomerModel struct {
	BaseModel
	FirstName string `gorm:"size:100;not null;default:''"`
	LastName  string `gorm:"size:100;not null;default:''"`
	Email     string `gorm:"size:255;not null;default:''"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string { return "customers" }

// OrderModel maps to orders
type OrderModel struct {
	BaseModel
	CustomerID uuid.UUID `gorm:"type:uuid;not null;index"`
	Validated  bool      `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string { return "orders" }

// BillingAddressModel maps to billing_addresses. An order has at most one.
type BillingAddressModel struct {
	ID      uuid.UUID `gorm:"type:uuid;primary_key"`
	OrderID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	Street  string    `gorm:"size:255;not null;default:''"`
	ZipCode string    `gorm:"size:20;not null;default:''"`
	City    string    `gorm:"size:100;not null;default:''"`
	Country string    `gorm:"size:100;not null;default:''"`
}

// TableName returns the table name for GORM
func (BillingAddressModel) TableName() string { return "billing_addresses" }

// ToDomain converts the row to a domain billing address
func (m *BillingAddressModel) ToDomain() *invoicing.BillingAddress {
	return &invoicing.BillingAddress{
		Street:  m.Street,
		ZipCode: m.ZipCode,
		City:    m.City,
		Country: m.Country,
	}
}

// ProductModel maps to products
type ProductModel struct {
	BaseModel
	Name     string `gorm:"size:255;not null"`
	ImageURL string `gorm:"size:2048;not null;default:''"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string { return "products" }

// OrderItemModel maps to order_items. Position fixes the row order on the invoice.
type OrderItemModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key"`
	OrderID        uuid.UUID `gorm:"type:uuid;not null;index:idx_order_items_order_position,priority:1"`
	ProductID      uuid.UUID `gorm:"type:uuid;not null"`
	Position       int       `gorm:"not null;index:idx_order_items_order_position,priority:2"`
	UnitPriceMinor int64     `gorm:"not null"`
	Quantity       int64     `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string { return "order_items" }

// OrderHeaderRow is the result of joining an order with its customer
type OrderHeaderRow struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Validated bool
	FirstName string
	LastName  string
	Email     string
}

// LineItemRow is the result of joining an order item with its product
type LineItemRow struct {
	Position       int
	ProductName    string
	ImageURL       string
	UnitPriceMinor int64
	Quantity       int64
}

// ToDomain converts the row to a domain line item
func (r *LineItemRow) ToDomain() invoicing.LineItem {
	return invoicing.LineItem{
		ProductName:     r.ProductName,
		ProductImageURL: r.ImageURL,
		UnitPriceMinor:  r.UnitPriceMinor,
		Quantity:        r.Quantity,
	}
}

// ToDomain assembles the aggregate from the header, an optional address and
// position-ordered items.
func (r *OrderHeaderRow) ToDomain(address *BillingAddressModel, items []LineItemRow) *invoicing.Order {
	order := &invoicing.Order{
		ID:        r.ID,
		CreatedAt: r.CreatedAt,
		Validated: r.Validated,
		Customer: invoicing.Customer{
			FirstName: r.FirstName,
			LastName:  r.LastName,
			Email:     r.Email,
		},
		LineItems: make([]invoicing.LineItem, 0, len(items)),
	}
	if address != nil {
		order.BillingAddress = address.ToDomain()
	}
	for i := range items {
		order.LineItems = append(order.LineItems, items[i].ToDomain())
	}
	return order
}
