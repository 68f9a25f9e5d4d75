package invoicing

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Customer is the buyer named on the invoice
type Customer struct {
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	Email     string `json:"email" validate:"omitempty,email"`
}

// FullName returns "FirstName LastName" with surplus whitespace removed
func (c Customer) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
}

// BillingAddress is the optional postal address printed in the billed-to box
type BillingAddress struct {
	Street  string `json:"street"`
	ZipCode string `json:"zip_code"`
	City    string `json:"city"`
	Country string `json:"country"`
}

// Line renders the address on a single line: "street, zip city, country".
// Empty parts are skipped.
func (a BillingAddress) Line() string {
	locality := strings.TrimSpace(strings.TrimSpace(a.ZipCode) + " " + strings.TrimSpace(a.City))
	parts := make([]string, 0, 3)
	for _, p := range []string{strings.TrimSpace(a.Street), locality, strings.TrimSpace(a.Country)} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// LineItem is one invoice row
type LineItem struct {
	ProductName     string `json:"product_name"`
	ProductImageURL string `json:"product_image_url"`
	// UnitPriceMinor is the unit price in 1/1000 of the display currency unit
	UnitPriceMinor int64 `json:"unit_price_minor" validate:"gte=0"`
	Quantity       int64 `json:"quantity" validate:"gt=0"`
}

// Subtotal returns UnitPriceMinor × Quantity in minor units
func (li LineItem) Subtotal() int64 {
	return li.UnitPriceMinor * li.Quantity
}

// Order is the resolved, read-only aggregate an invoice is generated from.
// LineItems keep their original order; it may be empty.
type Order struct {
	ID             uuid.UUID       `json:"id" validate:"required"`
	CreatedAt      time.Time       `json:"created_at" validate:"required"`
	Validated      bool            `json:"validated"`
	Customer       Customer        `json:"customer"`
	BillingAddress *BillingAddress `json:"billing_address,omitempty"`
	LineItems      []LineItem      `json:"line_items" validate:"dive"`
}

// HasBillingAddress reports whether the billed-to box carries an address line
func (o *Order) HasBillingAddress() bool {
	return o.BillingAddress != nil
}

// GrandTotal sums every line subtotal in minor units. No rounding happens here.
func (o *Order) GrandTotal() int64 {
	var total int64
	for _, item := range o.LineItems {
		total += item.Subtotal()
	}
	return total
}
