package invoicing

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"strings"

	"github.com/go-playground/validator/v10"
)

var orderValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the aggregate invariants: an id and creation date are present,
// every quantity is positive, no unit price is negative and the grand total fits
// in an int64.
func (o *Order) Validate() error {
	if o == nil {
		return NewInvalidOrderError("order is nil")
	}
	err := orderValidator.Struct(o)
	if err == nil {
		return o.checkTotals()
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return NewInvalidOrderError(err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
	}
	return NewInvalidOrderError("invalid order: " + strings.Join(msgs, "; "))
}

// checkTotals rejects orders whose subtotals or grand total overflow int64.
// Prices and quantities are already known to be non-negative.
func (o *Order) checkTotals() error {
	var total uint64
	for i, item := range o.LineItems {
		hi, lo := bits.Mul64(uint64(item.UnitPriceMinor), uint64(item.Quantity))
		if hi != 0 || lo > math.MaxInt64 {
			return NewInvalidOrderError(fmt.Sprintf("invalid order: subtotal of line item %d overflows", i))
		}
		total += lo
		if total > math.MaxInt64 {
			return NewInvalidOrderError("invalid order: grand total overflows")
		}
	}
	return nil
}
