package invoicing

import (
	"errors"

	"github.com/erp/invoicer/internal/domain/shared"
)

// Error codes of the invoicing context
const (
	ErrCodeOrderNotFound    = "ORDER_NOT_FOUND"
	ErrCodeInvalidOrder     = "INVALID_ORDER"
	ErrCodeImageUnavailable = "IMAGE_UNAVAILABLE"
)

// ErrOrderNotFound is returned when an order id does not resolve
var ErrOrderNotFound = shared.NewDomainError(ErrCodeOrderNotFound, "Order not found")

// IsOrderNotFound reports whether err is (or wraps) an order resolution failure
func IsOrderNotFound(err error) bool {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == ErrCodeOrderNotFound
	}
	return false
}

// NewInvalidOrderError creates an INVALID_ORDER domain error
func NewInvalidOrderError(message string) *shared.DomainError {
	return shared.NewDomainError(ErrCodeInvalidOrder, message)
}
