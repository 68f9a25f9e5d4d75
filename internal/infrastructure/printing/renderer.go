package printing

import (
	"context"

	"github.com/erp/invoicer/internal/domain/invoicing"
)

// InvoiceRenderer turns a resolved order into a finished invoice document
type InvoiceRenderer interface {
	// Generate renders the order. It either returns a complete document or an error.
	Generate(ctx context.Context, order *invoicing.Order) (*Document, error)
}

// RenderError represents an error during invoice rendering
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// Error codes for rendering failures
const (
	ErrCodeRenderTimeout  = "RENDER_TIMEOUT"
	ErrCodeEncodingFailed = "ENCODING_FAILED"
	ErrCodeInvalidOrder   = "INVALID_ORDER"
	ErrCodeStorageFailed  = "STORAGE_FAILED"
)

// NewRenderError creates a new RenderError
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Ensure DocumentBuilder implements InvoiceRenderer
var _ InvoiceRenderer = (*DocumentBuilder)(nil)
