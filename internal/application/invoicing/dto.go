package invoicing

import (
	"time"

	"github.com/google/uuid"

	domain "github.com/erp/invoicer/internal/domain/invoicing"
	"github.com/erp/invoicer/internal/infrastructure/printing"
)

// Content description of generated invoices
const (
	ContentTypePDF = "application/pdf"
	EncodingBase64 = "base64"
)

// InvoiceResponse represents a generated invoice
type InvoiceResponse struct {
	OrderID     uuid.UUID `json:"order_id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Encoding    string    `json:"encoding"`
	Content     string    `json:"content"`
	Size        int       `json:"size"`

	// GrandTotal is the display amount with two decimals, e.g. "6.00"
	GrandTotal      string `json:"grand_total"`
	GrandTotalMinor int64  `json:"grand_total_minor"`
	Rows            int    `json:"rows"`

	// FallbackRows counts rows drawn with a placeholder instead of the product image
	FallbackRows int    `json:"fallback_rows"`
	Cached       bool   `json:"cached"`
	ArchiveKey   string `json:"archive_key,omitempty"`

	// ArchiveURL is a presigned download link, set when the archive backend issues one
	ArchiveURL          string     `json:"archive_url,omitempty"`
	ArchiveURLExpiresAt *time.Time `json:"archive_url_expires_at,omitempty"`

	data []byte
}

// Bytes returns the raw PDF
func (r *InvoiceResponse) Bytes() []byte {
	return r.data
}

// Filename returns the download name of an order's invoice
func Filename(orderID uuid.UUID) string {
	return "invoice-" + orderID.String() + ".pdf"
}

// ToInvoiceResponse converts a rendered document to a response DTO
func ToInvoiceResponse(doc *printing.Document) *InvoiceResponse {
	return &InvoiceResponse{
		OrderID:         doc.OrderID(),
		Filename:        Filename(doc.OrderID()),
		ContentType:     ContentTypePDF,
		Encoding:        EncodingBase64,
		Content:         doc.Encoded(),
		Size:            doc.Size(),
		GrandTotal:      domain.MinorToDecimal(doc.GrandTotalMinor()).StringFixed(domain.DisplayDecimals),
		GrandTotalMinor: doc.GrandTotalMinor(),
		Rows:            doc.Rows(),
		FallbackRows:    doc.FallbackRows(),
		data:            doc.Bytes(),
	}
}

// cachedDocument is the cache representation of a rendered invoice
type cachedDocument struct {
	PDF          []byte `json:"pdf"`
	GrandTotal   int64  `json:"grand_total"`
	Rows         int    `json:"rows"`
	FallbackRows int    `json:"fallback_rows"`
}

func fromDocument(doc *printing.Document) cachedDocument {
	return cachedDocument{
		PDF:          doc.Bytes(),
		GrandTotal:   doc.GrandTotalMinor(),
		Rows:         doc.Rows(),
		FallbackRows: doc.FallbackRows(),
	}
}

func (c cachedDocument) toDocument(orderID uuid.UUID) *printing.Document {
	return printing.NewDocument(orderID, c.PDF, c.GrandTotal, c.Rows, c.FallbackRows)
}
