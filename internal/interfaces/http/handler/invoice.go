package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	invoicingapp "github.com/erp/invoicer/internal/application/invoicing"
	"github.com/erp/invoicer/internal/interfaces/http/dto"
	"github.com/erp/invoicer/internal/interfaces/http/router"
)

// InvoiceGenerator produces the invoice of an order
type InvoiceGenerator interface {
	GenerateInvoice(ctx context.Context, orderID uuid.UUID) (*invoicingapp.InvoiceResponse, error)
}

// InvoiceHandler serves generated invoices
type InvoiceHandler struct {
	BaseHandler
	invoices InvoiceGenerator
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoices InvoiceGenerator) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices}
}

// InvoiceRoutes creates the route group for invoice endpoints
func InvoiceRoutes(h *InvoiceHandler) *router.DomainGroup {
	return router.NewDomainGroup("invoices", "/orders").
		GET("/:id/invoice", h.GetInvoice).
		GET("/:id/invoice/download", h.DownloadInvoice)
}

// GetInvoice returns the invoice of an order as base64 inside the JSON envelope.
//
//	GET /api/v1/orders/:id/invoice
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	invoice, ok := h.generate(c)
	if !ok {
		return
	}
	h.Success(c, invoice)
}

// DownloadInvoice returns the raw PDF as an attachment named invoice-<id>.pdf.
//
//	GET /api/v1/orders/:id/invoice/download
func (h *InvoiceHandler) DownloadInvoice(c *gin.Context) {
	invoice, ok := h.generate(c)
	if !ok {
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+invoice.Filename+`"`)
	c.Header("X-Invoice-Rows", strconv.Itoa(invoice.Rows))
	c.Header("X-Invoice-Fallback-Rows", strconv.Itoa(invoice.FallbackRows))
	c.Data(http.StatusOK, invoice.ContentType, invoice.Bytes())
}

func (h *InvoiceHandler) generate(c *gin.Context) (*invoicingapp.InvoiceResponse, bool) {
	var req dto.OrderIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid order ID")
		return nil, false
	}
	orderID, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return nil, false
	}

	invoice, err := h.invoices.GenerateInvoice(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return nil, false
	}
	return invoice, true
}
