package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	invoicingapp "github.com/erp/invoicer/internal/application/invoicing"
	"github.com/erp/invoicer/internal/domain/invoicing"
	"github.com/erp/invoicer/internal/infrastructure/printing"
	"github.com/erp/invoicer/internal/interfaces/http/dto"
	"github.com/erp/invoicer/internal/interfaces/http/middleware"
	"github.com/erp/invoicer/internal/interfaces/http/router"
)

type MockInvoiceGenerator struct {
	mock.Mock
}

func (m *MockInvoiceGenerator) GenerateInvoice(ctx context.Context, orderID uuid.UUID) (*invoicingapp.InvoiceResponse, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicingapp.InvoiceResponse), args.Error(1)
}

var _ InvoiceGenerator = (*invoicingapp.InvoiceService)(nil)

var testPDF = []byte("%PDF-1.3\n%test\n%%EOF\n")

func sampleInvoice(orderID uuid.UUID) *invoicingapp.InvoiceResponse {
	return invoicingapp.ToInvoiceResponse(printing.NewDocument(orderID, testPDF, 6000, 2, 1))
}

func newInvoiceRouter(gen InvoiceGenerator) *gin.Engine {
	engine := gin.New()
	engine.Use(middleware.RequestID())
	router.NewRouter(engine).Register(InvoiceRoutes(NewInvoiceHandler(gen))).Setup()
	return engine
}

func get(engine *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestInvoiceHandler_GetInvoice(t *testing.T) {
	orderID := uuid.New()
	gen := new(MockInvoiceGenerator)
	gen.On("GenerateInvoice", mock.Anything, orderID).Return(sampleInvoice(orderID), nil)

	w := get(newInvoiceRouter(gen), "/api/v1/orders/"+orderID.String()+"/invoice")

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	require.True(t, resp.Success)

	data := resp.Data.(map[string]any)
	assert.Equal(t, orderID.String(), data["order_id"])
	assert.Equal(t, "invoice-"+orderID.String()+".pdf", data["filename"])
	assert.Equal(t, "application/pdf", data["content_type"])
	assert.Equal(t, "base64", data["encoding"])
	assert.Equal(t, printing.EncodeBase64(testPDF), data["content"])
	assert.Equal(t, float64(len(testPDF)), data["size"])
	assert.Equal(t, "6.00", data["grand_total"])
	assert.Equal(t, float64(2), data["rows"])
	assert.Equal(t, float64(1), data["fallback_rows"])

	decoded, err := printing.DecodeBase64(data["content"].(string))
	require.NoError(t, err)
	assert.Equal(t, testPDF, decoded)
	gen.AssertExpectations(t)
}

func TestInvoiceHandler_DownloadInvoice(t *testing.T) {
	orderID := uuid.New()
	gen := new(MockInvoiceGenerator)
	gen.On("GenerateInvoice", mock.Anything, orderID).Return(sampleInvoice(orderID), nil)

	w := get(newInvoiceRouter(gen), "/api/v1/orders/"+orderID.String()+"/invoice/download")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="invoice-`+orderID.String()+`.pdf"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "2", w.Header().Get("X-Invoice-Rows"))
	assert.Equal(t, "1", w.Header().Get("X-Invoice-Fallback-Rows"))
	assert.Equal(t, testPDF, w.Body.Bytes())
}

func TestInvoiceHandler_MalformedID(t *testing.T) {
	gen := new(MockInvoiceGenerator)
	engine := newInvoiceRouter(gen)

	for _, path := range []string{
		"/api/v1/orders/not-a-uuid/invoice",
		"/api/v1/orders/123/invoice/download",
	} {
		w := get(engine, path)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeBadRequest, resp.Error.Code)
		assert.NotEmpty(t, resp.Error.RequestID)
	}
	gen.AssertNotCalled(t, "GenerateInvoice", mock.Anything, mock.Anything)
}

func TestInvoiceHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", invoicing.ErrOrderNotFound, http.StatusNotFound, dto.ErrCodeOrderNotFound},
		{"invalid order", invoicing.NewInvalidOrderError("invalid order"), http.StatusBadRequest, dto.ErrCodeInvalidOrder},
		{"encoding failed", printing.NewRenderError(printing.ErrCodeEncodingFailed, "failed to encode invoice", nil), http.StatusInternalServerError, dto.ErrCodeEncodingFailed},
		{"render timeout", printing.NewRenderError(printing.ErrCodeRenderTimeout, "invoice generation cancelled", context.DeadlineExceeded), http.StatusGatewayTimeout, dto.ErrCodeRenderTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orderID := uuid.New()
			gen := new(MockInvoiceGenerator)
			gen.On("GenerateInvoice", mock.Anything, orderID).Return(nil, tt.err)
			engine := newInvoiceRouter(gen)

			for _, suffix := range []string{"/invoice", "/invoice/download"} {
				w := get(engine, "/api/v1/orders/"+orderID.String()+suffix)
				assert.Equal(t, tt.status, w.Code)
				assert.Empty(t, w.Header().Get("Content-Disposition"))
				resp := decodeResponse(t, w)
				assert.False(t, resp.Success)
				assert.Equal(t, tt.code, resp.Error.Code)
			}
		})
	}
}
