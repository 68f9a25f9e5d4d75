package invoicing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	domain "github.com/erp/invoicer/internal/domain/invoicing"
	"github.com/erp/invoicer/internal/domain/shared"
	"github.com/erp/invoicer/internal/infrastructure/logger"
	"github.com/erp/invoicer/internal/infrastructure/printing"
	"github.com/erp/invoicer/internal/infrastructure/telemetry"
)

// DocumentCache stores rendered invoices by key
type DocumentCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// archiveLinker is an archive that can hand out time-limited download links
type archiveLinker interface {
	PresignDownload(ctx context.Context, key string) (string, time.Time, error)
}

// ServiceOption configures an InvoiceService
type ServiceOption func(*InvoiceService)

// WithCache enables the document cache. A nil cache or a non-positive ttl leaves it disabled.
func WithCache(cache DocumentCache, ttl time.Duration) ServiceOption {
	return func(s *InvoiceService) {
		if cache == nil || ttl <= 0 {
			return
		}
		s.cache = cache
		s.cacheTTL = ttl
	}
}

// WithArchive keeps a copy of every generated invoice
func WithArchive(archive printing.ArchiveStorage) ServiceOption {
	return func(s *InvoiceService) {
		s.archive = archive
	}
}

// WithMetrics records generation metrics
func WithMetrics(metrics *telemetry.InvoiceMetrics) ServiceOption {
	return func(s *InvoiceService) {
		s.metrics = metrics
	}
}

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) ServiceOption {
	return func(s *InvoiceService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// InvoiceService resolves orders and turns them into invoice documents
type InvoiceService struct {
	orders   domain.OrderRepository
	renderer printing.InvoiceRenderer
	cache    DocumentCache
	cacheTTL time.Duration
	archive  printing.ArchiveStorage
	metrics  *telemetry.InvoiceMetrics
	group    singleflight.Group
	logger   *zap.Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(orders domain.OrderRepository, renderer printing.InvoiceRenderer, opts ...ServiceOption) *InvoiceService {
	s := &InvoiceService{
		orders:   orders,
		renderer: renderer,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type generation struct {
	doc       *printing.Document
	cached    bool
	key       string
	url       string
	expiresAt time.Time
}

// GenerateInvoice renders the invoice of an order. Only a resolution, validation
// or rendering failure is returned; cache and archive problems are logged.
func (s *InvoiceService) GenerateInvoice(ctx context.Context, orderID uuid.UUID) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "generate",
		telemetry.WithAttribute(telemetry.SpanAttrOrderID, orderID.String()),
	)
	defer span.End()
	ctx, _ = logger.WithOrderID(ctx, s.requestLogger(ctx), orderID.String())

	start := time.Now()

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordGeneration(ctx, time.Since(start), errorCode(err))
		return nil, err
	}
	if err := order.Validate(); err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordGeneration(ctx, time.Since(start), errorCode(err))
		return nil, err
	}

	key, err := CacheKey(order)
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint order: %w", err)
	}

	// Joined callers share this flight, so it must outlive any single caller's request.
	flightCtx := context.WithoutCancel(ctx)
	v, err, joined := s.group.Do(key, func() (any, error) {
		return s.generate(flightCtx, order, key)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordGeneration(ctx, time.Since(start), errorCode(err))
		return nil, err
	}
	result := v.(*generation)

	s.metrics.RecordGeneration(ctx, time.Since(start), "")
	telemetry.SetAttributes(span,
		telemetry.SpanAttrCacheHit, result.cached,
		telemetry.SpanAttrFallbackRows, result.doc.FallbackRows(),
		telemetry.SpanAttrArchiveKey, result.key,
		"joined", joined,
	)
	telemetry.SetOK(span)

	resp := ToInvoiceResponse(result.doc)
	resp.Cached = result.cached
	resp.ArchiveKey = result.key
	if result.url != "" {
		resp.ArchiveURL = result.url
		expiresAt := result.expiresAt
		resp.ArchiveURLExpiresAt = &expiresAt
	}
	return resp, nil
}

func (s *InvoiceService) generate(ctx context.Context, order *domain.Order, key string) (*generation, error) {
	if doc, ok := s.lookup(ctx, order, key); ok {
		return &generation{doc: doc, cached: true}, nil
	}

	doc, err := s.renderer.Generate(ctx, order)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordFallbacks(ctx, doc.FallbackRows())

	// Placeholders come from a failed fetch; the next call should try the images again.
	if doc.FallbackRows() == 0 {
		s.store(ctx, key, doc)
	}
	result := &generation{doc: doc, key: s.archiveDocument(ctx, order, doc)}
	result.url, result.expiresAt = s.downloadLink(ctx, result.key)
	return result, nil
}

func (s *InvoiceService) lookup(ctx context.Context, order *domain.Order, key string) (*printing.Document, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, found, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.L(ctx).Warn("Invoice cache lookup failed", zap.Error(err))
		return nil, false
	}
	s.metrics.RecordCacheLookup(ctx, found)
	if !found {
		return nil, false
	}

	var entry cachedDocument
	if err := json.Unmarshal(data, &entry); err != nil || len(entry.PDF) == 0 {
		logger.L(ctx).Warn("Discarding unreadable cached invoice", zap.Error(err))
		return nil, false
	}
	return entry.toDocument(order.ID), true
}

func (s *InvoiceService) store(ctx context.Context, key string, doc *printing.Document) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(fromDocument(doc))
	if err == nil {
		err = s.cache.Set(ctx, key, data, s.cacheTTL)
	}
	if err != nil {
		logger.L(ctx).Warn("Failed to cache invoice", zap.Error(err))
	}
}

func (s *InvoiceService) archiveDocument(ctx context.Context, order *domain.Order, doc *printing.Document) string {
	if s.archive == nil {
		return ""
	}
	result, err := s.archive.Archive(ctx, &printing.ArchiveRequest{
		OrderID:   order.ID,
		CreatedAt: order.CreatedAt,
		PDFData:   doc.Bytes(),
	})
	if err != nil {
		logger.L(ctx).Error("Failed to archive invoice", zap.Error(err))
		return ""
	}
	return result.Key
}

// downloadLink presigns an archived invoice when the archive supports it
func (s *InvoiceService) downloadLink(ctx context.Context, key string) (string, time.Time) {
	linker, ok := s.archive.(archiveLinker)
	if !ok || key == "" {
		return "", time.Time{}
	}
	url, expiresAt, err := linker.PresignDownload(ctx, key)
	if err != nil {
		logger.L(ctx).Warn("Failed to create invoice download link", zap.String("archive_key", key), zap.Error(err))
		return "", time.Time{}
	}
	return url, expiresAt
}

// requestLogger is the service logger tagged with the request id of ctx, if any
func (s *InvoiceService) requestLogger(ctx context.Context) *zap.Logger {
	if id := logger.GetRequestID(ctx); id != "" {
		return s.logger.With(zap.String("request_id", id))
	}
	return s.logger
}

// CacheKey identifies the rendered invoice of an order's current content:
// invoice:<order id>:<sha256 of the order JSON>
func CacheKey(order *domain.Order) (string, error) {
	data, err := json.Marshal(order)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return "invoice:" + order.ID.String() + ":" + hex.EncodeToString(sum[:]), nil
}

// errorCode classifies err for metrics
func errorCode(err error) string {
	var renderErr *printing.RenderError
	if errors.As(err, &renderErr) {
		return renderErr.Code
	}
	if code := shared.CodeOf(err); code != "" {
		return code
	}
	return "INTERNAL_ERROR"
}
