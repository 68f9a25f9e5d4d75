package printing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const (
	defaultFetchTimeout  = 5 * time.Second
	defaultMaxImageBytes = 5 << 20 // 5MB
	defaultImageDensity  = 2.0     // raster pixels per point
)

// RasterHandle is a decoded product image ready for placement. PNG holds an
// opaque 8-bit RGB re-encoding of the source; Width/Height are its pixel size.
type RasterHandle struct {
	PNG    []byte
	Width  int
	Height int
	Format string
}

// Fit returns the largest width/height in points with the raster's aspect
// ratio that fits a square box of side box.
func (r *RasterHandle) Fit(box float64) (w, h float64) {
	if r == nil || r.Width <= 0 || r.Height <= 0 {
		return box, box
	}
	if r.Width >= r.Height {
		return box, box * float64(r.Height) / float64(r.Width)
	}
	return box * float64(r.Width) / float64(r.Height), box
}

// EmbeddedImage is the outcome of resolving one row's image: either a raster
// handle or, when Raster is nil, a fallback placeholder. Err records why the
// fallback was chosen.
type EmbeddedImage struct {
	Raster *RasterHandle
	Err    error
}

// IsFallback reports whether the row must draw the placeholder box
func (e EmbeddedImage) IsFallback() bool {
	return e.Raster == nil
}

// Fallback creates the placeholder outcome for cause
func Fallback(cause error) EmbeddedImage {
	return EmbeddedImage{Err: cause}
}

// ImageSource resolves product image URLs. Implementations never fail: any
// problem is reported as a fallback.
type ImageSource interface {
	Embed(ctx context.Context, rawURL string) EmbeddedImage
}

// ImageError describes why an image could not be embedded
type ImageError struct {
	URL   string
	Cause error
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("image unavailable (%s): %v", e.URL, e.Cause)
}

func (e *ImageError) Unwrap() error {
	return e.Cause
}

// ImageEmbedderConfig contains configuration for the image embedder
type ImageEmbedderConfig struct {
	// HTTPClient used for fetches (default: otelhttp-instrumented client)
	HTTPClient *http.Client
	// FetchTimeout bounds each individual fetch (default: 5s)
	FetchTimeout time.Duration
	// MaxBytes caps the response body size (default: 5MB)
	MaxBytes int64
	// Footprint is the square box, in points, an image occupies on the page
	Footprint float64
	// Density is the number of raster pixels kept per point of footprint (default: 2)
	Density float64
	// Logger for fetch diagnostics
	Logger *zap.Logger
}

// ImageEmbedder fetches product images over HTTP and turns them into rasters
type ImageEmbedder struct {
	client       *http.Client
	fetchTimeout time.Duration
	maxBytes     int64
	maxPixels    int
	logger       *zap.Logger
}

// NewImageEmbedder creates a new image embedder
func NewImageEmbedder(config *ImageEmbedderConfig) *ImageEmbedder {
	if config == nil {
		config = &ImageEmbedderConfig{}
	}

	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	timeout := config.FetchTimeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	maxBytes := config.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxImageBytes
	}
	footprint := config.Footprint
	if footprint <= 0 {
		footprint = DefaultInvoiceLayout().ImageFootprint
	}
	density := config.Density
	if density <= 0 {
		density = defaultImageDensity
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ImageEmbedder{
		client:       client,
		fetchTimeout: timeout,
		maxBytes:     maxBytes,
		maxPixels:    int(footprint * density),
		logger:       logger,
	}
}

// Embed fetches and decodes the image at rawURL. It never returns an error:
// transport failures, non-2xx responses, oversize bodies and undecodable data
// all produce a fallback.
func (e *ImageEmbedder) Embed(ctx context.Context, rawURL string) EmbeddedImage {
	raster, err := e.fetch(ctx, rawURL)
	if err != nil {
		return Fallback(&ImageError{URL: rawURL, Cause: err})
	}
	return EmbeddedImage{Raster: raster}
}

func (e *ImageEmbedder) fetch(ctx context.Context, rawURL string) (*RasterHandle, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}

	ctx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "image/*")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > e.maxBytes {
		return nil, fmt.Errorf("image larger than %d bytes", e.maxBytes)
	}

	return e.decode(data)
}

// decode turns encoded image bytes into an opaque, downscaled PNG raster
func (e *ImageEmbedder) decode(data []byte) (*RasterHandle, error) {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	bounds := src.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, errors.New("decode: empty image")
	}

	w, h := scaleToFit(bounds.Dx(), bounds.Dy(), e.maxPixels)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(dst, dst.Bounds(), image.White, image.Point{}, xdraw.Src)
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	return &RasterHandle{
		PNG:    buf.Bytes(),
		Width:  w,
		Height: h,
		Format: format,
	}, nil
}

// scaleToFit shrinks w×h to fit within limit×limit keeping the aspect ratio.
// Images already inside the limit keep their size.
func scaleToFit(w, h, limit int) (int, int) {
	if limit <= 0 || (w <= limit && h <= limit) {
		return w, h
	}
	if w >= h {
		return limit, max(1, h*limit/w)
	}
	return max(1, w*limit/h), limit
}

// ResolveImages embeds every url and returns the outcomes in input order.
// With concurrency <= 1 fetches run one after another; otherwise at most
// concurrency fetches are in flight and results are re-joined by index.
func ResolveImages(ctx context.Context, src ImageSource, urls []string, concurrency int) []EmbeddedImage {
	results := make([]EmbeddedImage, len(urls))
	if concurrency <= 1 {
		for i, u := range urls {
			results[i] = embedOrCancel(ctx, src, u)
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, u := range urls {
		g.Go(func() error {
			results[i] = embedOrCancel(ctx, src, u)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func embedOrCancel(ctx context.Context, src ImageSource, rawURL string) EmbeddedImage {
	if err := ctx.Err(); err != nil {
		return Fallback(&ImageError{URL: rawURL, Cause: err})
	}
	return src.Embed(ctx, rawURL)
}

// Ensure ImageEmbedder implements ImageSource
var _ ImageSource = (*ImageEmbedder)(nil)
