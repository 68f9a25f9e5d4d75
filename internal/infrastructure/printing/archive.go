package printing

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ArchiveStorage keeps copies of generated invoices
type ArchiveStorage interface {
	// Archive saves an invoice and returns where it was put
	Archive(ctx context.Context, req *ArchiveRequest) (*ArchiveResult, error)
	// Get retrieves an archived invoice by key
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes an archived invoice
	Delete(ctx context.Context, key string) error
}

// ArchiveRequest contains the parameters for archiving an invoice
type ArchiveRequest struct {
	OrderID uuid.UUID
	// CreatedAt of the order, used to partition archives by month
	CreatedAt time.Time
	PDFData   []byte
}

// Validate checks the request before anything is written
func (r *ArchiveRequest) Validate() error {
	if r == nil {
		return NewRenderError(ErrCodeStorageFailed, "archive request is nil", nil)
	}
	if r.OrderID == uuid.Nil {
		return NewRenderError(ErrCodeStorageFailed, "order ID is required", nil)
	}
	if len(r.PDFData) == 0 {
		return NewRenderError(ErrCodeStorageFailed, "PDF data is empty", nil)
	}
	return nil
}

// ArchiveResult contains the result of archiving an invoice
type ArchiveResult struct {
	// Key is the storage key, e.g. invoices/2024/03/<order id>.pdf
	Key  string
	Size int64
}

// ArchiveKey returns the slash-separated key of an order's invoice:
// invoices/{year}/{month}/{order_id}.pdf
func ArchiveKey(orderID uuid.UUID, createdAt time.Time) string {
	createdAt = createdAt.UTC()
	return path.Join(
		"invoices",
		fmt.Sprintf("%d", createdAt.Year()),
		fmt.Sprintf("%02d", createdAt.Month()),
		orderID.String()+".pdf",
	)
}

// FileSystemArchiveConfig contains configuration for file system archives
type FileSystemArchiveConfig struct {
	// BasePath is the root directory
	// Default: /data/invoices
	BasePath string
	Logger   *zap.Logger
}

// FileSystemArchive stores invoices on the local file system
type FileSystemArchive struct {
	basePath string
	logger   *zap.Logger
}

// NewFileSystemArchive creates a new file system archive
func NewFileSystemArchive(config *FileSystemArchiveConfig) (*FileSystemArchive, error) {
	if config == nil {
		config = &FileSystemArchiveConfig{}
	}
	basePath := config.BasePath
	if basePath == "" {
		basePath = "/data/invoices"
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, NewRenderError(ErrCodeStorageFailed,
			fmt.Sprintf("failed to create archive directory: %s", basePath), err)
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &FileSystemArchive{
		basePath: basePath,
		logger:   logger,
	}, nil
}

// Archive writes the invoice under {base}/invoices/{year}/{month}/{order_id}.pdf.
// Writing the same order again replaces the previous file.
func (a *FileSystemArchive) Archive(ctx context.Context, req *ArchiveRequest) (*ArchiveResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewRenderError(ErrCodeStorageFailed, "operation cancelled", err)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	key := ArchiveKey(req.OrderID, req.CreatedAt)
	fullPath := filepath.Join(a.basePath, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, NewRenderError(ErrCodeStorageFailed, "failed to create directory", err)
	}

	// write then rename so readers never see a partial file
	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".invoice-*")
	if err != nil {
		return nil, NewRenderError(ErrCodeStorageFailed, "failed to create temp file", err)
	}
	if _, err := tmp.Write(req.PDFData); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, NewRenderError(ErrCodeStorageFailed, "failed to write PDF file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, NewRenderError(ErrCodeStorageFailed, "failed to write PDF file", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		os.Remove(tmp.Name())
		return nil, NewRenderError(ErrCodeStorageFailed, "failed to move PDF file", err)
	}

	a.logger.Info("Invoice archived",
		zap.String("path", fullPath),
		zap.Int("size", len(req.PDFData)))

	return &ArchiveResult{
		Key:  key,
		Size: int64(len(req.PDFData)),
	}, nil
}

// Get opens an archived invoice by its key
func (a *FileSystemArchive) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewRenderError(ErrCodeStorageFailed, "operation cancelled", err)
	}

	fullPath, err := a.resolve(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewRenderError(ErrCodeStorageFailed, "invoice not found", err)
		}
		return nil, NewRenderError(ErrCodeStorageFailed, "failed to open PDF file", err)
	}
	return file, nil
}

// Delete removes an archived invoice. Missing files are not an error.
func (a *FileSystemArchive) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return NewRenderError(ErrCodeStorageFailed, "operation cancelled", err)
	}

	fullPath, err := a.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return NewRenderError(ErrCodeStorageFailed, "failed to delete PDF file", err)
	}

	a.logger.Info("Archived invoice deleted", zap.String("key", key))
	return nil
}

// resolve maps a key onto a path under the base directory, rejecting traversal
func (a *FileSystemArchive) resolve(key string) (string, error) {
	cleanPath := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(cleanPath) || containsDotDot(key) {
		a.logger.Warn("blocked potentially malicious path",
			zap.String("key", key),
			zap.String("cleanPath", cleanPath))
		return "", NewRenderError(ErrCodeStorageFailed, "invalid path", nil)
	}

	fullPath := filepath.Join(a.basePath, cleanPath)

	absBase, err := filepath.Abs(a.basePath)
	if err != nil {
		return "", NewRenderError(ErrCodeStorageFailed, "failed to resolve base path", err)
	}
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", NewRenderError(ErrCodeStorageFailed, "failed to resolve file path", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		a.logger.Warn("path escape attempt blocked",
			zap.String("key", key),
			zap.String("absPath", absPath),
			zap.String("absBase", absBase))
		return "", NewRenderError(ErrCodeStorageFailed, "invalid path", nil)
	}
	return fullPath, nil
}

// containsDotDot checks if a path contains ".." components
func containsDotDot(p string) bool {
	parts := strings.FieldsFunc(p, func(r rune) bool {
		return r == '/' || r == '\\' || r == filepath.Separator
	})
	return slices.Contains(parts, "..")
}

// Ensure FileSystemArchive implements ArchiveStorage
var _ ArchiveStorage = (*FileSystemArchive)(nil)
