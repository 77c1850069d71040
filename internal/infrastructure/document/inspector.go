package document

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"

	"github.com/garyjia/claims-workflow/internal/application/port"
)

// Document kinds reported by the inspector
const (
	KindPDF   = "pdf"
	KindImage = "image"
)

// Inspector implements port.DocumentInspector for files kept under the
// document storage directory. PDFs are opened with mupdf and must contain at
// least one page; images must decode as PNG or JPEG.
type Inspector struct {
	storage port.FileStorage
	logger  *zap.Logger
}

// NewInspector creates a new document inspector
func NewInspector(storage port.FileStorage, logger *zap.Logger) *Inspector {
	return &Inspector{
		storage: storage,
		logger:  logger,
	}
}

// Inspect checks the referenced document and describes it
func (i *Inspector) Inspect(ctx context.Context, path string) (*port.DocumentInfo, error) {
	if err := i.storage.ValidatePath(path); err != nil {
		return nil, fmt.Errorf("%w: %v", port.ErrInvalidDocument, err)
	}
	if !i.storage.Exists(ctx, path) {
		return nil, fmt.Errorf("%w: %s not found", port.ErrInvalidDocument, path)
	}

	fullPath := i.storage.GetFullPath(path)
	stat, err := os.Stat(fullPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", port.ErrInvalidDocument, err)
	}

	info := &port.DocumentInfo{Path: path, SizeBytes: stat.Size()}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pdf":
		pages, err := i.pageCount(fullPath)
		if err != nil {
			return nil, err
		}
		info.Kind = KindPDF
		info.PageCount = pages
	case ".png", ".jpg", ".jpeg":
		if err := i.checkImage(fullPath); err != nil {
			return nil, err
		}
		info.Kind = KindImage
		info.PageCount = 1
	default:
		return nil, fmt.Errorf("%w: unsupported file type %q", port.ErrInvalidDocument, ext)
	}

	i.logger.Debug("Document inspected",
		zap.String("path", path),
		zap.String("kind", info.Kind),
		zap.Int("pages", info.PageCount))

	return info, nil
}

func (i *Inspector) pageCount(fullPath string) (int, error) {
	doc, err := fitz.New(fullPath)
	if err != nil {
		i.logger.Warn("Failed to open PDF", zap.String("path", fullPath), zap.Error(err))
		return 0, fmt.Errorf("%w: failed to open PDF: %v", port.ErrInvalidDocument, err)
	}
	defer doc.Close()

	pages := doc.NumPage()
	if pages < 1 {
		return 0, fmt.Errorf("%w: PDF has no pages", port.ErrInvalidDocument)
	}
	return pages, nil
}

func (i *Inspector) checkImage(fullPath string) error {
	file, err := os.Open(fullPath)
	if err != nil {
		return fmt.Errorf("%w: %v", port.ErrInvalidDocument, err)
	}
	defer file.Close()

	if _, _, err := image.DecodeConfig(file); err != nil {
		return fmt.Errorf("%w: failed to decode image: %v", port.ErrInvalidDocument, err)
	}
	return nil
}
