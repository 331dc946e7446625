package source

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kirillkom/knou-assistant/internal/core/domain"
	"github.com/kirillkom/knou-assistant/internal/core/ports"
)

// ForPath picks a loader by file extension.
func ForPath(path string) (ports.SourceLoader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return CSVLoader{}, nil
	case ".xlsx":
		return XLSXLoader{}, nil
	case ".pdf":
		return PDFLoader{}, nil
	case ".txt", ".md":
		return TextLoader{}, nil
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "select loader", fmt.Errorf("unsupported source file %q", filepath.Base(path)))
	}
}

// Loader dispatches every call by the path's extension.
type Loader struct{}

func NewLoader() *Loader {
	return &Loader{}
}

func (l *Loader) Load(ctx context.Context, path string, docType domain.DocumentType) ([]domain.SourceRecord, error) {
	loader, err := ForPath(path)
	if err != nil {
		return nil, err
	}
	return loader.Load(ctx, path, docType)
}
