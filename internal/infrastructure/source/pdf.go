package source

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/knou-assistant/internal/core/domain"
)

// PDFLoader turns one attachment into one record titled after the file.
type PDFLoader struct{}

func (PDFLoader) Load(ctx context.Context, path string, docType domain.DocumentType) ([]domain.SourceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}
	raw, err := io.ReadAll(plain)
	if err != nil {
		return nil, fmt.Errorf("read pdf text: %w", err)
	}

	content := strings.TrimSpace(string(raw))
	if content == "" {
		return []domain.SourceRecord{}, nil
	}
	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return []domain.SourceRecord{{
		ID:      title,
		Type:    docType,
		Title:   title,
		Content: content,
		URL:     path,
	}}, nil
}
