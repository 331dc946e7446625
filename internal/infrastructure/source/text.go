package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/knou-assistant/internal/core/domain"
)

// TextLoader reads a UTF-8 text attachment as one record.
type TextLoader struct{}

func (TextLoader) Load(ctx context.Context, path string, docType domain.DocumentType) ([]domain.SourceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read text source: %w", err)
	}
	if !utf8.Valid(raw) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read text source", fmt.Errorf("%s is not valid UTF-8", filepath.Base(path)))
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
