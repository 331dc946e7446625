package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/kirillkom/knou-assistant/internal/core/domain"
)

// CSVLoader reads crawler exports. A UTF-8 byte order mark is accepted.
type CSVLoader struct{}

func (CSVLoader) Load(ctx context.Context, path string, docType domain.DocumentType) ([]domain.SourceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read csv", err)
	}
	return recordsFromRows(rows, docType)
}
