package source

import (
	"fmt"
	"strings"

	"github.com/kirillkom/knou-assistant/internal/core/domain"
)

const byteOrderMark = "\ufeff"

// columns maps lower-cased header names to their position.
type columns map[string]int

func parseHeader(header []string) columns {
	out := make(columns, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, byteOrderMark)
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, ok := out[name]; !ok {
			out[name] = i
		}
	}
	return out
}

func (c columns) value(row []string, name string) string {
	idx, ok := c[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func requiredColumns(docType domain.DocumentType) []string {
	if docType == domain.TypeSchedule {
		return []string{"date", "content"}
	}
	return []string{"title", "date", "content"}
}

// recordsFromRows converts a header plus data rows into source records.
// Blank rows are skipped.
func recordsFromRows(rows [][]string, docType domain.DocumentType) ([]domain.SourceRecord, error) {
	if len(rows) == 0 {
		return []domain.SourceRecord{}, nil
	}
	cols := parseHeader(rows[0])
	for _, name := range requiredColumns(docType) {
		if _, ok := cols[name]; !ok {
			return nil, domain.WrapError(domain.ErrInvalidInput, "read header", fmt.Errorf("missing column %q", name))
		}
	}

	out := make([]domain.SourceRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		record := domain.SourceRecord{
			ID:      cols.value(row, "id"),
			Type:    docType,
			Title:   cols.value(row, "title"),
			Date:    cols.value(row, "date"),
			Content: cols.value(row, "content"),
			URL:     cols.value(row, "url"),
		}
		if record.ID == "" {
			record.ID = fmt.Sprintf("%d", i+1)
		}
		out = append(out, record)
	}
	return out, nil
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
