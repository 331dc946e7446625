package usecase

import (
	"context"
	"sort"
	"strings"

	"github.com/kirillkom/knou-assistant/internal/core/domain"
	"github.com/kirillkom/knou-assistant/internal/core/ports"
)

type DataRangeUseCase struct {
	store ports.DocumentStore
}

func NewDataRangeUseCase(store ports.DocumentStore) *DataRangeUseCase {
	return &DataRangeUseCase{store: store}
}

// DateRange compares raw metadata dates as stored, lexicographically.
func (uc *DataRangeUseCase) DateRange(ctx context.Context) (domain.DateRange, error) {
	docs, err := uc.store.ScanAll(ctx)
	if err != nil {
		return domain.DateRange{}, domain.WrapError(domain.ErrStoreFailure, "scan documents", err)
	}

	seen := make(map[string]struct{})
	for _, doc := range docs {
		if date := strings.TrimSpace(doc.Metadata.Date); date != "" {
			seen[date] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return domain.DateRange{}, domain.ErrNoResults
	}

	dates := make([]string, 0, len(seen))
	for date := range seen {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	return domain.DateRange{
		Latest:     dates[len(dates)-1],
		Oldest:     dates[0],
		TotalDates: len(dates),
	}, nil
}
