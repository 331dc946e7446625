package usecase

import (
	"sort"

	"github.com/kirillkom/knou-assistant/internal/core/domain"
)

const (
	defaultRRFK    = 60
	semanticWeight = 1.0
	lexicalWeight  = 2.0
)

// FuseRRF merges strategy rank lists with weighted reciprocal rank fusion.
// Lists are summed in the given order and ids in sorted order, so identical
// input always yields bit-identical scores.
func FuseRRF(lists []domain.StrategyRanks, rrfK int) []domain.FusedScore {
	if rrfK <= 0 {
		rrfK = defaultRRFK
	}

	acc := make(map[string]float64)
	for _, list := range lists {
		for _, id := range sortedIDs(list.Ranks) {
			rank := list.Ranks[id]
			if rank <= 0 {
				continue
			}
			acc[id] += list.Weight / float64(rrfK+rank)
		}
	}

	out := make([]domain.FusedScore, 0, len(acc))
	for id, score := range acc {
		out = append(out, domain.FusedScore{DocumentID: id, Score: score})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].DocumentID < out[j].DocumentID
	})
	return out
}

// mergeBestRank keeps the lowest rank seen for each id.
func mergeBestRank(dst map[string]int, ids []string) {
	for idx, id := range ids {
		rank := idx + 1
		if current, ok := dst[id]; !ok || rank < current {
			dst[id] = rank
		}
	}
}

func sortedIDs(ranks map[string]int) []string {
	ids := make([]string, 0, len(ranks))
	for id := range ranks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func trimCandidates[T any](items []T, limit int) []T {
	if limit <= 0 || len(items) <= limit {
		return items
	}
	return items[:limit]
}
