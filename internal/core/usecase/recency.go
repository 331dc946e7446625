package usecase

import (
	"sort"

	"github.com/kirillkom/knou-assistant/internal/core/domain"
)

const noDateWeight = 0.3

var recencyBands = []struct {
	maxDays int
	weight  float64
}{
	{maxDays: 7, weight: 1.5},
	{maxDays: 30, weight: 1.2},
	{maxDays: 90, weight: 1.0},
	{maxDays: 180, weight: 0.7},
	{maxDays: 365, weight: 0.5},
}

// RecencyWeight decays with the absolute day distance from reference.
func RecencyWeight(docDate domain.CalendarDate, hasDate bool, reference domain.CalendarDate) float64 {
	if !hasDate {
		return noDateWeight
	}
	days := docDate.DaysBetween(reference)
	for _, band := range recencyBands {
		if days <= band.maxDays {
			return band.weight
		}
	}
	return noDateWeight
}

type rankedCandidate struct {
	doc     domain.Document
	score   float64
	date    domain.CalendarDate
	hasDate bool
}

// candidateLess is the single ordering policy. Latest queries order by date
// first, with undated documents oldest; everything else orders by score.
func candidateLess(intent domain.IntentKind) func(a, b rankedCandidate) bool {
	return func(a, b rankedCandidate) bool {
		if intent == domain.IntentLatest {
			if c := compareOptionalDate(a, b); c != 0 {
				return c > 0
			}
		}
		return a.score > b.score
	}
}

func compareOptionalDate(a, b rankedCandidate) int {
	switch {
	case a.hasDate && b.hasDate:
		return a.date.Compare(b.date)
	case a.hasDate:
		return 1
	case b.hasDate:
		return -1
	default:
		return 0
	}
}

// RankCandidates reweights fused scores by recency and orders them. Input
// order is the fusion order and survives full ties.
func RankCandidates(
	fused []domain.FusedScore,
	docs map[string]domain.Document,
	dates *DateNormalizer,
	intent domain.IntentKind,
) []domain.ResultItem {
	today := dates.Today()

	candidates := make([]rankedCandidate, 0, len(fused))
	for _, f := range fused {
		doc, ok := docs[f.DocumentID]
		if !ok {
			continue
		}
		date, hasDate := dates.Parse(doc.Metadata.Date)
		candidates = append(candidates, rankedCandidate{
			doc:     doc,
			score:   f.Score * RecencyWeight(date, hasDate, today),
			date:    date,
			hasDate: hasDate,
		})
	}

	less := candidateLess(intent)
	sort.SliceStable(candidates, func(i, j int) bool {
		return less(candidates[i], candidates[j])
	})

	out := make([]domain.ResultItem, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, domain.ResultItem{Document: c.doc, Score: c.score})
	}
	return out
}
