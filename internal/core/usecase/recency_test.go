package usecase

import (
	"testing"
	"time"

	"github.com/kirillkom/knou-assistant/internal/core/domain"
)

func TestRecencyWeightBands(t *testing.T) {
	ref := domain.CalendarDate{Year: 2025, Month: time.July, Day: 20}

	cases := []struct {
		offset int
		want   float64
	}{
		{offset: 0, want: 1.5},
		{offset: -7, want: 1.5},
		{offset: 7, want: 1.5},
		{offset: -8, want: 1.2},
		{offset: -30, want: 1.2},
		{offset: -31, want: 1.0},
		{offset: 90, want: 1.0},
		{offset: -91, want: 0.7},
		{offset: -180, want: 0.7},
		{offset: -181, want: 0.5},
		{offset: -365, want: 0.5},
		{offset: -366, want: 0.3},
	}
	for _, tc := range cases {
		if got := RecencyWeight(ref.AddDays(tc.offset), true, ref); got != tc.want {
			t.Fatalf("expected weight %v at offset %d, got %v", tc.want, tc.offset, got)
		}
	}
	if got := RecencyWeight(domain.CalendarDate{}, false, ref); got != 0.3 {
		t.Fatalf("expected weight 0.3 for missing date, got %v", got)
	}
}

func rankingDocs() map[string]domain.Document {
	return map[string]domain.Document{
		"old":     {ID: "old", Metadata: domain.Metadata{Date: "2025-01-10"}},
		"recent":  {ID: "recent", Metadata: domain.Metadata{Date: "2025-07-18"}},
		"undated": {ID: "undated"},
	}
}

func TestRankCandidatesRecencyMonotonicity(t *testing.T) {
	dates := NewDateNormalizer(fixedClock(2025, time.July, 20), 2025)
	fused := []domain.FusedScore{
		{DocumentID: "old", Score: 0.05},
		{DocumentID: "undated", Score: 0.05},
		{DocumentID: "recent", Score: 0.05},
	}

	ranked := RankCandidates(fused, rankingDocs(), dates, domain.IntentGeneral)
	if got := resultIDs(ranked); got != "recent,old,undated" {
		t.Fatalf("expected recent first at equal fused score, got %s", got)
	}
}

func TestRankCandidatesGeneralOrdersByWeightedScore(t *testing.T) {
	dates := NewDateNormalizer(fixedClock(2025, time.July, 20), 2025)
	fused := []domain.FusedScore{
		{DocumentID: "old", Score: 0.10},
		{DocumentID: "recent", Score: 0.05},
	}

	ranked := RankCandidates(fused, rankingDocs(), dates, domain.IntentGeneral)
	// old: 0.10 * 0.5 = 0.05, recent: 0.05 * 1.5 = 0.075
	if got := resultIDs(ranked); got != "recent,old" {
		t.Fatalf("expected recent,old, got %s", got)
	}
	want := fused[1].Score * 1.5
	if ranked[0].Score != want {
		t.Fatalf("expected weighted score %v, got %v", want, ranked[0].Score)
	}
}

func TestRankCandidatesLatestOrdersByDateFirst(t *testing.T) {
	dates := NewDateNormalizer(fixedClock(2025, time.July, 20), 2025)
	fused := []domain.FusedScore{
		{DocumentID: "undated", Score: 0.9},
		{DocumentID: "old", Score: 0.5},
		{DocumentID: "recent", Score: 0.01},
	}

	ranked := RankCandidates(fused, rankingDocs(), dates, domain.IntentLatest)
	if got := resultIDs(ranked); got != "recent,old,undated" {
		t.Fatalf("expected date-first order, got %s", got)
	}
}

func TestRankCandidatesKeepsFusionOrderOnFullTie(t *testing.T) {
	dates := NewDateNormalizer(fixedClock(2025, time.July, 20), 2025)
	docs := map[string]domain.Document{
		"b": {ID: "b", Metadata: domain.Metadata{Date: "2025-07-19"}},
		"a": {ID: "a", Metadata: domain.Metadata{Date: "2025-07-19"}},
	}
	fused := []domain.FusedScore{{DocumentID: "b", Score: 0.2}, {DocumentID: "a", Score: 0.2}}

	for _, intent := range []domain.IntentKind{domain.IntentGeneral, domain.IntentLatest} {
		ranked := RankCandidates(fused, docs, dates, intent)
		if got := resultIDs(ranked); got != "b,a" {
			t.Fatalf("expected fusion order b,a for %s, got %s", intent, got)
		}
	}
}

func resultIDs(items []domain.ResultItem) string {
	out := ""
	for i, item := range items {
		if i > 0 {
			out += ","
		}
		out += item.Document.ID
	}
	return out
}
