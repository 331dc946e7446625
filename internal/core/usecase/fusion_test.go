package usecase

import (
	"reflect"
	"testing"

	"github.com/kirillkom/knou-assistant/internal/core/domain"
)

func scenarioRanks() []domain.StrategyRanks {
	return []domain.StrategyRanks{
		{Name: "semantic", Ranks: map[string]int{"A": 1, "B": 2}, Weight: semanticWeight},
		{Name: "lexical", Ranks: map[string]int{"B": 1, "C": 2}, Weight: lexicalWeight},
	}
}

func TestFuseRRFWeightedScenario(t *testing.T) {
	fused := FuseRRF(scenarioRanks(), 60)
	if len(fused) != 3 {
		t.Fatalf("expected 3 fused candidates, got %d", len(fused))
	}

	k := 60.0
	wantOrder := []string{"B", "C", "A"}
	wantScores := map[string]float64{
		"A": 1.0 / (k + 1),
		"B": 1.0/(k+2) + 2.0/(k+1),
		"C": 2.0 / (k + 2),
	}
	for i, f := range fused {
		if f.DocumentID != wantOrder[i] {
			t.Fatalf("expected %s at position %d, got %s", wantOrder[i], i, f.DocumentID)
		}
		if f.Score != wantScores[f.DocumentID] {
			t.Fatalf("expected score %.10f for %s, got %.10f", wantScores[f.DocumentID], f.DocumentID, f.Score)
		}
	}
}

func TestFuseRRFIsIdempotent(t *testing.T) {
	lists := []domain.StrategyRanks{
		{Ranks: map[string]int{"d1": 3, "d2": 1, "d3": 2, "d4": 7}, Weight: 1.0},
		{Ranks: map[string]int{"d4": 1, "d2": 4, "d5": 2}, Weight: 2.0},
	}

	first := FuseRRF(lists, 60)
	second := FuseRRF(lists, 60)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical fusion output, got %v and %v", first, second)
	}
}

func TestFuseRRFRankMonotonicity(t *testing.T) {
	for _, weight := range []float64{0.5, 1.0, 2.0} {
		top := FuseRRF([]domain.StrategyRanks{{Ranks: map[string]int{"x": 1}, Weight: weight}}, 60)
		second := FuseRRF([]domain.StrategyRanks{{Ranks: map[string]int{"x": 2}, Weight: weight}}, 60)
		if top[0].Score <= second[0].Score {
			t.Fatalf("expected rank 1 to outscore rank 2 at weight %v, got %v <= %v", weight, top[0].Score, second[0].Score)
		}
	}
}

func TestFuseRRFTieBreakByDocumentID(t *testing.T) {
	lists := []domain.StrategyRanks{
		{Ranks: map[string]int{"doc-b": 1}, Weight: 1.0},
		{Ranks: map[string]int{"doc-a": 1}, Weight: 1.0},
	}

	fused := FuseRRF(lists, 1000)
	if fused[0].DocumentID != "doc-a" {
		t.Fatalf("expected tie-break by document id, got first=%s", fused[0].DocumentID)
	}
}

func TestFuseRRFDefaultsK(t *testing.T) {
	fused := FuseRRF([]domain.StrategyRanks{{Ranks: map[string]int{"x": 1}, Weight: 1.0}}, 0)
	if fused[0].Score != 1.0/61 {
		t.Fatalf("expected default k=60, got score %v", fused[0].Score)
	}
}

func TestMergeBestRankKeepsLowestRank(t *testing.T) {
	merged := make(map[string]int)
	mergeBestRank(merged, []string{"x", "y", "doc"})
	mergeBestRank(merged, []string{"doc"})
	mergeBestRank(merged, []string{"a", "b", "c", "d", "doc"})

	if merged["doc"] != 1 {
		t.Fatalf("expected merged rank 1, got %d", merged["doc"])
	}
	if merged["y"] != 2 {
		t.Fatalf("expected y to keep rank 2, got %d", merged["y"])
	}
}
