package usecase

import (
	"sort"
	"strings"

	"github.com/kirillkom/knou-assistant/internal/core/domain"
)

const (
	titleTermWeight  = 5
	titlePhraseBonus = 10
)

type lexicalHit struct {
	id    string
	score int
}

// LexicalRetriever scores documents by keyword and phrase overlap over a full
// scan. Title matches dominate body matches.
type LexicalRetriever struct{}

func NewLexicalRetriever() *LexicalRetriever {
	return &LexicalRetriever{}
}

// Rank returns 1-based ranks for every document with a positive score. Equal
// scores keep scan order.
func (r *LexicalRetriever) Rank(docs []domain.Document, keywords map[string]struct{}, phrases []string) map[string]int {
	terms := sortedTerms(keywords)

	hits := make([]lexicalHit, 0, len(docs))
	for _, doc := range docs {
		score := lexicalScore(doc, terms, phrases)
		if score > 0 {
			hits = append(hits, lexicalHit{id: doc.ID, score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})

	ranks := make(map[string]int, len(hits))
	for idx, hit := range hits {
		if _, ok := ranks[hit.id]; !ok {
			ranks[hit.id] = idx + 1
		}
	}
	return ranks
}

func lexicalScore(doc domain.Document, terms, phrases []string) int {
	body := strings.ToLower(doc.Text)
	title := strings.ToLower(doc.Metadata.Title)

	bodyHits, titleHits := 0, 0
	for _, term := range terms {
		if strings.Contains(body, term) {
			bodyHits++
		}
		if title != "" && strings.Contains(title, term) {
			titleHits++
		}
	}

	score := bodyHits + titleTermWeight*titleHits
	if title != "" {
		for _, phrase := range phrases {
			if strings.Contains(title, strings.ToLower(phrase)) {
				score += titlePhraseBonus
				break
			}
		}
	}
	return score
}

func sortedTerms(keywords map[string]struct{}) []string {
	terms := make([]string, 0, len(keywords))
	for term := range keywords {
		if term == "" {
			continue
		}
		terms = append(terms, strings.ToLower(term))
	}
	sort.Strings(terms)
	return terms
}
