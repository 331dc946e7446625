package usecase

import (
	"strings"

	"github.com/kirillkom/knou-assistant/internal/core/domain"
)

// QueryInterpreter classifies queries and derives the lexical search inputs.
// All matching is driven by the vocabulary; nothing is hard-coded here.
type QueryInterpreter struct {
	dates *DateNormalizer
	vocab domain.Vocabulary
}

func NewQueryInterpreter(dates *DateNormalizer, vocab domain.Vocabulary) *QueryInterpreter {
	return &QueryInterpreter{dates: dates, vocab: vocab}
}

func (qi *QueryInterpreter) Classify(query string) domain.QueryIntent {
	if date, ok := qi.dates.ExtractFromQuery(query); ok {
		return domain.QueryIntent{Kind: domain.IntentSpecificDate, Date: date}
	}
	lower := strings.ToLower(query)
	for _, keyword := range qi.vocab.LatestKeywords {
		if keyword != "" && strings.Contains(lower, strings.ToLower(keyword)) {
			return domain.QueryIntent{Kind: domain.IntentLatest}
		}
	}
	return domain.QueryIntent{Kind: domain.IntentGeneral}
}

// Normalize appends the formal term next to every informal one. Conditions are
// checked against the original query; replacements accumulate.
func (qi *QueryInterpreter) Normalize(query string) string {
	out := query
	for _, rule := range qi.vocab.Synonyms {
		if rule.Informal == "" || rule.Formal == "" {
			continue
		}
		if strings.Contains(query, rule.Informal) && !strings.Contains(query, rule.Formal) {
			out = strings.ReplaceAll(out, rule.Informal, rule.Informal+" "+rule.Formal)
		}
	}
	return out
}

func (qi *QueryInterpreter) ExpandKeywords(query string) map[string]struct{} {
	lower := strings.ToLower(query)
	out := make(map[string]struct{})
	for _, token := range strings.Fields(lower) {
		out[token] = struct{}{}
	}

	for _, cluster := range qi.vocab.Clusters {
		if !containsAny(lower, cluster.Triggers) {
			continue
		}
		for _, term := range cluster.Terms {
			out[strings.ToLower(term)] = struct{}{}
		}
	}
	return out
}

func (qi *QueryInterpreter) ExactPhrases(query string) []string {
	lower := strings.ToLower(query)
	var out []string
	for _, phrase := range qi.vocab.Phrases {
		p := strings.ToLower(phrase)
		if p != "" && strings.Contains(lower, p) {
			out = append(out, p)
		}
	}
	return out
}

func containsAny(text string, needles []string) bool {
	for _, needle := range needles {
		if needle != "" && strings.Contains(text, strings.ToLower(needle)) {
			return true
		}
	}
	return false
}
