package domain

type IntentKind int

const (
	IntentGeneral IntentKind = iota
	IntentLatest
	IntentSpecificDate
)

func (k IntentKind) String() string {
	switch k {
	case IntentLatest:
		return "latest"
	case IntentSpecificDate:
		return "specific_date"
	default:
		return "general"
	}
}

func (k IntentKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// QueryIntent drives the orchestrator branch. Date is set only for
// IntentSpecificDate.
type QueryIntent struct {
	Kind IntentKind   `json:"kind"`
	Date CalendarDate `json:"date,omitzero"`
}

// StrategyRanks is one retrieval strategy's rank list. Ranks start at 1.
type StrategyRanks struct {
	Name   string
	Ranks  map[string]int
	Weight float64
}

type FusedScore struct {
	DocumentID string
	Score      float64
}

type SearchPath string

const (
	PathLatest SearchPath = "latest"
	PathDate   SearchPath = "date"
	PathHybrid SearchPath = "hybrid"
)

type ResultItem struct {
	Document Document `json:"document"`
	Score    float64  `json:"score,omitempty"`
}

type SearchResult struct {
	Query  string       `json:"query"`
	Intent QueryIntent  `json:"intent"`
	Path   SearchPath   `json:"path"`
	Items  []ResultItem `json:"items"`
}

func (r SearchResult) Documents() []Document {
	out := make([]Document, 0, len(r.Items))
	for _, item := range r.Items {
		out = append(out, item.Document)
	}
	return out
}
