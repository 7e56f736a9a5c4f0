// Package analysis extracts the product on the current page and asks
// the backend for a fairness verdict. Everything here is opportunistic:
// extraction failure, network failure, or a malformed response all
// degrade to "no advisory", never to a visible error.
package analysis

// Recommendation verdicts returned by the analysis endpoint.
const (
	RecommendBuy   = "BUY"
	RecommendWait  = "WAIT"
	RecommendAvoid = "AVOID"
)

// Product is what extraction recovers from the page.
type Product struct {
	Name  string  `json:"productName"`
	Price float64 `json:"price"`
}

// Result is the analysis endpoint's verdict. Read-only to the engine.
type Result struct {
	Recommendation string   `json:"recommendation"`
	Reasoning      string   `json:"reasoning"`
	FairPrice      *float64 `json:"fairPrice,omitempty"`
}
