// Package intent classifies a normalized chat message into exactly one
// fulfillment intent using an ordered, first-match rule table.
package intent

import "github.com/shopspring/decimal"

// Kind enumerates the closed set of intents.
type Kind int

const (
	GeneralQuery Kind = iota
	ValuesInquiry
	CostLookup
	PriceQuote
	HumanHandoff
	ProductSearch
)

var kindNames = map[Kind]string{
	GeneralQuery:  "general_query",
	ValuesInquiry: "values_inquiry",
	CostLookup:    "cost_lookup",
	PriceQuote:    "price_quote",
	HumanHandoff:  "human_handoff",
	ProductSearch: "product_search",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Intent is the classification of one message together with the fields
// extracted for its fulfillment path.
type Intent struct {
	Kind Kind

	// CostLookup: exactly one of Code or Name is set.
	// PriceQuote: Code is always set.
	Code string
	Name string

	// PriceQuote only. Markup is meaningful only when Err is nil.
	Markup decimal.Decimal
	Err    error

	// ProductSearch only.
	Keywords []string
}
