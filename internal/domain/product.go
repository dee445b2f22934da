package domain

import "github.com/shopspring/decimal"

// Product is a catalog entry. Cost is nil when the catalog has no usable
// value for it; callers must not treat a nil cost as zero.
type Product struct {
	Code        string           `json:"code" yaml:"code"`
	Description string           `json:"description" yaml:"description"`
	Cost        *decimal.Decimal `json:"cost,omitempty" yaml:"cost,omitempty"`
}

// HasCost reports whether the product carries a valid, positive cost.
func (p Product) HasCost() bool {
	return p.Cost != nil && p.Cost.IsPositive()
}

// Snippet is a single web search hit.
type Snippet struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}
