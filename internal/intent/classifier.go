package intent

// rule is one entry of the ordered classification table.
type rule struct {
	kind  Kind
	match func(text string) (Intent, bool)
}

// Classifier selects exactly one Intent per message. The first matching
// rule wins; GeneralQuery is returned when none match.
type Classifier struct {
	rules []rule
}

// NewClassifier builds the rule table. The order here is what resolves
// overlaps: a cost phrase that also says "produto" is a CostLookup.
func NewClassifier(r Rules) *Classifier {
	keyword := func(kind Kind, keywords []string) func(string) (Intent, bool) {
		phrases := make([][]string, 0, len(keywords))
		for _, kw := range keywords {
			phrases = append(phrases, words(kw))
		}
		return func(text string) (Intent, bool) {
			if !containsAny(words(text), phrases) {
				return Intent{}, false
			}
			in := Intent{Kind: kind}
			if kind == ProductSearch {
				in.Keywords = Keywords(text)
			}
			return in, true
		}
	}

	return &Classifier{rules: []rule{
		{ValuesInquiry, keyword(ValuesInquiry, r.Values)},
		{CostLookup, ParseCostLookup},
		{PriceQuote, ParsePriceQuote},
		{HumanHandoff, keyword(HumanHandoff, r.Handoff)},
		{ProductSearch, keyword(ProductSearch, r.Product)},
	}}
}

// Classify expects text already case-folded and trimmed.
func (c *Classifier) Classify(text string) Intent {
	for _, r := range c.rules {
		if in, ok := r.match(text); ok {
			return in
		}
	}
	return Intent{Kind: GeneralQuery}
}

// Kinds lists the rule order, GeneralQuery last.
func (c *Classifier) Kinds() []Kind {
	out := make([]Kind, 0, len(c.rules)+1)
	for _, r := range c.rules {
		out = append(out, r.kind)
	}
	return append(out, GeneralQuery)
}
