package intent

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"aromabot/internal/pricing"
)

var (
	codePattern = regexp.MustCompile(`\bpr[\s-]?(\d+)\b`)

	costPattern = regexp.MustCompile(`\bcusto\b(?:\s+(?:d[oae]s?|de|para|pra))?\s+(.+)$`)

	pricePattern = regexp.MustCompile(
		`\bpre[çc]o\s+de\s+venda\b.*?\bpr[\s-]?(\d+)\b.*?\bmarkup\b\s*(?:de\s+|=\s*|:\s*)?([^\s?!]+)`)

	// leading filler removed from free-text product names
	nameFillers = []string{
		"produto ", "item ", "perfume ", "fragrância ", "fragrancia ", "essência ", "essencia ",
		"de ", "do ", "da ", "com ",
	}
)

// ParseCode extracts a product code ("PR" + digits) from text.
func ParseCode(text string) (string, bool) {
	m := codePattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return "PR" + m[1], true
}

// ParseCostLookup matches "custo de <code|name>". It returns false when the
// phrase is absent or names nothing.
func ParseCostLookup(text string) (Intent, bool) {
	m := costPattern.FindStringSubmatch(text)
	if m == nil {
		return Intent{}, false
	}
	target := trimPunct(m[1])
	if target == "" {
		return Intent{}, false
	}
	if code, ok := ParseCode(target); ok {
		return Intent{Kind: CostLookup, Code: code}, true
	}
	target = trimPunct(stripFillers(target))
	if target == "" {
		return Intent{}, false
	}
	return Intent{Kind: CostLookup, Name: target}, true
}

// ParsePriceQuote matches "preço de venda da <code> com markup <n>". A
// matched phrase with an unparseable markup still returns a PriceQuote
// intent, carrying the parse error in Err.
func ParsePriceQuote(text string) (Intent, bool) {
	m := pricePattern.FindStringSubmatch(text)
	if m == nil {
		return Intent{}, false
	}
	in := Intent{Kind: PriceQuote, Code: "PR" + m[1]}
	raw := strings.TrimRight(m[2], ".,;:")
	markup, err := pricing.ParseMarkup(raw)
	if err != nil {
		in.Err = err
		return in, true
	}
	in.Markup = markup
	return in, true
}

// Keywords returns the distinct whitespace-delimited tokens longer than two
// characters, in message order, with surrounding punctuation removed.
func Keywords(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, tok := range strings.Fields(text) {
		tok = trimPunct(tok)
		if utf8.RuneCountInString(tok) <= 2 || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}

func stripFillers(s string) string {
	for {
		before := s
		for _, f := range nameFillers {
			s = strings.TrimPrefix(s, f)
		}
		if s == before {
			return s
		}
	}
}

// words splits text into tokens with surrounding punctuation removed.
func words(text string) []string {
	fields := strings.Fields(text)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = trimPunct(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// containsAny reports whether any keyword occurs in tokens as whole words.
// Multi-word keywords must appear as a contiguous run, so "missão" does not
// match "comissão".
func containsAny(tokens []string, keywords [][]string) bool {
	for _, kw := range keywords {
		if len(kw) == 0 || len(kw) > len(tokens) {
			continue
		}
	scan:
		for i := 0; i+len(kw) <= len(tokens); i++ {
			for j, w := range kw {
				if tokens[i+j] != w {
					continue scan
				}
			}
			return true
		}
	}
	return false
}

func trimPunct(s string) string {
	return strings.TrimFunc(strings.TrimSpace(s), func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
}
