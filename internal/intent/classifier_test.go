package intent

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"aromabot/internal/domain"
)

func TestClassify_Order(t *testing.T) {
	c := NewClassifier(DefaultRules())

	tests := []struct {
		name string
		text string
		want Kind
	}{
		{"values", "quais são os valores da empresa?", ValuesInquiry},
		{"mission", "qual a missão de vocês", ValuesInquiry},
		{"cost by code", "qual o custo da pr11410", CostLookup},
		{"cost beats product keyword", "qual o custo do produto pr11410", CostLookup},
		{"cost by name", "custo do perfume baunilha", CostLookup},
		{"price quote", "preço de venda da pr200 com o markup 3", PriceQuote},
		{"price quote without cedilla", "preco de venda da pr200 com markup 2,5", PriceQuote},
		{"handoff", "quero falar com um atendente", HumanHandoff},
		{"handoff beats product", "quero falar com um vendedor sobre um produto", HumanHandoff},
		{"product search", "tem fragrância com baunilha?", ProductSearch},
		{"general", "oi, tudo bem?", GeneralQuery},
		{"cost word alone", "o custo", GeneralQuery},
		{"plural product word", "quais perfumes vocês têm?", ProductSearch},
		{"keyword with punctuation", "falar com alguém?", HumanHandoff},
		{"commission is not mission", "qual a comissão do revendedor?", GeneralQuery},
		{"reseller is not seller", "sou revendedor", GeneralQuery},
		{"contempla is not contem", "o plano contempla frete?", GeneralQuery},
		{"split vision phrase", "a visão dela da empresa mudou", GeneralQuery},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.text)
			if got.Kind != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.text, got.Kind, tt.want)
			}
		})
	}
}

func TestClassify_CostLookupExtraction(t *testing.T) {
	c := NewClassifier(DefaultRules())

	got := c.Classify("qual o custo da pr11410?")
	if got.Code != "PR11410" || got.Name != "" {
		t.Errorf("expected code PR11410, got code=%q name=%q", got.Code, got.Name)
	}

	got = c.Classify("qual o custo do perfume de baunilha?")
	if got.Code != "" || got.Name != "baunilha" {
		t.Errorf("expected name baunilha, got code=%q name=%q", got.Code, got.Name)
	}
}

func TestClassify_PriceQuoteExtraction(t *testing.T) {
	c := NewClassifier(DefaultRules())

	got := c.Classify("preço de venda da pr200 com o markup 2,5")
	if got.Kind != PriceQuote {
		t.Fatalf("expected PriceQuote, got %s", got.Kind)
	}
	if got.Err != nil {
		t.Fatalf("unexpected error: %v", got.Err)
	}
	if got.Code != "PR200" {
		t.Errorf("expected PR200, got %q", got.Code)
	}
	if !got.Markup.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("expected markup 2.5, got %s", got.Markup)
	}
}

func TestClassify_PriceQuoteInvalidMarkup(t *testing.T) {
	c := NewClassifier(DefaultRules())

	got := c.Classify("preço de venda da pr200 com o markup três")
	if got.Kind != PriceQuote {
		t.Fatalf("expected PriceQuote, got %s", got.Kind)
	}
	if !errors.Is(got.Err, domain.ErrInvalidMarkup) {
		t.Fatalf("expected ErrInvalidMarkup, got %v", got.Err)
	}
	if !got.Markup.IsZero() {
		t.Errorf("markup should be unset, got %s", got.Markup)
	}
}

func TestClassify_ProductSearchKeywords(t *testing.T) {
	c := NewClassifier(DefaultRules())

	got := c.Classify("tem fragrância com baunilha e canela?")
	want := []string{"tem", "fragrância", "com", "baunilha", "canela"}
	if !reflect.DeepEqual(got.Keywords, want) {
		t.Errorf("keywords = %v, want %v", got.Keywords, want)
	}
}

func TestKeywords_SkipsShortAndDuplicates(t *testing.T) {
	got := Keywords("a de baunilha, baunilha! ok")
	want := []string{"baunilha"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Keywords = %v, want %v", got, want)
	}
}

func TestParseCode(t *testing.T) {
	tests := map[string]string{
		"pr11410":        "PR11410",
		"da pr-200 hoje": "PR200",
		"pr 35":          "PR35",
	}
	for in, want := range tests {
		got, ok := ParseCode(in)
		if !ok || got != want {
			t.Errorf("ParseCode(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
	if _, ok := ParseCode("compra 123"); ok {
		t.Error("ParseCode should not match inside a word")
	}
}

func TestKinds_GeneralLast(t *testing.T) {
	kinds := NewClassifier(DefaultRules()).Kinds()
	want := []Kind{ValuesInquiry, CostLookup, PriceQuote, HumanHandoff, ProductSearch, GeneralQuery}
	if !reflect.DeepEqual(kinds, want) {
		t.Errorf("Kinds = %v, want %v", kinds, want)
	}
}

func TestLoadRules_Override(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte("handoff:\n  - SUPORTE\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	rules, err := LoadRules(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(rules.Handoff, []string{"suporte"}) {
		t.Errorf("handoff = %v", rules.Handoff)
	}
	if len(rules.Product) == 0 {
		t.Error("product set should keep built-in keywords")
	}

	c := NewClassifier(rules)
	if got := c.Classify("preciso de suporte"); got.Kind != HumanHandoff {
		t.Errorf("expected HumanHandoff, got %s", got.Kind)
	}
}

func TestLoadRules_MissingFile(t *testing.T) {
	if _, err := LoadRules(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
