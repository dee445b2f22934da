package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"aromabot/internal/domain"
	"aromabot/internal/pricing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "catalog.db"), testLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func product(code, desc, cost string) domain.Product {
	return domain.Product{Code: code, Description: desc, Cost: pricing.ParseCost(cost)}
}

func TestNewSQLiteStore_AppliesPragmas(t *testing.T) {
	store := newTestStore(t)

	var mode string
	if err := store.db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatal(err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}

	var timeout int
	if err := store.db.QueryRow("PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatal(err)
	}
	if timeout != 5000 {
		t.Errorf("busy_timeout = %d, want 5000", timeout)
	}
}

func TestSQLiteStore_FindByCode(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Upsert(ctx, []domain.Product{
		product("PR11410", "Fragrância Baunilha Suave", "12,50"),
		product("PR200", "Essência Lavanda", ""),
	}); err != nil {
		t.Fatal(err)
	}

	p, err := store.FindByCode(ctx, "pr11410")
	if err != nil {
		t.Fatal(err)
	}
	if p == nil || p.Code != "PR11410" {
		t.Fatalf("expected PR11410, got %+v", p)
	}
	if !p.HasCost() || p.Cost.StringFixed(2) != "12.50" {
		t.Errorf("expected cost 12.50, got %v", p.Cost)
	}

	p, err = store.FindByCode(ctx, "PR200")
	if err != nil {
		t.Fatal(err)
	}
	if p.HasCost() {
		t.Errorf("missing cost must stay unknown, got %v", p.Cost)
	}
}

func TestSQLiteStore_FindByCode_NotFound(t *testing.T) {
	store := newTestStore(t)
	p, err := store.FindByCode(context.Background(), "PR999")
	if err != nil {
		t.Fatal(err)
	}
	if p != nil {
		t.Fatalf("expected nil product, got %+v", p)
	}
}

func TestSQLiteStore_Search_AnyTermInCatalogOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var seed []domain.Product
	for i := 1; i <= 7; i++ {
		seed = append(seed, product(fmt.Sprintf("PR%d", i), fmt.Sprintf("Fragrância BAUNILHA %d", i), "10"))
	}
	seed = append(seed, product("PR100", "Lavanda Francesa", "8"))
	if err := store.Upsert(ctx, seed); err != nil {
		t.Fatal(err)
	}

	got, err := store.Search(ctx, domain.SearchQuery{Terms: []string{"baunilha"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != DefaultLimit {
		t.Fatalf("expected %d results, got %d", DefaultLimit, len(got))
	}
	for i, p := range got {
		if want := fmt.Sprintf("PR%d", i+1); p.Code != want {
			t.Errorf("result %d = %s, want %s", i, p.Code, want)
		}
	}

	got, err = store.Search(ctx, domain.SearchQuery{Terms: []string{"xyz", "lavanda"}, Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Code != "PR100" {
		t.Fatalf("expected only PR100, got %+v", got)
	}
}

func TestSQLiteStore_Search_EscapesWildcards(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.Upsert(ctx, []domain.Product{product("PR1", "Óleo 100% puro", "5")}); err != nil {
		t.Fatal(err)
	}

	got, err := store.Search(ctx, domain.SearchQuery{Terms: []string{"%"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected literal %% to match once, got %d", len(got))
	}

	got, err = store.Search(ctx, domain.SearchQuery{Terms: []string{"_"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("underscore must not act as a wildcard, got %d", len(got))
	}
}

func TestSQLiteStore_Search_NoTerms(t *testing.T) {
	store := newTestStore(t)
	got, err := store.Search(context.Background(), domain.SearchQuery{Terms: []string{" ", ""}})
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestSQLiteStore_UpsertUpdates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.Upsert(ctx, []domain.Product{product("PR1", "Antiga", "5")})
	store.Upsert(ctx, []domain.Product{product("pr1", "Nova", "6,10")})

	n, err := store.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 product, got %d", n)
	}
	p, _ := store.FindByCode(ctx, "PR1")
	if p.Description != "Nova" || p.Cost.StringFixed(2) != "6.10" {
		t.Fatalf("expected updated product, got %+v", p)
	}
}

func TestParseSeed(t *testing.T) {
	data := []byte(`
- code: pr11410
  description: Fragrância Baunilha
  cost: "12,50"
- code: PR200
  description: Lavanda
  cost: 10.5
- code: PR300
  description: Sem custo
`)
	products, err := ParseSeed(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(products) != 3 {
		t.Fatalf("expected 3 products, got %d", len(products))
	}
	if products[0].Code != "PR11410" || products[0].Cost.StringFixed(2) != "12.50" {
		t.Errorf("unexpected first product: %+v", products[0])
	}
	if products[1].Cost.StringFixed(2) != "10.50" {
		t.Errorf("unexpected numeric cost: %v", products[1].Cost)
	}
	if products[2].Cost != nil {
		t.Errorf("missing cost should be nil, got %v", products[2].Cost)
	}
}

func TestParseSeed_JSON(t *testing.T) {
	products, err := ParseSeed([]byte(`[{"code":"PR1","description":"Rosa","cost":3.2}]`))
	if err != nil {
		t.Fatal(err)
	}
	if len(products) != 1 || products[0].Cost.StringFixed(2) != "3.20" {
		t.Fatalf("unexpected products: %+v", products)
	}
}

func TestParseSeed_MissingCode(t *testing.T) {
	if _, err := ParseSeed([]byte("- description: sem código\n")); err == nil {
		t.Fatal("expected error for missing code")
	}
}

func TestNormalizeCode(t *testing.T) {
	tests := map[string]string{
		"pr11410":  "PR11410",
		" PR-200 ": "PR200",
		"pr 300":   "PR300",
		"300":      "PR300",
		"AB12":     "AB12",
		"":         "",
	}
	for in, want := range tests {
		if got := NormalizeCode(in); got != want {
			t.Errorf("NormalizeCode(%q) = %q, want %q", in, got, want)
		}
	}
}
