// Package catalog implements the product catalog gateway over a local
// SQLite file, a remote HTTP product list, or a Postgres table.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"aromabot/internal/config"
	"aromabot/internal/domain"
)

// DefaultLimit caps search results when the query sets no limit.
const DefaultLimit = 5

// Store is a catalog that owns resources.
type Store interface {
	domain.Catalog
	Close() error
}

// New opens the backend selected by cfg.Backend.
func New(ctx context.Context, cfg config.CatalogConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Backend {
	case "sqlite":
		return NewSQLiteStore(cfg.DBPath, logger)
	case "http":
		return NewHTTPCatalog(HTTPConfig{
			URL:              cfg.URL,
			CodeField:        cfg.CodeField,
			DescriptionField: cfg.DescriptionField,
			CostField:        cfg.CostField,
			CacheTTL:         config.Seconds(cfg.CacheTTLSeconds, 0),
			Timeout:          config.Seconds(cfg.TimeoutSeconds, defaultHTTPTimeout),
			Logger:           logger,
		}), nil
	case "postgres":
		return NewPostgresStore(ctx, cfg.DSN, logger)
	default:
		return nil, fmt.Errorf("unknown catalog backend %q", cfg.Backend)
	}
}

// CodePrefix is the letter prefix customers type before a product number.
const CodePrefix = "PR"

// NormalizeCode upper-cases a product code and drops spaces and dashes.
// Bare numbers, as stored in integer code columns, get CodePrefix so both
// sides of a lookup compare the same form.
func NormalizeCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	code = strings.NewReplacer(" ", "", "-", "").Replace(code)
	if code != "" && strings.Trim(code, "0123456789") == "" {
		code = CodePrefix + code
	}
	return code
}

// foldTerms lower-cases the search terms and drops empty ones.
func foldTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// matchesAny reports whether the folded description contains any term.
func matchesAny(folded string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(folded, t) {
			return true
		}
	}
	return false
}

func limitOrDefault(n int) int {
	if n <= 0 {
		return DefaultLimit
	}
	return n
}
