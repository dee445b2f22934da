package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"aromabot/internal/domain"
	"aromabot/internal/pricing"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	maxCatalogBytes    = 20 << 20
)

// HTTPCatalog reads the full product list from a remote endpoint that
// returns a JSON array of flat records, and filters it in process.
type HTTPCatalog struct {
	url       string
	codeField string
	descField string
	costField string
	ttl       time.Duration
	client    *http.Client
	logger    *slog.Logger

	mu        sync.Mutex
	cached    []domain.Product
	fetchedAt time.Time
}

type HTTPConfig struct {
	URL              string
	CodeField        string
	DescriptionField string
	CostField        string
	CacheTTL         time.Duration // 0 disables caching
	Timeout          time.Duration
	Logger           *slog.Logger
}

func NewHTTPCatalog(cfg HTTPConfig) *HTTPCatalog {
	if cfg.CodeField == "" {
		cfg.CodeField = "PRO_IN_CODIGO"
	}
	if cfg.DescriptionField == "" {
		cfg.DescriptionField = "PRO_ST_DESCRICAO"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultHTTPTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &HTTPCatalog{
		url:       cfg.URL,
		codeField: cfg.CodeField,
		descField: cfg.DescriptionField,
		costField: cfg.CostField,
		ttl:       cfg.CacheTTL,
		client:    &http.Client{Timeout: cfg.Timeout},
		logger:    cfg.Logger,
	}
}

func (c *HTTPCatalog) FindByCode(ctx context.Context, code string) (*domain.Product, error) {
	products, err := c.products(ctx)
	if err != nil {
		return nil, err
	}
	code = NormalizeCode(code)
	for _, p := range products {
		if p.Code == code {
			return &p, nil
		}
	}
	return nil, nil
}

func (c *HTTPCatalog) Search(ctx context.Context, q domain.SearchQuery) ([]domain.Product, error) {
	terms := foldTerms(q.Terms)
	if len(terms) == 0 {
		return nil, nil
	}
	products, err := c.products(ctx)
	if err != nil {
		return nil, err
	}

	limit := limitOrDefault(q.Limit)
	var out []domain.Product
	for _, p := range products {
		if matchesAny(strings.ToLower(p.Description), terms) {
			out = append(out, p)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (c *HTTPCatalog) Close() error { return nil }

// products returns the cached list, refreshing it when stale. The lock is
// held during the fetch so concurrent misses share one request.
func (c *HTTPCatalog) products(ctx context.Context) ([]domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil && c.ttl > 0 && time.Since(c.fetchedAt) < c.ttl {
		return c.cached, nil
	}

	products, err := c.fetch(ctx)
	if err != nil {
		return nil, domain.Upstream("catalog", err)
	}
	c.cached = products
	c.fetchedAt = time.Now()
	c.logger.Debug("catalog refreshed", "url", c.url, "products", len(products))
	return products, nil
}

func (c *HTTPCatalog) fetch(ctx context.Context) ([]domain.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("catalog HTTP %d: %s", resp.StatusCode, string(body))
	}

	var records []map[string]any
	dec := json.NewDecoder(io.LimitReader(resp.Body, maxCatalogBytes))
	dec.UseNumber()
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decode product list: %w", err)
	}

	products := make([]domain.Product, 0, len(records))
	for _, r := range records {
		code := NormalizeCode(fieldString(r[c.codeField]))
		if code == "" {
			continue
		}
		p := domain.Product{
			Code:        code,
			Description: fieldString(r[c.descField]),
		}
		if c.costField != "" {
			p.Cost = pricing.ParseCost(fieldString(r[c.costField]))
		}
		products = append(products, p)
	}
	return products, nil
}

func fieldString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
