// Package knowledge implements the web knowledge gateway on top of
// DuckDuckGo. Failures never surface to callers: a search that cannot be
// completed yields no snippets.
package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"aromabot/internal/domain"
)

const (
	ProviderHTML    = "duckduckgo-html"
	ProviderInstant = "duckduckgo-instant"
	ProviderNone    = "none"

	defaultHTMLEndpoint    = "https://html.duckduckgo.com/html/"
	defaultInstantEndpoint = "https://api.duckduckgo.com/"
	defaultTimeout         = 10 * time.Second
	defaultMaxResults      = 3
	maxResponseBytes       = 1 << 20
	userAgentString        = "Mozilla/5.0 (compatible; AromaBot/1.0)"
)

// Searcher queries DuckDuckGo for short snippets used to ground answers.
type Searcher struct {
	provider   string
	endpoint   string
	maxResults int
	client     *http.Client
	logger     *slog.Logger
}

type Config struct {
	Provider   string // duckduckgo-html | duckduckgo-instant | none
	Endpoint   string // overrides the public DuckDuckGo URL
	MaxResults int    // used when Search is called with maxResults <= 0
	Timeout    time.Duration
	Logger     *slog.Logger
}

func New(cfg Config) *Searcher {
	if cfg.Provider == "" {
		cfg.Provider = ProviderHTML
	}
	if cfg.Endpoint == "" {
		switch cfg.Provider {
		case ProviderHTML:
			cfg.Endpoint = defaultHTMLEndpoint
		case ProviderInstant:
			cfg.Endpoint = defaultInstantEndpoint
		}
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = defaultMaxResults
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Searcher{
		provider:   cfg.Provider,
		endpoint:   cfg.Endpoint,
		maxResults: cfg.MaxResults,
		client:     &http.Client{Timeout: cfg.Timeout},
		logger:     cfg.Logger,
	}
}

// Search returns at most maxResults snippets for query. Any failure is
// logged and reported as an empty result.
func (s *Searcher) Search(ctx context.Context, query string, maxResults int) []domain.Snippet {
	query = strings.TrimSpace(query)
	if query == "" || s.provider == ProviderNone {
		return nil
	}
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		snippets []domain.Snippet
		err      error
	)
	switch s.provider {
	case ProviderInstant:
		snippets, err = s.searchInstant(ctx, query)
	default:
		snippets, err = s.searchHTML(ctx, query)
	}
	if err != nil {
		s.logger.Warn("knowledge search failed", "provider", s.provider, "err", domain.Upstream("knowledge", err))
		return nil
	}

	if len(snippets) > maxResults {
		snippets = snippets[:maxResults]
	}
	s.logger.Debug("knowledge search", "query", query, "results", len(snippets))
	return snippets
}

func (s *Searcher) get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", userAgentString)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, s.endpoint)
	}
	return resp.Body, nil
}

// searchHTML scrapes the no-JavaScript results page.
func (s *Searcher) searchHTML(ctx context.Context, query string) ([]domain.Snippet, error) {
	body, err := s.get(ctx, s.endpoint+"?q="+url.QueryEscape(query))
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var snippets []domain.Snippet
	doc.Find(".result").Each(func(_ int, sel *goquery.Selection) {
		if sel.HasClass("result--ad") {
			return
		}
		anchor := sel.Find(".result__a").First()
		title := collapseSpace(anchor.Text())
		if title == "" {
			return
		}
		href, _ := anchor.Attr("href")
		snippets = append(snippets, domain.Snippet{
			Title:   title,
			Snippet: collapseSpace(sel.Find(".result__snippet").First().Text()),
			Link:    resolveLink(href),
		})
	})
	return snippets, nil
}

// searchInstant uses the Instant Answer API (no key required).
func (s *Searcher) searchInstant(ctx context.Context, query string) ([]domain.Snippet, error) {
	body, err := s.get(ctx, s.endpoint+"?q="+url.QueryEscape(query)+"&format=json&no_html=1&skip_disambig=1")
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var ddg ddgResponse
	if err := json.NewDecoder(io.LimitReader(body, maxResponseBytes)).Decode(&ddg); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	var snippets []domain.Snippet
	if ddg.Abstract != "" {
		snippets = append(snippets, domain.Snippet{Title: ddg.Heading, Snippet: ddg.Abstract, Link: ddg.AbstractURL})
	}
	if ddg.Answer != "" {
		snippets = append(snippets, domain.Snippet{Title: ddg.Heading, Snippet: ddg.Answer})
	}
	for _, topic := range ddg.RelatedTopics {
		if topic.Text == "" {
			continue
		}
		title, _, _ := strings.Cut(topic.Text, " - ")
		snippets = append(snippets, domain.Snippet{Title: title, Snippet: topic.Text, Link: topic.FirstURL})
	}
	return snippets, nil
}

// resolveLink unwraps DuckDuckGo's redirect links (//duckduckgo.com/l/?uddg=...).
func resolveLink(href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// DuckDuckGo response types
type ddgResponse struct {
	Abstract      string     `json:"Abstract"`
	AbstractURL   string     `json:"AbstractURL"`
	Heading       string     `json:"Heading"`
	Answer        string     `json:"Answer"`
	RelatedTopics []ddgTopic `json:"RelatedTopics"`
}

type ddgTopic struct {
	Text     string `json:"Text"`
	FirstURL string `json:"FirstURL"`
}
