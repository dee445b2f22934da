package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"aromabot/internal/domain"
	"aromabot/internal/pricing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func product(code, desc, cost string) domain.Product {
	return domain.Product{Code: code, Description: desc, Cost: pricing.ParseCost(cost)}
}

func inbound(text string) domain.InboundMessage {
	return domain.InboundMessage{
		ID:         "msg-1",
		Sender:     "55119",
		Text:       strings.ToLower(strings.TrimSpace(text)),
		RawText:    strings.TrimSpace(text),
		ReceivedAt: time.Now(),
	}
}

// fakeCatalog ignores SearchQuery.Limit so truncation can be observed.
type fakeCatalog struct {
	mu       sync.Mutex
	products []domain.Product
	err      error
	delay    time.Duration
	panicMsg string

	findCalls   int
	searchCalls int
	lastQuery   domain.SearchQuery
}

func (f *fakeCatalog) wait(ctx context.Context) error {
	if f.delay == 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return domain.Upstream("catalog", ctx.Err())
	case <-time.After(f.delay):
		return nil
	}
}

func (f *fakeCatalog) FindByCode(ctx context.Context, code string) (*domain.Product, error) {
	f.mu.Lock()
	f.findCalls++
	f.mu.Unlock()
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	for _, p := range f.products {
		if p.Code == code {
			return &p, nil
		}
	}
	return nil, nil
}

func (f *fakeCatalog) Search(ctx context.Context, q domain.SearchQuery) ([]domain.Product, error) {
	f.mu.Lock()
	f.searchCalls++
	f.lastQuery = q
	f.mu.Unlock()
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Product
	for _, p := range f.products {
		desc := strings.ToLower(p.Description)
		for _, t := range q.Terms {
			if strings.Contains(desc, t) {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

type fakeKnowledge struct {
	snippets []domain.Snippet
	queries  []string
}

func (f *fakeKnowledge) Search(ctx context.Context, query string, maxResults int) []domain.Snippet {
	f.queries = append(f.queries, query)
	return f.snippets
}

// fakeResponder echoes the prompt unless reply or err is set.
type fakeResponder struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (f *fakeResponder) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if f.reply != "" {
		return f.reply, nil
	}
	return prompt, nil
}

func (f *fakeResponder) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type sent struct {
	recipient string
	body      string
}

type fakeDelivery struct {
	mu   sync.Mutex
	name string
	err  error
	sent []sent
}

func (f *fakeDelivery) Name() string {
	if f.name == "" {
		return "fake"
	}
	return f.name
}

func (f *fakeDelivery) Send(ctx context.Context, recipient, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{recipient, body})
	return f.err
}

func (f *fakeDelivery) messages() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sent(nil), f.sent...)
}

var errBoom = errors.New("boom")
