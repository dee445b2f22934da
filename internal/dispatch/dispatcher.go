// Package dispatch turns a normalized inbound message into exactly one
// reply: it classifies the message, runs the fulfillment handler for that
// intent against the catalog, knowledge and responder gateways, and hands
// the result to the delivery gateway.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"aromabot/internal/domain"
	"aromabot/internal/intent"
	"aromabot/internal/metrics"
	"aromabot/internal/pricing"
)

const (
	// MaxCandidates caps every product list shown to the user or the responder.
	MaxCandidates = 5

	defaultCatalogTimeout   = 10 * time.Second
	defaultKnowledgeTimeout = 10 * time.Second
	defaultResponderTimeout = 30 * time.Second
	defaultMaxSnippets      = 3
)

// Timeouts bounds each outbound call of a dispatch unit.
type Timeouts struct {
	Catalog   time.Duration
	Knowledge time.Duration
	Responder time.Duration
}

// handler fulfills one intent. It must always return a reply.
type handler func(ctx context.Context, log *slog.Logger, in intent.Intent, msg domain.InboundMessage) domain.DispatchResult

// Dispatcher holds no per-message state; one instance serves all workers.
type Dispatcher struct {
	classifier  *intent.Classifier
	catalog     domain.Catalog
	knowledge   domain.Knowledge
	responder   domain.Responder
	divisor     decimal.Decimal
	escalateTo  string
	maxSnippets int
	timeouts    Timeouts
	handlers    map[intent.Kind]handler
	logger      *slog.Logger
}

type Config struct {
	Classifier  *intent.Classifier
	Catalog     domain.Catalog
	Knowledge   domain.Knowledge
	Responder   domain.Responder
	Divisor     decimal.Decimal // selling price divisor, default 0.7442
	EscalateTo  string          // escalation recipient; empty disables handoff summaries
	MaxSnippets int             // knowledge results per general query (default 3)
	Timeouts    Timeouts
	Logger      *slog.Logger
}

func New(cfg Config) *Dispatcher {
	if cfg.Classifier == nil {
		cfg.Classifier = intent.NewClassifier(intent.DefaultRules())
	}
	if cfg.Divisor.IsZero() {
		cfg.Divisor = decimal.RequireFromString(pricing.DefaultDivisor)
	}
	if cfg.MaxSnippets <= 0 {
		cfg.MaxSnippets = defaultMaxSnippets
	}
	if cfg.Timeouts.Catalog <= 0 {
		cfg.Timeouts.Catalog = defaultCatalogTimeout
	}
	if cfg.Timeouts.Knowledge <= 0 {
		cfg.Timeouts.Knowledge = defaultKnowledgeTimeout
	}
	if cfg.Timeouts.Responder <= 0 {
		cfg.Timeouts.Responder = defaultResponderTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	d := &Dispatcher{
		classifier:  cfg.Classifier,
		catalog:     cfg.Catalog,
		knowledge:   cfg.Knowledge,
		responder:   cfg.Responder,
		divisor:     cfg.Divisor,
		escalateTo:  cfg.EscalateTo,
		maxSnippets: cfg.MaxSnippets,
		timeouts:    cfg.Timeouts,
		logger:      cfg.Logger,
	}
	d.handlers = map[intent.Kind]handler{
		intent.ValuesInquiry: d.handleValues,
		intent.CostLookup:    d.handleCostLookup,
		intent.PriceQuote:    d.handlePriceQuote,
		intent.HumanHandoff:  d.handleHandoff,
		intent.ProductSearch: d.handleProductSearch,
		intent.GeneralQuery:  d.handleGeneral,
	}
	for _, k := range d.classifier.Kinds() {
		if d.handlers[k] == nil {
			panic(fmt.Sprintf("dispatch: no handler for intent %s", k))
		}
	}
	return d
}

// Dispatch classifies msg and runs its single fulfillment path.
func (d *Dispatcher) Dispatch(ctx context.Context, msg domain.InboundMessage) (domain.DispatchResult, intent.Intent) {
	log := d.logger.With("dispatch_id", uuid.NewString(), "sender", msg.Sender)
	return d.run(ctx, log, msg)
}

// run never fails: upstream errors and panics both end in the apology reply.
func (d *Dispatcher) run(ctx context.Context, log *slog.Logger, msg domain.InboundMessage) (result domain.DispatchResult, in intent.Intent) {
	defer func() {
		if r := recover(); r != nil {
			metrics.DispatchPanics.Inc()
			log.Error("dispatch panic recovered", "panic", r, "stack", string(debug.Stack()))
			result = domain.DispatchResult{ReplyText: replyApology}
		}
	}()

	in = d.classifier.Classify(msg.Text)
	metrics.Intent(in.Kind.String()).Inc()
	log.Info("intent classified", "intent", in.Kind.String(), "code", in.Code, "name", in.Name)

	result = d.handlers[in.Kind](ctx, log, in, msg)
	if result.ReplyText == "" {
		log.Warn("handler produced an empty reply", "intent", in.Kind.String())
		result.ReplyText = replyApology
	}
	return result, in
}

// --- Gateway calls with per-call timeouts ---

func (d *Dispatcher) findByCode(ctx context.Context, code string) (*domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeouts.Catalog)
	defer cancel()
	defer metrics.UpstreamLatency("catalog").ObserveSince(time.Now())

	p, err := d.catalog.FindByCode(ctx, code)
	if err != nil {
		return nil, upstream("catalog", err)
	}
	return p, nil
}

func (d *Dispatcher) search(ctx context.Context, terms []string) ([]domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeouts.Catalog)
	defer cancel()
	defer metrics.UpstreamLatency("catalog").ObserveSince(time.Now())

	products, err := d.catalog.Search(ctx, domain.SearchQuery{Terms: terms, Limit: MaxCandidates})
	if err != nil {
		return nil, upstream("catalog", err)
	}
	if len(products) > MaxCandidates {
		products = products[:MaxCandidates]
	}
	return products, nil
}

func (d *Dispatcher) webSearch(ctx context.Context, query string) []domain.Snippet {
	if d.knowledge == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeouts.Knowledge)
	defer cancel()
	defer metrics.UpstreamLatency("knowledge").ObserveSince(time.Now())

	snippets := d.knowledge.Search(ctx, query, d.maxSnippets)
	if len(snippets) > d.maxSnippets {
		snippets = snippets[:d.maxSnippets]
	}
	return snippets
}

func (d *Dispatcher) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeouts.Responder)
	defer cancel()
	defer metrics.UpstreamLatency("responder").ObserveSince(time.Now())

	text, err := d.responder.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return text, nil
}

// upstream tags err with service unless it already carries a service.
func upstream(service string, err error) error {
	var ue *domain.UpstreamError
	if errors.As(err, &ue) {
		return err
	}
	return domain.Upstream(service, err)
}
