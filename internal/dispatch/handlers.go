package dispatch

import (
	"context"
	"errors"
	"log/slog"

	"aromabot/internal/domain"
	"aromabot/internal/intent"
	"aromabot/internal/pricing"
)

func reply(text string) domain.DispatchResult {
	return domain.DispatchResult{ReplyText: text}
}

func (d *Dispatcher) handleValues(ctx context.Context, log *slog.Logger, in intent.Intent, msg domain.InboundMessage) domain.DispatchResult {
	return reply(replyValues)
}

// handleCostLookup resolves a code directly, or a name through search.
func (d *Dispatcher) handleCostLookup(ctx context.Context, log *slog.Logger, in intent.Intent, msg domain.InboundMessage) domain.DispatchResult {
	var product *domain.Product
	ref := in.Code

	if in.Code != "" {
		p, err := d.findByCode(ctx, in.Code)
		if err != nil {
			log.Warn("catalog lookup failed", "code", in.Code, "err", err)
			return reply(replyApology)
		}
		product = p
	} else {
		ref = in.Name
		matches, err := d.search(ctx, []string{in.Name})
		if err != nil {
			log.Warn("catalog search failed", "name", in.Name, "err", err)
			return reply(replyApology)
		}
		switch len(matches) {
		case 0:
		case 1:
			product = &matches[0]
		default:
			log.Info("cost lookup is ambiguous", "name", in.Name, "matches", len(matches))
			return reply(replyDisambiguation(matches))
		}
	}

	if product == nil {
		log.Info("product not found", "ref", ref)
		return reply(replyNotFound(ref))
	}
	if !product.HasCost() {
		log.Info("product has no usable cost", "code", product.Code)
		return reply(replyCostUnavailable(product.Code))
	}

	return d.compose(ctx, log, promptCost(*product))
}

// handlePriceQuote computes (markup * cost) / divisor. An invalid markup
// never reaches the catalog or the computation.
func (d *Dispatcher) handlePriceQuote(ctx context.Context, log *slog.Logger, in intent.Intent, msg domain.InboundMessage) domain.DispatchResult {
	if in.Err != nil {
		raw := ""
		var pe *domain.ParseError
		if errors.As(in.Err, &pe) {
			raw = pe.Input
		}
		log.Info("invalid markup", "code", in.Code, "err", in.Err)
		return reply(replyInvalidMarkup(raw))
	}

	product, err := d.findByCode(ctx, in.Code)
	if err != nil {
		log.Warn("catalog lookup failed", "code", in.Code, "err", err)
		return reply(replyApology)
	}
	if product == nil {
		return reply(replyNotFound(in.Code))
	}
	if !product.HasCost() {
		return reply(replyCostUnavailable(product.Code))
	}

	price, err := pricing.SellingPrice(*product.Cost, in.Markup, d.divisor)
	if err != nil {
		log.Error("selling price computation failed", "code", product.Code, "err", err)
		return reply(replyCostUnavailable(product.Code))
	}
	log.Info("selling price computed",
		"code", product.Code,
		"cost", product.Cost.String(),
		"markup", in.Markup.String(),
		"price", price.StringFixed(2),
	)

	return d.compose(ctx, log, promptPrice(*product, pricing.FormatBRL(in.Markup), pricing.FormatBRL(price)))
}

func (d *Dispatcher) handleProductSearch(ctx context.Context, log *slog.Logger, in intent.Intent, msg domain.InboundMessage) domain.DispatchResult {
	if len(in.Keywords) == 0 {
		return reply(replySearchEmpty)
	}

	products, err := d.search(ctx, in.Keywords)
	if err != nil {
		log.Warn("catalog search failed", "keywords", in.Keywords, "err", err)
		return reply(replyApology)
	}
	if len(products) == 0 {
		return reply(replySearchEmpty)
	}

	log.Info("products found", "count", len(products))
	return d.compose(ctx, log, promptSearch(products))
}

// handleHandoff summarizes the request for the escalation recipient and
// confirms to the sender. Without a summary nothing is escalated.
func (d *Dispatcher) handleHandoff(ctx context.Context, log *slog.Logger, in intent.Intent, msg domain.InboundMessage) domain.DispatchResult {
	if d.escalateTo == "" {
		log.Warn("human handoff requested but escalation is disabled")
		return reply(replyHandoffUnavailable)
	}

	summary, err := d.generate(ctx, promptSummary(originalText(msg)))
	if err != nil {
		log.Warn("handoff summary failed, not escalating", "err", err)
		return reply(replyApology)
	}

	return domain.DispatchResult{
		ReplyText: replyHandoffConfirm,
		Escalation: &domain.Escalation{
			Recipient: d.escalateTo,
			Text:      escalationText(msg.Sender, summary),
		},
	}
}

// handleGeneral grounds the answer on web snippets when there are any.
func (d *Dispatcher) handleGeneral(ctx context.Context, log *slog.Logger, in intent.Intent, msg domain.InboundMessage) domain.DispatchResult {
	text := originalText(msg)
	snippets := d.webSearch(ctx, text)
	log.Debug("knowledge snippets", "count", len(snippets))
	return d.compose(ctx, log, promptGeneral(text, snippets))
}

// compose asks the responder for the final reply text.
func (d *Dispatcher) compose(ctx context.Context, log *slog.Logger, prompt string) domain.DispatchResult {
	text, err := d.generate(ctx, prompt)
	if err != nil {
		log.Warn("reply generation failed", "err", err)
		return reply(replyApology)
	}
	return reply(text)
}

func originalText(msg domain.InboundMessage) string {
	if msg.RawText != "" {
		return msg.RawText
	}
	return msg.Text
}
