package dispatch

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"aromabot/internal/domain"
	"aromabot/internal/metrics"
)

const (
	defaultWorkers         = 4
	defaultDeliveryTimeout = 15 * time.Second
)

// Pool drains the inbound queue with a bounded number of concurrent
// dispatch units. Each unit delivers exactly one reply to the sender.
type Pool struct {
	bus             domain.MessageBus
	dispatcher      *Dispatcher
	delivery        domain.Delivery
	escalation      domain.Delivery
	workers         int
	deliveryTimeout time.Duration
	logger          *slog.Logger
	wg              sync.WaitGroup
}

type PoolConfig struct {
	Bus             domain.MessageBus
	Dispatcher      *Dispatcher
	Delivery        domain.Delivery // replies to senders
	Escalation      domain.Delivery // handoff summaries; defaults to Delivery
	Workers         int
	DeliveryTimeout time.Duration
	Logger          *slog.Logger
}

func NewPool(cfg PoolConfig) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = defaultDeliveryTimeout
	}
	if cfg.Escalation == nil {
		cfg.Escalation = cfg.Delivery
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pool{
		bus:             cfg.Bus,
		dispatcher:      cfg.Dispatcher,
		delivery:        cfg.Delivery,
		escalation:      cfg.Escalation,
		workers:         cfg.Workers,
		deliveryTimeout: cfg.DeliveryTimeout,
		logger:          cfg.Logger,
	}
}

// Run consumes inbound messages until the bus is closed, then waits for
// in-flight units. Cancelling ctx does not stop the loop: every message
// already accepted by the webhook is still dispatched, so callers shut
// down by closing the bus once no more webhooks can arrive.
func (p *Pool) Run(ctx context.Context) {
	p.logger.Info("dispatch pool started", "workers", p.workers)

	sem := make(chan struct{}, p.workers)
	inbound := p.bus.Subscribe()
	unitCtx := context.WithoutCancel(ctx)
	stopping := ctx.Done()

	defer func() {
		p.wg.Wait()
		p.logger.Info("dispatch pool stopped")
	}()

	for {
		select {
		case <-stopping:
			p.logger.Info("dispatch pool draining queue", "queued", p.bus.Len())
			stopping = nil
		case msg, ok := <-inbound:
			if !ok {
				p.logger.Info("inbound channel closed, dispatch pool stopping")
				return
			}
			metrics.QueueDepth.Set(int64(p.bus.Len()))

			sem <- struct{}{}
			p.wg.Add(1)
			go func(m domain.InboundMessage) {
				defer func() {
					<-sem
					p.wg.Done()
				}()
				p.Handle(unitCtx, m)
			}(msg)
		}
	}
}

// Handle runs one dispatch unit: classify, fulfil, deliver the reply once,
// then deliver the escalation if the handler produced one.
func (p *Pool) Handle(ctx context.Context, msg domain.InboundMessage) domain.DispatchResult {
	start := time.Now()
	log := p.logger.With("dispatch_id", uuid.NewString(), "sender", msg.Sender, "message_id", msg.ID)

	defer func() {
		if r := recover(); r != nil {
			metrics.DispatchPanics.Inc()
			log.Error("dispatch unit panic recovered", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	result, in := p.dispatcher.run(ctx, log, msg)

	if err := p.send(ctx, p.delivery, msg.Sender, result.ReplyText); err != nil {
		log.Error("reply delivery failed", "provider", p.delivery.Name(), "err", err)
	} else {
		metrics.RepliesDelivered.Inc()
	}

	if esc := result.Escalation; esc != nil {
		if err := p.send(ctx, p.escalation, esc.Recipient, esc.Text); err != nil {
			log.Error("escalation delivery failed", "provider", p.escalation.Name(), "recipient", esc.Recipient, "err", err)
		} else {
			metrics.Escalations.Inc()
			log.Info("escalated to operator", "recipient", esc.Recipient)
		}
	}

	metrics.DispatchLatency.ObserveSince(start)
	log.Info("dispatch complete", "intent", in.Kind.String(), "duration_ms", time.Since(start).Milliseconds())
	return result
}

func (p *Pool) send(ctx context.Context, d domain.Delivery, recipient, body string) error {
	ctx, cancel := context.WithTimeout(ctx, p.deliveryTimeout)
	defer cancel()
	defer metrics.UpstreamLatency("delivery").ObserveSince(time.Now())

	if err := d.Send(ctx, recipient, body); err != nil {
		metrics.DeliveryFailures.Inc()
		return err
	}
	return nil
}
