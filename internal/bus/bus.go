package bus

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"aromabot/internal/domain"
)

const publishTimeout = 10 * time.Second

var (
	ErrBusFull   = errors.New("inbound queue full")
	ErrBusClosed = errors.New("inbound queue closed")
)

// InMemoryBus is a Go-channel based queue between the webhook and the
// dispatch workers.
type InMemoryBus struct {
	inbound        chan domain.InboundMessage
	publishTimeout time.Duration
	mu             sync.RWMutex
	closed         bool
	logger         *slog.Logger
}

// New creates a new InMemoryBus with the given buffer size.
func New(bufferSize int, logger *slog.Logger) *InMemoryBus {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryBus{
		inbound:        make(chan domain.InboundMessage, bufferSize),
		publishTimeout: publishTimeout,
		logger:         logger,
	}
}

// Publish enqueues msg. It blocks up to 10 seconds if the bus is full and
// then gives up with ErrBusFull instead of silently dropping.
func (b *InMemoryBus) Publish(msg domain.InboundMessage) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		b.logger.Warn("attempted to publish to closed bus", "id", msg.ID)
		return ErrBusClosed
	}

	select {
	case b.inbound <- msg:
		return nil
	default:
	}

	b.logger.Warn("inbound bus full, waiting...", "sender", msg.Sender, "id", msg.ID)
	timer := time.NewTimer(b.publishTimeout)
	defer timer.Stop()
	select {
	case b.inbound <- msg:
		b.logger.Info("message queued after wait", "sender", msg.Sender)
		return nil
	case <-timer.C:
		b.logger.Error("message rejected: bus full",
			"sender", msg.Sender,
			"waited", b.publishTimeout,
		)
		return ErrBusFull
	}
}

func (b *InMemoryBus) Subscribe() <-chan domain.InboundMessage {
	return b.inbound
}

// Len returns the number of queued messages.
func (b *InMemoryBus) Len() int {
	return len(b.inbound)
}

func (b *InMemoryBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.closed {
		b.closed = true
		close(b.inbound)
	}
}
