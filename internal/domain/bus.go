package domain

// MessageBus queues inbound messages between the webhook and the workers.
type MessageBus interface {
	Publish(msg InboundMessage) error
	Subscribe() <-chan InboundMessage
	Len() int
	Close()
}
