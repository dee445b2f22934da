package domain

import "time"

// InboundMessage is a validated, normalized chat message ready for dispatch.
// Text is case-folded and trimmed; Sender carries no transport qualifier.
type InboundMessage struct {
	ID         string    // gateway message id, or a generated uuid when absent
	Sender     string    // e.g. "5511999990000"
	Text       string    // normalized text used for classification
	RawText    string    // text as received, trimmed only
	ReceivedAt time.Time
}

// Escalation is a secondary notification sent to an operator.
type Escalation struct {
	Recipient string
	Text      string
}

// DispatchResult is the only output of the dispatcher.
type DispatchResult struct {
	ReplyText  string
	Escalation *Escalation // nil unless the message was handed off
}
