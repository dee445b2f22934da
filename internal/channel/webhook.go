// Package channel is the inbound side of the router: it validates and
// normalizes gateway webhooks and queues them for dispatch.
package channel

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"aromabot/internal/dedupe"
	"aromabot/internal/domain"
	"aromabot/internal/metrics"
)

const maxWebhookBody = 1 << 20 // 1MB

// WebhookConfig configures the inbound adapter.
type WebhookConfig struct {
	Bus    domain.MessageBus
	Secret string        // HMAC secret for verifying webhook signatures
	Dedupe *dedupe.Cache // optional; redeliveries of a known id are acknowledged only
	Logger *slog.Logger
}

// Webhook accepts messaging-gateway POSTs and publishes them to the bus.
// It answers before any dispatch work happens.
type Webhook struct {
	bus    domain.MessageBus
	secret string
	seen   *dedupe.Cache
	logger *slog.Logger
}

func NewWebhook(cfg WebhookConfig) *Webhook {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Webhook{
		bus:    cfg.Bus,
		secret: cfg.Secret,
		seen:   cfg.Dedupe,
		logger: cfg.Logger,
	}
}

// webhookPayload covers the accepted shapes: top-level {"body","from"},
// the UltraMsg envelope {"event_type","data":{...}} and {"message":{...}}.
type webhookPayload struct {
	messageFields
	EventType string         `json:"event_type"`
	Data      *messageFields `json:"data"`
	Message   *messageFields `json:"message"`
}

type messageFields struct {
	ID     string `json:"id"`
	From   string `json:"from"`
	Body   string `json:"body"`
	FromMe bool   `json:"fromMe"`
	Type   string `json:"type"`
}

func (p webhookPayload) fields() messageFields {
	switch {
	case p.Data != nil:
		return *p.Data
	case p.Message != nil:
		return *p.Message
	default:
		return p.messageFields
	}
}

// errIgnored marks a well-formed event that is acknowledged but not dispatched.
type errIgnored struct{ reason string }

func (e *errIgnored) Error() string { return "ignored: " + e.reason }

// ParsePayload validates a webhook body and normalizes it into an
// InboundMessage. Events that should be acknowledged without dispatch
// return an error for which Ignored reports true.
func ParsePayload(body []byte, now time.Time) (domain.InboundMessage, error) {
	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return domain.InboundMessage{}, &domain.ValidationError{Field: "payload", Reason: "invalid JSON"}
	}
	f := p.fields()

	switch {
	case p.EventType != "" && p.EventType != "message_received":
		return domain.InboundMessage{}, &errIgnored{reason: "event " + p.EventType}
	case f.FromMe:
		return domain.InboundMessage{}, &errIgnored{reason: "own message"}
	case f.Type != "" && f.Type != "chat" && f.Type != "text":
		return domain.InboundMessage{}, &errIgnored{reason: "type " + f.Type}
	case strings.HasSuffix(f.From, "@g.us"):
		return domain.InboundMessage{}, &errIgnored{reason: "group message"}
	}

	raw := strings.TrimSpace(f.Body)
	if raw == "" {
		return domain.InboundMessage{}, &domain.ValidationError{Field: "body", Reason: "missing"}
	}
	sender := NormalizeSender(f.From)
	if sender == "" {
		return domain.InboundMessage{}, &domain.ValidationError{Field: "from", Reason: "missing"}
	}

	return domain.InboundMessage{
		ID:         strings.TrimSpace(f.ID),
		Sender:     sender,
		Text:       strings.ToLower(raw),
		RawText:    raw,
		ReceivedAt: now,
	}, nil
}

// Ignored reports whether err came from an event that is acknowledged
// without dispatch.
func Ignored(err error) bool {
	var ig *errIgnored
	return errors.As(err, &ig)
}

// NormalizeSender strips WhatsApp channel qualifiers from a sender id.
func NormalizeSender(from string) string {
	from = strings.TrimSpace(from)
	for _, suffix := range []string{"@c.us", "@s.whatsapp.net"} {
		from = strings.TrimSuffix(from, suffix)
	}
	return from
}

func (w *Webhook) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(rw, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody+1))
	if err != nil {
		http.Error(rw, "Bad Request", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	if len(body) > maxWebhookBody {
		metrics.MessagesRejected.Inc()
		http.Error(rw, "Payload Too Large", http.StatusRequestEntityTooLarge)
		return
	}

	// Verify HMAC signature if secret is configured.
	if w.secret != "" {
		sig := r.Header.Get("X-Signature-256")
		if sig == "" {
			http.Error(rw, "Missing signature", http.StatusUnauthorized)
			return
		}
		if !verifyHMAC(body, w.secret, sig) {
			http.Error(rw, "Invalid signature", http.StatusForbidden)
			return
		}
	}

	msg, err := ParsePayload(body, time.Now())
	if err != nil {
		if Ignored(err) {
			metrics.MessagesIgnored.Inc()
			w.logger.Debug("webhook event ignored", "err", err)
			writeJSON(rw, http.StatusOK, map[string]string{"status": "ignored"})
			return
		}
		metrics.MessagesRejected.Inc()
		w.logger.Warn("webhook rejected", "err", err)
		writeJSON(rw, http.StatusBadRequest, map[string]string{"status": "rejected", "error": err.Error()})
		return
	}

	dedupeKey := msg.ID
	if dedupeKey != "" && w.seen.Seen(dedupeKey) {
		metrics.MessagesDuplicate.Inc()
		w.logger.Info("duplicate webhook acknowledged", "id", msg.ID, "sender", msg.Sender)
		writeJSON(rw, http.StatusOK, map[string]string{"status": "duplicate"})
		return
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	if err := w.bus.Publish(msg); err != nil {
		w.seen.Forget(dedupeKey)
		w.logger.Error("webhook not queued", "id", msg.ID, "err", err)
		writeJSON(rw, http.StatusServiceUnavailable, map[string]string{"status": "busy"})
		return
	}

	metrics.MessagesReceived.Inc()
	metrics.QueueDepth.Set(int64(w.bus.Len()))
	w.logger.Info("webhook received",
		"id", msg.ID,
		"sender", msg.Sender,
		"content_len", len(msg.RawText),
	)

	writeJSON(rw, http.StatusAccepted, map[string]string{
		"status": "accepted",
		"id":     msg.ID,
	})
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	json.NewEncoder(rw).Encode(v)
}

// verifyHMAC verifies the HMAC-SHA256 signature of the body.
func verifyHMAC(body []byte, secret, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
