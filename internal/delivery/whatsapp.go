package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"aromabot/internal/domain"
)

const defaultWhatsAppBase = "https://graph.facebook.com/v21.0"

// WhatsAppCloud sends text through the WhatsApp Cloud API.
type WhatsAppCloud struct {
	endpoint    string
	accessToken string
	client      *http.Client
	logger      *slog.Logger
}

type WhatsAppCloudConfig struct {
	APIBase       string
	AccessToken   string
	PhoneNumberID string
	Timeout       time.Duration
	Logger        *slog.Logger
}

func NewWhatsAppCloud(cfg WhatsAppCloudConfig) *WhatsAppCloud {
	if cfg.APIBase == "" {
		cfg.APIBase = defaultWhatsAppBase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &WhatsAppCloud{
		endpoint:    fmt.Sprintf("%s/%s/messages", strings.TrimRight(cfg.APIBase, "/"), cfg.PhoneNumberID),
		accessToken: cfg.AccessToken,
		client:      &http.Client{Timeout: cfg.Timeout},
		logger:      cfg.Logger,
	}
}

func (w *WhatsAppCloud) Name() string { return "whatsapp" }

func (w *WhatsAppCloud) Send(ctx context.Context, recipient, body string) error {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                recipient,
		"type":              "text",
		"text":              map[string]string{"body": body},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+w.accessToken)

	resp, err := w.client.Do(req)
	if err != nil {
		return domain.Upstream("delivery", err)
	}
	defer resp.Body.Close()

	if err := checkResponse(w.Name(), resp); err != nil {
		return err
	}
	w.logger.Debug("message sent", "provider", w.Name(), "to", recipient, "chars", len(body))
	return nil
}
