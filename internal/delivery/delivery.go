// Package delivery sends outbound text to chat users through a messaging
// provider. Every provider reports a non-success status as a
// domain.DeliveryError and a transport failure as an UpstreamError.
package delivery

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"aromabot/internal/config"
	"aromabot/internal/domain"
)

const (
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 512
)

// New builds the provider named by name from cfg. An empty name selects
// cfg.Provider. The result is throttled when cfg.RatePerSecond is set.
func New(name string, cfg config.DeliveryConfig, logger *slog.Logger) (domain.Delivery, error) {
	if name == "" {
		name = cfg.Provider
	}
	timeout := config.Seconds(cfg.TimeoutSeconds, defaultTimeout)

	var d domain.Delivery
	switch name {
	case "ultramsg":
		if cfg.UltraMsg.Instance == "" || cfg.UltraMsg.Token == "" {
			return nil, fmt.Errorf("ultramsg: instance and token are required")
		}
		d = NewUltraMsg(UltraMsgConfig{
			APIBase:  cfg.UltraMsg.APIBase,
			Instance: cfg.UltraMsg.Instance,
			Token:    cfg.UltraMsg.Token,
			Timeout:  timeout,
			Logger:   logger,
		})
	case "whatsapp":
		if cfg.WhatsApp.AccessToken == "" || cfg.WhatsApp.PhoneNumberID == "" {
			return nil, fmt.Errorf("whatsapp: accessToken and phoneNumberId are required")
		}
		d = NewWhatsAppCloud(WhatsAppCloudConfig{
			APIBase:       cfg.WhatsApp.APIBase,
			AccessToken:   cfg.WhatsApp.AccessToken,
			PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
			Timeout:       timeout,
			Logger:        logger,
		})
	case "telegram":
		if cfg.Telegram.Token == "" {
			return nil, fmt.Errorf("telegram: token is required")
		}
		d = NewTelegram(TelegramConfig{
			Token:   cfg.Telegram.Token,
			Timeout: timeout,
			Logger:  logger,
		})
	case "log":
		d = NewLog(logger)
	default:
		return nil, fmt.Errorf("unknown delivery provider %q", name)
	}

	if cfg.RatePerSecond > 0 {
		d = NewRateLimited(d, rate.Limit(cfg.RatePerSecond), cfg.Burst)
	}
	return d, nil
}

// checkResponse turns a non-2xx response into a DeliveryError.
func checkResponse(provider string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &domain.DeliveryError{
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}
