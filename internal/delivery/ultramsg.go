package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"aromabot/internal/domain"
)

const defaultUltraMsgBase = "https://api.ultramsg.com"

// UltraMsg sends WhatsApp text through the UltraMsg gateway.
type UltraMsg struct {
	endpoint string
	token    string
	client   *http.Client
	logger   *slog.Logger
}

type UltraMsgConfig struct {
	APIBase  string
	Instance string
	Token    string
	Timeout  time.Duration
	Logger   *slog.Logger
}

func NewUltraMsg(cfg UltraMsgConfig) *UltraMsg {
	if cfg.APIBase == "" {
		cfg.APIBase = defaultUltraMsgBase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &UltraMsg{
		endpoint: fmt.Sprintf("%s/%s/messages/chat", strings.TrimRight(cfg.APIBase, "/"), cfg.Instance),
		token:    cfg.Token,
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   cfg.Logger,
	}
}

func (u *UltraMsg) Name() string { return "ultramsg" }

func (u *UltraMsg) Send(ctx context.Context, recipient, body string) error {
	form := url.Values{
		"token": {u.token},
		"to":    {recipient},
		"body":  {body},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := u.client.Do(req)
	if err != nil {
		return domain.Upstream("delivery", err)
	}
	defer resp.Body.Close()

	if err := checkResponse(u.Name(), resp); err != nil {
		return err
	}
	if err := u.checkBody(resp); err != nil {
		return err
	}
	u.logger.Debug("message sent", "provider", u.Name(), "to", recipient, "chars", len(body))
	return nil
}

// ultraMsgResponse covers both outcomes: {"sent":"true",...} and
// {"error":"..."} or {"error":[{...}]}, both returned with HTTP 200.
type ultraMsgResponse struct {
	Sent  string          `json:"sent"`
	Error json.RawMessage `json:"error"`
}

func (u *UltraMsg) checkBody(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return domain.Upstream("delivery", err)
	}
	var r ultraMsgResponse
	if err := json.Unmarshal(body, &r); err != nil {
		// non-JSON 2xx bodies carry no error field
		return nil
	}
	raw := bytes.TrimSpace(r.Error)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte(`""`)) {
		return nil
	}
	msg := string(raw)
	var s string
	if json.Unmarshal(raw, &s) == nil {
		msg = s
	}
	return &domain.DeliveryError{
		Provider:   u.Name(),
		StatusCode: resp.StatusCode,
		Body:       msg,
	}
}
