package responder

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"aromabot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type chatRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	Messages  []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func completionServer(t *testing.T, content string, got *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", auth)
		}
		if got != nil {
			json.NewDecoder(r.Body).Decode(got)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":    "cmpl-1",
			"model": "openai/gpt-3.5-turbo",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerate(t *testing.T) {
	var req chatRequest
	srv := completionServer(t, "  Olá! O custo é R$ 12,50.  ", &req)

	r := New(Config{APIKey: "test-key", APIBase: srv.URL + "/", Persona: "Você é atencioso.", MaxTokens: 256, Logger: testLogger()})
	out, err := r.Generate(context.Background(), "Diga o custo")
	if err != nil {
		t.Fatal(err)
	}
	if out != "Olá! O custo é R$ 12,50." {
		t.Errorf("unexpected output %q", out)
	}

	if req.Model != DefaultModel {
		t.Errorf("model = %q", req.Model)
	}
	if req.MaxTokens != 256 {
		t.Errorf("max_tokens = %d", req.MaxTokens)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Content != "Diga o custo" {
		t.Errorf("unexpected messages %+v", req.Messages)
	}
}

func TestGenerate_NoPersona(t *testing.T) {
	var req chatRequest
	srv := completionServer(t, "ok", &req)

	r := New(Config{APIKey: "test-key", APIBase: srv.URL, Logger: testLogger()})
	if _, err := r.Generate(context.Background(), "oi"); err != nil {
		t.Fatal(err)
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
		t.Errorf("expected a single user message, got %+v", req.Messages)
	}
}

func TestGenerate_EmptyCompletion(t *testing.T) {
	srv := completionServer(t, "   ", nil)
	r := New(Config{APIKey: "test-key", APIBase: srv.URL, Logger: testLogger()})

	_, err := r.Generate(context.Background(), "oi")
	var ge *domain.GenerationError
	if !errors.As(err, &ge) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
}

func TestGenerate_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"x","choices":[]}`))
	}))
	defer srv.Close()

	r := New(Config{APIKey: "test-key", APIBase: srv.URL, Logger: testLogger()})
	_, err := r.Generate(context.Background(), "oi")
	var ge *domain.GenerationError
	if !errors.As(err, &ge) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
}

func TestGenerate_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":{"message":"provider down","type":"server_error"}}`))
	}))
	defer srv.Close()

	r := New(Config{APIKey: "test-key", APIBase: srv.URL, Logger: testLogger()})
	_, err := r.Generate(context.Background(), "oi")
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestGenerate_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	r := New(Config{APIKey: "test-key", APIBase: srv.URL, Timeout: 50 * time.Millisecond, Logger: testLogger()})
	_, err := r.Generate(context.Background(), "oi")
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}
