package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, baseURL string) *OpenAIClient {
	t.Helper()
	t.Setenv("TEST_LLM_KEY", "secret")
	c, err := NewOpenAIClient("TEST_LLM_KEY", "gpt-4o-mini", baseURL, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestGenerateWithSystem(t *testing.T) {
	var gotRequest chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotRequest); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret" {
			t.Errorf("unexpected authorization header: %q", auth)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "  respuesta  "}},
			},
		})
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	got, err := c.GenerateWithSystem(context.Background(), "sistema", "usuario")
	if err != nil {
		t.Fatal(err)
	}
	if got != "respuesta" {
		t.Errorf("expected trimmed 'respuesta', got %q", got)
	}

	if len(gotRequest.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(gotRequest.Messages))
	}
	if gotRequest.Messages[0].Role != "system" || gotRequest.Messages[0].Content != "sistema" {
		t.Errorf("unexpected system message: %+v", gotRequest.Messages[0])
	}
	if gotRequest.Temperature != 0 {
		t.Errorf("expected temperature 0, got %f", gotRequest.Temperature)
	}
}

func TestGenerateWithSystemAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "context length exceeded"},
		})
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.GenerateWithSystem(context.Background(), "sistema", "usuario")
	if err == nil {
		t.Fatal("expected API error")
	}
}

func TestGenerateWithSystemNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.GenerateWithSystem(context.Background(), "sistema", "usuario")
	if err == nil {
		t.Fatal("expected error on empty choices")
	}
}

func TestNewOpenAIClientMissingKey(t *testing.T) {
	t.Setenv("TEST_LLM_KEY", "")
	if _, err := NewOpenAIClient("TEST_LLM_KEY", "", "", 0); err == nil {
		t.Fatal("expected error for missing API key")
	}
}
