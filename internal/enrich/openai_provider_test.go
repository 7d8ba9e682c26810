package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amishk599/applynow/internal/model"
)

func makeTestServer(t *testing.T, statusCode int, body any) (*httptest.Server, *http.Client) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		if err := json.NewEncoder(w).Encode(body); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, srv.Client()
}

func TestComplete_Success(t *testing.T) {
	resp := chatResponse{Choices: []chatChoice{{Message: chatMessage{Content: `{"department":"design"}`}}}}
	srv, client := makeTestServer(t, http.StatusOK, resp)

	provider := NewOpenAIProvider(srv.URL, "test-key", "test-model", client)
	got, err := provider.Complete(context.Background(), "enrich this")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"department":"design"}` {
		t.Errorf("got %q, want json string", got)
	}
}

func TestComplete_HTTPError(t *testing.T) {
	srv, client := makeTestServer(t, http.StatusInternalServerError, map[string]string{"error": "server error"})

	provider := NewOpenAIProvider(srv.URL, "test-key", "test-model", client)
	_, err := provider.Complete(context.Background(), "enrich this")
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("err = %v, want HTTPError 500", err)
	}
}

func TestComplete_RateLimitedCarriesRetryAfter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	provider := NewOpenAIProvider(srv.URL, "k", "m", srv.Client())
	_, err := provider.Complete(context.Background(), "x")
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("err = %v, want HTTPError", err)
	}
	if httpErr.RetryAfter != 7*time.Second {
		t.Errorf("RetryAfter = %v, want 7s", httpErr.RetryAfter)
	}
}

func TestComplete_EmptyChoices(t *testing.T) {
	srv, client := makeTestServer(t, http.StatusOK, chatResponse{})

	provider := NewOpenAIProvider(srv.URL, "test-key", "test-model", client)
	if _, err := provider.Complete(context.Background(), "enrich this"); err == nil {
		t.Fatal("expected error when LLM returns no choices")
	}
}

func TestComplete_RequestShape(t *testing.T) {
	var (
		gotAuth string
		gotReq  chatRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(chatResponse{Choices: []chatChoice{{Message: chatMessage{Content: "{}"}}}})
	}))
	defer srv.Close()

	provider := NewOpenAIProvider(srv.URL, "secret", "gpt-test", srv.Client())
	if _, err := provider.Complete(context.Background(), "hello"); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotReq.Model != "gpt-test" {
		t.Errorf("model = %q", gotReq.Model)
	}
	if gotReq.ResponseFormat.Type != "json_schema" || !gotReq.ResponseFormat.JSONSchema.Strict {
		t.Errorf("response_format = %+v", gotReq.ResponseFormat)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[1].Content != "hello" {
		t.Errorf("messages = %+v", gotReq.Messages)
	}
}
