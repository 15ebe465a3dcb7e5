package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/skills-extractor/internal/ai"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New("test-key", srv.URL, "test-model", time.Second, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return client
}

func TestExtractDecodesToolCallArguments(t *testing.T) {
	var got chatCompletionsRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected authorization header: %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "gen-1",
			"choices": [{
				"index": 0,
				"message": {
					"role": "assistant",
					"content": "",
					"tool_calls": [{
						"id": "call-1",
						"type": "function",
						"function": {
							"name": "record_skills",
							"arguments": "{\"skills\":[{\"skill_name\":\"Python\",\"category\":\"Programming\",\"proficiency_level\":\"advanced\"}]}"
						}
					}]
				},
				"finish_reason": "tool_calls"
			}]
		}`))
	})

	payload, err := client.Extract(context.Background(), "resume text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if payload.Kind != ai.PayloadToolCall {
		t.Fatalf("expected tool call payload, got %s", payload.Kind)
	}

	doc, err := payload.Document()
	if err != nil {
		t.Fatalf("unexpected document error: %v", err)
	}
	if string(doc) != `{"skills":[{"skill_name":"Python","category":"Programming","proficiency_level":"advanced"}]}` {
		t.Fatalf("unexpected document: %s", doc)
	}

	if got.Model != "test-model" {
		t.Fatalf("unexpected model: %q", got.Model)
	}
	if len(got.Tools) != 1 || got.Tools[0].Function.Name != toolName {
		t.Fatalf("expected record_skills tool, got %+v", got.Tools)
	}
	if got.ToolChoice.Function.Name != toolName {
		t.Fatalf("expected forced tool choice, got %+v", got.ToolChoice)
	}
	if len(got.Messages) != 2 || got.Messages[1].Content != "resume text" {
		t.Fatalf("unexpected messages: %+v", got.Messages)
	}
}

func TestExtractFallsBackToMessageContent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"skills\":[]}"}}]}`))
	})

	payload, err := client.Extract(context.Background(), "resume text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.Kind != ai.PayloadDirect || payload.Body != `{"skills":[]}` {
		t.Fatalf("expected direct payload, got %+v", payload)
	}
}

func TestExtractStatusErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{"error":{"message":"slow down","code":429}}`, want: ai.ErrRateLimited},
		{name: "credits", status: http.StatusPaymentRequired, body: `{"error":{"message":"insufficient credits","code":402}}`, want: ai.ErrQuotaExceeded},
		{name: "server error", status: http.StatusBadGateway, body: `upstream down`, want: ai.ErrService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.Extract(context.Background(), "resume text")
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}

			var statusErr *ai.StatusError
			if !errors.As(err, &statusErr) || statusErr.Code != tt.status {
				t.Fatalf("expected status error with code %d, got %v", tt.status, err)
			}
			if n := calls.Load(); n != 1 {
				t.Fatalf("expected a single call, got %d", n)
			}
		})
	}
}

func TestExtractMalformedResponses(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"not json":     `<html>oops</html>`,
		"no choices":   `{"choices":[]}`,
		"empty":        `{"choices":[{"message":{"role":"assistant","content":"  "}}]}`,
		"foreign tool": `{"choices":[{"message":{"tool_calls":[{"type":"function","function":{"name":"other","arguments":"{}"}}]}}]}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			})

			_, err := client.Extract(context.Background(), "resume text")
			if !errors.Is(err, ai.ErrService) {
				t.Fatalf("expected ErrService, got %v", err)
			}
		})
	}
}

func TestExtractHonoursContextDeadline(t *testing.T) {
	block := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	})
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Extract(ctx, "resume text")
	if !errors.Is(err, ai.ErrService) {
		t.Fatalf("expected ErrService, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline to be preserved in chain, got %v", err)
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(" ", "", "", 0, zap.NewNop()); err == nil {
		t.Fatal("expected error for empty api key")
	}

	client, err := New("key", "", "", 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.BaseURL != defaultBaseURL || client.Model() != defaultModel {
		t.Fatalf("expected defaults, got %q %q", client.BaseURL, client.Model())
	}
}
