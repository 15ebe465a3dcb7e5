package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/skills-extractor/internal/ai"
)

type fakeModels struct {
	mu    sync.Mutex
	calls []modelsCall
	resp  *genai.GenerateContentResponse
	err   error
}

type modelsCall struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, modelsCall{model: model, contents: contents, config: config})
	return f.resp, f.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func TestExtractReturnsDirectPayload(t *testing.T) {
	models := &fakeModels{resp: textResponse(`{"skills":[{"skill_name":"Python","category":"Programming","proficiency_level":"advanced"}]}`)}
	extractor := newExtractor(models, "gemini-test", 0, zap.NewNop())

	payload, err := extractor.Extract(context.Background(), "extract skills from: Python")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if payload.Kind != ai.PayloadDirect {
		t.Fatalf("expected direct payload, got %s", payload.Kind)
	}

	doc, err := payload.Document()
	if err != nil {
		t.Fatalf("unexpected document error: %v", err)
	}
	if string(doc) != `{"skills":[{"skill_name":"Python","category":"Programming","proficiency_level":"advanced"}]}` {
		t.Fatalf("unexpected document: %s", doc)
	}

	if len(models.calls) != 1 {
		t.Fatalf("expected a single call, got %d", len(models.calls))
	}

	call := models.calls[0]
	if call.model != "gemini-test" {
		t.Fatalf("unexpected model: %q", call.model)
	}
	if len(call.contents) != 1 || call.contents[0].Parts[0].Text != "extract skills from: Python" {
		t.Fatalf("unexpected contents: %+v", call.contents)
	}
	if call.config == nil || call.config.ResponseMIMEType != "application/json" {
		t.Fatalf("expected json response mime type, got %+v", call.config)
	}
	if call.config.SystemInstruction == nil || call.config.SystemInstruction.Parts[0].Text != systemInstruction {
		t.Fatalf("expected system instruction to be set")
	}

	schema := call.config.ResponseSchema
	if schema == nil || schema.Properties["skills"] == nil || schema.Properties["skills"].Items == nil {
		t.Fatalf("expected skills schema, got %+v", schema)
	}
	item := schema.Properties["skills"].Items
	if len(item.Required) != 3 {
		t.Fatalf("expected three required fields, got %v", item.Required)
	}
	if got := item.Properties["proficiency_level"].Enum; len(got) != 4 {
		t.Fatalf("expected four proficiency levels, got %v", got)
	}
	if got := item.Properties["category"].Enum; len(got) != 9 {
		t.Fatalf("expected nine categories, got %v", got)
	}
}

func TestExtractDefaultsModel(t *testing.T) {
	extractor := newExtractor(&fakeModels{}, "  ", 0, zap.NewNop())
	if extractor.Model() != defaultModel {
		t.Fatalf("expected default model, got %q", extractor.Model())
	}
	if extractor.Provider() != "gemini" {
		t.Fatalf("unexpected provider: %q", extractor.Provider())
	}
}

func TestExtractFunctionCallBecomesToolCallPayload(t *testing.T) {
	models := &fakeModels{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{
				FunctionCall: &genai.FunctionCall{
					Name: "record_skills",
					Args: map[string]any{"skills": []any{map[string]any{"skill_name": "Go"}}},
				},
			}}},
		}},
	}}
	extractor := newExtractor(models, "gemini-test", 0, zap.NewNop())

	payload, err := extractor.Extract(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.Kind != ai.PayloadToolCall || payload.Call.Name != "record_skills" {
		t.Fatalf("expected tool call payload, got %+v", payload)
	}
	if payload.Call.Arguments != `{"skills":[{"skill_name":"Go"}]}` {
		t.Fatalf("unexpected arguments: %s", payload.Call.Arguments)
	}
}

func TestExtractClassifiesAPIErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "rate limited",
			err:  genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED"},
			want: ai.ErrRateLimited,
		},
		{
			name: "payment required",
			err:  genai.APIError{Code: http.StatusPaymentRequired},
			want: ai.ErrQuotaExceeded,
		},
		{
			name: "wrapped server error",
			err:  fmt.Errorf("transport: %w", genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}),
			want: ai.ErrService,
		},
		{
			name: "deadline",
			err:  context.DeadlineExceeded,
			want: ai.ErrService,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			extractor := newExtractor(&fakeModels{err: tt.err}, "gemini-test", 0, zap.NewNop())

			_, err := extractor.Extract(context.Background(), "prompt")
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestExtractRateLimitIsNotRetried(t *testing.T) {
	models := &fakeModels{err: genai.APIError{Code: http.StatusTooManyRequests}}
	extractor := newExtractor(models, "gemini-test", 0, zap.NewNop())

	if _, err := extractor.Extract(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error")
	}
	if len(models.calls) != 1 {
		t.Fatalf("expected a single call, got %d", len(models.calls))
	}
}

func TestExtractEmptyResponses(t *testing.T) {
	t.Parallel()

	cases := map[string]*genai.GenerateContentResponse{
		"nil":           nil,
		"no candidates": {},
		"blank text":    textResponse("   "),
		"blocked": {
			PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonSafety},
		},
	}

	for name, resp := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			extractor := newExtractor(&fakeModels{resp: resp}, "gemini-test", 0, zap.NewNop())
			_, err := extractor.Extract(context.Background(), "prompt")
			if !errors.Is(err, ai.ErrService) {
				t.Fatalf("expected ErrService, got %v", err)
			}
		})
	}
}

func TestExtractRejectsEmptyPrompt(t *testing.T) {
	models := &fakeModels{resp: textResponse("{}")}
	extractor := newExtractor(models, "gemini-test", 0, zap.NewNop())

	if _, err := extractor.Extract(context.Background(), "  "); !errors.Is(err, ai.ErrService) {
		t.Fatalf("expected ErrService, got %v", err)
	}
	if len(models.calls) != 0 {
		t.Fatalf("expected no calls, got %d", len(models.calls))
	}
}
