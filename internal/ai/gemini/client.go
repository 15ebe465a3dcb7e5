package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/skills-extractor/internal/ai"
	"github.com/spigell/skills-extractor/internal/logger"
	"github.com/spigell/skills-extractor/internal/utils"
)

const (
	providerName = "gemini"
	defaultModel = "gemini-2.5-flash"

	defaultMaxLogLength = 200
	systemInstruction   = "You are a resume skill extractor. Answer only with JSON that matches the response schema."
)

// modelsAPI is the part of genai.Models the extractor needs.
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Extractor wraps the Google GenAI client and enforces the skills response schema.
type Extractor struct {
	models    modelsAPI
	model     string
	logger    *zap.Logger
	maxLogLen int
}

// New creates an Extractor configured for the Gemini API backend.
func New(ctx context.Context, apiKey, model string, maxLogLength int, log *zap.Logger) (*Extractor, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newExtractor(client.Models, model, maxLogLength, log), nil
}

func newExtractor(models modelsAPI, model string, maxLogLength int, log *zap.Logger) *Extractor {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Extractor{
		models:    models,
		model:     model,
		logger:    logger.WithCommonFields(log, providerName, model),
		maxLogLen: maxLogLength,
	}
}

// Extract sends the prompt once and returns the schema-constrained payload.
func (e *Extractor) Extract(ctx context.Context, prompt string) (ai.Payload, error) {
	if e == nil || e.models == nil {
		return ai.Payload{}, fmt.Errorf("%w: gemini extractor is not initialized", ai.ErrService)
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return ai.Payload{}, fmt.Errorf("%w: prompt must not be empty", ai.ErrService)
	}

	e.logger.Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, e.maxLogLen)),
	)

	resp, err := e.models.GenerateContent(ctx, e.model, genai.Text(prompt), generateConfig())
	if err != nil {
		return ai.Payload{}, classify(err)
	}

	payload, err := payloadFromResponse(resp)
	if err != nil {
		return ai.Payload{}, err
	}

	e.logger.Debug("gemini generate content response",
		zap.Stringer("payload_kind", payload.Kind),
		zap.Int("response_length", payload.Len()),
	)

	return payload, nil
}

// Provider returns the provider name used in logs.
func (e *Extractor) Provider() string { return providerName }

// Model returns the configured model name.
func (e *Extractor) Model() string {
	if e == nil {
		return ""
	}
	return e.model
}

func generateConfig() *genai.GenerateContentConfig {
	temperature := float32(0.1)
	return &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		},
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema(),
	}
}

func payloadFromResponse(resp *genai.GenerateContentResponse) (ai.Payload, error) {
	if resp == nil {
		return ai.Payload{}, fmt.Errorf("%w: gemini api returned no response", ai.ErrService)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return ai.Payload{}, fmt.Errorf("%w: prompt blocked: %s", ai.ErrService, resp.PromptFeedback.BlockReason)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			if part.FunctionCall != nil {
				args, err := json.Marshal(part.FunctionCall.Args)
				if err != nil {
					return ai.Payload{}, fmt.Errorf("%w: encode function call args: %w", ai.ErrService, err)
				}
				return ai.FromToolCall(part.FunctionCall.Name, string(args)), nil
			}
			builder.WriteString(part.Text)
		}
		// Only the first usable candidate counts.
		if builder.Len() > 0 {
			break
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return ai.Payload{}, fmt.Errorf("%w: gemini api returned empty response", ai.ErrService)
	}

	return ai.Direct(output), nil
}

func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &ai.StatusError{Provider: providerName, Code: apiErr.Code, Message: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &ai.StatusError{Provider: providerName, Code: apiErrPtr.Code, Message: apiErrPtr.Message}
	}
	return fmt.Errorf("%w: generate content: %w", ai.ErrService, err)
}
