package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/skills-extractor/internal/ai"
	"github.com/spigell/skills-extractor/internal/logger"
	"github.com/spigell/skills-extractor/internal/utils"
)

const (
	providerName   = "openrouter"
	defaultBaseURL = "https://openrouter.ai/api/v1"
	defaultModel   = "google/gemini-2.5-flash"

	// toolName is the function the model is forced to call with the extracted skills.
	toolName = "record_skills"

	maxErrorBody = 4 << 10
)

// Client is a minimal OpenAI-compatible chat completions client that forces a tool call.
type Client struct {
	APIKey   string
	BaseURL  string
	AppTitle string
	Referer  string

	model  string
	httpDo *http.Client
	logger *zap.Logger
}

// New creates a client. The timeout applies to the whole HTTP exchange.
func New(apiKey, baseURL, model string, timeout time.Duration, log *zap.Logger) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openrouter api key is required")
	}
	if baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/"); baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		APIKey:  apiKey,
		BaseURL: baseURL,
		model:   model,
		httpDo:  &http.Client{Timeout: timeout},
		logger:  logger.WithCommonFields(log, providerName, model),
	}, nil
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type functionDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type tool struct {
	Type     string      `json:"type"`
	Function functionDef `json:"function"`
}

type toolChoice struct {
	Type     string `json:"type"`
	Function struct {
		Name string `json:"name"`
	} `json:"function"`
}

type chatCompletionsRequest struct {
	Model       string     `json:"model"`
	Messages    []message  `json:"messages"`
	Tools       []tool     `json:"tools"`
	ToolChoice  toolChoice `json:"tool_choice"`
	Temperature float32    `json:"temperature,omitempty"`
}

type toolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type chatChoice struct {
	Index   int `json:"index"`
	Message struct {
		Role      string     `json:"role"`
		Content   string     `json:"content"`
		ToolCalls []toolCall `json:"tool_calls"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

type chatCompletionsResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// Extract sends the prompt with a forced tool call and returns the call's arguments.
func (c *Client) Extract(ctx context.Context, prompt string) (ai.Payload, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return ai.Payload{}, fmt.Errorf("%w: prompt must not be empty", ai.ErrService)
	}

	reqBody := chatCompletionsRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: "You are a resume skill extractor. Report the skills by calling " + toolName + "."},
			{Role: "user", Content: prompt},
		},
		Tools: []tool{{
			Type: "function",
			Function: functionDef{
				Name:        toolName,
				Description: "Record every skill extracted from the resume.",
				Parameters:  parametersSchema(),
			},
		}},
		Temperature: 0.1,
	}
	reqBody.ToolChoice.Type = "function"
	reqBody.ToolChoice.Function.Name = toolName

	data, err := json.Marshal(reqBody)
	if err != nil {
		return ai.Payload{}, fmt.Errorf("%w: encode request: %w", ai.ErrService, err)
	}

	endpoint := c.BaseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return ai.Payload{}, fmt.Errorf("%w: build request: %w", ai.ErrService, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	if c.Referer != "" {
		httpReq.Header.Set("HTTP-Referer", c.Referer)
	}
	if c.AppTitle != "" {
		httpReq.Header.Set("X-Title", c.AppTitle)
	}

	c.logger.Debug("openrouter chat completions request",
		zap.String("url", endpoint),
		zap.Int("prompt_length", len(prompt)),
	)

	resp, err := c.httpDo.Do(httpReq)
	if err != nil {
		return ai.Payload{}, fmt.Errorf("%w: %w", ai.ErrService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn("openrouter returned error status",
			zap.Int("status", resp.StatusCode),
			zap.String("body_preview", utils.TruncateForLog(string(body), 200)),
		)
		return ai.Payload{}, &ai.StatusError{Provider: providerName, Code: resp.StatusCode, Message: errorMessage(body)}
	}

	var out chatCompletionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ai.Payload{}, fmt.Errorf("%w: decode response: %w", ai.ErrService, err)
	}

	return payloadFromChoices(out.Choices)
}

// Provider returns the provider name used in logs.
func (c *Client) Provider() string { return providerName }

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

func payloadFromChoices(choices []chatChoice) (ai.Payload, error) {
	if len(choices) == 0 {
		return ai.Payload{}, fmt.Errorf("%w: no choices returned by model", ai.ErrService)
	}

	msg := choices[0].Message
	if len(msg.ToolCalls) > 0 {
		for _, call := range msg.ToolCalls {
			if call.Function.Name == toolName {
				return ai.FromToolCall(call.Function.Name, call.Function.Arguments), nil
			}
		}
		return ai.Payload{}, fmt.Errorf("%w: model called unexpected tool %q", ai.ErrService, msg.ToolCalls[0].Function.Name)
	}

	if strings.TrimSpace(msg.Content) != "" {
		return ai.Direct(msg.Content), nil
	}

	return ai.Payload{}, fmt.Errorf("%w: empty message returned by model", ai.ErrService)
}

func errorMessage(body []byte) string {
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return strings.TrimSpace(string(body))
}
