package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrRateLimited means the provider answered 429; the caller may try again later.
	ErrRateLimited = errors.New("ai provider rate limited the request")
	// ErrQuotaExceeded means the provider answered 402; credits or quota must be topped up.
	ErrQuotaExceeded = errors.New("ai provider requires credits")
	// ErrService covers every other provider failure, including empty or malformed payloads.
	ErrService = errors.New("ai provider failed")
)

// Extractor sends an extraction prompt to a model and returns its structured payload.
type Extractor interface {
	Extract(ctx context.Context, prompt string) (Payload, error)
	Provider() string
	Model() string
}

// PayloadKind discriminates the two response shapes providers use for structured output.
type PayloadKind int

const (
	// PayloadDirect is a JSON document produced under a declared response schema.
	PayloadDirect PayloadKind = iota + 1
	// PayloadToolCall is a function call whose arguments are a JSON-encoded string.
	PayloadToolCall
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadDirect:
		return "direct"
	case PayloadToolCall:
		return "tool_call"
	default:
		return "unknown"
	}
}

// ToolCall is the function call returned by providers that enforce the schema through tools.
type ToolCall struct {
	Name      string
	Arguments string
}

// Payload is the structured part of a model response.
// Exactly one of Body and Call is meaningful, selected by Kind.
type Payload struct {
	Kind PayloadKind
	Body string
	Call *ToolCall
}

// Direct builds a direct payload.
func Direct(body string) Payload {
	return Payload{Kind: PayloadDirect, Body: body}
}

// FromToolCall builds a tool call payload.
func FromToolCall(name, arguments string) Payload {
	return Payload{Kind: PayloadToolCall, Call: &ToolCall{Name: name, Arguments: arguments}}
}

// Document returns the JSON document carried by the payload.
func (p Payload) Document() ([]byte, error) {
	switch p.Kind {
	case PayloadDirect:
		if strings.TrimSpace(p.Body) == "" {
			return nil, fmt.Errorf("%w: empty response body", ErrService)
		}
		return []byte(p.Body), nil
	case PayloadToolCall:
		if p.Call == nil || strings.TrimSpace(p.Call.Arguments) == "" {
			return nil, fmt.Errorf("%w: tool call without arguments", ErrService)
		}
		return []byte(p.Call.Arguments), nil
	default:
		return nil, fmt.Errorf("%w: unknown payload kind %d", ErrService, p.Kind)
	}
}

// Len reports the size of the carried document for logging.
func (p Payload) Len() int {
	if p.Kind == PayloadToolCall && p.Call != nil {
		return len(p.Call.Arguments)
	}
	return len(p.Body)
}

// ClassifyStatus maps a provider HTTP status to one of the failure sentinels.
func ClassifyStatus(code int) error {
	switch code {
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusPaymentRequired:
		return ErrQuotaExceeded
	default:
		return ErrService
	}
}

// StatusError carries the provider's HTTP status alongside its classification.
type StatusError struct {
	Provider string
	Code     int
	Message  string
}

func (e *StatusError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.Code)
	}
	return fmt.Sprintf("%s http %d: %s", e.Provider, e.Code, msg)
}

// Unwrap lets errors.Is match the sentinel for the status code.
func (e *StatusError) Unwrap() error {
	return ClassifyStatus(e.Code)
}
