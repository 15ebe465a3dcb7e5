package ai

import (
	"errors"
	"net/http"
	"testing"
)

func TestPayloadDocument(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload Payload
		want    string
		wantErr bool
	}{
		{
			name:    "direct",
			payload: Direct(`{"skills":[]}`),
			want:    `{"skills":[]}`,
		},
		{
			name:    "tool call",
			payload: FromToolCall("record_skills", `{"skills":[{"skill_name":"Go"}]}`),
			want:    `{"skills":[{"skill_name":"Go"}]}`,
		},
		{
			name:    "empty direct",
			payload: Direct("  "),
			wantErr: true,
		},
		{
			name:    "tool call without arguments",
			payload: FromToolCall("record_skills", ""),
			wantErr: true,
		},
		{
			name:    "tool call kind without call",
			payload: Payload{Kind: PayloadToolCall},
			wantErr: true,
		},
		{
			name:    "zero value",
			payload: Payload{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := tt.payload.Document()
			if tt.wantErr {
				if !errors.Is(err, ErrService) {
					t.Fatalf("expected ErrService, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestStatusErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code int
		want error
	}{
		{code: http.StatusTooManyRequests, want: ErrRateLimited},
		{code: http.StatusPaymentRequired, want: ErrQuotaExceeded},
		{code: http.StatusInternalServerError, want: ErrService},
		{code: http.StatusBadRequest, want: ErrService},
	}

	for _, tt := range tests {
		err := error(&StatusError{Provider: "test", Code: tt.code})
		if !errors.Is(err, tt.want) {
			t.Fatalf("code %d: expected %v, got %v", tt.code, tt.want, err)
		}
	}
}

func TestStatusErrorMessage(t *testing.T) {
	err := &StatusError{Provider: "gemini", Code: http.StatusTooManyRequests}
	if got := err.Error(); got != "gemini http 429: Too Many Requests" {
		t.Fatalf("unexpected message: %q", got)
	}
}
