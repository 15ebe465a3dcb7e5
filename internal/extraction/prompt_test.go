package extraction

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestBuildPromptEmbedsText(t *testing.T) {
	prompt := BuildPrompt("Senior Python developer, 6 years", 0)

	if !strings.Contains(prompt, "Senior Python developer, 6 years") {
		t.Fatalf("expected resume text in prompt, got %q", prompt)
	}
	if strings.Contains(prompt, textPlaceholder) {
		t.Fatalf("placeholder left in prompt")
	}
	for _, want := range []string{`"skills"`, "skill_name", "proficiency_level", "Soft Skill"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("expected %q in prompt", want)
		}
	}
}

func TestBuildPromptTruncates(t *testing.T) {
	text := strings.Repeat("a", DefaultMaxChars) + "TAILMARKER"

	prompt := BuildPrompt(text, 0)
	if strings.Contains(prompt, "TAILMARKER") {
		t.Fatal("content past the cap reached the prompt")
	}
	if !strings.Contains(prompt, strings.Repeat("a", DefaultMaxChars)) {
		t.Fatal("expected the first characters to be kept")
	}
}

func TestTruncateRunes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		limit int
		want  string
	}{
		{name: "short", input: "Go", limit: 5, want: "Go"},
		{name: "exact", input: "Go", limit: 2, want: "Go"},
		{name: "ascii", input: "Kubernetes", limit: 4, want: "Kube"},
		{name: "multibyte", input: "Разработчик Go", limit: 11, want: "Разработчик"},
		{name: "zero", input: "Go", limit: 0, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := truncateRunes(tt.input, tt.limit)
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
			if !utf8.ValidString(got) {
				t.Fatalf("truncation split a rune: %q", got)
			}
		})
	}
}
