package extraction

import (
	"strings"

	_ "embed"
)

// DefaultMaxChars is how much resume text reaches the model.
const DefaultMaxChars = 8000

const textPlaceholder = "{{RESUME_TEXT}}"

//go:embed prompt.md
var promptTemplate string

// BuildPrompt embeds the first maxChars characters of text into the extraction
// instructions. Anything past the cap is dropped silently.
func BuildPrompt(text string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	text = truncateRunes(text, maxChars)

	template := promptTemplate
	if !strings.Contains(template, textPlaceholder) {
		template = "Extract skills from this resume as JSON:\n" + textPlaceholder
	}
	return strings.Replace(template, textPlaceholder, text, 1)
}

func truncateRunes(s string, limit int) string {
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}
