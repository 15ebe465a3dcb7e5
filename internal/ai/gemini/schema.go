package gemini

import (
	"google.golang.org/genai"

	"github.com/spigell/skills-extractor/internal/skills"
)

func responseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"skills": {
				Type:        genai.TypeArray,
				Description: "Every technical and professional skill found in the resume.",
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"skill_name": {Type: genai.TypeString},
						"category": {
							Type:   genai.TypeString,
							Format: "enum",
							Enum:   skills.CategoryValues(),
						},
						"proficiency_level": {
							Type:   genai.TypeString,
							Format: "enum",
							Enum:   skills.ProficiencyValues(),
						},
					},
					Required: []string{"skill_name", "category", "proficiency_level"},
				},
			},
		},
		Required: []string{"skills"},
	}
}
