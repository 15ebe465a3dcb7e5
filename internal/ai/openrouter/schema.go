package openrouter

import "github.com/spigell/skills-extractor/internal/skills"

func parametersSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"skills": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"skill_name": map[string]any{"type": "string"},
						"category": map[string]any{
							"type": "string",
							"enum": skills.CategoryValues(),
						},
						"proficiency_level": map[string]any{
							"type": "string",
							"enum": skills.ProficiencyValues(),
						},
					},
					"required":             []string{"skill_name", "category", "proficiency_level"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"skills"},
		"additionalProperties": false,
	}
}
