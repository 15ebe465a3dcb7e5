package skills

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// ErrMalformed is returned when the model output is not a usable JSON document.
var ErrMalformed = errors.New("malformed skills document")

type rawSkill struct {
	Name        string `mapstructure:"skill_name"`
	Category    string `mapstructure:"category"`
	Proficiency string `mapstructure:"proficiency_level"`
}

// Parse decodes a model response into normalized skills.
//
// The document may be an object with a "skills" array or a bare array.
// Entries without a name are dropped; missing or unknown categories and levels
// get defaults. An empty result is not an error.
func Parse(doc []byte) ([]Skill, error) {
	cleaned := stripFences(string(doc))
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty document", ErrMalformed)
	}

	var data any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	var entries []any
	switch val := data.(type) {
	case []any:
		entries = val
	case map[string]any:
		list, ok := val["skills"]
		if !ok || list == nil {
			return []Skill{}, nil
		}
		entries, ok = list.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: skills is %T, not an array", ErrMalformed, list)
		}
	default:
		return nil, fmt.Errorf("%w: unexpected top-level %T", ErrMalformed, data)
	}

	result := make([]Skill, 0, len(entries))
	for _, entry := range entries {
		skill, ok := normalize(entry)
		if !ok {
			continue
		}
		result = append(result, skill)
	}

	return result, nil
}

func normalize(entry any) (Skill, bool) {
	fields, ok := entry.(map[string]any)
	if !ok {
		return Skill{}, false
	}

	var raw rawSkill
	if err := decodeWeak(fields, &raw); err != nil {
		// An oddly typed category or level must not cost us the skill itself.
		raw = rawSkill{}
		raw.Name, _ = fields["skill_name"].(string)
	}

	name := strings.TrimSpace(raw.Name)
	if name == "" {
		return Skill{}, false
	}

	return Skill{
		Name:        name,
		Category:    ParseCategory(raw.Category),
		Proficiency: ParseProficiency(raw.Proficiency),
	}, true
}

func decodeWeak(input map[string]any, out *rawSkill) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	return strings.TrimSpace(raw)
}
