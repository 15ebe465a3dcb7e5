package skills

import "strings"

// Category groups a skill for the dashboard.
type Category string

const (
	CategoryProgramming Category = "Programming"
	CategoryFramework   Category = "Framework"
	CategoryDatabase    Category = "Database"
	CategoryCloud       Category = "Cloud"
	CategoryTool        Category = "Tool"
	CategorySoftSkill   Category = "Soft Skill"
	CategoryDomain      Category = "Domain"
	CategoryLanguage    Category = "Language"
	CategoryOther       Category = "Other"
)

// Proficiency is the inferred level of a skill.
type Proficiency string

const (
	ProficiencyBeginner     Proficiency = "beginner"
	ProficiencyIntermediate Proficiency = "intermediate"
	ProficiencyAdvanced     Proficiency = "advanced"
	ProficiencyExpert       Proficiency = "expert"
)

// Categories lists every accepted category in the order used by the output schema.
var Categories = []Category{
	CategoryProgramming,
	CategoryFramework,
	CategoryDatabase,
	CategoryCloud,
	CategoryTool,
	CategorySoftSkill,
	CategoryDomain,
	CategoryLanguage,
	CategoryOther,
}

// Proficiencies lists every accepted proficiency level.
var Proficiencies = []Proficiency{
	ProficiencyBeginner,
	ProficiencyIntermediate,
	ProficiencyAdvanced,
	ProficiencyExpert,
}

// Skill is one normalized skill extracted from a resume.
type Skill struct {
	Name        string      `json:"skill_name"`
	Category    Category    `json:"category"`
	Proficiency Proficiency `json:"proficiency_level"`
}

// ParseCategory matches s case-insensitively against the known categories.
// Unknown or empty values fall back to Other.
func ParseCategory(s string) Category {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(s, string(c)) {
			return c
		}
	}
	return CategoryOther
}

// ParseProficiency matches s case-insensitively against the known levels.
// Unknown or empty values fall back to intermediate.
func ParseProficiency(s string) Proficiency {
	s = strings.TrimSpace(s)
	for _, p := range Proficiencies {
		if strings.EqualFold(s, string(p)) {
			return p
		}
	}
	return ProficiencyIntermediate
}

// Names returns skill names in order. Duplicates are kept.
func Names(list []Skill) []string {
	names := make([]string, 0, len(list))
	for _, s := range list {
		names = append(names, s.Name)
	}
	return names
}

// CategoryValues returns categories as plain strings for schema enums.
func CategoryValues() []string {
	values := make([]string, 0, len(Categories))
	for _, c := range Categories {
		values = append(values, string(c))
	}
	return values
}

// ProficiencyValues returns proficiency levels as plain strings for schema enums.
func ProficiencyValues() []string {
	values := make([]string, 0, len(Proficiencies))
	for _, p := range Proficiencies {
		values = append(values, string(p))
	}
	return values
}
