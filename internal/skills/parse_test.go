package skills

import (
	"errors"
	"testing"
)

func TestParseSingleSkill(t *testing.T) {
	doc := `{"skills":[{"skill_name":"Python","category":"Programming","proficiency_level":"advanced"}]}`

	got, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := Skill{Name: "Python", Category: CategoryProgramming, Proficiency: ProficiencyAdvanced}
	if len(got) != 1 || got[0] != want {
		t.Fatalf("unexpected skills: %+v", got)
	}
}

func TestParseAppliesDefaults(t *testing.T) {
	doc := `{"skills":[
		{"skill_name":"Kubernetes"},
		{"skill_name":"Negotiation","category":"Charisma","proficiency_level":"godlike"},
		{"skill_name":"  Go  ","category":"programming","proficiency_level":"EXPERT"},
		{"skill_name":"Teamwork","category":"soft skill"}
	]}`

	got, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []Skill{
		{Name: "Kubernetes", Category: CategoryOther, Proficiency: ProficiencyIntermediate},
		{Name: "Negotiation", Category: CategoryOther, Proficiency: ProficiencyIntermediate},
		{Name: "Go", Category: CategoryProgramming, Proficiency: ProficiencyExpert},
		{Name: "Teamwork", Category: CategorySoftSkill, Proficiency: ProficiencyIntermediate},
	}

	if len(got) != len(want) {
		t.Fatalf("expected %d skills, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("skill %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestParseDropsUnnamedEntries(t *testing.T) {
	doc := `[
		{"skill_name":"","category":"Tool"},
		{"skill_name":"   "},
		{"category":"Cloud"},
		{"skill_name":null},
		"just a string",
		42,
		{"skill_name":"Terraform","category":"Tool","proficiency_level":"beginner"}
	]`

	got, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 1 || got[0].Name != "Terraform" {
		t.Fatalf("expected only Terraform to survive, got %+v", got)
	}
}

func TestParseKeepsSkillWithOddlyTypedFields(t *testing.T) {
	doc := `{"skills":[{"skill_name":"AWS","category":{"name":"Cloud"},"proficiency_level":["expert"]}]}`

	got, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := Skill{Name: "AWS", Category: CategoryOther, Proficiency: ProficiencyIntermediate}
	if len(got) != 1 || got[0] != want {
		t.Fatalf("unexpected skills: %+v", got)
	}
}

func TestParseKeepsDuplicates(t *testing.T) {
	doc := `{"skills":[{"skill_name":"SQL"},{"skill_name":"SQL"}]}`

	got, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected duplicates to be kept, got %+v", got)
	}
}

func TestParseEmptyResults(t *testing.T) {
	t.Parallel()

	cases := []string{
		`{"skills":[]}`,
		`{}`,
		`{"skills":null}`,
		`[]`,
	}

	for _, doc := range cases {
		t.Run(doc, func(t *testing.T) {
			t.Parallel()
			got, err := Parse([]byte(doc))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != 0 {
				t.Fatalf("expected no skills, got %+v", got)
			}
		})
	}
}

func TestParseHandlesCodeBlock(t *testing.T) {
	raw := "```json\n{\"skills\":[{\"skill_name\":\"Rust\",\"category\":\"Programming\",\"proficiency_level\":\"beginner\"}]}\n```"

	got, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Rust" || got[0].Proficiency != ProficiencyBeginner {
		t.Fatalf("unexpected skills: %+v", got)
	}
}

func TestParseMalformed(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"empty":        "",
		"not json":     "Here are the skills: Python, Go",
		"scalar":       `"skills"`,
		"skills field": `{"skills":"Python"}`,
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(doc))
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestNames(t *testing.T) {
	got := Names([]Skill{{Name: "Go"}, {Name: "SQL"}, {Name: "Go"}})
	if len(got) != 3 || got[0] != "Go" || got[1] != "SQL" || got[2] != "Go" {
		t.Fatalf("unexpected names: %v", got)
	}

	if empty := Names(nil); empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", empty)
	}
}
