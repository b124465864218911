package profile

import "testing"

func TestBuildPrefersConfiguration(t *testing.T) {
	cfg := Config{
		FullName:          "Alex Quinn",
		YearsOfExperience: 4,
		Skills:            []string{"Go", "kafka"},
		SkillYears:        map[string]int{"Kafka": 2},
		Answers: map[string]any{
			" Authorized_To_Work ": true,
			"notice_period":        14,
			"ignored":              nil,
		},
	}
	facts := &CVFacts{
		Name:            "Someone Else",
		Email:           "alex@example.com",
		ExperienceYears: 9,
		Skills:          []string{"Kafka", "Docker"},
		Education:       []string{"MSc Physics"},
	}

	p := Build(cfg, facts)

	if p.FullName != "Alex Quinn" || p.FirstName != "Alex" || p.LastName != "Quinn" {
		t.Fatalf("unexpected name fields %+v", p)
	}
	if p.Email != "alex@example.com" {
		t.Fatalf("expected email from CV, got %q", p.Email)
	}
	if p.YearsOfExperience != 4 {
		t.Fatalf("configured years must win, got %d", p.YearsOfExperience)
	}
	if len(p.Skills) != 3 || p.Skills[0] != "Go" || p.Skills[1] != "kafka" || p.Skills[2] != "Docker" {
		t.Fatalf("unexpected skills %v", p.Skills)
	}
	if v, ok := p.Override("authorized_to_work"); !ok || v != "true" {
		t.Fatalf("unexpected override %q %v", v, ok)
	}
	if v, ok := p.Override("notice_period"); !ok || v != "14" {
		t.Fatalf("unexpected override %q %v", v, ok)
	}
	if _, ok := p.Override("ignored"); ok {
		t.Fatalf("nil answers must be dropped")
	}
	if p.ExperienceWith("KAFKA") != 2 {
		t.Fatalf("expected skill years for kafka")
	}
	if p.ExperienceWith("docker") != 4 {
		t.Fatalf("expected overall years for a known skill")
	}
	if p.ExperienceWith("cobol") != 0 {
		t.Fatalf("expected zero years for an unknown skill")
	}
}

func TestBuildWithoutFacts(t *testing.T) {
	p := Build(Config{FullName: "Cher"}, nil)
	if p.FirstName != "Cher" || p.LastName != "" {
		t.Fatalf("unexpected split %q %q", p.FirstName, p.LastName)
	}
	if _, ok := p.Override("anything"); ok {
		t.Fatalf("expected no overrides")
	}
	facts := p.Facts()
	if facts["name"] != "Cher" {
		t.Fatalf("unexpected facts %v", facts)
	}
	if _, ok := facts["expected_salary"]; ok {
		t.Fatalf("salary must be omitted when unset")
	}
}
