package flow

import (
	"errors"
	"strings"
	"testing"
)

func TestParseBasics(t *testing.T) {
	b, err := ParseBasics("John Doe, user@example.com, +234-801, Lagos Nigeria")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if b.Name != "John Doe" || b.Email != "user@example.com" || b.Location != "Lagos Nigeria" {
		t.Fatalf("unexpected basics: %+v", b)
	}

	// trailing fields are optional
	b, err = ParseBasics("Jane Roe, jane@x.co")
	if err != nil {
		t.Fatalf("parse short form: %v", err)
	}
	if b.Phone != "" || b.Location != "" {
		t.Fatalf("expected empty optional fields, got %+v", b)
	}
}

func TestParseBasicsRejects(t *testing.T) {
	for _, in := range []string{"John Doe", ", user@example.com", "John Doe, not-an-email"} {
		if _, err := ParseBasics(in); err == nil {
			t.Errorf("ParseBasics(%q): expected error", in)
		} else {
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("ParseBasics(%q): not a ValidationError: %v", in, err)
			} else if !strings.Contains(ve.Prompt(), "Example") {
				t.Errorf("ParseBasics(%q): prompt has no example", in)
			}
		}
	}
}

func TestParseExperienceHeader(t *testing.T) {
	e, err := ParseExperienceHeader("Backend Engineer, TechCorp, Lagos, Jan 2020, Present")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if e.Role != "Backend Engineer" || e.Company != "TechCorp" || e.End != "Present" {
		t.Fatalf("unexpected experience: %+v", e)
	}
	if e.Bullets == nil || len(e.Bullets) != 0 {
		t.Fatalf("bullets should start empty")
	}

	if _, err := ParseExperienceHeader("Backend Engineer"); err == nil {
		t.Fatal("expected error when company is missing")
	}
}

func TestParseEducation(t *testing.T) {
	edu, err := ParseEducation("B.Sc. Computer Science, University of Lagos, 2020")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if edu.School != "University of Lagos" || edu.Year != "2020" {
		t.Fatalf("unexpected education: %+v", edu)
	}
	if _, err := ParseEducation("B.Sc. only"); err == nil {
		t.Fatal("expected error for missing fields")
	}
}

func TestParseProfile(t *testing.T) {
	p, err := ParseProfile("LinkedIn, https://linkedin.com/in/me")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.Platform != "LinkedIn" {
		t.Fatalf("unexpected profile: %+v", p)
	}
	if _, err := ParseProfile("LinkedIn, not a url"); err == nil {
		t.Fatal("expected error for bad url")
	}
}

func TestParseYesNo(t *testing.T) {
	cases := map[string]*bool{
		"yes": ptr(true), "Y": ptr(true), "sure": ptr(true),
		"no": ptr(false), "done": ptr(false),
		"maybe": nil, "": nil,
	}
	for in, want := range cases {
		got := ParseYesNo(in)
		switch {
		case want == nil && got != nil:
			t.Errorf("ParseYesNo(%q) = %v, want nil", in, *got)
		case want != nil && (got == nil || *got != *want):
			t.Errorf("ParseYesNo(%q) = %v, want %v", in, got, *want)
		}
	}
}

func ptr(b bool) *bool { return &b }

func TestParseSkillSelectionNumeric(t *testing.T) {
	suggested := []string{"Go", "SQL", "Docker", "Kubernetes", "gRPC", "Kafka", "Redis"}

	got := ParseSkillSelection("1, 3,5", suggested)
	want := []string{"Go", "Docker", "gRPC"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}

	// out-of-range numbers are dropped
	if got := ParseSkillSelection("1,99", suggested); len(got) != 1 || got[0] != "Go" {
		t.Fatalf("out-of-range selection: got %v", got)
	}

	// capped at five
	if got := ParseSkillSelection("1,2,3,4,5,6,7", suggested); len(got) != 5 {
		t.Fatalf("selection not capped: got %v", got)
	}
}

func TestParseSkillSelectionCustom(t *testing.T) {
	got := ParseSkillSelection("Go, PostgreSQL, Kubernetes", nil)
	if len(got) != 3 || got[1] != "PostgreSQL" {
		t.Fatalf("custom skills: got %v", got)
	}
	if got := ParseSkillSelection("  ", nil); got != nil {
		t.Fatalf("blank input should yield nothing, got %v", got)
	}
	if got := ParseSkillSelection("Go, SQL", nil); got != nil {
		t.Fatalf("under-minimum custom list should yield nothing, got %v", got)
	}
}
