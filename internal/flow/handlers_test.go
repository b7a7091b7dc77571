package flow

import (
	"errors"
	"strings"
	"testing"

	"github.com/careerbuddy/careerbuddy-bot/internal/domain/users"
)

func mustHandle(t *testing.T, docType users.DocType, step Step, a *Answers, input string) Result {
	t.Helper()
	r, err := Handle(docType, step, a, input)
	if err != nil {
		t.Fatalf("Handle(%s, %q): %v", step, input, err)
	}
	return r
}

func TestResumeHappyPath(t *testing.T) {
	a := &Answers{}
	dt := users.DocResume

	r := mustHandle(t, dt, StepBasics, a, "John Doe, user@example.com, +234-801, Lagos Nigeria")
	if r.Next != StepTargetRole {
		t.Fatalf("after basics: got %s", r.Next)
	}

	r = mustHandle(t, dt, StepTargetRole, a, "Backend Engineer")
	if r.Next != StepExperience || a.TargetRole != "Backend Engineer" {
		t.Fatalf("after target role: %s %q", r.Next, a.TargetRole)
	}

	r = mustHandle(t, dt, StepExperience, a, "Backend Engineer, TechCorp, Lagos, Jan 2020, Present")
	if r.Next != StepExpBullets || len(a.Experiences) != 1 {
		t.Fatalf("after experience: %s, %d experiences", r.Next, len(a.Experiences))
	}

	r = mustHandle(t, dt, StepExpBullets, a, "Reduced API latency by 40%")
	if r.Next != StepExpBullets {
		t.Fatalf("bullet loop should stay on step, got %s", r.Next)
	}
	r = mustHandle(t, dt, StepExpBullets, a, "done")
	if r.Next != StepAddExperience {
		t.Fatalf("after done: got %s", r.Next)
	}

	r = mustHandle(t, dt, StepAddExperience, a, "no")
	if r.Next != StepEducation {
		t.Fatalf("after no: got %s", r.Next)
	}

	r = mustHandle(t, dt, StepEducation, a, "B.Sc. Computer Science, University of Lagos, 2020")
	if r.Next != StepEducation {
		t.Fatalf("education loop should stay, got %s", r.Next)
	}
	mustHandle(t, dt, StepEducation, a, "done")
	mustHandle(t, dt, StepCertifications, a, "skip")
	mustHandle(t, dt, StepProfiles, a, "skip")

	r = mustHandle(t, dt, StepProjects, a, "done")
	if r.Next != StepSkills || r.Effect != EffectSuggestSkills {
		t.Fatalf("projects done should trigger skill suggestions: %s effect=%d", r.Next, r.Effect)
	}

	a.AISuggestedSkills = []string{"Go", "SQL", "Docker"}
	r = mustHandle(t, dt, StepSkills, a, "1,3")
	if r.Next != StepPersonalInfo || len(a.Skills) != 2 {
		t.Fatalf("after skills: %s, skills %v", r.Next, a.Skills)
	}

	r = mustHandle(t, dt, StepPersonalInfo, a, "skip")
	if r.Next != StepSummary || r.Effect != EffectDraftSummary {
		t.Fatalf("personal info should trigger summary draft: %s effect=%d", r.Next, r.Effect)
	}

	a.Summary = "Backend engineer with 5 years in payments."
	r = mustHandle(t, dt, StepSummary, a, "keep")
	if r.Next != StepPreview {
		t.Fatalf("after summary keep: got %s", r.Next)
	}
	if err := a.Complete(dt); err != nil {
		t.Fatalf("record should be complete: %v", err)
	}

	r = mustHandle(t, dt, StepPreview, a, "generate")
	if r.Next != StepTemplate {
		t.Fatalf("resume preview approval should pick a template: %s", r.Next)
	}
	r = mustHandle(t, dt, StepTemplate, a, "1")
	if r.Next != StepFinalize || r.Effect != EffectFinalize || a.Template != "classic" {
		t.Fatalf("template pick: %s effect=%d template=%q", r.Next, r.Effect, a.Template)
	}
}

func TestCoverLetterBranch(t *testing.T) {
	a := &Answers{}
	dt := users.DocCoverLetter

	r := mustHandle(t, dt, StepBasics, a, "Jane Roe, jane@x.co, +234-700, Abuja Nigeria")
	if r.Next != StepRoleCompany {
		t.Fatalf("cover letter basics should go to role/company, got %s", r.Next)
	}

	r = mustHandle(t, dt, StepRoleCompany, a, "Product Manager, Flutterwave")
	if r.Next != StepExpOverview || a.CoverCompany != "Flutterwave" {
		t.Fatalf("role/company: %s company=%q", r.Next, a.CoverCompany)
	}

	mustHandle(t, dt, StepExpOverview, a, "5 years, Fintech and E-commerce")
	mustHandle(t, dt, StepInterest, a, "I admire the mission")
	mustHandle(t, dt, StepCurrentRole, a, "Senior Analyst, Access Bank")
	mustHandle(t, dt, StepAchievement1, a, "Grew MAU by 30%")
	mustHandle(t, dt, StepAchievement2, a, "skip")
	mustHandle(t, dt, StepKeySkills, a, "SQL, Roadmapping, Stakeholder management")

	r = mustHandle(t, dt, StepCompanyGoal, a, "Expand into East Africa")
	if r.Next != StepPreview {
		t.Fatalf("after company goal: got %s", r.Next)
	}
	if err := a.Complete(dt); err != nil {
		t.Fatalf("record should be complete: %v", err)
	}
	if a.Achievement2 != "" {
		t.Fatalf("skipped achievement should stay empty, got %q", a.Achievement2)
	}
}

func TestRevampBranch(t *testing.T) {
	a := &Answers{}
	dt := users.DocRevamp

	pasted := strings.Repeat("Experienced engineer. ", 5)
	r := mustHandle(t, dt, StepUpload, a, pasted)
	if r.Next != StepRevampWork || r.Effect != EffectRevamp {
		t.Fatalf("upload should trigger revamp: %s effect=%d", r.Next, r.Effect)
	}
	if a.OriginalContent == "" {
		t.Fatal("original content not captured")
	}

	// not done yet
	r = mustHandle(t, dt, StepRevampWork, a, "ready")
	if r.Next != StepRevampWork {
		t.Fatalf("revamp pending should hold step, got %s", r.Next)
	}

	a.RevampedContent = "Polished resume text."
	r = mustHandle(t, dt, StepRevampWork, a, "ready")
	if r.Next != StepPreview {
		t.Fatalf("revamp done: got %s", r.Next)
	}
}

func TestValidationReEntersStep(t *testing.T) {
	a := &Answers{}
	_, err := Handle(users.DocResume, StepBasics, a, "just a name with no commas")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if a.Basics.Name != "" {
		t.Fatal("answers must not change on invalid input")
	}
	if !strings.Contains(ve.Prompt(), "Full Name, Email") {
		t.Fatalf("prompt misses expected format: %q", ve.Prompt())
	}
}

func TestBulletLoopRequiresOne(t *testing.T) {
	a := &Answers{Experiences: []Experience{{Role: "Dev", Company: "X", Bullets: []string{}}}}
	if _, err := Handle(users.DocResume, StepExpBullets, a, "done"); err == nil {
		t.Fatal("done with zero bullets should be rejected")
	}
}

func TestWakeWords(t *testing.T) {
	for _, w := range []string{"continue", "Ready", " GENERATE ", "ok"} {
		if !IsWakeWord(w) {
			t.Errorf("IsWakeWord(%q) = false", w)
		}
	}
	if IsWakeWord("hello") {
		t.Error("'hello' should not wake")
	}
}

func TestSkillsWakeWordRedisplaysSuggestions(t *testing.T) {
	a := &Answers{AISuggestedSkills: []string{"Go", "SQL", "Docker"}}
	for _, in := range []string{"show", "generate", "continue", ""} {
		r := mustHandle(t, users.DocResume, StepSkills, a, in)
		if r.Next != StepSkills {
			t.Fatalf("%q advanced the step to %s", in, r.Next)
		}
		if len(a.Skills) != 0 {
			t.Fatalf("%q captured as skills: %v", in, a.Skills)
		}
		if !strings.Contains(r.Reply, "1. Go") {
			t.Fatalf("suggestions not re-displayed for %q: %q", in, r.Reply)
		}
	}
}

func TestCustomSkillsRequireThree(t *testing.T) {
	a := &Answers{AISuggestedSkills: []string{"Go", "SQL", "Docker"}}
	if _, err := Handle(users.DocResume, StepSkills, a, "hello"); err == nil {
		t.Fatal("a single stray token must not become the skill list")
	}
	if _, err := Handle(users.DocResume, StepSkills, a, "Go, SQL"); err == nil {
		t.Fatal("two custom skills should be rejected")
	}
	r := mustHandle(t, users.DocResume, StepSkills, a, "Go, SQL, Docker, Kafka")
	if r.Next != StepPersonalInfo || len(a.Skills) != 4 {
		t.Fatalf("four custom skills should pass: %s %v", r.Next, a.Skills)
	}
}

func TestPreviewIgnoresChatter(t *testing.T) {
	a := &Answers{}
	r := mustHandle(t, users.DocResume, StepPreview, a, "looks nice")
	if r.Next != StepPreview || r.Effect != EffectNone {
		t.Fatalf("chatter at preview: %s effect=%d", r.Next, r.Effect)
	}
}

func TestTemplateSelection(t *testing.T) {
	a := &Answers{}
	r := mustHandle(t, users.DocResume, StepTemplate, a, "2")
	if r.Next != StepFinalize || a.Template != "modern" {
		t.Fatalf("template pick: %s template=%q", r.Next, a.Template)
	}
	if _, err := Handle(users.DocResume, StepTemplate, a, "9"); err == nil {
		t.Fatal("out-of-range template should be rejected")
	}
}

func TestProgress(t *testing.T) {
	p := Progress(users.DocRevamp, StepUpload)
	if !strings.Contains(p, "(1/5)") {
		t.Fatalf("revamp progress: %q", p)
	}
	if Progress(users.DocResume, Step("nope")) != "" {
		t.Fatal("unknown step should render nothing")
	}
}
