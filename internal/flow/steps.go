// Package flow is the per-document-type step table and its pure handlers.
// Each step declares an input grammar and a parser; handlers map
// (answers, input) to (answers', next step, reply) without touching storage,
// so every step is unit-testable in isolation.
package flow

import (
	"strconv"

	"github.com/careerbuddy/careerbuddy-bot/internal/domain/users"
)

type Step string

const (
	// Resume / CV.
	StepBasics         Step = "basics"
	StepTargetRole     Step = "target_role"
	StepExperience     Step = "experience_header"
	StepExpBullets     Step = "experience_bullets"
	StepAddExperience  Step = "add_another_experience"
	StepEducation      Step = "education"
	StepCertifications Step = "certifications"
	StepProfiles       Step = "profiles"
	StepProjects       Step = "projects"
	StepSkills         Step = "skills"
	StepPersonalInfo   Step = "personal_info"
	StepSummary        Step = "summary"

	// Cover letter.
	StepRoleCompany  Step = "role_company"
	StepExpOverview  Step = "experience_overview"
	StepInterest     Step = "interest_reason"
	StepCurrentRole  Step = "current_role"
	StepAchievement1 Step = "achievement_1"
	StepAchievement2 Step = "achievement_2"
	StepKeySkills    Step = "key_skills"
	StepCompanyGoal  Step = "company_goal"

	// Revamp.
	StepUpload     Step = "upload"
	StepRevampWork Step = "revamp_processing"

	// Shared tail.
	StepPreview  Step = "preview"
	StepTemplate Step = "template_selection"
	StepFinalize Step = "finalize"
	StepDone     Step = "done"
)

// Grammar names the input contract of a step. Parsing is never a silent
// best-effort guess: a grammar either yields a structured value or a
// ValidationError with an example.
type Grammar int

const (
	GrammarFreeText Grammar = iota
	GrammarCSV              // fixed-arity comma-separated fields
	GrammarMultiSelect      // numeric selection from a shown list
	GrammarYesNo
	GrammarLoop // repeatable sub-records terminated by done/skip
)

func GrammarOf(s Step) Grammar {
	switch s {
	case StepBasics, StepRoleCompany, StepExpOverview, StepCurrentRole, StepExperience:
		return GrammarCSV
	case StepSkills, StepTemplate:
		return GrammarMultiSelect
	case StepAddExperience:
		return GrammarYesNo
	case StepExpBullets, StepEducation, StepCertifications, StepProfiles, StepProjects:
		return GrammarLoop
	default:
		return GrammarFreeText
	}
}

// AIStep reports whether the step's content comes from the content
// generator and is cached once generated.
func AIStep(s Step) bool {
	return s == StepSkills || s == StepSummary || s == StepRevampWork
}

// Order is the fixed step sequence per document type; used for the progress
// indicator and for resets.
func Order(docType users.DocType) []Step {
	switch docType {
	case users.DocCoverLetter:
		return []Step{
			StepBasics, StepRoleCompany, StepExpOverview, StepInterest,
			StepCurrentRole, StepAchievement1, StepAchievement2, StepKeySkills,
			StepCompanyGoal, StepPreview, StepFinalize, StepDone,
		}
	case users.DocRevamp:
		return []Step{StepUpload, StepRevampWork, StepPreview, StepFinalize, StepDone}
	default: // resume, cv
		return []Step{
			StepBasics, StepTargetRole, StepExperience, StepExpBullets,
			StepAddExperience, StepEducation, StepCertifications, StepProfiles,
			StepProjects, StepSkills, StepPersonalInfo, StepSummary,
			StepPreview, StepFinalize, StepDone,
		}
	}
}

func FirstStep(docType users.DocType) Step {
	return Order(docType)[0]
}

// Progress renders the "●●●○○ 60% (3/5)" indicator line for prompts.
// Loop-internal and terminal steps share the position of their section.
func Progress(docType users.DocType, s Step) string {
	order := Order(docType)
	idx := -1
	for i, st := range order {
		if st == s {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ""
	}
	cur, total := idx+1, len(order)
	bar := make([]rune, 0, total)
	for i := 0; i < total; i++ {
		if i < cur {
			bar = append(bar, '●')
		} else {
			bar = append(bar, '○')
		}
	}
	pct := cur * 100 / total
	return "📊 " + string(bar) + " " + strconv.Itoa(pct) + "% (" + strconv.Itoa(cur) + "/" + strconv.Itoa(total) + ")"
}
