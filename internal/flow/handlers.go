package flow

import (
	"strconv"
	"strings"

	"github.com/careerbuddy/careerbuddy-bot/internal/domain/users"
)

// Effect is a side effect the caller must run after a step commits. Handlers
// themselves never call external services.
type Effect int

const (
	EffectNone Effect = iota
	EffectSuggestSkills // fetch skill suggestions for the target role
	EffectDraftSummary  // draft the professional summary
	EffectRevamp        // rewrite the uploaded document content
	EffectFinalize      // user approved the preview, start generation
)

// Result of handling one user message against the current step.
type Result struct {
	Next   Step
	Reply  string
	Effect Effect
}

var wakeWords = map[string]struct{}{
	"continue": {}, "ready": {}, "show": {}, "generate": {},
	"next": {}, "proceed": {}, "go": {}, "ok": {},
}

// IsWakeWord reports whether text resumes a paused generated step.
func IsWakeWord(text string) bool {
	_, ok := wakeWords[strings.ToLower(strings.TrimSpace(text))]
	return ok
}

func isSkip(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	return t == "skip" || t == "done" || t == "none"
}

// Templates selectable before generation.
var Templates = []string{"Classic", "Modern", "Professional"}

// Handle applies one message to the job's current step. It mutates a and
// returns the step to move to together with the reply to send. A
// *ValidationError means the step is re-entered and the error's Prompt is
// shown instead.
func Handle(docType users.DocType, step Step, a *Answers, input string) (Result, error) {
	input = strings.TrimSpace(input)

	switch step {
	case StepBasics:
		b, err := ParseBasics(input)
		if err != nil {
			return Result{}, err
		}
		a.Basics = b
		if docType == users.DocCoverLetter {
			return advance(docType, StepRoleCompany, a), nil
		}
		return advance(docType, StepTargetRole, a), nil

	case StepTargetRole:
		if input == "" {
			return Result{}, &ValidationError{Expected: "the role you are targeting", Example: "Backend Engineer"}
		}
		a.TargetRole = input
		return advance(docType, StepExperience, a), nil

	case StepExperience:
		exp, err := ParseExperienceHeader(input)
		if err != nil {
			return Result{}, err
		}
		a.Experiences = append(a.Experiences, exp)
		return advance(docType, StepExpBullets, a), nil

	case StepExpBullets:
		last := len(a.Experiences) - 1
		if last < 0 {
			return advance(docType, StepExperience, a), nil
		}
		if isSkip(input) {
			if len(a.Experiences[last].Bullets) == 0 {
				return Result{}, &ValidationError{
					Expected: "at least one achievement before moving on",
					Example:  "Reduced API response time by 40% by introducing caching",
				}
			}
			return advance(docType, StepAddExperience, a), nil
		}
		if input == "" {
			return Result{}, &ValidationError{
				Expected: "one achievement per message, or 'done'",
				Example:  "Led a team of 4 engineers shipping the billing service",
			}
		}
		a.Experiences[last].Bullets = append(a.Experiences[last].Bullets, input)
		n := len(a.Experiences[last].Bullets)
		return Result{
			Next:  StepExpBullets,
			Reply: "✅ Achievement " + strconv.Itoa(n) + " added. Send another, or type *done* to continue.",
		}, nil

	case StepAddExperience:
		yn := ParseYesNo(input)
		if yn == nil {
			return Result{}, &ValidationError{Expected: "yes or no", Example: "yes"}
		}
		if *yn {
			return advance(docType, StepExperience, a), nil
		}
		return advance(docType, StepEducation, a), nil

	case StepEducation:
		if isSkip(input) {
			return advance(docType, StepCertifications, a), nil
		}
		edu, err := ParseEducation(input)
		if err != nil {
			return Result{}, err
		}
		a.Education = append(a.Education, edu)
		return Result{
			Next:  StepEducation,
			Reply: "✅ Education added. Send another, or type *done* to continue.",
		}, nil

	case StepCertifications:
		if isSkip(input) {
			return advance(docType, StepProfiles, a), nil
		}
		if input != "" {
			a.Certifications = append(a.Certifications, input)
		}
		return Result{
			Next:  StepCertifications,
			Reply: "✅ Certification added. Send another, or type *done* to continue.",
		}, nil

	case StepProfiles:
		if isSkip(input) {
			return advance(docType, StepProjects, a), nil
		}
		p, err := ParseProfile(input)
		if err != nil {
			return Result{}, err
		}
		a.Profiles = append(a.Profiles, p)
		return Result{
			Next:  StepProfiles,
			Reply: "✅ Profile added. Send another, or type *done* to continue.",
		}, nil

	case StepProjects:
		if isSkip(input) {
			r := advance(docType, StepSkills, a)
			if len(a.AISuggestedSkills) == 0 {
				r.Effect = EffectSuggestSkills
			}
			return r, nil
		}
		if input != "" {
			a.Projects = append(a.Projects, input)
		}
		return Result{
			Next:  StepProjects,
			Reply: "✅ Project added. Send another, or type *done* to continue.",
		}, nil

	case StepSkills:
		// A wake word re-displays the cached suggestions, it never
		// becomes a skill.
		if len(a.AISuggestedSkills) > 0 && (input == "" || IsWakeWord(input)) {
			return Result{Next: StepSkills, Reply: FormatSkillSelection(a.AISuggestedSkills)}, nil
		}
		skills := ParseSkillSelection(input, a.AISuggestedSkills)
		if len(skills) == 0 {
			return Result{}, &ValidationError{
				Expected: "numbers from the list, or at least 3 comma-separated skills of your own",
				Example:  "1,3,5",
			}
		}
		a.Skills = skills
		return advance(docType, StepPersonalInfo, a), nil

	case StepPersonalInfo:
		if !isSkip(input) {
			a.PersonalTraits = input
		}
		r := advance(docType, StepSummary, a)
		if a.Summary == "" {
			r.Effect = EffectDraftSummary
		}
		return r, nil

	case StepSummary:
		if input != "" && !IsWakeWord(input) && !strings.EqualFold(input, "keep") {
			a.Summary = input
		}
		if a.Summary == "" {
			return Result{}, &ValidationError{
				Expected: "your professional summary, or 'keep' to use the draft",
				Example:  "Backend engineer with 5 years building payment systems",
			}
		}
		return advance(docType, StepPreview, a), nil

	// Cover letter branch.
	case StepRoleCompany:
		role, company, err := ParsePair(input,
			"Position Title, Company Name", "Product Manager, Flutterwave")
		if err != nil {
			return Result{}, err
		}
		a.CoverRole, a.CoverCompany = role, company
		return advance(docType, StepExpOverview, a), nil

	case StepExpOverview:
		years, industries, err := ParsePair(input,
			"Years of experience, Industries", "5 years, Fintech and E-commerce")
		if err != nil {
			return Result{}, err
		}
		a.YearsExperience, a.Industries = years, industries
		return advance(docType, StepInterest, a), nil

	case StepInterest:
		if input == "" {
			return Result{}, &ValidationError{Expected: "why this role interests you", Example: "I admire the company's work on financial inclusion"}
		}
		a.InterestReason = input
		return advance(docType, StepCurrentRole, a), nil

	case StepCurrentRole:
		title, employer, err := ParsePair(input,
			"Current Title, Current Employer", "Senior Analyst, Access Bank")
		if err != nil {
			return Result{}, err
		}
		a.CurrentTitle, a.CurrentEmployer = title, employer
		return advance(docType, StepAchievement1, a), nil

	case StepAchievement1:
		if input == "" {
			return Result{}, &ValidationError{
				Expected: "a measurable achievement",
				Example:  "Grew monthly active users by 30% in two quarters",
			}
		}
		a.Achievement1 = input
		return advance(docType, StepAchievement2, a), nil

	case StepAchievement2:
		if !isSkip(input) {
			a.Achievement2 = input
		}
		return advance(docType, StepKeySkills, a), nil

	case StepKeySkills:
		skills := ParseSkills(input)
		if len(skills) == 0 {
			return Result{}, &ValidationError{
				Expected: "3-5 skills, comma-separated",
				Example:  "Stakeholder management, SQL, Roadmapping",
			}
		}
		a.CoverKeySkills = skills
		return advance(docType, StepCompanyGoal, a), nil

	case StepCompanyGoal:
		if !isSkip(input) {
			a.CompanyGoal = input
		}
		return advance(docType, StepPreview, a), nil

	// Revamp branch.
	case StepUpload:
		if len(input) < 40 {
			return Result{}, &ValidationError{
				Expected: "your current resume as a .docx/.pdf upload or pasted text",
				Example:  "attach the file, or paste the full text",
			}
		}
		a.OriginalContent = input
		r := advance(docType, StepRevampWork, a)
		r.Effect = EffectRevamp
		return r, nil

	case StepRevampWork:
		if a.RevampedContent == "" {
			return Result{Next: StepRevampWork, Reply: "⏳ Still working on your document, one moment."}, nil
		}
		return advance(docType, StepPreview, a), nil

	case StepPreview:
		if !IsWakeWord(input) {
			return Result{
				Next:  StepPreview,
				Reply: "Review the preview above, then type *generate* when you are ready.",
			}, nil
		}
		// Resumes and CVs pick a layout first; the other types have one.
		if docType == users.DocResume || docType == users.DocCV {
			return advance(docType, StepTemplate, a), nil
		}
		return Result{Next: StepFinalize, Effect: EffectFinalize}, nil

	case StepTemplate:
		idx := -1
		for i, t := range Templates {
			if input == strconv.Itoa(i+1) || strings.EqualFold(input, t) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return Result{}, &ValidationError{
				Expected: "a template number from the list",
				Example:  "1",
			}
		}
		a.Template = strings.ToLower(Templates[idx])
		return Result{Next: StepFinalize, Effect: EffectFinalize}, nil
	}

	return Result{Next: step, Reply: "I did not get that. Type *help* for commands."}, nil
}

func advance(docType users.DocType, next Step, a *Answers) Result {
	return Result{Next: next, Reply: PromptFor(docType, next, a)}
}

// PromptFor is the question text shown when a step is entered.
func PromptFor(docType users.DocType, s Step, a *Answers) string {
	var body string
	switch s {
	case StepBasics:
		body = "👤 Let's start with your contact details.\n\nSend: *Full Name, Email, Phone, City Country*\n\n*Example:* John Doe, user@example.com, +234-xxx, Lagos Nigeria"
	case StepTargetRole:
		body = "🎯 What role are you targeting?\n\n*Example:* Backend Engineer"
	case StepExperience:
		body = "💼 Add a work experience.\n\nSend: *Role, Company, City, Start, End*\n\n*Example:* Backend Engineer, TechCorp, Lagos, Jan 2020, Present"
	case StepExpBullets:
		body = "🏆 Now your achievements in this role, one per message.\n\n*Example:* Reduced API response time by 40% by introducing caching\n\nType *done* when finished."
	case StepAddExperience:
		body = "➕ Add another work experience? (*yes*/*no*)"
	case StepEducation:
		body = "🎓 Education, one per message.\n\nSend: *Degree, School, Year*\n\n*Example:* B.Sc. Computer Science, University of Lagos, 2020\n\nType *done* or *skip* to continue."
	case StepCertifications:
		body = "📜 Certifications, one per message.\n\n*Example:* AWS Certified Solutions Architect (2023)\n\nType *done* or *skip* to continue."
	case StepProfiles:
		body = "🔗 Professional profiles, one per message.\n\nSend: *Platform, URL*\n\n*Example:* LinkedIn, https://linkedin.com/in/yourname\n\nType *done* or *skip* to continue."
	case StepProjects:
		body = "🛠 Notable projects, one per message.\n\n*Example:* Open-source payment library with 500+ stars\n\nType *done* or *skip* to continue."
	case StepSkills:
		if len(a.AISuggestedSkills) > 0 {
			return FormatSkillSelection(a.AISuggestedSkills)
		}
		body = "💡 List your key skills, comma-separated.\n\n*Example:* Go, PostgreSQL, Kubernetes"
	case StepPersonalInfo:
		body = "✨ Anything personal to highlight (traits, languages, interests)?\n\nType *skip* to leave this out."
	case StepSummary:
		if a.Summary != "" {
			return "🤖 Here is a draft professional summary:\n\n_" + a.Summary + "_\n\nType *keep* to use it, or send your own version."
		}
		body = "📝 Write a short professional summary, or type *continue* for a drafted one."
	case StepRoleCompany:
		body = "🎯 What position are you applying for?\n\nSend: *Position Title, Company Name*\n\n*Example:* Product Manager, Flutterwave"
	case StepExpOverview:
		body = "💼 Briefly, your experience.\n\nSend: *Years of experience, Industries*\n\n*Example:* 5 years, Fintech and E-commerce"
	case StepInterest:
		body = "💬 Why does this role interest you?"
	case StepCurrentRole:
		body = "🏢 Your current position.\n\nSend: *Current Title, Current Employer*\n\n*Example:* Senior Analyst, Access Bank"
	case StepAchievement1:
		body = "🏆 Your strongest measurable achievement.\n\n*Example:* Grew monthly active users by 30% in two quarters"
	case StepAchievement2:
		body = "🏆 A second achievement, or type *skip*."
	case StepKeySkills:
		body = "💡 3-5 key skills for this role, comma-separated.\n\n*Example:* Stakeholder management, SQL, Roadmapping"
	case StepCompanyGoal:
		body = "🎯 What do you hope to help the company achieve? (or *skip*)"
	case StepUpload:
		body = "📎 Upload your current resume (.docx or .pdf), or paste its full text."
	case StepRevampWork:
		body = "⏳ Rewriting your document, this can take a little while."
	case StepPreview:
		body = a.Preview(docType) + "\n\nType *generate* when you are ready."
	case StepTemplate:
		var b strings.Builder
		b.WriteString("🎨 Pick a template:\n\n")
		for i, t := range Templates {
			b.WriteString(strconv.Itoa(i+1) + ". " + t + "\n")
		}
		b.WriteString("\nSend the number.")
		return b.String()
	case StepFinalize:
		body = "⚙️ Generating your document..."
	case StepDone:
		body = "✅ All done! Type *new* to start another document."
	default:
		body = "Type *help* for commands."
	}

	if p := Progress(docType, s); p != "" && s != StepPreview && s != StepFinalize && s != StepDone {
		return p + "\n\n" + body
	}
	return body
}
