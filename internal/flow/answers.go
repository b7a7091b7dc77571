package flow

import (
	"fmt"
	"strings"

	"github.com/careerbuddy/careerbuddy-bot/internal/domain/users"
)

type Basics struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
	Title    string `json:"title,omitempty"`
}

type Experience struct {
	Role     string   `json:"role"`
	Company  string   `json:"company"`
	Location string   `json:"location"`
	Start    string   `json:"start"`
	End      string   `json:"end"`
	Bullets  []string `json:"bullets"`
}

type Education struct {
	Degree string `json:"degree"`
	School string `json:"school"`
	Year   string `json:"year"`
}

type Profile struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

// Answers is the partially-filled record a job accumulates; it is persisted
// verbatim as the job's answers jsonb.
type Answers struct {
	Basics            Basics       `json:"basics"`
	TargetRole        string       `json:"target_role,omitempty"`
	Summary           string       `json:"summary,omitempty"`
	Skills            []string     `json:"skills,omitempty"`
	AISuggestedSkills []string     `json:"ai_suggested_skills,omitempty"`
	Experiences       []Experience `json:"experiences,omitempty"`
	Education         []Education  `json:"education,omitempty"`
	Certifications    []string     `json:"certifications,omitempty"`
	Profiles          []Profile    `json:"profiles,omitempty"`
	Projects          []string     `json:"projects,omitempty"`
	PersonalTraits    string       `json:"personal_traits,omitempty"`
	Template          string       `json:"template,omitempty"`

	// Cover letter fields.
	CoverRole       string   `json:"cover_role,omitempty"`
	CoverCompany    string   `json:"cover_company,omitempty"`
	YearsExperience string   `json:"years_experience,omitempty"`
	Industries      string   `json:"industries,omitempty"`
	InterestReason  string   `json:"interest_reason,omitempty"`
	CurrentTitle    string   `json:"current_title,omitempty"`
	CurrentEmployer string   `json:"current_employer,omitempty"`
	Achievement1    string   `json:"achievement_1,omitempty"`
	Achievement2    string   `json:"achievement_2,omitempty"`
	CoverKeySkills  []string `json:"cover_key_skills,omitempty"`
	CompanyGoal     string   `json:"company_goal,omitempty"`

	// Revamp fields.
	OriginalContent string `json:"original_content,omitempty"`
	RevampedContent string `json:"revamped_content,omitempty"`
}

// Complete reports whether every required field for the document type is
// present; a job may not reach preview_ready otherwise.
func (a *Answers) Complete(docType users.DocType) error {
	switch docType {
	case users.DocCoverLetter:
		switch {
		case a.Basics.Name == "":
			return fmt.Errorf("missing contact details")
		case a.CoverRole == "" || a.CoverCompany == "":
			return fmt.Errorf("missing target role/company")
		case a.Achievement1 == "":
			return fmt.Errorf("missing key achievement")
		case len(a.CoverKeySkills) == 0:
			return fmt.Errorf("missing key skills")
		}
	case users.DocRevamp:
		if a.RevampedContent == "" {
			return fmt.Errorf("missing revamped content")
		}
	default:
		switch {
		case a.Basics.Name == "":
			return fmt.Errorf("missing contact details")
		case len(a.Experiences) == 0:
			return fmt.Errorf("missing work experience")
		case len(a.Experiences[len(a.Experiences)-1].Bullets) == 0:
			return fmt.Errorf("last experience has no bullet points")
		case len(a.Skills) == 0:
			return fmt.Errorf("missing skills")
		case a.Summary == "":
			return fmt.Errorf("missing professional summary")
		}
	}
	return nil
}

// Filename builds the user-facing document name, e.g. "John Doe - Resume.docx".
func (a *Answers) Filename(docType users.DocType) string {
	name := a.Basics.Name
	if name == "" {
		name = "Document"
	}
	name = strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			return -1
		}
		return r
	}, name)

	label := map[users.DocType]string{
		users.DocResume:      "Resume",
		users.DocCV:          "CV",
		users.DocCoverLetter: "Cover Letter",
		users.DocRevamp:      "Revamp",
	}[docType]
	return fmt.Sprintf("%s - %s.docx", strings.TrimSpace(name), label)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// Preview formats the collected record for user review before generation.
func (a *Answers) Preview(docType users.DocType) string {
	if docType == users.DocCoverLetter {
		return a.coverPreview()
	}

	var b strings.Builder
	b.WriteString("📋 *Preview of Your Information*\n\n")
	b.WriteString("*Contact Details:*\n")
	fmt.Fprintf(&b, "Name: %s\n", orNA(a.Basics.Name))
	if a.TargetRole != "" {
		fmt.Fprintf(&b, "Target Role: %s\n", a.TargetRole)
	}
	fmt.Fprintf(&b, "Email: %s\n", orNA(a.Basics.Email))
	fmt.Fprintf(&b, "Phone: %s\n", orNA(a.Basics.Phone))
	fmt.Fprintf(&b, "Location: %s\n\n", orNA(a.Basics.Location))

	if a.Summary != "" {
		b.WriteString("*Professional Summary:* 🤖\n")
		b.WriteString(a.Summary)
		b.WriteString("\n\n")
	}
	if len(a.Skills) > 0 {
		b.WriteString("*Skills:* 🤖\n")
		b.WriteString(strings.Join(a.Skills, ", "))
		b.WriteString("\n\n")
	}
	if len(a.Experiences) > 0 {
		fmt.Fprintf(&b, "*Work Experience:* (%d position%s)\n", len(a.Experiences), plural(len(a.Experiences)))
		for i, exp := range a.Experiences {
			fmt.Fprintf(&b, "%d. %s at %s (%d achievement%s)\n",
				i+1, orNA(exp.Role), orNA(exp.Company), len(exp.Bullets), plural(len(exp.Bullets)))
		}
		b.WriteString("\n")
	}
	if len(a.Education) > 0 {
		fmt.Fprintf(&b, "*Education:* (%d entr%s)\n\n", len(a.Education), map[bool]string{true: "y", false: "ies"}[len(a.Education) == 1])
	}
	if n := len(a.Projects) + len(a.Certifications); n > 0 {
		fmt.Fprintf(&b, "*Projects/Certifications:* (%d item%s)\n\n", n, plural(n))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a *Answers) coverPreview() string {
	var b strings.Builder
	b.WriteString("📋 *Cover Letter Preview*\n\n")
	b.WriteString("*Contact Info:*\n")
	fmt.Fprintf(&b, "Name: %s\n", orNA(a.Basics.Name))
	fmt.Fprintf(&b, "Email: %s\n", orNA(a.Basics.Email))
	fmt.Fprintf(&b, "Phone: %s\n\n", orNA(a.Basics.Phone))
	b.WriteString("*Target Position:*\n")
	fmt.Fprintf(&b, "Role: %s\n", orNA(a.CoverRole))
	fmt.Fprintf(&b, "Company: %s\n\n", orNA(a.CoverCompany))
	b.WriteString("*Experience:*\n")
	fmt.Fprintf(&b, "%s in %s\n", orNA(a.YearsExperience), orNA(a.Industries))
	fmt.Fprintf(&b, "Current: %s at %s\n\n", orNA(a.CurrentTitle), orNA(a.CurrentEmployer))
	b.WriteString("*Key Achievement:*\n")
	b.WriteString(orNA(a.Achievement1))
	b.WriteString("\n")
	if a.Achievement2 != "" {
		b.WriteString(a.Achievement2)
		b.WriteString("\n")
	}
	b.WriteString("\n*Key Skills:*\n")
	if len(a.CoverKeySkills) > 0 {
		b.WriteString(strings.Join(a.CoverKeySkills, ", "))
	} else {
		b.WriteString("N/A")
	}
	return b.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// FallbackSummary is the static substitute used when the content generator
// is unavailable.
func (a *Answers) FallbackSummary() string {
	title := strings.TrimSpace(a.TargetRole)
	if title == "" {
		title = "Professional"
	} else {
		title = strings.ToUpper(title[:1]) + title[1:]
	}

	var pieces []string
	if n := len(a.Experiences); n > 0 {
		last := a.Experiences[n-1]
		if last.Company != "" {
			pieces = append(pieces, fmt.Sprintf("%s with hands-on experience at %s.", title, last.Company))
		}
	}
	if len(pieces) == 0 {
		pieces = append(pieces, title+" with hands-on experience.")
	}
	if len(a.Skills) > 0 {
		top := a.Skills
		if len(top) > 3 {
			top = top[:3]
		}
		pieces = append(pieces, "Skilled in "+strings.Join(top, ", ")+".")
	} else {
		pieces = append(pieces, "Delivering reliable results and clean execution.")
	}
	return strings.Join(pieces, " ")
}
