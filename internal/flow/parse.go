package flow

import (
	"strconv"
	"strings"
)

// ValidationError is a recoverable malformed-input failure: the step is
// re-entered unchanged and Prompt is shown to the user with an example of
// the expected format.
type ValidationError struct {
	Expected string
	Example  string
}

func (e *ValidationError) Error() string {
	return "flow: invalid input, expected " + e.Expected
}

// Prompt is the templated user-facing re-prompt.
func (e *ValidationError) Prompt() string {
	var b strings.Builder
	b.WriteString("❌ *Invalid format!*\n\nPlease use: *")
	b.WriteString(e.Expected)
	b.WriteString("*")
	if e.Example != "" {
		b.WriteString("\n\n*Example:* ")
		b.WriteString(e.Example)
	}
	return b.String()
}

func splitCommas(line string) []string {
	parts := strings.Split(line, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// ParseBasics parses "Full Name, Email, Phone, City Country". Name and email
// are required; trailing fields may be omitted.
func ParseBasics(line string) (Basics, error) {
	if !strings.Contains(line, ",") {
		return Basics{}, &ValidationError{
			Expected: "Full Name, Email, Phone, City Country",
			Example:  "John Doe, user@example.com, +234-xxx, Lagos Nigeria",
		}
	}
	parts := splitCommas(line)
	for len(parts) < 4 {
		parts = append(parts, "")
	}
	b := Basics{Name: parts[0], Email: parts[1], Phone: parts[2], Location: parts[3]}
	if b.Name == "" || b.Email == "" || !strings.Contains(b.Email, "@") {
		return Basics{}, &ValidationError{
			Expected: "Full Name, Email, Phone, City Country",
			Example:  "John Doe, user@example.com, +234-xxx, Lagos Nigeria",
		}
	}
	return b, nil
}

// ParseExperienceHeader parses "Role, Company, City, Start, End".
func ParseExperienceHeader(line string) (Experience, error) {
	parts := splitCommas(line)
	for len(parts) < 5 {
		parts = append(parts, "")
	}
	e := Experience{
		Role:     parts[0],
		Company:  parts[1],
		Location: parts[2],
		Start:    parts[3],
		End:      parts[4],
		Bullets:  []string{},
	}
	if e.Role == "" || e.Company == "" {
		return Experience{}, &ValidationError{
			Expected: "Role, Company, City, Start (MMM YYYY), End (MMM YYYY or Present)",
			Example:  "Backend Engineer, TechCorp, Lagos, Jan 2020, Present",
		}
	}
	return e, nil
}

// ParseEducation parses "Degree, School, Year".
func ParseEducation(line string) (Education, error) {
	parts := splitCommas(line)
	if len(parts) < 3 || parts[0] == "" || parts[1] == "" {
		return Education{}, &ValidationError{
			Expected: "Degree, School, Year",
			Example:  "B.Sc. Computer Science, University of Lagos, 2020",
		}
	}
	return Education{Degree: parts[0], School: parts[1], Year: parts[2]}, nil
}

// ParseProfile parses "Platform, URL".
func ParseProfile(line string) (Profile, error) {
	parts := splitCommas(line)
	if len(parts) < 2 || parts[0] == "" || !strings.Contains(parts[1], ".") {
		return Profile{}, &ValidationError{
			Expected: "Platform, URL",
			Example:  "LinkedIn, https://linkedin.com/in/yourname",
		}
	}
	return Profile{Platform: parts[0], URL: parts[1]}, nil
}

// ParsePair parses a two-field CSV line such as "Position Title, Company".
// The second field absorbs any extra commas.
func ParsePair(line, expected, example string) (string, string, error) {
	parts := strings.SplitN(line, ",", 2)
	if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return "", "", &ValidationError{Expected: expected, Example: example}
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), nil
}

// ParseYesNo maps the usual affirmations and negations; nil means neither.
func ParseYesNo(text string) *bool {
	t := strings.ToLower(strings.TrimSpace(text))
	yes, no := true, false
	switch t {
	case "y", "yes", "yeah", "sure", "add", "add another":
		return &yes
	case "n", "no", "nope", "done":
		return &no
	}
	return nil
}

// ParseSkills parses a comma-separated skills list, dropping empties.
func ParseSkills(text string) []string {
	var out []string
	for _, s := range splitCommas(text) {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

const (
	maxSelectedSkills = 5
	minCustomSkills   = 3
)

// ParseSkillSelection resolves a numeric multi-selection ("1,3,5") against
// the suggested list, or falls back to treating the text as the user's own
// comma-separated skills. Custom lists under three entries are rejected so
// a stray token cannot become the whole skill section.
func ParseSkillSelection(text string, suggested []string) []string {
	t := strings.TrimSpace(text)
	numeric := t != ""
	for _, r := range t {
		if r != ',' && r != ' ' && (r < '0' || r > '9') {
			numeric = false
			break
		}
	}
	if numeric {
		var selected []string
		for _, part := range splitCommas(t) {
			n, err := strconv.Atoi(part)
			if err != nil {
				continue
			}
			if n >= 1 && n <= len(suggested) {
				selected = append(selected, suggested[n-1])
			}
		}
		if len(selected) > maxSelectedSkills {
			selected = selected[:maxSelectedSkills]
		}
		return selected
	}
	custom := ParseSkills(t)
	if len(custom) < minCustomSkills {
		return nil
	}
	return custom
}

// FormatSkillSelection renders suggested skills as a numbered menu.
func FormatSkillSelection(skills []string) string {
	var b strings.Builder
	b.WriteString("🤖 Based on your target role, here are some suggested skills:\n\n")
	for i, s := range skills {
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(s)
		b.WriteString("\n")
	}
	b.WriteString("\n📌 *Select up to 5 skills* by sending their numbers (comma-separated).\n")
	b.WriteString("Example: 1,3,5\n\n")
	b.WriteString("Or type your own skills (comma-separated) to skip AI suggestions.")
	return b.String()
}
