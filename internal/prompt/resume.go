package prompt

import (
	"fmt"
	"strings"

	"github.com/interviewace/apiserver/types"
)

// ResumeContext flattens a resume into labeled prose for the prompt.
// With no resume the answer falls back to general qualifications for
// the position.
func ResumeContext(resume *types.Resume, position string) string {
	if resume == nil {
		return fmt.Sprintf("No resume data available. Please respond based on general qualifications for the %s role.", position)
	}

	var b strings.Builder

	details := resume.PersonalDetails
	if details.Name != "" {
		fmt.Fprintf(&b, "CANDIDATE NAME: %s\n", details.Name)
	}
	if details.Email != "" {
		fmt.Fprintf(&b, "Email: %s\n", details.Email)
	}
	if details.Phone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", details.Phone)
	}
	if details.Address != "" {
		fmt.Fprintf(&b, "Location: %s\n", details.Address)
	}
	b.WriteString("\n")

	if resume.Introduction != "" {
		fmt.Fprintf(&b, "PROFESSIONAL SUMMARY:\n%s\n\n", resume.Introduction)
	}

	if len(resume.Experience) > 0 {
		b.WriteString("WORK EXPERIENCE:\n")
		for i, exp := range resume.Experience {
			fmt.Fprintf(&b, "%d. %s at %s\n", i+1, orLabel(exp.Position, "Position"), orLabel(exp.Company, "Company"))
			if exp.TimeStart != "" || exp.TimeEnd != "" {
				fmt.Fprintf(&b, "   Duration: %s - %s\n", exp.TimeStart, exp.TimeEnd)
			}
			if exp.Location != "" {
				fmt.Fprintf(&b, "   Location: %s\n", exp.Location)
			}
			if exp.Description != "" {
				fmt.Fprintf(&b, "   %s\n", exp.Description)
			}
			if len(exp.Achievements) > 0 {
				b.WriteString("   Key Achievements:\n")
				for _, achievement := range exp.Achievements {
					fmt.Fprintf(&b, "   - %s\n", achievement)
				}
			}
			b.WriteString("\n")
		}
	}

	if len(resume.Skills) > 0 {
		fmt.Fprintf(&b, "TECHNICAL SKILLS: %s\n\n", strings.Join(resume.Skills, ", "))
	}

	if len(resume.Education) > 0 {
		b.WriteString("EDUCATION:\n")
		for i, edu := range resume.Education {
			fmt.Fprintf(&b, "%d. %s from %s", i+1, orLabel(edu.Degree, "Degree"), orLabel(edu.School, "Institution"))
			if edu.TimeEnd != "" {
				fmt.Fprintf(&b, " (%s)", edu.TimeEnd)
			}
			b.WriteString("\n")
			if edu.Description != "" {
				fmt.Fprintf(&b, "   %s\n", edu.Description)
			}
		}
		b.WriteString("\n")
	}

	if len(resume.OtherExperience) > 0 {
		b.WriteString("OTHER EXPERIENCE:\n")
		for _, other := range resume.OtherExperience {
			fmt.Fprintf(&b, "- %s", other.Title)
			if other.Description != "" {
				fmt.Fprintf(&b, ": %s", other.Description)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(resume.Languages) > 0 {
		fmt.Fprintf(&b, "LANGUAGES: %s\n\n", strings.Join(resume.Languages, ", "))
	}

	return strings.TrimSpace(b.String())
}

func orLabel(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
