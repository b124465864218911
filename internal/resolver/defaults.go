package resolver

import (
	"fmt"
	"strings"

	"github.com/AmanKumar-0/linkedin-application-bot/internal/profile"
)

const fallbackText = "N/A"

// staticDefault returns the conservative answer for a question category. The
// value is a bool, a float64 or a string and is shaped to the field kind later.
func staticDefault(key string, q Question, p *profile.Profile) any {
	if p == nil {
		p = &profile.Profile{}
	}
	cat, skill := category(key)
	switch cat {
	case KeyAuthorizedToWork:
		if q.Kind == KindText && p.VisaStatus != "" {
			return p.VisaStatus
		}
		return p.AuthorizedToWork || visaAuthorizes(p.VisaStatus)
	case KeyRequireSponsorship:
		return p.RequiresSponsorship
	case KeyWillingToRelocate:
		return p.WillingToRelocate
	case KeyYearsOfExperience:
		return float64(p.ExperienceWith(skill))
	case KeyNoticePeriod:
		if q.Kind == KindText {
			if p.NoticePeriodDays == 0 {
				return "Immediately"
			}
			return fmt.Sprintf("%d days", p.NoticePeriodDays)
		}
		return float64(p.NoticePeriodDays)
	case KeyExpectedSalary:
		return float64(p.ExpectedSalary)
	case KeyCurrentSalary:
		return float64(p.CurrentSalary)
	case KeyEducation:
		return len(p.Education) > 0
	case KeyEnglish:
		if q.Kind == KindBool {
			return true
		}
		return "Professional"
	case KeyRemoteWork:
		return true
	case KeyTravel:
		if q.Kind == KindBool {
			return true
		}
		return "25%"
	case KeyPhone:
		return p.Phone
	case KeyEmail:
		return p.Email
	case KeyFirstName:
		return p.FirstName
	case KeyLastName:
		return p.LastName
	case KeyFullName:
		return p.FullName
	case KeyCity:
		return p.Location
	case KeyLinkedIn:
		return p.LinkedInURL
	case KeyWebsite:
		return p.Website
	case KeyCoverLetter:
		return coverLetter(q, p)
	}

	switch q.Kind {
	case KindBool:
		return true
	case KindNumber:
		return float64(p.YearsOfExperience)
	default:
		return fallbackText
	}
}

func visaAuthorizes(status string) bool {
	status = strings.ToLower(status)
	for _, s := range []string{"citizen", "permanent resident", "green card", "authorized", "authorised"} {
		if strings.Contains(status, s) {
			return true
		}
	}
	return false
}

// shape converts a semantic value into a type-correct answer for q.
func shape(value any, q Question, source Source) Answer {
	var a Answer
	switch v := value.(type) {
	case bool:
		a = shapeBool(v, q)
	case float64:
		a = shapeNumber(v, q)
	case string:
		a = shapeText(v, q)
	}
	a.Source = source
	return a
}

func shapeBool(b bool, q Question) Answer {
	switch q.Kind {
	case KindNumber:
		if b {
			return Answer{Kind: KindNumber, Number: 1}
		}
		return Answer{Kind: KindNumber}
	case KindChoice:
		word := "No"
		if b {
			word = "Yes"
		}
		return choice(q, MatchOption(q.Options, word))
	case KindText:
		return Answer{Kind: KindText, Text: Answer{Kind: KindBool, Bool: b}.String()}
	default:
		return Answer{Kind: KindBool, Bool: b}
	}
}

func shapeNumber(n float64, q Question) Answer {
	switch q.Kind {
	case KindBool:
		return Answer{Kind: KindBool, Bool: n > 0}
	case KindChoice:
		return choice(q, matchNumber(q.Options, n))
	case KindText:
		return Answer{Kind: KindText, Text: Answer{Kind: KindNumber, Number: n}.String()}
	default:
		return Answer{Kind: KindNumber, Number: n}
	}
}

func shapeText(s string, q Question) Answer {
	s = strings.TrimSpace(s)
	switch q.Kind {
	case KindBool:
		b, ok := parseBool(s)
		if !ok {
			b = true
		}
		return Answer{Kind: KindBool, Bool: b}
	case KindNumber:
		n, _ := parseNumber(s)
		return Answer{Kind: KindNumber, Number: n}
	case KindChoice:
		return choice(q, MatchOption(q.Options, s))
	default:
		if s == "" {
			s = fallbackText
		}
		return Answer{Kind: KindText, Text: s}
	}
}

// choice falls back to the first real option when nothing matched.
func choice(q Question, idx int) Answer {
	if idx < 0 {
		idx = firstOption(q.Options)
	}
	if idx < 0 {
		return Answer{Kind: KindChoice, Choice: -1}
	}
	return Answer{Kind: KindChoice, Choice: idx, Text: q.Options[idx]}
}

func coverLetter(q Question, p *profile.Profile) string {
	title, company := "this role", "your company"
	if q.Posting != nil {
		if q.Posting.Title != "" {
			title = q.Posting.Title
		}
		if q.Posting.Company != "" {
			company = q.Posting.Company
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "I am interested in the %s position at %s.", title, company)
	if p.YearsOfExperience > 0 {
		fmt.Fprintf(&b, " I bring %d years of experience", p.YearsOfExperience)
		if p.CurrentTitle != "" {
			fmt.Fprintf(&b, " as a %s", p.CurrentTitle)
		}
		b.WriteString(".")
	}
	if len(p.Skills) > 0 {
		top := p.Skills
		if len(top) > 5 {
			top = top[:5]
		}
		fmt.Fprintf(&b, " My core skills include %s.", strings.Join(top, ", "))
	}
	b.WriteString(" I would welcome the chance to discuss how I can contribute to the team.")
	if p.FullName != "" {
		fmt.Fprintf(&b, "\n\n%s", p.FullName)
	}
	return b.String()
}
