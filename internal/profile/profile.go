// Package profile builds the applicant profile from configuration and CV facts.
package profile

import (
	"fmt"
	"strings"

	"github.com/AmanKumar-0/linkedin-application-bot/internal/skills"
)

// Config is the applicant section of the configuration file.
type Config struct {
	FullName            string         `mapstructure:"full-name" yaml:"full-name"`
	Email               string         `mapstructure:"email" yaml:"email" validate:"omitempty,email"`
	Phone               string         `mapstructure:"phone" yaml:"phone"`
	Location            string         `mapstructure:"location" yaml:"location"`
	CurrentTitle        string         `mapstructure:"current-title" yaml:"current-title"`
	LinkedInURL         string         `mapstructure:"linkedin-url" yaml:"linkedin-url" validate:"omitempty,url"`
	Website             string         `mapstructure:"website" yaml:"website" validate:"omitempty,url"`
	YearsOfExperience   int            `mapstructure:"years-of-experience" yaml:"years-of-experience" validate:"gte=0,lte=60"`
	SkillYears          map[string]int `mapstructure:"skill-years" yaml:"skill-years"`
	CurrentSalary       int            `mapstructure:"current-salary" yaml:"current-salary" validate:"gte=0"`
	ExpectedSalary      int            `mapstructure:"expected-salary" yaml:"expected-salary" validate:"gte=0"`
	SalaryCurrency      string         `mapstructure:"salary-currency" yaml:"salary-currency"`
	NoticePeriodDays    int            `mapstructure:"notice-period-days" yaml:"notice-period-days" validate:"gte=0"`
	VisaStatus          string         `mapstructure:"visa-status" yaml:"visa-status"`
	AuthorizedToWork    bool           `mapstructure:"authorized-to-work" yaml:"authorized-to-work"`
	RequiresSponsorship bool           `mapstructure:"requires-sponsorship" yaml:"requires-sponsorship"`
	WillingToRelocate   bool           `mapstructure:"willing-to-relocate" yaml:"willing-to-relocate"`
	Skills              []string       `mapstructure:"skills" yaml:"skills"`
	Resume              string         `mapstructure:"resume" yaml:"resume"`
	CoverLetter         string         `mapstructure:"cover-letter" yaml:"cover-letter"`
	// Answers maps a question key (see the resolver) to its canonical answer.
	Answers map[string]any `mapstructure:"answers" yaml:"answers"`
}

// Profile is the normalized applicant. It is built once per session and only read afterwards.
type Profile struct {
	FullName            string
	FirstName           string
	LastName            string
	Email               string
	Phone               string
	Location            string
	CurrentTitle        string
	LinkedInURL         string
	Website             string
	YearsOfExperience   int
	SkillYears          map[string]int
	CurrentSalary       int
	ExpectedSalary      int
	SalaryCurrency      string
	NoticePeriodDays    int
	VisaStatus          string
	AuthorizedToWork    bool
	RequiresSponsorship bool
	WillingToRelocate   bool
	Skills              []string
	Education           []string
	Summary             string
	ResumePath          string
	CoverLetterPath     string

	overrides map[string]string
}

// Build merges configuration with CV facts. Configured values win; facts fill the gaps.
func Build(cfg Config, facts *CVFacts) *Profile {
	p := &Profile{
		FullName:            strings.TrimSpace(cfg.FullName),
		Email:               strings.TrimSpace(cfg.Email),
		Phone:               strings.TrimSpace(cfg.Phone),
		Location:            strings.TrimSpace(cfg.Location),
		CurrentTitle:        strings.TrimSpace(cfg.CurrentTitle),
		LinkedInURL:         strings.TrimSpace(cfg.LinkedInURL),
		Website:             strings.TrimSpace(cfg.Website),
		YearsOfExperience:   cfg.YearsOfExperience,
		SkillYears:          make(map[string]int, len(cfg.SkillYears)),
		CurrentSalary:       cfg.CurrentSalary,
		ExpectedSalary:      cfg.ExpectedSalary,
		SalaryCurrency:      strings.TrimSpace(cfg.SalaryCurrency),
		NoticePeriodDays:    cfg.NoticePeriodDays,
		VisaStatus:          strings.TrimSpace(cfg.VisaStatus),
		AuthorizedToWork:    cfg.AuthorizedToWork,
		RequiresSponsorship: cfg.RequiresSponsorship,
		WillingToRelocate:   cfg.WillingToRelocate,
		ResumePath:          strings.TrimSpace(cfg.Resume),
		CoverLetterPath:     strings.TrimSpace(cfg.CoverLetter),
		overrides:           make(map[string]string, len(cfg.Answers)),
	}

	for skill, years := range cfg.SkillYears {
		p.SkillYears[skills.Normalize(skill)] = years
	}
	for key, value := range cfg.Answers {
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" || value == nil {
			continue
		}
		p.overrides[key] = strings.TrimSpace(fmt.Sprint(value))
	}

	p.Skills = mergeSkills(cfg.Skills, nil)
	if facts != nil {
		p.FullName = firstNonEmpty(p.FullName, facts.Name)
		p.Email = firstNonEmpty(p.Email, facts.Email)
		p.Phone = firstNonEmpty(p.Phone, facts.Phone)
		p.Location = firstNonEmpty(p.Location, facts.Location)
		p.CurrentTitle = firstNonEmpty(p.CurrentTitle, facts.CurrentTitle)
		if p.YearsOfExperience == 0 {
			p.YearsOfExperience = facts.ExperienceYears
		}
		if p.NoticePeriodDays == 0 {
			p.NoticePeriodDays = facts.NoticePeriodDays
		}
		p.Skills = mergeSkills(cfg.Skills, facts.Skills)
		p.Education = append(p.Education, facts.Education...)
		p.Summary = facts.Summary
	}

	if p.FirstName == "" && p.LastName == "" {
		p.FirstName, p.LastName = splitName(p.FullName)
	}
	return p
}

// Override returns the explicit answer configured for a question key.
func (p *Profile) Override(key string) (string, bool) {
	if p == nil {
		return "", false
	}
	v, ok := p.overrides[strings.ToLower(strings.TrimSpace(key))]
	return v, ok
}

// ExperienceWith returns the years of experience with a skill, falling back to
// the overall figure.
func (p *Profile) ExperienceWith(skill string) int {
	if p == nil {
		return 0
	}
	if years, ok := p.SkillYears[skills.Normalize(skill)]; ok {
		return years
	}
	if skill != "" && !skills.Contains(p.Skills, skill) {
		return 0
	}
	return p.YearsOfExperience
}

// Facts returns the structured facts given to the AI service as context.
func (p *Profile) Facts() map[string]any {
	if p == nil {
		return map[string]any{}
	}
	facts := map[string]any{
		"name":                 p.FullName,
		"location":             p.Location,
		"current_title":        p.CurrentTitle,
		"years_of_experience":  p.YearsOfExperience,
		"skills":               p.Skills,
		"education":            p.Education,
		"visa_status":          p.VisaStatus,
		"authorized_to_work":   p.AuthorizedToWork,
		"requires_sponsorship": p.RequiresSponsorship,
		"willing_to_relocate":  p.WillingToRelocate,
		"notice_period_days":   p.NoticePeriodDays,
	}
	if p.ExpectedSalary > 0 {
		facts["expected_salary"] = p.ExpectedSalary
		facts["salary_currency"] = p.SalaryCurrency
	}
	if len(p.SkillYears) > 0 {
		facts["skill_years"] = p.SkillYears
	}
	return facts
}

func mergeSkills(configured, detected []string) []string {
	var out []string
	for _, list := range [][]string{configured, detected} {
		for _, s := range list {
			s = strings.TrimSpace(s)
			if s != "" && !skills.Contains(out, s) {
				out = append(out, s)
			}
		}
	}
	return out
}

func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
