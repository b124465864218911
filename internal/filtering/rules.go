package filtering

import (
	"strconv"
	"strings"

	"github.com/AmanKumar-0/linkedin-application-bot/internal/jobs"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/skills"
)

// companyFilter matches cleaned company names by substring. A blacklist
// rejects matches, a whitelist rejects everything else.
type companyFilter struct {
	toggle
	name      string
	companies []string
	blacklist bool
}

func newCompanyFilter(name string, companies []string, blacklist bool) *companyFilter {
	f := &companyFilter{name: name, companies: cleanList(companies, jobs.CleanCompany), blacklist: blacklist}
	if len(f.companies) == 0 {
		f.Disable(notConfigured)
	}
	return f
}

func (f *companyFilter) Name() string { return f.name }

func (f *companyFilter) Reject(p *jobs.Posting) bool {
	company := jobs.CleanCompany(p.Company)
	matched := false
	for _, c := range f.companies {
		if company != "" && strings.Contains(company, c) {
			matched = true
			break
		}
	}
	return matched == f.blacklist
}

func (f *companyFilter) Status() Status {
	return f.status(f.name, map[string]string{"companies": strings.Join(f.companies, ",")})
}

type titleFilter struct {
	toggle
	name      string
	words     []string
	blacklist bool
}

func newTitleFilter(name string, words []string, blacklist bool) *titleFilter {
	f := &titleFilter{name: name, words: cleanList(words, lower), blacklist: blacklist}
	if len(f.words) == 0 {
		f.Disable(notConfigured)
	}
	return f
}

func (f *titleFilter) Name() string { return f.name }

func (f *titleFilter) Reject(p *jobs.Posting) bool {
	title := lower(p.Title)
	matched := false
	for _, w := range f.words {
		if strings.Contains(title, w) {
			matched = true
			break
		}
	}
	return matched == f.blacklist
}

func (f *titleFilter) Status() Status {
	return f.status(f.name, map[string]string{"titles": strings.Join(f.words, ",")})
}

// skillFilter checks the posting's detected skills. With avoid set any
// listed skill rejects; otherwise the posting needs at least one of them.
type skillFilter struct {
	toggle
	name   string
	skills []string
	avoid  bool
}

func newSkillFilter(name string, list []string, avoid bool) *skillFilter {
	f := &skillFilter{name: name, skills: cleanList(list, skills.Normalize), avoid: avoid}
	if len(f.skills) == 0 {
		f.Disable(notConfigured)
	}
	return f
}

func (f *skillFilter) Name() string { return f.name }

func (f *skillFilter) Reject(p *jobs.Posting) bool {
	present := len(skills.Intersect(p.Skills, f.skills)) > 0
	return present == f.avoid
}

func (f *skillFilter) Status() Status {
	return f.status(f.name, map[string]string{"skills": strings.Join(f.skills, ",")})
}

// salaryFilter rejects detected ranges entirely outside [min, max]. A zero
// bound is open. Postings without a detected salary, or with a salary in
// another currency, always pass.
type salaryFilter struct {
	toggle
	min      int
	max      int
	currency string
}

func newSalaryFilter(lo, hi int, currency string) *salaryFilter {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = jobs.CurrencyUSD
	}
	f := &salaryFilter{min: lo, max: hi, currency: currency}
	if lo <= 0 && hi <= 0 {
		f.Disable(notConfigured)
	}
	return f
}

func (f *salaryFilter) Name() string { return ReasonSalaryOutOfRange }

func (f *salaryFilter) Reject(p *jobs.Posting) bool {
	if p.Salary == nil {
		return false
	}
	if p.Salary.Currency != "" && !strings.EqualFold(p.Salary.Currency, f.currency) {
		return false
	}
	if f.min > 0 && p.Salary.Max < f.min {
		return true
	}
	return f.max > 0 && p.Salary.Min > f.max
}

func (f *salaryFilter) Status() Status {
	return f.status(f.Name(), map[string]string{
		"min":      strconv.Itoa(f.min),
		"max":      strconv.Itoa(f.max),
		"currency": f.currency,
	})
}

// acceptedFilter rejects a detected value outside the accepted set. An
// undetected value passes.
type acceptedFilter struct {
	toggle
	name     string
	accepted []string
	value    func(*jobs.Posting) string
}

func newAcceptedFilter(name string, accepted []string, value func(*jobs.Posting) string) *acceptedFilter {
	f := &acceptedFilter{name: name, accepted: cleanList(accepted, lower), value: value}
	if len(f.accepted) == 0 {
		f.Disable(notConfigured)
	}
	return f
}

func (f *acceptedFilter) Name() string { return f.name }

func (f *acceptedFilter) Reject(p *jobs.Posting) bool {
	v := lower(f.value(p))
	if v == "" {
		return false
	}
	for _, a := range f.accepted {
		if a == v {
			return false
		}
	}
	return true
}

func (f *acceptedFilter) Status() Status {
	return f.status(f.name, map[string]string{"accepted": strings.Join(f.accepted, ",")})
}
