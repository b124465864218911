// Package filtering decides which postings are worth an application.
package filtering

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/AmanKumar-0/linkedin-application-bot/internal/jobs"
)

// Reject reasons. They double as filter names.
const (
	ReasonNotWhitelisted        = "not-whitelisted"
	ReasonBlacklistedCompany    = "blacklisted-company"
	ReasonBlacklistedTitle      = "blacklisted-title"
	ReasonTitleNotWhitelisted   = "title-not-whitelisted"
	ReasonMissingRequiredSkill  = "missing-required-skill"
	ReasonAvoidedSkillPresent   = "avoided-skill-present"
	ReasonSalaryOutOfRange      = "salary-out-of-range"
	ReasonExperienceNotAccepted = "experience-level-not-accepted"
	ReasonJobTypeNotAccepted    = "job-type-not-accepted"
	ReasonRemoteTypeNotAccepted = "remote-type-not-accepted"
)

// Criteria are the user's filter settings. Empty lists and zero bounds disable
// the matching rule. The salary bounds are in SalaryCurrency, USD when empty.
type Criteria struct {
	CompanyWhitelist []string `mapstructure:"company-whitelist" yaml:"company-whitelist"`
	CompanyBlacklist []string `mapstructure:"company-blacklist" yaml:"company-blacklist"`
	TitleBlacklist   []string `mapstructure:"title-blacklist" yaml:"title-blacklist"`
	TitleWhitelist   []string `mapstructure:"title-whitelist" yaml:"title-whitelist"`
	RequiredSkills   []string `mapstructure:"required-skills" yaml:"required-skills"`
	AvoidedSkills    []string `mapstructure:"avoided-skills" yaml:"avoided-skills"`
	SalaryMin        int      `mapstructure:"salary-min" yaml:"salary-min" validate:"gte=0"`
	SalaryMax        int      `mapstructure:"salary-max" yaml:"salary-max" validate:"gte=0"`
	SalaryCurrency   string   `mapstructure:"salary-currency" yaml:"salary-currency,omitempty" validate:"omitempty,len=3,alpha"`
	ExperienceLevels []string `mapstructure:"experience-levels" yaml:"experience-levels"`
	JobTypes         []string `mapstructure:"job-types" yaml:"job-types"`
	RemoteTypes      []string `mapstructure:"remote-types" yaml:"remote-types"`
}

// Validate checks the bounds that struct tags cannot express.
func (c *Criteria) Validate() error {
	if c.SalaryMax > 0 && c.SalaryMin > c.SalaryMax {
		return fmt.Errorf("salary-min (%d) is greater than salary-max (%d)", c.SalaryMin, c.SalaryMax)
	}
	return nil
}

// Filter is a single rule. Reject reports whether the posting fails it.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Reject(p *jobs.Posting) bool
}

// Decision is the result of evaluating one posting.
type Decision struct {
	Accepted bool
	Reason   string
}

func accept() Decision { return Decision{Accepted: true} }

func reject(reason string) Decision { return Decision{Reason: reason} }

func (d Decision) String() string {
	if d.Accepted {
		return "accept"
	}
	return "reject(" + d.Reason + ")"
}

// Step describes the result of executing a filter over a batch.
type Step struct {
	Name    string
	Initial int
	Dropped int
	Left    int
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

// statusProvider is implemented by filters that can supply detailed status information.
type statusProvider interface {
	Status() Status
}

// Engine evaluates postings against an ordered list of filters.
type Engine struct {
	filters []Filter
	logger  *zap.Logger
}

// New builds the filters for criteria in evaluation order. The order fixes
// which reason is reported when a posting fails several rules.
func New(c Criteria, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		logger: logger,
		filters: []Filter{
			newCompanyFilter(ReasonNotWhitelisted, c.CompanyWhitelist, false),
			newCompanyFilter(ReasonBlacklistedCompany, c.CompanyBlacklist, true),
			newTitleFilter(ReasonBlacklistedTitle, c.TitleBlacklist, true),
			newTitleFilter(ReasonTitleNotWhitelisted, c.TitleWhitelist, false),
			newSkillFilter(ReasonMissingRequiredSkill, c.RequiredSkills, false),
			newSkillFilter(ReasonAvoidedSkillPresent, c.AvoidedSkills, true),
			newSalaryFilter(c.SalaryMin, c.SalaryMax, c.SalaryCurrency),
			newAcceptedFilter(ReasonExperienceNotAccepted, c.ExperienceLevels, func(p *jobs.Posting) string { return p.ExperienceLevel }),
			newAcceptedFilter(ReasonJobTypeNotAccepted, c.JobTypes, func(p *jobs.Posting) string { return p.JobType }),
			newAcceptedFilter(ReasonRemoteTypeNotAccepted, c.RemoteTypes, func(p *jobs.Posting) string { return p.RemoteType }),
		},
	}
}

// Filters returns the filters in evaluation order.
func (e *Engine) Filters() []Filter {
	return e.filters
}

// Evaluate returns the first failing rule as the reject reason. It has no
// side effects.
func (e *Engine) Evaluate(p *jobs.Posting) Decision {
	for _, f := range e.filters {
		if f.IsEnabled() && f.Reject(p) {
			return reject(f.Name())
		}
	}
	return accept()
}

// Run applies the enabled filters one after another to a batch and reports
// per-filter statistics. The input is not modified.
func (e *Engine) Run(postings *jobs.Postings) (*jobs.Postings, []Step) {
	left := append([]*jobs.Posting(nil), postings.Items...)
	steps := make([]Step, 0, len(e.filters))

	for _, f := range e.filters {
		if !f.IsEnabled() {
			e.logger.Debug("filter disabled", zap.String("name", f.Name()))
			continue
		}

		kept := make([]*jobs.Posting, 0, len(left))
		var dropped []string
		for _, p := range left {
			if f.Reject(p) {
				dropped = append(dropped, p.ID)
				continue
			}
			kept = append(kept, p)
		}

		step := Step{Name: f.Name(), Initial: len(left), Dropped: len(dropped), Left: len(kept)}
		e.logger.Info("filter step",
			zap.String("name", step.Name),
			zap.Int("initial", step.Initial),
			zap.Int("dropped", step.Dropped),
			zap.Int("left", step.Left),
		)
		if len(dropped) > 0 {
			e.logger.Debug("excluding postings", zap.String("name", f.Name()), zap.Strings("excluded_postings", dropped))
		}
		steps = append(steps, step)
		left = kept
	}

	return &jobs.Postings{Items: left}, steps
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(filters []Filter, name, reason string) bool {
	found := false
	for _, f := range filters {
		if f.Name() == name {
			f.Disable(reason)
			found = true
		}
	}
	return found
}

// Describe returns status entries for the provided filters.
func Describe(filters []Filter) []Status {
	statuses := make([]Status, 0, len(filters))
	for _, f := range filters {
		if reporter, ok := f.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    f.Name(),
			Enabled: f.IsEnabled(),
		})
	}
	return statuses
}

// toggle carries the enabled state shared by all filters.
type toggle struct {
	disabled bool
	reason   string
}

func (t *toggle) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *toggle) IsEnabled() bool { return !t.disabled }

func (t *toggle) status(name string, details map[string]string) Status {
	return Status{Name: name, Enabled: !t.disabled, Reason: t.reason, Details: details}
}

const notConfigured = "not configured"

func cleanList(values []string, clean func(string) string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = clean(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func lower(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
