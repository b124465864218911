package filtering

import (
	"reflect"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/AmanKumar-0/linkedin-application-bot/internal/jobs"
)

func posting(id string, mutate func(*jobs.Posting)) *jobs.Posting {
	p := &jobs.Posting{
		ID:              id,
		Title:           "Senior Go Engineer",
		Company:         "Acme Inc.",
		Skills:          []string{"Go", "Kubernetes"},
		ExperienceLevel: "Mid-Senior level",
		JobType:         "Full-time",
		RemoteType:      jobs.RemoteRemote,
	}
	if mutate != nil {
		mutate(p)
	}
	return p
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		criteria Criteria
		posting  *jobs.Posting
		want     Decision
	}{
		{name: "no criteria", posting: posting("1", nil), want: Decision{Accepted: true}},
		{
			name:     "not whitelisted",
			criteria: Criteria{CompanyWhitelist: []string{"Globex Corporation"}},
			posting:  posting("1", nil),
			want:     Decision{Reason: ReasonNotWhitelisted},
		},
		{
			name:     "whitelisted after suffix cleanup",
			criteria: Criteria{CompanyWhitelist: []string{"ACME LLC"}},
			posting:  posting("1", nil),
			want:     Decision{Accepted: true},
		},
		{
			name:     "blacklisted company",
			criteria: Criteria{CompanyBlacklist: []string{"acme"}},
			posting:  posting("1", func(p *jobs.Posting) { p.Company = "Acme Labs Pvt Ltd" }),
			want:     Decision{Reason: ReasonBlacklistedCompany},
		},
		{
			name:     "blacklisted title ignores case",
			criteria: Criteria{TitleBlacklist: []string{"SENIOR"}},
			posting:  posting("1", nil),
			want:     Decision{Reason: ReasonBlacklistedTitle},
		},
		{
			name:     "title not whitelisted",
			criteria: Criteria{TitleWhitelist: []string{"python"}},
			posting:  posting("1", nil),
			want:     Decision{Reason: ReasonTitleNotWhitelisted},
		},
		{
			name:     "missing required skill",
			criteria: Criteria{RequiredSkills: []string{"rust", "java"}},
			posting:  posting("1", nil),
			want:     Decision{Reason: ReasonMissingRequiredSkill},
		},
		{
			name:     "one required skill is enough",
			criteria: Criteria{RequiredSkills: []string{"rust", "go"}},
			posting:  posting("1", nil),
			want:     Decision{Accepted: true},
		},
		{
			name:     "avoided skill",
			criteria: Criteria{AvoidedSkills: []string{"kubernetes"}},
			posting:  posting("1", nil),
			want:     Decision{Reason: ReasonAvoidedSkillPresent},
		},
		{
			name:     "salary below minimum",
			criteria: Criteria{SalaryMin: 70000},
			posting:  posting("1", func(p *jobs.Posting) { p.Salary = &jobs.SalaryRange{Min: 40000, Max: 50000} }),
			want:     Decision{Reason: ReasonSalaryOutOfRange},
		},
		{
			name:     "no salary is not a rejection",
			criteria: Criteria{SalaryMin: 70000},
			posting:  posting("1", nil),
			want:     Decision{Accepted: true},
		},
		{
			name:     "overlapping salary",
			criteria: Criteria{SalaryMin: 70000, SalaryMax: 90000},
			posting:  posting("1", func(p *jobs.Posting) { p.Salary = &jobs.SalaryRange{Min: 60000, Max: 75000} }),
			want:     Decision{Accepted: true},
		},
		{
			name:     "salary above maximum",
			criteria: Criteria{SalaryMax: 90000},
			posting:  posting("1", func(p *jobs.Posting) { p.Salary = &jobs.SalaryRange{Min: 120000, Max: 150000} }),
			want:     Decision{Reason: ReasonSalaryOutOfRange},
		},
		{
			name:     "salary in another currency is not compared",
			criteria: Criteria{SalaryMin: 70000, SalaryMax: 200000},
			posting:  posting("1", func(p *jobs.Posting) { p.Salary = jobs.DetectSalary("12-18 LPA") }),
			want:     Decision{Accepted: true},
		},
		{
			name:     "salary in the configured currency",
			criteria: Criteria{SalaryMin: 2000000, SalaryCurrency: "inr"},
			posting:  posting("1", func(p *jobs.Posting) { p.Salary = jobs.DetectSalary("12-18 LPA") }),
			want:     Decision{Reason: ReasonSalaryOutOfRange},
		},
		{
			name:     "funding figure is not a salary",
			criteria: Criteria{SalaryMin: 70000, SalaryMax: 200000},
			posting:  posting("1", func(p *jobs.Posting) { p.Salary = jobs.DetectSalary("Acme raised $50 million in Series B funding") }),
			want:     Decision{Accepted: true},
		},
		{
			name:     "bonus is not a salary",
			criteria: Criteria{SalaryMin: 70000, SalaryMax: 200000},
			posting:  posting("1", func(p *jobs.Posting) { p.Salary = jobs.DetectSalary("$1,000 sign-on bonus") }),
			want:     Decision{Accepted: true},
		},
		{
			name:     "usd salary below minimum",
			criteria: Criteria{SalaryMin: 70000, SalaryMax: 200000},
			posting:  posting("1", func(p *jobs.Posting) { p.Salary = jobs.DetectSalary("Salary: $40,000 - $50,000 a year") }),
			want:     Decision{Reason: ReasonSalaryOutOfRange},
		},
		{
			name:     "experience level",
			criteria: Criteria{ExperienceLevels: []string{"entry level", "Associate"}},
			posting:  posting("1", nil),
			want:     Decision{Reason: ReasonExperienceNotAccepted},
		},
		{
			name:     "job type",
			criteria: Criteria{JobTypes: []string{"Contract"}},
			posting:  posting("1", nil),
			want:     Decision{Reason: ReasonJobTypeNotAccepted},
		},
		{
			name:     "remote type",
			criteria: Criteria{RemoteTypes: []string{"Hybrid", "On-site"}},
			posting:  posting("1", nil),
			want:     Decision{Reason: ReasonRemoteTypeNotAccepted},
		},
		{
			name:     "undetected remote type passes",
			criteria: Criteria{RemoteTypes: []string{"Hybrid"}},
			posting:  posting("1", func(p *jobs.Posting) { p.RemoteType = "" }),
			want:     Decision{Accepted: true},
		},
		{
			name: "first failing rule wins",
			criteria: Criteria{
				CompanyBlacklist: []string{"acme"},
				TitleBlacklist:   []string{"senior"},
				SalaryMin:        70000,
			},
			posting: posting("1", func(p *jobs.Posting) { p.Salary = &jobs.SalaryRange{Min: 1, Max: 2} }),
			want:    Decision{Reason: ReasonBlacklistedCompany},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.criteria, nil).Evaluate(tt.posting)
			if got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	criteria := Criteria{
		CompanyBlacklist: []string{"initech"},
		RequiredSkills:   []string{"go"},
		SalaryMin:        50000,
		RemoteTypes:      []string{"Remote"},
	}
	postings := []*jobs.Posting{
		posting("1", nil),
		posting("2", func(p *jobs.Posting) { p.Company = "Initech" }),
		posting("3", func(p *jobs.Posting) { p.Skills = nil }),
		posting("4", func(p *jobs.Posting) { p.Salary = &jobs.SalaryRange{Min: 10, Max: 20} }),
	}

	first := New(criteria, nil)
	second := New(criteria, nil)
	for _, p := range postings {
		want := first.Evaluate(p)
		for i := 0; i < 5; i++ {
			if got := first.Evaluate(p); got != want {
				t.Fatalf("posting %s: %s then %s", p.ID, want, got)
			}
			if got := second.Evaluate(p); got != want {
				t.Fatalf("posting %s: engines disagree, %s vs %s", p.ID, want, got)
			}
		}
	}
}

func TestRun(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	engine := New(Criteria{
		CompanyBlacklist: []string{"globex"},
		SalaryMin:        70000,
	}, zap.New(core))

	batch := &jobs.Postings{Items: []*jobs.Posting{
		posting("1", nil),
		posting("2", func(p *jobs.Posting) { p.Company = "Globex" }),
		posting("3", func(p *jobs.Posting) { p.Salary = &jobs.SalaryRange{Min: 40000, Max: 50000} }),
		posting("4", func(p *jobs.Posting) { p.Salary = &jobs.SalaryRange{Min: 80000, Max: 90000} }),
	}}

	left, steps := engine.Run(batch)
	if got := left.IDs(); !reflect.DeepEqual(got, []string{"1", "4"}) {
		t.Fatalf("unexpected postings left %v", got)
	}
	want := []Step{
		{Name: ReasonBlacklistedCompany, Initial: 4, Dropped: 1, Left: 3},
		{Name: ReasonSalaryOutOfRange, Initial: 3, Dropped: 1, Left: 2},
	}
	if !reflect.DeepEqual(steps, want) {
		t.Fatalf("expected steps %+v, got %+v", want, steps)
	}
	if batch.Len() != 4 {
		t.Fatal("input batch must not be modified")
	}
	if n := logs.FilterMessage("filter step").Len(); n != 2 {
		t.Fatalf("expected 2 filter step logs, got %d", n)
	}
}

func TestDisableByNameAndDescribe(t *testing.T) {
	engine := New(Criteria{TitleBlacklist: []string{"senior"}, SalaryMin: 1000}, nil)

	if !DisableByName(engine.Filters(), ReasonBlacklistedTitle, "flag") {
		t.Fatal("expected the filter to be found")
	}
	if DisableByName(engine.Filters(), "unknown", "flag") {
		t.Fatal("unknown filter must not be found")
	}
	if got := engine.Evaluate(posting("1", nil)); !got.Accepted {
		t.Fatalf("disabled filter must not reject, got %s", got)
	}

	statuses := Describe(engine.Filters())
	if len(statuses) != len(engine.Filters()) {
		t.Fatalf("expected a status per filter, got %d", len(statuses))
	}
	byName := make(map[string]Status)
	for _, s := range statuses {
		byName[s.Name] = s
	}
	if s := byName[ReasonBlacklistedTitle]; s.Enabled || s.Reason != "flag" {
		t.Fatalf("unexpected title status %+v", s)
	}
	if s := byName[ReasonSalaryOutOfRange]; !s.Enabled || s.Details["min"] != "1000" {
		t.Fatalf("unexpected salary status %+v", s)
	}
	if s := byName[ReasonNotWhitelisted]; s.Enabled || s.Reason != notConfigured {
		t.Fatalf("unexpected whitelist status %+v", s)
	}
}

func TestCriteriaValidate(t *testing.T) {
	if err := (&Criteria{SalaryMin: 10, SalaryMax: 5}).Validate(); err == nil {
		t.Fatal("expected an error for inverted salary bounds")
	}
	if err := (&Criteria{SalaryMin: 10}).Validate(); err != nil {
		t.Fatalf("open upper bound must be valid: %v", err)
	}
}
