// Package jobs holds the posting model shared by discovery, filtering and application.
package jobs

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Remote types as shown by the platform.
const (
	RemoteOnSite = "On-site"
	RemoteRemote = "Remote"
	RemoteHybrid = "Hybrid"
)

// Currencies of detected salaries.
const (
	CurrencyUSD = "USD"
	CurrencyINR = "INR"
)

// Posting is a single job listing. It is not modified after it has been fetched.
type Posting struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	Company         string       `json:"company"`
	Location        string       `json:"location,omitempty"`
	URL             string       `json:"url,omitempty"`
	Description     string       `json:"description,omitempty"`
	Salary          *SalaryRange `json:"salary,omitempty"`
	RemoteType      string       `json:"remote_type,omitempty"`
	ExperienceLevel string       `json:"experience_level,omitempty"`
	JobType         string       `json:"job_type,omitempty"`
	Skills          []string     `json:"skills,omitempty"`
	PostedAt        string       `json:"posted_at,omitempty"`
	EasyApply       bool         `json:"easy_apply"`
}

// SalaryRange is a detected annual salary range. Min equals Max for a single figure.
type SalaryRange struct {
	Min      int    `json:"min"`
	Max      int    `json:"max"`
	Currency string `json:"currency,omitempty"`
}

func (s *SalaryRange) String() string {
	if s == nil {
		return ""
	}
	if s.Min == s.Max {
		return fmt.Sprintf("%d %s", s.Min, s.Currency)
	}
	return fmt.Sprintf("%d-%d %s", s.Min, s.Max, s.Currency)
}

// Postings is an ordered list of postings.
type Postings struct {
	Items []*Posting
}

func (p *Postings) Len() int {
	return len(p.Items)
}

func (p *Postings) FindByID(id string) *Posting {
	for _, posting := range p.Items {
		if posting.ID == id {
			return posting
		}
	}
	return nil
}

func (p *Postings) IDs() []string {
	ids := make([]string, 0, len(p.Items))
	for _, posting := range p.Items {
		ids = append(ids, posting.ID)
	}
	return ids
}

// ReportByCompany groups postings by company for a quick review.
func (p *Postings) ReportByCompany() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, posting := range p.Items {
		report[posting.Company] = append(report[posting.Company], map[string]string{
			"id":       posting.ID,
			"title":    posting.Title,
			"url":      posting.URL,
			"location": posting.Location,
			"salary":   posting.Salary.String(),
			"remote":   posting.RemoteType,
		})
	}
	for company := range report {
		entries := report[company]
		sort.Slice(entries, func(i, j int) bool { return entries[i]["id"] < entries[j]["id"] })
	}
	return report
}

// DumpToTmpFile writes the postings as indented JSON into a new temp file.
func (p *Postings) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "postings_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return "", err
	}
	return file.Name(), nil
}
