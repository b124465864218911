package linkedin

import (
	"net/url"
	"testing"
)

func TestSearchURLs(t *testing.T) {
	params := &SearchParams{
		Keywords:         []string{"golang developer", " ", "backend engineer", "sre"},
		Locations:        []string{"Berlin", "Remote"},
		DatePosted:       "Past Week",
		ExperienceLevels: []string{"Entry level", "Mid-Senior level", "Wizard"},
		JobTypes:         []string{"Full-time", "Contract"},
		RemoteTypes:      []string{"Remote", "Hybrid"},
		Salary:           "$80,000+",
		SortBy:           "Recent",
		MaxKeywords:      2,
	}

	urls := SearchURLs("https://li.test/", params)
	if len(urls) != 4 {
		t.Fatalf("expected 4 urls, got %d: %v", len(urls), urls)
	}

	u, err := url.Parse(urls[1])
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	if u.Host != "li.test" || u.Path != "/jobs/search/" {
		t.Fatalf("unexpected url %s", u)
	}

	q := u.Query()
	want := map[string]string{
		"keywords": "golang developer",
		"location": "Remote",
		"f_AL":     "true",
		"f_TPR":    "r604800",
		"f_E":      "2,4",
		"f_JT":     "F,C",
		"f_WT":     "2,3",
		"f_SB2":    "3",
		"sortBy":   "DD",
	}
	for key, value := range want {
		if got := q.Get(key); got != value {
			t.Fatalf("%s: expected %q, got %q", key, value, got)
		}
	}

	last, _ := url.Parse(urls[3])
	if got := last.Query().Get("keywords"); got != "backend engineer" {
		t.Fatalf("expected blank keywords to be dropped, got %q", got)
	}
}

func TestSearchURLsWithoutLocation(t *testing.T) {
	urls := SearchURLs("https://li.test", &SearchParams{Keywords: []string{"go"}, DatePosted: "Any time"})
	if len(urls) != 1 {
		t.Fatalf("expected 1 url, got %v", urls)
	}
	u, _ := url.Parse(urls[0])
	if u.Query().Has("location") || u.Query().Has("f_TPR") {
		t.Fatalf("unexpected parameters in %s", urls[0])
	}
	if SearchURLs("https://li.test", nil) != nil {
		t.Fatal("expected no urls without params")
	}
}

func TestPageURL(t *testing.T) {
	base := "https://li.test/jobs/search/?keywords=go"
	if got := PageURL(base, 0, 25); got != base {
		t.Fatalf("first page should be unchanged, got %s", got)
	}
	u, _ := url.Parse(PageURL(base, 2, 25))
	if u.Query().Get("start") != "50" || u.Query().Get("keywords") != "go" {
		t.Fatalf("unexpected page url %s", u)
	}
}
