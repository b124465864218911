package linkedin

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/AmanKumar-0/linkedin-application-bot/internal/jobs"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/skills"
)

// ErrNotPosting reports a page that does not look like a posting page.
var ErrNotPosting = errors.New("page is not a job posting")

var (
	jobIDRe   = regexp.MustCompile(`(\d{6,})`)
	jobLinkRe = regexp.MustCompile(`/jobs/view/(?:[^/?#]*?-)?(\d{6,})`)

	titleSelectors       = []string{".job-details-jobs-unified-top-card__job-title h1", ".jobs-unified-top-card__job-title", ".top-card-layout__title", "h1"}
	companySelectors     = []string{".job-details-jobs-unified-top-card__company-name", ".jobs-unified-top-card__company-name", ".topcard__org-name-link"}
	locationSelectors    = []string{".job-details-jobs-unified-top-card__primary-description-container .tvm__text", ".jobs-unified-top-card__bullet", ".topcard__flavor--bullet"}
	postedSelectors      = []string{".jobs-unified-top-card__posted-date", ".posted-time-ago__text"}
	descriptionSelectors = []string{".jobs-description__content", ".jobs-box__html-content", "#job-details", ".description__text"}
	insightSelectors     = ".job-details-jobs-unified-top-card__job-insight, .jobs-unified-top-card__job-insight, .job-details-preferences-and-skills, .job-details-fit-level-preferences, .description__job-criteria-list"
	applyButtonSelector  = ".jobs-apply-button, .jobs-s-apply button"
)

// ParseSearchResults returns the job ids on a search results page in page order.
func ParseSearchResults(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse search results: %w", err)
	}

	var ids []string
	seen := make(map[string]struct{})
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	doc.Find("[data-job-id], [data-occludable-job-id], a[href*='/jobs/view/']").Each(func(_ int, s *goquery.Selection) {
		for _, attr := range []string{"data-job-id", "data-occludable-job-id"} {
			if v, ok := s.Attr(attr); ok {
				add(jobIDRe.FindString(v))
				return
			}
		}
		if href, ok := s.Attr("href"); ok {
			if m := jobLinkRe.FindStringSubmatch(href); m != nil {
				add(m[1])
			}
		}
	})
	return ids, nil
}

// ParsePosting extracts a posting from its page.
func ParsePosting(id, pageURL, html string) (*jobs.Posting, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse posting %s: %w", id, err)
	}

	title := firstText(doc, titleSelectors)
	if title == "" {
		return nil, fmt.Errorf("posting %s: %w", id, ErrNotPosting)
	}

	var description string
	for _, sel := range descriptionSelectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			fragment, _ := s.Html()
			description = jobs.DescriptionText(fragment)
			break
		}
	}

	var insights []string
	doc.Find(insightSelectors).Each(func(_ int, s *goquery.Selection) {
		if text := collapse(s.Text()); text != "" {
			insights = append(insights, text)
		}
	})
	insightText := strings.Join(insights, "\n")
	location := firstText(doc, locationSelectors)

	posting := &jobs.Posting{
		ID:              id,
		Title:           title,
		Company:         firstText(doc, companySelectors),
		Location:        location,
		URL:             pageURL,
		Description:     description,
		Salary:          jobs.DetectSalary(insightText + "\n" + description),
		RemoteType:      jobs.DetectRemoteType(insightText + " " + location),
		ExperienceLevel: jobs.DetectExperienceLevel(insightText),
		JobType:         jobs.DetectJobType(insightText),
		Skills:          skills.Detect(title + "\n" + description),
		PostedAt:        firstText(doc, postedSelectors),
		EasyApply:       hasEasyApply(doc),
	}
	return posting, nil
}

func hasEasyApply(doc *goquery.Document) bool {
	found := false
	doc.Find(applyButtonSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		label, _ := s.Attr("aria-label")
		if strings.Contains(strings.ToLower(label+" "+s.Text()), "easy apply") {
			found = true
		}
		return !found
	})
	return found
}

func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		if text := collapse(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
