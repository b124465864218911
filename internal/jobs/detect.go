package jobs

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	hoursPerYear = 2080
	// minAnnualSalary is the smallest annualised figure taken as pay.
	minAnnualSalary = 10000
	// contextWindow is how far before a lone figure a salary word is looked for.
	contextWindow = 48
)

var (
	dollarRange  = regexp.MustCompile(`(?i)\$\s?(\d{1,3}(?:,\d{3})+|\d+(?:\.\d+)?)\s*(k)?\s*(?:-|–|to)\s*\$?\s?(\d{1,3}(?:,\d{3})+|\d+(?:\.\d+)?)\s*(k)?\s*(/\s*(?:hr|hour|yr|year))?`)
	dollarSingle = regexp.MustCompile(`(?i)\$\s?(\d{1,3}(?:,\d{3})+|\d+(?:\.\d+)?)\s*(k)?\s*(/\s*(?:hr|hour|yr|year))?`)
	lpaRange     = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:(?:-|–|to)\s*(\d+(?:\.\d+)?))?\s*(?:lpa|lakhs? per annum)`)

	salaryWords = regexp.MustCompile(`(?i)\b(?:salary|compensation|base|pay|wage|ctc|per year|per annum|annually)\b`)
	magnitude   = regexp.MustCompile(`(?i)^\s*(?:million|billion|mm|bn|m|b)\b`)

	companySuffixes = []string{
		" private limited", " pvt ltd", " pvt. ltd.", " inc.", " inc", " llc", " ltd.", " ltd",
		" corp.", " corp", " corporation", " company", " co.", " gmbh",
	}

	experienceLevels = []string{"Internship", "Entry level", "Associate", "Mid-Senior level", "Director", "Executive"}
	jobTypes         = []string{"Full-time", "Part-time", "Contract", "Temporary", "Volunteer", "Internship", "Other"}
)

// DetectSalary extracts a salary range from free text, annualising hourly rates.
// A lone dollar figure counts only with a pay period or a salary word just
// before it. Figures below minAnnualSalary once annualised are not pay.
// It returns nil when the text carries no recognisable salary.
func DetectSalary(text string) *SalaryRange {
	for _, loc := range dollarRange.FindAllStringSubmatchIndex(text, -1) {
		m := groups(text, loc)
		if magnitude.MatchString(text[loc[1]:]) {
			continue
		}
		lo, okLo := parseAmount(m[1], m[2])
		hi, okHi := parseAmount(m[3], m[4])
		if !okLo || !okHi {
			continue
		}
		if isHourly(m[5]) {
			lo, hi = lo*hoursPerYear, hi*hoursPerYear
		}
		if lo > hi {
			lo, hi = hi, lo
		}
		if lo < minAnnualSalary {
			continue
		}
		return &SalaryRange{Min: lo, Max: hi, Currency: CurrencyUSD}
	}

	for _, loc := range dollarSingle.FindAllStringSubmatchIndex(text, -1) {
		m := groups(text, loc)
		if magnitude.MatchString(text[loc[1]:]) {
			continue
		}
		if m[3] == "" && !salaryWords.MatchString(text[max(0, loc[0]-contextWindow):loc[0]]) {
			continue
		}
		v, ok := parseAmount(m[1], m[2])
		if !ok {
			continue
		}
		if isHourly(m[3]) {
			v *= hoursPerYear
		}
		if v < minAnnualSalary {
			continue
		}
		return &SalaryRange{Min: v, Max: v, Currency: CurrencyUSD}
	}

	if m := lpaRange.FindStringSubmatch(text); m != nil {
		lo, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return nil
		}
		hi := lo
		if m[2] != "" {
			if v, err := strconv.ParseFloat(m[2], 64); err == nil {
				hi = v
			}
		}
		return &SalaryRange{Min: int(lo * 100000), Max: int(hi * 100000), Currency: CurrencyINR}
	}

	return nil
}

// groups turns submatch offsets into strings; unmatched groups are empty.
func groups(text string, loc []int) []string {
	out := make([]string, len(loc)/2)
	for i := range out {
		if loc[2*i] >= 0 {
			out[i] = text[loc[2*i]:loc[2*i+1]]
		}
	}
	return out
}

func parseAmount(number, thousands string) (int, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(number, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	if thousands != "" {
		v *= 1000
	}
	return int(v), v > 0
}

func isHourly(suffix string) bool {
	s := strings.ToLower(suffix)
	return strings.Contains(s, "hr") || strings.Contains(s, "hour")
}

// DetectRemoteType finds the workplace type mentioned in text.
func DetectRemoteType(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "hybrid"):
		return RemoteHybrid
	case strings.Contains(lower, "remote"):
		return RemoteRemote
	case strings.Contains(lower, "on-site"), strings.Contains(lower, "onsite"), strings.Contains(lower, "on site"):
		return RemoteOnSite
	default:
		return ""
	}
}

// DetectExperienceLevel finds one of the platform's seniority labels in text.
func DetectExperienceLevel(text string) string {
	return firstLabel(text, experienceLevels)
}

// DetectJobType finds one of the platform's employment type labels in text.
func DetectJobType(text string) string {
	return firstLabel(text, jobTypes)
}

func firstLabel(text string, labels []string) string {
	lower := strings.ToLower(text)
	for _, label := range labels {
		if strings.Contains(lower, strings.ToLower(label)) {
			return label
		}
	}
	return ""
}

// CleanCompany lowercases a company name and strips legal suffixes.
func CleanCompany(name string) string {
	cleaned := strings.ToLower(strings.Join(strings.Fields(name), " "))
	for changed := true; changed; {
		changed = false
		for _, suffix := range companySuffixes {
			if strings.HasSuffix(cleaned, suffix) {
				cleaned = strings.TrimSpace(strings.TrimSuffix(cleaned, suffix))
				cleaned = strings.TrimSuffix(cleaned, ",")
				changed = true
			}
		}
	}
	return cleaned
}

// DescriptionText converts a description HTML fragment into plain text with one
// line per block element.
func DescriptionText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	doc.Find("script, style").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, li, div, h1, h2, h3, h4, ul, ol").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	lines := strings.Split(doc.Text(), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
