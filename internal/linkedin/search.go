package linkedin

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
)

const searchPath = "/jobs/search/"

var (
	datePostedCodes = map[string]string{
		"Past 24 hours": "r86400",
		"Past Week":     "r604800",
		"Past Month":    "r2592000",
	}
	experienceCodes = map[string]string{
		"Internship": "1", "Entry level": "2", "Associate": "3",
		"Mid-Senior level": "4", "Director": "5", "Executive": "6",
	}
	jobTypeCodes = map[string]string{
		"Full-time": "F", "Part-time": "P", "Contract": "C", "Temporary": "T",
		"Volunteer": "V", "Internship": "I", "Other": "O",
	}
	remoteCodes = map[string]string{"On-site": "1", "Remote": "2", "Hybrid": "3"}
	salaryCodes = map[string]string{
		"$40,000+": "1", "$60,000+": "2", "$80,000+": "3", "$100,000+": "4", "$120,000+": "5",
		"$140,000+": "6", "$160,000+": "7", "$180,000+": "8", "$200,000+": "9",
	}
	sortCodes = map[string]string{"Recent": "DD", "Relevant": "R"}
)

// SearchParams describes the job searches to run. The liparam tag names the
// query parameter; fields without it are not part of the query.
type SearchParams struct {
	Keywords         []string `mapstructure:"keywords" yaml:"keywords"`
	Locations        []string `mapstructure:"locations" yaml:"locations"`
	DatePosted       string   `mapstructure:"date-posted" yaml:"date-posted" liparam:"f_TPR"`
	ExperienceLevels []string `mapstructure:"experience-levels" yaml:"experience-levels" liparam:"f_E"`
	JobTypes         []string `mapstructure:"job-types" yaml:"job-types" liparam:"f_JT"`
	RemoteTypes      []string `mapstructure:"remote-types" yaml:"remote-types" liparam:"f_WT"`
	Salary           string   `mapstructure:"salary" yaml:"salary" liparam:"f_SB2"`
	SortBy           string   `mapstructure:"sort-by" yaml:"sort-by" liparam:"sortBy"`
	MaxKeywords      int      `mapstructure:"max-keywords" yaml:"max-keywords"`
	MaxLocations     int      `mapstructure:"max-locations" yaml:"max-locations"`
	MaxPages         int      `mapstructure:"max-pages" yaml:"max-pages"`
	MaxPostings      int      `mapstructure:"max-postings" yaml:"max-postings"`
}

var codeTables = map[string]map[string]string{
	"f_TPR":  datePostedCodes,
	"f_E":    experienceCodes,
	"f_JT":   jobTypeCodes,
	"f_WT":   remoteCodes,
	"f_SB2":  salaryCodes,
	"sortBy": sortCodes,
}

// SearchURLs returns one Easy Apply search URL per keyword and location pair.
func SearchURLs(baseURL string, params *SearchParams) []string {
	if params == nil {
		return nil
	}

	keywords := limit(params.Keywords, params.MaxKeywords)
	locations := limit(params.Locations, params.MaxLocations)
	if len(locations) == 0 {
		locations = []string{""}
	}

	filters := buildParams(params)
	urls := make([]string, 0, len(keywords)*len(locations))
	for _, keyword := range keywords {
		for _, location := range locations {
			q := url.Values{}
			for k, v := range filters {
				q[k] = v
			}
			q.Set("keywords", keyword)
			if location != "" {
				q.Set("location", location)
			}
			q.Set("f_AL", "true")
			urls = append(urls, fmt.Sprintf("%s%s?%s", strings.TrimRight(baseURL, "/"), searchPath, q.Encode()))
		}
	}
	return urls
}

// PageURL returns the search URL of the given zero-based result page.
func PageURL(searchURL string, page, perPage int) string {
	if page <= 0 {
		return searchURL
	}
	u, err := url.Parse(searchURL)
	if err != nil {
		return searchURL
	}
	q := u.Query()
	q.Set("start", strconv.Itoa(page*perPage))
	u.RawQuery = q.Encode()
	return u.String()
}

func buildParams(params *SearchParams) url.Values {
	q := url.Values{}
	value := reflect.ValueOf(params).Elem()
	for _, field := range reflect.VisibleFields(value.Type()) {
		key := field.Tag.Get("liparam")
		if key == "" {
			continue
		}
		codes := codeTables[key]

		var labels []string
		switch v := value.FieldByIndex(field.Index).Interface().(type) {
		case string:
			labels = []string{v}
		case []string:
			labels = v
		}

		var encoded []string
		for _, label := range labels {
			if code, ok := codes[strings.TrimSpace(label)]; ok {
				encoded = append(encoded, code)
			}
		}
		if len(encoded) > 0 {
			q.Set(key, strings.Join(encoded, ","))
		}
	}
	return q
}

func limit(items []string, n int) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
