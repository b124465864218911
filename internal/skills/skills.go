// Package skills detects technology keywords in free text.
package skills

import (
	"regexp"
	"sort"
	"strings"
)

// Vocabulary is the built-in list of skills looked for in CVs and posting descriptions.
var Vocabulary = []string{
	"Python", "Java", "JavaScript", "TypeScript", "Golang", "Rust", "C++", "C#", ".NET",
	"PHP", "Ruby", "Scala", "Kotlin", "Objective-C", "Perl",
	"React", "Angular", "Vue", "Next.js", "Node.js", "Express.js", "Django", "Flask",
	"FastAPI", "Spring Boot", "Ruby on Rails", "Laravel", "GraphQL", "gRPC",
	"SQL", "PostgreSQL", "MySQL", "SQLite", "MongoDB", "Redis", "Cassandra", "Elasticsearch",
	"Kafka", "RabbitMQ", "Spark", "Hadoop", "Airflow", "Snowflake", "BigQuery",
	"AWS", "Azure", "GCP", "Docker", "Kubernetes", "Terraform", "Ansible", "Helm",
	"Jenkins", "GitHub Actions", "CI/CD", "Git", "Linux", "Bash",
	"Microservices", "Machine Learning", "Deep Learning", "TensorFlow", "PyTorch",
	"Pandas", "NumPy", "LLM", "NLP", "Computer Vision", "HTML", "CSS", "Sass",
	"Tailwind", "Redux", "Jest", "Selenium", "Cypress", "Figma",
}

// Matcher finds skills from a fixed vocabulary using symbol-aware word boundaries,
// so "Java" does not match "JavaScript" and "C#" still matches.
type Matcher struct {
	names    []string
	patterns []*regexp.Regexp
}

var defaultMatcher = NewMatcher(Vocabulary)

// NewMatcher compiles a matcher for the given vocabulary. Duplicates and blanks are dropped.
func NewMatcher(vocabulary []string) *Matcher {
	m := &Matcher{}
	seen := make(map[string]struct{}, len(vocabulary))
	for _, name := range vocabulary {
		name = strings.TrimSpace(name)
		key := Normalize(name)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		m.names = append(m.names, name)
		m.patterns = append(m.patterns, regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}+#.])`+regexp.QuoteMeta(name)+`(?:$|[^\p{L}\p{N}+#])`))
	}
	return m
}

// Find returns the vocabulary entries present in text, sorted and deduplicated.
func (m *Matcher) Find(text string) []string {
	if m == nil || strings.TrimSpace(text) == "" {
		return nil
	}
	var found []string
	for i, pattern := range m.patterns {
		if pattern.MatchString(text) {
			found = append(found, m.names[i])
		}
	}
	sort.Strings(found)
	return found
}

// Detect finds skills from the built-in vocabulary plus any extra terms.
func Detect(text string, extra ...string) []string {
	if len(extra) == 0 {
		return defaultMatcher.Find(text)
	}
	return NewMatcher(append(append([]string{}, Vocabulary...), extra...)).Find(text)
}

// Normalize lowercases and trims a skill name for comparisons.
func Normalize(skill string) string {
	return strings.ToLower(strings.Join(strings.Fields(skill), " "))
}

// Contains reports whether set holds skill, ignoring case and spacing.
func Contains(set []string, skill string) bool {
	want := Normalize(skill)
	if want == "" {
		return false
	}
	for _, s := range set {
		if Normalize(s) == want {
			return true
		}
	}
	return false
}

// Intersect returns the entries of want that are present in have.
func Intersect(have, want []string) []string {
	var out []string
	for _, w := range want {
		if Contains(have, w) {
			out = append(out, w)
		}
	}
	return out
}
