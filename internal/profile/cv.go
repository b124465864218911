package profile

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/AmanKumar-0/linkedin-application-bot/internal/skills"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/utils"
)

// ErrParse reports an unsupported or unreadable CV. Callers continue with
// configuration-only facts.
var ErrParse = errors.New("cv parse error")

// CVFacts are the structured facts extracted from a CV.
type CVFacts struct {
	Name             string   `mapstructure:"name" json:"name"`
	Email            string   `mapstructure:"email" json:"email"`
	Phone            string   `mapstructure:"phone" json:"phone"`
	Location         string   `mapstructure:"location" json:"location"`
	CurrentTitle     string   `mapstructure:"current_title" json:"current_title"`
	ExperienceYears  int      `mapstructure:"experience_years" json:"experience_years"`
	NoticePeriodDays int      `mapstructure:"notice_period_days" json:"notice_period_days"`
	Skills           []string `mapstructure:"skills" json:"skills"`
	Education        []string `mapstructure:"education" json:"education"`
	Summary          string   `mapstructure:"summary" json:"summary"`
	// Text is the raw extracted text.
	Text string `mapstructure:"-" json:"-"`
}

const maxSummaryLength = 1500

var (
	emailRe      = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phoneRe      = regexp.MustCompile(`\+?\d[\d\s().-]{7,}\d`)
	experienceRe = regexp.MustCompile(`(?i)(\d{1,2})\+?\s*years?\s*(?:of\s+)?(?:experience|exp)`)
	noticeRe     = regexp.MustCompile(`(?i)notice period[:\s]*(\d+)\s*(days?|weeks?|months?)`)
	educationRe  = regexp.MustCompile(`(?i)\b(bachelor|master|b\.?tech|m\.?tech|b\.?sc|m\.?sc|mba|ph\.?d|diploma|university|college)\b`)
)

// ExtractCV reads a .pdf, .docx, .txt or .md CV and extracts heuristic facts.
func ExtractCV(path string) (*CVFacts, error) {
	var (
		text string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err = pdfText(path)
	case ".docx":
		text, err = docxText(path)
	case ".txt", ".md":
		var data []byte
		data, err = os.ReadFile(path)
		text = string(data)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrParse, filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, path, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: %s: no text found", ErrParse, path)
	}
	return ParseText(text), nil
}

// ParseText extracts heuristic facts from plain CV text.
func ParseText(text string) *CVFacts {
	facts := &CVFacts{Text: text}

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}

	for _, line := range lines {
		if len(line) <= 60 && !strings.ContainsAny(line, "@0123456789:|") {
			facts.Name = line
			break
		}
	}
	facts.Email = emailRe.FindString(text)
	facts.Phone = strings.TrimSpace(phoneRe.FindString(text))

	for _, m := range experienceRe.FindAllStringSubmatch(text, -1) {
		if years, err := strconv.Atoi(m[1]); err == nil && years > facts.ExperienceYears {
			facts.ExperienceYears = years
		}
	}
	if m := noticeRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		switch unit := strings.ToLower(m[2]); {
		case strings.HasPrefix(unit, "week"):
			n *= 7
		case strings.HasPrefix(unit, "month"):
			n *= 30
		}
		facts.NoticePeriodDays = n
	}
	for _, line := range lines {
		if educationRe.MatchString(line) && len(facts.Education) < 3 {
			facts.Education = append(facts.Education, line)
		}
	}

	facts.Skills = skills.Detect(text)
	facts.Summary = utils.Truncate(strings.Join(lines, "\n"), maxSummaryLength)
	return facts
}

func pdfText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// docxText reads the paragraphs of word/document.xml.
func docxText(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", err
	}
	defer archive.Close()

	for _, file := range archive.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()
		return wordText(rc)
	}
	return "", errors.New("word/document.xml not found")
}

func wordText(r io.Reader) (string, error) {
	var (
		b      strings.Builder
		inText bool
	)
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return b.String(), nil
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
}
