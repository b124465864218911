package resolver

import (
	"regexp"
	"strings"

	"github.com/AmanKumar-0/linkedin-application-bot/internal/skills"
)

// Canonical question keys. Profile overrides are keyed by these.
const (
	KeyRequireSponsorship = "require_sponsorship"
	KeyAuthorizedToWork   = "authorized_to_work"
	KeyYearsOfExperience  = "years_of_experience"
	KeyWillingToRelocate  = "willing_to_relocate"
	KeyNoticePeriod       = "notice_period"
	KeyExpectedSalary     = "expected_salary"
	KeyCurrentSalary      = "current_salary"
	KeyCoverLetter        = "cover_letter"
	KeyEducation          = "education"
	KeyEnglish            = "english_proficiency"
	KeyRemoteWork         = "remote_work"
	KeyTravel             = "travel"
	KeyPhone              = "phone"
	KeyEmail              = "email"
	KeyFirstName          = "first_name"
	KeyLastName           = "last_name"
	KeyFullName           = "full_name"
	KeyCity               = "city"
	KeyLinkedIn           = "linkedin_profile"
	KeyWebsite            = "website"
)

// synonyms are checked in order; the first key with a matching phrase wins.
var synonyms = []struct {
	key     string
	phrases []string
}{
	{KeyRequireSponsorship, []string{"sponsor", "sponsorship", "h1b", "h 1b", "visa"}},
	{KeyAuthorizedToWork, []string{"authorized to work", "authorised to work", "legally authorized", "legally authorised", "eligible to work", "right to work", "work authorization", "work authorisation", "work permit"}},
	{KeyYearsOfExperience, []string{"years of experience", "years experience", "experience years", "years of work experience", "years of professional experience", "how many years", "experience in years"}},
	{KeyWillingToRelocate, []string{"relocate", "relocating", "relocation", "willing to move"}},
	{KeyNoticePeriod, []string{"notice period", "notice", "when can you start", "earliest start", "available to start", "start date"}},
	{KeyExpectedSalary, []string{"expected salary", "salary expectation", "salary expectations", "desired salary", "expected compensation", "expected ctc", "desired pay"}},
	{KeyCurrentSalary, []string{"current salary", "current ctc", "current compensation"}},
	{KeyExpectedSalary, []string{"salary", "compensation", "ctc"}},
	{KeyCoverLetter, []string{"cover letter", "why do you want", "why are you interested", "tell us about yourself", "message to the hiring manager", "why should we hire you"}},
	{KeyEducation, []string{"bachelor", "bachelors", "degree", "master", "masters", "phd"}},
	{KeyEnglish, []string{"english"}},
	{KeyRemoteWork, []string{"remote", "remotely", "work from home", "hybrid"}},
	{KeyTravel, []string{"travel"}},
	{KeyPhone, []string{"phone", "mobile", "phone number", "mobile number"}},
	{KeyEmail, []string{"email", "e mail", "email address"}},
	{KeyFirstName, []string{"first name", "given name"}},
	{KeyLastName, []string{"last name", "surname", "family name"}},
	{KeyFullName, []string{"full name", "your name", "legal name"}},
	{KeyCity, []string{"city", "current location", "location"}},
	{KeyLinkedIn, []string{"linkedin"}},
	{KeyWebsite, []string{"website", "portfolio", "github"}},
}

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// normalizeText lowercases, strips punctuation and collapses spaces.
func normalizeText(s string) string {
	return strings.TrimSpace(nonWord.ReplaceAllString(strings.ToLower(s), " "))
}

// Normalize maps question text onto a canonical key. Experience questions about
// a specific skill become years_of_experience_<skill>. Unknown questions keep
// their normalized text, joined by underscores.
func Normalize(question string) string {
	text := normalizeText(question)
	if text == "" {
		return ""
	}
	padded := " " + text + " "
	for _, s := range synonyms {
		for _, phrase := range s.phrases {
			if !strings.Contains(padded, " "+phrase+" ") {
				continue
			}
			if s.key == KeyYearsOfExperience {
				if found := skills.Detect(question); len(found) > 0 {
					return s.key + "_" + strings.ReplaceAll(skills.Normalize(found[0]), " ", "_")
				}
			}
			return s.key
		}
	}
	if text == "name" {
		return KeyFullName
	}
	return strings.ReplaceAll(text, " ", "_")
}

// category strips the skill suffix from experience keys.
func category(key string) (string, string) {
	if rest, ok := strings.CutPrefix(key, KeyYearsOfExperience+"_"); ok {
		return KeyYearsOfExperience, strings.ReplaceAll(rest, "_", " ")
	}
	return key, ""
}
