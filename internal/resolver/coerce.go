package resolver

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

var (
	numberRe = regexp.MustCompile(`-?\d[\d,]*(?:\.\d+)?\s*(k\b)?`)
	rangeRe  = regexp.MustCompile(`(\d+)\s*(?:-|to)\s*(\d+)`)
	plusRe   = regexp.MustCompile(`(\d+)\s*\+`)
)

var placeholders = []string{"select an option", "select", "please select", "choose", "choose an option", "none selected"}

type aiReply struct {
	Answer any `mapstructure:"answer"`
}

// Coerce parses raw text into an answer of the question's kind.
func Coerce(raw string, q Question) (Answer, bool) {
	value := strings.Trim(strings.TrimSpace(raw), `"'`)
	if value == "" {
		return Answer{}, false
	}

	switch q.Kind {
	case KindBool:
		b, ok := parseBool(value)
		return Answer{Kind: KindBool, Bool: b}, ok
	case KindNumber:
		n, ok := parseNumber(value)
		return Answer{Kind: KindNumber, Number: n}, ok
	case KindChoice:
		idx := MatchOption(q.Options, value)
		if idx < 0 {
			return Answer{}, false
		}
		return Answer{Kind: KindChoice, Choice: idx, Text: q.Options[idx]}, true
	default:
		return Answer{Kind: KindText, Text: value}, true
	}
}

// unwrapReply accepts a JSON object with an "answer" field, optionally fenced,
// and falls back to the raw text.
func unwrapReply(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		if idx := strings.LastIndex(cleaned, "```"); idx != -1 {
			cleaned = cleaned[:idx]
		}
		cleaned = strings.TrimSpace(cleaned)
	}
	if !strings.HasPrefix(cleaned, "{") {
		return cleaned
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return cleaned
	}
	var reply aiReply
	if err := mapstructure.Decode(data, &reply); err != nil || reply.Answer == nil {
		return ""
	}
	switch v := reply.Answer.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func parseBool(value string) (bool, bool) {
	text := normalizeText(value)
	switch text {
	case "yes", "y", "true", "1", "authorized", "authorised", "willing", "agree", "i agree":
		return true, true
	case "no", "n", "false", "0", "not authorized", "not willing", "disagree":
		return false, true
	}
	first, _, _ := strings.Cut(text, " ")
	switch first {
	case "yes", "true":
		return true, true
	case "no", "false":
		return false, true
	}
	return false, false
}

func parseNumber(value string) (float64, bool) {
	m := numberRe.FindStringSubmatch(strings.ToLower(value))
	if m == nil {
		return 0, false
	}
	digits := strings.TrimSpace(m[0])
	digits = strings.TrimSuffix(digits, "k")
	digits = strings.ReplaceAll(strings.TrimSpace(digits), ",", "")
	n, err := strconv.ParseFloat(digits, 64)
	if err != nil || math.IsNaN(n) {
		return 0, false
	}
	if m[1] != "" {
		n *= 1000
	}
	return n, true
}

func isPlaceholder(option string) bool {
	text := normalizeText(option)
	if text == "" {
		return true
	}
	for _, p := range placeholders {
		if text == p {
			return true
		}
	}
	return false
}

// MatchOption returns the index of the option nearest to value, or -1.
// Exact matches win, then yes/no equivalents, then numeric ranges, then
// containment, then the largest word overlap.
func MatchOption(options []string, value string) int {
	want := normalizeText(value)
	if want == "" {
		return -1
	}

	for i, opt := range options {
		if !isPlaceholder(opt) && normalizeText(opt) == want {
			return i
		}
	}

	if b, ok := parseBool(value); ok {
		for i, opt := range options {
			if isPlaceholder(opt) {
				continue
			}
			if ob, ok := parseBool(opt); ok && ob == b {
				return i
			}
		}
	}

	if n, ok := parseNumber(value); ok {
		if idx := matchNumber(options, n); idx >= 0 {
			return idx
		}
	}

	best, bestLen := -1, 0
	for i, opt := range options {
		text := normalizeText(opt)
		if isPlaceholder(opt) {
			continue
		}
		if strings.Contains(" "+want+" ", " "+text+" ") || strings.Contains(" "+text+" ", " "+want+" ") {
			if len(text) > bestLen {
				best, bestLen = i, len(text)
			}
		}
	}
	if best >= 0 {
		return best
	}

	wantWords := strings.Fields(want)
	bestScore := 0
	for i, opt := range options {
		if isPlaceholder(opt) {
			continue
		}
		score := 0
		for _, w := range strings.Fields(normalizeText(opt)) {
			for _, ww := range wantWords {
				if w == ww {
					score++
				}
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

func matchNumber(options []string, n float64) int {
	for i, opt := range options {
		if isPlaceholder(opt) {
			continue
		}
		if m := rangeRe.FindStringSubmatch(opt); m != nil {
			lo, _ := strconv.ParseFloat(m[1], 64)
			hi, _ := strconv.ParseFloat(m[2], 64)
			if n >= lo && n <= hi {
				return i
			}
			continue
		}
		if m := plusRe.FindStringSubmatch(opt); m != nil {
			lo, _ := strconv.ParseFloat(m[1], 64)
			if n >= lo {
				return i
			}
			continue
		}
		if v, ok := parseNumber(opt); ok && v == n {
			return i
		}
	}
	return -1
}

// firstOption returns a positive option if there is one, else the first real option.
func firstOption(options []string) int {
	first := -1
	for i, opt := range options {
		if isPlaceholder(opt) {
			continue
		}
		if b, ok := parseBool(opt); ok && b {
			return i
		}
		if first < 0 {
			first = i
		}
	}
	return first
}
