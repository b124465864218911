package profile

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/AmanKumar-0/linkedin-application-bot/internal/ai"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/utils"
)

//go:embed analyze.md
var analyzePrompt string

const maxCVPromptLength = 6000

// Analyzer asks the AI service for structured CV facts.
type Analyzer struct {
	completer ai.Completer
	opts      ai.Options
	logger    *zap.Logger
}

func NewAnalyzer(completer ai.Completer, opts ai.Options, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{completer: completer, opts: opts, logger: logger}
}

// Analyze returns the AI facts merged over the heuristic ones. On any error the
// heuristic facts are returned with the error.
func (a *Analyzer) Analyze(ctx context.Context, facts *CVFacts) (*CVFacts, error) {
	if facts == nil {
		return nil, fmt.Errorf("cv facts are required")
	}
	if a == nil || a.completer == nil {
		return facts, nil
	}

	text := utils.Truncate(facts.Text, maxCVPromptLength)
	prompt := strings.ReplaceAll(analyzePrompt, "{{CV_TEXT}}", text)

	a.logger.Debug("cv analysis request", zap.Int("prompt_length", utf8.RuneCountInString(prompt)))
	raw, err := a.completer.Complete(ctx, prompt, a.opts)
	if err != nil {
		return facts, fmt.Errorf("analyze cv: %w", err)
	}
	a.logger.Debug("cv analysis response", zap.String("response_preview", utils.TruncateForLog(raw, 200)))

	parsed, err := decodeFacts(raw)
	if err != nil {
		return facts, err
	}
	return merge(facts, parsed), nil
}

func decodeFacts(raw string) (*CVFacts, error) {
	cleaned := strings.TrimSpace(raw)
	if start, end := strings.Index(cleaned, "{"), strings.LastIndex(cleaned, "}"); start >= 0 && end > start {
		cleaned = cleaned[start : end+1]
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse cv analysis: %w", err)
	}

	var facts CVFacts
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &facts,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(data); err != nil {
		return nil, fmt.Errorf("decode cv analysis: %w", err)
	}
	return &facts, nil
}

// merge prefers AI values and keeps heuristic ones where the AI returned nothing.
func merge(base, extracted *CVFacts) *CVFacts {
	out := *base
	out.Name = firstNonEmpty(extracted.Name, base.Name)
	out.Email = firstNonEmpty(extracted.Email, base.Email)
	out.Phone = firstNonEmpty(extracted.Phone, base.Phone)
	out.Location = firstNonEmpty(extracted.Location, base.Location)
	out.CurrentTitle = firstNonEmpty(extracted.CurrentTitle, base.CurrentTitle)
	out.Summary = firstNonEmpty(extracted.Summary, base.Summary)
	if extracted.ExperienceYears > 0 {
		out.ExperienceYears = extracted.ExperienceYears
	}
	if extracted.NoticePeriodDays > 0 {
		out.NoticePeriodDays = extracted.NoticePeriodDays
	}
	out.Skills = mergeSkills(extracted.Skills, base.Skills)
	if len(extracted.Education) > 0 {
		out.Education = extracted.Education
	}
	return &out
}
