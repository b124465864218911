// Package resolver answers application form questions. Answers come from the
// profile's explicit overrides, then the AI service, then static defaults, so a
// caller always gets a type-correct answer.
package resolver

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/AmanKumar-0/linkedin-application-bot/internal/ai"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/profile"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/utils"
)

//go:embed prompt.md
var promptTemplate string

//go:embed cover_letter.md
var coverLetterTemplate string

const (
	defaultTimeout          = 30 * time.Second
	defaultMaxTokens        = 256
	defaultCoverLetterToken = 600
	maxLogLength            = 200
	maxDescriptionLength    = 1500
)

// Config tunes the AI tier.
type Config struct {
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
	// CoverLetterMaxTokens bounds long free-text answers.
	CoverLetterMaxTokens int
}

// Resolver is not safe for concurrent use.
type Resolver struct {
	completer ai.Completer
	cfg       Config
	logger    *zap.Logger
	memo      map[string]Answer
}

// New creates a resolver. A nil completer disables the AI tier.
func New(completer ai.Completer, cfg Config, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.CoverLetterMaxTokens <= 0 {
		cfg.CoverLetterMaxTokens = defaultCoverLetterToken
	}
	return &Resolver{
		completer: completer,
		cfg:       cfg,
		logger:    logger,
		memo:      make(map[string]Answer),
	}
}

// Resolve answers q for profile p. It never fails: AI errors and unparseable
// output fall through to a static default for the question's category.
func (r *Resolver) Resolve(ctx context.Context, q Question, p *profile.Profile) Answer {
	key := Normalize(q.Text)
	log := r.logger.With(zap.String("question_key", key), zap.Stringer("kind", q.Kind))

	memoKey := r.memoKey(key, q)
	if a, ok := r.memo[memoKey]; ok {
		log.Debug("answer reused")
		return a
	}

	a := r.resolve(ctx, key, q, p, log)
	r.memo[memoKey] = a
	log.Debug("question resolved", zap.String("source", string(a.Source)), zap.String("answer", utils.TruncateForLog(a.String(), maxLogLength)))
	return a
}

func (r *Resolver) resolve(ctx context.Context, key string, q Question, p *profile.Profile, log *zap.Logger) Answer {
	if raw, ok := r.override(key, p); ok {
		if a, ok := Coerce(raw, q); ok {
			a.Source = SourceOverride
			return a
		}
		log.Warn("override does not fit the field, asking AI", zap.String("override", raw))
	}

	if r.completer != nil {
		a, err := r.ask(ctx, key, q, p)
		if err == nil {
			return a
		}
		log.Info("AI answer unusable, using default", zap.Error(err))
	}

	return shape(staticDefault(key, q, p), q, SourceDefault)
}

func (r *Resolver) override(key string, p *profile.Profile) (string, bool) {
	if raw, ok := p.Override(key); ok {
		return raw, true
	}
	if cat, _ := category(key); cat != key {
		return p.Override(cat)
	}
	return "", false
}

func (r *Resolver) ask(ctx context.Context, key string, q Question, p *profile.Profile) (Answer, error) {
	opts := ai.Options{MaxTokens: r.cfg.MaxTokens, Temperature: r.cfg.Temperature}
	prompt := r.prompt(q, p)
	if key == KeyCoverLetter {
		opts.MaxTokens = r.cfg.CoverLetterMaxTokens
		prompt = r.coverLetterPrompt(q, p)
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	r.logger.Debug("AI request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, maxLogLength)),
	)
	raw, err := r.completer.Complete(ctx, prompt, opts)
	if err != nil {
		return Answer{}, ai.Classify(ctx, err)
	}

	a, ok := Coerce(unwrapReply(raw), q)
	if !ok {
		return Answer{}, fmt.Errorf("cannot read a %s answer from %q", q.Kind, utils.TruncateForLog(raw, maxLogLength))
	}
	a.Source = SourceAI
	return a, nil
}

func (r *Resolver) prompt(q Question, p *profile.Profile) string {
	expected := q.Kind.String()
	switch q.Kind {
	case KindBool:
		expected = `boolean (true or false)`
	case KindNumber:
		expected = "number (digits only)"
	case KindChoice:
		expected = "one of the options, copied exactly"
	}

	options := "none"
	if len(q.Options) > 0 {
		data, _ := json.Marshal(q.Options)
		options = string(data)
	}

	prompt := strings.ReplaceAll(promptTemplate, "{{PROFILE_JSON}}", profileJSON(p))
	prompt = strings.ReplaceAll(prompt, "{{CV_SUMMARY}}", cvSummary(p))
	prompt = strings.ReplaceAll(prompt, "{{JOB}}", jobContext(q))
	prompt = strings.ReplaceAll(prompt, "{{QUESTION}}", strings.TrimSpace(q.Text))
	prompt = strings.ReplaceAll(prompt, "{{EXPECTED}}", expected)
	prompt = strings.ReplaceAll(prompt, "{{OPTIONS}}", options)
	return prompt
}

func (r *Resolver) coverLetterPrompt(q Question, p *profile.Profile) string {
	description := ""
	if q.Posting != nil {
		description = utils.Truncate(q.Posting.Description, maxDescriptionLength)
	}
	prompt := strings.ReplaceAll(coverLetterTemplate, "{{PROFILE_JSON}}", profileJSON(p))
	prompt = strings.ReplaceAll(prompt, "{{JOB}}", jobContext(q))
	prompt = strings.ReplaceAll(prompt, "{{DESCRIPTION}}", description)
	prompt = strings.ReplaceAll(prompt, "{{QUESTION}}", strings.TrimSpace(q.Text))
	return prompt
}

// memoKey scopes cover letters to their posting; other answers are reused across postings.
func (r *Resolver) memoKey(key string, q Question) string {
	parts := []string{key, q.Kind.String(), strings.Join(q.Options, "\x1f")}
	if key == KeyCoverLetter && q.Posting != nil {
		parts = append(parts, q.Posting.ID)
	}
	return strings.Join(parts, "|")
}

func profileJSON(p *profile.Profile) string {
	data, err := json.MarshalIndent(p.Facts(), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

func cvSummary(p *profile.Profile) string {
	if p == nil || strings.TrimSpace(p.Summary) == "" {
		return "not available"
	}
	return p.Summary
}

func jobContext(q Question) string {
	if q.Posting == nil {
		return "not available"
	}
	return fmt.Sprintf("%s at %s", q.Posting.Title, q.Posting.Company)
}
