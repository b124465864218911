package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/AmanKumar-0/linkedin-application-bot/internal/ai"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/browser"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/engine"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/filtering"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/form"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/linkedin"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/pacing"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/profile"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/report"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/resolver"
)

const (
	providerNone   = "none"
	providerGemini = "gemini"
	providerOllama = "ollama"

	redactedValue = "********"
)

type Config struct {
	LinkedIn LinkedInConfig        `mapstructure:"linkedin" yaml:"linkedin"`
	Browser  BrowserConfig         `mapstructure:"browser" yaml:"browser"`
	Search   linkedin.SearchParams `mapstructure:"search" yaml:"search"`
	Filters  filtering.Criteria    `mapstructure:"filters" yaml:"filters"`
	Profile  profile.Config        `mapstructure:"profile" yaml:"profile"`
	Apply    ApplyConfig           `mapstructure:"apply" yaml:"apply"`
	AI       AIConfig              `mapstructure:"ai" yaml:"ai"`
	Ledger   LedgerConfig          `mapstructure:"ledger" yaml:"ledger"`
	Report   ReportConfig          `mapstructure:"report" yaml:"report"`
}

type LinkedInConfig struct {
	Email        string `mapstructure:"email" yaml:"email" validate:"omitempty,email"`
	Password     string `mapstructure:"password" yaml:"password,omitempty"`
	PasswordFile string `mapstructure:"password-file" yaml:"password-file,omitempty"`
	BaseURL      string `mapstructure:"base-url" yaml:"base-url,omitempty" validate:"omitempty,url"`
}

type BrowserConfig struct {
	Headless         bool          `mapstructure:"headless" yaml:"headless"`
	UserDataDir      string        `mapstructure:"user-data-dir" yaml:"user-data-dir"`
	UserAgent        string        `mapstructure:"user-agent" yaml:"user-agent,omitempty"`
	WindowWidth      int           `mapstructure:"window-width" yaml:"window-width" validate:"gte=0"`
	WindowHeight     int           `mapstructure:"window-height" yaml:"window-height" validate:"gte=0"`
	ActionTimeout    time.Duration `mapstructure:"action-timeout" yaml:"action-timeout" validate:"gte=0"`
	PageLoadTimeout  time.Duration `mapstructure:"page-load-timeout" yaml:"page-load-timeout" validate:"gte=0"`
	ActionsPerMinute int           `mapstructure:"actions-per-minute" yaml:"actions-per-minute" validate:"gte=0"`
	// Settle is the pause after navigation and clicks.
	Settle time.Duration `mapstructure:"settle" yaml:"settle" validate:"gte=0"`
}

type ApplyConfig struct {
	pacing.Config `mapstructure:",squash" yaml:",inline"`

	MaxSteps        int              `mapstructure:"max-steps" yaml:"max-steps" validate:"gte=1,lte=50"`
	CheckpointEvery int              `mapstructure:"checkpoint-every" yaml:"checkpoint-every" validate:"gte=1"`
	FormTimeout     time.Duration    `mapstructure:"form-timeout" yaml:"form-timeout" validate:"gte=0"`
	FollowCompanies bool             `mapstructure:"follow-companies" yaml:"follow-companies"`
	Retry           form.RetryPolicy `mapstructure:"retry" yaml:"retry"`
}

type AIConfig struct {
	Provider    string        `mapstructure:"provider" yaml:"provider" validate:"omitempty,oneof=none gemini ollama"`
	AnalyzeCV   bool          `mapstructure:"analyze-cv" yaml:"analyze-cv"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gte=0"`
	MaxTokens   int           `mapstructure:"max-tokens" yaml:"max-tokens" validate:"gte=0"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature" validate:"gte=0,lte=2"`
	Gemini      GeminiConfig  `mapstructure:"gemini" yaml:"gemini"`
	Ollama      OllamaConfig  `mapstructure:"ollama" yaml:"ollama"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api-key" yaml:"api-key,omitempty"`
	APIKeyFile string `mapstructure:"api-key-file" yaml:"api-key-file,omitempty"`
	Model      string `mapstructure:"model" yaml:"model"`
	MaxRetries int    `mapstructure:"max-retries" yaml:"max-retries" validate:"gte=0"`
}

type OllamaConfig struct {
	URL   string `mapstructure:"url" yaml:"url" validate:"omitempty,url"`
	Model string `mapstructure:"model" yaml:"model"`
}

type LedgerConfig struct {
	Path string `mapstructure:"path" yaml:"path" validate:"required"`
}

type ReportConfig struct {
	Dir     string   `mapstructure:"dir" yaml:"dir"`
	Formats []string `mapstructure:"formats" yaml:"formats" validate:"dive,oneof=csv json"`
}

// defaultConfig holds every default. Slices stay empty so decoding never merges
// into them.
func defaultConfig() Config {
	return Config{
		Browser: BrowserConfig{
			UserDataDir:      "data/browser",
			WindowWidth:      1280,
			WindowHeight:     900,
			ActionTimeout:    10 * time.Second,
			PageLoadTimeout:  30 * time.Second,
			ActionsPerMinute: 30,
			Settle:           2 * time.Second,
		},
		Search: linkedin.SearchParams{
			DatePosted:   "Past Week",
			SortBy:       "Recent",
			MaxKeywords:  5,
			MaxLocations: 3,
			MaxPages:     10,
			MaxPostings:  100,
		},
		Apply: ApplyConfig{
			Config: pacing.Config{
				DailyCap: 50,
				DelayMin: 30 * time.Second,
				DelayMax: 60 * time.Second,
			},
			MaxSteps:        10,
			CheckpointEvery: 10,
			FormTimeout:     5 * time.Minute,
			Retry:           form.DefaultRetryPolicy(),
		},
		AI: AIConfig{
			Provider:    providerNone,
			Timeout:     30 * time.Second,
			MaxTokens:   256,
			Temperature: 0.1,
			Gemini:      GeminiConfig{Model: "gemini-2.5-flash", MaxRetries: 3},
			Ollama:      OllamaConfig{URL: "http://localhost:11434", Model: "qwen2.5:7b"},
		},
		Ledger: LedgerConfig{Path: "data/ledger.db"},
		Report: ReportConfig{Dir: "reports"},
	}
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

// decodeConfig overlays the settings of v on the defaults and validates the result.
func decodeConfig(v *viper.Viper) (*Config, error) {
	config := defaultConfig()
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if len(config.Report.Formats) == 0 {
		config.Report.Formats = []string{report.FormatCSV, report.FormatJSON}
	}
	config.AI.Provider = strings.ToLower(strings.TrimSpace(config.AI.Provider))
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate runs the struct tag rules and the cross-field checks.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed on %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	var errs []error
	if err := c.Filters.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("filters: %w", err))
	}
	if err := c.Apply.Config.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("apply: %w", err))
	}
	if c.Apply.Retry.MaxBackoff > 0 && c.Apply.Retry.MaxBackoff < c.Apply.Retry.InitialBackoff {
		errs = append(errs, errors.New("apply.retry: max-backoff is less than initial-backoff"))
	}
	if c.AI.AnalyzeCV && (c.AI.Provider == "" || c.AI.Provider == providerNone) {
		errs = append(errs, errors.New("ai.analyze-cv needs an ai provider"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// runOverrides are command line values that replace config settings for one run.
type runOverrides struct {
	maxApps   *int
	keywords  string
	locations string
}

// apply overlays o on config and checks what searching needs.
func (o runOverrides) apply(config *Config) error {
	if o.maxApps != nil {
		if *o.maxApps < 0 {
			return fmt.Errorf("--max-apps must not be negative, got %d", *o.maxApps)
		}
		config.Apply.RunCap = *o.maxApps
	}
	if o.keywords != "" {
		config.Search.Keywords = splitList(o.keywords)
	}
	if o.locations != "" {
		config.Search.Locations = splitList(o.locations)
	}
	if len(nonEmpty(config.Search.Keywords)) == 0 {
		return errors.New("invalid config: search.keywords must contain at least one keyword (or pass --keywords)")
	}
	return nil
}

// redacted returns a copy safe to log.
func (c Config) redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return redactedValue
	}
	c.LinkedIn.Password = mask(c.LinkedIn.Password)
	c.AI.Gemini.APIKey = mask(c.AI.Gemini.APIKey)
	return c
}

func (c *Config) browserOptions() browser.Options {
	return browser.Options{
		Headless:         c.Browser.Headless,
		UserDataDir:      c.Browser.UserDataDir,
		UserAgent:        c.Browser.UserAgent,
		WindowWidth:      c.Browser.WindowWidth,
		WindowHeight:     c.Browser.WindowHeight,
		ActionTimeout:    c.Browser.ActionTimeout,
		PageLoadTimeout:  c.Browser.PageLoadTimeout,
		ActionsPerMinute: c.Browser.ActionsPerMinute,
	}
}

func (c *Config) linkedinOptions() linkedin.Options {
	settle := c.Browser.Settle
	if settle == 0 {
		// linkedin.New treats zero as the default pause.
		settle = -1
	}
	return linkedin.Options{
		BaseURL:         c.LinkedIn.BaseURL,
		Headless:        c.Browser.Headless,
		FollowCompanies: c.Apply.FollowCompanies,
		Settle:          settle,
	}
}

func (c *Config) formConfig() form.Config {
	return form.Config{MaxSteps: c.Apply.MaxSteps, Retry: c.Apply.Retry}
}

func (c *Config) engineConfig(dryRun bool) engine.Config {
	return engine.Config{
		CheckpointEvery: c.Apply.CheckpointEvery,
		FormTimeout:     c.Apply.FormTimeout,
		DryRun:          dryRun,
	}
}

func (c *Config) resolverConfig() resolver.Config {
	return resolver.Config{
		Timeout:     c.AI.Timeout,
		MaxTokens:   c.AI.MaxTokens,
		Temperature: c.AI.Temperature,
	}
}

func (c *Config) aiOptions() ai.Options {
	return ai.Options{MaxTokens: c.AI.MaxTokens, Temperature: c.AI.Temperature}
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// splitList parses a comma separated flag value.
func splitList(value string) []string {
	return nonEmpty(strings.Split(value, ","))
}
