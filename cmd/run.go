package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/AmanKumar-0/linkedin-application-bot/internal/ai"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/ai/gemini"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/ai/ollama"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/browser"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/engine"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/filtering"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/form"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/ledger"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/linkedin"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/logger"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/pacing"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/profile"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/report"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/resolver"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/secrets"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"

	cvAnalysisMaxTokens = 1024
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "Proceed?",
	Items: []string{PromptYes, PromptNo},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Search for postings and apply to the matching ones",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation before applying")
	runCmd.Flags().Bool("dry-run", false, "evaluate postings without applying or recording anything")
	runCmd.Flags().Int("max-apps", 0, "maximum applications in this run (overrides apply.run-cap)")
	runCmd.Flags().String("keywords", "", "comma separated search keywords (overrides search.keywords)")
	runCmd.Flags().String("locations", "", "comma separated search locations (overrides search.locations)")
}

// run is the main command for the cli.
func run(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		return err
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if err := applyRunFlags(cmd, config); err != nil {
		return err
	}

	logger.Info("starting the "+app, zap.String("version", version), zap.Bool("dry_run", dryRun))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config.redacted(), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	led, err := ledger.Open(ctx, config.Ledger.Path, logger.Named("ledger"))
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}
	defer led.Close()

	pacer := pacing.New(config.Apply.Config)
	today, err := led.AttemptsSince(ctx, pacer.StartOfDay())
	if err != nil {
		return fmt.Errorf("counting today's attempts: %w", err)
	}
	pacer.Seed(today)
	logger.Info("application caps",
		zap.Int("daily_cap", config.Apply.DailyCap),
		zap.Int("run_cap", config.Apply.RunCap),
		zap.Int("attempted_today", today),
		zap.Int("known_postings", led.Len()),
	)

	completer, err := newCompleter(ctx, &config.AI, logger)
	if err != nil {
		logger.Warn("continuing without ai answers", zap.Error(err))
		completer = nil
	}

	applicant := buildProfile(ctx, config, completer, logger)

	if auto, _ := cmd.Flags().GetBool("yes"); !auto {
		if err := confirm(config, dryRun); err != nil {
			if errors.Is(err, errExit) {
				logger.Info("exiting", zap.String("reason", "got no from prompt"))
				return nil
			}
			return err
		}
	}

	// The browser outlives user cancellation so the running form can finish.
	chrome, err := browser.NewChrome(context.Background(), config.browserOptions(), logger.Named("browser"))
	if err != nil {
		return err
	}
	defer chrome.Close()

	client := linkedin.New(chrome, config.linkedinOptions(), logger.Named("linkedin"))
	client.Challenge = waitForChallenge

	if err := login(ctx, client, config); err != nil {
		return err
	}

	answers := resolver.New(completer, config.resolverConfig(), logger.Named("resolver"))
	bot := engine.New(config.engineConfig(dryRun), engine.Deps{
		Source:  client.Search(&config.Search, led.HasRecord),
		Filter:  filtering.New(config.Filters, logger.Named("filtering")),
		Applier: form.New(client.EasyApply(), answers, config.formConfig(), logger.Named("form")),
		Ledger:  led,
		Pacer:   pacer,
		Profile: applicant,
	}, logger)

	state, runErr := bot.Run(ctx)

	if !dryRun {
		exportReport(context.WithoutCancel(ctx), led, config, logger)
	}

	if runErr != nil {
		logger.Error("session failed", zap.Error(runErr))
		return runErr
	}
	if state.StopReason == engine.StopRateCap {
		logger.Info("exiting", zap.String("reason", "application cap reached"), zap.String("cap", state.CapReason))
		return fmt.Errorf("%w: %s", ErrRateCap, state.CapReason)
	}
	logger.Info("exiting", zap.String("reason", string(state.StopReason)))
	return nil
}

func newLogger() (*zap.Logger, error) {
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Printf("creating a logger: %s", err)
		return nil, err
	}
	return l, nil
}

// applyRunFlags overlays the search and cap flags of run and search on config.
func applyRunFlags(cmd *cobra.Command, config *Config) error {
	var o runOverrides
	if cmd.Flags().Changed("max-apps") {
		maxApps, _ := cmd.Flags().GetInt("max-apps")
		o.maxApps = &maxApps
	}
	o.keywords, _ = cmd.Flags().GetString("keywords")
	o.locations, _ = cmd.Flags().GetString("locations")
	return o.apply(config)
}

func confirm(config *Config, dryRun bool) error {
	mode := "apply"
	if dryRun {
		mode = "dry run"
	}
	prompt.Label = fmt.Sprintf("Start (%s) for %q in %q, daily cap %d, run cap %d. Proceed?",
		mode,
		strings.Join(config.Search.Keywords, ", "),
		strings.Join(config.Search.Locations, ", "),
		config.Apply.DailyCap,
		config.Apply.RunCap,
	)
	_, action, err := prompt.Run()
	if err != nil {
		return err
	}
	if action != PromptYes {
		return errExit
	}
	return nil
}

func login(ctx context.Context, client *linkedin.Client, config *Config) error {
	// A missing password is fine while the stored session is still valid.
	password, err := secrets.Load(secrets.Source{
		Name:    "linkedin password",
		Value:   config.LinkedIn.Password,
		File:    config.LinkedIn.PasswordFile,
		Account: secrets.AccountLinkedInPassword,
	})
	if err != nil {
		password = ""
	}
	if err := client.Login(ctx, config.LinkedIn.Email, password); err != nil {
		return fmt.Errorf("%w (set LINKEDIN_EMAIL and LINKEDIN_PASSWORD or run `%s secrets set %s`)",
			err, app, secrets.AccountLinkedInPassword)
	}
	return nil
}

func waitForChallenge(_ context.Context, url string) error {
	pause := promptui.Prompt{
		Label:     fmt.Sprintf("Security check at %s. Complete it in the browser and press ENTER", url),
		AllowEdit: false,
	}
	_, err := pause.Run()
	return err
}

func newCompleter(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.Completer, error) {
	switch cfg.Provider {
	case "", providerNone:
		return nil, nil
	case providerOllama:
		return ollama.New(cfg.Ollama.URL, cfg.Ollama.Model,
			logger.WithCommonFields(log, providerOllama, cfg.Ollama.Model)), nil
	case providerGemini:
		apiKey, err := secrets.Load(secrets.Source{
			Name:    "gemini api key",
			Value:   cfg.Gemini.APIKey,
			File:    cfg.Gemini.APIKeyFile,
			Account: secrets.AccountGeminiAPIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set GEMINI_API_KEY, ai.gemini.api-key-file or run `%s secrets set %s`)",
				err, app, secrets.AccountGeminiAPIKey)
		}
		genLogger := logger.WithCommonFields(log, providerGemini, cfg.Gemini.Model).
			With(zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries))
		return gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
}

// buildProfile merges the configured profile with facts read from the CV.
// CV problems are logged and never stop the run.
func buildProfile(ctx context.Context, config *Config, completer ai.Completer, log *zap.Logger) *profile.Profile {
	var facts *profile.CVFacts
	if path := config.Profile.Resume; path != "" {
		extracted, err := profile.ExtractCV(path)
		if err != nil {
			log.Warn("reading cv", zap.String("path", path), zap.Error(err))
		} else {
			facts = extracted
		}
	}

	if facts != nil && config.AI.AnalyzeCV && completer != nil {
		opts := config.aiOptions()
		opts.MaxTokens = max(opts.MaxTokens, cvAnalysisMaxTokens)
		analyzed, err := profile.NewAnalyzer(completer, opts, log.Named("profile")).Analyze(ctx, facts)
		if err != nil {
			log.Warn("ai cv analysis failed, using heuristic facts", zap.Error(err))
		}
		facts = analyzed
	}

	p := profile.Build(config.Profile, facts)
	log.Info("profile ready",
		zap.String("name", p.FullName),
		zap.Int("years_of_experience", p.YearsOfExperience),
		zap.Int("skills", len(p.Skills)),
		zap.Bool("resume", p.ResumePath != ""),
	)
	return p
}

func exportReport(ctx context.Context, led *ledger.Ledger, config *Config, log *zap.Logger) {
	records, err := led.Records(ctx)
	if err != nil {
		log.Warn("reading records for the report", zap.Error(err))
		return
	}
	paths, err := report.Export(ctx, records, config.Report.Dir, config.Report.Formats)
	if err != nil {
		log.Warn("exporting report", zap.Error(err))
		return
	}
	log.Info("report exported", zap.Strings("files", paths), zap.Int("records", len(records)))
}
