package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AmanKumar-0/linkedin-application-bot/internal/browser"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/filtering"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/jobs"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/ledger"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/linkedin"
)

const (
	PromptReportByCompany = "Report by company"
	PromptRulesStatus     = "Show filter rules"
	PromptPostingsToFile  = "Dump postings to file"
	PromptExit            = "Exit"

	skippedByFlag = "skipped by --skip-rule"
)

var searchPrompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptReportByCompany, PromptRulesStatus, PromptPostingsToFile, PromptExit},
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search for postings and preview the filter results without applying",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return search(cmd)
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringSlice("skip-rule", nil, "disable a filter rule by name (repeatable)")
	searchCmd.Flags().Bool("report", false, "print the report by company and exit")
	searchCmd.Flags().Bool("dump", false, "dump the accepted postings to a temp file and exit")
	searchCmd.Flags().String("keywords", "", "comma separated search keywords (overrides search.keywords)")
	searchCmd.Flags().String("locations", "", "comma separated search locations (overrides search.locations)")
}

func search(cmd *cobra.Command) error {
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
	if err := applyRunFlags(cmd, config); err != nil {
		return err
	}

	skip := func(string) bool { return false }
	led, err := ledger.Open(ctx, config.Ledger.Path, logger.Named("ledger"))
	switch {
	case errors.Is(err, ledger.ErrLocked):
		logger.Warn("ledger is in use by a running session, recorded postings are not skipped")
	case err != nil:
		return fmt.Errorf("opening ledger: %w", err)
	default:
		defer led.Close()
		skip = led.HasRecord
	}

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

	postings, err := client.Search(&config.Search, skip).Collect(ctx)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	logger.Info("getting postings", zap.Int("count", postings.Len()))

	if postings.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no postings found"))
		return nil
	}

	rules := filtering.New(config.Filters, logger)
	skipRules, _ := cmd.Flags().GetStringSlice("skip-rule")
	for _, name := range skipRules {
		if !filtering.DisableByName(rules.Filters(), name, skippedByFlag) {
			logger.Warn("unknown filter rule", zap.String("rule", name))
		}
	}

	accepted, _ := rules.Run(postings)
	logger.Info("current list of postings", zap.Int("accepted", accepted.Len()), zap.Int("found", postings.Len()))

	report, _ := cmd.Flags().GetBool("report")
	dump, _ := cmd.Flags().GetBool("dump")
	if report || dump {
		if report {
			if err := handleSearchAction(PromptReportByCompany, rules, accepted, logger); err != nil {
				return err
			}
		}
		if dump {
			return handleSearchAction(PromptPostingsToFile, rules, accepted, logger)
		}
		return nil
	}

	for {
		_, action, err := searchPrompt.Run()
		if err != nil {
			return err
		}
		if err := handleSearchAction(action, rules, accepted, logger); err != nil {
			if errors.Is(err, errExit) {
				return nil
			}
			return err
		}
	}
}

func handleSearchAction(action string, rules *filtering.Engine, postings *jobs.Postings, logger *zap.Logger) error {
	switch action {
	case PromptReportByCompany:
		pretty, _ := json.MarshalIndent(postings.ReportByCompany(), "", "  ")
		logger.Info(string(pretty), zap.Int("postings count", postings.Len()))
		return nil
	case PromptRulesStatus:
		for _, status := range filtering.Describe(rules.Filters()) {
			logger.Info("filter rule",
				zap.String("rule", status.Name),
				zap.Bool("enabled", status.Enabled),
				zap.String("reason", status.Reason),
				zap.Any("details", status.Details),
			)
		}
		return nil
	case PromptPostingsToFile:
		filename, err := postings.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}
