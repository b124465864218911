package cmd

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AmanKumar-0/linkedin-application-bot/internal/ledger"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/report"
)

const recentSessions = 5

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect and maintain the record of processed postings",
}

var ledgerStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show counts by status and the latest sessions",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return withLedger(ledgerStats)
	},
}

var ledgerExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all records as CSV and/or JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withLedger(func(ctx context.Context, led *ledger.Ledger, config *Config, logger *zap.Logger) error {
			if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
				config.Report.Dir = dir
			}
			if formats, _ := cmd.Flags().GetStringSlice("format"); len(formats) > 0 {
				config.Report.Formats = formats
			}
			records, err := led.Records(ctx)
			if err != nil {
				return err
			}
			paths, err := report.Export(ctx, records, config.Report.Dir, config.Report.Formats)
			if err != nil {
				return err
			}
			logger.Info("report exported", zap.Strings("files", paths), zap.Int("records", len(records)))
			return nil
		})
	},
}

var ledgerPurgeCmd = &cobra.Command{
	Use:   "purge <posting-id>...",
	Short: "Forget postings so a later run may process them again",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return withLedger(func(ctx context.Context, led *ledger.Ledger, _ *Config, logger *zap.Logger) error {
			removed, err := led.Purge(ctx, args...)
			if err != nil {
				return err
			}
			logger.Info("purged records", zap.Int("requested", len(args)), zap.Int("removed", removed))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerStatsCmd, ledgerExportCmd, ledgerPurgeCmd)

	ledgerExportCmd.Flags().String("dir", "", "output directory (overrides report.dir)")
	ledgerExportCmd.Flags().StringSlice("format", nil, "report formats: csv, json (overrides report.formats)")
}

func withLedger(fn func(context.Context, *ledger.Ledger, *Config, *zap.Logger) error) error {
	ctx := context.Background()

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		return err
	}

	led, err := ledger.Open(ctx, config.Ledger.Path, logger.Named("ledger"))
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}
	defer led.Close()

	return fn(ctx, led, config, logger)
}

func ledgerStats(ctx context.Context, led *ledger.Ledger, _ *Config, logger *zap.Logger) error {
	records, err := led.Records(ctx)
	if err != nil {
		return err
	}

	byStatus := make(map[string]int)
	attempted := 0
	for _, r := range records {
		byStatus[r.Status]++
		if r.Attempted {
			attempted++
		}
	}
	fields := []zap.Field{zap.Int("records", len(records)), zap.Int("attempted", attempted)}
	for _, status := range slices.Sorted(maps.Keys(byStatus)) {
		fields = append(fields, zap.Int(status, byStatus[status]))
	}
	logger.Info("ledger", fields...)

	sessions, err := led.Sessions(ctx, recentSessions)
	if err != nil {
		return err
	}
	for _, s := range sessions {
		duration := s.FinishedAt.Sub(s.StartedAt)
		rate := 0.0
		if s.Applied+s.Failed > 0 {
			rate = float64(s.Applied) / float64(s.Applied+s.Failed) * 100
		}
		logger.Info("session",
			zap.String("run_id", s.RunID),
			zap.Time("started_at", s.StartedAt),
			zap.Duration("duration", duration),
			zap.Int("processed", s.Processed),
			zap.Int("applied", s.Applied),
			zap.Int("failed", s.Failed),
			zap.Int("skipped", s.Skipped),
			zap.Float64("success_rate", rate),
			zap.String("stop_reason", s.StopReason),
		)
	}
	return nil
}
